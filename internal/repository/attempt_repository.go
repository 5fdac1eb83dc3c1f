package repository

import (
	"fmt"
	"time"

	"online_edu_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AttemptRepository struct {
	DB *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{DB: db}
}

// ActiveKey 进行中尝试的唯一键；终态写 NULL
func ActiveKey(userID, testID uint) string {
	return fmt.Sprintf("%d-%d", userID, testID)
}

// CreateActive 创建进行中的尝试。并发重复创建由唯一索引拦截，
// 调用方据 gorm.ErrDuplicatedKey 判定冲突。
func (r *AttemptRepository) CreateActive(attempt *model.TestAttempt) error {
	key := ActiveKey(attempt.UserID, attempt.TestID)
	attempt.ActiveKey = &key
	attempt.Status = model.AttemptInProgress
	return r.DB.Create(attempt).Error
}

func (r *AttemptRepository) FindByID(id uint) (*model.TestAttempt, error) {
	var a model.TestAttempt
	if err := r.DB.First(&a, id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AttemptRepository) FindInProgress(userID, testID uint) (*model.TestAttempt, error) {
	var a model.TestAttempt
	err := r.DB.
		Where("user_id = ? AND test_id = ? AND status = ?", userID, testID, model.AttemptInProgress).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Finish 迁移到终态并释放 active key
func (r *AttemptRepository) Finish(attempt *model.TestAttempt, status model.AttemptStatus, endedAt time.Time) error {
	attempt.Status = status
	attempt.CompletedAt = &endedAt
	attempt.ActiveKey = nil
	return r.DB.Save(attempt).Error
}

func (r *AttemptRepository) Update(attempt *model.TestAttempt) error {
	return r.DB.Save(attempt).Error
}

// UpsertAnswer 同一 (attempt, question) 重复提交时覆盖旧答案，
// 唯一索引 + ON CONFLICT 保证并发下也不会产生重复行。
func (r *AttemptRepository) UpsertAnswer(answer *model.TestAnswer) error {
	return r.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "attempt_id"}, {Name: "question_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"selected_answers", "is_correct", "time_spent_seconds", "answered_at", "updated_at",
		}),
	}).Create(answer).Error
}

func (r *AttemptRepository) AnswersByAttempt(attemptID uint) ([]model.TestAnswer, error) {
	var answers []model.TestAnswer
	err := r.DB.Where("attempt_id = ?", attemptID).Find(&answers).Error
	return answers, err
}

func (r *AttemptRepository) ListByUser(userID uint, page, limit int) ([]model.TestAttempt, int64, error) {
	var attempts []model.TestAttempt
	var total int64
	query := r.DB.Model(&model.TestAttempt{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset := (page - 1) * limit
	err := query.Order("started_at desc").Offset(offset).Limit(limit).Find(&attempts).Error
	return attempts, total, err
}

// HasPassedAttempt 是否存在已完成且通过的尝试
func (r *AttemptRepository) HasPassedAttempt(userID, testID uint) (bool, error) {
	var count int64
	err := r.DB.Model(&model.TestAttempt{}).
		Where("user_id = ? AND test_id = ? AND status = ? AND is_passed = ?",
			userID, testID, model.AttemptCompleted, true).
		Count(&count).Error
	return count > 0, err
}

// BestCompleted 返回该用户在该试卷上得分最高的已完成尝试
func (r *AttemptRepository) BestCompleted(userID, testID uint) (*model.TestAttempt, error) {
	var a model.TestAttempt
	err := r.DB.
		Where("user_id = ? AND test_id = ? AND status = ?", userID, testID, model.AttemptCompleted).
		Order("score desc").
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}
