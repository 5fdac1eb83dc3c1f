package repository

import (
	"time"

	"online_edu_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LessonProgressRepository 记录并查询课时观看进度
type LessonProgressRepository struct {
	DB *gorm.DB
}

func NewLessonProgressRepository(db *gorm.DB) *LessonProgressRepository {
	return &LessonProgressRepository{DB: db}
}

// Upsert 写入观看进度。watched 只增不减；completed 一旦为真不再回退。
func (r *LessonProgressRepository) Upsert(p *model.LessonProgress) error {
	var existing model.LessonProgress
	err := r.DB.Where("user_id = ? AND lesson_id = ?", p.UserID, p.LessonID).First(&existing).Error
	if err == nil {
		if p.WatchedSeconds < existing.WatchedSeconds {
			p.WatchedSeconds = existing.WatchedSeconds
		}
		if existing.Completed {
			p.Completed = true
			p.CompletedAt = existing.CompletedAt
		} else if p.Completed && p.CompletedAt == nil {
			now := time.Now()
			p.CompletedAt = &now
		}
	} else if p.Completed && p.CompletedAt == nil {
		now := time.Now()
		p.CompletedAt = &now
	}

	return r.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "lesson_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"watched_seconds", "duration_seconds", "completed", "completed_at", "updated_at",
		}),
	}).Create(p).Error
}

func (r *LessonProgressRepository) Find(userID, lessonID uint) (*model.LessonProgress, error) {
	var p model.LessonProgress
	err := r.DB.Where("user_id = ? AND lesson_id = ?", userID, lessonID).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// MapByLessons 返回 lessonID → 进度 的映射，缺失的课时表示未观看
func (r *LessonProgressRepository) MapByLessons(userID uint, lessonIDs []uint) (map[uint]model.LessonProgress, error) {
	result := make(map[uint]model.LessonProgress, len(lessonIDs))
	if len(lessonIDs) == 0 {
		return result, nil
	}
	var rows []model.LessonProgress
	err := r.DB.Where("user_id = ? AND lesson_id IN ?", userID, lessonIDs).Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		result[row.LessonID] = row
	}
	return result, nil
}
