package repository

import (
	"online_edu_backend/internal/model"

	"gorm.io/gorm"
)

type QuestionRepository struct {
	DB *gorm.DB
}

func NewQuestionRepository(db *gorm.DB) *QuestionRepository {
	return &QuestionRepository{DB: db}
}

func (r *QuestionRepository) Create(q *model.Question) error {
	return r.DB.Create(q).Error
}

func (r *QuestionRepository) CreateBatch(qs []model.Question) error {
	if len(qs) == 0 {
		return nil
	}
	return r.DB.Create(&qs).Error
}

func (r *QuestionRepository) FindByID(id uint) (*model.Question, error) {
	var q model.Question
	if err := r.DB.First(&q, id).Error; err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *QuestionRepository) FindByIDs(ids []uint) ([]model.Question, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var qs []model.Question
	err := r.DB.Where("id IN ?", ids).Find(&qs).Error
	return qs, err
}

func (r *QuestionRepository) ListByTopics(topicIDs []uint) ([]model.Question, error) {
	if len(topicIDs) == 0 {
		return nil, nil
	}
	var qs []model.Question
	err := r.DB.Where("topic_id IN ?", topicIDs).Find(&qs).Error
	return qs, err
}

func (r *QuestionRepository) CountByTopics(topicIDs []uint) (int64, error) {
	if len(topicIDs) == 0 {
		return 0, nil
	}
	var count int64
	err := r.DB.Model(&model.Question{}).Where("topic_id IN ?", topicIDs).Count(&count).Error
	return count, err
}
