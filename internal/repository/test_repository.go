package repository

import (
	"online_edu_backend/internal/model"

	"gorm.io/gorm"
)

type TestRepository struct {
	DB *gorm.DB
}

func NewTestRepository(db *gorm.DB) *TestRepository {
	return &TestRepository{DB: db}
}

// CreateWithQuestions 同一事务内创建试卷及其题目引用
func (r *TestRepository) CreateWithQuestions(test *model.Test, questionIDs []uint) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(test).Error; err != nil {
			return err
		}
		if len(questionIDs) > 0 {
			links := make([]model.TestQuestion, 0, len(questionIDs))
			for _, qid := range questionIDs {
				links = append(links, model.TestQuestion{
					TestID:     test.ID,
					QuestionID: qid,
				})
			}
			if err := tx.Create(&links).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *TestRepository) FindByID(id uint) (*model.Test, error) {
	var test model.Test
	if err := r.DB.First(&test, id).Error; err != nil {
		return nil, err
	}
	return &test, nil
}

// FindActiveByID 只返回启用中的试卷；停用视同不存在
func (r *TestRepository) FindActiveByID(id uint) (*model.Test, error) {
	var test model.Test
	err := r.DB.Where("id = ? AND is_active = ?", id, true).First(&test).Error
	if err != nil {
		return nil, err
	}
	return &test, nil
}

func (r *TestRepository) FindTopicExam(topicID uint) (*model.Test, error) {
	var test model.Test
	err := r.DB.Where("topic_id = ? AND kind = ?", topicID, model.TestKindTopicExam).First(&test).Error
	if err != nil {
		return nil, err
	}
	return &test, nil
}

func (r *TestRepository) FindFinalExam(courseID uint) (*model.Test, error) {
	var test model.Test
	err := r.DB.Where("course_id = ? AND kind = ?", courseID, model.TestKindFinalExam).First(&test).Error
	if err != nil {
		return nil, err
	}
	return &test, nil
}

func (r *TestRepository) ListByCourse(courseID uint) ([]model.Test, error) {
	var tests []model.Test
	err := r.DB.Where("course_id = ?", courseID).Order("created_at desc").Find(&tests).Error
	return tests, err
}

// QuestionsForTest 返回试卷引用的全部题目
func (r *TestRepository) QuestionsForTest(testID uint) ([]model.Question, error) {
	var qs []model.Question
	err := r.DB.
		Joins("JOIN test_questions ON test_questions.question_id = questions.id").
		Where("test_questions.test_id = ? AND test_questions.deleted_at IS NULL", testID).
		Find(&qs).Error
	return qs, err
}

func (r *TestRepository) CountQuestions(testID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.TestQuestion{}).Where("test_id = ?", testID).Count(&count).Error
	return count, err
}

func (r *TestRepository) HasQuestion(testID, questionID uint) (bool, error) {
	var count int64
	err := r.DB.Model(&model.TestQuestion{}).
		Where("test_id = ? AND question_id = ?", testID, questionID).
		Count(&count).Error
	return count > 0, err
}

func (r *TestRepository) AddQuestions(testID uint, questionIDs []uint) error {
	if len(questionIDs) == 0 {
		return nil
	}
	links := make([]model.TestQuestion, 0, len(questionIDs))
	for _, qid := range questionIDs {
		links = append(links, model.TestQuestion{TestID: testID, QuestionID: qid})
	}
	return r.DB.Create(&links).Error
}

// SetActive 引擎内试卷唯一的变更入口就是启停
func (r *TestRepository) SetActive(testID uint, active bool) error {
	return r.DB.Model(&model.Test{}).Where("id = ?", testID).Update("is_active", active).Error
}
