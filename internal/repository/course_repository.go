package repository

import (
	"online_edu_backend/internal/model"

	"gorm.io/gorm"
)

// CourseRepository 课程目录查询。评测引擎只读课程结构，
// 课程的增删改属于外部模块。
type CourseRepository struct {
	DB *gorm.DB
}

func NewCourseRepository(db *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: db}
}

func (r *CourseRepository) FindByID(id uint) (*model.Course, error) {
	var course model.Course
	if err := r.DB.First(&course, id).Error; err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *CourseRepository) FindTopicByID(id uint) (*model.Topic, error) {
	var topic model.Topic
	if err := r.DB.First(&topic, id).Error; err != nil {
		return nil, err
	}
	return &topic, nil
}

func (r *CourseRepository) TopicsByCourse(courseID uint) ([]model.Topic, error) {
	var topics []model.Topic
	err := r.DB.Where("course_id = ?", courseID).Order("`order` asc").Find(&topics).Error
	return topics, err
}

func (r *CourseRepository) FindLessonByID(id uint) (*model.Lesson, error) {
	var lesson model.Lesson
	if err := r.DB.First(&lesson, id).Error; err != nil {
		return nil, err
	}
	return &lesson, nil
}

func (r *CourseRepository) LessonsByTopic(topicID uint) ([]model.Lesson, error) {
	var lessons []model.Lesson
	err := r.DB.Where("topic_id = ?", topicID).Order("`order` asc").Find(&lessons).Error
	return lessons, err
}

func (r *CourseRepository) LessonsByCourse(courseID uint) ([]model.Lesson, error) {
	var lessons []model.Lesson
	err := r.DB.
		Joins("JOIN topics ON topics.id = lessons.topic_id").
		Where("topics.course_id = ?", courseID).
		Find(&lessons).Error
	return lessons, err
}

func (r *CourseRepository) UpdateLesson(lesson *model.Lesson) error {
	return r.DB.Save(lesson).Error
}

// IsInstructorOf 校验讲师是否拥有该课程（管理员校验在中间件层）
func (r *CourseRepository) IsInstructorOf(courseID, userID uint) (bool, error) {
	var count int64
	err := r.DB.Model(&model.Course{}).
		Where("id = ? AND instructor_id = ?", courseID, userID).
		Count(&count).Error
	return count > 0, err
}
