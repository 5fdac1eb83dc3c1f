package service

import (
	"context"
	"errors"
	"math"
	"mime/multipart"

	"online_edu_backend/internal/model"
	"online_edu_backend/internal/repository"
	"online_edu_backend/internal/util"

	"gorm.io/gorm"
)

// LessonService 课时视频的上传与播放地址
type LessonService struct {
	Courses *repository.CourseRepository
	Storage *StorageService
}

func NewLessonService(courses *repository.CourseRepository, storage *StorageService) *LessonService {
	return &LessonService{Courses: courses, Storage: storage}
}

func (s *LessonService) findLessonCourse(lessonID uint) (*model.Lesson, uint, error) {
	lesson, err := s.Courses.FindLessonByID(lessonID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, util.ErrLessonNotFound
		}
		return nil, 0, err
	}
	topic, err := s.Courses.FindTopicByID(lesson.TopicID)
	if err != nil {
		return nil, 0, err
	}
	return lesson, topic.CourseID, nil
}

// UploadVideo 上传课时视频。探测到的时长写回课时，
// 成为观看完成度判定的分母。
func (s *LessonService) UploadVideo(ctx context.Context, userID uint, role model.UserRole, lessonID uint, file *multipart.FileHeader) (*model.Lesson, error) {
	lesson, courseID, err := s.findLessonCourse(lessonID)
	if err != nil {
		return nil, err
	}
	if role != model.Admin {
		owns, err := s.Courses.IsInstructorOf(courseID, userID)
		if err != nil {
			return nil, err
		}
		if !owns {
			return nil, util.ErrPermissionDenied
		}
	}

	objectKey, info, err := s.Storage.SaveLessonVideo(ctx, file)
	if err != nil {
		return nil, err
	}

	lesson.VideoObjectKey = objectKey
	lesson.DurationSeconds = int(math.Round(info.Duration))
	if url, err := s.Storage.VideoURL(ctx, objectKey); err == nil {
		lesson.VideoURL = url
	}
	if err := s.Courses.UpdateLesson(lesson); err != nil {
		return nil, err
	}
	return lesson, nil
}

// PlayURL 取播放地址，MinIO 模式下每次请求重新签发
func (s *LessonService) PlayURL(ctx context.Context, lessonID uint) (string, error) {
	lesson, _, err := s.findLessonCourse(lessonID)
	if err != nil {
		return "", err
	}
	if lesson.VideoObjectKey == "" {
		return lesson.VideoURL, nil
	}
	return s.Storage.VideoURL(ctx, lesson.VideoObjectKey)
}
