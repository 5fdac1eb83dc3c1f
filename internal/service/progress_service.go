package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"online_edu_backend/internal/model"
	"online_edu_backend/internal/repository"
	"online_edu_backend/internal/util"
	"online_edu_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const courseProgressCacheTTL = 5 * time.Minute

// ProgressService 学习进度与准入：课时观看、主题/课程进度、
// 考试门槛校验与结课证书。
type ProgressService struct {
	LessonProgress *repository.LessonProgressRepository
	Courses        *repository.CourseRepository
	Tests          *repository.TestRepository
	Attempts       *repository.AttemptRepository
	Certificates   *repository.CertificateRepository
	Redis          *redis.Client
}

func NewProgressService(
	lessonProgress *repository.LessonProgressRepository,
	courses *repository.CourseRepository,
	tests *repository.TestRepository,
	attempts *repository.AttemptRepository,
	certificates *repository.CertificateRepository,
	rdb *redis.Client,
) *ProgressService {
	return &ProgressService{
		LessonProgress: lessonProgress,
		Courses:        courses,
		Tests:          tests,
		Attempts:       attempts,
		Certificates:   certificates,
		Redis:          rdb,
	}
}

// completionSlack 片尾容差：时长 8% 与 5 秒取小。
// 看到离结尾不足容差即记完成，避免片尾字幕卡完成率。
func completionSlack(durationSeconds int) int {
	slack := durationSeconds * 8 / 100
	if slack > 5 {
		slack = 5
	}
	return slack
}

// LessonComplete 判断观看秒数是否足以记完成
func LessonComplete(watchedSeconds, durationSeconds int) bool {
	if durationSeconds <= 0 {
		return watchedSeconds > 0
	}
	return watchedSeconds >= durationSeconds-completionSlack(durationSeconds)
}

// RecordWatch 上报观看进度。进度只增不减，完成态不可回退。
func (s *ProgressService) RecordWatch(userID, lessonID uint, watchedSeconds int) (*model.LessonProgress, error) {
	lesson, err := s.Courses.FindLessonByID(lessonID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrLessonNotFound
		}
		return nil, err
	}
	if watchedSeconds < 0 {
		watchedSeconds = 0
	}
	if watchedSeconds > lesson.DurationSeconds && lesson.DurationSeconds > 0 {
		watchedSeconds = lesson.DurationSeconds
	}

	progress := &model.LessonProgress{
		UserID:          userID,
		LessonID:        lessonID,
		WatchedSeconds:  watchedSeconds,
		DurationSeconds: lesson.DurationSeconds,
		Completed:       LessonComplete(watchedSeconds, lesson.DurationSeconds),
	}
	if progress.Completed {
		now := time.Now()
		progress.CompletedAt = &now
	}
	if err := s.LessonProgress.Upsert(progress); err != nil {
		return nil, err
	}

	if topic, err := s.Courses.FindTopicByID(lesson.TopicID); err == nil {
		s.InvalidateCourseCache(userID, topic.CourseID)
	}
	return progress, nil
}

// CanStartTopicExam 主题测验门槛：主题下全部课时已完成。
// 没有课时的主题不设门槛。
func (s *ProgressService) CanStartTopicExam(userID, topicID uint) (bool, error) {
	lessons, err := s.Courses.LessonsByTopic(topicID)
	if err != nil {
		return false, err
	}
	if len(lessons) == 0 {
		return true, nil
	}
	lessonIDs := make([]uint, 0, len(lessons))
	for _, l := range lessons {
		lessonIDs = append(lessonIDs, l.ID)
	}
	completed, err := s.LessonProgress.MapByLessons(userID, lessonIDs)
	if err != nil {
		return false, err
	}
	for _, id := range lessonIDs {
		p, ok := completed[id]
		if !ok || !p.Completed {
			return false, nil
		}
	}
	return true, nil
}

// CanStartFinalExam 结课考试门槛：每个设有主题测验的主题都得通过。
// 没挂测验的主题不参与判定。
func (s *ProgressService) CanStartFinalExam(userID, courseID uint) (bool, error) {
	topics, err := s.Courses.TopicsByCourse(courseID)
	if err != nil {
		return false, err
	}
	for _, topic := range topics {
		exam, err := s.Tests.FindTopicExam(topic.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return false, err
		}
		passed, err := s.Attempts.HasPassedAttempt(userID, exam.ID)
		if err != nil {
			return false, err
		}
		if !passed {
			return false, nil
		}
	}
	return true, nil
}

// TopicProgress 单个主题的学习视图
type TopicProgress struct {
	TopicID          uint    `json:"topicId"`
	Title            string  `json:"title"`
	LessonCount      int     `json:"lessonCount"`
	CompletedLessons int     `json:"completedLessons"`
	Percent          float64 `json:"percent"`
	HasExam          bool    `json:"hasExam"`
	ExamID           uint    `json:"examId,omitempty"`
	ExamPassed       bool    `json:"examPassed"`
	CanStartExam     bool    `json:"canStartExam"`
}

func (s *ProgressService) GetTopicProgress(userID, topicID uint) (*TopicProgress, error) {
	topic, err := s.Courses.FindTopicByID(topicID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrTopicNotFound
		}
		return nil, err
	}
	return s.buildTopicProgress(userID, topic)
}

func (s *ProgressService) buildTopicProgress(userID uint, topic *model.Topic) (*TopicProgress, error) {
	lessons, err := s.Courses.LessonsByTopic(topic.ID)
	if err != nil {
		return nil, err
	}
	lessonIDs := make([]uint, 0, len(lessons))
	for _, l := range lessons {
		lessonIDs = append(lessonIDs, l.ID)
	}
	progressMap, err := s.LessonProgress.MapByLessons(userID, lessonIDs)
	if err != nil {
		return nil, err
	}

	completed := 0
	for _, id := range lessonIDs {
		if p, ok := progressMap[id]; ok && p.Completed {
			completed++
		}
	}

	tp := &TopicProgress{
		TopicID:          topic.ID,
		Title:            topic.Title,
		LessonCount:      len(lessons),
		CompletedLessons: completed,
		CanStartExam:     completed == len(lessons),
	}
	if len(lessons) > 0 {
		tp.Percent = round2(100 * float64(completed) / float64(len(lessons)))
	}

	exam, err := s.Tests.FindTopicExam(topic.ID)
	if err == nil {
		tp.HasExam = true
		tp.ExamID = exam.ID
		passed, err := s.Attempts.HasPassedAttempt(userID, exam.ID)
		if err != nil {
			return nil, err
		}
		tp.ExamPassed = passed
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	return tp, nil
}

// CourseProgress 课程整体进度视图，courseProgressCacheTTL 内走缓存
type CourseProgress struct {
	CourseID            uint            `json:"courseId"`
	Topics              []TopicProgress `json:"topics"`
	LessonCount         int             `json:"lessonCount"`
	CompletedLessons    int             `json:"completedLessons"`
	Percent             float64         `json:"percent"`
	HasFinalExam        bool            `json:"hasFinalExam"`
	FinalExamID         uint            `json:"finalExamId,omitempty"`
	FinalExamPassed     bool            `json:"finalExamPassed"`
	CanStartFinalExam   bool            `json:"canStartFinalExam"`
	CertificateEligible bool            `json:"certificateEligible"`
}

func courseProgressCacheKey(userID, courseID uint) string {
	return fmt.Sprintf("course_progress:%d:%d", userID, courseID)
}

func (s *ProgressService) GetCourseProgress(ctx context.Context, userID, courseID uint) (*CourseProgress, error) {
	if s.Redis != nil {
		if raw, err := s.Redis.Get(ctx, courseProgressCacheKey(userID, courseID)).Result(); err == nil {
			var cached CourseProgress
			if json.Unmarshal([]byte(raw), &cached) == nil {
				return &cached, nil
			}
		}
	}

	if _, err := s.Courses.FindByID(courseID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrCourseNotFound
		}
		return nil, err
	}

	topics, err := s.Courses.TopicsByCourse(courseID)
	if err != nil {
		return nil, err
	}

	cp := &CourseProgress{CourseID: courseID}
	for i := range topics {
		tp, err := s.buildTopicProgress(userID, &topics[i])
		if err != nil {
			return nil, err
		}
		cp.Topics = append(cp.Topics, *tp)
		cp.LessonCount += tp.LessonCount
		cp.CompletedLessons += tp.CompletedLessons
	}
	if cp.LessonCount > 0 {
		cp.Percent = round2(100 * float64(cp.CompletedLessons) / float64(cp.LessonCount))
	}

	canFinal, err := s.CanStartFinalExam(userID, courseID)
	if err != nil {
		return nil, err
	}
	cp.CanStartFinalExam = canFinal

	finalExam, err := s.Tests.FindFinalExam(courseID)
	if err == nil {
		cp.HasFinalExam = true
		cp.FinalExamID = finalExam.ID
		passed, err := s.Attempts.HasPassedAttempt(userID, finalExam.ID)
		if err != nil {
			return nil, err
		}
		cp.FinalExamPassed = passed
		cp.CertificateEligible = passed
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if s.Redis != nil {
		if raw, err := json.Marshal(cp); err == nil {
			if err := s.Redis.Set(ctx, courseProgressCacheKey(userID, courseID), raw, courseProgressCacheTTL).Err(); err != nil {
				logger.Log.Warn("course progress cache set failed", zap.Error(err))
			}
		}
	}
	return cp, nil
}

// InvalidateCourseCache 进度相关写操作后让缓存失效
func (s *ProgressService) InvalidateCourseCache(userID, courseID uint) {
	if s.Redis == nil {
		return
	}
	if err := s.Redis.Del(context.Background(), courseProgressCacheKey(userID, courseID)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		logger.Log.Warn("course progress cache invalidation failed", zap.Error(err))
	}
}

// IssueCertificate 签发结课证书。幂等：已签发的直接返回。
// 资格 = 课程设有结课考试，且存在已通过的 completed 尝试。
func (s *ProgressService) IssueCertificate(userID, courseID uint) (*model.Certificate, error) {
	if cert, err := s.Certificates.FindByUserAndCourse(userID, courseID); err == nil {
		return cert, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	finalExam, err := s.Tests.FindFinalExam(courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrPrerequisiteNotMet
		}
		return nil, err
	}

	best, err := s.Attempts.BestCompleted(userID, finalExam.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrPrerequisiteNotMet
		}
		return nil, err
	}
	if !best.IsPassed {
		return nil, util.ErrPrerequisiteNotMet
	}

	cert := &model.Certificate{
		UserID:       userID,
		CourseID:     courseID,
		SerialNumber: uuid.NewString(),
		FinalScore:   best.Score,
		IssuedAt:     time.Now(),
	}
	if err := s.Certificates.Create(cert); err != nil {
		return nil, err
	}
	return cert, nil
}
