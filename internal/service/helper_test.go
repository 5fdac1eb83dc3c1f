package service

import (
	"encoding/json"
	"strconv"
	"testing"

	"online_edu_backend/internal/model"
	"online_edu_backend/internal/repository"
	"online_edu_backend/pkg/database"
	"online_edu_backend/pkg/logger"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func init() {
	logger.Log = zap.NewNop()
}

type testEnv struct {
	db        *gorm.DB
	userSeq   int
	users     *repository.UserRepository
	courses   *repository.CourseRepository
	questions *repository.QuestionRepository
	tests     *repository.TestRepository
	attempts  *repository.AttemptRepository
	watched   *repository.LessonProgressRepository
	certs     *repository.CertificateRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql.DB: %v", err)
	}
	// 内存库只能有一个连接，否则其他连接看到的是空库
	sqlDB.SetMaxOpenConns(1)

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	return &testEnv{
		db:        db,
		users:     repository.NewUserRepository(db),
		courses:   repository.NewCourseRepository(db),
		questions: repository.NewQuestionRepository(db),
		tests:     repository.NewTestRepository(db),
		attempts:  repository.NewAttemptRepository(db),
		watched:   repository.NewLessonProgressRepository(db),
		certs:     repository.NewCertificateRepository(db),
	}
}

func (e *testEnv) progressService() *ProgressService {
	return NewProgressService(e.watched, e.courses, e.tests, e.attempts, e.certs, nil)
}

func (e *testEnv) attemptService() *AttemptService {
	return NewAttemptService(e.attempts, e.tests, e.questions, e.progressService())
}

func (e *testEnv) bankService(gen QuestionGenerator) *QuestionBankService {
	return NewQuestionBankService(e.questions, e.courses, gen)
}

func (e *testEnv) testService(gen QuestionGenerator) *TestService {
	return NewTestService(e.tests, e.questions, e.courses, e.attempts, e.bankService(gen))
}

func (e *testEnv) createUser(t *testing.T, role model.UserRole) *model.User {
	t.Helper()
	e.userSeq++
	user := &model.User{
		Name:     "user",
		Email:    "user-" + strconv.Itoa(e.userSeq) + "-" + string(role) + "@example.com",
		Password: "hashed",
		Role:     role,
	}
	if err := e.users.Create(user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func (e *testEnv) createCourse(t *testing.T, instructorID uint) *model.Course {
	t.Helper()
	course := &model.Course{Title: "course", InstructorID: instructorID}
	if err := e.db.Create(course).Error; err != nil {
		t.Fatalf("create course: %v", err)
	}
	return course
}

func (e *testEnv) createTopic(t *testing.T, courseID uint, order int) *model.Topic {
	t.Helper()
	topic := &model.Topic{CourseID: courseID, Title: "topic", Order: order}
	if err := e.db.Create(topic).Error; err != nil {
		t.Fatalf("create topic: %v", err)
	}
	return topic
}

func (e *testEnv) createLesson(t *testing.T, topicID uint, durationSeconds int) *model.Lesson {
	t.Helper()
	lesson := &model.Lesson{TopicID: topicID, Title: "lesson", DurationSeconds: durationSeconds}
	if err := e.db.Create(lesson).Error; err != nil {
		t.Fatalf("create lesson: %v", err)
	}
	return lesson
}

func (e *testEnv) createQuestion(t *testing.T, topicID uint, options, correct []string) *model.Question {
	t.Helper()
	optBytes, _ := json.Marshal(options)
	ansBytes, _ := json.Marshal(correct)
	q := &model.Question{
		TopicID:        topicID,
		Prompt:         "prompt",
		Options:        string(optBytes),
		CorrectAnswers: string(ansBytes),
	}
	if err := e.questions.Create(q); err != nil {
		t.Fatalf("create question: %v", err)
	}
	return q
}

func (e *testEnv) createTest(t *testing.T, courseID uint, kind model.TestKind, questionIDs []uint) *model.Test {
	t.Helper()
	test := &model.Test{
		CourseID:            courseID,
		CreatorID:           1,
		Title:               "test",
		Kind:                kind,
		DurationMinutes:     30,
		PassingScore:        60,
		TargetQuestionCount: len(questionIDs),
		IsActive:            true,
	}
	if err := e.tests.CreateWithQuestions(test, questionIDs); err != nil {
		t.Fatalf("create test: %v", err)
	}
	return test
}
