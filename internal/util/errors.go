package util

import "errors"

var (
	ErrUserNotFound     = errors.New("用户不存在")
	ErrEmailRegistered  = errors.New("该邮箱已被注册")
	ErrPermissionDenied = errors.New("permission denied")

	ErrCourseNotFound   = errors.New("course not found")
	ErrTopicNotFound    = errors.New("topic not found")
	ErrLessonNotFound   = errors.New("lesson not found")
	ErrTestNotFound     = errors.New("test not found or inactive")
	ErrQuestionNotFound = errors.New("question not found")
	ErrAttemptNotFound  = errors.New("attempt not found")

	ErrInvalidTestDefinition = errors.New("invalid test definition")

	ErrDuplicateExam       = errors.New("topic or course already has an exam of this kind")
	ErrActiveAttemptExists = errors.New("an in-progress attempt already exists for this test")
	ErrAttemptNotRunning   = errors.New("attempt is not in progress")
	ErrAttemptTimeExpired  = errors.New("time budget exceeded, attempt marked as timeout")
	ErrPrerequisiteNotMet  = errors.New("prerequisites for this exam are not met")
	ErrGenerationFailed    = errors.New("question generation failed")
)
