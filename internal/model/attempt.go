package model

import "time"

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptCompleted  AttemptStatus = "completed"
	AttemptTimeout    AttemptStatus = "timeout"
	// AttemptCancelled 状态域里保留，但当前没有任何操作会迁移到该状态。
	AttemptCancelled AttemptStatus = "cancelled"
)

// IsTerminal 终态不可再变更
func (s AttemptStatus) IsTerminal() bool {
	return s == AttemptCompleted || s == AttemptTimeout || s == AttemptCancelled
}

// swagger:model TestAttempt
type TestAttempt struct {
	BaseModel

	TestID uint `gorm:"index;type:bigint unsigned" json:"testId"`
	UserID uint `gorm:"index;type:bigint unsigned" json:"userId"`

	Status      AttemptStatus `gorm:"size:20;default:'in_progress'" json:"status"`
	StartedAt   time.Time     `json:"startedAt"`
	CompletedAt *time.Time    `json:"completedAt,omitempty"`

	Score            float64 `gorm:"default:0" json:"score"`
	CorrectCount     int     `gorm:"default:0" json:"correctCount"`
	TotalQuestions   int     `gorm:"default:0" json:"totalQuestions"`
	TimeSpentSeconds int     `gorm:"default:0" json:"timeSpentSeconds"`
	IsPassed         bool    `gorm:"default:false" json:"isPassed"`

	// ActiveKey 在 in_progress 期间等于 "userID-testID"，终态置 NULL。
	// 唯一索引保证同一 (user, test) 同时只有一次进行中的尝试。
	ActiveKey *string `gorm:"size:64;uniqueIndex" json:"-"`
}

func (TestAttempt) TableName() string {
	return "test_attempts"
}

// swagger:model TestAnswer
type TestAnswer struct {
	BaseModel

	AttemptID  uint `gorm:"index:idx_attempt_question,unique;type:bigint unsigned" json:"attemptId"`
	QuestionID uint `gorm:"index:idx_attempt_question,unique;type:bigint unsigned" json:"questionId"`

	SelectedAnswers  string    `gorm:"type:json" json:"selectedAnswers"`
	IsCorrect        bool      `gorm:"default:false" json:"isCorrect"`
	TimeSpentSeconds int       `gorm:"default:0" json:"timeSpentSeconds"`
	AnsweredAt       time.Time `json:"answeredAt"`
}

func (TestAnswer) TableName() string {
	return "test_answers"
}
