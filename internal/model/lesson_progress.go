package model

import "time"

// LessonProgress 记录用户对课时视频的观看进度
// swagger:model LessonProgress
type LessonProgress struct {
	BaseModel
	UserID          uint       `gorm:"index:idx_user_lesson,unique;type:bigint unsigned" json:"userId"`
	LessonID        uint       `gorm:"index:idx_user_lesson,unique;type:bigint unsigned" json:"lessonId"`
	WatchedSeconds  int        `gorm:"default:0" json:"watchedSeconds"`
	DurationSeconds int        `gorm:"default:0" json:"durationSeconds"`
	Completed       bool       `gorm:"default:false" json:"completed"`
	CompletedAt     *time.Time `json:"completedAt,omitempty"`
}

func (LessonProgress) TableName() string {
	return "lesson_progress"
}
