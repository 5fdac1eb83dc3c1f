package model

type TestKind string

const (
	TestKindPractice  TestKind = "practice"
	TestKindTopicExam TestKind = "topic_exam"
	TestKindFinalExam TestKind = "final_exam"
)

// swagger:model Test
type Test struct {
	BaseModel

	CourseID    uint     `gorm:"index;type:bigint unsigned" json:"courseId"`
	TopicID     *uint    `gorm:"index;type:bigint unsigned" json:"topicId,omitempty"` // 仅 topic_exam 绑定
	CreatorID   uint     `gorm:"index;type:bigint unsigned" json:"creatorId"`
	Title       string   `gorm:"size:255;not null" json:"title"`
	Description string   `gorm:"type:text" json:"description"`
	Kind        TestKind `gorm:"size:20;default:'practice';index" json:"kind"`

	DurationMinutes     int  `gorm:"default:30" json:"durationMinutes"`
	PassingScore        int  `gorm:"default:60" json:"passingScore"`
	TargetQuestionCount int  `gorm:"default:10" json:"targetQuestionCount"`
	ShuffleQuestions    bool `gorm:"default:false" json:"shuffleQuestions"`
	ShuffleAnswers      bool `gorm:"default:false" json:"shuffleAnswers"`
	RequireCompletion   bool `gorm:"default:false" json:"requireCompletion"` // 开考前要求前置进度
	IsActive            bool `gorm:"default:true" json:"isActive"`
}

func (Test) TableName() string {
	return "tests"
}

// TestQuestion 试卷与题目的关联（题目归题库所有，试卷仅引用）
type TestQuestion struct {
	BaseModel
	TestID     uint `gorm:"index:idx_test_question,unique;type:bigint unsigned" json:"testId"`
	QuestionID uint `gorm:"index:idx_test_question,unique;type:bigint unsigned" json:"questionId"`
}

func (TestQuestion) TableName() string {
	return "test_questions"
}
