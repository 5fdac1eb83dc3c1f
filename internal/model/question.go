package model

// Question 题库中的单个题目。选项与正确答案均为 JSON 字符串数组；
// 正确答案是选项的非空子集（单选或多选）。
// swagger:model Question
type Question struct {
	BaseModel
	TopicID        uint   `gorm:"index;type:bigint unsigned" json:"topicId"`
	Prompt         string `gorm:"type:text;not null" json:"prompt"`
	Options        string `gorm:"type:json" json:"options"`
	CorrectAnswers string `gorm:"type:json" json:"correctAnswers"`
	Explanation    string `gorm:"type:text" json:"explanation"`
	IsGenerated    bool   `gorm:"default:false" json:"isGenerated"` // 由 AI 生成
}

func (Question) TableName() string {
	return "questions"
}
