package model

import "time"

// Certificate 结课证书记录。资格判定在评测引擎内；
// PDF 渲染与编号规则由外部签发方负责。
// swagger:model Certificate
type Certificate struct {
	UUIDBase
	UserID       uint      `gorm:"index:idx_user_course_cert,unique;type:bigint unsigned" json:"userId"`
	CourseID     uint      `gorm:"index:idx_user_course_cert,unique;type:bigint unsigned" json:"courseId"`
	SerialNumber string    `gorm:"size:64;unique" json:"serialNumber"`
	FinalScore   float64   `json:"finalScore"`
	IssuedAt     time.Time `json:"issuedAt"`
	URL          string    `gorm:"size:512" json:"url"`
}

func (Certificate) TableName() string {
	return "certificates"
}
