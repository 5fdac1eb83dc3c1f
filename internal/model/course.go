package model

// 课程目录模型：课程 → 主题 → 课时。评测引擎只做查询，不负责增删改。

// swagger:model Course
type Course struct {
	BaseModel
	Title        string `gorm:"size:255;not null" json:"title"`
	Description  string `gorm:"type:text" json:"description"`
	InstructorID uint   `gorm:"index;type:bigint unsigned" json:"instructorId"`
	IsPublished  bool   `gorm:"default:false" json:"isPublished"`
}

func (Course) TableName() string {
	return "courses"
}

// swagger:model Topic
type Topic struct {
	BaseModel
	CourseID    uint   `gorm:"index;type:bigint unsigned" json:"courseId"`
	Title       string `gorm:"size:255;not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	Order       int    `gorm:"default:0" json:"order"`
}

func (Topic) TableName() string {
	return "topics"
}

// swagger:model Lesson
type Lesson struct {
	BaseModel
	TopicID         uint   `gorm:"index;type:bigint unsigned" json:"topicId"`
	Title           string `gorm:"size:255;not null" json:"title"`
	VideoURL        string `gorm:"size:512" json:"videoUrl"`
	VideoObjectKey  string `gorm:"size:512" json:"-"` // 存储桶内的对象名（minio）
	DurationSeconds int    `gorm:"default:0" json:"durationSeconds"`
	Order           int    `gorm:"default:0" json:"order"`
}

func (Lesson) TableName() string {
	return "lessons"
}
