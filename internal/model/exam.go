package model

import "time"

// swagger:model Exam
type Exam struct {
	UUIDBase

	CreatorID       uint    `gorm:"index;type:bigint unsigned" json:"creatorId"`
	Title           string  `gorm:"size:255;not null" json:"title"`
	Description     string  `gorm:"type:text" json:"description"`
	DurationSeconds int     `gorm:"default:3600" json:"durationSeconds"`
	TotalMarks      float64 `gorm:"default:0" json:"totalMarks"`

	// 扣分策略：每答错一题扣 NegativeMarking 分，0 表示不倒扣
	NegativeMarking    float64 `gorm:"default:0" json:"negativeMarking"`
	AllowNegativeTotal bool    `gorm:"default:false" json:"allowNegativeTotal"`

	IsPublished bool       `gorm:"default:false" json:"isPublished"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`

	Questions []ExamQuestion `gorm:"foreignKey:ExamID" json:"questions,omitempty"`
}

func (Exam) TableName() string {
	return "exams"
}

// swagger:model ExamQuestion
type ExamQuestion struct {
	UUIDBase

	ExamID        string  `gorm:"index;type:varchar(36)" json:"examId"`
	Topic         string  `gorm:"size:100;index" json:"topic"`
	Content       string  `gorm:"type:text" json:"content"`
	Options       string  `gorm:"type:json" json:"options"` // 选项（JSON array）
	CorrectAnswer string  `gorm:"size:255" json:"correctAnswer"`
	Marks         float64 `gorm:"default:1" json:"marks"`
	Order         int     `gorm:"default:0" json:"order"`
	Explanation   string  `gorm:"type:text" json:"explanation,omitempty"`
}

func (ExamQuestion) TableName() string {
	return "exam_questions"
}
