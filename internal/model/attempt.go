package model

import "time"

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptCompleted  AttemptStatus = "completed"
)

const (
	CompleteReasonUser   = "user"
	CompleteReasonExpiry = "expiry"
)

// ExamAttempt 一次用户对一场考试的计时作答
// swagger:model ExamAttempt
type ExamAttempt struct {
	UUIDBase

	UserID uint          `gorm:"index;type:bigint unsigned" json:"userId"`
	ExamID string        `gorm:"index;type:varchar(36)" json:"examId"`
	Status AttemptStatus `gorm:"type:enum('in_progress','completed');default:'in_progress';index" json:"status"`

	StartedAt       time.Time  `json:"startedAt"`
	DeadlineAt      time.Time  `json:"deadlineAt"`
	CompletedAt     *time.Time `json:"completedAt,omitempty"`
	CompletedReason string     `gorm:"size:20" json:"completedReason,omitempty"`

	// 开考时快照的考试策略，之后考试内容的修改不影响本次作答
	TotalQuestions     int     `json:"totalQuestions"`
	TotalMarks         float64 `json:"totalMarks"`
	DurationSeconds    int     `json:"durationSeconds"`
	NegativeMarking    float64 `json:"negativeMarking"`
	AllowNegativeTotal bool    `json:"allowNegativeTotal"`

	Snapshot []QuestionSnapshot `gorm:"foreignKey:AttemptID" json:"-"`
	Answers  []AnswerRecord     `gorm:"foreignKey:AttemptID" json:"answers,omitempty"`
	Score    *AttemptScore      `gorm:"foreignKey:AttemptID" json:"score,omitempty"`
	Topics   []TopicPerformance `gorm:"foreignKey:AttemptID" json:"topics,omitempty"`
}

func (ExamAttempt) TableName() string {
	return "exam_attempts"
}

// QuestionSnapshot 开考时对题目的不可变拷贝
type QuestionSnapshot struct {
	BaseModel
	AttemptID     string  `gorm:"index;type:varchar(36)" json:"attemptId"`
	QuestionID    string  `gorm:"index;type:varchar(36)" json:"questionId"`
	Topic         string  `gorm:"size:100" json:"topic"`
	Marks         float64 `json:"marks"`
	CorrectAnswer string  `gorm:"size:255" json:"-"`
	Order         int     `gorm:"default:0" json:"order"`
}

func (QuestionSnapshot) TableName() string {
	return "attempt_question_snapshots"
}

// AnswerRecord 每题的作答状态，数量与快照题目数一致，创建后不增不删
type AnswerRecord struct {
	BaseModel
	AttemptID       string     `gorm:"index;type:varchar(36)" json:"attemptId"`
	QuestionID      string     `gorm:"index;type:varchar(36)" json:"questionId"`
	SelectedAnswer  *string    `gorm:"size:255" json:"selectedAnswer"`
	MarkedForReview bool       `gorm:"default:false" json:"markedForReview"`
	AnsweredAt      *time.Time `json:"answeredAt,omitempty"`
	RevisionCount   int        `gorm:"default:0" json:"revisionCount"`
}

func (AnswerRecord) TableName() string {
	return "attempt_answer_records"
}
