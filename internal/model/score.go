package model

import "time"

const (
	ClassificationStrength = "strength"
	ClassificationWeakness = "weakness"
)

// AttemptScore 交卷后一次性计算的成绩汇总
// swagger:model AttemptScore
type AttemptScore struct {
	BaseModel
	AttemptID         string  `gorm:"uniqueIndex;type:varchar(36)" json:"attemptId"`
	MarksObtained     float64 `json:"marksObtained"`
	TotalMarks        float64 `json:"totalMarks"`
	AccuracyPercent   int     `json:"accuracyPercent"`
	CompletionPercent int     `json:"completionPercent"`
	TimeTakenSeconds  int     `json:"timeTakenSeconds"`
	CorrectCount      int     `json:"correctCount"`
	IncorrectCount    int     `json:"incorrectCount"`
	UnansweredCount   int     `json:"unansweredCount"`
}

func (AttemptScore) TableName() string {
	return "attempt_scores"
}

// TopicPerformance 按知识点统计的强弱项，只包含至少答过一题的知识点
// swagger:model TopicPerformance
type TopicPerformance struct {
	BaseModel
	AttemptID       string    `gorm:"index;type:varchar(36)" json:"attemptId"`
	Topic           string    `gorm:"size:100" json:"topic"`
	AccuracyPercent int       `json:"accuracyPercent"`
	Classification  string    `gorm:"size:20" json:"classification"`
	LastActivityAt  time.Time `json:"lastActivityAt"`
}

func (TopicPerformance) TableName() string {
	return "attempt_topic_performances"
}
