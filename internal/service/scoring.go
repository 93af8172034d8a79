package service

import (
	"math"
	"time"

	"github.com/Brij5/mocktestbuddy-sub001/internal/model"
)

// ScoringPolicy 开考时从考试定义快照下来的评分策略
type ScoringPolicy struct {
	NegativeMarking    float64 // 每答错一题扣的分，0 表示不倒扣
	AllowNegativeTotal bool    // 总分是否允许为负
}

// ScoreAttempt 根据冻结后的答题记录和题目快照计算成绩汇总。
// 纯函数：相同输入必然得到相同结果，不访问任何外部状态。
func ScoreAttempt(snapshot []model.QuestionSnapshot, answers []model.AnswerRecord, policy ScoringPolicy, startedAt, completedAt time.Time) model.AttemptScore {
	answerByQuestion := make(map[string]*model.AnswerRecord, len(answers))
	for i := range answers {
		answerByQuestion[answers[i].QuestionID] = &answers[i]
	}

	var marksObtained, totalMarks float64
	var correctCount, incorrectCount, unansweredCount int

	for _, q := range snapshot {
		totalMarks += q.Marks

		rec, ok := answerByQuestion[q.QuestionID]
		if !ok || rec.SelectedAnswer == nil {
			unansweredCount++
			continue
		}

		if *rec.SelectedAnswer == q.CorrectAnswer {
			correctCount++
			marksObtained += q.Marks
		} else {
			incorrectCount++
			marksObtained -= policy.NegativeMarking
		}
	}

	if marksObtained < 0 && !policy.AllowNegativeTotal {
		marksObtained = 0
	}

	answeredCount := correctCount + incorrectCount

	// 一题未答时准确率定义为 0，避免除零
	accuracyPercent := 0
	if answeredCount > 0 {
		accuracyPercent = roundPercent(float64(correctCount) / float64(answeredCount))
	}

	completionPercent := 0
	if len(snapshot) > 0 {
		completionPercent = roundPercent(float64(answeredCount) / float64(len(snapshot)))
	}

	return model.AttemptScore{
		MarksObtained:     marksObtained,
		TotalMarks:        totalMarks,
		AccuracyPercent:   accuracyPercent,
		CompletionPercent: completionPercent,
		TimeTakenSeconds:  int(completedAt.Sub(startedAt).Seconds()),
		CorrectCount:      correctCount,
		IncorrectCount:    incorrectCount,
		UnansweredCount:   unansweredCount,
	}
}

func roundPercent(ratio float64) int {
	return int(math.Round(ratio * 100))
}
