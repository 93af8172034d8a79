package service

import (
	"time"

	"github.com/Brij5/mocktestbuddy-sub001/internal/model"
)

// 知识点准确率达到该阈值判定为强项，否则为弱项
const strengthThresholdPercent = 70

// BuildTopicPerformance 按知识点聚合已作答的题目并分类强弱项。
// 一题未答的知识点没有可分类的依据，直接排除。
func BuildTopicPerformance(snapshot []model.QuestionSnapshot, answers []model.AnswerRecord) []model.TopicPerformance {
	answerByQuestion := make(map[string]*model.AnswerRecord, len(answers))
	for i := range answers {
		answerByQuestion[answers[i].QuestionID] = &answers[i]
	}

	type topicAgg struct {
		answered     int
		correct      int
		lastActivity time.Time
	}

	aggs := make(map[string]*topicAgg)
	var order []string

	for _, q := range snapshot {
		rec, ok := answerByQuestion[q.QuestionID]
		if !ok || rec.SelectedAnswer == nil {
			continue
		}

		agg, ok := aggs[q.Topic]
		if !ok {
			agg = &topicAgg{}
			aggs[q.Topic] = agg
			order = append(order, q.Topic)
		}

		agg.answered++
		if *rec.SelectedAnswer == q.CorrectAnswer {
			agg.correct++
		}
		if rec.AnsweredAt != nil && rec.AnsweredAt.After(agg.lastActivity) {
			agg.lastActivity = *rec.AnsweredAt
		}
	}

	result := make([]model.TopicPerformance, 0, len(aggs))
	for _, topic := range order {
		agg := aggs[topic]
		accuracy := roundPercent(float64(agg.correct) / float64(agg.answered))

		classification := model.ClassificationWeakness
		if accuracy >= strengthThresholdPercent {
			classification = model.ClassificationStrength
		}

		result = append(result, model.TopicPerformance{
			Topic:           topic,
			AccuracyPercent: accuracy,
			Classification:  classification,
			LastActivityAt:  agg.lastActivity,
		})
	}

	return result
}
