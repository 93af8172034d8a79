package service

import (
	"testing"
	"time"

	"github.com/Brij5/mocktestbuddy-sub001/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func topicQuestion(topic, correct string) model.QuestionSnapshot {
	return model.QuestionSnapshot{
		QuestionID:    model.GenerateUUID(),
		Topic:         topic,
		Marks:         10,
		CorrectAnswer: correct,
	}
}

func TestBuildTopicPerformance(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("强弱项分类", func(t *testing.T) {
		snapshot := []model.QuestionSnapshot{
			topicQuestion("Algebra", "A"),
			topicQuestion("Algebra", "A"),
			topicQuestion("Algebra", "A"),
			topicQuestion("Geometry", "A"),
			topicQuestion("Geometry", "A"),
		}
		answers := make([]model.AnswerRecord, len(snapshot))
		for i := range snapshot {
			at := base.Add(time.Duration(i) * time.Minute)
			answers[i] = model.AnswerRecord{
				QuestionID: snapshot[i].QuestionID,
				AnsweredAt: &at,
			}
		}
		// Algebra 3/3，Geometry 1/2
		answers[0].SelectedAnswer = strPtr("A")
		answers[1].SelectedAnswer = strPtr("A")
		answers[2].SelectedAnswer = strPtr("A")
		answers[3].SelectedAnswer = strPtr("A")
		answers[4].SelectedAnswer = strPtr("B")

		topics := BuildTopicPerformance(snapshot, answers)
		require.Len(t, topics, 2)

		algebra := topics[0]
		assert.Equal(t, "Algebra", algebra.Topic)
		assert.Equal(t, 100, algebra.AccuracyPercent)
		assert.Equal(t, model.ClassificationStrength, algebra.Classification)
		assert.Equal(t, base.Add(2*time.Minute), algebra.LastActivityAt)

		geometry := topics[1]
		assert.Equal(t, "Geometry", geometry.Topic)
		assert.Equal(t, 50, geometry.AccuracyPercent)
		assert.Equal(t, model.ClassificationWeakness, geometry.Classification)
		assert.Equal(t, base.Add(4*time.Minute), geometry.LastActivityAt)
	})

	t.Run("阈值边界恰好为强项", func(t *testing.T) {
		snapshot := []model.QuestionSnapshot{
			topicQuestion("Stats", "A"),
			topicQuestion("Stats", "A"),
			topicQuestion("Stats", "A"),
			topicQuestion("Stats", "A"),
			topicQuestion("Stats", "A"),
			topicQuestion("Stats", "A"),
			topicQuestion("Stats", "A"),
			topicQuestion("Stats", "A"),
			topicQuestion("Stats", "A"),
			topicQuestion("Stats", "A"),
		}
		answers := make([]model.AnswerRecord, len(snapshot))
		for i := range snapshot {
			at := base
			answers[i] = model.AnswerRecord{QuestionID: snapshot[i].QuestionID, AnsweredAt: &at}
			if i < 7 {
				answers[i].SelectedAnswer = strPtr("A")
			} else {
				answers[i].SelectedAnswer = strPtr("B")
			}
		}

		topics := BuildTopicPerformance(snapshot, answers)
		require.Len(t, topics, 1)
		assert.Equal(t, 70, topics[0].AccuracyPercent)
		assert.Equal(t, model.ClassificationStrength, topics[0].Classification)
	})

	t.Run("未作答的知识点被排除", func(t *testing.T) {
		snapshot := []model.QuestionSnapshot{
			topicQuestion("Algebra", "A"),
			topicQuestion("Calculus", "A"),
		}
		at := base
		answers := []model.AnswerRecord{
			{QuestionID: snapshot[0].QuestionID, SelectedAnswer: strPtr("A"), AnsweredAt: &at},
			{QuestionID: snapshot[1].QuestionID}, // Calculus 未答
		}

		topics := BuildTopicPerformance(snapshot, answers)
		require.Len(t, topics, 1)
		assert.Equal(t, "Algebra", topics[0].Topic)
	})

	t.Run("全部未答返回空", func(t *testing.T) {
		snapshot := []model.QuestionSnapshot{topicQuestion("Algebra", "A")}
		answers := []model.AnswerRecord{{QuestionID: snapshot[0].QuestionID}}

		topics := BuildTopicPerformance(snapshot, answers)
		assert.Empty(t, topics)
	})
}
