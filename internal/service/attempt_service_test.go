package service

import (
	"sync"
	"testing"
	"time"

	"github.com/Brij5/mocktestbuddy-sub001/internal/model"
	"github.com/Brij5/mocktestbuddy-sub001/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryAttemptStore 按表结构组织的内存实现，行为对齐 AttemptRepository
type memoryAttemptStore struct {
	mu        sync.Mutex
	attempts  map[string]*model.ExamAttempt
	snapshots map[string][]model.QuestionSnapshot
	answers   map[string][]model.AnswerRecord
	scores    map[string]*model.AttemptScore
	topics    map[string][]model.TopicPerformance
}

func newMemoryAttemptStore() *memoryAttemptStore {
	return &memoryAttemptStore{
		attempts:  make(map[string]*model.ExamAttempt),
		snapshots: make(map[string][]model.QuestionSnapshot),
		answers:   make(map[string][]model.AnswerRecord),
		scores:    make(map[string]*model.AttemptScore),
		topics:    make(map[string][]model.TopicPerformance),
	}
}

func (m *memoryAttemptStore) CreateWithLedger(attempt *model.ExamAttempt, snapshot []model.QuestionSnapshot, answers []model.AnswerRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	attempt.ID = model.GenerateUUID()
	stored := *attempt
	m.attempts[attempt.ID] = &stored

	for i := range snapshot {
		snapshot[i].AttemptID = attempt.ID
	}
	for i := range answers {
		answers[i].AttemptID = attempt.ID
	}
	m.snapshots[attempt.ID] = append([]model.QuestionSnapshot(nil), snapshot...)
	m.answers[attempt.ID] = append([]model.AnswerRecord(nil), answers...)
	return nil
}

func (m *memoryAttemptStore) FindByID(attemptID string) (*model.ExamAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.attempts[attemptID]
	if !ok {
		return nil, util.ErrAttemptNotFound
	}

	attempt := *stored
	attempt.Snapshot = append([]model.QuestionSnapshot(nil), m.snapshots[attemptID]...)
	attempt.Answers = append([]model.AnswerRecord(nil), m.answers[attemptID]...)
	if score, ok := m.scores[attemptID]; ok {
		copied := *score
		attempt.Score = &copied
	}
	attempt.Topics = append([]model.TopicPerformance(nil), m.topics[attemptID]...)
	return &attempt, nil
}

func (m *memoryAttemptStore) FindActive(userID uint, examID string) (*model.ExamAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, a := range m.attempts {
		if a.UserID == userID && a.ExamID == examID && a.Status == model.AttemptInProgress {
			attempt := *a
			return &attempt, nil
		}
	}
	return nil, nil
}

func (m *memoryAttemptStore) ListByUser(userID uint) ([]model.ExamAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []model.ExamAttempt
	for _, a := range m.attempts {
		if a.UserID == userID {
			result = append(result, *a)
		}
	}
	return result, nil
}

func (m *memoryAttemptStore) SaveAnswer(rec *model.AnswerRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	records := m.answers[rec.AttemptID]
	for i := range records {
		if records[i].QuestionID == rec.QuestionID {
			records[i] = *rec
			return nil
		}
	}
	return util.ErrUnknownQuestion
}

func (m *memoryAttemptStore) Complete(attempt *model.ExamAttempt, score *model.AttemptScore, topics []model.TopicPerformance) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *attempt
	stored.Snapshot = nil
	stored.Answers = nil
	m.attempts[attempt.ID] = &stored

	score.AttemptID = attempt.ID
	copied := *score
	m.scores[attempt.ID] = &copied
	m.topics[attempt.ID] = append([]model.TopicPerformance(nil), topics...)
	return nil
}

func (m *memoryAttemptStore) FindOverdueIDs(now time.Time) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var ids []string
	for id, a := range m.attempts {
		if a.Status == model.AttemptInProgress && !a.DeadlineAt.After(now) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

type memoryCatalog struct {
	exams map[string]*model.Exam
}

func (m *memoryCatalog) ResolveExam(examID string) (*model.Exam, error) {
	exam, ok := m.exams[examID]
	if !ok {
		return nil, util.ErrExamNotFound
	}
	if !exam.IsPublished {
		return nil, util.ErrExamNotPublished
	}
	return exam, nil
}

func sampleExam(questionCount int) *model.Exam {
	exam := &model.Exam{
		Title:           "摸底测试",
		DurationSeconds: 1800,
		NegativeMarking: 1,
		IsPublished:     true,
	}
	exam.ID = model.GenerateUUID()
	for i := 0; i < questionCount; i++ {
		q := model.ExamQuestion{
			ExamID:        exam.ID,
			Topic:         "Algebra",
			CorrectAnswer: "A",
			Marks:         10,
			Order:         i + 1,
		}
		q.ID = model.GenerateUUID()
		exam.Questions = append(exam.Questions, q)
		exam.TotalMarks += q.Marks
	}
	return exam
}

type testEngine struct {
	svc   *AttemptService
	store *memoryAttemptStore
	exam  *model.Exam
	now   time.Time
	mu    sync.Mutex
}

func newTestEngine(t *testing.T, questionCount int) *testEngine {
	t.Helper()

	exam := sampleExam(questionCount)
	store := newMemoryAttemptStore()
	catalog := &memoryCatalog{exams: map[string]*model.Exam{exam.ID: exam}}

	e := &testEngine{
		svc:   NewAttemptService(store, catalog),
		store: store,
		exam:  exam,
		now:   time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	e.svc.Guard.Now = func() time.Time {
		e.mu.Lock()
		defer e.mu.Unlock()
		return e.now
	}
	return e
}

func (e *testEngine) advance(d time.Duration) {
	e.mu.Lock()
	e.now = e.now.Add(d)
	e.mu.Unlock()
}

func TestAttemptStart(t *testing.T) {
	e := newTestEngine(t, 5)

	attempt, err := e.svc.Start(1, e.exam.ID)
	require.NoError(t, err)

	assert.Equal(t, model.AttemptInProgress, attempt.Status)
	assert.Equal(t, 5, attempt.TotalQuestions)
	assert.Equal(t, 50.0, attempt.TotalMarks)
	assert.Equal(t, attempt.StartedAt.Add(30*time.Minute), attempt.DeadlineAt)
	assert.Len(t, attempt.Snapshot, 5)
	assert.Len(t, attempt.Answers, 5)
	for _, rec := range attempt.Answers {
		assert.Nil(t, rec.SelectedAnswer)
		assert.Zero(t, rec.RevisionCount)
	}

	// 同一考试下不允许第二个进行中的 attempt
	_, err = e.svc.Start(1, e.exam.ID)
	assert.ErrorIs(t, err, util.ErrAlreadyActiveAttempt)

	// 其他用户不受影响
	_, err = e.svc.Start(2, e.exam.ID)
	assert.NoError(t, err)
}

func TestAttemptStartUnknownExam(t *testing.T) {
	e := newTestEngine(t, 3)

	_, err := e.svc.Start(1, "missing")
	assert.ErrorIs(t, err, util.ErrExamNotFound)
}

func TestSubmitAnswer(t *testing.T) {
	e := newTestEngine(t, 3)
	attempt, err := e.svc.Start(1, e.exam.ID)
	require.NoError(t, err)
	questionID := attempt.Snapshot[0].QuestionID

	rec, err := e.svc.SubmitAnswer(attempt.ID, 1, questionID, "B")
	require.NoError(t, err)
	assert.Equal(t, "B", *rec.SelectedAnswer)
	assert.Equal(t, 1, rec.RevisionCount)
	require.NotNil(t, rec.AnsweredAt)

	// 后写覆盖先写，修订计数递增
	e.advance(time.Minute)
	rec, err = e.svc.SubmitAnswer(attempt.ID, 1, questionID, "A")
	require.NoError(t, err)
	assert.Equal(t, "A", *rec.SelectedAnswer)
	assert.Equal(t, 2, rec.RevisionCount)

	t.Run("题目不属于本次作答", func(t *testing.T) {
		_, err := e.svc.SubmitAnswer(attempt.ID, 1, "unrelated", "A")
		assert.ErrorIs(t, err, util.ErrUnknownQuestion)
	})

	t.Run("非归属人禁止访问", func(t *testing.T) {
		_, err := e.svc.SubmitAnswer(attempt.ID, 42, questionID, "A")
		assert.ErrorIs(t, err, util.ErrPermissionDenied)
	})
}

func TestMarkForReview(t *testing.T) {
	e := newTestEngine(t, 2)
	attempt, err := e.svc.Start(1, e.exam.ID)
	require.NoError(t, err)
	questionID := attempt.Snapshot[0].QuestionID

	_, err = e.svc.SubmitAnswer(attempt.ID, 1, questionID, "A")
	require.NoError(t, err)

	// 标记不影响已选答案和修订计数
	rec, err := e.svc.MarkForReview(attempt.ID, 1, questionID, true)
	require.NoError(t, err)
	assert.True(t, rec.MarkedForReview)
	assert.Equal(t, "A", *rec.SelectedAnswer)
	assert.Equal(t, 1, rec.RevisionCount)

	rec, err = e.svc.MarkForReview(attempt.ID, 1, questionID, false)
	require.NoError(t, err)
	assert.False(t, rec.MarkedForReview)
}

func TestCompleteByUser(t *testing.T) {
	e := newTestEngine(t, 4)
	attempt, err := e.svc.Start(1, e.exam.ID)
	require.NoError(t, err)

	for _, q := range attempt.Snapshot[:3] {
		_, err := e.svc.SubmitAnswer(attempt.ID, 1, q.QuestionID, "A")
		require.NoError(t, err)
	}
	_, err = e.svc.SubmitAnswer(attempt.ID, 1, attempt.Snapshot[3].QuestionID, "B")
	require.NoError(t, err)

	e.advance(10 * time.Minute)
	completed, err := e.svc.Complete(attempt.ID, 1, model.CompleteReasonUser)
	require.NoError(t, err)

	assert.Equal(t, model.AttemptCompleted, completed.Status)
	assert.Equal(t, model.CompleteReasonUser, completed.CompletedReason)
	require.NotNil(t, completed.Score)
	// 3*10 - 1*1
	assert.Equal(t, 29.0, completed.Score.MarksObtained)
	assert.Equal(t, 75, completed.Score.AccuracyPercent)
	assert.Equal(t, 600, completed.Score.TimeTakenSeconds)
	require.Len(t, completed.Topics, 1)
	assert.Equal(t, model.ClassificationStrength, completed.Topics[0].Classification)

	// 交卷后拒绝写入
	_, err = e.svc.SubmitAnswer(attempt.ID, 1, attempt.Snapshot[0].QuestionID, "A")
	assert.ErrorIs(t, err, util.ErrAttemptNotActive)
}

func TestCompleteIdempotent(t *testing.T) {
	e := newTestEngine(t, 2)
	attempt, err := e.svc.Start(1, e.exam.ID)
	require.NoError(t, err)

	_, err = e.svc.SubmitAnswer(attempt.ID, 1, attempt.Snapshot[0].QuestionID, "A")
	require.NoError(t, err)

	first, err := e.svc.Complete(attempt.ID, 1, model.CompleteReasonUser)
	require.NoError(t, err)

	// 重试交卷幂等返回已有成绩，不重算
	e.advance(time.Hour)
	second, err := e.svc.Complete(attempt.ID, 1, model.CompleteReasonUser)
	require.NoError(t, err)
	assert.Equal(t, first.Score.MarksObtained, second.Score.MarksObtained)
	assert.Equal(t, first.Score.TimeTakenSeconds, second.Score.TimeTakenSeconds)
	assert.Equal(t, first.CompletedAt.Unix(), second.CompletedAt.Unix())
}

func TestExpiryOnTouch(t *testing.T) {
	e := newTestEngine(t, 2)
	attempt, err := e.svc.Start(1, e.exam.ID)
	require.NoError(t, err)

	_, err = e.svc.SubmitAnswer(attempt.ID, 1, attempt.Snapshot[0].QuestionID, "A")
	require.NoError(t, err)

	// 截止之后的写请求触发自动交卷
	e.advance(45 * time.Minute)
	_, err = e.svc.SubmitAnswer(attempt.ID, 1, attempt.Snapshot[1].QuestionID, "A")
	assert.ErrorIs(t, err, util.ErrAttemptExpired)

	expired, err := e.svc.Get(attempt.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, model.AttemptCompleted, expired.Status)
	assert.Equal(t, model.CompleteReasonExpiry, expired.CompletedReason)
	// 完成时间钳制到截止时间，用时不超过考试时长
	assert.Equal(t, attempt.DeadlineAt, *expired.CompletedAt)
	require.NotNil(t, expired.Score)
	assert.Equal(t, 1800, expired.Score.TimeTakenSeconds)
	// 截止前的作答保留
	assert.Equal(t, 10.0, expired.Score.MarksObtained)
}

func TestCompleteAfterDeadlineClampsTime(t *testing.T) {
	e := newTestEngine(t, 1)
	attempt, err := e.svc.Start(1, e.exam.ID)
	require.NoError(t, err)

	// 用户在截止后才主动交卷，按超时处理
	e.advance(2 * time.Hour)
	completed, err := e.svc.Complete(attempt.ID, 1, model.CompleteReasonUser)
	require.NoError(t, err)

	assert.Equal(t, model.CompleteReasonExpiry, completed.CompletedReason)
	assert.Equal(t, attempt.DeadlineAt, *completed.CompletedAt)
	assert.Equal(t, 1800, completed.Score.TimeTakenSeconds)
}

func TestExpireOverdueSweep(t *testing.T) {
	e := newTestEngine(t, 2)
	attempt, err := e.svc.Start(1, e.exam.ID)
	require.NoError(t, err)

	e.advance(31 * time.Minute)
	require.NoError(t, e.svc.ExpireOverdue())

	expired, err := e.svc.Get(attempt.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, model.AttemptCompleted, expired.Status)
	assert.Equal(t, model.CompleteReasonExpiry, expired.CompletedReason)

	// 再次清扫不报错也不重复处理
	require.NoError(t, e.svc.ExpireOverdue())
}

func TestGetOwnership(t *testing.T) {
	e := newTestEngine(t, 1)
	attempt, err := e.svc.Start(1, e.exam.ID)
	require.NoError(t, err)

	_, err = e.svc.Get(attempt.ID, 99)
	assert.ErrorIs(t, err, util.ErrPermissionDenied)

	_, err = e.svc.Get("missing", 1)
	assert.ErrorIs(t, err, util.ErrAttemptNotFound)
}

func TestConcurrentSubmitsSerialized(t *testing.T) {
	e := newTestEngine(t, 1)
	attempt, err := e.svc.Start(1, e.exam.ID)
	require.NoError(t, err)
	questionID := attempt.Snapshot[0].QuestionID

	var wg sync.WaitGroup
	for _, answer := range []string{"A", "B"} {
		wg.Add(1)
		go func(answer string) {
			defer wg.Done()
			_, err := e.svc.SubmitAnswer(attempt.ID, 1, questionID, answer)
			assert.NoError(t, err)
		}(answer)
	}
	wg.Wait()

	// 两次写都被计入修订，最终答案是其中之一
	current, err := e.svc.Get(attempt.ID, 1)
	require.NoError(t, err)
	rec := current.Answers[0]
	assert.Equal(t, 2, rec.RevisionCount)
	require.NotNil(t, rec.SelectedAnswer)
	assert.Contains(t, []string{"A", "B"}, *rec.SelectedAnswer)
}
