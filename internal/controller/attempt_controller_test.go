package controller

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Brij5/mocktestbuddy-sub001/internal/model"
	"github.com/Brij5/mocktestbuddy-sub001/internal/service"
	"github.com/Brij5/mocktestbuddy-sub001/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAttemptStore struct {
	mu       sync.Mutex
	attempts map[string]*model.ExamAttempt
	answers  map[string][]model.AnswerRecord
	scores   map[string]*model.AttemptScore
	topics   map[string][]model.TopicPerformance
}

func newStubAttemptStore() *stubAttemptStore {
	return &stubAttemptStore{
		attempts: make(map[string]*model.ExamAttempt),
		answers:  make(map[string][]model.AnswerRecord),
		scores:   make(map[string]*model.AttemptScore),
		topics:   make(map[string][]model.TopicPerformance),
	}
}

func (s *stubAttemptStore) CreateWithLedger(attempt *model.ExamAttempt, snapshot []model.QuestionSnapshot, answers []model.AnswerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	attempt.ID = model.GenerateUUID()
	for i := range answers {
		answers[i].AttemptID = attempt.ID
	}
	stored := *attempt
	stored.Snapshot = append([]model.QuestionSnapshot(nil), snapshot...)
	s.attempts[attempt.ID] = &stored
	s.answers[attempt.ID] = append([]model.AnswerRecord(nil), answers...)
	return nil
}

func (s *stubAttemptStore) FindByID(attemptID string) (*model.ExamAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.attempts[attemptID]
	if !ok {
		return nil, util.ErrAttemptNotFound
	}
	attempt := *stored
	attempt.Answers = append([]model.AnswerRecord(nil), s.answers[attemptID]...)
	if score, ok := s.scores[attemptID]; ok {
		copied := *score
		attempt.Score = &copied
	}
	attempt.Topics = append([]model.TopicPerformance(nil), s.topics[attemptID]...)
	return &attempt, nil
}

func (s *stubAttemptStore) FindActive(userID uint, examID string) (*model.ExamAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.attempts {
		if a.UserID == userID && a.ExamID == examID && a.Status == model.AttemptInProgress {
			attempt := *a
			return &attempt, nil
		}
	}
	return nil, nil
}

func (s *stubAttemptStore) ListByUser(userID uint) ([]model.ExamAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []model.ExamAttempt
	for _, a := range s.attempts {
		if a.UserID == userID {
			result = append(result, *a)
		}
	}
	return result, nil
}

func (s *stubAttemptStore) SaveAnswer(rec *model.AnswerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.answers[rec.AttemptID]
	for i := range records {
		if records[i].QuestionID == rec.QuestionID {
			records[i] = *rec
			return nil
		}
	}
	return util.ErrUnknownQuestion
}

func (s *stubAttemptStore) Complete(attempt *model.ExamAttempt, score *model.AttemptScore, topics []model.TopicPerformance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *attempt
	stored.Answers = nil
	s.attempts[attempt.ID] = &stored
	score.AttemptID = attempt.ID
	copied := *score
	s.scores[attempt.ID] = &copied
	s.topics[attempt.ID] = append([]model.TopicPerformance(nil), topics...)
	return nil
}

func (s *stubAttemptStore) FindOverdueIDs(now time.Time) ([]string, error) {
	return nil, nil
}

type stubCatalog struct {
	exam *model.Exam
}

func (s *stubCatalog) ResolveExam(examID string) (*model.Exam, error) {
	if s.exam == nil || s.exam.ID != examID {
		return nil, util.ErrExamNotFound
	}
	return s.exam, nil
}

func fakeAuth(userID uint) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user", &util.Claims{UserID: userID, Role: model.Student})
		c.Next()
	}
}

func setupAttemptRouter(t *testing.T, userID uint) (*gin.Engine, *model.Exam, *service.AttemptService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	exam := &model.Exam{Title: "摸底测试", DurationSeconds: 1800, IsPublished: true}
	exam.ID = model.GenerateUUID()
	for i := 0; i < 3; i++ {
		q := model.ExamQuestion{ExamID: exam.ID, Topic: "Algebra", CorrectAnswer: "A", Marks: 10, Order: i + 1}
		q.ID = fmt.Sprintf("q-%d", i+1)
		exam.Questions = append(exam.Questions, q)
	}

	svc := service.NewAttemptService(newStubAttemptStore(), &stubCatalog{exam: exam})
	ctrl := NewAttemptController(svc)

	router := gin.New()
	api := router.Group("/api", fakeAuth(userID))
	api.POST("/exams/:id/attempts/start", ctrl.Start)
	api.GET("/attempts", ctrl.List)
	api.GET("/attempts/:id", ctrl.Get)
	api.POST("/attempts/:id/answers", ctrl.SubmitAnswer)
	api.POST("/attempts/:id/review", ctrl.MarkForReview)
	api.POST("/attempts/:id/complete", ctrl.Complete)
	return router, exam, svc
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var resp struct {
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Data
}

func TestAttemptEndpoints(t *testing.T) {
	router, exam, _ := setupAttemptRouter(t, 1)

	// 开考
	w := doJSON(t, router, http.MethodPost, "/api/exams/"+exam.ID+"/attempts/start", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	data := decodeData(t, w)
	attemptID := data["id"].(string)
	assert.Equal(t, "in_progress", data["status"])
	assert.InDelta(t, 1800, data["remainingSeconds"].(float64), 2)
	assert.Len(t, data["questions"].([]interface{}), 3)

	// 重复开考冲突
	w = doJSON(t, router, http.MethodPost, "/api/exams/"+exam.ID+"/attempts/start", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	// 作答
	w = doJSON(t, router, http.MethodPost, "/api/attempts/"+attemptID+"/answers",
		SubmitAnswerRequest{QuestionID: "q-1", Answer: "A"})
	require.Equal(t, http.StatusOK, w.Code)
	data = decodeData(t, w)
	assert.Equal(t, float64(1), data["revisionCount"])

	// 未知题目
	w = doJSON(t, router, http.MethodPost, "/api/attempts/"+attemptID+"/answers",
		SubmitAnswerRequest{QuestionID: "nope", Answer: "A"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	// 标记待查
	marked := true
	w = doJSON(t, router, http.MethodPost, "/api/attempts/"+attemptID+"/review",
		MarkReviewRequest{QuestionID: "q-1", MarkedForReview: &marked})
	require.Equal(t, http.StatusOK, w.Code)

	// 交卷
	w = doJSON(t, router, http.MethodPost, "/api/attempts/"+attemptID+"/complete", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data = decodeData(t, w)
	assert.Equal(t, "completed", data["status"])
	assert.Equal(t, float64(0), data["remainingSeconds"])
	score := data["score"].(map[string]interface{})
	assert.Equal(t, float64(10), score["marksObtained"])

	// 幂等重试
	w = doJSON(t, router, http.MethodPost, "/api/attempts/"+attemptID+"/complete", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// 交卷后写入被拒
	w = doJSON(t, router, http.MethodPost, "/api/attempts/"+attemptID+"/answers",
		SubmitAnswerRequest{QuestionID: "q-1", Answer: "B"})
	assert.Equal(t, http.StatusConflict, w.Code)

	// 列表
	w = doJSON(t, router, http.MethodGet, "/api/attempts", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAttemptNotFoundAndForbidden(t *testing.T) {
	router, exam, svc := setupAttemptRouter(t, 1)

	w := doJSON(t, router, http.MethodGet, "/api/attempts/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// 他人的 attempt 返回 403
	other, err := svc.Start(2, exam.ID)
	require.NoError(t, err)
	w = doJSON(t, router, http.MethodGet, "/api/attempts/"+other.ID, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestStartUnknownExam(t *testing.T) {
	router, _, _ := setupAttemptRouter(t, 1)

	w := doJSON(t, router, http.MethodPost, "/api/exams/missing/attempts/start", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
