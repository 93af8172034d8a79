package service

import (
	"fmt"
	"time"

	"github.com/Brij5/mocktestbuddy-sub001/internal/model"
	"github.com/Brij5/mocktestbuddy-sub001/internal/util"
	"github.com/Brij5/mocktestbuddy-sub001/pkg/logger"
	"github.com/Brij5/mocktestbuddy-sub001/pkg/monitoring"

	"go.uber.org/zap"
)

// AttemptStore attempt 的持久化接口，由 repository.AttemptRepository 实现
type AttemptStore interface {
	CreateWithLedger(attempt *model.ExamAttempt, snapshot []model.QuestionSnapshot, answers []model.AnswerRecord) error
	FindByID(attemptID string) (*model.ExamAttempt, error)
	FindActive(userID uint, examID string) (*model.ExamAttempt, error)
	ListByUser(userID uint) ([]model.ExamAttempt, error)
	SaveAnswer(rec *model.AnswerRecord) error
	Complete(attempt *model.ExamAttempt, score *model.AttemptScore, topics []model.TopicPerformance) error
	FindOverdueIDs(now time.Time) ([]string, error)
}

// ExamCatalog 只读考卷目录，由 ExamService 实现
type ExamCatalog interface {
	ResolveExam(examID string) (*model.Exam, error)
}

// AttemptService attempt 生命周期状态机：开考、作答、标记待查、交卷、查询。
// 同一 attempt 的写操作通过按 id 的互斥锁串行化，不同 attempt 互不阻塞。
type AttemptService struct {
	Attempts AttemptStore
	Catalog  ExamCatalog
	Guard    *TimeGuard

	locks *util.KeyedMutex
}

func NewAttemptService(attempts AttemptStore, catalog ExamCatalog) *AttemptService {
	return &AttemptService{
		Attempts: attempts,
		Catalog:  catalog,
		Guard:    NewTimeGuard(),
		locks:    util.NewKeyedMutex(),
	}
}

// Start 开始一次作答：快照考卷内容与评分策略，初始化全量答题记录。
// 同一用户在同一考试下同时只允许一个进行中的 attempt。
func (s *AttemptService) Start(userID uint, examID string) (*model.ExamAttempt, error) {
	// 防止同一用户并发开考产生两个进行中的 attempt
	startKey := fmt.Sprintf("start:%d:%s", userID, examID)
	s.locks.Lock(startKey)
	defer s.locks.Unlock(startKey)

	existing, err := s.Attempts.FindActive(userID, examID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, util.ErrAlreadyActiveAttempt
	}

	exam, err := s.Catalog.ResolveExam(examID)
	if err != nil {
		return nil, err
	}
	if len(exam.Questions) == 0 {
		return nil, util.ErrExamHasNoQuestions
	}

	now := s.Guard.Now()

	var totalMarks float64
	snapshot := make([]model.QuestionSnapshot, len(exam.Questions))
	answers := make([]model.AnswerRecord, len(exam.Questions))
	for i, q := range exam.Questions {
		totalMarks += q.Marks
		snapshot[i] = model.QuestionSnapshot{
			QuestionID:    q.ID,
			Topic:         q.Topic,
			Marks:         q.Marks,
			CorrectAnswer: q.CorrectAnswer,
			Order:         q.Order,
		}
		answers[i] = model.AnswerRecord{
			QuestionID: q.ID,
		}
	}

	attempt := &model.ExamAttempt{
		UserID:             userID,
		ExamID:             examID,
		Status:             model.AttemptInProgress,
		StartedAt:          now,
		DeadlineAt:         now.Add(time.Duration(exam.DurationSeconds) * time.Second),
		TotalQuestions:     len(exam.Questions),
		TotalMarks:         totalMarks,
		DurationSeconds:    exam.DurationSeconds,
		NegativeMarking:    exam.NegativeMarking,
		AllowNegativeTotal: exam.AllowNegativeTotal,
	}

	if err := s.Attempts.CreateWithLedger(attempt, snapshot, answers); err != nil {
		return nil, err
	}

	monitoring.AttemptsStarted.Inc()
	logger.Log.Info("attempt started",
		zap.String("attemptId", attempt.ID),
		zap.Uint("userId", userID),
		zap.String("examId", examID))

	attempt.Snapshot = snapshot
	attempt.Answers = answers
	return attempt, nil
}

// SubmitAnswer 记录（或覆盖）一题的作答。后写覆盖先写，revisionCount 递增留痕。
func (s *AttemptService) SubmitAnswer(attemptID string, callerID uint, questionID string, answer string) (*model.AnswerRecord, error) {
	s.locks.Lock(attemptID)
	defer s.locks.Unlock(attemptID)

	attempt, err := s.loadOwned(attemptID, callerID)
	if err != nil {
		return nil, err
	}

	if err := s.ensureActive(attempt); err != nil {
		return nil, err
	}

	rec := findAnswer(attempt.Answers, questionID)
	if rec == nil {
		return nil, util.ErrUnknownQuestion
	}

	now := s.Guard.Now()
	rec.SelectedAnswer = &answer
	rec.AnsweredAt = &now
	rec.RevisionCount++

	if err := s.Attempts.SaveAnswer(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// MarkForReview 设置/清除标记待查，不影响已选答案和修订计数
func (s *AttemptService) MarkForReview(attemptID string, callerID uint, questionID string, flag bool) (*model.AnswerRecord, error) {
	s.locks.Lock(attemptID)
	defer s.locks.Unlock(attemptID)

	attempt, err := s.loadOwned(attemptID, callerID)
	if err != nil {
		return nil, err
	}

	if err := s.ensureActive(attempt); err != nil {
		return nil, err
	}

	rec := findAnswer(attempt.Answers, questionID)
	if rec == nil {
		return nil, util.ErrUnknownQuestion
	}

	rec.MarkedForReview = flag
	if err := s.Attempts.SaveAnswer(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Complete 交卷：冻结答题记录，计算成绩与知识点强弱项并落库。
// 对已完成的 attempt 幂等，直接返回已有成绩不重算。
func (s *AttemptService) Complete(attemptID string, callerID uint, reason string) (*model.ExamAttempt, error) {
	s.locks.Lock(attemptID)
	defer s.locks.Unlock(attemptID)

	attempt, err := s.loadOwned(attemptID, callerID)
	if err != nil {
		return nil, err
	}

	if attempt.Status == model.AttemptCompleted {
		return attempt, nil
	}

	// 用户主动交卷但已过截止时间，按超时处理以便钳制用时
	if reason == model.CompleteReasonUser && s.Guard.IsExpired(attempt) {
		reason = model.CompleteReasonExpiry
	}

	if err := s.completeLocked(attempt, reason); err != nil {
		return nil, err
	}
	return attempt, nil
}

// Get 只读查询，仅 attempt 归属人可见
func (s *AttemptService) Get(attemptID string, callerID uint) (*model.ExamAttempt, error) {
	return s.loadOwned(attemptID, callerID)
}

func (s *AttemptService) ListByUser(callerID uint) ([]model.ExamAttempt, error) {
	return s.Attempts.ListByUser(callerID)
}

// ExpireOverdue 后台清扫：将已过截止时间仍在进行中的 attempt 按超时交卷。
// 惰性过期已保证正确性，这里只是让无后续请求的 attempt 尽早出分。
func (s *AttemptService) ExpireOverdue() error {
	ids, err := s.Attempts.FindOverdueIDs(s.Guard.Now())
	if err != nil {
		return err
	}

	for _, id := range ids {
		if err := s.expireByID(id); err != nil {
			logger.Log.Error("failed to expire attempt", zap.String("attemptId", id), zap.Error(err))
		}
	}

	if len(ids) > 0 {
		logger.Log.Info("expired overdue attempts", zap.Int("count", len(ids)))
	}
	return nil
}

func (s *AttemptService) expireByID(attemptID string) error {
	s.locks.Lock(attemptID)
	defer s.locks.Unlock(attemptID)

	attempt, err := s.Attempts.FindByID(attemptID)
	if err != nil {
		return err
	}
	// 清扫与正常请求竞争时可能已被交卷
	if attempt.Status == model.AttemptCompleted {
		return nil
	}
	return s.completeLocked(attempt, model.CompleteReasonExpiry)
}

// loadOwned 加载 attempt 并校验归属
func (s *AttemptService) loadOwned(attemptID string, callerID uint) (*model.ExamAttempt, error) {
	attempt, err := s.Attempts.FindByID(attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.UserID != callerID {
		return nil, util.ErrPermissionDenied
	}
	return attempt, nil
}

// ensureActive 写操作前置检查：过期则先触发超时交卷，再拒绝本次写入。
// 由此保证任何写请求触达后 attempt 不会停留在已过期的进行中状态。
func (s *AttemptService) ensureActive(attempt *model.ExamAttempt) error {
	if attempt.Status == model.AttemptInProgress && s.Guard.IsExpired(attempt) {
		if err := s.completeLocked(attempt, model.CompleteReasonExpiry); err != nil {
			return err
		}
		return util.ErrAttemptExpired
	}
	if attempt.Status != model.AttemptInProgress {
		return util.ErrAttemptNotActive
	}
	return nil
}

// completeLocked 终态化 attempt，调用方必须已持有该 attempt 的锁
func (s *AttemptService) completeLocked(attempt *model.ExamAttempt, reason string) error {
	if len(attempt.Answers) != attempt.TotalQuestions {
		// 创建即全量初始化，数量不一致说明数据被破坏，不按业务错误处理
		return fmt.Errorf("attempt %s ledger corrupted: %d answer records, expected %d",
			attempt.ID, len(attempt.Answers), attempt.TotalQuestions)
	}

	completedAt := s.Guard.Now()
	// 超时交卷时用时钳制在考试时长以内
	if reason == model.CompleteReasonExpiry && completedAt.After(attempt.DeadlineAt) {
		completedAt = attempt.DeadlineAt
	}

	attempt.Status = model.AttemptCompleted
	attempt.CompletedAt = &completedAt
	attempt.CompletedReason = reason

	policy := ScoringPolicy{
		NegativeMarking:    attempt.NegativeMarking,
		AllowNegativeTotal: attempt.AllowNegativeTotal,
	}
	score := ScoreAttempt(attempt.Snapshot, attempt.Answers, policy, attempt.StartedAt, completedAt)
	topics := BuildTopicPerformance(attempt.Snapshot, attempt.Answers)

	if err := s.Attempts.Complete(attempt, &score, topics); err != nil {
		return err
	}

	monitoring.AttemptsCompleted.WithLabelValues(reason).Inc()
	logger.Log.Info("attempt completed",
		zap.String("attemptId", attempt.ID),
		zap.String("reason", reason),
		zap.Float64("marksObtained", score.MarksObtained))

	attempt.Score = &score
	attempt.Topics = topics
	return nil
}

func findAnswer(answers []model.AnswerRecord, questionID string) *model.AnswerRecord {
	for i := range answers {
		if answers[i].QuestionID == questionID {
			return &answers[i]
		}
	}
	return nil
}
