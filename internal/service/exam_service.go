package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Brij5/mocktestbuddy-sub001/internal/config"
	"github.com/Brij5/mocktestbuddy-sub001/internal/model"
	"github.com/Brij5/mocktestbuddy-sub001/internal/repository"
	"github.com/Brij5/mocktestbuddy-sub001/internal/util"
	"github.com/Brij5/mocktestbuddy-sub001/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const examCatalogKeyPrefix = "exam:catalog:"

// ExamService 考卷目录与教师端考卷管理。
// ResolveExam 结果在 Redis 中缓存，任何写操作使缓存失效。
type ExamService struct {
	ExamRepo *repository.ExamRepository
	Cfg      *config.Config
	Redis    *redis.Client
}

func NewExamService(examRepo *repository.ExamRepository, cfg *config.Config, rdb *redis.Client) *ExamService {
	return &ExamService{
		ExamRepo: examRepo,
		Cfg:      cfg,
		Redis:    rdb,
	}
}

// ResolveExam 解析一份可开考的考卷：必须存在、已发布、含题目。
// Redis 不可用时退回数据库，数据库不可用返回 ErrCatalogUnavailable。
func (s *ExamService) ResolveExam(examID string) (*model.Exam, error) {
	ctx := context.Background()
	cacheKey := examCatalogKeyPrefix + examID

	if s.Redis != nil {
		val, err := s.Redis.Get(ctx, cacheKey).Result()
		if err == nil {
			var exam model.Exam
			if err := json.Unmarshal([]byte(val), &exam); err == nil {
				return &exam, nil
			}
			// 缓存内容损坏则删掉重新回源
			s.Redis.Del(ctx, cacheKey)
		} else if err != redis.Nil {
			logger.Log.Warn("exam catalog cache read failed", zap.String("examId", examID), zap.Error(err))
		}
	}

	exam, err := s.ExamRepo.FindByID(examID)
	if err == gorm.ErrRecordNotFound {
		return nil, util.ErrExamNotFound
	}
	if err != nil {
		logger.Log.Error("exam catalog lookup failed", zap.String("examId", examID), zap.Error(err))
		return nil, util.ErrCatalogUnavailable
	}
	if !exam.IsPublished {
		return nil, util.ErrExamNotPublished
	}

	if s.Redis != nil {
		ttl := time.Duration(s.Cfg.Engine.CatalogCacheSeconds) * time.Second
		if data, err := json.Marshal(exam); err == nil {
			if err := s.Redis.Set(ctx, cacheKey, data, ttl).Err(); err != nil {
				logger.Log.Warn("exam catalog cache write failed", zap.String("examId", examID), zap.Error(err))
			}
		}
	}
	return exam, nil
}

func (s *ExamService) invalidateCatalog(examID string) {
	if s.Redis == nil {
		return
	}
	if err := s.Redis.Del(context.Background(), examCatalogKeyPrefix+examID).Err(); err != nil {
		logger.Log.Warn("exam catalog cache invalidation failed", zap.String("examId", examID), zap.Error(err))
	}
}

func (s *ExamService) CreateExam(creatorID uint, exam *model.Exam, questions []model.ExamQuestion) error {
	exam.CreatorID = creatorID
	exam.TotalMarks = sumMarks(questions)
	if exam.DurationSeconds <= 0 {
		exam.DurationSeconds = 3600
	}
	return s.ExamRepo.CreateWithQuestions(exam, questions)
}

// GetExam 教师端查询，携带含答案的完整题目
func (s *ExamService) GetExam(examID string) (*model.Exam, error) {
	exam, err := s.ExamRepo.FindByID(examID)
	if err == gorm.ErrRecordNotFound {
		return nil, util.ErrExamNotFound
	}
	return exam, err
}

func (s *ExamService) ListExams(page, limit int, publishedOnly bool) ([]model.Exam, int64, error) {
	return s.ExamRepo.List(page, limit, publishedOnly)
}

// UpdateExam 仅允许创建者修改
func (s *ExamService) UpdateExam(callerID uint, exam *model.Exam) error {
	existing, err := s.GetExam(exam.ID)
	if err != nil {
		return err
	}
	if existing.CreatorID != callerID {
		return util.ErrPermissionDenied
	}

	exam.CreatorID = existing.CreatorID
	if err := s.ExamRepo.Update(exam); err != nil {
		return err
	}
	s.invalidateCatalog(exam.ID)
	return nil
}

func (s *ExamService) DeleteExam(callerID uint, examID string) error {
	existing, err := s.GetExam(examID)
	if err != nil {
		return err
	}
	if existing.CreatorID != callerID {
		return util.ErrPermissionDenied
	}

	if err := s.ExamRepo.Delete(examID); err != nil {
		return err
	}
	s.invalidateCatalog(examID)
	return nil
}

// PublishExam 发布（或下架）考卷，发布前至少要有一道题
func (s *ExamService) PublishExam(callerID uint, examID string, published bool) error {
	existing, err := s.GetExam(examID)
	if err != nil {
		return err
	}
	if existing.CreatorID != callerID {
		return util.ErrPermissionDenied
	}
	if published && len(existing.Questions) == 0 {
		return util.ErrExamHasNoQuestions
	}

	if err := s.ExamRepo.SetPublished(examID, published); err != nil {
		return err
	}
	s.invalidateCatalog(examID)
	return nil
}

func (s *ExamService) AddQuestion(callerID uint, examID string, q *model.ExamQuestion) error {
	existing, err := s.GetExam(examID)
	if err != nil {
		return err
	}
	if existing.CreatorID != callerID {
		return util.ErrPermissionDenied
	}

	q.ExamID = examID
	if q.Order == 0 {
		q.Order = len(existing.Questions) + 1
	}
	if err := s.ExamRepo.CreateQuestion(q); err != nil {
		return err
	}
	if err := s.recalcTotalMarks(examID); err != nil {
		return err
	}
	s.invalidateCatalog(examID)
	return nil
}

func (s *ExamService) UpdateQuestion(callerID uint, questionID string, updated *model.ExamQuestion) error {
	q, err := s.ExamRepo.FindQuestionByID(questionID)
	if err == gorm.ErrRecordNotFound {
		return util.ErrUnknownQuestion
	}
	if err != nil {
		return err
	}

	exam, err := s.GetExam(q.ExamID)
	if err != nil {
		return err
	}
	if exam.CreatorID != callerID {
		return util.ErrPermissionDenied
	}

	updated.ID = q.ID
	updated.ExamID = q.ExamID
	if err := s.ExamRepo.UpdateQuestion(updated); err != nil {
		return err
	}
	if err := s.recalcTotalMarks(q.ExamID); err != nil {
		return err
	}
	s.invalidateCatalog(q.ExamID)
	return nil
}

func (s *ExamService) DeleteQuestion(callerID uint, questionID string) error {
	q, err := s.ExamRepo.FindQuestionByID(questionID)
	if err == gorm.ErrRecordNotFound {
		return util.ErrUnknownQuestion
	}
	if err != nil {
		return err
	}

	exam, err := s.GetExam(q.ExamID)
	if err != nil {
		return err
	}
	if exam.CreatorID != callerID {
		return util.ErrPermissionDenied
	}

	if err := s.ExamRepo.DeleteQuestion(questionID); err != nil {
		return err
	}
	if err := s.recalcTotalMarks(q.ExamID); err != nil {
		return err
	}
	s.invalidateCatalog(q.ExamID)
	return nil
}

func (s *ExamService) recalcTotalMarks(examID string) error {
	exam, err := s.ExamRepo.FindByID(examID)
	if err != nil {
		return err
	}
	exam.TotalMarks = sumMarks(exam.Questions)
	return s.ExamRepo.Update(exam)
}

func sumMarks(questions []model.ExamQuestion) float64 {
	var total float64
	for _, q := range questions {
		total += q.Marks
	}
	return total
}
