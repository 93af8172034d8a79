package repository

import (
	"time"

	"github.com/Brij5/mocktestbuddy-sub001/internal/model"
	"github.com/Brij5/mocktestbuddy-sub001/internal/util"

	"gorm.io/gorm"
)

type AttemptRepository struct {
	DB *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{DB: db}
}

// CreateWithLedger 在同一事务中写入 attempt、题目快照和全量答题记录，
// 保证不会出现半初始化的 attempt
func (r *AttemptRepository) CreateWithLedger(attempt *model.ExamAttempt, snapshot []model.QuestionSnapshot, answers []model.AnswerRecord) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(attempt).Error; err != nil {
			return err
		}
		for i := range snapshot {
			snapshot[i].AttemptID = attempt.ID
		}
		if len(snapshot) > 0 {
			if err := tx.Create(&snapshot).Error; err != nil {
				return err
			}
		}
		for i := range answers {
			answers[i].AttemptID = attempt.ID
		}
		if len(answers) > 0 {
			if err := tx.Create(&answers).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// FindByID 加载 attempt 及其快照、答题记录，已完成的再带上成绩
func (r *AttemptRepository) FindByID(attemptID string) (*model.ExamAttempt, error) {
	var attempt model.ExamAttempt
	err := r.DB.
		Preload("Snapshot", func(db *gorm.DB) *gorm.DB {
			return db.Order("`order` ASC")
		}).
		Preload("Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		Preload("Score").
		Preload("Topics").
		First(&attempt, "id = ?", attemptID).Error
	if err == gorm.ErrRecordNotFound {
		return nil, util.ErrAttemptNotFound
	}
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

// FindActive 返回该用户在该考试下进行中的 attempt，没有则返回 (nil, nil)
func (r *AttemptRepository) FindActive(userID uint, examID string) (*model.ExamAttempt, error) {
	var attempt model.ExamAttempt
	err := r.DB.Where("user_id = ? AND exam_id = ? AND status = ?", userID, examID, model.AttemptInProgress).
		First(&attempt).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *AttemptRepository) ListByUser(userID uint) ([]model.ExamAttempt, error) {
	var attempts []model.ExamAttempt
	err := r.DB.Where("user_id = ?", userID).
		Preload("Score").
		Order("started_at DESC").
		Find(&attempts).Error
	return attempts, err
}

func (r *AttemptRepository) SaveAnswer(rec *model.AnswerRecord) error {
	return r.DB.Save(rec).Error
}

// Complete 在同一事务中固化 attempt 终态、成绩汇总与知识点统计
func (r *AttemptRepository) Complete(attempt *model.ExamAttempt, score *model.AttemptScore, topics []model.TopicPerformance) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(attempt).Error; err != nil {
			return err
		}
		score.AttemptID = attempt.ID
		if err := tx.Create(score).Error; err != nil {
			return err
		}
		for i := range topics {
			topics[i].AttemptID = attempt.ID
		}
		if len(topics) > 0 {
			if err := tx.Create(&topics).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// FindOverdueIDs 返回已过截止时间但仍处于进行中的 attempt id，供后台清扫
func (r *AttemptRepository) FindOverdueIDs(now time.Time) ([]string, error) {
	var ids []string
	err := r.DB.Model(&model.ExamAttempt{}).
		Where("status = ? AND deadline_at <= ?", model.AttemptInProgress, now).
		Pluck("id", &ids).Error
	return ids, err
}
