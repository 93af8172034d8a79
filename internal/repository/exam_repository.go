package repository

import (
	"time"

	"github.com/Brij5/mocktestbuddy-sub001/internal/model"

	"gorm.io/gorm"
)

type ExamRepository struct {
	DB *gorm.DB
}

func NewExamRepository(db *gorm.DB) *ExamRepository {
	return &ExamRepository{DB: db}
}

func (r *ExamRepository) CreateWithQuestions(exam *model.Exam, questions []model.ExamQuestion) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(exam).Error; err != nil {
			return err
		}
		for i := range questions {
			questions[i].ExamID = exam.ID
		}
		if len(questions) > 0 {
			if err := tx.Create(&questions).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *ExamRepository) Update(exam *model.Exam) error {
	return r.DB.Save(exam).Error
}

func (r *ExamRepository) Delete(examID string) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("exam_id = ?", examID).Delete(&model.ExamQuestion{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Exam{}, "id = ?", examID).Error
	})
}

// FindByID 加载考试及按序排列的题目
func (r *ExamRepository) FindByID(examID string) (*model.Exam, error) {
	var exam model.Exam
	err := r.DB.Preload("Questions", func(db *gorm.DB) *gorm.DB {
		return db.Order("`order` ASC")
	}).First(&exam, "id = ?", examID).Error
	if err != nil {
		return nil, err
	}
	return &exam, nil
}

func (r *ExamRepository) List(page, limit int, publishedOnly bool) ([]model.Exam, int64, error) {
	var exams []model.Exam
	var total int64

	query := r.DB.Model(&model.Exam{})
	if publishedOnly {
		query = query.Where("is_published = ?", true)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&exams).Error
	return exams, total, err
}

func (r *ExamRepository) SetPublished(examID string, published bool) error {
	updates := map[string]interface{}{"is_published": published}
	if published {
		now := time.Now()
		updates["published_at"] = &now
	}
	return r.DB.Model(&model.Exam{}).Where("id = ?", examID).Updates(updates).Error
}

func (r *ExamRepository) CreateQuestion(q *model.ExamQuestion) error {
	return r.DB.Create(q).Error
}

func (r *ExamRepository) UpdateQuestion(q *model.ExamQuestion) error {
	return r.DB.Save(q).Error
}

func (r *ExamRepository) DeleteQuestion(questionID string) error {
	return r.DB.Delete(&model.ExamQuestion{}, "id = ?", questionID).Error
}

func (r *ExamRepository) FindQuestionByID(questionID string) (*model.ExamQuestion, error) {
	var q model.ExamQuestion
	if err := r.DB.First(&q, "id = ?", questionID).Error; err != nil {
		return nil, err
	}
	return &q, nil
}
