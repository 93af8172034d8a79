package controller

import (
	"errors"
	"net/http"
	"time"

	"github.com/Brij5/mocktestbuddy-sub001/internal/model"
	"github.com/Brij5/mocktestbuddy-sub001/internal/service"
	"github.com/Brij5/mocktestbuddy-sub001/internal/util"

	"github.com/gin-gonic/gin"
)

type AttemptController struct {
	AttemptService *service.AttemptService
}

func NewAttemptController(attemptService *service.AttemptService) *AttemptController {
	return &AttemptController{AttemptService: attemptService}
}

// AttemptQuestionView 学生视角的题目状态，不含正确答案
type AttemptQuestionView struct {
	QuestionID      string     `json:"questionId"`
	Topic           string     `json:"topic"`
	Marks           float64    `json:"marks"`
	Order           int        `json:"order"`
	SelectedAnswer  *string    `json:"selectedAnswer"`
	MarkedForReview bool       `json:"markedForReview"`
	AnsweredAt      *time.Time `json:"answeredAt"`
	RevisionCount   int        `json:"revisionCount"`
}

// AttemptView attempt 详情响应
type AttemptView struct {
	ID               string                   `json:"id"`
	ExamID           string                   `json:"examId"`
	Status           model.AttemptStatus      `json:"status"`
	StartedAt        time.Time                `json:"startedAt"`
	DeadlineAt       time.Time                `json:"deadlineAt"`
	RemainingSeconds int                      `json:"remainingSeconds"`
	CompletedAt      *time.Time               `json:"completedAt,omitempty"`
	CompletedReason  string                   `json:"completedReason,omitempty"`
	TotalQuestions   int                      `json:"totalQuestions"`
	TotalMarks       float64                  `json:"totalMarks"`
	Questions        []AttemptQuestionView    `json:"questions,omitempty"`
	Score            *model.AttemptScore      `json:"score,omitempty"`
	Topics           []model.TopicPerformance `json:"topics,omitempty"`
}

func (c *AttemptController) toView(attempt *model.ExamAttempt) AttemptView {
	view := AttemptView{
		ID:               attempt.ID,
		ExamID:           attempt.ExamID,
		Status:           attempt.Status,
		StartedAt:        attempt.StartedAt,
		DeadlineAt:       attempt.DeadlineAt,
		RemainingSeconds: remainingSeconds(c.AttemptService.Guard, attempt),
		CompletedAt:      attempt.CompletedAt,
		CompletedReason:  attempt.CompletedReason,
		TotalQuestions:   attempt.TotalQuestions,
		TotalMarks:       attempt.TotalMarks,
		Score:            attempt.Score,
	}
	if len(attempt.Topics) > 0 {
		view.Topics = attempt.Topics
	}

	answers := make(map[string]*model.AnswerRecord, len(attempt.Answers))
	for i := range attempt.Answers {
		answers[attempt.Answers[i].QuestionID] = &attempt.Answers[i]
	}
	for _, q := range attempt.Snapshot {
		qv := AttemptQuestionView{
			QuestionID: q.QuestionID,
			Topic:      q.Topic,
			Marks:      q.Marks,
			Order:      q.Order,
		}
		if rec, ok := answers[q.QuestionID]; ok {
			qv.SelectedAnswer = rec.SelectedAnswer
			qv.MarkedForReview = rec.MarkedForReview
			qv.AnsweredAt = rec.AnsweredAt
			qv.RevisionCount = rec.RevisionCount
		}
		view.Questions = append(view.Questions, qv)
	}
	return view
}

func remainingSeconds(guard *service.TimeGuard, attempt *model.ExamAttempt) int {
	if attempt.Status != model.AttemptInProgress {
		return 0
	}
	return int(guard.Remaining(attempt).Seconds())
}

// handleAttemptError 业务错误到 HTTP 状态码的统一映射
func handleAttemptError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrAttemptNotFound), errors.Is(err, util.ErrExamNotFound):
		util.NotFound(ctx)
	case errors.Is(err, util.ErrPermissionDenied):
		util.Forbidden(ctx)
	case errors.Is(err, util.ErrAlreadyActiveAttempt):
		util.Conflict(ctx, "该考试已有进行中的作答")
	case errors.Is(err, util.ErrAttemptExpired):
		util.Conflict(ctx, "作答已超时，已自动交卷")
	case errors.Is(err, util.ErrAttemptNotActive):
		util.Conflict(ctx, "作答已结束")
	case errors.Is(err, util.ErrExamNotPublished):
		util.Conflict(ctx, "考试未发布")
	case errors.Is(err, util.ErrExamHasNoQuestions):
		util.Conflict(ctx, "考试没有题目")
	case errors.Is(err, util.ErrUnknownQuestion):
		util.UnprocessableEntity(ctx, "题目不属于本次作答")
	case errors.Is(err, util.ErrCatalogUnavailable):
		util.Error(ctx, http.StatusServiceUnavailable, "考卷目录暂不可用")
	default:
		util.LogInternalError(ctx, err)
	}
}

// Start godoc
// @Summary 开始作答
// @Description 在指定考试下创建一次新的作答，返回题目清单与截止时间
// @Tags 作答
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "考试ID"
// @Success 201 {object} util.Response{data=AttemptView} "创建成功"
// @Failure 404 {object} util.Response "考试不存在"
// @Failure 409 {object} util.Response "已有进行中的作答"
// @Router /api/exams/{id}/attempts/start [post]
func (c *AttemptController) Start(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	examID := ctx.Param("id")

	attempt, err := c.AttemptService.Start(claims.UserID, examID)
	if err != nil {
		handleAttemptError(ctx, err)
		return
	}

	util.Created(ctx, c.toView(attempt))
}

// List godoc
// @Summary 我的作答列表
// @Description 按开始时间倒序返回当前用户的全部作答
// @Tags 作答
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]AttemptView} "成功"
// @Router /api/attempts [get]
func (c *AttemptController) List(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)

	attempts, err := c.AttemptService.ListByUser(claims.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	views := make([]AttemptView, 0, len(attempts))
	for i := range attempts {
		views = append(views, c.toView(&attempts[i]))
	}
	util.Success(ctx, views)
}

// Get godoc
// @Summary 作答详情
// @Description 返回作答进度、剩余时间，已完成的附带成绩与知识点分析
// @Tags 作答
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "作答ID"
// @Success 200 {object} util.Response{data=AttemptView} "成功"
// @Failure 403 {object} util.Response "无权访问"
// @Failure 404 {object} util.Response "作答不存在"
// @Router /api/attempts/{id} [get]
func (c *AttemptController) Get(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)

	attempt, err := c.AttemptService.Get(ctx.Param("id"), claims.UserID)
	if err != nil {
		handleAttemptError(ctx, err)
		return
	}

	util.Success(ctx, c.toView(attempt))
}

// SubmitAnswerRequest 作答请求
type SubmitAnswerRequest struct {
	QuestionID string `json:"questionId" binding:"required"`
	Answer     string `json:"answer" binding:"required"`
}

// SubmitAnswer godoc
// @Summary 提交答案
// @Description 记录一题的作答，重复提交覆盖旧答案并递增修订计数
// @Tags 作答
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "作答ID"
// @Param   body body SubmitAnswerRequest true "答案"
// @Success 200 {object} util.Response{data=object} "成功"
// @Failure 409 {object} util.Response "作答已结束或已超时"
// @Failure 422 {object} util.Response "题目不属于本次作答"
// @Router /api/attempts/{id}/answers [post]
func (c *AttemptController) SubmitAnswer(ctx *gin.Context) {
	var req SubmitAnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	rec, err := c.AttemptService.SubmitAnswer(ctx.Param("id"), claims.UserID, req.QuestionID, req.Answer)
	if err != nil {
		handleAttemptError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{
		"questionId":      rec.QuestionID,
		"selectedAnswer":  rec.SelectedAnswer,
		"markedForReview": rec.MarkedForReview,
		"answeredAt":      rec.AnsweredAt,
		"revisionCount":   rec.RevisionCount,
	})
}

// MarkReviewRequest 标记待查请求
type MarkReviewRequest struct {
	QuestionID      string `json:"questionId" binding:"required"`
	MarkedForReview *bool  `json:"markedForReview" binding:"required"`
}

// MarkForReview godoc
// @Summary 标记待查
// @Description 设置或清除题目的待查标记，不影响已选答案
// @Tags 作答
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "作答ID"
// @Param   body body MarkReviewRequest true "标记"
// @Success 200 {object} util.Response{data=object} "成功"
// @Failure 409 {object} util.Response "作答已结束或已超时"
// @Failure 422 {object} util.Response "题目不属于本次作答"
// @Router /api/attempts/{id}/review [post]
func (c *AttemptController) MarkForReview(ctx *gin.Context) {
	var req MarkReviewRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	rec, err := c.AttemptService.MarkForReview(ctx.Param("id"), claims.UserID, req.QuestionID, *req.MarkedForReview)
	if err != nil {
		handleAttemptError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{
		"questionId":      rec.QuestionID,
		"markedForReview": rec.MarkedForReview,
		"revisionCount":   rec.RevisionCount,
	})
}

// Complete godoc
// @Summary 交卷
// @Description 结束作答并计算成绩，对已完成的作答幂等返回已有成绩
// @Tags 作答
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "作答ID"
// @Success 200 {object} util.Response{data=AttemptView} "成功"
// @Failure 403 {object} util.Response "无权访问"
// @Failure 404 {object} util.Response "作答不存在"
// @Router /api/attempts/{id}/complete [post]
func (c *AttemptController) Complete(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)

	attempt, err := c.AttemptService.Complete(ctx.Param("id"), claims.UserID, model.CompleteReasonUser)
	if err != nil {
		handleAttemptError(ctx, err)
		return
	}

	util.Success(ctx, c.toView(attempt))
}
