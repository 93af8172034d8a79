package controller

import (
	"errors"
	"strconv"

	"github.com/Brij5/mocktestbuddy-sub001/internal/model"
	"github.com/Brij5/mocktestbuddy-sub001/internal/service"
	"github.com/Brij5/mocktestbuddy-sub001/internal/util"

	"github.com/gin-gonic/gin"
)

type ExamController struct {
	ExamService *service.ExamService
}

func NewExamController(examService *service.ExamService) *ExamController {
	return &ExamController{ExamService: examService}
}

// StudentQuestionView 学生视角的题目，不含正确答案与解析
type StudentQuestionView struct {
	ID      string  `json:"id"`
	Topic   string  `json:"topic"`
	Content string  `json:"content"`
	Options string  `json:"options"`
	Marks   float64 `json:"marks"`
	Order   int     `json:"order"`
}

// StudentExamView 学生视角的考试详情
type StudentExamView struct {
	ID              string                `json:"id"`
	Title           string                `json:"title"`
	Description     string                `json:"description"`
	DurationSeconds int                   `json:"durationSeconds"`
	TotalMarks      float64               `json:"totalMarks"`
	NegativeMarking float64               `json:"negativeMarking"`
	QuestionCount   int                   `json:"questionCount"`
	Questions       []StudentQuestionView `json:"questions,omitempty"`
}

func toStudentView(exam *model.Exam, withQuestions bool) StudentExamView {
	view := StudentExamView{
		ID:              exam.ID,
		Title:           exam.Title,
		Description:     exam.Description,
		DurationSeconds: exam.DurationSeconds,
		TotalMarks:      exam.TotalMarks,
		NegativeMarking: exam.NegativeMarking,
		QuestionCount:   len(exam.Questions),
	}
	if withQuestions {
		for _, q := range exam.Questions {
			view.Questions = append(view.Questions, StudentQuestionView{
				ID:      q.ID,
				Topic:   q.Topic,
				Content: q.Content,
				Options: q.Options,
				Marks:   q.Marks,
				Order:   q.Order,
			})
		}
	}
	return view
}

func handleExamError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrExamNotFound), errors.Is(err, util.ErrUnknownQuestion):
		util.NotFound(ctx)
	case errors.Is(err, util.ErrPermissionDenied):
		util.Forbidden(ctx)
	case errors.Is(err, util.ErrExamHasNoQuestions):
		util.Conflict(ctx, "考试没有题目，无法发布")
	default:
		util.LogInternalError(ctx, err)
	}
}

// List godoc
// @Summary 考试列表
// @Description 分页返回已发布的考试
// @Tags 考试
// @Produce  json
// @Security ApiKeyAuth
// @Param   page query int false "页码" default(1)
// @Param   limit query int false "每页条数" default(10)
// @Success 200 {object} util.Response{data=util.PageResponse} "成功"
// @Router /api/exams [get]
func (c *ExamController) List(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "10"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	exams, total, err := c.ExamService.ListExams(page, limit, true)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	views := make([]StudentExamView, 0, len(exams))
	for i := range exams {
		views = append(views, toStudentView(&exams[i], false))
	}

	util.Success(ctx, util.PageResponse{
		List:  views,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

// Get godoc
// @Summary 考试详情
// @Description 返回考试信息与题目（不含正确答案）
// @Tags 考试
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "考试ID"
// @Success 200 {object} util.Response{data=StudentExamView} "成功"
// @Failure 404 {object} util.Response "考试不存在"
// @Router /api/exams/{id} [get]
func (c *ExamController) Get(ctx *gin.Context) {
	exam, err := c.ExamService.ResolveExam(ctx.Param("id"))
	if err != nil {
		handleAttemptError(ctx, err)
		return
	}

	util.Success(ctx, toStudentView(exam, true))
}

// QuestionRequest 题目创建/更新请求
type QuestionRequest struct {
	Topic         string  `json:"topic" binding:"required"`
	Content       string  `json:"content" binding:"required"`
	Options       string  `json:"options" binding:"required"`
	CorrectAnswer string  `json:"correctAnswer" binding:"required"`
	Marks         float64 `json:"marks" binding:"required,gt=0"`
	Order         int     `json:"order"`
	Explanation   string  `json:"explanation"`
}

func (r *QuestionRequest) toModel() model.ExamQuestion {
	return model.ExamQuestion{
		Topic:         r.Topic,
		Content:       r.Content,
		Options:       r.Options,
		CorrectAnswer: r.CorrectAnswer,
		Marks:         r.Marks,
		Order:         r.Order,
		Explanation:   r.Explanation,
	}
}

// ExamRequest 考试创建/更新请求
type ExamRequest struct {
	Title              string            `json:"title" binding:"required"`
	Description        string            `json:"description"`
	DurationSeconds    int               `json:"durationSeconds" binding:"omitempty,gt=0"`
	NegativeMarking    float64           `json:"negativeMarking" binding:"omitempty,gte=0"`
	AllowNegativeTotal bool              `json:"allowNegativeTotal"`
	Questions          []QuestionRequest `json:"questions"`
}

// Create godoc
// @Summary 创建考试
// @Description 教师创建考试，可同时附带题目
// @Tags 考试管理
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body ExamRequest true "考试信息"
// @Success 201 {object} util.Response{data=model.Exam} "创建成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Router /api/teacher/exams [post]
func (c *ExamController) Create(ctx *gin.Context) {
	var req ExamRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	exam := &model.Exam{
		Title:              req.Title,
		Description:        req.Description,
		DurationSeconds:    req.DurationSeconds,
		NegativeMarking:    req.NegativeMarking,
		AllowNegativeTotal: req.AllowNegativeTotal,
	}
	questions := make([]model.ExamQuestion, 0, len(req.Questions))
	for i, q := range req.Questions {
		m := q.toModel()
		if m.Order == 0 {
			m.Order = i + 1
		}
		questions = append(questions, m)
	}

	if err := c.ExamService.CreateExam(claims.UserID, exam, questions); err != nil {
		handleExamError(ctx, err)
		return
	}

	util.Created(ctx, exam)
}

// Update godoc
// @Summary 更新考试
// @Description 更新考试基本信息，不改动题目
// @Tags 考试管理
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "考试ID"
// @Param   body body ExamRequest true "考试信息"
// @Success 200 {object} util.Response{data=model.Exam} "成功"
// @Failure 403 {object} util.Response "无权操作"
// @Failure 404 {object} util.Response "考试不存在"
// @Router /api/teacher/exams/{id} [put]
func (c *ExamController) Update(ctx *gin.Context) {
	var req ExamRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	existing, err := c.ExamService.GetExam(ctx.Param("id"))
	if err != nil {
		handleExamError(ctx, err)
		return
	}

	existing.Title = req.Title
	existing.Description = req.Description
	if req.DurationSeconds > 0 {
		existing.DurationSeconds = req.DurationSeconds
	}
	existing.NegativeMarking = req.NegativeMarking
	existing.AllowNegativeTotal = req.AllowNegativeTotal

	if err := c.ExamService.UpdateExam(claims.UserID, existing); err != nil {
		handleExamError(ctx, err)
		return
	}

	util.Success(ctx, existing)
}

// Delete godoc
// @Summary 删除考试
// @Tags 考试管理
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "考试ID"
// @Success 200 {object} util.Response "成功"
// @Failure 403 {object} util.Response "无权操作"
// @Failure 404 {object} util.Response "考试不存在"
// @Router /api/teacher/exams/{id} [delete]
func (c *ExamController) Delete(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)

	if err := c.ExamService.DeleteExam(claims.UserID, ctx.Param("id")); err != nil {
		handleExamError(ctx, err)
		return
	}

	util.Success(ctx, nil)
}

// PublishRequest 发布/下架请求
type PublishRequest struct {
	Published *bool `json:"published" binding:"required"`
}

// Publish godoc
// @Summary 发布或下架考试
// @Description 发布后学生可见并可开考，发布前至少要有一道题
// @Tags 考试管理
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "考试ID"
// @Param   body body PublishRequest true "发布状态"
// @Success 200 {object} util.Response "成功"
// @Failure 409 {object} util.Response "考试没有题目"
// @Router /api/teacher/exams/{id}/publish [post]
func (c *ExamController) Publish(ctx *gin.Context) {
	var req PublishRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	if err := c.ExamService.PublishExam(claims.UserID, ctx.Param("id"), *req.Published); err != nil {
		handleExamError(ctx, err)
		return
	}

	util.Success(ctx, nil)
}

// GetFull godoc
// @Summary 考试完整详情
// @Description 教师视角，含正确答案与解析
// @Tags 考试管理
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "考试ID"
// @Success 200 {object} util.Response{data=model.Exam} "成功"
// @Failure 404 {object} util.Response "考试不存在"
// @Router /api/teacher/exams/{id} [get]
func (c *ExamController) GetFull(ctx *gin.Context) {
	exam, err := c.ExamService.GetExam(ctx.Param("id"))
	if err != nil {
		handleExamError(ctx, err)
		return
	}

	util.Success(ctx, exam)
}

// ListAll godoc
// @Summary 全部考试列表
// @Description 教师视角，含未发布的考试
// @Tags 考试管理
// @Produce  json
// @Security ApiKeyAuth
// @Param   page query int false "页码" default(1)
// @Param   limit query int false "每页条数" default(10)
// @Success 200 {object} util.Response{data=util.PageResponse} "成功"
// @Router /api/teacher/exams [get]
func (c *ExamController) ListAll(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "10"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	exams, total, err := c.ExamService.ListExams(page, limit, false)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, util.PageResponse{
		List:  exams,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

// AddQuestion godoc
// @Summary 添加题目
// @Tags 考试管理
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "考试ID"
// @Param   body body QuestionRequest true "题目信息"
// @Success 201 {object} util.Response{data=model.ExamQuestion} "创建成功"
// @Failure 404 {object} util.Response "考试不存在"
// @Router /api/teacher/exams/{id}/questions [post]
func (c *ExamController) AddQuestion(ctx *gin.Context) {
	var req QuestionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	q := req.toModel()
	if err := c.ExamService.AddQuestion(claims.UserID, ctx.Param("id"), &q); err != nil {
		handleExamError(ctx, err)
		return
	}

	util.Created(ctx, q)
}

// UpdateQuestion godoc
// @Summary 更新题目
// @Tags 考试管理
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   qid path string true "题目ID"
// @Param   body body QuestionRequest true "题目信息"
// @Success 200 {object} util.Response{data=model.ExamQuestion} "成功"
// @Failure 404 {object} util.Response "题目不存在"
// @Router /api/teacher/questions/{qid} [put]
func (c *ExamController) UpdateQuestion(ctx *gin.Context) {
	var req QuestionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	q := req.toModel()
	if err := c.ExamService.UpdateQuestion(claims.UserID, ctx.Param("qid"), &q); err != nil {
		handleExamError(ctx, err)
		return
	}

	util.Success(ctx, q)
}

// DeleteQuestion godoc
// @Summary 删除题目
// @Tags 考试管理
// @Produce  json
// @Security ApiKeyAuth
// @Param   qid path string true "题目ID"
// @Success 200 {object} util.Response "成功"
// @Failure 404 {object} util.Response "题目不存在"
// @Router /api/teacher/questions/{qid} [delete]
func (c *ExamController) DeleteQuestion(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)

	if err := c.ExamService.DeleteQuestion(claims.UserID, ctx.Param("qid")); err != nil {
		handleExamError(ctx, err)
		return
	}

	util.Success(ctx, nil)
}
