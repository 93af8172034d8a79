package app

import (
	"github.com/Brij5/mocktestbuddy-sub001/docs"
	"github.com/Brij5/mocktestbuddy-sub001/internal/config"
	"github.com/Brij5/mocktestbuddy-sub001/internal/middleware"
	"github.com/Brij5/mocktestbuddy-sub001/internal/model"
	"github.com/Brij5/mocktestbuddy-sub001/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg), middleware.ActivityMiddleware(repos.user))
	{
		// 学生/通用 授权接口
		a.registerStudentRoutes(authGroup, c)

		// 教师相关接口
		a.registerTeacherRoutes(authGroup, c)
	}
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
	}
}

func (a *App) registerStudentRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.GET("/profile", c.auth.GetProfile)

	// 考试浏览
	rg.GET("/exams", c.exam.List)
	rg.GET("/exams/:id", c.exam.Get)

	// 作答生命周期
	rg.POST("/exams/:id/attempts/start", c.attempt.Start)
	rg.GET("/attempts", c.attempt.List)
	rg.GET("/attempts/:id", c.attempt.Get)
	rg.POST("/attempts/:id/answers", c.attempt.SubmitAnswer)
	rg.POST("/attempts/:id/review", c.attempt.MarkForReview)
	rg.POST("/attempts/:id/complete", c.attempt.Complete)
}

func (a *App) registerTeacherRoutes(rg *gin.RouterGroup, c *controllers) {
	teacher := rg.Group("/teacher")
	teacher.Use(middleware.RoleMiddleware(model.Teacher))
	{
		teacher.GET("/exams", c.exam.ListAll)
		teacher.POST("/exams", c.exam.Create)
		teacher.GET("/exams/:id", c.exam.GetFull)
		teacher.PUT("/exams/:id", c.exam.Update)
		teacher.DELETE("/exams/:id", c.exam.Delete)
		teacher.POST("/exams/:id/publish", c.exam.Publish)

		teacher.POST("/exams/:id/questions", c.exam.AddQuestion)
		teacher.PUT("/questions/:qid", c.exam.UpdateQuestion)
		teacher.DELETE("/questions/:qid", c.exam.DeleteQuestion)
	}
}
