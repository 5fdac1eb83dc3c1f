package app

import (
	"online_edu_backend/docs"
	"online_edu_backend/internal/config"
	"online_edu_backend/internal/middleware"
	"online_edu_backend/internal/model"
	"online_edu_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 公共路由(无需登录)
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
	}

	// 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg), middleware.ActivityMiddleware(repos.user))
	{
		a.registerStudentRoutes(authGroup, c)
		a.registerInstructorRoutes(authGroup, c)
	}
}

// 学生/通用接口
func (a *App) registerStudentRoutes(group *gin.RouterGroup, c *controllers) {
	group.GET("/me", c.auth.Me)

	// 试卷
	group.GET("/courses/:courseId/tests", c.test.ListByCourse)
	group.GET("/tests/:id", c.test.Detail)

	// 答题
	group.POST("/attempts", c.attempt.Start)
	group.GET("/attempts", c.attempt.ListResults)
	group.POST("/attempts/:id/answers", c.attempt.SubmitAnswer)
	group.POST("/attempts/:id/complete", c.attempt.Complete)
	group.GET("/attempts/:id/progress", c.attempt.Progress)

	// 学习进度
	group.PUT("/lessons/:id/watch", c.progress.RecordWatch)
	group.GET("/lessons/:id/video", c.lesson.PlayURL)
	group.GET("/topics/:topicId/progress", c.progress.TopicProgress)
	group.GET("/topics/:topicId/exam-eligibility", c.progress.CanStartTopicExam)
	group.GET("/courses/:courseId/progress", c.progress.CourseProgress)
	group.GET("/courses/:courseId/final-exam-eligibility", c.progress.CanStartFinalExam)
	group.POST("/courses/:courseId/certificate", c.progress.IssueCertificate)
}

// 讲师/管理员接口
func (a *App) registerInstructorRoutes(group *gin.RouterGroup, c *controllers) {
	instructor := group.Group("/")
	instructor.Use(middleware.RoleMiddleware(model.Instructor))
	{
		instructor.POST("/tests", c.test.CreateTest)
		instructor.PUT("/tests/:id/active", c.test.SetActive)
		instructor.POST("/questions/generate", c.test.GenerateQuestions)
		instructor.GET("/questions", c.test.ListQuestions)
		instructor.POST("/lessons/:id/video", c.lesson.UploadVideo)
	}
}
