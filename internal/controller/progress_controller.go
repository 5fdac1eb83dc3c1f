package controller

import (
	"online_edu_backend/internal/service"
	"online_edu_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ProgressController struct {
	ProgressService *service.ProgressService
}

func NewProgressController(progressService *service.ProgressService) *ProgressController {
	return &ProgressController{ProgressService: progressService}
}

type recordWatchRequest struct {
	WatchedSeconds int `json:"watchedSeconds" binding:"min=0"`
}

// RecordWatch godoc
// @Summary 上报观看进度
// @Description 上报课时视频已观看秒数。进度只增不减，看到片尾容差内即记完成。
// @Tags 学习进度
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "课时 ID"
// @Param   body body recordWatchRequest true "已观看秒数"
// @Success 200 {object} util.Response{data=model.LessonProgress}
// @Failure 404 {object} util.Response "课时不存在"
// @Router /api/lessons/{id}/watch [put]
func (c *ProgressController) RecordWatch(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	lessonID := util.MustParseUint(ctx.Param("id"))

	var req recordWatchRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	progress, err := c.ProgressService.RecordWatch(claims.UserID, lessonID, req.WatchedSeconds)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	util.Success(ctx, progress)
}

// TopicProgress godoc
// @Summary 主题学习进度
// @Tags 学习进度
// @Produce  json
// @Security BearerAuth
// @Param   topicId path int true "主题 ID"
// @Success 200 {object} util.Response{data=service.TopicProgress}
// @Failure 404 {object} util.Response "主题不存在"
// @Router /api/topics/{topicId}/progress [get]
func (c *ProgressController) TopicProgress(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	topicID := util.MustParseUint(ctx.Param("topicId"))

	progress, err := c.ProgressService.GetTopicProgress(claims.UserID, topicID)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	util.Success(ctx, progress)
}

// CourseProgress godoc
// @Summary 课程整体进度
// @Description 课程各主题完成度、结课考试状态与证书资格
// @Tags 学习进度
// @Produce  json
// @Security BearerAuth
// @Param   courseId path int true "课程 ID"
// @Success 200 {object} util.Response{data=service.CourseProgress}
// @Failure 404 {object} util.Response "课程不存在"
// @Router /api/courses/{courseId}/progress [get]
func (c *ProgressController) CourseProgress(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	courseID := util.MustParseUint(ctx.Param("courseId"))

	progress, err := c.ProgressService.GetCourseProgress(ctx.Request.Context(), claims.UserID, courseID)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	util.Success(ctx, progress)
}

// CanStartTopicExam godoc
// @Summary 主题测验准入查询
// @Tags 学习进度
// @Produce  json
// @Security BearerAuth
// @Param   topicId path int true "主题 ID"
// @Success 200 {object} util.Response{data=object}
// @Router /api/topics/{topicId}/exam-eligibility [get]
func (c *ProgressController) CanStartTopicExam(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	topicID := util.MustParseUint(ctx.Param("topicId"))

	ok, err := c.ProgressService.CanStartTopicExam(claims.UserID, topicID)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"canStart": ok})
}

// CanStartFinalExam godoc
// @Summary 结课考试准入查询
// @Tags 学习进度
// @Produce  json
// @Security BearerAuth
// @Param   courseId path int true "课程 ID"
// @Success 200 {object} util.Response{data=object}
// @Router /api/courses/{courseId}/final-exam-eligibility [get]
func (c *ProgressController) CanStartFinalExam(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	courseID := util.MustParseUint(ctx.Param("courseId"))

	ok, err := c.ProgressService.CanStartFinalExam(claims.UserID, courseID)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"canStart": ok})
}

// IssueCertificate godoc
// @Summary 领取结课证书
// @Description 通过结课考试后可领取证书，重复领取返回同一张
// @Tags 学习进度
// @Produce  json
// @Security BearerAuth
// @Param   courseId path int true "课程 ID"
// @Success 200 {object} util.Response{data=model.Certificate}
// @Failure 403 {object} util.Response "尚未通过结课考试"
// @Router /api/courses/{courseId}/certificate [post]
func (c *ProgressController) IssueCertificate(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	courseID := util.MustParseUint(ctx.Param("courseId"))

	cert, err := c.ProgressService.IssueCertificate(claims.UserID, courseID)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	util.Success(ctx, cert)
}
