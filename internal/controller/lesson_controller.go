package controller

import (
	"online_edu_backend/internal/service"
	"online_edu_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type LessonController struct {
	LessonService *service.LessonService
}

func NewLessonController(lessonService *service.LessonService) *LessonController {
	return &LessonController{LessonService: lessonService}
}

// UploadVideo godoc
// @Summary 上传课时视频
// @Description 上传视频文件并探测时长。时长作为观看完成度判定的分母。
// @Tags 课时
// @Accept  multipart/form-data
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "课时 ID"
// @Param   video formData file true "视频文件"
// @Success 200 {object} util.Response{data=model.Lesson}
// @Failure 400 {object} util.Response "文件格式不支持"
// @Failure 403 {object} util.Response "非课程讲师"
// @Failure 404 {object} util.Response "课时不存在"
// @Router /api/lessons/{id}/video [post]
func (c *LessonController) UploadVideo(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	lessonID := util.MustParseUint(ctx.Param("id"))

	file, err := ctx.FormFile("video")
	if err != nil {
		util.BadRequest(ctx, "缺少视频文件")
		return
	}

	lesson, err := c.LessonService.UploadVideo(ctx.Request.Context(), claims.UserID, claims.Role, lessonID, file)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	util.Success(ctx, lesson)
}

// PlayURL godoc
// @Summary 获取播放地址
// @Tags 课时
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "课时 ID"
// @Success 200 {object} util.Response{data=object}
// @Failure 404 {object} util.Response "课时不存在"
// @Router /api/lessons/{id}/video [get]
func (c *LessonController) PlayURL(ctx *gin.Context) {
	lessonID := util.MustParseUint(ctx.Param("id"))

	url, err := c.LessonService.PlayURL(ctx.Request.Context(), lessonID)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"url": url})
}
