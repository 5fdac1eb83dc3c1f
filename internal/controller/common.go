package controller

import (
	"errors"
	"net/http"

	"online_edu_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// writeServiceError 把服务层哨兵错误映射为 HTTP 状态码。
// 各 handler 先处理自己要定制文案的错误，剩下的走这里兜底。
func writeServiceError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrUserNotFound),
		errors.Is(err, util.ErrCourseNotFound),
		errors.Is(err, util.ErrTopicNotFound),
		errors.Is(err, util.ErrLessonNotFound),
		errors.Is(err, util.ErrTestNotFound),
		errors.Is(err, util.ErrQuestionNotFound),
		errors.Is(err, util.ErrAttemptNotFound):
		util.Error(ctx, http.StatusNotFound, err.Error())
	case errors.Is(err, util.ErrInvalidTestDefinition):
		util.BadRequest(ctx, err.Error())
	case errors.Is(err, util.ErrPermissionDenied),
		errors.Is(err, util.ErrPrerequisiteNotMet):
		util.Error(ctx, http.StatusForbidden, err.Error())
	case errors.Is(err, util.ErrEmailRegistered),
		errors.Is(err, util.ErrDuplicateExam),
		errors.Is(err, util.ErrActiveAttemptExists),
		errors.Is(err, util.ErrAttemptNotRunning):
		util.Conflict(ctx, err.Error())
	case errors.Is(err, util.ErrAttemptTimeExpired):
		util.Gone(ctx, err.Error())
	case errors.Is(err, util.ErrGenerationFailed):
		util.Error(ctx, http.StatusBadGateway, err.Error())
	default:
		util.LogInternalError(ctx, err)
	}
}
