package controller

import (
	"online_edu_backend/internal/service"
	"online_edu_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AttemptController struct {
	AttemptService *service.AttemptService
}

func NewAttemptController(attemptService *service.AttemptService) *AttemptController {
	return &AttemptController{AttemptService: attemptService}
}

type startAttemptRequest struct {
	TestID uint `json:"testId" binding:"required"`
}

// Start godoc
// @Summary 开始答题
// @Description 为当前用户开启一次新的答题尝试。同一试卷同时只允许一次进行中的尝试。
// @Tags 答题
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   body body startAttemptRequest true "试卷 ID"
// @Success 201 {object} util.Response{data=model.TestAttempt}
// @Failure 403 {object} util.Response "前置条件未满足"
// @Failure 404 {object} util.Response "试卷不存在或已停用"
// @Failure 409 {object} util.Response "已有进行中的尝试"
// @Router /api/attempts [post]
func (c *AttemptController) Start(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	var req startAttemptRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	attempt, err := c.AttemptService.StartAttempt(claims.UserID, req.TestID)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	util.Created(ctx, attempt)
}

type submitAnswerRequest struct {
	QuestionID       uint     `json:"questionId" binding:"required"`
	SelectedAnswers  []string `json:"selectedAnswers" binding:"required"`
	TimeSpentSeconds int      `json:"timeSpentSeconds"`
}

// SubmitAnswer godoc
// @Summary 提交答案
// @Description 提交或覆盖一道题的作答。正误判定结果不在响应中返回。限时已过的提交会把尝试转入超时并拒绝。
// @Tags 答题
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "尝试 ID"
// @Param   body body submitAnswerRequest true "作答内容"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response "尝试或题目不存在"
// @Failure 409 {object} util.Response "尝试已结束"
// @Failure 410 {object} util.Response "答题时间已到"
// @Router /api/attempts/{id}/answers [post]
func (c *AttemptController) SubmitAnswer(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	attemptID := util.MustParseUint(ctx.Param("id"))

	var req submitAnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	err := c.AttemptService.SubmitAnswer(claims.UserID, attemptID, req.QuestionID, req.SelectedAnswers, req.TimeSpentSeconds)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// Complete godoc
// @Summary 交卷
// @Description 结束尝试并计分。得分只按已作答的题计算，空卷得 0 分。超时后主动交卷仍照常计分。
// @Tags 答题
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "尝试 ID"
// @Success 200 {object} util.Response{data=model.TestAttempt}
// @Failure 404 {object} util.Response "尝试不存在"
// @Failure 409 {object} util.Response "尝试已结束"
// @Router /api/attempts/{id}/complete [post]
func (c *AttemptController) Complete(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	attemptID := util.MustParseUint(ctx.Param("id"))

	attempt, err := c.AttemptService.CompleteAttempt(claims.UserID, attemptID)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	util.Success(ctx, attempt)
}

// Progress godoc
// @Summary 答题进度
// @Description 只读查询：已答题数与剩余时间。超时只在响应里标记，不改变尝试状态。
// @Tags 答题
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "尝试 ID"
// @Success 200 {object} util.Response{data=service.AttemptProgress}
// @Failure 404 {object} util.Response "尝试不存在"
// @Router /api/attempts/{id}/progress [get]
func (c *AttemptController) Progress(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	attemptID := util.MustParseUint(ctx.Param("id"))

	progress, err := c.AttemptService.GetProgress(claims.UserID, attemptID)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	util.Success(ctx, progress)
}

// ListResults godoc
// @Summary 历史成绩
// @Tags 答题
// @Produce  json
// @Security BearerAuth
// @Param   page query int false "页码，默认 1"
// @Param   limit query int false "每页条数，默认 10"
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/attempts [get]
func (c *AttemptController) ListResults(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	page := int(util.MustParseUint(ctx.DefaultQuery("page", "1")))
	limit := int(util.MustParseUint(ctx.DefaultQuery("limit", "10")))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	results, total, err := c.AttemptService.ListUserResults(claims.UserID, page, limit)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{
		List:  results,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}
