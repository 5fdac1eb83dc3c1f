package controller

import (
	"online_edu_backend/internal/service"
	"online_edu_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type TestController struct {
	TestService *service.TestService
	BankService *service.QuestionBankService
}

func NewTestController(testService *service.TestService, bankService *service.QuestionBankService) *TestController {
	return &TestController{TestService: testService, BankService: bankService}
}

// CreateTestRequest 创建试卷请求，questions 为随卷新建的题目
// swagger:model CreateTestRequest
type CreateTestRequest struct {
	service.TestCreateReq
	Questions []service.TestQuestionReq `json:"questions"`
}

// CreateTest godoc
// @Summary 创建试卷
// @Description 创建练习卷、主题测验或结课考试。主题测验每主题至多一份，结课考试每课程至多一份，重复创建返回冲突。
// @Tags 试卷
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   body body CreateTestRequest true "试卷定义"
// @Success 201 {object} util.Response{data=model.Test} "创建成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Failure 403 {object} util.Response "非课程讲师"
// @Failure 404 {object} util.Response "课程或主题不存在"
// @Failure 409 {object} util.Response "该主题/课程已有考试"
// @Failure 502 {object} util.Response "题目生成失败"
// @Router /api/tests [post]
func (c *TestController) CreateTest(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	var req CreateTestRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	test, err := c.TestService.CreateTest(claims.UserID, claims.Role, req.TestCreateReq, req.Questions)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	util.Created(ctx, test)
}

// ListByCourse godoc
// @Summary 课程下的试卷列表
// @Tags 试卷
// @Produce  json
// @Security BearerAuth
// @Param   courseId path int true "课程 ID"
// @Success 200 {object} util.Response{data=[]model.Test}
// @Failure 404 {object} util.Response "课程不存在"
// @Router /api/courses/{courseId}/tests [get]
func (c *TestController) ListByCourse(ctx *gin.Context) {
	courseID := util.MustParseUint(ctx.Param("courseId"))
	tests, err := c.TestService.ListByCourse(courseID)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	util.Success(ctx, tests)
}

// Detail godoc
// @Summary 学生视角的试卷详情
// @Description 返回题面与选项，不含正确答案。停用的试卷视同不存在。
// @Tags 试卷
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "试卷 ID"
// @Success 200 {object} util.Response{data=service.TestDetail}
// @Failure 404 {object} util.Response "试卷不存在或已停用"
// @Router /api/tests/{id} [get]
func (c *TestController) Detail(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	testID := util.MustParseUint(ctx.Param("id"))

	detail, err := c.TestService.DetailFor(testID, claims.UserID)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	util.Success(ctx, detail)
}

type setActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// SetActive godoc
// @Summary 启用/停用试卷
// @Tags 试卷
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "试卷 ID"
// @Param   body body setActiveRequest true "启停标记"
// @Success 200 {object} util.Response
// @Failure 403 {object} util.Response "非课程讲师"
// @Failure 404 {object} util.Response "试卷不存在"
// @Router /api/tests/{id}/active [put]
func (c *TestController) SetActive(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	testID := util.MustParseUint(ctx.Param("id"))

	var req setActiveRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.TestService.SetActive(testID, claims.UserID, claims.Role, *req.Active); err != nil {
		writeServiceError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

type generateQuestionsRequest struct {
	TopicID uint `json:"topicId" binding:"required"`
	Count   int  `json:"count" binding:"required,min=1,max=50"`
}

// GenerateQuestions godoc
// @Summary 为主题生成题目
// @Description 调用生成器为指定主题补充题库
// @Tags 题库
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   body body generateQuestionsRequest true "生成参数"
// @Success 201 {object} util.Response{data=[]model.Question}
// @Failure 404 {object} util.Response "主题不存在"
// @Failure 502 {object} util.Response "生成器返回异常"
// @Router /api/questions/generate [post]
func (c *TestController) GenerateQuestions(ctx *gin.Context) {
	var req generateQuestionsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	questions, err := c.BankService.Generate(req.TopicID, req.Count)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	util.Created(ctx, questions)
}

// ListQuestions godoc
// @Summary 按主题查询题库
// @Tags 题库
// @Produce  json
// @Security BearerAuth
// @Param   topicIds query string true "主题 ID 列表，逗号分隔"
// @Success 200 {object} util.Response{data=[]model.Question}
// @Router /api/questions [get]
func (c *TestController) ListQuestions(ctx *gin.Context) {
	topicIDs := util.ParseUintList(ctx.Query("topicIds"))
	if len(topicIDs) == 0 {
		util.BadRequest(ctx, "topicIds is required")
		return
	}
	questions, err := c.BankService.Questions.ListByTopics(topicIDs)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	util.Success(ctx, questions)
}
