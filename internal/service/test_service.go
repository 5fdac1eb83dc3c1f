package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"

	"online_edu_backend/internal/model"
	"online_edu_backend/internal/repository"
	"online_edu_backend/internal/util"

	"gorm.io/gorm"
)

// TestService 试卷目录：创建、列表、以及学生视角的试卷详情。
type TestService struct {
	Tests     *repository.TestRepository
	Questions *repository.QuestionRepository
	Courses   *repository.CourseRepository
	Attempts  *repository.AttemptRepository
	Bank      *QuestionBankService
}

func NewTestService(tests *repository.TestRepository, questions *repository.QuestionRepository, courses *repository.CourseRepository, attempts *repository.AttemptRepository, bank *QuestionBankService) *TestService {
	return &TestService{
		Tests:     tests,
		Questions: questions,
		Courses:   courses,
		Attempts:  attempts,
		Bank:      bank,
	}
}

type TestQuestionReq struct {
	TopicID        uint     `json:"topicId" binding:"required"`
	Prompt         string   `json:"prompt" binding:"required"`
	Options        []string `json:"options" binding:"required"`
	CorrectAnswers []string `json:"correctAnswers" binding:"required"`
	Explanation    string   `json:"explanation"`
}

type TestCreateReq struct {
	Title               string         `json:"title" binding:"required"`
	Description         string         `json:"description"`
	Kind                model.TestKind `json:"kind"`
	CourseID            uint           `json:"courseId" binding:"required"`
	TopicID             *uint          `json:"topicId"`  // topic_exam 必填
	TopicIDs            []uint         `json:"topicIds"` // practice / final_exam 的出题范围
	DurationMinutes     int            `json:"durationMinutes"`
	PassingScore        int            `json:"passingScore"`
	TargetQuestionCount int            `json:"targetQuestionCount"`
	ShuffleQuestions    bool           `json:"shuffleQuestions"`
	ShuffleAnswers      bool           `json:"shuffleAnswers"`
	RequireCompletion   bool           `json:"requireCompletion"`
	QuestionIDs         []uint         `json:"questionIds"`  // 引用已有题目
	AutoGenerate        bool           `json:"autoGenerate"` // 不足时调用生成器补题
}

func (s *TestService) validateOwnership(courseID, userID uint, role model.UserRole) error {
	if _, err := s.Courses.FindByID(courseID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrCourseNotFound
		}
		return err
	}
	if role == model.Admin {
		return nil
	}
	owns, err := s.Courses.IsInstructorOf(courseID, userID)
	if err != nil {
		return err
	}
	if !owns {
		return util.ErrPermissionDenied
	}
	return nil
}

// CreateTest 创建试卷。主题测验每主题至多一份、结课考试每课程至多一份，
// 违反即冲突，与标题是否相同无关。
func (s *TestService) CreateTest(creatorID uint, role model.UserRole, req TestCreateReq, questions []TestQuestionReq) (*model.Test, error) {
	if req.Kind == "" {
		req.Kind = model.TestKindPractice
	}
	if req.DurationMinutes < 1 {
		req.DurationMinutes = 30
	}
	if req.PassingScore < 0 || req.PassingScore > 100 {
		return nil, fmt.Errorf("%w: passingScore must be between 0 and 100", util.ErrInvalidTestDefinition)
	}
	if req.TargetQuestionCount < 1 {
		req.TargetQuestionCount = 10
	}

	if err := s.validateOwnership(req.CourseID, creatorID, role); err != nil {
		return nil, err
	}

	topicIDs := req.TopicIDs
	switch req.Kind {
	case model.TestKindTopicExam:
		if req.TopicID == nil {
			return nil, fmt.Errorf("%w: topicId is required for a topic exam", util.ErrInvalidTestDefinition)
		}
		topic, err := s.Courses.FindTopicByID(*req.TopicID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, util.ErrTopicNotFound
			}
			return nil, err
		}
		if topic.CourseID != req.CourseID {
			return nil, util.ErrTopicNotFound
		}
		if _, err := s.Tests.FindTopicExam(*req.TopicID); err == nil {
			return nil, util.ErrDuplicateExam
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		topicIDs = []uint{*req.TopicID}
	case model.TestKindFinalExam:
		if _, err := s.Tests.FindFinalExam(req.CourseID); err == nil {
			return nil, util.ErrDuplicateExam
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		if len(topicIDs) == 0 {
			topics, err := s.Courses.TopicsByCourse(req.CourseID)
			if err != nil {
				return nil, err
			}
			for _, t := range topics {
				topicIDs = append(topicIDs, t.ID)
			}
		}
	case model.TestKindPractice:
		// 练习卷可跨任意主题
	default:
		return nil, fmt.Errorf("%w: unknown test kind %q", util.ErrInvalidTestDefinition, req.Kind)
	}

	questionIDs, err := s.assembleQuestions(req, questions, topicIDs)
	if err != nil {
		return nil, err
	}

	test := &model.Test{
		CourseID:            req.CourseID,
		TopicID:             req.TopicID,
		CreatorID:           creatorID,
		Title:               req.Title,
		Description:         req.Description,
		Kind:                req.Kind,
		DurationMinutes:     req.DurationMinutes,
		PassingScore:        req.PassingScore,
		TargetQuestionCount: req.TargetQuestionCount,
		ShuffleQuestions:    req.ShuffleQuestions,
		ShuffleAnswers:      req.ShuffleAnswers,
		RequireCompletion:   req.RequireCompletion,
		IsActive:            true,
	}
	if req.Kind != model.TestKindTopicExam {
		test.TopicID = nil
	}

	if err := s.Tests.CreateWithQuestions(test, questionIDs); err != nil {
		return nil, err
	}
	return test, nil
}

// assembleQuestions 组卷：先收手工题与引用题，缺口依次用生成器、
// 题库随机抽取补足；池子见底也不报错。
func (s *TestService) assembleQuestions(req TestCreateReq, questions []TestQuestionReq, topicIDs []uint) ([]uint, error) {
	var questionIDs []uint

	if len(req.QuestionIDs) > 0 {
		existing, err := s.Questions.FindByIDs(req.QuestionIDs)
		if err != nil {
			return nil, err
		}
		if len(existing) != len(req.QuestionIDs) {
			return nil, util.ErrQuestionNotFound
		}
		questionIDs = append(questionIDs, req.QuestionIDs...)
	}

	for _, qr := range questions {
		draft := QuestionDraft{
			Prompt:         qr.Prompt,
			Options:        qr.Options,
			CorrectAnswers: qr.CorrectAnswers,
			Explanation:    qr.Explanation,
		}
		if err := ValidateDraft(draft); err != nil {
			return nil, err
		}
		optBytes, _ := json.Marshal(qr.Options)
		ansBytes, _ := json.Marshal(qr.CorrectAnswers)
		q := &model.Question{
			TopicID:        qr.TopicID,
			Prompt:         qr.Prompt,
			Options:        string(optBytes),
			CorrectAnswers: string(ansBytes),
			Explanation:    qr.Explanation,
		}
		if err := s.Questions.Create(q); err != nil {
			return nil, err
		}
		questionIDs = append(questionIDs, q.ID)
	}

	if req.AutoGenerate && len(questionIDs) < req.TargetQuestionCount && len(topicIDs) > 0 {
		generated, err := s.Bank.GenerateForTopics(topicIDs, req.TargetQuestionCount-len(questionIDs))
		if err != nil {
			return nil, err
		}
		for _, q := range generated {
			questionIDs = append(questionIDs, q.ID)
		}
	}

	if len(questionIDs) < req.TargetQuestionCount && len(topicIDs) > 0 {
		fill, err := s.Bank.FillFromPool(topicIDs, questionIDs, req.TargetQuestionCount)
		if err != nil {
			return nil, err
		}
		for _, q := range fill {
			questionIDs = append(questionIDs, q.ID)
		}
	}

	return questionIDs, nil
}

func (s *TestService) ListByCourse(courseID uint) ([]model.Test, error) {
	if _, err := s.Courses.FindByID(courseID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrCourseNotFound
		}
		return nil, err
	}
	return s.Tests.ListByCourse(courseID)
}

func (s *TestService) SetActive(testID, userID uint, role model.UserRole, active bool) error {
	test, err := s.Tests.FindByID(testID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrTestNotFound
		}
		return err
	}
	if err := s.validateOwnership(test.CourseID, userID, role); err != nil {
		return err
	}
	return s.Tests.SetActive(testID, active)
}

// StudentQuestionView 学生视角的题目：不含正确答案
type StudentQuestionView struct {
	ID      uint     `json:"id"`
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
}

type TestDetail struct {
	Test          *model.Test           `json:"test"`
	QuestionCount int                   `json:"questionCount"`
	Questions     []StudentQuestionView `json:"questions"`
	ActiveAttempt *model.TestAttempt    `json:"activeAttempt,omitempty"`
}

// DetailFor 学生视角的试卷详情。停用的试卷视同不存在。
// 洗题/洗选项是每次请求独立的展示层变换，不落库。
func (s *TestService) DetailFor(testID, userID uint) (*TestDetail, error) {
	test, err := s.Tests.FindActiveByID(testID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrTestNotFound
		}
		return nil, err
	}

	questions, err := s.Tests.QuestionsForTest(testID)
	if err != nil {
		return nil, err
	}

	if test.ShuffleQuestions {
		rand.Shuffle(len(questions), func(i, j int) {
			questions[i], questions[j] = questions[j], questions[i]
		})
	}

	views := make([]StudentQuestionView, 0, len(questions))
	for _, q := range questions {
		var options []string
		if err := json.Unmarshal([]byte(q.Options), &options); err != nil {
			return nil, err
		}
		if test.ShuffleAnswers {
			// 每道题独立洗牌
			rand.Shuffle(len(options), func(i, j int) {
				options[i], options[j] = options[j], options[i]
			})
		}
		views = append(views, StudentQuestionView{
			ID:      q.ID,
			Prompt:  q.Prompt,
			Options: options,
		})
	}

	detail := &TestDetail{
		Test:          test,
		QuestionCount: len(views),
		Questions:     views,
	}

	if attempt, err := s.Attempts.FindInProgress(userID, testID); err == nil {
		detail.ActiveAttempt = attempt
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	return detail, nil
}
