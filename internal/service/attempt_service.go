package service

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"time"

	"online_edu_backend/internal/model"
	"online_edu_backend/internal/repository"
	"online_edu_backend/internal/util"
	"online_edu_backend/pkg/monitoring"

	"gorm.io/gorm"
)

// AttemptService 答题引擎：开考、提交、交卷、进度查询。
// 状态机只有 in_progress -> completed / timeout 两条出边，
// 超时靠提交时惰性判定，没有后台定时器。
type AttemptService struct {
	Attempts  *repository.AttemptRepository
	Tests     *repository.TestRepository
	Questions *repository.QuestionRepository
	Progress  *ProgressService
}

func NewAttemptService(attempts *repository.AttemptRepository, tests *repository.TestRepository, questions *repository.QuestionRepository, progress *ProgressService) *AttemptService {
	return &AttemptService{
		Attempts:  attempts,
		Tests:     tests,
		Questions: questions,
		Progress:  progress,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// StartAttempt 开始一次答题。同一 (user, test) 只允许一次进行中的尝试，
// 靠 active_key 唯一索引在数据库层兜底，并发重复开考只会成功一个。
func (s *AttemptService) StartAttempt(userID, testID uint) (*model.TestAttempt, error) {
	test, err := s.Tests.FindActiveByID(testID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrTestNotFound
		}
		return nil, err
	}

	if test.RequireCompletion {
		if err := s.checkPrerequisites(userID, test); err != nil {
			return nil, err
		}
	}

	total, err := s.Tests.CountQuestions(testID)
	if err != nil {
		return nil, err
	}
	// 快照取 min(目标题数, 实际挂载题数)，交卷时会按已作答数覆盖
	snapshot := int(total)
	if test.TargetQuestionCount > 0 && snapshot > test.TargetQuestionCount {
		snapshot = test.TargetQuestionCount
	}

	attempt := &model.TestAttempt{
		TestID:         testID,
		UserID:         userID,
		Status:         model.AttemptInProgress,
		StartedAt:      time.Now(),
		TotalQuestions: snapshot,
	}
	if err := s.Attempts.CreateActive(attempt); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, util.ErrActiveAttemptExists
		}
		return nil, err
	}

	monitoring.AttemptsStarted.WithLabelValues(string(test.Kind)).Inc()
	return attempt, nil
}

func (s *AttemptService) checkPrerequisites(userID uint, test *model.Test) error {
	switch test.Kind {
	case model.TestKindTopicExam:
		if test.TopicID == nil {
			return nil
		}
		ok, err := s.Progress.CanStartTopicExam(userID, *test.TopicID)
		if err != nil {
			return err
		}
		if !ok {
			return util.ErrPrerequisiteNotMet
		}
	case model.TestKindFinalExam:
		ok, err := s.Progress.CanStartFinalExam(userID, test.CourseID)
		if err != nil {
			return err
		}
		if !ok {
			return util.ErrPrerequisiteNotMet
		}
	}
	return nil
}

// loadRunning 取回属于该用户且仍在进行中的尝试。
// 别人的尝试一律按不存在处理，不泄露他人答题记录。
func (s *AttemptService) loadRunning(userID, attemptID uint) (*model.TestAttempt, *model.Test, error) {
	attempt, err := s.Attempts.FindByID(attemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, util.ErrAttemptNotFound
		}
		return nil, nil, err
	}
	if attempt.UserID != userID {
		return nil, nil, util.ErrAttemptNotFound
	}
	test, err := s.Tests.FindByID(attempt.TestID)
	if err != nil {
		return nil, nil, err
	}
	if attempt.Status != model.AttemptInProgress {
		return attempt, test, util.ErrAttemptNotRunning
	}
	return attempt, test, nil
}

// expireIfOverdue 惰性超时：已耗时严格超过限时才算过期，恰好等于不算。
// 过期即持久化 timeout 终态并释放 active_key。
func (s *AttemptService) expireIfOverdue(attempt *model.TestAttempt, test *model.Test, now time.Time) (bool, error) {
	limit := time.Duration(test.DurationMinutes) * time.Minute
	if now.Sub(attempt.StartedAt) <= limit {
		return false, nil
	}
	attempt.TimeSpentSeconds = int(now.Sub(attempt.StartedAt).Seconds())
	if err := s.Attempts.Finish(attempt, model.AttemptTimeout, now); err != nil {
		return false, err
	}
	monitoring.AttemptsTimedOut.WithLabelValues(string(test.Kind)).Inc()
	return true, nil
}

// SubmitAnswer 提交/改答一道题。同一题重复提交是覆盖不是追加。
// 超时的提交不落答案，先把尝试转入 timeout 再拒绝。
func (s *AttemptService) SubmitAnswer(userID, attemptID, questionID uint, selected []string, timeSpentSeconds int) error {
	attempt, test, err := s.loadRunning(userID, attemptID)
	if err != nil {
		return err
	}

	now := time.Now()
	expired, err := s.expireIfOverdue(attempt, test, now)
	if err != nil {
		return err
	}
	if expired {
		return util.ErrAttemptTimeExpired
	}

	belongs, err := s.Tests.HasQuestion(test.ID, questionID)
	if err != nil {
		return err
	}
	if !belongs {
		return util.ErrQuestionNotFound
	}

	question, err := s.Questions.FindByID(questionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrQuestionNotFound
		}
		return err
	}

	var correct []string
	if err := json.Unmarshal([]byte(question.CorrectAnswers), &correct); err != nil {
		return err
	}

	selectedBytes, err := json.Marshal(selected)
	if err != nil {
		return err
	}

	answer := &model.TestAnswer{
		AttemptID:        attemptID,
		QuestionID:       questionID,
		SelectedAnswers:  string(selectedBytes),
		IsCorrect:        Grade(correct, selected),
		TimeSpentSeconds: timeSpentSeconds,
		AnsweredAt:       now,
	}
	return s.Attempts.UpsertAnswer(answer)
}

// CompleteAttempt 交卷。成绩只看已作答的题，没答的题不进分母。
// 空卷交卷得 0 分。对终态尝试二次交卷是非法迁移。
// 超时只在提交答案时判定，主动交卷即便超时也照常计分收卷。
func (s *AttemptService) CompleteAttempt(userID, attemptID uint) (*model.TestAttempt, error) {
	attempt, test, err := s.loadRunning(userID, attemptID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	answers, err := s.Attempts.AnswersByAttempt(attemptID)
	if err != nil {
		return nil, err
	}

	correctCount := 0
	for _, a := range answers {
		if a.IsCorrect {
			correctCount++
		}
	}

	attempt.TotalQuestions = len(answers)
	attempt.CorrectCount = correctCount
	if len(answers) > 0 {
		attempt.Score = round2(100 * float64(correctCount) / float64(len(answers)))
	} else {
		attempt.Score = 0
	}
	attempt.IsPassed = attempt.Score >= float64(test.PassingScore)
	attempt.TimeSpentSeconds = int(now.Sub(attempt.StartedAt).Seconds())

	if err := s.Attempts.Finish(attempt, model.AttemptCompleted, now); err != nil {
		return nil, err
	}

	monitoring.AttemptsCompleted.WithLabelValues(string(test.Kind), strconv.FormatBool(attempt.IsPassed)).Inc()
	s.Progress.InvalidateCourseCache(userID, test.CourseID)
	return attempt, nil
}

// AttemptProgress 答题进度快照。只读：即便发现已超时也不改库，
// 只在返回里给出 isExpired，真正的状态迁移留给下一次提交。
type AttemptProgress struct {
	AttemptID            uint                `json:"attemptId"`
	Status               model.AttemptStatus `json:"status"`
	AnsweredCount        int                 `json:"answeredCount"`
	TotalQuestions       int                 `json:"totalQuestions"`
	TimeRemainingSeconds int                 `json:"timeRemainingSeconds"`
	IsExpired            bool                `json:"isExpired"`
}

func (s *AttemptService) GetProgress(userID, attemptID uint) (*AttemptProgress, error) {
	attempt, err := s.Attempts.FindByID(attemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrAttemptNotFound
		}
		return nil, err
	}
	if attempt.UserID != userID {
		return nil, util.ErrAttemptNotFound
	}
	test, err := s.Tests.FindByID(attempt.TestID)
	if err != nil {
		return nil, err
	}
	answers, err := s.Attempts.AnswersByAttempt(attemptID)
	if err != nil {
		return nil, err
	}

	elapsed := int(time.Since(attempt.StartedAt).Seconds())
	remaining := test.DurationMinutes*60 - elapsed
	if remaining < 0 {
		remaining = 0
	}

	return &AttemptProgress{
		AttemptID:            attempt.ID,
		Status:               attempt.Status,
		AnsweredCount:        len(answers),
		TotalQuestions:       attempt.TotalQuestions,
		TimeRemainingSeconds: remaining,
		IsExpired:            attempt.Status == model.AttemptInProgress && elapsed > test.DurationMinutes*60,
	}, nil
}

// AttemptResult 历史成绩视图
type AttemptResult struct {
	Attempt   model.TestAttempt `json:"attempt"`
	TestTitle string            `json:"testTitle"`
	TestKind  model.TestKind    `json:"testKind"`
}

func (s *AttemptService) ListUserResults(userID uint, page, limit int) ([]AttemptResult, int64, error) {
	attempts, total, err := s.Attempts.ListByUser(userID, page, limit)
	if err != nil {
		return nil, 0, err
	}
	results := make([]AttemptResult, 0, len(attempts))
	for _, a := range attempts {
		r := AttemptResult{Attempt: a}
		if test, err := s.Tests.FindByID(a.TestID); err == nil {
			r.TestTitle = test.Title
			r.TestKind = test.Kind
		}
		results = append(results, r)
	}
	return results, total, nil
}
