package service

import (
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"online_edu_backend/internal/model"
	"online_edu_backend/internal/util"
)

// 建一张三道单选题的练习卷，返回 (学生, 试卷, 题目)
func setupAttemptFixture(t *testing.T, env *testEnv) (*model.User, *model.Test, []*model.Question) {
	t.Helper()
	instructor := env.createUser(t, model.Instructor)
	student := env.createUser(t, model.Student)
	course := env.createCourse(t, instructor.ID)
	topic := env.createTopic(t, course.ID, 1)

	questions := []*model.Question{
		env.createQuestion(t, topic.ID, []string{"A", "B", "C"}, []string{"A"}),
		env.createQuestion(t, topic.ID, []string{"A", "B", "C"}, []string{"B"}),
		env.createQuestion(t, topic.ID, []string{"A", "B", "C"}, []string{"C"}),
	}
	test := env.createTest(t, course.ID, model.TestKindPractice,
		[]uint{questions[0].ID, questions[1].ID, questions[2].ID})
	return student, test, questions
}

// 把尝试的开始时间回拨，模拟时钟流逝
func backdate(t *testing.T, env *testEnv, attemptID uint, d time.Duration) {
	t.Helper()
	err := env.db.Model(&model.TestAttempt{}).
		Where("id = ?", attemptID).
		Update("started_at", time.Now().Add(-d)).Error
	if err != nil {
		t.Fatalf("backdate attempt: %v", err)
	}
}

func TestStartAttempt(t *testing.T) {
	env := newTestEnv(t)
	student, test, _ := setupAttemptFixture(t, env)
	svc := env.attemptService()

	attempt, err := svc.StartAttempt(student.ID, test.ID)
	if err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}
	if attempt.Status != model.AttemptInProgress {
		t.Errorf("status = %s, want in_progress", attempt.Status)
	}
	if attempt.TotalQuestions != 3 {
		t.Errorf("totalQuestions = %d, want 3", attempt.TotalQuestions)
	}
}

func TestStartAttemptUnknownTest(t *testing.T) {
	env := newTestEnv(t)
	student := env.createUser(t, model.Student)
	svc := env.attemptService()

	if _, err := svc.StartAttempt(student.ID, 9999); !errors.Is(err, util.ErrTestNotFound) {
		t.Errorf("got %v, want ErrTestNotFound", err)
	}
}

func TestStartAttemptInactiveTest(t *testing.T) {
	env := newTestEnv(t)
	student, test, _ := setupAttemptFixture(t, env)
	if err := env.tests.SetActive(test.ID, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	svc := env.attemptService()

	if _, err := svc.StartAttempt(student.ID, test.ID); !errors.Is(err, util.ErrTestNotFound) {
		t.Errorf("got %v, want ErrTestNotFound for inactive test", err)
	}
}

// 同一 (user, test) 不允许并存两次进行中的尝试；
// 结束后可重新开始，不同用户互不影响
func TestStartAttemptDuplicate(t *testing.T) {
	env := newTestEnv(t)
	student, test, _ := setupAttemptFixture(t, env)
	other := env.createUser(t, model.Student)
	svc := env.attemptService()

	first, err := svc.StartAttempt(student.ID, test.ID)
	if err != nil {
		t.Fatalf("first StartAttempt: %v", err)
	}

	if _, err := svc.StartAttempt(student.ID, test.ID); !errors.Is(err, util.ErrActiveAttemptExists) {
		t.Fatalf("got %v, want ErrActiveAttemptExists", err)
	}

	if _, err := svc.StartAttempt(other.ID, test.ID); err != nil {
		t.Errorf("other user blocked: %v", err)
	}

	if _, err := svc.CompleteAttempt(student.ID, first.ID); err != nil {
		t.Fatalf("CompleteAttempt: %v", err)
	}
	if _, err := svc.StartAttempt(student.ID, test.ID); err != nil {
		t.Errorf("restart after completion failed: %v", err)
	}
}

// 并发重复开考只成功一次，其余都撞在 active_key 唯一索引上
func TestStartAttemptConcurrent(t *testing.T) {
	env := newTestEnv(t)
	student, test, _ := setupAttemptFixture(t, env)
	svc := env.attemptService()

	const workers = 8
	errs := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.StartAttempt(student.ID, test.ID)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded, rejected := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, util.ErrActiveAttemptExists):
			rejected++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 || rejected != workers-1 {
		t.Errorf("succeeded=%d rejected=%d, want 1/%d", succeeded, rejected, workers-1)
	}
}

// 卷面题数快照不超过目标题数
func TestStartAttemptSnapshotCapped(t *testing.T) {
	env := newTestEnv(t)
	instructor := env.createUser(t, model.Instructor)
	student := env.createUser(t, model.Student)
	course := env.createCourse(t, instructor.ID)
	topic := env.createTopic(t, course.ID, 1)
	ids := []uint{
		env.createQuestion(t, topic.ID, []string{"A", "B"}, []string{"A"}).ID,
		env.createQuestion(t, topic.ID, []string{"A", "B"}, []string{"A"}).ID,
		env.createQuestion(t, topic.ID, []string{"A", "B"}, []string{"A"}).ID,
	}
	test := &model.Test{
		CourseID:            course.ID,
		CreatorID:           instructor.ID,
		Title:               "capped",
		Kind:                model.TestKindPractice,
		DurationMinutes:     30,
		PassingScore:        60,
		TargetQuestionCount: 2,
		IsActive:            true,
	}
	if err := env.tests.CreateWithQuestions(test, ids); err != nil {
		t.Fatalf("create test: %v", err)
	}

	attempt, err := env.attemptService().StartAttempt(student.ID, test.ID)
	if err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}
	if attempt.TotalQuestions != 2 {
		t.Errorf("totalQuestions = %d, want 2", attempt.TotalQuestions)
	}
}

// 重复提交覆盖旧答案，不产生第二行
func TestSubmitAnswerReplaces(t *testing.T) {
	env := newTestEnv(t)
	student, test, questions := setupAttemptFixture(t, env)
	svc := env.attemptService()

	attempt, err := svc.StartAttempt(student.ID, test.ID)
	if err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}

	if err := svc.SubmitAnswer(student.ID, attempt.ID, questions[0].ID, []string{"B"}, 5); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if err := svc.SubmitAnswer(student.ID, attempt.ID, questions[0].ID, []string{"A"}, 3); err != nil {
		t.Fatalf("second submit: %v", err)
	}

	answers, err := env.attempts.AnswersByAttempt(attempt.ID)
	if err != nil {
		t.Fatalf("AnswersByAttempt: %v", err)
	}
	if len(answers) != 1 {
		t.Fatalf("answer rows = %d, want 1", len(answers))
	}
	if !answers[0].IsCorrect {
		t.Error("latest answer should be the graded one")
	}
}

func TestSubmitAnswerValidation(t *testing.T) {
	env := newTestEnv(t)
	student, test, questions := setupAttemptFixture(t, env)
	stranger := env.createUser(t, model.Student)
	svc := env.attemptService()

	attempt, err := svc.StartAttempt(student.ID, test.ID)
	if err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}

	// 不属于试卷的题目
	instructor := env.createUser(t, model.Instructor)
	course := env.createCourse(t, instructor.ID)
	topic := env.createTopic(t, course.ID, 1)
	foreign := env.createQuestion(t, topic.ID, []string{"A", "B"}, []string{"A"})
	if err := svc.SubmitAnswer(student.ID, attempt.ID, foreign.ID, []string{"A"}, 1); !errors.Is(err, util.ErrQuestionNotFound) {
		t.Errorf("foreign question: got %v, want ErrQuestionNotFound", err)
	}

	// 别人的尝试按不存在处理
	if err := svc.SubmitAnswer(stranger.ID, attempt.ID, questions[0].ID, []string{"A"}, 1); !errors.Is(err, util.ErrAttemptNotFound) {
		t.Errorf("stranger submit: got %v, want ErrAttemptNotFound", err)
	}
}

// 限时已过的提交：尝试转入 timeout 终态，答案不落库
func TestSubmitAnswerAfterDeadline(t *testing.T) {
	env := newTestEnv(t)
	student, test, questions := setupAttemptFixture(t, env)
	svc := env.attemptService()

	attempt, err := svc.StartAttempt(student.ID, test.ID)
	if err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}
	backdate(t, env, attempt.ID, time.Duration(test.DurationMinutes)*time.Minute+time.Second)

	err = svc.SubmitAnswer(student.ID, attempt.ID, questions[0].ID, []string{"A"}, 1)
	if !errors.Is(err, util.ErrAttemptTimeExpired) {
		t.Fatalf("got %v, want ErrAttemptTimeExpired", err)
	}

	reloaded, err := env.attempts.FindByID(attempt.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Status != model.AttemptTimeout {
		t.Errorf("status = %s, want timeout", reloaded.Status)
	}
	if reloaded.ActiveKey != nil {
		t.Error("active key not released on timeout")
	}

	answers, _ := env.attempts.AnswersByAttempt(attempt.ID)
	if len(answers) != 0 {
		t.Errorf("late answer was recorded: %d rows", len(answers))
	}

	// 超时后允许重新开始
	if _, err := svc.StartAttempt(student.ID, test.ID); err != nil {
		t.Errorf("restart after timeout failed: %v", err)
	}
}

// 恰好用满限时不算超时
func TestSubmitAnswerAtDeadlineBoundary(t *testing.T) {
	env := newTestEnv(t)
	student, test, questions := setupAttemptFixture(t, env)
	svc := env.attemptService()

	attempt, err := svc.StartAttempt(student.ID, test.ID)
	if err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}
	// 留 2 秒余量，避免判定瞬间真的越界
	backdate(t, env, attempt.ID, time.Duration(test.DurationMinutes)*time.Minute-2*time.Second)

	if err := svc.SubmitAnswer(student.ID, attempt.ID, questions[0].ID, []string{"A"}, 1); err != nil {
		t.Errorf("submit within limit rejected: %v", err)
	}
}

// 交卷计分：只按已作答的题计算，2/3 正确 → 66.67
func TestCompleteAttemptScoring(t *testing.T) {
	env := newTestEnv(t)
	student, test, questions := setupAttemptFixture(t, env)
	svc := env.attemptService()

	attempt, err := svc.StartAttempt(student.ID, test.ID)
	if err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}

	if err := svc.SubmitAnswer(student.ID, attempt.ID, questions[0].ID, []string{"A"}, 1); err != nil {
		t.Fatal(err)
	}
	if err := svc.SubmitAnswer(student.ID, attempt.ID, questions[1].ID, []string{"B"}, 1); err != nil {
		t.Fatal(err)
	}
	if err := svc.SubmitAnswer(student.ID, attempt.ID, questions[2].ID, []string{"A"}, 1); err != nil {
		t.Fatal(err)
	}

	done, err := svc.CompleteAttempt(student.ID, attempt.ID)
	if err != nil {
		t.Fatalf("CompleteAttempt: %v", err)
	}
	if done.Status != model.AttemptCompleted {
		t.Errorf("status = %s, want completed", done.Status)
	}
	if done.CorrectCount != 2 || done.TotalQuestions != 3 {
		t.Errorf("correct/total = %d/%d, want 2/3", done.CorrectCount, done.TotalQuestions)
	}
	if math.Abs(done.Score-66.67) > 1e-9 {
		t.Errorf("score = %v, want 66.67", done.Score)
	}
	if !done.IsPassed {
		t.Error("66.67 should pass with passing score 60")
	}
}

// 只答了一部分：分母是已答题数而不是卷面题数
func TestCompleteAttemptPartialAnswers(t *testing.T) {
	env := newTestEnv(t)
	student, test, questions := setupAttemptFixture(t, env)
	svc := env.attemptService()

	attempt, _ := svc.StartAttempt(student.ID, test.ID)
	if err := svc.SubmitAnswer(student.ID, attempt.ID, questions[0].ID, []string{"A"}, 1); err != nil {
		t.Fatal(err)
	}

	done, err := svc.CompleteAttempt(student.ID, attempt.ID)
	if err != nil {
		t.Fatalf("CompleteAttempt: %v", err)
	}
	if done.TotalQuestions != 1 || done.Score != 100 {
		t.Errorf("total=%d score=%v, want 1 / 100", done.TotalQuestions, done.Score)
	}
}

// 空卷交卷得 0 分，不得除零
func TestCompleteAttemptEmpty(t *testing.T) {
	env := newTestEnv(t)
	student, test, _ := setupAttemptFixture(t, env)
	svc := env.attemptService()

	attempt, _ := svc.StartAttempt(student.ID, test.ID)
	done, err := svc.CompleteAttempt(student.ID, attempt.ID)
	if err != nil {
		t.Fatalf("CompleteAttempt: %v", err)
	}
	if done.Score != 0 || done.TotalQuestions != 0 || done.IsPassed {
		t.Errorf("empty completion: score=%v total=%d passed=%v", done.Score, done.TotalQuestions, done.IsPassed)
	}
}

// 超过限时后主动交卷：照常计分收卷，timeout 终态只在提交答案时落地
func TestCompleteAttemptAfterDeadline(t *testing.T) {
	env := newTestEnv(t)
	student, test, questions := setupAttemptFixture(t, env)
	svc := env.attemptService()

	attempt, err := svc.StartAttempt(student.ID, test.ID)
	if err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}
	if err := svc.SubmitAnswer(student.ID, attempt.ID, questions[0].ID, []string{"A"}, 1); err != nil {
		t.Fatal(err)
	}
	backdate(t, env, attempt.ID, time.Duration(test.DurationMinutes)*time.Minute+time.Minute)

	done, err := svc.CompleteAttempt(student.ID, attempt.ID)
	if err != nil {
		t.Fatalf("CompleteAttempt after deadline: %v", err)
	}
	if done.Status != model.AttemptCompleted {
		t.Errorf("status = %s, want completed", done.Status)
	}
	if done.Score != 100 || done.TotalQuestions != 1 {
		t.Errorf("score/total = %v/%d, want 100/1", done.Score, done.TotalQuestions)
	}
	if _, err := svc.StartAttempt(student.ID, test.ID); err != nil {
		t.Errorf("restart after late completion failed: %v", err)
	}
}

// 终态尝试二次交卷是非法迁移
func TestCompleteAttemptTwice(t *testing.T) {
	env := newTestEnv(t)
	student, test, _ := setupAttemptFixture(t, env)
	svc := env.attemptService()

	attempt, _ := svc.StartAttempt(student.ID, test.ID)
	if _, err := svc.CompleteAttempt(student.ID, attempt.ID); err != nil {
		t.Fatalf("first complete: %v", err)
	}
	if _, err := svc.CompleteAttempt(student.ID, attempt.ID); !errors.Is(err, util.ErrAttemptNotRunning) {
		t.Errorf("second complete: got %v, want ErrAttemptNotRunning", err)
	}
}

// 进度查询是只读的：超时只在响应里标记，不迁移状态
func TestGetProgressReadOnly(t *testing.T) {
	env := newTestEnv(t)
	student, test, questions := setupAttemptFixture(t, env)
	svc := env.attemptService()

	attempt, _ := svc.StartAttempt(student.ID, test.ID)
	if err := svc.SubmitAnswer(student.ID, attempt.ID, questions[0].ID, []string{"A"}, 1); err != nil {
		t.Fatal(err)
	}

	progress, err := svc.GetProgress(student.ID, attempt.ID)
	if err != nil {
		t.Fatalf("GetProgress: %v", err)
	}
	if progress.AnsweredCount != 1 || progress.TotalQuestions != 3 {
		t.Errorf("answered/total = %d/%d, want 1/3", progress.AnsweredCount, progress.TotalQuestions)
	}
	if progress.IsExpired {
		t.Error("fresh attempt flagged expired")
	}
	if progress.TimeRemainingSeconds <= 0 || progress.TimeRemainingSeconds > test.DurationMinutes*60 {
		t.Errorf("timeRemaining = %d out of range", progress.TimeRemainingSeconds)
	}

	backdate(t, env, attempt.ID, time.Duration(test.DurationMinutes)*time.Minute+time.Minute)

	progress, err = svc.GetProgress(student.ID, attempt.ID)
	if err != nil {
		t.Fatalf("GetProgress after deadline: %v", err)
	}
	if !progress.IsExpired {
		t.Error("overdue attempt not flagged expired")
	}
	if progress.TimeRemainingSeconds != 0 {
		t.Errorf("timeRemaining = %d, want clamp to 0", progress.TimeRemainingSeconds)
	}

	reloaded, _ := env.attempts.FindByID(attempt.ID)
	if reloaded.Status != model.AttemptInProgress {
		t.Errorf("read-only progress mutated status to %s", reloaded.Status)
	}
}

func TestListUserResults(t *testing.T) {
	env := newTestEnv(t)
	student, test, _ := setupAttemptFixture(t, env)
	svc := env.attemptService()

	for i := 0; i < 3; i++ {
		attempt, err := svc.StartAttempt(student.ID, test.ID)
		if err != nil {
			t.Fatalf("StartAttempt %d: %v", i, err)
		}
		if _, err := svc.CompleteAttempt(student.ID, attempt.ID); err != nil {
			t.Fatalf("CompleteAttempt %d: %v", i, err)
		}
	}

	results, total, err := svc.ListUserResults(student.ID, 1, 2)
	if err != nil {
		t.Fatalf("ListUserResults: %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
	if len(results) != 2 {
		t.Errorf("page size = %d, want 2", len(results))
	}
	for _, r := range results {
		if r.TestTitle == "" {
			t.Error("result missing test title")
		}
	}
}

// 设了前置门槛的主题测验：课时全部完成前不得开考
func TestStartAttemptGating(t *testing.T) {
	env := newTestEnv(t)
	instructor := env.createUser(t, model.Instructor)
	student := env.createUser(t, model.Student)
	course := env.createCourse(t, instructor.ID)
	topic := env.createTopic(t, course.ID, 1)
	lesson := env.createLesson(t, topic.ID, 600)
	q := env.createQuestion(t, topic.ID, []string{"A", "B"}, []string{"A"})

	topicID := topic.ID
	exam := &model.Test{
		CourseID:          course.ID,
		TopicID:           &topicID,
		CreatorID:         instructor.ID,
		Title:             "topic exam",
		Kind:              model.TestKindTopicExam,
		DurationMinutes:   30,
		PassingScore:      60,
		RequireCompletion: true,
		IsActive:          true,
	}
	if err := env.tests.CreateWithQuestions(exam, []uint{q.ID}); err != nil {
		t.Fatalf("create exam: %v", err)
	}

	svc := env.attemptService()
	if _, err := svc.StartAttempt(student.ID, exam.ID); !errors.Is(err, util.ErrPrerequisiteNotMet) {
		t.Fatalf("got %v, want ErrPrerequisiteNotMet", err)
	}

	// 看完课时后放行
	if _, err := env.progressService().RecordWatch(student.ID, lesson.ID, 600); err != nil {
		t.Fatalf("RecordWatch: %v", err)
	}
	if _, err := svc.StartAttempt(student.ID, exam.ID); err != nil {
		t.Errorf("gated start after completion failed: %v", err)
	}
}
