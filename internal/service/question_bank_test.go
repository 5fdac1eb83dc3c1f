package service

import (
	"errors"
	"fmt"
	"testing"

	"online_edu_backend/internal/util"
)

// fakeGenerator 返回固定模板题或预设错误
type fakeGenerator struct {
	err    error
	drafts func(topicTitle string, count int) []QuestionDraft
}

func (f *fakeGenerator) Generate(topicTitle string, count int) ([]QuestionDraft, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.drafts != nil {
		return f.drafts(topicTitle, count), nil
	}
	drafts := make([]QuestionDraft, count)
	for i := range drafts {
		drafts[i] = QuestionDraft{
			Prompt:         fmt.Sprintf("%s question %d", topicTitle, i),
			Options:        []string{"A", "B", "C", "D"},
			CorrectAnswers: []string{"A"},
		}
	}
	return drafts, nil
}

func TestDistributeCounts(t *testing.T) {
	cases := []struct {
		total, k int
		want     []int
	}{
		{10, 3, []int{4, 3, 3}},
		{9, 3, []int{3, 3, 3}},
		{2, 3, []int{1, 1, 0}},
		{5, 1, []int{5}},
		{0, 3, nil},
		{5, 0, nil},
	}
	for _, tc := range cases {
		got := DistributeCounts(tc.total, tc.k)
		if len(got) != len(tc.want) {
			t.Fatalf("DistributeCounts(%d, %d) = %v, want %v", tc.total, tc.k, got, tc.want)
		}
		sum := 0
		for i := range got {
			if got[i] != tc.want[i] {
				t.Errorf("DistributeCounts(%d, %d) = %v, want %v", tc.total, tc.k, got, tc.want)
				break
			}
			sum += got[i]
		}
		if tc.total > 0 && tc.k > 0 && sum != tc.total {
			t.Errorf("DistributeCounts(%d, %d) sums to %d", tc.total, tc.k, sum)
		}
	}
}

func TestValidateDraft(t *testing.T) {
	valid := QuestionDraft{
		Prompt:         "q",
		Options:        []string{"A", "B"},
		CorrectAnswers: []string{"A"},
	}
	if err := ValidateDraft(valid); err != nil {
		t.Errorf("valid draft rejected: %v", err)
	}

	cases := []struct {
		name  string
		draft QuestionDraft
	}{
		{"空题干", QuestionDraft{Options: []string{"A", "B"}, CorrectAnswers: []string{"A"}}},
		{"选项不足", QuestionDraft{Prompt: "q", Options: []string{"A"}, CorrectAnswers: []string{"A"}}},
		{"无正确答案", QuestionDraft{Prompt: "q", Options: []string{"A", "B"}}},
		{"正确答案不在选项中", QuestionDraft{Prompt: "q", Options: []string{"A", "B"}, CorrectAnswers: []string{"C"}}},
		{"正确答案重复", QuestionDraft{Prompt: "q", Options: []string{"A", "B"}, CorrectAnswers: []string{"A", "A"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := ValidateDraft(tc.draft); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestGeneratePersistsQuestions(t *testing.T) {
	env := newTestEnv(t)
	instructor := env.createUser(t, "instructor")
	course := env.createCourse(t, instructor.ID)
	topic := env.createTopic(t, course.ID, 1)

	bank := env.bankService(&fakeGenerator{})
	questions, err := bank.Generate(topic.ID, 3)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(questions) != 3 {
		t.Fatalf("generated %d questions, want 3", len(questions))
	}
	for _, q := range questions {
		if !q.IsGenerated {
			t.Error("generated question not flagged IsGenerated")
		}
		if q.ID == 0 {
			t.Error("generated question not persisted")
		}
		if q.TopicID != topic.ID {
			t.Errorf("question bound to topic %d, want %d", q.TopicID, topic.ID)
		}
	}
}

func TestGenerateTopicMissing(t *testing.T) {
	env := newTestEnv(t)
	bank := env.bankService(&fakeGenerator{})

	_, err := bank.Generate(9999, 3)
	if !errors.Is(err, util.ErrTopicNotFound) {
		t.Errorf("got %v, want ErrTopicNotFound", err)
	}
}

// 生成器故障原样上抛为生成错误，不落任何题目
func TestGenerateFailurePropagates(t *testing.T) {
	env := newTestEnv(t)
	instructor := env.createUser(t, "instructor")
	course := env.createCourse(t, instructor.ID)
	topic := env.createTopic(t, course.ID, 1)

	bank := env.bankService(&fakeGenerator{err: errors.New("upstream 500")})
	_, err := bank.Generate(topic.ID, 3)
	if !errors.Is(err, util.ErrGenerationFailed) {
		t.Fatalf("got %v, want ErrGenerationFailed", err)
	}

	count, err := env.questions.CountByTopics([]uint{topic.ID})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Errorf("failed generation persisted %d questions", count)
	}
}

// 生成器返回的残次品题目同样按生成失败处理
func TestGenerateInvalidDraftRejected(t *testing.T) {
	env := newTestEnv(t)
	instructor := env.createUser(t, "instructor")
	course := env.createCourse(t, instructor.ID)
	topic := env.createTopic(t, course.ID, 1)

	bank := env.bankService(&fakeGenerator{
		drafts: func(string, int) []QuestionDraft {
			return []QuestionDraft{{Prompt: "q", Options: []string{"A", "B"}, CorrectAnswers: []string{"Z"}}}
		},
	})
	_, err := bank.Generate(topic.ID, 1)
	if !errors.Is(err, util.ErrGenerationFailed) {
		t.Errorf("got %v, want ErrGenerationFailed", err)
	}
}

func TestSelectForTopicsShortfall(t *testing.T) {
	env := newTestEnv(t)
	instructor := env.createUser(t, "instructor")
	course := env.createCourse(t, instructor.ID)
	topic := env.createTopic(t, course.ID, 1)
	for i := 0; i < 3; i++ {
		env.createQuestion(t, topic.ID, []string{"A", "B"}, []string{"A"})
	}

	bank := env.bankService(&fakeGenerator{})

	// 池子只有 3 道，要 10 道时全量返回且不报错
	got, err := bank.SelectForTopics([]uint{topic.ID}, 10)
	if err != nil {
		t.Fatalf("SelectForTopics: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("got %d questions, want 3", len(got))
	}

	got, err = bank.SelectForTopics([]uint{topic.ID}, 2)
	if err != nil {
		t.Fatalf("SelectForTopics: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("got %d questions, want 2", len(got))
	}
}

func TestFillFromPoolSkipsChosen(t *testing.T) {
	env := newTestEnv(t)
	instructor := env.createUser(t, "instructor")
	course := env.createCourse(t, instructor.ID)
	topic := env.createTopic(t, course.ID, 1)

	q1 := env.createQuestion(t, topic.ID, []string{"A", "B"}, []string{"A"})
	q2 := env.createQuestion(t, topic.ID, []string{"A", "B"}, []string{"B"})

	bank := env.bankService(&fakeGenerator{})
	fill, err := bank.FillFromPool([]uint{topic.ID}, []uint{q1.ID}, 2)
	if err != nil {
		t.Fatalf("FillFromPool: %v", err)
	}
	if len(fill) != 1 || fill[0].ID != q2.ID {
		t.Errorf("fill = %v, want exactly question %d", fill, q2.ID)
	}
}
