package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"

	"online_edu_backend/internal/model"
	"online_edu_backend/internal/repository"
	"online_edu_backend/internal/util"
	"online_edu_backend/pkg/monitoring"

	"gorm.io/gorm"
)

// QuestionDraft 外部生成器产出的待入库题目
type QuestionDraft struct {
	Prompt         string   `json:"prompt"`
	Options        []string `json:"options"`
	CorrectAnswers []string `json:"correctAnswers"`
	Explanation    string   `json:"explanation,omitempty"`
}

// QuestionGenerator 题目生成能力。实现可替换（生产走 AI 接口，测试用固定返回）。
type QuestionGenerator interface {
	Generate(topicTitle string, count int) ([]QuestionDraft, error)
}

type QuestionBankService struct {
	Questions *repository.QuestionRepository
	Courses   *repository.CourseRepository
	Generator QuestionGenerator
}

func NewQuestionBankService(questions *repository.QuestionRepository, courses *repository.CourseRepository, generator QuestionGenerator) *QuestionBankService {
	return &QuestionBankService{
		Questions: questions,
		Courses:   courses,
		Generator: generator,
	}
}

// ValidateDraft 校验题目：正确答案必须是选项的非空子集，且无重复项
func ValidateDraft(d QuestionDraft) error {
	if d.Prompt == "" {
		return errors.New("question prompt required")
	}
	if len(d.Options) < 2 {
		return errors.New("question needs at least two options")
	}
	if len(d.CorrectAnswers) == 0 {
		return errors.New("question needs at least one correct answer")
	}
	optionSet := make(map[string]bool, len(d.Options))
	for _, o := range d.Options {
		optionSet[o] = true
	}
	seen := make(map[string]bool, len(d.CorrectAnswers))
	for _, a := range d.CorrectAnswers {
		if !optionSet[a] {
			return fmt.Errorf("correct answer %q is not one of the options", a)
		}
		if seen[a] {
			return fmt.Errorf("correct answer %q is duplicated", a)
		}
		seen[a] = true
	}
	return nil
}

// SelectForTopics 从给定主题的题库中均匀无放回地抽取至多 count 道题；
// 池子不够时返回全部，不算错误。
func (s *QuestionBankService) SelectForTopics(topicIDs []uint, count int) ([]model.Question, error) {
	if count <= 0 {
		return nil, nil
	}
	pool, err := s.Questions.ListByTopics(topicIDs)
	if err != nil {
		return nil, err
	}
	rand.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})
	if len(pool) > count {
		pool = pool[:count]
	}
	return pool, nil
}

// Generate 调用外部生成器为主题合成 count 道题并入库。
// 生成器失败原样上抛为生成错误，这里不做重试。
func (s *QuestionBankService) Generate(topicID uint, count int) ([]model.Question, error) {
	topic, err := s.Courses.FindTopicByID(topicID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrTopicNotFound
		}
		return nil, err
	}

	drafts, err := s.Generator.Generate(topic.Title, count)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrGenerationFailed, err)
	}

	questions := make([]model.Question, 0, len(drafts))
	for _, d := range drafts {
		if err := ValidateDraft(d); err != nil {
			return nil, fmt.Errorf("%w: %v", util.ErrGenerationFailed, err)
		}
		optBytes, _ := json.Marshal(d.Options)
		ansBytes, _ := json.Marshal(d.CorrectAnswers)
		questions = append(questions, model.Question{
			TopicID:        topicID,
			Prompt:         d.Prompt,
			Options:        string(optBytes),
			CorrectAnswers: string(ansBytes),
			Explanation:    d.Explanation,
			IsGenerated:    true,
		})
	}

	if err := s.Questions.CreateBatch(questions); err != nil {
		return nil, err
	}
	monitoring.QuestionsGenerated.Add(float64(len(questions)))
	return questions, nil
}

// DistributeCounts 把总数按最大余数法均摊到 k 个主题：
// 每个主题 base = total/k，前 total%k 个多拿 1，和恰好等于 total。
func DistributeCounts(total, k int) []int {
	if k <= 0 || total <= 0 {
		return nil
	}
	base := total / k
	extra := total % k
	counts := make([]int, k)
	for i := range counts {
		counts[i] = base
		if i < extra {
			counts[i]++
		}
	}
	return counts
}

// GenerateForTopics 跨主题生成共 total 道题
func (s *QuestionBankService) GenerateForTopics(topicIDs []uint, total int) ([]model.Question, error) {
	counts := DistributeCounts(total, len(topicIDs))
	var all []model.Question
	for i, topicID := range topicIDs {
		if counts[i] == 0 {
			continue
		}
		qs, err := s.Generate(topicID, counts[i])
		if err != nil {
			return nil, err
		}
		all = append(all, qs...)
	}
	return all, nil
}

// FillFromPool 组卷不足 target 时，从主题题库随机补足缺口，已选题目不重复。
// 池子依旧不够时返回能补的部分，不算错误。
func (s *QuestionBankService) FillFromPool(topicIDs []uint, chosen []uint, target int) ([]model.Question, error) {
	shortfall := target - len(chosen)
	if shortfall <= 0 {
		return nil, nil
	}
	chosenSet := make(map[uint]bool, len(chosen))
	for _, id := range chosen {
		chosenSet[id] = true
	}

	pool, err := s.Questions.ListByTopics(topicIDs)
	if err != nil {
		return nil, err
	}
	candidates := make([]model.Question, 0, len(pool))
	for _, q := range pool {
		if !chosenSet[q.ID] {
			candidates = append(candidates, q)
		}
	}
	rand.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	if len(candidates) > shortfall {
		candidates = candidates[:shortfall]
	}
	return candidates, nil
}
