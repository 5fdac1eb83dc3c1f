package service

import "sort"

// Grade 判定一次作答：两边长度不一致直接判错（fail closed），
// 否则各自排序后逐位比较。注意语义是“排序后逐位比较”而非集合相等，
// 题目创建时已保证标准答案无重复项，因此两者不会产生分歧。
func Grade(correctAnswers, selectedAnswers []string) bool {
	if len(correctAnswers) == 0 || len(correctAnswers) != len(selectedAnswers) {
		return false
	}

	correct := append([]string(nil), correctAnswers...)
	selected := append([]string(nil), selectedAnswers...)
	sort.Strings(correct)
	sort.Strings(selected)

	for i := range correct {
		if correct[i] != selected[i] {
			return false
		}
	}
	return true
}
