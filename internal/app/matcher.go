package app

import (
	"strings"

	"timed-quiz-service/internal/domain"
)

// Normalize folds a free-text answer to lower-case ASCII letters and digits only.
func Normalize(answer string) string {
	lowered := strings.ToLower(answer)
	var b strings.Builder
	b.Grow(len(lowered))
	for i := 0; i < len(lowered); i++ {
		c := lowered[i]
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// IsCorrect grades a single answer. Multiple-choice answers must match the accepted option
// byte for byte; free-text answers match any accepted variant after normalization.
func IsCorrect(userAnswer string, q domain.Question) bool {
	if userAnswer == "" || len(q.AcceptedAnswers) == 0 {
		return false
	}
	switch q.Kind {
	case domain.KindMultipleChoice:
		return userAnswer == q.AcceptedAnswers[0]
	case domain.KindFreeText:
		normalized := Normalize(userAnswer)
		if normalized == "" {
			return false
		}
		for _, accepted := range q.AcceptedAnswers {
			if Normalize(accepted) == normalized {
				return true
			}
		}
	}
	return false
}

// ScoreAnswers sums marks over every question in the bank whose id has a correct answer.
// The bank is not filtered by round.
func ScoreAnswers(bank []domain.Question, answers map[int]string) int {
	total := 0
	for _, q := range bank {
		answer, ok := answers[q.ID]
		if !ok {
			continue
		}
		if IsCorrect(answer, q) {
			total += q.Marks
		}
	}
	return total
}
