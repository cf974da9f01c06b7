package validation

import "application-workflow/internal/models"

// AnswerMissing reports whether q is required and has no usable answer.
// Blank text and empty checkbox selections count as missing.
func AnswerMissing(q models.Question, responses map[string]models.AnswerValue) bool {
	if !q.Required {
		return false
	}
	v, ok := responses[q.ID]
	return !ok || v.IsBlank()
}

// MissingAnswers keys MsgAnswerRequired by question id for every required
// question left unanswered.
func MissingAnswers(questions []models.Question, responses map[string]models.AnswerValue) map[string]string {
	out := make(map[string]string)
	for _, q := range questions {
		if AnswerMissing(q, responses) {
			out[q.ID] = MsgAnswerRequired
		}
	}
	return out
}
