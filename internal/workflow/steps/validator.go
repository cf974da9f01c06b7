// Package steps gates wizard navigation. Step 0 is the personal-data step;
// step N>0 is question N-1 of the posting.
package steps

import (
	"application-workflow/internal/common/validation"
	"application-workflow/internal/models"
)

// PersonalStep is the index of the personal-data step.
const PersonalStep = 0

// MsgInvalidStep is reported under the "step" key for a negative index.
const MsgInvalidStep = "Etapa inválida"

type Result struct {
	Valid       bool              `json:"valid"`
	FieldErrors map[string]string `json:"field_errors,omitempty"`
}

func valid() Result { return Result{Valid: true} }

func invalid(fieldErrors map[string]string) Result {
	return Result{Valid: false, FieldErrors: fieldErrors}
}

// StepCount is the personal step plus one step per question.
func StepCount(posting models.JobPosting) int {
	return 1 + len(posting.Questions)
}

// QuestionAt returns the question shown at step, if step is a question step.
func QuestionAt(step int, posting models.JobPosting) (models.Question, bool) {
	i := step - 1
	if i < 0 || i >= len(posting.Questions) {
		return models.Question{}, false
	}
	return posting.Questions[i], true
}

// Validate checks the fields owned by step. Steps past the end of the
// question list have nothing to check; a negative step never passes.
func Validate(step int, form models.FormState, posting models.JobPosting) Result {
	if step < PersonalStep {
		return invalid(map[string]string{"step": MsgInvalidStep})
	}
	if step == PersonalStep {
		fieldErrors := validation.ValidatePersonal(validation.PersonalFields{
			Name:  form.Name,
			Email: form.Email,
			Phone: form.Phone,
			Age:   form.Age,
			CEP:   form.CEP,
		})
		if len(fieldErrors) > 0 {
			return invalid(fieldErrors)
		}
		return valid()
	}

	q, ok := QuestionAt(step, posting)
	if !ok {
		return valid()
	}
	if validation.AnswerMissing(q, form.Responses) {
		return invalid(map[string]string{q.ID: validation.MsgAnswerRequired})
	}
	return valid()
}

// ValidateAll runs every step and returns the first failing one, or -1.
func ValidateAll(form models.FormState, posting models.JobPosting) (int, Result) {
	for step := 0; step < StepCount(posting); step++ {
		if r := Validate(step, form, posting); !r.Valid {
			return step, r
		}
	}
	return -1, valid()
}
