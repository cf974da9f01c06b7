package steps

import (
	"testing"

	"application-workflow/internal/common/validation"
	"application-workflow/internal/models"

	"github.com/stretchr/testify/assert"
)

func anaSilva() models.FormState {
	return models.FormState{
		Name:  "Ana Silva",
		Email: "ana@x.com",
		Phone: "11988887777",
		Age:   "30",
		CEP:   "13050-120",
	}
}

func posting() models.JobPosting {
	return models.JobPosting{
		ID:    "posting-1",
		Title: "Atendente de Loja",
		Questions: []models.Question{
			{ID: "exp", Type: models.QuestionTextarea, Title: "Conte sua experiência", Required: true},
			{ID: "turnos", Type: models.QuestionCheckbox, Title: "Turnos", Required: true, Options: []string{"manhã", "tarde"}},
			{ID: "obs", Type: models.QuestionText, Title: "Observações"},
		},
	}
}

func TestValidate_PersonalStep(t *testing.T) {
	assert.True(t, Validate(0, anaSilva(), posting()).Valid)

	tests := []struct {
		name   string
		mutate func(*models.FormState)
		field  string
		msg    string
	}{
		{"blank name", func(f *models.FormState) { f.Name = "   " }, "name", validation.MsgNameRequired},
		{"bad email", func(f *models.FormState) { f.Email = "ana.x.com" }, "email", validation.MsgEmailInvalid},
		{"short phone", func(f *models.FormState) { f.Phone = "123" }, "phone", validation.MsgPhoneInvalid},
		{"age 15", func(f *models.FormState) { f.Age = "15" }, "age", validation.MsgAgeInvalid},
		{"age 101", func(f *models.FormState) { f.Age = "101" }, "age", validation.MsgAgeInvalid},
		{"cep 7 digits", func(f *models.FormState) { f.CEP = "1305012" }, "cep", validation.MsgCEPInvalid},
		{"cep missing", func(f *models.FormState) { f.CEP = "" }, "cep", validation.MsgCEPRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := anaSilva()
			tt.mutate(&f)
			r := Validate(0, f, posting())
			assert.False(t, r.Valid)
			assert.Equal(t, tt.msg, r.FieldErrors[tt.field])
		})
	}
}

func TestValidate_PersonalBoundaries(t *testing.T) {
	for _, mutate := range []func(*models.FormState){
		func(f *models.FormState) { f.Phone = "(11) 98888-7777" },
		func(f *models.FormState) { f.Phone = "(11) 8888-7777" },
		func(f *models.FormState) { f.Age = "16" },
		func(f *models.FormState) { f.Age = "100" },
		func(f *models.FormState) { f.CEP = "13050120" },
		func(f *models.FormState) { f.Address = "" },
	} {
		f := anaSilva()
		mutate(&f)
		assert.True(t, Validate(0, f, posting()).Valid, "%+v", f)
	}
}

func TestValidate_QuestionSteps(t *testing.T) {
	p := posting()
	f := anaSilva()

	r := Validate(1, f, p)
	assert.False(t, r.Valid)
	assert.Equal(t, "Esta pergunta é obrigatória", r.FieldErrors["exp"])

	f.SetAnswer("exp", models.TextAnswer("  "))
	assert.False(t, Validate(1, f, p).Valid)

	f.SetAnswer("exp", models.TextAnswer("Três anos no varejo"))
	assert.True(t, Validate(1, f, p).Valid)

	f.SetAnswer("turnos", models.ListAnswer())
	assert.False(t, Validate(2, f, p).Valid)
	f.SetAnswer("turnos", models.ListAnswer("manhã"))
	assert.True(t, Validate(2, f, p).Valid)

	// optional question
	assert.True(t, Validate(3, f, p).Valid)
	// past the end
	assert.True(t, Validate(4, f, p).Valid)
}

func TestValidate_NegativeStep(t *testing.T) {
	r := Validate(-1, anaSilva(), posting())
	assert.False(t, r.Valid)
	assert.Equal(t, MsgInvalidStep, r.FieldErrors["step"])
}

func TestValidateAll(t *testing.T) {
	p := posting()
	f := anaSilva()

	step, r := ValidateAll(f, p)
	assert.Equal(t, 1, step)
	assert.False(t, r.Valid)

	f.SetAnswer("exp", models.TextAnswer("sim"))
	f.SetAnswer("turnos", models.ListAnswer("tarde"))
	step, r = ValidateAll(f, p)
	assert.Equal(t, -1, step)
	assert.True(t, r.Valid)
	assert.Equal(t, 4, StepCount(p))
}
