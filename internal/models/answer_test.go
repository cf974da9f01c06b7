package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnswerValue_JSONShapes(t *testing.T) {
	form := FormState{
		Name: "Ana Silva",
		Responses: map[string]AnswerValue{
			"q1": TextAnswer("Gosto de atender pessoas"),
			"q2": ListAnswer("manhã", "tarde"),
		},
	}

	data, err := json.Marshal(form)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"q1":"Gosto de atender pessoas"`)
	assert.Contains(t, string(data), `"q2":["manhã","tarde"]`)

	var decoded FormState
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, form.Responses, decoded.Responses)
	assert.False(t, decoded.Responses["q1"].IsList())
	assert.True(t, decoded.Responses["q2"].IsList())
}

func TestAnswerValue_UnmarshalLenient(t *testing.T) {
	var answers map[string]AnswerValue
	require.NoError(t, json.Unmarshal([]byte(`{"a": null, "b": 5, "c": []}`), &answers))

	assert.True(t, answers["a"].IsBlank())
	assert.Equal(t, "5", answers["b"].Text())
	assert.True(t, answers["c"].IsList())
	assert.True(t, answers["c"].IsBlank())

	var bad AnswerValue
	assert.Error(t, json.Unmarshal([]byte(`{"x": 1}`), &bad))
}

func TestAnswerValue_IsBlank(t *testing.T) {
	assert.True(t, AnswerValue{}.IsBlank())
	assert.True(t, TextAnswer("   ").IsBlank())
	assert.True(t, ListAnswer().IsBlank())
	assert.False(t, TextAnswer("x").IsBlank())
	assert.False(t, ListAnswer("a").IsBlank())
}

func TestAnswerValue_CloneDoesNotAlias(t *testing.T) {
	items := []string{"a", "b"}
	original := ListAnswer(items...)
	items[0] = "changed"

	clone := original.Clone()
	assert.Equal(t, []string{"a", "b"}, clone.List())

	list := clone.List()
	list[0] = "z"
	assert.Equal(t, []string{"a", "b"}, clone.List())
}

func TestJobPosting_AppendQuestions(t *testing.T) {
	p := JobPosting{Questions: []Question{{ID: "q1"}, {ID: "q2"}}}

	added := p.AppendQuestions([]Question{{ID: "q2"}, {ID: "ai_1"}, {ID: ""}, {ID: "ai_2"}})
	assert.Equal(t, 2, added)

	ids := make([]string, 0, len(p.Questions))
	for _, q := range p.Questions {
		ids = append(ids, q.ID)
	}
	assert.Equal(t, []string{"q1", "q2", "ai_1", "ai_2"}, ids)
}

func TestFormState_HasContact(t *testing.T) {
	assert.False(t, FormState{Age: "30", CEP: "13050-120"}.HasContact())
	assert.True(t, FormState{WhatsApp: "11999990000"}.HasContact())
	assert.False(t, FormState{Name: "  "}.HasContact())
}

func TestDraftRecord_FormState(t *testing.T) {
	name := "Ana"
	d := DraftRecord{
		Email:     "ana@x.com",
		Name:      &name,
		Responses: map[string]AnswerValue{"q1": TextAnswer("x")},
	}
	f := d.FormState()
	assert.Equal(t, "Ana", f.Name)
	assert.Equal(t, "", f.Phone)
	assert.Equal(t, "ana@x.com", f.Email)
	assert.Equal(t, "x", f.Responses["q1"].Text())
}
