package main

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"application-workflow/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const anaYAML = `
posting_id: posting-1
candidate:
  name: Ana Silva
  email: ana@x.com
  phone: "11988887777"
  age: 30
  cep: 13050-120
answers:
  exp: Dois anos como caixa
  turnos: [manhã, tarde]
  anos: 2
`

func TestDecodeAnswerFile(t *testing.T) {
	af, err := decodeAnswerFile(strings.NewReader(anaYAML))
	require.NoError(t, err)
	assert.Equal(t, "posting-1", af.PostingID)
	assert.Equal(t, "30", af.Candidate.Age)

	form := models.FormState{Address: "Rua A, 10", Name: "Rascunho"}
	require.NoError(t, af.Apply(&form))
	assert.Equal(t, "Ana Silva", form.Name)
	assert.Equal(t, "Rua A, 10", form.Address)
	assert.Equal(t, "13050-120", form.CEP)
	assert.Equal(t, "Dois anos como caixa", form.Responses["exp"].Text())
	assert.Equal(t, []string{"manhã", "tarde"}, form.Responses["turnos"].List())
	assert.Equal(t, "2", form.Responses["anos"].Text())
}

func TestApply_RejectsNestedAnswers(t *testing.T) {
	af, err := decodeAnswerFile(strings.NewReader("answers:\n  exp:\n    a: b\n"))
	require.NoError(t, err)
	assert.Error(t, af.Apply(&models.FormState{}))
}

func TestDecodeAnswerFile_Empty(t *testing.T) {
	af, err := decodeAnswerFile(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, af.PostingID)
}

func TestPrompt(t *testing.T) {
	var out bytes.Buffer
	in := bufio.NewReader(strings.NewReader("manhã, noite ,\nSim\n"))

	v, err := prompt(in, &out, models.Question{ID: "turnos", Type: models.QuestionCheckbox, Title: "Turnos", Options: []string{"manhã", "tarde", "noite"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"manhã", "noite"}, v.List())
	assert.Contains(t, out.String(), "manhã | tarde | noite")

	v, err = prompt(in, &out, models.Question{ID: "sab", Type: models.QuestionRadio, Title: "Sábados?"})
	require.NoError(t, err)
	assert.Equal(t, "Sim", v.Text())
}
