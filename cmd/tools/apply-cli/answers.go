package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"application-workflow/internal/models"

	"gopkg.in/yaml.v3"
)

// AnswerFile is the YAML document a candidate fills in ahead of time.
//
//	posting_id: 2f6c...
//	candidate:
//	  name: Ana Silva
//	  email: ana@x.com
//	  phone: "11988887777"
//	  age: 30
//	  cep: 13050-120
//	answers:
//	  exp: Dois anos como caixa
//	  turnos: [manhã, tarde]
type AnswerFile struct {
	PostingID string                 `yaml:"posting_id"`
	Candidate Candidate              `yaml:"candidate"`
	Answers   map[string]interface{} `yaml:"answers"`
}

type Candidate struct {
	Name      string `yaml:"name"`
	Email     string `yaml:"email"`
	Phone     string `yaml:"phone"`
	Age       string `yaml:"age"`
	CEP       string `yaml:"cep"`
	Address   string `yaml:"address"`
	WhatsApp  string `yaml:"whatsapp"`
	Instagram string `yaml:"instagram"`
	LinkedIn  string `yaml:"linkedin"`
}

func readAnswerFile(path string) (*AnswerFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return decodeAnswerFile(f)
}

func decodeAnswerFile(r io.Reader) (*AnswerFile, error) {
	var af AnswerFile
	if err := yaml.NewDecoder(r).Decode(&af); err != nil && err != io.EOF {
		return nil, fmt.Errorf("parse answers: %w", err)
	}
	return &af, nil
}

// Apply copies the file's contents onto form. Fields left out of the file
// keep whatever the restored draft had.
func (af *AnswerFile) Apply(form *models.FormState) error {
	c := af.Candidate
	set := func(dst *string, v string) {
		if strings.TrimSpace(v) != "" {
			*dst = v
		}
	}
	set(&form.Name, c.Name)
	set(&form.Email, c.Email)
	set(&form.Phone, c.Phone)
	set(&form.Age, c.Age)
	set(&form.CEP, c.CEP)
	set(&form.Address, c.Address)
	set(&form.WhatsApp, c.WhatsApp)
	set(&form.Instagram, c.Instagram)
	set(&form.LinkedIn, c.LinkedIn)

	for id, raw := range af.Answers {
		v, err := toAnswer(raw)
		if err != nil {
			return fmt.Errorf("answer %q: %w", id, err)
		}
		form.SetAnswer(id, v)
	}
	return nil
}

func toAnswer(raw interface{}) (models.AnswerValue, error) {
	switch v := raw.(type) {
	case nil:
		return models.AnswerValue{}, nil
	case string:
		return models.TextAnswer(v), nil
	case []interface{}:
		items := make([]string, 0, len(v))
		for _, item := range v {
			switch item.(type) {
			case map[string]interface{}, []interface{}:
				return models.AnswerValue{}, fmt.Errorf("list items must be scalars")
			}
			items = append(items, fmt.Sprint(item))
		}
		return models.ListAnswer(items...), nil
	case map[string]interface{}:
		return models.AnswerValue{}, fmt.Errorf("must be text or a list")
	default:
		return models.TextAnswer(fmt.Sprint(v)), nil
	}
}
