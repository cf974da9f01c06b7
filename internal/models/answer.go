package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// AnswerValue holds either free text or the selected options of a checkbox
// question. The zero value is an absent answer.
type AnswerValue struct {
	text   string
	list   []string
	isList bool
}

func TextAnswer(s string) AnswerValue { return AnswerValue{text: s} }

func ListAnswer(items ...string) AnswerValue {
	return AnswerValue{list: append([]string{}, items...), isList: true}
}

func (a AnswerValue) IsList() bool { return a.isList }
func (a AnswerValue) Text() string { return a.text }
func (a AnswerValue) List() []string { return append([]string(nil), a.list...) }

// IsBlank is true for an absent answer, whitespace-only text or an empty list.
func (a AnswerValue) IsBlank() bool {
	if a.isList {
		return len(a.list) == 0
	}
	return strings.TrimSpace(a.text) == ""
}

// String renders the answer for prompts and logs.
func (a AnswerValue) String() string {
	if a.isList {
		return strings.Join(a.list, ", ")
	}
	return a.text
}

func (a AnswerValue) Clone() AnswerValue {
	if a.isList {
		return ListAnswer(a.list...)
	}
	return a
}

func (a AnswerValue) MarshalJSON() ([]byte, error) {
	if a.isList {
		if a.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(a.list)
	}
	return json.Marshal(a.text)
}

func (a *AnswerValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*a = AnswerValue{}
		return nil
	case len(data) > 0 && data[0] == '[':
		var items []string
		if err := json.Unmarshal(data, &items); err != nil {
			return fmt.Errorf("answer list: %w", err)
		}
		*a = ListAnswer(items...)
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = TextAnswer(s)
		return nil
	default:
		// number questions may arrive unquoted
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("answer must be a string or a list of strings: %s", string(data))
		}
		*a = TextAnswer(n.String())
		return nil
	}
}
