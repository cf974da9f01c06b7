package models

type QuestionType string

const (
	QuestionText     QuestionType = "text"
	QuestionTextarea QuestionType = "textarea"
	QuestionNumber   QuestionType = "number"
	QuestionSelect   QuestionType = "select"
	QuestionRadio    QuestionType = "radio"
	QuestionCheckbox QuestionType = "checkbox"
)

func (t QuestionType) Valid() bool {
	switch t {
	case QuestionText, QuestionTextarea, QuestionNumber, QuestionSelect, QuestionRadio, QuestionCheckbox:
		return true
	}
	return false
}

// HasOptions reports whether the type is answered from an option list.
func (t QuestionType) HasOptions() bool {
	return t == QuestionSelect || t == QuestionRadio || t == QuestionCheckbox
}

type Question struct {
	ID          string       `json:"id"`
	Type        QuestionType `json:"type"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Required    bool         `json:"required"`
	Options     []string     `json:"options,omitempty"`
}

type JobPosting struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	PositionTitle string     `json:"position_title"`
	Department    string     `json:"department"`
	SalaryMin     *float64   `json:"salary_min,omitempty"`
	SalaryMax     *float64   `json:"salary_max,omitempty"`
	Modality      string     `json:"modality"`
	ContractType  string     `json:"contract_type"`
	Description   string     `json:"description,omitempty"`
	Requirements  string     `json:"requirements,omitempty"`
	Questions     []Question `json:"questions"`
}

// HasQuestion reports whether id is already part of the posting.
func (p *JobPosting) HasQuestion(id string) bool {
	for _, q := range p.Questions {
		if q.ID == id {
			return true
		}
	}
	return false
}

// AppendQuestions adds qs in order, skipping ids already present, and
// returns how many were added.
func (p *JobPosting) AppendQuestions(qs []Question) int {
	added := 0
	for _, q := range qs {
		if q.ID == "" || p.HasQuestion(q.ID) {
			continue
		}
		p.Questions = append(p.Questions, q)
		added++
	}
	return added
}

// Clone copies the question slice so appends do not alias.
func (p JobPosting) Clone() JobPosting {
	out := p
	out.Questions = append([]Question(nil), p.Questions...)
	return out
}

// GenerateQuestionsRequest is the body of POST /questions/generate.
type GenerateQuestionsRequest struct {
	PostingID     string     `json:"posting_id"`
	Title         string     `json:"title"`
	PositionTitle string     `json:"position_title"`
	Department    string     `json:"department"`
	Modality      string     `json:"modality"`
	ContractType  string     `json:"contract_type"`
	Description   string     `json:"description,omitempty"`
	Requirements  string     `json:"requirements,omitempty"`
	BaseQuestions []Question `json:"base_questions"`
}

type GenerateQuestionsResponse struct {
	Questions []Question `json:"questions"`
}
