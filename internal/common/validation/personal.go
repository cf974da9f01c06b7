package validation

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	MinAge = 16
	MaxAge = 100
)

// Field error messages shown to candidates.
const (
	MsgNameRequired  = "Nome é obrigatório"
	MsgEmailRequired = "E-mail é obrigatório"
	MsgEmailInvalid  = "E-mail inválido"
	MsgPhoneRequired = "Telefone é obrigatório"
	MsgPhoneInvalid  = "Telefone deve ter 10 ou 11 dígitos"
	MsgAgeRequired   = "Idade é obrigatória"
	MsgAgeInvalid    = "Idade deve estar entre 16 e 100 anos"
	MsgCEPRequired   = "CEP é obrigatório"
	MsgCEPInvalid    = "CEP deve estar no formato 00000-000"

	MsgAnswerRequired = "Esta pergunta é obrigatória"
)

var (
	basicEmailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	cepRegex        = regexp.MustCompile(`^\d{5}-?\d{3}$`)
	nonDigitRegex   = regexp.MustCompile(`\D`)
)

// PersonalFields is the personal-data step as typed by the candidate.
type PersonalFields struct {
	Name  string
	Email string
	Phone string
	Age   string
	CEP   string
}

// ValidatePersonal applies the personal-data rules and returns one message
// per failing field, keyed by the field's JSON name. Empty means valid.
func ValidatePersonal(p PersonalFields) map[string]string {
	fieldErrors := make(map[string]string)

	if strings.TrimSpace(p.Name) == "" {
		fieldErrors["name"] = MsgNameRequired
	}

	email := strings.TrimSpace(p.Email)
	switch {
	case email == "":
		fieldErrors["email"] = MsgEmailRequired
	case !ValidateBasicEmail(email):
		fieldErrors["email"] = MsgEmailInvalid
	}

	switch {
	case strings.TrimSpace(p.Phone) == "":
		fieldErrors["phone"] = MsgPhoneRequired
	case !ValidateBrazilianPhone(p.Phone):
		fieldErrors["phone"] = MsgPhoneInvalid
	}

	if strings.TrimSpace(p.Age) == "" {
		fieldErrors["age"] = MsgAgeRequired
	} else if _, ok := ParseAge(p.Age); !ok {
		fieldErrors["age"] = MsgAgeInvalid
	}

	cep := strings.TrimSpace(p.CEP)
	switch {
	case cep == "":
		fieldErrors["cep"] = MsgCEPRequired
	case !ValidateCEP(cep):
		fieldErrors["cep"] = MsgCEPInvalid
	}

	return fieldErrors
}

// ValidateBasicEmail accepts anything shaped like local@domain.tld.
func ValidateBasicEmail(email string) bool {
	return basicEmailRegex.MatchString(email)
}

// Digits strips every non-digit character.
func Digits(s string) string {
	return nonDigitRegex.ReplaceAllString(s, "")
}

// ValidateBrazilianPhone accepts landline (10) and mobile (11) digit counts.
func ValidateBrazilianPhone(phone string) bool {
	n := len(Digits(phone))
	return n == 10 || n == 11
}

// ParseAge parses the typed age and reports whether it is within bounds.
func ParseAge(raw string) (int, bool) {
	age, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, false
	}
	return age, age >= MinAge && age <= MaxAge
}

// ValidateCEP accepts NNNNN-NNN and NNNNNNNN.
func ValidateCEP(cep string) bool {
	return cepRegex.MatchString(cep)
}
