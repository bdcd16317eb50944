package extract

import (
	"strings"
	"unicode"
)

// roleWords are generic nouns users type in place of an actual name.
var roleWords = map[string]struct{}{
	"cliente":      {},
	"paciente":     {},
	"procedimento": {},
	"atendimento":  {},
	"pessoa":       {},
	"moca":         {},
	"mulher":       {},
	"homem":        {},
	"fulano":       {},
	"fulana":       {},
}

// procedureWords are service names that show up where a client name is
// expected. A candidate containing one is a procedure, not a person.
var procedureWords = []string{
	"botox",
	"preenchimento",
	"limpeza",
	"peeling",
	"massagem",
	"drenagem",
	"depilacao",
	"sobrancelha",
	"manicure",
	"pedicure",
	"escova",
	"corte",
	"progressiva",
	"microagulhamento",
	"harmonizacao",
}

// ClientName sanitizes a candidate client name. Returns "" when the
// candidate is a role word, contains a procedure keyword or digits, or has
// no alphabetic character; the caller substitutes a generic placeholder.
func ClientName(candidate string) string {
	trimmed := strings.TrimFunc(candidate, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if trimmed == "" {
		return ""
	}

	normalized := Normalize(trimmed)
	if _, ok := roleWords[normalized]; ok {
		return ""
	}
	for _, p := range procedureWords {
		if strings.Contains(normalized, p) {
			return ""
		}
	}

	hasAlpha := false
	for _, r := range trimmed {
		if unicode.IsDigit(r) {
			return ""
		}
		if unicode.IsLetter(r) {
			hasAlpha = true
		}
	}
	if !hasAlpha {
		return ""
	}

	return trimmed
}

// IsProcedureWord reports whether the normalized token names a known
// procedure.
func IsProcedureWord(token string) bool {
	t := Normalize(token)
	for _, p := range procedureWords {
		if t == p {
			return true
		}
	}
	return false
}
