package extract

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	currencyAmountRe = regexp.MustCompile(`(?i)r\$\s*(\d{1,3}(?:\.\d{3})+(?:,\d{1,2})?|\d+(?:[.,]\d{1,2})?)`)
	bareNumberRe     = regexp.MustCompile(`\d+(?:[.,]\d+)?`)
	bareNumberOnlyRe = regexp.MustCompile(`^\d+(?:[.,]\d{1,2})?$`)
)

// Money scans text for the primary monetary value. Currency-prefixed numbers
// take precedence over bare numbers; among qualifying candidates the maximum
// wins. Returns false when nothing qualifies.
func Money(text string) (decimal.Decimal, bool) {
	normalized := Normalize(text)

	if candidates := currencyCandidates(normalized); len(candidates) > 0 {
		return maxAmount(candidates), true
	}

	if candidates := bareCandidates(normalized); len(candidates) > 0 {
		return maxAmount(candidates), true
	}

	return decimal.Zero, false
}

// BareNumber reports whether the entire trimmed message is a single
// optionally-decimal number, and its value.
func BareNumber(text string) (decimal.Decimal, bool) {
	trimmed := strings.TrimSpace(text)
	if !bareNumberOnlyRe.MatchString(trimmed) {
		return decimal.Zero, false
	}
	return parseAmount(trimmed)
}

func currencyCandidates(text string) []decimal.Decimal {
	var out []decimal.Decimal
	for _, m := range currencyAmountRe.FindAllStringSubmatch(text, -1) {
		if v, ok := parseAmount(m[1]); ok {
			out = append(out, v)
		}
	}
	return out
}

func bareCandidates(text string) []decimal.Decimal {
	var out []decimal.Decimal
	for _, loc := range bareNumberRe.FindAllStringIndex(text, -1) {
		token := text[loc[0]:loc[1]]
		if excludedNumber(text, loc[0], loc[1], token) {
			continue
		}
		if v, ok := parseAmount(token); ok {
			out = append(out, v)
		}
	}
	return out
}

// excludedNumber filters digit runs that are not money: installment markers,
// date fragments, years inside dates, and long ID-like runs.
func excludedNumber(text string, start, end int, token string) bool {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, token)
	if len(digits) >= 7 {
		return true
	}

	after := text[end:]
	before := text[:start]

	// "3x" or "3 x" marks installments, not an amount.
	trimmedAfter := strings.TrimLeft(after, " ")
	if strings.HasPrefix(trimmedAfter, "x") {
		return true
	}

	// Numbers glued to date separators: 12/05, 12-05.
	if strings.HasPrefix(after, "/") || strings.HasPrefix(after, "-") {
		return true
	}
	if strings.HasSuffix(before, "/") || strings.HasSuffix(before, "-") {
		return true
	}

	// "dia 12", "12 de maio".
	if hasSuffixWord(before, "dia") {
		return true
	}
	if hasPrefixWord(trimmedAfter, "de") {
		return true
	}
	if hasSuffixWord(before, "de") && looksLikeYear(digits) {
		return true
	}

	return false
}

func looksLikeYear(digits string) bool {
	if len(digits) != 4 {
		return false
	}
	return digits[0] == '1' || digits[0] == '2'
}

func hasSuffixWord(s, word string) bool {
	trimmed := strings.TrimRight(s, " ")
	if !strings.HasSuffix(trimmed, word) {
		return false
	}
	rest := trimmed[:len(trimmed)-len(word)]
	return rest == "" || strings.HasSuffix(rest, " ")
}

func hasPrefixWord(s, word string) bool {
	if !strings.HasPrefix(s, word) {
		return false
	}
	rest := s[len(word):]
	return rest == "" || strings.HasPrefix(rest, " ")
}

// parseAmount reads Brazilian-formatted numbers: "1.500,00", "2800", "49,9".
func parseAmount(token string) (decimal.Decimal, bool) {
	cleaned := token
	if strings.Contains(cleaned, ",") {
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	} else if dot := strings.Index(cleaned, "."); dot >= 0 {
		// A lone dot followed by exactly three digits is a thousands
		// separator ("1.500"), otherwise a decimal point ("49.9").
		if len(cleaned)-dot-1 == 3 && strings.Count(cleaned, ".") == 1 && len(cleaned) > 4 {
			cleaned = strings.ReplaceAll(cleaned, ".", "")
		}
	}

	v, err := decimal.NewFromString(cleaned)
	if err != nil || v.IsNegative() {
		return decimal.Zero, false
	}
	return v, true
}

func maxAmount(candidates []decimal.Decimal) decimal.Decimal {
	max := candidates[0]
	for _, c := range candidates[1:] {
		if c.GreaterThan(max) {
			max = c
		}
	}
	return max
}
