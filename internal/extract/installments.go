package extract

import (
	"regexp"
	"strconv"
)

var installmentsRe = regexp.MustCompile(`(?:^|\s)(?:em\s+)?(\d{1,2})\s*x(?:\s|$|[.,!?])`)

// Installments matches "3x", "em 3x" and friends, returning the count. The
// digits matched here are excluded from monetary extraction, so the same
// token is never read as both a count and an amount.
func Installments(text string) (int, bool) {
	m := installmentsRe.FindStringSubmatch(Normalize(text))
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}
