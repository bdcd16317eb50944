// Package extract provides pure text extractors for monetary values,
// installment counts, payment signals and client names.
package extract

import "strings"

var diacriticReplacer = strings.NewReplacer(
	"á", "a", "à", "a", "â", "a", "ã", "a", "ä", "a",
	"é", "e", "è", "e", "ê", "e", "ë", "e",
	"í", "i", "ì", "i", "î", "i", "ï", "i",
	"ó", "o", "ò", "o", "ô", "o", "õ", "o", "ö", "o",
	"ú", "u", "ù", "u", "û", "u", "ü", "u",
	"ç", "c", "ñ", "n",
)

// Normalize lowercases text and strips Portuguese diacritics so keyword
// matching does not depend on how the user typed accents.
func Normalize(text string) string {
	return diacriticReplacer.Replace(strings.ToLower(strings.TrimSpace(text)))
}
