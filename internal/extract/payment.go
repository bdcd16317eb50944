package extract

import (
	"strings"

	"github.com/mfigueira/caixinha/internal/model"
)

// PaymentMethod maps free text to the closed payment-method enum. It only
// answers when the text carries an unambiguous signal; a bare mention of
// "cartao" or "credito" is ambiguous and left for the dialogue to resolve.
func PaymentMethod(text string) (model.PaymentMethod, bool) {
	t := Normalize(text)

	switch {
	case containsWord(t, "pix"):
		return model.MethodPix, true
	case containsWord(t, "dinheiro") || containsWord(t, "especie"):
		return model.MethodDinheiro, true
	case containsWord(t, "debito"):
		return model.MethodDebito, true
	case containsWord(t, "parcelado") || containsWord(t, "parcelar") || containsWord(t, "parcelas"):
		return model.MethodParcelado, true
	}

	if _, ok := Installments(text); ok {
		return model.MethodParcelado, true
	}

	if strings.Contains(t, "a vista") && (containsWord(t, "credito") || containsWord(t, "cartao")) {
		return model.MethodCreditoAvista, true
	}

	return "", false
}

// MentionsCard reports whether the text talks about a card without saying
// whether the sale is at-sight or in installments.
func MentionsCard(text string) bool {
	t := Normalize(text)
	return containsWord(t, "cartao") || containsWord(t, "credito")
}

// CardBrand normalizes a brand mention. Unrecognized tokens pass through
// unchanged so new brands do not get silently dropped.
func CardBrand(text string) model.CardBrand {
	t := Normalize(text)
	switch {
	case containsWord(t, "visa"):
		return model.BrandVisa
	case containsWord(t, "master") || containsWord(t, "mastercard"):
		return model.BrandMastercard
	case containsWord(t, "elo"):
		return model.BrandElo
	case containsWord(t, "amex") || strings.Contains(t, "american express"):
		return model.BrandAmex
	}
	return model.CardBrand(t)
}

// containsWord reports whether t contains word bounded by non-letters.
func containsWord(t, word string) bool {
	idx := 0
	for {
		i := strings.Index(t[idx:], word)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(word)
		beforeOK := start == 0 || !isLetter(t[start-1])
		afterOK := end == len(t) || !isLetter(t[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
