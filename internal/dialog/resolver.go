// Package dialog implements the multi-turn payment clarification state
// machine that turns a transaction draft into a confirmed set of payment
// facts.
package dialog

import (
	"log/slog"
	"strings"
	"time"

	"github.com/mfigueira/caixinha/internal/extract"
	"github.com/mfigueira/caixinha/internal/model"
)

// Outcome is the result of feeding one message to the state machine.
type Outcome struct {
	// Reply is the next prompt, or a summary, to show the user.
	Reply string
	// Confirmed is set when the user confirmed the draft; the caller must
	// price and persist it.
	Confirmed bool
	// Cancelled is set when the user abandoned the draft.
	Cancelled bool
	// Expired is set when the draft outlived its answer window.
	Expired bool
}

// Terminal reports whether the dialogue is over.
func (o Outcome) Terminal() bool {
	return o.Confirmed || o.Cancelled || o.Expired
}

// Resolver drives drafts through the payment clarification stages.
type Resolver struct {
	logger *slog.Logger
}

// NewResolver creates a Resolver.
func NewResolver(logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{logger: logger}
}

var cancelWords = []string{"cancelar", "cancela", "nao", "deixa pra la", "esquece"}

var confirmWords = []string{"confirmar", "confirma", "confirmado", "sim", "ok", "pode confirmar", "isso", "isso mesmo"}

// Resolve is the entry point: it inspects the original message for explicit
// payment signals and either jumps straight to confirmation or picks the
// first clarification stage.
func (r *Resolver) Resolve(draft *model.TransactionDraft, originalText string) Outcome {
	captureBrand(draft, originalText)

	if n, ok := extract.Installments(originalText); ok && validInstallments(n) {
		draft.InstallmentCount = n
	}

	method, explicit := extract.PaymentMethod(originalText)
	switch {
	case explicit:
		draft.PaymentMethod = method
		return r.advanceAfterMethod(draft)

	case extract.MentionsCard(originalText):
		// "cartao" or "credito" alone does not say at-sight or installments.
		draft.Stage = model.StageAwaitingCardType
		return Outcome{Reply: promptCardType}

	default:
		draft.Stage = model.StageAwaitingPaymentMethod
		return Outcome{Reply: promptPaymentMethod}
	}
}

// HandleInput feeds one user message to the draft's current stage. An
// unrecognized input repeats the stage prompt without advancing; cancel
// synonyms end the dialogue from any awaiting stage.
func (r *Resolver) HandleInput(draft *model.TransactionDraft, text string, now time.Time) Outcome {
	if draft.Expired(now) {
		draft.Stage = model.StageExpired
		r.logger.Info("draft expired during dialogue",
			"owner_id", draft.OwnerID,
			"created_at", draft.CreatedAt)
		return Outcome{Expired: true, Reply: msgExpired}
	}

	normalized := extract.Normalize(text)

	if isCancel(normalized) {
		draft.Stage = model.StageCancelled
		return Outcome{Cancelled: true, Reply: msgCancelled}
	}

	captureBrand(draft, text)

	switch draft.Stage {
	case model.StageAwaitingPaymentMethod:
		return r.handlePaymentMethod(draft, text, normalized)
	case model.StageAwaitingCardType:
		return r.handleCardType(draft, normalized)
	case model.StageAwaitingInstallments:
		return r.handleInstallments(draft, text, normalized)
	case model.StageConfirm:
		return r.handleConfirm(draft, normalized)
	default:
		r.logger.Warn("input for draft in unexpected stage",
			"owner_id", draft.OwnerID,
			"stage", draft.Stage)
		return Outcome{Reply: promptPaymentMethod}
	}
}

func (r *Resolver) handlePaymentMethod(draft *model.TransactionDraft, text, normalized string) Outcome {
	var method model.PaymentMethod
	switch normalized {
	case "1":
		method = model.MethodPix
	case "2":
		method = model.MethodDebito
	case "3":
		method = model.MethodCreditoAvista
	case "4":
		method = model.MethodParcelado
	default:
		m, ok := extract.PaymentMethod(text)
		if !ok {
			return Outcome{Reply: promptPaymentMethod}
		}
		method = m
	}

	draft.PaymentMethod = method
	if n, ok := extract.Installments(text); ok && validInstallments(n) {
		draft.InstallmentCount = n
	}
	return r.advanceAfterMethod(draft)
}

func (r *Resolver) handleCardType(draft *model.TransactionDraft, normalized string) Outcome {
	switch {
	case normalized == "1" || strings.Contains(normalized, "a vista") || containsAny(normalized, "avista"):
		draft.PaymentMethod = model.MethodCreditoAvista
	case normalized == "2" || containsAny(normalized, "parcelado", "parcelar", "parcelas"):
		draft.PaymentMethod = model.MethodParcelado
	default:
		if n, ok := extract.Installments(normalized); ok && validInstallments(n) {
			draft.PaymentMethod = model.MethodParcelado
			draft.InstallmentCount = n
			break
		}
		return Outcome{Reply: promptCardType}
	}
	return r.advanceAfterMethod(draft)
}

func (r *Resolver) handleInstallments(draft *model.TransactionDraft, text, normalized string) Outcome {
	n, ok := extract.Installments(text)
	if !ok {
		if value, isNumber := extract.BareNumber(normalized); isNumber {
			n = int(value.IntPart())
			ok = value.IsInteger()
		}
	}

	if !ok || !validInstallments(n) {
		return Outcome{Reply: promptInstallments}
	}

	draft.InstallmentCount = n
	draft.Stage = model.StageConfirm
	return Outcome{Reply: Summary(draft)}
}

func (r *Resolver) handleConfirm(draft *model.TransactionDraft, normalized string) Outcome {
	if normalized == "1" || matchesAny(normalized, confirmWords) {
		draft.Stage = model.StageConfirmed
		return Outcome{Confirmed: true}
	}
	if normalized == "2" {
		draft.Stage = model.StageCancelled
		return Outcome{Cancelled: true, Reply: msgCancelled}
	}
	// Only confirm or cancel are accepted here.
	return Outcome{Reply: Summary(draft)}
}

// advanceAfterMethod moves the draft to the next stage once a payment method
// is known: installment sales without a valid count still need one, anything
// else is ready for confirmation.
func (r *Resolver) advanceAfterMethod(draft *model.TransactionDraft) Outcome {
	if draft.PaymentMethod == model.MethodParcelado && !validInstallments(draft.InstallmentCount) {
		draft.Stage = model.StageAwaitingInstallments
		return Outcome{Reply: promptInstallments}
	}

	if draft.PaymentMethod != model.MethodParcelado {
		draft.InstallmentCount = 1
	}
	draft.Stage = model.StageConfirm
	return Outcome{Reply: Summary(draft)}
}

func validInstallments(n int) bool {
	return n >= 1 && n <= model.MaxInstallments
}

func isCancel(normalized string) bool {
	return matchesAny(normalized, cancelWords)
}

func matchesAny(normalized string, words []string) bool {
	for _, w := range words {
		if normalized == w {
			return true
		}
	}
	return false
}

func containsAny(normalized string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(normalized, w) {
			return true
		}
	}
	return false
}

// captureBrand stores a recognized card brand mentioned anywhere in the
// dialogue. Unrecognized brand tokens are not captured here; the extractor's
// pass-through only applies when the user is explicitly asked for a brand.
func captureBrand(draft *model.TransactionDraft, text string) {
	normalized := extract.Normalize(text)
	for _, brand := range []model.CardBrand{model.BrandVisa, model.BrandMastercard, model.BrandElo, model.BrandAmex} {
		if strings.Contains(normalized, string(brand)) {
			draft.CardBrand = brand
			return
		}
	}
	if strings.Contains(normalized, "master") {
		draft.CardBrand = model.BrandMastercard
	}
}
