package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DraftStage is a step in the payment clarification dialogue.
type DraftStage string

// Draft stages. The awaiting stages prompt the user; the last three are
// terminal. Transitions only move toward a terminal stage, except that an
// unrecognized input repeats the current prompt without advancing.
const (
	// StageAwaitingAmount precedes the payment dialogue: the intent was
	// transaction-shaped but no monetary value could be extracted.
	StageAwaitingAmount DraftStage = "awaiting_amount"

	StageAwaitingPaymentMethod DraftStage = "awaiting_payment_method"
	StageAwaitingCardType      DraftStage = "awaiting_card_type"
	StageAwaitingInstallments  DraftStage = "awaiting_installments"
	StageConfirm               DraftStage = "confirm"
	StageConfirmed             DraftStage = "confirmed"
	StageCancelled             DraftStage = "cancelled"
	StageExpired               DraftStage = "expired"
)

// Terminal reports whether the stage ends the dialogue.
func (s DraftStage) Terminal() bool {
	return s == StageConfirmed || s == StageCancelled || s == StageExpired
}

// DraftTTL is how long a draft stays answerable, anchored at creation time.
// A long clarification exchange can time the whole flow out.
const DraftTTL = 5 * time.Minute

// TransactionDraft is a transient transaction awaiting user confirmation.
// At most one draft exists per owner at a time.
type TransactionDraft struct {
	CreatedAt        time.Time
	Date             time.Time
	OwnerID          string
	OriginalText     string
	Category         string
	Description      string
	ClientName       string
	Kind             EntryKind
	PaymentMethod    PaymentMethod
	CardBrand        CardBrand
	Stage            DraftStage
	Amount           decimal.Decimal
	InstallmentCount int
}

// Expired reports whether the draft has outlived its answer window at now.
func (d *TransactionDraft) Expired(now time.Time) bool {
	return now.Sub(d.CreatedAt) > DraftTTL
}
