// Package model defines the core domain models used throughout the application.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryKind distinguishes money coming in from money going out.
type EntryKind string

// Entry kind constants.
const (
	KindEntrada EntryKind = "entrada"
	KindSaida   EntryKind = "saida"
)

// PaymentMethod is the closed set of payment methods the assistant understands.
type PaymentMethod string

// Payment method constants.
const (
	MethodPix           PaymentMethod = "pix"
	MethodDinheiro      PaymentMethod = "dinheiro"
	MethodDebito        PaymentMethod = "debito"
	MethodCreditoAvista PaymentMethod = "credito_avista"
	MethodParcelado     PaymentMethod = "parcelado"
)

// Valid reports whether m is one of the known payment methods.
func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodPix, MethodDinheiro, MethodDebito, MethodCreditoAvista, MethodParcelado:
		return true
	}
	return false
}

// CardBrand identifies a card network.
type CardBrand string

// Known card brands. Unrecognized brands are carried through as-is.
const (
	BrandVisa       CardBrand = "visa"
	BrandMastercard CardBrand = "mastercard"
	BrandElo        CardBrand = "elo"
	BrandAmex       CardBrand = "amex"
)

// TransactionStatus indicates whether the money has already settled.
type TransactionStatus string

// Transaction status constants.
const (
	StatusPago     TransactionStatus = "pago"
	StatusAgendado TransactionStatus = "agendado"
)

// MaxInstallments is the largest installment count a sale may carry.
const MaxInstallments = 12

// Transaction is a persisted financial record, header row of a sale or cost.
type Transaction struct {
	Date               time.Time
	SettlementDate     *time.Time
	ID                 string
	OwnerID            string
	Kind               EntryKind
	Category           string
	Description        string
	ClientName         string
	PaymentMethod      PaymentMethod
	CardBrand          CardBrand
	Status             TransactionStatus
	GrossAmount        decimal.Decimal
	NetAmount          *decimal.Decimal
	FeePercentApplied  *decimal.Decimal
	InstallmentCount   int
	CreatedAt          time.Time
}

// Installment is one row of an installment plan belonging to a Transaction.
type Installment struct {
	DueDate           time.Time
	TransactionID     string
	SequenceNumber    int
	GrossAmount       decimal.Decimal
	NetAmount         decimal.Decimal
	FeePercentApplied decimal.Decimal
}
