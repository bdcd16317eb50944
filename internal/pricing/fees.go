// Package pricing resolves net amounts, card fees and settlement schedules
// for confirmed sales. The conversation core treats any resolver as
// authoritative and persists its quote verbatim; this package provides the
// built-in fee-table implementation.
package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mfigueira/caixinha/internal/model"
	"github.com/mfigueira/caixinha/internal/service"
)

// Settlement modes reported in quotes.
const (
	ModeImediato  = "imediato"
	ModeD1        = "d1"
	ModeD30       = "d30"
	ModeParcelado = "parcelado"
)

// FeeConfig holds the fee percentages applied per payment method. The
// installment fee grows linearly with the count beyond the first.
type FeeConfig struct {
	DebitPercent            decimal.Decimal `json:"debit_percent"`
	CreditPercent           decimal.Decimal `json:"credit_percent"`
	InstallmentBasePercent  decimal.Decimal `json:"installment_base_percent"`
	InstallmentStepPercent  decimal.Decimal `json:"installment_step_percent"`
	SettlementDaysPerParcel int             `json:"settlement_days_per_parcel"`
}

// DefaultFeeConfig returns typical Brazilian acquirer rates.
func DefaultFeeConfig() FeeConfig {
	return FeeConfig{
		DebitPercent:            decimal.NewFromFloat(1.99),
		CreditPercent:           decimal.NewFromFloat(3.19),
		InstallmentBasePercent:  decimal.NewFromFloat(3.79),
		InstallmentStepPercent:  decimal.NewFromFloat(0.30),
		SettlementDaysPerParcel: 30,
	}
}

// FeeTable implements service.PricingResolver with a static fee config.
type FeeTable struct {
	config FeeConfig
}

// NewFeeTable creates a fee-table resolver.
func NewFeeTable(config FeeConfig) *FeeTable {
	if config.SettlementDaysPerParcel == 0 {
		config.SettlementDaysPerParcel = 30
	}
	return &FeeTable{config: config}
}

// Resolve computes the quote for one sale.
func (f *FeeTable) Resolve(_ context.Context, input service.PricingInput) (*service.PricingQuote, error) {
	if input.GrossAmount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("gross amount must be positive, got %s", input.GrossAmount)
	}

	count := input.InstallmentCount
	if count < 1 {
		count = 1
	}
	if count > model.MaxInstallments {
		return nil, fmt.Errorf("installment count %d exceeds maximum %d", count, model.MaxInstallments)
	}

	feePercent, mode, settlementDays := f.terms(input.PaymentMethod, count)

	netAmount := applyFee(input.GrossAmount, feePercent)
	settlementDate := input.SaleDate.AddDate(0, 0, settlementDays)

	snapshot, err := json.Marshal(f.config)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot fee config: %w", err)
	}

	quote := &service.PricingQuote{
		GrossAmount:            input.GrossAmount,
		NetAmount:              netAmount,
		FeePercentApplied:      feePercent,
		SettlementMode:         mode,
		ExpectedSettlementDate: settlementDate,
		FeeRuleSnapshot:        string(snapshot),
	}

	if input.PaymentMethod == model.MethodParcelado {
		quote.InstallmentPlan = f.plan(input.SaleDate, input.GrossAmount, feePercent, count)
		quote.ExpectedSettlementDate = quote.InstallmentPlan[0].DueDate
	}

	return quote, nil
}

// terms returns fee percent, settlement mode and days until settlement.
func (f *FeeTable) terms(method model.PaymentMethod, count int) (decimal.Decimal, string, int) {
	switch method {
	case model.MethodPix, model.MethodDinheiro:
		return decimal.Zero, ModeImediato, 0
	case model.MethodDebito:
		return f.config.DebitPercent, ModeD1, 1
	case model.MethodCreditoAvista:
		return f.config.CreditPercent, ModeD30, 30
	case model.MethodParcelado:
		extra := f.config.InstallmentStepPercent.Mul(decimal.NewFromInt(int64(count - 1)))
		return f.config.InstallmentBasePercent.Add(extra), ModeParcelado, f.config.SettlementDaysPerParcel
	default:
		return decimal.Zero, ModeImediato, 0
	}
}

// plan splits the sale into count installments. Gross is divided evenly at
// two decimal places with the rounding remainder carried by the first
// installment, so the rows always sum back to the gross amount.
func (f *FeeTable) plan(saleDate time.Time, gross, feePercent decimal.Decimal, count int) []service.PlannedInstallment {
	parcels := make([]service.PlannedInstallment, count)

	each := gross.Div(decimal.NewFromInt(int64(count))).RoundBank(2)
	first := gross.Sub(each.Mul(decimal.NewFromInt(int64(count - 1))))

	for i := 0; i < count; i++ {
		parcelGross := each
		if i == 0 {
			parcelGross = first
		}

		parcels[i] = service.PlannedInstallment{
			SequenceNumber:    i + 1,
			GrossAmount:       parcelGross,
			NetAmount:         applyFee(parcelGross, feePercent),
			FeePercentApplied: feePercent,
			DueDate:           saleDate.AddDate(0, 0, f.config.SettlementDaysPerParcel*(i+1)),
		}
	}

	return parcels
}

// applyFee deducts a percentage fee, rounded to cents.
func applyFee(gross, feePercent decimal.Decimal) decimal.Decimal {
	if feePercent.IsZero() {
		return gross
	}
	fee := gross.Mul(feePercent).Div(decimal.NewFromInt(100)).RoundBank(2)
	return gross.Sub(fee)
}
