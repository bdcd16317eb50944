package engine

import (
	"context"
	"fmt"

	"github.com/mfigueira/caixinha/internal/dialog"
	"github.com/mfigueira/caixinha/internal/extract"
	"github.com/mfigueira/caixinha/internal/model"
	"github.com/mfigueira/caixinha/internal/service"
	"github.com/mfigueira/caixinha/internal/session"
)

// stageEdit stages an amount correction against the last confirmed
// transaction. The change only lands after an explicit confirmation.
func (e *Engine) stageEdit(ownerID, text string) (string, error) {
	now := e.now()

	confirmed, ok := e.sessions.TakeConfirmed(ownerID, now)
	if !ok {
		return msgNothingToEdit, nil
	}
	// Peek, don't consume: the undo buffer survives an edit request.
	e.sessions.SetConfirmed(ownerID, confirmed)

	amount, found := extract.Money(text)
	if !found {
		return msgAskEditAmount, nil
	}

	e.sessions.SetPendingEdit(ownerID, session.PendingEdit{
		TransactionID: confirmed.TransactionID,
		Field:         "amount",
		Value:         amount.String(),
		CreatedAt:     now,
	})

	return fmt.Sprintf("Alterar o valor de %s para %s? Responda \"confirmar\" ou \"cancelar\".",
		confirmed.Summary, dialog.FormatBRL(amount)), nil
}

// applyEdit rewrites the edited transaction in place. The rewrite is a single
// storage operation: a failure leaves the stored row exactly as it was, and
// the installment plan is re-resolved so its rows keep matching the header.
func (e *Engine) applyEdit(ctx context.Context, ownerID string, edit session.PendingEdit) (string, error) {
	txn, err := e.storage.GetTransactionByID(ctx, edit.TransactionID)
	if err != nil {
		e.logger.Error("edit target load failed",
			"owner_id", ownerID,
			"transaction_id", edit.TransactionID,
			"error", err)
		return msgTryAgain, nil
	}

	amount, ok := extract.Money(edit.Value)
	if !ok {
		return msgTryAgain, nil
	}

	txn.GrossAmount = amount
	txn.NetAmount = nil
	txn.FeePercentApplied = nil
	txn.SettlementDate = nil

	var installments []model.Installment
	if txn.Kind == model.KindEntrada {
		quote, err := e.pricing.Resolve(ctx, service.PricingInput{
			GrossAmount:      amount,
			PaymentMethod:    txn.PaymentMethod,
			InstallmentCount: txn.InstallmentCount,
			CardBrand:        txn.CardBrand,
			SaleDate:         txn.Date,
		})
		if err != nil {
			e.logger.Error("edit repricing failed",
				"transaction_id", txn.ID,
				"payment_method", txn.PaymentMethod,
				"error", err)
			return msgTryAgain, nil
		}

		net := quote.NetAmount
		fee := quote.FeePercentApplied
		settlement := quote.ExpectedSettlementDate
		txn.NetAmount = &net
		txn.FeePercentApplied = &fee
		txn.SettlementDate = &settlement
		installments = installmentRows(txn.ID, quote.InstallmentPlan)
	}

	if err := e.storage.UpdateTransaction(ctx, txn, installments); err != nil {
		e.logger.Error("edit rewrite failed",
			"transaction_id", txn.ID,
			"error", err)
		return msgTryAgain, nil
	}

	e.sessions.SetConfirmed(ownerID, session.Confirmed{
		TransactionID: txn.ID,
		ConfirmedAt:   e.now(),
		Summary:       fmt.Sprintf("%s de %s", txn.Kind, dialog.FormatBRL(txn.GrossAmount)),
	})

	return fmt.Sprintf("Valor atualizado para %s. ✅", dialog.FormatBRL(txn.GrossAmount)), nil
}
