package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mfigueira/caixinha/internal/dialog"
	"github.com/mfigueira/caixinha/internal/model"
	"github.com/mfigueira/caixinha/internal/service"
	"github.com/mfigueira/caixinha/internal/session"
)

// confirmDraft prices and persists a confirmed sale. On persistence failure
// the draft is preserved so the user does not re-enter everything.
func (e *Engine) confirmDraft(ctx context.Context, draft *model.TransactionDraft) (string, error) {
	now := e.now()

	quote, err := e.pricing.Resolve(ctx, service.PricingInput{
		GrossAmount:      draft.Amount,
		PaymentMethod:    draft.PaymentMethod,
		InstallmentCount: draft.InstallmentCount,
		CardBrand:        draft.CardBrand,
		SaleDate:         draft.Date,
	})
	if err != nil {
		e.logger.Error("pricing resolver failed",
			"owner_id", draft.OwnerID,
			"stage", draft.Stage,
			"payment_method", draft.PaymentMethod,
			"error", err)
		draft.Stage = model.StageConfirm
		e.sessions.SetDraft(draft)
		return msgTryAgain, nil
	}

	txn := e.buildTransaction(draft, quote, now)

	if err := e.storage.SaveTransaction(ctx, txn); err != nil {
		e.logger.Error("transaction persist failed",
			"owner_id", draft.OwnerID,
			"stage", draft.Stage,
			"draft_text", draft.OriginalText,
			"error", err)
		draft.Stage = model.StageConfirm
		e.sessions.SetDraft(draft)
		return msgTryAgain, nil
	}

	// The header is committed; an installment batch failure is logged and
	// accepted, never rolled back.
	if len(quote.InstallmentPlan) > 0 {
		installments := installmentRows(txn.ID, quote.InstallmentPlan)
		if err := e.storage.SaveInstallments(ctx, installments); err != nil {
			e.logger.Error("installment batch persist failed, header kept",
				"transaction_id", txn.ID,
				"count", len(installments),
				"error", err)
		}
	}

	e.finishConfirmed(ctx, draft, txn, now)
	return confirmationReply(txn, quote), nil
}

// confirmCost persists a cost directly: saidas have no card pricing and no
// clarification dialogue.
func (e *Engine) confirmCost(ctx context.Context, draft *model.TransactionDraft) (string, error) {
	now := e.now()

	txn := &model.Transaction{
		ID:            uuid.NewString(),
		OwnerID:       draft.OwnerID,
		Kind:          model.KindSaida,
		GrossAmount:   draft.Amount,
		Category:      draft.Category,
		Description:   draft.OriginalText,
		PaymentMethod: draft.PaymentMethod,
		Date:          draft.Date,
		Status:        model.StatusPago,
		CreatedAt:     now,
	}

	if err := e.storage.SaveTransaction(ctx, txn); err != nil {
		e.logger.Error("cost persist failed",
			"owner_id", draft.OwnerID,
			"draft_text", draft.OriginalText,
			"error", err)
		draft.Stage = model.StageAwaitingAmount
		e.sessions.SetDraft(draft)
		return msgTryAgain, nil
	}

	e.finishConfirmed(ctx, draft, txn, now)
	return fmt.Sprintf("Saída de %s registrada em %s. ✅", dialog.FormatBRL(txn.GrossAmount), txn.Category), nil
}

// finishConfirmed runs the shared post-persist side effects: the undo
// buffer, draft cleanup and the semantic memory write. Remember never fails
// the confirmation; it only logs.
func (e *Engine) finishConfirmed(ctx context.Context, draft *model.TransactionDraft, txn *model.Transaction, now time.Time) {
	e.sessions.ClearDraft(draft.OwnerID)
	e.sessions.SetConfirmed(draft.OwnerID, session.Confirmed{
		TransactionID: txn.ID,
		ConfirmedAt:   now,
		Summary:       fmt.Sprintf("%s de %s", txn.Kind, dialog.FormatBRL(txn.GrossAmount)),
	})

	if e.memory != nil {
		intent := classifyIntentFor(txn.Kind)
		metadata := map[string]any{
			"kind":           string(txn.Kind),
			"category":       txn.Category,
			"payment_method": string(txn.PaymentMethod),
		}
		if txn.InstallmentCount > 1 {
			metadata["installments"] = txn.InstallmentCount
		}
		e.memory.Remember(ctx, draft.OriginalText, intent, metadata, e.scope, draft.OwnerID)
	}
}

func (e *Engine) buildTransaction(draft *model.TransactionDraft, quote *service.PricingQuote, now time.Time) *model.Transaction {
	status := model.StatusPago
	if quote.ExpectedSettlementDate.After(now) {
		status = model.StatusAgendado
	}

	settlement := quote.ExpectedSettlementDate
	net := quote.NetAmount
	fee := quote.FeePercentApplied

	return &model.Transaction{
		ID:                uuid.NewString(),
		OwnerID:           draft.OwnerID,
		Kind:              draft.Kind,
		GrossAmount:       quote.GrossAmount,
		NetAmount:         &net,
		FeePercentApplied: &fee,
		SettlementDate:    &settlement,
		Category:          draft.Category,
		Description:       draft.OriginalText,
		ClientName:        draft.ClientName,
		PaymentMethod:     draft.PaymentMethod,
		CardBrand:         draft.CardBrand,
		InstallmentCount:  draft.InstallmentCount,
		Date:              draft.Date,
		Status:            status,
		CreatedAt:         now,
	}
}

// undo deletes the last confirmed transaction while the undo window is open.
func (e *Engine) undo(ctx context.Context, ownerID string) (string, error) {
	confirmed, ok := e.sessions.TakeConfirmed(ownerID, e.now())
	if !ok {
		return msgNothingToUndo, nil
	}

	if err := e.storage.DeleteTransaction(ctx, confirmed.TransactionID); err != nil {
		e.logger.Error("undo delete failed",
			"owner_id", ownerID,
			"transaction_id", confirmed.TransactionID,
			"error", err)
		return msgTryAgain, nil
	}

	return fmt.Sprintf("Desfeito: %s. 🗑️", confirmed.Summary), nil
}

// balance answers a month-to-date summary.
func (e *Engine) balance(ctx context.Context, ownerID string) (string, error) {
	now := e.now()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	summary, err := e.storage.GetBalance(ctx, ownerID, start, now)
	if err != nil {
		e.logger.Error("balance query failed", "owner_id", ownerID, "error", err)
		return msgTryAgain, nil
	}

	return fmt.Sprintf("Resumo do mês:\n📈 Entradas: %s\n📉 Saídas: %s\n💰 Saldo: %s",
		dialog.FormatBRL(summary.Entradas),
		dialog.FormatBRL(summary.Saidas),
		dialog.FormatBRL(summary.Saldo)), nil
}

func installmentRows(transactionID string, plan []service.PlannedInstallment) []model.Installment {
	installments := make([]model.Installment, len(plan))
	for i, p := range plan {
		installments[i] = model.Installment{
			TransactionID:     transactionID,
			SequenceNumber:    p.SequenceNumber,
			GrossAmount:       p.GrossAmount,
			NetAmount:         p.NetAmount,
			DueDate:           p.DueDate,
			FeePercentApplied: p.FeePercentApplied,
		}
	}
	return installments
}

func classifyIntentFor(kind model.EntryKind) string {
	if kind == model.KindSaida {
		return "registrar_saida"
	}
	return "registrar_entrada"
}

func confirmationReply(txn *model.Transaction, quote *service.PricingQuote) string {
	reply := fmt.Sprintf("Entrada de %s registrada em %s. ✅", dialog.FormatBRL(txn.GrossAmount), txn.Category)

	if quote.NetAmount.LessThan(quote.GrossAmount) {
		reply += fmt.Sprintf("\nLíquido após taxas: %s (%s%%).",
			dialog.FormatBRL(quote.NetAmount), quote.FeePercentApplied.StringFixed(2))
	}
	if txn.Status == model.StatusAgendado {
		reply += fmt.Sprintf("\nPrevisão de recebimento: %s.", quote.ExpectedSettlementDate.Format("02/01/2006"))
	}
	if txn.InstallmentCount > 1 {
		reply += fmt.Sprintf("\nParcelado em %dx.", txn.InstallmentCount)
	}

	return reply
}
