package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfigueira/caixinha/internal/common"
	"github.com/mfigueira/caixinha/internal/model"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))
	t.Cleanup(func() { _ = store.Close() })

	return store
}

// newLegacyStorage creates a database deployed at the baseline schema: no
// pricing columns on transactions, no net amount on installments.
func newLegacyStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "legacy.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	queries := []string{
		`CREATE TABLE transactions (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			gross_amount TEXT NOT NULL,
			category TEXT,
			description TEXT,
			client_name TEXT,
			payment_method TEXT,
			date DATETIME NOT NULL,
			status TEXT NOT NULL DEFAULT 'pago',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE installments (
			transaction_id TEXT NOT NULL,
			sequence_number INTEGER NOT NULL,
			gross_amount TEXT NOT NULL,
			due_date DATETIME NOT NULL,
			PRIMARY KEY (transaction_id, sequence_number)
		)`,
	}
	for _, q := range queries {
		_, err := store.db.Exec(q)
		require.NoError(t, err)
	}

	return store
}

func sampleTransaction(id string) *model.Transaction {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	net := decimal.RequireFromString("2677.08")
	fee := decimal.RequireFromString("4.39")
	settlement := now.AddDate(0, 0, 30)

	return &model.Transaction{
		ID:                id,
		OwnerID:           "owner-1",
		Kind:              model.KindEntrada,
		GrossAmount:       decimal.NewFromInt(2800),
		NetAmount:         &net,
		FeePercentApplied: &fee,
		SettlementDate:    &settlement,
		Category:          "Botox",
		Description:       "Botox 2800 3x",
		ClientName:        "Juliana",
		PaymentMethod:     model.MethodParcelado,
		CardBrand:         model.BrandVisa,
		InstallmentCount:  3,
		Date:              now,
		Status:            model.StatusAgendado,
		CreatedAt:         now,
	}
}

func TestSaveAndGetTransaction(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)

	txn := sampleTransaction("tx-1")
	require.NoError(t, store.SaveTransaction(ctx, txn))

	got, err := store.GetTransactionByID(ctx, "tx-1")
	require.NoError(t, err)

	assert.Equal(t, txn.OwnerID, got.OwnerID)
	assert.Equal(t, txn.Kind, got.Kind)
	assert.True(t, got.GrossAmount.Equal(txn.GrossAmount))
	require.NotNil(t, got.NetAmount)
	assert.True(t, got.NetAmount.Equal(*txn.NetAmount))
	require.NotNil(t, got.FeePercentApplied)
	assert.True(t, got.FeePercentApplied.Equal(*txn.FeePercentApplied))
	require.NotNil(t, got.SettlementDate)
	assert.Equal(t, txn.InstallmentCount, got.InstallmentCount)
	assert.Equal(t, txn.CardBrand, got.CardBrand)
	assert.Equal(t, txn.Status, got.Status)
}

func TestGetTransactionNotFound(t *testing.T) {
	store := newTestStorage(t)

	_, err := store.GetTransactionByID(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestDeleteTransaction(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)

	txn := sampleTransaction("tx-del")
	require.NoError(t, store.SaveTransaction(ctx, txn))
	require.NoError(t, store.SaveInstallments(ctx, []model.Installment{
		{TransactionID: "tx-del", SequenceNumber: 1, GrossAmount: decimal.NewFromInt(2800), NetAmount: decimal.NewFromInt(2677), FeePercentApplied: decimal.NewFromFloat(4.39), DueDate: txn.Date.AddDate(0, 0, 30)},
	}))

	require.NoError(t, store.DeleteTransaction(ctx, "tx-del"))

	_, err := store.GetTransactionByID(ctx, "tx-del")
	assert.ErrorIs(t, err, common.ErrNotFound)

	var count int
	require.NoError(t, store.db.QueryRow(`SELECT COUNT(*) FROM installments WHERE transaction_id = 'tx-del'`).Scan(&count))
	assert.Zero(t, count)

	assert.ErrorIs(t, store.DeleteTransaction(ctx, "tx-del"), common.ErrNotFound)
}

func TestSaveInstallmentsBatch(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)

	txn := sampleTransaction("tx-inst")
	require.NoError(t, store.SaveTransaction(ctx, txn))

	installments := make([]model.Installment, 3)
	for i := range installments {
		installments[i] = model.Installment{
			TransactionID:     "tx-inst",
			SequenceNumber:    i + 1,
			GrossAmount:       decimal.RequireFromString("933.33"),
			NetAmount:         decimal.RequireFromString("892.35"),
			FeePercentApplied: decimal.RequireFromString("4.39"),
			DueDate:           txn.Date.AddDate(0, 0, 30*(i+1)),
		}
	}
	require.NoError(t, store.SaveInstallments(ctx, installments))

	var count int
	require.NoError(t, store.db.QueryRow(`SELECT COUNT(*) FROM installments WHERE transaction_id = 'tx-inst'`).Scan(&count))
	assert.Equal(t, 3, count)
}

func TestUpdateTransaction(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)

	txn := sampleTransaction("tx-upd")
	require.NoError(t, store.SaveTransaction(ctx, txn))
	require.NoError(t, store.SaveInstallments(ctx, []model.Installment{
		{TransactionID: "tx-upd", SequenceNumber: 1, GrossAmount: decimal.RequireFromString("933.34"), NetAmount: decimal.RequireFromString("892.36"), FeePercentApplied: decimal.RequireFromString("4.39"), DueDate: txn.Date.AddDate(0, 0, 30)},
		{TransactionID: "tx-upd", SequenceNumber: 2, GrossAmount: decimal.RequireFromString("933.33"), NetAmount: decimal.RequireFromString("892.35"), FeePercentApplied: decimal.RequireFromString("4.39"), DueDate: txn.Date.AddDate(0, 0, 60)},
		{TransactionID: "tx-upd", SequenceNumber: 3, GrossAmount: decimal.RequireFromString("933.33"), NetAmount: decimal.RequireFromString("892.35"), FeePercentApplied: decimal.RequireFromString("4.39"), DueDate: txn.Date.AddDate(0, 0, 90)},
	}))

	// Rewrite with a new amount and a shorter plan: the old rows must be
	// replaced, not appended to.
	txn.GrossAmount = decimal.NewFromInt(3000)
	txn.InstallmentCount = 2
	require.NoError(t, store.UpdateTransaction(ctx, txn, []model.Installment{
		{TransactionID: "tx-upd", SequenceNumber: 1, GrossAmount: decimal.NewFromInt(1500), NetAmount: decimal.RequireFromString("1438.65"), FeePercentApplied: decimal.RequireFromString("4.09"), DueDate: txn.Date.AddDate(0, 0, 30)},
		{TransactionID: "tx-upd", SequenceNumber: 2, GrossAmount: decimal.NewFromInt(1500), NetAmount: decimal.RequireFromString("1438.65"), FeePercentApplied: decimal.RequireFromString("4.09"), DueDate: txn.Date.AddDate(0, 0, 60)},
	}))

	got, err := store.GetTransactionByID(ctx, "tx-upd")
	require.NoError(t, err)
	assert.True(t, got.GrossAmount.Equal(decimal.NewFromInt(3000)), "gross %s", got.GrossAmount)
	assert.Equal(t, 2, got.InstallmentCount)

	var count int
	require.NoError(t, store.db.QueryRow(`SELECT COUNT(*) FROM installments WHERE transaction_id = 'tx-upd'`).Scan(&count))
	assert.Equal(t, 2, count)
}

func TestUpdateTransactionNotFound(t *testing.T) {
	store := newTestStorage(t)

	err := store.UpdateTransaction(context.Background(), sampleTransaction("missing"), nil)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestUpdateTransactionSchemaDrift(t *testing.T) {
	ctx := context.Background()
	store := newLegacyStorage(t)

	txn := sampleTransaction("tx-legacy-upd")
	require.NoError(t, store.SaveTransaction(ctx, txn))

	// The extended rewrite fails against the baseline schema; the update
	// must retry once with the baseline column set and succeed.
	txn.GrossAmount = decimal.NewFromInt(3000)
	require.NoError(t, store.UpdateTransaction(ctx, txn, []model.Installment{
		{TransactionID: "tx-legacy-upd", SequenceNumber: 1, GrossAmount: decimal.NewFromInt(1500), NetAmount: decimal.RequireFromString("1438.65"), FeePercentApplied: decimal.RequireFromString("4.09"), DueDate: txn.Date.AddDate(0, 0, 30)},
		{TransactionID: "tx-legacy-upd", SequenceNumber: 2, GrossAmount: decimal.NewFromInt(1500), NetAmount: decimal.RequireFromString("1438.65"), FeePercentApplied: decimal.RequireFromString("4.09"), DueDate: txn.Date.AddDate(0, 0, 60)},
	}))

	var gross string
	require.NoError(t, store.db.QueryRow(`SELECT gross_amount FROM transactions WHERE id = 'tx-legacy-upd'`).Scan(&gross))
	assert.Equal(t, "3000", gross)

	var count int
	require.NoError(t, store.db.QueryRow(`SELECT COUNT(*) FROM installments WHERE transaction_id = 'tx-legacy-upd'`).Scan(&count))
	assert.Equal(t, 2, count)
}

func TestSaveTransactionSchemaDrift(t *testing.T) {
	ctx := context.Background()
	store := newLegacyStorage(t)

	// The extended insert fails against the baseline schema; the save must
	// retry once with the baseline payload and succeed.
	txn := sampleTransaction("tx-legacy")
	require.NoError(t, store.SaveTransaction(ctx, txn))

	var gross string
	require.NoError(t, store.db.QueryRow(`SELECT gross_amount FROM transactions WHERE id = 'tx-legacy'`).Scan(&gross))
	assert.Equal(t, "2800", gross)
}

func TestSaveInstallmentsSchemaDrift(t *testing.T) {
	ctx := context.Background()
	store := newLegacyStorage(t)

	require.NoError(t, store.SaveTransaction(ctx, sampleTransaction("tx-legacy")))

	installments := []model.Installment{
		{TransactionID: "tx-legacy", SequenceNumber: 1, GrossAmount: decimal.RequireFromString("933.34"), NetAmount: decimal.RequireFromString("892.36"), FeePercentApplied: decimal.RequireFromString("4.39"), DueDate: time.Now().AddDate(0, 0, 30)},
		{TransactionID: "tx-legacy", SequenceNumber: 2, GrossAmount: decimal.RequireFromString("933.33"), NetAmount: decimal.RequireFromString("892.35"), FeePercentApplied: decimal.RequireFromString("4.39"), DueDate: time.Now().AddDate(0, 0, 60)},
	}
	require.NoError(t, store.SaveInstallments(ctx, installments))

	var count int
	require.NoError(t, store.db.QueryRow(`SELECT COUNT(*) FROM installments`).Scan(&count))
	assert.Equal(t, 2, count)
}

func TestSaveTransactionOtherErrorsDoNotRetry(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)

	txn := sampleTransaction("tx-dup")
	require.NoError(t, store.SaveTransaction(ctx, txn))

	// A primary key violation is not schema drift: no fallback, the error
	// propagates and no second row appears.
	err := store.SaveTransaction(ctx, txn)
	require.Error(t, err)
	assert.False(t, common.IsSchemaMismatch(err))

	var count int
	require.NoError(t, store.db.QueryRow(`SELECT COUNT(*) FROM transactions WHERE id = 'tx-dup'`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestAsSchemaMismatch(t *testing.T) {
	assert.NoError(t, asSchemaMismatch(nil, "transactions"))

	err := asSchemaMismatch(errors.New("table transactions has no column named net_amount"), "transactions")
	require.Error(t, err)
	assert.True(t, common.IsSchemaMismatch(err))

	err = asSchemaMismatch(errors.New("UNIQUE constraint failed"), "transactions")
	require.Error(t, err)
	assert.False(t, common.IsSchemaMismatch(err))
}

func TestGetBalance(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)

	base := time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC)

	entrada := sampleTransaction("tx-in")
	entrada.Date = base
	require.NoError(t, store.SaveTransaction(ctx, entrada))

	saida := sampleTransaction("tx-out")
	saida.Kind = model.KindSaida
	saida.GrossAmount = decimal.NewFromInt(1500)
	saida.Date = base.AddDate(0, 0, 2)
	require.NoError(t, store.SaveTransaction(ctx, saida))

	other := sampleTransaction("tx-other-owner")
	other.OwnerID = "owner-2"
	other.Date = base
	require.NoError(t, store.SaveTransaction(ctx, other))

	outside := sampleTransaction("tx-outside")
	outside.Date = base.AddDate(0, -2, 0)
	require.NoError(t, store.SaveTransaction(ctx, outside))

	summary, err := store.GetBalance(ctx, "owner-1", base.AddDate(0, 0, -4), base.AddDate(0, 0, 20))
	require.NoError(t, err)

	assert.True(t, summary.Entradas.Equal(decimal.NewFromInt(2800)), "entradas %s", summary.Entradas)
	assert.True(t, summary.Saidas.Equal(decimal.NewFromInt(1500)), "saidas %s", summary.Saidas)
	assert.True(t, summary.Saldo.Equal(decimal.NewFromInt(1300)), "saldo %s", summary.Saldo)
}

func TestLearnedExamples(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)

	first := &model.LearnedExample{
		ID:        "ex-1",
		Text:      "Botox 2800 3x",
		Intent:    "registrar_entrada",
		Scope:     model.ScopeTenant,
		OwnerID:   "owner-1",
		Metadata:  map[string]any{"category": "Botox"},
		CreatedAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	second := &model.LearnedExample{
		ID:        "ex-2",
		Text:      "insumos 1500",
		Intent:    "registrar_saida",
		Scope:     model.ScopeTenant,
		OwnerID:   "owner-1",
		CreatedAt: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
	}
	global := &model.LearnedExample{
		ID:        "ex-3",
		Text:      "saldo",
		Intent:    "consultar_saldo",
		Scope:     model.ScopeGlobal,
		CreatedAt: time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC),
	}

	require.NoError(t, store.SaveLearnedExample(ctx, first))
	require.NoError(t, store.SaveLearnedExample(ctx, second))
	require.NoError(t, store.SaveLearnedExample(ctx, global))

	tenant, err := store.ListLearnedExamples(ctx, model.ScopeTenant, "owner-1")
	require.NoError(t, err)
	require.Len(t, tenant, 2)
	// Oldest first.
	assert.Equal(t, "ex-1", tenant[0].ID)
	assert.Equal(t, "ex-2", tenant[1].ID)
	assert.Equal(t, "Botox", tenant[0].Metadata["category"])

	globals, err := store.ListLearnedExamples(ctx, model.ScopeGlobal, "")
	require.NoError(t, err)
	require.Len(t, globals, 1)
	assert.Equal(t, "ex-3", globals[0].ID)
}

func TestMigrateIsIdempotent(t *testing.T) {
	store := newTestStorage(t)
	assert.NoError(t, store.Migrate(context.Background()))
}
