package engine

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfigueira/caixinha/internal/classify"
	"github.com/mfigueira/caixinha/internal/memory"
	"github.com/mfigueira/caixinha/internal/model"
	"github.com/mfigueira/caixinha/internal/pricing"
	"github.com/mfigueira/caixinha/internal/service"
	"github.com/mfigueira/caixinha/internal/session"
	"github.com/mfigueira/caixinha/internal/storage"
)

const owner = "owner-1"

type testEngine struct {
	*Engine
	storage *storage.SQLiteStorage
	clock   *fakeClock
}

type fakeClock struct {
	current time.Time
}

func (c *fakeClock) now() time.Time { return c.current }

func (c *fakeClock) advance(d time.Duration) { c.current = c.current.Add(d) }

func newTestEngine(t *testing.T, opts ...func(*Config)) *testEngine {
	t.Helper()

	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))
	t.Cleanup(func() { _ = store.Close() })

	cfg := Config{
		Storage:   store,
		Heuristic: classify.New(nil, nil),
		Pricing:   pricing.NewFeeTable(pricing.DefaultFeeConfig()),
		Sessions:  session.NewInProcessStore(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	eng, err := New(cfg)
	require.NoError(t, err)

	clock := &fakeClock{current: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	eng.now = clock.now

	return &testEngine{Engine: eng, storage: store, clock: clock}
}

func (te *testEngine) send(t *testing.T, text string) string {
	t.Helper()
	reply, err := te.HandleMessage(context.Background(), owner, text)
	require.NoError(t, err)
	return reply
}

func (te *testEngine) transactionCount(t *testing.T) int {
	t.Helper()
	summary, err := te.storage.GetBalance(context.Background(),
		owner, te.clock.current.AddDate(0, -1, 0), te.clock.current.AddDate(0, 1, 0))
	require.NoError(t, err)
	if summary.Entradas.IsZero() && summary.Saidas.IsZero() {
		return 0
	}
	return 1
}

func TestInstallmentSaleFlow(t *testing.T) {
	te := newTestEngine(t)

	reply := te.send(t, "Botox 2800 3x")
	assert.Contains(t, reply, "Confirma essa entrada?")
	assert.Contains(t, reply, "R$ 2.800,00")
	assert.Contains(t, reply, "Parcelado em 3x")

	reply = te.send(t, "1")
	assert.Contains(t, reply, "Entrada de R$ 2.800,00 registrada em Botox")
	assert.Contains(t, reply, "Parcelado em 3x")
	assert.Contains(t, reply, "Líquido após taxas")

	summary, err := te.storage.GetBalance(context.Background(), owner,
		te.clock.current.AddDate(0, 0, -1), te.clock.current.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.True(t, summary.Entradas.Equal(decimal.NewFromInt(2800)))

	// The draft is gone: a new message starts fresh.
	assert.Equal(t, msgValueWithoutContext, te.send(t, "450"))
}

func TestCardDialogueFlow(t *testing.T) {
	te := newTestEngine(t)

	reply := te.send(t, "Botox 2800 no cartão")
	assert.Contains(t, reply, "Crédito à vista ou parcelado?")

	reply = te.send(t, "2")
	assert.Contains(t, reply, "Em quantas vezes?")

	reply = te.send(t, "6")
	assert.Contains(t, reply, "Parcelado em 6x")

	reply = te.send(t, "isso mesmo")
	assert.Contains(t, reply, "registrada")
}

func TestPaymentMethodNumericShortcut(t *testing.T) {
	te := newTestEngine(t)

	reply := te.send(t, "massagem 180")
	assert.Contains(t, reply, "Como foi o pagamento?")

	// "1" means pix from the payment method stage.
	reply = te.send(t, "1")
	assert.Contains(t, reply, "Confirma essa entrada?")

	reply = te.send(t, "1")
	assert.Contains(t, reply, "registrada em Massagem")
	assert.NotContains(t, reply, "Líquido")
}

func TestCostRegisteredImmediately(t *testing.T) {
	te := newTestEngine(t)

	reply := te.send(t, "insumos 1500")
	assert.Contains(t, reply, "Saída de R$ 1.500,00 registrada em Insumos")

	summary, err := te.storage.GetBalance(context.Background(), owner,
		te.clock.current.AddDate(0, 0, -1), te.clock.current.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.True(t, summary.Saidas.Equal(decimal.NewFromInt(1500)))
}

func TestMissingAmountIsAskedFor(t *testing.T) {
	te := newTestEngine(t)

	reply := te.send(t, "vendi pra uma cliente")
	assert.Equal(t, msgAskAmount, reply)

	reply = te.send(t, "300")
	assert.Contains(t, reply, "Como foi o pagamento?")

	te.send(t, "pix")
	reply = te.send(t, "1")
	assert.Contains(t, reply, "registrada")
}

func TestCancelMidDialogue(t *testing.T) {
	te := newTestEngine(t)

	te.send(t, "Botox 2800")
	reply := te.send(t, "esquece")
	assert.Equal(t, msgDraftCancelled, reply)

	assert.Zero(t, te.transactionCount(t))

	// No draft remains: a bare number has no context again.
	assert.Equal(t, msgValueWithoutContext, te.send(t, "2800"))
}

func TestExpiredDraftPersistsNothing(t *testing.T) {
	te := newTestEngine(t)

	reply := te.send(t, "Botox 2800 3x")
	assert.Contains(t, reply, "Confirma essa entrada?")

	te.clock.advance(model.DraftTTL + time.Minute)

	reply = te.send(t, "1")
	assert.Contains(t, reply, "expirou")
	assert.Zero(t, te.transactionCount(t))

	// The expired draft was cleared.
	assert.Equal(t, msgValueWithoutContext, te.send(t, "2800"))
}

func TestValueWithoutContext(t *testing.T) {
	te := newTestEngine(t)
	assert.Equal(t, msgValueWithoutContext, te.send(t, "2800"))
}

func TestNotUnderstoodWithoutFallback(t *testing.T) {
	te := newTestEngine(t)
	assert.Equal(t, msgNotUnderstood, te.send(t, "bom dia, tudo bem?"))
}

func TestUndoWindow(t *testing.T) {
	te := newTestEngine(t)

	te.send(t, "insumos 1500")

	reply := te.send(t, "desfazer")
	assert.Contains(t, reply, "Desfeito")
	assert.Zero(t, te.transactionCount(t))

	assert.Equal(t, msgNothingToUndo, te.send(t, "desfazer"))
}

func TestUndoOutsideWindow(t *testing.T) {
	te := newTestEngine(t)

	te.send(t, "insumos 1500")
	te.clock.advance(session.UndoTTL + time.Minute)

	assert.Equal(t, msgNothingToUndo, te.send(t, "desfazer"))
	assert.Equal(t, 1, te.transactionCount(t))
}

func TestEditAmount(t *testing.T) {
	te := newTestEngine(t)

	te.send(t, "insumos 1500")

	reply := te.send(t, "corrigir para 1800")
	assert.Contains(t, reply, "R$ 1.800,00")

	reply = te.send(t, "confirmar")
	assert.Contains(t, reply, "Valor atualizado para R$ 1.800,00")

	summary, err := te.storage.GetBalance(context.Background(), owner,
		te.clock.current.AddDate(0, 0, -1), te.clock.current.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.True(t, summary.Saidas.Equal(decimal.NewFromInt(1800)), "saidas %s", summary.Saidas)
}

type rewriteFailStorage struct {
	service.Storage
}

func (rewriteFailStorage) UpdateTransaction(context.Context, *model.Transaction, []model.Installment) error {
	return errors.New("disk I/O error")
}

func TestEditRewriteFailureKeepsTransaction(t *testing.T) {
	te := newTestEngine(t, func(cfg *Config) {
		cfg.Storage = rewriteFailStorage{cfg.Storage}
	})

	te.send(t, "insumos 1500")
	te.send(t, "corrigir para 1800")

	reply := te.send(t, "confirmar")
	assert.Equal(t, msgTryAgain, reply)

	// The failed rewrite must not destroy the stored transaction.
	summary, err := te.storage.GetBalance(context.Background(), owner,
		te.clock.current.AddDate(0, 0, -1), te.clock.current.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.True(t, summary.Saidas.Equal(decimal.NewFromInt(1500)), "saidas %s", summary.Saidas)
}

func TestEditRepricesInstallmentSale(t *testing.T) {
	te := newTestEngine(t)

	te.send(t, "Botox 2800 3x")
	te.send(t, "1")

	te.send(t, "corrigir para 3000")
	reply := te.send(t, "confirmar")
	assert.Contains(t, reply, "Valor atualizado para R$ 3.000,00")

	summary, err := te.storage.GetBalance(context.Background(), owner,
		te.clock.current.AddDate(0, 0, -1), te.clock.current.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.True(t, summary.Entradas.Equal(decimal.NewFromInt(3000)), "entradas %s", summary.Entradas)

	// The fee fields follow the new amount instead of going stale.
	confirmed, ok := te.sessions.TakeConfirmed(owner, te.clock.current)
	require.True(t, ok)
	got, err := te.storage.GetTransactionByID(context.Background(), confirmed.TransactionID)
	require.NoError(t, err)
	require.NotNil(t, got.NetAmount)
	assert.True(t, got.NetAmount.LessThan(got.GrossAmount))
	assert.Equal(t, 3, got.InstallmentCount)
}

func TestEditWithoutRecentTransaction(t *testing.T) {
	te := newTestEngine(t)
	assert.Equal(t, msgNothingToEdit, te.send(t, "corrigir para 1800"))
}

func TestConfirmWithoutPendingEdit(t *testing.T) {
	te := newTestEngine(t)
	assert.Equal(t, msgNothingToConfirm, te.send(t, "pode confirmar"))
}

func TestBalanceReply(t *testing.T) {
	te := newTestEngine(t)

	te.send(t, "Botox 2800 3x")
	te.send(t, "1")
	te.send(t, "insumos 1500")

	reply := te.send(t, "qual o saldo do mês?")
	assert.Contains(t, reply, "Entradas: R$ 2.800,00")
	assert.Contains(t, reply, "Saídas: R$ 1.500,00")
	assert.Contains(t, reply, "Saldo: R$ 1.300,00")
}

func TestHelp(t *testing.T) {
	te := newTestEngine(t)
	assert.Equal(t, msgHelp, te.send(t, "ajuda"))
}

type stubModelClassifier struct {
	result *model.ClassificationResult
	err    error
	calls  int
}

func (s *stubModelClassifier) Classify(_ context.Context, _ string) (*model.ClassificationResult, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func TestFallbackClassifier(t *testing.T) {
	t.Run("used when heuristics abstain", func(t *testing.T) {
		fallback := &stubModelClassifier{result: &model.ClassificationResult{
			Intent:     classify.IntentRegistrarEntrada,
			Confidence: 0.8,
			Source:     model.SourceModel,
			Data: map[string]any{
				"amount":   2800.0,
				"kind":     "entrada",
				"category": "Botox",
			},
		}}
		te := newTestEngine(t, func(cfg *Config) { cfg.Fallback = fallback })

		reply := te.send(t, "aquela coisa de sempre")
		assert.Equal(t, 1, fallback.calls)
		assert.Contains(t, reply, "Como foi o pagamento?")
	})

	t.Run("not consulted when heuristics answer", func(t *testing.T) {
		fallback := &stubModelClassifier{}
		te := newTestEngine(t, func(cfg *Config) { cfg.Fallback = fallback })

		te.send(t, "insumos 1500")
		assert.Zero(t, fallback.calls)
	})

	t.Run("failure degrades to not understood", func(t *testing.T) {
		fallback := &stubModelClassifier{err: errors.New("provider down")}
		te := newTestEngine(t, func(cfg *Config) { cfg.Fallback = fallback })

		assert.Equal(t, msgNotUnderstood, te.send(t, "aquela coisa de sempre"))
	})
}

type stubEmbedder struct{}

func (stubEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

type stubKnowledge struct {
	matches  []model.RecalledExample
	inserted []*model.LearnedExample
}

func (s *stubKnowledge) Insert(_ context.Context, example *model.LearnedExample) error {
	s.inserted = append(s.inserted, example)
	return nil
}

func (s *stubKnowledge) Query(_ context.Context, _ []float32, _ model.MemoryScope, _ string, _ float64, _ int) ([]model.RecalledExample, error) {
	return s.matches, nil
}

func TestMemoryRecallShortCircuits(t *testing.T) {
	knowledge := &stubKnowledge{matches: []model.RecalledExample{{
		Example: model.LearnedExample{
			ID:     "ex-1",
			Text:   "Botox 2800 3x",
			Intent: classify.IntentAjuda,
		},
		Similarity: 0.97,
	}}}
	te := newTestEngine(t, func(cfg *Config) {
		cfg.Memory = memory.New(stubEmbedder{}, knowledge, nil, nil)
	})

	// Memory wins over the heuristics, which would classify this as a sale.
	assert.Equal(t, msgHelp, te.send(t, "Botox 2800 3x"))
}

func TestConfirmedTransactionIsRemembered(t *testing.T) {
	knowledge := &stubKnowledge{}
	te := newTestEngine(t, func(cfg *Config) {
		cfg.Memory = memory.New(stubEmbedder{}, knowledge, nil, nil)
	})

	te.send(t, "insumos 1500")

	require.Len(t, knowledge.inserted, 1)
	example := knowledge.inserted[0]
	assert.Equal(t, "insumos 1500", example.Text)
	assert.Equal(t, "registrar_saida", example.Intent)
	assert.Equal(t, "Insumos", example.Metadata["category"])
}

type failingPricing struct{}

func (failingPricing) Resolve(_ context.Context, _ service.PricingInput) (*service.PricingQuote, error) {
	return nil, errors.New("fee table unavailable")
}

func TestPricingFailureKeepsDraft(t *testing.T) {
	te := newTestEngine(t, func(cfg *Config) { cfg.Pricing = failingPricing{} })

	te.send(t, "Botox 2800 3x")

	reply := te.send(t, "1")
	assert.Equal(t, msgTryAgain, reply)
	assert.Zero(t, te.transactionCount(t))

	// The draft survives: the user can confirm again later.
	reply = te.send(t, "hmm")
	assert.Contains(t, reply, "Confirma essa entrada?")
}
