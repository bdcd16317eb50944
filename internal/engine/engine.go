// Package engine orchestrates the conversational pipeline: classification,
// the payment clarification dialogue, pricing and persistence.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mfigueira/caixinha/internal/classify"
	"github.com/mfigueira/caixinha/internal/dialog"
	"github.com/mfigueira/caixinha/internal/extract"
	"github.com/mfigueira/caixinha/internal/memory"
	"github.com/mfigueira/caixinha/internal/model"
	"github.com/mfigueira/caixinha/internal/service"
	"github.com/mfigueira/caixinha/internal/session"
)

// Engine is the per-message entry point of the bookkeeping assistant.
type Engine struct {
	storage   service.Storage
	heuristic *classify.Classifier
	memory    *memory.Memory
	fallback  service.ModelClassifier
	pricing   service.PricingResolver
	sessions  session.Store
	resolver  *dialog.Resolver
	logger    *slog.Logger
	now       func() time.Time
	scope     model.MemoryScope
}

// Config holds the engine's dependencies. Memory and Fallback are optional:
// without them the pipeline degrades to heuristics only.
type Config struct {
	Storage   service.Storage
	Heuristic *classify.Classifier
	Memory    *memory.Memory
	Fallback  service.ModelClassifier
	Pricing   service.PricingResolver
	Sessions  session.Store
	Logger    *slog.Logger
	Scope     model.MemoryScope
}

// New creates an engine.
func New(cfg Config) (*Engine, error) {
	if cfg.Storage == nil {
		return nil, fmt.Errorf("storage is required")
	}
	if cfg.Heuristic == nil {
		return nil, fmt.Errorf("heuristic classifier is required")
	}
	if cfg.Pricing == nil {
		return nil, fmt.Errorf("pricing resolver is required")
	}
	if cfg.Sessions == nil {
		cfg.Sessions = session.NewInProcessStore()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Scope == "" {
		cfg.Scope = model.ScopeTenant
	}

	return &Engine{
		storage:   cfg.Storage,
		heuristic: cfg.Heuristic,
		memory:    cfg.Memory,
		fallback:  cfg.Fallback,
		pricing:   cfg.Pricing,
		sessions:  cfg.Sessions,
		resolver:  dialog.NewResolver(cfg.Logger),
		logger:    cfg.Logger,
		scope:     cfg.Scope,
		now:       time.Now,
	}, nil
}

// HandleMessage processes one raw message from a conversation and returns
// the assistant's reply. Messages from the same owner are serialized; two
// conversations never block each other.
func (e *Engine) HandleMessage(ctx context.Context, ownerID, text string) (string, error) {
	unlock := e.sessions.Lock(ownerID)
	defer unlock()

	if draft, ok := e.sessions.Draft(ownerID); ok {
		return e.continueDialogue(ctx, draft, text)
	}

	result := e.classifyMessage(ctx, ownerID, text)
	if result == nil {
		return msgNotUnderstood, nil
	}

	e.logger.Debug("message classified",
		"owner_id", ownerID,
		"intent", result.Intent,
		"confidence", result.Confidence,
		"source", result.Source)

	return e.dispatch(ctx, ownerID, text, result)
}

// classifyMessage runs the three classification sources in priority order:
// semantic memory, heuristics, then the language model.
func (e *Engine) classifyMessage(ctx context.Context, ownerID, text string) *model.ClassificationResult {
	if e.memory != nil {
		matches := e.memory.Recall(ctx, text, e.scope, ownerID, memory.RecallThreshold)
		if len(matches) > 0 {
			best := matches[0]
			return &model.ClassificationResult{
				Intent:     best.Example.Intent,
				Data:       best.Example.Metadata,
				Confidence: best.Similarity,
				Source:     model.SourceLearned,
			}
		}
	}

	if result := e.heuristic.Classify(text); result != nil {
		return result
	}

	if e.fallback != nil {
		result, err := e.fallback.Classify(ctx, text)
		if err != nil {
			e.logger.Warn("model fallback failed", "owner_id", ownerID, "error", err)
			return nil
		}
		return result
	}

	return nil
}

func (e *Engine) dispatch(ctx context.Context, ownerID, text string, result *model.ClassificationResult) (string, error) {
	switch result.Intent {
	case classify.IntentRegistrarEntrada, classify.IntentRegistrarSaida:
		return e.startDraft(ctx, ownerID, text, result)

	case classify.IntentValueOnly:
		return msgValueWithoutContext, nil

	case classify.IntentDesfazer:
		return e.undo(ctx, ownerID)

	case classify.IntentEditar:
		return e.stageEdit(ownerID, text)

	case classify.IntentConfirmar:
		if edit, ok := e.sessions.TakePendingEdit(ownerID); ok {
			return e.applyEdit(ctx, ownerID, edit)
		}
		return msgNothingToConfirm, nil

	case classify.IntentCancelar:
		e.sessions.TakePendingEdit(ownerID)
		return msgNothingToCancel, nil

	case classify.IntentConsultarSaldo:
		return e.balance(ctx, ownerID)

	case classify.IntentAjuda:
		return msgHelp, nil

	default:
		return msgNotUnderstood, nil
	}
}

// startDraft creates the owner's draft from a transaction-shaped intent and
// either asks for the missing amount or enters the payment dialogue.
func (e *Engine) startDraft(ctx context.Context, ownerID, text string, result *model.ClassificationResult) (string, error) {
	now := e.now()
	draft := &model.TransactionDraft{
		OwnerID:      ownerID,
		OriginalText: text,
		CreatedAt:    now,
		Date:         now,
		Kind:         model.KindEntrada,
		Category:     classify.DefaultCategory,
	}
	applyClassificationData(draft, result.Data)

	if draft.Amount.LessThanOrEqual(decimal.Zero) {
		draft.Stage = model.StageAwaitingAmount
		e.sessions.SetDraft(draft)
		return msgAskAmount, nil
	}

	if draft.Kind == model.KindSaida {
		// Costs have no card dialogue: persist as paid on the spot.
		return e.confirmCost(ctx, draft)
	}

	outcome := e.resolver.Resolve(draft, text)
	e.sessions.SetDraft(draft)
	return outcome.Reply, nil
}

// continueDialogue routes a message to the in-flight draft.
func (e *Engine) continueDialogue(ctx context.Context, draft *model.TransactionDraft, text string) (string, error) {
	now := e.now()

	if draft.Stage == model.StageAwaitingAmount {
		return e.continueAwaitingAmount(ctx, draft, text, now)
	}

	outcome := e.resolver.HandleInput(draft, text, now)
	switch {
	case outcome.Expired, outcome.Cancelled:
		e.sessions.ClearDraft(draft.OwnerID)
		return outcome.Reply, nil
	case outcome.Confirmed:
		return e.confirmDraft(ctx, draft)
	default:
		e.sessions.SetDraft(draft)
		return outcome.Reply, nil
	}
}

// continueAwaitingAmount handles the clarification turn that asks for a
// missing amount.
func (e *Engine) continueAwaitingAmount(ctx context.Context, draft *model.TransactionDraft, text string, now time.Time) (string, error) {
	if draft.Expired(now) {
		e.sessions.ClearDraft(draft.OwnerID)
		return msgDraftExpired, nil
	}

	normalized := extract.Normalize(text)
	for _, w := range []string{"cancelar", "cancela", "nao", "esquece"} {
		if normalized == w {
			e.sessions.ClearDraft(draft.OwnerID)
			return msgDraftCancelled, nil
		}
	}

	amount, ok := extract.Money(text)
	if !ok {
		return msgAskAmount, nil
	}

	draft.Amount = amount
	if n, found := extract.Installments(text); found && n >= 1 && n <= model.MaxInstallments {
		draft.InstallmentCount = n
	}

	if draft.Kind == model.KindSaida {
		return e.confirmCost(ctx, draft)
	}

	outcome := e.resolver.Resolve(draft, draft.OriginalText+" "+text)
	e.sessions.SetDraft(draft)
	return outcome.Reply, nil
}

// applyClassificationData copies extracted fields from a classification
// result into the draft.
func applyClassificationData(draft *model.TransactionDraft, data map[string]any) {
	if data == nil {
		return
	}

	if kind, ok := data["kind"].(model.EntryKind); ok {
		draft.Kind = kind
	} else if kindStr, ok := data["kind"].(string); ok {
		draft.Kind = model.EntryKind(kindStr)
	}

	switch amount := data["amount"].(type) {
	case decimal.Decimal:
		draft.Amount = amount
	case float64:
		draft.Amount = decimal.NewFromFloat(amount)
	case string:
		if v, err := decimal.NewFromString(amount); err == nil {
			draft.Amount = v
		}
	}

	if category, ok := data["category"].(string); ok && category != "" {
		draft.Category = category
	}
	if name, ok := data["client_name"].(string); ok {
		draft.ClientName = name
	}
	if method, ok := data["payment_method"].(model.PaymentMethod); ok {
		draft.PaymentMethod = method
	} else if methodStr, ok := data["payment_method"].(string); ok {
		if m := model.PaymentMethod(methodStr); m.Valid() {
			draft.PaymentMethod = m
		}
	}

	switch n := data["installments"].(type) {
	case int:
		draft.InstallmentCount = n
	case float64:
		draft.InstallmentCount = int(n)
	}
}
