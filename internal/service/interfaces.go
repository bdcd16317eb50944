// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mfigueira/caixinha/internal/model"
)

// Storage defines the contract for our persistence layer. Implementations
// must surface schema drift as a common.SchemaMismatchError so callers can
// distinguish it from generic failures without matching on error text.
type Storage interface {
	// Transaction operations
	SaveTransaction(ctx context.Context, txn *model.Transaction) error
	SaveInstallments(ctx context.Context, installments []model.Installment) error
	UpdateTransaction(ctx context.Context, txn *model.Transaction, installments []model.Installment) error
	GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error)
	DeleteTransaction(ctx context.Context, id string) error
	GetBalance(ctx context.Context, ownerID string, start, end time.Time) (*BalanceSummary, error)

	// Learned example operations
	SaveLearnedExample(ctx context.Context, example *model.LearnedExample) error
	ListLearnedExamples(ctx context.Context, scope model.MemoryScope, ownerID string) ([]model.LearnedExample, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// BalanceSummary aggregates entradas and saidas over a period.
type BalanceSummary struct {
	Entradas decimal.Decimal
	Saidas   decimal.Decimal
	Saldo    decimal.Decimal
}

// Cache is a TTL'd key-value store for classification results.
type Cache interface {
	Get(key string) (*model.ClassificationResult, bool)
	Set(key string, result *model.ClassificationResult, ttl time.Duration)
}

// EmbeddingProvider turns text into a vector.
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// KnowledgeStore persists learned examples and answers nearest-neighbor
// queries by cosine similarity.
type KnowledgeStore interface {
	Insert(ctx context.Context, example *model.LearnedExample) error
	Query(ctx context.Context, vector []float32, scope model.MemoryScope, ownerID string, threshold float64, limit int) ([]model.RecalledExample, error)
}

// ModelClassifier is the last-resort intent classifier backed by a
// general-purpose language model.
type ModelClassifier interface {
	Classify(ctx context.Context, text string) (*model.ClassificationResult, error)
}

// PricingInput carries the normalized payment facts of a confirmed sale.
type PricingInput struct {
	SaleDate         time.Time
	PaymentMethod    model.PaymentMethod
	CardBrand        model.CardBrand
	GrossAmount      decimal.Decimal
	InstallmentCount int
}

// PlannedInstallment is one row of a resolved installment plan.
type PlannedInstallment struct {
	DueDate           time.Time
	SequenceNumber    int
	GrossAmount       decimal.Decimal
	NetAmount         decimal.Decimal
	FeePercentApplied decimal.Decimal
}

// PricingQuote is the resolver's verdict. The core persists it verbatim.
type PricingQuote struct {
	ExpectedSettlementDate time.Time
	SettlementMode         string
	FeeRuleSnapshot        string
	GrossAmount            decimal.Decimal
	NetAmount              decimal.Decimal
	FeePercentApplied      decimal.Decimal
	InstallmentPlan        []PlannedInstallment
}

// PricingResolver computes net amounts, fees and settlement schedules. The
// core treats its output as authoritative.
type PricingResolver interface {
	Resolve(ctx context.Context, input PricingInput) (*PricingQuote, error)
}

// RetryOptions configures retry behavior for service operations.
type RetryOptions struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	MaxAttempts  int
}
