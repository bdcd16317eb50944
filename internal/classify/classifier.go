// Package classify implements the keyword-based heuristic intent classifier.
package classify

import (
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mfigueira/caixinha/internal/extract"
	"github.com/mfigueira/caixinha/internal/model"
	"github.com/mfigueira/caixinha/internal/service"
)

// Confidence constants. These are inherited tuning values: tests pin them,
// nothing derives them.
const (
	baseConfidence       = 0.5
	ratioWeight          = 0.4
	confidenceCeiling    = 0.9
	amountBoost          = 0.2
	boostedCeiling       = 0.95
	bareNumberConfidence = 0.9

	// MinConfidence is the acceptance gate: anything below it makes the
	// classifier abstain so the caller escalates to the language model.
	MinConfidence = 0.7

	// CacheTTL is how long a classification result stays cached.
	CacheTTL = 300 * time.Second
)

// Classifier is the keyword/confidence-based intent detector.
type Classifier struct {
	cache  service.Cache
	logger *slog.Logger
}

// New creates a heuristic classifier. The cache may be nil, in which case
// every message is classified from scratch.
func New(cache service.Cache, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{cache: cache, logger: logger}
}

// Classify detects the intent of a raw message. It returns nil when no
// intent matched or confidence fell below the gate; the caller must then
// escalate to the language model.
func (c *Classifier) Classify(text string) *model.ClassificationResult {
	normalized := extract.Normalize(text)

	if c.cache != nil {
		if cached, ok := c.cache.Get(normalized); ok {
			c.logger.Debug("classification cache hit", "text", normalized)
			return cached
		}
	}

	result := c.classify(text, normalized)
	if result != nil && c.cache != nil {
		c.cache.Set(normalized, result, CacheTTL)
	}
	return result
}

func (c *Classifier) classify(text, normalized string) *model.ClassificationResult {
	// A message that is nothing but a number answers a pending question.
	if value, ok := extract.BareNumber(normalized); ok {
		return &model.ClassificationResult{
			Intent:     IntentValueOnly,
			Confidence: bareNumberConfidence,
			Source:     model.SourceHeuristic,
			Data:       map[string]any{"amount": value},
		}
	}

	amount, hasAmount := extract.Money(text)

	// First match wins: the rule order in intentRules is the priority order.
	for _, rule := range intentRules {
		matched := rule.matchGroups(normalized)
		if matched == 0 {
			continue
		}

		ratio := float64(matched) / float64(len(rule.groups))
		confidence := baseConfidence + ratio*ratioWeight
		if confidence > confidenceCeiling {
			confidence = confidenceCeiling
		}

		transactional := rule.intent == IntentRegistrarEntrada || rule.intent == IntentRegistrarSaida
		if transactional && hasAmount {
			confidence += amountBoost
			if confidence > boostedCeiling {
				confidence = boostedCeiling
			}
		}

		if confidence < MinConfidence {
			c.logger.Debug("intent matched below confidence gate",
				"intent", rule.intent,
				"confidence", confidence)
			return nil
		}

		result := &model.ClassificationResult{
			Intent:     rule.intent,
			Confidence: confidence,
			Source:     model.SourceHeuristic,
			Data:       map[string]any{},
		}
		if transactional {
			c.fillTransactionData(result, text, normalized, amount, hasAmount)
		}
		return result
	}

	return nil
}

// fillTransactionData attaches amount, category, payment signals and client
// name to a transaction-shaped result.
func (c *Classifier) fillTransactionData(result *model.ClassificationResult, text, normalized string, amount decimal.Decimal, hasAmount bool) {
	if hasAmount {
		result.Data["amount"] = amount
	}

	if result.Intent == IntentRegistrarEntrada {
		result.Data["kind"] = model.KindEntrada
		result.Data["category"] = categoryFor(normalized, revenueCategories)
		if name := clientNameFrom(normalized); name != "" {
			result.Data["client_name"] = name
		}
	} else {
		result.Data["kind"] = model.KindSaida
		result.Data["category"] = categoryFor(normalized, costCategories)
	}

	if method, ok := extract.PaymentMethod(text); ok {
		result.Data["payment_method"] = method
	}
	if n, ok := extract.Installments(text); ok {
		result.Data["installments"] = n
	}
}

// categoryFor picks the category of the first table keyword present in the
// text, falling back to DefaultCategory.
func categoryFor(normalized string, table map[string]string) string {
	best := ""
	bestIdx := len(normalized) + 1
	for keyword, category := range table {
		if !containsWord(normalized, keyword) {
			continue
		}
		if idx := indexOfWord(normalized, keyword); idx >= 0 && idx < bestIdx {
			bestIdx = idx
			best = category
		}
	}
	if best == "" {
		return DefaultCategory
	}
	return best
}

func indexOfWord(t, word string) int {
	idx := 0
	for idx < len(t) {
		i := strings.Index(t[idx:], word)
		if i < 0 {
			return -1
		}
		start := idx + i
		end := start + len(word)
		beforeOK := start == 0 || !isLetter(t[start-1])
		afterOK := end == len(t) || !isLetter(t[end])
		if beforeOK && afterOK {
			return start
		}
		idx = start + 1
	}
	return -1
}

// clientNameFrom looks for "cliente <name>" / "paciente <name>" and
// sanitizes the candidate that follows.
func clientNameFrom(normalized string) string {
	for _, marker := range []string{"cliente", "paciente"} {
		idx := indexOfWord(normalized, marker)
		if idx < 0 {
			continue
		}
		rest := normalized[idx+len(marker):]
		fields := strings.Fields(rest)
		if len(fields) == 0 {
			continue
		}
		candidate := fields[0]
		if len(fields) > 1 && extract.ClientName(fields[1]) != "" {
			candidate = candidate + " " + fields[1]
		}
		if name := extract.ClientName(candidate); name != "" {
			return name
		}
	}
	return ""
}
