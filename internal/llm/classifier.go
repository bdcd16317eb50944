package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mfigueira/caixinha/internal/common"
	"github.com/mfigueira/caixinha/internal/model"
	"github.com/mfigueira/caixinha/internal/service"
)

const systemPrompt = `Voce classifica mensagens de um assistente financeiro para pequenos negocios de estetica.
Responda SOMENTE com um objeto JSON valido, sem markdown e sem comentarios, no formato:
{"intent": "...", "confidence": 0.0, "data": {}}
Intents possiveis: registrar_entrada, registrar_saida, value_only, consultar_saldo, desfazer, cancelar, confirmar, ajuda, desconhecido.
Em data inclua, quando presentes: amount (numero), category (string), payment_method (pix|dinheiro|debito|credito_avista|parcelado), installments (inteiro), client_name (string).`

// Classifier implements service.ModelClassifier on an LLM provider.
type Classifier struct {
	client      Client
	logger      *slog.Logger
	rateLimiter *rateLimiter
	retryOpts   service.RetryOptions
}

// Config holds configuration for the LLM classifier.
type Config struct {
	Provider    string
	APIKey      string
	BaseURL     string
	Model       string
	MaxRetries  int
	RetryDelay  time.Duration
	RateLimit   int
	Temperature float64
	MaxTokens   int
}

// NewClassifier creates a new LLM-based classifier.
func NewClassifier(cfg Config, logger *slog.Logger) (*Classifier, error) {
	var client Client
	var err error

	switch strings.ToLower(cfg.Provider) {
	case "", "openai":
		client, err = newOpenAIClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	retryOpts := service.RetryOptions{
		MaxAttempts:  cfg.MaxRetries,
		InitialDelay: cfg.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
	if retryOpts.MaxAttempts == 0 {
		retryOpts.MaxAttempts = 3
	}
	if retryOpts.InitialDelay == 0 {
		retryOpts.InitialDelay = time.Second
	}

	return &Classifier{
		client:      client,
		logger:      logger,
		retryOpts:   retryOpts,
		rateLimiter: newRateLimiter(cfg.RateLimit),
	}, nil
}

// Classify asks the model for the intent of a message. The result uses the
// same shape as the other classification sources.
func (c *Classifier) Classify(ctx context.Context, text string) (*model.ClassificationResult, error) {
	if err := c.rateLimiter.wait(ctx); err != nil {
		return nil, err
	}

	var result *model.ClassificationResult
	operation := func() error {
		content, err := c.client.Complete(ctx, systemPrompt, text)
		if err != nil {
			return err
		}

		parsed, err := parseClassification(content)
		if err != nil {
			return err
		}

		result = parsed
		return nil
	}

	if err := common.WithRetry(ctx, operation, c.retryOpts); err != nil {
		return nil, fmt.Errorf("model classification failed: %w", err)
	}

	c.logger.Debug("model classified message",
		"intent", result.Intent,
		"confidence", result.Confidence)

	return result, nil
}

// Close releases the classifier's background resources.
func (c *Classifier) Close() {
	c.rateLimiter.close()
}
