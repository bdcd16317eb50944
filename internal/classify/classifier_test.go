package classify

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfigueira/caixinha/internal/model"
)

func TestClassifyTransactionMessages(t *testing.T) {
	c := New(nil, nil)

	t.Run("installment sale", func(t *testing.T) {
		result := c.Classify("Botox 2800 3x")
		require.NotNil(t, result)

		assert.Equal(t, IntentRegistrarEntrada, result.Intent)
		assert.Equal(t, model.SourceHeuristic, result.Source)
		assert.GreaterOrEqual(t, result.Confidence, 0.85)

		amount, ok := result.Data["amount"].(decimal.Decimal)
		require.True(t, ok)
		assert.True(t, amount.Equal(decimal.NewFromInt(2800)))

		assert.Equal(t, model.KindEntrada, result.Data["kind"])
		assert.Equal(t, "Botox", result.Data["category"])
		assert.Equal(t, model.MethodParcelado, result.Data["payment_method"])
		assert.Equal(t, 3, result.Data["installments"])
	})

	t.Run("cost", func(t *testing.T) {
		result := c.Classify("insumos 1500")
		require.NotNil(t, result)

		assert.Equal(t, IntentRegistrarSaida, result.Intent)
		assert.GreaterOrEqual(t, result.Confidence, MinConfidence)

		amount, ok := result.Data["amount"].(decimal.Decimal)
		require.True(t, ok)
		assert.True(t, amount.Equal(decimal.NewFromInt(1500)))

		assert.Equal(t, model.KindSaida, result.Data["kind"])
		assert.Equal(t, "Insumos", result.Data["category"])
	})

	t.Run("client name captured", func(t *testing.T) {
		result := c.Classify("atendi a cliente Juliana, massagem 180 no pix")
		require.NotNil(t, result)

		assert.Equal(t, IntentRegistrarEntrada, result.Intent)
		assert.Equal(t, "juliana", result.Data["client_name"])
		assert.Equal(t, "Massagem", result.Data["category"])
		assert.Equal(t, model.MethodPix, result.Data["payment_method"])
	})

	t.Run("default category", func(t *testing.T) {
		result := c.Classify("vendi 300")
		require.NotNil(t, result)
		assert.Equal(t, IntentRegistrarEntrada, result.Intent)
		assert.Equal(t, DefaultCategory, result.Data["category"])
	})
}

func TestClassifyBareNumber(t *testing.T) {
	c := New(nil, nil)

	result := c.Classify("2800")
	require.NotNil(t, result)

	assert.Equal(t, IntentValueOnly, result.Intent)
	assert.InDelta(t, 0.9, result.Confidence, 0.0001)

	amount, ok := result.Data["amount"].(decimal.Decimal)
	require.True(t, ok)
	assert.True(t, amount.Equal(decimal.NewFromInt(2800)))
}

func TestClassifyControlIntents(t *testing.T) {
	c := New(nil, nil)

	tests := []struct {
		text string
		want string
	}{
		{text: "desfazer", want: IntentDesfazer},
		{text: "apaga o último lançamento", want: IntentDesfazer},
		{text: "deixa pra lá", want: IntentCancelar},
		{text: "pode confirmar", want: IntentConfirmar},
		{text: "quero corrigir o valor", want: IntentEditar},
		{text: "como funciona?", want: IntentAjuda},
		{text: "qual o saldo do mês?", want: IntentConsultarSaldo},
		{text: "quanto entrou essa semana", want: IntentConsultarSaldo},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			result := c.Classify(tt.text)
			require.NotNil(t, result)
			assert.Equal(t, tt.want, result.Intent)
		})
	}
}

func TestClassifyAbstains(t *testing.T) {
	c := New(nil, nil)

	// Nothing matches any rule: the caller must escalate to the model.
	assert.Nil(t, c.Classify("bom dia, tudo bem?"))
}

func TestClassifyConfidence(t *testing.T) {
	c := New(nil, nil)

	t.Run("amount boosts transaction confidence", func(t *testing.T) {
		with := c.Classify("vendi um botox 2800")
		without := c.Classify("vendi um botox")
		require.NotNil(t, with)
		require.NotNil(t, without)
		assert.Greater(t, with.Confidence, without.Confidence)
	})

	t.Run("boost is capped", func(t *testing.T) {
		result := c.Classify("vendi um botox 2800")
		require.NotNil(t, result)
		assert.LessOrEqual(t, result.Confidence, 0.95)
	})

	t.Run("partial match is gated without an amount", func(t *testing.T) {
		// One of two slots matches: 0.5 + 0.2 = 0.7, right at the gate.
		result := c.Classify("gastei com uma coisa")
		require.NotNil(t, result)
		assert.InDelta(t, 0.7, result.Confidence, 0.0001)
	})
}

func TestClassifyPriorityOrder(t *testing.T) {
	// First match wins: control intents shadow transaction intents even
	// when transaction keywords appear later in the message.
	c := New(nil, nil)

	result := c.Classify("cancela o botox")
	require.NotNil(t, result)
	assert.Equal(t, IntentCancelar, result.Intent)

	result = c.Classify("desfazer a venda do botox")
	require.NotNil(t, result)
	assert.Equal(t, IntentDesfazer, result.Intent)
}

func TestIntentRuleOrder(t *testing.T) {
	// Reordering intentRules changes which intent shadows which, so the
	// order itself is pinned here.
	want := []string{
		IntentDesfazer,
		IntentCancelar,
		IntentConfirmar,
		IntentEditar,
		IntentAjuda,
		IntentConsultarSaldo,
		IntentRegistrarEntrada,
		IntentRegistrarSaida,
	}

	got := make([]string, len(intentRules))
	for i, rule := range intentRules {
		got[i] = rule.intent
	}
	assert.Equal(t, want, got)
}

func TestClassifyUsesCache(t *testing.T) {
	cache := NewResultCache()
	defer cache.Close()

	c := New(cache, nil)

	first := c.Classify("Botox 2800 3x")
	require.NotNil(t, first)

	cached, ok := cache.Get("botox 2800 3x")
	require.True(t, ok)
	assert.Equal(t, first.Intent, cached.Intent)
}

func TestResultCacheExpiry(t *testing.T) {
	cache := NewResultCache()
	defer cache.Close()

	result := &model.ClassificationResult{Intent: IntentAjuda, Confidence: 0.9}
	cache.Set("k", result, 10*time.Millisecond)

	got, ok := cache.Get("k")
	require.True(t, ok)
	assert.Equal(t, IntentAjuda, got.Intent)

	time.Sleep(20 * time.Millisecond)
	_, ok = cache.Get("k")
	assert.False(t, ok)
}
