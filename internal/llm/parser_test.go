package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfigueira/caixinha/internal/model"
)

func TestParseClassification(t *testing.T) {
	t.Run("plain JSON", func(t *testing.T) {
		result, err := parseClassification(`{"intent":"registrar_entrada","confidence":0.82,"data":{"amount":2800,"category":"Botox"}}`)
		require.NoError(t, err)

		assert.Equal(t, "registrar_entrada", result.Intent)
		assert.InDelta(t, 0.82, result.Confidence, 0.0001)
		assert.Equal(t, model.SourceModel, result.Source)
		assert.Equal(t, "Botox", result.Data["category"])
	})

	t.Run("markdown fences stripped", func(t *testing.T) {
		content := "```json\n{\"intent\":\"ajuda\",\"confidence\":0.9}\n```"
		result, err := parseClassification(content)
		require.NoError(t, err)
		assert.Equal(t, "ajuda", result.Intent)
	})

	t.Run("surrounding prose tolerated", func(t *testing.T) {
		content := `Here is the classification: {"intent":"consultar_saldo","confidence":0.75} Hope that helps!`
		result, err := parseClassification(content)
		require.NoError(t, err)
		assert.Equal(t, "consultar_saldo", result.Intent)
	})

	t.Run("confidence clamped", func(t *testing.T) {
		result, err := parseClassification(`{"intent":"ajuda","confidence":1.7}`)
		require.NoError(t, err)
		assert.Equal(t, 1.0, result.Confidence)

		result, err = parseClassification(`{"intent":"ajuda","confidence":-0.3}`)
		require.NoError(t, err)
		assert.Equal(t, 0.0, result.Confidence)
	})

	t.Run("nil data becomes empty map", func(t *testing.T) {
		result, err := parseClassification(`{"intent":"ajuda","confidence":0.9}`)
		require.NoError(t, err)
		assert.NotNil(t, result.Data)
	})

	t.Run("missing intent rejected", func(t *testing.T) {
		_, err := parseClassification(`{"confidence":0.9}`)
		assert.Error(t, err)
	})

	t.Run("no JSON rejected", func(t *testing.T) {
		_, err := parseClassification("I could not classify that message.")
		assert.Error(t, err)
	})

	t.Run("malformed JSON rejected", func(t *testing.T) {
		_, err := parseClassification(`{"intent":"ajuda",`)
		assert.Error(t, err)
	})
}
