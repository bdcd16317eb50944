package dialog

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mfigueira/caixinha/internal/model"
)

const (
	promptPaymentMethod = "Como foi o pagamento?\n1. Pix\n2. Débito\n3. Crédito à vista\n4. Parcelado"

	promptCardType = "Foi no cartão! Crédito à vista ou parcelado?\n1. Crédito à vista\n2. Parcelado"

	promptInstallments = "Em quantas vezes? (1 a 12)"

	msgCancelled = "Tudo bem, lançamento cancelado. 👍"

	msgExpired = "Esse lançamento ficou parado por mais de 5 minutos e expirou. Me manda de novo, por favor!"
)

var methodLabels = map[model.PaymentMethod]string{
	model.MethodPix:           "Pix",
	model.MethodDinheiro:      "Dinheiro",
	model.MethodDebito:        "Débito",
	model.MethodCreditoAvista: "Crédito à vista",
	model.MethodParcelado:     "Parcelado",
}

// Summary renders the confirmation prompt for a draft.
func Summary(draft *model.TransactionDraft) string {
	var b strings.Builder

	if draft.Kind == model.KindEntrada {
		b.WriteString("Confirma essa entrada?\n")
	} else {
		b.WriteString("Confirma essa saída?\n")
	}

	fmt.Fprintf(&b, "💰 Valor: %s\n", FormatBRL(draft.Amount))
	if draft.Category != "" {
		fmt.Fprintf(&b, "🏷️ Categoria: %s\n", draft.Category)
	}
	if draft.ClientName != "" {
		fmt.Fprintf(&b, "🙋 Cliente: %s\n", draft.ClientName)
	}

	method := methodLabels[draft.PaymentMethod]
	if draft.PaymentMethod == model.MethodParcelado && draft.InstallmentCount > 0 {
		method = fmt.Sprintf("Parcelado em %dx", draft.InstallmentCount)
	}
	if draft.CardBrand != "" {
		method = fmt.Sprintf("%s (%s)", method, draft.CardBrand)
	}
	if method != "" {
		fmt.Fprintf(&b, "💳 Pagamento: %s\n", method)
	}

	fmt.Fprintf(&b, "📅 Data: %s\n", draft.Date.Format("02/01/2006"))
	b.WriteString("\nResponda 1 para confirmar ou 2 para cancelar.")

	return b.String()
}

// FormatBRL renders a decimal as Brazilian currency: R$ 2.800,00.
func FormatBRL(v decimal.Decimal) string {
	s := v.StringFixed(2)

	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	parts := strings.SplitN(s, ".", 2)
	intPart, fracPart := parts[0], parts[1]

	var groups []string
	for len(intPart) > 3 {
		groups = append([]string{intPart[len(intPart)-3:]}, groups...)
		intPart = intPart[:len(intPart)-3]
	}
	groups = append([]string{intPart}, groups...)

	out := "R$ " + strings.Join(groups, ".") + "," + fracPart
	if neg {
		out = "-" + out
	}
	return out
}
