package classify

import "strings"

// Intent names produced by the heuristic classifier.
const (
	IntentRegistrarEntrada = "registrar_entrada"
	IntentRegistrarSaida   = "registrar_saida"
	IntentValueOnly        = "value_only"
	IntentDesfazer         = "desfazer"
	IntentCancelar         = "cancelar"
	IntentConfirmar        = "confirmar"
	IntentEditar           = "editar"
	IntentAjuda            = "ajuda"
	IntentConsultarSaldo   = "consultar_saldo"
)

// keywordGroup is one keyword slot of an intent rule: the slot matches when
// any of its synonyms appears in the text. The match ratio of a rule is
// matched slots over total slots.
type keywordGroup struct {
	name     string
	synonyms []string
}

// intentRule pairs an intent with its keyword slots.
type intentRule struct {
	intent string
	groups []keywordGroup
}

// intentRules is the classifier's priority order. Detection is first-match:
// the first rule with at least one matching slot wins, so earlier rules
// shadow later ones. Reordering this list changes behavior.
var intentRules = []intentRule{
	{
		intent: IntentDesfazer,
		groups: []keywordGroup{
			{name: "desfazer", synonyms: []string{"desfazer", "desfaz", "apagar ultimo", "apaga o ultimo", "errei o lancamento"}},
		},
	},
	{
		intent: IntentCancelar,
		groups: []keywordGroup{
			{name: "cancelar", synonyms: []string{"cancelar", "cancela", "deixa pra la", "esquece"}},
		},
	},
	{
		intent: IntentConfirmar,
		groups: []keywordGroup{
			{name: "confirmar", synonyms: []string{"confirmar", "confirma", "confirmado", "pode confirmar", "isso mesmo"}},
		},
	},
	{
		intent: IntentEditar,
		groups: []keywordGroup{
			{name: "editar", synonyms: []string{"editar", "edita", "alterar", "altera", "mudar", "muda", "corrigir", "corrige"}},
		},
	},
	{
		intent: IntentAjuda,
		groups: []keywordGroup{
			{name: "ajuda", synonyms: []string{"ajuda", "help", "como funciona", "o que voce faz", "comandos"}},
		},
	},
	{
		intent: IntentConsultarSaldo,
		groups: []keywordGroup{
			{name: "saldo", synonyms: []string{"saldo", "balanco", "resumo", "fechamento", "extrato"}},
			{name: "periodo", synonyms: []string{"hoje", "semana", "mes", "quanto entrou", "quanto saiu"}},
		},
	},
	{
		intent: IntentRegistrarEntrada,
		groups: []keywordGroup{
			{name: "venda", synonyms: []string{"vendi", "recebi", "atendi", "faturei", "ganhei", "entrou"}},
			{name: "procedimento", synonyms: []string{
				"botox", "preenchimento", "limpeza", "peeling", "massagem",
				"drenagem", "depilacao", "sobrancelha", "manicure", "pedicure",
				"escova", "corte", "progressiva", "microagulhamento",
				"harmonizacao", "cliente", "paciente", "procedimento",
			}},
		},
	},
	{
		intent: IntentRegistrarSaida,
		groups: []keywordGroup{
			{name: "gasto", synonyms: []string{"gastei", "paguei", "comprei", "despesa", "saida", "custo"}},
			{name: "custo", synonyms: []string{
				"insumos", "insumo", "material", "produto", "produtos",
				"aluguel", "fornecedor", "boleto", "conta", "luz", "agua",
				"internet", "telefone", "imposto", "taxa", "salario",
			}},
		},
	},
}

// revenueCategories maps a procedure keyword to its revenue category.
var revenueCategories = map[string]string{
	"botox":            "Botox",
	"preenchimento":    "Preenchimento",
	"limpeza":          "Limpeza de Pele",
	"peeling":          "Peeling",
	"massagem":         "Massagem",
	"drenagem":         "Drenagem",
	"depilacao":        "Depilação",
	"sobrancelha":      "Sobrancelha",
	"manicure":         "Manicure",
	"pedicure":         "Pedicure",
	"escova":           "Escova",
	"corte":            "Corte",
	"progressiva":      "Progressiva",
	"microagulhamento": "Microagulhamento",
	"harmonizacao":     "Harmonização",
}

// costCategories maps a cost keyword to its cost bucket.
var costCategories = map[string]string{
	"insumos":    "Insumos",
	"insumo":     "Insumos",
	"material":   "Insumos",
	"produto":    "Insumos",
	"produtos":   "Insumos",
	"aluguel":    "Aluguel",
	"fornecedor": "Fornecedores",
	"boleto":     "Contas",
	"conta":      "Contas",
	"luz":        "Contas",
	"agua":       "Contas",
	"internet":   "Contas",
	"telefone":   "Contas",
	"imposto":    "Impostos",
	"taxa":       "Impostos",
	"salario":    "Equipe",
}

// DefaultCategory is used when no keyword maps to a category.
const DefaultCategory = "Outros"

// matchGroups counts how many slots of the rule appear in the normalized
// text. Single-word synonyms match on word boundaries; phrases match as
// substrings.
func (r intentRule) matchGroups(normalized string) int {
	matched := 0
	for _, g := range r.groups {
		for _, syn := range g.synonyms {
			if matchToken(normalized, syn) {
				matched++
				break
			}
		}
	}
	return matched
}

func matchToken(normalized, token string) bool {
	if strings.Contains(token, " ") {
		return strings.Contains(normalized, token)
	}
	return containsWord(normalized, token)
}

func containsWord(t, word string) bool {
	idx := 0
	for {
		i := strings.Index(t[idx:], word)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(word)
		beforeOK := start == 0 || !isLetter(t[start-1])
		afterOK := end == len(t) || !isLetter(t[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
