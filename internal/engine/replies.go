package engine

// User-facing replies. Failures are always phrased as recoverable.
const (
	msgNotUnderstood = "Não entendi muito bem. 🤔 Você pode me contar de outro jeito? Por exemplo: \"Botox 2800 3x\" ou \"insumos 1500\"."

	msgValueWithoutContext = "Anotei o valor, mas valor de quê? Me conta se foi uma venda ou um gasto."

	msgAskAmount = "Certo! E qual foi o valor?"

	msgDraftExpired = "Esse lançamento ficou parado por mais de 5 minutos e expirou. Me manda de novo, por favor!"

	msgDraftCancelled = "Tudo bem, lançamento cancelado. 👍"

	msgTryAgain = "Opa, tive um problema aqui. 😅 Tenta de novo em instantes que os dados não se perderam."

	msgNothingToConfirm = "Não tem nada pendente para confirmar."

	msgNothingToCancel = "Não tem nada pendente para cancelar."

	msgNothingToUndo = "Não achei um lançamento recente para desfazer (a janela é de 10 minutos)."

	msgNothingToEdit = "Não achei um lançamento recente para editar (a janela é de 10 minutos)."

	msgAskEditAmount = "Qual deve ser o novo valor?"

	msgHelp = "Eu registro suas vendas e gastos por mensagem! 📒\n" +
		"• \"Botox 2800 3x\" registra uma venda parcelada\n" +
		"• \"insumos 1500\" registra um gasto\n" +
		"• \"saldo\" mostra o resumo do mês\n" +
		"• \"desfazer\" apaga o último lançamento"
)
