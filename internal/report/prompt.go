package report

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/cvm-report/internal/cvm"
)

const systemPrompt = `Você é um analista financeiro sênior, especializado no mercado de ações brasileiro, trabalhando para um grande banco de investimentos.
Seu objetivo é gerar um relatório de análise fundamentalista conciso, profissional e com insights valiosos para um cliente investidor.
A linguagem deve ser formal, direta e clara, como a usada em relatórios de mercado.
Responda somente com um objeto JSON válido, sem markdown.`

const userPrompt = `Baseado nos dados financeiros fornecidos em formato JSON a seguir, gere uma análise que cubra os seguintes pontos:
1. **Visão Geral da Empresa:** Com base nos totais do balanço e resultado, faça um breve resumo da saúde financeira da empresa no período.
2. **Análise do Balanço Patrimonial (BPA e BPP):** Comente sobre a estrutura de ativos e passivos. Destaque pontos importantes como níveis de caixa, endividamento (curto e longo prazo) e patrimônio líquido.
3. **Análise da Demonstração de Resultado (DRE):** Analise a receita líquida, o lucro bruto e o lucro líquido. Comente sobre as margens (se possível calcular) e a eficiência operacional.
4. **Conclusão e Pontos de Atenção:** Forneça um parágrafo final com sua conclusão sobre a situação da empresa e aponte 2-3 pontos de atenção (positivos ou negativos) que um investidor deve observar nos próximos trimestres.

Não inclua saudações ou despedidas. Vá direto ao ponto.

Responda com um objeto JSON no formato:
{"report": "<texto da análise em markdown>", "financial_summary": {"<indicador>": <valor numérico em reais>}}
Em "financial_summary" inclua de 4 a 8 indicadores principais (por exemplo Ativo Total, Passivo Total, Patrimônio Líquido, Receita Líquida, Lucro Bruto, Lucro Líquido, Caixa e Equivalentes), com valores numéricos sem formatação.

Empresa (CNPJ): %s
Documento: %s
Ano: %d

Dados Financeiros:
%s`

// accountValue is the compact form of a statement row sent to the model.
type accountValue struct {
	Description string      `json:"DS_CONTA"`
	Value       json.Number `json:"VL_CONTA"`
}

// compactStatements reduces each statement to its account descriptions and
// values, keeping the first row for each description.
func compactStatements(set cvm.ResolvedStatementSet) map[cvm.Statement][]accountValue {
	out := make(map[cvm.Statement][]accountValue, len(set))
	for _, name := range set.Names() {
		seen := make(map[string]bool)
		var rows []accountValue
		for _, r := range set[name].Rows {
			if seen[r.AccountDescription] {
				continue
			}
			seen[r.AccountDescription] = true
			rows = append(rows, accountValue{
				Description: r.AccountDescription,
				Value:       json.Number(r.Value.String()),
			})
		}
		out[name] = rows
	}
	return out
}

// Subject identifies the filing a report is written about.
type Subject struct {
	CompanyID string
	DocType   string
	Year      int
}

func buildPrompt(subject Subject, set cvm.ResolvedStatementSet) (string, error) {
	data, err := json.MarshalIndent(compactStatements(set), "", "  ")
	if err != nil {
		return "", eris.Wrap(err, "report: marshal statements")
	}
	return fmt.Sprintf(userPrompt,
		subject.CompanyID,
		strings.ToUpper(subject.DocType),
		subject.Year,
		string(data),
	), nil
}
