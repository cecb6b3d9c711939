package batch

import "github.com/zombor/boleto-extractor/internal/extraction"

// NotIdentified is the placeholder for metadata the extraction service
// could not read. Missing numeric fields default to 0 instead.
const NotIdentified = "Não identificado"

// SummaryRow is one boleto page's consolidated result: record metadata
// plus item count and provenance.
type SummaryRow struct {
	Arquivo         string  `json:"arquivo"`
	Pagina          int     `json:"pagina"`
	Empreendimento  string  `json:"empreendimento"`
	Loja            string  `json:"loja"`
	DataVencimento  string  `json:"data_vencimento"`
	ValorTotal      float64 `json:"valor_total"`
	QuantidadeItens int     `json:"quantidade_itens"`
}

// DetailRow is one line item flattened with its page's metadata and
// provenance.
type DetailRow struct {
	Arquivo        string  `json:"arquivo"`
	Pagina         int     `json:"pagina"`
	Empreendimento string  `json:"empreendimento"`
	Loja           string  `json:"loja"`
	DataVencimento string  `json:"data_vencimento"`
	Item           string  `json:"item"`
	Valor          float64 `json:"valor"`
}

// Batch accumulates the results of one processing run. Rows append in
// file upload order, then page order, then item order as extracted.
// Add is the only mutator and runs on the single pipeline goroutine, so
// Batch needs no locking. The batch lives only for the run: nothing is
// persisted.
type Batch struct {
	Summary []SummaryRow
	Details []DetailRow
}

// New returns an empty Batch.
func New() *Batch {
	return &Batch{}
}

// Add folds one page's extraction result into the batch. A nil record
// adds nothing (the caller records the skipped page). Otherwise exactly
// one SummaryRow is appended, plus one DetailRow per line item, all
// sharing the same provenance. Adding the same record twice appends the
// rows twice; dedup is the caller's problem, not the fold's.
func (b *Batch) Add(data *extraction.BoletoData, file string, page int) {
	if data == nil {
		return
	}

	b.Summary = append(b.Summary, SummaryRow{
		Arquivo:         file,
		Pagina:          page,
		Empreendimento:  defaultString(data.Empreendimento),
		Loja:            defaultString(data.Loja),
		DataVencimento:  defaultString(data.DataVencimento),
		ValorTotal:      data.ValorTotal,
		QuantidadeItens: len(data.Itens),
	})

	for _, item := range data.Itens {
		b.Details = append(b.Details, DetailRow{
			Arquivo:        file,
			Pagina:         page,
			Empreendimento: defaultString(data.Empreendimento),
			Loja:           defaultString(data.Loja),
			DataVencimento: defaultString(data.DataVencimento),
			Item:           defaultString(item.Item),
			Valor:          item.Valor,
		})
	}
}

// Empty reports whether the run extracted anything at all.
func (b *Batch) Empty() bool {
	return len(b.Summary) == 0
}

func defaultString(s string) string {
	if s == "" {
		return NotIdentified
	}
	return s
}
