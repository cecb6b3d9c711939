package export

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"github.com/zombor/boleto-extractor/internal/batch"
)

// ArtifactName is the fixed filename of the exported workbook.
const ArtifactName = "boletos_gemini.xlsx"

// ContentType is the media type of the exported workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ErrNothingExtracted is returned when the batch has no rows to export.
// It is a notice for the operator, not a pipeline failure.
var ErrNothingExtracted = errors.New("nenhum dado foi extraído dos PDFs")

const (
	summarySheet = "Resumo"
	detailSheet  = "Itens_Detalhados"
)

var summaryHeaders = []string{
	"Arquivo",
	"Página",
	"Empreendimento",
	"Loja/Unidade",
	"Data Vencimento",
	"Valor Total",
	"Quantidade de Itens",
}

var detailHeaders = []string{
	"Arquivo",
	"Página",
	"Empreendimento",
	"Loja/Unidade",
	"Data Vencimento",
	"Item",
	"Valor",
}

// WriteXLSX builds the two-sheet workbook for a finished batch and returns
// it fully materialized in memory. Headers and column order are fixed
// regardless of row count. An empty batch produces no artifact and
// ErrNothingExtracted instead.
func WriteXLSX(b *batch.Batch) ([]byte, error) {
	if b == nil || b.Empty() {
		return nil, ErrNothingExtracted
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, fmt.Errorf("naming summary sheet: %w", err)
	}
	if _, err := f.NewSheet(detailSheet); err != nil {
		return nil, fmt.Errorf("creating detail sheet: %w", err)
	}

	writeHeaders(f, summarySheet, summaryHeaders)
	for i, row := range b.Summary {
		writeRow(f, summarySheet, i+2, []any{
			row.Arquivo,
			row.Pagina,
			row.Empreendimento,
			row.Loja,
			row.DataVencimento,
			row.ValorTotal,
			row.QuantidadeItens,
		})
	}

	writeHeaders(f, detailSheet, detailHeaders)
	for i, row := range b.Details {
		writeRow(f, detailSheet, i+2, []any{
			row.Arquivo,
			row.Pagina,
			row.Empreendimento,
			row.Loja,
			row.DataVencimento,
			row.Item,
			row.Valor,
		})
	}

	// Widen the text-heavy columns
	_ = f.SetColWidth(summarySheet, "A", "A", 30)
	_ = f.SetColWidth(summarySheet, "C", "E", 22)
	_ = f.SetColWidth(detailSheet, "A", "A", 30)
	_ = f.SetColWidth(detailSheet, "C", "F", 22)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	slog.Info("export.xlsx.ok",
		"summary_rows", len(b.Summary),
		"detail_rows", len(b.Details),
	)
	return buf.Bytes(), nil
}

func writeHeaders(f *excelize.File, sheet string, headers []string) {
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
}

func writeRow(f *excelize.File, sheet string, row int, values []any) {
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
}
