package extraction

import (
	"context"
	"errors"
)

// DefaultGeminiModel is the model used when none is configured. Boleto
// extraction wants the highest-fidelity multimodal model available:
// consistency matters more than speed here.
const DefaultGeminiModel = "gemini-1.5-pro-latest"

// ErrMissingCredential is returned before any network call when no API key
// is available for the extraction service.
var ErrMissingCredential = errors.New("extraction service api key is required")

// boletoPrompt is the shared prompt used by all extraction backends. It
// pins the exact JSON shape the parser expects.
const boletoPrompt = `Você é um assistente especializado em extrair informações de boletos de aluguel e condomínio.
Extraia todos os itens de cobrança deste boleto e seus respectivos valores.

Exemplos de itens comuns: Aluguel, Aluguel Mínimo, Condomínio, Fundo de Promoção,
IPTU, Ar Condicionado, Energia, Água, etc.

Responda APENAS no formato JSON abaixo, sem texto adicional:
{
  "empreendimento": "nome do shopping/edifício",
  "loja": "número ou identificação da loja/unidade",
  "data_vencimento": "data de vencimento",
  "valor_total": valor numérico,
  "itens": [
    {"item": "nome do item 1", "valor": valor numérico},
    {"item": "nome do item 2", "valor": valor numérico},
    ...
  ]
}

IMPORTANTE: Inclua TODOS os itens e valores encontrados.`

// LineItem is one labeled charge on a boleto.
type LineItem struct {
	Item  string  `json:"item"`
	Valor float64 `json:"valor"`
}

// BoletoData is the structured record extracted from one boleto page.
// Fields the service could not read come back as zero values; the
// aggregator applies the placeholder defaults, not this package.
type BoletoData struct {
	Empreendimento string     `json:"empreendimento"`
	Loja           string     `json:"loja"`
	DataVencimento string     `json:"data_vencimento"`
	ValorTotal     float64    `json:"valor_total"`
	Itens          []LineItem `json:"itens"`
}

// Extractor defines the interface for boleto extraction backends.
type Extractor interface {
	// ExtractBoleto sends one page image to the extraction service and
	// returns the structured record parsed from its response.
	ExtractBoleto(ctx context.Context, imageData []byte, mimeType string) (*BoletoData, error)
	// Close closes the extractor and releases resources
	Close() error
}
