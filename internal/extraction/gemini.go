package extraction

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Gemini implements the Extractor interface using Google Gemini
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGemini creates a new Gemini Extractor instance. The sampling settings
// are fixed: temperature 0 with top_p 0.95 / top_k 64 keeps the output
// deterministic, which matters more for transcription than variety.
func NewGemini(apiKey string, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, ErrMissingCredential
	}
	if modelName == "" {
		modelName = DefaultGeminiModel
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(0)
	model.SetTopP(0.95)
	model.SetTopK(64)

	return &Gemini{
		client: client,
		model:  model,
	}, nil
}

// ExtractBoleto sends one boleto page to Gemini and parses the response.
// The call is synchronous with no retry; a slow call blocks the batch.
func (g *Gemini) ExtractBoleto(ctx context.Context, imageData []byte, mimeType string) (*BoletoData, error) {
	// genai.ImageData expects just the format suffix (e.g., "png"), not
	// the full MIME type (e.g., "image/png")
	format := strings.TrimPrefix(mimeType, "image/")
	parts := []genai.Part{
		genai.ImageData(format, imageData),
		genai.Text(boletoPrompt),
	}

	resp, err := g.model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("generating content: %w", err)
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no response from gemini")
	}

	// Extract text response
	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			responseText.WriteString(string(text))
		}
	}

	data, err := parseBoletoJSON(responseText.String())
	if err != nil {
		return nil, fmt.Errorf("parsing boleto data: %w", err)
	}

	return data, nil
}

// Close closes the Gemini client
func (g *Gemini) Close() error {
	return g.client.Close()
}
