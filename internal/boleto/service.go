package boleto

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/zombor/boleto-extractor/internal/batch"
	"github.com/zombor/boleto-extractor/internal/extraction"
	"github.com/zombor/boleto-extractor/internal/rendering"
)

// ExtractorFactory builds an extraction backend for one batch run from the
// credential supplied with that run. Building per batch keeps the
// credential out of global state: a request-scoped key reaches the client
// that uses it and nothing else.
type ExtractorFactory func(apiKey string) (extraction.Extractor, error)

// UploadedFile is one document submitted to a batch run, in upload order.
type UploadedFile struct {
	Name        string
	Data        []byte
	ContentType string
}

// Event levels. Warnings mark skipped documents or pages; info events mark
// document completion.
const (
	LevelInfo    = "info"
	LevelWarning = "warning"
)

// Event is one progress or warning notification from a batch run. The
// pipeline only records events; presenting them is the caller's job.
type Event struct {
	Level   string `json:"level"`
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
	Page    int    `json:"page,omitempty"`
}

// Service runs the extraction pipeline: render, encode, extract, fold.
type Service struct {
	factory ExtractorFactory
}

// NewService creates a new Service
func NewService(factory ExtractorFactory) *Service {
	return &Service{factory: factory}
}

// ProcessBatch processes every uploaded document in order and folds the
// per-page results into a fresh Batch. Execution is strictly sequential:
// one document at a time, one page at a time, one blocking extraction call
// at a time. A document that fails to render is skipped with a warning; a
// page whose extraction fails is skipped with a warning; neither aborts
// the batch. The only hard failures are a missing credential (refused
// before any service call) and an image-encoding error.
func (s *Service) ProcessBatch(ctx context.Context, files []UploadedFile, apiKey string) (*batch.Batch, []Event, error) {
	extractor, err := s.factory(apiKey)
	if err != nil {
		return nil, nil, fmt.Errorf("building extractor: %w", err)
	}
	defer extractor.Close()

	b := batch.New()
	var events []Event

	for _, file := range files {
		pages, err := renderDocument(file)
		if err != nil {
			var renderErr *rendering.RenderError
			if errors.As(err, &renderErr) {
				slog.Warn("Skipping document that could not be rendered",
					"file", file.Name,
					"error", err,
				)
				events = append(events, Event{
					Level:   LevelWarning,
					Message: fmt.Sprintf("Não foi possível converter %s em imagens.", file.Name),
					File:    file.Name,
				})
				continue
			}
			// Encoding failures are unexpected and fatal to the run
			return nil, events, err
		}

		for _, page := range pages {
			data, err := extractor.ExtractBoleto(ctx, page.PNG, rendering.PageMIMEType)
			if err != nil {
				slog.Warn("Skipping page that could not be extracted",
					"file", file.Name,
					"page", page.Number,
					"error", err,
				)
				events = append(events, Event{
					Level:   LevelWarning,
					Message: fmt.Sprintf("Não foi possível extrair dados da página %d.", page.Number),
					File:    file.Name,
					Page:    page.Number,
				})
				continue
			}

			b.Add(data, file.Name, page.Number)
		}

		// Progress is reported per document, not per page
		events = append(events, Event{
			Level:   LevelInfo,
			Message: fmt.Sprintf("Processado: %s (%d páginas)", file.Name, len(pages)),
			File:    file.Name,
		})
		slog.Info("Processed document", "file", file.Name, "pages", len(pages))
	}

	return b, events, nil
}

// renderDocument renders a PDF into its pages, or normalizes a single
// uploaded image into a one-page document.
func renderDocument(file UploadedFile) ([]rendering.Page, error) {
	if isPDF(file) {
		return rendering.RenderPDF(file.Data)
	}
	return rendering.NormalizeImage(file.Data, file.ContentType)
}

func isPDF(file UploadedFile) bool {
	contentType := strings.ToLower(strings.TrimSpace(file.ContentType))
	if contentType == "application/pdf" {
		return true
	}
	return contentType == "" && strings.EqualFold(filepath.Ext(file.Name), ".pdf")
}

// CountWarnings returns how many events are warnings.
func CountWarnings(events []Event) int {
	count := 0
	for _, e := range events {
		if e.Level == LevelWarning {
			count++
		}
	}
	return count
}
