package boleto

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/zombor/boleto-extractor/internal/export"
	"github.com/zombor/boleto-extractor/internal/extraction"
)

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// jsonError writes a JSON error response with CORS headers set
func jsonError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// handleIndex serves the HTML interface
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

// handleExtract runs one batch: renders every uploaded document, extracts
// each page, and responds with the consolidated XLSX workbook.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	// Max 100MB per batch: scanned boletos run a few MB per file and a
	// batch can hold a whole month of them
	maxFormSize := int64(100 << 20)
	if err := r.ParseMultipartForm(maxFormSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		msg := "Error parsing form"
		if err.Error() == "http: request body too large" {
			msg = "Upload is too large. Maximum batch size is 100MB."
		}
		jsonError(w, msg, http.StatusBadRequest)
		return
	}

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		jsonError(w, "No files were selected. Please choose PDF files to upload.", http.StatusBadRequest)
		return
	}

	// Files are read in upload order; the batch preserves that order
	files := make([]UploadedFile, 0, len(headers))
	for _, header := range headers {
		f, err := header.Open()
		if err != nil {
			slog.Error("Error opening uploaded file", "filename", header.Filename, "error", err)
			jsonError(w, fmt.Sprintf("Error reading %s. Please try again.", header.Filename), http.StatusInternalServerError)
			return
		}

		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			slog.Error("Error reading file data", "filename", header.Filename, "error", err)
			jsonError(w, fmt.Sprintf("Error reading %s. Please try again.", header.Filename), http.StatusInternalServerError)
			return
		}

		files = append(files, UploadedFile{
			Name:        header.Filename,
			Data:        data,
			ContentType: detectContentType(header.Filename, header.Header.Get("Content-Type")),
		})
	}

	apiKey := r.FormValue("api_key")

	b, events, err := s.service.ProcessBatch(r.Context(), files, apiKey)
	if err != nil {
		if errors.Is(err, extraction.ErrMissingCredential) {
			jsonError(w, "Por favor, forneça uma API key do Gemini", http.StatusBadRequest)
			return
		}
		slog.Error("Error processing batch", "error", err)
		jsonError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	workbook, err := export.WriteXLSX(b)
	if err != nil {
		if errors.Is(err, export.ErrNothingExtracted) {
			setCORSHeaders(w)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnprocessableEntity)
			json.NewEncoder(w).Encode(map[string]any{
				"notice": "Nenhum dado foi extraído dos PDFs.",
				"events": events,
			})
			return
		}
		slog.Error("Error writing workbook", "error", err)
		jsonError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	setCORSHeaders(w)
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", export.ArtifactName))
	w.Header().Set("X-Extraction-Warnings", fmt.Sprintf("%d", CountWarnings(events)))
	w.Write(workbook)
}

// handleLinhaDigitavel is a placeholder: typeable-line entry performs no
// processing yet.
func (s *Server) handleLinhaDigitavel(w http.ResponseWriter, r *http.Request) {
	s.handleManualEntryStub(w, r, "linha_digitavel")
}

// handleCodigoBarras is a placeholder: barcode entry performs no
// processing yet.
func (s *Server) handleCodigoBarras(w http.ResponseWriter, r *http.Request) {
	s.handleManualEntryStub(w, r, "codigo_barras")
}

func (s *Server) handleManualEntryStub(w http.ResponseWriter, r *http.Request, field string) {
	if r.FormValue(field) == "" {
		jsonError(w, fmt.Sprintf("%s is required", field), http.StatusBadRequest)
		return
	}

	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotImplemented)
	json.NewEncoder(w).Encode(map[string]string{
		"notice": "Esta funcionalidade será implementada em breve",
	})
}

// detectContentType falls back to the file extension when the client did
// not send a content type.
func detectContentType(filename, contentType string) string {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if contentType != "" && contentType != "application/octet-stream" {
		return contentType
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return "application/pdf"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	default:
		return "application/octet-stream"
	}
}
