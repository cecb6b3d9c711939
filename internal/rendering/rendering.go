package rendering

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	"image/png"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
)

// PageMIMEType is the media type of every rendered page. Pages are always
// PNG so the extraction service receives one consistent, lossless format.
const PageMIMEType = "image/png"

// Page is one rendered document page ready for extraction. Number is
// 1-based. Pages are transient: they live only long enough for one
// extraction call.
type Page struct {
	Number int
	PNG    []byte
}

// RenderError reports that a document could not be rendered. The batch
// loop skips the document and continues with the next one.
type RenderError struct {
	Err error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("rendering document: %v", e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// RenderPDF renders every page of a PDF into PNG pages, in page order.
// go-fitz renders at 300 DPI, which is enough detail for the extraction
// service to read small print on boletos. Invalid PDF bytes or an
// unavailable render backend return a *RenderError and no pages.
func RenderPDF(pdfData []byte) ([]Page, error) {
	doc, err := fitz.NewFromMemory(pdfData)
	if err != nil {
		return nil, &RenderError{Err: fmt.Errorf("opening PDF: %w", err)}
	}
	defer doc.Close()

	pages := make([]Page, 0, doc.NumPage())
	for i := 0; i < doc.NumPage(); i++ {
		img, err := doc.Image(i)
		if err != nil {
			return nil, &RenderError{Err: fmt.Errorf("rendering page %d: %w", i+1, err)}
		}

		pngData, err := encodePNG(img)
		if err != nil {
			// Encoder failures are not render failures: they are
			// unexpected and fatal to the run.
			return nil, err
		}

		pages = append(pages, Page{Number: i + 1, PNG: pngData})
	}

	return pages, nil
}

// NormalizeImage turns a single uploaded image (JPEG, PNG, GIF, HEIC) into
// a one-page document so photos of boletos flow through the same pipeline
// as PDFs.
func NormalizeImage(imageData []byte, contentType string) ([]Page, error) {
	mimeType := strings.ToLower(strings.TrimSpace(contentType))

	var img image.Image
	var err error

	// HEIC/HEIF (common on iPhones) is not covered by Go's standard image
	// package.
	if isHEICFormat(imageData) || isHEICMimeType(mimeType) {
		img, err = heic.Decode(bytes.NewReader(imageData))
		if err != nil {
			return nil, &RenderError{Err: fmt.Errorf("decoding HEIC/HEIF image: %w", err)}
		}
	} else {
		img, _, err = image.Decode(bytes.NewReader(imageData))
		if err != nil {
			if strings.Contains(err.Error(), "unknown format") || strings.Contains(err.Error(), "unsupported") {
				return nil, &RenderError{Err: fmt.Errorf("unsupported image format, supported formats are JPEG, PNG, GIF, HEIC, HEIF, PDF: %w", err)}
			}
			return nil, &RenderError{Err: fmt.Errorf("decoding image: %w", err)}
		}
	}

	pngData, err := encodePNG(img)
	if err != nil {
		return nil, err
	}

	return []Page{{Number: 1, PNG: pngData}}, nil
}

// encodePNG serializes a bitmap to PNG. PNG is lossless and deterministic:
// the same bitmap always encodes to the same bytes.
func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// isHEICFormat checks if the image data is in HEIC/HEIF format
// HEIC files typically start with specific magic bytes
func isHEICFormat(data []byte) bool {
	if len(data) < 12 {
		return false
	}
	// HEIC files carry an ftyp box at offset 4 with a HEIC-related brand
	if string(data[4:8]) == "ftyp" {
		brand := string(data[8:12])
		if brand == "heic" || brand == "heif" || brand == "mif1" || brand == "msf1" {
			return true
		}
	}
	return false
}

// isHEICMimeType checks if the MIME type indicates HEIC/HEIF format
func isHEICMimeType(mimeType string) bool {
	return mimeType == "image/heic" || mimeType == "image/heif" ||
		strings.Contains(mimeType, "heic") || strings.Contains(mimeType, "heif")
}
