// Package document converts uploaded receipt files into page images for the
// extraction pipeline.
package document

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"

	"github.com/clearledger/claimflow/internal/application/port"
)

const jpegQuality = 85

// PDFRenderer renders PDF pages to JPEG via mupdf. Image uploads pass
// through unconverted.
type PDFRenderer struct {
	logger *zap.Logger
}

func NewPDFRenderer(logger *zap.Logger) *PDFRenderer {
	return &PDFRenderer{logger: logger}
}

// RenderPages returns up to maxPages page images for the file at path.
func (r *PDFRenderer) RenderPages(path string, maxPages int) ([][]byte, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("receipt file not found: %s", path)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".pdf":
		return r.renderPDF(path, maxPages)
	case ".jpg", ".jpeg", ".png":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read image file: %w", err)
		}
		return [][]byte{data}, nil
	default:
		return nil, fmt.Errorf("unsupported file type: %s", ext)
	}
}

func (r *PDFRenderer) renderPDF(path string, maxPages int) ([][]byte, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	pageCount := doc.NumPage()
	if pageCount > maxPages {
		pageCount = maxPages
	}

	var pages [][]byte
	for pageNum := 0; pageNum < pageCount; pageNum++ {
		img, err := doc.Image(pageNum)
		if err != nil {
			r.logger.Warn("Failed to render PDF page",
				zap.String("path", path),
				zap.Int("page", pageNum),
				zap.Error(err))
			continue
		}

		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
			r.logger.Warn("Failed to encode page to JPEG",
				zap.Int("page", pageNum),
				zap.Error(err))
			continue
		}
		pages = append(pages, buf.Bytes())
	}

	if len(pages) == 0 {
		return nil, fmt.Errorf("no pages rendered from %s", path)
	}
	return pages, nil
}

// Verify interface compliance
var _ port.PageRenderer = (*PDFRenderer)(nil)
