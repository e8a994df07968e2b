package pdftext

import (
	"context"
	"strings"

	"github.com/ledongthuc/pdf"
)

// DirectExtractor returns the text layer as the PDF stores it.
type DirectExtractor struct{}

func NewDirectExtractor() *DirectExtractor {
	return &DirectExtractor{}
}

func (e *DirectExtractor) ExtractDirect(ctx context.Context, raw []byte) (string, error) {
	var pages []string
	err := eachPage(ctx, raw, func(_ int, page pdf.Page) error {
		text, err := page.GetPlainText(nil)
		if err != nil {
			return err
		}
		if text = strings.TrimSpace(text); text != "" {
			pages = append(pages, text)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return strings.Join(pages, "\n\f\n"), nil
}
