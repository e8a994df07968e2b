package plaintext

import (
	"context"
	"testing"

	"github.com/kirillkom/invoice-totals/internal/core/domain"
)

func TestExtractPlainStripsBOMAndNormalizesNewlines(t *testing.T) {
	raw := append([]byte{0xEF, 0xBB, 0xBF}, []byte("INVOICE\r\nTOTAL 10.00\r\n")...)

	text, err := NewExtractor().ExtractPlain(context.Background(), raw)
	if err != nil {
		t.Fatalf("ExtractPlain() error = %v", err)
	}
	if text != "INVOICE\nTOTAL 10.00" {
		t.Fatalf("unexpected text: %q", text)
	}
}

func TestExtractPlainRejectsBinary(t *testing.T) {
	_, err := NewExtractor().ExtractPlain(context.Background(), []byte{0xff, 0xfe, 0x00, 0x81})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestExtractPlainHonorsCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewExtractor().ExtractPlain(ctx, []byte("TOTAL 1.00")); err == nil {
		t.Fatalf("expected context error")
	}
}
