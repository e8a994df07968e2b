package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/kirillkom/invoice-totals/internal/core/domain"
)

type reportWriterFake struct {
	docs []domain.Document
	err  error
}

func (f *reportWriterFake) WriteInvoices(w io.Writer, docs []domain.Document) error {
	if f.err != nil {
		return f.err
	}
	f.docs = docs
	_, err := w.Write([]byte("xlsx"))
	return err
}

func TestWriteInvoiceReport(t *testing.T) {
	repo := &processRepoFake{recent: []domain.Document{{ID: "doc-1"}, {ID: "doc-2"}}}
	writer := &reportWriterFake{}
	uc := NewReportUseCase(repo, writer)

	var buf bytes.Buffer
	if err := uc.WriteInvoiceReport(context.Background(), &buf, 0); err != nil {
		t.Fatalf("WriteInvoiceReport() error = %v", err)
	}
	if repo.recentLimit != defaultReportLimit {
		t.Fatalf("expected default limit %d, got %d", defaultReportLimit, repo.recentLimit)
	}
	if len(writer.docs) != 2 || buf.String() != "xlsx" {
		t.Fatalf("unexpected report output: docs=%d body=%q", len(writer.docs), buf.String())
	}
}

func TestWriteInvoiceReportWriterError(t *testing.T) {
	uc := NewReportUseCase(&processRepoFake{}, &reportWriterFake{err: errors.New("encode failed")})
	if err := uc.WriteInvoiceReport(context.Background(), io.Discard, 5000); err == nil {
		t.Fatalf("expected error")
	}
}

func TestNormalizeReportLimit(t *testing.T) {
	tests := map[int]int{-1: defaultReportLimit, 0: defaultReportLimit, 10: 10, 5000: maxReportLimit}
	for in, want := range tests {
		if got := normalizeReportLimit(in); got != want {
			t.Fatalf("normalizeReportLimit(%d) = %d, want %d", in, got, want)
		}
	}
}
