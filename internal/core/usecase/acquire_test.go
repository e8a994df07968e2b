package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/invoice-totals/internal/core/domain"
)

var pdfBytes = []byte("%PDF-1.7\n...")

type plainFake struct {
	text string
	err  error
}

func (f *plainFake) ExtractPlain(context.Context, []byte) (string, error) { return f.text, f.err }

type directFake struct {
	text  string
	err   error
	calls int
}

func (f *directFake) ExtractDirect(context.Context, []byte) (string, error) {
	f.calls++
	return f.text, f.err
}

type layoutFake struct {
	text  string
	err   error
	calls int
}

func (f *layoutFake) ExtractLayout(context.Context, []byte) (string, error) {
	f.calls++
	return f.text, f.err
}

type pageCounterFake struct {
	n   int
	err error
}

func (f *pageCounterFake) PageCount(context.Context, []byte) (int, error) { return f.n, f.err }

type ocrFake struct {
	pages map[int]string
	errs  map[int]error
	calls []int
}

func (f *ocrFake) RecognizePage(ctx context.Context, _ []byte, page int) (string, error) {
	f.calls = append(f.calls, page)
	if _, ok := ctx.Deadline(); !ok {
		return "", errors.New("expected per-page deadline")
	}
	if err := f.errs[page]; err != nil {
		return "", err
	}
	return f.pages[page], nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newAcquirer(direct *directFake, layout *layoutFake, pages *pageCounterFake, ocr *ocrFake) *AcquireTextUseCase {
	uc := NewAcquireTextUseCase(&plainFake{}, direct, layout, pages, nil, AcquisitionConfig{OCRMaxPages: 3, OCRPageTimeout: time.Second}, discardLogger())
	if ocr != nil {
		uc.ocr = ocr
	}
	return uc
}

const fullInvoice = "ACME FOODS\nINVOICE 42\nWIDGETS 10.00\nTOTAL 10.00"

func TestCoverage(t *testing.T) {
	c := Coverage(fullInvoice)
	if !c.HasTotalAnchor || !c.HasInvoiceWord || !c.HasMoneyValues || !c.Sufficient() {
		t.Fatalf("Coverage() = %+v, want sufficient", c)
	}
	c = Coverage("INVOICE 42\nTOTAL")
	if c.HasMoneyValues || c.Sufficient() {
		t.Fatalf("Coverage() = %+v, want missing money values", c)
	}
}

func TestAcquireDirectTextSufficient(t *testing.T) {
	direct := &directFake{text: fullInvoice}
	layout := &layoutFake{}
	ocr := &ocrFake{}
	uc := newAcquirer(direct, layout, &pageCounterFake{n: 2}, ocr)

	got, err := uc.Acquire(context.Background(), pdfBytes, "application/pdf")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if layout.calls != 0 || len(ocr.calls) != 0 {
		t.Fatalf("expected no escalation, layout=%d ocr=%v", layout.calls, ocr.calls)
	}
	if got.SourcesUsed.DirectLayerChars != len(fullInvoice) || got.Coverage.MissingCriticalAnchors {
		t.Fatalf("unexpected result: %+v", got)
	}
	if !strings.HasPrefix(got.Text, "=== source:direct ===\n") {
		t.Fatalf("expected source separator, got %q", got.Text)
	}
}

func TestAcquireEscalatesToLayout(t *testing.T) {
	direct := &directFake{text: "ACME FOODS\nINVOICE 42"}
	layout := &layoutFake{text: "WIDGETS      10.00\nTOTAL        10.00"}
	ocr := &ocrFake{}
	uc := newAcquirer(direct, layout, &pageCounterFake{n: 1}, ocr)

	got, err := uc.Acquire(context.Background(), pdfBytes, "")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if layout.calls != 1 || len(ocr.calls) != 0 {
		t.Fatalf("expected layout only, layout=%d ocr=%v", layout.calls, ocr.calls)
	}
	if !got.Coverage.Sufficient() || got.SourcesUsed.LayoutAwareChars == 0 {
		t.Fatalf("unexpected result: %+v", got)
	}
	if !strings.Contains(got.Text, "=== source:layout ===") {
		t.Fatalf("expected layout separator, got %q", got.Text)
	}
}

func TestAcquireOCRLastPageFirst(t *testing.T) {
	ocr := &ocrFake{pages: map[int]string{
		1: "ACME FOODS INVOICE 42",
		4: "NOTES ONLY",
		2: "WIDGETS 10.00\nTOTAL 10.00",
	}}
	uc := newAcquirer(&directFake{}, &layoutFake{}, &pageCounterFake{n: 4}, ocr)

	got, err := uc.Acquire(context.Background(), pdfBytes, "application/pdf")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if !slices.Equal(ocr.calls, []int{4, 1, 2}) {
		t.Fatalf("OCR page order = %v, want [4 1 2]", ocr.calls)
	}
	if !slices.Equal(got.OCRPages, []int{4, 1, 2}) || !got.Coverage.Sufficient() {
		t.Fatalf("unexpected result: %+v", got)
	}
	if !strings.Contains(got.Text, "=== source:ocr page:4 ===") {
		t.Fatalf("expected page separator, got %q", got.Text)
	}
}

func TestAcquireOCRStopsWhenCoverageSufficient(t *testing.T) {
	ocr := &ocrFake{pages: map[int]string{3: "INVOICE 7\nTOTAL 99.00"}}
	uc := newAcquirer(&directFake{}, &layoutFake{}, &pageCounterFake{n: 3}, ocr)

	if _, err := uc.Acquire(context.Background(), pdfBytes, "application/pdf"); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if !slices.Equal(ocr.calls, []int{3}) {
		t.Fatalf("OCR calls = %v, want only the last page", ocr.calls)
	}
}

func TestAcquireOCRUnavailableIsWarning(t *testing.T) {
	ocr := &ocrFake{errs: map[int]error{
		2: domain.WrapError(domain.ErrToolUnavailable, "run tesseract", errors.New("executable file not found")),
	}}
	direct := &directFake{text: "INVOICE 42"}
	uc := newAcquirer(direct, &layoutFake{err: errors.New("bad xref")}, &pageCounterFake{n: 2}, ocr)

	got, err := uc.Acquire(context.Background(), pdfBytes, "application/pdf")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if !slices.Contains(got.Warnings, "ocr_unavailable") || !slices.Contains(got.Warnings, "layout_text_failed") {
		t.Fatalf("warnings = %v", got.Warnings)
	}
	if len(ocr.calls) != 1 {
		t.Fatalf("expected OCR to stop after unavailable tool, got %v", ocr.calls)
	}
	if got.Text == "" || got.SourcesUsed.DirectLayerChars == 0 {
		t.Fatalf("expected earlier stages to be kept: %+v", got)
	}
}

func TestAcquireOCRPageFailureContinues(t *testing.T) {
	ocr := &ocrFake{
		pages: map[int]string{1: "INVOICE 1\nTOTAL 5.00"},
		errs:  map[int]error{2: errors.New("tesseract exit status 1")},
	}
	uc := newAcquirer(&directFake{}, &layoutFake{}, &pageCounterFake{n: 2}, ocr)

	got, err := uc.Acquire(context.Background(), pdfBytes, "application/pdf")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if !slices.Contains(got.Warnings, "ocr_page_2_failed") || !got.Coverage.Sufficient() {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestAcquireNothingUsable(t *testing.T) {
	uc := newAcquirer(&directFake{}, &layoutFake{}, &pageCounterFake{n: 1}, nil)

	got, err := uc.Acquire(context.Background(), pdfBytes, "application/pdf")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if got.Text != "" || !got.Coverage.MissingCriticalAnchors {
		t.Fatalf("expected empty acquisition, got %+v", got)
	}
	if !slices.Contains(got.Warnings, "ocr_disabled") {
		t.Fatalf("warnings = %v, want ocr_disabled", got.Warnings)
	}
}

func TestAcquireCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	uc := newAcquirer(&directFake{err: context.Canceled}, &layoutFake{}, &pageCounterFake{n: 1}, &ocrFake{})

	if _, err := uc.Acquire(ctx, pdfBytes, "application/pdf"); !errors.Is(err, context.Canceled) {
		t.Fatalf("Acquire() error = %v, want context.Canceled", err)
	}
}

func TestAcquirePlainText(t *testing.T) {
	uc := NewAcquireTextUseCase(&plainFake{text: fullInvoice}, &directFake{}, &layoutFake{}, nil, nil, AcquisitionConfig{}, discardLogger())

	got, err := uc.Acquire(context.Background(), []byte(fullInvoice), "text/plain")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if !strings.Contains(got.Text, "=== source:text ===") || !got.Coverage.Sufficient() {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestAcquireEmptyInput(t *testing.T) {
	uc := newAcquirer(&directFake{}, &layoutFake{}, &pageCounterFake{}, nil)
	got, err := uc.Acquire(context.Background(), nil, "")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if got.Text != "" || !got.Coverage.MissingCriticalAnchors || got.SourcesUsed != (domain.SourcesUsed{}) {
		t.Fatalf("expected empty acquisition, got %+v", got)
	}
	if empty := AcquireText(""); empty.Text != "" || !empty.Coverage.MissingCriticalAnchors {
		t.Fatalf("AcquireText(\"\") = %+v", empty)
	}
}

func TestOCRPageOrder(t *testing.T) {
	tests := []struct {
		pages, ceiling int
		want           []int
	}{
		{pages: 1, ceiling: 5, want: []int{1}},
		{pages: 3, ceiling: 5, want: []int{3, 1, 2}},
		{pages: 10, ceiling: 3, want: []int{10, 1, 2}},
		{pages: 0, ceiling: 3, want: nil},
	}
	for _, tt := range tests {
		if got := ocrPageOrder(tt.pages, tt.ceiling); !slices.Equal(got, tt.want) {
			t.Fatalf("ocrPageOrder(%d, %d) = %v, want %v", tt.pages, tt.ceiling, got, tt.want)
		}
	}
}
