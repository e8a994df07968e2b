package usecase

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/kirillkom/invoice-totals/internal/core/domain"
	"github.com/kirillkom/invoice-totals/internal/core/money"
	"github.com/kirillkom/invoice-totals/internal/core/ports"
)

const (
	defaultOCRMaxPages    = 5
	defaultOCRPageTimeout = 60 * time.Second
)

var (
	reTotalAnchor = regexp.MustCompile(`(?i)\bT[O0]TAL\b|\bAMOUNT\s+DUE\b|\bBALANCE\s+DUE\b|\bPLEASE\s+PAY\b`)
	reInvoiceWord = regexp.MustCompile(`(?i)\bINVOICE\b|\bINV\s*(?:#|NO\b)|\bSTATEMENT\b|\bBILL\s+TO\b|\bRECEIPT\b`)
)

type AcquisitionConfig struct {
	OCRMaxPages    int
	OCRPageTimeout time.Duration
}

func (c AcquisitionConfig) normalize() AcquisitionConfig {
	if c.OCRMaxPages <= 0 {
		c.OCRMaxPages = defaultOCRMaxPages
	}
	if c.OCRPageTimeout <= 0 {
		c.OCRPageTimeout = defaultOCRPageTimeout
	}
	return c
}

// AcquireTextUseCase turns document bytes into one text blob. Sources are
// tried cheapest first and only escalated while the coverage report is
// insufficient.
type AcquireTextUseCase struct {
	plain  ports.PlainTextExtractor
	direct ports.DirectTextExtractor
	layout ports.LayoutTextExtractor
	pages  ports.PageCounter
	ocr    ports.OCRExtractor
	cfg    AcquisitionConfig
	logger *slog.Logger
}

// NewAcquireTextUseCase accepts a nil ocr extractor; OCR is then skipped.
func NewAcquireTextUseCase(
	plain ports.PlainTextExtractor,
	direct ports.DirectTextExtractor,
	layout ports.LayoutTextExtractor,
	pages ports.PageCounter,
	ocr ports.OCRExtractor,
	cfg AcquisitionConfig,
	logger *slog.Logger,
) *AcquireTextUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &AcquireTextUseCase{
		plain:  plain,
		direct: direct,
		layout: layout,
		pages:  pages,
		ocr:    ocr,
		cfg:    cfg.normalize(),
		logger: logger,
	}
}

// Coverage reports which critical anchors text contains.
func Coverage(text string) domain.Coverage {
	c := domain.Coverage{
		HasTotalAnchor: reTotalAnchor.MatchString(text),
		HasInvoiceWord: reInvoiceWord.MatchString(text),
		HasMoneyValues: money.HasAmount(text),
	}
	c.MissingCriticalAnchors = !c.HasTotalAnchor || !c.HasInvoiceWord || !c.HasMoneyValues
	return c
}

// AcquireText wraps text that was extracted elsewhere.
func AcquireText(text string) domain.AcquisitionResult {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.EmptyAcquisition()
	}
	return domain.AcquisitionResult{
		Text:        text,
		SourcesUsed: domain.SourcesUsed{DirectLayerChars: len(text)},
		Coverage:    Coverage(text),
	}
}

type textSection struct {
	source domain.TextSource
	page   int
	text   string
}

func (s textSection) header() string {
	if s.page > 0 {
		return fmt.Sprintf("=== source:%s page:%d ===", s.source, s.page)
	}
	return fmt.Sprintf("=== source:%s ===", s.source)
}

type acquisition struct {
	sections []textSection
	result   domain.AcquisitionResult
}

func (a *acquisition) add(source domain.TextSource, page int, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	a.sections = append(a.sections, textSection{source: source, page: page, text: text})
	switch source {
	case domain.SourceOCR:
		a.result.SourcesUsed.OCRChars += len(text)
		a.result.OCRPages = append(a.result.OCRPages, page)
	case domain.SourceLayout:
		a.result.SourcesUsed.LayoutAwareChars += len(text)
	default:
		a.result.SourcesUsed.DirectLayerChars += len(text)
	}
}

func (a *acquisition) warn(warning string) {
	a.result.Warnings = append(a.result.Warnings, warning)
}

// text joins sections with explicit separators so that each source keeps
// its own layout.
func (a *acquisition) text() string {
	parts := make([]string, 0, len(a.sections))
	for _, s := range a.sections {
		parts = append(parts, s.header()+"\n"+s.text)
	}
	return strings.Join(parts, "\n")
}

func (a *acquisition) coverage() domain.Coverage {
	return Coverage(a.text())
}

func (a *acquisition) finish() domain.AcquisitionResult {
	if len(a.sections) == 0 {
		empty := domain.EmptyAcquisition()
		empty.Warnings = a.result.Warnings
		return empty
	}
	a.result.Text = a.text()
	a.result.Coverage = a.coverage()
	return a.result
}

// Acquire never fails for malformed or image-only documents; the only error
// it returns is the context's.
func (uc *AcquireTextUseCase) Acquire(ctx context.Context, raw []byte, mimeType string) (domain.AcquisitionResult, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return domain.EmptyAcquisition(), nil
	}
	if !isPDF(raw, mimeType) {
		return uc.acquirePlain(ctx, raw)
	}

	acq := &acquisition{}
	if text, err := uc.direct.ExtractDirect(ctx, raw); err != nil {
		uc.logger.Warn("direct_text_failed", "error", err)
		acq.warn("direct_text_failed")
	} else {
		acq.add(domain.SourceDirect, 0, text)
	}
	if err := ctx.Err(); err != nil {
		return domain.AcquisitionResult{}, err
	}

	layoutFailed := false
	if !acq.coverage().Sufficient() {
		text, err := uc.layout.ExtractLayout(ctx, raw)
		if err != nil {
			layoutFailed = true
			uc.logger.Warn("layout_text_failed", "error", err)
			acq.warn("layout_text_failed")
		} else {
			acq.add(domain.SourceLayout, 0, text)
		}
	}
	if err := ctx.Err(); err != nil {
		return domain.AcquisitionResult{}, err
	}

	if layoutFailed || !acq.coverage().Sufficient() {
		if err := uc.runOCR(ctx, raw, acq); err != nil {
			return domain.AcquisitionResult{}, err
		}
	}

	result := acq.finish()
	uc.logger.Info("text_acquired",
		"direct_chars", result.SourcesUsed.DirectLayerChars,
		"layout_chars", result.SourcesUsed.LayoutAwareChars,
		"ocr_chars", result.SourcesUsed.OCRChars,
		"ocr_pages", len(result.OCRPages),
		"missing_critical_anchors", result.Coverage.MissingCriticalAnchors,
	)
	return result, nil
}

func (uc *AcquireTextUseCase) acquirePlain(ctx context.Context, raw []byte) (domain.AcquisitionResult, error) {
	acq := &acquisition{}
	text, err := uc.plain.ExtractPlain(ctx, raw)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.AcquisitionResult{}, ctxErr
		}
		uc.logger.Warn("plain_text_failed", "error", err)
		acq.warn("plain_text_failed")
		return acq.finish(), nil
	}
	acq.add(domain.SourceText, 0, text)
	return acq.finish(), nil
}

// runOCR recognises the last page first, then the remaining pages from the
// top, stopping at the page ceiling or as soon as coverage is sufficient.
func (uc *AcquireTextUseCase) runOCR(ctx context.Context, raw []byte, acq *acquisition) error {
	if uc.ocr == nil {
		acq.warn("ocr_disabled")
		return nil
	}

	pageCount := 1
	if uc.pages != nil {
		n, err := uc.pages.PageCount(ctx, raw)
		switch {
		case err != nil:
			uc.logger.Warn("page_count_failed", "error", err)
			acq.warn("page_count_failed")
		case n > 0:
			pageCount = n
		}
	}

	for _, page := range ocrPageOrder(pageCount, uc.cfg.OCRMaxPages) {
		text, err := uc.recognize(ctx, raw, page)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if domain.IsKind(err, domain.ErrToolUnavailable) {
				uc.logger.Warn("ocr_unavailable", "error", err)
				acq.warn("ocr_unavailable")
				return nil
			}
			uc.logger.Warn("ocr_page_failed", "page", page, "error", err)
			acq.warn(fmt.Sprintf("ocr_page_%d_failed", page))
			continue
		}
		acq.add(domain.SourceOCR, page, text)
		if acq.coverage().Sufficient() {
			return nil
		}
	}
	return nil
}

func (uc *AcquireTextUseCase) recognize(ctx context.Context, raw []byte, page int) (string, error) {
	pageCtx, cancel := context.WithTimeout(ctx, uc.cfg.OCRPageTimeout)
	defer cancel()
	return uc.ocr.RecognizePage(pageCtx, raw, page)
}

// ocrPageOrder lists 1-based pages: the last one, then the rest in order.
func ocrPageOrder(pageCount, ceiling int) []int {
	if pageCount <= 0 || ceiling <= 0 {
		return nil
	}
	order := make([]int, 0, min(pageCount, ceiling))
	order = append(order, pageCount)
	for p := 1; p < pageCount && len(order) < ceiling; p++ {
		order = append(order, p)
	}
	return order
}

func isPDF(raw []byte, mimeType string) bool {
	if strings.EqualFold(strings.TrimSpace(mimeType), "application/pdf") {
		return true
	}
	return bytes.HasPrefix(bytes.TrimLeft(raw, " \t\r\n"), []byte("%PDF-"))
}
