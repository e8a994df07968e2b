package totals

import (
	"log/slog"
	"sync"

	"github.com/kirillkom/invoice-totals/internal/core/domain"
)

const WarningExtractionPanic = "extraction_panic"

// Engine runs the totals pipeline: stacked detectors, the candidate scan,
// the nuclear fallback and the last-resort heuristic, then sanity checks.
// It is stateless across calls and safe for concurrent use.
type Engine struct {
	logger *slog.Logger
	sanity *SanityChecker
}

func NewEngine(logger *slog.Logger, sanity *SanityChecker) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if sanity == nil {
		sanity = defaultChecker()
	}
	return &Engine{logger: logger, sanity: sanity}
}

var (
	engineOnce    sync.Once
	defaultEngine *Engine

	sanityOnce    sync.Once
	defaultSanity *SanityChecker
)

func defaultChecker() *SanityChecker {
	sanityOnce.Do(func() {
		defaultSanity = mustDefaultSanityChecker()
	})
	return defaultSanity
}

// ExtractTotals runs the default engine over text.
func ExtractTotals(text string) domain.Totals {
	engineOnce.Do(func() {
		defaultEngine = NewEngine(nil, nil)
	})
	return defaultEngine.Extract(text)
}

// Extract never panics; malformed input yields zero totals without evidence.
func (e *Engine) Extract(text string) (out domain.Totals) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("totals_extraction_panicked", "panic", r)
			out = domain.Totals{Warnings: []string{WarningExtractionPanic}}
		}
	}()

	d := newDocument(text)
	if len(d.lines) == 0 {
		return domain.Totals{}
	}

	out, subtotals := scanTotals(d)
	stackedSubtotal := false
	if stacked, ok := detectStacked(d); ok {
		mergeStacked(&out, stacked)
		stackedSubtotal = stacked.Evidence.Subtotal != nil
	}

	if !out.HasTotal() {
		if ev, cents, ok := nuclearFallback(d); ok {
			out.TotalCents = cents
			out.Evidence.Total = ev
		} else if ev, cents, ok := lastResort(d); ok {
			out.TotalCents = cents
			out.Evidence.Total = ev
		}
	}

	// The subtotal is chosen against the final total.
	if !stackedSubtotal {
		out.SubtotalCents = 0
		out.Evidence.Subtotal = nil
		applySubtotal(&out, subtotals)
	}

	e.annotate(&out, text)
	return out
}

// mergeStacked lets a structural match override the scanned total and
// whichever of subtotal and tax it carries. Fees and discounts always come
// from the scan.
func mergeStacked(out *domain.Totals, stacked domain.Totals) {
	out.TotalCents = stacked.TotalCents
	out.Evidence.Total = stacked.Evidence.Total
	if stacked.Evidence.Subtotal != nil {
		out.SubtotalCents = stacked.SubtotalCents
		out.Evidence.Subtotal = stacked.Evidence.Subtotal
	}
	if stacked.Evidence.Tax != nil {
		out.TaxCents = stacked.TaxCents
		out.Evidence.Tax = stacked.Evidence.Tax
	}
}

func (e *Engine) annotate(out *domain.Totals, text string) {
	warnings, err := e.sanity.Check(*out)
	if err != nil {
		e.logger.Warn("totals_sanity_check_failed", "error", err)
	}
	for _, w := range warnings {
		e.logger.Warn("totals_sanity_warning",
			"warning", w,
			"total_cents", int64(out.TotalCents),
			"subtotal_cents", int64(out.SubtotalCents),
			"text_len", len(text),
		)
	}
	out.Warnings = append(out.Warnings, warnings...)
}
