package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/invoice-totals/internal/core/domain"
	"github.com/kirillkom/invoice-totals/internal/core/ports"
	"github.com/kirillkom/invoice-totals/internal/core/reconcile"
)

// TextAcquirer produces the text blob an analysis runs on.
type TextAcquirer interface {
	Acquire(ctx context.Context, raw []byte, mimeType string) (domain.AcquisitionResult, error)
}

type VendorClassifier interface {
	Classify(text string) domain.VendorResult
}

type TotalsExtractor interface {
	Extract(text string) domain.Totals
}

type AnalyzeInvoiceUseCase struct {
	acquirer   TextAcquirer
	classifier VendorClassifier
	extractor  TotalsExtractor
	tolerance  domain.Cents
	observer   ports.AnalysisObserver
	logger     *slog.Logger
	now        func() time.Time
}

// NewAnalyzeInvoiceUseCase accepts a nil observer. A negative tolerance
// selects domain.DefaultReconcileTolerance.
func NewAnalyzeInvoiceUseCase(
	acquirer TextAcquirer,
	classifier VendorClassifier,
	extractor TotalsExtractor,
	tolerance domain.Cents,
	observer ports.AnalysisObserver,
	logger *slog.Logger,
) *AnalyzeInvoiceUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	if tolerance < 0 {
		tolerance = domain.DefaultReconcileTolerance
	}
	return &AnalyzeInvoiceUseCase{
		acquirer:   acquirer,
		classifier: classifier,
		extractor:  extractor,
		tolerance:  tolerance,
		observer:   observer,
		logger:     logger,
		now:        time.Now,
	}
}

// Analyze returns a fully populated analysis for any input, including empty
// and unsupported documents. Only context cancellation is reported as an
// error.
func (uc *AnalyzeInvoiceUseCase) Analyze(ctx context.Context, in domain.AnalysisInput) (*domain.Analysis, error) {
	started := uc.now()

	acquisition, err := uc.acquire(ctx, in)
	if err != nil {
		return nil, err
	}

	var (
		vendorResult domain.VendorResult
		totals       domain.Totals
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		vendorResult = uc.classifier.Classify(acquisition.Text)
		return gctx.Err()
	})
	g.Go(func() error {
		totals = uc.extractor.Extract(acquisition.Text)
		return gctx.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	analysis := &domain.Analysis{
		ID:             uuid.NewString(),
		Acquisition:    acquisition,
		Vendor:         vendorResult,
		Totals:         totals,
		Selection:      reconcile.SelectBestTotal(totals, in.LineItems, in.VendorTotalCents),
		Reconciliation: reconcile.Reconcile(totals, in.LineItems, uc.tolerance),
		CreatedAt:      started.UTC(),
	}
	analysis.DurationMS = float64(uc.now().Sub(started).Microseconds()) / 1000

	if uc.observer != nil {
		uc.observer.ObserveAnalysis(analysis)
	}
	uc.logger.Info("analysis_completed",
		"analysis_id", analysis.ID,
		"vendor_key", analysis.Vendor.VendorKey,
		"total_cents", int64(analysis.Selection.TotalCents),
		"total_source", analysis.Selection.Source,
		"confidence", analysis.Selection.Confidence,
		"reconcile_reason", analysis.Reconciliation.Reason,
		"warnings", len(analysis.Totals.Warnings)+len(analysis.Acquisition.Warnings),
	)
	return analysis, nil
}

func (uc *AnalyzeInvoiceUseCase) acquire(ctx context.Context, in domain.AnalysisInput) (domain.AcquisitionResult, error) {
	if len(in.Raw) == 0 {
		return AcquireText(in.Text), nil
	}
	return uc.acquirer.Acquire(ctx, in.Raw, in.MimeType)
}
