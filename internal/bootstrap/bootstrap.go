package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/kirillkom/invoice-totals/internal/config"
	"github.com/kirillkom/invoice-totals/internal/core/domain"
	"github.com/kirillkom/invoice-totals/internal/core/ports"
	"github.com/kirillkom/invoice-totals/internal/core/totals"
	"github.com/kirillkom/invoice-totals/internal/core/usecase"
	"github.com/kirillkom/invoice-totals/internal/core/vendor"
	"github.com/kirillkom/invoice-totals/internal/infrastructure/extractor/ocr"
	"github.com/kirillkom/invoice-totals/internal/infrastructure/extractor/pdftext"
	"github.com/kirillkom/invoice-totals/internal/infrastructure/extractor/plaintext"
	"github.com/kirillkom/invoice-totals/internal/infrastructure/queue/nats"
	"github.com/kirillkom/invoice-totals/internal/infrastructure/report/xlsx"
	"github.com/kirillkom/invoice-totals/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/invoice-totals/internal/infrastructure/resilience"
	"github.com/kirillkom/invoice-totals/internal/infrastructure/storage/localfs"
)

type App struct {
	Config config.Config

	Queue     ports.MessageQueue
	Repo      ports.DocumentRepository
	IngestUC  ports.DocumentIngestor
	ProcessUC ports.DocumentProcessor
	AnalyzeUC ports.InvoiceAnalyzer
	ReportUC  ports.ReportService

	closeFn func()
}

// New wires the full service. observer receives every analysis and may be nil.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger, observer ports.AnalysisObserver) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	analyzer, err := NewAnalyzer(cfg, logger, observer)
	if err != nil {
		return nil, err
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewDocumentRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: resilience.NewExecutor(resilienceConfig(cfg), resilience.WithLogger(logger)),
		Logger:             logger,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	return &App{
		Config: cfg,
		Queue:  queue,
		Repo:   repo,

		IngestUC:  usecase.NewIngestDocumentUseCase(repo, storage, queue),
		ProcessUC: usecase.NewProcessDocumentUseCase(repo, storage, analyzer),
		AnalyzeUC: analyzer,
		ReportUC:  usecase.NewReportUseCase(repo, xlsx.NewWriter()),

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

// NewAnalyzer builds the acquisition, classification and extraction
// pipeline without any storage or messaging.
func NewAnalyzer(cfg config.Config, logger *slog.Logger, observer ports.AnalysisObserver) (*usecase.AnalyzeInvoiceUseCase, error) {
	if logger == nil {
		logger = slog.Default()
	}

	catalog, err := loadVendorCatalog(cfg.VendorCatalogPath)
	if err != nil {
		return nil, err
	}
	sanity, err := loadSanityRules(cfg.SanityRulesPath)
	if err != nil {
		return nil, err
	}

	var recognizer ports.OCRExtractor
	if cfg.OCREnabled {
		ocrResilience := resilienceConfig(cfg)
		ocrResilience.AttemptTimeout = cfg.OCRPageTimeout
		recognizer = ocr.NewRecognizer(ocr.Config{
			Pdftoppm:    cfg.OCRPdftoppm,
			Tesseract:   cfg.OCRTesseract,
			Lang:        cfg.OCRLang,
			DPI:         cfg.OCRDPI,
			PSM:         cfg.OCRPSM,
			TessdataDir: cfg.OCRTessdataDir,
			Preprocess:  cfg.OCRPreprocess,
		}, nil, resilience.NewExecutor(ocrResilience, resilience.WithLogger(logger)), logger)
	}

	acquirer := usecase.NewAcquireTextUseCase(
		plaintext.NewExtractor(),
		pdftext.NewDirectExtractor(),
		pdftext.NewLayoutExtractor(cfg.LayoutBandTolerance),
		pdftext.PageCounter{},
		recognizer,
		usecase.AcquisitionConfig{
			OCRMaxPages:    cfg.OCRMaxPages,
			OCRPageTimeout: cfg.OCRPageTimeout,
		},
		logger,
	)

	return usecase.NewAnalyzeInvoiceUseCase(
		acquirer,
		vendor.NewClassifier(catalog),
		totals.NewEngine(logger, sanity),
		domain.Cents(cfg.ReconcileToleranceCents),
		observer,
		logger,
	), nil
}

func resilienceConfig(cfg config.Config) resilience.Config {
	out := resilience.DefaultConfig()
	out.RetryMaxAttempts = cfg.ResilienceRetryMaxAttempts
	out.RetryInitialBackoff = cfg.ResilienceRetryInitialBackoff
	out.RetryMaxBackoff = cfg.ResilienceRetryMaxBackoff
	out.BreakerEnabled = cfg.ResilienceBreakerEnabled
	if cfg.ResilienceBreakerMinRequests > 0 {
		out.BreakerMinRequests = uint32(cfg.ResilienceBreakerMinRequests)
	}
	out.BreakerFailureRatio = cfg.ResilienceBreakerFailureRatio
	out.BreakerOpenTimeout = cfg.ResilienceBreakerOpenTimeout
	return out
}

func loadVendorCatalog(path string) (*vendor.Catalog, error) {
	if path == "" {
		return vendor.DefaultCatalog(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vendor catalog: %w", err)
	}
	defer f.Close()
	catalog, err := vendor.LoadCatalog(f)
	if err != nil {
		return nil, fmt.Errorf("load vendor catalog %s: %w", path, err)
	}
	return catalog, nil
}

// loadSanityRules returns nil for an empty path; the engine then uses the
// embedded rule pack.
func loadSanityRules(path string) (*totals.SanityChecker, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sanity rules: %w", err)
	}
	defer f.Close()
	checker, err := totals.LoadSanityRules(f)
	if err != nil {
		return nil, fmt.Errorf("load sanity rules %s: %w", path, err)
	}
	return checker, nil
}
