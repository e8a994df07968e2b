package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/kirillkom/invoice-totals/internal/core/domain"
	"github.com/kirillkom/invoice-totals/internal/infrastructure/resilience"
)

type Config struct {
	Pdftoppm    string // binary name or absolute path, default "pdftoppm"
	Tesseract   string // binary name or absolute path, default "tesseract"
	Lang        string // default "eng"
	DPI         int    // default 300
	PSM         int    // 0 keeps the tesseract default
	TessdataDir string
	Preprocess  bool
	TempDir     string // "" uses os.TempDir()
}

func (c Config) withDefaults() Config {
	if c.Pdftoppm == "" {
		c.Pdftoppm = "pdftoppm"
	}
	if c.Tesseract == "" {
		c.Tesseract = "tesseract"
	}
	if c.Lang == "" {
		c.Lang = "eng"
	}
	if c.DPI <= 0 {
		c.DPI = 300
	}
	return c
}

// Recognizer renders single PDF pages with poppler and reads them with
// tesseract.
type Recognizer struct {
	cfg      Config
	runner   Runner
	executor *resilience.Executor
	logger   *slog.Logger
}

// NewRecognizer uses the real exec runner when runner is nil.
func NewRecognizer(cfg Config, runner Runner, executor *resilience.Executor, logger *slog.Logger) *Recognizer {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = execRunner{logger: logger}
	}
	if executor == nil {
		executor = resilience.NewExecutor(resilience.DefaultConfig(), resilience.WithLogger(logger))
	}
	return &Recognizer{cfg: cfg.withDefaults(), runner: runner, executor: executor, logger: logger}
}

func (r *Recognizer) RecognizePage(ctx context.Context, raw []byte, page int) (string, error) {
	if page < 1 {
		return "", domain.WrapError(domain.ErrInvalidInput, "ocr recognize page", fmt.Errorf("page %d out of range", page))
	}

	var text string
	err := r.executor.Execute(ctx, "ocr.recognize_page", func(callCtx context.Context) error {
		out, err := r.recognize(callCtx, raw, page)
		if err != nil {
			return err
		}
		text = out
		return nil
	}, classifyOCRError)
	if err != nil {
		if domain.IsKind(err, domain.ErrToolUnavailable) {
			return "", err
		}
		return "", fmt.Errorf("ocr page %d: %w", page, err)
	}
	return text, nil
}

func (r *Recognizer) recognize(ctx context.Context, raw []byte, page int) (string, error) {
	dir, err := os.MkdirTemp(r.cfg.TempDir, "invoice-ocr-*")
	if err != nil {
		return "", domain.WrapError(domain.ErrTemporary, "create ocr workdir", err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			r.logger.Warn("ocr_workdir_cleanup_failed", "dir", dir, "error", err)
		}
	}()

	input := filepath.Join(dir, "input.pdf")
	if err := os.WriteFile(input, raw, 0o600); err != nil {
		return "", domain.WrapError(domain.ErrTemporary, "write ocr input", err)
	}

	image, err := r.renderPage(ctx, input, filepath.Join(dir, "page"), page)
	if err != nil {
		return "", err
	}
	if r.cfg.Preprocess {
		processed := filepath.Join(dir, "page-processed.png")
		if err := preprocessImage(image, processed); err != nil {
			r.logger.Warn("ocr_preprocess_failed", "page", page, "error", err)
		} else {
			image = processed
		}
	}
	return r.tesseract(ctx, image)
}

// renderPage runs `pdftoppm -r DPI -png -f p -l p in prefix` and returns the
// produced image path.
func (r *Recognizer) renderPage(ctx context.Context, input, prefix string, page int) (string, error) {
	p := strconv.Itoa(page)
	_, stderr, err := r.runner.Run(ctx, r.cfg.Pdftoppm,
		"-r", strconv.Itoa(r.cfg.DPI), "-png", "-f", p, "-l", p, input, prefix)
	if err != nil {
		return "", toolError("pdftoppm", stderr, err)
	}

	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if len(matches) == 0 {
		return "", fmt.Errorf("pdftoppm rendered no image for page %d", page)
	}
	return matches[0], nil
}

func (r *Recognizer) tesseract(ctx context.Context, image string) (string, error) {
	args := []string{image, "stdout", "-l", r.cfg.Lang}
	if r.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(r.cfg.PSM))
	}
	if r.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", r.cfg.TessdataDir)
	}
	out, stderr, err := r.runner.Run(ctx, r.cfg.Tesseract, args...)
	if err != nil {
		return "", toolError("tesseract", stderr, err)
	}
	return strings.TrimSpace(string(out)), nil
}

func toolError(tool string, stderr []byte, err error) error {
	if errors.Is(err, exec.ErrNotFound) {
		return domain.WrapError(domain.ErrToolUnavailable, tool, err)
	}
	if msg := strings.TrimSpace(truncate(string(stderr), 512)); msg != "" {
		return fmt.Errorf("%s: %w: %s", tool, err, msg)
	}
	return fmt.Errorf("%s: %w", tool, err)
}

func classifyOCRError(err error) resilience.ErrorClassification {
	if class, ok := resilience.ClassifyCommon(err); ok {
		return class
	}
	switch {
	case domain.IsKind(err, domain.ErrToolUnavailable), domain.IsKind(err, domain.ErrInvalidInput):
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	case domain.IsKind(err, domain.ErrTemporary), errors.Is(err, context.DeadlineExceeded):
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	default:
		return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
	}
}
