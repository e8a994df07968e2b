// Command totalsctl analyzes invoice files from the command line without
// the API, queue or database.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/kirillkom/invoice-totals/internal/bootstrap"
	"github.com/kirillkom/invoice-totals/internal/config"
	"github.com/kirillkom/invoice-totals/internal/core/domain"
	"github.com/kirillkom/invoice-totals/internal/infrastructure/report/xlsx"
	"github.com/kirillkom/invoice-totals/internal/observability/logging"
)

type options struct {
	format      string
	out         string
	itemsPath   string
	vendorTotal int64
	files       []string
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		os.Exit(1)
	}

	opts, err := parseOptions(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "totalsctl: %v\n", err)
		os.Exit(1)
	}
}

func parseOptions(args []string) (options, error) {
	var opts options
	fset := flag.NewFlagSet("totalsctl", flag.ContinueOnError)
	fset.StringVar(&opts.format, "format", "json", "output format: json or xlsx")
	fset.StringVar(&opts.out, "out", "", "output file (default stdout)")
	fset.StringVar(&opts.itemsPath, "items", "", "JSON file with vendor line items")
	fset.Int64Var(&opts.vendorTotal, "vendor-total", 0, "vendor parser total in cents")
	if err := fset.Parse(args); err != nil {
		return options{}, err
	}
	opts.files = fset.Args()

	if opts.format != "json" && opts.format != "xlsx" {
		return options{}, fmt.Errorf("unknown format %q", opts.format)
	}
	if len(opts.files) == 0 {
		return options{}, errors.New("usage: totalsctl [flags] file...")
	}
	if opts.format == "xlsx" && opts.out == "" {
		return options{}, errors.New("-out is required for xlsx output")
	}
	return opts, nil
}

func run(ctx context.Context, opts options) error {
	cfg := config.Load()
	logger := logging.New(os.Stderr, "totalsctl", cfg.LogLevel)

	analyzer, err := bootstrap.NewAnalyzer(cfg, logger, nil)
	if err != nil {
		return err
	}

	items, err := loadLineItems(opts.itemsPath)
	if err != nil {
		return err
	}

	out := io.Writer(os.Stdout)
	if opts.out != "" {
		f, err := os.Create(opts.out)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		out = f
	}

	docs := make([]domain.Document, 0, len(opts.files))
	enc := json.NewEncoder(out)
	for _, path := range opts.files {
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		analysis, err := analyzer.Analyze(ctx, domain.AnalysisInput{
			Raw:              raw,
			MimeType:         detectMimeType(path, raw),
			LineItems:        items,
			VendorTotalCents: domain.Cents(opts.vendorTotal),
		})
		if err != nil {
			return fmt.Errorf("analyze %s: %w", path, err)
		}

		if opts.format == "json" {
			if err := enc.Encode(fileResult{File: path, Analysis: analysis}); err != nil {
				return fmt.Errorf("write result: %w", err)
			}
			continue
		}
		doc := domain.Document{
			ID:        analysis.ID,
			Filename:  filepath.Base(path),
			MimeType:  detectMimeType(path, raw),
			Status:    domain.StatusReady,
			CreatedAt: analysis.CreatedAt,
			UpdatedAt: analysis.CreatedAt,
		}
		doc.ApplyAnalysis(analysis)
		docs = append(docs, doc)
	}

	if opts.format == "xlsx" {
		return xlsx.NewWriter().WriteInvoices(out, docs)
	}
	return nil
}

type fileResult struct {
	File     string           `json:"file"`
	Analysis *domain.Analysis `json:"analysis"`
}

func loadLineItems(path string) ([]domain.LineItem, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read line items: %w", err)
	}
	var items []domain.LineItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode line items: %w", err)
	}
	return items, nil
}
