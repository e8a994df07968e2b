package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDetectMimeType(t *testing.T) {
	tests := []struct {
		name string
		path string
		raw  []byte
		want string
	}{
		{name: "pdf extension", path: "a.PDF", raw: []byte("anything"), want: "application/pdf"},
		{name: "txt extension", path: "a.txt", raw: []byte{0x00, 0x01}, want: "text/plain"},
		{name: "sniffed pdf", path: "scan", raw: []byte("%PDF-1.7\n"), want: "application/pdf"},
		{name: "sniffed text", path: "notes", raw: []byte("TOTAL $10.00"), want: "text/plain"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detectMimeType(tt.path, tt.raw); got != tt.want {
				t.Fatalf("detectMimeType() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseOptions(t *testing.T) {
	opts, err := parseOptions([]string{"-vendor-total", "1250", "a.pdf", "b.txt"})
	if err != nil {
		t.Fatalf("parseOptions() error = %v", err)
	}
	if opts.format != "json" || opts.vendorTotal != 1250 || len(opts.files) != 2 {
		t.Fatalf("unexpected options: %+v", opts)
	}

	if _, err := parseOptions([]string{"-format", "csv", "a.pdf"}); err == nil {
		t.Fatalf("expected error for unknown format")
	}
	if _, err := parseOptions([]string{"-format", "xlsx", "a.pdf"}); err == nil {
		t.Fatalf("expected error for xlsx without -out")
	}
	if _, err := parseOptions(nil); err == nil {
		t.Fatalf("expected error without files")
	}
}

func TestLoadLineItems(t *testing.T) {
	path := filepath.Join(t.TempDir(), "items.json")
	if err := os.WriteFile(path, []byte(`[{"description":"Widget","total_cents":1500},{"total_cents":250}]`), 0o644); err != nil {
		t.Fatalf("write items: %v", err)
	}
	items, err := loadLineItems(path)
	if err != nil {
		t.Fatalf("loadLineItems() error = %v", err)
	}
	if len(items) != 2 || items[0].TotalCents != 1500 || items[1].TotalCents != 250 {
		t.Fatalf("unexpected items: %+v", items)
	}

	if items, err := loadLineItems(""); err != nil || items != nil {
		t.Fatalf("loadLineItems(\"\") = %v, %v", items, err)
	}
}
