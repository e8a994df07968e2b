package pdftext

import (
	"bytes"
	"context"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// openReader parses raw PDF bytes. The pdf package panics on some malformed
// inputs, so every entry point recovers and reports an error instead.
func openReader(raw []byte) (reader *pdf.Reader, err error) {
	defer func() {
		if r := recover(); r != nil {
			reader = nil
			err = fmt.Errorf("parse pdf: %v", r)
		}
	}()
	reader, err = pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, fmt.Errorf("parse pdf: %w", err)
	}
	return reader, nil
}

// eachPage calls fn for every non-empty page, 1-based, stopping on the first
// error or when ctx is done.
func eachPage(ctx context.Context, raw []byte, fn func(index int, page pdf.Page) error) (err error) {
	reader, err := openReader(raw)
	if err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("read pdf page: %v", r)
		}
	}()

	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		if err := fn(i, page); err != nil {
			return err
		}
	}
	return nil
}

// PageCount reports the number of pages in the document.
func PageCount(ctx context.Context, raw []byte) (count int, err error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	reader, err := openReader(raw)
	if err != nil {
		return 0, err
	}
	defer func() {
		if r := recover(); r != nil {
			count = 0
			err = fmt.Errorf("count pdf pages: %v", r)
		}
	}()
	return reader.NumPage(), nil
}

// PageCounter adapts PageCount to the acquisition layer.
type PageCounter struct{}

func (PageCounter) PageCount(ctx context.Context, raw []byte) (int, error) {
	return PageCount(ctx, raw)
}
