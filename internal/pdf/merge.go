// Package pdf assembles the rendered template pages into the single report
// document returned to clients. It wraps pdfcpu — the merge preserves input
// order and copies every page of every input document.
package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// ErrMerge is wrapped by every merge failure. A malformed input buffer
// aborts the whole merge — there is no partial output.
var ErrMerge = errors.New("pdf: merge failed")

// conf is shared across calls. Relaxed validation accepts the slightly
// nonconformant documents Chromium's PrintToPDF emits.
var conf = func() *model.Configuration {
	c := model.NewDefaultConfiguration()
	c.ValidationMode = model.ValidationRelaxed
	return c
}()

// Merge concatenates the page documents in input order into one PDF.
func Merge(pages [][]byte) ([]byte, error) {
	if len(pages) == 0 {
		return nil, fmt.Errorf("%w: no input documents", ErrMerge)
	}

	readers := make([]io.ReadSeeker, len(pages))
	for i, p := range pages {
		if len(p) == 0 {
			return nil, fmt.Errorf("%w: input document %d is empty", ErrMerge, i)
		}
		readers[i] = bytes.NewReader(p)
	}

	var out bytes.Buffer
	if err := api.MergeRaw(readers, &out, false, conf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMerge, err)
	}
	return out.Bytes(), nil
}

// PageCount reports the number of pages in a PDF document.
func PageCount(doc []byte) (int, error) {
	n, err := api.PageCount(bytes.NewReader(doc), conf)
	if err != nil {
		return 0, fmt.Errorf("pdf: page count: %w", err)
	}
	return n, nil
}
