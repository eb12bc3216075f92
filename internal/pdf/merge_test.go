package pdf_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/equitylist/safe-report-service/internal/pdf"
	"github.com/equitylist/safe-report-service/internal/pdf/pdftest"
)

func TestMerge_PreservesEveryPage(t *testing.T) {
	pages := [][]byte{pdftest.SinglePage(), pdftest.SinglePage(), pdftest.SinglePage()}

	merged, err := pdf.Merge(pages)
	require.NoError(t, err)
	require.NotEmpty(t, merged)

	count, err := pdf.PageCount(merged)
	require.NoError(t, err)
	require.Equal(t, 3, count, "merged document should hold one page per template")
}

func TestMerge_MalformedInputAborts(t *testing.T) {
	_, err := pdf.Merge([][]byte{pdftest.SinglePage(), []byte("not a pdf")})
	require.ErrorIs(t, err, pdf.ErrMerge)
}

func TestMerge_EmptyInputs(t *testing.T) {
	_, err := pdf.Merge(nil)
	require.ErrorIs(t, err, pdf.ErrMerge)

	_, err = pdf.Merge([][]byte{pdftest.SinglePage(), nil})
	require.ErrorIs(t, err, pdf.ErrMerge)
}

func TestPageCount_SinglePage(t *testing.T) {
	count, err := pdf.PageCount(pdftest.SinglePage())
	require.NoError(t, err)
	require.Equal(t, 1, count)
}
