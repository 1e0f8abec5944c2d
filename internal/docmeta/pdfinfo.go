package docmeta

import (
	"bytes"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// structuralTitle parses the PDF structure of data and returns its document
// info title. It is slower than the byte scanner and fails on damaged files.
func structuralTitle(data []byte) (title string, err error) {
	defer func() {
		// pdfcpu panics on some malformed cross-reference tables
		if r := recover(); r != nil {
			title, err = "", fmt.Errorf("failed to parse PDF: %v", r)
		}
	}()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return "", fmt.Errorf("failed to read PDF context: %w", err)
	}
	// validation populates the document info fields
	if err := api.ValidateContext(ctx); err != nil {
		return "", fmt.Errorf("failed to validate PDF: %w", err)
	}
	return ctx.Title, nil
}

// IsPDF reports whether data starts with the PDF signature.
func IsPDF(data []byte) bool {
	return bytes.HasPrefix(data, []byte("%PDF"))
}
