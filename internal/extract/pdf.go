package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// extractPDF pulls plain text out of a PDF, page by page. Medical corpora
// lean heavily on PDF fact sheets and journal reprints, so this is the
// most exercised extraction path. Scanned (image-only) pages produce no
// text layer and are silently skipped; OCR is out of scope.
func extractPDF(content []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open PDF: %w", err)
	}

	var pages []string
	total := reader.NumPage()
	for pageNum := 1; pageNum <= total; pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("extract page %d: %w", pageNum, err)
		}
		pages = append(pages, text)
	}
	return strings.Join(pages, "\n"), nil
}
