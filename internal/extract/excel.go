package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// extractExcel flattens every sheet into tab-separated lines. Recruitment
// agencies sometimes deliver CV exports as spreadsheets with one field per
// cell; keeping row order means section headers still precede their content,
// and blank rows survive as the paragraph breaks the mapper splits on.
func extractExcel(content []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("open spreadsheet: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	for i, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("read sheet %q: %w", sheet, err)
		}
		if i > 0 {
			b.WriteByte('\n')
		}
		for _, row := range rows {
			b.WriteString(strings.TrimRight(strings.Join(row, "\t"), "\t "))
			b.WriteByte('\n')
		}
	}
	return strings.TrimSpace(b.String()), nil
}
