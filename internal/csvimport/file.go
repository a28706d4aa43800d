package csvimport

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	csvContentType  = "text/csv"
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Upload is a file chosen by the admin.
type Upload struct {
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Data        []byte `json:"data"`
}

func (u Upload) Empty() bool {
	return u.Name == "" && len(u.Data) == 0
}

func (u Upload) isCSV() bool {
	return u.ContentType == csvContentType || strings.EqualFold(filepath.Ext(u.Name), ".csv")
}

func (u Upload) isWorkbook() bool {
	return u.ContentType == xlsxContentType || strings.EqualFold(filepath.Ext(u.Name), ".xlsx")
}

// CheckFile accepts CSV files and xlsx workbooks.
func CheckFile(u Upload) error {
	if u.Empty() {
		return ErrNoFile
	}
	if !u.isCSV() && !u.isWorkbook() {
		return ErrInvalidFile
	}
	return nil
}

// PackageUpload prepares u for the backend, which only parses CSV. A
// workbook is converted from its first sheet; CSV files pass through.
func PackageUpload(u Upload) (Upload, error) {
	if err := CheckFile(u); err != nil {
		return Upload{}, err
	}
	if u.isCSV() {
		u.ContentType = csvContentType
		return u, nil
	}

	book, err := excelize.OpenReader(bytes.NewReader(u.Data))
	if err != nil {
		return Upload{}, fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}
	defer book.Close()

	sheets := book.GetSheetList()
	if len(sheets) == 0 {
		return Upload{}, ErrInvalidFile
	}
	rows, err := book.GetRows(sheets[0])
	if err != nil {
		return Upload{}, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}

	width := 0
	for _, row := range rows {
		width = max(width, len(row))
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	for _, row := range rows {
		for len(row) < width {
			row = append(row, "")
		}
		if err := w.Write(row); err != nil {
			return Upload{}, fmt.Errorf("failed to write csv: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return Upload{}, fmt.Errorf("failed to write csv: %w", err)
	}

	return Upload{
		Name:        strings.TrimSuffix(u.Name, filepath.Ext(u.Name)) + ".csv",
		ContentType: csvContentType,
		Data:        buf.Bytes(),
	}, nil
}
