package csvimport

import (
	"fmt"

	"dxt-admin/internal/domain"
)

// ResultView is the result screen of a finished import.
type ResultView struct {
	Title           string
	Success         bool
	Message         string
	ProductsCreated int
	VariantsCreated int
	ImagesProcessed int
	Failed          int
	Errors          []string
	Seconds         string
}

func NewResultView(r domain.ImportResult) ResultView {
	v := ResultView{
		Title:           "Import Failed",
		Success:         r.Success,
		Message:         r.Message,
		ProductsCreated: r.ProductsCreated,
		VariantsCreated: r.VariantsCreated,
		ImagesProcessed: r.ImagesProcessed,
		Failed:          r.Failed,
		Seconds:         FormatDuration(r.Duration),
	}
	if r.Success {
		v.Title = "Import Completed!"
	}
	for _, e := range r.Errors {
		v.Errors = append(v.Errors, RowErrorLine(e))
	}
	return v
}

// FormatDuration renders milliseconds as seconds with two decimals.
func FormatDuration(ms int64) string {
	return fmt.Sprintf("%.2f", float64(ms)/1000)
}

func RowErrorLine(e domain.ImportRowError) string {
	return fmt.Sprintf("Row %d: %s - %s", e.RowNumber, e.ProductName, e.Error)
}
