package models

import "time"

type ReportFormat string

const (
	ReportPDF  ReportFormat = "pdf"
	ReportHTML ReportFormat = "html"
)

// ReportRequest is the payload sent to the report rendering function.
type ReportRequest struct {
	Title         string            `json:"title"`
	Format        ReportFormat      `json:"format"`
	FilterSummary string            `json:"filterSummary"`
	Filters       map[string]string `json:"filters"`
	GeneratedBy   string            `json:"generatedBy"`
	GeneratedAt   time.Time         `json:"generatedAt"`
	Jobs          []Job             `json:"jobs"`
}

// RenderedReport is the document returned by the rendering function.
type RenderedReport struct {
	ContentType string
	FileName    string
	Body        []byte
}
