package reportfn

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"fleetdesk/backend/configuration"
	"fleetdesk/backend/logging"
	"fleetdesk/backend/models"
)

// maxDocumentSize bounds the rendered document read into memory.
const maxDocumentSize = 32 << 20

var ErrNotConfigured = errors.New("report function not configured")

// Client invokes the server-side function that renders job reports.
type Client struct {
	url        string
	apiKey     string
	httpClient *http.Client
}

func New(opts configuration.ReportOptions) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		url:        opts.FunctionURL,
		apiKey:     opts.APIKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Render posts req to the function and returns the document it produced.
func (c *Client) Render(ctx context.Context, req models.ReportRequest) (*models.RenderedReport, error) {
	if c.url == "" {
		return nil, ErrNotConfigured
	}
	if req.Format == "" {
		req.Format = models.ReportPDF
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "encode report request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "create report request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "call report function")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		logging.FromContext(ctx).WithField("status", resp.StatusCode).Errorf("Report function error: %s", string(body))
		return nil, fmt.Errorf("report function returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize+1))
	if err != nil {
		return nil, errors.Wrap(err, "read report document")
	}
	if len(body) > maxDocumentSize {
		return nil, errors.New("report document too large")
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = defaultContentType(req.Format)
	}
	return &models.RenderedReport{
		ContentType: contentType,
		FileName:    fileName(resp.Header.Get("Content-Disposition"), req),
		Body:        body,
	}, nil
}

func defaultContentType(format models.ReportFormat) string {
	if format == models.ReportHTML {
		return "text/html; charset=utf-8"
	}
	return "application/pdf"
}

func fileName(disposition string, req models.ReportRequest) string {
	if disposition != "" {
		if _, params, err := mime.ParseMediaType(disposition); err == nil && params["filename"] != "" {
			return params["filename"]
		}
	}
	stamp := req.GeneratedAt
	if stamp.IsZero() {
		stamp = time.Now()
	}
	return fmt.Sprintf("jobs-report-%s.%s", stamp.UTC().Format("2006-01-02"), strings.ToLower(string(req.Format)))
}
