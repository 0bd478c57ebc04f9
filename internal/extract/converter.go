package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// HTTPConverter calls the document-conversion sidecar to extract text from
// PDF and DOCX uploads.
type HTTPConverter struct {
	baseURL string
	client  *http.Client
}

type conversionElement struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func NewHTTPConverter(baseURL string) *HTTPConverter {
	return &HTTPConverter{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

func (c *HTTPConverter) Convert(ctx context.Context, filename string, content []byte) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("files", filename)
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(fw, bytes.NewReader(content)); err != nil {
		return "", fmt.Errorf("failed to write file content: %w", err)
	}
	if err := mw.WriteField("output_format", "application/json"); err != nil {
		return "", fmt.Errorf("failed to write output format: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/general/v0/general", &body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("conversion request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("conversion service error: %s", resp.Status)
	}

	var elements []conversionElement
	if err := json.NewDecoder(resp.Body).Decode(&elements); err != nil {
		return "", fmt.Errorf("failed to parse conversion response: %w", err)
	}

	var buf bytes.Buffer
	for i, el := range elements {
		if el.Text == "" {
			continue
		}
		if i > 0 && buf.Len() > 0 {
			buf.WriteString("\n\n")
		}
		buf.WriteString(el.Text)
	}
	return buf.String(), nil
}
