// Package extraction turns uploaded documents into plain text
package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Extractor reads text locally when it can and defers to the OCR service
// for PDFs, images and Word files
type Extractor struct {
	serviceURL string
	client     *http.Client
}

func New(serviceURL string, timeout time.Duration) *Extractor {
	return &Extractor{
		serviceURL: strings.TrimRight(serviceURL, "/"),
		client:     &http.Client{Timeout: timeout},
	}
}

// Extract returns the text content of a file. A file the service would
// have to read while no service is configured yields empty text.
func (e *Extractor) Extract(ctx context.Context, fileName, contentType string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	switch {
	case isPlainText(ext, contentType):
		return decodeText(data), nil
	case ext == ".xlsx":
		return extractSpreadsheet(data)
	}

	if e.serviceURL == "" {
		log.Printf("[WARNING] No extraction service configured, storing %s without text", fileName)
		return "", nil
	}
	return e.extractRemote(ctx, fileName, data)
}

func isPlainText(ext, contentType string) bool {
	switch ext {
	case ".txt", ".md", ".csv":
		return true
	}
	return strings.HasPrefix(contentType, "text/")
}

func decodeText(data []byte) string {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	return strings.ToValidUTF8(string(data), "")
}

// extractSpreadsheet writes each sheet under a "[Hoja: name]" header with
// cells separated by tabs
func extractSpreadsheet(data []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer f.Close()

	var sb strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("failed to read sheet %s: %w", sheet, err)
		}
		fmt.Fprintf(&sb, "[Hoja: %s]\n", sheet)
		for _, row := range rows {
			sb.WriteString(strings.Join(row, "\t"))
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	return strings.TrimSpace(sb.String()), nil
}

type extractResponse struct {
	Text string `json:"text"`
}

func (e *Extractor) extractRemote(ctx context.Context, fileName string, data []byte) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filepath.Base(fileName))
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.serviceURL+"/extract", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to reach extraction service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("extraction service returned %s: %s", resp.Status, strings.TrimSpace(string(detail)))
	}

	var out extractResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode extraction response: %w", err)
	}
	return out.Text, nil
}
