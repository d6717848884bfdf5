package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
)

// ---------------------------------------------------------------------------
// PDF text extraction
// Pulls the plain text out of a paper so the planner can work from it.
// Papers can arrive as a local upload or a URL.
// ---------------------------------------------------------------------------

// PDFService extracts text from PDF documents.
type PDFService struct {
	client *http.Client
}

func NewPDFService() *PDFService {
	return &PDFService{
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

// ExtractText reads the PDF at path and returns its plain text.
func (s *PDFService) ExtractText(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to extract pdf text: %w", err)
	}
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("failed to read pdf text: %w", err)
	}

	text := strings.TrimSpace(buf.String())
	if text == "" {
		return "", fmt.Errorf("pdf contains no extractable text")
	}

	log.Printf("[PDF] Extracted %d characters from %s", len(text), path)

	return text, nil
}

// Download fetches a PDF from a URL and writes it to destPath.
func (s *PDFService) Download(ctx context.Context, url, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return fmt.Errorf("failed to create download request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("pdf download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("pdf download returned status %d", resp.StatusCode)
	}

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create pdf file: %w", err)
	}
	defer out.Close()

	written, err := io.Copy(out, resp.Body)
	if err != nil {
		return fmt.Errorf("failed to write pdf file: %w", err)
	}
	if written == 0 {
		return fmt.Errorf("downloaded pdf is empty")
	}

	log.Printf("[PDF] Downloaded %d bytes from %s", written, url)

	return nil
}
