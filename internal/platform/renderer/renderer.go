// Package renderer generates patient documents (certificates, prescriptions,
// reports) through an external rendering service. The service stores the
// resulting PDF and returns its public URL.
package renderer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/convenio/convenio/internal/platform/apperr"
)

const defaultTimeout = 15 * time.Second

// Client renders a document template and returns the stored document URL.
type Client interface {
	Render(ctx context.Context, kind string, inputs map[string]any) (string, error)
}

// HTTPRenderer calls a remote render service with a JSON body.
type HTTPRenderer struct {
	url        string
	httpClient *http.Client
}

func NewHTTPRenderer(url string) *HTTPRenderer {
	return &HTTPRenderer{
		url:        url,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

func (r *HTTPRenderer) Render(ctx context.Context, kind string, inputs map[string]any) (string, error) {
	payload, err := json.Marshal(map[string]any{"kind": kind, "inputs": inputs})
	if err != nil {
		return "", fmt.Errorf("encoding render request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("building render request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", apperr.Wrap(apperr.ExternalServiceFailed, "falha ao gerar o documento", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", apperr.Wrap(apperr.ExternalServiceFailed, "falha ao gerar o documento",
			fmt.Errorf("render service returned status %d: %s", resp.StatusCode, data))
	}

	var out struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", apperr.Wrap(apperr.ExternalServiceFailed, "falha ao gerar o documento", err)
	}
	if out.URL == "" {
		return "", apperr.New(apperr.ExternalServiceFailed, "serviço de documentos não retornou a URL")
	}
	return out.URL, nil
}
