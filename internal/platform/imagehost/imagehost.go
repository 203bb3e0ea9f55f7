// Package imagehost uploads profile photos to an external image host and
// returns the public URL. Only the URL is persisted locally.
package imagehost

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/convenio/convenio/internal/platform/apperr"
)

const defaultTimeout = 15 * time.Second

// Client uploads a base64-encoded image and returns its hosted URL.
type Client interface {
	Upload(ctx context.Context, imageBase64 string) (string, error)
}

// HTTPHost posts the image as form data with an API key, the protocol used
// by imgbb-style hosts.
type HTTPHost struct {
	url        string
	apiKey     string
	httpClient *http.Client
}

func NewHTTPHost(uploadURL, apiKey string) *HTTPHost {
	return &HTTPHost{
		url:        uploadURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

func (h *HTTPHost) Upload(ctx context.Context, imageBase64 string) (string, error) {
	form := url.Values{}
	form.Set("key", h.apiKey)
	form.Set("image", imageBase64)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("building upload request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return "", apperr.Wrap(apperr.ExternalServiceFailed, "falha ao enviar a imagem", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", apperr.Wrap(apperr.ExternalServiceFailed, "falha ao enviar a imagem",
			fmt.Errorf("image host returned status %d: %s", resp.StatusCode, data))
	}

	var out struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", apperr.Wrap(apperr.ExternalServiceFailed, "resposta inválida do host de imagens", err)
	}
	if out.Data.URL == "" {
		return "", apperr.New(apperr.ExternalServiceFailed, "host de imagens não retornou a URL")
	}
	return out.Data.URL, nil
}
