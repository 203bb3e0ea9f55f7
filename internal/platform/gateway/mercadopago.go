package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/convenio/convenio/internal/platform/apperr"
	"github.com/convenio/convenio/pkg/money"
)

const (
	defaultBaseURL = "https://api.mercadopago.com"
	defaultTimeout = 5 * time.Second
)

// PreferenceItem is a single line item on a checkout preference.
type PreferenceItem struct {
	Title     string      `json:"title"`
	Quantity  int         `json:"quantity"`
	UnitPrice money.Cents `json:"unit_price"`
}

// PreferenceRequest describes the checkout to create. ExternalReference is
// the platform's own key for the transaction; it comes back verbatim on the
// payment detail and is how webhook notifications are tied to local records.
type PreferenceRequest struct {
	Items             []PreferenceItem
	ExternalReference string
	PayerEmail        string
	SuccessURL        string
	FailureURL        string
	PendingURL        string
	NotificationURL   string
}

// Preference is the created checkout.
type Preference struct {
	ID        string `json:"id"`
	InitPoint string `json:"init_point"`
}

// Payment is the authoritative payment detail fetched from the gateway.
type Payment struct {
	ID                int64       `json:"id"`
	Status            string      `json:"status"`
	ExternalReference string      `json:"external_reference"`
	TransactionAmount money.Cents `json:"transaction_amount"`
	DateApproved      string      `json:"date_approved"`
}

// Approved reports whether the payment completed successfully.
func (p *Payment) Approved() bool {
	return p.Status == "approved"
}

// Client defines the gateway operations the payment service depends on.
// Webhook handling never trusts notification payloads: it always re-fetches
// the payment by ID through FetchPayment.
type Client interface {
	CreatePreference(ctx context.Context, req PreferenceRequest) (*Preference, error)
	FetchPayment(ctx context.Context, paymentID int64) (*Payment, error)
}

// MercadoPago is the production Client backed by the Mercado Pago REST API.
type MercadoPago struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
}

func NewMercadoPago(accessToken string) *MercadoPago {
	return &MercadoPago{
		baseURL:     defaultBaseURL,
		accessToken: accessToken,
		httpClient:  &http.Client{Timeout: defaultTimeout},
	}
}

// NewMercadoPagoWithBaseURL is used by tests to point the client at a stub.
func NewMercadoPagoWithBaseURL(accessToken, baseURL string) *MercadoPago {
	c := NewMercadoPago(accessToken)
	c.baseURL = baseURL
	return c
}

type preferencePayload struct {
	Items             []preferenceItemPayload `json:"items"`
	ExternalReference string                  `json:"external_reference"`
	Payer             *preferencePayer        `json:"payer,omitempty"`
	BackURLs          preferenceBackURLs      `json:"back_urls"`
	NotificationURL   string                  `json:"notification_url,omitempty"`
	AutoReturn        string                  `json:"auto_return"`
}

type preferenceItemPayload struct {
	Title     string  `json:"title"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	CurrencyID string `json:"currency_id"`
}

type preferencePayer struct {
	Email string `json:"email"`
}

type preferenceBackURLs struct {
	Success string `json:"success"`
	Failure string `json:"failure"`
	Pending string `json:"pending"`
}

// CreatePreference creates a checkout preference and returns its init point.
func (c *MercadoPago) CreatePreference(ctx context.Context, req PreferenceRequest) (*Preference, error) {
	items := make([]preferenceItemPayload, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, preferenceItemPayload{
			Title:      it.Title,
			Quantity:   it.Quantity,
			UnitPrice:  it.UnitPrice.Reais(),
			CurrencyID: "BRL",
		})
	}

	payload := preferencePayload{
		Items:             items,
		ExternalReference: req.ExternalReference,
		BackURLs: preferenceBackURLs{
			Success: req.SuccessURL,
			Failure: req.FailureURL,
			Pending: req.PendingURL,
		},
		NotificationURL: req.NotificationURL,
		AutoReturn:      "approved",
	}
	if req.PayerEmail != "" {
		payload.Payer = &preferencePayer{Email: req.PayerEmail}
	}

	var pref Preference
	if err := c.do(ctx, http.MethodPost, "/checkout/preferences", payload, &pref); err != nil {
		return nil, err
	}
	return &pref, nil
}

// FetchPayment fetches the authoritative payment detail by gateway payment ID.
func (c *MercadoPago) FetchPayment(ctx context.Context, paymentID int64) (*Payment, error) {
	var raw struct {
		ID                int64   `json:"id"`
		Status            string  `json:"status"`
		ExternalReference string  `json:"external_reference"`
		TransactionAmount float64 `json:"transaction_amount"`
		DateApproved      string  `json:"date_approved"`
	}
	path := fmt.Sprintf("/v1/payments/%d", paymentID)
	if err := c.do(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return nil, err
	}
	return &Payment{
		ID:                raw.ID,
		Status:            raw.Status,
		ExternalReference: raw.ExternalReference,
		TransactionAmount: money.FromFloat(raw.TransactionAmount),
		DateApproved:      raw.DateApproved,
	}, nil
}

func (c *MercadoPago) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperr.Wrap(apperr.ExternalServiceFailed, "falha na comunicação com o gateway de pagamento", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return apperr.Wrap(apperr.ExternalServiceFailed, "gateway de pagamento retornou erro",
			fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, data))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return apperr.Wrap(apperr.ExternalServiceFailed, "resposta inválida do gateway de pagamento", err)
		}
	}
	return nil
}
