package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PixMerchant identifies who receives the PIX payment.
type PixMerchant struct {
	Name string
	City string
	Key  string
	TxID string
}

type PixConfig struct {
	BaseURL  string
	Merchant PixMerchant
	Timeout  time.Duration
}

// PixParams are the query parameters understood by the generator.
type PixParams struct {
	Name   string `form:"nome" json:"nome"`
	City   string `form:"cidade" json:"cidade"`
	Amount string `form:"valor" json:"valor"`
	Key    string `form:"chave" json:"chave"`
	TxID   string `form:"txid" json:"txid"`
}

// PixCharge holds the QR image URL and the copy-and-paste BR code.
type PixCharge struct {
	QRCodeURL string `json:"qrcode"`
	BRCode    string `json:"qrCodeText"`
}

type PixClient struct {
	baseURL    string
	merchant   PixMerchant
	httpClient *http.Client
}

func NewPixClient(cfg PixConfig) *PixClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &PixClient{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		merchant: cfg.Merchant,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Generate builds a charge for amount using the configured merchant.
func (c *PixClient) Generate(ctx context.Context, amount decimal.Decimal) (PixCharge, error) {
	return c.GenerateFor(ctx, PixParams{
		Name:   c.merchant.Name,
		City:   c.merchant.City,
		Amount: amount.StringFixed(2),
		Key:    c.merchant.Key,
		TxID:   c.merchant.TxID,
	})
}

// GenerateFor builds a charge from explicit parameters.
func (c *PixClient) GenerateFor(ctx context.Context, p PixParams) (PixCharge, error) {
	if p.Key == "" || p.Amount == "" {
		return PixCharge{}, fmt.Errorf("%w: pix key and amount are required", ErrInvalidArgument)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(p, "br"), nil)
	if err != nil {
		return PixCharge{}, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return PixCharge{}, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return PixCharge{}, &StatusError{Service: "pix", StatusCode: resp.StatusCode, Body: string(body)}
	}

	brCode := parseBRCode(body)
	if brCode == "" {
		return PixCharge{}, fmt.Errorf("pix: empty br code in response body=%q", string(body))
	}

	return PixCharge{
		QRCodeURL: c.endpoint(p, "qr"),
		BRCode:    brCode,
	}, nil
}

func (c *PixClient) endpoint(p PixParams, output string) string {
	q := url.Values{}
	q.Set("nome", p.Name)
	q.Set("cidade", p.City)
	q.Set("valor", p.Amount)
	q.Set("chave", p.Key)
	q.Set("txid", p.TxID)
	q.Set("saida", output)
	return c.baseURL + "/api/v1?" + q.Encode()
}

// parseBRCode accepts either {"brcode": "..."} or the raw code.
func parseBRCode(body []byte) string {
	var payload struct {
		BRCode string `json:"brcode"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.BRCode != "" {
		return payload.BRCode
	}
	raw := strings.TrimSpace(string(body))
	if strings.HasPrefix(raw, "{") {
		return ""
	}
	return strings.Trim(raw, `"`)
}
