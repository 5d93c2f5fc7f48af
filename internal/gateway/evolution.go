// Package gateway talks to the Evolution WhatsApp API and to the PIX QR-code
// generator.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidArgument = errors.New("invalid argument")

// StatusError is returned when a gateway answers with a non-2xx status.
type StatusError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status code: %d body=%q", e.Service, e.StatusCode, e.Body)
}

const StateOpen = "open"

type EvolutionConfig struct {
	BaseURL  string
	APIKey   string
	Instance string
	Timeout  time.Duration
}

type EvolutionClient struct {
	baseURL    string
	apiKey     string
	instance   string
	httpClient *http.Client
}

func NewEvolutionClient(cfg EvolutionConfig) *EvolutionClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &EvolutionClient{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:   cfg.APIKey,
		instance: cfg.Instance,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type sendTextRequest struct {
	Number string `json:"number"`
	Text   string `json:"text"`
}

// MediaMessage is an image sent by URL with a caption.
type MediaMessage struct {
	Number    string `json:"number"`
	MediaType string `json:"mediatype"`
	Media     string `json:"media"`
	Caption   string `json:"caption"`
	IsURL     bool   `json:"isUrl"`
}

type sendResponse struct {
	Key struct {
		ID string `json:"id"`
	} `json:"key"`
}

type connectionStateResponse struct {
	Instance struct {
		State string `json:"state"`
	} `json:"instance"`
}

// SendText posts text to number and returns the gateway message id, which
// may be empty.
func (c *EvolutionClient) SendText(ctx context.Context, number, text string) (string, error) {
	var resp sendResponse
	err := c.do(ctx, http.MethodPost, "/message/sendText/"+c.instance, sendTextRequest{
		Number: number,
		Text:   text,
	}, &resp)
	return resp.Key.ID, err
}

func (c *EvolutionClient) SendMedia(ctx context.Context, msg MediaMessage) (string, error) {
	var resp sendResponse
	err := c.do(ctx, http.MethodPost, "/message/sendMedia/"+c.instance, msg, &resp)
	return resp.Key.ID, err
}

// ConnectionState returns the instance state reported by the gateway,
// "open" when WhatsApp is connected.
func (c *EvolutionClient) ConnectionState(ctx context.Context) (string, error) {
	var resp connectionStateResponse
	if err := c.do(ctx, http.MethodGet, "/instance/connectionState/"+c.instance, nil, &resp); err != nil {
		return "", err
	}
	return resp.Instance.State, nil
}

func (c *EvolutionClient) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return &StatusError{Service: "evolution", StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("evolution: failed to decode json: %w body=%q", err, string(respBody))
	}
	return nil
}

var nonDigits = regexp.MustCompile(`\D`)

// NormalizePhone strips formatting and makes sure the number carries the
// Brazilian country code exactly once.
func NormalizePhone(phone string) string {
	digits := nonDigits.ReplaceAllString(phone, "")
	for strings.HasPrefix(digits, "55") && len(digits) > 11 {
		digits = digits[2:]
	}
	if digits == "" {
		return ""
	}
	return "55" + digits
}
