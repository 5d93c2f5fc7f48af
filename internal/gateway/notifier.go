package gateway

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Notifier shapes payment messages on top of the Evolution and PIX clients.
// It never retries; callers decide what a failure means.
type Notifier struct {
	evolution *EvolutionClient
	pix       *PixClient
}

func NewNotifier(evolution *EvolutionClient, pix *PixClient) *Notifier {
	return &Notifier{evolution: evolution, pix: pix}
}

// SendMessage sends text to phone and returns the gateway message id.
func (n *Notifier) SendMessage(ctx context.Context, phone, text string) (string, error) {
	number := NormalizePhone(phone)
	if number == "" {
		return "", fmt.Errorf("%w: phone number is required", ErrInvalidArgument)
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: message text is required", ErrInvalidArgument)
	}
	return n.evolution.SendText(ctx, number, text)
}

// GenerateAndSendPixQR generates a PIX charge for amount and sends its QR
// image to phone with the BR code as caption.
func (n *Notifier) GenerateAndSendPixQR(ctx context.Context, phone string, amount decimal.Decimal) (string, error) {
	number := NormalizePhone(phone)
	if number == "" {
		return "", fmt.Errorf("%w: phone number is required", ErrInvalidArgument)
	}

	charge, err := n.pix.Generate(ctx, amount)
	if err != nil {
		return "", fmt.Errorf("failed to generate pix charge: %w", err)
	}

	id, err := n.evolution.SendMedia(ctx, MediaMessage{
		Number:    number,
		MediaType: "image",
		Media:     charge.QRCodeURL,
		Caption:   charge.BRCode,
		IsURL:     true,
	})
	if err != nil {
		return "", fmt.Errorf("failed to send pix qr code: %w", err)
	}
	return id, nil
}

func (n *Notifier) ConnectionState(ctx context.Context) (string, error) {
	return n.evolution.ConnectionState(ctx)
}

func (n *Notifier) GeneratePix(ctx context.Context, p PixParams) (PixCharge, error) {
	return n.pix.GenerateFor(ctx, p)
}
