package payment

import (
	"context"
	"fmt"
	"strings"

	"github.com/Domenick1991/carrental/config"
	"go.uber.org/zap"
)

// SessionPlaceholder is replaced by the provider with the checkout session id when it
// redirects to the success URL.
const SessionPlaceholder = "{CHECKOUT_SESSION_ID}"

type SessionStatus string

const (
	SessionOpen    SessionStatus = "open"
	SessionPaid    SessionStatus = "paid"
	SessionExpired SessionStatus = "expired"
)

type CheckoutRequest struct {
	AmountCents int64
	Currency    string
	Description string
	Metadata    map[string]string
	SuccessURL  string
	CancelURL   string
}

type CheckoutSession struct {
	ID  string
	URL string
}

// SessionState is what the provider reports for a checkout session. PaymentReference
// is the provider's payment id and is only set once money moved.
type SessionState struct {
	Status           SessionStatus
	PaymentReference string
}

type InstrumentSummary struct {
	Brand string
	Last4 string
}

// Provider is the hosted checkout capability used by payment reconciliation.
type Provider interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	GetSessionStatus(ctx context.Context, sessionRef string) (*SessionState, error)
	GetInstrumentSummary(ctx context.Context, paymentRef string) (*InstrumentSummary, error)
}

func NewProvider(cfg config.PaymentConfig, log *zap.Logger) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "stripe":
		if cfg.SecretKey == "" {
			return nil, fmt.Errorf("payment provider stripe needs a secret key")
		}
		return NewStripeProvider(cfg, log), nil
	case "sandbox", "":
		return NewSandbox(true), nil
	default:
		return nil, fmt.Errorf("unknown payment provider %q", cfg.Provider)
	}
}
