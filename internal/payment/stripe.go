package payment

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Domenick1991/carrental/config"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"go.uber.org/zap"
)

type StripeProvider struct {
	api *client.API
}

// NewStripeProvider builds a client scoped to this provider. The package level
// stripe.Key is never set.
func NewStripeProvider(cfg config.PaymentConfig, log *zap.Logger) *StripeProvider {
	backendCfg := &stripe.BackendConfig{
		HTTPClient:    &http.Client{Timeout: cfg.Timeout()},
		LeveledLogger: log.Sugar(),
	}
	if cfg.APIURL != "" {
		backendCfg.URL = stripe.String(cfg.APIURL)
	}

	api := &client.API{}
	api.Init(cfg.SecretKey, &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, backendCfg),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, backendCfg),
	})
	return &StripeProvider{api: api}
}

func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		SuccessURL:         stripe.String(req.SuccessURL),
		CancelURL:          stripe.String(req.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(req.Currency),
					UnitAmount: stripe.Int64(req.AmountCents),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(req.Description),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	params.Context = ctx
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	s, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	return &CheckoutSession{ID: s.ID, URL: s.URL}, nil
}

func (p *StripeProvider) GetSessionStatus(ctx context.Context, sessionRef string) (*SessionState, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	s, err := p.api.CheckoutSessions.Get(sessionRef, params)
	if err != nil {
		return nil, fmt.Errorf("get checkout session %s: %w", sessionRef, err)
	}
	return sessionState(s), nil
}

func (p *StripeProvider) GetInstrumentSummary(ctx context.Context, paymentRef string) (*InstrumentSummary, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	params.AddExpand("payment_method")

	pi, err := p.api.PaymentIntents.Get(paymentRef, params)
	if err != nil {
		return nil, fmt.Errorf("get payment intent %s: %w", paymentRef, err)
	}
	if pi.PaymentMethod == nil || pi.PaymentMethod.Card == nil {
		return &InstrumentSummary{}, nil
	}
	return &InstrumentSummary{
		Brand: string(pi.PaymentMethod.Card.Brand),
		Last4: pi.PaymentMethod.Card.Last4,
	}, nil
}

func sessionState(s *stripe.CheckoutSession) *SessionState {
	state := &SessionState{Status: SessionOpen}
	switch {
	case s.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid:
		state.Status = SessionPaid
	case s.Status == stripe.CheckoutSessionStatusExpired:
		state.Status = SessionExpired
	}
	if s.PaymentIntent != nil {
		state.PaymentReference = s.PaymentIntent.ID
	}
	return state
}

var _ Provider = (*StripeProvider)(nil)
