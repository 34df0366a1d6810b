package payment

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func checkoutRequest() CheckoutRequest {
	return CheckoutRequest{
		AmountCents: 15000,
		Currency:    "usd",
		Description: "Toyota Corolla, 3 days",
		SuccessURL:  "http://localhost/api/payments/success?session_id=" + SessionPlaceholder,
		CancelURL:   "http://localhost/api/payments/cancel?payment_id=1",
	}
}

func TestSandbox_AutoComplete(t *testing.T) {
	ctx := context.Background()
	sb := NewSandbox(true)

	session, err := sb.CreateCheckoutSession(ctx, checkoutRequest())
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(session.URL, "session_id="+session.ID))

	state, err := sb.GetSessionStatus(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, SessionPaid, state.Status)
	assert.NotEmpty(t, state.PaymentReference)
}

func TestSandbox_ManualLifecycle(t *testing.T) {
	ctx := context.Background()
	sb := NewSandbox(false)

	session, err := sb.CreateCheckoutSession(ctx, checkoutRequest())
	require.NoError(t, err)

	state, err := sb.GetSessionStatus(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, SessionOpen, state.Status)
	assert.Empty(t, state.PaymentReference)

	sb.SetStatus(session.ID, SessionExpired)
	state, err = sb.GetSessionStatus(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, SessionExpired, state.Status)
}

func TestSandbox_FailNext(t *testing.T) {
	ctx := context.Background()
	sb := NewSandbox(false)
	boom := errors.New("connection timeout")

	sb.FailNext(boom)
	_, err := sb.CreateCheckoutSession(ctx, checkoutRequest())
	assert.ErrorIs(t, err, boom)

	_, err = sb.CreateCheckoutSession(ctx, checkoutRequest())
	assert.NoError(t, err)
}

func TestSandbox_UnknownSession(t *testing.T) {
	_, err := NewSandbox(false).GetSessionStatus(context.Background(), "cs_missing")
	assert.Error(t, err)
}
