package payment

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Sandbox is an in-memory provider for local runs and tests. With autoComplete set a
// session is paid as soon as it is created and the returned URL points straight at the
// success URL.
type Sandbox struct {
	mu           sync.RWMutex
	sessions     map[string]*SessionState
	autoComplete bool
	failNext     error
}

func NewSandbox(autoComplete bool) *Sandbox {
	return &Sandbox{
		sessions:     make(map[string]*SessionState),
		autoComplete: autoComplete,
	}
}

// FailNext makes the next provider call return err.
func (s *Sandbox) FailNext(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = err
}

// SetStatus moves a session as if the customer acted on the hosted page.
func (s *Sandbox) SetStatus(sessionRef string, status SessionStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.sessions[sessionRef]
	if !ok {
		return
	}
	state.Status = status
	if status == SessionPaid && state.PaymentReference == "" {
		state.PaymentReference = "sandbox_pi_" + uuid.NewString()
	}
}

func (s *Sandbox) takeFailure() error {
	err := s.failNext
	s.failNext = nil
	return err
}

func (s *Sandbox) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return nil, err
	}
	if req.AmountCents <= 0 {
		return nil, fmt.Errorf("sandbox: amount must be positive")
	}

	id := "sandbox_cs_" + uuid.NewString()
	state := &SessionState{Status: SessionOpen}
	url := "https://sandbox.invalid/checkout/" + id
	if s.autoComplete {
		state.Status = SessionPaid
		state.PaymentReference = "sandbox_pi_" + uuid.NewString()
		url = strings.ReplaceAll(req.SuccessURL, SessionPlaceholder, id)
	}
	s.sessions[id] = state
	return &CheckoutSession{ID: id, URL: url}, nil
}

func (s *Sandbox) GetSessionStatus(ctx context.Context, sessionRef string) (*SessionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return nil, err
	}
	state, ok := s.sessions[sessionRef]
	if !ok {
		return nil, fmt.Errorf("sandbox: no such session %s", sessionRef)
	}
	copied := *state
	return &copied, nil
}

func (s *Sandbox) GetInstrumentSummary(ctx context.Context, paymentRef string) (*InstrumentSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return nil, err
	}
	return &InstrumentSummary{Brand: "visa", Last4: "4242"}, nil
}

var _ Provider = (*Sandbox)(nil)
