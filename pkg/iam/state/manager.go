package state

import (
	"context"
	"time"

	"github.com/Abraxas-365/jobgrid/pkg/logx"
)

// Binding selects how strictly a returning state is checked
type Binding string

const (
	// BindingStore requires the nonce to have been issued by this service
	BindingStore Binding = "store"

	// BindingNone trusts any well-formed state
	BindingNone Binding = "none"
)

// Manager issues and validates states for the redirect flows.
type Manager struct {
	store   NonceStore
	binding Binding
	ttl     time.Duration
}

func NewManager(store NonceStore, binding Binding, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if binding != BindingNone {
		binding = BindingStore
	}
	return &Manager{store: store, binding: binding, ttl: ttl}
}

// Issue creates an encoded state for a redirect started from referer.
func (m *Manager) Issue(ctx context.Context, referer string, flow Flow) (string, Payload, error) {
	p := NewPayload(referer, flow)

	if m.binding == BindingStore {
		if err := m.store.Issue(ctx, p.Nonce, m.ttl); err != nil {
			return "", Payload{}, err
		}
	}

	encoded, err := Encode(p)
	if err != nil {
		return "", Payload{}, err
	}
	return encoded, p, nil
}

// Validate decodes raw and, under BindingStore, consumes its nonce.
func (m *Manager) Validate(ctx context.Context, raw string) (Payload, error) {
	p, err := Decode(raw)
	if err != nil {
		return Payload{}, err
	}

	if m.binding == BindingNone {
		return p, nil
	}

	ok, err := m.store.Consume(ctx, p.Nonce)
	if err != nil {
		return Payload{}, err
	}
	if !ok {
		logx.WithContext(ctx).WithField("nonce", p.Nonce).Warn("state nonce unknown, expired or replayed")
		return Payload{}, ErrInvalidState()
	}
	return p, nil
}
