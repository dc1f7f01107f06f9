// Package state encodes the anti-forgery value threaded through the
// identity provider redirect. A state carries the host the flow started
// from, a random nonce and the flow kind.
package state

import (
	"encoding/base64"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// Flow discriminates what the user was doing when the redirect started
type Flow string

const (
	FlowLogin    Flow = "login"
	FlowRegister Flow = "register"
)

// Valid reports whether f is a known flow. The empty flow is accepted and
// means login.
func (f Flow) Valid() bool {
	switch f {
	case "", FlowLogin, FlowRegister:
		return true
	}
	return false
}

// Payload is the decoded state
type Payload struct {
	OriginHost string `json:"h,omitempty"`
	Nonce      string `json:"r"`
	Flow       Flow   `json:"f,omitempty"`
}

// NewPayload binds a fresh nonce to the host found in referer.
func NewPayload(referer string, flow Flow) Payload {
	return Payload{
		OriginHost: hostFromReferer(referer),
		Nonce:      uuid.NewString(),
		Flow:       flow,
	}
}

// Encode serializes p as base64(percent-encode(json)).
func Encode(p Payload) (string, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return "", ErrMalformedState().WithCause(err)
	}
	return base64.StdEncoding.EncodeToString([]byte(url.QueryEscape(string(raw)))), nil
}

// Decode reverses Encode. It never panics; every failure is ErrMalformedState.
func Decode(s string) (Payload, error) {
	if s == "" {
		return Payload{}, ErrMalformedState().WithDetail("reason", "empty")
	}

	escaped, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return Payload{}, ErrMalformedState().WithDetail("reason", "base64").WithCause(err)
	}

	raw, err := url.QueryUnescape(string(escaped))
	if err != nil {
		return Payload{}, ErrMalformedState().WithDetail("reason", "escape").WithCause(err)
	}

	var p Payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return Payload{}, ErrMalformedState().WithDetail("reason", "json").WithCause(err)
	}

	if p.Nonce == "" {
		return Payload{}, ErrMalformedState().WithDetail("reason", "missing nonce")
	}
	if !p.Flow.Valid() {
		return Payload{}, ErrMalformedState().WithDetail("reason", "unknown flow")
	}

	return p, nil
}

// RedirectTarget returns https://<origin host> when the host is a plain
// hostname and, if allowedHosts is non-empty, listed there. Entries that
// start with a dot match any subdomain. Anything else yields defaultOrigin.
func RedirectTarget(p Payload, defaultOrigin string, allowedHosts []string) string {
	host := strings.ToLower(p.OriginHost)
	if !validHostname(host) {
		return defaultOrigin
	}
	if len(allowedHosts) > 0 && !hostAllowed(host, allowedHosts) {
		return defaultOrigin
	}
	return "https://" + host
}

func hostFromReferer(referer string) string {
	if referer == "" {
		return ""
	}
	u, err := url.Parse(referer)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

func hostAllowed(host string, allowed []string) bool {
	for _, a := range allowed {
		a = strings.ToLower(strings.TrimSpace(a))
		if a == "" {
			continue
		}
		if strings.HasPrefix(a, ".") {
			if strings.HasSuffix(host, a) || host == a[1:] {
				return true
			}
			continue
		}
		if host == a {
			return true
		}
	}
	return false
}

func validHostname(h string) bool {
	if h == "" || len(h) > 253 {
		return false
	}
	for _, label := range strings.Split(h, ".") {
		if label == "" || len(label) > 63 {
			return false
		}
		if label[0] == '-' || label[len(label)-1] == '-' {
			return false
		}
		for i := 0; i < len(label); i++ {
			c := label[i]
			switch {
			case c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '-':
			default:
				return false
			}
		}
	}
	return true
}
