package broker

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrUnavailable marks timeouts and unreachable-bridge failures. These
	// are retryable from the caller's point of view.
	ErrUnavailable = errors.New("broker unavailable")

	// ErrAuthFailed marks a rejected login
	ErrAuthFailed = errors.New("broker rejected credentials")
)

// Credentials is a decrypted broker login, handed over in-process by the
// vault
type Credentials struct {
	Server string
	Login  string
	Secret string
}

// Client is the abstraction over the external trading-terminal service. The
// wire protocol behind it is opaque; implementations only promise a
// lightweight authentication ping and a windowed executed-deal fetch.
type Client interface {
	// Ping performs a lightweight authentication check
	Ping(ctx context.Context, creds Credentials) error

	// GetDeals fetches the executed-deal history for [from, to] as an
	// unordered batch of raw records
	GetDeals(ctx context.Context, creds Credentials, from, to time.Time) ([]Deal, error)
}
