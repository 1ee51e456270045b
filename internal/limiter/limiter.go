// Package limiter implements login lockout: repeated failed logins for the same
// username from the same client block further attempts for a while.
package limiter

import (
	"context"
	"crypto/sha256"
	"net"
	"time"
)

// Key identifies a login subject. The client address is stored hashed only.
type Key struct {
	Username   string
	ClientHash []byte
}

// KeyFor builds a Key from a username and a client address (host or host:port).
func KeyFor(username, clientAddr string) Key {
	host := clientAddr
	if h, _, err := net.SplitHostPort(clientAddr); err == nil {
		host = h
	}
	sum := sha256.Sum256([]byte(host))
	return Key{Username: username, ClientHash: sum[:]}
}

// Policy configures the lockout: MaxFails failures within Window block the key for BlockFor.
type Policy struct {
	Window   time.Duration
	MaxFails int
	BlockFor time.Duration
}

// Enabled reports whether the policy ever blocks.
func (p Policy) Enabled() bool { return p.MaxFails > 0 && p.BlockFor > 0 }

// Limiter controls login attempts and temporary lockouts.
type Limiter interface {
	// Allow returns zero when a login may proceed, otherwise the remaining block time.
	Allow(ctx context.Context, k Key) (time.Duration, error)
	// Success clears the failure history of k.
	Success(ctx context.Context, k Key) error
	// Failure records a failed attempt and returns the block duration if k is now blocked.
	Failure(ctx context.Context, k Key) (time.Duration, error)
}

// Nop never blocks.
type Nop struct{}

func (Nop) Allow(context.Context, Key) (time.Duration, error)   { return 0, nil }
func (Nop) Success(context.Context, Key) error                  { return nil }
func (Nop) Failure(context.Context, Key) (time.Duration, error) { return 0, nil }
