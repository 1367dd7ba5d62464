// Package ntpcheck probes the anchor's clock offset against an NTP pool.
// Tinc session keys are negotiated with timestamped handshakes, so a badly
// skewed anchor clock shows up as peers that connect and then silently drop.
package ntpcheck

import (
	"time"

	"github.com/beevik/ntp"
)

const (
	DefaultPool      = "pool.ntp.org"
	DefaultThreshold = 500 * time.Millisecond
)

// Phase classifies one probe result.
type Phase uint8

const (
	Healthy Phase = iota + 1
	SkewedClock
	Unreachable
)

func (p Phase) String() string {
	switch p {
	case Healthy:
		return "healthy"
	case SkewedClock:
		return "skewed_clock"
	case Unreachable:
		return "unreachable"
	default:
		return "unknown"
	}
}

// Status is the outcome of a single probe.
type Status struct {
	Offset    time.Duration
	Phase     Phase
	Error     string
	CheckedAt time.Time
}

// Checker performs one-shot clock offset probes.
type Checker struct {
	Pool      string
	Threshold time.Duration

	// QueryFunc overrides the NTP round trip in tests.
	QueryFunc func(pool string) (time.Duration, error)
}

func (c *Checker) pool() string {
	if c.Pool != "" {
		return c.Pool
	}
	return DefaultPool
}

func (c *Checker) threshold() time.Duration {
	if c.Threshold > 0 {
		return c.Threshold
	}
	return DefaultThreshold
}

// Check queries the pool once and classifies the measured offset.
func (c *Checker) Check() Status {
	now := time.Now()
	offset, err := c.query()
	if err != nil {
		return Status{Phase: Unreachable, Error: err.Error(), CheckedAt: now}
	}
	phase := SkewedClock
	if offset.Abs() < c.threshold() {
		phase = Healthy
	}
	return Status{Offset: offset, Phase: phase, CheckedAt: now}
}

func (c *Checker) query() (time.Duration, error) {
	if c.QueryFunc != nil {
		return c.QueryFunc(c.pool())
	}
	resp, err := ntp.Query(c.pool())
	if err != nil {
		return 0, err
	}
	return resp.ClockOffset, nil
}
