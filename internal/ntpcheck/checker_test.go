package ntpcheck

import (
	"errors"
	"testing"
	"time"
)

func TestCheck(t *testing.T) {
	t.Run("small offset is healthy", func(t *testing.T) {
		c := &Checker{QueryFunc: func(string) (time.Duration, error) { return 20 * time.Millisecond, nil }}
		got := c.Check()
		if got.Phase != Healthy {
			t.Errorf("Phase = %s, want healthy", got.Phase)
		}
	})

	t.Run("negative offset uses magnitude", func(t *testing.T) {
		c := &Checker{QueryFunc: func(string) (time.Duration, error) { return -2 * time.Second, nil }}
		if got := c.Check(); got.Phase != SkewedClock {
			t.Errorf("Phase = %s, want skewed_clock", got.Phase)
		}
	})

	t.Run("query failure is unreachable", func(t *testing.T) {
		c := &Checker{QueryFunc: func(string) (time.Duration, error) { return 0, errors.New("no route") }}
		got := c.Check()
		if got.Phase != Unreachable || got.Error == "" {
			t.Errorf("Status = %+v", got)
		}
	})

	t.Run("custom threshold", func(t *testing.T) {
		c := &Checker{
			Threshold: 10 * time.Millisecond,
			QueryFunc: func(string) (time.Duration, error) { return 20 * time.Millisecond, nil },
		}
		if got := c.Check(); got.Phase != SkewedClock {
			t.Errorf("Phase = %s, want skewed_clock under tight threshold", got.Phase)
		}
	})

	t.Run("defaults applied", func(t *testing.T) {
		c := &Checker{QueryFunc: func(pool string) (time.Duration, error) {
			if pool != DefaultPool {
				t.Errorf("pool = %s, want %s", pool, DefaultPool)
			}
			return 0, nil
		}}
		c.Check()
	})
}
