package connectivity

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"habitsync/internal/config"
	"habitsync/internal/habit"
)

// Static reports a fixed answer that can be flipped at runtime.
type Static struct {
	online atomic.Bool
}

var _ habit.Connectivity = (*Static)(nil)

// NewStatic creates an oracle that reports online.
func NewStatic(online bool) *Static {
	s := &Static{}
	s.online.Store(online)
	return s
}

func (s *Static) Online(context.Context) bool { return s.online.Load() }

// Set changes the reported state.
func (s *Static) Set(online bool) { s.online.Store(online) }

// Pinger is anything that can check reachability of the remote.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Probe asks the remote on every poll, bounded by a timeout. A failed or
// slow ping counts as offline.
type Probe struct {
	pinger  Pinger
	timeout time.Duration
	logger  habit.Logger
}

var _ habit.Connectivity = (*Probe)(nil)

// NewProbe creates a probing oracle. A nil logger discards output.
func NewProbe(pinger Pinger, timeout time.Duration, logger habit.Logger) *Probe {
	if logger == nil {
		logger = habit.NewNopLogger()
	}
	return &Probe{pinger: pinger, timeout: timeout, logger: logger}
}

func (p *Probe) Online(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.pinger.Ping(ctx); err != nil {
		p.logger.Debug("remote unreachable", "error", err)
		return false
	}
	return true
}

// NewFromConfig creates the oracle selected by the connectivity mode.
// forceOffline overrides the configured mode.
func NewFromConfig(cfg config.ConnectivityConfig, pinger Pinger, forceOffline bool, logger habit.Logger) (habit.Connectivity, error) {
	if forceOffline {
		return NewStatic(false), nil
	}
	switch cfg.Mode {
	case "probe", "":
		timeout, err := cfg.Timeout()
		if err != nil {
			return nil, err
		}
		return NewProbe(pinger, timeout, logger), nil
	case "online":
		return NewStatic(true), nil
	case "offline":
		return NewStatic(false), nil
	default:
		return nil, fmt.Errorf("unknown connectivity mode: %s", cfg.Mode)
	}
}
