// Package startup orders service dependencies at boot: each dependency
// starts after the ones it depends on, with retries across the whole set.
package startup

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
)

type Dependency interface {
	GetName() string
	DependsOn() []string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

type status int

const (
	statusPending status = iota
	statusStarted
	statusStopped
	statusFailed
)

// Startup starts registered dependencies in dependency order, retrying the
// whole set with fibonacci backoff. Stop runs in reverse registration order.
type Startup struct {
	order    []string
	deps     map[string]Dependency
	statuses map[string]status
	logger   ectologger.Logger
	maxTries int
}

func NewStartup(logger ectologger.Logger, maxAttempts int) *Startup {
	return &Startup{
		deps:     make(map[string]Dependency),
		statuses: make(map[string]status),
		logger:   logger,
		maxTries: maxAttempts,
	}
}

func (s *Startup) AddDependency(dep Dependency) {
	name := dep.GetName()
	if _, exists := s.deps[name]; !exists {
		s.order = append(s.order, name)
	}
	s.deps[name] = dep
}

func (s *Startup) Start(ctx context.Context) error {
	var lastErr error
	wait, next := 1, 1

	for attempt := 1; attempt <= s.maxTries; attempt++ {
		s.logger.WithFields(map[string]any{"attempt": attempt, "maxAttempts": s.maxTries}).Info("Starting dependencies")

		lastErr = nil
		for _, name := range s.order {
			if err := s.start(ctx, s.deps[name]); err != nil {
				lastErr = err
				break
			}
		}
		if lastErr == nil {
			return nil
		}

		if attempt == s.maxTries {
			break
		}

		s.logger.WithError(lastErr).Infof("Retrying startup in %d seconds", wait)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(wait) * time.Second):
		}
		wait, next = next, wait+next
	}

	return fmt.Errorf("startup failed after %d attempts: %w", s.maxTries, lastErr)
}

func (s *Startup) start(ctx context.Context, dep Dependency) error {
	name := dep.GetName()
	if s.statuses[name] == statusStarted {
		return nil
	}

	for _, parent := range dep.DependsOn() {
		if err := s.start(ctx, s.deps[parent]); err != nil {
			return err
		}
	}

	s.logger.WithField("dependency", name).Info("Starting dependency")
	if err := dep.Start(ctx); err != nil {
		s.statuses[name] = statusFailed
		return fmt.Errorf("failed to start %s: %w", name, err)
	}
	s.statuses[name] = statusStarted
	return nil
}

// Stop shuts down started dependencies in reverse registration order. The
// first stop failure aborts so the operator sees what is still running.
func (s *Startup) Stop(ctx context.Context) error {
	for i := len(s.order) - 1; i >= 0; i-- {
		name := s.order[i]
		if s.statuses[name] != statusStarted {
			continue
		}
		s.logger.WithField("dependency", name).Info("Stopping dependency")
		if err := s.deps[name].Stop(ctx); err != nil {
			return fmt.Errorf("failed to stop %s: %w", name, err)
		}
		s.statuses[name] = statusStopped
	}
	return nil
}
