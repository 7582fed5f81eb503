// Package startup brings service dependencies up in order, with retries,
// and tears them down in reverse.
package startup

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
)

// Dependency is one startable piece of the service. DependsOn names
// dependencies that must be running before this one starts.
type Dependency interface {
	GetName() string
	DependsOn() []string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

type Status int

const (
	StatusPending Status = iota
	StatusStarted
	StatusStopped
	StatusFailed
)

// Startup starts dependencies in registration order, honoring DependsOn,
// and stops whatever started in reverse start order.
type Startup struct {
	order       []Dependency
	started     []Dependency
	byName      map[string]Dependency
	statuses    map[string]Status
	logger      ectologger.Logger
	attempt     int
	maxAttempts int
}

func New(logger ectologger.Logger, maxAttempts int) *Startup {
	return &Startup{
		logger:      logger,
		byName:      make(map[string]Dependency),
		statuses:    make(map[string]Status),
		maxAttempts: maxAttempts,
	}
}

func (s *Startup) AddDependency(dependency Dependency) {
	if _, exists := s.byName[dependency.GetName()]; exists {
		return
	}
	s.order = append(s.order, dependency)
	s.byName[dependency.GetName()] = dependency
}

// Start starts every dependency. Failed attempts retry with Fibonacci
// backoff; dependencies that already started are not started again.
func (s *Startup) Start(ctx context.Context) error {
	s.attempt = 0
	var lastErr error

	a, b := 1, 1
	for s.attempt < s.maxAttempts {
		s.attempt++
		s.logger.WithField("attempt", s.attempt).Infof("Beginning startup attempt %d", s.attempt)

		success := true
		for _, dependency := range s.order {
			err := s.startDependency(ctx, dependency)
			if err != nil {
				s.logger.WithError(err).Errorf("Startup dependency '%s' attempt %d failed", dependency.GetName(), s.attempt)
				lastErr = err
				success = false
				break
			}
		}

		if success {
			return nil
		}

		if s.attempt >= s.maxAttempts {
			return fmt.Errorf("startup failed after %d attempts: %w", s.attempt, lastErr)
		}

		waitTime := time.Duration(a) * time.Second
		s.logger.Infof("Retrying in %d seconds (attempt %d/%d)", a, s.attempt, s.maxAttempts)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(waitTime):
		}

		a, b = b, a+b
	}

	return nil
}

func (s *Startup) startDependency(ctx context.Context, dependency Dependency) error {
	name := dependency.GetName()
	if s.statuses[name] == StatusStarted {
		return nil
	}

	for _, dependencyName := range dependency.DependsOn() {
		if s.statuses[dependencyName] == StatusStarted {
			continue
		}
		required, ok := s.byName[dependencyName]
		if !ok {
			return fmt.Errorf("dependency '%s' requires unregistered dependency '%s'", name, dependencyName)
		}
		if err := s.startDependency(ctx, required); err != nil {
			return err
		}
	}

	s.logger.WithField("dependency", name).Infof("Starting dependency '%s'", name)
	s.statuses[name] = StatusPending
	if err := dependency.Start(ctx); err != nil {
		s.statuses[name] = StatusFailed
		s.logger.WithError(err).WithField("dependency", name).Errorf("Failed to start dependency '%s'", name)
		return err
	}
	s.statuses[name] = StatusStarted
	s.started = append(s.started, dependency)
	return nil
}

// Stop stops started dependencies in reverse start order, so dependents
// stop before what they depend on. Safe to call after a failed Start:
// dependencies that never started are skipped.
func (s *Startup) Stop(ctx context.Context) error {
	for i := len(s.started) - 1; i >= 0; i-- {
		dependency := s.started[i]
		name := dependency.GetName()
		if s.statuses[name] != StatusStarted {
			continue
		}

		s.logger.WithField("dependency", name).Infof("Stopping dependency '%s'", name)
		if err := dependency.Stop(ctx); err != nil {
			s.logger.WithError(err).WithField("dependency", name).Errorf("Failed to stop dependency '%s'", name)
			return err
		}

		s.logger.WithField("dependency", name).Infof("Dependency '%s' stopped", name)
		s.statuses[name] = StatusStopped
	}
	return nil
}
