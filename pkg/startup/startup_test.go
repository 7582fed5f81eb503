package startup

import (
	"context"
	"errors"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDependency struct {
	name      string
	dependsOn []string
	startErr  error
	events    *[]string
}

func (d *fakeDependency) GetName() string     { return d.name }
func (d *fakeDependency) DependsOn() []string { return d.dependsOn }

func (d *fakeDependency) Start(ctx context.Context) error {
	if d.startErr != nil {
		return d.startErr
	}
	*d.events = append(*d.events, "start:"+d.name)
	return nil
}

func (d *fakeDependency) Stop(ctx context.Context) error {
	*d.events = append(*d.events, "stop:"+d.name)
	return nil
}

func newTestStartup(t *testing.T) *Startup {
	t.Helper()
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	return New(logger, 1)
}

func TestStartup_StartHonorsDependsOn(t *testing.T) {
	var events []string
	s := newTestStartup(t)

	// Registered out of order on purpose: consumer first, then what it needs.
	s.AddDependency(&fakeDependency{name: "consumer", dependsOn: []string{"database"}, events: &events})
	s.AddDependency(&fakeDependency{name: "database", events: &events})
	s.AddDependency(&fakeDependency{name: "server", dependsOn: []string{"database"}, events: &events})

	err := s.Start(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"start:database", "start:consumer", "start:server"}, events)
}

func TestStartup_StopReversesStartOrder(t *testing.T) {
	var events []string
	s := newTestStartup(t)

	// The shared database stops last, after both of its dependents, even
	// though it was registered in the middle.
	s.AddDependency(&fakeDependency{name: "consumer", dependsOn: []string{"database"}, events: &events})
	s.AddDependency(&fakeDependency{name: "database", events: &events})
	s.AddDependency(&fakeDependency{name: "server", dependsOn: []string{"database"}, events: &events})

	require.NoError(t, s.Start(context.Background()))
	events = nil

	require.NoError(t, s.Stop(context.Background()))
	assert.Equal(t, []string{"stop:server", "stop:consumer", "stop:database"}, events)
}

func TestStartup_StartFailureReported(t *testing.T) {
	var events []string
	s := newTestStartup(t)

	broken := errors.New("connection refused")
	s.AddDependency(&fakeDependency{name: "database", events: &events})
	s.AddDependency(&fakeDependency{name: "consumer", dependsOn: []string{"database"}, startErr: broken, events: &events})

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, broken)
}

func TestStartup_StopAfterFailedStartSkipsUnstarted(t *testing.T) {
	var events []string
	s := newTestStartup(t)

	s.AddDependency(&fakeDependency{name: "database", events: &events})
	s.AddDependency(&fakeDependency{name: "consumer", startErr: errors.New("boom"), events: &events})
	s.AddDependency(&fakeDependency{name: "server", events: &events})

	require.Error(t, s.Start(context.Background()))
	events = nil

	require.NoError(t, s.Stop(context.Background()))
	assert.Equal(t, []string{"stop:database"}, events)
}

func TestStartup_UnregisteredDependency(t *testing.T) {
	var events []string
	s := newTestStartup(t)

	s.AddDependency(&fakeDependency{name: "consumer", dependsOn: []string{"kafka"}, events: &events})

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kafka")
}

func TestStartup_SharedDependencyStartsOnce(t *testing.T) {
	var events []string
	s := newTestStartup(t)

	s.AddDependency(&fakeDependency{name: "database", events: &events})
	s.AddDependency(&fakeDependency{name: "consumer", dependsOn: []string{"database"}, events: &events})
	s.AddDependency(&fakeDependency{name: "server", dependsOn: []string{"database"}, events: &events})

	require.NoError(t, s.Start(context.Background()))

	starts := 0
	for _, e := range events {
		if e == "start:database" {
			starts++
		}
	}
	assert.Equal(t, 1, starts)
}
