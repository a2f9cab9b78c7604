package provisioning

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu    sync.Mutex
	order []string
}

func (r *recorder) add(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = append(r.order, id)
}

func (r *recorder) indexOf(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, v := range r.order {
		if v == id {
			return i
		}
	}
	return -1
}

func (r *recorder) ran(id string) bool {
	return r.indexOf(id) >= 0
}

func testContext() *Context {
	return &Context{
		Context:  context.Background(),
		State:    &State{},
		Marker:   &Marker{},
		Observer: NewConsoleObserver(),
	}
}

func recordingTask(rec *recorder, id string, after ...string) Task {
	return Task{
		ID:    id,
		Name:  id,
		After: after,
		Run: func(ctx *Context) error {
			rec.add(id)
			return nil
		},
	}
}

func TestGraphRunRespectsDependencies(t *testing.T) {
	rec := &recorder{}
	g := NewGraph()
	g.Add(recordingTask(rec, "a"))
	g.Add(recordingTask(rec, "b", "a"))
	g.Add(recordingTask(rec, "c", "a"))
	g.Add(recordingTask(rec, "d", "b", "c"))

	require.NoError(t, g.Run(testContext()))

	require.Len(t, rec.order, 4)
	assert.Less(t, rec.indexOf("a"), rec.indexOf("b"))
	assert.Less(t, rec.indexOf("a"), rec.indexOf("c"))
	assert.Less(t, rec.indexOf("b"), rec.indexOf("d"))
	assert.Less(t, rec.indexOf("c"), rec.indexOf("d"))
}

func TestGraphRunFailFast(t *testing.T) {
	rec := &recorder{}
	g := NewGraph()
	g.Add(Task{
		ID:   "a",
		Name: "a",
		Run: func(ctx *Context) error {
			return fmt.Errorf("boom")
		},
	})
	g.Add(recordingTask(rec, "b", "a"))
	g.Add(recordingTask(rec, "c", "b"))

	err := g.Run(testContext())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	// Dependents of the failed task never ran.
	assert.False(t, rec.ran("b"))
	assert.False(t, rec.ran("c"))
}

func TestGraphRunIndependentBranchOfFailure(t *testing.T) {
	// A failure cancels the group; tasks not yet started do not run, but
	// the scheduler must still terminate and report the original error.
	g := NewGraph()
	g.Add(Task{ID: "fail", Name: "fail", Run: func(ctx *Context) error {
		return fmt.Errorf("boom")
	}})
	g.Add(Task{ID: "slow", Name: "slow", Run: func(ctx *Context) error {
		<-ctx.Done()
		return ctx.Err()
	}})
	g.Add(recordingTask(&recorder{}, "after-slow", "slow"))

	err := g.Run(testContext())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestGraphValidate(t *testing.T) {
	t.Run("unknown dependency", func(t *testing.T) {
		g := NewGraph()
		g.Add(Task{ID: "a", Name: "a", After: []string{"ghost"}, Run: func(ctx *Context) error { return nil }})

		err := g.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ghost")
	})

	t.Run("cycle", func(t *testing.T) {
		g := NewGraph()
		g.Add(Task{ID: "a", Name: "a", After: []string{"b"}, Run: func(ctx *Context) error { return nil }})
		g.Add(Task{ID: "b", Name: "b", After: []string{"a"}, Run: func(ctx *Context) error { return nil }})

		err := g.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cycle")
	})

	t.Run("duplicate ID panics", func(t *testing.T) {
		g := NewGraph()
		g.Add(Task{ID: "a", Name: "a", Run: func(ctx *Context) error { return nil }})
		assert.Panics(t, func() {
			g.Add(Task{ID: "a", Name: "a", Run: func(ctx *Context) error { return nil }})
		})
	})
}

func TestRunPhases(t *testing.T) {
	rec := &recorder{}

	phases := []Phase{
		phaseFunc{"first", func(ctx *Context) error { rec.add("first"); return nil }},
		phaseFunc{"second", func(ctx *Context) error { rec.add("second"); return nil }},
	}

	require.NoError(t, RunPhases(testContext(), phases))
	assert.Equal(t, []string{"first", "second"}, rec.order)
}

func TestRunPhasesStopsOnFailure(t *testing.T) {
	rec := &recorder{}

	phases := []Phase{
		phaseFunc{"first", func(ctx *Context) error { return fmt.Errorf("boom") }},
		phaseFunc{"second", func(ctx *Context) error { rec.add("second"); return nil }},
	}

	err := RunPhases(testContext(), phases)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "first phase failed")
	assert.False(t, rec.ran("second"))
}

type phaseFunc struct {
	name string
	run  func(ctx *Context) error
}

func (p phaseFunc) Name() string                 { return p.name }
func (p phaseFunc) Provision(ctx *Context) error { return p.run(ctx) }
