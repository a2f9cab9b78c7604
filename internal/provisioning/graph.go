package provisioning

import (
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// Task is a node in the provisioning graph. It runs only after every task
// named in After has completed successfully.
type Task struct {
	ID    string
	Name  string
	After []string
	Run   func(ctx *Context) error
}

// Graph is a dependency-ordered set of tasks. Independent tasks run in
// parallel; the graph fails fast, and dependents of a failed task never
// start.
type Graph struct {
	tasks map[string]Task
	order []string
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{tasks: make(map[string]Task)}
}

// Add registers a task. Duplicate IDs are a programming error and panic.
func (g *Graph) Add(task Task) {
	if _, exists := g.tasks[task.ID]; exists {
		panic(fmt.Sprintf("duplicate task ID %q", task.ID))
	}
	g.tasks[task.ID] = task
	g.order = append(g.order, task.ID)
}

// Tasks returns the task IDs in insertion order.
func (g *Graph) Tasks() []string {
	return append([]string(nil), g.order...)
}

// Validate checks that every dependency exists and the graph is acyclic.
func (g *Graph) Validate() error {
	indegree := make(map[string]int, len(g.tasks))
	dependents := make(map[string][]string, len(g.tasks))

	for id, task := range g.tasks {
		indegree[id] += 0
		for _, dep := range task.After {
			if _, exists := g.tasks[dep]; !exists {
				return fmt.Errorf("task %q depends on unknown task %q", id, dep)
			}
			indegree[id]++
			dependents[dep] = append(dependents[dep], id)
		}
	}

	var ready []string
	for id, deg := range indegree {
		if deg == 0 {
			ready = append(ready, id)
		}
	}

	visited := 0
	for len(ready) > 0 {
		id := ready[len(ready)-1]
		ready = ready[:len(ready)-1]
		visited++

		for _, dep := range dependents[id] {
			indegree[dep]--
			if indegree[dep] == 0 {
				ready = append(ready, dep)
			}
		}
	}

	if visited != len(g.tasks) {
		return fmt.Errorf("task graph contains a dependency cycle")
	}

	return nil
}

// Run executes the graph. Each task waits for its dependencies, then runs;
// a failure cancels the group, so waiting dependents observe cancellation
// instead of running.
func (g *Graph) Run(pctx *Context) error {
	if err := g.Validate(); err != nil {
		return err
	}

	done := make(map[string]chan struct{}, len(g.tasks))
	for id := range g.tasks {
		done[id] = make(chan struct{})
	}

	eg, ctx := errgroup.WithContext(pctx)
	taskCtx := pctx.WithContext(ctx)

	for _, id := range g.order {
		task := g.tasks[id]
		eg.Go(func() error {
			for _, dep := range task.After {
				select {
				case <-done[dep]:
				case <-ctx.Done():
					return ctx.Err()
				}
			}

			start := time.Now()
			pctx.Observer.Printf("[%s] starting", task.Name)

			if err := task.Run(taskCtx); err != nil {
				pctx.Observer.Printf("[%s] failed: %v", task.Name, err)
				return fmt.Errorf("%s failed: %w", task.Name, err)
			}

			pctx.Observer.Printf("[%s] completed in %v", task.Name, time.Since(start).Round(time.Millisecond))
			close(done[task.ID])
			return nil
		})
	}

	return eg.Wait()
}
