package handlers

import (
	"context"
	"io"
	"log"

	"github.com/talvirt/talvirt/internal/provisioning/plan"
)

// Plan prints the pending actions without side effects: the desired
// resources recomputed from the topology, diffed against the hypervisor and
// the state marker.
func Plan(ctx context.Context, configPath string, out io.Writer) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	pctx, cleanup, err := buildContext(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	p, err := plan.Compute(pctx)
	if err != nil {
		return err
	}

	p.Print(out)
	return nil
}

// PlanApply prints the plan, then applies it.
func PlanApply(ctx context.Context, configPath string, out io.Writer) error {
	if err := Plan(ctx, configPath, out); err != nil {
		return err
	}

	log.Printf("Executing plan...")
	return Apply(ctx, configPath)
}
