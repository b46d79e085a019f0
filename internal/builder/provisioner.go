package builder

import (
	"context"
	"fmt"
	"time"

	"github.com/lzjever/mbos-wsa/internal/core"
)

type Stage string

const (
	StageInit  Stage = "init"
	StagePlan  Stage = "plan"
	StageApply Stage = "apply"
)

// ErrorResourceType marks a template resource whose apply always fails.
// Templates use it to exercise failed builds.
const ErrorResourceType = "wsa_error"

// Job is what a provisioner needs to know about a build.
type Job struct {
	BuildID    string
	Transition core.Transition
	Orphan     bool
	Parameters []core.WorkspaceBuildParameter
	Resources  []core.WorkspaceResource
}

// LogFunc appends a line to the build's log.
type LogFunc func(level string, stage Stage, output string)

// Provisioner runs one stage of a build.
type Provisioner interface {
	RunStage(ctx context.Context, job Job, stage Stage, logf LogFunc) error
}

// PlanStages lists the stages a build runs. An orphan delete only
// initializes; its resources are left in place.
func PlanStages(transition core.Transition, orphan bool) []Stage {
	if transition == core.TransitionDelete && orphan {
		return []Stage{StageInit}
	}
	return []Stage{StageInit, StagePlan, StageApply}
}

// Simulator is a provisioner that pretends to manage the template's
// resources, spending Delay on each stage.
type Simulator struct {
	Delay time.Duration
}

func (s Simulator) RunStage(ctx context.Context, job Job, stage Stage, logf LogFunc) error {
	switch stage {
	case StageInit:
		logf("info", stage, "Initializing provisioner")
		for _, p := range job.Parameters {
			logf("debug", stage, fmt.Sprintf("parameter %s = %q", p.Name, p.Value))
		}
		if job.Orphan {
			logf("warn", stage, "Orphaning resources; teardown skipped")
		}
	case StagePlan:
		verb := planVerb(job.Transition)
		for _, r := range job.Resources {
			logf("info", stage, fmt.Sprintf("%s will be %s", resourceAddr(r), verb))
		}
		logf("info", stage, fmt.Sprintf("Plan: %d to %s", len(job.Resources), verb))
	case StageApply:
		for _, r := range job.Resources {
			if r.Type == ErrorResourceType && job.Transition == core.TransitionStart {
				logf("error", stage, fmt.Sprintf("%s: apply failed", resourceAddr(r)))
				return fmt.Errorf("apply %s: %s", resourceAddr(r), r.Name)
			}
			logf("debug", stage, fmt.Sprintf("%s: applying", resourceAddr(r)))
		}
		logf("info", stage, "Apply complete")
	default:
		return fmt.Errorf("unknown stage %q", stage)
	}

	if s.Delay <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.Delay):
		return nil
	}
}

func planVerb(t core.Transition) string {
	if t == core.TransitionStart {
		return "created"
	}
	return "destroyed"
}

func resourceAddr(r core.WorkspaceResource) string {
	return r.Type + "." + r.Name
}
