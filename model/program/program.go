// Package program defines the executable image model. A program is what spawn
// instantiates: a named sequence of steps, each consuming one time slice when
// the owning process is dispatched.
package program

import (
	"fmt"

	"github.com/strideos/stride/kernel/stride"
)

// Step operations.
const (
	OpCompute  = "compute"  // burn the slice
	OpYield    = "yield"    // give the slice up voluntarily
	OpSpawn    = "spawn"    // create a child from another image
	OpSetPrio  = "setprio"  // change own priority
	OpExit     = "exit"     // terminate with a code
	OpBlock    = "block"    // leave the ready set for N rounds
	OpWaitPID  = "waitpid"  // reap a zombie child
	OpTaskInfo = "taskinfo" // sample own accounting
)

// Step is a single time slice worth of work.
type Step struct {
	Op   string                 `json:"op" yaml:"op"`
	Args map[string]interface{} `json:"args,omitempty" yaml:"args,omitempty"`
}

// Program is an executable image. A process created from it starts at step 0;
// once steps are exhausted the process keeps computing until killed, so a
// program with no steps is a pure CPU hog.
type Program struct {
	Name     string  `json:"name" yaml:"name"`
	Priority int64   `json:"priority,omitempty" yaml:"priority,omitempty"`
	Steps    []*Step `json:"steps,omitempty" yaml:"steps,omitempty"`

	Source *Source `json:"source,omitempty" yaml:"-"`
}

// Source describes where the image was loaded from.
type Source struct {
	URL string `json:"url,omitempty"`
}

var knownOps = map[string]bool{
	OpCompute:  true,
	OpYield:    true,
	OpSpawn:    true,
	OpSetPrio:  true,
	OpExit:     true,
	OpBlock:    true,
	OpWaitPID:  true,
	OpTaskInfo: true,
}

// Validate returns all issues found in the image definition.
func (p *Program) Validate() []error {
	var issues []error
	if p.Name == "" {
		issues = append(issues, fmt.Errorf("program name is required"))
	}
	if p.Priority != 0 && p.Priority < stride.MinPriority {
		issues = append(issues, fmt.Errorf("program %q: priority %d below minimum %d", p.Name, p.Priority, stride.MinPriority))
	}
	for i, step := range p.Steps {
		if step == nil {
			issues = append(issues, fmt.Errorf("program %q: step %d is nil", p.Name, i))
			continue
		}
		if !knownOps[step.Op] {
			issues = append(issues, fmt.Errorf("program %q: step %d has unknown op %q", p.Name, i, step.Op))
		}
		if step.Op == OpSpawn {
			if name, _ := step.Args["program"].(string); name == "" {
				issues = append(issues, fmt.Errorf("program %q: step %d spawn requires args.program", p.Name, i))
			}
		}
	}
	return issues
}

// Step returns the step at the instruction pointer, or nil when the program
// ran past its last step.
func (p *Program) Step(ip int) *Step {
	if ip < 0 || ip >= len(p.Steps) {
		return nil
	}
	return p.Steps[ip]
}

// Clone deep-copies the image so a spawned process can never mutate the
// registry's copy through shared step args.
func (p *Program) Clone() *Program {
	if p == nil {
		return nil
	}
	ret := &Program{Name: p.Name, Priority: p.Priority, Source: p.Source}
	for _, step := range p.Steps {
		cloned := &Step{Op: step.Op}
		if step.Args != nil {
			cloned.Args = make(map[string]interface{}, len(step.Args))
			for k, v := range step.Args {
				cloned.Args[k] = v
			}
		}
		ret.Steps = append(ret.Steps, cloned)
	}
	return ret
}
