// Package policy carries the permission model for control syscalls via
// context. It is deliberately decoupled from the kernel: a nil *Policy means
// the default ownership rule (a process controls itself and its direct
// children), so embedding engines that never set a policy keep the classic
// behaviour at zero cost.
package policy

import (
	"context"

	"github.com/strideos/stride/kernel/process"
)

// Target scopes recognised by the syscall layer.
const (
	ScopeSelf     = "self"     // caller may only retarget itself
	ScopeChildren = "children" // self plus direct children (default)
	ScopeAny      = "any"      // any live process
)

// Policy describes which processes a caller may control.
type Policy struct {
	Scope string
}

// Config is the serialisable form of a Policy.
type Config struct {
	Scope string `json:"scope,omitempty" yaml:"scope,omitempty"`
}

// ToConfig converts a runtime Policy into a persistable Config.
func ToConfig(p *Policy) *Config {
	if p == nil {
		return nil
	}
	return &Config{Scope: p.Scope}
}

// FromConfig converts a stored Config back to a runtime Policy.
func FromConfig(c *Config) *Policy {
	if c == nil {
		return nil
	}
	return &Policy{Scope: c.Scope}
}

// MayControl reports whether caller is permitted to act on target.
func (p *Policy) MayControl(caller, target *process.Process) bool {
	if caller == nil || target == nil {
		return false
	}
	if caller.PID == target.PID {
		return true
	}
	scope := ScopeChildren
	if p != nil && p.Scope != "" {
		scope = p.Scope
	}
	switch scope {
	case ScopeAny:
		return true
	case ScopeChildren:
		return caller.HasChild(target.PID)
	default:
		return false
	}
}

type policyKeyT string

const policyKey policyKeyT = "stride.policy"

// WithPolicy attaches a policy to the context.
func WithPolicy(ctx context.Context, p *Policy) context.Context {
	if p == nil {
		return ctx
	}
	return context.WithValue(ctx, policyKey, p)
}

// FromContext extracts the policy or nil.
func FromContext(ctx context.Context) *Policy {
	if ctx == nil {
		return nil
	}
	if value := ctx.Value(policyKey); value != nil {
		if p, ok := value.(*Policy); ok {
			return p
		}
	}
	return nil
}
