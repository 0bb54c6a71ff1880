package process

// Status represents where a process is in its lifecycle.
type Status string

const (
	// StatusReady - enrolled in the ready set, waiting for a slice.
	StatusReady Status = "ready"
	// StatusRunning - currently holding the CPU.
	StatusRunning Status = "running"
	// StatusBlocked - waiting on an external event, not eligible to run.
	StatusBlocked Status = "blocked"
	// StatusZombie - exited, waiting for the parent to reap the exit code.
	StatusZombie Status = "zombie"
)

// Runnable reports whether a process in this status may be enrolled in the
// ready set.
func (s Status) Runnable() bool {
	return s == StatusReady || s == StatusRunning
}
