// Package stride provides an embeddable stride-scheduling process machine.
//
// Processes are spawned from declaratively defined program images (for
// example in YAML) and scheduled proportionally to their priority: each
// process carries a stride counter advanced by BigStride/priority per
// consumed time slice, and every round dispatches the process with the
// smallest counter. The engine comes with pluggable service layers such as:
//
//   - scheduler  – the select/dispatch/preempt round loop
//   - executor   – slice execution through program step ops
//   - syscall    – the control surface (spawn, set-priority, waitpid, ...)
//   - proctable  – pid allocation and process bookkeeping
//
// The engine is designed to be embedded in host applications. End-users
// typically interact with it via the high-level Service façade exposed by
// the root package:
//
//	srv, _ := stride.New(stride.WithPrograms(img))
//	rt := srv.Runtime()
//	proc, _ := rt.Spawn(ctx, "worker")
//	_ = rt.Start(ctx)
//
// For more details see the individual sub-packages.
package stride
