// Package workers implements the four stage workers that drive campaigns
// through the lifecycle: approval polling, tracking-link polling, processing
// (AI generation + launch), and design task syncing.
//
// Every worker is a stateless RunOnce invocation scheduled externally.
// Overlapping invocations are tolerated; exclusivity for side-effecting work
// rests on the store's conditional claim, never on in-process state. Per-item
// failures are isolated and reported only through the batch summary.
package workers
