// Package campaign persists campaign lifecycle state in SQLite.
//
// The store owns the status state machine data: campaign records, their
// per-platform launch rows, optional design task companions, and the
// append-only audit trail. All mutation goes through either an unconditional
// update (pollers transitioning out of a status they alone own) or the
// conditional claim update used before AI generation begins.
package campaign
