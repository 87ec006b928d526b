// Package cache implements the playlist cache and its freeze state machine.
//
// # Store
//
// [Store] is a JSON document on disk holding one [Entry] per submission, keyed
// by "contributor/title". Writes go through a temp file and an atomic rename, so
// a reader never observes a partially written store.
//
// # Decision procedure
//
// [Evaluator.Evaluate] decides, per rebuild and per remote playlist, whether the
// cached contents are still usable:
//
//  1. No entry: fetch the full playlist. Over the limit means a hard validation
//     failure (there is nothing valid to fall back to); otherwise a new entry
//     is created.
//  2. Entry present: compare the service's fingerprint against the stored one.
//     Equal means the playlist is unchanged and the cached contents are served
//     with no fetch at all, which is the dominant steady-state case.
//  3. Fingerprint differs: refetch. Within the limit the entry refreshes (which
//     also unfreezes a frozen entry); over the limit the entry freezes onto its
//     previous snapshot without advancing the fingerprint, so the next rebuild
//     checks again.
//
// The evaluator issues at most one fingerprint call and one fetch call and never
// touches the store; it returns a [Mutation] describing the required change. The
// orchestrator applies the mutation and persists the store before moving to the
// next submission, so a decided freeze is always recorded durably.
package cache
