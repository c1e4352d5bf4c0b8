// Package scheduler runs signatures and chains and tracks their outcomes.
//
// # How It Works
//
// Everything is built on one primitive, Engine.Submit, which starts a piece of
// work on its own goroutine and returns a *Handle immediately. A handle is
// PENDING until the work finishes and then moves, exactly once, to SUCCESS or
// FAILURE. Terminal states never change and any number of goroutines may
// observe the same handle.
//
// A chain executes strictly in order. For each signature the engine resolves
// the inputs against the current bag (see the chain package), runs the active
// definition's body, maps the returned values onto the declared return slots
// and merges them into the bag handed to the next element. The first failure
// stops the chain; the remaining elements never run and the chain's handle
// fails with that element's error.
//
// On top of Submit:
//   - SubmitAndWait submits, waits and extracts in one call.
//   - SubmitParallel runs a list of works with at most K pending at a time and
//     returns handles positionally matching the input.
//   - Wait, WaitAll and WaitAny block until handles are terminal.
//   - Extract reads a successful handle's outputs.
//
// # Nested Work
//
// A running body finds its Task with Current(ctx). Through the task it can
// enqueue child work, which is attached to the body's handle, and delegate to
// the definition it overrides with CallOriginal. Waiting on a handle also
// waits for every descendant to reach a terminal state, but only the handle's
// own failure is reported: a child that nobody waits on fails silently.
//
// # Failure Visibility
//
// Resolution errors of the first element and malformed work are returned by
// Submit itself. Everything that happens while the work runs, including body
// errors and panics, is captured in the handle and surfaces only through Wait
// or WaitAll with raise set, as a *ChainInterrupted, or a *MultipleFailures
// when several waited handles failed. Wait returns only after all handles it
// was given, and their descendants, are terminal.
//
// # Cancellation
//
// Submitted work always runs to completion; the context passed to Submit only
// carries values (logger, parent task) into the body. Contexts given to the
// wait functions bound how long the caller blocks, and the context given to
// SubmitParallel can withhold work that has not been submitted yet.
package scheduler
