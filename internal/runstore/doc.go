// Package runstore keeps a ledger of terminal handle outcomes.
//
// Every handle the scheduler completes becomes one Entry, tagged with the
// run it belongs to. Two implementations exist:
//
//   - SQLiteStore persists entries in a SQLite database so runs can be
//     inspected after the process exits.
//   - MemoryStore keeps them in process memory, for tests and for runs
//     without a configured ledger path.
//
// Recorder adapts either one to the scheduler.Recorder interface.
package runstore
