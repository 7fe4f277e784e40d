// Package coordination keeps every connected playback client on the same
// transport state and timeline.
//
// The Dispatcher is a single goroutine owning all shared state (session
// registry, command ledger); producers feed it through a command channel, so
// no handler for one session ever interleaves with another. Outbound commands
// carry a future execution timestamp so clients act in lockstep despite
// differing network delay, and the ledger recognizes clients echoing those
// commands back so they are not re-broadcast.
package coordination
