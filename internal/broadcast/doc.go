// Package broadcast owns the outbound side of client WebSocket connections.
//
// One ClientWriter goroutine per connection drains a buffered send channel,
// applies write deadlines and keeps the connection alive with pings. Slow or
// dead clients surface as Send errors and are skipped per message, never
// blocking the dispatcher.
package broadcast
