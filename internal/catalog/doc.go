// Package catalog resolves playlist metadata for clients: YouTube Data API
// fetch with pagination, read-through caching (Redis or in-memory) and a
// stale-on-error fallback. The synchronization core does not depend on it.
package catalog
