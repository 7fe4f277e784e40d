// Package server exposes the HTTP surface: the /ws playback client endpoint,
// health and metrics routes and the optional playlist catalog API. Connection
// limits (global, per-IP, per-IP rate) are enforced before upgrading.
package server
