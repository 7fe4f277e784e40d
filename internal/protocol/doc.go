// Package protocol defines the JSON wire messages exchanged with playback clients.
//
// Inbound frames are decoded into a single envelope struct and dispatched on the
// type discriminator. Outbound messages are one struct per kind so a recipient
// never sees fields that do not belong to that kind.
package protocol
