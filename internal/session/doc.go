// Package session owns the single messaging-network session of the process.
//
// Ownership boundary:
// - lifecycle state machine (disconnected -> connecting -> open -> closing)
// - the one live Handle and its invalidation on close
// - capability contracts consumed from the network adapter
//
// Lifecycle order:
// - connect performs a fresh handshake; there is no automatic reconnect.
//
// - connect returns only after an open event, or fails.
//
// - close always succeeds and always lands in disconnected.
package session
