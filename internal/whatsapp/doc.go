// Package whatsapp adapts whatsmeow to the session capability interfaces.
// The device database is owned by whatsmeow; the session layer only checks
// that it exists.
package whatsapp
