// Package logging provides structured logging for Gray Logic Bluetooth.
//
// It wraps log/slog with level parsing, output selection, and default
// service/version attributes. Components receive a child logger via With:
//
//	bridgeLogger := logger.With("component", "bluetooth")
//	bridgeLogger.Info("bridge started", "scanners", 3)
package logging
