// Package logging provides structured logging using uber/zap.
//
// Production mode writes JSON, development mode writes colored console
// output. Components receive a named *zap.Logger and attach the shared
// fields defined here (Identity, Window) so session activity can be
// correlated across the router, the engine and the transport.
//
// Example Usage:
//
//	logger := logging.NewDefault()
//	log := logger.Component("router")
//	log.Info("click handled", logging.Identity(id), zap.Int("slot", 4))
package logging
