// Package main runs the windowing server.
//
// The server loads window blueprints, the language file and the permission
// grants, then serves the admin API and the client stream:
//
//	# Production mode
//	./server --port 8000 --blueprints menus
//
//	# Development mode (colored logs, debug level)
//	./server --dev
//
//	# Check blueprint files without starting anything
//	./server validate menus/shop.yaml menus/bank.toml
//
// Configuration comes from environment variables; flags override them.
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
