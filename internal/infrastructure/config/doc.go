// Package config provides 12-factor configuration for the windowing server.
//
// Configuration is loaded from environment variables with defaults. CLI
// flags override environment variables.
//
// Configuration Sections:
//   - Server: HTTP listen address
//   - Logging: log level and output format
//   - Render: deferral of the render pass after an interaction
//   - Guard: per-button failure breaker
//   - RateLimit: per-identity event rate limiting
//   - Storage: blueprint, language and permission file locations
//   - Script: scripted button limits
//
// Environment Variables:
//   - PORT, HOST
//   - LOG_LEVEL, LOG_DEV
//   - RENDER_DELAY
//   - GUARD_MAX_FAILURES, GUARD_COOLDOWN
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
//   - BLUEPRINT_DIR, LANGUAGE_FILE, PERMISSIONS_FILE, WATCH_FILES
//   - SCRIPTS_ENABLED, SCRIPT_TIMEOUT, SCRIPT_POOL_SIZE
package config
