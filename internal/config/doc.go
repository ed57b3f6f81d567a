// Package config loads recast's client configuration.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/recast/config.toml (default)
//  3. If the config file doesn't exist, start from hardcoded defaults
//  4. Apply RECAST_* values from a .env file (DotenvPath), if present
//  5. Apply RECAST_* variables from the process environment
//
// Empty values at any layer fall through to the layer below.
//
// # Default Values
//
//   - Config file: ~/.config/recast/config.toml
//   - API URL: http://127.0.0.1:8000/api/v1
//   - Log directory: ~/.local/share/recast/logs (client log: <log_dir>/recast.log)
//   - Data directory: ~/.local/share/recast (session: <data_dir>/session.db)
//   - Download directory: ~/Downloads
//   - Poll interval: 10 seconds
//   - Request timeout: 30 seconds
//   - Log level: info
//
// # TOML Format
//
//	api_url = "https://recast.example.com/api/v1"
//	log_dir = "~/.local/share/recast/logs"
//	data_dir = "~/.local/share/recast"
//	download_dir = "~/Downloads"
//	poll_seconds = 10
//	request_timeout_seconds = 30
//	log_level = "debug"
//
// Every field is optional. Tilde expansion is performed for directories.
//
// # Environment Overrides
//
//	RECAST_API_URL, RECAST_LOG_DIR, RECAST_DATA_DIR, RECAST_DOWNLOAD_DIR,
//	RECAST_POLL_SECONDS, RECAST_LOG_LEVEL
//
// # Error Handling
//
// Load returns errors for unreadable or malformed files, negative durations,
// a non-numeric RECAST_POLL_SECONDS and unknown log levels. A missing config
// file is not an error.
package config
