// Package config provides server configuration for MeshBBS.
//
// This package defines the server configuration structure and validation:
//
//   - spec.go: ServerConfig struct definition
//   - default.go: Default configuration values
//   - verify.go: Business validation
//   - sanitize.go: Log sanitization (hide sensitive values)
//   - load.go: Defaults, then YAML file, then MESHBBS_ variables, then Verify
package config
