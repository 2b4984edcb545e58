// Package config provides configuration loading and validation for the
// speech translation service. It handles YAML-based configuration with
// per-section struct validation.
package config
