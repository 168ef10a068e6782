// Package config handles afkbot configuration.
//
// Configuration is resolved once at startup, either from a YAML file
// (with ${VAR} environment variable interpolation) or directly from
// environment variables when no file is given. Every field has a
// default, so the binary runs with zero configuration.
package config
