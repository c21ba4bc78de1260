// Package config provides the configuration structure for mediatrack:
// collaborator endpoints (vote store, classifier), the local vote fallback,
// the control-protocol listener and image payload settings.
//
// Values come from NewConfig defaults, then an optional YAML file
// (.mediatrack), then command-line flags.
package config
