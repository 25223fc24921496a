// Package config provides the configuration of a harvest run.
//
// It defines the validated run configuration, its defaults, the optional
// YAML configuration file with per-site request settings, and the loader
// for categories and seeds files.
package config
