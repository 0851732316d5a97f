// Package config assembles runtime settings for the StealthDetect CLI and
// daemon. Values are layered: built-in defaults, then an optional JSON or
// YAML file named by -c/-config, then command-line flags.
package config
