// Package config holds fetcher's tunables.
//
// Values come from, in increasing precedence:
//   - built-in defaults (Default)
//   - a YAML file (LoadFromFile)
//   - FETCHER_ environment variables (LoadFromEnv)
//   - command-line flags
//
// Durations in YAML are Go duration strings such as "45s" or "200ms".
package config
