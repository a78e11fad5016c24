// Package config loads server settings from config.yaml, an optional .env
// file and QBANK_-prefixed environment variables, then validates them with
// struct tags. Durations are stored as whole minutes or hours and exposed
// through helper methods.
package config
