package config

import "github.com/caarlos0/env/v11"

// parseEnv overlays values from environment variables onto cfg using the
// struct's env tags. Unset variables leave the current values untouched.
func parseEnv(cfg *Config) {
	if err := env.Parse(cfg); err != nil {
		panic(err)
	}
}
