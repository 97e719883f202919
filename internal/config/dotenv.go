package config

import (
	"os"

	"github.com/joho/godotenv"
)

// dotEnvCandidates 우선순위 순 .env 후보.
// .env.<env>.local > .env.local > .env.<env> > .env; "local" collapses to
// .env.local and .env.
func dotEnvCandidates(env string) []string {
	if env == "" || env == "local" {
		return []string{".env.local", ".env"}
	}
	return []string{".env." + env + ".local", ".env.local", ".env." + env, ".env"}
}

// LoadDotEnv loads the existing candidates for env, highest priority first.
// godotenv never overwrites variables that are already set, so the OS
// environment wins over every file. Returns the files loaded.
func LoadDotEnv(env string) []string {
	var loaded []string
	for _, f := range dotEnvCandidates(env) {
		if _, err := os.Stat(f); err == nil {
			loaded = append(loaded, f)
		}
	}
	if len(loaded) > 0 {
		_ = godotenv.Load(loaded...)
	}
	return loaded
}
