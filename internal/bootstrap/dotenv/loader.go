// Package dotenv loads a .env file for local development when imported for
// side effects. Production deployments set real environment variables and
// leave this a no-op (NO_DOTENV=1 disables it outright).
package dotenv

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/joho/godotenv"
)

func init() {
	loadDotenv()
}

// loadDotenv resolves the .env file to load. Priority: ENV_FILE if set, then
// .env walking upwards from this source file to the repo root, then .env in
// the working directory. Existing environment variables win unless
// DOTENV_OVERLOAD=1.
func loadDotenv() {
	if os.Getenv("NO_DOTENV") == "1" {
		return
	}

	overload := os.Getenv("DOTENV_OVERLOAD") == "1"
	load := func(paths ...string) {
		if overload {
			_ = godotenv.Overload(paths...)
		} else {
			_ = godotenv.Load(paths...)
		}
	}

	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		load(envFile)
		return
	}

	if _, file, _, ok := runtime.Caller(0); ok {
		dir := filepath.Dir(file)
		for i := 0; i < 8; i++ {
			load(filepath.Join(dir, ".env"))
			if exists(filepath.Join(dir, "go.mod")) || exists(filepath.Join(dir, ".git")) {
				return
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
		return
	}

	load(".env")
}

func exists(p string) bool {
	if _, err := os.Stat(p); err == nil {
		return true
	}
	return false
}
