package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	lerrors "git.home.luguber.info/inful/lamd/internal/errors"
	"git.home.luguber.info/inful/lamd/internal/logfields"
)

// EnvFiles are loaded from the working directory. Earlier files win because
// variables that are already set are never overwritten.
var EnvFiles = []string{".env.local", ".env"}

// LoadEnv loads the env files present in dir and returns the ones it read.
func LoadEnv(dir string) ([]string, error) {
	var loaded []string
	for _, name := range EnvFiles {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return loaded, lerrors.ConfigInvalid(p, err)
		}
		if err := godotenv.Load(p); err != nil {
			return loaded, lerrors.ConfigInvalid(p, err)
		}
		slog.Debug("Loaded environment file", logfields.File(p))
		loaded = append(loaded, p)
	}
	return loaded, nil
}
