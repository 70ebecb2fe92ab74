package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// EnvConfigPath overrides config discovery when --config is not given.
const EnvConfigPath = "REHEARSE_CONFIG"

// candidateNames are tried in order inside the config directory.
var candidateNames = []string{"config.jsonc", "config.yaml", "config.yml"}

// ResolvePath picks the config file: --config, then $REHEARSE_CONFIG, then
// the first existing candidate under the rehearse config directory. When no
// candidate exists the config.jsonc path is returned so Load can warn.
func ResolvePath(explicit string) (string, error) {
	if strings.TrimSpace(explicit) != "" {
		return explicit, nil
	}
	if env := strings.TrimSpace(os.Getenv(EnvConfigPath)); env != "" {
		return env, nil
	}

	dir, err := configDir()
	if err != nil {
		return "", err
	}
	for _, name := range candidateNames {
		path := filepath.Join(dir, name)
		if info, statErr := os.Stat(path); statErr == nil && !info.IsDir() {
			return path, nil
		}
	}
	return filepath.Join(dir, candidateNames[0]), nil
}

func configDir() (string, error) {
	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		return filepath.Join(xdg, "rehearse"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("unable to resolve user home for config fallback")
	}
	return filepath.Join(home, ".config", "rehearse"), nil
}
