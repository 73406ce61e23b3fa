package securefile

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/quantumauth-io/prediction-market-client/internal/constants"
)

// ConfigDir is ~/.config/prediction-market, plus a local/ or develop/ subfolder selected by PM_ENV.
func ConfigDir() (string, error) {
	env, err := envFolder()
	if err != nil {
		return "", err
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "home dir")
	}
	return filepath.Join(home, ".config", constants.AppName, env), nil
}

// ConfigPath places filename in ConfigDir.
func ConfigPath(filename string) (string, error) {
	if strings.TrimSpace(filename) == "" {
		return "", errors.New("filename must not be empty")
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, filename), nil
}

func envFolder() (string, error) {
	switch raw := strings.ToLower(strings.TrimSpace(os.Getenv(constants.EnvVar))); raw {
	case "", "prod", "production":
		return "", nil
	case "local":
		return "local", nil
	case "dev", "develop", "development":
		return "develop", nil
	default:
		return "", errors.Newf("invalid %s %q (allowed: local, develop, production)", constants.EnvVar, raw)
	}
}
