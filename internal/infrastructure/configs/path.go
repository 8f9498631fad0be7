package configs

import (
	"flag"
	"os"

	"spinroom/internal/infrastructure/env"
)

// DetermineConfigPath resolves the config file: --config flag, then the
// SPINROOM_CONFIG env var, then well-known locations. An empty result
// means "defaults only", which is a fully working setup.
func DetermineConfigPath() string {
	var configPath string

	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	if configPath == "" {
		configPath = env.GetString("SPINROOM_CONFIG", "")
	}

	if configPath == "" {
		candidates := []string{
			"./config.yaml",
			"./config.yml",
			"/etc/spinroom/config.yaml",
			"/app/config.yaml", // common in Docker
		}

		for _, p := range candidates {
			if _, err := os.Stat(p); err == nil {
				configPath = p
				break
			}
		}
	}

	return configPath
}
