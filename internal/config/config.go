package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	App struct {
		Port string
	}
	QA struct {
		// CustomChecks are vendor-defined checklist labels applied to
		// every order item, after the fixed checks.
		CustomChecks []string
	}
}

func Load(path string) (*Config, error) {
	if path != "" {
		err := godotenv.Load(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	cfg := &Config{}
	cfg.App.Port = os.Getenv("APP_PORT")
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}

	if raw := os.Getenv("QA_CUSTOM_CHECKS"); raw != "" {
		for _, check := range strings.Split(raw, ",") {
			check = strings.TrimSpace(check)
			if check != "" {
				cfg.QA.CustomChecks = append(cfg.QA.CustomChecks, check)
			}
		}
	}

	return cfg, nil
}
