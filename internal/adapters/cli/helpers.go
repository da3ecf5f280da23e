package cli

import (
	"fmt"
	"net/url"
	"time"

	"github.com/andrescamacho/facsim-go/internal/infrastructure/config"
)

// loadConfig loads the system config, falling back to defaults with a warning
func loadConfig() *config.Config {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Printf("Warning: Failed to load config: %v\n", err)
		fmt.Println("Using default configuration.")
		cfg = config.LoadConfigOrDefault("")
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	return cfg
}

// resolveRunID returns the explicit run id or the last run recorded in the user config
func resolveRunID(args []string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}

	userConfigHandler, err := config.NewUserConfigHandler()
	if err != nil {
		return "", fmt.Errorf("no run specified and failed to load user config: %w", err)
	}
	userCfg, err := userConfigHandler.Load()
	if err != nil {
		return "", fmt.Errorf("no run specified and failed to load user config: %w", err)
	}
	if userCfg.LastRunID == "" {
		return "", fmt.Errorf("no run specified: pass a run id or start one with 'facsim run'")
	}
	return userCfg.LastRunID, nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// maskPassword hides the password of a connection URL
func maskPassword(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}
