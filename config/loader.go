package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

const (
	// ProjectConfigFile is the name of the project-level config file
	ProjectConfigFile = "semfetch.yaml"
	// UserConfigDir is the directory for user-level config
	UserConfigDir = ".config/semfetch"
	// UserConfigFile is the name of the user-level config file
	UserConfigFile = "config.yaml"
)

// Loader handles configuration loading with layered precedence
type Loader struct {
	logger *slog.Logger
	home   string
	cwd    string
}

// NewLoader creates a new configuration loader
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	home, _ := os.UserHomeDir()
	cwd, _ := os.Getwd()
	return &Loader{logger: logger, home: home, cwd: cwd}
}

// Load loads configuration with layered precedence. Each file is applied
// over the result of the layers before it:
// 1. Default config
// 2. User config (~/.config/semfetch/config.yaml)
// 3. Project config (semfetch.yaml in current or parent directories)
// 4. Explicit path (--config), which must exist
func (l *Loader) Load(explicitPath string) (*Config, error) {
	// Start with defaults
	config := DefaultConfig()

	// Load user config
	if userConfigPath := l.userConfigPath(); userConfigPath != "" {
		if err := config.ApplyFile(userConfigPath); err == nil {
			l.logger.Debug("Loaded user config", slog.String("path", userConfigPath))
		} else if !errors.Is(err, fs.ErrNotExist) {
			l.logger.Warn("Failed to load user config", slog.String("path", userConfigPath), slog.String("error", err.Error()))
		}
	}

	// Load project config
	projectConfigPath := l.findProjectConfig()
	if projectConfigPath != "" {
		if err := config.ApplyFile(projectConfigPath); err == nil {
			l.logger.Debug("Loaded project config", slog.String("path", projectConfigPath))
		} else {
			l.logger.Warn("Failed to load project config", slog.String("path", projectConfigPath), slog.String("error", err.Error()))
		}
	} else {
		l.logger.Debug("No project config found")
	}

	// Explicit config is not optional
	if explicitPath != "" {
		if err := config.ApplyFile(explicitPath); err != nil {
			return nil, err
		}
		l.logger.Debug("Loaded explicit config", slog.String("path", explicitPath))
	}

	// Validate final config
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Files returns the config files that Load would read, in precedence order.
// Only files that currently exist are included.
func (l *Loader) Files(explicitPath string) []string {
	var files []string
	if p := l.userConfigPath(); p != "" {
		if _, err := os.Stat(p); err == nil {
			files = append(files, p)
		}
	}
	if p := l.findProjectConfig(); p != "" {
		files = append(files, p)
	}
	if explicitPath != "" {
		files = append(files, explicitPath)
	}
	return files
}

// EnsureUserConfig creates the user config file with defaults if it doesn't exist.
// It returns the path of the user config file.
func (l *Loader) EnsureUserConfig() (string, error) {
	userConfigPath := l.userConfigPath()
	if userConfigPath == "" {
		return "", os.ErrNotExist
	}

	// Check if it already exists
	if _, err := os.Stat(userConfigPath); err == nil {
		return userConfigPath, nil // Already exists
	}

	// Create default config
	config := DefaultConfig()
	if err := config.SaveToFile(userConfigPath); err != nil {
		return "", err
	}

	l.logger.Info("Created default user config", slog.String("path", userConfigPath))
	return userConfigPath, nil
}

// userConfigPath returns the path to the user config file
func (l *Loader) userConfigPath() string {
	if l.home == "" {
		return ""
	}
	return filepath.Join(l.home, UserConfigDir, UserConfigFile)
}

// findProjectConfig searches for semfetch.yaml in current and parent directories
func (l *Loader) findProjectConfig() string {
	if l.cwd == "" {
		return ""
	}

	dir := l.cwd
	for {
		configPath := filepath.Join(dir, ProjectConfigFile)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		// Move to parent directory
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			break
		}
		dir = parent
	}

	return ""
}
