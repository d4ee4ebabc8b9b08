package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"

	"github.com/keyweave/inputcore/internal/logger"
	"github.com/keyweave/inputcore/internal/utils"
)

var log = logger.New("config")

const appName = "inputcore"

// ConfigDir resolves the directory holding config.toml: XDG_CONFIG_HOME
// first (spec's ambient stack, §AMBIENT STACK), falling back to the
// teacher's executable-relative scheme if XDG can't be resolved (e.g. no
// $HOME in a minimal container).
func ConfigDir() (string, error) {
	dir, err := xdg.ConfigFile(appName)
	if err == nil {
		return dir, nil
	}
	log.Warnf("xdg config resolution failed: %v, falling back", err)
	execDir, execErr := utils.GetExecutableDir()
	if execErr != nil {
		return "", execErr
	}
	return filepath.Join(execDir, appName), nil
}

// DataDir resolves the directory holding bundled data: UserDB file,
// compose overlay, emoji index, dictionaries.
func DataDir() (string, error) {
	dir, err := xdg.DataFile(appName)
	if err == nil {
		return dir, nil
	}
	log.Warnf("xdg data resolution failed: %v, falling back", err)
	execDir, execErr := utils.GetExecutableDir()
	if execErr != nil {
		return "", execErr
	}
	return filepath.Join(execDir, appName), nil
}

// DefaultPath returns the default config.toml path.
func DefaultPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// LoadWithPriority loads config with the priority chain: custom path,
// default XDG path, built-in defaults — mirroring the teacher's
// LoadConfigWithPriority but generalized to this engine's schema.
func LoadWithPriority(customPath string) (*Config, string, error) {
	if customPath != "" {
		if utils.FileExists(customPath) {
			cfg, err := Load(customPath)
			if err == nil {
				log.Debugf("loaded config from custom path: %s", customPath)
				return cfg, customPath, nil
			}
			log.Warnf("failed to load custom config %s: %v, trying default path", customPath, err)
		} else {
			log.Warnf("custom config not found at %s, trying default path", customPath)
		}
	}

	defaultPath, err := DefaultPath()
	if err != nil {
		log.Warnf("failed to resolve default config path: %v, using built-in defaults", err)
		return Default(), "", nil
	}

	cfg, err := Init(defaultPath)
	if err != nil {
		log.Warnf("failed to load/create config at %s: %v, using built-in defaults", defaultPath, err)
		return Default(), "", nil
	}
	return cfg, defaultPath, nil
}

// Init loads a config from path, creating it with defaults if missing.
func Init(path string) (*Config, error) {
	dir := filepath.Dir(path)
	if err := utils.EnsureDir(dir); err != nil {
		log.Warnf("failed to create config dir %s: %v, using defaults", dir, err)
		return Default(), nil
	}
	if !utils.FileExists(path) {
		cfg := Default()
		if err := Save(cfg, path); err != nil {
			log.Warnf("failed to write default config at %s: %v, using defaults", path, err)
		}
		return cfg, nil
	}
	return Load(path)
}

// Load parses a TOML file into a Config, falling back to partial
// recovery (spec §7 MalformedInput: "offending entry skipped; rest
// loaded") when the file doesn't fully decode.
func Load(path string) (*Config, error) {
	cfg := Default()
	if err := utils.LoadTOMLFile(path, cfg); err != nil {
		return partialLoad(path)
	}
	cfg.version = 1
	return cfg, nil
}

// partialLoad recovers whatever sections of a malformed TOML file parse
// cleanly, applying Schema validation key by key and skipping the rest.
func partialLoad(path string) (*Config, error) {
	cfg := Default()
	raw, err := utils.ParseTOMLWithRecovery(path)
	if err != nil {
		return cfg, nil
	}
	applyRaw(cfg, raw)
	cfg.version = 1
	return cfg, nil
}

// Save writes cfg to path in TOML.
func Save(cfg *Config, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return toml.NewEncoder(file).Encode(cfg)
}
