package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const envPrefix = "JOBGLOB_"

// LoadDotEnv loads .env files into the process environment. Missing files are
// ignored; variables already set win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// DataDir is JOBGLOB_DATA_DIR or ".".
func DataDir() string {
	if d := strings.TrimSpace(os.Getenv(envPrefix + "DATA_DIR")); d != "" {
		return d
	}
	return "."
}

// OverlayEnv applies JOBGLOB_* variables on top of cfg.
func OverlayEnv(cfg *Config) error {
	if v, ok := lookup("DATA_DIR"); ok {
		cfg.App.DataDir = v
	}
	if v, ok := lookup("PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sPORT: %w", envPrefix, err)
		}
		cfg.App.Port = port
	}
	if v, ok := lookup("DEBUG"); ok {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sDEBUG: %w", envPrefix, err)
		}
		cfg.App.Debug = debug
	}
	if v, ok := lookup("VENDORS_PATH"); ok {
		cfg.VendorsPath = v
	}
	return nil
}

func lookup(name string) (string, bool) {
	v, ok := os.LookupEnv(envPrefix + name)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}
