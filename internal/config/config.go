// Package config reads the backend's persisted state file: a line-oriented
// list of device ports or USB IDs, one per line, with "#"-prefixed
// comments, plus the process-wide "noprecal"/"norealcal" switches.
package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Config is the parsed persisted-state file.
type Config struct {
	// Ports lists device ports or USB IDs to probe at discovery time, in
	// file order.
	Ports []string

	// NoPrecal disables the "clever precalibration" skip optimisation
	// process-wide when the file contains a bare "noprecal" line.
	NoPrecal bool

	// NoRealCal disables on-scanner calibration entirely process-wide
	// when the file contains a bare "norealcal" line.
	NoRealCal bool
}

// Load reads and parses path. A missing file is not an error: backends
// commonly run with no persisted config and fall back to live discovery.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	cfg := &Config{}
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		switch strings.ToLower(text) {
		case "noprecal":
			cfg.NoPrecal = true
			continue
		case "norealcal":
			cfg.NoRealCal = true
			continue
		}

		cfg.Ports = append(cfg.Ports, text)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: read %s (line %d): %w", path, line, err)
	}
	return cfg, nil
}
