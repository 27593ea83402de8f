// ABOUTME: Loads TICKERTAPE_* and other variables from .env files without clobbering the environment.
// ABOUTME: Supports KEY=VALUE, quoted values, comments, and an optional export prefix.
package config

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// LoadDotEnv sets variables from path that are not already set. A missing
// file is ignored. It returns the keys it set.
func LoadDotEnv(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var set []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		// Blank lines and # comments carry nothing.
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		// Shell-style files often prefix assignments with export.
		line = strings.TrimPrefix(line, "export ")

		// Cut at the first '=' so tokens and URLs may contain '='.
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" {
			continue
		}
		// A single pair of matching quotes is stripped; anything else is literal.
		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') ||
				(value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}

		// The real environment always wins over a file.
		if _, exists := os.LookupEnv(key); !exists {
			if err := os.Setenv(key, value); err == nil {
				set = append(set, key)
			}
		}
	}
	return set
}

// LoadDotEnvAuto loads .env files without clobbering the environment.
// Search order:
//  1. .env in the working directory and each parent up to the root
//  2. .env next to the tickertape executable
//
// Earlier files win.
func LoadDotEnvAuto() {
	seen := map[string]bool{}
	load := func(p string) {
		if p == "" || seen[p] {
			return
		}
		seen[p] = true
		LoadDotEnv(p)
	}

	if wd, err := os.Getwd(); err == nil {
		dir := wd
		for {
			load(filepath.Join(dir, ".env"))
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	if exe, err := os.Executable(); err == nil {
		load(filepath.Join(filepath.Dir(exe), ".env"))
	}
}
