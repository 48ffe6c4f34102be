package main

import (
	"os"
	"path/filepath"
)

// sketchrunHome returns the path to the sketchrun home directory (~/.sketchrun).
func sketchrunHome() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".sketchrun"), nil
}

func defaultLogPath() string {
	dir, err := sketchrunHome()
	if err != nil {
		return filepath.Join(os.TempDir(), "sketchrun.log")
	}
	return filepath.Join(dir, "sketchrun.log")
}
