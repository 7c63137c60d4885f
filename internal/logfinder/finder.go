// Package logfinder locates the local logfile that serve-log exposes and
// follow --watch-file watches.
package logfinder

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// EnvLogFile is the environment variable consulted when no path is given.
const EnvLogFile = "WINTAIL_LOGFILE"

// logPattern matches logfile names such as "logfile", "logfile-0.30" and
// "webzook-0.30.logfile".
const logPattern = "*logfile*"

// Sentinel errors.
var (
	ErrNoPath     = errors.New("no logfile path given")
	ErrNoLogFiles = errors.New("no logfiles found")
)

// Find returns the logfile to use.
//
// Priority:
//  1. explicit (if non-empty)
//  2. WINTAIL_LOGFILE environment variable
//
// A directory resolves to its most recently modified logfile. A path that
// does not exist yet is returned as is, since the game server may create it
// later. Symlinks of existing paths are resolved.
func Find(explicit string) (string, error) {
	path := explicit
	if path == "" {
		path = os.Getenv(EnvLogFile)
	}
	if path == "" {
		return "", ErrNoPath
	}

	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return path, nil
	}
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}

	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		resolved = path
	}
	if info.IsDir() {
		return FindLatestLogFile(resolved)
	}
	return resolved, nil
}

// FindLatestLogFile returns the most recently modified logfile in dir.
//
// Returns ErrNoLogFiles if the directory holds none.
func FindLatestLogFile(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, logPattern))
	if err != nil {
		return "", fmt.Errorf("globbing logfiles: %w", err)
	}

	var (
		latest   string
		latestAt time.Time
	)
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		if latest == "" || info.ModTime().After(latestAt) {
			latest, latestAt = m, info.ModTime()
		}
	}
	if latest == "" {
		return "", fmt.Errorf("%w in %s", ErrNoLogFiles, dir)
	}
	return latest, nil
}
