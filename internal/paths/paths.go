// Package paths resolves the directories epibac reads from and writes to,
// honouring EPIBAC_* overrides first and the XDG base directory variables
// second.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
)

const appName = "epibac"

// Paths holds the base directories: config.yaml lives in ConfigDir, the
// history database in DataDir and default reports under StateDir.
type Paths struct {
	ConfigDir string
	DataDir   string
	StateDir  string
}

// GetPaths returns all base paths respecting environment variables
func GetPaths() Paths {
	return Paths{
		ConfigDir: getDir("EPIBAC_CONFIG_HOME", "XDG_CONFIG_HOME", ".config"),
		DataDir:   getDir("EPIBAC_DATA_HOME", "XDG_DATA_HOME", ".local/share"),
		StateDir:  getDir("EPIBAC_STATE_HOME", "XDG_STATE_HOME", ".local/state"),
	}
}

func getDir(appEnv, xdgEnv, defaultBase string) string {
	if dir := os.Getenv(appEnv); dir != "" {
		return dir
	}

	if xdgBase := os.Getenv(xdgEnv); xdgBase != "" {
		return filepath.Join(xdgBase, appName)
	}

	home, _ := os.UserHomeDir()
	return filepath.Join(home, defaultBase, appName)
}

// GetConfigFile returns the default location of config.yaml
func GetConfigFile() string {
	return filepath.Join(GetPaths().ConfigDir, "config.yaml")
}

// GetHistoryPath returns the path to the validation history database
func GetHistoryPath() string {
	if path := os.Getenv("EPIBAC_HISTORY_PATH"); path != "" {
		return path
	}
	return filepath.Join(GetPaths().DataDir, "history.db")
}

// GetLogsPath returns the directory validation reports default to when no
// output directory is given.
func GetLogsPath() string {
	return filepath.Join(GetPaths().StateDir, "logs")
}

// EnsureDirectories creates the base directories, the default report
// directory and the parent of the history database.
func EnsureDirectories() error {
	p := GetPaths()
	dirs := []string{
		p.ConfigDir,
		p.DataDir,
		p.StateDir,
		GetLogsPath(),
		filepath.Dir(GetHistoryPath()),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
