package config

import "path/filepath"

const (
	// Global layout under DOCBT_HOME.
	ConfigFilePath  = "config.toml"
	LogsDirPath     = "logs"
	HistoryFilePath = "chat_history"
)

func homeConfigPath(home string) string {
	return filepath.Join(home, ConfigFilePath)
}

func defaultHomePath(home string) string {
	return filepath.Join(home, ".docbt")
}

func (c *Config) ConfigPath() string {
	return homeConfigPath(c.HomeDir)
}

func (c *Config) LogsDir() string {
	return filepath.Join(c.HomeDir, LogsDirPath)
}

// HistoryPath is where the interactive chat stores readline history.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.HomeDir, HistoryFilePath)
}
