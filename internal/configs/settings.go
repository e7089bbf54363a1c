package configs

import (
	"log"
	"os"
	"path/filepath"
)

const (
	// ProjectConfigName is looked up from the working directory upwards.
	ProjectConfigName = "sfcpay.toml"

	appName = "sfcpay"
)

type Settings struct {
	ConfigDir  string
	ConfigPath string
	DataDir    string
	AuditPath  string
}

var SfcpaySettings *Settings

func init() {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Fatalf("error getting home directory: %s", err)
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		log.Fatalf("error getting config directory: %s", err)
	}

	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	SfcpaySettings = NewSettings(filepath.Join(configDir, appName), filepath.Join(dataDir, appName))
}

// NewSettings derives file locations from a config and a data directory.
func NewSettings(configDir, dataDir string) *Settings {
	return &Settings{
		ConfigDir:  configDir,
		ConfigPath: filepath.Join(configDir, "config.toml"),
		DataDir:    dataDir,
		AuditPath:  filepath.Join(dataDir, "audit.jsonl"),
	}
}
