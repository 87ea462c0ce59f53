package settings

import (
	"fmt"
	"os"
	"sync"

	"github.com/pelletier/go-toml"
)

type Arguments struct {
	// The file path to the datafiles
	DataDir string
	LogDir  string

	ConfigFile string

	// the host name or IP address to listen on
	Host string

	// the port number to listen on
	Port int

	// Strongly verbose logging
	Verbose bool
	Debug   bool

	PrintToScreen bool

	AuthEnabled bool // Enable authentication
	UsersFile   string
	UsersKey    string

	// Created at startup when missing from the user store
	AdminUser     string
	AdminPassword string

	// Reject record values containing script tags in newly created collections
	NoScriptTags bool

	// Write every mutation to a daily journal file under JournalDir
	JournalEnabled bool
	JournalDir     string
}

var (
	instance *Arguments
	once     sync.Once
)

// GetSettings returns the process-wide settings instance.
func GetSettings() *Arguments {
	once.Do(func() {
		instance = Defaults()
	})
	return instance
}

// Defaults returns the settings used when neither flags nor a config file say otherwise.
func Defaults() *Arguments {
	return &Arguments{
		DataDir:       "./datafiles",
		LogDir:        "./log_files",
		Host:          "127.0.0.1",
		Port:          1776,
		Verbose:       true,
		PrintToScreen: true,
		NoScriptTags:  true,
		JournalDir:    "./journal",
	}
}

// LoadConfigFile overlays the values found in a TOML config file onto args.
// Keys missing from the file leave the current values untouched.
func LoadConfigFile(path string, args *Arguments) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("could not read config file: %w", err)
	}

	tree, err := toml.LoadBytes(data)
	if err != nil {
		return fmt.Errorf("could not parse config file %s: %w", path, err)
	}

	stringKeys := map[string]*string{
		"datadir":    &args.DataDir,
		"logdir":     &args.LogDir,
		"host":       &args.Host,
		"usersfile":  &args.UsersFile,
		"userskey":   &args.UsersKey,
		"journaldir": &args.JournalDir,
	}
	boolKeys := map[string]*bool{
		"verbose":      &args.Verbose,
		"debug":        &args.Debug,
		"print":        &args.PrintToScreen,
		"auth":         &args.AuthEnabled,
		"noscripttags": &args.NoScriptTags,
		"journal":      &args.JournalEnabled,
	}

	for key, dst := range stringKeys {
		if !tree.Has(key) {
			continue
		}
		v, ok := tree.Get(key).(string)
		if !ok {
			return fmt.Errorf("config key %q must be a string", key)
		}
		*dst = v
	}
	for key, dst := range boolKeys {
		if !tree.Has(key) {
			continue
		}
		v, ok := tree.Get(key).(bool)
		if !ok {
			return fmt.Errorf("config key %q must be a boolean", key)
		}
		*dst = v
	}
	if tree.Has("port") {
		v, ok := tree.Get("port").(int64)
		if !ok {
			return fmt.Errorf("config key %q must be an integer", "port")
		}
		args.Port = int(v)
	}

	return nil
}
