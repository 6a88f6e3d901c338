package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/dkoosis/elapsed/internal/logging"
	"github.com/dkoosis/elapsed/pkg/durfmt"
)

// Config is the validated configuration of a run.
type Config struct {
	Command string
	Args    []string

	Total       bool
	TTY         bool
	SplitStderr bool
	Format      string
	LogFile     string
	LogLevel    string

	// ConfigFile is the file the settings were read from, if any.
	ConfigFile string
	// Origins records where each setting came from, keyed by its file key.
	Origins map[string]Origin

	format *durfmt.Format
}

// CliFlags holds the values of command-line flags.
type CliFlags struct {
	Total       bool
	TTY         bool
	SplitStderr bool
	Format      string
	ConfigPath  string
	LogFile     string
	LogLevel    string

	// Flags to track if they were explicitly set by the user
	TotalSet       bool
	TTYSet         bool
	SplitStderrSet bool
	FormatSet      bool
	LogFileSet     bool
	LogLevelSet    bool
}

// File is the content of a YAML config file. Absent keys are nil.
type File struct {
	Total       *bool   `yaml:"total"`
	TTY         *bool   `yaml:"tty"`
	SplitStderr *bool   `yaml:"split_stderr"`
	Format      *string `yaml:"format"`
	LogFile     *string `yaml:"log_file"`
	LogLevel    *string `yaml:"log_level"`
}

// File names searched for when no config path is given.
const (
	LocalFileName = ".elapsed.yaml"
	UserFileName  = "config.yaml"
	AppDirName    = "elapsed"
)

// UsageError reports an invalid invocation: bad flags, a missing command or
// an unusable configuration.
type UsageError struct {
	Msg string
	Err error
}

func (e *UsageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *UsageError) Unwrap() error { return e.Err }

// Usagef returns a *UsageError with a formatted message.
func Usagef(format string, args ...any) error {
	return &UsageError{Msg: fmt.Sprintf(format, args...)}
}

// Defaults returns the configuration used when nothing else is set.
func Defaults() *Config {
	return &Config{
		Format:   durfmt.Default,
		LogLevel: logging.DefaultLevel,
		Origins: map[string]Origin{
			KeyTotal:       OriginDefault,
			KeyTTY:         OriginDefault,
			KeySplitStderr: OriginDefault,
			KeyFormat:      OriginDefault,
			KeyLogFile:     OriginDefault,
			KeyLogLevel:    OriginDefault,
		},
	}
}

// LoadFile reads and decodes a config file. Unknown keys are an error.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &UsageError{Msg: "reading config file", Err: err}
	}
	return ParseFile(data, path)
}

// ParseFile decodes config file content; name is used in error messages.
func ParseFile(data []byte, name string) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, &UsageError{Msg: fmt.Sprintf("invalid config file %s", name), Err: err}
	}
	return &f, nil
}

// Validate checks the configuration for consistency. ptySupported reports
// whether the platform can run a command on a pseudo-terminal.
func (c *Config) Validate(ptySupported bool) error {
	if c.Command == "" {
		return Usagef("missing command")
	}
	if !ptySupported && c.TTY {
		return Usagef("--tty is not supported on this platform")
	}
	if !ptySupported && c.SplitStderr {
		return Usagef("--split-stderr is not supported on this platform")
	}
	if c.SplitStderr && !c.TTY {
		return Usagef("--split-stderr requires --tty")
	}

	f, err := durfmt.Parse(c.Format)
	if err != nil {
		return &UsageError{Msg: fmt.Sprintf("invalid format %q", c.Format), Err: err}
	}
	c.format = f

	if c.LogFile != "" {
		if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
			return &UsageError{Msg: "invalid log level", Err: err}
		}
	}
	return nil
}

// TimerFormat returns the parsed timer format. It is only set once Validate
// has succeeded; before that the default format is returned.
func (c *Config) TimerFormat() *durfmt.Format {
	if c.format == nil {
		return durfmt.MustParse(durfmt.Default)
	}
	return c.format
}

// getConfigPath finds the config file to use when none was given: the local
// .elapsed.yaml first, then the user config directory.
func getConfigPath(getenv func(string) string) string {
	if _, err := os.Stat(LocalFileName); err == nil {
		return LocalFileName
	}

	configHome := getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home := getenv("HOME")
		if home == "" {
			var err error
			if home, err = os.UserHomeDir(); err != nil {
				return ""
			}
		}
		configHome = filepath.Join(home, ".config")
	}
	userPath := filepath.Join(configHome, AppDirName, UserFileName)
	if _, err := os.Stat(userPath); err == nil {
		return userPath
	}
	return ""
}
