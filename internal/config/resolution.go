package config

import (
	"strconv"
)

// Origin names the source a setting was resolved from.
type Origin string

// Origins, highest priority first.
const (
	OriginFlag    Origin = "flag"
	OriginEnv     Origin = "env"
	OriginFile    Origin = "file"
	OriginDefault Origin = "default"
)

// Setting keys, as spelled in the config file.
const (
	KeyTotal       = "total"
	KeyTTY         = "tty"
	KeySplitStderr = "split_stderr"
	KeyFormat      = "format"
	KeyLogFile     = "log_file"
	KeyLogLevel    = "log_level"
)

// Environment variables recognised by Resolve.
const (
	EnvTotal    = "ELAPSED_TOTAL"
	EnvFormat   = "ELAPSED_FORMAT"
	EnvLogFile  = "ELAPSED_LOG_FILE"
	EnvLogLevel = "ELAPSED_LOG_LEVEL"
)

// Resolve builds the run configuration from every source and validates it.
// args is the command followed by its arguments; getenv is usually os.Getenv.
//
// Priority Order (highest to lowest):
//  1. CLI flags
//  2. Environment variables (ELAPSED_TOTAL, ELAPSED_FORMAT, ELAPSED_LOG_FILE, ELAPSED_LOG_LEVEL)
//  3. Config file (--config, else .elapsed.yaml, else $XDG_CONFIG_HOME/elapsed/config.yaml)
//  4. Defaults
func Resolve(flags CliFlags, args []string, getenv func(string) string, ptySupported bool) (*Config, error) {
	cfg := Defaults()

	path := flags.ConfigPath
	if path == "" {
		path = getConfigPath(getenv)
	}
	if path != "" {
		file, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		cfg.ConfigFile = path
		cfg.applyFile(file)
	}

	cfg.applyEnv(getenv)
	cfg.applyFlags(flags)

	if len(args) > 0 {
		cfg.Command = args[0]
		cfg.Args = args[1:]
	}
	if err := cfg.Validate(ptySupported); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyFile(f *File) {
	if f.Total != nil {
		c.Total = *f.Total
		c.Origins[KeyTotal] = OriginFile
	}
	if f.TTY != nil {
		c.TTY = *f.TTY
		c.Origins[KeyTTY] = OriginFile
	}
	if f.SplitStderr != nil {
		c.SplitStderr = *f.SplitStderr
		c.Origins[KeySplitStderr] = OriginFile
	}
	if f.Format != nil {
		c.Format = *f.Format
		c.Origins[KeyFormat] = OriginFile
	}
	if f.LogFile != nil {
		c.LogFile = *f.LogFile
		c.Origins[KeyLogFile] = OriginFile
	}
	if f.LogLevel != nil {
		c.LogLevel = *f.LogLevel
		c.Origins[KeyLogLevel] = OriginFile
	}
}

// applyEnv overrides settings from the environment. Booleans that do not
// parse are ignored.
func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv(EnvTotal); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Total = b
			c.Origins[KeyTotal] = OriginEnv
		}
	}
	if v := getenv(EnvFormat); v != "" {
		c.Format = v
		c.Origins[KeyFormat] = OriginEnv
	}
	if v := getenv(EnvLogFile); v != "" {
		c.LogFile = v
		c.Origins[KeyLogFile] = OriginEnv
	}
	if v := getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
		c.Origins[KeyLogLevel] = OriginEnv
	}
}

func (c *Config) applyFlags(flags CliFlags) {
	if flags.TotalSet {
		c.Total = flags.Total
		c.Origins[KeyTotal] = OriginFlag
	}
	if flags.TTYSet {
		c.TTY = flags.TTY
		c.Origins[KeyTTY] = OriginFlag
	}
	if flags.SplitStderrSet {
		c.SplitStderr = flags.SplitStderr
		c.Origins[KeySplitStderr] = OriginFlag
	}
	if flags.FormatSet {
		c.Format = flags.Format
		c.Origins[KeyFormat] = OriginFlag
	}
	if flags.LogFileSet {
		c.LogFile = flags.LogFile
		c.Origins[KeyLogFile] = OriginFlag
	}
	if flags.LogLevelSet {
		c.LogLevel = flags.LogLevel
		c.Origins[KeyLogLevel] = OriginFlag
	}
}
