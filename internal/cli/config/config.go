package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/stackvity/utf-cast/pkg/converter"
	"github.com/stackvity/utf-cast/pkg/converter/encoding"
	"github.com/stackvity/utf-cast/pkg/util"
)

const (
	EnvPrefix         = "UTFCAST"
	DefaultConfigName = "utf-cast"
)

// Settings is the fully resolved CLI configuration.
type Settings struct {
	converter.RunOptions `mapstructure:",squash"`

	OutputFormat converter.OutputFormat `mapstructure:"outputFormat"`
	TuiEnabled   bool                   `mapstructure:"tuiEnabled"`
	Verbose      bool                   `mapstructure:"verbose"`

	ConfigFilePath string `mapstructure:"-"`
	ProfileName    string `mapstructure:"-"`
	AppVersion     string `mapstructure:"-"`
}

// stderrIsTerminal is replaced in tests.
var stderrIsTerminal = func() bool { return term.IsTerminal(int(os.Stderr.Fd())) }

// flagKeys maps viper keys to the CLI flags that override them.
var flagKeys = map[string]string{
	"directory":       "directory",
	"pattern":         "pattern",
	"recursive":       "recursive",
	"writeBom":        "write-bom",
	"detectOnly":      "detect-only",
	"exclude":         "exclude",
	"targetEncoding":  "target-encoding",
	"defaultEncoding": "default-encoding",
	"atomicWrite":     "atomic-write",
	"outputFormat":    "output-format",
	"verbose":         "verbose",
}

// LoadAndValidate merges defaults, the config file, the selected profile,
// UTFCAST_* environment variables and flags (in increasing precedence),
// validates the result and builds the logger. Validation failures wrap
// converter.ErrConfigValidation.
func LoadAndValidate(cfgFile, profileName, appVersion string, verbose bool, flags *pflag.FlagSet) (Settings, *slog.Logger, error) {
	var s Settings
	v := viper.New()

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	tempLogger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", DefaultConfigName))
			v.AddConfigPath(filepath.Join(home, "."+DefaultConfigName))
		} else {
			tempLogger.Debug("No home directory, searching current directory only", slog.String("error", err.Error()))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) && cfgFile == "" {
			tempLogger.Debug("No configuration file found, using defaults/env/flags")
		} else {
			used := cfgFile
			if used == "" {
				used = fmt.Sprintf("searched locations for %s.yaml", DefaultConfigName)
			}
			tempLogger.Error("Error reading configuration file", slog.String("path", used), slog.Any("error", err))
			return s, tempLogger, fmt.Errorf("error reading config file '%s': %w", used, err)
		}
	} else {
		s.ConfigFilePath = v.ConfigFileUsed()
		tempLogger.Debug("Using configuration file", slog.String("path", s.ConfigFilePath))
	}

	s.ProfileName = profileName
	if profileName != "" {
		profileKey := "profiles." + profileName
		profile := v.Sub(profileKey)
		if profile == nil {
			configPath := v.ConfigFileUsed()
			if configPath == "" {
				configPath = "(no config file found)"
			}
			err := fmt.Errorf("profile '%s' not found in config file '%s'", profileName, configPath)
			tempLogger.Error(err.Error())
			return s, tempLogger, err
		}
		if err := v.MergeConfigMap(profile.AllSettings()); err != nil {
			tempLogger.Error("Error merging profile", slog.String("profile", profileName), slog.Any("error", err))
			return s, tempLogger, fmt.Errorf("error merging profile '%s': %w", profileName, err)
		}
		tempLogger.Debug("Applied configuration profile", slog.String("profile", profileName))
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	for key, flagName := range flagKeys {
		flag := flags.Lookup(flagName)
		if flag == nil {
			tempLogger.Debug("Flag lookup failed during binding", slog.String("flag", flagName))
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			tempLogger.Error("Error binding flag", slog.String("flag", flagName), slog.Any("error", err))
			return s, tempLogger, fmt.Errorf("error binding flag '--%s': %w", flagName, err)
		}
	}

	s.AppVersion = appVersion
	if err := v.Unmarshal(&s); err != nil {
		tempLogger.Error("Error unmarshalling configuration", slog.Any("error", err))
		return s, tempLogger, fmt.Errorf("error unmarshalling configuration: %w", err)
	}

	if flags.Changed("verbose") {
		s.Verbose, _ = flags.GetBool("verbose")
	}
	if verbose {
		s.Verbose = true
	}
	if flags.Changed("no-tui") {
		if noTui, _ := flags.GetBool("no-tui"); noTui {
			s.TuiEnabled = false
		}
	}
	if s.Verbose {
		s.TuiEnabled = false
	}
	if s.TuiEnabled && !stderrIsTerminal() {
		tempLogger.Debug("Stderr is not a terminal, disabling TUI")
		s.TuiEnabled = false
	}

	logger := newLogger(s)
	s.Logger = logger.Handler()

	if err := validateAndDerive(&s, logger); err != nil {
		return s, logger, err
	}

	logger.Debug("Configuration loading and validation complete",
		slog.String("configFile", s.ConfigFilePath),
		slog.String("profile", s.ProfileName),
		slog.String("directory", s.Directory),
		slog.String("pattern", s.FilePattern),
		slog.Bool("recursive", s.Recursive),
		slog.Bool("writeBom", s.WriteBOM),
		slog.Bool("detectOnly", s.DetectOnly),
		slog.String("targetEncoding", s.TargetEncoding),
		slog.Bool("tuiEnabled", s.TuiEnabled))
	return s, logger, nil
}

// newLogger writes to stderr, at Debug under verbose. While the TUI owns the
// terminal log output is discarded.
func newLogger(s Settings) *slog.Logger {
	if s.TuiEnabled {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	level := slog.LevelInfo
	if s.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("directory", "")
	v.SetDefault("pattern", converter.DefaultFilePattern)
	v.SetDefault("recursive", converter.DefaultRecursive)
	v.SetDefault("writeBom", converter.DefaultWriteBOM)
	v.SetDefault("detectOnly", converter.DefaultDetectOnly)
	v.SetDefault("exclude", []string{})
	v.SetDefault("targetEncoding", converter.DefaultTargetEncoding)
	v.SetDefault("defaultEncoding", converter.DefaultDefaultEncoding)
	v.SetDefault("atomicWrite", converter.DefaultAtomicWrite)
	v.SetDefault("outputFormat", string(converter.DefaultOutputFormat))
	v.SetDefault("tuiEnabled", converter.DefaultTuiEnabled)
	v.SetDefault("verbose", converter.DefaultVerbose)
}

// isValidEnumValue checks if a given string value is present in a slice of allowed enum values.
func isValidEnumValue[T ~string](value T, allowedValues []T) bool {
	return slices.Contains(allowedValues, value)
}

func validateAndDerive(s *Settings, logger *slog.Logger) error {
	if strings.TrimSpace(s.Directory) == "" {
		err := fmt.Errorf("%w: directory is required (argument or --directory)", converter.ErrConfigValidation)
		logger.Error(err.Error(), slog.String("key", "directory"))
		return err
	}
	absDir, err := filepath.Abs(s.Directory)
	if err != nil {
		err = fmt.Errorf("%w: cannot resolve absolute directory '%s': %w", converter.ErrConfigValidation, s.Directory, err)
		logger.Error(err.Error(), slog.String("key", "directory"))
		return err
	}
	s.Directory = absDir
	info, err := os.Stat(s.Directory)
	if err != nil {
		if os.IsNotExist(err) {
			err = fmt.Errorf("%w: directory '%s' does not exist", converter.ErrConfigValidation, s.Directory)
		} else {
			err = fmt.Errorf("%w: cannot access directory '%s': %w", converter.ErrConfigValidation, s.Directory, err)
		}
		logger.Error(err.Error(), slog.String("key", "directory"))
		return err
	}
	if !info.IsDir() {
		err = fmt.Errorf("%w: '%s' is not a directory", converter.ErrConfigValidation, s.Directory)
		logger.Error(err.Error(), slog.String("key", "directory"))
		return err
	}

	if !util.ValidFilePattern(s.FilePattern) {
		err := fmt.Errorf("%w: invalid value '%s' for key 'pattern' (flag --pattern)", converter.ErrConfigValidation, s.FilePattern)
		logger.Error(err.Error(), slog.String("key", "pattern"))
		return err
	}

	allowedOutputFormat := []converter.OutputFormat{converter.OutputFormatText, converter.OutputFormatJSON, converter.OutputFormatYAML}
	if !isValidEnumValue(s.OutputFormat, allowedOutputFormat) {
		err := fmt.Errorf("%w: invalid value '%s' for key 'outputFormat' (flag --output-format). Allowed: %v", converter.ErrConfigValidation, s.OutputFormat, allowedOutputFormat)
		logger.Error(err.Error(), slog.String("key", "outputFormat"))
		return err
	}

	fallback, err := encoding.Default(s.DefaultEncoding)
	if err != nil {
		err = fmt.Errorf("%w: invalid value for key 'defaultEncoding' (flag --default-encoding): %w", converter.ErrConfigValidation, err)
		logger.Error(err.Error(), slog.String("key", "defaultEncoding"))
		return err
	}
	target, err := encoding.ByLabel(s.TargetEncoding, fallback)
	if err != nil {
		err = fmt.Errorf("%w: invalid value for key 'targetEncoding' (flag --target-encoding): %w", converter.ErrConfigValidation, err)
		logger.Error(err.Error(), slog.String("key", "targetEncoding"))
		return err
	}
	if !s.DetectOnly && !target.CanEncode() {
		err = fmt.Errorf("%w: %w: %s", converter.ErrConfigValidation, encoding.ErrUnsupportedTarget, target.Name)
		logger.Error(err.Error(), slog.String("key", "targetEncoding"))
		return err
	}
	s.TargetEncoding = target.Name

	s.Exclude = slices.DeleteFunc(s.Exclude, func(p string) bool { return strings.TrimSpace(p) == "" })
	return nil
}
