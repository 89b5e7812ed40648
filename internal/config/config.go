// Package config loads flash-read settings from defaults, an optional
// YAML file, FLASHREAD_ environment variables and command-line flags,
// in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"flashread/internal/logging"
)

const (
	FormatHex = "hex"
	FormatBin = "bin"
)

const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// MaxLength caps a single read; the whole range is buffered in memory.
const MaxLength = math.MaxInt32

// Config holds the settings of one flash-read run.
type Config struct {
	// Target is a target description file, or a directory of them when
	// TargetName picks one.
	Target     string
	TargetName string
	Snapshot   string
	Address    uint64
	Length     uint64
	// Output is the file the data goes to; empty or "-" is stdout.
	Output   string
	Format   string
	EventLog string
	LogLevel logging.Severity
	// LogFormat is text for plain log lines or json for slog JSON records.
	LogFormat string
	// Plan prints the dispatch groups instead of reading.
	Plan    bool
	Verbose bool
}

var ErrInvalid = errors.New("invalid configuration")

func newFlagSet(out io.Writer) *pflag.FlagSet {
	fs := pflag.NewFlagSet("flash-read", pflag.ContinueOnError)
	fs.SetOutput(out)
	fs.StringP("config", "c", "", "YAML config file")
	fs.StringP("target", "t", "", "target description file or directory")
	fs.String("target-name", "", "target to pick when --target is a directory")
	fs.StringP("snapshot", "s", "", "snapshot directory with the memory images")
	fs.StringP("address", "a", "0", "start address (decimal or 0x hex)")
	fs.StringP("length", "n", "0", "number of bytes to read (decimal or 0x hex)")
	fs.StringP("output", "o", "", "output file, - for stdout")
	fs.StringP("format", "f", FormatHex, "output format: hex or bin")
	fs.String("event-log", "", "append a CBOR event log of the read to this file")
	fs.String("log-level", "info", "debug, info, warning or error")
	fs.String("log-format", LogFormatText, "log output: text or json")
	fs.Bool("plan", false, "print the algorithm and core groups and exit")
	fs.BoolP("verbose", "v", false, "print progress events to stderr")
	return fs
}

// Load parses args (without the program name) on top of the config
// file and environment. Usage errors go to usage. pflag.ErrHelp is
// returned unchanged for -h.
func Load(args []string, usage io.Writer) (Config, error) {
	fs := newFlagSet(usage)
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetDefault("target", "")
	v.SetDefault("target_name", "")
	v.SetDefault("snapshot", "")
	v.SetDefault("address", "0")
	v.SetDefault("length", "0")
	v.SetDefault("output", "")
	v.SetDefault("format", FormatHex)
	v.SetDefault("event_log", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", LogFormatText)
	v.SetDefault("plan", false)
	v.SetDefault("verbose", false)

	v.SetEnvPrefix("FLASHREAD")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for _, name := range []string{"target", "target-name", "snapshot", "address", "length", "output", "format", "event-log", "log-level", "log-format", "plan", "verbose"} {
		if err := v.BindPFlag(strings.ReplaceAll(name, "-", "_"), fs.Lookup(name)); err != nil {
			return Config{}, err
		}
	}

	cfgPath, _ := fs.GetString("config")
	if cfgPath == "" {
		cfgPath = os.Getenv("FLASHREAD_CONFIG")
	}
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", cfgPath, err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		Target:     v.GetString("target"),
		TargetName: v.GetString("target_name"),
		Snapshot:   v.GetString("snapshot"),
		Output:     v.GetString("output"),
		Format:     strings.ToLower(v.GetString("format")),
		EventLog:   v.GetString("event_log"),
		LogFormat:  strings.ToLower(v.GetString("log_format")),
		Plan:       v.GetBool("plan"),
		Verbose:    v.GetBool("verbose"),
	}

	var errs []error
	var err error
	addressOK := true
	if cfg.Address, err = parseNumber(v.GetString("address")); err != nil {
		errs = append(errs, fmt.Errorf("%w: address: %v", ErrInvalid, err))
		addressOK = false
	}
	lengthOK := true
	if cfg.Length, err = parseNumber(v.GetString("length")); err != nil {
		errs = append(errs, fmt.Errorf("%w: length: %v", ErrInvalid, err))
		lengthOK = false
	}
	if cfg.LogLevel, err = logging.ParseSeverity(v.GetString("log_level")); err != nil {
		errs = append(errs, fmt.Errorf("%w: %v", ErrInvalid, err))
	}
	if cfg.Format != FormatHex && cfg.Format != FormatBin {
		errs = append(errs, fmt.Errorf("%w: format %q is not hex or bin", ErrInvalid, cfg.Format))
	}
	if cfg.LogFormat != LogFormatText && cfg.LogFormat != LogFormatJSON {
		errs = append(errs, fmt.Errorf("%w: log format %q is not text or json", ErrInvalid, cfg.LogFormat))
	}
	if cfg.Target == "" {
		errs = append(errs, fmt.Errorf("%w: no target given", ErrInvalid))
	}
	if !cfg.Plan {
		if cfg.Snapshot == "" {
			errs = append(errs, fmt.Errorf("%w: no snapshot given", ErrInvalid))
		}
		if lengthOK && cfg.Length == 0 {
			errs = append(errs, fmt.Errorf("%w: length must be positive", ErrInvalid))
		}
		if lengthOK && addressOK {
			if err := cfg.CheckRange(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}
	return cfg, nil
}

// CheckRange rejects a read longer than MaxLength or one running past
// the end of the 64-bit address space.
func (c Config) CheckRange() error {
	if c.Length > MaxLength {
		return fmt.Errorf("%w: length 0x%x exceeds 0x%x", ErrInvalid, c.Length, uint64(MaxLength))
	}
	if c.Length > 0 && c.Address+c.Length-1 < c.Address {
		return fmt.Errorf("%w: 0x%x bytes at 0x%x wrap past the end of the address space", ErrInvalid, c.Length, c.Address)
	}
	return nil
}

func parseNumber(s string) (uint64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), "_", "")
	return strconv.ParseUint(s, 0, 64)
}
