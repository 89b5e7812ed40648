// Package dumper is the flash-read tool: it loads a target description
// and a memory snapshot, reads a range of flash through the flashing
// package and prints it.
package dumper

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"flashread/internal/config"
	"flashread/internal/eventlog"
	"flashread/internal/flashing"
	"flashread/internal/logging"
	"flashread/internal/printers"
	"flashread/internal/probe"
	"flashread/internal/target"
	"flashread/internal/targetdesc"
)

// Config is one run of the tool.
type Config struct {
	Settings config.Config
	// OutputWriter receives the data when Settings.Output is empty or "-".
	OutputWriter io.Writer
	// ErrorWriter receives log and progress lines.
	ErrorWriter io.Writer
	// Logger overrides the logger built from ErrorWriter and the level.
	Logger logging.Logger
}

// Run loads the target and snapshot, performs the read and writes the
// result.
func Run(cfg Config) (err error) {
	s := cfg.Settings
	w := cfg.OutputWriter
	if w == nil {
		w = os.Stdout
	}
	errW := cfg.ErrorWriter
	if errW == nil {
		errW = os.Stderr
	}
	var slogger *slog.Logger
	if s.LogFormat == config.LogFormatJSON {
		slogger = slog.New(slog.NewJSONHandler(errW, &slog.HandlerOptions{Level: logging.SlogLevel(s.LogLevel)}))
	}
	log := cfg.Logger
	switch {
	case log != nil:
	case slogger != nil:
		log = logging.NewSlogLogger(slogger)
	default:
		log = logging.NewStdLoggerWithWriter(errW, errW, s.LogLevel)
	}

	tgt, err := loadTarget(s.Target, s.TargetName)
	if err != nil {
		return err
	}
	log.Logf(logging.SeverityInfo, "Flash Read : target %s from %s", tgt.Name, s.Target)

	if s.Plan {
		groups, err := flashing.Plan(tgt, log)
		if err != nil {
			return fmt.Errorf("planning read: %w", err)
		}
		PrintPlan(w, tgt, groups)
		return nil
	}

	if err := s.CheckRange(); err != nil {
		return err
	}

	sess, err := openSession(tgt, s.Snapshot, probe.WithLogger(log))
	if err != nil {
		return fmt.Errorf("opening snapshot %s: %w", s.Snapshot, err)
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing snapshot: %w", cerr)
		}
	}()

	var loggers []eventlog.Logger
	if s.EventLog != "" {
		fl, ferr := eventlog.NewFileLogger(s.EventLog)
		if ferr != nil {
			return fmt.Errorf("opening event log: %w", ferr)
		}
		defer func() {
			if cerr := fl.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("writing event log: %w", cerr)
			}
		}()
		loggers = append(loggers, fl)
	}
	if s.LogLevel == logging.SeverityDebug {
		if slogger == nil {
			slogger = slog.New(slog.NewTextHandler(errW, &slog.HandlerOptions{Level: slog.LevelDebug}))
		}
		loggers = append(loggers, eventlog.NewSlogAdapter(slogger))
	}
	if s.Verbose {
		pp := printers.NewProgressPrinter()
		pp.SetOutput(errW)
		loggers = append(loggers, pp)
	}
	rec := eventlog.NewRecorder(eventlog.NewMultiLogger(loggers...))
	log.Logf(logging.SeverityDebug, "Recording events of operation %s", rec.OperationID())

	data := make([]byte, s.Length)
	if err := flashing.Read(sess, rec.Progress(), s.Address, data); err != nil {
		return fmt.Errorf("reading 0x%x bytes at 0x%08x: %w", s.Length, s.Address, err)
	}

	return writeOutput(w, s, data)
}

// closingSession is a flashing session that owns the snapshot images.
type closingSession interface {
	flashing.Session
	Close() error
}

var openSession = func(tgt *target.Target, dir string, opts ...probe.Option) (closingSession, error) {
	sess, err := probe.Open(tgt, dir, opts...)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

func loadTarget(path, name string) (*target.Target, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &targetdesc.LoadError{File: path, Message: "failed to stat target", Cause: err}
	}
	if !info.IsDir() {
		tgt, err := targetdesc.Load(path)
		if err != nil {
			return nil, err
		}
		if name != "" && tgt.Name != name {
			return nil, fmt.Errorf("%s describes target %s, not %s", path, tgt.Name, name)
		}
		return tgt, nil
	}

	targets, err := targetdesc.LoadDirectory(path)
	if err != nil {
		return nil, err
	}
	names := targetdesc.Names(targets)
	switch {
	case name != "":
		if tgt, ok := targets[name]; ok {
			return tgt, nil
		}
		return nil, fmt.Errorf("target %s not found in %s (have: %s)", name, path, strings.Join(names, ", "))
	case len(names) == 1:
		return targets[names[0]], nil
	case len(names) == 0:
		return nil, fmt.Errorf("no target descriptions in %s", path)
	default:
		return nil, fmt.Errorf("%s holds several targets, pick one with --target-name: %s", path, strings.Join(names, ", "))
	}
}

func writeOutput(w io.Writer, s config.Config, data []byte) (err error) {
	if s.Output != "" && s.Output != "-" {
		f, cerr := os.Create(s.Output)
		if cerr != nil {
			return cerr
		}
		defer func() {
			err = errors.Join(err, f.Close())
		}()
		w = f
	}
	if s.Format == config.FormatBin {
		return printers.WriteBinary(w, data)
	}
	printers.NewHexDumpPrinter(w).PrintMemory(s.Address, data)
	return nil
}

// PrintPlan writes the dispatch groups of tgt, one line per group
// followed by its regions.
func PrintPlan(w io.Writer, tgt *target.Target, groups []flashing.Group) {
	fmt.Fprintf(w, "Target %s: %d flash session(s)\n", tgt.Name, len(groups))
	for i, g := range groups {
		fmt.Fprintf(w, "Group %d: algorithm %s on core %s (index %d)\n", i, g.Key.Algorithm, g.Key.Core, g.CoreIndex)
		for _, r := range g.Regions {
			fmt.Fprintf(w, "    %-16s %s\n", r.Name, r.Range)
		}
	}
}
