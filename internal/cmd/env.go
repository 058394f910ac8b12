package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/harrison/fedviz/internal/config"
	"github.com/harrison/fedviz/internal/display"
	"github.com/harrison/fedviz/internal/fileutil"
	"github.com/harrison/fedviz/internal/groups"
	"github.com/harrison/fedviz/internal/logger"
	"github.com/harrison/fedviz/internal/record"
	"github.com/harrison/fedviz/internal/settings"
)

// runEnv is what every command needs after flags are parsed: configuration,
// loggers and the resolved settings.
type runEnv struct {
	cfg      *config.Config
	home     string
	console  *logger.ConsoleLogger
	file     *logger.FileLogger
	log      record.Logger
	settings *settings.Settings
	stdout   io.Writer
	stderr   io.Writer
}

// setup loads configuration, opens the loggers and resolves settings.
// Callers must Close the result.
func setup(cmd *cobra.Command) (*runEnv, error) {
	cfg, home, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	var levelPtr, logDirPtr *string
	if cmd.Flags().Changed("log-level") {
		v, _ := cmd.Flags().GetString("log-level")
		levelPtr = &v
	}
	if cmd.Flags().Changed("log-dir") {
		v, _ := cmd.Flags().GetString("log-dir")
		logDirPtr = &v
	}
	cfg.MergeWithFlags(levelPtr, logDirPtr, nil, nil)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	env := &runEnv{
		cfg:    cfg,
		home:   home,
		stdout: cmd.OutOrStdout(),
		stderr: cmd.ErrOrStderr(),
	}
	env.console = logger.NewConsoleLogger(env.stderr, cfg.LogLevel)
	env.log = env.console

	if noLog, _ := cmd.Flags().GetBool("no-log-file"); !noLog {
		fl, err := logger.NewFileLoggerWithLevel(cfg.LogDir, cfg.LogLevel)
		if err != nil {
			env.console.LogWarn(fmt.Sprintf("file logging disabled: %v", err))
		} else {
			env.file = fl
			env.log = logger.Multi{env.console, fl}
			fl.LogCommand(os.Args)
		}
	}

	st, err := env.resolveSettings(cmd)
	if err != nil {
		env.Close()
		return nil, err
	}
	env.settings = st
	return env, nil
}

// Close records the settings as LAST_USED and releases the run log.
func (e *runEnv) Close() {
	if e.settings != nil {
		if err := e.settingsStore().Save(settings.LastUsedName, e.settings); err != nil {
			e.console.LogWarn(fmt.Sprintf("could not save last used settings: %v", err))
		}
	}
	if e.file != nil {
		if err := e.file.Close(); err != nil {
			e.console.LogWarn(err.Error())
		}
	}
}

func (e *runEnv) settingsStore() *settings.Store {
	return settings.NewStore(e.cfg.SettingsDir)
}

// resolveSettings picks the base settings and applies --set, --from, --to
// and the config file's file options.
func (e *runEnv) resolveSettings(cmd *cobra.Command) (*settings.Settings, error) {
	store := e.settingsStore()
	name, _ := cmd.Flags().GetString("settings")

	var st *settings.Settings
	switch {
	case name == "":
		s, src, err := store.Resolve()
		if err != nil {
			e.console.LogWarn(fmt.Sprintf("ignoring unreadable settings: %v", err))
		}
		e.log.LogDebug(fmt.Sprintf("using %s settings", src))
		st = s
	case fileExists(name):
		f, err := os.Open(name)
		if err != nil {
			return nil, fmt.Errorf("open settings: %w", err)
		}
		defer f.Close()
		s, err := settings.ReadCSV(f)
		if err != nil {
			return nil, fmt.Errorf("settings %s: %w", name, err)
		}
		st = s
	default:
		s, err := store.Load(name)
		if err != nil {
			return nil, err
		}
		st = s
	}

	overrides := make(map[string]string)
	if e.cfg.SkipDuplicates {
		overrides["skip_duplicates"] = "True"
	}
	if e.cfg.AbsoluteGroupPaths {
		overrides["abs_group"] = "True"
	}
	if from, _ := cmd.Flags().GetString("from"); from != "" {
		overrides["date_filter_start"] = from
		overrides["date_filter_val"] = "True"
	}
	if to, _ := cmd.Flags().GetString("to"); to != "" {
		overrides["date_filter_end"] = to
		overrides["date_filter_val"] = "True"
	}
	sets, _ := cmd.Flags().GetStringArray("set")
	for _, kv := range sets {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --set %q, expected key=value", kv)
		}
		overrides[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	if len(overrides) == 0 {
		return st, nil
	}
	return st.With(overrides)
}

// interactive reports whether w is a terminal.
func interactive(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// expandPaths replaces directories with the device files found beneath them.
func (e *runEnv) expandPaths(args []string) ([]string, error) {
	var out []string
	for _, a := range args {
		info, err := os.Stat(a)
		if err != nil {
			return nil, fmt.Errorf("input %s: %w", a, err)
		}
		if !info.IsDir() {
			out = append(out, a)
			continue
		}
		scan, err := fileutil.ScanDeviceFiles(a, true)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", a, err)
		}
		for _, serr := range scan.Errors {
			e.log.LogWarn(serr.Error())
		}
		out = append(out, scan.Files...)
	}
	return out, nil
}

// loadRecords loads every input, reports failures and warnings, and applies
// --groups-file. It fails only when nothing loaded.
func (e *runEnv) loadRecords(cmd *cobra.Command, args []string) ([]*record.Record, error) {
	paths, err := e.expandPaths(args)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, errors.New("no device files given")
	}

	opts := record.LoadOptions{SkipDuplicates: e.settings.SkipDuplicates, Logger: e.log}
	var progress *display.ProgressIndicator
	if interactive(e.stderr) {
		progress = display.NewProgressIndicator(e.stderr, len(paths))
		progress.Start()
		opts.Progress = func(done, total int) { progress.Step(paths[done-1]) }
	} else if len(paths) >= 10 {
		opts.Progress = func(done, total int) {
			if done == total || done%10 == 0 {
				e.console.LogProgress(done, total)
			}
		}
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	batch, err := record.LoadAll(ctx, paths, opts)
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)

	recs := batch.Records()
	if progress != nil {
		progress.Complete(len(recs))
	}
	e.console.LogLoadSummary(batch, elapsed)
	if e.file != nil {
		e.file.LogLoadSummary(batch, elapsed)
	}
	display.WarnLoadFailures(batch.Err()).Display(e.stderr)
	if e.settings.MissingWarning {
		display.WarnMissingColumns(batch.Warnings()).Display(e.stderr)
	}
	if len(recs) == 0 {
		return nil, errors.New("no records loaded")
	}

	if name, _ := cmd.Flags().GetString("groups-file"); name != "" {
		gt, err := groups.Load(e.groupsPath(name))
		if err != nil {
			return nil, err
		}
		n := gt.Apply(recs, e.settings.AbsoluteGroups)
		e.log.LogInfo(fmt.Sprintf("applied groups from %s to %d records", name, n))
	}
	return recs, nil
}

// groupsPath resolves a group table given by path or by saved name.
func (e *runEnv) groupsPath(name string) string {
	if fileExists(name) || filepath.IsAbs(name) || strings.ContainsRune(name, os.PathSeparator) {
		return name
	}
	if !strings.EqualFold(filepath.Ext(name), ".csv") {
		name += ".csv"
	}
	return filepath.Join(e.cfg.GroupsDir, name)
}

// selectedGroups is --groups split on commas, or every group present.
func selectedGroups(cmd *cobra.Command, recs []*record.Record) []string {
	raw, _ := cmd.Flags().GetString("groups")
	if raw == "" {
		return record.AllGroups(recs)
	}
	var out []string
	for _, g := range strings.Split(raw, ",") {
		if g = strings.TrimSpace(g); g != "" {
			out = append(out, g)
		}
	}
	return out
}
