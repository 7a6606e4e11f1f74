// Package cli implements the command line surface: flag parsing, target
// selection, and dispatch to the investigation engine and renderers.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/w31r4/gowhy/internal/describe"
	"github.com/w31r4/gowhy/internal/facts"
	"github.com/w31r4/gowhy/internal/output"
	"github.com/w31r4/gowhy/internal/target"
	"github.com/w31r4/gowhy/internal/tui"
	"github.com/w31r4/gowhy/internal/why"
)

const version = "0.3.0"

const defaultScanTimeout = 10 * time.Second

type options struct {
	pid          int
	port         int
	exact        bool
	short        bool
	tree         bool
	jsonOut      bool
	verbose      bool
	env          bool
	warningsOnly bool
	noColor      bool
	debug        bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:     "gowhy [process-name]",
		Short:   "Explain why a process or port exists",
		Long: `gowhy answers "why is this process running?" by walking its ancestry,
identifying what supervises it, and flagging suspicious facts along the way.

Target a process by name, pid (-p), or listening TCP port (-o).`,
		Example: `  gowhy nginx
  gowhy -p 14233 --tree
  gowhy -o 8080 --json
  gowhy node --warnings`,
		Version:       version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args, opts)
		},
	}

	f := cmd.Flags()
	f.IntVarP(&opts.pid, "pid", "p", 0, "investigate a specific pid")
	f.IntVarP(&opts.port, "port", "o", 0, "investigate whatever listens on a TCP port")
	f.BoolVar(&opts.exact, "exact", false, "match the process name exactly instead of fuzzily")
	f.BoolVarP(&opts.short, "short", "s", false, "print the one-line ancestry summary")
	f.BoolVarP(&opts.tree, "tree", "t", false, "print the process tree around the target")
	f.BoolVar(&opts.jsonOut, "json", false, "emit the report as JSON")
	f.BoolVar(&opts.verbose, "verbose", false, "include classification evidence in the report")
	f.BoolVar(&opts.env, "env", false, "append the target's environment variables")
	f.BoolVar(&opts.warningsOnly, "warnings", false, "print only the warnings block")
	f.BoolVar(&opts.noColor, "no-color", false, "disable styled output")
	f.BoolVar(&opts.debug, "debug", false, "enable debug logging on stderr")
	return cmd
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "gowhy: %v\n", err)
		return 1
	}
	return 0
}

func run(cmd *cobra.Command, args []string, opts *options) error {
	level := slog.LevelWarn
	if opts.debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	selectors := 0
	if opts.pid > 0 {
		selectors++
	}
	if opts.port > 0 {
		selectors++
	}
	if len(args) > 0 {
		selectors++
	}
	if selectors == 0 {
		return errors.New("nothing to investigate: give a process name, --pid, or --port")
	}
	if selectors > 1 {
		return errors.New("give exactly one of: process name, --pid, --port")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), scanTimeout())
	defer cancel()

	provider := facts.Detect(ctx, logger)
	engine := why.NewEngine(provider)
	engine.Sockets = facts.Sockets{}
	engine.Manager = facts.PM2{}
	engine.Containers = facts.Docker{}
	engine.Services = facts.Systemd{}
	engine.Log = logger

	resolver := &target.Resolver{
		Provider: provider,
		Sockets:  engine.Sockets,
		SelfPID:  os.Getpid(),
	}

	procs, err := resolveTargets(ctx, resolver, args, opts)
	if err != nil {
		return err
	}

	stdoutTTY := isatty.IsTerminal(os.Stdout.Fd())
	if len(procs) > 1 && stdoutTTY && !opts.jsonOut {
		choice, ok, err := tui.Pick(procs)
		if err != nil {
			return fmt.Errorf("candidate picker: %w", err)
		}
		if !ok {
			return nil
		}
		procs = []why.ProcessInfo{choice}
	}

	renderer := output.NewRenderer(!opts.noColor && stdoutTTY)
	renderer.Verbose = opts.verbose

	for i, proc := range procs {
		if i > 0 {
			fmt.Println()
		}
		if err := investigateOne(ctx, engine, provider, renderer, opts, proc.PID); err != nil {
			return err
		}
	}
	return nil
}

// resolveTargets maps the selector to concrete candidate processes, with
// troubleshooting hints on stderr when nothing matches.
func resolveTargets(ctx context.Context, resolver *target.Resolver, args []string, opts *options) ([]why.ProcessInfo, error) {
	switch {
	case opts.pid > 0:
		fact, err := resolver.ByPID(ctx, opts.pid)
		if err != nil {
			if errors.Is(err, why.ErrNotFound) {
				fmt.Fprintf(os.Stderr, "Hint: pid %d does not exist; it may have just exited. Try: ps -p %d\n", opts.pid, opts.pid)
			}
			return nil, err
		}
		return []why.ProcessInfo{fact}, nil

	case opts.port > 0:
		procs, err := resolver.ByPort(ctx, opts.port)
		if err != nil {
			return nil, err
		}
		if len(procs) == 0 {
			fmt.Fprintf(os.Stderr, "Hint: nothing is listening on tcp/%d. Try: lsof -iTCP:%d -sTCP:LISTEN\n", opts.port, opts.port)
			return nil, fmt.Errorf("no process is listening on port %d", opts.port)
		}
		return procs, nil

	default:
		name := args[0]
		procs, err := resolver.ByName(ctx, name, opts.exact)
		if err != nil {
			return nil, err
		}
		if len(procs) == 0 {
			if opts.exact {
				fmt.Fprintf(os.Stderr, "Hint: no exact match for %q; retry without --exact for fuzzy matching.\n", name)
			} else {
				fmt.Fprintf(os.Stderr, "Hint: no process matches %q. Try: ps aux | grep %s\n", name, name)
			}
			return nil, fmt.Errorf("no process matches %q", name)
		}
		return procs, nil
	}
}

func investigateOne(ctx context.Context, engine *why.Engine, provider why.Provider, renderer *output.Renderer, opts *options, pid int) error {
	res, err := engine.Investigate(ctx, pid)
	if err != nil {
		if errors.Is(err, why.ErrNotFound) {
			fmt.Fprintf(os.Stderr, "Hint: pid %d vanished mid-investigation.\n", pid)
		}
		return err
	}

	switch {
	case opts.jsonOut:
		data, err := output.JSON(res, describe.ForCommand(ctx, res.Fact.Cmdline))
		if err != nil {
			return err
		}
		fmt.Println(string(data))

	case opts.warningsOnly:
		if w := renderer.Warnings(res); w != "" {
			fmt.Print(w)
		} else {
			fmt.Printf("No warnings for %s (pid %d).\n", res.Fact.Command, res.Fact.PID)
		}

	case opts.tree:
		snap, err := engine.NewSnapshot(ctx)
		if err != nil {
			return err
		}
		tree, err := snap.BuildTree(ctx, res.Ancestry.Root().PID)
		if err != nil {
			return err
		}
		fmt.Print(renderer.Tree(tree, pid))

	case opts.short:
		fmt.Println(renderer.Short(res))

	default:
		fmt.Println(renderer.Full(res, describe.ForCommand(ctx, res.Fact.Cmdline)))
	}

	if opts.env {
		printEnviron(ctx, provider, pid)
	}
	return nil
}

func printEnviron(ctx context.Context, provider why.Provider, pid int) {
	reader, ok := provider.(why.EnvironReader)
	if !ok {
		fmt.Fprintln(os.Stderr, "Hint: environment variables are not readable with the fallback provider.")
		return
	}
	env, err := reader.Environ(ctx, pid)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Hint: cannot read environment of pid %d: %v\n", pid, err)
		return
	}
	sort.Strings(env)
	fmt.Println("\nEnvironment:")
	for _, kv := range env {
		if strings.TrimSpace(kv) != "" {
			fmt.Println("  " + kv)
		}
	}
}

// scanTimeout reads the query deadline from GOWHY_SCAN_TIMEOUT_MS.
func scanTimeout() time.Duration {
	if raw := os.Getenv("GOWHY_SCAN_TIMEOUT_MS"); raw != "" {
		if ms, err := strconv.Atoi(raw); err == nil && ms > 0 {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return defaultScanTimeout
}
