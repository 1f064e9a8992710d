package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"ciphercourt/internal/audit"
	"ciphercourt/internal/config"
	"ciphercourt/internal/connector"
	"ciphercourt/internal/model"
	"ciphercourt/internal/observability"
	"ciphercourt/internal/report"
)

const (
	exitOK     = 0
	exitError  = 1
	exitFailed = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return exitError
	}

	switch args[0] {
	case "audit":
		return runAudit(ctx, args[1:], stdout, stderr)
	case "init-config":
		return runInitConfig(args[1:], stdout, stderr)
	case "list-connectors":
		return runListConnectors(stdout)
	case "help", "-h", "--help":
		printUsage(stdout)
		return exitOK
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
		printUsage(stderr)
		return exitError
	}
}

// stringList is a repeatable string flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			*s = append(*s, part)
		}
	}
	return nil
}

type auditOptions struct {
	ConfigPath string
	OutDir     string
	Formats    stringList
	Connectors stringList
	DataDir    string
	Now        string
	Workers    int
	Verbose    bool
}

func runAudit(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(stderr, "Warning: failed to load .env: %v\n", err)
	}
	env := config.FromEnv()

	fs := flag.NewFlagSet("audit", flag.ContinueOnError)
	fs.SetOutput(stderr)
	opts := auditOptions{}
	fs.StringVar(&opts.ConfigPath, "config", env.ConfigPath, "Path to YAML configuration")
	fs.StringVar(&opts.OutDir, "out", "", "Output directory for reports")
	fs.Var(&opts.Formats, "format", "Report format: json, csv, markdown (repeatable)")
	fs.Var(&opts.Connectors, "connector", "Audit only this source (repeatable)")
	fs.StringVar(&opts.DataDir, "data-dir", "", "Directory searched for data files named after sources")
	fs.StringVar(&opts.Now, "now", "", "Audit time as RFC3339 (default: current time)")
	fs.IntVar(&opts.Workers, "workers", 0, "Sources audited concurrently")
	fs.BoolVar(&opts.Verbose, "verbose", false, "Verbose logging")

	// Flags may follow positional arguments; move them to the front.
	flagArgs, posArgs := splitArgs(args, map[string]bool{
		"config": true, "out": true, "format": true, "connector": true,
		"data-dir": true, "now": true, "workers": true,
	})
	if err := fs.Parse(flagArgs); err != nil {
		return exitError
	}
	if len(posArgs) > 0 && opts.DataDir == "" {
		opts.DataDir = posArgs[0]
	}

	level := env.Level(slog.LevelWarn)
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg := config.Default()
	if opts.ConfigPath != "" {
		loaded, err := config.Load(opts.ConfigPath)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitError
		}
		cfg = loaded
	}
	cfg = env.Apply(cfg)
	if opts.OutDir != "" {
		cfg.Reports.OutputDir = opts.OutDir
	}
	if opts.Workers > 0 {
		cfg.Audit.Workers = opts.Workers
	}
	if len(opts.Formats) > 0 {
		cfg.Reports.Formats = opts.Formats
	}

	formats := make([]report.Format, 0, len(cfg.Reports.Formats))
	for _, f := range cfg.Reports.Formats {
		parsed, err := report.ParseFormat(f)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitError
		}
		formats = append(formats, parsed)
	}

	var now time.Time
	if opts.Now != "" {
		fixed, err := time.Parse(time.RFC3339, opts.Now)
		if err != nil {
			fmt.Fprintf(stderr, "Invalid --now value: %v\n", err)
			return exitError
		}
		now = fixed
	}

	metrics, err := observability.NewMetrics(nil)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}

	conns, err := cfg.Connectors(ctx, opts.DataDir)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}

	auditor := audit.New(
		audit.WithNow(now),
		audit.WithLogger(logger.With("component", "audit")),
		audit.WithMetrics(metrics),
		audit.WithWorkers(cfg.Audit.Workers),
	)
	for _, c := range conns {
		if err := auditor.Register(c); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitError
		}
	}
	for _, name := range opts.Connectors {
		if _, ok := auditor.Source(name); !ok {
			logger.Warn("unknown connector ignored", "connector", name)
		}
	}

	fmt.Fprintln(stdout, "=== CipherCourt Audit ===")
	fmt.Fprintf(stdout, "Config:     %s\n", orDefault(opts.ConfigPath, "(defaults)"))
	fmt.Fprintf(stdout, "Data dir:   %s\n", orDefault(opts.DataDir, "(none)"))
	fmt.Fprintf(stdout, "Output:     %s\n", cfg.Reports.OutputDir)
	fmt.Fprintln(stdout)

	runReport, err := auditor.Run(ctx, opts.Connectors)
	if err != nil {
		fmt.Fprintf(stderr, "Audit failed: %v\n", err)
		return exitError
	}

	for _, r := range runReport.Ordered() {
		fmt.Fprintf(stdout, "  %-20s %s\n", r.Source, r.OverallStatus.Label())
	}
	s := runReport.Summary
	fmt.Fprintf(stdout, "\nAudited %d source(s): %d passed, %d failed, %d warnings, %d not available\n",
		s.TotalConnectors, s.Passed, s.Failed, s.Warnings, s.NotAvailable)

	paths, err := report.Generate(cfg.Reports.OutputDir, runReport, formats)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to generate report: %v\n", err)
		return exitError
	}
	for _, f := range formats {
		fmt.Fprintf(stdout, "Report (%s): %s\n", f, paths[f])
	}
	if digest, err := report.Digest(runReport); err == nil {
		fmt.Fprintf(stdout, "Digest: %s\n", digest)
	}

	if runReport.Failed() {
		fmt.Fprintln(stdout, "\nFAILURE: critical issues found")
		for _, issue := range s.CriticalIssues {
			fmt.Fprintf(stdout, " - %s\n", issue)
		}
		return exitFailed
	}
	fmt.Fprintln(stdout, "SUCCESS")
	return exitOK
}

func runInitConfig(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("init-config", flag.ContinueOnError)
	fs.SetOutput(stderr)
	output := fs.String("output", "config.yaml", "Where to write the configuration")
	fs.StringVar(output, "o", "config.yaml", "Shorthand for --output")
	flagArgs, _ := splitArgs(args, map[string]bool{"output": true, "o": true})
	if err := fs.Parse(flagArgs); err != nil {
		return exitError
	}

	if err := config.Save(config.Default(), *output); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
	fmt.Fprintf(stdout, "Configuration written to %s\n", *output)
	return exitOK
}

func runListConnectors(stdout io.Writer) int {
	fmt.Fprintln(stdout, "Available connectors:")
	for _, k := range connector.Kinds() {
		fmt.Fprintf(stdout, "  %-16s %s\n", k, connector.Describe(k))
	}
	fmt.Fprintf(stdout, "\nStatuses: %s\n", statusLabels())
	return exitOK
}

// splitArgs separates flags (with their values) from positional arguments, so flags may
// appear anywhere. takesValue lists flag names without dashes.
func splitArgs(args []string, takesValue map[string]bool) (flagArgs, posArgs []string) {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			posArgs = append(posArgs, args[i+1:]...)
			break
		}
		if !strings.HasPrefix(arg, "-") || arg == "-" {
			posArgs = append(posArgs, arg)
			continue
		}
		flagArgs = append(flagArgs, arg)
		name := strings.TrimLeft(strings.SplitN(arg, "=", 2)[0], "-")
		if !strings.Contains(arg, "=") && takesValue[name] && i+1 < len(args) {
			flagArgs = append(flagArgs, args[i+1])
			i++
		}
	}
	return flagArgs, posArgs
}

func statusLabels() string {
	labels := make([]string, 0, len(model.Statuses))
	for _, s := range model.Statuses {
		labels = append(labels, s.Label())
	}
	return strings.Join(labels, ", ")
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: ciphercourt <command> [flags]")
	fmt.Fprintln(w, "       ciphercourt audit [data-dir] [flags]")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  audit            Run the audit and write reports")
	fmt.Fprintln(w, "  init-config      Write a default configuration file")
	fmt.Fprintln(w, "  list-connectors  List the built-in source kinds")
	fmt.Fprintln(w, "Audit flags:")
	fmt.Fprintln(w, "  --config     YAML configuration (env CIPHERCOURT_CONFIG)")
	fmt.Fprintln(w, "  --out        Output directory (env CIPHERCOURT_OUTPUT_DIR)")
	fmt.Fprintln(w, "  --format     json, csv or markdown; repeatable (default: all)")
	fmt.Fprintln(w, "  --connector  Audit only this source; repeatable")
	fmt.Fprintln(w, "  --data-dir   Directory of data files named after sources")
	fmt.Fprintln(w, "  --now        Audit time, RFC3339")
	fmt.Fprintln(w, "  --workers    Sources audited concurrently")
	fmt.Fprintln(w, "  --verbose    Debug logging")
	fmt.Fprintln(w, "Exit codes: 0 ok, 1 error, 2 a source failed")
}
