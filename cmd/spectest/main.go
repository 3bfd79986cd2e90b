package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/wasm-spectest/compare"
	"github.com/wippyai/wasm-spectest/config"
	"github.com/wippyai/wasm-spectest/engine"
	"github.com/wippyai/wasm-spectest/harness"
	"github.com/wippyai/wasm-spectest/script"
)

func main() {
	var (
		configFile     = flag.String("config", "", "Harness configuration file (HCL)")
		exceptionsFile = flag.String("exceptions", "", "Exception table file (HCL), replaces the built-in table")
		strict         = flag.Bool("strict", false, "Compare floats bit for bit")
		verbose        = flag.Bool("v", false, "Debug logging")
		interactive    = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Usage: spectest [flags] <script.json|dir>...")
		flag.PrintDefaults()
		os.Exit(1)
	}

	log, err := newLogger(*verbose, *interactive)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	engine.SetLogger(log.Named("engine"))
	harness.SetLogger(log.Named("harness"))

	r, err := newRunner(*configFile, *exceptionsFile, *strict)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	scripts, err := discover(flag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *interactive {
		failed, err := runInteractive(r, scripts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if failed {
			os.Exit(1)
		}
		return
	}

	styled := term.IsTerminal(int(os.Stdout.Fd()))
	failed := false
	var reports []*harness.Report
	for _, path := range scripts {
		report, err := r.run(context.Background(), path)
		if err != nil {
			failed = true
		}
		reports = append(reports, report)
		fmt.Println(formatReport(report, styled))
	}
	fmt.Println()
	fmt.Println(formatTotals(reports, styled))

	if failed {
		os.Exit(1)
	}
}

func newLogger(verbose, interactive bool) (*zap.Logger, error) {
	switch {
	case interactive && !verbose:
		return zap.NewNop(), nil
	case verbose:
		return zap.NewDevelopment()
	default:
		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
		return cfg.Build()
	}
}

// runner holds the settings shared by every script run.
type runner struct {
	cfg        *config.Config
	exceptions *config.Exceptions
	policy     compare.Policy
}

func newRunner(configFile, exceptionsFile string, strict bool) (*runner, error) {
	cfg := config.Default()
	if configFile != "" {
		var err error
		if cfg, err = config.LoadFile(configFile); err != nil {
			return nil, err
		}
	}

	var (
		exceptions *config.Exceptions
		err        error
	)
	if exceptionsFile != "" {
		exceptions, err = config.LoadExceptions(exceptionsFile)
	} else {
		exceptions, err = config.DefaultExceptions()
	}
	if err != nil {
		return nil, err
	}

	policy := cfg.Policy()
	if strict {
		policy = compare.StrictPolicy
	}
	return &runner{cfg: cfg, exceptions: exceptions, policy: policy}, nil
}

// run executes one script on a fresh engine. A script that fails to load
// yields a report holding only the fatal error.
func (r *runner) run(ctx context.Context, path string) (*harness.Report, error) {
	s, err := script.LoadFile(path)
	if err != nil {
		return &harness.Report{TestSet: testSetOf(path), Fatal: err}, err
	}

	gw, err := engine.NewWazeroEngine(ctx, r.cfg.EngineConfig())
	if err != nil {
		return &harness.Report{TestSet: s.TestSet, Fatal: err}, err
	}
	defer gw.Close(ctx)

	x := harness.New(gw,
		harness.WithConfig(r.cfg),
		harness.WithPolicy(r.policy),
		harness.WithExceptions(r.exceptions),
	)
	return x.Run(ctx, s)
}

func testSetOf(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// discover expands the arguments into script paths. Directories are
// searched recursively for .json files; explicit files are kept as given.
func discover(args []string) ([]string, error) {
	var scripts []string
	seen := make(map[string]struct{})
	add := func(p string) {
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			scripts = append(scripts, p)
		}
	}

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("error accessing path %s: %w", arg, err)
		}
		if !info.IsDir() {
			add(arg)
			continue
		}

		var found []string
		err = filepath.WalkDir(arg, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && filepath.Ext(p) == ".json" {
				found = append(found, p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		sort.Strings(found)
		for _, p := range found {
			add(p)
		}
	}

	if len(scripts) == 0 {
		return nil, fmt.Errorf("no scripts found in %s", strings.Join(args, ", "))
	}
	return scripts, nil
}
