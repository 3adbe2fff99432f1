package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"slices"
	"strings"
	"syscall"

	"github.com/amterp/color"
	"github.com/amterp/sexpfmt"
	"github.com/mattn/go-isatty"
)

// Version is set at compile time via -ldflags
var Version = "0.1.0"

const (
	exitOK    = 0
	exitFail  = 1
	exitUsage = 2
)

const usage = `sexpfmt - format S-expression documents

Usage:
  sexpfmt [options] SRC [DST]
  sexpfmt -write [-watch] [options] FILE...
  sexpfmt -check [-json] [options] FILE...

SRC and DST may be "-" for standard input and standard output; DST defaults to
standard output. Files ending in .gz or .zst are decompressed when read and
compressed when written.

Style options:
  -p name         Style profile: %s (default "none")
  -config file    Read the style profile from a YAML file
  -w n            Wrap lines at column n, 0 disables wrapping (default %d)
  -l prefix       Compact list prefix, repeatable
  -k n            Compact list column limit (default %d)
  -s prefix       Shortform prefix, repeatable
  -indent c       Indent character: tab, space or a single character
  -width n        Indent characters per level

Mode options:
  -write          Rewrite files in place when their formatting differs
  -check          List files whose formatting differs, exit 1 if any
  -json           With -check, print the report as JSON
  -j n            Number of files formatted concurrently (default number of CPUs)
  -watch          With -write, keep formatting files as they change
  -color mode     Highlight output written to a terminal: auto, always, never
  -v              Log each file as it is processed
  -version        Show version information

Examples:
  sexpfmt -p kicad board.kicad_pcb -              Print formatted output
  sexpfmt -l pts -s stroke -s font - -            Format standard input
  sexpfmt -p kicad-compact -write *.kicad_sch     Format files in place
  sexpfmt -check -json *.kicad_sym                Report files that need formatting
`

// stringList is a repeatable string flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

type options struct {
	profile    string
	configPath string

	wrap        int
	compact     stringList
	columnLimit int
	shortform   stringList
	indent      string
	width       int

	write     bool
	check     bool
	jsonOut   bool
	jobs      int
	watch     bool
	colorMode string
	verbose   bool
	version   bool

	// set holds the names of the flags given on the command line.
	set  map[string]bool
	args []string
}

func parseArgs(args []string, stderr io.Writer) (*options, error) {
	opts := &options{set: make(map[string]bool)}

	fs := flag.NewFlagSet("sexpfmt", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, usage, strings.Join(sexpfmt.ProfileNames(), ", "),
			sexpfmt.DefaultWrapThreshold, sexpfmt.DefaultCompactColumnLimit)
	}

	fs.StringVar(&opts.profile, "p", "none", "style profile")
	fs.StringVar(&opts.configPath, "config", "", "YAML style profile")
	fs.IntVar(&opts.wrap, "w", sexpfmt.DefaultWrapThreshold, "wrap threshold")
	fs.Var(&opts.compact, "l", "compact list prefix")
	fs.IntVar(&opts.columnLimit, "k", sexpfmt.DefaultCompactColumnLimit, "compact list column limit")
	fs.Var(&opts.shortform, "s", "shortform prefix")
	fs.StringVar(&opts.indent, "indent", "tab", "indent character")
	fs.IntVar(&opts.width, "width", sexpfmt.DefaultIndentWidth, "indent width")
	fs.BoolVar(&opts.write, "write", false, "rewrite files in place")
	fs.BoolVar(&opts.check, "check", false, "list files whose formatting differs")
	fs.BoolVar(&opts.jsonOut, "json", false, "print the check report as JSON")
	fs.IntVar(&opts.jobs, "j", runtime.NumCPU(), "concurrent files")
	fs.BoolVar(&opts.watch, "watch", false, "keep formatting files as they change")
	fs.StringVar(&opts.colorMode, "color", "auto", "highlight mode")
	fs.BoolVar(&opts.verbose, "v", false, "verbose")
	fs.BoolVar(&opts.version, "version", false, "show version")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) { opts.set[f.Name] = true })
	opts.args = fs.Args()

	if err := opts.validate(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		fs.Usage()
		return nil, err
	}
	return opts, nil
}

func (o *options) validate() error {
	switch {
	case o.version:
		return nil
	case o.write && o.check:
		return errors.New("-write and -check cannot be combined")
	case o.jsonOut && !o.check:
		return errors.New("-json requires -check")
	case o.watch && !o.write:
		return errors.New("-watch requires -write")
	case o.set["p"] && o.set["config"]:
		return errors.New("-p and -config cannot be combined")
	case o.jobs < 1:
		return fmt.Errorf("-j must be at least 1, got %d", o.jobs)
	case (o.write || o.check) && len(o.args) == 0:
		return errors.New("no files specified")
	case (o.write || o.check) && slices.Contains(o.args, "-"):
		return errors.New("-write and -check need file paths, not \"-\"")
	case !o.write && !o.check && (len(o.args) == 0 || len(o.args) > 2):
		return errors.New("expected SRC and optional DST")
	}
	return nil
}

// styleProfile returns the selected profile with the style flags applied on
// top. Flags given explicitly replace the profile's values.
func (o *options) styleProfile() (sexpfmt.Profile, error) {
	var (
		p   sexpfmt.Profile
		err error
	)
	if o.configPath != "" {
		p, err = loadProfileFile(o.configPath)
	} else {
		p, err = sexpfmt.ProfileByName(o.profile)
	}
	if err != nil {
		return sexpfmt.Profile{}, err
	}

	if o.set["w"] {
		p.WrapThreshold = o.wrap
	}
	if o.set["l"] {
		p.CompactList.Prefixes = o.compact
	}
	if o.set["k"] {
		p.CompactList.ColumnLimit = o.columnLimit
	}
	if o.set["s"] {
		p.Shortform = o.shortform
	}
	if o.set["indent"] {
		p.IndentChar = o.indent
	}
	if o.set["width"] {
		p.IndentWidth = o.width
	}
	return p, nil
}

func loadProfileFile(path string) (sexpfmt.Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return sexpfmt.Profile{}, fmt.Errorf("failed to open config: %w", err)
	}
	defer f.Close()

	p, err := sexpfmt.LoadProfile(f)
	if err != nil {
		return sexpfmt.Profile{}, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// colorEnabled reports whether output to stdout should be highlighted.
func colorEnabled(mode string, stdout io.Writer) (bool, error) {
	switch mode {
	case "always":
		return true, nil
	case "never":
		return false, nil
	case "auto":
		if os.Getenv("NO_COLOR") != "" {
			return false, nil
		}
		f, ok := stdout.(*os.File)
		if !ok {
			return false, nil
		}
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()), nil
	}
	return false, fmt.Errorf("invalid -color mode %q (want auto, always or never)", mode)
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	opts, err := parseArgs(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	if opts.version {
		fmt.Fprintf(stdout, "sexpfmt version %s\n", Version)
		return exitOK
	}

	profile, err := opts.styleProfile()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}
	cfg, err := profile.Config()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}

	highlight, err := colorEnabled(opts.colorMode, stdout)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}
	if highlight {
		color.NoColor = false
	}

	a := &app{
		cfg:       cfg,
		stdin:     stdin,
		stdout:    stdout,
		stderr:    stderr,
		jobs:      opts.jobs,
		verbose:   opts.verbose,
		highlight: highlight,
	}

	switch {
	case opts.check:
		return a.checkFiles(opts.args, opts.jsonOut)
	case opts.write:
		code := a.writeFiles(opts.args)
		if !opts.watch {
			return code
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if err := a.watch(ctx, opts.args); err != nil {
			a.logError("%v", err)
			return exitFail
		}
		return exitOK
	default:
		dst := "-"
		if len(opts.args) == 2 {
			dst = opts.args[1]
		}
		return a.stream(opts.args[0], dst)
	}
}
