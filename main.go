// docsyntax renders source files as syntax highlighted HTML,
// loading the grammars it needs on demand.
package main

import (
	"context"
	"embed"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"

	"braces.dev/errtrace"
	"github.com/prometheus/client_golang/prometheus"
	"go.abhg.dev/docsyntax/internal/errdefer"
	"go.abhg.dev/docsyntax/internal/flagvalue"
	"go.abhg.dev/docsyntax/internal/grammar"
	"go.abhg.dev/docsyntax/internal/highlight"
	"go.abhg.dev/docsyntax/internal/html"
	"go.abhg.dev/docsyntax/internal/syntax"
	"golang.org/x/time/rate"
)

//go:embed grammars/*.json grammars/*.xml
var _bundledGrammars embed.FS

func main() {
	cmd := mainCmd{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
	os.Exit(cmd.Run(os.Args[1:]))
}

// mainCmd is the actual entry point to the program.
type mainCmd struct {
	Stdin  io.Reader // == os.Stdin
	Stdout io.Writer // == os.Stdout
	Stderr io.Writer // == os.Stderr

	// Remote overrides the fetcher for remote grammars.
	Remote grammar.Fetcher

	log *log.Logger
}

func (cmd *mainCmd) Run(args []string) (exitCode int) {
	cmd.log = log.New(cmd.Stderr, "", 0)

	opts, err := (&cliParser{
		Stdout: cmd.Stdout,
		Stderr: cmd.Stderr,
	}).Parse(args)
	if err != nil {
		// '$cmd -h' should exit with zero.
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		// No need to print anything.
		// Parse prints messages.
		return 1
	}

	if err := cmd.run(context.Background(), opts); err != nil {
		cmd.log.Printf("docsyntax: %v", err)
		return 1
	}
	return 0
}

func (cmd *mainCmd) run(ctx context.Context, opts *params) (err error) {
	debugLog, closeDebug, err := opts.Debug.Logger(cmd.Stderr, "")
	if err != nil {
		return errtrace.Errorf("-debug: %w", err)
	}
	defer errdefer.Call(&err, closeDebug)

	style, ok := highlight.LookupStyle(opts.Style)
	if !ok {
		return errtrace.Errorf("-style: unknown style %q: valid values are %q", opts.Style, highlight.StyleNames())
	}
	highlighter := &highlight.Highlighter{
		Style:      style,
		UseClasses: opts.Classes,
	}

	reg := prometheus.NewRegistry()
	if opts.Metrics != "" {
		defer errdefer.Call(&err, func() error {
			return errtrace.Wrap(prometheus.WriteToTextfile(opts.Metrics, reg))
		})
	}

	grammars, err := cmd.grammarSource(opts)
	if err != nil {
		return errtrace.Wrap(err)
	}

	remote := cmd.Remote
	if remote == nil {
		remote = &grammar.HTTPSource{Limiter: newLimiter(opts.Rate)}
	}

	svc, err := syntax.New(syntax.Config{
		Grammars:              grammars,
		ManifestFile:          opts.Manifest,
		Candidates:            flagvalue.Names(opts.Probe),
		ProbeFile:             opts.ProbeFile.Template,
		RemoteURL:             opts.Remote.Template,
		Remote:                remote,
		Builtins:              flagvalue.Names(opts.Builtins),
		CustomAliasesOverride: opts.CustomAlias,
		RetryFailed:           opts.RetryFailed,
		Highlighter:           highlighter,
		Log:                   debugLog,
		Metrics:               grammar.NewMetrics(reg),
	})
	if err != nil {
		return errtrace.Errorf("-builtin: %w", err)
	}
	svc.Init(ctx)

	if opts.ListGrammars {
		bs, err := grammar.MarshalManifest(svc.CustomGrammars())
		if err != nil {
			return errtrace.Wrap(err)
		}
		_, err = fmt.Fprintf(cmd.Stdout, "%s\n", bs)
		return errtrace.Wrap(err)
	}

	inputs, err := cmd.readInputs(opts.Inputs, string(opts.Lang))
	if err != nil {
		return errtrace.Wrap(err)
	}

	renderer := &html.Renderer{
		Embedded:    opts.Embed,
		Highlighter: highlighter,
	}
	if opts.CSS != "" {
		if err := writeFile(opts.CSS, renderer.WriteCSS); err != nil {
			return errtrace.Errorf("-css: %w", err)
		}
	}

	gen := Generator{
		Log:         debugLog,
		Highlighter: svc,
		Renderer:    renderer,
		Title:       opts.Title,
		Tabs:        opts.Tabs,
	}

	if opts.Output == "" || opts.Output == "-" {
		return errtrace.Wrap(gen.Generate(ctx, cmd.Stdout, inputs))
	}
	return errtrace.Wrap(writeFile(opts.Output, func(w io.Writer) error {
		return gen.Generate(ctx, w, inputs)
	}))
}

// grammarSource picks the source of custom grammars:
// the -grammars directory or URL, or the bundled grammars.
func (cmd *mainCmd) grammarSource(opts *params) (grammar.Source, error) {
	if opts.Grammars == "" {
		sub, err := fs.Sub(_bundledGrammars, "grammars")
		if err != nil {
			return nil, errtrace.Wrap(err)
		}
		return &grammar.FSSource{FS: sub}, nil
	}

	src, err := grammar.NewSource(opts.Grammars)
	if err != nil {
		return nil, errtrace.Errorf("-grammars: %w", err)
	}
	if hs, ok := src.(*grammar.HTTPSource); ok {
		hs.Limiter = newLimiter(opts.Rate)
	}
	return src, nil
}

func (cmd *mainCmd) readInputs(paths []string, lang string) ([]*Input, error) {
	inputs := make([]*Input, 0, len(paths))
	for _, path := range paths {
		var (
			code []byte
			err  error
		)
		if path == "-" {
			code, err = io.ReadAll(cmd.Stdin)
		} else {
			code, err = os.ReadFile(path)
		}
		if err != nil {
			return nil, errtrace.Wrap(err)
		}

		in := &Input{Path: path, Lang: lang, Code: code}
		if in.Lang == "" {
			in.Lang = langFromPath(path)
		}
		inputs = append(inputs, in)
	}
	return inputs, nil
}

// newLimiter returns nil if n is not positive.
func newLimiter(n float64) *rate.Limiter {
	if n <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(n), max(1, int(n)))
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errtrace.Wrap(err)
	}
	defer errdefer.Close(&err, f)

	return errtrace.Wrap(write(f))
}
