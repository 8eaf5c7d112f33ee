// Package syntax provides the shared highlighting service
// used by every surface that renders code.
//
// A [Service] is built once with [New],
// initialized once with [Service.Init],
// and then shared by all callers.
package syntax

import (
	"context"
	"io"
	"log"
	"sync"
	"sync/atomic"

	"braces.dev/errtrace"
	"go.abhg.dev/docsyntax/internal/grammar"
	"go.abhg.dev/docsyntax/internal/highlight"
	"go.abhg.dev/docsyntax/internal/sliceutil"
	"golang.org/x/sync/errgroup"
)

// Config specifies how a Service finds and loads grammars.
type Config struct {
	// Grammars holds custom grammars.
	// If nil, only built-in and remote grammars are available.
	Grammars grammar.Source

	// ManifestFile is the manifest inside Grammars.
	// Defaults to grammar.DefaultManifestFile.
	ManifestFile string

	// Candidates are custom grammar names to probe for
	// if Grammars has no usable manifest.
	Candidates []string

	// ProbeFile addresses candidate files inside Grammars.
	// Defaults to grammar.DefaultProbeFile.
	ProbeFile *grammar.Template

	// RemoteURL addresses remote fallback grammars.
	// If nil, there is no remote fallback.
	RemoteURL *grammar.Template

	// Remote fetches remote grammars.
	// Defaults to a plain grammar.HTTPSource.
	Remote grammar.Fetcher

	// Builtins are the grammars built into the engine.
	// Defaults to highlight.DefaultBuiltins.
	Builtins []string

	// Aliases is the built-in alias table.
	// Defaults to grammar.BuiltinAliases.
	Aliases map[string]string

	// CustomAliasesOverride lets aliases of custom grammars
	// win over built-in aliases.
	CustomAliasesOverride bool

	// RetryFailed allows grammars that failed to load
	// to be retried by later requests.
	RetryFailed bool

	// Highlighter renders highlighted code.
	Highlighter *highlight.Highlighter

	Log     *log.Logger
	Metrics *grammar.Metrics
}

// Service resolves, loads, and highlights code in any language.
// It's safe for concurrent use.
type Service struct {
	log      *log.Logger
	registry *grammar.Registry
	cache    *grammar.Cache
	engine   *highlight.Engine

	aliases   map[string]string
	overrides bool
	resolver  atomic.Pointer[grammar.Resolver]

	initOnce sync.Once
}

// New builds a Service.
// The Service is usable right away with built-in aliases only;
// call Init to discover custom grammars.
func New(cfg Config) (*Service, error) {
	logger := cfg.Log
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	builtins := cfg.Builtins
	if builtins == nil {
		builtins = highlight.DefaultBuiltins
	}
	engine, err := highlight.NewEngine(cfg.Highlighter, builtins...)
	if err != nil {
		return nil, errtrace.Wrap(err)
	}

	registry := &grammar.Registry{
		Source:       cfg.Grammars,
		ManifestFile: cfg.ManifestFile,
		Candidates:   cfg.Candidates,
		ProbeFile:    cfg.ProbeFile,
		Log:          logger,
		Metrics:      cfg.Metrics,
	}

	cache := &grammar.Cache{
		Loader: &grammar.Loader{
			Registry:  registry,
			Remote:    cfg.Remote,
			RemoteURL: cfg.RemoteURL,
			Installer: engine,
			Log:       logger,
			Metrics:   cfg.Metrics,
		},
		Preloaded:   engine.HasGrammar,
		RetryFailed: cfg.RetryFailed,
		Metrics:     cfg.Metrics,
	}

	s := &Service{
		log:       logger,
		registry:  registry,
		cache:     cache,
		engine:    engine,
		aliases:   cfg.Aliases,
		overrides: cfg.CustomAliasesOverride,
	}
	s.resolver.Store(grammar.NewResolver(grammar.ResolverOptions{
		Builtin: cfg.Aliases,
	}))
	return s, nil
}

// Init discovers custom grammars and merges their aliases
// into the alias table.
// Only the first call has any effect.
func (s *Service) Init(ctx context.Context) {
	s.initOnce.Do(func() {
		descs := s.registry.Discover(ctx)

		names := sliceutil.Transform(descs, func(d *grammar.Descriptor) string {
			return d.Name
		})

		s.resolver.Store(grammar.NewResolver(grammar.ResolverOptions{
			Builtin:         s.aliases,
			Custom:          s.registry.Aliases(),
			Names:           names,
			CustomOverrides: s.overrides,
		}))
	})
}

// CustomGrammars lists the custom grammars found by Init.
func (s *Service) CustomGrammars() []*grammar.Descriptor {
	return s.registry.Descriptors()
}

// Resolve returns the canonical grammar name for a language tag.
func (s *Service) Resolve(tag string) string {
	return s.resolver.Load().Resolve(tag)
}

// State reports the load state of the grammar for a language tag.
func (s *Service) State(tag string) grammar.State {
	return s.cache.State(s.Resolve(tag))
}

// EnsureLoaded loads the grammar for a language tag
// if it isn't loaded already.
func (s *Service) EnsureLoaded(ctx context.Context, tag string) error {
	return errtrace.Wrap(s.cache.EnsureLoaded(ctx, s.Resolve(tag)))
}

// Highlight renders code written in the language identified by tag.
// The returned HTML has no surrounding element.
//
// Highlight never fails.
// If the grammar can't be loaded or used,
// the code is returned with only '&', '<', and '>' escaped.
func (s *Service) Highlight(ctx context.Context, code []byte, tag string) string {
	name := s.Resolve(tag)
	if name == "" {
		return s.engine.Plain(code)
	}

	if err := s.cache.EnsureLoaded(ctx, name); err != nil {
		s.log.Printf("Highlighting %v as plain text: %v", name, err)
		return s.engine.Plain(code)
	}

	if !s.engine.HasGrammar(name) {
		return s.engine.Plain(code)
	}

	out, err := s.engine.Highlight(code, name)
	if err != nil {
		s.log.Printf("Highlighting %v as plain text: %v", name, err)
		return s.engine.Plain(code)
	}
	return out
}

// Fragment is a piece of code to highlight,
// such as one tab of a tabbed code block.
type Fragment struct {
	// Label identifies the fragment, e.g. the tab title.
	Label string

	// Lang is the user-facing language tag.
	Lang string

	Code []byte
}

// HighlightAll highlights fragments concurrently.
// The result holds the markup for fragments[i] at index i.
func (s *Service) HighlightAll(ctx context.Context, fragments []Fragment) []string {
	out := make([]string, len(fragments))

	var g errgroup.Group
	for i, f := range fragments {
		g.Go(func() error {
			out[i] = s.Highlight(ctx, f.Code, f.Lang)
			return nil
		})
	}
	_ = g.Wait() // Highlight never fails

	return out
}
