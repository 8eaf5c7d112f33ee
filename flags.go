package main

import (
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/peterbourgon/ff/v3"
	"go.abhg.dev/docsyntax/internal/flagvalue"
	"go.abhg.dev/docsyntax/internal/grammar"
)

var (
	errHelp             = flag.ErrHelp
	errInvalidArguments = errors.New("invalid arguments")
)

// _defaultConfig is read from the current directory if it exists.
const _defaultConfig = "docsyntax.rc"

// params holds all arguments for docsyntax.
type params struct {
	version bool
	help    Help

	Debug   flagvalue.FileSwitch
	Metrics string
	Config  string

	// Grammar discovery and loading:
	Grammars     string
	Manifest     string
	Probe        []flagvalue.Name
	ProbeFile    templateFlag
	Remote       templateFlag
	Rate         float64
	Builtins     []flagvalue.Name
	RetryFailed  bool
	CustomAlias  bool
	ListGrammars bool

	// HTML output:
	Lang    flagvalue.Name
	Style   string
	Classes bool
	Embed   bool
	Tabs    bool
	Title   string
	CSS     string
	Output  string

	Inputs []string
}

// cliParser parses the command line arguments for docsyntax.
//
// Flags may also be set with DOCSYNTAX_* environment variables
// or in a configuration file.
type cliParser struct {
	Stdout io.Writer
	Stderr io.Writer
}

func (cmd *cliParser) newFlagSet() (*params, *flag.FlagSet) {
	flag := flag.NewFlagSet("docsyntax", flag.ContinueOnError)
	flag.SetOutput(cmd.Stderr)
	flag.Usage = func() {
		_ = DefaultHelp.Write(cmd.Stderr)
	}

	p := params{
		ProbeFile: templateFlag{Template: grammar.MustParseTemplate(grammar.DefaultProbeFile)},
		Remote:    templateFlag{Template: grammar.MustParseTemplate(grammar.DefaultRemoteURL)},
	}

	// Grammars:
	flag.StringVar(&p.Grammars, "grammars", "", "")
	flag.StringVar(&p.Manifest, "manifest", grammar.DefaultManifestFile, "")
	flag.Var(flagvalue.ListOf(&p.Probe), "probe", "")
	flag.Var(&p.ProbeFile, "probe-file", "")
	flag.Var(&p.Remote, "remote", "")
	flag.Float64Var(&p.Rate, "rate", 0, "")
	flag.Var(flagvalue.ListOf(&p.Builtins), "builtin", "")
	flag.BoolVar(&p.RetryFailed, "retry-failed", false, "")
	flag.BoolVar(&p.CustomAlias, "custom-aliases-override", false, "")
	flag.BoolVar(&p.ListGrammars, "list", false, "")

	// HTML output:
	flag.Var(&p.Lang, "lang", "")
	flag.StringVar(&p.Style, "style", "plain", "")
	flag.BoolVar(&p.Classes, "classes", false, "")
	flag.BoolVar(&p.Embed, "embed", false, "")
	flag.BoolVar(&p.Tabs, "tabs", false, "")
	flag.StringVar(&p.Title, "title", "", "")
	flag.StringVar(&p.CSS, "css", "", "")
	flag.StringVar(&p.Output, "out", "-", "")

	// Program-level:
	flag.Var(&p.Debug, "debug", "")
	flag.StringVar(&p.Metrics, "metrics", "", "")
	flag.StringVar(&p.Config, "config", _defaultConfig, "")
	flag.BoolVar(&p.version, "version", false, "")
	flag.Var(&p.help, "help", "")
	flag.Var(&p.help, "h", "")

	return &p, flag
}

func (cmd *cliParser) Parse(args []string) (*params, error) {
	p, flag := cmd.newFlagSet()

	err := ff.Parse(flag, args,
		ff.WithEnvVarPrefix("DOCSYNTAX"),
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
		ff.WithAllowMissingConfigFile(true),
	)
	if err != nil {
		return nil, err
	}
	args = flag.Args()

	if p.version {
		fmt.Fprintln(cmd.Stdout, "docsyntax", _version)
		return nil, errHelp
	}

	if p.help == DefaultHelp && len(args) > 0 {
		// The user might have done "-h foo"
		// instead of "-h=foo".
		// If the argument is a known help topic,
		// take it.
		var h Help
		if err := h.Set(args[0]); err == nil {
			if _, ok := _helpTopics[h]; ok {
				p.help = h
			}
		}
	}

	switch p.help {
	case NoHelp:
		// proceed as usual
	default:
		if err := p.help.Write(cmd.Stderr); err != nil {
			fmt.Fprintln(cmd.Stderr, err)
		}
		return nil, errHelp
	}

	p.Inputs = args
	if len(p.Inputs) == 0 && !p.ListGrammars {
		fmt.Fprintln(cmd.Stderr, "Please provide at least one file.")
		_ = UsageHelp.Write(cmd.Stderr)
		return nil, errInvalidArguments
	}

	return p, nil
}

// templateFlag is a grammar.Template flag.
// An empty value disables the template.
type templateFlag struct {
	Template *grammar.Template
}

var _ flag.Getter = (*templateFlag)(nil)

func (tf *templateFlag) Get() any { return tf.Template }

func (tf *templateFlag) String() string {
	if tf.Template == nil {
		return ""
	}
	return tf.Template.String()
}

func (tf *templateFlag) Set(s string) error {
	if s == "" {
		tf.Template = nil
		return nil
	}

	t, err := grammar.ParseTemplate(s)
	if err != nil {
		return err
	}
	tf.Template = t
	return nil
}
