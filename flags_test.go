package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.abhg.dev/docsyntax/internal/flagvalue"
	"go.abhg.dev/docsyntax/internal/grammar"
	"go.abhg.dev/docsyntax/internal/iotest"
)

func TestCLIParser(t *testing.T) {
	t.Parallel()

	defaults := func(p params) params {
		if p.Manifest == "" {
			p.Manifest = grammar.DefaultManifestFile
		}
		if p.Style == "" {
			p.Style = "plain"
		}
		if p.Output == "" {
			p.Output = "-"
		}
		if p.Config == "" {
			p.Config = _defaultConfig
		}
		return p
	}

	tests := []struct {
		desc string
		give []string
		want params

		wantRemote    string
		wantProbeFile string
	}{
		{
			desc:          "minimal",
			give:          []string{"main.go"},
			want:          defaults(params{Inputs: []string{"main.go"}}),
			wantRemote:    grammar.DefaultRemoteURL,
			wantProbeFile: grammar.DefaultProbeFile,
		},
		{
			desc: "many arguments",
			give: []string{
				"-grammars", "https://example.com/grammars",
				"-manifest=index.json",
				"-probe", "queryql,graphql",
				"-probe=HCL",
				"-probe-file", "prism-{{ .Name }}.xml",
				"-remote", "https://example.com/{{ .Name }}.xml",
				"-rate", "2.5",
				"-builtin", "go,python",
				"-retry-failed",
				"-custom-aliases-override",
				"-lang", "Py",
				"-style", "monokai",
				"-classes",
				"-embed",
				"-tabs",
				"-title", "Examples",
				"-css", "style.css",
				"-out", "index.html",
				"-debug=debug.log",
				"-metrics", "metrics.txt",
				"a.py", "b.py",
			},
			want: defaults(params{
				Grammars:    "https://example.com/grammars",
				Manifest:    "index.json",
				Probe:       []flagvalue.Name{"queryql", "graphql", "hcl"},
				Rate:        2.5,
				Builtins:    []flagvalue.Name{"go", "python"},
				RetryFailed: true,
				CustomAlias: true,
				Lang:        "py",
				Style:       "monokai",
				Classes:     true,
				Embed:       true,
				Tabs:        true,
				Title:       "Examples",
				CSS:         "style.css",
				Output:      "index.html",
				Debug:       "debug.log",
				Metrics:     "metrics.txt",
				Inputs:      []string{"a.py", "b.py"},
			}),
			wantRemote:    "https://example.com/{{ .Name }}.xml",
			wantProbeFile: "prism-{{ .Name }}.xml",
		},
		{
			desc:          "remote disabled",
			give:          []string{"-remote=", "-debug", "main.go"},
			want:          defaults(params{Debug: "-", Inputs: []string{"main.go"}}),
			wantProbeFile: grammar.DefaultProbeFile,
		},
		{
			desc:          "list without files",
			give:          []string{"-list"},
			want:          defaults(params{ListGrammars: true, Inputs: []string{}}),
			wantRemote:    grammar.DefaultRemoteURL,
			wantProbeFile: grammar.DefaultProbeFile,
		},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			t.Parallel()

			got, err := (&cliParser{
				Stderr: iotest.Writer(t),
			}).Parse(tt.give)
			require.NoError(t, err)

			assert.Equal(t, tt.wantRemote, got.Remote.String(), "remote")
			assert.Equal(t, tt.wantProbeFile, got.ProbeFile.String(), "probe file")

			// Templates hold functions and can't be compared.
			got.Remote = templateFlag{}
			got.ProbeFile = templateFlag{}
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestCLIParser_configFile(t *testing.T) {
	t.Parallel()

	config := filepath.Join(t.TempDir(), "docsyntax.rc")
	require.NoError(t, os.WriteFile(config, []byte(`
# grammars for the docs
grammars ./grammars
probe queryql
probe graphql
style monokai
classes
`), 0o644))

	got, err := (&cliParser{
		Stderr: iotest.Writer(t),
	}).Parse([]string{"-config", config, "-style", "github", "main.go"})
	require.NoError(t, err)

	assert.Equal(t, "./grammars", got.Grammars)
	assert.Equal(t, []flagvalue.Name{"queryql", "graphql"}, got.Probe)
	assert.True(t, got.Classes)
	assert.Equal(t, "github", got.Style, "command line wins over config file")
}

func TestCLIParser_configFileUnknownFlag(t *testing.T) {
	t.Parallel()

	config := filepath.Join(t.TempDir(), "docsyntax.rc")
	require.NoError(t, os.WriteFile(config, []byte("no-such-flag 42\n"), 0o644))

	_, err := (&cliParser{
		Stderr: iotest.Writer(t),
	}).Parse([]string{"-config", config, "main.go"})
	assert.ErrorContains(t, err, "no-such-flag")
}

// Not parallel: modifies the environment.
func TestCLIParser_env(t *testing.T) {
	t.Setenv("DOCSYNTAX_STYLE", "dracula")
	t.Setenv("DOCSYNTAX_RETRY_FAILED", "true")
	t.Setenv("DOCSYNTAX_LANG", "py")

	got, err := (&cliParser{
		Stderr: iotest.Writer(t),
	}).Parse([]string{"-lang", "go", "main.go"})
	require.NoError(t, err)

	assert.Equal(t, "dracula", got.Style)
	assert.True(t, got.RetryFailed)
	assert.Equal(t, flagvalue.Name("go"), got.Lang, "command line wins over environment")
}

func TestCLIParser_errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		desc    string
		give    []string
		wantErr error
		wantOut string
	}{
		{
			desc:    "no files",
			wantErr: errInvalidArguments,
			wantOut: "Please provide at least one file.",
		},
		{
			desc:    "help",
			give:    []string{"-h"},
			wantErr: errHelp,
			wantOut: "USAGE: docsyntax",
		},
		{
			desc:    "help topic argument",
			give:    []string{"-h", "aliases"},
			wantErr: errHelp,
			wantOut: "ALIASES",
		},
		{
			desc:    "help with a file",
			give:    []string{"-h", "main.go"},
			wantErr: errHelp,
			wantOut: "USAGE: docsyntax",
		},
		{
			desc:    "unknown help topic",
			give:    []string{"-help=nope"},
			wantErr: errHelp,
			wantOut: `unknown help topic "nope"`,
		},
		{
			desc:    "empty lang",
			give:    []string{"-lang", " ", "main.go"},
			wantOut: "name must not be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			t.Parallel()

			var stderr bytes.Buffer
			_, err := (&cliParser{
				Stdout: iotest.Writer(t),
				Stderr: &stderr,
			}).Parse(tt.give)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.Contains(t, stderr.String(), tt.wantOut)
		})
	}
}
