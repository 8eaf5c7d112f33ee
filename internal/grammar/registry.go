package grammar

import (
	"context"
	"io"
	"log"
	"slices"
	"sync"

	"braces.dev/errtrace"
	"go.abhg.dev/docsyntax/internal/sliceutil"
	"golang.org/x/sync/errgroup"
)

// DefaultManifestFile is the manifest read from a Source
// if Registry.ManifestFile is unset.
const DefaultManifestFile = "manifest.json"

// DefaultProbeConcurrency bounds how many probes run at once
// if Registry.ProbeConcurrency is unset.
const DefaultProbeConcurrency = 8

// Registry tracks the custom grammars available in a Source.
//
// Call Discover once before using the registry.
// Lookups before that find nothing.
type Registry struct {
	// Source holds the custom grammars.
	// If nil, discovery finds nothing.
	Source Source

	// ManifestFile is the path of the manifest in Source.
	// Defaults to DefaultManifestFile.
	ManifestFile string

	// Candidates are the grammar names probed for
	// if the manifest can't be used.
	Candidates []string

	// ProbeFile addresses the file probed for each candidate.
	// Defaults to DefaultProbeFile.
	ProbeFile *Template

	// ProbeConcurrency bounds the number of probes in flight.
	ProbeConcurrency int

	Log     *log.Logger
	Metrics *Metrics

	once   sync.Once
	mu     sync.RWMutex
	descs  []*Descriptor
	byName map[string]*Descriptor
	byTag  map[string]*Descriptor // aliases only
}

func (r *Registry) logger() *log.Logger {
	if r.Log != nil {
		return r.Log
	}
	return log.New(io.Discard, "", 0)
}

// Discover finds the custom grammars held by the Source.
//
// It prefers the manifest, and falls back to probing the candidates.
// Failures are logged and leave the registry smaller or empty;
// Discover never fails.
// Only the first call does any work;
// later calls return the same result.
func (r *Registry) Discover(ctx context.Context) []*Descriptor {
	r.once.Do(func() {
		descs, method := r.discover(ctx)
		r.Metrics.discovered(method, len(descs))

		r.mu.Lock()
		defer r.mu.Unlock()
		r.index(descs)
	})
	return r.Descriptors()
}

func (r *Registry) discover(ctx context.Context) ([]*Descriptor, string) {
	log := r.logger()
	if r.Source == nil {
		return nil, "none"
	}

	descs, err := r.readManifest(ctx)
	if err == nil {
		log.Printf("Found %d custom grammars in manifest", len(descs))
		return descs, "manifest"
	}
	log.Printf("Unable to use grammar manifest: %v", err)

	descs = r.probe(ctx)
	if len(descs) == 0 {
		log.Printf("No custom grammars found")
		return nil, "none"
	}
	log.Printf("Found %d custom grammars by probing", len(descs))
	return descs, "probe"
}

func (r *Registry) readManifest(ctx context.Context) ([]*Descriptor, error) {
	file := r.ManifestFile
	if file == "" {
		file = DefaultManifestFile
	}

	bs, err := r.Source.Fetch(ctx, file)
	if err != nil {
		return nil, errtrace.Wrap(err)
	}
	descs, err := parseManifestFile(file, bs)
	return descs, errtrace.Wrap(err)
}

// probe checks for each candidate concurrently.
// Individual probe failures are logged and skipped.
func (r *Registry) probe(ctx context.Context) []*Descriptor {
	log := r.logger()
	tmpl := r.ProbeFile
	if tmpl == nil {
		tmpl = MustParseTemplate(DefaultProbeFile)
	}
	limit := r.ProbeConcurrency
	if limit <= 0 {
		limit = DefaultProbeConcurrency
	}

	// found[i] is set if Candidates[i] exists.
	found := make([]*Descriptor, len(r.Candidates))

	var g errgroup.Group
	g.SetLimit(limit)
	for i, name := range r.Candidates {
		name = normalizeName(name)
		if name == "" {
			continue
		}

		g.Go(func() error {
			file, err := tmpl.Expand(name)
			if err != nil {
				log.Printf("Probe %v: %v", name, err)
				return nil
			}

			ok, err := r.Source.Exists(ctx, file)
			if err != nil {
				log.Printf("Probe %v: %v", name, err)
				return nil
			}
			if ok {
				found[i] = newDescriptor(name, file, nil, "")
			}
			return nil
		})
	}
	_ = g.Wait() // probes never fail the group

	return sliceutil.RemoveNil(found)
}

// index must be called with mu held.
func (r *Registry) index(descs []*Descriptor) {
	r.descs = descs
	r.byName = make(map[string]*Descriptor, len(descs))
	r.byTag = make(map[string]*Descriptor)
	for _, d := range descs {
		r.byName[d.Name] = d
		for _, a := range d.Aliases {
			// Later descriptors win alias collisions.
			r.byTag[a] = d
		}
	}
}

// Descriptors returns the discovered grammars
// in manifest or candidate order.
func (r *Registry) Descriptors() []*Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.descs)
}

// Lookup finds a custom grammar by name or alias.
// Names take precedence over aliases.
func (r *Registry) Lookup(nameOrAlias string) (*Descriptor, bool) {
	key := normalizeName(nameOrAlias)

	r.mu.RLock()
	defer r.mu.RUnlock()
	if d, ok := r.byName[key]; ok {
		return d, true
	}
	d, ok := r.byTag[key]
	return d, ok
}

// Aliases returns a mapping from every custom alias
// to the name of the grammar it refers to.
func (r *Registry) Aliases() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	aliases := make(map[string]string, len(r.byTag))
	for a, d := range r.byTag {
		aliases[a] = d.Name
	}
	return aliases
}

// Fetch retrieves the grammar file for a descriptor.
func (r *Registry) Fetch(ctx context.Context, d *Descriptor) ([]byte, error) {
	if r.Source == nil {
		return nil, errtrace.Wrap(ErrNotFound)
	}
	bs, err := r.Source.Fetch(ctx, d.File)
	return bs, errtrace.Wrap(err)
}
