package templates

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-formstate/pkg/schema"
)

// ErrUnknownTemplate is returned by Registry.Get for unregistered ids.
var ErrUnknownTemplate = errors.New("templates: unknown template")

// Registry resolves template ids to sources and caches what it has loaded.
// Loaded templates are read-only, so one copy is shared by every session.
type Registry struct {
	loader *Loader

	mu      sync.Mutex
	sources map[string]Source
	loaded  map[string]schema.FormTemplate
}

// NewRegistry returns an empty registry that loads through loader.
func NewRegistry(loader *Loader) *Registry {
	if loader == nil {
		loader = NewLoader()
	}
	return &Registry{
		loader:  loader,
		sources: make(map[string]Source),
		loaded:  make(map[string]schema.FormTemplate),
	}
}

// Register maps id to src, dropping any cached copy.
func (r *Registry) Register(id string, src Source) error {
	if id == "" {
		return errors.New("templates: template id is required")
	}
	if src == nil {
		return errors.New("templates: source is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[id] = src
	delete(r.loaded, id)
	return nil
}

// RegisterDir registers every .json, .yaml and .yml file directly under dir
// by the id it declares, or by its file name when it declares none. It
// returns the registered ids, sorted.
func (r *Registry) RegisterDir(ctx context.Context, dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("templates: read dir %s: %w", dir, err)
	}
	seen := make(map[string]string)
	var ids []string
	for _, entry := range entries {
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if entry.IsDir() || (ext != ".json" && ext != ".yaml" && ext != ".yml") {
			continue
		}
		src := SourceFromFile(filepath.Join(dir, entry.Name()))
		doc, err := r.loader.Read(ctx, src)
		if err != nil {
			return nil, err
		}
		tpl, err := parseTemplate(doc.raw, doc.Location())
		if err != nil {
			return nil, err
		}
		id := tpl.ID
		if id == "" {
			id = strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		}
		if prev, dup := seen[id]; dup {
			return nil, fmt.Errorf("templates: %s and %s both declare id %q", prev, src.Location(), id)
		}
		seen[id] = src.Location()
		if err := r.Register(id, src); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Get returns the hydrated template registered under id.
func (r *Registry) Get(ctx context.Context, id string) (schema.FormTemplate, error) {
	r.mu.Lock()
	if tpl, ok := r.loaded[id]; ok {
		r.mu.Unlock()
		return tpl, nil
	}
	src, ok := r.sources[id]
	r.mu.Unlock()
	if !ok {
		return schema.FormTemplate{}, fmt.Errorf("%w: %q", ErrUnknownTemplate, id)
	}

	tpl, _, err := r.loader.Load(ctx, src)
	if err != nil {
		return schema.FormTemplate{}, err
	}
	if tpl.ID != "" && tpl.ID != id {
		return schema.FormTemplate{}, fmt.Errorf("templates: %s declares id %q, registered as %q", src.Location(), tpl.ID, id)
	}

	r.mu.Lock()
	r.loaded[id] = tpl
	r.mu.Unlock()
	return tpl, nil
}

// IDs lists registered template ids, sorted.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.sources))
	for id := range r.sources {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
