package render

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/flosch/pongo2/v6"
)

// templateIDPattern validates the user-facing template id, per spec.md
// §4.4.1.
var templateIDPattern = regexp.MustCompile(`^[A-Za-z0-9._\-]{1,64}$`)

// DefaultTemplateID is substituted whenever a requested template id is
// invalid or empty.
const DefaultTemplateID = "default"

// NormalizeTemplateID returns id if it matches templateIDPattern,
// otherwise DefaultTemplateID.
func NormalizeTemplateID(id string) string {
	if id != "" && templateIDPattern.MatchString(id) {
		return id
	}
	return DefaultTemplateID
}

// cacheKey identifies one cached parse of a template file by its path and
// the mtime/size pair observed at parse time, so an edited file on disk
// is reparsed rather than served stale.
type cacheKey struct {
	path  string
	mtime int64
	size  int64
}

// TemplateStore parses and caches .svg.jinja templates, keyed by (path,
// mtime, size) per §4.4.1. The optional sibling .json layout file is only
// located by LayoutPath; the store does not read or cache it.
type TemplateStore struct {
	basePath string

	mu    sync.Mutex
	cache map[string]cacheEntry
}

type cacheEntry struct {
	key cacheKey
	tpl *pongo2.Template
}

// NewTemplateStore creates a store rooted at
// {basePath}/templates/{kind}/{id}.svg.jinja.
func NewTemplateStore(basePath string) *TemplateStore {
	return &TemplateStore{
		basePath: basePath,
		cache:    make(map[string]cacheEntry),
	}
}

// Path returns the on-disk path for a (kind, id) template.
func (s *TemplateStore) Path(kind, id string) string {
	return filepath.Join(s.basePath, "templates", kind, NormalizeTemplateID(id)+".svg.jinja")
}

// LayoutPath returns the on-disk path for the optional sibling layout
// JSON file.
func (s *TemplateStore) LayoutPath(kind, id string) string {
	return filepath.Join(s.basePath, "templates", kind, NormalizeTemplateID(id)+".json")
}

// Get returns the parsed template for (kind, id), reparsing it if the
// file's mtime or size has changed since the last parse.
func (s *TemplateStore) Get(kind, id string) (*pongo2.Template, error) {
	path := s.Path(kind, id)

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("render: template %s/%s not found: %w", kind, id, err)
	}
	key := cacheKey{path: path, mtime: info.ModTime().UnixNano(), size: info.Size()}

	s.mu.Lock()
	if entry, ok := s.cache[path]; ok && entry.key == key {
		s.mu.Unlock()
		return entry.tpl, nil
	}
	s.mu.Unlock()

	tpl, err := pongo2.FromFile(path)
	if err != nil {
		return nil, fmt.Errorf("render: failed to parse template %s: %w", path, err)
	}

	s.mu.Lock()
	s.cache[path] = cacheEntry{key: key, tpl: tpl}
	s.mu.Unlock()

	return tpl, nil
}
