package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/averto-io/stratus/model"
)

// snapshot is an immutable view of the loaded schemas. Names are kept
// sorted so List never re-sorts on the read path.
type snapshot struct {
	schemas map[string]model.ResourceSchema
	names   []string
}

// Store is the in-memory index of resource type schemas, keyed by type
// name. Reads take a lock-free snapshot via atomic pointer load; writers
// parse and persist outside the critical section and only swap the pointer
// under the mutex. Loaded documents are mirrored to one JSON file per type
// under dir, when dir is non-empty.
type Store struct {
	dir string

	mu   sync.Mutex // serializes writers
	snap atomic.Pointer[snapshot]
}

// NewStore creates an empty Store persisting to dir. An empty dir disables
// persistence (memory only).
func NewStore(dir string) *Store {
	s := &Store{dir: dir}
	s.snap.Store(&snapshot{schemas: map[string]model.ResourceSchema{}})
	return s
}

// Hydrate loads every persisted schema document from the store directory.
// A malformed document is skipped and reported; it never aborts hydration
// of the remaining types. Returns the number of schemas loaded.
func (s *Store) Hydrate() (int, []error) {
	if s.dir == "" {
		return 0, nil
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, []error{fmt.Errorf("reading schema directory %s: %w", s.dir, err)}
	}

	var errs []error
	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		typeName := typeNameFor(entry.Name())
		raw, err := os.ReadFile(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			errs = append(errs, fmt.Errorf("reading %s: %w", entry.Name(), err))
			continue
		}
		if _, err := s.Load(typeName, raw); err != nil {
			errs = append(errs, err)
			continue
		}
		loaded++
	}
	return loaded, errs
}

// Load parses a raw schema document and atomically replaces any prior
// entry for the type. Parsing and file persistence happen outside the
// critical section; only the pointer swap is locked. There are no partial
// updates: a parse failure leaves the prior entry untouched.
func (s *Store) Load(typeName string, raw []byte) (model.ResourceSchema, error) {
	parsed, err := ParseDocument(typeName, raw)
	if err != nil {
		return model.ResourceSchema{}, err
	}

	if s.dir != "" {
		if err := os.MkdirAll(s.dir, 0o755); err != nil {
			return model.ResourceSchema{}, fmt.Errorf("creating schema directory: %w", err)
		}
		path := filepath.Join(s.dir, fileNameFor(typeName))
		if err := os.WriteFile(path, raw, 0o644); err != nil {
			return model.ResourceSchema{}, fmt.Errorf("persisting schema %s: %w", typeName, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.snap.Load()
	next := &snapshot{schemas: make(map[string]model.ResourceSchema, len(cur.schemas)+1)}
	for k, v := range cur.schemas {
		next.schemas[k] = v
	}
	_, existed := next.schemas[typeName]
	next.schemas[typeName] = parsed

	if existed {
		next.names = cur.names
	} else {
		next.names = make([]string, 0, len(cur.names)+1)
		next.names = append(next.names, cur.names...)
		next.names = append(next.names, typeName)
		sort.Strings(next.names)
	}
	s.snap.Store(next)

	return parsed, nil
}

// Get returns the schema for the given type name.
func (s *Store) Get(typeName string) (model.ResourceSchema, error) {
	sc, ok := s.snap.Load().schemas[typeName]
	if !ok {
		return model.ResourceSchema{}, model.NewNotFoundError(
			fmt.Sprintf("schema for resource type %q not found", typeName),
		)
	}
	return sc, nil
}

// List returns the loaded type names sorted lexicographically. When query
// is non-empty the result is filtered to names containing it,
// case-insensitively.
func (s *Store) List(query string) []string {
	names := s.snap.Load().names
	if query == "" {
		out := make([]string, len(names))
		copy(out, names)
		return out
	}

	q := strings.ToLower(query)
	out := make([]string, 0, len(names))
	for _, n := range names {
		if strings.Contains(strings.ToLower(n), q) {
			out = append(out, n)
		}
	}
	return out
}

// AliasResolve maps a human phrase to a canonical type name using the
// fixed alias table, longest matching alias winning on ties. The type need
// not be loaded for resolution to succeed.
func (s *Store) AliasResolve(phrase string) (string, error) {
	typeName, ok := resolveAlias(phrase)
	if !ok {
		return "", model.NewNotFoundError(
			fmt.Sprintf("no resource type matches %q", phrase),
		)
	}
	return typeName, nil
}

// Len returns the number of loaded schemas.
func (s *Store) Len() int {
	return len(s.snap.Load().names)
}

// fileNameFor converts a type name to its flat-file name:
// AWS::S3::Bucket -> AWS_S3_Bucket.json.
func fileNameFor(typeName string) string {
	return strings.ReplaceAll(typeName, "::", "_") + ".json"
}

// typeNameFor is the inverse of fileNameFor.
func typeNameFor(fileName string) string {
	return strings.ReplaceAll(strings.TrimSuffix(fileName, ".json"), "_", "::")
}
