package policy

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/averto-io/stratus/model"
)

// Extension is the file extension every stored rule name carries.
const Extension = ".guard"

// Store keeps rules as flat files, one file per rule name. The files
// are the source of truth; no in-memory copy is maintained, so list,
// get, and delete map 1:1 to file presence.
type Store struct {
	dir    string
	logger *zap.Logger

	mu sync.RWMutex
}

// NewStore creates the rule directory if needed.
func NewStore(dir string, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating rules dir %s: %w", dir, err)
	}
	return &Store{dir: dir, logger: logger}, nil
}

// normalizeName validates a rule name and ensures the extension. A name
// with a different extension, a path separator, or no base is rejected.
func normalizeName(name string) (string, error) {
	if name == "" {
		return "", model.NewBadRequestError("rule name must not be empty")
	}
	if strings.ContainsAny(name, `/\`) || name != filepath.Base(name) {
		return "", model.NewBadRequestError(fmt.Sprintf("rule name %q must not contain path separators", name))
	}
	if ext := filepath.Ext(name); ext != "" && ext != Extension {
		return "", model.NewBadRequestError(fmt.Sprintf("rule name %q must use the %s extension", name, Extension))
	}
	if !strings.HasSuffix(name, Extension) {
		name += Extension
	}
	if name == Extension {
		return "", model.NewBadRequestError("rule name must not be empty")
	}
	return name, nil
}

// Put creates or replaces a rule. Content is stored verbatim; it is not
// required to parse, so operators can stage drafts.
func (s *Store) Put(name, content string) error {
	name, err := normalizeName(name)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.WriteFile(filepath.Join(s.dir, name), []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing rule %s: %w", name, err)
	}
	return nil
}

// Get returns the raw content of a stored rule.
func (s *Store) Get(name string) (string, error) {
	name, err := normalizeName(name)
	if err != nil {
		return "", err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	raw, err := os.ReadFile(filepath.Join(s.dir, name))
	if os.IsNotExist(err) {
		return "", model.NewNotFoundError(fmt.Sprintf("rule %s not found", name))
	}
	if err != nil {
		return "", fmt.Errorf("reading rule %s: %w", name, err)
	}
	return string(raw), nil
}

// Delete removes a rule permanently.
func (s *Store) Delete(name string) error {
	name, err := normalizeName(name)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	err = os.Remove(filepath.Join(s.dir, name))
	if os.IsNotExist(err) {
		return model.NewNotFoundError(fmt.Sprintf("rule %s not found", name))
	}
	if err != nil {
		return fmt.Errorf("deleting rule %s: %w", name, err)
	}
	return nil
}

// List returns the stored rule names, sorted.
func (s *Store) List() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("listing rules dir %s: %w", s.dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), Extension) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// SeedExamples writes a starter set of S3 rules when the store is
// empty, so a fresh deployment has something to evaluate against.
func (s *Store) SeedExamples() error {
	existing, err := s.List()
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	for name, content := range seedRules {
		if err := s.Put(name, content); err != nil {
			return err
		}
		if s.logger != nil {
			s.logger.Info("seeded example rule", zap.String("rule", name))
		}
	}
	return nil
}

var seedRules = map[string]string{
	"s3_bucket_encryption.guard": `# S3 buckets must have server-side encryption configured
rule s3_bucket_encryption_enabled {
    AWS::S3::Bucket {
        BucketEncryption exists
        BucketEncryption is_struct
        BucketEncryption {
            ServerSideEncryptionConfiguration exists
            ServerSideEncryptionConfiguration is_list
            ServerSideEncryptionConfiguration[*] {
                ServerSideEncryptionByDefault exists
            }
        }
    }
}
`,
	"s3_bucket_versioning.guard": `# S3 buckets must have versioning enabled
rule s3_bucket_versioning_enabled {
    AWS::S3::Bucket {
        VersioningConfiguration exists
        VersioningConfiguration is_struct
        VersioningConfiguration {
            Status exists
            Status == "Enabled"
        }
    }
}
`,
	"s3_bucket_public_access.guard": `# S3 buckets must block public access
rule s3_bucket_public_access_blocked {
    AWS::S3::Bucket {
        PublicAccessBlockConfiguration exists
        PublicAccessBlockConfiguration is_struct
        PublicAccessBlockConfiguration {
            BlockPublicAcls == true
            BlockPublicPolicy == true
            IgnorePublicAcls == true
            RestrictPublicBuckets == true
        }
    }
}
`,
}
