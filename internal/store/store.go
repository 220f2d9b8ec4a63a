// Package store keeps snapshot revisions on disk.
//
// Layout under the store directory:
//   - The revision index is stored at: <dir>/index.json
//   - Snapshot blobs are stored under: <dir>/blobs/aa/bb/<sha256>
//
// Blobs are content-addressed, so saving the same bytes twice stores them
// once. Every write goes through a temporary file and a rename, so readers
// never observe a partially-written index or blob.
package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// DefaultDir is the store location used when none is configured.
const DefaultDir = "tmp/.sheetdiff"

const (
	indexFileName = "index.json"
	formatVersion = "1"
)

var (
	// ErrNotFound means no revision matches the requested id.
	ErrNotFound = errors.New("store: revision not found")
	// ErrAmbiguous means an id prefix matches more than one revision.
	ErrAmbiguous = errors.New("store: ambiguous revision prefix")
)

// Revision describes one stored snapshot.
type Revision struct {
	ID      string    `json:"id"`
	Hash    string    `json:"hash"`
	Label   string    `json:"label,omitempty"`
	Created time.Time `json:"created"`
	Size    int64     `json:"size"`
}

// ShortHash returns the first 12 characters of the hash, or all of it when
// shorter.
func (r Revision) ShortHash() string {
	if len(r.Hash) > 12 {
		return r.Hash[:12]
	}
	return r.Hash
}

type index struct {
	FormatVersion string     `json:"formatVersion"`
	Revisions     []Revision `json:"revisions"`
}

// Store is a revision store rooted at a directory. It is safe for
// concurrent use within one process.
type Store struct {
	dir string

	mu    sync.Mutex
	now   func() time.Time
	newID func() string
}

// Open prepares the store at dir, creating it if needed. An empty dir means
// DefaultDir.
func Open(dir string) (*Store, error) {
	if dir == "" {
		dir = DefaultDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "open store %s", dir)
	}
	return &Store{dir: dir, now: time.Now, newID: uuid.NewString}, nil
}

// Dir returns the store directory.
func (s *Store) Dir() string { return s.dir }

// Put stores data as a new revision.
func (s *Store) Put(data []byte, label string) (Revision, error) {
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])
	if err := saveBlob(s.dir, hash, data); err != nil {
		return Revision{}, errors.Wrapf(err, "store blob %s", hash[:12])
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	idx, err := s.load()
	if err != nil {
		return Revision{}, err
	}
	rev := Revision{
		ID:      s.newID(),
		Hash:    hash,
		Label:   label,
		Created: s.now().UTC(),
		Size:    int64(len(data)),
	}
	idx.Revisions = append(idx.Revisions, rev)
	sortRevisions(idx.Revisions)
	if err := s.save(idx); err != nil {
		return Revision{}, err
	}
	return rev, nil
}

// List returns every revision, oldest first (ties by id).
func (s *Store) List() ([]Revision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, err := s.load()
	if err != nil {
		return nil, err
	}
	return idx.Revisions, nil
}

// Get resolves a full revision id or a unique prefix of one.
func (s *Store) Get(idOrPrefix string) (Revision, error) {
	idOrPrefix = strings.TrimSpace(idOrPrefix)
	if idOrPrefix == "" {
		return Revision{}, errors.Wrap(ErrNotFound, "empty revision id")
	}
	revs, err := s.List()
	if err != nil {
		return Revision{}, err
	}
	var matches []Revision
	for _, r := range revs {
		if r.ID == idOrPrefix {
			return r, nil
		}
		if strings.HasPrefix(r.ID, idOrPrefix) {
			matches = append(matches, r)
		}
	}
	switch len(matches) {
	case 0:
		return Revision{}, errors.Wrapf(ErrNotFound, "revision %q", idOrPrefix)
	case 1:
		return matches[0], nil
	default:
		return Revision{}, errors.Wrapf(ErrAmbiguous, "revision %q matches %d revisions", idOrPrefix, len(matches))
	}
}

// Read returns the snapshot bytes of rev, verifying them against its hash.
func (s *Store) Read(rev Revision) ([]byte, error) {
	data, err := readBlob(s.dir, rev.Hash)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errors.Wrapf(ErrNotFound, "blob of revision %s", rev.ID)
		}
		return nil, errors.Wrapf(err, "read revision %s", rev.ID)
	}
	sum := sha256.Sum256(data)
	if hex.EncodeToString(sum[:]) != rev.Hash {
		return nil, errors.Errorf("revision %s: blob hash mismatch", rev.ID)
	}
	return data, nil
}

// load reads the index. A missing index is an empty store.
func (s *Store) load() (index, error) {
	b, err := os.ReadFile(filepath.Join(s.dir, indexFileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return index{FormatVersion: formatVersion, Revisions: []Revision{}}, nil
		}
		return index{}, errors.Wrap(err, "read store index")
	}
	var idx index
	if err := json.Unmarshal(b, &idx); err != nil {
		return index{}, errors.Wrap(err, "decode store index")
	}
	if idx.Revisions == nil {
		idx.Revisions = []Revision{}
	}
	return idx, nil
}

func (s *Store) save(idx index) error {
	idx.FormatVersion = formatVersion
	b, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode store index")
	}
	if err := writeAtomic(s.dir, indexFileName, append(b, '\n')); err != nil {
		return errors.Wrap(err, "write store index")
	}
	return nil
}

func sortRevisions(revs []Revision) {
	sort.SliceStable(revs, func(i, j int) bool {
		if !revs[i].Created.Equal(revs[j].Created) {
			return revs[i].Created.Before(revs[j].Created)
		}
		return revs[i].ID < revs[j].ID
	})
}
