package artifact

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/anatolykoptev/go_transcribe/internal/engine"
)

// Store indexes committed artifacts by ID and by (session, kind).
// Every Create gets its own path, so concurrent requests never share a file;
// committing replaces the session's previous artifact of the same kind.
// A replaced artifact that is still held stays on disk until its last release.
type Store struct {
	dir string
	ttl time.Duration

	mu      sync.Mutex
	byID    map[string]*Artifact
	latest  map[slot]string // (session, kind) → artifact ID
	holds   map[string]int
	retired map[string]*Artifact // replaced or expired while held
}

type slot struct {
	session string
	kind    Kind
}

// NewStore creates dir if needed and removes orphaned artifact files older than
// ttl left behind by a previous process.
func NewStore(dir string, ttl time.Duration) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	s := &Store{
		dir:    dir,
		ttl:    ttl,
		byID:    make(map[string]*Artifact),
		latest:  make(map[slot]string),
		holds:   make(map[string]int),
		retired: make(map[string]*Artifact),
	}
	if n := s.removeOrphans(time.Now()); n > 0 {
		slog.Info("artifact: removed orphaned files", slog.Int("count", n), slog.String("dir", dir))
	}
	return s, nil
}

// Dir returns the directory artifacts are written to.
func (s *Store) Dir() string {
	return s.dir
}

// Create opens a new, uniquely named file for a download in progress.
// ext includes the leading dot (".mp4") or is empty.
func (s *Store) Create(session string, kind Kind, ext string) (*Pending, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("artifact: unknown kind %q", kind)
	}
	id := newID()
	path := filepath.Join(s.dir, string(kind)+"-"+id+ext)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create artifact: %w", err)
	}
	return &Pending{
		store: s,
		file:  f,
		art: &Artifact{
			ID:      id,
			Session: session,
			Kind:    kind,
			Path:    path,
		},
	}, nil
}

// Get returns the artifact with id if it belongs to session.
func (s *Store) Get(session, id string) (*Artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byID[id]
	if !ok || a.Session != session {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

// Latest returns the session's current artifact of the given kind.
func (s *Store) Latest(session string, kind Kind) (*Artifact, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.latest[slot{session, kind}]
	if !ok {
		return nil, false
	}
	cp := *s.byID[id]
	return &cp, true
}

// Len returns the number of committed artifacts.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

// Sweep removes artifacts created before now-ttl and returns how many were removed.
func (s *Store) Sweep(now time.Time) int {
	if s.ttl <= 0 {
		return 0
	}
	cutoff := now.Add(-s.ttl)

	s.mu.Lock()
	var expired []*Artifact
	for id, a := range s.byID {
		if a.CreatedAt.Before(cutoff) {
			delete(s.byID, id)
			key := slot{a.Session, a.Kind}
			if s.latest[key] == id {
				delete(s.latest, key)
			}
			if s.holds[id] > 0 {
				s.retired[id] = a
				continue
			}
			expired = append(expired, a)
		}
	}
	s.mu.Unlock()

	for _, a := range expired {
		removeFile(a.Path)
	}
	if len(expired) > 0 {
		engine.IncrArtifactsSwept(len(expired))
		slog.Debug("artifact: swept", slog.Int("count", len(expired)))
	}
	return len(expired)
}

// Run sweeps expired artifacts every interval until ctx is done.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.Sweep(now)
		}
	}
}

// commit registers a, holding it when hold is set, and returns the replaced
// artifact whose file can be removed now. A replaced artifact that is still
// held is retired instead and removed by its last release.
func (s *Store) commit(a *Artifact, hold bool) *Artifact {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := slot{a.Session, a.Kind}
	var prev *Artifact
	if id, ok := s.latest[key]; ok {
		prev = s.byID[id]
		delete(s.byID, id)
		if s.holds[id] > 0 {
			s.retired[id] = prev
			prev = nil
		}
	}
	s.byID[a.ID] = a
	s.latest[key] = a.ID
	if hold {
		s.holds[a.ID]++
	}
	return prev
}

// release drops one hold on id and removes the file of a retired artifact
// once nothing holds it.
func (s *Store) release(id string) {
	s.mu.Lock()
	s.holds[id]--
	if s.holds[id] > 0 {
		s.mu.Unlock()
		return
	}
	delete(s.holds, id)
	a, ok := s.retired[id]
	delete(s.retired, id)
	s.mu.Unlock()

	if ok {
		removeFile(a.Path)
	}
}

func (s *Store) removeOrphans(now time.Time) int {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0
	}
	n := 0
	for _, e := range entries {
		if e.IsDir() || !isArtifactName(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if s.ttl > 0 && now.Sub(info.ModTime()) < s.ttl {
			continue
		}
		if os.Remove(filepath.Join(s.dir, e.Name())) == nil {
			n++
		}
	}
	return n
}

// isArtifactName matches "<kind>-<uuid>[.ext]".
func isArtifactName(name string) bool {
	name = strings.TrimSuffix(name, filepath.Ext(name))
	for _, k := range []Kind{KindVideo, KindAudio, KindTranscribed} {
		rest, ok := strings.CutPrefix(name, string(k)+"-")
		if !ok {
			continue
		}
		if _, err := uuid.Parse(rest); err == nil {
			return true
		}
	}
	return false
}

// newID returns a UUIDv7 so IDs sort by creation time.
func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func removeFile(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("artifact: remove failed", slog.String("path", path), slog.Any("error", err))
	}
}

// Pending is an artifact being written. Exactly one of Commit or Discard
// takes effect; calling Discard after Commit is a no-op.
type Pending struct {
	store *Store
	file  *os.File
	art   *Artifact
	done  bool
}

// Write implements io.Writer.
func (p *Pending) Write(b []byte) (int, error) {
	return p.file.Write(b)
}

// Path returns the file being written.
func (p *Pending) Path() string {
	return p.art.Path
}

// Commit closes the file, renames it when ext differs from the one chosen at
// Create, and makes it the session's current artifact of its kind.
func (p *Pending) Commit(mimeType, ext string) (*Artifact, error) {
	return p.commit(mimeType, ext, false)
}

// CommitHeld is Commit for callers that keep reading the file afterwards.
// The file survives a concurrent replacement or sweep until release is called;
// release is safe to call more than once.
func (p *Pending) CommitHeld(mimeType, ext string) (a *Artifact, release func(), err error) {
	a, err = p.commit(mimeType, ext, true)
	if err != nil {
		return nil, func() {}, err
	}
	var once sync.Once
	id := a.ID
	return a, func() { once.Do(func() { p.store.release(id) }) }, nil
}

func (p *Pending) commit(mimeType, ext string, hold bool) (*Artifact, error) {
	if p.done {
		return nil, errors.New("artifact: already finished")
	}
	p.done = true

	if err := p.file.Close(); err != nil {
		removeFile(p.art.Path)
		return nil, fmt.Errorf("close artifact: %w", err)
	}

	if cur := filepath.Ext(p.art.Path); ext != "" && ext != cur {
		renamed := strings.TrimSuffix(p.art.Path, cur) + ext
		if err := os.Rename(p.art.Path, renamed); err != nil {
			removeFile(p.art.Path)
			return nil, fmt.Errorf("rename artifact: %w", err)
		}
		p.art.Path = renamed
	}

	info, err := os.Stat(p.art.Path)
	if err != nil {
		removeFile(p.art.Path)
		return nil, fmt.Errorf("stat artifact: %w", err)
	}
	p.art.Size = info.Size()
	p.art.MimeType = mimeType
	p.art.CreatedAt = time.Now()

	if prev := p.store.commit(p.art, hold); prev != nil {
		removeFile(prev.Path)
	}
	cp := *p.art
	return &cp, nil
}

// Discard closes and removes the partial file.
func (p *Pending) Discard() {
	if p.done {
		return
	}
	p.done = true
	_ = p.file.Close()
	removeFile(p.art.Path)
}
