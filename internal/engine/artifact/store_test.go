package artifact

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeArtifact(t *testing.T, s *Store, session string, kind Kind, data string) *Artifact {
	t.Helper()
	p, err := s.Create(session, kind, ".mp4")
	require.NoError(t, err)
	_, err = p.Write([]byte(data))
	require.NoError(t, err)
	a, err := p.Commit("video/mp4", "")
	require.NoError(t, err)
	return a
}

func TestCreateCommit(t *testing.T) {
	s, err := NewStore(t.TempDir(), time.Hour)
	require.NoError(t, err)

	a := writeArtifact(t, s, "sess", KindVideo, "payload")

	assert.Equal(t, int64(len("payload")), a.Size)
	assert.Equal(t, "video/mp4", a.MimeType)
	assert.Equal(t, "downloaded_video.mp4", a.FileName())
	assert.True(t, strings.HasPrefix(filepath.Base(a.Path), "video-"))

	got, err := s.Get("sess", a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.Path, got.Path)

	_, err = s.Get("other", a.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	latest, ok := s.Latest("sess", KindVideo)
	require.True(t, ok)
	assert.Equal(t, a.ID, latest.ID)
}

func TestCommitReplacesPrevious(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir, time.Hour)
	require.NoError(t, err)

	first := writeArtifact(t, s, "sess", KindAudio, "one")
	second := writeArtifact(t, s, "sess", KindAudio, "two")

	assert.NotEqual(t, first.Path, second.Path)
	_, err = os.Stat(first.Path)
	assert.True(t, os.IsNotExist(err), "previous artifact file must be removed")

	_, err = s.Get("sess", first.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, s.Len())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSessionsAreIsolated(t *testing.T) {
	s, err := NewStore(t.TempDir(), time.Hour)
	require.NoError(t, err)

	a := writeArtifact(t, s, "alice", KindVideo, "a")
	b := writeArtifact(t, s, "bob", KindVideo, "b")

	assert.NotEqual(t, a.Path, b.Path)
	assert.Equal(t, 2, s.Len())

	data, err := os.ReadFile(a.Path)
	require.NoError(t, err)
	assert.Equal(t, "a", string(data))
}

func TestConcurrentCreateUniquePaths(t *testing.T) {
	s, err := NewStore(t.TempDir(), time.Hour)
	require.NoError(t, err)

	const n = 16
	paths := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := s.Create("shared", KindAudio, ".mp4")
			if err != nil {
				t.Error(err)
				return
			}
			paths <- p.Path()
			p.Discard()
		}()
	}
	wg.Wait()
	close(paths)

	seen := make(map[string]bool)
	for p := range paths {
		assert.False(t, seen[p], "duplicate path %s", p)
		seen[p] = true
	}
	assert.Len(t, seen, n)
}

func TestDiscard(t *testing.T) {
	s, err := NewStore(t.TempDir(), time.Hour)
	require.NoError(t, err)

	p, err := s.Create("sess", KindVideo, ".mp4")
	require.NoError(t, err)
	_, err = p.Write([]byte("partial"))
	require.NoError(t, err)
	p.Discard()
	p.Discard()

	_, err = os.Stat(p.Path())
	assert.True(t, os.IsNotExist(err))
	assert.Equal(t, 0, s.Len())

	_, err = p.Commit("video/mp4", "")
	assert.Error(t, err)
}

func TestCommitRenamesExtension(t *testing.T) {
	s, err := NewStore(t.TempDir(), time.Hour)
	require.NoError(t, err)

	p, err := s.Create("sess", KindAudio, ".mp4")
	require.NoError(t, err)
	a, err := p.Commit("audio/webm", ".webm")
	require.NoError(t, err)

	assert.Equal(t, ".webm", filepath.Ext(a.Path))
	assert.Equal(t, "downloaded_audio.webm", a.FileName())
	_, err = os.Stat(a.Path)
	assert.NoError(t, err)
}

func TestCreateRejectsUnknownKind(t *testing.T) {
	s, err := NewStore(t.TempDir(), time.Hour)
	require.NoError(t, err)
	_, err = s.Create("sess", Kind("subtitles"), ".vtt")
	assert.Error(t, err)
}

func TestSweep(t *testing.T) {
	s, err := NewStore(t.TempDir(), time.Minute)
	require.NoError(t, err)

	a := writeArtifact(t, s, "sess", KindVideo, "x")

	assert.Equal(t, 0, s.Sweep(time.Now()))
	assert.Equal(t, 1, s.Sweep(time.Now().Add(2*time.Minute)))

	_, ok := s.Latest("sess", KindVideo)
	assert.False(t, ok)
	_, err = os.Stat(a.Path)
	assert.True(t, os.IsNotExist(err))
}

func TestRunStopsOnCancel(t *testing.T) {
	s, err := NewStore(t.TempDir(), time.Millisecond)
	require.NoError(t, err)
	writeArtifact(t, s, "sess", KindVideo, "x")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx, 2*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return s.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestNewStoreRemovesOrphans(t *testing.T) {
	dir := t.TempDir()
	orphan := filepath.Join(dir, "video-01890a5d-ac96-774b-bcce-b302099a8057.mp4")
	keep := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(orphan, []byte("old"), 0o644))
	require.NoError(t, os.WriteFile(keep, []byte("mine"), 0o644))
	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(orphan, old, old))

	_, err := NewStore(dir, time.Hour)
	require.NoError(t, err)

	_, err = os.Stat(orphan)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(keep)
	assert.NoError(t, err)
}

func TestHeldArtifactSurvivesReplacement(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir, time.Hour)
	require.NoError(t, err)

	p, err := s.Create("sess", KindTranscribed, ".mp4")
	require.NoError(t, err)
	_, err = p.Write([]byte("first"))
	require.NoError(t, err)
	held, release, err := p.CommitHeld("audio/mp4", "")
	require.NoError(t, err)

	next := writeArtifact(t, s, "sess", KindTranscribed, "second")

	data, err := os.ReadFile(held.Path)
	require.NoError(t, err, "held file must outlive its replacement")
	assert.Equal(t, "first", string(data))
	_, err = s.Get("sess", held.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	latest, ok := s.Latest("sess", KindTranscribed)
	require.True(t, ok)
	assert.Equal(t, next.ID, latest.ID)

	release()
	release()
	_, err = os.Stat(held.Path)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(next.Path)
	assert.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestReleaseKeepsCurrentArtifact(t *testing.T) {
	s, err := NewStore(t.TempDir(), time.Hour)
	require.NoError(t, err)

	p, err := s.Create("sess", KindAudio, ".mp4")
	require.NoError(t, err)
	a, release, err := p.CommitHeld("audio/mp4", "")
	require.NoError(t, err)
	release()

	_, err = os.Stat(a.Path)
	assert.NoError(t, err)
	got, err := s.Get("sess", a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.Path, got.Path)
}

func TestHeldArtifactSurvivesSweep(t *testing.T) {
	s, err := NewStore(t.TempDir(), time.Minute)
	require.NoError(t, err)

	p, err := s.Create("sess", KindTranscribed, ".mp4")
	require.NoError(t, err)
	a, release, err := p.CommitHeld("audio/mp4", "")
	require.NoError(t, err)

	assert.Equal(t, 0, s.Sweep(time.Now().Add(2*time.Minute)))
	assert.Equal(t, 0, s.Len())
	_, err = os.Stat(a.Path)
	assert.NoError(t, err)

	release()
	_, err = os.Stat(a.Path)
	assert.True(t, os.IsNotExist(err))
}
