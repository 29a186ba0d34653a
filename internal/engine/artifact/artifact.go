// Package artifact keeps downloaded media files on local disk, one file per
// request, scoped to the browser session that asked for it.
package artifact

import (
	"errors"
	"path/filepath"
	"time"
)

// ErrNotFound is returned for unknown or foreign artifact IDs.
var ErrNotFound = errors.New("artifact not found")

// Kind identifies what an artifact was produced for.
type Kind string

const (
	KindVideo       Kind = "video"
	KindAudio       Kind = "audio"
	KindTranscribed Kind = "transcribed_audio"
)

// String returns the string representation of Kind.
func (k Kind) String() string {
	return string(k)
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindVideo, KindAudio, KindTranscribed:
		return true
	}
	return false
}

// Artifact is a committed file on disk.
type Artifact struct {
	ID        string    `json:"id"`
	Session   string    `json:"-"`
	Kind      Kind      `json:"kind"`
	Path      string    `json:"path"`
	MimeType  string    `json:"mime_type"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// FileName is the name offered to the browser when the file is served:
// downloaded_video.mp4, downloaded_audio.mp4, transcribed_audio.webm, ...
func (a *Artifact) FileName() string {
	ext := filepath.Ext(a.Path)
	switch a.Kind {
	case KindVideo:
		return "downloaded_video" + ext
	case KindAudio:
		return "downloaded_audio" + ext
	default:
		return string(a.Kind) + ext
	}
}
