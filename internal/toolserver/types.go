package toolserver

import (
	"github.com/anatolykoptev/go_transcribe/internal/engine/artifact"
	"github.com/anatolykoptev/go_transcribe/internal/engine/media"
)

// StreamsOutput lists the streams of a video.
type StreamsOutput struct {
	URL     string                   `json:"url"`
	Streams []media.StreamDescriptor `json:"streams"`
	Video   map[string]int           `json:"video_choice,omitempty"` // quality → itag
	Audio   int                      `json:"audio_choice,omitempty"` // itag
}

// ArtifactOutput describes a downloaded file.
type ArtifactOutput struct {
	ID       string `json:"id"`
	Session  string `json:"session"`
	Kind     string `json:"kind"`
	Path     string `json:"path"`
	FileName string `json:"file_name"`
	MimeType string `json:"mime_type"`
	Size     int64  `json:"size"`
}

// TranscribeOutput is the result of media_transcribe.
type TranscribeOutput struct {
	Text    string         `json:"text"`
	Summary string         `json:"summary,omitempty"`
	Audio   ArtifactOutput `json:"audio"`
}

func artifactOutput(a *artifact.Artifact) ArtifactOutput {
	return ArtifactOutput{
		ID:       a.ID,
		Session:  a.Session,
		Kind:     a.Kind.String(),
		Path:     a.Path,
		FileName: a.FileName(),
		MimeType: a.MimeType,
		Size:     a.Size,
	}
}
