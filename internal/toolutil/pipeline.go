package toolutil

import (
	"context"
	"log/slog"
	"time"

	"github.com/anatolykoptev/go_transcribe/internal/engine"
	"github.com/anatolykoptev/go_transcribe/internal/engine/artifact"
	"github.com/anatolykoptev/go_transcribe/internal/engine/media"
)

// Service is the set of user actions exposed by the web form and the MCP tools.
type Service interface {
	Streams(ctx context.Context, url string) ([]media.StreamDescriptor, error)
	DownloadVideo(ctx context.Context, session, url string, q media.Quality) (*artifact.Artifact, error)
	DownloadAudio(ctx context.Context, session, url string) (*artifact.Artifact, error)
	Transcribe(ctx context.Context, session, url string, summarize bool) (*Transcript, error)
	Artifact(session, id string) (*artifact.Artifact, error)
}

// Transcriber turns an audio file into text.
type Transcriber interface {
	Transcribe(ctx context.Context, path string) (string, error)
}

// Transcript is the outcome of the Transcribe action.
type Transcript struct {
	Text    string             `json:"text"`
	Summary string             `json:"summary,omitempty"`
	Audio   *artifact.Artifact `json:"audio"`
}

// Pipeline implements Service on top of a media.Downloader and a Transcriber.
type Pipeline struct {
	downloader  *media.Downloader
	store       *artifact.Store
	transcriber Transcriber
	timeout     time.Duration
	summarize   func(ctx context.Context, text string) (string, error) // nil = summaries disabled
}

var _ Service = (*Pipeline)(nil)

// NewPipeline wires the actions together. timeout bounds each action; 0 disables it.
// Summaries are available when the engine has an LLM client.
func NewPipeline(d *media.Downloader, store *artifact.Store, t Transcriber, timeout time.Duration) *Pipeline {
	p := &Pipeline{downloader: d, store: store, transcriber: t, timeout: timeout}
	if engine.LLMEnabled() {
		p.summarize = engine.Summarize
	}
	return p
}

// Streams lists the streams of the video at url.
func (p *Pipeline) Streams(ctx context.Context, url string) ([]media.StreamDescriptor, error) {
	var out []media.StreamDescriptor
	err := p.run(ctx, "streams", func(ctx context.Context) error {
		var err error
		out, err = p.downloader.Streams(ctx, url)
		return err
	})
	return out, err
}

// DownloadVideo downloads the video at url in quality q.
func (p *Pipeline) DownloadVideo(ctx context.Context, session, url string, q media.Quality) (*artifact.Artifact, error) {
	var out *artifact.Artifact
	err := p.run(ctx, "download_video", func(ctx context.Context) error {
		var err error
		out, err = p.downloader.DownloadVideo(ctx, session, url, q)
		return err
	})
	return out, err
}

// DownloadAudio downloads the audio track of the video at url.
func (p *Pipeline) DownloadAudio(ctx context.Context, session, url string) (*artifact.Artifact, error) {
	var out *artifact.Artifact
	err := p.run(ctx, "download_audio", func(ctx context.Context) error {
		var err error
		out, err = p.downloader.DownloadAudio(ctx, session, url, artifact.KindAudio)
		return err
	})
	return out, err
}

// Transcribe downloads the audio of the video at url and transcribes it.
// A failed summary is logged and leaves Summary empty.
func (p *Pipeline) Transcribe(ctx context.Context, session, url string, summarize bool) (*Transcript, error) {
	var out *Transcript
	err := p.run(ctx, "transcribe", func(ctx context.Context) error {
		audio, release, err := p.downloader.DownloadAudioHeld(ctx, session, url, artifact.KindTranscribed)
		if err != nil {
			return err
		}
		defer release()
		text, err := p.transcriber.Transcribe(ctx, audio.Path)
		if err != nil {
			return err
		}
		out = &Transcript{Text: text, Audio: audio}

		if summarize && p.summarize != nil {
			summary, err := p.summarize(ctx, text)
			if err != nil {
				slog.Warn("summary failed", slog.String("artifact", audio.ID), slog.Any("error", err))
			} else {
				out.Summary = summary
			}
		}
		return nil
	})
	return out, err
}

// Artifact returns the session's artifact with id.
func (p *Pipeline) Artifact(session, id string) (*artifact.Artifact, error) {
	return p.store.Get(session, id)
}

// SummariesEnabled reports whether Transcribe can produce a summary.
func (p *Pipeline) SummariesEnabled() bool {
	return p.summarize != nil
}

func (p *Pipeline) run(ctx context.Context, name string, fn func(context.Context) error) error {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	return engine.TrackOperation(ctx, name, fn)
}
