package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/juju/ratelimit"

	"github.com/anatolykoptev/go_transcribe/internal/engine"
	"github.com/anatolykoptev/go_transcribe/internal/engine/artifact"
)

// Downloader selects a stream and fetches it into the artifact store.
type Downloader struct {
	source Source
	store  *artifact.Store
	bucket *ratelimit.Bucket // nil = unlimited
}

// NewDownloader returns a Downloader writing to store. rateLimit caps the
// combined write speed of all downloads in bytes per second; 0 disables it.
func NewDownloader(src Source, store *artifact.Store, rateLimit int64) *Downloader {
	d := &Downloader{source: src, store: store}
	if rateLimit > 0 {
		d.bucket = ratelimit.NewBucketWithRate(float64(rateLimit), rateLimit)
	}
	return d
}

// Streams lists the streams of the video at url.
func (d *Downloader) Streams(ctx context.Context, url string) ([]StreamDescriptor, error) {
	url, err := ValidateURL(url)
	if err != nil {
		return nil, err
	}
	engine.IncrStreamListings()
	streams, err := d.source.Streams(ctx, url)
	if err != nil {
		return nil, fetchErr(err)
	}
	return streams, nil
}

// DownloadVideo fetches the progressive stream chosen for q and commits it as
// the session's video artifact.
func (d *Downloader) DownloadVideo(ctx context.Context, session, url string, q Quality) (*artifact.Artifact, error) {
	streams, err := d.Streams(ctx, url)
	if err != nil {
		return nil, err
	}
	s, err := SelectVideo(streams, q)
	if err != nil {
		return nil, err
	}
	slog.Info("media: video stream selected",
		slog.String("quality", q.String()), slog.String("stream", s.String()))

	a, release, err := d.fetch(ctx, session, artifact.KindVideo, "video", url, s, false)
	if err != nil {
		return nil, err
	}
	release()
	engine.IncrVideoDownloads()
	return a, nil
}

// DownloadAudio fetches the preferred audio-only stream and commits it under
// kind (KindAudio or KindTranscribed).
func (d *Downloader) DownloadAudio(ctx context.Context, session, url string, kind artifact.Kind) (*artifact.Artifact, error) {
	a, release, err := d.downloadAudio(ctx, session, url, kind, false)
	if err != nil {
		return nil, err
	}
	release()
	return a, nil
}

// DownloadAudioHeld is DownloadAudio for callers that read the file after the
// download returns. The file is kept on disk, even if a newer download in the
// same session replaces it, until release is called.
func (d *Downloader) DownloadAudioHeld(ctx context.Context, session, url string, kind artifact.Kind) (a *artifact.Artifact, release func(), err error) {
	return d.downloadAudio(ctx, session, url, kind, true)
}

func (d *Downloader) downloadAudio(ctx context.Context, session, url string, kind artifact.Kind, hold bool) (*artifact.Artifact, func(), error) {
	streams, err := d.Streams(ctx, url)
	if err != nil {
		return nil, nil, err
	}
	s, err := SelectAudio(streams)
	if err != nil {
		return nil, nil, err
	}
	slog.Info("media: audio stream selected", slog.String("stream", s.String()))

	a, release, err := d.fetch(ctx, session, kind, "audio", url, s, hold)
	if err != nil {
		return nil, nil, err
	}
	engine.IncrAudioDownloads()
	return a, release, nil
}

// fetch streams s into a new artifact. The partial file is removed on any failure.
// With hold set the committed file stays on disk until the returned release
// is called; otherwise release is a no-op.
func (d *Downloader) fetch(ctx context.Context, session string, kind artifact.Kind, class, url string, s StreamDescriptor, hold bool) (*artifact.Artifact, func(), error) {
	_, ext := artifactType(class, s.Container)
	p, err := d.store.Create(session, kind, ext)
	if err != nil {
		return nil, nil, err
	}

	rc, err := d.source.Open(ctx, url, s)
	if err != nil {
		p.Discard()
		engine.IncrDownloadErrors()
		return nil, nil, fetchErr(err)
	}
	defer rc.Close()

	head := &headRecorder{}
	var w io.Writer = p
	if d.bucket != nil {
		w = ratelimit.Writer(p, d.bucket)
	}
	n, err := io.Copy(io.MultiWriter(w, head), rc)
	engine.AddDownloadBytes(n)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		p.Discard()
		engine.IncrDownloadErrors()
		return nil, nil, fetchErr(err)
	}

	container := SniffContainer(head.buf)
	if container == "" {
		container = s.Container
	} else if container != s.Container {
		slog.Warn("media: container differs from declared type",
			slog.String("declared", s.MimeType), slog.String("sniffed", container))
	}
	mimeType, ext := artifactType(class, container)
	var a *artifact.Artifact
	release := func() {}
	if hold {
		a, release, err = p.CommitHeld(mimeType, ext)
	} else {
		a, err = p.Commit(mimeType, ext)
	}
	if err != nil {
		engine.IncrDownloadErrors()
		return nil, nil, fetchErr(err)
	}
	slog.Info("media: artifact saved",
		slog.String("id", a.ID), slog.String("kind", kind.String()), slog.Int64("bytes", a.Size))
	return a, release, nil
}

// fetchErr tags err as ErrFetchFailed unless it already carries a taxonomy
// sentinel or a context error.
func fetchErr(err error) error {
	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrNoStreamAvailable), errors.Is(err, ErrFetchFailed):
		return err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return fmt.Errorf("%w: %w", ErrFetchFailed, err)
}
