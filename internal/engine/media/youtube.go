package media

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/kkdai/youtube/v2"

	"github.com/anatolykoptev/go_transcribe/internal/engine"
)

// YouTube is a Source backed by github.com/kkdai/youtube/v2.
// Video metadata is kept in the engine cache so a download followed by a
// transcription of the same URL enumerates once.
type YouTube struct {
	client *youtube.Client
}

// NewYouTube returns a YouTube source. httpClient may be nil.
func NewYouTube(httpClient *http.Client) *YouTube {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &YouTube{client: &youtube.Client{HTTPClient: httpClient}}
}

// Streams implements Source.
func (y *YouTube) Streams(ctx context.Context, url string) ([]StreamDescriptor, error) {
	v, err := y.video(ctx, url)
	if err != nil {
		return nil, err
	}
	out := make([]StreamDescriptor, 0, len(v.Formats))
	for i := range v.Formats {
		out = append(out, describe(&v.Formats[i]))
	}
	return out, nil
}

// Open implements Source.
func (y *YouTube) Open(ctx context.Context, url string, d StreamDescriptor) (io.ReadCloser, error) {
	v, err := y.video(ctx, url)
	if err != nil {
		return nil, err
	}
	formats := v.Formats.Itag(d.Itag)
	if len(formats) == 0 {
		return nil, fmt.Errorf("%w: itag %d not listed for %s", ErrNoStreamAvailable, d.Itag, v.ID)
	}
	rc, _, err := y.client.GetStreamContext(ctx, v, &formats[0])
	if err != nil {
		return nil, fmt.Errorf("open stream itag %d: %w", d.Itag, err)
	}
	return rc, nil
}

func (y *YouTube) video(ctx context.Context, url string) (*youtube.Video, error) {
	id, err := youtube.ExtractVideoID(url)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	key := engine.CacheKey("video", id)
	if v, ok := engine.CacheLoadJSON[youtube.Video](ctx, key); ok {
		return &v, nil
	}

	v, err := y.client.GetVideoContext(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get video %s: %w", id, err)
	}
	slog.Debug("media: video metadata fetched",
		slog.String("id", v.ID), slog.String("title", v.Title), slog.Int("formats", len(v.Formats)))
	engine.CacheStoreJSON(ctx, key, *v)
	return v, nil
}

// describe converts a provider format into a StreamDescriptor.
func describe(f *youtube.Format) StreamDescriptor {
	res := f.Height
	if res == 0 {
		res = ParseResolution(f.QualityLabel)
	}
	return StreamDescriptor{
		Itag:          f.ItagNo,
		MimeType:      f.MimeType,
		Container:     ContainerOf(f.MimeType),
		Resolution:    res,
		QualityLabel:  f.QualityLabel,
		HasAudio:      f.AudioChannels > 0 || strings.HasPrefix(f.MimeType, "audio/"),
		HasVideo:      strings.HasPrefix(f.MimeType, "video/"),
		Bitrate:       f.Bitrate,
		ContentLength: f.ContentLength,
	}
}
