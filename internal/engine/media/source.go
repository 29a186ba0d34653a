package media

import (
	"context"
	"io"
)

// Source enumerates and fetches the streams of a video.
type Source interface {
	// Streams lists every stream of the video at url, in the order the
	// provider reports them.
	Streams(ctx context.Context, url string) ([]StreamDescriptor, error)
	// Open starts fetching the bytes of stream d of the video at url.
	Open(ctx context.Context, url string, d StreamDescriptor) (io.ReadCloser, error)
}
