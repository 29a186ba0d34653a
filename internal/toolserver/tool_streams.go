package toolserver

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_transcribe/internal/engine"
	"github.com/anatolykoptev/go_transcribe/internal/engine/media"
	"github.com/anatolykoptev/go_transcribe/internal/toolutil"
)

func registerStreams(server *mcp.Server, svc toolutil.Service) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "media_streams",
		Description: "List the downloadable streams of a YouTube video (itag, container, resolution, progressive/audio-only, bitrate) and which ones media_download would pick for Low, High and audio.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input engine.MediaStreamsInput) (*mcp.CallToolResult, StreamsOutput, error) {
		if input.URL == "" {
			return nil, StreamsOutput{}, fmt.Errorf("url is required")
		}
		streams, err := svc.Streams(ctx, input.URL)
		if err != nil {
			return nil, StreamsOutput{}, toolError(err)
		}

		out := StreamsOutput{URL: input.URL, Streams: streams, Video: make(map[string]int)}
		for _, q := range media.Qualities() {
			if s, err := media.SelectVideo(streams, q); err == nil {
				out.Video[q.String()] = s.Itag
			}
		}
		if s, err := media.SelectAudio(streams); err == nil {
			out.Audio = s.Itag
		}
		return nil, out, nil
	})
}
