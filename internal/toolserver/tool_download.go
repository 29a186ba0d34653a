package toolserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_transcribe/internal/engine"
	"github.com/anatolykoptev/go_transcribe/internal/engine/artifact"
	"github.com/anatolykoptev/go_transcribe/internal/engine/media"
	"github.com/anatolykoptev/go_transcribe/internal/toolutil"
)

func registerDownload(server *mcp.Server, svc toolutil.Service) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "media_download",
		Description: "Download a YouTube video (progressive mp4) or its audio track to the server and return the local file path, MIME type and size. Low picks the smallest resolution; High tries 1080p, then 720p, then the best available.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input engine.MediaDownloadInput) (*mcp.CallToolResult, ArtifactOutput, error) {
		if input.URL == "" {
			return nil, ArtifactOutput{}, fmt.Errorf("url is required")
		}
		session := sessionOrNew(input.Session)

		var a *artifact.Artifact
		var err error
		switch kind := strings.ToLower(strings.TrimSpace(input.Kind)); kind {
		case "", "video":
			q, qerr := media.ParseQuality(input.Quality)
			if qerr != nil {
				return nil, ArtifactOutput{}, toolError(qerr)
			}
			a, err = svc.DownloadVideo(ctx, session, input.URL, q)
		case "audio":
			a, err = svc.DownloadAudio(ctx, session, input.URL)
		default:
			return nil, ArtifactOutput{}, fmt.Errorf("unknown kind %q: use video or audio", input.Kind)
		}
		if err != nil {
			return nil, ArtifactOutput{}, toolError(err)
		}
		return nil, artifactOutput(a), nil
	})
}
