package toolserver

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_transcribe/internal/engine"
	"github.com/anatolykoptev/go_transcribe/internal/toolutil"
)

func registerTranscribe(server *mcp.Server, svc toolutil.Service) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "media_transcribe",
		Description: "Download the audio of a YouTube video and transcribe it with the hosted Whisper model. Waits while the model cold-starts. Optionally adds a short LLM summary.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input engine.MediaTranscribeInput) (*mcp.CallToolResult, TranscribeOutput, error) {
		if input.URL == "" {
			return nil, TranscribeOutput{}, fmt.Errorf("url is required")
		}
		tr, err := svc.Transcribe(ctx, sessionOrNew(input.Session), input.URL, input.Summarize)
		if err != nil {
			return nil, TranscribeOutput{}, toolError(err)
		}
		return nil, TranscribeOutput{
			Text:    tr.Text,
			Summary: tr.Summary,
			Audio:   artifactOutput(tr.Audio),
		}, nil
	})
}
