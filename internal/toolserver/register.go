// Package toolserver exposes the download and transcription actions as MCP tools.
package toolserver

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_transcribe/internal/toolutil"
)

// ToolCount is the number of tools RegisterTools adds.
const ToolCount = 3

// RegisterTools registers media_streams, media_download and media_transcribe.
func RegisterTools(server *mcp.Server, svc toolutil.Service) {
	registerStreams(server, svc)
	registerDownload(server, svc)
	registerTranscribe(server, svc)
}

// sessionOrNew returns s, or a fresh session for callers that did not pick
// one, so their artifacts are never replaced by another call.
func sessionOrNew(s string) string {
	if s == "" {
		return "mcp-" + uuid.NewString()
	}
	return s
}

// toolError keeps the user-facing message first and the cause reachable.
func toolError(err error) error {
	return fmt.Errorf("%s: %w", toolutil.UserMessage(err), err)
}
