// Package toolutil holds the user actions shared by the web form and the MCP
// tools, and the inline messages shown when an action fails.
package toolutil

import (
	"context"
	"errors"

	"github.com/anatolykoptev/go_transcribe/internal/engine"
	"github.com/anatolykoptev/go_transcribe/internal/engine/artifact"
	"github.com/anatolykoptev/go_transcribe/internal/engine/media"
	"github.com/anatolykoptev/go_transcribe/internal/engine/whisper"
)

// Messages shown to the user.
const (
	MsgInvalidURL     = "Please enter a valid YouTube URL"
	MsgInvalidQuality = "Please choose a quality: Low or High (HD)"
	MsgNoAudio        = "No audio stream found."
	MsgNoVideoPrefix  = "Unable to download video at the selected quality: "
	MsgNotFound       = "File not found or expired. Please download it again."
	MsgTimeout        = "The request took too long and was stopped."
	MsgCanceled       = "The request was cancelled."
)

// UserMessage renders err as inline text. Returns "" for nil.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var nse *media.NoStreamError
	var terr *whisper.Error
	switch {
	case errors.Is(err, media.ErrUnknownQuality):
		return MsgInvalidQuality
	case errors.Is(err, media.ErrInvalidInput):
		return MsgInvalidURL
	case errors.As(err, &nse):
		if nse.Audio() {
			return MsgNoAudio
		}
		return MsgNoVideoPrefix + nse.Want
	case errors.As(err, &terr):
		return "Transcription failed: " + terr.Message()
	case errors.Is(err, artifact.ErrNotFound):
		return MsgNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return MsgTimeout
	case errors.Is(err, context.Canceled):
		return MsgCanceled
	case errors.Is(err, media.ErrFetchFailed):
		return "Download failed: " + engine.TruncateRunes(err.Error(), 200, "...")
	}
	return "Something went wrong: " + engine.TruncateRunes(err.Error(), 200, "...")
}
