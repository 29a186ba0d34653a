package engine

// MediaStreamsInput is the input for media_streams.
type MediaStreamsInput struct {
	URL string `json:"url" jsonschema:"YouTube video URL"`
}

// MediaDownloadInput is the input for media_download.
type MediaDownloadInput struct {
	URL     string `json:"url" jsonschema:"YouTube video URL"`
	Kind    string `json:"kind,omitempty" jsonschema:"What to download: video (progressive mp4 with sound) or audio (audio-only track). Default: video"`
	Quality string `json:"quality,omitempty" jsonschema:"Video quality: Low (smallest resolution) or High (1080p, else 720p, else the best available). Ignored for audio. Default: Low"`
	Session string `json:"session,omitempty" jsonschema:"Artifact namespace; a new download replaces the previous one of the same kind in the same session. Default: a fresh session per call"`
}

// MediaTranscribeInput is the input for media_transcribe.
type MediaTranscribeInput struct {
	URL       string `json:"url" jsonschema:"YouTube video URL"`
	Summarize bool   `json:"summarize,omitempty" jsonschema:"Also return a short LLM summary of the transcript (requires LLM_API_KEY)"`
	Session   string `json:"session,omitempty" jsonschema:"Artifact namespace for the downloaded audio. Default: a fresh session per call"`
}
