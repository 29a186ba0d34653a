// Package media enumerates the streams of a video, picks one by quality policy
// and fetches it into the artifact store.
package media

import (
	"fmt"
	"mime"
	"net/url"
	"strconv"
	"strings"
)

// StreamDescriptor describes one downloadable rendition of a video.
type StreamDescriptor struct {
	Itag          int    `json:"itag"`
	MimeType      string `json:"mime_type"`
	Container     string `json:"container"`  // "mp4", "webm", ...
	Resolution    int    `json:"resolution"` // vertical lines, 0 for audio-only
	QualityLabel  string `json:"quality_label,omitempty"`
	HasAudio      bool   `json:"has_audio"`
	HasVideo      bool   `json:"has_video"`
	Bitrate       int    `json:"bitrate"`
	ContentLength int64  `json:"content_length,omitempty"`
}

// Progressive reports whether audio and video are muxed in one file.
func (d StreamDescriptor) Progressive() bool {
	return d.HasAudio && d.HasVideo
}

// AudioOnly reports whether the stream carries audio and no video.
func (d StreamDescriptor) AudioOnly() bool {
	return d.HasAudio && !d.HasVideo
}

// ResolutionLabel renders the resolution the way users know it ("720p").
func (d StreamDescriptor) ResolutionLabel() string {
	if d.Resolution <= 0 {
		return ""
	}
	return strconv.Itoa(d.Resolution) + "p"
}

func (d StreamDescriptor) String() string {
	kind := "video-only"
	switch {
	case d.Progressive():
		kind = "progressive"
	case d.AudioOnly():
		kind = "audio-only"
	}
	if d.Resolution > 0 {
		return fmt.Sprintf("itag %d %s %s %s", d.Itag, d.Container, d.ResolutionLabel(), kind)
	}
	return fmt.Sprintf("itag %d %s %dbps %s", d.Itag, d.Container, d.Bitrate, kind)
}

// ContainerOf returns the subtype of a MIME type: "video/mp4; codecs=..." → "mp4".
func ContainerOf(mimeType string) string {
	mediaType, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return ""
	}
	parts := strings.SplitN(mediaType, "/", 2)
	if len(parts) != 2 {
		return ""
	}
	return strings.ToLower(parts[1])
}

// ParseResolution reads the leading number of a quality label:
// "1080p" → 1080, "720p60" → 720, "hd1080" → 0.
func ParseResolution(label string) int {
	label = strings.TrimSpace(label)
	end := 0
	for end < len(label) && label[end] >= '0' && label[end] <= '9' {
		end++
	}
	if end == 0 || end >= len(label) || label[end] != 'p' {
		return 0
	}
	n, err := strconv.Atoi(label[:end])
	if err != nil {
		return 0
	}
	return n
}

// ValidateURL trims raw and checks it is an absolute http(s) URL.
func ValidateURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty URL", ErrInvalidInput)
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: %q is not a video URL", ErrInvalidInput, raw)
	}
	return raw, nil
}
