package media

import "bytes"

// sniffLen is how many leading bytes SniffContainer needs.
const sniffLen = 12

var ebmlMagic = []byte{0x1A, 0x45, 0xDF, 0xA3}

// SniffContainer identifies a media container from its first bytes.
// Returns "mp4" for ISO-BMFF (ftyp box), "webm" for EBML, "" otherwise.
func SniffContainer(head []byte) string {
	switch {
	case len(head) >= 8 && string(head[4:8]) == "ftyp":
		return "mp4"
	case bytes.HasPrefix(head, ebmlMagic):
		return "webm"
	}
	return ""
}

// headRecorder keeps the first sniffLen bytes written through it.
type headRecorder struct {
	buf []byte
}

func (h *headRecorder) Write(p []byte) (int, error) {
	if room := sniffLen - len(h.buf); room > 0 {
		if len(p) < room {
			room = len(p)
		}
		h.buf = append(h.buf, p[:room]...)
	}
	return len(p), nil
}

// artifactType maps a container to the MIME type and extension served for an
// artifact with the given media class ("video" or "audio").
func artifactType(class, container string) (mimeType, ext string) {
	switch container {
	case "webm":
		return class + "/webm", ".webm"
	case "", "mp4":
		return class + "/mp4", ".mp4"
	}
	return class + "/" + container, "." + container
}
