package media

import (
	"fmt"
	"log/slog"
)

// videoContainer is the only container progressive downloads are taken from.
const videoContainer = "mp4"

// highSteps are the resolutions tried, in order, before falling back to the
// highest available progressive stream.
var highSteps = []int{1080, 720}

// SelectVideo picks the progressive mp4 stream for q.
// Low takes the smallest resolution. High tries 1080p, then 720p, then the
// highest resolution available. Ties go to the first stream in enumeration order.
func SelectVideo(streams []StreamDescriptor, q Quality) (StreamDescriptor, error) {
	var candidates []StreamDescriptor
	for _, s := range streams {
		if s.Progressive() && s.Container == videoContainer {
			candidates = append(candidates, s)
		}
	}
	if len(candidates) == 0 {
		return StreamDescriptor{}, &NoStreamError{Want: q.Label()}
	}

	switch q {
	case QualityLow:
		return pick(candidates, func(a, b StreamDescriptor) bool {
			return a.Resolution < b.Resolution
		}), nil
	case QualityHigh:
		for _, res := range highSteps {
			for _, s := range candidates {
				if s.Resolution == res {
					return s, nil
				}
			}
			slog.Debug("media: resolution not available, falling back", slog.Int("resolution", res))
		}
		return pick(candidates, func(a, b StreamDescriptor) bool {
			return a.Resolution > b.Resolution
		}), nil
	}
	return StreamDescriptor{}, fmt.Errorf("%w %q", ErrUnknownQuality, q)
}

// SelectAudio picks an audio-only stream: mp4 first, then the highest bitrate,
// then enumeration order.
func SelectAudio(streams []StreamDescriptor) (StreamDescriptor, error) {
	var candidates []StreamDescriptor
	for _, s := range streams {
		if s.AudioOnly() {
			candidates = append(candidates, s)
		}
	}
	if len(candidates) == 0 {
		return StreamDescriptor{}, &NoStreamError{Want: wantAudio}
	}
	return pick(candidates, func(a, b StreamDescriptor) bool {
		return compareKeys(
			[]int{boolScore(a.Container == videoContainer), a.Bitrate},
			[]int{boolScore(b.Container == videoContainer), b.Bitrate},
		)
	}), nil
}

// pick returns the first stream no later stream is strictly better than.
func pick(streams []StreamDescriptor, better func(a, b StreamDescriptor) bool) StreamDescriptor {
	best := streams[0]
	for _, s := range streams[1:] {
		if better(s, best) {
			best = s
		}
	}
	return best
}

// compareKeys reports whether a sorts strictly before b, comparing higher-is-better keys.
func compareKeys(a, b []int) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] == b[i] {
			continue
		}
		return a[i] > b[i]
	}
	return false
}

func boolScore(v bool) int {
	if v {
		return 1
	}
	return 0
}
