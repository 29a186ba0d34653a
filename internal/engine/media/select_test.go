package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func progressive(itag, res int) StreamDescriptor {
	return StreamDescriptor{Itag: itag, MimeType: "video/mp4", Container: "mp4", Resolution: res, HasAudio: true, HasVideo: true}
}

func audioOnly(itag int, container string, bitrate int) StreamDescriptor {
	return StreamDescriptor{Itag: itag, MimeType: "audio/" + container, Container: container, HasAudio: true, Bitrate: bitrate}
}

func videoOnly(itag, res int) StreamDescriptor {
	return StreamDescriptor{Itag: itag, MimeType: "video/mp4", Container: "mp4", Resolution: res, HasVideo: true}
}

func TestSelectVideo(t *testing.T) {
	webm := progressive(43, 144)
	webm.Container = "webm"
	webm.MimeType = "video/webm"

	tests := []struct {
		name    string
		streams []StreamDescriptor
		quality Quality
		want    int // itag
	}{
		{"low picks smallest", []StreamDescriptor{progressive(22, 720), progressive(18, 360), progressive(17, 144)}, QualityLow, 17},
		{"low ignores other containers", []StreamDescriptor{progressive(18, 360), webm}, QualityLow, 18},
		{"low ignores video-only", []StreamDescriptor{videoOnly(160, 144), progressive(18, 360)}, QualityLow, 18},
		{"low tie keeps first", []StreamDescriptor{progressive(1, 360), progressive(2, 360)}, QualityLow, 1},
		{"high prefers 1080p", []StreamDescriptor{progressive(22, 720), progressive(37, 1080), progressive(38, 2160)}, QualityHigh, 37},
		{"high falls back to 720p", []StreamDescriptor{progressive(18, 480), progressive(22, 720)}, QualityHigh, 22},
		{"high falls back to highest", []StreamDescriptor{progressive(18, 480)}, QualityHigh, 18},
		{"high highest of several", []StreamDescriptor{progressive(17, 144), progressive(18, 480), progressive(5, 240)}, QualityHigh, 18},
		{"high ignores video-only 1080p", []StreamDescriptor{videoOnly(137, 1080), progressive(18, 360)}, QualityHigh, 18},
		{"high tie keeps first", []StreamDescriptor{progressive(1, 720), progressive(2, 720)}, QualityHigh, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SelectVideo(tt.streams, tt.quality)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Itag)
		})
	}
}

func TestSelectVideoNoProgressive(t *testing.T) {
	streams := []StreamDescriptor{videoOnly(137, 1080), audioOnly(140, "mp4", 128000)}
	for _, q := range Qualities() {
		_, err := SelectVideo(streams, q)
		assert.ErrorIs(t, err, ErrNoStreamAvailable)
		var nse *NoStreamError
		require.ErrorAs(t, err, &nse)
		assert.Equal(t, q.Label(), nse.Want)
		assert.False(t, nse.Audio())
	}

	_, err := SelectVideo(nil, QualityLow)
	assert.ErrorIs(t, err, ErrNoStreamAvailable)
}

func TestSelectVideoUnknownQuality(t *testing.T) {
	_, err := SelectVideo([]StreamDescriptor{progressive(18, 360)}, Quality("Medium"))
	assert.ErrorIs(t, err, ErrUnknownQuality)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSelectAudio(t *testing.T) {
	tests := []struct {
		name    string
		streams []StreamDescriptor
		want    int
	}{
		{"prefers mp4", []StreamDescriptor{audioOnly(251, "webm", 160000), audioOnly(140, "mp4", 128000)}, 140},
		{"highest mp4 bitrate", []StreamDescriptor{audioOnly(139, "mp4", 48000), audioOnly(140, "mp4", 128000)}, 140},
		{"tie keeps first", []StreamDescriptor{audioOnly(1, "mp4", 128000), audioOnly(2, "mp4", 128000)}, 1},
		{"webm when no mp4", []StreamDescriptor{audioOnly(249, "webm", 50000), audioOnly(251, "webm", 160000)}, 251},
		{"skips muxed streams", []StreamDescriptor{progressive(18, 360), audioOnly(249, "webm", 50000)}, 249},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SelectAudio(tt.streams)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Itag)
		})
	}
}

func TestSelectAudioNone(t *testing.T) {
	_, err := SelectAudio([]StreamDescriptor{progressive(18, 360), videoOnly(137, 1080)})
	assert.ErrorIs(t, err, ErrNoStreamAvailable)

	var nse *NoStreamError
	require.ErrorAs(t, err, &nse)
	assert.True(t, nse.Audio())
}

func TestParseQuality(t *testing.T) {
	tests := []struct {
		in      string
		want    Quality
		wantErr bool
	}{
		{"", QualityLow, false},
		{"Low", QualityLow, false},
		{"low", QualityLow, false},
		{"High", QualityHigh, false},
		{"High (HD)", QualityHigh, false},
		{" hd ", QualityHigh, false},
		{"ultra", "", true},
	}
	for _, tt := range tests {
		got, err := ParseQuality(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidInput, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
	assert.Equal(t, "High (HD)", QualityHigh.Label())
	assert.Equal(t, "Low", QualityLow.Label())
}

func TestParseResolution(t *testing.T) {
	tests := map[string]int{
		"1080p":   1080,
		"720p60":  720,
		"144p":    144,
		"hd1080":  0,
		"":        0,
		"1080":    0,
		"2160p60": 2160,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseResolution(in), in)
	}
}

func TestContainerOf(t *testing.T) {
	assert.Equal(t, "mp4", ContainerOf(`video/mp4; codecs="avc1.42001E, mp4a.40.2"`))
	assert.Equal(t, "webm", ContainerOf(`audio/webm; codecs="opus"`))
	assert.Equal(t, "", ContainerOf("garbage"))
}

func TestValidateURL(t *testing.T) {
	got, err := ValidateURL("  https://www.youtube.com/watch?v=abc  ")
	require.NoError(t, err)
	assert.Equal(t, "https://www.youtube.com/watch?v=abc", got)

	for _, bad := range []string{"", "   ", "not a url", "ftp://example.com/x", "/watch?v=abc"} {
		_, err := ValidateURL(bad)
		assert.ErrorIs(t, err, ErrInvalidInput, bad)
	}
}

func TestDescriptorFlags(t *testing.T) {
	p := progressive(18, 360)
	assert.True(t, p.Progressive())
	assert.False(t, p.AudioOnly())
	assert.Equal(t, "360p", p.ResolutionLabel())
	assert.Equal(t, "itag 18 mp4 360p progressive", p.String())

	a := audioOnly(140, "mp4", 128000)
	assert.True(t, a.AudioOnly())
	assert.False(t, a.Progressive())
	assert.Equal(t, "", a.ResolutionLabel())
	assert.Equal(t, "itag 140 mp4 128000bps audio-only", a.String())
}
