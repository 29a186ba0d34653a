package webui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/anatolykoptev/go_transcribe/internal/engine/artifact"
	"github.com/anatolykoptev/go_transcribe/internal/engine/media"
	"github.com/anatolykoptev/go_transcribe/internal/engine/whisper"
	"github.com/anatolykoptev/go_transcribe/internal/toolutil"
)

const (
	actionVideo      = "video"
	actionAudio      = "audio"
	actionTranscribe = "transcribe"

	msgNameRequired = "Please enter your name to use the app."
	maxNameLen      = 64
)

type qualityOption struct {
	Value    string
	Label    string
	Selected bool
}

type downloadLink struct {
	Label    string
	Href     string
	FileName string
	Size     string
	MimeType string
}

type pageData struct {
	Name             string
	URL              string
	Qualities        []qualityOption
	Summarize        bool
	SummariesEnabled bool
	Notice           string
	Message          string
	Download         *downloadLink
	Transcript       *toolutil.Transcript
}

func (s *Server) newPage(name, videoURL string, q media.Quality) *pageData {
	p := &pageData{Name: name, URL: videoURL, SummariesEnabled: s.opts.Summaries}
	for _, opt := range media.Qualities() {
		p.Qualities = append(p.Qualities, qualityOption{Value: opt.String(), Label: opt.Label(), Selected: opt == q})
	}
	if name == "" {
		p.Notice = msgNameRequired
	}
	return p
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, s.newPage(nameFrom(r), "", media.QualityLow))
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	name := cleanName(r.PostFormValue("name"))
	videoURL := strings.TrimSpace(r.PostFormValue("url"))
	action := r.PostFormValue("action")

	q, qErr := media.ParseQuality(r.PostFormValue("quality"))
	if qErr != nil {
		q = media.QualityLow
	}
	page := s.newPage(name, videoURL, q)
	page.Summarize = r.PostFormValue("summarize") != ""

	if name == "" {
		s.render(w, http.StatusOK, page)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     nameCookie,
		Value:    url.QueryEscape(name),
		Path:     "/",
		HttpOnly: true,
		Secure:   s.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	ctx := r.Context()
	session := sessionFrom(ctx)
	var err error
	switch action {
	case actionVideo:
		if qErr != nil {
			err = qErr
			break
		}
		var a *artifact.Artifact
		if a, err = s.svc.DownloadVideo(ctx, session, videoURL, q); err == nil {
			page.Download = newDownloadLink("Download the video file", a)
		}
	case actionAudio:
		var a *artifact.Artifact
		if a, err = s.svc.DownloadAudio(ctx, session, videoURL); err == nil {
			page.Download = newDownloadLink("Download the audio file", a)
		}
	case actionTranscribe:
		page.Transcript, err = s.svc.Transcribe(ctx, session, videoURL, page.Summarize && s.opts.Summaries)
	default:
		http.Error(w, "Unknown action", http.StatusBadRequest)
		return
	}

	status := http.StatusOK
	if err != nil {
		page.Message = toolutil.UserMessage(err)
		slog.Info("web: action failed", slog.String("action", action), slog.String("user", name), slog.Any("error", err))
		status = statusFor(err)
	} else {
		slog.Info("web: action done", slog.String("action", action), slog.String("user", name))
	}
	s.render(w, status, page)
}

func (s *Server) handleArtifact(w http.ResponseWriter, r *http.Request) {
	a, err := s.svc.Artifact(sessionFrom(r.Context()), r.PathValue("id"))
	if err != nil {
		http.Error(w, toolutil.UserMessage(err), http.StatusNotFound)
		return
	}
	f, err := os.Open(a.Path)
	if err != nil {
		slog.Warn("web: artifact missing on disk", slog.String("id", a.ID), slog.Any("error", err))
		http.Error(w, toolutil.MsgNotFound, http.StatusNotFound)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", a.MimeType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": a.FileName()}))
	w.Header().Set("Cache-Control", "private, no-store")
	http.ServeContent(w, r, a.FileName(), a.CreatedAt, f)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if s.opts.Metrics == nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(s.opts.Metrics()))
}

func (s *Server) render(w http.ResponseWriter, status int, page *pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.tmpl.ExecuteTemplate(w, "index.html.tmpl", page); err != nil {
		slog.Error("web: render failed", slog.Any("error", err))
	}
}

// statusFor maps an action error to the status of the rendered page.
func statusFor(err error) int {
	var nse *media.NoStreamError
	switch {
	case errors.Is(err, media.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.As(err, &nse):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, media.ErrFetchFailed), errors.Is(err, whisper.ErrTranscriptionFailed):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func newDownloadLink(label string, a *artifact.Artifact) *downloadLink {
	return &downloadLink{
		Label:    label,
		Href:     "/artifacts/" + a.ID,
		FileName: a.FileName(),
		Size:     humanSize(a.Size),
		MimeType: a.MimeType,
	}
}

func nameFrom(r *http.Request) string {
	c, err := r.Cookie(nameCookie)
	if err != nil {
		return ""
	}
	name, err := url.QueryUnescape(c.Value)
	if err != nil {
		return ""
	}
	return cleanName(name)
}

// cleanName trims a display name to a printable single line.
func cleanName(s string) string {
	s = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f || r == ';' || r == '"' {
			return -1
		}
		return r
	}, s)
	s = strings.TrimSpace(s)
	if r := []rune(s); len(r) > maxNameLen {
		s = string(r[:maxNameLen])
	}
	return s
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
