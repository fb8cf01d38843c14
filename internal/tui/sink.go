package tui

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
)

// ConsoleSink writes rendered engine output to w.
type ConsoleSink struct {
	w io.Writer
	r *Renderer
}

// NewConsoleSink creates a sink writing to w with r.
func NewConsoleSink(w io.Writer, r *Renderer) *ConsoleSink {
	return &ConsoleSink{w: w, r: r}
}

func (s *ConsoleSink) OnAdded(path string) {
	io.WriteString(s.w, s.r.RenderAdded(path))
}

func (s *ConsoleSink) OnRemoved(path string) {
	io.WriteString(s.w, s.r.RenderRemoved(path))
}

func (s *ConsoleSink) OnContent(name string, data []byte) {
	io.WriteString(s.w, s.r.RenderContent(name, data))
}

// Sender is the part of *tea.Program a ProgramSink needs.
type Sender interface {
	Send(msg tea.Msg)
}

// ProgramSink forwards engine output to a running TUI program. The
// program usually does not exist until the initial scan has run, so it is
// attached afterwards.
type ProgramSink struct {
	p       Sender
	r       *Renderer
	tracked int
}

// NewProgramSink creates a sink rendering with r.
func NewProgramSink(r *Renderer) *ProgramSink {
	return &ProgramSink{r: r}
}

// Attach sets the receiving program and the number of files already
// registered. It must be called before the engine starts running.
func (s *ProgramSink) Attach(p Sender, tracked int) {
	s.p = p
	s.tracked = tracked
}

func (s *ProgramSink) OnAdded(path string) {
	s.tracked++
	s.p.Send(LogMsg{Rendered: strings.TrimSuffix(s.r.RenderAdded(path), "\n")})
	s.p.Send(TrackedMsg{Count: s.tracked})
}

func (s *ProgramSink) OnRemoved(path string) {
	if s.tracked > 0 {
		s.tracked--
	}
	s.p.Send(LogMsg{Rendered: strings.TrimSuffix(s.r.RenderRemoved(path), "\n")})
	s.p.Send(TrackedMsg{Count: s.tracked})
}

// OnContent splits the content into display lines. A trailing newline
// does not produce an empty line. Content without one leaves the row open,
// and the file's next chunk continues it instead of starting a prefixed row.
func (s *ProgramSink) OnContent(name string, data []byte) {
	lines := strings.TrimSuffix(s.r.RenderContent(name, data), "\n")
	cont := strings.TrimSuffix(s.r.RenderContinuation(data), "\n")
	s.p.Send(ContentMsg{
		Name:         name,
		Lines:        strings.Split(lines, "\n"),
		Continuation: strings.Split(cont, "\n"),
		Open:         !bytes.HasSuffix(data, []byte("\n")),
	})
}

// LogHook is a logrus hook that shows warnings and errors inside the TUI,
// where writing to stderr would corrupt the screen.
type LogHook struct {
	p Sender
}

// NewLogHook creates a hook sending to p.
func NewLogHook(p Sender) *LogHook {
	return &LogHook{p: p}
}

func (h *LogHook) Levels() []logrus.Level {
	return []logrus.Level{logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel, logrus.WarnLevel}
}

func (h *LogHook) Fire(entry *logrus.Entry) error {
	msg := entry.Message
	if path, ok := entry.Data["path"]; ok {
		msg = fmt.Sprintf("%s (%v)", msg, path)
	}
	if err, ok := entry.Data[logrus.ErrorKey]; ok {
		h.p.Send(ErrMsg{Err: fmt.Errorf("%s: %v", msg, err)})
		return nil
	}
	h.p.Send(ErrMsg{Err: errors.New(msg)})
	return nil
}
