package tail

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Sink receives the engine's output. Return values never influence engine
// state, so implementations have none.
type Sink interface {
	OnAdded(path string)
	OnRemoved(path string)
	OnContent(name string, data []byte)
}

// RecordKind identifies what a Record reports.
type RecordKind int

const (
	RecordAdded RecordKind = iota
	RecordRemoved
	RecordContent
)

func (k RecordKind) String() string {
	switch k {
	case RecordAdded:
		return "added"
	case RecordRemoved:
		return "removed"
	case RecordContent:
		return "content"
	default:
		return "unknown"
	}
}

// Record is one engine emission. Path is set for lifecycle records, Name
// and Data for content records.
type Record struct {
	Kind RecordKind
	Path string
	Name string
	Data []byte
}

// RecordSink queues emissions as Records on a channel so they can be
// consumed lazily by another goroutine. The channel is the engine's record
// sequence for callers that pull rather than render.
type RecordSink struct {
	ctx     context.Context
	records chan Record
}

// NewRecordSink creates a sink with the given channel capacity. Sends block
// while the channel is full, and are dropped once ctx is done.
func NewRecordSink(ctx context.Context, size int) *RecordSink {
	if size < 0 {
		size = 0
	}
	return &RecordSink{ctx: ctx, records: make(chan Record, size)}
}

// Records returns the channel of emitted records.
func (s *RecordSink) Records() <-chan Record { return s.records }

// Close closes the records channel. The engine must no longer be running.
func (s *RecordSink) Close() { close(s.records) }

func (s *RecordSink) OnAdded(path string) {
	s.send(Record{Kind: RecordAdded, Path: path})
}

func (s *RecordSink) OnRemoved(path string) {
	s.send(Record{Kind: RecordRemoved, Path: path})
}

func (s *RecordSink) OnContent(name string, data []byte) {
	s.send(Record{Kind: RecordContent, Name: name, Data: data})
}

func (s *RecordSink) send(r Record) {
	select {
	case s.records <- r:
	case <-s.ctx.Done():
	}
}

// MultiSink fans every emission out to each sink in order.
type MultiSink []Sink

func (m MultiSink) OnAdded(path string) {
	for _, s := range m {
		s.OnAdded(path)
	}
}

func (m MultiSink) OnRemoved(path string) {
	for _, s := range m {
		s.OnRemoved(path)
	}
}

func (m MultiSink) OnContent(name string, data []byte) {
	for _, s := range m {
		s.OnContent(name, data)
	}
}

// LogSink records engine output as debug diagnostics, so a run with
// --log-level=debug shows what was tracked and how much was read.
type LogSink struct {
	logger logrus.FieldLogger
}

// NewLogSink creates a sink logging to logger.
func NewLogSink(logger logrus.FieldLogger) *LogSink {
	return &LogSink{logger: logger.WithField("component", "sink")}
}

func (s *LogSink) OnAdded(path string) {
	s.logger.WithField("path", path).Debug("tracking file")
}

func (s *LogSink) OnRemoved(path string) {
	s.logger.WithField("path", path).Debug("stopped tracking file")
}

func (s *LogSink) OnContent(name string, data []byte) {
	s.logger.WithField("name", name).WithField("bytes", len(data)).Debug("read new content")
}
