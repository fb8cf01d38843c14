package tail

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilter_Match(t *testing.T) {
	tests := []struct {
		ext  string
		path string
		want bool
	}{
		{".log", "/var/log/app.log", true},
		{"log", "/var/log/app.log", true},
		{"", "/var/log/app.log", true},
		{".log", "/var/log/app.LOG", false},
		{".log", "/var/log/app.log.1", false},
		{".log", "/var/log/app.txt", false},
		{".log", "/var/log/log", false},
		{".txt", "notes.txt", true},
	}
	for _, tt := range tests {
		got := NewFilter(tt.ext).Match(tt.path)
		assert.Equal(t, tt.want, got, "ext=%q path=%q", tt.ext, tt.path)
	}
}

func TestFilter_ZeroValue(t *testing.T) {
	var f Filter
	assert.Equal(t, DefaultExtension, f.Extension())
	assert.True(t, f.Match("a.log"))
}

func TestRecordSink_Delivers(t *testing.T) {
	s := NewRecordSink(context.Background(), 3)
	s.OnAdded("/logs/a.log")
	s.OnContent("a.log", []byte("hi"))
	s.OnRemoved("/logs/a.log")
	s.Close()

	var got []Record
	for r := range s.Records() {
		got = append(got, r)
	}
	require.Len(t, got, 3)
	assert.Equal(t, RecordAdded, got[0].Kind)
	assert.Equal(t, Record{Kind: RecordContent, Name: "a.log", Data: []byte("hi")}, got[1])
	assert.Equal(t, "/logs/a.log", got[2].Path)
}

func TestRecordSink_DropsAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewRecordSink(ctx, 0)
	cancel()

	// Must not block with nobody reading.
	s.OnContent("a.log", []byte("lost"))
}

func TestMultiSink(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	m := MultiSink{a, b}
	m.OnAdded("/logs/a.log")
	m.OnContent("a.log", []byte("x"))
	m.OnRemoved("/logs/a.log")

	assert.Equal(t, a.records, b.records)
	assert.Len(t, a.records, 3)
}

func TestRecordKindString(t *testing.T) {
	assert.Equal(t, "added", RecordAdded.String())
	assert.Equal(t, "removed", RecordRemoved.String())
	assert.Equal(t, "content", RecordContent.String())
	assert.Equal(t, "unknown", RecordKind(9).String())
}

func TestLogSink(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	s := NewLogSink(logger)

	s.OnAdded("/logs/a.log")
	s.OnContent("a.log", []byte("hello\n"))
	s.OnRemoved("/logs/a.log")

	entries := hook.AllEntries()
	require.Len(t, entries, 3)
	assert.Equal(t, "tracking file", entries[0].Message)
	assert.Equal(t, "/logs/a.log", entries[0].Data["path"])
	assert.Equal(t, "read new content", entries[1].Message)
	assert.Equal(t, 6, entries[1].Data["bytes"])
	assert.Equal(t, "a.log", entries[1].Data["name"])
	assert.Equal(t, "stopped tracking file", entries[2].Message)
	for _, e := range entries {
		assert.Equal(t, logrus.DebugLevel, e.Level)
		assert.Equal(t, "sink", e.Data["component"])
	}
}

func TestLogSink_SilentAtInfo(t *testing.T) {
	logger, hook := test.NewNullLogger()
	s := NewLogSink(logger)
	s.OnContent("a.log", []byte("x"))
	assert.Empty(t, hook.AllEntries())
}
