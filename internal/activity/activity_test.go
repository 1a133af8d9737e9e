package activity

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeSink struct {
	mu      sync.Mutex
	records []Record
	writes  int
	err     error
	block   chan struct{}
	entered chan struct{}
	closed  bool
}

func (s *fakeSink) Write(_ context.Context, records []Record) error {
	if s.entered != nil {
		select {
		case s.entered <- struct{}{}:
		default:
		}
	}
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, records...)
	return nil
}

func (s *fakeSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeSink) snapshot() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Record(nil), s.records...)
}

func TestNewRecordDefaults(t *testing.T) {
	r := New(PageView, "", "", map[string]any{"path": "/events"})
	assert.Equal(t, Anonymous, r.UserID)
	assert.NotEmpty(t, r.ID)
	assert.False(t, r.At.IsZero())

	raw, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"type":"page_view"`)
	assert.NotContains(t, string(raw), "event_id")
}

func TestDispatcherDeliversOnClose(t *testing.T) {
	sink := &fakeSink{}
	d := NewDispatcher(sink, zap.NewNop(), 128, time.Hour)

	for i := 0; i < 100; i++ {
		d.Emit(New(ViewEvent, "alice", "e1", nil))
	}
	require.NoError(t, d.Close(context.Background()))

	assert.Len(t, sink.snapshot(), 100)
	assert.True(t, sink.closed)
	assert.Equal(t, int64(0), d.Dropped())
}

func TestDispatcherFlushesPeriodically(t *testing.T) {
	sink := &fakeSink{}
	d := NewDispatcher(sink, zap.NewNop(), 16, 10*time.Millisecond)
	defer d.Close(context.Background())

	d.Emit(New(RegisterEvent, "alice", "e1", nil))

	assert.Eventually(t, func() bool { return len(sink.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
}

func TestDispatcherEmitNeverBlocks(t *testing.T) {
	sink := &fakeSink{block: make(chan struct{}), entered: make(chan struct{}, 1)}
	d := NewDispatcher(sink, zap.NewNop(), 2, time.Millisecond)

	d.Emit(New(PageView, "", "", nil))
	select {
	case <-sink.entered:
	case <-time.After(time.Second):
		t.Fatal("sink was never written")
	}

	done := make(chan struct{})
	go func() {
		for i := 0; i < 50; i++ {
			d.Emit(New(PageView, "", "", nil))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Emit blocked on a stalled sink")
	}
	assert.Positive(t, d.Dropped())

	close(sink.block)
	require.NoError(t, d.Close(context.Background()))
}

func TestDispatcherCountsSinkFailures(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	sink := &fakeSink{err: errors.New("broker down")}
	d := NewDispatcher(sink, zap.New(core), 8, time.Hour)

	d.Emit(New(XPEarned, "alice", "e1", map[string]any{"xp": 500}))
	d.Emit(New(XPEarned, "bob", "e1", map[string]any{"xp": 500}))
	require.NoError(t, d.Close(context.Background()))

	assert.Equal(t, int64(2), d.Failed())
	assert.Equal(t, 1, logs.FilterMessage("activity write failed").Len())
}

func TestDispatcherDropsAfterClose(t *testing.T) {
	d := NewDispatcher(&fakeSink{}, zap.NewNop(), 8, time.Hour)
	require.NoError(t, d.Close(context.Background()))
	d.Emit(New(PageView, "", "", nil))
	assert.Equal(t, int64(1), d.Dropped())
}

func TestDispatcherEmitRacingCloseIsAccounted(t *testing.T) {
	const emitters, perEmitter = 8, 200
	for round := 0; round < 20; round++ {
		sink := &fakeSink{}
		d := NewDispatcher(sink, zap.NewNop(), emitters*perEmitter, time.Hour)

		var wg sync.WaitGroup
		start := make(chan struct{})
		for i := 0; i < emitters; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				for j := 0; j < perEmitter; j++ {
					d.Emit(New(PageView, "", "", nil))
				}
			}()
		}
		close(start)
		require.NoError(t, d.Close(context.Background()))
		wg.Wait()

		// Every record is either delivered or counted as dropped.
		assert.Equal(t, int64(emitters*perEmitter), int64(len(sink.snapshot()))+d.Dropped())
	}
}

type fakeWriter struct {
	msgs []kafka.Message
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestKafkaSinkMessageShape(t *testing.T) {
	w := &fakeWriter{}
	sink := &KafkaSink{w: w}

	r := New(RegisterEvent, "alice", "e1", nil)
	require.NoError(t, sink.Write(context.Background(), []Record{r}))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, []byte("alice"), msg.Key)
	assert.Equal(t, []kafka.Header{
		{Key: "type", Value: []byte("register_event")},
		{Key: "version", Value: []byte("1")},
	}, msg.Headers)

	var decoded Record
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, r.ID, decoded.ID)
	assert.Equal(t, "e1", decoded.EventID)
}

type fakePublisher struct {
	subjects []string
	flushed  int
}

func (p *fakePublisher) Publish(subject string, _ []byte) error {
	p.subjects = append(p.subjects, subject)
	return nil
}

func (p *fakePublisher) FlushWithContext(context.Context) error {
	p.flushed++
	return nil
}

func (p *fakePublisher) Drain() error { return nil }

func TestNATSSinkSubjects(t *testing.T) {
	p := &fakePublisher{}
	sink := &NATSSink{conn: p, subject: "portal.activity"}

	require.NoError(t, sink.Write(context.Background(), []Record{
		New(MemberLogin, "alice", "", nil),
		New(SkillAdded, "alice", "", nil),
	}))
	assert.Equal(t, []string{"portal.activity.member_login", "portal.activity.skill_added"}, p.subjects)
	assert.Equal(t, 1, p.flushed)
}

func TestLogSink(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	sink := NewLogSink(zap.New(core))
	require.NoError(t, sink.Write(context.Background(), []Record{New(PageView, "", "", nil)}))

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "anonymous", entries[0].ContextMap()["user_id"])
}
