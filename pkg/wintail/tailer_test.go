package wintail

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTailer(t *testing.T, src *fakeSource, store *fakeStore, opts ...Option) *Tailer {
	t.Helper()
	tl, err := New(store, src, staticResolver, opts...)
	require.NoError(t, err)
	return tl
}

func names(recs []Record) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Value("name"))
	}
	return out
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(nil, &fakeSource{}, staticResolver)
	assert.Error(t, err)
	_, err = New(newFakeStore(), nil, staticResolver)
	assert.Error(t, err)
	_, err = New(newFakeStore(), &fakeSource{}, nil)
	assert.Error(t, err)
}

func TestBootstrapOffset(t *testing.T) {
	tests := []struct {
		length, window, want int64
	}{
		{0, 8192, 0},
		{1000, 8192, 0},
		{8192, 8192, 0},
		{8193, 8192, 1},
		{20000, 8192, 11808},
		{20000, 0, 0},
		{20000, -5, 0},
	}
	for _, tt := range tests {
		got := bootstrapOffset(tt.length, tt.window)
		if got != tt.want {
			t.Errorf("bootstrapOffset(%d, %d) = %d, want %d", tt.length, tt.window, got, tt.want)
		}
		if got < 0 || got > tt.length {
			t.Errorf("bootstrapOffset(%d, %d) = %d outside [0, length]", tt.length, tt.window, got)
		}
	}
}

// Length grows 1000 -> 1300 between two polls.
func TestPoll_EndToEnd(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{data: padded(1000, win("Zook"), death("Ana"), win("Kay"))}
	store := newFakeStore()
	tl := newTestTailer(t, src, store)

	res, err := tl.PollResult(ctx, "webzook")
	require.NoError(t, err)
	assert.True(t, res.Bootstrapped)
	assert.True(t, res.Committed)
	assert.Equal(t, int64(0), res.From)
	assert.Equal(t, int64(1000), res.To)
	assert.Equal(t, 4, res.Records)
	assert.Equal(t, []string{"Zook", "Kay"}, names(res.Wins))

	off, _ := store.offset("webzook")
	assert.Equal(t, int64(1000), off)

	src.append(padded(300, death("Zook"), win("Ana")))

	wins, err := tl.Poll(ctx, "webzook")
	require.NoError(t, err)
	assert.Equal(t, []string{"Ana"}, names(wins))

	off, _ = store.offset("webzook")
	assert.Equal(t, int64(1300), off)
	assert.Equal(t, [][2]int64{{0, 1000}, {1000, 1300}}, src.ranges)
}

func TestPoll_IdempotentSteadyState(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{data: logLines(win("Zook"))}
	store := newFakeStore()
	tl := newTestTailer(t, src, store)

	_, err := tl.Poll(ctx, "webzook")
	require.NoError(t, err)
	require.Len(t, store.sets, 1)
	fetches := src.fetchCalls

	for i := 0; i < 2; i++ {
		res, err := tl.PollResult(ctx, "webzook")
		require.NoError(t, err)
		assert.Empty(t, res.Wins)
		assert.False(t, res.Committed)
	}

	assert.Len(t, store.sets, 1, "steady state must not write the store")
	assert.Equal(t, fetches, src.fetchCalls, "steady state must not fetch")
	off, _ := store.offset("webzook")
	assert.Equal(t, int64(len(src.data)), off)
}

func TestPoll_OffsetMonotonic(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{}
	store := newFakeStore()
	tl := newTestTailer(t, src, store)

	appends := [][]byte{
		logLines(win("a")),
		nil,
		logLines(death("b"), death("c")),
		logLines(win("d")),
		nil,
		logLines(win("e"), win("f")),
	}
	var last int64
	var got []string
	for _, b := range appends {
		src.append(b)
		wins, err := tl.Poll(ctx, "webzook")
		require.NoError(t, err)
		got = append(got, names(wins)...)

		off, ok := store.offset("webzook")
		if len(src.data) > 0 {
			require.True(t, ok)
		}
		assert.GreaterOrEqual(t, off, last)
		assert.Equal(t, int64(len(src.data)), off)
		last = off
	}
	assert.Equal(t, []string{"a", "d", "e", "f"}, got, "each win exactly once")
}

func TestPoll_NoLossOnFetchFailure(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{data: logLines(win("first"))}
	store := newFakeStore()
	tl := newTestTailer(t, src, store)

	_, err := tl.Poll(ctx, "webzook")
	require.NoError(t, err)
	before, _ := store.offset("webzook")

	src.append(logLines(win("second"), death("x"), win("third")))
	unavailable := &UnavailableError{Source: "http://logs.test/webzook", Status: 503}
	src.setFetchErr(unavailable)

	wins, err := tl.Poll(ctx, "webzook")
	require.Error(t, err)
	assert.Nil(t, wins)
	assert.ErrorIs(t, err, ErrPollFailed)
	var ue *UnavailableError
	assert.ErrorAs(t, err, &ue)
	var pe *PollError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "fetch", pe.Op)

	after, _ := store.offset("webzook")
	assert.Equal(t, before, after, "failed poll must not move the offset")

	src.setFetchErr(nil)
	wins, err = tl.Poll(ctx, "webzook")
	require.NoError(t, err)
	assert.Equal(t, []string{"second", "third"}, names(wins))
	assert.Equal(t, [2]int64{before, int64(len(src.data))}, src.ranges[len(src.ranges)-1])
}

func TestPoll_ColdStartFailureIsNotPersisted(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{data: logLines(win("a")), fetchErr: errBoom}
	store := newFakeStore()
	tl := newTestTailer(t, src, store)

	_, err := tl.Poll(ctx, "webzook")
	require.ErrorIs(t, err, ErrPollFailed)
	_, ok := store.offset("webzook")
	assert.False(t, ok, "bootstrap offset must not be stored before a successful fetch")
}

func TestPoll_CommitFailure(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{data: logLines(win("a"))}
	store := newFakeStore()
	store.setErr = errBoom
	tl := newTestTailer(t, src, store)

	wins, err := tl.Poll(ctx, "webzook")
	require.ErrorIs(t, err, ErrPollFailed)
	assert.ErrorIs(t, err, errBoom)
	assert.Nil(t, wins, "wins of an uncommitted range are redelivered, not returned")

	store.setErr = nil
	wins, err = tl.Poll(ctx, "webzook")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, names(wins))
}

func TestPoll_Failures(t *testing.T) {
	tests := []struct {
		name   string
		id     string
		setup  func(*fakeSource, *fakeStore)
		wantOp string
		check  func(*testing.T, error)
	}{
		{
			name:   "unknown source",
			id:     "unknown",
			wantOp: "resolve",
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrUnknownSource)
			},
		},
		{
			name:   "store read",
			id:     "webzook",
			setup:  func(_ *fakeSource, s *fakeStore) { s.getErr = errBoom },
			wantOp: "load offset",
		},
		{
			name:   "length",
			id:     "webzook",
			setup:  func(f *fakeSource, _ *fakeStore) { f.lengthErr = &UnavailableError{Source: "x", Err: errBoom} },
			wantOp: "length",
		},
		{
			name: "stale offset",
			id:   "webzook",
			setup: func(_ *fakeSource, s *fakeStore) {
				s.offsets["webzook"] = 5000
			},
			wantOp: "fetch",
			check: func(t *testing.T, err error) {
				assert.True(t, StaleOffset(err))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &fakeSource{data: logLines(win("a"))}
			store := newFakeStore()
			if tt.setup != nil {
				tt.setup(src, store)
			}
			rec := &fakeRecorder{}
			tl := newTestTailer(t, src, store, WithRecorder(rec))

			_, err := tl.Poll(context.Background(), tt.id)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrPollFailed)

			var pe *PollError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, tt.wantOp, pe.Op)
			assert.Equal(t, tt.id, pe.SourceID)
			assert.Equal(t, []string{tt.wantOp}, rec.failedOps)
			assert.Zero(t, src.fetchCalls, "no fetch after an earlier failure")
			assert.Empty(t, store.sets)

			if tt.check != nil {
				tt.check(t, err)
			}
		})
	}
}

func TestPoll_ColdStartWindow(t *testing.T) {
	ctx := context.Background()

	var lines []string
	for i := 0; i < 400; i++ {
		lines = append(lines, death("filler"))
	}
	lines = append(lines, win("recent"))
	data := logLines(lines...)
	length := int64(len(data))
	require.Greater(t, length, DefaultWindowBytes)

	src := &fakeSource{data: data}
	store := newFakeStore()
	tl := newTestTailer(t, src, store)

	res, err := tl.PollResult(ctx, "webzook")
	require.NoError(t, err)
	assert.Equal(t, length-DefaultWindowBytes, res.From)
	assert.Equal(t, length, res.To)
	assert.Equal(t, []string{"recent"}, names(res.Wins))
	// 128 whole filler lines and the win; the leading fragment is dropped.
	assert.Equal(t, 129, res.Records)
}

func TestPoll_WindowOption(t *testing.T) {
	data := logLines(win("old"), death("x"), win("new"))
	tail := int64(len(win("new")) + 1)

	src := &fakeSource{data: data}
	tl := newTestTailer(t, src, newFakeStore(), WithWindowBytes(tail))

	wins, err := tl.Poll(context.Background(), "webzook")
	require.NoError(t, err)
	assert.Equal(t, []string{"new"}, names(wins))
}

func TestPoll_ZeroWindowReadsEverything(t *testing.T) {
	src := &fakeSource{data: logLines(win("old"), win("new"))}
	tl := newTestTailer(t, src, newFakeStore(), WithWindowBytes(0))

	wins, err := tl.Poll(context.Background(), "webzook")
	require.NoError(t, err)
	assert.Equal(t, []string{"old", "new"}, names(wins))
}

func TestPoll_EmptyLogColdStart(t *testing.T) {
	src := &fakeSource{}
	store := newFakeStore()
	tl := newTestTailer(t, src, store)

	wins, err := tl.Poll(context.Background(), "webzook")
	require.NoError(t, err)
	assert.Empty(t, wins)
	_, ok := store.offset("webzook")
	assert.False(t, ok, "nothing consumed, nothing stored")
}

func TestPoll_SourcesAreIndependent(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{data: logLines(win("a"))}
	store := newFakeStore()
	tl := newTestTailer(t, src, store)

	wins, err := tl.Poll(ctx, "one")
	require.NoError(t, err)
	assert.Len(t, wins, 1)

	wins, err = tl.Poll(ctx, "two")
	require.NoError(t, err)
	assert.Len(t, wins, 1, "a second source has its own offset")
}

func TestPoll_WinPrefixOption(t *testing.T) {
	src := &fakeSource{data: logLines(win("a"), death("b"))}
	tl := newTestTailer(t, src, newFakeStore(), WithWinPrefix("slain by"))

	wins, err := tl.Poll(context.Background(), "webzook")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, names(wins))
}

func TestPoll_Recorder(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{data: logLines(win("a"))}
	rec := &fakeRecorder{}
	tl := newTestTailer(t, src, newFakeStore(), WithRecorder(rec))

	_, err := tl.Poll(ctx, "webzook")
	require.NoError(t, err)
	_, err = tl.Poll(ctx, "webzook")
	require.NoError(t, err)

	assert.Equal(t, []string{"webzook"}, rec.completed)
	assert.Equal(t, 1, rec.skipped)
	assert.Empty(t, rec.failedOps)
}

func TestPoll_SingleLengthCall(t *testing.T) {
	src := &fakeSource{data: logLines(win("a"))}
	tl := newTestTailer(t, src, newFakeStore())

	_, err := tl.Poll(context.Background(), "webzook")
	require.NoError(t, err)
	assert.Equal(t, 1, src.lengthCalls)
}

func TestPoll_FailureLogFields(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	src := &fakeSource{data: logLines(win("Zook")), lengthErr: errBoom}
	tl := newTestTailer(t, src, newFakeStore(), WithLogger(logger))

	_, err := tl.Poll(context.Background(), "webzook")
	require.Error(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "poll failed", entry["msg"])
	assert.Equal(t, "webzook", entry["source"])
	assert.Equal(t, "length", entry["op"])
	assert.Equal(t, "boom", entry["error"])
}
