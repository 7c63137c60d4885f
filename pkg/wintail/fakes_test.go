package wintail

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
)

// fakeSource is an in-memory upstream logfile.
type fakeSource struct {
	mu          sync.Mutex
	data        []byte
	lengthErr   error
	fetchErr    error
	lengthCalls int
	fetchCalls  int
	ranges      [][2]int64
}

func (f *fakeSource) Length(_ context.Context, _ string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lengthCalls++
	if f.lengthErr != nil {
		return 0, f.lengthErr
	}
	return int64(len(f.data)), nil
}

func (f *fakeSource) FetchRange(_ context.Context, location string, from, to int64) (Chunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if from == to {
		return NoNewData(), nil
	}
	f.fetchCalls++
	if f.fetchErr != nil {
		return Chunk{}, f.fetchErr
	}
	if from < 0 || from > to || to > int64(len(f.data)) {
		return Chunk{}, &RangeError{Source: location, From: from, To: to, Status: 416}
	}
	f.ranges = append(f.ranges, [2]int64{from, to})
	return Data(bytes.Clone(f.data[from:to])), nil
}

func (f *fakeSource) append(b []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data = append(f.data, b...)
}

func (f *fakeSource) setFetchErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchErr = err
}

// fakeStore is a PositionStore with injectable failures.
type fakeStore struct {
	mu      sync.Mutex
	offsets map[string]int64
	getErr  error
	setErr  error
	sets    []int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{offsets: make(map[string]int64)}
}

func (s *fakeStore) Get(_ context.Context, id string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return 0, s.getErr
	}
	off, ok := s.offsets[id]
	if !ok {
		return 0, ErrOffsetNotFound
	}
	return off, nil
}

func (s *fakeStore) Set(_ context.Context, id string, offset int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setErr != nil {
		return s.setErr
	}
	s.offsets[id] = offset
	s.sets = append(s.sets, offset)
	return nil
}

func (s *fakeStore) offset(id string) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	off, ok := s.offsets[id]
	return off, ok
}

type fakeRecorder struct {
	mu        sync.Mutex
	completed []string
	skipped   int
	failedOps []string
}

func (r *fakeRecorder) PollCompleted(sourceID string, from, to int64, records, wins int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed = append(r.completed, sourceID)
}

func (r *fakeRecorder) PollSkipped(string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.skipped++
}

func (r *fakeRecorder) PollFailed(_, op string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failedOps = append(r.failedOps, op)
}

var staticResolver = ResolverFunc(func(id string) (string, error) {
	if id == "unknown" {
		return "", ErrUnknownSource
	}
	return "http://logs.test/" + id, nil
})

// logLines joins lines with trailing newlines.
func logLines(lines ...string) []byte {
	var b bytes.Buffer
	for _, l := range lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	return b.Bytes()
}

// padded appends a non-win filler line so the result is exactly size bytes.
func padded(size int, lines ...string) []byte {
	const head = "v=0.30:name=Pad:tmsg=quit the game:pad="
	b := logLines(lines...)
	n := size - len(b) - len(head) - 1
	if n < 0 {
		panic("padded: size too small")
	}
	return append(b, []byte(head+strings.Repeat("x", n)+"\n")...)
}

func win(name string) string {
	return "v=0.30:name=" + name + ":race=Human:cls=Fighter:tmsg=escaped with the Orb"
}

func death(name string) string {
	return "v=0.30:name=" + name + ":race=Human:cls=Fighter:tmsg=slain by an orc"
}

var errBoom = errors.New("boom")
