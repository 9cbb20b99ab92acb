package dynarr

import (
	"fmt"
	"testing"

	"go.uber.org/zap"

	"github.com/pavanmanishd/dynarr/storage"
)

// aborted is the panic value raised by the abort hook under test.
type aborted struct {
	msg string
}

// catchAborts replaces the process exit with a panic for the duration of t.
func catchAborts(t *testing.T) {
	t.Helper()
	orig := abort
	abort = func(msg string, _ ...zap.Field) { panic(aborted{msg}) }
	t.Cleanup(func() { abort = orig })
}

// dropLog records Drop calls per token id.
type dropLog struct {
	counts  map[int]int
	explode map[int]bool
}

func newDropLog() *dropLog {
	return &dropLog{counts: map[int]int{}, explode: map[int]bool{}}
}

// token is an element type that must be dropped exactly once.
type token struct {
	id  int
	log *dropLog
}

func (t token) Drop() {
	t.log.counts[t.id]++
	if t.log.explode[t.id] {
		panic(fmt.Sprintf("drop of token %d", t.id))
	}
}

func (l *dropLog) tokens(n int) []token {
	out := make([]token, n)
	for i := range out {
		out[i] = token{id: i, log: l}
	}
	return out
}

// droppedOnce reports the ids in [0, n) not dropped exactly once.
func (l *dropLog) droppedOnce(n int) []int {
	var bad []int
	for i := 0; i < n; i++ {
		if l.counts[i] != 1 {
			bad = append(bad, i)
		}
	}
	return bad
}

func fromIn[T any](s storage.Storage, values ...T) *DynArr[T] {
	a := WithCapacity[T](len(values), InStorage(s))
	a.Extend(values...)
	return a
}

func seq[T ~int | ~uint | ~uint8 | ~uint32 | ~uint64 | ~int64](n int) []T {
	out := make([]T, n)
	for i := range out {
		out[i] = T(i)
	}
	return out
}

// recovered runs f and returns what it panicked with.
func recovered(f func()) (r any) {
	defer func() { r = recover() }()
	f()
	return nil
}
