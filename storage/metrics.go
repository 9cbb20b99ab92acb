package storage

import (
	"sync"
	"unsafe"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Stats is a snapshot of the traffic seen by a Metrics storage.
type Stats struct {
	Allocations   int   // regions created by Allocate, AllocateZeroed or a moving Grow/Shrink
	Deallocations int   // regions released
	Grows         int   // Grow calls
	GrowsInPlace  int   // Grow calls that kept the base address
	Shrinks       int   // Shrink calls
	Failures      int   // refused requests
	Live          int   // regions currently owned by handles
	BytesInUse    int64 // bytes currently owned by handles
	// BytesAllocated counts every byte handed out, including growth of
	// regions that kept their address.
	BytesAllocated int64
}

// Metrics wraps a Storage, counting every operation and tracking live
// handles. Giving back a handle it does not know about, such as one that was
// already freed, panics with ErrInvalidHandle. Metrics is safe for concurrent
// use when its upstream is.
type Metrics struct {
	upstream Storage

	mu    sync.Mutex
	live  map[unsafe.Pointer]uintptr
	stats Stats

	ops      *prometheus.CounterVec
	inUse    prometheus.Gauge
	liveRegs prometheus.Gauge
}

var _ Storage = (*Metrics)(nil)

// NewMetrics wraps upstream. Collectors are registered with reg when it is
// not nil.
func NewMetrics(upstream Storage, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		upstream: upstream,
		live:     make(map[unsafe.Pointer]uintptr),
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dynarr",
			Subsystem: "storage",
			Name:      "operations_total",
			Help:      "Storage operations by kind.",
		}, []string{"op"}),
		inUse: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "dynarr",
			Subsystem: "storage",
			Name:      "inuse_bytes",
			Help:      "Bytes owned by live handles.",
		}),
		liveRegs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "dynarr",
			Subsystem: "storage",
			Name:      "inuse_regions",
			Help:      "Regions owned by live handles.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.ops, m.inUse, m.liveRegs)
	}
	return m
}

// Stats returns a snapshot of the counters.
func (m *Metrics) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

// Owns reports whether h is a live handle of this storage.
func (m *Metrics) Owns(h Handle) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.live[h.Ptr]
	return ok
}

func (m *Metrics) Allocate(l Layout) (Handle, error) {
	return m.allocate(l, m.upstream.Allocate)
}

func (m *Metrics) AllocateZeroed(l Layout) (Handle, error) {
	return m.allocate(l, m.upstream.AllocateZeroed)
}

func (m *Metrics) allocate(l Layout, fn func(Layout) (Handle, error)) (Handle, error) {
	h, err := fn(l)
	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.failed("allocate", l, err)
		return h, err
	}
	m.track(h)
	return h, nil
}

func (m *Metrics) Grow(h Handle, l Layout, preserve uintptr) (Handle, error) {
	m.mustOwn("grow", h)

	grown, err := m.upstream.Grow(h, l, preserve)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.Grows++
	m.ops.WithLabelValues("grow").Inc()
	if err != nil {
		m.failed("grow", l, err)
		return h, err
	}
	if grown.Ptr == h.Ptr && !h.IsDangling() {
		m.stats.GrowsInPlace++
	}
	m.retrack(h, grown)
	return grown, nil
}

func (m *Metrics) Shrink(h Handle, l Layout) (Handle, error) {
	m.mustOwn("shrink", h)

	shrunk, err := m.upstream.Shrink(h, l)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.Shrinks++
	m.ops.WithLabelValues("shrink").Inc()
	if err != nil {
		m.failed("shrink", l, err)
		return h, err
	}
	m.retrack(h, shrunk)
	return shrunk, nil
}

func (m *Metrics) Deallocate(h Handle, l Layout) {
	if h.IsDangling() {
		return
	}
	m.mustOwn("deallocate", h)
	m.mu.Lock()
	m.untrack(h)
	m.mu.Unlock()

	m.upstream.Deallocate(h, l)
}

// mustOwn panics on handles this storage never handed out or already freed.
func (m *Metrics) mustOwn(op string, h Handle) {
	if h.IsDangling() || m.Owns(h) {
		return
	}
	panic(errors.Wrapf(ErrInvalidHandle, "%s of unknown region %p", op, h.Ptr))
}

// retrack moves the bookkeeping of old over to h. A region that kept its
// base address is resized, not reallocated.
func (m *Metrics) retrack(old, h Handle) {
	if old.IsDangling() || old.Ptr != h.Ptr {
		m.untrack(old)
		m.track(h)
		return
	}
	delta := int64(h.Size) - int64(m.live[h.Ptr])
	m.live[h.Ptr] = h.Size
	m.stats.BytesInUse += delta
	if delta > 0 {
		m.stats.BytesAllocated += delta
	}
	m.inUse.Add(float64(delta))
}

func (m *Metrics) track(h Handle) {
	if h.IsDangling() {
		return
	}
	if _, ok := m.live[h.Ptr]; ok {
		return
	}
	m.live[h.Ptr] = h.Size
	m.stats.Allocations++
	m.stats.Live++
	m.stats.BytesInUse += int64(h.Size)
	m.stats.BytesAllocated += int64(h.Size)
	m.ops.WithLabelValues("allocate").Inc()
	m.inUse.Add(float64(h.Size))
	m.liveRegs.Inc()
}

func (m *Metrics) untrack(h Handle) {
	size, ok := m.live[h.Ptr]
	if !ok {
		return
	}
	delete(m.live, h.Ptr)
	m.stats.Deallocations++
	m.stats.Live--
	m.stats.BytesInUse -= int64(size)
	m.ops.WithLabelValues("deallocate").Inc()
	m.inUse.Sub(float64(size))
	m.liveRegs.Dec()
}

func (m *Metrics) failed(op string, l Layout, err error) {
	m.stats.Failures++
	m.ops.WithLabelValues("failure").Inc()
	logger.Debug("storage request refused",
		zap.String("op", op),
		zap.Stringer("layout", l),
		zap.Error(err),
	)
}
