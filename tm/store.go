package tm

import (
	"sync"
	"time"

	"github.com/orcaby/twopc"
)

// store is the Order Store (base spec §4.3): a mapping from Toid to
// Order, a monotonic id allocator, a sliding firstIndex for garbage
// collection, and the alive set. Grounded on flow/idempotency_store.go's
// mutex-guarded map-plus-key-normalization shape, generalized from a
// single idempotency cache to the full order table.
type store struct {
	mu sync.Mutex

	ids        *twopc.IDAllocator
	firstIndex uint64
	orders     map[twopc.Toid]*twopc.Order
	alive      map[twopc.Toid]struct{}
}

func newStore() *store {
	return &store{
		ids:        twopc.NewIDAllocator(1),
		firstIndex: 1,
		orders:     make(map[twopc.Toid]*twopc.Order),
		alive:      make(map[twopc.Toid]struct{}),
	}
}

// create allocates a fresh Order in status Todo, gate Opening.
func (s *store) create(data []byte) *twopc.Order {
	s.mu.Lock()
	defer s.mu.Unlock()

	toid := twopc.Toid(s.ids.Next())
	order := &twopc.Order{
		Toid:         toid,
		AllowPushing: twopc.GateOpening,
		Status:       twopc.OrderTodo,
		Time:         time.Now(),
		Data:         data,
	}
	s.orders[toid] = order
	return order
}

func (s *store) get(toid twopc.Toid) (*twopc.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[toid]
	return o, ok
}

// syncAlive adds or removes toid from the alive set based on the
// order's current Alive() value (base spec §3 invariant 7). Called after
// every mutation that might change status or task count.
func (s *store) syncAlive(toid twopc.Toid, order *twopc.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if order.Alive() {
		s.alive[toid] = struct{}{}
	} else {
		delete(s.alive, toid)
	}
}

func (s *store) aliveOrders() []*twopc.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*twopc.Order, 0, len(s.alive))
	for toid := range s.alive {
		if o, ok := s.orders[toid]; ok {
			out = append(out, o)
		}
	}
	return out
}

func (s *store) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

// page returns a 1-indexed slice over the live range [firstIndex, index)
// (base spec §6 pagination).
func (s *store) page(page, size int) (data []*twopc.Order, totalPage int, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]twopc.Toid, 0, len(s.orders))
	for toid := range s.orders {
		ids = append(ids, toid)
	}
	// deterministic ascending order, matching the order ids were created in.
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}

	total = len(ids)
	if size <= 0 {
		size = total
	}
	if size == 0 {
		return nil, 0, 0
	}
	totalPage = (total + size - 1) / size
	if page < 1 {
		page = 1
	}
	start := (page - 1) * size
	if start >= total {
		return nil, totalPage, total
	}
	end := start + size
	if end > total {
		end = total
	}
	data = make([]*twopc.Order, 0, end-start)
	for _, toid := range ids[start:end] {
		data = append(data, s.orders[toid])
	}
	return data, totalPage, total
}

// clear sweeps from firstIndex upward per base spec §4.3 _clear: empty
// slots advance the pointer; expired slots whose order is terminal (or,
// when delExc is true, any expired slot) are deleted and the pointer
// advances; the first
// non-deletable live order halts advancement. autoClearTimeout <= 0 means
// no retention window is configured, so nothing is ever considered
// expired; delExc can still force deletion of a non-terminal order, but
// never an order whose age can't be judged against a real timeout.
func (s *store) clear(now time.Time, autoClearTimeout time.Duration, delExc bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.firstIndex
	limit := s.ids.Peek()
	for idx < limit {
		toid := twopc.Toid(idx)
		order, ok := s.orders[toid]
		if !ok {
			idx++
			continue
		}

		expired := autoClearTimeout > 0 && now.After(order.Time.Add(autoClearTimeout))
		deletable := expired && (delExc || order.Status.Terminal())
		if !deletable {
			break
		}

		delete(s.orders, toid)
		delete(s.alive, toid)
		idx++
	}
	s.firstIndex = idx
}
