package tm

import (
	"time"

	"github.com/orcaby/twopc"
	"github.com/orcaby/twopc/actuator"
)

// Data is the deterministic snapshot of all in-memory TM state (base spec
// §4.6). Field names are stable; the serialization format (yaml.v3 via
// gopkg.in/yaml.v3, or encoding/json) is host-chosen. Per-task and
// per-order callback maps are intentionally absent: they reference
// host-side closures, per base spec §9 "callback ownership".
type Data struct {
	AutoClearTimeout time.Duration   `json:"auto_clear_timeout" yaml:"auto_clear_timeout"`
	Index            uint64          `json:"index" yaml:"index"`
	FirstIndex       uint64          `json:"first_index" yaml:"first_index"`
	Orders           []OrderEntry    `json:"orders" yaml:"orders"`
	Alive            []twopc.Toid    `json:"alive" yaml:"alive"`
	Actuator         actuator.Data   `json:"actuator" yaml:"actuator"`
}

// OrderEntry pairs an order id with its full record, the "sequence of
// pairs" shape base spec §4.6 calls for.
type OrderEntry struct {
	Toid  twopc.Toid  `json:"toid" yaml:"toid"`
	Order twopc.Order `json:"order" yaml:"order"`
}

// GetData returns a deterministic snapshot of every order, the alive
// set, and the nested actuator snapshot.
func (m *Manager) GetData() Data {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.store.mu.Lock()
	entries := make([]OrderEntry, 0, len(m.store.orders))
	ids := make([]twopc.Toid, 0, len(m.store.orders))
	for toid := range m.store.orders {
		ids = append(ids, toid)
	}
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
	for _, toid := range ids {
		entries = append(entries, OrderEntry{Toid: toid, Order: *m.store.orders[toid]})
	}
	alive := make([]twopc.Toid, 0, len(m.store.alive))
	for toid := range m.store.alive {
		alive = append(alive, toid)
	}
	for i := 1; i < len(alive); i++ {
		for j := i; j > 0 && alive[j-1] > alive[j]; j-- {
			alive[j-1], alive[j] = alive[j], alive[j-1]
		}
	}
	index := m.store.ids.Peek()
	firstIndex := m.store.firstIndex
	m.store.mu.Unlock()

	return Data{
		AutoClearTimeout: m.cfg.AutoClearTimeout,
		Index:            index,
		FirstIndex:       firstIndex,
		Orders:           entries,
		Alive:            alive,
		Actuator:         m.act.GetData(),
	}
}

// SetData replaces all state atomically. Only default callbacks fire
// until the host re-registers per-id callbacks via governance (base spec
// §4.6).
func (m *Manager) SetData(d Data) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cfg.AutoClearTimeout = d.AutoClearTimeout

	m.store.mu.Lock()
	m.store.ids.SetNext(d.Index)
	m.store.firstIndex = d.FirstIndex
	m.store.orders = make(map[twopc.Toid]*twopc.Order, len(d.Orders))
	for _, entry := range d.Orders {
		order := entry.Order
		m.store.orders[entry.Toid] = &order
	}
	m.store.alive = make(map[twopc.Toid]struct{}, len(d.Alive))
	for _, toid := range d.Alive {
		m.store.alive[toid] = struct{}{}
	}
	m.store.mu.Unlock()

	m.router = newRouter(m.router.defaultTask, m.router.defaultOrder)
	m.act.SetData(d.Actuator)
	m.act.SetProxy(m.taskCallbackProxy)
}
