package sync

import (
	"log"
	"sync"
	"time"

	"readrise/internal/models"
)

// Snapshot is the full current state of one organization's records. Every
// change delivers a complete snapshot, so out-of-order delivery is
// self-correcting: the latest delivered snapshot always wins and no partial
// reconciliation is needed.
type Snapshot struct {
	OrgID      string
	Families   []models.Family
	Incentives models.IncentiveList
	Version    int64
	TakenAt    time.Time

	// Err carries a user-facing note when a rebuild failed. The rest of
	// the snapshot is the previous good state (fail-soft, not
	// fail-closed).
	Err string
}

// Loader rebuilds the current snapshot for an organization from storage.
type Loader interface {
	LoadSnapshot(orgID string) (*Snapshot, error)
}

// Hub fans complete org-scoped snapshots out to subscribers. Subscriptions
// are torn down with the returned unsubscribe func; leaving one behind on
// an org or auth switch would leak a subscription per switch.
type Hub struct {
	loader Loader

	mu      sync.Mutex
	subs    map[string]map[int64]chan Snapshot
	last    map[string]Snapshot
	version int64
	nextSub int64
}

// NewHub creates a hub backed by the given snapshot loader
func NewHub(loader Loader) *Hub {
	return &Hub{
		loader: loader,
		subs:   make(map[string]map[int64]chan Snapshot),
		last:   make(map[string]Snapshot),
	}
}

// Subscribe registers a subscriber for an organization's snapshots and
// returns the delivery channel plus an idempotent unsubscribe func. The
// current snapshot is delivered immediately; afterwards every published
// change delivers a fresh one. An empty orgID subscribes to single-tenant
// mode.
func (h *Hub) Subscribe(orgID string) (<-chan Snapshot, func()) {
	// Buffered by one: a slow consumer only ever misses intermediate
	// snapshots, never the latest.
	ch := make(chan Snapshot, 1)

	h.mu.Lock()
	h.nextSub++
	id := h.nextSub
	if h.subs[orgID] == nil {
		h.subs[orgID] = make(map[int64]chan Snapshot)
	}
	h.subs[orgID][id] = ch

	snap, ok := h.last[orgID]
	h.mu.Unlock()

	if !ok {
		snap = h.rebuild(orgID)
	}
	deliver(ch, snap)

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[orgID], id)
			if len(h.subs[orgID]) == 0 {
				delete(h.subs, orgID)
			}
			h.mu.Unlock()
		})
	}

	return ch, unsubscribe
}

// Publish rebuilds the organization's snapshot and delivers it to every
// subscriber. Call after any successful mutation.
func (h *Hub) Publish(orgID string) {
	snap := h.rebuild(orgID)

	h.mu.Lock()
	channels := make([]chan Snapshot, 0, len(h.subs[orgID]))
	for _, ch := range h.subs[orgID] {
		channels = append(channels, ch)
	}
	h.mu.Unlock()

	for _, ch := range channels {
		deliver(ch, snap)
	}
}

// SubscriberCount reports how many live subscriptions an organization has
func (h *Hub) SubscriberCount(orgID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[orgID])
}

// rebuild loads a fresh snapshot. On load failure the previous good
// snapshot is kept and annotated rather than discarded.
func (h *Hub) rebuild(orgID string) Snapshot {
	loaded, err := h.loader.LoadSnapshot(orgID)

	h.mu.Lock()
	defer h.mu.Unlock()

	if err != nil {
		log.Printf("Snapshot rebuild failed for org %q: %v", orgID, err)
		snap := h.last[orgID]
		snap.OrgID = orgID
		snap.Err = "Could not refresh data. Showing the last known state."
		h.last[orgID] = snap
		return snap
	}

	h.version++
	snap := *loaded
	snap.OrgID = orgID
	snap.Version = h.version
	snap.TakenAt = time.Now()
	snap.Err = ""
	h.last[orgID] = snap
	return snap
}

// deliver replaces any undelivered snapshot with the newer one
func deliver(ch chan Snapshot, snap Snapshot) {
	for {
		select {
		case ch <- snap:
			return
		default:
			select {
			case <-ch:
			default:
			}
		}
	}
}
