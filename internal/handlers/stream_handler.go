package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"readrise/internal/sync"
	"readrise/internal/view"
)

// StreamHandler pushes live snapshots to connected clients over
// server-sent events. A client subscribes once and then receives the
// complete current state after every mutation, so it never has to
// reconcile partial updates.
type StreamHandler struct {
	hub       *sync.Hub
	viewStore *view.Store
}

// NewStreamHandler creates a new stream handler
func NewStreamHandler(hub *sync.Hub, viewStore *view.Store) *StreamHandler {
	return &StreamHandler{hub: hub, viewStore: viewStore}
}

type snapshotEvent struct {
	OrgID      string       `json:"orgId"`
	Families   []FamilyView `json:"families"`
	Incentives []string     `json:"incentives"`
	MonthKey   string       `json:"monthKey"`
	Version    int64        `json:"version"`
	Error      string       `json:"error,omitempty"`
}

// Snapshots streams org snapshots until the client disconnects. The
// subscription follows the session's selected organization; an empty
// selection streams the single-tenant channel.
func (h *StreamHandler) Snapshots(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondWithError(w, http.StatusInternalServerError, "Streaming not supported", "response writer is not a flusher", nil)
		return
	}

	sessionID := GetSessionID(r.Context())
	state := h.viewStore.Get(sessionID)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	snapshots, unsubscribe := h.hub.Subscribe(state.OrgID)
	defer unsubscribe()

	for {
		select {
		case <-r.Context().Done():
			return
		case snap := <-snapshots:
			if err := writeSnapshotEvent(w, snap); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeSnapshotEvent(w http.ResponseWriter, snap sync.Snapshot) error {
	event := snapshotEvent{
		OrgID:      snap.OrgID,
		Families:   familyViews(snap.Families),
		Incentives: snap.Incentives.Items,
		MonthKey:   snap.Incentives.MonthKey,
		Version:    snap.Version,
		Error:      snap.Err,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", payload)
	return err
}
