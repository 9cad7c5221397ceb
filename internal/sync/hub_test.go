package sync

import (
	"errors"
	"testing"

	"readrise/internal/models"
)

// fakeLoader returns a canned snapshot or error and counts loads
type fakeLoader struct {
	families []models.Family
	err      error
	loads    int
}

func (l *fakeLoader) LoadSnapshot(orgID string) (*Snapshot, error) {
	l.loads++
	if l.err != nil {
		return nil, l.err
	}
	return &Snapshot{
		OrgID:    orgID,
		Families: l.families,
	}, nil
}

func TestSubscribeDeliversInitialSnapshot(t *testing.T) {
	loader := &fakeLoader{families: []models.Family{{Code: "FAM1"}}}
	hub := NewHub(loader)

	ch, unsubscribe := hub.Subscribe("org-1")
	defer unsubscribe()

	snap := <-ch
	if snap.OrgID != "org-1" {
		t.Errorf("snapshot org = %q, want org-1", snap.OrgID)
	}
	if len(snap.Families) != 1 || snap.Families[0].Code != "FAM1" {
		t.Errorf("snapshot families = %+v, want FAM1", snap.Families)
	}
	if snap.Err != "" {
		t.Errorf("unexpected snapshot error note: %q", snap.Err)
	}
}

func TestPublishDeliversToAllSubscribers(t *testing.T) {
	loader := &fakeLoader{}
	hub := NewHub(loader)

	ch1, unsub1 := hub.Subscribe("org-1")
	ch2, unsub2 := hub.Subscribe("org-1")
	defer unsub1()
	defer unsub2()

	<-ch1
	<-ch2

	loader.families = []models.Family{{Code: "FAM2"}}
	hub.Publish("org-1")

	for i, ch := range []<-chan Snapshot{ch1, ch2} {
		snap := <-ch
		if len(snap.Families) != 1 || snap.Families[0].Code != "FAM2" {
			t.Errorf("subscriber %d: families = %+v, want FAM2", i, snap.Families)
		}
	}
}

func TestLatestSnapshotWins(t *testing.T) {
	loader := &fakeLoader{}
	hub := NewHub(loader)

	ch, unsubscribe := hub.Subscribe("org-1")
	defer unsubscribe()

	// Consumer never drains between publishes; only the latest snapshot
	// must survive
	loader.families = []models.Family{{Code: "A"}}
	hub.Publish("org-1")
	loader.families = []models.Family{{Code: "B"}}
	hub.Publish("org-1")
	loader.families = []models.Family{{Code: "C"}}
	hub.Publish("org-1")

	snap := <-ch
	if len(snap.Families) != 1 || snap.Families[0].Code != "C" {
		t.Errorf("families = %+v, want latest (C)", snap.Families)
	}
}

func TestRebuildFailureIsFailSoft(t *testing.T) {
	loader := &fakeLoader{families: []models.Family{{Code: "FAM1"}}}
	hub := NewHub(loader)

	ch, unsubscribe := hub.Subscribe("org-1")
	defer unsubscribe()
	<-ch

	loader.err = errors.New("permission denied")
	hub.Publish("org-1")

	snap := <-ch
	if snap.Err == "" {
		t.Error("expected a user-visible error note on failed rebuild")
	}
	if len(snap.Families) != 1 || snap.Families[0].Code != "FAM1" {
		t.Errorf("prior state must be left untouched, got %+v", snap.Families)
	}
}

func TestUnsubscribeTearsDown(t *testing.T) {
	loader := &fakeLoader{}
	hub := NewHub(loader)

	_, unsub1 := hub.Subscribe("org-1")
	_, unsub2 := hub.Subscribe("org-1")

	if got := hub.SubscriberCount("org-1"); got != 2 {
		t.Fatalf("SubscriberCount = %d, want 2", got)
	}

	unsub1()
	// Idempotent: a second call must not panic or double-remove
	unsub1()

	if got := hub.SubscriberCount("org-1"); got != 1 {
		t.Errorf("SubscriberCount after unsubscribe = %d, want 1", got)
	}

	unsub2()
	if got := hub.SubscriberCount("org-1"); got != 0 {
		t.Errorf("SubscriberCount after both unsubscribes = %d, want 0", got)
	}
}

func TestSnapshotVersionIncreases(t *testing.T) {
	loader := &fakeLoader{}
	hub := NewHub(loader)

	ch, unsubscribe := hub.Subscribe("org-1")
	defer unsubscribe()

	first := <-ch
	hub.Publish("org-1")
	second := <-ch

	if second.Version <= first.Version {
		t.Errorf("version did not increase: %d then %d", first.Version, second.Version)
	}
}
