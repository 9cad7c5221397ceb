package service

import (
	"time"

	"readrise/internal/repository"
	"readrise/internal/sync"
	"readrise/internal/textkey"
)

// SnapshotLoader assembles the org-scoped snapshot the hub broadcasts:
// every family with its kids plus the current month's incentives.
type SnapshotLoader struct {
	familyRepo    *repository.FamilyRepository
	incentiveRepo *repository.IncentiveRepository
	now           func() time.Time
}

// NewSnapshotLoader creates a snapshot loader over the given repositories
func NewSnapshotLoader(familyRepo *repository.FamilyRepository, incentiveRepo *repository.IncentiveRepository) *SnapshotLoader {
	return &SnapshotLoader{
		familyRepo:    familyRepo,
		incentiveRepo: incentiveRepo,
		now:           time.Now,
	}
}

// LoadSnapshot implements sync.Loader
func (l *SnapshotLoader) LoadSnapshot(orgID string) (*sync.Snapshot, error) {
	families, err := l.familyRepo.ListFamilies(orgID)
	if err != nil {
		return nil, err
	}

	incentives, err := l.incentiveRepo.GetMonth(orgID, textkey.MonthKey(l.now()))
	if err != nil {
		return nil, err
	}

	return &sync.Snapshot{
		OrgID:      orgID,
		Families:   families,
		Incentives: *incentives,
	}, nil
}
