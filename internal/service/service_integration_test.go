package service

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"readrise/internal/database"
	"readrise/internal/models"
	"readrise/internal/repository"
	"readrise/internal/sync"
)

type testEnv struct {
	db            *database.DB
	familyRepo    *repository.FamilyRepository
	kidRepo       *repository.KidRepository
	goalRepo      *repository.GoalRepository
	logRepo       *repository.LogRepository
	incentiveRepo *repository.IncentiveRepository
	orgRepo       *repository.OrgRepository
	prizeRepo     *repository.PrizeRepository

	hub      *sync.Hub
	registry *RegistryService
	goals    *GoalService
	reading  *ReadingService
	prizes   *PrizeService
	backup   *BackupService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.RunMigrations("../../migrations"); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	env := &testEnv{
		db:            db,
		familyRepo:    repository.NewFamilyRepository(db),
		kidRepo:       repository.NewKidRepository(db),
		goalRepo:      repository.NewGoalRepository(db),
		logRepo:       repository.NewLogRepository(db),
		incentiveRepo: repository.NewIncentiveRepository(db),
		orgRepo:       repository.NewOrgRepository(db),
		prizeRepo:     repository.NewPrizeRepository(db),
	}
	env.hub = sync.NewHub(NewSnapshotLoader(env.familyRepo, env.incentiveRepo))
	env.registry = NewRegistryService(env.familyRepo, env.kidRepo, env.orgRepo, env.incentiveRepo, env.hub)
	env.goals = NewGoalService(env.goalRepo, env.kidRepo, nil, 3500*time.Millisecond)
	env.reading = NewReadingService(env.logRepo, env.kidRepo)
	env.prizes = NewPrizeService(env.prizeRepo, env.kidRepo, env.goalRepo, env.logRepo)
	env.backup = NewBackupService(db, env.familyRepo, env.kidRepo, env.goalRepo, env.logRepo, env.incentiveRepo, env.orgRepo)

	return env
}

func (env *testEnv) addKid(t *testing.T, code, name string, level models.ReadingLevel) *models.Kid {
	t.Helper()
	kid, err := env.registry.AddKid("", code, KidInput{Name: name, ReadingLevel: level, Age: 8})
	if err != nil {
		t.Fatalf("failed to add kid %q: %v", name, err)
	}
	return kid
}

func TestRegistryFamilyLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	env := newTestEnv(t)

	if _, err := env.registry.UpsertFamily("", "FAM1", "Pat Alvarez"); err != nil {
		t.Fatalf("failed to create family: %v", err)
	}
	kid := env.addKid(t, "FAM1", "Mia Alvarez", "2nd")

	// Update preserves kids
	if _, err := env.registry.UpsertFamily("", "FAM1", "Patricia Alvarez"); err != nil {
		t.Fatalf("failed to update family: %v", err)
	}
	family, err := env.registry.GetFamily("FAM1")
	if err != nil {
		t.Fatalf("failed to load family: %v", err)
	}
	if family.ParentName != "Patricia Alvarez" {
		t.Errorf("parent name = %q, want %q", family.ParentName, "Patricia Alvarez")
	}
	if len(family.Kids) != 1 || family.Kids[0].ID != kid.ID {
		t.Fatalf("upsert did not preserve kids: %+v", family.Kids)
	}

	// Validation
	if _, err := env.registry.UpsertFamily("", "  ", "Someone"); err != ErrEmptyCode {
		t.Errorf("blank code error = %v, want ErrEmptyCode", err)
	}
	if _, err := env.registry.UpsertFamily("", "FAM2", "   "); err != ErrEmptyName {
		t.Errorf("blank name error = %v, want ErrEmptyName", err)
	}

	// A second family with its own data, to prove the cascade stays scoped
	if _, err := env.registry.UpsertFamily("", "FAM2", "Sam Okafor"); err != nil {
		t.Fatalf("failed to create second family: %v", err)
	}
	other := env.addKid(t, "FAM2", "Femi Okafor", "3rd")
	if _, err := env.reading.LogReading(other.ID, "Hatchet", "Gary Paulsen", 30, 12, models.MoodGood); err != nil {
		t.Fatalf("failed to log reading for second family: %v", err)
	}
	otherGoal, err := env.goals.AddKidGoal(other.ID, "Read outside")
	if err != nil {
		t.Fatalf("failed to add goal for second family: %v", err)
	}
	if _, err := env.goals.SetGoalDone(other.ID, "2025-W10", otherGoal.ID, "added", true); err != nil {
		t.Fatalf("failed to check goal for second family: %v", err)
	}

	// Removal cascades and unknown removals are no-ops
	if err := env.registry.RemoveFamily("", "FAM1"); err != nil {
		t.Fatalf("failed to remove family: %v", err)
	}
	if err := env.registry.RemoveFamily("", "FAM1"); err != nil {
		t.Errorf("second removal not a no-op: %v", err)
	}
	if got, err := env.kidRepo.GetKidByID(kid.ID); err != nil || got != nil {
		t.Errorf("kid survived family removal: kid=%v err=%v", got, err)
	}

	// FAM2's rows are untouched
	if got, err := env.kidRepo.GetKidByID(other.ID); err != nil || got == nil {
		t.Fatalf("second family's kid lost in cascade: kid=%v err=%v", got, err)
	}
	if minutes, err := env.logRepo.MinutesTotal(other.ID); err != nil || minutes != 30 {
		t.Errorf("second family's reading log: minutes=%d err=%v, want 30", minutes, err)
	}
	if remaining, err := env.goalRepo.ListAddedGoals(other.ID); err != nil || len(remaining) != 1 {
		t.Errorf("second family's added goals: %v err=%v, want 1", remaining, err)
	}
	if record, err := env.goalRepo.GetWeeklyCompletion(other.ID, "2025-W10"); err != nil || record == nil {
		t.Errorf("second family's completion record: %v err=%v", record, err)
	}
}

func TestRegistryDuplicateKidName(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	env := newTestEnv(t)

	if _, err := env.registry.UpsertFamily("", "FAM1", "Pat"); err != nil {
		t.Fatal(err)
	}
	if _, err := env.registry.UpsertFamily("", "FAM2", "Sam"); err != nil {
		t.Fatal(err)
	}
	env.addKid(t, "FAM1", "Ana Sofia", "1st")

	_, err := env.registry.AddKid("", "FAM2", KidInput{Name: "  ANA   sofia ", ReadingLevel: "3rd"})
	var dup *DuplicateNameError
	if !asDuplicate(err, &dup) {
		t.Fatalf("duplicate name error = %v, want DuplicateNameError", err)
	}
	if dup.FamilyCode != "FAM1" {
		t.Errorf("conflicting family = %q, want FAM1", dup.FamilyCode)
	}

	if _, err := env.registry.AddKid("", "NOPE", KidInput{Name: "Leo", ReadingLevel: "K"}); err != ErrFamilyNotFound {
		t.Errorf("unknown family error = %v, want ErrFamilyNotFound", err)
	}
}

func asDuplicate(err error, target **DuplicateNameError) bool {
	d, ok := err.(*DuplicateNameError)
	if ok {
		*target = d
	}
	return ok
}

func TestGoalCompletionEdge(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	env := newTestEnv(t)

	if _, err := env.registry.UpsertFamily("", "FAM1", "Pat"); err != nil {
		t.Fatal(err)
	}
	kid := env.addKid(t, "FAM1", "Mia", "2nd")

	baseGoal, err := env.goalRepo.CreateGradeGoal("2nd", "Read for 15 minutes")
	if err != nil {
		t.Fatal(err)
	}
	addedGoal, err := env.goals.AddKidGoal(kid.ID, "Finish chapter book")
	if err != nil {
		t.Fatal(err)
	}

	week := "2025-W10"

	status, err := env.goals.SetGoalDone(kid.ID, week, baseGoal.ID, "base", true)
	if err != nil {
		t.Fatal(err)
	}
	if status.Complete || status.Celebrate {
		t.Errorf("partial checklist reported complete=%v celebrate=%v", status.Complete, status.Celebrate)
	}

	status, err = env.goals.SetGoalDone(kid.ID, week, addedGoal.ID, "added", true)
	if err != nil {
		t.Fatal(err)
	}
	if !status.Complete || !status.Celebrate {
		t.Fatalf("completion edge missed: complete=%v celebrate=%v", status.Complete, status.Celebrate)
	}
	if !env.goals.CelebrationActive(kid.ID, week) {
		t.Error("celebration window not active after edge")
	}

	// Re-checking an already-done goal while complete must not re-fire
	status, err = env.goals.SetGoalDone(kid.ID, week, baseGoal.ID, "base", true)
	if err != nil {
		t.Fatal(err)
	}
	if !status.Complete || status.Celebrate {
		t.Errorf("steady state re-fired: complete=%v celebrate=%v", status.Complete, status.Celebrate)
	}

	// Unchecking re-arms: the next completion is a fresh edge
	status, err = env.goals.SetGoalDone(kid.ID, week, addedGoal.ID, "added", false)
	if err != nil {
		t.Fatal(err)
	}
	if status.Complete || status.Celebrate {
		t.Errorf("uncheck reported complete=%v celebrate=%v", status.Complete, status.Celebrate)
	}
	status, err = env.goals.SetGoalDone(kid.ID, week, addedGoal.ID, "added", true)
	if err != nil {
		t.Fatal(err)
	}
	if !status.Celebrate {
		t.Error("re-completion after uncheck did not celebrate")
	}

	// A different week starts from scratch
	complete, err := env.goals.WeekComplete(kid, "2025-W11")
	if err != nil {
		t.Fatal(err)
	}
	if complete {
		t.Error("fresh week reported complete")
	}
}

func TestIncentiveListOrdering(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	env := newTestEnv(t)
	month := "2025-03"

	for _, text := range []string{"Sticker pack", "Library trip", "Movie night"} {
		if err := env.registry.AddIncentive("", month, text); err != nil {
			t.Fatalf("failed to add incentive: %v", err)
		}
	}

	if err := env.registry.RemoveIncentive("", month, 1); err != nil {
		t.Fatalf("failed to remove incentive: %v", err)
	}
	if err := env.registry.RemoveIncentive("", month, 5); err == nil {
		t.Error("out-of-range removal did not fail")
	}

	items, err := env.registry.Incentives("", month)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"Sticker pack", "Movie night"}
	if len(items) != len(want) {
		t.Fatalf("items = %v, want %v", items, want)
	}
	for i := range want {
		if items[i] != want[i] {
			t.Errorf("items[%d] = %q, want %q", i, items[i], want[i])
		}
	}
}

func TestPrizeRedemption(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	env := newTestEnv(t)

	if _, err := env.registry.UpsertFamily("", "FAM1", "Pat"); err != nil {
		t.Fatal(err)
	}
	kid := env.addKid(t, "FAM1", "Mia", "2nd")

	prize, err := env.prizes.AddPrize("", "Sticker Pack", "A pack of stickers", "⭐", 50)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := env.prizes.Redeem(kid.ID, prize.ID); err != ErrInsufficientPoints {
		t.Errorf("broke redeem error = %v, want ErrInsufficientPoints", err)
	}

	if _, err := env.reading.LogReading(kid.ID, "Charlotte's Web", "E.B. White", 60, 20, models.MoodLoved); err != nil {
		t.Fatal(err)
	}

	points, err := env.prizes.Points(kid.ID)
	if err != nil {
		t.Fatal(err)
	}
	if points != 60 {
		t.Errorf("points = %d, want 60", points)
	}

	if _, err := env.prizes.Redeem(kid.ID, prize.ID); err != nil {
		t.Fatalf("redeem failed with sufficient points: %v", err)
	}

	points, err = env.prizes.Points(kid.ID)
	if err != nil {
		t.Fatal(err)
	}
	if points != 10 {
		t.Errorf("points after redemption = %d, want 10", points)
	}

	if _, err := env.prizes.Redeem(kid.ID, prize.ID); err != ErrInsufficientPoints {
		t.Errorf("second redeem error = %v, want ErrInsufficientPoints", err)
	}
}

func TestPointsRequireCompleteWeek(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	env := newTestEnv(t)

	if _, err := env.registry.UpsertFamily("", "FAM1", "Pat"); err != nil {
		t.Fatal(err)
	}
	kid := env.addKid(t, "FAM1", "Mia", "2nd")

	first, err := env.goalRepo.CreateGradeGoal("2nd", "Read for 15 minutes")
	if err != nil {
		t.Fatal(err)
	}
	second, err := env.goalRepo.CreateGradeGoal("2nd", "Read aloud to a grown-up")
	if err != nil {
		t.Fatal(err)
	}

	week := "2025-W10"

	// One of two required goals checked: activity, but no bonus
	if _, err := env.goals.SetGoalDone(kid.ID, week, first.ID, "base", true); err != nil {
		t.Fatal(err)
	}
	points, err := env.prizes.Points(kid.ID)
	if err != nil {
		t.Fatal(err)
	}
	if points != 0 {
		t.Errorf("partial week earned %d points, want 0", points)
	}

	// Completing the week earns the bonus exactly once
	if _, err := env.goals.SetGoalDone(kid.ID, week, second.ID, "base", true); err != nil {
		t.Fatal(err)
	}
	points, err = env.prizes.Points(kid.ID)
	if err != nil {
		t.Fatal(err)
	}
	if points != 25 {
		t.Errorf("complete week earned %d points, want 25", points)
	}

	// Unchecking a required goal takes the bonus back
	if _, err := env.goals.SetGoalDone(kid.ID, week, second.ID, "base", false); err != nil {
		t.Fatal(err)
	}
	points, err = env.prizes.Points(kid.ID)
	if err != nil {
		t.Fatal(err)
	}
	if points != 0 {
		t.Errorf("no-longer-complete week kept %d points, want 0", points)
	}
}

func TestReadingStatsUniqueBooks(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	env := newTestEnv(t)

	if _, err := env.registry.UpsertFamily("", "FAM1", "Pat"); err != nil {
		t.Fatal(err)
	}
	kid := env.addKid(t, "FAM1", "Mia", "2nd")

	entries := []struct {
		title, author string
		minutes       int
	}{
		{"Charlotte's Web", "E.B. White", 20},
		{"charlottes web", "EB White", 15},
		{"Matilda", "Roald Dahl", 30},
	}
	for _, e := range entries {
		if _, err := env.reading.LogReading(kid.ID, e.title, e.author, e.minutes, 10, models.MoodGood); err != nil {
			t.Fatal(err)
		}
	}

	stats, err := env.reading.Stats(kid.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stats.MinutesTotal != 65 {
		t.Errorf("minutes = %d, want 65", stats.MinutesTotal)
	}
	if stats.UniqueBooks != 2 {
		t.Errorf("unique books = %d, want 2 (retyped title must not double count)", stats.UniqueBooks)
	}
}

func TestBackupRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	src := newTestEnv(t)

	if _, err := src.registry.UpsertFamily("", "FAM1", "Pat"); err != nil {
		t.Fatal(err)
	}
	kid := src.addKid(t, "FAM1", "Mia", "2nd")

	baseGoal, err := src.goalRepo.CreateGradeGoal("2nd", "Read for 15 minutes")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := src.goals.AddKidGoal(kid.ID, "Finish chapter book"); err != nil {
		t.Fatal(err)
	}
	if _, err := src.goals.SetGoalDone(kid.ID, "2025-W10", baseGoal.ID, "base", true); err != nil {
		t.Fatal(err)
	}
	if _, err := src.reading.LogReading(kid.ID, "Matilda", "Roald Dahl", 30, 12, models.MoodGood); err != nil {
		t.Fatal(err)
	}
	if err := src.registry.AddIncentive("", "2025-03", "Movie night"); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := src.backup.ExportToWriter(&buf, ""); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	dst := newTestEnv(t)
	result, err := dst.backup.ImportFromReader(&buf)
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if result.FamiliesRestored != 1 || result.FamiliesFailed != 0 {
		t.Fatalf("restore result = %+v", result)
	}

	family, err := dst.registry.GetFamily("FAM1")
	if err != nil || family == nil {
		t.Fatalf("restored family missing: %v", err)
	}
	if len(family.Kids) != 1 || family.Kids[0].Name != "Mia" {
		t.Fatalf("restored kids = %+v", family.Kids)
	}
	restoredKid := family.Kids[0]
	if restoredKid.ID != kid.ID {
		t.Errorf("kid id changed across round trip: %s vs %s", restoredKid.ID, kid.ID)
	}

	complete, err := dst.goals.WeekComplete(&restoredKid, "2025-W10")
	if err != nil {
		t.Fatal(err)
	}
	if complete {
		t.Error("partially-checked week restored as complete")
	}
	record, err := dst.goalRepo.GetWeeklyCompletion(restoredKid.ID, "2025-W10")
	if err != nil {
		t.Fatal(err)
	}
	if !record.HasBase(baseGoal.ID) {
		t.Error("base checkmark lost across round trip")
	}

	logs, err := dst.reading.Log(restoredKid.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 1 || logs[0].Title != "Matilda" {
		t.Fatalf("restored logs = %+v", logs)
	}

	items, err := dst.registry.Incentives("", "2025-03")
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0] != "Movie night" {
		t.Errorf("restored incentives = %v", items)
	}
}

func TestBackupRejectsMalformedDocument(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	env := newTestEnv(t)

	if _, err := env.backup.ImportFromReader(bytes.NewReader([]byte("{not json"))); err == nil {
		t.Fatal("malformed document did not abort the restore")
	}

	// Nothing was written
	families, err := env.registry.ListFamilies("")
	if err != nil {
		t.Fatal(err)
	}
	if len(families) != 0 {
		t.Errorf("restore wrote data before parse succeeded: %+v", families)
	}
}

func TestResetAll(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	env := newTestEnv(t)

	for _, code := range []string{"FAM1", "FAM2"} {
		if _, err := env.registry.UpsertFamily("", code, "Parent "+code); err != nil {
			t.Fatal(err)
		}
	}
	env.addKid(t, "FAM1", "Mia", "2nd")
	if err := env.registry.AddIncentive("", "2025-03", "Movie night"); err != nil {
		t.Fatal(err)
	}

	if err := env.registry.ResetAll("", "2025-03"); err != nil {
		t.Fatalf("reset failed: %v", err)
	}

	families, err := env.registry.ListFamilies("")
	if err != nil {
		t.Fatal(err)
	}
	if len(families) != 0 {
		t.Errorf("families survived reset: %+v", families)
	}
	items, err := env.registry.Incentives("", "2025-03")
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 0 {
		t.Errorf("incentives survived reset: %v", items)
	}
}

func TestHubPublishesOnMutation(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	env := newTestEnv(t)

	ch, unsubscribe := env.hub.Subscribe("")
	defer unsubscribe()
	<-ch // initial snapshot

	if _, err := env.registry.UpsertFamily("", "FAM1", "Pat"); err != nil {
		t.Fatal(err)
	}

	select {
	case snap := <-ch:
		if len(snap.Families) != 1 || snap.Families[0].Code != "FAM1" {
			t.Errorf("snapshot families = %+v", snap.Families)
		}
		if snap.Err != "" {
			t.Errorf("snapshot carries error: %q", snap.Err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot delivered after mutation")
	}
}
