package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"eltexfacts/internal/domain"
	"eltexfacts/internal/repository"
)

// ============================================================================
// Test Helpers
// ============================================================================

// newTestRepo creates an in-memory SQLite repository for testing
func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test repository: %v", err)
	}
	t.Cleanup(func() {
		repo.Close()
	})
	return repo
}

// assertNoError fails the test if err is not nil
func assertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// assertEqual fails the test if expected != actual
func assertEqual(t *testing.T, expected, actual interface{}) {
	t.Helper()
	if !reflect.DeepEqual(expected, actual) {
		t.Fatalf("expected %v, got %v", expected, actual)
	}
}

// assertNotNil fails the test if value is nil
func assertNotNil(t *testing.T, value interface{}) {
	t.Helper()
	if value == nil || reflect.ValueOf(value).IsNil() {
		t.Fatalf("expected non-nil value")
	}
}

// newSnapshot builds a snapshot collected at base plus offset minutes
func newSnapshot(device string, offset int) *domain.Snapshot {
	base := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	return &domain.Snapshot{
		Device:      device,
		CollectedAt: base.Add(time.Duration(offset) * time.Minute),
		Facts: &domain.Facts{
			Uptime:        1050250,
			Vendor:        domain.Vendor,
			OSVersion:     "10.3.1",
			SerialNumber:  "ES4G000123",
			Model:         "MES2324",
			Hostname:      device,
			FQDN:          device,
			InterfaceList: []string{"gi1/0/1", "gi1/0/2"},
		},
		ARPTable: []domain.ARPEntry{
			{Interface: "vlan 1", MAC: "00:11:22:33:44:55", IP: "10.0.0.1", Age: domain.UnknownAge},
		},
	}
}

// ============================================================================
// Snapshot Tests
// ============================================================================

func TestSaveAndGetSnapshot(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	snap := newSnapshot("sw1", 0)
	snap.RecordError(domain.KindLLDP, errors.New("parse error: unexpected output data"))

	assertNoError(t, repo.SaveSnapshot(ctx, snap))
	if snap.ID == "" {
		t.Fatal("expected an ID to be assigned")
	}

	got, err := repo.GetSnapshot(ctx, snap.ID)
	assertNoError(t, err)
	assertNotNil(t, got.Facts)
	assertEqual(t, snap.Device, got.Device)
	assertEqual(t, snap.Facts, got.Facts)
	assertEqual(t, snap.ARPTable, got.ARPTable)
	assertEqual(t, snap.Errors, got.Errors)
	if !got.CollectedAt.Equal(snap.CollectedAt) {
		t.Errorf("expected collected_at %v, got %v", snap.CollectedAt, got.CollectedAt)
	}
}

func TestSaveSnapshotRequiresDevice(t *testing.T) {
	repo := newTestRepo(t)
	if err := repo.SaveSnapshot(context.Background(), &domain.Snapshot{}); err == nil {
		t.Fatal("expected error for snapshot without device")
	}
}

func TestSaveSnapshotUpdatesExisting(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	snap := newSnapshot("sw1", 0)
	assertNoError(t, repo.SaveSnapshot(ctx, snap))

	snap.Facts.OSVersion = "10.3.2"
	assertNoError(t, repo.SaveSnapshot(ctx, snap))

	list, err := repo.ListSnapshots(ctx, "sw1", 0)
	assertNoError(t, err)
	assertEqual(t, 1, len(list))
	assertEqual(t, "10.3.2", list[0].Facts.OSVersion)
}

func TestGetSnapshotNotFound(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.GetSnapshot(ctx, "nonexistent")
	if !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	_, err = repo.LatestSnapshot(ctx, "sw1")
	if !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestLatestSnapshot(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	// Saved out of order
	for _, offset := range []int{5, 1, 9, 3} {
		assertNoError(t, repo.SaveSnapshot(ctx, newSnapshot("sw1", offset)))
	}
	assertNoError(t, repo.SaveSnapshot(ctx, newSnapshot("sw2", 20)))

	latest, err := repo.LatestSnapshot(ctx, "sw1")
	assertNoError(t, err)
	assertEqual(t, newSnapshot("", 9).CollectedAt, latest.CollectedAt)
}

func TestListSnapshots(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		assertNoError(t, repo.SaveSnapshot(ctx, newSnapshot("sw1", i)))
	}

	all, err := repo.ListSnapshots(ctx, "sw1", 0)
	assertNoError(t, err)
	assertEqual(t, 5, len(all))
	for i := 1; i < len(all); i++ {
		if all[i].CollectedAt.After(all[i-1].CollectedAt) {
			t.Fatalf("snapshots not ordered newest first at %d", i)
		}
	}

	limited, err := repo.ListSnapshots(ctx, "sw1", 2)
	assertNoError(t, err)
	assertEqual(t, 2, len(limited))
	assertEqual(t, all[0].ID, limited[0].ID)

	none, err := repo.ListSnapshots(ctx, "sw9", 0)
	assertNoError(t, err)
	assertEqual(t, 0, len(none))
}

func TestListDevices(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	assertNoError(t, repo.SaveSnapshot(ctx, newSnapshot("sw2", 0)))
	assertNoError(t, repo.SaveSnapshot(ctx, newSnapshot("sw1", 0)))
	assertNoError(t, repo.SaveSnapshot(ctx, newSnapshot("sw1", 7)))

	devices, err := repo.ListDevices(ctx)
	assertNoError(t, err)
	assertEqual(t, 2, len(devices))
	assertEqual(t, "sw1", devices[0].Device)
	assertEqual(t, 2, devices[0].Snapshots)
	assertEqual(t, newSnapshot("", 7).CollectedAt, devices[0].LastCollected)
	assertEqual(t, "sw2", devices[1].Device)
}

func TestDeleteSnapshots(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assertNoError(t, repo.SaveSnapshot(ctx, newSnapshot("sw1", i)))
	}
	assertNoError(t, repo.SaveSnapshot(ctx, newSnapshot("sw2", 0)))

	n, err := repo.DeleteSnapshots(ctx, "sw1")
	assertNoError(t, err)
	assertEqual(t, int64(3), n)

	_, err = repo.LatestSnapshot(ctx, "sw1")
	if !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	_, err = repo.LatestSnapshot(ctx, "sw2")
	assertNoError(t, err)
}

func TestPruneSnapshots(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		assertNoError(t, repo.SaveSnapshot(ctx, newSnapshot("sw1", i)))
	}

	n, err := repo.PruneSnapshots(ctx, "sw1", 2)
	assertNoError(t, err)
	assertEqual(t, int64(3), n)

	left, err := repo.ListSnapshots(ctx, "sw1", 0)
	assertNoError(t, err)
	assertEqual(t, 2, len(left))
	assertEqual(t, newSnapshot("", 4).CollectedAt, left[0].CollectedAt)
	assertEqual(t, newSnapshot("", 3).CollectedAt, left[1].CollectedAt)
}

func TestFileDatabasePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "facts.db")
	ctx := context.Background()

	repo, err := New(path)
	assertNoError(t, err)
	snap := newSnapshot("sw1", 0)
	assertNoError(t, repo.SaveSnapshot(ctx, snap))
	assertNoError(t, repo.Close())

	repo, err = New(path)
	assertNoError(t, err)
	defer repo.Close()

	got, err := repo.LatestSnapshot(ctx, "sw1")
	assertNoError(t, err)
	assertEqual(t, snap.ID, got.ID)
}

func TestTimeFormatOrdering(t *testing.T) {
	a := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	b := a.Add(time.Nanosecond)
	if formatTime(a) >= formatTime(b) {
		t.Errorf("expected %q < %q", formatTime(a), formatTime(b))
	}

	got, err := parseTime(formatTime(b))
	assertNoError(t, err)
	if !got.Equal(b) {
		t.Errorf("expected %v, got %v", b, got)
	}

	if _, err := parseTime("yesterday"); err == nil {
		t.Error("expected error for malformed timestamp")
	}
}
