package repository

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/advox/portal-sync-worker/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	err = db.AutoMigrate(
		&models.SyncState{},
		&models.SyncLatest{},
		&models.SyncHistoryEntry{},
		&models.Processo{},
		&models.ProcessoParte{},
		&models.Cliente{},
		&models.Advogado{},
		&models.AdvogadoCliente{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test schema: %v", err)
	}

	return db
}

func testSyncState(syncID string) models.SyncState {
	return models.BuildInitialSyncState(models.InitialSyncStateParams{
		SyncID:        syncID,
		TenantID:      "tenant-1",
		UsuarioID:     "user-1",
		TribunalSigla: "TJSP",
		OAB:           "123456SP",
	})
}

func TestSave_HistoryBound(t *testing.T) {
	db := newTestDB(t)
	repo := NewSyncStateRepository(db)
	ctx := context.Background()

	total := MaxHistoryItems + 5
	for i := 0; i < total; i++ {
		state := testSyncState(fmt.Sprintf("sync-%02d", i))
		if err := repo.Save(ctx, &state); err != nil {
			t.Fatalf("save %d failed: %v", i, err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	var count int64
	if err := db.Model(&models.SyncHistoryEntry{}).
		Where("tenant_id = ? AND usuario_id = ?", "tenant-1", "user-1").
		Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != MaxHistoryItems {
		t.Errorf("expected history trimmed to %d entries, got %d", MaxHistoryItems, count)
	}

	states, err := repo.ListHistory(ctx, "tenant-1", "user-1", MaxHistoryItems)
	if err != nil {
		t.Fatalf("list history failed: %v", err)
	}
	if len(states) != MaxHistoryItems {
		t.Fatalf("expected %d history states, got %d", MaxHistoryItems, len(states))
	}

	// The oldest saves fell off the end.
	for _, state := range states {
		for i := 0; i < total-MaxHistoryItems; i++ {
			if state.SyncID == fmt.Sprintf("sync-%02d", i) {
				t.Errorf("expected oldest entry %s to be trimmed", state.SyncID)
			}
		}
	}
}

func TestSave_ReSaveMovesToFrontWithoutDuplicate(t *testing.T) {
	db := newTestDB(t)
	repo := NewSyncStateRepository(db)
	ctx := context.Background()

	stateA := testSyncState("sync-a")
	if err := repo.Save(ctx, &stateA); err != nil {
		t.Fatalf("save A failed: %v", err)
	}
	time.Sleep(2 * time.Millisecond)

	stateB := testSyncState("sync-b")
	if err := repo.Save(ctx, &stateB); err != nil {
		t.Fatalf("save B failed: %v", err)
	}
	time.Sleep(2 * time.Millisecond)

	// A transition bumps updatedAt and re-saves the same syncId.
	stateA = models.WithSyncStatus(stateA, models.SyncStatusRunning, models.SyncTransition{QueueJobID: "job-1"})
	if err := repo.Save(ctx, &stateA); err != nil {
		t.Fatalf("re-save A failed: %v", err)
	}

	var count int64
	if err := db.Model(&models.SyncHistoryEntry{}).
		Where("tenant_id = ? AND usuario_id = ?", "tenant-1", "user-1").
		Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 2 {
		t.Errorf("expected re-save to keep 2 history entries, got %d", count)
	}

	states, err := repo.ListHistory(ctx, "tenant-1", "user-1", 10)
	if err != nil {
		t.Fatalf("list history failed: %v", err)
	}
	if len(states) != 2 {
		t.Fatalf("expected 2 history states, got %d", len(states))
	}
	if states[0].SyncID != "sync-a" {
		t.Errorf("expected re-saved sync-a first, got %s", states[0].SyncID)
	}
}

func TestSave_LatestPointerFollowsMostRecentSave(t *testing.T) {
	db := newTestDB(t)
	repo := NewSyncStateRepository(db)
	ctx := context.Background()

	stateA := testSyncState("sync-a")
	if err := repo.Save(ctx, &stateA); err != nil {
		t.Fatalf("save A failed: %v", err)
	}

	stateB := testSyncState("sync-b")
	if err := repo.Save(ctx, &stateB); err != nil {
		t.Fatalf("save B failed: %v", err)
	}

	latest, err := repo.GetLatest(ctx, "tenant-1", "user-1")
	if err != nil {
		t.Fatalf("get latest failed: %v", err)
	}
	if latest == nil || latest.SyncID != "sync-b" {
		t.Fatalf("expected latest sync-b, got %+v", latest)
	}

	stateA = models.WithSyncStatus(stateA, models.SyncStatusRunning, models.SyncTransition{QueueJobID: "job-1"})
	if err := repo.Save(ctx, &stateA); err != nil {
		t.Fatalf("re-save A failed: %v", err)
	}

	latest, err = repo.GetLatest(ctx, "tenant-1", "user-1")
	if err != nil {
		t.Fatalf("get latest failed: %v", err)
	}
	if latest == nil || latest.SyncID != "sync-a" {
		t.Fatalf("expected latest to follow the most recent save (sync-a), got %+v", latest)
	}
	if latest.Status != models.SyncStatusRunning {
		t.Errorf("expected the re-saved state, got status %s", latest.Status)
	}
}

func TestGet_ExpiredReadsAbsent(t *testing.T) {
	db := newTestDB(t)
	repo := NewSyncStateRepository(db)
	ctx := context.Background()

	state := testSyncState("sync-a")
	if err := repo.Save(ctx, &state); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	past := time.Now().Add(-time.Hour)
	if err := db.Model(&models.SyncState{}).Where("sync_id = ?", "sync-a").
		Update("expires_at", past).Error; err != nil {
		t.Fatalf("expire failed: %v", err)
	}

	got, err := repo.Get(ctx, "sync-a")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected expired state to read as absent, got %+v", got)
	}

	// The pointer still exists but its target is gone.
	latest, err := repo.GetLatest(ctx, "tenant-1", "user-1")
	if err != nil {
		t.Fatalf("get latest failed: %v", err)
	}
	if latest != nil {
		t.Errorf("expected dangling latest pointer to read as absent, got %+v", latest)
	}
}

func TestPurgeExpired(t *testing.T) {
	db := newTestDB(t)
	repo := NewSyncStateRepository(db)
	ctx := context.Background()

	state := testSyncState("sync-a")
	if err := repo.Save(ctx, &state); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	past := time.Now().Add(-time.Hour)
	for _, model := range []interface{}{&models.SyncState{}, &models.SyncLatest{}, &models.SyncHistoryEntry{}} {
		if err := db.Model(model).Where("tenant_id = ?", "tenant-1").
			Update("expires_at", past).Error; err != nil {
			t.Fatalf("expire failed: %v", err)
		}
	}

	purged, err := repo.PurgeExpired(ctx)
	if err != nil {
		t.Fatalf("purge failed: %v", err)
	}
	if purged != 3 {
		t.Errorf("expected 3 purged rows (state, latest, history), got %d", purged)
	}
}
