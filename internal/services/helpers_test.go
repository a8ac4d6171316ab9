package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/linkedin-publisher/internal/domain"
	"github.com/tbourn/linkedin-publisher/internal/linkedin"
	"github.com/tbourn/linkedin-publisher/internal/repo"
)

var fixedNow = time.Date(2025, 9, 15, 12, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// recordingSleep captures requested waits without blocking.
type recordingSleep struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (r *recordingSleep) Sleep(_ context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.waits = append(r.waits, d)
	return nil
}

func (r *recordingSleep) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.waits)
}

func seedCredential(t *testing.T, db *gorm.DB, accountID, authorID string, kind domain.AuthorKind) {
	t.Helper()
	err := repo.UpsertCredential(context.Background(), db, &domain.Credential{
		AccountID:   accountID,
		AccessToken: "tok-" + accountID,
		AuthorID:    authorID,
		AuthorKind:  kind,
	})
	if err != nil {
		t.Fatalf("seed credential: %v", err)
	}
}

func seedDraft(t *testing.T, db *gorm.DB, id, orgID string, assets ...domain.DraftAsset) *domain.Draft {
	t.Helper()
	d := &domain.Draft{
		ID:      id,
		OrgID:   orgID,
		Content: domain.DraftContent{Body: "Hello from the pipeline", Hashtags: []string{"golang"}},
		Assets:  assets,
	}
	if err := db.Create(d).Error; err != nil {
		t.Fatalf("seed draft: %v", err)
	}
	return d
}

func seedScheduledPost(t *testing.T, db *gorm.DB, id, orgID, draftID string, status domain.PostStatus) *domain.ScheduledPost {
	t.Helper()
	sp := &domain.ScheduledPost{
		ID:             id,
		DraftID:        draftID,
		OrgID:          orgID,
		IdempotencyKey: "key-" + id,
		PublishTime:    fixedNow.Add(-time.Minute),
		Timezone:       "UTC",
		Status:         status,
		MaxRetries:     3,
	}
	if err := db.Create(sp).Error; err != nil {
		t.Fatalf("seed scheduled post: %v", err)
	}
	return sp
}

func reload(t *testing.T, db *gorm.DB, id string) *domain.ScheduledPost {
	t.Helper()
	sp, err := repo.GetScheduledPost(context.Background(), db, id)
	if err != nil {
		t.Fatalf("reload %s: %v", id, err)
	}
	return sp
}

// newPublishService wires a PublishService over db and a fake client with
// non-blocking sleeps.
func newPublishService(db *gorm.DB, fc *linkedin.FakeClient) (*PublishService, *recordingSleep) {
	sl := &recordingSleep{}
	up := &Uploader{Client: fc, SettleDelay: 5 * time.Second, Workers: 4, Sleep: sl.Sleep}
	st := &Strategy{Client: fc, RetryAttempts: 2, RetryDelay: time.Second, Sleep: sl.Sleep, NewID: func() string { return "fixed" }}
	return &PublishService{
		DB:          db,
		Credentials: &StoreCredentialProvider{DB: db, Now: func() time.Time { return fixedNow }},
		Uploader:    up,
		Strategy:    st,
		Now:         func() time.Time { return fixedNow },
	}, sl
}
