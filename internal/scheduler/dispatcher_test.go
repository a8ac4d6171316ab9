package scheduler

import (
	"context"
	"errors"
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
	"github.com/tbourn/linkedin-publisher/internal/services"
)

var testNow = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:sched_%s?mode=memory&cache=shared", name)
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

func seed(t *testing.T, db *gorm.DB, id string, status domain.PostStatus, publishAt time.Time) {
	t.Helper()
	sp := &domain.ScheduledPost{
		ID: id, DraftID: "d1", OrgID: "org1", IdempotencyKey: "k-" + id,
		PublishTime: publishAt, Status: status, MaxRetries: 2,
	}
	if err := db.Create(sp).Error; err != nil {
		t.Fatalf("seed %s: %v", id, err)
	}
}

// stubPublisher records calls and answers from a per-id script.
type stubPublisher struct {
	mu       sync.Mutex
	calls    []string
	statuses map[string]domain.PostStatus
	errs     map[string]error
	panicOn  string
}

func (p *stubPublisher) Publish(_ context.Context, id string) (*services.PublishOutcome, error) {
	p.mu.Lock()
	p.calls = append(p.calls, id)
	p.mu.Unlock()
	if id == p.panicOn {
		panic("boom")
	}
	if err := p.errs[id]; err != nil {
		return nil, err
	}
	st := domain.StatusPosted
	if s, ok := p.statuses[id]; ok {
		st = s
	}
	return &services.PublishOutcome{ScheduledPostID: id, Status: st}, nil
}

func (p *stubPublisher) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

func TestDispatcherTick_OnlyDuePosts(t *testing.T) {
	db := newTestDB(t)
	seed(t, db, "due1", domain.StatusScheduled, testNow.Add(-time.Hour))
	seed(t, db, "due2", domain.StatusQueued, testNow)
	seed(t, db, "future", domain.StatusScheduled, testNow.Add(time.Hour))
	seed(t, db, "done", domain.StatusPosted, testNow.Add(-time.Hour))
	seed(t, db, "gone", domain.StatusCancelled, testNow.Add(-time.Hour))

	pub := &stubPublisher{statuses: map[string]domain.PostStatus{"due2": domain.StatusFailed}}
	d := &Dispatcher{DB: db, Publisher: pub, Locker: NewLocalLocker(), Concurrency: 2}

	stats, err := d.Tick(context.Background(), testNow)
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if stats.Due != 2 || stats.Posted != 1 || stats.Failed != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	calls := pub.Calls()
	if len(calls) != 2 {
		t.Fatalf("expected two dispatches, got %v", calls)
	}
	for _, id := range calls {
		if id != "due1" && id != "due2" {
			t.Fatalf("dispatched non-due post %s", id)
		}
	}
}

func TestDispatcherTick_LockedPostSkipped(t *testing.T) {
	db := newTestDB(t)
	seed(t, db, "a", domain.StatusScheduled, testNow.Add(-time.Minute))
	seed(t, db, "b", domain.StatusScheduled, testNow.Add(-time.Minute))

	_, client := newMiniRedis(t)
	locker := &RedisLocker{Client: client}
	if _, err := locker.Lock(context.Background(), "publish:a", time.Minute); err != nil {
		t.Fatalf("pre-lock: %v", err)
	}

	pub := &stubPublisher{}
	d := &Dispatcher{DB: db, Publisher: pub, Locker: locker, Concurrency: 4, LockTTL: time.Minute}
	stats, err := d.Tick(context.Background(), testNow)
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if stats.Skipped != 1 || stats.Posted != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if calls := pub.Calls(); len(calls) != 1 || calls[0] != "b" {
		t.Fatalf("locked post must not be published, calls=%v", calls)
	}
}

func TestDispatcherTick_ErrorsDoNotAbortBatch(t *testing.T) {
	db := newTestDB(t)
	for _, id := range []string{"a", "b", "c", "d"} {
		seed(t, db, id, domain.StatusScheduled, testNow.Add(-time.Minute))
	}
	pub := &stubPublisher{errs: map[string]error{
		"a": services.ErrNotConnected,
		"b": services.ErrAlreadyClaimed,
		"c": errors.New("db down"),
	}}
	d := &Dispatcher{DB: db, Publisher: pub, Concurrency: 1}

	stats, err := d.Tick(context.Background(), testNow)
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if stats.Skipped != 2 || stats.Errored != 1 || stats.Posted != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestDispatcherTick_BatchLimit(t *testing.T) {
	db := newTestDB(t)
	for i := 0; i < 5; i++ {
		seed(t, db, fmt.Sprintf("p%d", i), domain.StatusScheduled, testNow.Add(-time.Duration(i+1)*time.Minute))
	}
	pub := &stubPublisher{}
	d := &Dispatcher{DB: db, Publisher: pub, BatchSize: 2, Concurrency: 2}
	stats, err := d.Tick(context.Background(), testNow)
	if err != nil || stats.Due != 2 {
		t.Fatalf("Tick: %+v %v", stats, err)
	}
	calls := pub.Calls()
	for _, id := range calls {
		if id != "p4" && id != "p3" {
			t.Fatalf("oldest posts must be dispatched first, got %v", calls)
		}
	}
}

func TestDispatcherTick_EndToEnd(t *testing.T) {
	db := newTestDB(t)
	if err := db.Create(&domain.Draft{ID: "d1", OrgID: "org1", Content: domain.DraftContent{Body: "hello"}}).Error; err != nil {
		t.Fatalf("seed draft: %v", err)
	}
	if err := repo.UpsertCredential(context.Background(), db, &domain.Credential{
		AccountID: "org1", AccessToken: "tok", AuthorID: "1", AuthorKind: domain.KindPerson,
	}); err != nil {
		t.Fatalf("seed credential: %v", err)
	}
	seed(t, db, "sp1", domain.StatusScheduled, testNow.Add(-time.Minute))

	fc := linkedin.NewFakeClient()
	fc.PostID = "e2e"
	svc := &services.PublishService{
		DB:          db,
		Credentials: &services.StoreCredentialProvider{DB: db},
		Uploader:    &services.Uploader{Client: fc},
		Strategy:    services.NewStrategy(fc, 2, 0, false),
	}
	d := &Dispatcher{DB: db, Publisher: svc, Locker: NewLocalLocker(), Concurrency: 2}

	for i := 0; i < 2; i++ {
		if _, err := d.Tick(context.Background(), testNow); err != nil {
			t.Fatalf("Tick %d: %v", i, err)
		}
	}
	sp, err := repo.GetScheduledPost(context.Background(), db, "sp1")
	if err != nil || sp.Status != domain.StatusPosted || sp.PlatformPostID != "urn:li:share:e2e" {
		t.Fatalf("unexpected post: %+v %v", sp, err)
	}
	if n := len(fc.CallsFor("create_post")); n != 1 {
		t.Fatalf("a posted post must not be dispatched again, create calls=%d", n)
	}
}

func TestDispatcherRequeue(t *testing.T) {
	db := newTestDB(t)
	seed(t, db, "f1", domain.StatusFailed, testNow)
	seed(t, db, "f2", domain.StatusFailed, testNow)
	if err := db.Model(&domain.ScheduledPost{}).Where("id = ?", "f2").Update("retries", 2).Error; err != nil {
		t.Fatalf("exhaust budget: %v", err)
	}
	d := &Dispatcher{DB: db}

	n, err := d.Requeue(context.Background())
	if err != nil || n != 1 {
		t.Fatalf("Requeue: %d %v", n, err)
	}
	f1, _ := repo.GetScheduledPost(context.Background(), db, "f1")
	f2, _ := repo.GetScheduledPost(context.Background(), db, "f2")
	if f1.Status != domain.StatusQueued || f1.Retries != 1 {
		t.Fatalf("f1 not requeued: %+v", f1)
	}
	if f2.Status != domain.StatusFailed {
		t.Fatalf("f2 has no budget left and must stay failed: %+v", f2)
	}
}
