package repo

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/linkedin-publisher/internal/domain"
)

func seedScheduled(t *testing.T, db *gorm.DB, id, orgID string, status domain.PostStatus, at time.Time) *domain.ScheduledPost {
	t.Helper()
	sp := &domain.ScheduledPost{
		ID: id, DraftID: "d-" + id, OrgID: orgID, IdempotencyKey: "k-" + id,
		PublishTime: at, Status: status, MaxRetries: 3,
	}
	if err := db.Create(sp).Error; err != nil {
		t.Fatalf("seed %s: %v", id, err)
	}
	return sp
}

func statusOf(t *testing.T, db *gorm.DB, id string) domain.PostStatus {
	t.Helper()
	sp, err := GetScheduledPost(context.Background(), db, id)
	if err != nil {
		t.Fatalf("get %s: %v", id, err)
	}
	return sp.Status
}

func TestGetScheduledPost_NotFound(t *testing.T) {
	db := newTestDB(t, &domain.ScheduledPost{})
	if _, err := GetScheduledPost(context.Background(), db, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListDueScheduledPosts_FiltersAndOrders(t *testing.T) {
	db := newTestDB(t, &domain.ScheduledPost{})
	now := time.Now().UTC()

	seedScheduled(t, db, "late", "o1", domain.StatusScheduled, now.Add(-time.Minute))
	seedScheduled(t, db, "early", "o1", domain.StatusQueued, now.Add(-time.Hour))
	seedScheduled(t, db, "future", "o1", domain.StatusScheduled, now.Add(time.Hour))
	seedScheduled(t, db, "done", "o1", domain.StatusPosted, now.Add(-2*time.Hour))
	seedScheduled(t, db, "gone", "o1", domain.StatusCancelled, now.Add(-2*time.Hour))

	due, err := ListDueScheduledPosts(context.Background(), db, now, 10)
	if err != nil {
		t.Fatalf("ListDueScheduledPosts: %v", err)
	}
	if len(due) != 2 || due[0].ID != "early" || due[1].ID != "late" {
		t.Fatalf("unexpected due list: %+v", due)
	}

	limited, _ := ListDueScheduledPosts(context.Background(), db, now, 1)
	if len(limited) != 1 || limited[0].ID != "early" {
		t.Fatalf("limit not applied: %+v", limited)
	}
}

func TestClaimScheduledPost_OnlyOneWinner(t *testing.T) {
	db := newTestDB(t, &domain.ScheduledPost{})
	seedScheduled(t, db, "sp1", "o1", domain.StatusScheduled, time.Now().UTC())
	// Serialize on one connection so shared-cache table locks never surface.
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := ClaimScheduledPost(context.Background(), db, "sp1")
			if err == nil && ok {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}
	if st := statusOf(t, db, "sp1"); st != domain.StatusPosting {
		t.Fatalf("expected posting, got %s", st)
	}
}

func TestClaimScheduledPost_RejectsNonDispatchable(t *testing.T) {
	db := newTestDB(t, &domain.ScheduledPost{})
	now := time.Now().UTC()
	for _, st := range []domain.PostStatus{domain.StatusPosting, domain.StatusPosted, domain.StatusFailed, domain.StatusCancelled} {
		seedScheduled(t, db, string(st), "o1", st, now)
		ok, err := ClaimScheduledPost(context.Background(), db, string(st))
		if err != nil || ok {
			t.Fatalf("claim from %s: ok=%v err=%v", st, ok, err)
		}
	}
}

func TestMarkPosted_CreatesPostInSameTransaction(t *testing.T) {
	db := newTestDB(t, &domain.ScheduledPost{}, &domain.Post{})
	sp := seedScheduled(t, db, "sp1", "o1", domain.StatusPosting, time.Now().UTC())

	post, err := MarkPosted(context.Background(), db, sp, PostedResult{
		PlatformPostID: "urn:li:share:abc123",
		PlatformURL:    "https://www.linkedin.com/feed/update/urn:li:share:abc123/",
	})
	if err != nil {
		t.Fatalf("MarkPosted: %v", err)
	}
	if post.PlatformPostID != "urn:li:share:abc123" || post.ScheduledPostID != "sp1" || post.OrgID != "o1" {
		t.Fatalf("unexpected post: %+v", post)
	}

	got, _ := GetScheduledPost(context.Background(), db, "sp1")
	if got.Status != domain.StatusPosted || got.PlatformPostID != post.PlatformPostID || got.PostedAt == nil || got.ErrorMessage != nil {
		t.Fatalf("unexpected scheduled post: %+v", got)
	}

	stored, err := GetPostByScheduledPostID(context.Background(), db, "sp1")
	if err != nil || stored.PlatformPostID != got.PlatformPostID {
		t.Fatalf("post lookup: %+v err=%v", stored, err)
	}
}

func TestMarkPosted_ConflictWhenNotPosting(t *testing.T) {
	db := newTestDB(t, &domain.ScheduledPost{}, &domain.Post{})
	sp := seedScheduled(t, db, "sp1", "o1", domain.StatusScheduled, time.Now().UTC())

	if _, err := MarkPosted(context.Background(), db, sp, PostedResult{PlatformPostID: "urn:li:share:1"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	var n int64
	db.Model(&domain.Post{}).Count(&n)
	if n != 0 {
		t.Fatalf("no post row must be created on conflict, got %d", n)
	}
}

func TestMarkFailed(t *testing.T) {
	db := newTestDB(t, &domain.ScheduledPost{})
	seedScheduled(t, db, "sp1", "o1", domain.StatusPosting, time.Now().UTC())
	seedScheduled(t, db, "sp2", "o1", domain.StatusScheduled, time.Now().UTC())

	if err := MarkFailed(context.Background(), db, "sp1", "validation rejected: 422"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}
	got, _ := GetScheduledPost(context.Background(), db, "sp1")
	if got.Status != domain.StatusFailed || got.ErrorMessage == nil || *got.ErrorMessage != "validation rejected: 422" {
		t.Fatalf("unexpected row: %+v", got)
	}

	if err := MarkFailed(context.Background(), db, "sp2", "x"); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for non-posting row, got %v", err)
	}
}

func TestCancelScheduledPost(t *testing.T) {
	db := newTestDB(t, &domain.ScheduledPost{})
	now := time.Now().UTC()
	seedScheduled(t, db, "s", "o1", domain.StatusScheduled, now)
	seedScheduled(t, db, "q", "o1", domain.StatusQueued, now)
	seedScheduled(t, db, "p", "o1", domain.StatusPosting, now)
	seedScheduled(t, db, "d", "o1", domain.StatusPosted, now)

	for id, want := range map[string]bool{"s": true, "q": true, "p": false, "d": false} {
		ok, err := CancelScheduledPost(context.Background(), db, id)
		if err != nil || ok != want {
			t.Fatalf("cancel %s: ok=%v err=%v want %v", id, ok, err, want)
		}
	}
	if st := statusOf(t, db, "p"); st != domain.StatusPosting {
		t.Fatalf("posting must not be cancelled, got %s", st)
	}
	if st := statusOf(t, db, "d"); st != domain.StatusPosted {
		t.Fatalf("posted must stay posted, got %s", st)
	}
}

func TestRequeue_RespectsRetryBudget(t *testing.T) {
	db := newTestDB(t, &domain.ScheduledPost{})
	now := time.Now().UTC()
	seedScheduled(t, db, "f1", "o1", domain.StatusFailed, now)
	exhausted := seedScheduled(t, db, "f2", "o1", domain.StatusFailed, now)
	db.Model(exhausted).Update("retries", 3)

	list, err := ListRetryableFailed(context.Background(), db, 10)
	if err != nil || len(list) != 1 || list[0].ID != "f1" {
		t.Fatalf("ListRetryableFailed: %+v err=%v", list, err)
	}

	ok, err := RequeueScheduledPost(context.Background(), db, "f1")
	if err != nil || !ok {
		t.Fatalf("requeue f1: ok=%v err=%v", ok, err)
	}
	got, _ := GetScheduledPost(context.Background(), db, "f1")
	if got.Status != domain.StatusQueued || got.Retries != 1 {
		t.Fatalf("unexpected row after requeue: %+v", got)
	}

	if ok, _ := RequeueScheduledPost(context.Background(), db, "f2"); ok {
		t.Fatalf("exhausted post must not be requeued")
	}
}

func TestListScheduledPostsPage_StatusFilter(t *testing.T) {
	db := newTestDB(t, &domain.ScheduledPost{})
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	seedScheduled(t, db, "a", "o1", domain.StatusScheduled, base)
	seedScheduled(t, db, "b", "o1", domain.StatusScheduled, base.Add(time.Hour))
	seedScheduled(t, db, "c", "o1", domain.StatusFailed, base.Add(2*time.Hour))
	seedScheduled(t, db, "x", "o2", domain.StatusScheduled, base)

	total, err := CountScheduledPosts(context.Background(), db, "o1", "")
	if err != nil || total != 3 {
		t.Fatalf("count all: %d err=%v", total, err)
	}
	total, _ = CountScheduledPosts(context.Background(), db, "o1", domain.StatusScheduled)
	if total != 2 {
		t.Fatalf("count scheduled: %d", total)
	}

	page, err := ListScheduledPostsPage(context.Background(), db, "o1", domain.StatusScheduled, 0, 1)
	if err != nil || len(page) != 1 || page[0].ID != "b" {
		t.Fatalf("first page: %+v err=%v", page, err)
	}
	page, _ = ListScheduledPostsPage(context.Background(), db, "o1", domain.StatusScheduled, 1, 1)
	if len(page) != 1 || page[0].ID != "a" {
		t.Fatalf("second page: %+v", page)
	}
}
