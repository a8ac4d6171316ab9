package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/linkedin-publisher/internal/domain"
)

func TestPostsPageAndSyncable(t *testing.T) {
	db := newTestDB(t, &domain.ScheduledPost{}, &domain.Post{})
	base := time.Date(2025, 4, 1, 8, 0, 0, 0, time.UTC)
	seedPosted(t, db, "sp1", "o1", "urn:li:share:1", base)
	seedPosted(t, db, "sp2", "o1", "urn:li:share:2", base.Add(time.Hour))
	seedPosted(t, db, "sp3", "o2", "urn:li:share:3", base)

	total, err := CountPosts(context.Background(), db, "o1")
	if err != nil || total != 2 {
		t.Fatalf("CountPosts: %d err=%v", total, err)
	}
	page, err := ListPostsPage(context.Background(), db, "o1", 0, 10)
	if err != nil || len(page) != 2 || page[0].ScheduledPostID != "sp2" {
		t.Fatalf("ListPostsPage: %+v err=%v", page, err)
	}

	syncable, err := ListSyncablePosts(context.Background(), db, "o1")
	if err != nil || len(syncable) != 2 {
		t.Fatalf("ListSyncablePosts: %+v err=%v", syncable, err)
	}
}

func TestGetPostByScheduledPostID_NotFound(t *testing.T) {
	db := newTestDB(t, &domain.ScheduledPost{}, &domain.Post{})
	if _, err := GetPostByScheduledPostID(context.Background(), db, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestEngagementUpdates_TouchOnlyCounters(t *testing.T) {
	db := newTestDB(t, &domain.ScheduledPost{}, &domain.Post{}, &domain.AIGeneratedPost{})
	at := time.Date(2025, 4, 1, 8, 0, 0, 0, time.UTC)
	seedPosted(t, db, "sp1", "o1", "urn:li:share:1", at)
	gen := &domain.AIGeneratedPost{ID: "g1", OrgID: "o1", Status: domain.StatusPosted, PlatformPostID: "urn:li:share:1"}
	if err := db.Create(gen).Error; err != nil {
		t.Fatalf("seed generated: %v", err)
	}

	syncAt := at.Add(24 * time.Hour)
	if err := UpdatePostEngagement(context.Background(), db, "p-sp1", 7, 2, syncAt); err != nil {
		t.Fatalf("UpdatePostEngagement: %v", err)
	}
	if err := UpdateScheduledPostEngagement(context.Background(), db, "sp1", 7, 2, syncAt); err != nil {
		t.Fatalf("UpdateScheduledPostEngagement: %v", err)
	}
	if err := UpdateGeneratedPostEngagement(context.Background(), db, "g1", 7, 2, syncAt); err != nil {
		t.Fatalf("UpdateGeneratedPostEngagement: %v", err)
	}

	p, _ := GetPostByScheduledPostID(context.Background(), db, "sp1")
	if p.Reactions != 7 || p.Comments != 2 || p.SyncedAt == nil || p.PlatformPostID != "urn:li:share:1" {
		t.Fatalf("unexpected post: %+v", p)
	}
	sp, _ := GetScheduledPost(context.Background(), db, "sp1")
	if sp.Reactions != 7 || sp.Comments != 2 || sp.Status != domain.StatusPosted {
		t.Fatalf("unexpected scheduled post: %+v", sp)
	}
	gens, err := ListPostedGeneratedPosts(context.Background(), db, "o1")
	if err != nil || len(gens) != 1 || gens[0].Reactions != 7 || gens[0].Comments != 2 {
		t.Fatalf("unexpected generated posts: %+v err=%v", gens, err)
	}
}

func TestListOrgsWithPublishedPosts(t *testing.T) {
	db := newTestDB(t, &domain.ScheduledPost{}, &domain.Post{}, &domain.AIGeneratedPost{})
	at := time.Now().UTC()
	seedPosted(t, db, "sp1", "o2", "urn:li:share:1", at)
	seedScheduled(t, db, "sp2", "o9", domain.StatusScheduled, at)
	gens := []domain.AIGeneratedPost{
		{ID: "g1", OrgID: "o1", Status: domain.StatusPosted, PlatformPostID: "urn:li:share:5"},
		{ID: "g2", OrgID: "o3", Status: domain.StatusPosted},
	}
	if err := db.Create(&gens).Error; err != nil {
		t.Fatalf("seed generated: %v", err)
	}

	orgs, err := ListOrgsWithPublishedPosts(context.Background(), db)
	if err != nil {
		t.Fatalf("ListOrgsWithPublishedPosts: %v", err)
	}
	if len(orgs) != 2 || orgs[0] != "o1" || orgs[1] != "o2" {
		t.Fatalf("unexpected orgs: %v", orgs)
	}
}

func TestDraftAndCredentialLookups(t *testing.T) {
	db := newTestDB(t, &domain.Draft{}, &domain.Credential{})

	d := &domain.Draft{ID: "d1", OrgID: "o1", Content: domain.DraftContent{Body: "hi"}, AuthorType: domain.AuthorCompany, AuthorID: "42"}
	if err := db.Create(d).Error; err != nil {
		t.Fatalf("seed draft: %v", err)
	}
	got, err := GetDraft(context.Background(), db, "d1")
	if err != nil || got.Content.Body != "hi" || got.AuthorType != domain.AuthorCompany {
		t.Fatalf("GetDraft: %+v err=%v", got, err)
	}
	if _, err := GetDraft(context.Background(), db, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if _, err := GetCredential(context.Background(), db, " "); !errors.Is(err, ErrNotFound) {
		t.Fatalf("blank account must be ErrNotFound, got %v", err)
	}

	c := &domain.Credential{ID: "c1", AccountID: "o1", AccessToken: "tok-1", AuthorID: "abc", AuthorKind: domain.KindPerson}
	if err := UpsertCredential(context.Background(), db, c); err != nil {
		t.Fatalf("UpsertCredential insert: %v", err)
	}
	c2 := &domain.Credential{ID: "c2", AccountID: "o1", AccessToken: "tok-2", AuthorID: "99", AuthorKind: domain.KindOrganization}
	if err := UpsertCredential(context.Background(), db, c2); err != nil {
		t.Fatalf("UpsertCredential update: %v", err)
	}
	cred, err := GetCredential(context.Background(), db, "o1")
	if err != nil || cred.AccessToken != "tok-2" || cred.AuthorKind != domain.KindOrganization || cred.ID != "c1" {
		t.Fatalf("GetCredential after upsert: %+v err=%v", cred, err)
	}
}
