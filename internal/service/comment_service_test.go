package service

import (
	"errors"
	"math"
	"testing"

	"github.com/tangerine/internal/db"
)

func TestCommentService_ThreadSkipsUnapproved(t *testing.T) {
	f := setupPipelineFixture(t, BlogInput{})
	author := mustCreateUser(t, f.db, db.User{Username: "writer", Email: "writer@example.com"})
	who := IdentityFor(author)

	root := f.submit(t, CommentSubmission{Body: "root"}, who)
	reply := f.submit(t, CommentSubmission{Body: "reply", ParentID: &root.ID}, who)
	f.submit(t, CommentSubmission{Body: "nested", ParentID: &reply.ID}, who)
	pending := f.submit(t, CommentSubmission{Name: "anon", Body: "pending"}, Identity{})
	f.submit(t, CommentSubmission{Body: "orphaned reply", ParentID: &pending.ID}, who)

	thread, err := f.comments.Thread("acme", f.post.ID)
	if err != nil {
		t.Fatalf("thread: %v", err)
	}
	if len(thread) != 1 || thread[0].Comment.ID != root.ID {
		t.Fatalf("expected a single approved root, got %d", len(thread))
	}
	if len(thread[0].Replies) != 1 || len(thread[0].Replies[0].Replies) != 1 {
		t.Fatalf("nesting lost: %+v", thread[0])
	}

	top, err := f.comments.TopLevel("acme", f.post.ID)
	if err != nil || len(top) != 1 {
		t.Fatalf("top level: %d, %v", len(top), err)
	}
	replies, err := f.comments.Replies("acme", root.ID)
	if err != nil || len(replies) != 1 || replies[0].ID != reply.ID {
		t.Fatalf("replies: %v, %v", replies, err)
	}
	// 已审核的评论都计数，包括挂在未审核评论下的回复
	if n, _ := f.comments.Count(f.post.ID); n != 4 {
		t.Fatalf("expected 4 approved comments, got %d", n)
	}
}

func TestCommentService_ManageFiltersAndPages(t *testing.T) {
	f := setupPipelineFixture(t, BlogInput{})
	for i := 0; i < 30; i++ {
		f.submit(t, CommentSubmission{Name: "bulk", Body: "filler"}, Identity{})
	}
	target := f.submit(t, CommentSubmission{Name: "Needle", Email: "needle@example.com", Body: "find me"}, Identity{})

	page, err := f.comments.Manage("acme", CommentFilter{})
	if err != nil {
		t.Fatalf("manage: %v", err)
	}
	if page.Total != 31 || page.TotalPages != 2 || len(page.Comments) != 25 {
		t.Fatalf("unexpected paging: total=%d pages=%d len=%d", page.Total, page.TotalPages, len(page.Comments))
	}
	if page.Comments[0].ID != target.ID {
		t.Fatalf("newest comment should come first")
	}

	second, err := f.comments.Manage("acme", CommentFilter{Page: 2})
	if err != nil || len(second.Comments) != 6 {
		t.Fatalf("second page: %v, %v", second, err)
	}

	beyond, err := f.comments.Manage("acme", CommentFilter{Page: math.MaxInt})
	if err != nil || beyond.Page != maxPage || len(beyond.Comments) != 0 {
		t.Fatalf("huge page should clamp to an empty page: %+v, %v", beyond, err)
	}

	found, err := f.comments.Manage("acme", CommentFilter{Query: "NEEDLE@"})
	if err != nil || found.Total != 1 || found.Comments[0].ID != target.ID {
		t.Fatalf("query filter: %+v, %v", found, err)
	}
	if found.Comments[0].Post == nil || found.Comments[0].Post.ID != f.post.ID {
		t.Fatalf("post should be preloaded")
	}

	byID, err := f.comments.Manage("acme", CommentFilter{CommentID: &target.ID})
	if err != nil || byID.Total != 1 {
		t.Fatalf("id filter: %+v, %v", byID, err)
	}

	if _, err := f.comments.Manage("ghost", CommentFilter{}); !errors.Is(err, ErrTenantNotConfigured) {
		t.Fatalf("expected ErrTenantNotConfigured, got %v", err)
	}
}

func TestCommentService_RecentOnlyVisibleApproved(t *testing.T) {
	f := setupPipelineFixture(t, BlogInput{})
	who := IdentityFor(mustCreateUser(t, f.db, db.User{Username: "writer", Email: "writer@example.com"}))
	first := f.submit(t, CommentSubmission{Body: "first"}, who)
	second := f.submit(t, CommentSubmission{Body: "second"}, who)
	f.submit(t, CommentSubmission{Name: "anon", Body: "pending"}, Identity{})

	recent, err := f.comments.Recent("acme", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 2 || recent[0].ID != second.ID || recent[1].ID != first.ID {
		t.Fatalf("unexpected recent comments: %d", len(recent))
	}

	if err := NewPostService(f.db).Trash("acme", f.post.ID); err != nil {
		t.Fatalf("trash: %v", err)
	}
	recent, err = f.comments.Recent("acme", 10)
	if err != nil || len(recent) != 0 {
		t.Fatalf("comments on trashed posts must be hidden, got %d (%v)", len(recent), err)
	}
}

func TestCommentService_GetIsTenantScoped(t *testing.T) {
	f := setupPipelineFixture(t, BlogInput{})
	comment := f.submit(t, CommentSubmission{Name: "a", Body: "hi"}, Identity{})

	got, err := f.comments.Get("ACME", comment.ID)
	if err != nil || got.ID != comment.ID {
		t.Fatalf("get: %v, %v", got, err)
	}
	if _, err := f.comments.Get("other", comment.ID); !errors.Is(err, ErrCommentNotFound) {
		t.Fatalf("expected ErrCommentNotFound, got %v", err)
	}
}

func TestCommentService_ThreadReadsRequireConfiguredTenant(t *testing.T) {
	f := setupPipelineFixture(t, BlogInput{})
	f.submit(t, CommentSubmission{Name: "a", Email: "a@example.com", Body: "hi"}, IdentityFor(mustCreateUser(t, f.db, db.User{Username: "a"})))

	if _, err := f.comments.Thread("missing", f.post.ID); !errors.Is(err, ErrTenantNotConfigured) {
		t.Fatalf("Thread: expected ErrTenantNotConfigured, got %v", err)
	}
	if _, err := f.comments.TopLevel("missing", f.post.ID); !errors.Is(err, ErrTenantNotConfigured) {
		t.Fatalf("TopLevel: expected ErrTenantNotConfigured, got %v", err)
	}
	if _, err := f.comments.Replies("missing", 1); !errors.Is(err, ErrTenantNotConfigured) {
		t.Fatalf("Replies: expected ErrTenantNotConfigured, got %v", err)
	}
	if _, err := f.comments.Count("missing", f.post.ID); !errors.Is(err, ErrTenantNotConfigured) {
		t.Fatalf("Count: expected ErrTenantNotConfigured, got %v", err)
	}

	mustCreateBlog(t, f.db, "other", BlogInput{})
	thread, err := f.comments.Thread("other", f.post.ID)
	if err != nil || len(thread) != 0 {
		t.Fatalf("another tenant must not see the thread, got %d (%v)", len(thread), err)
	}
	if n, err := f.comments.Count("acme", f.post.ID); err != nil || n != 1 {
		t.Fatalf("expected 1 approved comment, got %d (%v)", n, err)
	}
}
