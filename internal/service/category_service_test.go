package service

import (
	"errors"
	"testing"
	"time"
)

func TestCategoryService_VisibleHidesEmptyAndHiddenOnly(t *testing.T) {
	gdb := setupServiceTestDB(t)
	mustCreateBlog(t, gdb, "acme", BlogInput{})
	posts := NewPostService(gdb)
	posts.SetClock(newTestClock(time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC)).Now)
	categories := NewCategoryService(gdb, posts)

	golang, err := categories.Create("acme", "Go Lang", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if golang.Slug != "go-lang" {
		t.Fatalf("slug should be derived from title, got %q", golang.Slug)
	}
	drafts, _ := categories.Create("acme", "Drafts", "drafts")
	if _, err := categories.Create("acme", "Empty", "empty"); err != nil {
		t.Fatalf("create empty: %v", err)
	}
	if _, err := categories.Create("acme", "Dup", "drafts"); !errors.Is(err, ErrCategoryExists) {
		t.Fatalf("expected ErrCategoryExists, got %v", err)
	}

	past := time.Date(2020, 1, 1, 12, 0, 0, 0, time.UTC)
	visible := mustCreatePost(t, posts, "acme", PostInput{Title: "Visible", PubDate: &past, CategoryIDs: []uint{golang.ID}})
	mustCreatePost(t, posts, "acme", PostInput{Title: "Unpublished", PubDate: &past, Published: boolPtr(false), CategoryIDs: []uint{drafts.ID}})

	all, err := categories.List("acme")
	if err != nil || len(all) != 3 {
		t.Fatalf("list: %d, %v", len(all), err)
	}

	shown, err := categories.Visible("acme")
	if err != nil {
		t.Fatalf("visible: %v", err)
	}
	if len(shown) != 1 || shown[0].ID != golang.ID {
		t.Fatalf("only categories with visible posts should be listed, got %d", len(shown))
	}

	category, set, err := categories.Posts("acme", "go-lang")
	if err != nil {
		t.Fatalf("posts: %v", err)
	}
	if category.ID != golang.ID {
		t.Fatalf("wrong category returned")
	}
	list, err := set.Collect()
	if err != nil || len(list) != 1 || list[0].ID != visible.ID {
		t.Fatalf("category posts: %v, %v", postIDs(list), err)
	}

	if _, _, err := categories.Posts("acme", "missing"); !errors.Is(err, ErrCategoryNotFound) {
		t.Fatalf("expected ErrCategoryNotFound, got %v", err)
	}
}

func TestCategoryService_ValidationAndTenant(t *testing.T) {
	gdb := setupServiceTestDB(t)
	mustCreateBlog(t, gdb, "acme", BlogInput{})
	categories := NewCategoryService(gdb, NewPostService(gdb))

	if _, err := categories.Create("acme", "  ", ""); !IsValidationError(err) {
		t.Fatalf("blank title should fail validation, got %v", err)
	}
	if _, err := categories.Create("ghost", "Title", ""); !errors.Is(err, ErrTenantNotConfigured) {
		t.Fatalf("expected ErrTenantNotConfigured, got %v", err)
	}
	if _, err := categories.Visible("ghost"); !errors.Is(err, ErrTenantNotConfigured) {
		t.Fatalf("expected ErrTenantNotConfigured, got %v", err)
	}
}
