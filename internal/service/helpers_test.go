package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/tangerine/internal/db"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:service-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return gdb
}

func boolPtr(v bool) *bool { return &v }

func timePtr(v time.Time) *time.Time { return &v }

func mustCreateBlog(t *testing.T, gdb *gorm.DB, tenant string, input BlogInput) *db.Blog {
	t.Helper()
	blog, err := NewBlogService(gdb).Create(tenant, input)
	if err != nil {
		t.Fatalf("create blog %s: %v", tenant, err)
	}
	return blog
}

func mustCreatePost(t *testing.T, svc *PostService, tenant string, input PostInput) *db.Post {
	t.Helper()
	post, err := svc.Create(tenant, input)
	if err != nil {
		t.Fatalf("create post %q: %v", input.Title, err)
	}
	return post
}

func mustCreateUser(t *testing.T, gdb *gorm.DB, user db.User) *db.User {
	t.Helper()
	if user.Password == "" {
		user.Password = "unused"
	}
	if err := gdb.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return &user
}

// testClock is a settable time source shared with services under test.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(now time.Time) *testClock {
	return &testClock{now: now}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

type stubSpamChecker struct {
	mu        sync.Mutex
	spam      bool
	checkErr  error
	submitErr error
	checks    []SpamSignal
	submitted []bool
}

func (s *stubSpamChecker) Check(_ context.Context, _ *db.Blog, signal SpamSignal) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks = append(s.checks, signal)
	if s.checkErr != nil {
		return false, s.checkErr
	}
	return s.spam, nil
}

func (s *stubSpamChecker) Submit(_ context.Context, _ *db.Blog, _ SpamSignal, spam bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitted = append(s.submitted, spam)
	if s.submitErr != nil {
		return false, s.submitErr
	}
	return true, nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	err      error
	messages []Message
}

func (n *recordingNotifier) Send(_ context.Context, msg Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, msg)
	return n.err
}

func (n *recordingNotifier) last(t *testing.T) Message {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.messages) == 0 {
		t.Fatalf("expected a notification to be sent")
	}
	return n.messages[len(n.messages)-1]
}

func countApprovedCommentors(t *testing.T, gdb *gorm.DB, tenant, email string) int64 {
	t.Helper()
	var count int64
	if err := gdb.Model(&db.ApprovedCommentor{}).Where("tenant = ? AND email = ?", tenant, email).Count(&count).Error; err != nil {
		t.Fatalf("count approved commentors: %v", err)
	}
	return count
}

func postIDs(posts []db.Post) []uint {
	ids := make([]uint, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
	}
	return ids
}
