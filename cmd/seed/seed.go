package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/tangerine/internal/db"
	"github.com/tangerine/internal/service"
	"gorm.io/gorm"
)

type samplePost struct {
	title      string
	summary    string
	content    string
	categories []string
	age        time.Duration
}

var sampleCategories = []string{"Engineering", "Notes", "Announcements"}

var samplePosts = []samplePost{
	{
		title:      "Building a Multi-Tenant Blog in Go",
		summary:    "How one process serves many independent sites.",
		content:    "Every request resolves a **tenant** first. Posts, comments and settings are all scoped by it.\n\n- one database\n- many sites",
		categories: []string{"Engineering"},
		age:        72 * time.Hour,
	},
	{
		title:      "Permalinks That Survive Time Zones",
		summary:    "Why the day in a URL should never move.",
		content:    "A post written at 23:30 local time keeps that day in its permalink, no matter where the server runs.",
		categories: []string{"Engineering", "Notes"},
		age:        30 * time.Hour,
	},
	{
		title:      "Comment Moderation Basics",
		summary:    "Spam checks, allow-lists and approval.",
		content:    "First-time commentors wait for approval. Once approved, later comments from the same address publish immediately.",
		categories: []string{"Notes"},
		age:        6 * time.Hour,
	},
	{
		title:      "Coming Soon",
		summary:    "Scheduled for later this week.",
		content:    "This post is visible by permalink but not listed until its publication date.",
		categories: []string{"Announcements"},
		age:        -48 * time.Hour,
	},
}

var sampleLinks = []service.RelatedLinkInput{
	{SiteTitle: "The Go Programming Language", SiteURL: "https://go.dev", LinkOrder: 1},
	{SiteTitle: "Gin Web Framework", SiteURL: "https://gin-gonic.com", LinkOrder: 2},
	{SiteTitle: "GORM", SiteURL: "https://gorm.io", LinkOrder: 3},
}

// seedResult 汇总生成的数据，供命令行输出与测试断言。
type seedResult struct {
	Blog       *db.Blog
	Categories int
	Posts      int
	Comments   int
}

// seedTenant 为租户生成演示数据。站点配置已存在时直接跳过，不会重复生成。
func seedTenant(gdb *gorm.DB, tenant string, now time.Time, admin db.UserSeed) (*seedResult, error) {
	blogs := service.NewBlogService(gdb)
	blog, err := blogs.Create(tenant, service.BlogInput{
		SiteTitle:       "Tangerine Demo",
		Tagline:         "Sample content for local development",
		SiteURL:         "http://localhost:8080",
		FromEmail:       "noreply@example.com",
		ModerationEmail: "moderators@example.com",
	})
	if err != nil {
		if errors.Is(err, service.ErrConfigExists) {
			return nil, err
		}
		return nil, fmt.Errorf("create site: %w", err)
	}
	result := &seedResult{Blog: blog}

	// 创建测试用户
	if err := db.EnsureUser(gdb, admin); err != nil {
		return nil, fmt.Errorf("create admin: %w", err)
	}
	var author db.User
	if err := gdb.Where("username = ?", admin.Username).First(&author).Error; err != nil {
		return nil, fmt.Errorf("load admin: %w", err)
	}

	posts := service.NewPostService(gdb)
	posts.SetClock(func() time.Time { return now })
	categories := service.NewCategoryService(gdb, posts)

	// 创建分类
	categoryIDs := make(map[string]uint, len(sampleCategories))
	for _, title := range sampleCategories {
		category, err := categories.Create(blog.Slug, title, "")
		if err != nil {
			return nil, fmt.Errorf("create category %q: %w", title, err)
		}
		categoryIDs[title] = category.ID
		result.Categories++
	}

	// 创建关于页面
	if _, err := posts.Create(blog.Slug, service.PostInput{
		Title:    "About",
		Content:  "## Hello\n\nThis site runs on Tangerine.",
		PType:    db.PostTypePage,
		AuthorID: &author.ID,
	}); err != nil {
		return nil, fmt.Errorf("create about page: %w", err)
	}

	// 创建测试文章
	var first *db.Post
	for _, sample := range samplePosts {
		ids := make([]uint, 0, len(sample.categories))
		for _, name := range sample.categories {
			ids = append(ids, categoryIDs[name])
		}
		pubDate := now.Add(-sample.age)
		post, err := posts.Create(blog.Slug, service.PostInput{
			Title:       sample.title,
			Summary:     sample.summary,
			Content:     sample.content,
			AuthorID:    &author.ID,
			PubDate:     &pubDate,
			CategoryIDs: ids,
		})
		if err != nil {
			return nil, fmt.Errorf("create post %q: %w", sample.title, err)
		}
		if first == nil {
			first = post
		}
		result.Posts++
	}

	if _, err := service.NewRelatedLinkService(gdb).Save(blog.Slug, "blogroll", sampleLinks); err != nil {
		return nil, fmt.Errorf("create blogroll: %w", err)
	}

	// 一条已审核的评论及其回复，外加一条待审核评论
	approved := db.Comment{Tenant: blog.Slug, PostID: first.ID, Name: "Ada", Email: "ada@example.com", Body: "Great write-up!", Approved: true}
	if err := gdb.Create(&approved).Error; err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	if err := gdb.Create(&db.ApprovedCommentor{Tenant: blog.Slug, Email: approved.Email}).Error; err != nil {
		return nil, fmt.Errorf("create approved commentor: %w", err)
	}
	comments := []db.Comment{
		{Tenant: blog.Slug, PostID: first.ID, ParentID: &approved.ID, Name: author.Username, Email: author.Email, AuthorID: &author.ID, Body: "Thanks!", Approved: true},
		{Tenant: blog.Slug, PostID: first.ID, Name: "Newcomer", Email: "new@example.com", Body: "Waiting for a moderator."},
	}
	if err := gdb.Create(&comments).Error; err != nil {
		return nil, fmt.Errorf("create comments: %w", err)
	}
	result.Comments = 1 + len(comments)

	return result, nil
}
