package handler

import (
	"time"

	"github.com/tangerine/internal/db"
	"github.com/tangerine/internal/service"
)

type categoryView struct {
	ID    uint   `json:"id"`
	Title string `json:"title"`
	Slug  string `json:"slug"`
}

type postView struct {
	ID             uint           `json:"id"`
	Title          string         `json:"title"`
	Slug           string         `json:"slug"`
	Summary        string         `json:"summary"`
	Author         string         `json:"author,omitempty"`
	PubDate        time.Time      `json:"pub_date"`
	Permalink      string         `json:"permalink,omitempty"`
	EnableComments bool           `json:"enable_comments"`
	Categories     []categoryView `json:"categories"`
	HTML           string         `json:"html,omitempty"`
}

// publicCommentView 不包含邮箱与 IP 等仅供审核使用的字段。
type publicCommentView struct {
	ID        uint                `json:"id"`
	ParentID  *uint               `json:"parent_id,omitempty"`
	Name      string              `json:"name"`
	Website   string              `json:"website,omitempty"`
	Body      string              `json:"body"`
	CreatedAt time.Time           `json:"created_at"`
	Replies   []publicCommentView `json:"replies,omitempty"`
}

type manageCommentView struct {
	ID        uint      `json:"id"`
	PostID    uint      `json:"post_id"`
	PostTitle string    `json:"post_title,omitempty"`
	ParentID  *uint     `json:"parent_id,omitempty"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Website   string    `json:"website"`
	Body      string    `json:"body"`
	IPAddress string    `json:"ip_address"`
	UserAgent string    `json:"user_agent"`
	Approved  bool      `json:"approved"`
	Spam      bool      `json:"spam"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type siteView struct {
	Slug                 string `json:"slug"`
	SiteTitle            string `json:"site_title"`
	Tagline              string `json:"tagline"`
	SiteURL              string `json:"site_url"`
	PostsPerPage         int    `json:"posts_per_page"`
	GoogleAnalyticsID    string `json:"google_analytics_id,omitempty"`
	EnableCommentsGlobal bool   `json:"enable_comments_global"`
	CommentSystem        string `json:"comment_system"`
	TimeZone             string `json:"time_zone"`
}

type manageSiteView struct {
	siteView
	AutoApprovePreviousCommentors bool     `json:"auto_approve_previous_commentors"`
	ShowFuture                    bool     `json:"show_future"`
	FromEmail                     string   `json:"from_email"`
	ModerationEmail               string   `json:"moderation_email"`
	AkismetConfigured             bool     `json:"akismet_configured"`
	AllowedTags                   []string `json:"allowed_tags"`
}

func newCategoryViews(categories []db.Category) []categoryView {
	views := make([]categoryView, 0, len(categories))
	for _, category := range categories {
		views = append(views, categoryView{ID: category.ID, Title: category.Title, Slug: category.Slug})
	}
	return views
}

// newPostView 使用发布时记录的偏移呈现时间，页面不需要 Permalink 时传空 siteURL 也可。
func newPostView(post *db.Post, siteURL string) postView {
	view := postView{
		ID:             post.ID,
		Title:          post.Title,
		Slug:           post.Slug,
		Summary:        post.Summary,
		PubDate:        post.LocalPubDate(),
		EnableComments: post.EnableComments,
		Categories:     newCategoryViews(post.Categories),
	}
	if post.Author != nil {
		view.Author = post.Author.FullName()
		if view.Author == "" {
			view.Author = post.Author.Username
		}
	}
	if post.PType == db.PostTypePost {
		view.Permalink = siteURL + service.EncodePermalink(post).Path()
	}
	return view
}

func newPostViews(posts []db.Post, siteURL string) []postView {
	views := make([]postView, 0, len(posts))
	for i := range posts {
		views = append(views, newPostView(&posts[i], siteURL))
	}
	return views
}

func newPublicCommentViews(nodes []service.CommentNode) []publicCommentView {
	views := make([]publicCommentView, 0, len(nodes))
	for _, node := range nodes {
		views = append(views, publicCommentView{
			ID:        node.Comment.ID,
			ParentID:  node.Comment.ParentID,
			Name:      node.Comment.Name,
			Website:   node.Comment.Website,
			Body:      node.Comment.Body,
			CreatedAt: node.Comment.CreatedAt,
			Replies:   newPublicCommentViews(node.Replies),
		})
	}
	return views
}

func newManageCommentView(comment *db.Comment) manageCommentView {
	view := manageCommentView{
		ID:        comment.ID,
		PostID:    comment.PostID,
		ParentID:  comment.ParentID,
		Name:      comment.Name,
		Email:     comment.Email,
		Website:   comment.Website,
		Body:      comment.Body,
		IPAddress: comment.IPAddress,
		UserAgent: comment.UserAgent,
		Approved:  comment.Approved,
		Spam:      comment.Spam,
		CreatedAt: comment.CreatedAt,
		UpdatedAt: comment.UpdatedAt,
	}
	if comment.Post != nil {
		view.PostTitle = comment.Post.Title
	}
	return view
}

func newSiteView(blog *db.Blog) siteView {
	return siteView{
		Slug:                 blog.Slug,
		SiteTitle:            blog.SiteTitle,
		Tagline:              blog.Tagline,
		SiteURL:              blog.SiteURL,
		PostsPerPage:         blog.PostsPerPage,
		GoogleAnalyticsID:    blog.GoogleAnalyticsID,
		EnableCommentsGlobal: blog.EnableCommentsGlobal,
		CommentSystem:        blog.CommentSystem,
		TimeZone:             blog.TimeZone,
	}
}

func newManageSiteView(blog *db.Blog) manageSiteView {
	tags := blog.AllowedTagList()
	if tags == nil {
		tags = service.DefaultCommentTags
	}
	return manageSiteView{
		siteView:                      newSiteView(blog),
		AutoApprovePreviousCommentors: blog.AutoApprovePreviousCommentors,
		ShowFuture:                    blog.ShowFuture,
		FromEmail:                     blog.FromEmail,
		ModerationEmail:               blog.ModerationEmail,
		AkismetConfigured:             blog.AkismetKey != "",
		AllowedTags:                   tags,
	}
}
