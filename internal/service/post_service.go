package service

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/tangerine/internal/db"
	"gorm.io/gorm"
)

var (
	// ErrPostNotFound indicates the requested post does not exist or is not visible.
	ErrPostNotFound = errors.New("post not found")
	// ErrPageNotFound indicates the requested standalone page does not exist.
	ErrPageNotFound = errors.New("page not found")
	// ErrSlugTaken indicates another post already uses the slug on the same local day.
	ErrSlugTaken = errors.New("slug already used on this date")
	// ErrInvalidArchiveDate indicates a date archive request outside the calendar.
	ErrInvalidArchiveDate = errors.New("invalid archive date")
)

var slugInvalidChars = regexp.MustCompile(`[^a-z0-9]+`)

// PostInput captures the editable fields of a post or page.
type PostInput struct {
	Title          string
	Slug           string
	Summary        string
	Content        string
	AuthorID       *uint
	Published      *bool
	PType          string
	PubDate        *time.Time
	EnableComments *bool
	CategoryIDs    []uint
}

// PostService handles post authoring and the public visibility queries.
type PostService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewPostService constructs a PostService.
func NewPostService(gdb *gorm.DB) *PostService {
	return &PostService{db: gdb, now: time.Now}
}

// SetClock overrides the time source used for visibility and default pub dates.
func (s *PostService) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Visible returns the lazily evaluated set of posts the public can read.
func (s *PostService) Visible(tenant string) (*PostSet, error) {
	if _, err := loadBlog(s.db, tenant); err != nil {
		return nil, err
	}
	return newPostSet(s.db, tenant, s.now), nil
}

// ListVisible returns one page of visible posts using the tenant's page size.
func (s *PostService) ListVisible(tenant string, page int) (*PostListResult, error) {
	blog, err := loadBlog(s.db, tenant)
	if err != nil {
		return nil, err
	}
	return newPostSet(s.db, tenant, s.now).Page(page, blog.PostsPerPage)
}

// Get loads a post of the tenant regardless of its visibility.
func (s *PostService) Get(tenant string, id uint) (*db.Post, error) {
	var post db.Post
	err := s.db.Preload("Author").Preload("Categories").
		Where("tenant = ?", normalizeTenant(tenant)).
		First(&post, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	return &post, nil
}

// Create stores a new post. The publication date defaults to now and is
// pinned to the tenant's time zone at this moment.
func (s *PostService) Create(tenant string, input PostInput) (*db.Post, error) {
	blog, err := loadBlog(s.db, tenant)
	if err != nil {
		return nil, err
	}

	post := db.Post{
		Tenant:         blog.Slug,
		PType:          db.PostTypePost,
		Published:      true,
		EnableComments: true,
	}
	pubDate := s.now()
	if input.PubDate != nil {
		pubDate = *input.PubDate
	}
	post.SetPubDate(pubDate, blog.Location())

	if err := applyPostInput(&post, input); err != nil {
		return nil, err
	}
	return s.saveWithCategories(&post, input.CategoryIDs, true)
}

// Update modifies an existing post. PubDate is only replaced when the input
// carries one; an unchanged pub date keeps its original offset.
func (s *PostService) Update(tenant string, id uint, input PostInput) (*db.Post, error) {
	blog, err := loadBlog(s.db, tenant)
	if err != nil {
		return nil, err
	}
	existing, err := s.Get(blog.Slug, id)
	if err != nil {
		return nil, err
	}

	if input.PubDate != nil {
		existing.SetPubDate(*input.PubDate, blog.Location())
	}
	if err := applyPostInput(existing, input); err != nil {
		return nil, err
	}
	return s.saveWithCategories(existing, input.CategoryIDs, input.CategoryIDs != nil)
}

// Trash moves the post to the trash; it is excluded from every public query.
func (s *PostService) Trash(tenant string, id uint) error {
	return s.setTrashed(tenant, id, true)
}

// Restore takes the post out of the trash.
func (s *PostService) Restore(tenant string, id uint) error {
	return s.setTrashed(tenant, id, false)
}

func (s *PostService) setTrashed(tenant string, id uint, trashed bool) error {
	result := s.db.Model(&db.Post{}).
		Where("id = ? AND tenant = ?", id, normalizeTenant(tenant)).
		Update("trashed", trashed)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrPostNotFound
	}
	return nil
}

// Page returns the newest published, non-trashed standalone page with slug.
func (s *PostService) Page(tenant, slug string) (*db.Post, error) {
	blog, err := loadBlog(s.db, tenant)
	if err != nil {
		return nil, err
	}
	var page db.Post
	err = s.db.Preload("Author").
		Where("tenant = ? AND slug = ? AND ptype = ? AND published = ? AND trashed = ?",
			blog.Slug, slug, db.PostTypePage, true, false).
		Order("pub_date desc, id desc").
		First(&page).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPageNotFound
		}
		return nil, err
	}
	return &page, nil
}

// Adjacent returns the visible posts immediately older and newer than post.
func (s *PostService) Adjacent(tenant string, post *db.Post) (previous, next *db.Post, err error) {
	set, err := s.Visible(tenant)
	if err != nil {
		return nil, nil, err
	}
	return set.Neighbors(post)
}

// Search matches visible posts whose title, summary or content contains q.
// A blank query matches nothing.
func (s *PostService) Search(tenant, q string) (*PostSet, error) {
	set, err := s.Visible(tenant)
	if err != nil {
		return nil, err
	}
	term := strings.ToLower(strings.TrimSpace(q))
	if term == "" {
		return set.Filter(func(tx *gorm.DB) *gorm.DB { return tx.Where("1 = 0") }), nil
	}
	pattern := "%" + escapeLike(term) + "%"
	return set.Filter(func(tx *gorm.DB) *gorm.DB {
		return tx.Where(
			"(LOWER(posts.title) LIKE ? ESCAPE '\\' OR LOWER(posts.summary) LIKE ? ESCAPE '\\' OR LOWER(posts.content) LIKE ? ESCAPE '\\')",
			pattern, pattern, pattern,
		)
	}), nil
}

// DateArchive restricts the visible posts to a local publication year, month
// or day. month and day are optional (zero) but day requires month.
func (s *PostService) DateArchive(tenant string, year, month, day int) (*PostSet, error) {
	prefix, err := archivePrefix(year, month, day)
	if err != nil {
		return nil, err
	}
	set, err := s.Visible(tenant)
	if err != nil {
		return nil, err
	}
	return set.Filter(func(tx *gorm.DB) *gorm.DB {
		return tx.Where("posts.pub_day LIKE ?", prefix+"%")
	}), nil
}

// ArchivePeriod counts visible posts published in one local year or month.
type ArchivePeriod struct {
	Year  int
	Month int
	Count int
}

// ArchiveDates groups visible posts by local publication month (or year when
// byYear is set), newest period first.
func (s *PostService) ArchiveDates(tenant string, byYear bool) ([]ArchivePeriod, error) {
	set, err := s.Visible(tenant)
	if err != nil {
		return nil, err
	}

	var periods []ArchivePeriod
	for post, err := range set.All() {
		if err != nil {
			return nil, err
		}
		local := post.LocalPubDate()
		period := ArchivePeriod{Year: local.Year(), Month: int(local.Month())}
		if byYear {
			period.Month = 0
		}
		// posts arrive newest first, so equal periods are always adjacent
		if n := len(periods); n > 0 && periods[n-1].Year == period.Year && periods[n-1].Month == period.Month {
			periods[n-1].Count++
			continue
		}
		period.Count = 1
		periods = append(periods, period)
	}
	return periods, nil
}

func (s *PostService) saveWithCategories(post *db.Post, categoryIDs []uint, replaceCategories bool) (*db.Post, error) {
	return post, s.db.Transaction(func(tx *gorm.DB) error {
		var clash int64
		if err := tx.Model(&db.Post{}).
			Where("tenant = ? AND slug = ? AND pub_day = ? AND id <> ?", post.Tenant, post.Slug, post.PubDay, post.ID).
			Count(&clash).Error; err != nil {
			return err
		}
		if clash > 0 {
			return ErrSlugTaken
		}

		if err := tx.Omit("Categories", "Author").Save(post).Error; err != nil {
			return fmt.Errorf("save post: %w", err)
		}

		if replaceCategories {
			var categories []db.Category
			if len(categoryIDs) > 0 {
				if err := tx.Where("tenant = ? AND id IN ?", post.Tenant, categoryIDs).Find(&categories).Error; err != nil {
					return err
				}
				if len(categories) != len(uniqueIDs(categoryIDs)) {
					return ErrCategoryNotFound
				}
			}
			if err := tx.Model(post).Association("Categories").Replace(categories); err != nil {
				return err
			}
		}

		return tx.Preload("Author").Preload("Categories").First(post, post.ID).Error
	})
}

func applyPostInput(post *db.Post, input PostInput) error {
	if title := strings.TrimSpace(input.Title); title != "" {
		post.Title = title
	}
	if post.Title == "" {
		return newValidationError("title", "required")
	}

	if slug := strings.TrimSpace(input.Slug); slug != "" {
		post.Slug = slugify(slug)
	}
	if post.Slug == "" {
		post.Slug = slugify(post.Title)
	}
	if post.Slug == "" {
		return newValidationError("slug", "required")
	}

	if input.Summary != "" {
		post.Summary = input.Summary
	}
	if input.Content != "" {
		post.Content = input.Content
	}
	if input.AuthorID != nil {
		post.AuthorID = input.AuthorID
	}
	if input.Published != nil {
		post.Published = *input.Published
	}
	if input.EnableComments != nil {
		post.EnableComments = *input.EnableComments
	}
	switch ptype := strings.ToLower(strings.TrimSpace(input.PType)); ptype {
	case "":
	case db.PostTypePost, db.PostTypePage:
		post.PType = ptype
	default:
		return newValidationError("ptype", "must be post or page")
	}
	return nil
}

func archivePrefix(year, month, day int) (string, error) {
	if year < 1 || year > 9999 {
		return "", ErrInvalidArchiveDate
	}
	if month == 0 {
		if day != 0 {
			return "", ErrInvalidArchiveDate
		}
		return fmt.Sprintf("%04d-", year), nil
	}
	if month < 1 || month > 12 {
		return "", ErrInvalidArchiveDate
	}
	if day == 0 {
		return fmt.Sprintf("%04d-%02d-", year, month), nil
	}
	if !validCalendarDate(year, month, day) {
		return "", ErrInvalidArchiveDate
	}
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day), nil
}

func validCalendarDate(year, month, day int) bool {
	if month < 1 || month > 12 || day < 1 {
		return false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return t.Year() == year && int(t.Month()) == month && t.Day() == day
}

func slugify(value string) string {
	slug := slugInvalidChars.ReplaceAllString(strings.ToLower(strings.TrimSpace(value)), "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > 140 {
		slug = strings.TrimRight(slug[:140], "-")
	}
	return slug
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
