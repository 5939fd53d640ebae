package service

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/tangerine/internal/db"
	"gorm.io/gorm"
)

// Permalink identifies a post by its local publication date and slug.
type Permalink struct {
	Year  int    `json:"year"`
	Month int    `json:"month"`
	Day   int    `json:"day"`
	Slug  string `json:"slug"`
}

// Path renders the permalink as /posts/YYYY/MM/DD/slug/.
func (p Permalink) Path() string {
	return fmt.Sprintf("/posts/%04d/%02d/%02d/%s/", p.Year, p.Month, p.Day, p.Slug)
}

func (p Permalink) pubDay() string {
	return fmt.Sprintf("%04d-%02d-%02d", p.Year, p.Month, p.Day)
}

// EncodePermalink derives the permalink from the post's stored pub date as
// seen in the offset captured when it was authored. It never consults the
// server's local zone, so the result is stable across processes and hosts.
func EncodePermalink(post *db.Post) Permalink {
	local := post.LocalPubDate()
	return Permalink{
		Year:  local.Year(),
		Month: int(local.Month()),
		Day:   local.Day(),
		Slug:  post.Slug,
	}
}

// ParsePermalink converts path segments into a Permalink. Segments that are
// not numbers or do not name a real calendar day yield ErrPostNotFound.
func ParsePermalink(year, month, day, slug string) (Permalink, error) {
	y, errY := strconv.Atoi(year)
	m, errM := strconv.Atoi(month)
	d, errD := strconv.Atoi(day)
	if errY != nil || errM != nil || errD != nil || slug == "" {
		return Permalink{}, ErrPostNotFound
	}
	if !validCalendarDate(y, m, d) {
		return Permalink{}, ErrPostNotFound
	}
	return Permalink{Year: y, Month: m, Day: d, Slug: slug}, nil
}

// PermalinkResolver maps permalinks back to posts.
type PermalinkResolver struct {
	db *gorm.DB
}

// NewPermalinkResolver constructs a PermalinkResolver.
func NewPermalinkResolver(gdb *gorm.DB) *PermalinkResolver {
	return &PermalinkResolver{db: gdb}
}

// Resolve returns the published, non-trashed post the permalink names.
// Future pub dates are not filtered here; a direct link stays reachable.
func (r *PermalinkResolver) Resolve(tenant string, link Permalink) (*db.Post, error) {
	blog, err := loadBlog(r.db, tenant)
	if err != nil {
		return nil, err
	}
	if !validCalendarDate(link.Year, link.Month, link.Day) || link.Slug == "" {
		return nil, ErrPostNotFound
	}

	var post db.Post
	err = r.db.Preload("Author").Preload("Categories").
		Where("tenant = ? AND pub_day = ? AND slug = ? AND published = ? AND trashed = ?",
			blog.Slug, link.pubDay(), link.Slug, true, false).
		First(&post).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	return &post, nil
}

// URL returns the absolute permalink using the tenant's configured site URL.
// Without a site URL the path alone is returned.
func (r *PermalinkResolver) URL(tenant string, post *db.Post) (string, error) {
	blog, err := loadBlog(r.db, tenant)
	if err != nil {
		return "", err
	}
	return blog.SiteURL + EncodePermalink(post).Path(), nil
}
