package service

import (
	"iter"
	"time"

	"github.com/tangerine/internal/db"
	"gorm.io/gorm"
)

const postSetBatchSize = 100

// PostSet 是租户可见文章的惰性集合。
// 每次遍历、计数或分页都会重新读取站点配置与当前时间，因此同一个 PostSet
// 可以反复使用，并始终反映调用时的数据。
type PostSet struct {
	db     *gorm.DB
	tenant string
	now    func() time.Time
	scopes []func(*gorm.DB) *gorm.DB
}

// PostListResult 是一页文章及分页信息。
type PostListResult struct {
	Posts      []db.Post
	Total      int64
	TotalPages int
	Page       int
	PerPage    int
}

func newPostSet(gdb *gorm.DB, tenant string, now func() time.Time) *PostSet {
	return &PostSet{db: gdb, tenant: normalizeTenant(tenant), now: now}
}

// Filter 返回追加了查询条件的新集合，原集合不受影响。
func (s *PostSet) Filter(scope func(*gorm.DB) *gorm.DB) *PostSet {
	scopes := make([]func(*gorm.DB) *gorm.DB, 0, len(s.scopes)+1)
	scopes = append(scopes, s.scopes...)
	scopes = append(scopes, scope)
	return &PostSet{db: s.db, tenant: s.tenant, now: s.now, scopes: scopes}
}

// query 构造可见性谓词：已发布、类型为 post、未进回收站，
// 并且在未开启 show_future 时发布时间不晚于当前时刻。
func (s *PostSet) query() (*gorm.DB, error) {
	blog, err := loadBlog(s.db, s.tenant)
	if err != nil {
		return nil, err
	}

	q := s.db.Model(&db.Post{}).
		Where("posts.tenant = ? AND posts.published = ? AND posts.ptype = ? AND posts.trashed = ?",
			blog.Slug, true, db.PostTypePost, false)
	if !blog.ShowFuture {
		q = q.Where("posts.pub_date <= ?", s.now().UTC())
	}
	for _, scope := range s.scopes {
		q = scope(q)
	}
	return q, nil
}

// Count 返回当前满足条件的文章数。
func (s *PostSet) Count() (int64, error) {
	q, err := s.query()
	if err != nil {
		return 0, err
	}
	var total int64
	if err := q.Distinct("posts.id").Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// Slice 按发布时间倒序返回 [offset, offset+limit) 区间内的文章。
func (s *PostSet) Slice(offset, limit int) ([]db.Post, error) {
	q, err := s.query()
	if err != nil {
		return nil, err
	}
	var posts []db.Post
	err = q.Preload("Author").
		Preload("Categories").
		Order("posts.pub_date desc, posts.id desc").
		Offset(offset).
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, err
	}
	return posts, nil
}

// Page 返回第 page 页，page 从 1 开始。
func (s *PostSet) Page(page, perPage int) (*PostListResult, error) {
	result := &PostListResult{Page: clampPage(page), PerPage: perPage}
	if result.PerPage <= 0 {
		result.PerPage = defaultPostsPerPage
	}

	total, err := s.Count()
	if err != nil {
		return nil, err
	}
	result.Total = total

	posts, err := s.Slice((result.Page-1)*result.PerPage, result.PerPage)
	if err != nil {
		return nil, err
	}
	result.Posts = posts

	if result.Total == 0 {
		result.TotalPages = 1
	} else {
		result.TotalPages = int((result.Total + int64(result.PerPage) - 1) / int64(result.PerPage))
	}
	return result, nil
}

// maxPage 限制页码，避免 (page-1)*perPage 溢出。
const maxPage = 100000

func clampPage(page int) int {
	switch {
	case page <= 0:
		return 1
	case page > maxPage:
		return maxPage
	}
	return page
}

// All 依次产出所有文章。每次调用都从头重新查询；
// 查询失败时产出一次零值与错误后结束。
func (s *PostSet) All() iter.Seq2[db.Post, error] {
	return func(yield func(db.Post, error) bool) {
		for offset := 0; ; offset += postSetBatchSize {
			batch, err := s.Slice(offset, postSetBatchSize)
			if err != nil {
				yield(db.Post{}, err)
				return
			}
			for _, post := range batch {
				if !yield(post, nil) {
					return
				}
			}
			if len(batch) < postSetBatchSize {
				return
			}
		}
	}
}

// Collect 把集合读入切片。
func (s *PostSet) Collect() ([]db.Post, error) {
	var posts []db.Post
	for post, err := range s.All() {
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, nil
}

// Contains 判断指定文章当前是否可见。
func (s *PostSet) Contains(postID uint) (bool, error) {
	q, err := s.query()
	if err != nil {
		return false, err
	}
	var count int64
	if err := q.Where("posts.id = ?", postID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Neighbors 返回按发布时间与 post 相邻的较旧、较新文章，不存在时为 nil。
func (s *PostSet) Neighbors(post *db.Post) (previous, next *db.Post, err error) {
	previous, err = s.neighbor(post, "(posts.pub_date < ? OR (posts.pub_date = ? AND posts.id < ?))", "posts.pub_date desc, posts.id desc")
	if err != nil {
		return nil, nil, err
	}
	next, err = s.neighbor(post, "(posts.pub_date > ? OR (posts.pub_date = ? AND posts.id > ?))", "posts.pub_date asc, posts.id asc")
	if err != nil {
		return nil, nil, err
	}
	return previous, next, nil
}

func (s *PostSet) neighbor(post *db.Post, cond, order string) (*db.Post, error) {
	q, err := s.query()
	if err != nil {
		return nil, err
	}
	pub := post.PubDate.UTC()
	var found []db.Post
	if err := q.Where(cond, pub, pub, post.ID).Order(order).Limit(1).Find(&found).Error; err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, nil
	}
	return &found[0], nil
}
