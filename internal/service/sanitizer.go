package service

import (
	"slices"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

// DefaultCommentTags 是未配置白名单时评论正文允许保留的标签。
var DefaultCommentTags = []string{
	"a", "abbr", "acronym", "b", "blockquote", "code",
	"em", "i", "li", "ol", "strong", "ul",
}

// CommentSanitizer 按白名单清洗评论 HTML：白名单外的标签被剥离但保留文本，
// 只保留 a 的 href/title 与 abbr、acronym 的 title 属性。
// 例外：bluemonday 总是连同内容一起丢弃 script 与 style，其中的文本不会保留。
// 策略按白名单缓存，bluemonday.Policy 构建完成后可并发使用。
type CommentSanitizer struct {
	policies sync.Map
}

// NewCommentSanitizer 构造 CommentSanitizer。
func NewCommentSanitizer() *CommentSanitizer {
	return &CommentSanitizer{}
}

// Clean 返回清洗后的正文，allowed 为空时使用 DefaultCommentTags。
func (s *CommentSanitizer) Clean(body string, allowed []string) string {
	return s.policy(allowed).Sanitize(body)
}

func (s *CommentSanitizer) policy(allowed []string) *bluemonday.Policy {
	tags := normalizeTags(allowed)
	key := strings.Join(tags, ",")
	if cached, ok := s.policies.Load(key); ok {
		return cached.(*bluemonday.Policy)
	}
	policy, _ := s.policies.LoadOrStore(key, buildCommentPolicy(tags))
	return policy.(*bluemonday.Policy)
}

func buildCommentPolicy(tags []string) *bluemonday.Policy {
	policy := bluemonday.NewPolicy()
	policy.AllowStandardURLs()
	policy.AllowElements(tags...)
	// 属性规则只挂在白名单内的元素上，否则 bluemonday 会因属性放行该元素
	if slices.Contains(tags, "a") {
		policy.AllowAttrs("href", "title").OnElements("a")
	}
	for _, el := range []string{"abbr", "acronym"} {
		if slices.Contains(tags, el) {
			policy.AllowAttrs("title").OnElements(el)
		}
	}
	return policy
}

func normalizeTags(allowed []string) []string {
	if len(allowed) == 0 {
		allowed = DefaultCommentTags
	}
	tags := make([]string, 0, len(allowed))
	for _, tag := range allowed {
		if t := strings.ToLower(strings.TrimSpace(tag)); t != "" {
			tags = append(tags, t)
		}
	}
	slices.Sort(tags)
	return slices.Compact(tags)
}
