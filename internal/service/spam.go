package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tangerine/internal/db"
)

const defaultAkismetBaseURL = "https://rest.akismet.com"

// ErrSpamServiceRejected 表示 Akismet 返回了无法识别的结果（例如 key 无效）。
var ErrSpamServiceRejected = errors.New("spam service rejected request")

// SpamSignal 是提交给反垃圾服务的评论信息。
type SpamSignal struct {
	IP          string
	UserAgent   string
	Author      string
	AuthorEmail string
	AuthorURL   string
	Content     string
}

// SpamChecker 判断评论是否为垃圾，并向服务反馈人工分类结果。
// 站点未配置 API key 时两个方法都不发起请求，Check 返回 false，Submit 返回 submitted=false。
type SpamChecker interface {
	Check(ctx context.Context, blog *db.Blog, signal SpamSignal) (bool, error)
	Submit(ctx context.Context, blog *db.Blog, signal SpamSignal, spam bool) (submitted bool, err error)
}

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// AkismetClient 通过 Akismet REST API 实现 SpamChecker，API key 取自各租户配置。
type AkismetClient struct {
	http    httpDoer
	baseURL string
}

// NewAkismetClient 构造 AkismetClient，baseURL 为空时使用官方地址。
func NewAkismetClient(baseURL string) *AkismetClient {
	c := &AkismetClient{http: &http.Client{Timeout: 10 * time.Second}}
	c.SetBaseURL(baseURL)
	return c
}

func (c *AkismetClient) SetHTTPClient(client httpDoer) {
	if client == nil {
		c.http = &http.Client{Timeout: 10 * time.Second}
		return
	}
	c.http = client
}

func (c *AkismetClient) SetBaseURL(base string) {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		base = defaultAkismetBaseURL
	}
	c.baseURL = base
}

// Check 调用 comment-check，返回 true 表示被判定为垃圾。
func (c *AkismetClient) Check(ctx context.Context, blog *db.Blog, signal SpamSignal) (bool, error) {
	key := strings.TrimSpace(blog.AkismetKey)
	if key == "" {
		return false, nil
	}
	body, err := c.post(ctx, "comment-check", key, blog, signal)
	if err != nil {
		return false, err
	}
	switch body {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, fmt.Errorf("%w: comment-check answered %q", ErrSpamServiceRejected, body)
	}
}

// Submit 把人工确认的分类反馈给 Akismet：spam 为 true 调用 submit-spam，否则 submit-ham。
func (c *AkismetClient) Submit(ctx context.Context, blog *db.Blog, signal SpamSignal, spam bool) (bool, error) {
	key := strings.TrimSpace(blog.AkismetKey)
	if key == "" {
		return false, nil
	}
	method := "submit-ham"
	if spam {
		method = "submit-spam"
	}
	if _, err := c.post(ctx, method, key, blog, signal); err != nil {
		return false, err
	}
	return true, nil
}

func (c *AkismetClient) post(ctx context.Context, method, key string, blog *db.Blog, signal SpamSignal) (string, error) {
	form := url.Values{}
	form.Set("api_key", key)
	form.Set("blog", blog.SiteURL)
	form.Set("comment_type", "comment")
	form.Set("user_ip", signal.IP)
	form.Set("user_agent", signal.UserAgent)
	form.Set("comment_author", signal.Author)
	form.Set("comment_author_email", signal.AuthorEmail)
	form.Set("comment_author_url", signal.AuthorURL)
	form.Set("comment_content", signal.Content)

	client := c.http
	if client == nil {
		client = http.DefaultClient
	}

	endpoint := c.baseURL + "/1.1/" + method
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build akismet %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", "tangerine/1.0")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("akismet %s: %w", method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", fmt.Errorf("read akismet %s response: %w", method, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: akismet %s status %d", ErrSpamServiceRejected, method, resp.StatusCode)
	}
	return strings.TrimSpace(string(raw)), nil
}
