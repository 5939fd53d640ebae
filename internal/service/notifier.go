package service

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/tangerine/internal/config"
	"github.com/tangerine/internal/db"
)

var (
	// ErrMailerDisabled 表示未启用 SMTP 发送
	ErrMailerDisabled = errors.New("smtp mailer disabled")
	// ErrMailerNotConfigured 表示 SMTP 配置不完整
	ErrMailerNotConfigured = errors.New("smtp mailer not configured")
)

// Message 是一封纯文本通知邮件。
type Message struct {
	Subject string   `json:"subject"`
	Body    string   `json:"body"`
	From    string   `json:"from"`
	To      []string `json:"to"`
}

// Notifier 发送审核通知。实现可以同步发信，也可以投递到队列。
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// NopNotifier 丢弃所有通知，用于未配置邮件的部署。
type NopNotifier struct{}

func (NopNotifier) Send(context.Context, Message) error { return nil }

// ModerationMessage 根据评论的审核结果构造通知邮件。
func ModerationMessage(blog *db.Blog, post *db.Post, comment *db.Comment, permalink string) Message {
	subject := fmt.Sprintf("A new comment on %s requires moderation", blog.SiteTitle)
	if comment.Approved && !comment.Spam {
		subject = fmt.Sprintf("A new comment on %s has been automatically published", blog.SiteTitle)
	}

	var body strings.Builder
	fmt.Fprintf(&body, "Post: %s\n", post.Title)
	if permalink != "" {
		fmt.Fprintf(&body, "Link: %s\n", permalink)
	}
	fmt.Fprintf(&body, "Author: %s <%s>\n", comment.Name, comment.Email)
	if comment.Website != "" {
		fmt.Fprintf(&body, "Website: %s\n", comment.Website)
	}
	fmt.Fprintf(&body, "IP: %s\n", comment.IPAddress)
	if comment.Spam {
		body.WriteString("Flagged as spam.\n")
	}
	body.WriteString("\n")
	body.WriteString(comment.Body)
	body.WriteString("\n")
	if comment.ID != 0 {
		fmt.Fprintf(&body, "\nManage: %s/manage/comments/%d\n", blog.SiteURL, comment.ID)
	}

	return Message{
		Subject: subject,
		Body:    body.String(),
		From:    blog.FromEmail,
		To:      []string{blog.ModerationEmail},
	}
}

// MailNotifier 通过 SMTP 同步发送通知。
type MailNotifier struct {
	cfg config.SMTPConfig
}

// NewMailNotifier 构造 MailNotifier。
func NewMailNotifier(cfg config.SMTPConfig) *MailNotifier {
	return &MailNotifier{cfg: cfg}
}

// Send 发送邮件，ctx 的截止时间同时约束建连与整个会话。
func (m *MailNotifier) Send(ctx context.Context, msg Message) error {
	if !m.cfg.Enabled {
		return ErrMailerDisabled
	}
	host := strings.TrimSpace(m.cfg.Host)
	if host == "" || m.cfg.Port == 0 || strings.TrimSpace(msg.From) == "" || len(msg.To) == 0 {
		return ErrMailerNotConfigured
	}

	addr := net.JoinHostPort(host, strconv.Itoa(m.cfg.Port))
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial smtp: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if m.cfg.UseTLS {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: host}); err != nil {
				return fmt.Errorf("smtp starttls: %w", err)
			}
		}
	}
	if m.cfg.Username != "" || m.cfg.Password != "" {
		if err := client.Auth(smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, host)); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := client.Mail(msg.From); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	for _, rcpt := range msg.To {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("smtp rcpt %s: %w", rcpt, err)
		}
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(encodeMessage(msg)); err != nil {
		_ = w.Close()
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp data close: %w", err)
	}
	return client.Quit()
}

func encodeMessage(msg Message) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", msg.From)
	fmt.Fprintf(&buf, "To: %s\r\n", strings.Join(msg.To, ", "))
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	fmt.Fprintf(&buf, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	return buf.Bytes()
}
