package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/m3rciful/bakerybot/internal/orders"
)

// EmailConfig describes the SMTP relay used for order emails.
type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
	Timeout  time.Duration
}

// SendMailFunc matches smtp.SendMail.
type SendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Email sends order summaries through SMTP.
type Email struct {
	cfg  EmailConfig
	send SendMailFunc
	now  func() time.Time
}

// NewEmail returns an email notifier or nil when no SMTP host is configured.
func NewEmail(cfg EmailConfig) *Email {
	if strings.TrimSpace(cfg.Host) == "" || len(cfg.To) == 0 {
		return nil
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	return &Email{cfg: cfg, send: smtp.SendMail, now: time.Now}
}

// Notify sends the message; it gives up waiting when ctx ends or the timeout
// elapses. net/smtp has no context support, so an abandoned send finishes in
// the background.
func (e *Email) Notify(ctx context.Context, o orders.PendingOrder) error {
	msg := e.buildMessage(o)
	addr := net.JoinHostPort(e.cfg.Host, strconv.Itoa(e.cfg.Port))
	var auth smtp.Auth
	if e.cfg.Username != "" {
		auth = smtp.PlainAuth("", e.cfg.Username, e.cfg.Password, e.cfg.Host)
	}

	done := make(chan error, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- fmt.Errorf("smtp panic: %v", rec)
			}
		}()
		done <- e.send(addr, auth, e.cfg.From, e.cfg.To, msg)
	}()

	timer := time.NewTimer(e.cfg.Timeout)
	defer timer.Stop()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send: %w", err)
		}
		return nil
	case <-timer.C:
		return errors.New("smtp send: timed out")
	case <-ctx.Done():
		return fmt.Errorf("smtp send: %w", ctx.Err())
	}
}

func (e *Email) buildMessage(o orders.PendingOrder) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", e.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(e.cfg.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", Subject(o)))
	fmt.Fprintf(&b, "Date: %s\r\n", e.now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("Content-Transfer-Encoding: 8bit\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(PlainText(o), "\n", "\r\n"))
	return b.Bytes()
}
