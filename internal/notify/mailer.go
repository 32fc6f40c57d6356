package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"embed"
	"fmt"
	"html/template"
	"mime"
	"net"
	"net/smtp"
	"strings"
	"time"

	"careshare-service/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

// SendFunc is smtp.SendMail bounded by a context
type SendFunc func(ctx context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error

var headerBreaks = strings.NewReplacer("\r", "", "\n", "")

// Mailer renders notifications as HTML email and sends them over SMTP
type Mailer struct {
	host      string
	port      string
	username  string
	password  string
	from      string
	templates *template.Template
	send      SendFunc
}

// NewMailer parses the embedded templates. An empty username disables SMTP auth.
func NewMailer(host, port, username, password, from string) (*Mailer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse mail templates: %w", err)
	}
	return &Mailer{
		host:      host,
		port:      port,
		username:  username,
		password:  password,
		from:      from,
		templates: tmpl,
		send:      sendMail,
	}, nil
}

// WithSendFunc replaces the SMTP transport
func (m *Mailer) WithSendFunc(fn SendFunc) *Mailer {
	m.send = fn
	return m
}

// Compose returns the subject and HTML body for a notification
func (m *Mailer) Compose(n *models.Notification) (string, string, error) {
	subject, tmpl, err := subjectAndTemplate(n)
	if err != nil {
		return "", "", err
	}

	var buf bytes.Buffer
	if err := m.templates.ExecuteTemplate(&buf, tmpl, n); err != nil {
		return "", "", fmt.Errorf("failed to render %s: %w", tmpl, err)
	}
	return subject, buf.String(), nil
}

// Send delivers a notification to its recipient
func (m *Mailer) Send(ctx context.Context, n *models.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if n.ToEmail == "" {
		return fmt.Errorf("notification %s has no recipient", n.EventID)
	}

	subject, body, err := m.Compose(n)
	if err != nil {
		return err
	}

	to := headerBreaks.Replace(n.ToEmail)
	msg := strings.Join([]string{
		fmt.Sprintf("From: Care & Share <%s>", headerBreaks.Replace(m.from)),
		fmt.Sprintf("To: %s", to),
		fmt.Sprintf("Subject: %s", mime.QEncoding.Encode("utf-8", headerBreaks.Replace(subject))),
		fmt.Sprintf("Date: %s", time.Now().Format(time.RFC1123Z)),
		"MIME-Version: 1.0",
		`Content-Type: text/html; charset="UTF-8"`,
		"",
		body,
	}, "\r\n")

	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	addr := m.host + ":" + m.port
	if err := m.send(ctx, addr, auth, m.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", n.ToEmail, err)
	}
	return nil
}

// sendMail is smtp.SendMail on a connection whose deadline follows ctx, so a
// stalled server cannot hold the caller past the delivery timeout.
func sendMail(ctx context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return err
		}
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	c, err := smtp.NewClient(conn, host)
	if err != nil {
		return err
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: host}); err != nil {
			return err
		}
	}
	if a != nil {
		if ok, _ := c.Extension("AUTH"); ok {
			if err := c.Auth(a); err != nil {
				return err
			}
		}
	}
	if err := c.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return err
		}
	}

	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}

func subjectAndTemplate(n *models.Notification) (string, string, error) {
	switch n.EventType {
	case models.EventTypePasswordReset:
		return "Care & Share - Password Reset Request", "password_reset", nil
	case models.EventTypePurchaseCreated:
		if n.Audience == models.AudienceSeller {
			return "Congratulations! Your Item Sold - " + n.ProductName, "purchase_seller", nil
		}
		return fmt.Sprintf("Purchase Confirmation - Order #%d", n.ReferenceID), "purchase_buyer", nil
	case models.EventTypePurchaseStatusUpdated:
		return "Order Status Update - " + n.ProductName, "purchase_status", nil
	case models.EventTypeExchangeSubmitted:
		if n.Audience == models.AudienceOwner {
			return "New Exchange Request for Your Item - " + n.ProductName, "exchange_owner", nil
		}
		return "Exchange Request Submitted - " + n.ProductName, "exchange_requester", nil
	case models.EventTypeExchangeStatusUpdated:
		return "Exchange Request Update - " + n.ProductName, "exchange_status", nil
	}
	return "", "", fmt.Errorf("unknown notification type %q", n.EventType)
}
