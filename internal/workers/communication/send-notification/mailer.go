package sendnotification

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"mime/multipart"
	"net"
	"net/mail"
	"net/smtp"
	"net/textproto"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/google/uuid"

	awsclient "assessment-pipeline/internal/common/aws"
	"assessment-pipeline/internal/common/config"
)

// Mailer delivers one message to one recipient.
type Mailer interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// NewMailer builds the transport named in cfg.
func NewMailer(ctx context.Context, cfg *Config) (Mailer, error) {
	switch cfg.Transport {
	case config.TransportSES:
		client, err := awsclient.NewSESClient(ctx, cfg.AWSRegion)
		if err != nil {
			return nil, fmt.Errorf("load AWS config: %w", err)
		}
		return NewSESMailer(client, cfg), nil
	case config.TransportSMTP:
		return NewSMTPMailer(cfg), nil
	default:
		return nil, fmt.Errorf("unknown mail transport %q", cfg.Transport)
	}
}

type SESMailer struct {
	client SESService
	from   string
}

func NewSESMailer(client SESService, cfg *Config) *SESMailer {
	return &SESMailer{client: client, from: fromHeader(cfg)}
}

func (m *SESMailer) Name() string { return config.TransportSES }

func (m *SESMailer) Send(ctx context.Context, msg Message) error {
	body := &types.Body{Text: &types.Content{Data: aws.String(msg.Text), Charset: aws.String("UTF-8")}}
	if msg.HTML != "" {
		body.Html = &types.Content{Data: aws.String(msg.HTML), Charset: aws.String("UTF-8")}
	}
	_, err := m.client.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{msg.To},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
			Body:    body,
		},
		Source: aws.String(m.from),
	})
	return err
}

type SMTPMailer struct {
	cfg    SMTPConfig
	from   string
	addr   string
	now    func() time.Time
	dialer *net.Dialer
}

func NewSMTPMailer(cfg *Config) *SMTPMailer {
	return &SMTPMailer{
		cfg:    cfg.SMTP,
		from:   fromHeader(cfg),
		addr:   cfg.FromEmail,
		now:    time.Now,
		dialer: &net.Dialer{Timeout: 30 * time.Second},
	}
}

func (m *SMTPMailer) Name() string { return config.TransportSMTP }

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled before sending email: %w", err)
	}

	raw, err := m.buildMessage(msg)
	if err != nil {
		return err
	}

	var auth smtp.Auth
	if m.cfg.Username != "" && m.cfg.Password != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	if err := m.deliver(ctx, auth, msg.To, raw); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("smtp send aborted: %w (%v)", ctxErr, err)
		}
		return err
	}
	return nil
}

// deliver runs one SMTP session. Every read and write on the connection is bounded by ctx.
func (m *SMTPMailer) deliver(ctx context.Context, auth smtp.Auth, to string, msg []byte) error {
	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	conn, err := m.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to read SMTP greeting: %w", err)
	}
	defer client.Close()

	if m.cfg.UseTLS {
		if err = client.StartTLS(&tls.Config{ServerName: m.cfg.Host}); err != nil {
			return fmt.Errorf("failed to start TLS: %w", err)
		}
	}
	if auth != nil {
		if err = client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}
	if err = client.Mail(m.addr); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	if err = client.Rcpt(to); err != nil {
		return fmt.Errorf("failed to set recipient %s: %w", to, err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to open data writer: %w", err)
	}
	if _, err = w.Write(msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}
	return client.Quit()
}

// buildMessage renders a multipart/alternative message with a text and, when present, an HTML part.
func (m *SMTPMailer) buildMessage(msg Message) ([]byte, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	parts := []mimePart{{"text/plain; charset=UTF-8", msg.Text}}
	if msg.HTML != "" {
		parts = append(parts, mimePart{"text/html; charset=UTF-8", msg.HTML})
	}
	for _, p := range parts {
		w, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {p.contentType},
			"Content-Transfer-Encoding": {"8bit"},
		})
		if err != nil {
			return nil, fmt.Errorf("build message: %w", err)
		}
		if _, err := w.Write([]byte(p.content)); err != nil {
			return nil, fmt.Errorf("build message: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("build message: %w", err)
	}

	var out bytes.Buffer
	fmt.Fprintf(&out, "From: %s\r\n", m.from)
	fmt.Fprintf(&out, "To: %s\r\n", msg.To)
	fmt.Fprintf(&out, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	fmt.Fprintf(&out, "Date: %s\r\n", m.now().Format(time.RFC1123Z))
	fmt.Fprintf(&out, "Message-ID: <%s@%s>\r\n", uuid.NewString(), m.cfg.Host)
	out.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&out, "Content-Type: multipart/alternative; boundary=%q\r\n", mw.Boundary())
	out.WriteString("\r\n")
	out.Write(body.Bytes())
	return out.Bytes(), nil
}

type mimePart struct {
	contentType string
	content     string
}

func fromHeader(cfg *Config) string {
	if cfg.FromName == "" {
		return cfg.FromEmail
	}
	return (&mail.Address{Name: cfg.FromName, Address: cfg.FromEmail}).String()
}
