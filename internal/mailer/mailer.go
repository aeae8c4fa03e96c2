// Package mailer sends transactional email over SMTP.
package mailer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io"

	"github.com/go-gomail/gomail"
	"github.com/rs/zerolog"
)

// Attachment is a file sent along with a message.
type Attachment struct {
	Name string
	Data []byte
}

// Message is a single outgoing email.
type Message struct {
	To          string
	Subject     string
	HTML        string
	Attachments []Attachment
}

// Mailer delivers messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Config holds SMTP settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer delivers messages through an SMTP relay with gomail.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

// New returns an SMTP mailer, or a no-op mailer when no host is configured.
func New(cfg Config, log zerolog.Logger) Mailer {
	if cfg.Host == "" {
		log.Warn().Msg("SMTP_HOST not set, outgoing email is disabled")
		return Noop{log: log}
	}
	from := cfg.From
	if from == "" {
		from = cfg.Username
	}
	return &SMTPMailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   from,
	}
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	gm := gomail.NewMessage()
	gm.SetHeader("From", m.from)
	gm.SetHeader("To", msg.To)
	gm.SetHeader("Subject", msg.Subject)
	gm.SetBody("text/html", msg.HTML)

	for _, a := range msg.Attachments {
		data := a.Data
		gm.Attach(a.Name, gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(data)
			return err
		}))
	}

	if err := m.dialer.DialAndSend(gm); err != nil {
		return fmt.Errorf("error sending email: %w", err)
	}
	return nil
}

// Noop logs messages instead of sending them.
type Noop struct {
	log zerolog.Logger
}

func (n Noop) Send(_ context.Context, msg Message) error {
	n.log.Info().Str("to", msg.To).Str("subject", msg.Subject).Msg("email not sent (mailer disabled)")
	return nil
}

var templates = template.Must(template.New("mail").Parse(`
{{define "reset-password"}}<div>
<p>Dear {{.Name}},</p>
<p>We received a request to reset your password. The link below expires in {{.Expiry}}.</p>
<p><a href="{{.Link}}"><button>Reset Password</button></a></p>
<p>If you did not request this, ignore this email.</p>
</div>{{end}}
{{define "payment-receipt"}}<div>
<p>Dear {{.Name}},</p>
<p>Your payment of {{printf "%.2f" .Amount}} for the appointment with {{.DoctorName}} on {{.Slot}} was received.</p>
<p>Transaction: {{.TransactionID}}</p>
</div>{{end}}
`))

// ResetPasswordData fills the reset-password template.
type ResetPasswordData struct {
	Name   string
	Link   string
	Expiry string
}

// PaymentReceiptData fills the payment-receipt template.
type PaymentReceiptData struct {
	Name          string
	DoctorName    string
	Slot          string
	Amount        float64
	TransactionID string
}

// Render executes the named template.
func Render(name string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
