// Package mailer sends account emails over SMTP.
package mailer

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/mail"
	"net/url"
	"strconv"
	"strings"
	"text/template"

	"github.com/dajohi/goemail"
	"github.com/dmitrijs2005/contactbook/internal/logging"
)

const verificationSubject = "Verify your email"

// maxInFlight caps concurrent SMTP sends. goemail dials without a timeout,
// so a send abandoned on ctx expiry keeps its slot until the server answers
// or drops the connection.
const maxInFlight = 8

var verificationTmpl = template.Must(template.New("verification").Parse(
	`Hello,

Thanks for signing up. Please confirm your email address by opening the link below:

{{.Link}}

If you did not create an account you can ignore this message.
`))

type verificationData struct {
	Link string
}

// SMTPMailer delivers messages through an SMTPS server. It is disabled when
// host, user or password is empty; a disabled mailer only logs.
type SMTPMailer struct {
	send        func(*goemail.Message) error
	slots       chan struct{}
	mailName    string
	mailAddress string
	frontendURL string
	disabled    bool
	logger      logging.Logger
}

// Options holds SMTP settings and the frontend base URL for links.
type Options struct {
	Host        string
	Port        int
	User        string
	Password    string
	From        string
	FrontendURL string
}

// New returns a mailer. Missing host, user or password yields a disabled one.
func New(opts Options, logger logging.Logger) (*SMTPMailer, error) {
	m := &SMTPMailer{
		frontendURL: strings.TrimRight(opts.FrontendURL, "/"),
		logger:      logger,
	}

	if opts.Host == "" || opts.User == "" || opts.Password == "" {
		m.disabled = true
		return m, nil
	}

	a, err := mail.ParseAddress(opts.From)
	if err != nil {
		return nil, fmt.Errorf("invalid from address: %w", err)
	}

	host := opts.Host
	if opts.Port != 0 {
		host = net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port))
	}
	u := &url.URL{
		Scheme: "smtps",
		User:   url.UserPassword(opts.User, opts.Password),
		Host:   host,
	}

	client, err := goemail.NewSMTP(u.String(), &tls.Config{ServerName: opts.Host})
	if err != nil {
		return nil, err
	}

	m.send = client.Send
	m.slots = make(chan struct{}, maxInFlight)
	m.mailName = a.Name
	m.mailAddress = a.Address
	return m, nil
}

// IsEnabled reports whether messages are actually sent.
func (m *SMTPMailer) IsEnabled() bool {
	return !m.disabled
}

// VerificationLink is the frontend URL a user opens to verify their email.
func (m *SMTPMailer) VerificationLink(token string) string {
	return m.frontendURL + "/verify/" + url.PathEscape(token)
}

func (m *SMTPMailer) renderVerification(token string) (string, error) {
	var buf bytes.Buffer
	if err := verificationTmpl.Execute(&buf, verificationData{Link: m.VerificationLink(token)}); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// SendVerification emails the verification link for token to the given
// address. It returns when the message is handed to the server or ctx is done;
// in the latter case the send itself cannot be interrupted and finishes in
// the background, holding one of maxInFlight slots.
func (m *SMTPMailer) SendVerification(ctx context.Context, to, token string) error {
	body, err := m.renderVerification(token)
	if err != nil {
		return err
	}

	if m.disabled {
		m.logger.Info(ctx, "email disabled, verification link not sent", "to", to)
		return nil
	}

	msg := goemail.NewMessage(m.mailAddress, verificationSubject, body)
	msg.AddTo(to)
	msg.SetName(m.mailName)

	select {
	case m.slots <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("smtp busy: %w", ctx.Err())
	}

	done := make(chan error, 1)
	go func() {
		defer func() { <-m.slots }()
		done <- m.send(msg)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
