package smtp

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	mail "github.com/wneessen/go-mail"

	"github.com/feedsift/feedsift/internal/config"
	"github.com/feedsift/feedsift/internal/outputs/email"
)

// TLSMode determines how the SMTP client negotiates TLS.
type TLSMode string

const (
	// TLSModeAuto uses port-based defaults (implicit TLS on 465, STARTTLS otherwise).
	TLSModeAuto TLSMode = "auto"
	// TLSModeDisabled forces cleartext SMTP.
	TLSModeDisabled TLSMode = "disabled"
	// TLSModeStartTLS requires STARTTLS on the SMTP connection.
	TLSModeStartTLS TLSMode = "starttls"
	// TLSModeImplicit uses implicit TLS (SMTPS), typically on port 465.
	TLSModeImplicit TLSMode = "implicit"
)

type Sender struct {
	cfg config.SMTPEnvConfig
}

func NewSender(cfg config.SMTPEnvConfig) (*Sender, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if cfg.Port <= 0 {
		return nil, fmt.Errorf("smtp port must be positive")
	}
	if _, err := parseTLSMode(cfg.TLSMode); err != nil {
		return nil, err
	}
	return &Sender{cfg: cfg}, nil
}

func (s *Sender) Send(ctx context.Context, message email.Message) error {
	if message.From == "" {
		message.From = s.cfg.User
	}

	m := mail.NewMsg()
	if err := m.From(message.From); err != nil {
		return fmt.Errorf("invalid from address %q: %w", message.From, err)
	}
	if err := m.ToFromString(message.To); err != nil {
		return fmt.Errorf("invalid to address(es) %q: %w", message.To, err)
	}
	m.Subject(message.Subject)
	m.SetBodyString(mail.TypeTextHTML, message.Body)

	mode, err := s.resolveTLSMode()
	if err != nil {
		return err
	}

	clientOpts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithTLSConfig(&tls.Config{
			ServerName:         s.cfg.Host,
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: s.cfg.InsecureSkipVerify,
		}),
	}

	switch mode {
	case TLSModeDisabled:
		clientOpts = append(clientOpts, mail.WithTLSPortPolicy(mail.NoTLS))
	case TLSModeStartTLS:
		clientOpts = append(clientOpts, mail.WithTLSPortPolicy(mail.TLSMandatory))
	case TLSModeImplicit:
		clientOpts = append(clientOpts, mail.WithSSL())
	default:
		return fmt.Errorf("unsupported smtp tls mode %q", mode)
	}

	if s.cfg.User != "" {
		clientOpts = append(
			clientOpts,
			mail.WithUsername(s.cfg.User),
			mail.WithPassword(s.cfg.Password),
			mail.WithSMTPAuth(mail.SMTPAuthAutoDiscover),
		)
	}

	client, err := mail.NewClient(s.cfg.Host, clientOpts...)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

func (s *Sender) resolveTLSMode() (TLSMode, error) {
	mode, err := parseTLSMode(s.cfg.TLSMode)
	if err != nil {
		return "", err
	}
	if mode == TLSModeAuto {
		if s.cfg.Port == 465 {
			return TLSModeImplicit, nil
		}
		return TLSModeStartTLS, nil
	}
	return mode, nil
}

func parseTLSMode(mode string) (TLSMode, error) {
	normalized := strings.TrimSpace(strings.ToLower(mode))
	switch normalized {
	case "", string(TLSModeAuto):
		return TLSModeAuto, nil
	case "disabled", "off", "none":
		return TLSModeDisabled, nil
	case "starttls", "start_tls":
		return TLSModeStartTLS, nil
	case "implicit", "smtptls", "smtp_tls":
		return TLSModeImplicit, nil
	default:
		return "", fmt.Errorf("invalid smtp tls mode %q (expected: auto, disabled, starttls, implicit)", mode)
	}
}
