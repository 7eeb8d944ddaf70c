package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"time"
)

// SMTPConfig configures the SMTP code gateway.
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	Subject  string
	Timeout  time.Duration // per-send bound; applied on top of ctx
}

// SMTPGateway sends one-time codes as plain-text email over authenticated
// SMTP. The whole exchange runs under a connection deadline so a stalled
// server can never hold up a request.
type SMTPGateway struct {
	config SMTPConfig
}

func NewSMTPGateway(cfg SMTPConfig) *SMTPGateway {
	if cfg.Subject == "" {
		cfg.Subject = "Your verification code"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &SMTPGateway{config: cfg}
}

func (g *SMTPGateway) Send(ctx context.Context, destination, code string) error {
	ctx, cancel := context.WithTimeout(ctx, g.config.Timeout)
	defer cancel()

	addr := net.JoinHostPort(g.config.Host, g.config.Port)

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("smtp dial %s: %w", addr, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, g.config.Host)
	if err != nil {
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: g.config.Host}); err != nil {
			return fmt.Errorf("smtp starttls: %w", err)
		}
	}

	if g.config.Username != "" {
		auth := smtp.PlainAuth("", g.config.Username, g.config.Password, g.config.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := client.Mail(g.config.From); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := client.Rcpt(destination); err != nil {
		return fmt.Errorf("smtp rcpt: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}

	msg := "To: " + destination + "\r\n" +
		"From: " + g.config.From + "\r\n" +
		"Subject: " + g.config.Subject + "\r\n\r\n" +
		"Your verification code is: " + code + "\r\n" +
		"It expires in 10 minutes.\r\n"
	if _, err := w.Write([]byte(msg)); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp close data: %w", err)
	}

	return client.Quit()
}
