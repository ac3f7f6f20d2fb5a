package filter

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/emersion/go-smtp"
	"go.uber.org/zap"
)

// Relay delivers an annotated message back to the MTA
type Relay interface {
	Send(sender string, recipients []string, data []byte) error
}

// SMTPRelay re-injects messages into Postfix over SMTP
type SMTPRelay struct {
	address string
	timeout time.Duration
	logger  *zap.Logger
}

// NewSMTPRelay creates a relay to host:port
func NewSMTPRelay(host string, port int, logger *zap.Logger) *SMTPRelay {
	return &SMTPRelay{
		address: net.JoinHostPort(host, fmt.Sprint(port)),
		timeout: 30 * time.Second,
		logger:  logger,
	}
}

// Send delivers data to every recipient Postfix accepts
func (r *SMTPRelay) Send(sender string, recipients []string, data []byte) error {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}

	conn, err := net.DialTimeout("tcp", r.address, 10*time.Second)
	if err != nil {
		return fmt.Errorf("failed to connect to Postfix: %w", err)
	}
	if err := conn.SetDeadline(time.Now().Add(r.timeout)); err != nil {
		conn.Close()
		return fmt.Errorf("failed to set connection deadline: %w", err)
	}

	c := smtp.NewClient(conn)
	defer c.Close()

	if err := c.Hello(hostname); err != nil {
		return fmt.Errorf("EHLO failed: %w", err)
	}
	if err := c.Mail(sender, nil); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}

	accepted := 0
	for _, recipient := range recipients {
		if err := c.Rcpt(recipient, nil); err != nil {
			r.logger.Warn("RCPT TO failed for recipient",
				zap.String("recipient", recipient),
				zap.Error(err))
			continue
		}
		accepted++
	}
	if accepted == 0 {
		return fmt.Errorf("all recipients were rejected")
	}

	wc, err := c.Data()
	if err != nil {
		return fmt.Errorf("DATA command failed: %w", err)
	}
	if _, err := wc.Write(data); err != nil {
		wc.Close()
		return fmt.Errorf("failed to send email data: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	if err := c.Quit(); err != nil {
		// Already delivered
		r.logger.Warn("QUIT command failed", zap.Error(err))
	}
	return nil
}
