package whitelist

import (
	"net/mail"
	"strings"

	"go.uber.org/zap"
)

// Checker reports whether a sender belongs to a trusted domain
type Checker struct {
	domains map[string]struct{}
	logger  *zap.Logger
}

// NewChecker creates a new whitelist checker
func NewChecker(domains []string, logger *zap.Logger) *Checker {
	set := make(map[string]struct{}, len(domains))
	normalized := make([]string, 0, len(domains))
	for _, domain := range domains {
		d := strings.ToLower(strings.TrimSpace(domain))
		if d == "" {
			continue
		}
		set[d] = struct{}{}
		normalized = append(normalized, d)
	}

	if len(normalized) > 0 && logger != nil {
		logger.Info("Initialized whitelist checker", zap.Strings("domains", normalized))
	}

	return &Checker{
		domains: set,
		logger:  logger,
	}
}

// IsWhitelisted checks if the sender's domain is in the whitelist.
// from may be a bare address or a display-name form like "Bob <bob@example.com>".
func (c *Checker) IsWhitelisted(from string) bool {
	if len(c.domains) == 0 {
		return false
	}

	domain := senderDomain(from)
	if domain == "" {
		return false
	}

	if _, ok := c.domains[domain]; !ok {
		return false
	}
	if c.logger != nil {
		c.logger.Debug("Domain is whitelisted",
			zap.String("domain", domain),
			zap.String("email", from))
	}
	return true
}

func senderDomain(from string) string {
	address := strings.TrimSpace(from)
	if parsed, err := mail.ParseAddress(address); err == nil {
		address = parsed.Address
	}

	at := strings.LastIndex(address, "@")
	if at < 0 || at == len(address)-1 {
		return ""
	}
	return strings.ToLower(address[at+1:])
}
