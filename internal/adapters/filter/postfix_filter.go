package filter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/emersion/go-smtp"
	"github.com/mikey/phishguard/internal/core"
	"github.com/mikey/phishguard/internal/ports"
	"go.uber.org/zap"
)

// AnalysisErrorHeader is added when a message could not be classified
const AnalysisErrorHeader = "X-Phishing-Analysis-Error"

const analysisTimeout = 10 * time.Second

// PostfixFilterOptions configures the Postfix content filter
type PostfixFilterOptions struct {
	ListenAddress    string
	BlockPhishing    bool
	MaxMessageBytes  int64
	StatusHeader     string
	ConfidenceHeader string
	ScanIDHeader     string
	SubjectPrefix    string
	ModifySubject    bool
	RelayEnabled     bool
}

// PostfixFilter implements a Postfix after-queue content filter
type PostfixFilter struct {
	analyzer ports.EmailAnalyzer
	relay    Relay
	logger   *zap.Logger
	opts     PostfixFilterOptions

	mu       sync.Mutex
	server   *smtp.Server
	listener net.Listener
}

// NewPostfixFilter creates a new Postfix content filter
func NewPostfixFilter(analyzer ports.EmailAnalyzer, relay Relay, logger *zap.Logger, opts PostfixFilterOptions) *PostfixFilter {
	if opts.SubjectPrefix == "" && opts.ModifySubject {
		opts.SubjectPrefix = "[PHISHING] "
	}
	return &PostfixFilter{
		analyzer: analyzer,
		relay:    relay,
		logger:   logger,
		opts:     opts,
	}
}

// Name identifies the filter in logs
func (f *PostfixFilter) Name() string {
	return "smtp"
}

// Start binds the listen address and serves SMTP in the background
func (f *PostfixFilter) Start() error {
	server := smtp.NewServer(&smtpBackend{filter: f})
	server.Addr = f.opts.ListenAddress
	server.Domain = "localhost"
	server.ReadTimeout = 30 * time.Second
	server.WriteTimeout = 30 * time.Second
	server.MaxMessageBytes = f.opts.MaxMessageBytes
	server.MaxRecipients = 50

	ln, err := net.Listen("tcp", f.opts.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", f.opts.ListenAddress, err)
	}

	f.mu.Lock()
	f.server = server
	f.listener = ln
	f.mu.Unlock()

	f.logger.Info("Postfix filter starting", zap.String("address", ln.Addr().String()))

	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, smtp.ErrServerClosed) && !errors.Is(err, net.ErrClosed) {
			f.logger.Error("SMTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Addr returns the bound listen address once started
func (f *PostfixFilter) Addr() net.Addr {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listener == nil {
		return nil
	}
	return f.listener.Addr()
}

// Stop closes the SMTP server
func (f *PostfixFilter) Stop() error {
	f.mu.Lock()
	server := f.server
	f.server = nil
	f.mu.Unlock()

	if server == nil {
		return nil
	}
	return server.Close()
}

// ProcessEmail classifies a parsed email without going through SMTP
func (f *PostfixFilter) ProcessEmail(ctx context.Context, email *core.Email) (*core.PredictionResult, error) {
	return f.analyzer.AnalyzeEmail(ctx, email)
}

// handleMessage classifies one queued message and either rejects or relays it
func (f *PostfixFilter) handleMessage(ctx context.Context, sender string, recipients []string, raw []byte) error {
	logger := f.logger.With(zap.String("sender", sender))

	result, analysisErr := f.analyze(ctx, sender, recipients, raw)
	if analysisErr != nil {
		logger.Error("Failed to analyze email", zap.Error(analysisErr))
	}

	if analysisErr == nil && result.IsPhishing() && f.opts.BlockPhishing {
		logger.Info("Rejecting phishing email",
			zap.Float64("confidence", result.Confidence),
			zap.String("scan_id", result.ScanID))
		return &smtp.SMTPError{
			Code:         550,
			EnhancedCode: smtp.EnhancedCode{5, 7, 1},
			Message:      fmt.Sprintf("Rejected as phishing (confidence: %.2f)", result.Confidence),
		}
	}

	annotated := f.annotate(raw, result, analysisErr)

	if !f.opts.RelayEnabled {
		logger.Warn("Postfix forwarding disabled, this is likely a misconfiguration")
		return nil
	}
	if err := f.relay.Send(sender, recipients, annotated); err != nil {
		logger.Error("Failed to send email back to Postfix", zap.Error(err))
		return &smtp.SMTPError{
			Code:         451,
			EnhancedCode: smtp.EnhancedCode{4, 3, 0},
			Message:      "Temporary failure relaying message",
		}
	}

	if result != nil {
		logger.Info("Processed email",
			zap.String("prediction", string(result.Prediction)),
			zap.Float64("confidence", result.Confidence),
			zap.String("scan_id", result.ScanID),
			zap.String("source", result.Source))
	}
	return nil
}

func (f *PostfixFilter) analyze(ctx context.Context, sender string, recipients []string, raw []byte) (*core.PredictionResult, error) {
	email, err := ParseEmail(raw)
	if err != nil {
		return nil, err
	}
	email.From = sender
	email.To = recipients

	ctx, cancel := context.WithTimeout(ctx, analysisTimeout)
	defer cancel()
	return f.analyzer.AnalyzeEmail(ctx, email)
}

// annotate prepends the scan headers, drops any inbound copies of them and
// optionally tags the subject. The body is passed through byte for byte.
func (f *PostfixFilter) annotate(raw []byte, result *core.PredictionResult, analysisErr error) []byte {
	header, rest := splitHeader(raw)
	eol := "\n"
	if bytes.Contains(header, []byte("\r\n")) || len(header) == 0 {
		eol = "\r\n"
	}

	var out bytes.Buffer
	if analysisErr != nil {
		fmt.Fprintf(&out, "%s: %s%s", AnalysisErrorHeader, singleLine(analysisErr.Error()), eol)
	} else {
		fmt.Fprintf(&out, "%s: %s%s", f.opts.StatusHeader, result.Prediction, eol)
		fmt.Fprintf(&out, "%s: %.4f%s", f.opts.ConfidenceHeader, result.Confidence, eol)
		fmt.Fprintf(&out, "%s: %s%s", f.opts.ScanIDHeader, result.ScanID, eol)
	}

	tagSubject := analysisErr == nil && result.IsPhishing() && f.opts.ModifySubject
	for _, field := range splitFields(header) {
		name := fieldName(field)
		if f.isOwnHeader(name) {
			continue
		}
		if tagSubject && strings.EqualFold(name, "Subject") {
			out.WriteString("Subject: " + f.prefixSubject(fieldValue(field)) + eol)
			continue
		}
		out.Write(field)
	}

	out.Write(rest)
	return out.Bytes()
}

func (f *PostfixFilter) isOwnHeader(name string) bool {
	for _, own := range []string{f.opts.StatusHeader, f.opts.ConfidenceHeader, f.opts.ScanIDHeader, AnalysisErrorHeader} {
		if own != "" && strings.EqualFold(name, own) {
			return true
		}
	}
	return false
}

func (f *PostfixFilter) prefixSubject(value string) string {
	decoded, err := decodeEncodedHeader(value)
	if err != nil {
		decoded = value
	}
	if strings.HasPrefix(decoded, f.opts.SubjectPrefix) {
		return value
	}
	return mime.QEncoding.Encode("utf-8", f.opts.SubjectPrefix+decoded)
}

// splitHeader returns the header block and everything from the blank line on
func splitHeader(raw []byte) ([]byte, []byte) {
	if bytes.HasPrefix(raw, []byte("\r\n")) || bytes.HasPrefix(raw, []byte("\n")) {
		return nil, raw
	}
	crlf := bytes.Index(raw, []byte("\r\n\r\n"))
	lf := bytes.Index(raw, []byte("\n\n"))
	switch {
	case crlf >= 0 && (lf < 0 || crlf < lf):
		return raw[:crlf+2], raw[crlf+2:]
	case lf >= 0:
		return raw[:lf+1], raw[lf+1:]
	default:
		return raw, nil
	}
}

// splitFields groups header lines with their folded continuations
func splitFields(header []byte) [][]byte {
	var fields [][]byte
	for len(header) > 0 {
		end := bytes.IndexByte(header, '\n')
		if end < 0 {
			end = len(header) - 1
		}
		line := header[:end+1]
		header = header[end+1:]
		if len(fields) > 0 && (line[0] == ' ' || line[0] == '\t') {
			last := len(fields) - 1
			fields[last] = append(fields[last][:len(fields[last]):len(fields[last])], line...)
			continue
		}
		fields = append(fields, line)
	}
	return fields
}

func fieldName(field []byte) string {
	colon := bytes.IndexByte(field, ':')
	if colon < 0 {
		return ""
	}
	return strings.TrimSpace(string(field[:colon]))
}

func fieldValue(field []byte) string {
	colon := bytes.IndexByte(field, ':')
	if colon < 0 {
		return ""
	}
	value := string(field[colon+1:])
	value = strings.NewReplacer("\r\n", "", "\n", "").Replace(value)
	return strings.TrimSpace(value)
}

func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// smtpBackend implements the go-smtp Backend interface
type smtpBackend struct {
	filter *PostfixFilter
}

// NewSession creates a new SMTP session
func (b *smtpBackend) NewSession(_ *smtp.Conn) (smtp.Session, error) {
	return &smtpSession{filter: b.filter}, nil
}

// smtpSession implements the go-smtp Session interface
type smtpSession struct {
	filter     *PostfixFilter
	sender     string
	recipients []string
}

// Reset resets the session state
func (s *smtpSession) Reset() {
	s.sender = ""
	s.recipients = nil
}

// Mail sets the sender address
func (s *smtpSession) Mail(from string, _ *smtp.MailOptions) error {
	s.sender = from
	return nil
}

// Rcpt adds a recipient
func (s *smtpSession) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.recipients = append(s.recipients, to)
	return nil
}

// Data classifies and forwards the message
func (s *smtpSession) Data(r io.Reader) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		s.filter.logger.Error("Failed to read message data", zap.Error(err))
		return err
	}
	return s.filter.handleMessage(context.Background(), s.sender, s.recipients, raw)
}

// Logout handles SMTP logout
func (s *smtpSession) Logout() error {
	return nil
}
