package filter

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"

	"github.com/mikey/phishguard/internal/core"
	"golang.org/x/text/encoding/htmlindex"
)

const maxMIMEDepth = 8

var headerDecoder = &mime.WordDecoder{CharsetReader: charsetReader}

type headerGetter interface {
	Get(key string) string
}

// charsetReader wraps input so it yields UTF-8 for any WHATWG-known charset
func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	charset = strings.ToLower(strings.TrimSpace(charset))
	switch charset {
	case "", "utf-8", "utf8", "us-ascii", "ascii":
		return input, nil
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q: %w", charset, err)
	}
	return enc.NewDecoder().Reader(input), nil
}

// decodeEncodedHeader decodes RFC 2047 encoded words in a header value
func decodeEncodedHeader(value string) (string, error) {
	return headerDecoder.DecodeHeader(value)
}

// ParseEmail builds an Email from a raw RFC 5322 message. From and To come
// from the headers; SMTP callers replace them with the envelope.
func ParseEmail(raw []byte) (*core.Email, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse email message: %w", err)
	}

	text, err := extractTextFromMessage(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to extract text content: %w", err)
	}

	subject, err := decodeEncodedHeader(msg.Header.Get("Subject"))
	if err != nil {
		subject = msg.Header.Get("Subject")
	}

	from := msg.Header.Get("From")
	if addr, err := mail.ParseAddress(from); err == nil {
		from = addr.Address
	}

	var to []string
	if addrs, err := msg.Header.AddressList("To"); err == nil {
		for _, addr := range addrs {
			to = append(to, addr.Address)
		}
	}

	return &core.Email{
		From:    from,
		To:      to,
		Subject: subject,
		Body:    text,
		Headers: map[string][]string(msg.Header),
	}, nil
}

// extractTextFromMessage returns the readable text of a message. Plain text
// parts win; HTML parts are used when no plain part exists, since the
// normalizer strips tags anyway.
func extractTextFromMessage(msg *mail.Message) (string, error) {
	plain, html, err := extractParts(msg.Header, msg.Body, 0)
	if err != nil {
		return "", err
	}
	if plain != "" {
		return plain, nil
	}
	return html, nil
}

func extractParts(header headerGetter, body io.Reader, depth int) (string, string, error) {
	mediaType, params, err := mime.ParseMediaType(header.Get("Content-Type"))
	if err != nil {
		// Missing or broken Content-Type is treated as text/plain
		mediaType, params = "text/plain", map[string]string{}
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		boundary := params["boundary"]
		if boundary == "" || depth >= maxMIMEDepth {
			text, err := readBody(header, body, params["charset"])
			return text, "", err
		}
		return extractMultipart(multipart.NewReader(body, boundary), depth)
	}

	if !strings.HasPrefix(mediaType, "text/") {
		return "", "", nil
	}

	text, err := readBody(header, body, params["charset"])
	if err != nil {
		return "", "", err
	}
	if mediaType == "text/html" {
		return "", text, nil
	}
	return text, "", nil
}

func extractMultipart(mr *multipart.Reader, depth int) (string, string, error) {
	var plain, html strings.Builder
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Keep whatever was readable before the broken part
			if plain.Len() > 0 || html.Len() > 0 {
				break
			}
			return "", "", fmt.Errorf("failed to read multipart body: %w", err)
		}

		if isAttachment(part.Header.Get("Content-Disposition")) {
			continue
		}

		p, h, err := extractParts(part.Header, part, depth+1)
		if err != nil {
			continue
		}
		appendText(&plain, p)
		appendText(&html, h)
	}
	return plain.String(), html.String(), nil
}

func appendText(b *strings.Builder, text string) {
	if text == "" {
		return
	}
	b.WriteString(text)
	if !strings.HasSuffix(text, "\n") {
		b.WriteString("\n")
	}
}

func isAttachment(disposition string) bool {
	d, _, err := mime.ParseMediaType(disposition)
	return err == nil && d == "attachment"
}

// readBody undoes the transfer encoding and converts the charset to UTF-8.
// multipart.Reader already strips quoted-printable from parts, in which case
// the header no longer carries Content-Transfer-Encoding.
func readBody(header headerGetter, body io.Reader, charset string) (string, error) {
	var r io.Reader = body
	switch strings.ToLower(strings.TrimSpace(header.Get("Content-Transfer-Encoding"))) {
	case "base64":
		r = base64.NewDecoder(base64.StdEncoding, r)
	case "quoted-printable":
		r = quotedprintable.NewReader(r)
	}

	raw, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read message body: %w", err)
	}

	decoded, err := charsetReader(charset, bytes.NewReader(raw))
	if err != nil {
		// Unknown charset: hand the bytes through and let sanitizing deal with them
		return string(raw), nil
	}
	text, err := io.ReadAll(decoded)
	if err != nil {
		return string(raw), nil
	}
	return string(text), nil
}
