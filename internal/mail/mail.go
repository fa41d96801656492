// Package mail submits summary emails over SMTP with implicit TLS, the way
// the Zoho-style submission endpoint expects (port 465).
package mail

import (
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Sender struct {
	Host     string
	Port     int
	User     string
	Password string
	FromName string
}

// Configured reports whether credentials are present. The send-summary
// handler turns a false into a 500 "temporarily unavailable".
func (s *Sender) Configured() bool {
	return s.User != "" && s.Password != ""
}

// Send delivers one message and returns its Message-ID.
func (s *Sender) Send(to, subject, content string) (string, error) {
	messageID := fmt.Sprintf("<%s@%s>", uuid.NewString(), domainOf(s.User))
	msg := s.buildMessage(to, subject, content, messageID)

	addr := fmt.Sprintf("%s:%d", s.Host, s.Port)
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: s.Host})
	if err != nil {
		return "", fmt.Errorf("smtp connect: %w", err)
	}
	client, err := smtp.NewClient(conn, s.Host)
	if err != nil {
		conn.Close()
		return "", fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if err := client.Auth(smtp.PlainAuth("", s.User, s.Password, s.Host)); err != nil {
		return "", fmt.Errorf("smtp auth: %w", err)
	}
	if err := client.Mail(s.User); err != nil {
		return "", fmt.Errorf("smtp mail from: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return "", fmt.Errorf("smtp rcpt to: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return "", fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		w.Close()
		return "", fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("smtp close: %w", err)
	}
	_ = client.Quit()
	return messageID, nil
}

// buildMessage renders a multipart/alternative message: the plain content as
// fallback, the HTML rendering as the preferred part.
func (s *Sender) buildMessage(to, subject, content, messageID string) []byte {
	boundary := "part-" + uuid.NewString()
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s <%s>\r\n", sanitizeHeader(s.FromName), s.User)
	fmt.Fprintf(&b, "To: %s\r\n", sanitizeHeader(to))
	fmt.Fprintf(&b, "Subject: %s\r\n", sanitizeHeader(subject))
	fmt.Fprintf(&b, "Message-ID: %s\r\n", messageID)
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%q\r\n", boundary)
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s\r\n", boundary)
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(strings.ReplaceAll(content, "\n", "\r\n"))
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s\r\n", boundary)
	b.WriteString("Content-Type: text/html; charset=utf-8\r\n\r\n")
	b.WriteString(HTMLBody(subject, content))
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s--\r\n", boundary)
	return []byte(b.String())
}

// sanitizeHeader folds CR and LF out of a header value so request-supplied
// fields cannot smuggle extra headers into the message.
func sanitizeHeader(v string) string {
	v = strings.ReplaceAll(v, "\r", " ")
	v = strings.ReplaceAll(v, "\n", " ")
	return strings.TrimSpace(v)
}

// TextToHTML escapes the plain content and preserves its line structure.
func TextToHTML(text string) string {
	replacer := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		"\n", "<br>",
		"•", "&bull;",
	)
	return replacer.Replace(text)
}

// HTMLBody wraps the content in the branded summary template.
func HTMLBody(title, content string) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&b, "<title>%s</title>\n", TextToHTML(title))
	b.WriteString("<style>body{font-family:Arial,sans-serif;line-height:1.6;color:#333;max-width:800px;margin:0 auto;padding:20px}" +
		".header{color:#1e40af;border-bottom:2px solid #1e40af;padding-bottom:15px;margin-bottom:25px}" +
		".content{font-size:14px}.footer{margin-top:30px;padding-top:20px;border-top:1px solid #e5e7eb;font-size:12px;color:#6b7280}</style>\n")
	b.WriteString("</head>\n<body>\n")
	b.WriteString("<div class=\"header\"><h1>VetDesk - VA Benefits Summary</h1></div>\n")
	fmt.Fprintf(&b, "<div class=\"content\">%s</div>\n", TextToHTML(content))
	b.WriteString("<div class=\"footer\"><p>This email was generated by VetDesk - VA Benefits, Simplified.</p>" +
		"<p>For support or questions, visit <a href=\"https://va.gov\">VA.gov</a> or call 1-800-827-1000.</p></div>\n")
	b.WriteString("</body>\n</html>\n")
	return b.String()
}

func domainOf(address string) string {
	if i := strings.LastIndex(address, "@"); i >= 0 && i < len(address)-1 {
		return address[i+1:]
	}
	return "vetdesk.local"
}
