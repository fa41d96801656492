package mail

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigured(t *testing.T) {
	s := &Sender{Host: "smtp.example.com", Port: 465}
	assert.False(t, s.Configured())

	s.User = "bot@example.com"
	assert.False(t, s.Configured())

	s.Password = "hunter2"
	assert.True(t, s.Configured())
}

func TestTextToHTML(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"a < b & c > d", "a &lt; b &amp; c &gt; d"},
		{"line one\nline two", "line one<br>line two"},
		{"• 70% rate\n• 80% rate", "&bull; 70% rate<br>&bull; 80% rate"},
		{"plain", "plain"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, TextToHTML(tc.in))
	}
}

func TestHTMLBodyEscapesContent(t *testing.T) {
	body := HTMLBody("Your <Summary>", "rates & <script>amounts</script>")
	assert.Contains(t, body, "<title>Your &lt;Summary&gt;</title>")
	assert.Contains(t, body, "rates &amp; &lt;script&gt;amounts&lt;/script&gt;")
	assert.NotContains(t, body, "<script>")
	assert.Contains(t, body, "VetDesk - VA Benefits Summary")
}

func TestBuildMessage(t *testing.T) {
	s := &Sender{User: "bot@example.com", FromName: "VetDesk"}
	msg := string(s.buildMessage("vet@example.com", "Your VetDesk Summary", "SUMMARY\n\nhello", "<id-1@example.com>"))

	assert.Contains(t, msg, "From: VetDesk <bot@example.com>\r\n")
	assert.Contains(t, msg, "To: vet@example.com\r\n")
	assert.Contains(t, msg, "Subject: Your VetDesk Summary\r\n")
	assert.Contains(t, msg, "Message-ID: <id-1@example.com>\r\n")
	assert.Contains(t, msg, "Content-Type: multipart/alternative; boundary=")
	assert.Contains(t, msg, "Content-Type: text/plain; charset=utf-8")
	assert.Contains(t, msg, "Content-Type: text/html; charset=utf-8")
	// Plain part keeps the content with CRLF line endings.
	assert.Contains(t, msg, "SUMMARY\r\n\r\nhello")
	// Both parts share the declared boundary, and the message is terminated.
	boundary := msg[strings.Index(msg, "boundary=")+len(`boundary="`):]
	boundary = boundary[:strings.Index(boundary, `"`)]
	assert.Equal(t, 2, strings.Count(msg, "--"+boundary+"\r\n"))
	assert.Contains(t, msg, "--"+boundary+"--\r\n")
}

func TestBuildMessageNeutralizesHeaderNewlines(t *testing.T) {
	s := &Sender{User: "bot@example.com", FromName: "VetDesk"}
	subject := "Your Summary\r\nBcc: attacker@evil.example"
	msg := string(s.buildMessage("vet@example.com", subject, "hello", "<id-1@example.com>"))

	// The CRLF is folded into the subject value; no new header line appears.
	assert.NotContains(t, msg, "\nBcc:")
	assert.Contains(t, msg, "Subject: Your Summary  Bcc: attacker@evil.example\r\n")
}

func TestDomainOf(t *testing.T) {
	assert.Equal(t, "example.com", domainOf("bot@example.com"))
	assert.Equal(t, "vetdesk.local", domainOf("not-an-address"))
	assert.Equal(t, "vetdesk.local", domainOf("trailing@"))
}
