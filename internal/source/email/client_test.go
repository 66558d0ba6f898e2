package email

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func crlf(s string) []byte {
	return []byte(strings.ReplaceAll(s, "\n", "\r\n"))
}

func TestParseMIMEBodyPlainText(t *testing.T) {
	raw := crlf(`From: john@example.com
To: team@example.com
Subject: Daily Status Update
Content-Type: text/plain; charset=utf-8

EOD:
- Checking tracker and tickets-20 min
`)

	textBody, htmlBody := parseMIMEBody(raw)
	assert.Contains(t, textBody, "Checking tracker and tickets-20 min")
	assert.Empty(t, htmlBody)
}

func TestParseMIMEBodyMultipart(t *testing.T) {
	raw := crlf(`From: sarah@example.com
Subject: Weekly Summary
MIME-Version: 1.0
Content-Type: multipart/alternative; boundary="b1"

--b1
Content-Type: text/plain; charset=utf-8

End of Day Summary:
- Code review session - 45 min

--b1
Content-Type: text/html; charset=utf-8

<html><body><p>End of Day Summary:</p></body></html>

--b1--
`)

	textBody, htmlBody := parseMIMEBody(raw)
	assert.Contains(t, textBody, "Code review session - 45 min")
	assert.Contains(t, htmlBody, "<html>")
}

func TestParseMIMEBodyUnparseableFallsBackToRaw(t *testing.T) {
	raw := []byte("\x00\x01 not a mail message")

	textBody, htmlBody := parseMIMEBody(raw)
	assert.Equal(t, string(raw), textBody)
	assert.Empty(t, htmlBody)
}

func TestStripHTML(t *testing.T) {
	html := `<html><body>
<p>EOD:</p>
<div>- Team meeting &amp; discussion-30 min</div>
<div>- Fixed &quot;login&quot; bug - 2 hrs</div>
</body></html>`

	text := stripHTML(html)
	require.NotEmpty(t, text)
	assert.Contains(t, text, "EOD:")
	assert.Contains(t, text, "- Team meeting & discussion-30 min")
	assert.Contains(t, text, `- Fixed "login" bug - 2 hrs`)
	assert.NotContains(t, text, "<div>")
}

func TestAuthErrorChain(t *testing.T) {
	var err error = &AuthError{Server: "imap.example.com", Message: "bad password"}
	assert.True(t, IsAuthError(err))
	assert.Contains(t, err.Error(), "imap.example.com")

	assert.False(t, IsAuthError(assert.AnError))
}
