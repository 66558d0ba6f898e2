// Package email fetches messages from an IMAP mailbox and reduces them to
// plain-text bodies for extraction. It wraps go-imap v2 and go-message;
// nothing in here knows about EOD sections.
package email

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-message/mail"

	"github.com/nhle/eodex/internal/model"
)

// IMAPClient wraps go-imap v2 for connecting to and querying IMAP servers.
// Each operation dials its own connection and logs out when done.
type IMAPClient struct {
	host     string
	port     int
	username string
	password string
	useSSL   bool
	folder   string
}

// NewIMAPClient creates a new IMAP client from the email settings.
func NewIMAPClient(cfg model.EmailConfig, password string) *IMAPClient {
	folder := cfg.Folder
	if folder == "" {
		folder = "INBOX"
	}
	return &IMAPClient{
		host:     cfg.Server,
		port:     cfg.Port,
		username: cfg.Username,
		password: password,
		useSSL:   cfg.UseSSL,
		folder:   folder,
	}
}

// Connect establishes a connection to the IMAP server, authenticates,
// and selects the configured folder. The caller is responsible for
// calling Logout on the returned client.
func (c *IMAPClient) Connect(_ context.Context) (*imapclient.Client, error) {
	addr := net.JoinHostPort(c.host, strconv.Itoa(c.port))

	var client *imapclient.Client
	var err error

	if c.useSSL {
		client, err = imapclient.DialTLS(addr, nil)
	} else {
		client, err = imapclient.DialStartTLS(addr, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", addr, err)
	}

	if err := client.Login(c.username, c.password).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, &AuthError{
			Server: c.host,
			Message: fmt.Sprintf(
				"authentication failed for %s: %v", c.username, err,
			),
		}
	}

	if _, err := client.Select(c.folder, nil).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, fmt.Errorf("selecting %s: %w", c.folder, err)
	}

	return client, nil
}

// ValidateConnection verifies IMAP credentials by connecting,
// authenticating, and selecting the configured folder.
func (c *IMAPClient) ValidateConnection(ctx context.Context) error {
	client, err := c.Connect(ctx)
	if err != nil {
		return err
	}
	_ = client.Logout().Wait()
	return nil
}

// SearchRange returns the UIDs of messages in the configured folder whose
// internal date falls in [since, before). The bounds follow IMAP
// SINCE/BEFORE semantics.
func (c *IMAPClient) SearchRange(
	ctx context.Context, since, before time.Time,
) ([]imap.UID, error) {
	client, err := c.Connect(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Logout().Wait() }()

	criteria := &imap.SearchCriteria{
		Since:  since,
		Before: before,
	}

	searchData, err := client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("searching messages: %w", err)
	}

	uids := searchData.AllUIDs()
	slog.Debug("IMAP search finished",
		"folder", c.folder,
		"since", since.Format("2006-01-02"),
		"before", before.Format("2006-01-02"),
		"matches", len(uids),
	)
	return uids, nil
}

// FetchMessages fetches the envelope and body for each UID and returns the
// parsed messages in mailbox order. Messages whose body cannot be parsed
// are logged and skipped; they never abort the fetch.
func (c *IMAPClient) FetchMessages(
	ctx context.Context, uids []imap.UID,
) ([]model.EmailMessage, error) {
	if len(uids) == 0 {
		return nil, nil
	}

	client, err := c.Connect(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Logout().Wait() }()

	uidSet := imap.UIDSetNum(uids...)

	bodySection := &imap.FetchItemBodySection{Peek: true}
	fetchOpts := &imap.FetchOptions{
		Envelope:    true,
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	}

	fetchCmd := client.Fetch(uidSet, fetchOpts)
	defer fetchCmd.Close()

	var messages []model.EmailMessage
	for {
		msg := fetchCmd.Next()
		if msg == nil {
			break
		}

		buf, err := msg.Collect()
		if err != nil {
			slog.Warn("skipping message: collecting data failed", "error", err)
			continue
		}

		env := envelopeFromBuffer(buf)

		body := ""
		if raw := buf.FindBodySection(bodySection); raw != nil {
			textBody, htmlBody := parseMIMEBody(raw)
			body = textBody
			if body == "" && htmlBody != "" {
				body = stripHTML(htmlBody)
			}
		}
		if body == "" {
			slog.Warn("skipping message: no readable body",
				"uid", env.UID, "subject", env.Subject)
			continue
		}

		messages = append(messages, model.EmailMessage{
			UID:       env.UID,
			Folder:    c.folder,
			MessageID: env.MessageID,
			Subject:   env.Subject,
			From:      env.From,
			Date:      env.Date,
			Body:      body,
		})
	}

	if err := fetchCmd.Close(); err != nil {
		return messages, fmt.Errorf("fetching messages: %w", err)
	}

	return messages, nil
}

// envelopeFromBuffer extracts an Envelope from a FetchMessageBuffer.
func envelopeFromBuffer(buf *imapclient.FetchMessageBuffer) Envelope {
	env := Envelope{
		UID: uint32(buf.UID),
	}

	if buf.Envelope != nil {
		env.MessageID = buf.Envelope.MessageID
		env.Subject = buf.Envelope.Subject
		env.Date = buf.Envelope.Date

		if len(buf.Envelope.From) > 0 {
			from := buf.Envelope.From[0]
			if from.Name != "" {
				env.From = from.Name
			} else {
				env.From = from.Addr()
			}
		}
	}

	if env.Date.IsZero() {
		env.Date = time.Now()
	}

	return env
}

// parseMIMEBody parses a raw RFC 2822 message using go-message and extracts
// the text/plain and text/html bodies.
func parseMIMEBody(raw []byte) (textBody, htmlBody string) {
	reader := bytes.NewReader(raw)

	mr, err := mail.CreateReader(reader)
	if err != nil {
		// If parsing fails, try treating the whole thing as plain text.
		return string(raw), ""
	}
	defer mr.Close()

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}

		h, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}

		contentType, _, _ := h.ContentType()
		body, readErr := io.ReadAll(part.Body)
		if readErr != nil {
			continue
		}

		switch {
		case strings.HasPrefix(contentType, "text/plain"):
			textBody += string(body)
		case strings.HasPrefix(contentType, "text/html"):
			htmlBody = string(body)
		}
	}

	return textBody, htmlBody
}

// htmlTagPattern matches HTML tags for stripping.
var htmlTagPattern = regexp.MustCompile(`<[^>]*>`)

// stripHTML removes HTML tags from a string and decodes common entities,
// providing a basic plain-text rendering for HTML-only messages.
func stripHTML(html string) string {
	if html == "" {
		return ""
	}

	result := html
	for _, tag := range []string{
		"<br>", "<br/>", "<br />", "</p>", "</div>", "</li>",
	} {
		result = strings.ReplaceAll(result, tag, "\n")
	}

	result = htmlTagPattern.ReplaceAllString(result, "")

	replacer := strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
		"&nbsp;", " ",
	)
	result = replacer.Replace(result)

	for strings.Contains(result, "\n\n\n") {
		result = strings.ReplaceAll(result, "\n\n\n", "\n\n")
	}

	return strings.TrimSpace(result)
}
