package model

import (
	"strconv"
	"time"
)

// EmailMessage is a single retrieved mail message, reduced to the fields
// the extraction pipeline needs. It is produced by the IMAP source (or the
// local message cache) and never modified afterwards.
type EmailMessage struct {
	// UID is the message's IMAP UID within its mailbox.
	UID uint32 `json:"uid" db:"uid"`

	// Folder is the mailbox the message was fetched from.
	Folder string `json:"folder" db:"folder"`

	// MessageID is the RFC 5322 Message-ID header, when present.
	MessageID string `json:"message_id" db:"message_id"`

	// Subject is the decoded Subject header.
	Subject string `json:"subject" db:"subject"`

	// From is the sender's display name, or address when no name is set.
	From string `json:"from" db:"sender"`

	// Date is the message date from the envelope.
	Date time.Time `json:"date" db:"date"`

	// Body is the plain-text body. HTML-only messages are stripped down
	// to text before they reach this field.
	Body string `json:"body" db:"body"`
}

// ID returns the identifier used for the message in output records:
// the decimal form of its IMAP UID.
func (m EmailMessage) ID() string {
	return strconv.FormatUint(uint64(m.UID), 10)
}

// TaskEntry is one parsed task line from an EOD section.
type TaskEntry struct {
	// Description is the free-text task description.
	Description string `json:"description"`

	// TimeSpent is the duration substring located by a configured time
	// pattern. Empty when no pattern matched the line.
	TimeSpent string `json:"time_spent"`

	// RawLine is the original line as it appeared in the email body,
	// trimmed of surrounding whitespace. Re-scanning it reproduces the
	// same Description/TimeSpent split.
	RawLine string `json:"raw_line"`
}

// EODSection is the extracted end-of-day report from a single email body.
type EODSection struct {
	// SectionHeader is the keyword text that introduced the section,
	// exactly as it occurred in the body.
	SectionHeader string `json:"section_header"`

	// Tasks holds the parsed entries in order of appearance.
	Tasks []TaskEntry `json:"tasks"`
}

// Extraction is one output record: an email together with the EOD section
// found in its body.
type Extraction struct {
	EmailID string     `json:"email_id"`
	Subject string     `json:"subject"`
	Date    time.Time  `json:"date"`
	Section EODSection `json:"eod_section"`
}
