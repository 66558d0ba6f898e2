// Package app wires the IMAP source, message cache, and extractor into the
// sequential extraction pipeline behind the CLI.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/emersion/go-imap/v2"

	"github.com/nhle/eodex/internal/extract"
	"github.com/nhle/eodex/internal/model"
)

// MessageSource provides search and fetch over a mailbox.
// *email.IMAPClient is the production implementation.
type MessageSource interface {
	SearchRange(ctx context.Context, since, before time.Time) ([]imap.UID, error)
	FetchMessages(ctx context.Context, uids []imap.UID) ([]model.EmailMessage, error)
}

// MessageCache stores raw fetched messages between runs.
// *store.SQLiteStore is the production implementation.
type MessageCache interface {
	GetMessages(ctx context.Context, folder string, uids []uint32) (map[uint32]model.EmailMessage, error)
	PutMessages(ctx context.Context, msgs []model.EmailMessage) error
}

// Runner executes the extraction pipeline: search the date range, load
// bodies from the cache or the server, and extract EOD sections.
// Processing is sequential; messages are handled one at a time.
type Runner struct {
	Source MessageSource
	Rules  *extract.Ruleset

	// Cache is optional; nil disables caching entirely.
	Cache  MessageCache
	Folder string
}

// Run extracts EOD sections from all messages in [since, before).
// Emails without a section are silently skipped; the returned records are
// in mailbox order.
func (r *Runner) Run(
	ctx context.Context, since, before time.Time,
) ([]model.Extraction, error) {
	uids, err := r.Source.SearchRange(ctx, since, before)
	if err != nil {
		return nil, err
	}

	slog.Info("found emails in date range",
		"count", len(uids),
		"since", since.Format("2006-01-02"),
		"before", before.Format("2006-01-02"),
	)
	if len(uids) == 0 {
		return nil, nil
	}

	messages, err := r.loadMessages(ctx, uids)
	if err != nil {
		return nil, err
	}

	var results []model.Extraction
	for _, msg := range messages {
		section := r.Rules.Extract(msg.Body)
		if section == nil {
			continue
		}

		slog.Debug("extracted EOD section",
			"uid", msg.UID,
			"subject", msg.Subject,
			"tasks", len(section.Tasks),
		)
		results = append(results, model.Extraction{
			EmailID: msg.ID(),
			Subject: msg.Subject,
			Date:    msg.Date,
			Section: *section,
		})
	}

	slog.Info("extraction finished",
		"emails", len(messages),
		"sections", len(results),
	)
	return results, nil
}

// loadMessages returns the bodies for uids in mailbox order, serving from
// the cache where possible and fetching only the missing UIDs.
func (r *Runner) loadMessages(
	ctx context.Context, uids []imap.UID,
) ([]model.EmailMessage, error) {
	cached := map[uint32]model.EmailMessage{}
	if r.Cache != nil {
		raw := make([]uint32, 0, len(uids))
		for _, uid := range uids {
			raw = append(raw, uint32(uid))
		}

		var err error
		cached, err = r.Cache.GetMessages(ctx, r.Folder, raw)
		if err != nil {
			return nil, fmt.Errorf("reading message cache: %w", err)
		}
	}

	var missing []imap.UID
	for _, uid := range uids {
		if _, ok := cached[uint32(uid)]; !ok {
			missing = append(missing, uid)
		}
	}

	var fetched []model.EmailMessage
	if len(missing) > 0 {
		var err error
		fetched, err = r.Source.FetchMessages(ctx, missing)
		if err != nil {
			return nil, err
		}

		if r.Cache != nil && len(fetched) > 0 {
			if err := r.Cache.PutMessages(ctx, fetched); err != nil {
				// A cache write failure should not lose the run.
				slog.Warn("caching fetched messages failed", "error", err)
			}
		}
	}

	if r.Cache != nil {
		slog.Debug("message cache lookup",
			"hits", len(cached), "fetched", len(fetched))
	}

	byUID := make(map[uint32]model.EmailMessage, len(cached)+len(fetched))
	for uid, msg := range cached {
		byUID[uid] = msg
	}
	for _, msg := range fetched {
		byUID[msg.UID] = msg
	}

	messages := make([]model.EmailMessage, 0, len(byUID))
	for _, uid := range uids {
		if msg, ok := byUID[uint32(uid)]; ok {
			messages = append(messages, msg)
		}
	}
	return messages, nil
}
