// Package extract locates End of Day sections in free-form email bodies
// and splits them into task entries. Matching is entirely data-driven:
// the keyword, time-pattern, and end-marker lists come from configuration
// and are compiled once into a Ruleset.
package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/nhle/eodex/internal/model"
)

// Ruleset holds the compiled matching rules for EOD extraction.
// A Ruleset is immutable after construction and safe for reuse across
// messages; Extract is a pure function of the body and the rules.
type Ruleset struct {
	keywords     []string
	timePatterns []*regexp.Regexp
	endMarkers   []string
}

// numberedPrefix matches list prefixes like "1." or "12)".
var numberedPrefix = regexp.MustCompile(`^\d+[.)]\s*`)

// NewRuleset compiles the configured keyword and pattern lists.
// Every time pattern must compile; a malformed pattern is a configuration
// error reported here, before any message is processed. Patterns are
// matched case-insensitively, in the order given.
func NewRuleset(keywords, timePatterns, endMarkers []string) (*Ruleset, error) {
	if len(keywords) == 0 {
		return nil, fmt.Errorf("at least one EOD keyword is required")
	}

	compiled := make([]*regexp.Regexp, 0, len(timePatterns))
	for _, p := range timePatterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("compiling time pattern %q: %w", p, err)
		}
		compiled = append(compiled, re)
	}

	return &Ruleset{
		keywords:     keywords,
		timePatterns: compiled,
		endMarkers:   endMarkers,
	}, nil
}

// Extract scans body for an EOD section. It returns nil when no configured
// keyword introduces a section; that is the normal outcome for most mail,
// not an error. When a header line is found, every following line up to the
// end of the body (or to a section end marker) is parsed as a candidate
// task line. Only the first section in a body is extracted; a later keyword
// line is treated as an ordinary candidate line.
func (r *Ruleset) Extract(body string) *model.EODSection {
	lines := strings.Split(body, "\n")

	start := -1
	var header, remainder string
	for i, line := range lines {
		if h, rest, ok := r.matchHeader(line); ok {
			start = i
			header = h
			remainder = rest
			break
		}
	}
	if start < 0 {
		return nil
	}

	section := &model.EODSection{
		SectionHeader: header,
		Tasks:         []model.TaskEntry{},
	}

	// Text after the colon on the header line is the first candidate.
	if entry, ok := r.parseTaskLine(remainder); ok {
		section.Tasks = append(section.Tasks, entry)
	}

	for _, line := range lines[start+1:] {
		if r.matchesEndMarker(line) {
			break
		}
		if entry, ok := r.parseTaskLine(line); ok {
			section.Tasks = append(section.Tasks, entry)
		}
	}

	return section
}

// matchHeader reports whether line is an EOD header line. A header starts
// (case-insensitively) with a configured keyword followed by nothing or a
// colon. The first keyword in configured order wins. It returns the keyword
// as it occurs in the body and any text following the colon.
func (r *Ruleset) matchHeader(line string) (header, remainder string, ok bool) {
	trimmed := strings.TrimSpace(line)
	lower := strings.ToLower(trimmed)

	for _, kw := range r.keywords {
		kwLower := strings.ToLower(kw)
		if !strings.HasPrefix(lower, kwLower) {
			continue
		}
		rest := trimmed[len(kw):]
		switch {
		case rest == "":
			return trimmed[:len(kw)], "", true
		case strings.HasPrefix(rest, ":"):
			return trimmed[:len(kw)], rest[1:], true
		}
	}

	return "", "", false
}

// matchesEndMarker reports whether line starts with a configured section
// end marker, case-insensitively.
func (r *Ruleset) matchesEndMarker(line string) bool {
	trimmed := strings.ToLower(strings.TrimSpace(line))
	if trimmed == "" {
		return false
	}
	for _, m := range r.endMarkers {
		if strings.HasPrefix(trimmed, strings.ToLower(m)) {
			return true
		}
	}
	return false
}

// parseTaskLine splits a candidate line into a TaskEntry. Whitespace-only
// lines and lines whose description strips to nothing yield no entry.
func (r *Ruleset) parseTaskLine(line string) (model.TaskEntry, bool) {
	raw := strings.TrimSpace(line)
	if raw == "" {
		return model.TaskEntry{}, false
	}

	clean := stripBullet(raw)
	if clean == "" {
		return model.TaskEntry{}, false
	}

	for _, re := range r.timePatterns {
		loc := re.FindStringIndex(clean)
		if loc == nil {
			continue
		}

		timeSpent := clean[loc[0]:loc[1]]
		desc := strings.TrimRight(clean[:loc[0]], "-: \t")
		if desc == "" {
			return model.TaskEntry{}, false
		}
		return model.TaskEntry{
			Description: desc,
			TimeSpent:   timeSpent,
			RawLine:     raw,
		}, true
	}

	return model.TaskEntry{
		Description: clean,
		RawLine:     raw,
	}, true
}

// stripBullet removes leading bullet markers and numbered list prefixes
// from a task line.
func stripBullet(line string) string {
	s := strings.TrimLeft(line, "-*• \t")
	s = numberedPrefix.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}
