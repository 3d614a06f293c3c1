package mail

import (
	"context"
	"regexp"
	"strings"

	"github.com/inboxpilot/backend/internal/models"
)

// Handle identifies one mailbox message before its body is fetched.
type Handle struct {
	ID       string
	ThreadID string
}

// Source lists and reads unread mailbox messages. ListUnread is bounded
// to one page; there is no pagination loop. Errors propagate to the
// caller and are converted into per-message failure records one level up.
type Source interface {
	ListUnread(ctx context.Context) ([]Handle, error)
	FetchFull(ctx context.Context, id string) (models.Message, error)
	MarkRead(ctx context.Context, id string) error
}

var quotedHeaderRe = regexp.MustCompile(`(?m)^On .{0,200} wrote:\s*$`)

// StripQuoted removes quoted reply text: everything from the first
// "On ... wrote:" header on, plus any remaining "> " quoted lines.
func StripQuoted(body string) string {
	if loc := quotedHeaderRe.FindStringIndex(body); loc != nil {
		body = body[:loc[0]]
	}
	lines := strings.Split(body, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), ">") {
			continue
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// ParseAddress extracts the bare address from "Name <addr>" forms.
func ParseAddress(raw string) (name string, email string) {
	raw = strings.TrimSpace(raw)
	open := strings.LastIndex(raw, "<")
	close := strings.LastIndex(raw, ">")
	if open >= 0 && close > open {
		name = strings.Trim(strings.TrimSpace(raw[:open]), `"`)
		email = strings.TrimSpace(raw[open+1 : close])
		return name, strings.ToLower(email)
	}
	return "", strings.ToLower(raw)
}
