package tracker

import (
	"fmt"
	"html"
	"net/url"
	"strings"
	"time"

	"no-lights-dtek/internal/dtek"
)

// FormatDuration renders d as "H год M хв", leaving out a zero unit.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = -d
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60

	switch {
	case hours > 0 && minutes > 0:
		return fmt.Sprintf("%d год %d хв", hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%d год", hours)
	default:
		return fmt.Sprintf("%d хв", minutes)
	}
}

// Format renders the Telegram HTML notification for a subscriber whose
// snapshot has already been updated by Detect. viewerURL may be empty.
func Format(res *dtek.ScrapeResult, state SubscriberState, now time.Time, viewerURL string) string {
	cur := res.Current
	lines := []string{headline(cur.Status)}

	addr := state.Address.String()
	if res.ResolvedAddress.Text != nil {
		addr = *res.ResolvedAddress.Text
	}
	if addr != "" {
		lines = append(lines, fmt.Sprintf(msgAddressLine, html.EscapeString(addr)))
	}

	group := state.GroupName
	if res.GroupName != nil {
		group = res.GroupName
	}
	if group != nil {
		lines = append(lines, fmt.Sprintf(msgGroupLine, html.EscapeString(*group)))
	}

	if line, ok := durationLine(cur.Status, state, now); ok {
		lines = append(lines, line)
	}

	for _, opt := range []struct {
		format string
		value  *string
	}{
		{msgReasonLine, cur.Reason},
		{msgStartLine, cur.Start},
		{msgRestoreLine, cur.Restore},
	} {
		if opt.value != nil {
			lines = append(lines, fmt.Sprintf(opt.format, html.EscapeString(*opt.value)))
		}
	}
	if line, ok := scheduleLine(res, now); ok {
		lines = append(lines, line)
	}
	if cur.UpdatedAt != nil {
		lines = append(lines, fmt.Sprintf(msgUpdatedAtLine, html.EscapeString(*cur.UpdatedAt)))
	}

	if link := ViewerLink(viewerURL, state.Address); link != "" {
		lines = append(lines, "", fmt.Sprintf(msgViewerLink, html.EscapeString(link)))
	}
	return strings.Join(lines, "\n")
}

func headline(s dtek.StatusKind) string {
	switch s {
	case dtek.StatusOn:
		return msgHeadlineOn
	case dtek.StatusOff:
		return msgHeadlineOff
	default:
		return msgHeadlineUnknown
	}
}

// durationLine reports how long the previous state lasted right after a
// transition, and how long the current one has lasted otherwise. The
// "was for" text is only used when the previous status was the opposite one.
func durationLine(status dtek.StatusKind, state SubscriberState, now time.Time) (string, bool) {
	fresh := state.LastStatusChangedAt != nil && state.LastStatusChangedAt.Equal(now)
	if fresh && !flippedFrom(state, opposite(status)) {
		return "", false
	}

	var since *time.Time
	var format string
	switch {
	case status == dtek.StatusOn && fresh:
		since, format = state.LastOffAt, msgWasOffFor
	case status == dtek.StatusOn:
		since, format = state.LastOnAt, msgOnSince
	case status == dtek.StatusOff && fresh:
		since, format = state.LastOnAt, msgWasOnFor
	case status == dtek.StatusOff:
		since, format = state.LastOffAt, msgOffSince
	default:
		return "", false
	}
	if since == nil || since.Equal(now) {
		return "", false
	}
	return fmt.Sprintf(format, FormatDuration(now.Sub(*since))), true
}

func opposite(s dtek.StatusKind) dtek.StatusKind {
	switch s {
	case dtek.StatusOn:
		return dtek.StatusOff
	case dtek.StatusOff:
		return dtek.StatusOn
	}
	return dtek.StatusUnknown
}

func flippedFrom(state SubscriberState, from dtek.StatusKind) bool {
	return state.PreviousStatus != nil && *state.PreviousStatus == from
}

// ViewerLink builds the schedule viewer deep link for addr, or "" when
// no viewer is configured.
func ViewerLink(viewerURL string, addr dtek.Address) string {
	if viewerURL == "" {
		return ""
	}
	u, err := url.Parse(viewerURL)
	if err != nil {
		return ""
	}
	q := u.Query()
	q.Set("city", addr.City)
	q.Set("street", addr.Street)
	q.Set("house", addr.House)
	u.RawQuery = q.Encode()
	return u.String()
}
