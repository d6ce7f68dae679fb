package seriessync

import (
	"fmt"
	"regexp"

	"github.com/guildsync/guildsync/domain"
)

// eventNameRegex extracts the series name from an event title, stripping
// any trailing "[...]"/"(...)" qualifier (e.g. "D&D: Curse of Strahd [Session
// 4]" -> "D&D: Curse of Strahd"). Exact pattern from original_source's
// EVENT_NAME_REGEX.
var eventNameRegex = regexp.MustCompile(`^\s*(?P<name>[^\[\(]+[^\s\[\(])`)

const (
	minSeriesNameLen = 2
	maxSeriesNameLen = 80
)

// seriesNameFromEventName derives a channel/role name from an event's title,
// rejecting names too short or too long to make a sane Discord channel name.
func seriesNameFromEventName(eventName string) (string, error) {
	m := eventNameRegex.FindStringSubmatch(eventName)
	if m == nil {
		return "", fmt.Errorf("could not extract a series name from the event %q: %w", eventName, domain.ErrParse)
	}
	name := m[1]
	if len(name) < minSeriesNameLen || len(name) > maxSeriesNameLen {
		return "", fmt.Errorf("channel name %q is too short or too long: %w", name, domain.ErrParse)
	}
	return name, nil
}
