package puzzle

import (
	"regexp"
	"strings"
)

// Trigger is the kind of activity an announcement reports.
type Trigger int

const (
	TriggerNone Trigger = iota
	TriggerPlaying
	TriggerFinished
)

func (t Trigger) String() string {
	switch t {
	case TriggerPlaying:
		return "playing"
	case TriggerFinished:
		return "finished"
	default:
		return "none"
	}
}

var triggerPhrases = []struct {
	phrase  string
	trigger Trigger
}{
	{" is playing", TriggerPlaying},
	{" are playing", TriggerPlaying},
	{" was playing", TriggerFinished},
	{" were playing", TriggerFinished},
}

var overflowPattern = regexp.MustCompile(`^\d+ others?$`)

// ParseAnnouncement extracts player names from messages such as
// "alice and bob are playing" or "alice was playing". The earliest trigger
// phrase wins; the text before it (on the same line) is split on commas and
// "and". A trailing "N others" means the list is truncated, so no names are
// returned at all.
func ParseAnnouncement(content string) ([]string, Trigger) {
	text := strings.ReplaceAll(content, "**", "")

	at, trigger := -1, TriggerNone
	for _, tp := range triggerPhrases {
		if i := strings.Index(text, tp.phrase); i >= 0 && (at < 0 || i < at) {
			at, trigger = i, tp.trigger
		}
	}
	if at < 0 {
		return nil, TriggerNone
	}

	prefix := text[:at]
	if nl := strings.LastIndexByte(prefix, '\n'); nl >= 0 {
		prefix = prefix[nl+1:]
	}

	var names []string
	for _, part := range strings.Split(prefix, " and ") {
		for _, name := range strings.Split(part, ",") {
			if name = strings.TrimSpace(name); name != "" {
				names = append(names, name)
			}
		}
	}

	if len(names) > 0 && overflowPattern.MatchString(names[len(names)-1]) {
		return nil, trigger
	}
	return names, trigger
}
