package dash

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/juju/errors"
)

// TextFormatter renders an inbound raw value into display text.
type TextFormatter interface {
	FormatText(key, raw string) (string, error)
}

// TextFunc adapts a plain function to TextFormatter.
type TextFunc func(key, raw string) (string, error)

func (f TextFunc) FormatText(key, raw string) (string, error) { return f(key, raw) }

// ColorFormatter picks a row color for an inbound raw value.
type ColorFormatter interface {
	FormatColor(raw string) uint32
}

// ColorFunc adapts a plain function to ColorFormatter.
type ColorFunc func(raw string) uint32

func (f ColorFunc) FormatColor(raw string) uint32 { return f(raw) }

// PublishAction runs when the user selects a feed row. It receives the
// last value seen on the feed. It may take over the display with its
// own interactive loop; the hub forces a full redraw after it returns.
type PublishAction interface {
	Publish(lastValue string)
}

// PubFunc adapts a plain function to PublishAction.
type PubFunc func(lastValue string)

func (f PubFunc) Publish(lastValue string) { f(lastValue) }

// Feed is one display row bound to one remote data channel.
type Feed struct {
	Key         string
	DefaultText string // shown before the first value arrives
	Template    string
	Text        TextFormatter
	Color       ColorFormatter // nil = leave row color untouched
	Pub         PublishAction  // nil = select is a no-op
	Index       int            // registration order, never reassigned

	LastValue string
	HasValue  bool
}

// FeedConfig is optional per-feed setup for Hub.AddFeed. Zero value:
// template "<key> : %v", default text = key, no color formatter, no
// publish action.
type FeedConfig struct {
	DefaultText string
	Template    string
	Text        TextFormatter
	Color       ColorFormatter
	Pub         PublishAction
}

// RenderText substitutes raw into a template with a single fmt verb.
// %v and %s take the payload string as-is; numeric verbs like %.1f
// trigger a float conversion of the payload. A payload that fails the
// conversion is an error for this one render, not a default value.
func RenderText(template, raw string) (string, error) {
	s := fmt.Sprintf(template, raw)
	if !strings.Contains(s, "%!") {
		return s, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return "", errors.Annotatef(err, "render template=%q value=%q", template, raw)
	}
	s = fmt.Sprintf(template, f)
	if strings.Contains(s, "%!") {
		return "", errors.NotValidf("render template=%q value=%q", template, raw)
	}
	return s, nil
}

func templateFormatter(template string) TextFormatter {
	return TextFunc(func(key, raw string) (string, error) {
		return RenderText(template, raw)
	})
}
