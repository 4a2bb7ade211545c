// Package callbacks extracts routing keys from callback queries.
package callbacks

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// Split parses telebot's "\f<unique>|<payload>" encoding. Data without the
// leading form feed is returned whole, trimmed, as the key. The form feed is
// itself whitespace, so it is checked before any trimming.
func Split(data string) (key, payload string) {
	raw, wrapped := strings.CutPrefix(strings.TrimLeft(data, " \t\r\n"), "\f")
	if !wrapped {
		return strings.TrimSpace(data), ""
	}
	key, payload, _ = strings.Cut(raw, "|")
	return strings.TrimSpace(key), payload
}

// Parse returns the routing key and payload of cb. A Unique already set by
// telebot wins over the raw data.
func Parse(cb *tele.Callback) (key, payload string) {
	if cb == nil {
		return "", ""
	}
	if cb.Unique != "" {
		return cb.Unique, cb.Data
	}
	return Split(cb.Data)
}

// Key returns the routing key of the callback carried by c.
func Key(c tele.Context) string {
	k, _ := Parse(c.Callback())
	return k
}
