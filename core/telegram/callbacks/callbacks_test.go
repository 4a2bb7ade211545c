package callbacks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	tele "gopkg.in/telebot.v4"
)

func TestSplit(t *testing.T) {
	cases := []struct {
		data, key, payload string
	}{
		{"next_item", "next_item", ""},
		{"  cancel ", "cancel", ""},
		{"\fpick|42", "pick", "42"},
		{"\fpick", "pick", ""},
		{"\f rate:3_item |x|y", "rate:3_item", "x|y"},
		{"\fcancel|x", "cancel", "x"},
		{"  \frate:4_item|payload", "rate:4_item", "payload"},
		{`\fliteral`, `\fliteral`, ""},
		{"", "", ""},
	}
	for _, tc := range cases {
		key, payload := Split(tc.data)
		assert.Equal(t, tc.key, key, "data %q", tc.data)
		assert.Equal(t, tc.payload, payload, "data %q", tc.data)
	}
}

func TestParsePrefersUnique(t *testing.T) {
	key, payload := Parse(&tele.Callback{Unique: "pick", Data: "7"})
	assert.Equal(t, "pick", key)
	assert.Equal(t, "7", payload)

	key, _ = Parse(&tele.Callback{Data: "suggest_item"})
	assert.Equal(t, "suggest_item", key)

	key, payload = Parse(nil)
	assert.Empty(t, key)
	assert.Empty(t, payload)
}
