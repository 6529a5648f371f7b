package messaging

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchKeyword(t *testing.T) {
	cases := []struct {
		body string
		want Keyword
	}{
		{"STOP", KeywordStop},
		{"stop", KeywordStop},
		{"  Stop  ", KeywordStop},
		{"UNSUBSCRIBE", KeywordUnsubscribe},
		{"unsubscribe\n", KeywordUnsubscribe},
		{"CANCEL", KeywordCancel},
		{"yes", KeywordYes},
		{"No", KeywordNo},
		{"", KeywordNone},
		{"yes please", KeywordNone},
		{"please stop", KeywordNone},
		{"STOPALL", KeywordNone},
		{"What time is my visit?", KeywordNone},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, MatchKeyword(tc.body), "body=%q", tc.body)
	}
}

func TestPhoneDigits(t *testing.T) {
	assert.Equal(t, "15035551234", PhoneDigits("+1 (503) 555-1234"))
	assert.Equal(t, "", PhoneDigits("no digits"))
}
