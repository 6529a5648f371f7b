package messaging

import "strings"

// Keyword is a recognized SMS reply keyword.
type Keyword string

const (
	KeywordStop        Keyword = "STOP"
	KeywordUnsubscribe Keyword = "UNSUBSCRIBE"
	KeywordCancel      Keyword = "CANCEL"
	KeywordYes         Keyword = "YES"
	KeywordNo          Keyword = "NO"
	KeywordNone        Keyword = ""
)

// MatchKeyword normalizes an SMS body and returns the matched keyword, if any.
// Matching is exact after trimming whitespace and uppercasing, so "yes please"
// is not a keyword.
func MatchKeyword(body string) Keyword {
	switch Keyword(strings.ToUpper(strings.TrimSpace(body))) {
	case KeywordStop:
		return KeywordStop
	case KeywordUnsubscribe:
		return KeywordUnsubscribe
	case KeywordCancel:
		return KeywordCancel
	case KeywordYes:
		return KeywordYes
	case KeywordNo:
		return KeywordNo
	}
	return KeywordNone
}
