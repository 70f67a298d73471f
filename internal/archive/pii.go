package archive

import "regexp"

var (
	emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phoneRe = regexp.MustCompile(`\+?1?[-.\s]?\(?[0-9]{3}\)?[-.\s]?[0-9]{3}[-.\s]?[0-9]{4}`)
)

// ScrubPII replaces emails with [EMAIL] and phone numbers with [PHONE].
// Doctor and hospital names are kept; staff need them for follow-up.
func ScrubPII(body []byte) []byte {
	body = emailRe.ReplaceAll(body, []byte("[EMAIL]"))
	body = phoneRe.ReplaceAll(body, []byte("[PHONE]"))
	return body
}
