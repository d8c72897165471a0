package task

import "unicode/utf8"

// Field constraints for enqueue requests.
const (
	TargetLength     = 11
	MinContentLength = 10
	MaxContentLength = 200
)

// Validate checks an enqueue request. Lengths are counted in runes.
func Validate(submitterID, target, content string) error {
	if submitterID == "" || target == "" || content == "" {
		return ErrEmptyField
	}
	if utf8.RuneCountInString(target) != TargetLength {
		return ErrMalformedTarget
	}
	n := utf8.RuneCountInString(content)
	if n < MinContentLength || n > MaxContentLength {
		return ErrContentLength
	}
	return nil
}
