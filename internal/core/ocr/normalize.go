package ocr

import (
	"regexp"
	"strings"
)

var (
	reCRLF      = regexp.MustCompile(`\r\n?`)
	reFormFeed  = regexp.MustCompile(`\f`)
	reTrailingW = regexp.MustCompile(`(?m)[ \t]+$`)
)

// CleanText strips engine page breaks, unifies line endings and trims trailing
// spaces on each line. Interior spacing is kept so lengths stay comparable
// across profiles.
func CleanText(s string) string {
	if s == "" {
		return s
	}
	s = reCRLF.ReplaceAllString(s, "\n")
	s = reFormFeed.ReplaceAllString(s, "")
	s = reTrailingW.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}
