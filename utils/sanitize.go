package utils

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	ugcPolicy    = bluemonday.UGCPolicy()
	strictPolicy = bluemonday.StrictPolicy()
)

// Sanitize cleans HTML embedded in markdown content. Text without tags is returned
// unchanged so markdown punctuation such as '>' quotes and '&' survive escaping.
func Sanitize(input string) string {
	if !strings.Contains(input, "<") {
		return input
	}
	return ugcPolicy.Sanitize(input)
}

// SanitizeText strips every tag, for single-line fields such as titles.
func SanitizeText(input string) string {
	if !strings.Contains(input, "<") {
		return input
	}
	return strictPolicy.Sanitize(input)
}
