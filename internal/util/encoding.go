package util

import (
	"golang.org/x/text/unicode/norm"
)

// Normalize returns the NFKD form of s so that visually identical
// passwords typed on different keyboards hash the same way.
func Normalize(s string) string {
	return norm.NFKD.String(s)
}
