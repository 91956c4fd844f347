package shared

import (
	"regexp"
	"strings"
)

var nonIdentifierChars = regexp.MustCompile(`[^A-Za-z0-9_.]+`)

// ToIdentifier turns a free-text label into a value the upload API accepts as
// an identifier. Characters other than ASCII letters, digits, '_' and '.' are
// dropped, the rest is uppercased and every '.' becomes '_'.
//
//	ToIdentifier("Invoice Type #1.A") // "INVOICETYPE1_A"
func ToIdentifier(name string) string {
	s := nonIdentifierChars.ReplaceAllString(name, "")
	return strings.ReplaceAll(strings.ToUpper(s), ".", "_")
}
