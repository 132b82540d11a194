package cleaner

import (
	"regexp"
	"strings"
)

var (
	spaceHyphenPattern = regexp.MustCompile(`[ \-]+`)
	invalidCharPattern = regexp.MustCompile(`[^a-z0-9_]`)
	multiUnderPattern  = regexp.MustCompile(`_+`)
)

// NormalizeKey canonicalizes a raw scraped label into a stable snake_case
// identifier: lowercase, spaces/hyphens to underscores, everything outside
// [a-z0-9_] stripped, no repeated or leading/trailing underscores.
// Idempotent: NormalizeKey(NormalizeKey(x)) == NormalizeKey(x).
func NormalizeKey(raw string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = spaceHyphenPattern.ReplaceAllString(key, "_")
	key = invalidCharPattern.ReplaceAllString(key, "")
	key = multiUnderPattern.ReplaceAllString(key, "_")
	return strings.Trim(key, "_")
}

// renameTable maps canonical keys whose source label is ambiguous to their
// final field name. Currently only the headline price, which is always yen.
var renameTable = map[string]string{
	"price": "price_yen",
}

// CanonicalFieldName resolves a raw or historical label to the field name
// used in persisted documents, applying both key normalization and the
// rename table. The wide-table materializer uses this to fold columns
// written under earlier normalization rules back into the current schema.
func CanonicalFieldName(label string) string {
	key := NormalizeKey(label)
	if renamed, ok := renameTable[key]; ok {
		return renamed
	}
	return key
}
