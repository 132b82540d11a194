package cleaner

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var seasonalDatePattern = regexp.MustCompile(`(?i)^(early|mid|late)\s+([A-Za-z]+)\s+(\d{4})`)

// seasonalDay maps an early/mid/late qualifier to a nominal day of month.
var seasonalDay = map[string]int{
	"early": 5,
	"mid":   15,
	"late":  25,
}

// NormalizeDate parses the free-text date descriptions the source uses into
// an ISO YYYY-MM-DD string. Recognized forms are "Please Inquire" (no
// date), "Early/Mid/Late <Mon> <Year>" and "<Mon> <Day>, <Year>". Anything
// else yields ok=false rather than an error.
func NormalizeDate(value string) (string, bool) {
	value = strings.TrimSpace(value)

	if strings.EqualFold(value, "please inquire") {
		return "", false
	}

	if m := seasonalDatePattern.FindStringSubmatch(value); m != nil {
		day := seasonalDay[strings.ToLower(m[1])]
		dt, err := time.Parse("2 Jan 2006", fmt.Sprintf("%d %s %s", day, titleMonth(m[2]), m[3]))
		if err != nil {
			return "", false
		}
		return dt.Format("2006-01-02"), true
	}

	dt, err := time.Parse("Jan 2, 2006", value)
	if err != nil {
		return "", false
	}
	return dt.Format("2006-01-02"), true
}

// titleMonth uppercases the first letter so month names parse regardless of
// the casing the page used.
func titleMonth(m string) string {
	if m == "" {
		return m
	}
	return strings.ToUpper(m[:1]) + strings.ToLower(m[1:])
}
