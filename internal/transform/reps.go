package transform

import "strings"

// SalesRepPrefixes maps filename prefixes to salespeople. Reps name
// their sheets with their initials, e.g. "JC-surf-expo.csv".
var SalesRepPrefixes = map[string]string{
	"JC":  "Jada Claiborne",
	"JC1": "Janelle Clasby",
	"AK":  "Alyssa Kallal",
	"AG":  "Angela Gonzales",
	"CF":  "Christina Freberg",
}

// InferSalesperson resolves an order-sheet filename to its rep. The
// prefix is the token before the first '.' or '-'; longer prefixes are
// tried first so "JC1-show.csv" resolves to Janelle, not Jada. An
// unknown prefix yields "Unknown" and ok=false; the caller records a
// sidecar note rather than failing the run.
func InferSalesperson(filename string) (rep, prefix string, ok bool) {
	token, _, _ := strings.Cut(filename, ".")
	token, _, _ = strings.Cut(token, "-")

	for n := 3; n >= 2; n-- {
		if len(token) < n {
			continue
		}
		p := strings.ToUpper(token[:n])
		if rep, ok := SalesRepPrefixes[p]; ok {
			return rep, p, true
		}
	}

	if len(token) > 2 {
		token = token[:2]
	}
	return "Unknown", strings.ToUpper(token), false
}
