package ledger

import "strings"

// denominations maps the dollar amount in a reward name to its monthly
// counter bucket. Larger amounts are checked first so "$20" never matches
// as "$2" or "$1".
var denominations = []struct {
	substr string
	bucket string
}{
	{substr: "$20", bucket: "twenty"},
	{substr: "$10", bucket: "ten"},
	{substr: "$5", bucket: "five"},
	{substr: "$3", bucket: "three"},
	{substr: "$1", bucket: "one"},
}

// BucketForReward derives the monthly counter bucket from a reward name,
// or "" when the name carries no known denomination.
func BucketForReward(name string) string {
	for _, d := range denominations {
		if strings.Contains(name, d.substr) {
			return d.bucket
		}
	}
	return ""
}
