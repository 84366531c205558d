package textutil

// Similarity scores how alike two strings are on a 0–100 scale using the
// classic longest-common-subsequence ratio: 200*lcs/(len(a)+len(b)) over
// runes. The score is symmetric, 100 for identical strings (including two
// empty strings, which makes two fully empty items mutual duplicates), and
// 0 when exactly one side is empty.
//
// Cost is O(len(a)*len(b)) per call, which is fine at the batch sizes the
// dedup engine sees (tens of items per source per run).
func Similarity(a, b string) float64 {
	if a == b {
		return 100
	}
	if a == "" || b == "" {
		return 0
	}

	ra := []rune(a)
	rb := []rune(b)

	// Two-row DP for LCS length.
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for i := 1; i <= len(ra); i++ {
		for j := 1; j <= len(rb); j++ {
			if ra[i-1] == rb[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	lcs := prev[len(rb)]

	return 200 * float64(lcs) / float64(len(ra)+len(rb))
}
