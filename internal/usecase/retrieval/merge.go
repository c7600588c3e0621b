package retrieval

import (
	"sort"

	"github.com/jmrlabs/fsdgen/internal/domain"
)

// mergeByScore orders matches from multiple collections by descending score
// and truncates to topK. The sort is stable: ties keep encounter order.
func mergeByScore(matches []domain.Match, topK int) []domain.Match {
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}
