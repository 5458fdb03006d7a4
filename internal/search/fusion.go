package search

import "sort"

// rrfConstant is the smoothing constant C in the RRF formula.
const rrfConstant = 60

// oversampleFactor is how much larger than k each backend's pool is
// before fusion, so a document ranked just outside k in one list can
// still surface via the other.
const oversampleFactor = 3

// Ranked is one entry of an already descending-sorted ranked list,
// the common currency fed into Fuse.
type Ranked struct {
	FileID int64
	Score  float64
}

// Fuse combines two rank-ordered lists with Reciprocal Rank Fusion:
//
//	rrf_score(d) = w·1/(C+rank_k(d)) + (1-w)·1/(C+rank_s(d))
//
// A document absent from a list contributes 0 for that list's term.
// Ties are broken by ascending file_id.
func Fuse(keyword, semantic []Ranked, w float64, k int) []Ranked {
	keywordRank := rankOf(keyword)
	semanticRank := rankOf(semantic)

	seen := make(map[int64]struct{}, len(keywordRank)+len(semanticRank))
	for id := range keywordRank {
		seen[id] = struct{}{}
	}
	for id := range semanticRank {
		seen[id] = struct{}{}
	}

	fused := make([]Ranked, 0, len(seen))
	for id := range seen {
		var kTerm, sTerm float64
		if r, ok := keywordRank[id]; ok {
			kTerm = 1.0 / float64(rrfConstant+r)
		}
		if r, ok := semanticRank[id]; ok {
			sTerm = 1.0 / float64(rrfConstant+r)
		}
		fused = append(fused, Ranked{FileID: id, Score: w*kTerm + (1-w)*sTerm})
	}

	sort.Slice(fused, func(i, j int) bool {
		if fused[i].Score != fused[j].Score {
			return fused[i].Score > fused[j].Score
		}
		return fused[i].FileID < fused[j].FileID
	})

	if k < len(fused) {
		fused = fused[:k]
	}
	return fused
}

// rankOf returns the 1-based rank of each file_id in an already
// descending-sorted list. The first occurrence wins.
func rankOf(list []Ranked) map[int64]int {
	ranks := make(map[int64]int, len(list))
	for i, r := range list {
		if _, exists := ranks[r.FileID]; !exists {
			ranks[r.FileID] = i + 1
		}
	}
	return ranks
}
