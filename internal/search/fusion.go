package search

import (
	"sort"

	"github.com/askbase/askbase/internal/store"
)

// candidate accumulates per-signal scores for one document during
// fusion.
type candidate struct {
	id          string
	lexicalRaw  float64
	vectorRaw   float64
	lexicalNorm float64
	vectorNorm  float64
	hasLexical  bool
	hasVector   bool
	fused       float64
}

// fuse merges lexical and vector hits into one ranking. Each signal's
// scores are min-max normalized to [0, 1] over its own result list, so
// BM25 magnitudes and cosine similarities become comparable, then
// combined as a weighted sum. A document present in only one list
// contributes zero for the missing signal.
//
// Ties break on raw lexical score, then recency, then ID, keeping the
// ordering deterministic for identical inputs.
func fuse(lexical []store.LexicalResult, vector []store.VectorResult,
	lexicalWeight, vectorWeight float64, docs map[string]store.DocMeta) []candidate {

	byID := make(map[string]*candidate, len(lexical)+len(vector))

	for _, hit := range lexical {
		byID[hit.DocID] = &candidate{
			id:         hit.DocID,
			lexicalRaw: hit.Score,
			hasLexical: true,
		}
	}
	for _, hit := range vector {
		c := byID[hit.DocID]
		if c == nil {
			c = &candidate{id: hit.DocID}
			byID[hit.DocID] = c
		}
		c.vectorRaw = hit.Score
		c.hasVector = true
	}

	normalizeLexical(byID)
	normalizeVector(byID)

	out := make([]candidate, 0, len(byID))
	for _, c := range byID {
		c.fused = lexicalWeight*c.lexicalNorm + vectorWeight*c.vectorNorm
		out = append(out, *c)
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.fused != b.fused {
			return a.fused > b.fused
		}
		if a.lexicalRaw != b.lexicalRaw {
			return a.lexicalRaw > b.lexicalRaw
		}
		da, okA := docs[a.id]
		db, okB := docs[b.id]
		if okA && okB && !da.UpdatedAt.Equal(db.UpdatedAt) {
			return da.UpdatedAt.After(db.UpdatedAt)
		}
		return a.id < b.id
	})
	return out
}

// normalizeLexical min-max scales lexical scores across candidates
// that have one. A single hit, or all-equal scores, normalize to 1.
func normalizeLexical(byID map[string]*candidate) {
	minScore, maxScore, any := scoreRange(byID, func(c *candidate) (float64, bool) {
		return c.lexicalRaw, c.hasLexical
	})
	if !any {
		return
	}
	for _, c := range byID {
		if !c.hasLexical {
			continue
		}
		if maxScore == minScore {
			c.lexicalNorm = 1
		} else {
			c.lexicalNorm = (c.lexicalRaw - minScore) / (maxScore - minScore)
		}
	}
}

func normalizeVector(byID map[string]*candidate) {
	minScore, maxScore, any := scoreRange(byID, func(c *candidate) (float64, bool) {
		return c.vectorRaw, c.hasVector
	})
	if !any {
		return
	}
	for _, c := range byID {
		if !c.hasVector {
			continue
		}
		if maxScore == minScore {
			c.vectorNorm = 1
		} else {
			c.vectorNorm = (c.vectorRaw - minScore) / (maxScore - minScore)
		}
	}
}

func scoreRange(byID map[string]*candidate, get func(*candidate) (float64, bool)) (float64, float64, bool) {
	var minScore, maxScore float64
	any := false
	for _, c := range byID {
		score, ok := get(c)
		if !ok {
			continue
		}
		if !any {
			minScore, maxScore = score, score
			any = true
			continue
		}
		if score < minScore {
			minScore = score
		}
		if score > maxScore {
			maxScore = score
		}
	}
	return minScore, maxScore, any
}
