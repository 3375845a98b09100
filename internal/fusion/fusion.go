package fusion

import (
	"sort"

	"github.com/wikipuff/wikipuff/internal/turbopuffer"
)

// DefaultRankConstant is the standard RRF constant from Cormack et al. 2009.
const DefaultRankConstant = 60.0

// Engine combines independently ranked result lists into a single ranking
// using reciprocal rank fusion.
type Engine struct {
	rankConstant float64
}

// FusedHit is a retrieval hit whose per-list score has been replaced by the
// cumulative RRF score. Higher is more relevant.
type FusedHit struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	URL         string  `json:"url"`
	FusionScore float64 `json:"fusion_score"`
}

func NewEngine(rankConstant float64) *Engine {
	if rankConstant <= 0 {
		rankConstant = DefaultRankConstant
	}
	return &Engine{rankConstant: rankConstant}
}

// Fuse merges any number of ranked lists. Each hit contributes
// 1/(k + rank) to its id's total, with rank counted 1-based within its list;
// an id absent from a list contributes nothing from it. Ids with equal totals
// keep input encounter order (first list first). The attribute payload for an
// id is taken from the first list that contains it. Nil and empty lists are
// tolerated.
func (e *Engine) Fuse(lists ...[]turbopuffer.Hit) []FusedHit {
	type entry struct {
		hit   turbopuffer.Hit
		score float64
	}

	byID := make(map[string]*entry)
	var ordered []*entry

	for _, list := range lists {
		for i, hit := range list {
			contribution := 1.0 / (e.rankConstant + float64(i+1))
			if existing, ok := byID[hit.ID]; ok {
				existing.score += contribution
				continue
			}
			en := &entry{hit: hit, score: contribution}
			byID[hit.ID] = en
			ordered = append(ordered, en)
		}
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].score > ordered[j].score
	})

	fused := make([]FusedHit, len(ordered))
	for i, en := range ordered {
		fused[i] = FusedHit{
			ID:          en.hit.ID,
			Title:       en.hit.Title,
			URL:         en.hit.URL,
			FusionScore: en.score,
		}
	}
	return fused
}

// Truncate limits a fused list to at most limit entries.
func Truncate(hits []FusedHit, limit int) []FusedHit {
	if limit <= 0 || limit >= len(hits) {
		return hits
	}
	return hits[:limit]
}
