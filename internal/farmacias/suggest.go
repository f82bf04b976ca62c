package farmacias

import (
	"sort"

	"github.com/antzucaro/matchr"
)

// minimum Jaro-Winkler similarity for a comuna to be suggested
const suggestionThreshold = 0.8

type ComunaCount struct {
	Comuna string
	Count  int
}

// CountComunas lists every normalized comuna in records with how many pharmacies it has,
// sorted by name.
func CountComunas(records []UpstreamRecord) []ComunaCount {
	counts := map[string]int{}
	for _, record := range records {
		comuna := NormalizeComuna(record[fieldComuna])
		if comuna == "" {
			continue
		}
		counts[comuna]++
	}

	out := make([]ComunaCount, 0, len(counts))
	for comuna, count := range counts {
		out = append(out, ComunaCount{Comuna: comuna, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Comuna < out[j].Comuna
	})
	return out
}

// SuggestComunas returns up to limit comunas present in records that look like query,
// most similar first. Useful when a query matched nothing because of a typo.
func SuggestComunas(query string, records []UpstreamRecord, limit int) []string {
	query = NormalizeComuna(query)
	if query == "" || limit <= 0 {
		return nil
	}

	type scored struct {
		comuna     string
		similarity float64
	}
	var candidates []scored
	for _, c := range CountComunas(records) {
		similarity := matchr.JaroWinkler(query, c.Comuna, false)
		if similarity < suggestionThreshold {
			continue
		}
		candidates = append(candidates, scored{comuna: c.Comuna, similarity: similarity})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].similarity > candidates[j].similarity
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.comuna
	}
	return out
}
