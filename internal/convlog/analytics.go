package convlog

import (
	"sort"
)

// IntentCount pairs an intent label with its interaction count.
type IntentCount struct {
	Intent string `json:"intent"`
	Count  int    `json:"count"`
}

// Analytics is the fold over the full interaction log.
type Analytics struct {
	TotalInteractions int            `json:"total_interactions"`
	UniqueUsers       int            `json:"unique_users"`
	AverageConfidence float64        `json:"average_confidence"`
	TopIntents        []IntentCount  `json:"top_intents"`
	DailyVolume       map[string]int `json:"daily_volume"`
}

const topIntentsLimit = 10

// Fold computes analytics from entries. TopIntents holds at most ten
// labels sorted by descending count (label ascending on ties, so the
// output is deterministic). DailyVolume keys are calendar days in
// YYYY-MM-DD form.
func Fold(entries []Entry) Analytics {
	a := Analytics{
		TopIntents:  []IntentCount{},
		DailyVolume: map[string]int{},
	}

	if len(entries) == 0 {
		return a
	}

	a.TotalInteractions = len(entries)

	users := make(map[string]bool)
	intents := make(map[string]int)
	var confidenceSum float64

	for _, e := range entries {
		users[e.UserID] = true
		intents[e.Intent]++
		confidenceSum += e.Confidence
		a.DailyVolume[e.Timestamp.Format("2006-01-02")]++
	}

	a.UniqueUsers = len(users)
	a.AverageConfidence = confidenceSum / float64(len(entries))

	for intent, count := range intents {
		a.TopIntents = append(a.TopIntents, IntentCount{Intent: intent, Count: count})
	}
	sort.Slice(a.TopIntents, func(i, j int) bool {
		if a.TopIntents[i].Count != a.TopIntents[j].Count {
			return a.TopIntents[i].Count > a.TopIntents[j].Count
		}
		return a.TopIntents[i].Intent < a.TopIntents[j].Intent
	})
	if len(a.TopIntents) > topIntentsLimit {
		a.TopIntents = a.TopIntents[:topIntentsLimit]
	}

	return a
}
