package coach

import (
	"encoding/json"
	"fmt"
	"sort"

	dbcontracts "zenhabit/contracts/db"
)

// HistoryDays 每个习惯带入提示词的最近记录条数
const HistoryDays = 7

type habitSummary struct {
	Name          string   `json:"name"`
	Frequency     string   `json:"frequency"`
	RecentHistory []string `json:"recentHistory"`
}

// RecentHistory renders the last HistoryDays ledger entries in key order as
// "YYYY-MM-DD: Done|Missed".
func RecentHistory(h dbcontracts.Habit) []string {
	keys := make([]string, 0, len(h.Completions))
	for k := range h.Completions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) > HistoryDays {
		keys = keys[len(keys)-HistoryDays:]
	}

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		status := "Missed"
		if h.Completions[k] {
			status = "Done"
		}
		out = append(out, k+": "+status)
	}
	return out
}

func BuildPrompt(habits []dbcontracts.Habit) (string, error) {
	summaries := make([]habitSummary, 0, len(habits))
	for _, h := range habits {
		summaries = append(summaries, habitSummary{
			Name:          h.Name,
			Frequency:     h.Frequency,
			RecentHistory: RecentHistory(h),
		})
	}
	data, err := json.Marshal(summaries)
	if err != nil {
		return "", fmt.Errorf("marshal habit summary: %w", err)
	}

	return fmt.Sprintf(`Act as a minimalist habit coach. Analyze the following habit data for the past week:
%s

Provide a concise reflection on progress, one actionable improvement tip, and a short motivational phrase.
Be encouraging but practical.`, data), nil
}
