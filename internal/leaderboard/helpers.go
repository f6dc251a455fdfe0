package leaderboard

import ws "github.com/hectoclash/hectoclash/pkg/http/ws"

func toWSEntries(entries []Entry) []ws.LeaderboardEntry {
	result := make([]ws.LeaderboardEntry, len(entries))
	for i, e := range entries {
		result[i] = ws.LeaderboardEntry{
			Rank:     e.Rank,
			UserID:   e.UserID.String(),
			Username: e.Username,
			Rating:   e.Rating,
			Wins:     e.Wins,
			Games:    e.Games,
		}
	}
	return result
}

func toWSPayload(entries []Entry) ws.LeaderboardUpdatePayload {
	return ws.LeaderboardUpdatePayload{Top: toWSEntries(entries)}
}
