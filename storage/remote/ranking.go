package remote

import (
	"context"

	"github.com/sendgrid/rest"

	"github.com/edukanda/edukanda/core/ranking"
)

// RankingSource reads the leaderboard computed by the API.
type RankingSource struct {
	client *Client
}

var _ ranking.Source = (*RankingSource)(nil) // interface compliance check

func NewRankingSource(client *Client) *RankingSource {
	return &RankingSource{client: client}
}

func (src *RankingSource) RankingEntries(ctx context.Context) ([]ranking.Entry, error) {
	var entries []ranking.Entry
	if err := src.client.do(ctx, rest.Get, "/ranking", nil, nil, &entries, nil); err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []ranking.Entry{}
	}
	return entries, nil
}
