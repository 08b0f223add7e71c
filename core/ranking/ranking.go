package ranking

import (
	"context"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Mode is the tie policy of a leaderboard.
type Mode string

const (
	// ModeSequential gives tied entries distinct consecutive ranks in input order: [100 100 50] -> [1 2 3].
	ModeSequential Mode = "sequential"
	// ModeCompetition gives tied entries the same rank and skips the next ones: [100 100 50] -> [1 1 3].
	ModeCompetition Mode = "competition"
)

// ParseMode returns the Mode named s, defaulting to ModeSequential.
func ParseMode(s string) Mode {
	if Mode(strings.ToLower(strings.TrimSpace(s))) == ModeCompetition {
		return ModeCompetition
	}
	return ModeSequential
}

type Entry struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
	Points int    `json:"points"`
	Rank   int    `json:"rank"`
}

// Rank returns a copy of entries sorted by points, descending, with 1-based ranks assigned per mode.
// The sort is stable.
func Rank(entries []Entry, mode Mode) []Entry {
	ranked := make([]Entry, len(entries))
	copy(ranked, entries)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Points > ranked[j].Points
	})
	for i := range ranked {
		ranked[i].Rank = i + 1
		if mode == ModeCompetition && i > 0 && ranked[i].Points == ranked[i-1].Points {
			ranked[i].Rank = ranked[i-1].Rank
		}
	}
	return ranked
}

type (
	// Source provides the entries of the leaderboard.
	Source interface {
		RankingEntries(ctx context.Context) ([]Entry, error)
	}

	// RankWriter stores computed ranks, keyed by entry ID.
	RankWriter interface {
		SetRanks(ctx context.Context, ranks map[int]int) error
	}

	Service struct {
		source Source
		writer RankWriter
		mode   Mode
	}
)

// NewService returns a ranking Service. writer may be nil when ranks are not stored (remote mode).
func NewService(source Source, writer RankWriter, mode Mode) *Service {
	return &Service{source: source, writer: writer, mode: mode}
}

// Leaderboard returns the ranked entries.
func (svc *Service) Leaderboard(ctx context.Context) ([]Entry, error) {
	entries, err := svc.source.RankingEntries(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "getting ranking entries")
	}
	return Rank(entries, svc.mode), nil
}

// Refresh recomputes the leaderboard and stores the ranks.
func (svc *Service) Refresh(ctx context.Context) error {
	if svc.writer == nil {
		return nil
	}
	entries, err := svc.Leaderboard(ctx)
	if err != nil {
		return err
	}
	ranks := make(map[int]int, len(entries))
	for _, e := range entries {
		ranks[e.ID] = e.Rank
	}
	return errors.Wrap(svc.writer.SetRanks(ctx, ranks), "setting ranks")
}
