package services

import (
	"context"
	"fmt"
	"math"

	"github.com/fsdevblog/snipshare/internal/shortcode"
	"github.com/pkg/errors"
)

// Stats счетчики сервиса.
type Stats struct {
	TotalSnippets        int64  `json:"totalSnippets"`
	TotalImages          int64  `json:"totalImages"`
	TotalShortCodes      int    `json:"totalShortCodes"`
	TotalSessions        int64  `json:"totalSessions"`
	PossibleCombinations int64  `json:"possibleCombinations"`
	UniquenessPercentage string `json:"uniquenessPercentage"` // Доля занятых кодов в процентах
}

// PossibleCombinations размер пространства коротких кодов.
var PossibleCombinations = int64(math.Pow(float64(len(shortcode.Alphabet)), shortcode.Length))

type StatsService struct {
	snippets SnippetRepository
	images   ImageRepository
	sessions SessionRepository
	codes    CodeAllocator
}

func NewStatsService(
	snippets SnippetRepository,
	images ImageRepository,
	sessions SessionRepository,
	codes CodeAllocator,
) *StatsService {
	return &StatsService{snippets: snippets, images: images, sessions: sessions, codes: codes}
}

func (s *StatsService) Stats(ctx context.Context) (*Stats, error) {
	snippets, err := s.snippets.Count(ctx)
	if err != nil {
		return nil, errors.Wrapf(ErrStorage, "count snippets: %s", err.Error())
	}
	images, err := s.images.Count(ctx)
	if err != nil {
		return nil, errors.Wrapf(ErrStorage, "count images: %s", err.Error())
	}
	sessions, err := s.sessions.Count(ctx)
	if err != nil {
		return nil, errors.Wrapf(ErrStorage, "count sessions: %s", err.Error())
	}
	codes := s.codes.Len()
	return &Stats{
		TotalSnippets:        snippets,
		TotalImages:          images,
		TotalShortCodes:      codes,
		TotalSessions:        sessions,
		PossibleCombinations: PossibleCombinations,
		UniquenessPercentage: fmt.Sprintf("%.10f", float64(codes)/float64(PossibleCombinations)*100), //nolint:mnd
	}, nil
}
