package service

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/radflow-triage-server/internal/domain"
)

// AnalysisHistory keeps the most recent successful report analyses in
// memory for display. Nothing here is persisted.
type AnalysisHistory struct {
	cache *lru.Cache[string, domain.AnalysisRecord]
	clock func() time.Time
}

// NewAnalysisHistory creates a history bounded to maxItems entries.
func NewAnalysisHistory(maxItems int) (*AnalysisHistory, error) {
	cache, err := lru.New[string, domain.AnalysisRecord](maxItems)
	if err != nil {
		return nil, fmt.Errorf("failed to create analysis history: %w", err)
	}
	return &AnalysisHistory{cache: cache, clock: time.Now}, nil
}

// Record stores an analysis and returns the entry created for it.
func (h *AnalysisHistory) Record(reportText string, analysis domain.ReportAnalysis) domain.AnalysisRecord {
	record := domain.AnalysisRecord{
		ID:         uuid.NewString(),
		ReportText: reportText,
		Analysis:   analysis,
		CreatedAt:  h.clock().UTC(),
	}
	h.cache.Add(record.ID, record)
	return record
}

// Get returns a recorded analysis by id.
func (h *AnalysisHistory) Get(id string) (domain.AnalysisRecord, bool) {
	return h.cache.Peek(id)
}

// Recent returns up to limit records, newest first. A limit of zero or less
// returns everything held.
func (h *AnalysisHistory) Recent(limit int) []domain.AnalysisRecord {
	values := h.cache.Values()
	records := make([]domain.AnalysisRecord, 0, len(values))
	for i := len(values) - 1; i >= 0; i-- {
		records = append(records, values[i])
	}
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records
}

// Len returns the number of records held.
func (h *AnalysisHistory) Len() int {
	return h.cache.Len()
}
