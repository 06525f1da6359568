// Package service holds the worklist state and the analysis history.
package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/radflow-triage-server/internal/domain"
)

const (
	defaultIDDigits = 4
	maxIDDigits     = 9
	maxIDAttempts   = 64
	arrivalLayout   = "15:04"
	saveTimeout     = 10 * time.Second
)

// StudyStore owns the canonical worklist. Every mutation is mirrored to the
// injected snapshot slot; persistence failures are logged and never undo
// the in-memory change.
//
// Several processes sharing one slot are not coordinated: whichever saves
// last wins.
type StudyStore struct {
	mu      sync.Mutex
	studies []domain.PatientStudy

	persist domain.SnapshotStore
	logger  *logrus.Logger
	clock   func() time.Time
	ids     IDGenerator
	seed    func() []domain.PatientStudy

	persistErr error

	subMu       sync.Mutex
	subscribers map[int]chan []domain.PatientStudy
	nextSubID   int
}

// StudyStoreOption is a functional option for StudyStore.
type StudyStoreOption func(*StudyStore)

// WithClock overrides the time source used for arrival times.
func WithClock(clock func() time.Time) StudyStoreOption {
	return func(s *StudyStore) {
		s.clock = clock
	}
}

// WithIDGenerator overrides the id source.
func WithIDGenerator(gen IDGenerator) StudyStoreOption {
	return func(s *StudyStore) {
		s.ids = gen
	}
}

// WithSeed overrides the list used when no snapshot is stored.
func WithSeed(seed func() []domain.PatientStudy) StudyStoreOption {
	return func(s *StudyStore) {
		s.seed = seed
	}
}

// NewStudyStore creates an empty store. Call Initialize before use.
func NewStudyStore(persist domain.SnapshotStore, logger *logrus.Logger, opts ...StudyStoreOption) *StudyStore {
	s := &StudyStore{
		studies:     []domain.PatientStudy{},
		persist:     persist,
		logger:      logger,
		clock:       time.Now,
		ids:         RandomIDGenerator{},
		seed:        SeedStudies,
		subscribers: make(map[int]chan []domain.PatientStudy),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize loads the stored snapshot, or the seed list when the slot is
// empty, unreadable or malformed. A malformed slot is left untouched until
// the next mutation overwrites it.
func (s *StudyStore) Initialize(ctx context.Context) []domain.PatientStudy {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.studies = s.loadOrSeed(ctx)
	s.logger.WithField("studies", len(s.studies)).Info("Worklist initialized")
	return cloneStudies(s.studies)
}

func (s *StudyStore) loadOrSeed(ctx context.Context) []domain.PatientStudy {
	data, ok, err := s.persist.Load(ctx)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to read worklist snapshot, using seed list")
		return s.seed()
	}
	if !ok {
		return s.seed()
	}

	studies, err := domain.DecodeStudies(data)
	if err != nil {
		s.logger.WithError(err).Warn("Stored worklist snapshot is malformed, using seed list")
		return s.seed()
	}
	return studies
}

// Add prepends study to the worklist. The caller supplies the id; no
// collision check is made.
func (s *StudyStore) Add(ctx context.Context, study domain.PatientStudy) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.studies = append([]domain.PatientStudy{study}, s.studies...)
	s.notify(s.saveLocked(ctx))
}

// Update merges patch into the study with the given id. A missing id is a
// silent no-op reported only through the boolean. Status changes are not
// checked against the nominal workflow order.
func (s *StudyStore) Update(ctx context.Context, id string, patch domain.StudyPatch) (domain.PatientStudy, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		s.logger.WithField("study_id", id).Debug("Update skipped, study not found")
		return domain.PatientStudy{}, false
	}

	updated := patch.Apply(s.studies[idx])
	s.studies[idx] = updated
	s.notify(s.saveLocked(ctx))
	return updated, true
}

// Snapshot returns a copy of the current worklist, newest first.
func (s *StudyStore) Snapshot() []domain.PatientStudy {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneStudies(s.studies)
}

// RegisterStudy creates a study from staff-supplied fields and prepends it.
func (s *StudyStore) RegisterStudy(ctx context.Context, req domain.RegisterStudyRequest) domain.PatientStudy {
	s.mu.Lock()
	study := domain.PatientStudy{
		ID:          s.newIDLocked(),
		Name:        req.Name,
		Age:         req.Age,
		Gender:      req.Gender,
		Modality:    req.Modality,
		StudyType:   req.StudyType,
		Status:      domain.StatusRegistered,
		Priority:    req.Priority,
		ArrivalTime: s.clock().Format(arrivalLayout),
	}
	s.studies = append([]domain.PatientStudy{study}, s.studies...)
	s.notify(s.saveLocked(ctx))
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"study_id": study.ID,
		"modality": study.Modality,
		"priority": study.Priority,
	}).Info("Study registered")
	return study
}

// PatchStudy applies a partial update; see Update.
func (s *StudyStore) PatchStudy(ctx context.Context, id string, patch domain.StudyPatch) (domain.PatientStudy, bool) {
	return s.Update(ctx, id, patch)
}

// ListStudies returns the ordered worklist.
func (s *StudyStore) ListStudies() []domain.PatientStudy {
	return s.Snapshot()
}

// GetStudy returns a single study by id.
func (s *StudyStore) GetStudy(id string) (domain.PatientStudy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return domain.PatientStudy{}, domain.ErrStudyNotFound
	}
	return s.studies[idx], nil
}

// Stats derives the dashboard counters.
func (s *StudyStore) Stats() domain.StudyStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.ComputeStats(s.studies)
}

// PersistError returns the most recent save failure, or nil if the last
// save succeeded.
func (s *StudyStore) PersistError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistErr
}

// Reset replaces the worklist with the seed list and persists it.
func (s *StudyStore) Reset(ctx context.Context) []domain.PatientStudy {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.studies = s.seed()
	snapshot := s.saveLocked(ctx)
	s.notify(snapshot)
	return snapshot
}

// Subscribe registers for change notifications. Each mutation delivers the
// resulting worklist; a slow subscriber only ever sees the latest one.
// The returned function unsubscribes and closes the channel.
func (s *StudyStore) Subscribe() (<-chan []domain.PatientStudy, func()) {
	ch := make(chan []domain.PatientStudy, 1)

	s.subMu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = ch
	s.subMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subscribers, id)
			s.subMu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// notify runs under s.mu so subscribers observe mutations in order.
func (s *StudyStore) notify(studies []domain.PatientStudy) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	for _, ch := range s.subscribers {
		// Drop a stale pending snapshot so the newest one fits.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- cloneStudies(studies):
		default:
		}
	}
}

// saveLocked writes the full list to the slot and returns a copy of it for
// notification. The write outlives cancellation of ctx since the in-memory
// change has already been accepted. Caller holds s.mu.
func (s *StudyStore) saveLocked(ctx context.Context) []domain.PatientStudy {
	snapshot := cloneStudies(s.studies)

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), saveTimeout)
	defer cancel()

	data, err := json.Marshal(snapshot)
	if err == nil {
		err = s.persist.Save(saveCtx, data)
	}
	if err != nil {
		s.persistErr = err
		s.logger.WithError(err).WithField("studies", len(snapshot)).
			Warn("Failed to persist worklist snapshot; keeping in-memory state")
		return snapshot
	}
	s.persistErr = nil
	return snapshot
}

func (s *StudyStore) indexLocked(id string) int {
	for i := range s.studies {
		if s.studies[i].ID == id {
			return i
		}
	}
	return -1
}

// newIDLocked draws ids until one is unused, widening the numeric part
// once the current width is exhausted or keeps colliding. Past maxIDDigits
// it gives up on the numeric form and uses a uuid suffix.
func (s *StudyStore) newIDLocked() string {
	used := make(map[string]bool, len(s.studies))
	for _, study := range s.studies {
		used[study.ID] = true
	}

	for digits := defaultIDDigits; digits <= maxIDDigits; digits++ {
		if countWidth(used, digits) >= idSpace(digits) {
			continue
		}
		for attempt := 0; attempt < maxIDAttempts; attempt++ {
			candidate := s.ids.NextID(digits)
			if !used[candidate] {
				return candidate
			}
		}
		s.logger.WithField("digits", digits).Warn("Study id space congested, widening ids")
	}

	for {
		candidate := "P-" + uuid.NewString()
		if !used[candidate] {
			s.logger.WithField("id", candidate).Warn("Numeric study ids exhausted, using uuid id")
			return candidate
		}
	}
}

func countWidth(used map[string]bool, digits int) int {
	n := 0
	for id := range used {
		if len(id) == len("P-")+digits {
			n++
		}
	}
	return n
}

func cloneStudies(studies []domain.PatientStudy) []domain.PatientStudy {
	out := make([]domain.PatientStudy, len(studies))
	copy(out, studies)
	return out
}
