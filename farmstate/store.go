package farmstate

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

var (
	// ErrNotFound is returned when a profile or crop does not exist.
	ErrNotFound = errors.New("farmstate: not found")

	// ErrCommitConflict is returned when a delta commit loses a
	// compare-and-swap race on the record version.
	ErrCommitConflict = errors.New("farmstate: version conflict")
)

// Store is the context accessor for farm state. Reads return snapshots;
// the only mutation path for crop progress is CommitCropDelta.
type Store interface {
	GetFarmProfile(ctx context.Context, farmerID int64) (*FarmProfile, error)
	SaveFarmProfile(ctx context.Context, profile *FarmProfile) error

	// GetActiveCrop returns the single active crop for a farmer.
	GetActiveCrop(ctx context.Context, farmerID int64) (*CropRecord, error)

	// CreateCrop inserts a new active crop, deactivating any previous
	// active crop for the same farmer. Records are superseded, not deleted.
	CreateCrop(ctx context.Context, crop *CropRecord) (*CropRecord, error)

	// CommitCropDelta applies a proposed delta if and only if the stored
	// record still carries expectedVersion. Accumulated GDD never goes
	// backwards: a lower proposed value is clamped to the stored one.
	CommitCropDelta(ctx context.Context, farmerID int64, delta CropDelta, expectedVersion int64) (*CropRecord, error)

	AppendDecision(ctx context.Context, rec *DecisionRecord) error
	ListDecisions(ctx context.Context, farmerID int64, limit int) ([]*DecisionRecord, error)

	// Ping reports whether the backing storage is reachable.
	Ping(ctx context.Context) error
}

// MemoryStore implements Store with in-process maps. Used in tests and as
// a degraded mode when no database is configured.
type MemoryStore struct {
	mu        sync.RWMutex
	profiles  map[int64]*FarmProfile
	crops     map[int64][]*CropRecord // farmerID -> records, newest last
	decisions map[int64][]*DecisionRecord
	nextCrop  int64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles:  make(map[int64]*FarmProfile),
		crops:     make(map[int64][]*CropRecord),
		decisions: make(map[int64][]*DecisionRecord),
		nextCrop:  1,
	}
}

func (s *MemoryStore) GetFarmProfile(ctx context.Context, farmerID int64) (*FarmProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[farmerID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *MemoryStore) SaveFarmProfile(ctx context.Context, profile *FarmProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *profile
	now := time.Now()
	if existing, ok := s.profiles[profile.FarmerID]; ok {
		cp.CreatedAt = existing.CreatedAt
	} else {
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now
	s.profiles[profile.FarmerID] = &cp
	return nil
}

func (s *MemoryStore) GetActiveCrop(ctx context.Context, farmerID int64) (*CropRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := len(s.crops[farmerID]) - 1; i >= 0; i-- {
		if s.crops[farmerID][i].Active {
			cp := *s.crops[farmerID][i]
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) CreateCrop(ctx context.Context, crop *CropRecord) (*CropRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.crops[crop.FarmerID] {
		existing.Active = false
	}

	cp := *crop
	cp.ID = s.nextCrop
	s.nextCrop++
	cp.Active = true
	cp.Version = 1
	now := time.Now()
	cp.CreatedAt = now
	cp.UpdatedAt = now
	s.crops[crop.FarmerID] = append(s.crops[crop.FarmerID], &cp)

	out := cp
	return &out, nil
}

func (s *MemoryStore) CommitCropDelta(ctx context.Context, farmerID int64, delta CropDelta, expectedVersion int64) (*CropRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rec *CropRecord
	for i := len(s.crops[farmerID]) - 1; i >= 0; i-- {
		if s.crops[farmerID][i].Active {
			rec = s.crops[farmerID][i]
			break
		}
	}
	if rec == nil {
		return nil, ErrNotFound
	}
	if rec.Version != expectedVersion {
		return nil, ErrCommitConflict
	}

	if delta.AccumulatedGDD > rec.AccumulatedGDD {
		rec.AccumulatedGDD = delta.AccumulatedGDD
		rec.Stage = delta.Stage
		rec.StageProgress = delta.StageProgress
		rec.OverallProgress = delta.OverallProgress
	}
	rec.Version++
	rec.UpdatedAt = time.Now()

	cp := *rec
	return &cp, nil
}

func (s *MemoryStore) AppendDecision(ctx context.Context, rec *DecisionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *rec
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	s.decisions[rec.FarmerID] = append(s.decisions[rec.FarmerID], &cp)
	return nil
}

func (s *MemoryStore) ListDecisions(ctx context.Context, farmerID int64, limit int) ([]*DecisionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs := s.decisions[farmerID]
	out := make([]*DecisionRecord, len(recs))
	for i, r := range recs {
		cp := *r
		out[i] = &cp
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) Ping(ctx context.Context) error { return nil }
