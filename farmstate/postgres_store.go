package farmstate

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgresStore implements Store backed by PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed Store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) GetFarmProfile(ctx context.Context, farmerID int64) (*FarmProfile, error) {
	var (
		p        FarmProfile
		lat, lon sql.NullFloat64
		locName  sql.NullString
		name     sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT farmer_id, name, language, latitude, longitude, location_name,
		       land_size_acres, irrigation_type, created_at, updated_at
		FROM farm_profiles
		WHERE farmer_id = $1
	`, farmerID).Scan(
		&p.FarmerID, &name, &p.Language, &lat, &lon, &locName,
		&p.LandSizeAcres, &p.Irrigation, &p.CreatedAt, &p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get farm profile: %w", err)
	}

	p.Name = name.String
	p.LocationName = locName.String
	if lat.Valid && lon.Valid {
		p.Latitude = lat.Float64
		p.Longitude = lon.Float64
		p.HasLocation = true
	}
	return &p, nil
}

func (s *PostgresStore) SaveFarmProfile(ctx context.Context, profile *FarmProfile) error {
	var lat, lon any
	if profile.HasLocation {
		lat, lon = profile.Latitude, profile.Longitude
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO farm_profiles
			(farmer_id, name, language, latitude, longitude, location_name,
			 land_size_acres, irrigation_type, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		ON CONFLICT (farmer_id) DO UPDATE SET
			name = EXCLUDED.name,
			language = EXCLUDED.language,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			location_name = EXCLUDED.location_name,
			land_size_acres = EXCLUDED.land_size_acres,
			irrigation_type = EXCLUDED.irrigation_type,
			updated_at = NOW()
	`, profile.FarmerID, profile.Name, profile.Language, lat, lon,
		profile.LocationName, profile.LandSizeAcres, profile.Irrigation)
	if err != nil {
		return fmt.Errorf("failed to save farm profile: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetActiveCrop(ctx context.Context, farmerID int64) (*CropRecord, error) {
	var (
		c       CropRecord
		variety sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, farmer_id, crop_kind, variety, sowing_date, accumulated_gdd,
		       stage, stage_progress, overall_progress, active, version,
		       created_at, updated_at
		FROM crops
		WHERE farmer_id = $1 AND active = true
		ORDER BY created_at DESC
		LIMIT 1
	`, farmerID).Scan(
		&c.ID, &c.FarmerID, &c.CropKind, &variety, &c.SowingDate,
		&c.AccumulatedGDD, &c.Stage, &c.StageProgress, &c.OverallProgress,
		&c.Active, &c.Version, &c.CreatedAt, &c.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active crop: %w", err)
	}
	c.Variety = variety.String
	return &c, nil
}

func (s *PostgresStore) CreateCrop(ctx context.Context, crop *CropRecord) (*CropRecord, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		UPDATE crops SET active = false, updated_at = NOW()
		WHERE farmer_id = $1 AND active = true
	`, crop.FarmerID)
	if err != nil {
		return nil, fmt.Errorf("failed to supersede active crop: %w", err)
	}

	out := *crop
	out.Active = true
	out.Version = 1
	err = tx.QueryRowContext(ctx, `
		INSERT INTO crops
			(farmer_id, crop_kind, variety, sowing_date, accumulated_gdd,
			 stage, stage_progress, overall_progress, active, version,
			 created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, true, 1, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`, crop.FarmerID, crop.CropKind, crop.Variety, crop.SowingDate,
		crop.AccumulatedGDD, crop.Stage, crop.StageProgress,
		crop.OverallProgress).Scan(&out.ID, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert crop: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit crop insert: %w", err)
	}
	return &out, nil
}

func (s *PostgresStore) CommitCropDelta(ctx context.Context, farmerID int64, delta CropDelta, expectedVersion int64) (*CropRecord, error) {
	// GREATEST keeps accumulated GDD monotonic even if the proposed value
	// was computed from a stale snapshot. CASE applies stage fields only
	// when the GDD actually advances.
	var c CropRecord
	var variety sql.NullString
	err := s.db.QueryRowContext(ctx, `
		UPDATE crops SET
			stage            = CASE WHEN $1 > accumulated_gdd THEN $2 ELSE stage END,
			stage_progress   = CASE WHEN $1 > accumulated_gdd THEN $3 ELSE stage_progress END,
			overall_progress = CASE WHEN $1 > accumulated_gdd THEN $4 ELSE overall_progress END,
			accumulated_gdd  = GREATEST(accumulated_gdd, $1),
			version          = version + 1,
			updated_at       = NOW()
		WHERE farmer_id = $5 AND active = true AND version = $6
		RETURNING id, farmer_id, crop_kind, variety, sowing_date, accumulated_gdd,
		          stage, stage_progress, overall_progress, active, version,
		          created_at, updated_at
	`, delta.AccumulatedGDD, delta.Stage, delta.StageProgress,
		delta.OverallProgress, farmerID, expectedVersion).Scan(
		&c.ID, &c.FarmerID, &c.CropKind, &variety, &c.SowingDate,
		&c.AccumulatedGDD, &c.Stage, &c.StageProgress, &c.OverallProgress,
		&c.Active, &c.Version, &c.CreatedAt, &c.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		// Distinguish a missing crop from a lost CAS race.
		var exists bool
		checkErr := s.db.QueryRowContext(ctx, `
			SELECT EXISTS(SELECT 1 FROM crops WHERE farmer_id = $1 AND active = true)
		`, farmerID).Scan(&exists)
		if checkErr != nil {
			return nil, fmt.Errorf("failed to check crop existence: %w", checkErr)
		}
		if !exists {
			return nil, ErrNotFound
		}
		return nil, ErrCommitConflict
	}
	if err != nil {
		return nil, fmt.Errorf("failed to commit crop delta: %w", err)
	}
	c.Variety = variety.String
	return &c, nil
}

func (s *PostgresStore) AppendDecision(ctx context.Context, rec *DecisionRecord) error {
	sources, err := json.Marshal(rec.DataSources)
	if err != nil {
		return fmt.Errorf("failed to marshal data sources: %w", err)
	}
	alerts, err := json.Marshal(rec.Alerts)
	if err != nil {
		return fmt.Errorf("failed to marshal alerts: %w", err)
	}

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO decisions
			(id, farmer_id, intent, recommendation, confidence, reasoning,
			 data_sources, alerts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, rec.ID, rec.FarmerID, rec.Intent, rec.Recommendation, rec.Confidence,
		rec.Reasoning, sources, alerts, createdAt)
	if err != nil {
		return fmt.Errorf("failed to insert decision: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListDecisions(ctx context.Context, farmerID int64, limit int) ([]*DecisionRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, farmer_id, intent, recommendation, confidence, reasoning,
		       data_sources, alerts, created_at
		FROM decisions
		WHERE farmer_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, farmerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list decisions: %w", err)
	}
	defer rows.Close()

	var out []*DecisionRecord
	for rows.Next() {
		var (
			r       DecisionRecord
			sources []byte
			alerts  []byte
		)
		if err := rows.Scan(&r.ID, &r.FarmerID, &r.Intent, &r.Recommendation,
			&r.Confidence, &r.Reasoning, &sources, &alerts, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan decision: %w", err)
		}
		if err := json.Unmarshal(sources, &r.DataSources); err != nil {
			return nil, fmt.Errorf("invalid data_sources for decision %s: %w", r.ID, err)
		}
		if err := json.Unmarshal(alerts, &r.Alerts); err != nil {
			return nil, fmt.Errorf("invalid alerts for decision %s: %w", r.ID, err)
		}
		out = append(out, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating decisions: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
