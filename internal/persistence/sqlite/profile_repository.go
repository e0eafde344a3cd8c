package sqlite

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/example/room-booking/internal/persistence"
)

const profileColumns = `id, full_name, division, email, phone, role, created_at, updated_at`

// ProfileRepository implements persistence.ProfileRepository using SQLite
type ProfileRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
}

// NewProfileRepository creates a new SQLite profile repository
func NewProfileRepository(pool *ConnectionPool) *ProfileRepository {
	return &ProfileRepository{pool: pool, mapper: NewErrorMapper()}
}

// CreateProfile inserts a new profile.
func (r *ProfileRepository) CreateProfile(ctx context.Context, profile persistence.Profile) error {
	if err := persistence.CheckProfile(profile); err != nil {
		return err
	}

	_, err := r.pool.DB().ExecContext(ctx, `
		INSERT INTO profiles (`+profileColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		profile.ID,
		profile.FullName,
		profile.Division,
		profile.Email,
		profile.Phone,
		profile.Role,
		formatTime(profile.CreatedAt),
		formatTime(profile.UpdatedAt),
	)
	return r.mapper.MapError(err)
}

// GetProfile retrieves a profile by ID.
func (r *ProfileRepository) GetProfile(ctx context.Context, id string) (persistence.Profile, error) {
	row := r.pool.DB().QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = ?`, id)
	profile, err := scanProfile(row)
	if err != nil {
		return persistence.Profile{}, r.mapper.MapError(err)
	}
	return profile, nil
}

// ListProfiles returns the profiles among ids ordered by ID.
func (r *ProfileRepository) ListProfiles(ctx context.Context, ids []string) ([]persistence.Profile, error) {
	if len(ids) == 0 {
		return []persistence.Profile{}, nil
	}

	query, args, err := sqlx.In(`SELECT `+profileColumns+` FROM profiles WHERE id IN (?) ORDER BY id`, ids)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	profiles := make([]persistence.Profile, 0, len(ids))
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		profiles = append(profiles, profile)
	}
	return profiles, r.mapper.MapError(rows.Err())
}

func scanProfile(row rowScanner) (persistence.Profile, error) {
	var (
		profile              persistence.Profile
		createdAt, updatedAt string
	)
	if err := row.Scan(
		&profile.ID,
		&profile.FullName,
		&profile.Division,
		&profile.Email,
		&profile.Phone,
		&profile.Role,
		&createdAt,
		&updatedAt,
	); err != nil {
		return persistence.Profile{}, err
	}

	var err error
	if profile.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Profile{}, err
	}
	if profile.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Profile{}, err
	}
	return profile, nil
}
