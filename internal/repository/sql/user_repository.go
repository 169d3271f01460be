package sql

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/iyhunko/mechanic-matching/internal/geo"
	"github.com/iyhunko/mechanic-matching/internal/model"
	"github.com/iyhunko/mechanic-matching/internal/repository"
	"github.com/lib/pq"
)

const (
	userColumns = `id, name, email, password_hash, phone, address, city, state, postal_code,
	latitude, longitude, last_location_update, is_active, roles, created_at, updated_at`

	// maxProximityCandidates bounds the rows loaded for an in-memory distance check.
	maxProximityCandidates = 1000
)

// UserRepository stores users in the users table.
type UserRepository struct {
	base
}

// NewUserRepository creates a new UserRepository instance.
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{base{db: db}}
}

// Create inserts a new user into the database.
func (r *UserRepository) Create(ctx context.Context, user *model.User) (*model.User, error) {
	if user.ID == uuid.Nil {
		user.InitMeta()
	}

	query := `INSERT INTO users (` + userColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	_, err := r.exec(ctx, query,
		user.ID, user.Name, user.Email, user.PasswordHash, user.Phone, user.Address, user.City, user.State, user.PostalCode,
		user.Latitude, user.Longitude, user.LastLocationUpdate, user.IsActive, pq.Array(user.Roles.Strings()),
		user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if uniqueErr, ok := asUniqueConstraintError(err); ok {
			return nil, uniqueErr
		}
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}

	return user, nil
}

// FindByID retrieves a single user by ID.
func (r *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// FindByEmail retrieves a single user by email address.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *UserRepository) findOne(ctx context.Context, query string, arg any) (*model.User, error) {
	stmt, err := r.getExecutor().PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare select statement: %w", err)
	}
	defer stmt.Close()

	user, err := scanUser(stmt.QueryRowContext(ctx, arg))
	if err != nil {
		return nil, notFound(err, "user")
	}
	return user, nil
}

// List retrieves users from the database based on the provided query, newest first.
func (r *UserRepository) List(ctx context.Context, query repository.Query) ([]*model.User, error) {
	w := newWhereBuilder(`SELECT ` + userColumns + ` FROM users`)
	if err := applyUserFilters(w, query); err != nil {
		return nil, err
	}

	if query.Paginator != nil {
		w.and(fmt.Sprintf("(created_at, id) < (%s, %s)", w.next(query.Paginator.LastCreatedAt), w.next(query.Paginator.LastID)))
	}
	w.raw(" ORDER BY created_at DESC, id DESC")

	limit := query.Limit
	if limit <= 0 {
		limit = repository.DefaultPaginationLimit
	}
	w.raw(" LIMIT " + w.next(limit))

	return r.list(ctx, w)
}

// ListWithin returns located users inside box, closest to the box center first.
func (r *UserRepository) ListWithin(ctx context.Context, box geo.Box, query repository.Query) ([]*model.User, error) {
	w := newWhereBuilder(`SELECT ` + userColumns + ` FROM users`)
	w.and("latitude IS NOT NULL AND longitude IS NOT NULL")
	w.and(fmt.Sprintf("latitude BETWEEN %s AND %s", w.next(box.MinLatitude), w.next(box.MaxLatitude)))
	w.and(fmt.Sprintf("longitude BETWEEN %s AND %s", w.next(box.MinLongitude), w.next(box.MaxLongitude)))
	if err := applyUserFilters(w, query); err != nil {
		return nil, err
	}
	w.orderByProximity("latitude", "longitude", box.Center)
	w.raw(", id ASC LIMIT " + w.next(maxProximityCandidates))

	return r.list(ctx, w)
}

func (r *UserRepository) list(ctx context.Context, w *whereBuilder) ([]*model.User, error) {
	var users []*model.User
	err := r.queryRows(ctx, w.String(), w.args, func(rows *sql.Rows) error {
		user, err := scanUser(rows)
		if err != nil {
			return fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func applyUserFilters(w *whereBuilder, query repository.Query) error {
	for _, field := range query.Fields() {
		value := query.Values[field]
		switch field {
		case repository.IDField:
			id, err := uuid.Parse(value)
			if err != nil {
				return fmt.Errorf("invalid ID format: %w", err)
			}
			w.and("id = " + w.next(id))
		case repository.RoleField:
			w.and(w.next(value) + " = ANY(roles)")
		case repository.ActiveField:
			active, err := strconv.ParseBool(value)
			if err != nil {
				return fmt.Errorf("invalid is_active value: %w", err)
			}
			w.and("is_active = " + w.next(active))
		case repository.SearchField:
			p := w.next("%" + value + "%")
			w.and(fmt.Sprintf("(name ILIKE %s OR email ILIKE %s)", p, p))
		}
	}
	return nil
}

// Update writes the mutable user columns, including roles, status and location.
func (r *UserRepository) Update(ctx context.Context, user *model.User) error {
	query := `UPDATE users SET name = $1, email = $2, phone = $3, address = $4, city = $5, state = $6,
	          postal_code = $7, latitude = $8, longitude = $9, last_location_update = $10, is_active = $11,
	          roles = $12, updated_at = NOW()
	          WHERE id = $13`

	result, err := r.exec(ctx, query,
		user.Name, user.Email, user.Phone, user.Address, user.City, user.State,
		user.PostalCode, user.Latitude, user.Longitude, user.LastLocationUpdate, user.IsActive,
		pq.Array(user.Roles.Strings()), user.ID,
	)
	if err != nil {
		if uniqueErr, ok := asUniqueConstraintError(err); ok {
			return uniqueErr
		}
		return fmt.Errorf("failed to update user: %w", err)
	}

	return expectOneRow(result, fmt.Errorf("user not found: %w", repository.ErrNotFound))
}

// Delete deletes a user by ID; owned vehicles, profiles and requests cascade.
func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	return expectOneRow(result, fmt.Errorf("user not found: %w", repository.ErrNotFound))
}

// LockAdmins locks every active administrator row until the transaction ends.
func (r *UserRepository) LockAdmins(ctx context.Context) ([]uuid.UUID, error) {
	query := `SELECT id FROM users WHERE $1 = ANY(roles) AND is_active ORDER BY id FOR UPDATE`

	var ids []uuid.UUID
	err := r.queryRows(ctx, query, []any{string(model.RoleAdmin)}, func(rows *sql.Rows) error {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("failed to scan admin id: %w", err)
		}
		ids = append(ids, id)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to lock administrators: %w", err)
	}
	return ids, nil
}

// userScan collects the nullable and array columns of a users row.
type userScan struct {
	user       model.User
	lat, lon   sql.NullFloat64
	lastUpdate sql.NullTime
	roles      []string
}

func (s *userScan) dest() []any {
	u := &s.user
	return []any{
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Phone, &u.Address, &u.City, &u.State,
		&u.PostalCode, &s.lat, &s.lon, &s.lastUpdate, &u.IsActive, pq.Array(&s.roles), &u.CreatedAt, &u.UpdatedAt,
	}
}

func (s *userScan) result() *model.User {
	user := s.user
	user.Latitude = floatPtr(s.lat)
	user.Longitude = floatPtr(s.lon)
	user.LastLocationUpdate = timePtr(s.lastUpdate)
	user.Roles = model.NewRoleSet()
	for _, role := range s.roles {
		user.Roles.Add(model.Role(role))
	}
	return &user
}

func scanUser(row rowScanner) (*model.User, error) {
	var s userScan
	if err := row.Scan(s.dest()...); err != nil {
		return nil, err
	}
	return s.result(), nil
}
