package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/arturoeanton/cirkle/internal/domain"
	"github.com/arturoeanton/cirkle/internal/port"
)

// PostgresStore handles all relational database operations.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore opens a connection and returns a store instance.
func NewPostgresStore(databaseURL string) (*PostgresStore, error) {
	db, err := sqlx.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// DB returns the underlying handle for use in transactions.
func (s *PostgresStore) DB() *sqlx.DB {
	return s.db
}

// --- Users ---

const userColumns = `id, email, name, avatar_url, provider, provider_id, role,
	access_token, refresh_token, token_expiry, created_at, updated_at`

// UpsertUser inserts or updates a user by provider + provider_id. An empty
// refresh token keeps the stored one; Google only sends it on first consent.
func (s *PostgresStore) UpsertUser(ctx context.Context, u *domain.User) (*domain.User, error) {
	query := `
		INSERT INTO users (id, email, name, avatar_url, provider, provider_id, role,
		                   access_token, refresh_token, token_expiry)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (provider, provider_id) DO UPDATE SET
			email = EXCLUDED.email,
			name = EXCLUDED.name,
			avatar_url = EXCLUDED.avatar_url,
			access_token = EXCLUDED.access_token,
			refresh_token = COALESCE(NULLIF(EXCLUDED.refresh_token, ''), users.refresh_token),
			token_expiry = EXCLUDED.token_expiry,
			updated_at = NOW()
		RETURNING ` + userColumns

	role := u.Role
	if role == "" {
		role = "user"
	}

	var user domain.User
	err := s.db.GetContext(ctx, &user, query,
		u.Email, u.Name, u.AvatarURL, u.Provider, u.ProviderID, role,
		u.AccessToken, u.RefreshToken, u.TokenExpiry,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	return &user, nil
}

// GetUserByID retrieves a user by ID.
func (s *PostgresStore) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	var user domain.User
	err := s.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE id::text = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}

// --- Groups ---

// CreateGroup stores the group row and its initial members in one transaction.
func (s *PostgresStore) CreateGroup(ctx context.Context, g *domain.Group) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create group: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `INSERT INTO groups (id, name, created_by, created_at, updated_at)
	          VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()), $2, $3, $4, $5)
	          RETURNING id`
	if err := tx.GetContext(ctx, &g.ID, query, g.ID, g.Name, g.CreatedBy, g.CreatedAt, g.UpdatedAt); err != nil {
		return fmt.Errorf("insert group: %w", err)
	}
	for userID, active := range g.Members {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO group_members (group_id, user_id, active) VALUES ($1, $2, $3)`,
			g.ID, userID, active); err != nil {
			return fmt.Errorf("insert member: %w", err)
		}
	}
	return tx.Commit()
}

// GetGroup loads a group with its members and resources.
func (s *PostgresStore) GetGroup(ctx context.Context, groupID string) (*domain.Group, error) {
	var g domain.Group
	err := s.db.GetContext(ctx, &g,
		`SELECT id, name, created_by, created_at, updated_at FROM groups WHERE id::text = $1`, groupID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrGroupNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get group: %w", err)
	}
	if err := s.loadGroupDetails(ctx, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// ListGroupsByMember returns the groups the user belongs to, oldest first.
func (s *PostgresStore) ListGroupsByMember(ctx context.Context, userID string) ([]domain.Group, error) {
	var groups []domain.Group
	query := `SELECT g.id, g.name, g.created_by, g.created_at, g.updated_at
	          FROM groups g
	          JOIN group_members m ON m.group_id = g.id
	          WHERE m.user_id = $1 AND m.active
	          ORDER BY g.created_at`
	if err := s.db.SelectContext(ctx, &groups, query, userID); err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	for i := range groups {
		if err := s.loadGroupDetails(ctx, &groups[i]); err != nil {
			return nil, err
		}
	}
	return groups, nil
}

func (s *PostgresStore) loadGroupDetails(ctx context.Context, g *domain.Group) error {
	var members []struct {
		UserID string `db:"user_id"`
		Active bool   `db:"active"`
	}
	if err := s.db.SelectContext(ctx, &members,
		`SELECT user_id, active FROM group_members WHERE group_id = $1`, g.ID); err != nil {
		return fmt.Errorf("list members: %w", err)
	}
	g.Members = make(map[string]bool, len(members))
	for _, m := range members {
		g.Members[m.UserID] = m.Active
	}

	var resources []domain.Resource
	if err := s.db.SelectContext(ctx, &resources,
		`SELECT `+resourceColumns+` FROM group_resources WHERE group_id = $1 ORDER BY created_at, id`, g.ID); err != nil {
		return fmt.Errorf("list resources: %w", err)
	}
	g.Resources = domain.Resources{}
	for _, r := range resources {
		switch r.Kind {
		case domain.ResourceKindDocuments:
			g.Resources.Documents = append(g.Resources.Documents, r)
		case domain.ResourceKindFiles:
			g.Resources.Files = append(g.Resources.Files, r)
		}
	}
	return nil
}

// touchGroup bumps updated_at and reports port.ErrGroupNotFound for unknown ids.
func (s *PostgresStore) touchGroup(ctx context.Context, q sqlx.ExecerContext, groupID string) error {
	res, err := q.ExecContext(ctx, `UPDATE groups SET updated_at = NOW() WHERE id::text = $1`, groupID)
	if err != nil {
		return fmt.Errorf("touch group: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return port.ErrGroupNotFound
	}
	return nil
}

// AddMember marks the user as an active member.
func (s *PostgresStore) AddMember(ctx context.Context, groupID, userID string) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.touchGroup(ctx, tx, groupID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO group_members (group_id, user_id, active) VALUES ($1, $2, TRUE)
			ON CONFLICT (group_id, user_id) DO UPDATE SET active = TRUE`, groupID, userID)
		if err != nil {
			return fmt.Errorf("add member: %w", err)
		}
		return nil
	})
}

// RemoveMember clears the user's membership flag.
func (s *PostgresStore) RemoveMember(ctx context.Context, groupID, userID string) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.touchGroup(ctx, tx, groupID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`UPDATE group_members SET active = FALSE WHERE group_id = $1 AND user_id = $2`, groupID, userID)
		if err != nil {
			return fmt.Errorf("remove member: %w", err)
		}
		return nil
	})
}

// --- Resources ---

const resourceColumns = `id, group_id, kind, name, url, type, mime_type, size, created_by, created_at`

// AddResource attaches a resource to the group.
func (s *PostgresStore) AddResource(ctx context.Context, groupID, kind string, r domain.Resource) error {
	if !domain.ValidResourceKind(kind) {
		return port.ErrInvalidInput
	}
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.touchGroup(ctx, tx, groupID); err != nil {
			return err
		}
		if r.CreatedAt.IsZero() {
			r.CreatedAt = time.Now().UTC()
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO group_resources (id, group_id, kind, name, url, type, mime_type, size, created_by, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			r.ID, groupID, kind, r.Name, r.URL, r.Type, r.MimeType, r.Size, r.CreatedBy, r.CreatedAt)
		if err != nil {
			return fmt.Errorf("add resource: %w", err)
		}
		return nil
	})
}

// RemoveResource deletes a resource and returns the removed row.
func (s *PostgresStore) RemoveResource(ctx context.Context, groupID, kind, resourceID string) (*domain.Resource, error) {
	var removed domain.Resource
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.touchGroup(ctx, tx, groupID); err != nil {
			return err
		}
		err := tx.GetContext(ctx, &removed, `
			DELETE FROM group_resources WHERE group_id = $1 AND kind = $2 AND id = $3
			RETURNING `+resourceColumns, groupID, kind, resourceID)
		if errors.Is(err, sql.ErrNoRows) {
			return port.ErrResourceNotFound
		}
		if err != nil {
			return fmt.Errorf("remove resource: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &removed, nil
}

// RenameResource updates a resource's display name.
func (s *PostgresStore) RenameResource(ctx context.Context, groupID, kind, resourceID, name string) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.touchGroup(ctx, tx, groupID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE group_resources SET name = $4 WHERE group_id = $1 AND kind = $2 AND id = $3`,
			groupID, kind, resourceID, name)
		if err != nil {
			return fmt.Errorf("rename resource: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return port.ErrResourceNotFound
		}
		return nil
	})
}

func (s *PostgresStore) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// --- Scores ---

const scoreColumns = `group_id, user_id, user_name, user_email, score, last_updated`

// GetScore returns the stored score or port.ErrScoreNotFound.
func (s *PostgresStore) GetScore(ctx context.Context, groupID, userID string) (int, error) {
	var score int
	err := s.db.GetContext(ctx, &score,
		`SELECT score FROM pomodoro_scores WHERE doc_id = $1`, domain.ScoreKey(groupID, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return 0, port.ErrScoreNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("get score: %w", err)
	}
	return score, nil
}

// UpsertScore merge-writes the record; empty name/email keep the stored values.
func (s *PostgresStore) UpsertScore(ctx context.Context, rec domain.ScoreRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pomodoro_scores (doc_id, `+scoreColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (doc_id) DO UPDATE SET
			user_name = COALESCE(NULLIF(EXCLUDED.user_name, ''), pomodoro_scores.user_name),
			user_email = COALESCE(NULLIF(EXCLUDED.user_email, ''), pomodoro_scores.user_email),
			score = EXCLUDED.score,
			last_updated = EXCLUDED.last_updated`,
		rec.Key(), rec.GroupID, rec.UserID, rec.UserName, rec.UserEmail, rec.Score, rec.LastUpdated)
	if err != nil {
		return fmt.Errorf("upsert score: %w", err)
	}
	return nil
}

// IncrementScore adds delta to the stored score in a single statement and
// returns the new total.
func (s *PostgresStore) IncrementScore(ctx context.Context, rec domain.ScoreRecord, delta int) (int, error) {
	var total int
	err := s.db.GetContext(ctx, &total, `
		INSERT INTO pomodoro_scores (doc_id, `+scoreColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (doc_id) DO UPDATE SET
			user_name = COALESCE(NULLIF(EXCLUDED.user_name, ''), pomodoro_scores.user_name),
			user_email = COALESCE(NULLIF(EXCLUDED.user_email, ''), pomodoro_scores.user_email),
			score = pomodoro_scores.score + EXCLUDED.score,
			last_updated = EXCLUDED.last_updated
		RETURNING score`,
		rec.Key(), rec.GroupID, rec.UserID, rec.UserName, rec.UserEmail, delta, rec.LastUpdated)
	if err != nil {
		return 0, fmt.Errorf("increment score: %w", err)
	}
	return total, nil
}

// ListScores returns the group's scores sorted by score descending.
func (s *PostgresStore) ListScores(ctx context.Context, groupID string) ([]domain.ScoreRecord, error) {
	var out []domain.ScoreRecord
	err := s.db.SelectContext(ctx, &out,
		`SELECT `+scoreColumns+` FROM pomodoro_scores WHERE group_id = $1 ORDER BY score DESC, user_id`, groupID)
	if err != nil {
		return nil, fmt.Errorf("list scores: %w", err)
	}
	return out, nil
}

// --- Audit Logs ---

// WriteAudit implements middleware.AuditWriter.
func (s *PostgresStore) WriteAudit(userID, action, resource, resourceID, details, ip, userAgent string) error {
	if details == "" {
		details = "{}"
	}
	query := `INSERT INTO audit_logs (user_id, action, resource, resource_id, details, ip, user_agent)
	          VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7)`
	_, err := s.db.ExecContext(context.Background(), query,
		userID, action, resource, resourceID, details, ip, userAgent,
	)
	return err
}

// ListAuditLogs returns recent audit logs with optional filters.
func (s *PostgresStore) ListAuditLogs(ctx context.Context, limit int, action string) ([]domain.AuditLog, error) {
	query := `SELECT id::text AS id, user_id, action, resource, resource_id, details::text AS details,
	                 ip, user_agent, created_at
	          FROM audit_logs`
	args := []any{}
	argIdx := 1

	if action != "" {
		query += fmt.Sprintf(" WHERE action = $%d", argIdx)
		args = append(args, action)
		argIdx++
	}

	query += " ORDER BY created_at DESC, id DESC"

	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, limit)
	}

	var logs []domain.AuditLog
	if err := s.db.SelectContext(ctx, &logs, query, args...); err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	return logs, nil
}
