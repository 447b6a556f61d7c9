package connections

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/alexindevs/roomey-api/internal/domain"
	"github.com/alexindevs/roomey-api/internal/observability"
)

// Registry is the durable record of live connections per user and
// namespace. A user may hold several active connections in the same
// namespace; a new connection never deactivates older ones. Every mutation is
// a single conditional statement, so concurrent connect and disconnect races
// are settled by Postgres rather than by process-local locks.
type Registry struct {
	db         *sql.DB
	instanceID string
}

func New(db *sql.DB, instanceID string) *Registry {
	return &Registry{db: db, instanceID: instanceID}
}

func (r *Registry) InstanceID() string {
	return r.instanceID
}

const connectionColumns = `id, user_id, connection_id, namespace, instance_id, is_active, connected_at, disconnected_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanConnection(s rowScanner) (*domain.Connection, error) {
	var (
		c            domain.Connection
		ns           string
		disconnected sql.NullTime
	)
	if err := s.Scan(&c.ID, &c.UserID, &c.ConnectionID, &ns, &c.InstanceID, &c.Active, &c.ConnectedAt, &disconnected); err != nil {
		return nil, err
	}
	c.Namespace = domain.Namespace(ns)
	if disconnected.Valid {
		t := disconnected.Time
		c.DisconnectedAt = &t
	}
	return &c, nil
}

// AddConnection records an active connection. Calling it again for the same
// connection id and namespace returns the existing record; the row is
// reactivated if it had been closed. A connection id already owned by another
// user is rejected with domain.ErrConnectionConflict.
func (r *Registry) AddConnection(ctx context.Context, userID, connectionID string, ns domain.Namespace) (*domain.Connection, error) {
	if userID == "" || connectionID == "" || !ns.Valid() {
		return nil, domain.ErrInvalidInput
	}

	c, err := scanConnection(r.db.QueryRowContext(ctx, `
		INSERT INTO connections (user_id, connection_id, namespace, instance_id, is_active, connected_at)
		VALUES ($1, $2, $3, $4, TRUE, now())
		ON CONFLICT (connection_id, namespace) DO UPDATE
		SET is_active = TRUE,
		    disconnected_at = NULL,
		    connected_at = CASE WHEN connections.is_active THEN connections.connected_at ELSE now() END
		WHERE connections.user_id = EXCLUDED.user_id
		RETURNING `+connectionColumns,
		userID, connectionID, string(ns), r.instanceID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrConnectionConflict
	}
	if err != nil {
		return nil, fmt.Errorf("failed to add connection: %w", err)
	}

	observability.GetLogger(ctx).Debug("connection registered",
		zap.String("user_id", userID),
		zap.String("connection_id", connectionID),
		zap.String("namespace", string(ns)),
	)
	return c, nil
}

// RemoveConnection deactivates the matching active record. A missing or
// already inactive record is not an error and yields (nil, nil).
func (r *Registry) RemoveConnection(ctx context.Context, connectionID string, ns domain.Namespace) (*domain.Connection, error) {
	c, err := scanConnection(r.db.QueryRowContext(ctx, `
		UPDATE connections
		SET is_active = FALSE, disconnected_at = now()
		WHERE connection_id = $1 AND namespace = $2 AND is_active
		RETURNING `+connectionColumns,
		connectionID, string(ns),
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to remove connection: %w", err)
	}
	return c, nil
}

func (r *Registry) GetActiveConnections(ctx context.Context, userID string, ns domain.Namespace) ([]*domain.Connection, error) {
	return r.query(ctx, `
		SELECT `+connectionColumns+`
		FROM connections
		WHERE user_id = $1 AND namespace = $2 AND is_active
		ORDER BY connected_at
	`, userID, string(ns))
}

func (r *Registry) GetAllActiveConnections(ctx context.Context, userID string) ([]*domain.Connection, error) {
	return r.query(ctx, `
		SELECT `+connectionColumns+`
		FROM connections
		WHERE user_id = $1 AND is_active
		ORDER BY connected_at
	`, userID)
}

// DeactivateInstance closes every record still marked active for an
// instance. Run on startup and shutdown so a crashed gateway does not leave
// phantom presence behind.
func (r *Registry) DeactivateInstance(ctx context.Context, instanceID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE connections
		SET is_active = FALSE, disconnected_at = now()
		WHERE instance_id = $1 AND is_active
	`, instanceID)
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate instance connections: %w", err)
	}
	return res.RowsAffected()
}

func (r *Registry) query(ctx context.Context, q string, args ...interface{}) ([]*domain.Connection, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query connections: %w", err)
	}
	defer rows.Close()

	conns := make([]*domain.Connection, 0)
	for rows.Next() {
		c, err := scanConnection(rows)
		if err != nil {
			return nil, err
		}
		conns = append(conns, c)
	}
	return conns, rows.Err()
}
