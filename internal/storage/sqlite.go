package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/getstubd/stubd/pkg/stub"
)

const schema = `
CREATE TABLE IF NOT EXISTS stubs (
	id                   TEXT PRIMARY KEY,
	owner_id             TEXT NOT NULL DEFAULT '',
	protocol             TEXT NOT NULL,
	name                 TEXT NOT NULL DEFAULT '',
	description          TEXT NOT NULL DEFAULT '',
	dest_type            TEXT NOT NULL,
	dest_name            TEXT NOT NULL,
	selector             TEXT NOT NULL DEFAULT '',
	match_type           TEXT NOT NULL DEFAULT '',
	match_pattern        TEXT NOT NULL DEFAULT '',
	match_path           TEXT NOT NULL DEFAULT '',
	match_case_sensitive INTEGER NOT NULL DEFAULT 0,
	priority             INTEGER NOT NULL,
	status               TEXT NOT NULL,
	resp_content_type    TEXT NOT NULL DEFAULT '',
	resp_content         TEXT NOT NULL DEFAULT '',
	resp_headers         TEXT NOT NULL DEFAULT '[]',
	reply_dest_type      TEXT,
	reply_dest_name      TEXT,
	latency_ms           INTEGER NOT NULL DEFAULT 0,
	created_at           TEXT NOT NULL,
	updated_at           TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_stubs_destination ON stubs(dest_type, dest_name);
CREATE INDEX IF NOT EXISTS idx_stubs_owner ON stubs(owner_id);
`

// timeFormat is fixed-width so stored timestamps sort
// lexicographically in chronological order (RFC3339Nano drops
// trailing zeros and would not).
const timeFormat = "2006-01-02T15:04:05.000000000Z"

const stubColumns = `id, owner_id, protocol, name, description, dest_type, dest_name,
	selector, match_type, match_pattern, match_path, match_case_sensitive,
	priority, status, resp_content_type, resp_content, resp_headers,
	reply_dest_type, reply_dest_name, latency_ms, created_at, updated_at`

// SQLiteStore persists stubs in an embedded SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (and if needed bootstraps) a SQLite-backed store at
// the given path. ":memory:" is accepted for tests.
func OpenSQLite(path string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	// SQLite allows one writer; a single connection avoids
	// SQLITE_BUSY churn under concurrent admin writes.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("bootstrap sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Get retrieves a stub by ID.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*stub.Stub, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+stubColumns+` FROM stubs WHERE id = ?`, id)
	st, err := scanStub(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, stub.ErrNotFound
	}
	if err != nil {
		return nil, readErr(err)
	}
	return st, nil
}

// Put stores or replaces a stub keyed by its ID.
func (s *SQLiteStore) Put(ctx context.Context, st *stub.Stub) error {
	headers, err := json.Marshal(st.Response.Headers)
	if err != nil {
		return fmt.Errorf("encode headers: %w", err)
	}

	var matchType, matchPattern, matchPath string
	var caseSensitive bool
	if st.ContentMatch != nil {
		matchType = string(st.ContentMatch.Kind())
		matchPattern = st.ContentMatch.Pattern
		matchPath = st.ContentMatch.Path
		caseSensitive = st.ContentMatch.CaseSensitive
	}

	var replyType, replyName sql.NullString
	if rd := st.Response.ReplyDestination; rd != nil {
		replyType = sql.NullString{String: rd.Type, Valid: true}
		replyName = sql.NullString{String: rd.Name, Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO stubs (`+stubColumns+`)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET
			owner_id=excluded.owner_id, protocol=excluded.protocol,
			name=excluded.name, description=excluded.description,
			dest_type=excluded.dest_type, dest_name=excluded.dest_name,
			selector=excluded.selector, match_type=excluded.match_type,
			match_pattern=excluded.match_pattern, match_path=excluded.match_path,
			match_case_sensitive=excluded.match_case_sensitive,
			priority=excluded.priority, status=excluded.status,
			resp_content_type=excluded.resp_content_type,
			resp_content=excluded.resp_content,
			resp_headers=excluded.resp_headers,
			reply_dest_type=excluded.reply_dest_type,
			reply_dest_name=excluded.reply_dest_name,
			latency_ms=excluded.latency_ms,
			updated_at=excluded.updated_at`,
		st.ID, st.OwnerID, string(st.Protocol), st.Name, st.Description,
		st.Destination.Type, st.Destination.Name,
		st.Selector, matchType, matchPattern, matchPath, caseSensitive,
		st.Priority, string(st.Status),
		st.Response.ContentType, st.Response.Content, string(headers),
		replyType, replyName, st.Response.LatencyMs,
		st.CreatedAt.UTC().Format(timeFormat),
		st.UpdatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return writeErr(err)
	}
	return nil
}

// Delete removes a stub.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM stubs WHERE id = ?`, id)
	if err != nil {
		return writeErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return writeErr(err)
	}
	if n == 0 {
		return stub.ErrNotFound
	}
	return nil
}

// List returns all stubs in ranking order.
func (s *SQLiteStore) List(ctx context.Context) ([]*stub.Stub, error) {
	return s.query(ctx, `SELECT `+stubColumns+` FROM stubs`+rankOrder)
}

// ListByDestination returns all stubs for the destination in ranking
// order.
func (s *SQLiteStore) ListByDestination(ctx context.Context, d stub.Destination) ([]*stub.Stub, error) {
	return s.query(ctx,
		`SELECT `+stubColumns+` FROM stubs WHERE dest_type = ? AND dest_name = ?`+rankOrder,
		d.Type, d.Name)
}

// ListByOwner returns all stubs created by the owner.
func (s *SQLiteStore) ListByOwner(ctx context.Context, ownerID string) ([]*stub.Stub, error) {
	return s.query(ctx,
		`SELECT `+stubColumns+` FROM stubs WHERE owner_id = ?`+rankOrder, ownerID)
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const rankOrder = ` ORDER BY priority DESC, updated_at DESC, id ASC`

func (s *SQLiteStore) query(ctx context.Context, q string, args ...any) ([]*stub.Stub, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, readErr(err)
	}
	defer rows.Close()

	var result []*stub.Stub
	for rows.Next() {
		st, err := scanStub(rows)
		if err != nil {
			return nil, readErr(err)
		}
		result = append(result, st)
	}
	if err := rows.Err(); err != nil {
		return nil, readErr(err)
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanStub(row scanner) (*stub.Stub, error) {
	var (
		st            stub.Stub
		protocol      string
		status        string
		matchType     string
		matchPattern  string
		matchPath     string
		caseSensitive bool
		headersJSON   string
		replyType     sql.NullString
		replyName     sql.NullString
		createdAt     string
		updatedAt     string
	)
	err := row.Scan(
		&st.ID, &st.OwnerID, &protocol, &st.Name, &st.Description,
		&st.Destination.Type, &st.Destination.Name,
		&st.Selector, &matchType, &matchPattern, &matchPath, &caseSensitive,
		&st.Priority, &status,
		&st.Response.ContentType, &st.Response.Content, &headersJSON,
		&replyType, &replyName, &st.Response.LatencyMs,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	st.Protocol = stub.Protocol(protocol)
	st.Status = stub.Status(status)
	if matchType != "" && matchType != string(stub.MatchNone) {
		st.ContentMatch = &stub.ContentMatch{
			Type:          stub.MatchType(matchType),
			Pattern:       matchPattern,
			Path:          matchPath,
			CaseSensitive: caseSensitive,
		}
	}
	if headersJSON != "" && headersJSON != "[]" {
		if err := json.Unmarshal([]byte(headersJSON), &st.Response.Headers); err != nil {
			return nil, fmt.Errorf("decode headers for stub %s: %w", st.ID, err)
		}
	}
	if replyType.Valid || replyName.Valid {
		st.Response.ReplyDestination = &stub.Destination{
			Type: replyType.String,
			Name: replyName.String,
		}
	}
	if st.CreatedAt, err = time.Parse(timeFormat, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at for stub %s: %w", st.ID, err)
	}
	if st.UpdatedAt, err = time.Parse(timeFormat, updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at for stub %s: %w", st.ID, err)
	}
	return &st, nil
}

// readErr maps database failures on the read path. Timeouts and lost
// backends surface as ErrStoreUnavailable so the matcher never guesses
// a matching decision.
func readErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return stub.ErrStoreUnavailable
	}
	return fmt.Errorf("%w: %v", stub.ErrStoreUnavailable, err)
}

// writeErr maps database failures on the write path. A timed-out
// write is ErrWriteTimeout; the stub is never left half-persisted
// because each Put is a single statement.
func writeErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return stub.ErrWriteTimeout
	}
	return fmt.Errorf("%w: %v", stub.ErrStoreUnavailable, err)
}

// Ensure SQLiteStore implements StubStore.
var _ StubStore = (*SQLiteStore)(nil)
