package source

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/AgentMesh-Net/directory-go/internal/registry"
)

// PostgresSource reads a local index mirror: a table kept current by
// the indexer, queried here with keyset pagination ordered by
// (created_at DESC, agent_id DESC).
type PostgresSource struct {
	chainID int64
	name    string
	pool    *pgxpool.Pool
}

// NewPostgresSource creates a source over an existing connection pool.
func NewPostgresSource(chainID int64, name string, pool *pgxpool.Pool) *PostgresSource {
	return &PostgresSource{chainID: chainID, name: name, pool: pool}
}

func (s *PostgresSource) ChainID() int64 { return s.chainID }
func (s *PostgresSource) Name() string   { return s.name }

// pgCursor is the keyset position encoded into this source's cursor.
type pgCursor struct {
	CreatedAt string `json:"c"`
	AgentID   string `json:"i"`
}

func encodePgCursor(c pgCursor) string {
	raw, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(raw)
}

func decodePgCursor(s string) (*pgCursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, ErrBadCursor
	}
	var c pgCursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, ErrBadCursor
	}
	if c.CreatedAt == "" || c.AgentID == "" {
		return nil, ErrBadCursor
	}
	return &c, nil
}

// agentRow is the raw mirror-table row.
type agentRow struct {
	AgentID      string
	Name         string
	Description  string
	Domain       string
	Active       bool
	SupportsX402 bool
	Capabilities []string
	Skills       []string
	Domains      []string
	TrustModels  []string
	CreatedAt    time.Time
}

func (s *PostgresSource) FetchPage(ctx context.Context, native registry.NativeFilter, pageSize int, cursor string) (registry.Page, error) {
	q := `SELECT agent_id, name, description, domain, active, supports_x402,
       capabilities, skills, domains, trust_models, created_at
FROM agents
WHERE chain_id = $1`
	args := []any{s.chainID}

	if native.Active != nil {
		args = append(args, *native.Active)
		q += fmt.Sprintf(" AND active = $%d", len(args))
	}
	if native.SupportsX402 != nil {
		args = append(args, *native.SupportsX402)
		q += fmt.Sprintf(" AND supports_x402 = $%d", len(args))
	}

	if cursor != "" {
		c, err := decodePgCursor(cursor)
		if err != nil {
			return registry.Page{}, err
		}
		cursorTime, err := time.Parse(time.RFC3339Nano, c.CreatedAt)
		if err != nil {
			return registry.Page{}, ErrBadCursor
		}
		args = append(args, cursorTime, c.AgentID)
		q += fmt.Sprintf(" AND (created_at, agent_id) < ($%d, $%d)", len(args)-1, len(args))
	}

	args = append(args, pageSize+1)
	q += fmt.Sprintf(" ORDER BY created_at DESC, agent_id DESC LIMIT $%d", len(args))

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return registry.Page{}, fmt.Errorf("pg %s: query: %w", s.name, err)
	}
	defer rows.Close()

	var scanned []agentRow
	for rows.Next() {
		var row agentRow
		if err := rows.Scan(
			&row.AgentID, &row.Name, &row.Description, &row.Domain,
			&row.Active, &row.SupportsX402,
			&row.Capabilities, &row.Skills, &row.Domains, &row.TrustModels,
			&row.CreatedAt,
		); err != nil {
			return registry.Page{}, fmt.Errorf("pg %s: scan: %w", s.name, err)
		}
		scanned = append(scanned, row)
	}
	if err := rows.Err(); err != nil {
		return registry.Page{}, fmt.Errorf("pg %s: rows: %w", s.name, err)
	}

	page := registry.Page{}
	if len(scanned) > pageSize {
		last := scanned[pageSize-1]
		page.NextCursor = encodePgCursor(pgCursor{
			CreatedAt: last.CreatedAt.Format(time.RFC3339Nano),
			AgentID:   last.AgentID,
		})
		scanned = scanned[:pageSize]
	}
	page.Items = make([]registry.Agent, 0, len(scanned))
	for _, row := range scanned {
		page.Items = append(page.Items, s.mapAgent(row))
	}
	return page, nil
}

// mapAgent converts a mirror-table row to the normalized form.
func (s *PostgresSource) mapAgent(row agentRow) registry.Agent {
	return registry.Agent{
		ID:           row.AgentID,
		ChainID:      s.chainID,
		Name:         row.Name,
		Description:  row.Description,
		Domain:       row.Domain,
		Active:       row.Active,
		SupportsX402: row.SupportsX402,
		Capabilities: row.Capabilities,
		Skills:       row.Skills,
		Domains:      row.Domains,
		TrustModels:  row.TrustModels,
	}
}

// NewPool creates a pgxpool connection pool and verifies connectivity.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return pool, nil
}

// RunMigration executes one schema migration statement batch.
func RunMigration(ctx context.Context, pool *pgxpool.Pool, sql string) error {
	if _, err := pool.Exec(ctx, sql); err != nil {
		return fmt.Errorf("exec migration: %w", err)
	}
	return nil
}
