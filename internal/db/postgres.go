package db

import (
	"context"
	_ "embed"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sociophysics/hk-engine/pkg/models"
)

// schemaSQL is compiled into the binary at build time, so schema init works
// inside container images that do not ship internal/db/schema.sql.
//
//go:embed schema.sql
var schemaSQL string

type PostgresStore struct {
	pool *pgxpool.Pool
}

// Connect initializes the connection pool to PostgreSQL using pgx.
func Connect(connStr string) (*PostgresStore, error) {
	pool, err := pgxpool.New(context.Background(), connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %v", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("ping failed: %v", err)
	}

	log.Println("Successfully connected to PostgreSQL for run persistence")
	return &PostgresStore{pool: pool}, nil
}

// Close gracefully closes the connection pool.
func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// InitSchema executes the embedded schema.sql DDL statements.
func (s *PostgresStore) InitSchema() error {
	_, err := s.pool.Exec(context.Background(), schemaSQL)
	if err != nil {
		return fmt.Errorf("failed to execute schema migrations: %v", err)
	}

	log.Println("Simulation run schema initialized")
	return nil
}

// SaveRun persists one converged sample and its cluster configuration in a
// single transaction.
func (s *PostgresStore) SaveRun(ctx context.Context, result models.RunResult) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	insertRunSQL := `
		INSERT INTO runs
			(id, sample, num_agents, min_confidence, max_confidence, seed,
			 sweeps, num_clusters, largest_fraction, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);
	`
	_, err = tx.Exec(ctx, insertRunSQL,
		result.RunID,
		result.Sample,
		result.Params.NumAgents,
		result.Params.MinConfidence,
		result.Params.MaxConfidence,
		int64(result.Params.Seed),
		result.Sweeps,
		len(result.Clusters),
		result.LargestFraction,
		result.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %v", err)
	}

	insertClusterSQL := `
		INSERT INTO run_clusters (run_id, ordinal, position, size)
		VALUES ($1, $2, $3, $4);
	`
	for i, c := range result.Clusters {
		if _, err := tx.Exec(ctx, insertClusterSQL, result.RunID, i, c.Position, c.Size); err != nil {
			return fmt.Errorf("failed to insert cluster %d: %v", i, err)
		}
	}

	return tx.Commit(ctx)
}

// RunSummary is the listing row returned by ListRuns.
type RunSummary struct {
	RunID           string  `json:"runId"`
	Sample          int     `json:"sample"`
	NumAgents       int     `json:"numAgents"`
	MinConfidence   float64 `json:"minConfidence"`
	MaxConfidence   float64 `json:"maxConfidence"`
	Seed            int64   `json:"seed"`
	Sweeps          int     `json:"sweeps"`
	NumClusters     int     `json:"numClusters"`
	LargestFraction float64 `json:"largestFraction"`
	CreatedAt       string  `json:"createdAt"`
}

// ListRuns returns persisted runs, newest first, with simple pagination.
func (s *PostgresStore) ListRuns(ctx context.Context, page, limit int) ([]RunSummary, int, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * limit

	var totalCount int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM runs`).Scan(&totalCount); err != nil {
		return nil, 0, err
	}

	dataSQL := `
		SELECT id, sample, num_agents, min_confidence, max_confidence, seed,
		       sweeps, num_clusters, largest_fraction, created_at::text
		FROM runs
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := s.pool.Query(ctx, dataSQL, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	runs := make([]RunSummary, 0)
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.RunID, &r.Sample, &r.NumAgents, &r.MinConfidence,
			&r.MaxConfidence, &r.Seed, &r.Sweeps, &r.NumClusters,
			&r.LargestFraction, &r.CreatedAt); err != nil {
			return nil, 0, err
		}
		runs = append(runs, r)
	}
	if rows.Err() != nil {
		return nil, 0, rows.Err()
	}
	return runs, totalCount, nil
}

// GetRun loads one persisted run with its full cluster configuration.
func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*RunSummary, []models.Cluster, error) {
	id, err := uuid.Parse(runID)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid run id: %v", err)
	}

	var r RunSummary
	runSQL := `
		SELECT id, sample, num_agents, min_confidence, max_confidence, seed,
		       sweeps, num_clusters, largest_fraction, created_at::text
		FROM runs WHERE id = $1
	`
	err = s.pool.QueryRow(ctx, runSQL, id).Scan(&r.RunID, &r.Sample, &r.NumAgents,
		&r.MinConfidence, &r.MaxConfidence, &r.Seed, &r.Sweeps, &r.NumClusters,
		&r.LargestFraction, &r.CreatedAt)
	if err != nil {
		return nil, nil, err
	}

	rows, err := s.pool.Query(ctx,
		`SELECT position, size FROM run_clusters WHERE run_id = $1 ORDER BY ordinal`, id)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	clusters := make([]models.Cluster, 0)
	for rows.Next() {
		var c models.Cluster
		if err := rows.Scan(&c.Position, &c.Size); err != nil {
			return nil, nil, err
		}
		clusters = append(clusters, c)
	}
	if rows.Err() != nil {
		return nil, nil, rows.Err()
	}
	return &r, clusters, nil
}

// GetPool exposes the connection pool for other subsystems.
func (s *PostgresStore) GetPool() *pgxpool.Pool {
	return s.pool
}
