package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/convictionlabs/credence/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
)

// defaultEmbeddingDims matches the ada-002 embedding width.
const defaultEmbeddingDims = 1536

// SnapshotStore archives belief snapshots in Postgres. Each version of
// a belief is one row; the (belief_id, version) key makes redelivery
// from the persistence worker a no-op. The vector column is sized to
// the configured embedding provider.
type SnapshotStore struct {
	db   *pgxpool.Pool
	dims int
}

func NewSnapshotStore(db *pgxpool.Pool, dims int) *SnapshotStore {
	if dims <= 0 {
		dims = defaultEmbeddingDims
	}
	return &SnapshotStore{db: db, dims: dims}
}

const schemaTemplate = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS belief_snapshots (
	belief_id    UUID NOT NULL,
	version      BIGINT NOT NULL,
	agent_id     UUID NOT NULL,
	content      TEXT NOT NULL,
	confidence   DOUBLE PRECISION NOT NULL,
	signature    JSONB NOT NULL,
	sources      JSONB NOT NULL,
	evidence     JSONB NOT NULL,
	adaptability DOUBLE PRECISION NOT NULL,
	trust_score  DOUBLE PRECISION NOT NULL,
	superseded   BOOLEAN NOT NULL,
	embedding    vector(%d),
	created_at   TIMESTAMPTZ NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (belief_id, version)
);

CREATE INDEX IF NOT EXISTS idx_belief_snapshots_agent
	ON belief_snapshots (agent_id, updated_at DESC);
`

func (s *SnapshotStore) schema() string {
	return fmt.Sprintf(schemaTemplate, s.dims)
}

// EnsureSchema creates the snapshot table if it does not exist.
func (s *SnapshotStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, s.schema()); err != nil {
		return fmt.Errorf("ensure snapshot schema: %w", err)
	}
	return nil
}

// Persist inserts one snapshot row. Replays of an already stored
// (belief_id, version) pair succeed without touching the row.
func (s *SnapshotStore) Persist(ctx context.Context, snap domain.BeliefSnapshot) error {
	embedding := embeddingValue(snap.Embedding, s.dims)

	signature, err := json.Marshal(snap.Signature)
	if err != nil {
		return fmt.Errorf("marshal signature: %w", err)
	}
	sources, err := json.Marshal(snap.Sources)
	if err != nil {
		return fmt.Errorf("marshal sources: %w", err)
	}
	evidence, err := json.Marshal(snap.Evidence)
	if err != nil {
		return fmt.Errorf("marshal evidence: %w", err)
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO belief_snapshots (belief_id, version, agent_id, content, confidence, signature, sources, evidence, adaptability, trust_score, superseded, embedding, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 ON CONFLICT (belief_id, version) DO NOTHING`,
		snap.BeliefID, snap.Version, snap.AgentID, snap.Content, snap.Confidence,
		signature, sources, evidence, snap.Adaptability, snap.TrustScore,
		snap.Superseded, embedding, snap.CreatedAt, snap.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert belief snapshot: %w", err)
	}
	return nil
}

// embeddingValue turns a snapshot embedding into a column value. A
// vector whose width does not match the column is stored as NULL
// rather than failing the insert against pgvector's dimension check.
func embeddingValue(embedding []float32, dims int) *pgvector.Vector {
	if len(embedding) != dims {
		return nil
	}
	v := pgvector.NewVector(embedding)
	return &v
}

// Latest fetches the newest stored version of a belief.
func (s *SnapshotStore) Latest(ctx context.Context, beliefID uuid.UUID) (*domain.BeliefSnapshot, error) {
	row := s.db.QueryRow(ctx,
		`SELECT belief_id, version, agent_id, content, confidence, signature, sources, evidence, adaptability, trust_score, superseded, created_at, updated_at
		 FROM belief_snapshots
		 WHERE belief_id = $1
		 ORDER BY version DESC
		 LIMIT 1`,
		beliefID,
	)
	snap, err := scanSnapshot(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query latest snapshot: %w", err)
	}
	return snap, nil
}

// ListByAgent returns the newest version of every belief the agent has
// ever consolidated, superseded records included.
func (s *SnapshotStore) ListByAgent(ctx context.Context, agentID uuid.UUID, limit int) ([]domain.BeliefSnapshot, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(ctx,
		`SELECT DISTINCT ON (belief_id) belief_id, version, agent_id, content, confidence, signature, sources, evidence, adaptability, trust_score, superseded, created_at, updated_at
		 FROM belief_snapshots
		 WHERE agent_id = $1
		 ORDER BY belief_id, version DESC
		 LIMIT $2`,
		agentID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query agent snapshots: %w", err)
	}
	defer rows.Close()

	var out []domain.BeliefSnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		out = append(out, *snap)
	}
	return out, rows.Err()
}

func scanSnapshot(row pgx.Row) (*domain.BeliefSnapshot, error) {
	var (
		snap      domain.BeliefSnapshot
		signature []byte
		sources   []byte
		evidence  []byte
	)
	err := row.Scan(
		&snap.BeliefID, &snap.Version, &snap.AgentID, &snap.Content,
		&snap.Confidence, &signature, &sources, &evidence,
		&snap.Adaptability, &snap.TrustScore, &snap.Superseded,
		&snap.CreatedAt, &snap.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(signature, &snap.Signature); err != nil {
		return nil, fmt.Errorf("unmarshal signature: %w", err)
	}
	if err := json.Unmarshal(sources, &snap.Sources); err != nil {
		return nil, fmt.Errorf("unmarshal sources: %w", err)
	}
	if err := json.Unmarshal(evidence, &snap.Evidence); err != nil {
		return nil, fmt.Errorf("unmarshal evidence: %w", err)
	}
	return &snap, nil
}
