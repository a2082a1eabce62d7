package postgres

import "context"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS workflows (
    id         TEXT PRIMARY KEY,
    version    BIGINT NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS workflow_nodes (
    workflow_id TEXT NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
    id          TEXT NOT NULL,
    kind        TEXT NOT NULL,
    ord         INT NOT NULL,
    x           DOUBLE PRECISION NOT NULL DEFAULT 0,
    y           DOUBLE PRECISION NOT NULL DEFAULT 0,
    data        JSONB NOT NULL DEFAULT '{}',
    PRIMARY KEY (workflow_id, id)
);

CREATE TABLE IF NOT EXISTS workflow_edges (
    workflow_id TEXT NOT NULL,
    id          TEXT NOT NULL,
    source_id   TEXT NOT NULL,
    target_id   TEXT NOT NULL,
    ord         INT NOT NULL,
    data        JSONB NOT NULL DEFAULT '{}',
    PRIMARY KEY (workflow_id, id),
    FOREIGN KEY (workflow_id, source_id) REFERENCES workflow_nodes(workflow_id, id) ON DELETE CASCADE,
    FOREIGN KEY (workflow_id, target_id) REFERENCES workflow_nodes(workflow_id, id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_workflow_edges_source ON workflow_edges(workflow_id, source_id);
CREATE INDEX IF NOT EXISTS idx_workflow_edges_target ON workflow_edges(workflow_id, target_id);
`

// CreateSchema creates the workflow tables if they don't exist.
func (s *PGStore) CreateSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schemaSQL)
	return err
}

// DropSchema drops the workflow tables.
func (s *PGStore) DropSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `DROP TABLE IF EXISTS workflow_edges, workflow_nodes, workflows CASCADE;`)
	return err
}
