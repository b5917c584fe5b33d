package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"github.com/GoSim-25-26J-441/code-editor-backend/internal/projects/domain"
)

const createProjectsTable = `
CREATE TABLE IF NOT EXISTS code_projects (
	project_id        TEXT PRIMARY KEY,
	project_name      TEXT NOT NULL,
	lang              TEXT NOT NULL,
	last_updated_date TEXT NOT NULL,
	file_sets         JSONB NOT NULL DEFAULT '[]'::jsonb,
	dependencies      JSONB NOT NULL DEFAULT '{}'::jsonb,
	data_status       TEXT,
	logs              JSONB,
	port              INTEGER,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// PostgresStore keeps one row per project with fileSets as a JSONB array.
// Every mutation is a single guarded UPDATE, so the row lock taken by the
// statement is the only synchronisation needed.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgresStore
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, p *domain.Project) error {
	files := p.FileSets
	if files == nil {
		files = []domain.File{}
	}
	filesJSON, err := json.Marshal(files)
	if err != nil {
		return fmt.Errorf("marshal file sets: %w", err)
	}

	deps := p.Dependencies
	if deps == nil {
		deps = map[string]string{}
	}
	depsJSON, err := json.Marshal(deps)
	if err != nil {
		return fmt.Errorf("marshal dependencies: %w", err)
	}

	var (
		dataStatus sql.NullString
		logs       []byte
		port       sql.NullInt64
	)
	if p.DataStatus != nil {
		dataStatus = sql.NullString{String: *p.DataStatus, Valid: true}
	}
	if p.Logs != nil {
		logs = []byte("[]")
		if len(*p.Logs) > 0 {
			if logs, err = json.Marshal(*p.Logs); err != nil {
				return fmt.Errorf("marshal logs: %w", err)
			}
		}
	}
	if p.Port != nil {
		port = sql.NullInt64{Int64: int64(*p.Port), Valid: true}
	}

	const q = `
INSERT INTO code_projects (
	project_id, project_name, lang, last_updated_date,
	file_sets, dependencies, data_status, logs, port
)
VALUES ($1, $2, $3, $4, $5::jsonb, $6::jsonb, $7, $8::jsonb, $9)
`
	_, err = s.db.ExecContext(ctx, q,
		p.ProjectID, p.ProjectName, p.Lang, p.LastUpdatedDate,
		string(filesJSON), string(depsJSON), dataStatus, nullableJSON(logs), port,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ProjectExists(p.ProjectID)
		}
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]domain.ProjectSummary, error) {
	const q = `
SELECT project_id, project_name, lang, last_updated_date
FROM code_projects
ORDER BY created_at, project_id
`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ProjectSummary, 0, 16)
	for rows.Next() {
		var p domain.ProjectSummary
		if err := rows.Scan(&p.ProjectID, &p.ProjectName, &p.Lang, &p.LastUpdatedDate); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Get(ctx context.Context, projectID string) (*domain.Project, error) {
	const q = `
SELECT project_name, lang, last_updated_date, file_sets, dependencies, data_status, logs, port
FROM code_projects
WHERE project_id = $1
`
	var (
		p          = domain.Project{ProjectID: projectID}
		filesJSON  []byte
		depsJSON   []byte
		dataStatus sql.NullString
		logsJSON   []byte
		port       sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, q, projectID).Scan(
		&p.ProjectName, &p.Lang, &p.LastUpdatedDate,
		&filesJSON, &depsJSON, &dataStatus, &logsJSON, &port,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ProjectNotFound()
	}
	if err != nil {
		return nil, fmt.Errorf("query project: %w", err)
	}

	p.FileSets = []domain.File{}
	if len(filesJSON) > 0 {
		if err := json.Unmarshal(filesJSON, &p.FileSets); err != nil {
			return nil, fmt.Errorf("unmarshal file sets: %w", err)
		}
	}
	p.Dependencies = map[string]string{}
	if len(depsJSON) > 0 {
		if err := json.Unmarshal(depsJSON, &p.Dependencies); err != nil {
			return nil, fmt.Errorf("unmarshal dependencies: %w", err)
		}
	}
	if dataStatus.Valid {
		status := dataStatus.String
		p.DataStatus = &status
	}
	if logsJSON != nil {
		logs := []string{}
		if err := json.Unmarshal(logsJSON, &logs); err != nil {
			return nil, fmt.Errorf("unmarshal logs: %w", err)
		}
		p.Logs = &logs
	}
	if port.Valid {
		n := int(port.Int64)
		p.Port = &n
	}
	return &p, nil
}

func (s *PostgresStore) AppendFile(ctx context.Context, projectID string, f domain.File, lastUpdated string) error {
	const q = `
UPDATE code_projects
SET file_sets = file_sets || jsonb_build_array(jsonb_build_object('filePath', $2::text, 'code', $3::text)),
	last_updated_date = $4
WHERE project_id = $1
	AND NOT file_sets @> jsonb_build_array(jsonb_build_object('filePath', $2::text))
`
	n, err := s.exec(ctx, q, projectID, f.FilePath, f.Code, lastUpdated)
	if err != nil {
		return fmt.Errorf("append file: %w", err)
	}
	if n == 0 {
		return s.explainMiss(ctx, projectID, domain.FileExists(f.FilePath))
	}
	return nil
}

func (s *PostgresStore) UpdateFileCode(ctx context.Context, projectID string, u domain.CodeUpdate) error {
	const q = `
UPDATE code_projects
SET file_sets = (
		SELECT jsonb_agg(
			CASE WHEN f->>'filePath' = $2 THEN jsonb_set(f, '{code}', to_jsonb($3::text)) ELSE f END
			ORDER BY ord)
		FROM jsonb_array_elements(file_sets) WITH ORDINALITY AS t(f, ord)
	),
	last_updated_date = $4,
	data_status = CASE WHEN $5::boolean THEN $6::text ELSE data_status END,
	logs = CASE WHEN $5::boolean THEN '[]'::jsonb ELSE logs END
WHERE project_id = $1
	AND file_sets @> jsonb_build_array(jsonb_build_object('filePath', $2::text))
`
	n, err := s.exec(ctx, q, projectID, u.FilePath, u.Code, u.LastUpdatedDate, u.ResetRuntime, u.DataStatus)
	if err != nil {
		return fmt.Errorf("update file code: %w", err)
	}
	if n == 0 {
		return s.explainMiss(ctx, projectID, domain.FileNotFound(u.FilePath))
	}
	return nil
}

func (s *PostgresStore) RenameFile(ctx context.Context, projectID, oldPath, newPath, lastUpdated string) error {
	const q = `
UPDATE code_projects
SET file_sets = (
		SELECT jsonb_agg(
			CASE WHEN f->>'filePath' = $2 THEN jsonb_set(f, '{filePath}', to_jsonb($3::text)) ELSE f END
			ORDER BY ord)
		FROM jsonb_array_elements(file_sets) WITH ORDINALITY AS t(f, ord)
	),
	last_updated_date = $4
WHERE project_id = $1
	AND file_sets @> jsonb_build_array(jsonb_build_object('filePath', $2::text))
	AND NOT file_sets @> jsonb_build_array(jsonb_build_object('filePath', $3::text))
`
	n, err := s.exec(ctx, q, projectID, oldPath, newPath, lastUpdated)
	if err != nil {
		return fmt.Errorf("rename file: %w", err)
	}
	if n > 0 {
		return nil
	}

	p, err := s.Get(ctx, projectID)
	if err != nil {
		return err
	}
	if p.FindFile(oldPath) < 0 {
		return domain.FileNotFound(oldPath)
	}
	return domain.FileExists(newPath)
}

func (s *PostgresStore) RemoveFile(ctx context.Context, projectID, filePath, lastUpdated string) error {
	const q = `
UPDATE code_projects
SET file_sets = COALESCE((
		SELECT jsonb_agg(f ORDER BY ord)
		FROM jsonb_array_elements(file_sets) WITH ORDINALITY AS t(f, ord)
		WHERE f->>'filePath' <> $2
	), '[]'::jsonb),
	last_updated_date = $3
WHERE project_id = $1
	AND file_sets @> jsonb_build_array(jsonb_build_object('filePath', $2::text))
`
	n, err := s.exec(ctx, q, projectID, filePath, lastUpdated)
	if err != nil {
		return fmt.Errorf("remove file: %w", err)
	}
	if n == 0 {
		return s.explainMiss(ctx, projectID, domain.FileNotFound(filePath))
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, projectID string) error {
	n, err := s.exec(ctx, `DELETE FROM code_projects WHERE project_id = $1`, projectID)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if n == 0 {
		return domain.NotFound("Project not found or already deleted.")
	}
	return nil
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createProjectsTable); err != nil {
		return fmt.Errorf("create code_projects: %w", err)
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) exec(ctx context.Context, q string, args ...interface{}) (int64, error) {
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *PostgresStore) explainMiss(ctx context.Context, projectID string, fileErr error) error {
	var exists bool
	const q = `SELECT EXISTS (SELECT 1 FROM code_projects WHERE project_id = $1)`
	if err := s.db.QueryRowContext(ctx, q, projectID).Scan(&exists); err != nil {
		return fmt.Errorf("check project: %w", err)
	}
	if !exists {
		return domain.ProjectNotFound()
	}
	return fileErr
}

// isUniqueViolation recognises SQLSTATE 23505 from either driver.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func nullableJSON(b []byte) interface{} {
	if b == nil {
		return nil
	}
	return string(b)
}

var _ Store = (*PostgresStore)(nil)
