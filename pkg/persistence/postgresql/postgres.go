// Package postgresql provides PostgreSQL persistence for automation records.
package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	// Registers the postgres driver.
	_ "github.com/lib/pq"

	"github.com/quantor/signalflow/pkg/models"
	"github.com/quantor/signalflow/pkg/persistence"
	"github.com/quantor/signalflow/pkg/persistence/sqlbase"
)

// Persistence implements persistence.Persistence on PostgreSQL. The node and
// edge lists are stored as JSONB documents; the run bookkeeping fields get
// their own columns so operators can query them directly.
type Persistence struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPersistence connects, pings, and migrates the schema.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	if err := database.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	manager := sqlbase.NewMigrationManager(logger, database, migrations())
	if err := manager.RunMigrations(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{db: database, logger: logger}, nil
}

func (p *Persistence) Close(_ context.Context) error {
	if p.db == nil {
		return nil
	}

	if err := p.db.Close(); err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}

	return nil
}

func (p *Persistence) HealthCheck(ctx context.Context) error {
	if err := p.db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

const automationColumns = `id, name, active, owner, nodes, edges,
	last_run, next_run, last_error_date, last_error_message, created_at, updated_at`

func (p *Persistence) Automations(ctx context.Context) ([]*models.Automation, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT `+automationColumns+` FROM automations ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to query automations: %w", err)
	}
	defer rows.Close()

	var automations []*models.Automation

	for rows.Next() {
		automation, err := scanAutomation(rows)
		if err != nil {
			return nil, err
		}

		automations = append(automations, automation)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate automations: %w", err)
	}

	return automations, nil
}

func (p *Persistence) AutomationByID(ctx context.Context, id string) (*models.Automation, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+automationColumns+` FROM automations WHERE id = $1`, id)

	automation, err := scanAutomation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.NewAutomationError("read", id, persistence.ErrAutomationNotFound)
	}

	if err != nil {
		return nil, persistence.NewAutomationError("read", id, err)
	}

	return automation, nil
}

func (p *Persistence) SaveAutomation(ctx context.Context, automation *models.Automation) error {
	nodesJSON, err := json.Marshal(automation.Nodes)
	if err != nil {
		return persistence.NewAutomationError("encode", automation.ID, err)
	}

	edgesJSON, err := json.Marshal(automation.Edges)
	if err != nil {
		return persistence.NewAutomationError("encode", automation.ID, err)
	}

	var errDate sql.NullTime

	var errMessage sql.NullString

	if automation.LastError != nil {
		errDate = sql.NullTime{Time: automation.LastError.Date, Valid: true}
		errMessage = sql.NullString{String: automation.LastError.Message, Valid: true}
	}

	_, err = p.db.ExecContext(ctx, `
		INSERT INTO automations (`+automationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			active = EXCLUDED.active,
			owner = EXCLUDED.owner,
			nodes = EXCLUDED.nodes,
			edges = EXCLUDED.edges,
			last_run = EXCLUDED.last_run,
			next_run = EXCLUDED.next_run,
			last_error_date = EXCLUDED.last_error_date,
			last_error_message = EXCLUDED.last_error_message,
			updated_at = EXCLUDED.updated_at`,
		automation.ID,
		automation.Name,
		automation.Active,
		automation.Owner,
		nodesJSON,
		edgesJSON,
		nullableTime(automation.LastRun),
		nullableTime(automation.NextRun),
		errDate,
		errMessage,
		automation.CreatedAt,
		automation.UpdatedAt,
	)
	if err != nil {
		return persistence.NewAutomationError("save", automation.ID, err)
	}

	return nil
}

func (p *Persistence) DeleteAutomation(ctx context.Context, id string) error {
	result, err := p.db.ExecContext(ctx, `DELETE FROM automations WHERE id = $1`, id)
	if err != nil {
		return persistence.NewAutomationError("delete", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewAutomationError("delete", id, err)
	}

	if affected == 0 {
		return persistence.NewAutomationError("delete", id, persistence.ErrAutomationNotFound)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAutomation(row rowScanner) (*models.Automation, error) {
	var (
		automation models.Automation
		nodesJSON  []byte
		edgesJSON  []byte
		lastRun    sql.NullTime
		nextRun    sql.NullTime
		errDate    sql.NullTime
		errMessage sql.NullString
	)

	err := row.Scan(
		&automation.ID,
		&automation.Name,
		&automation.Active,
		&automation.Owner,
		&nodesJSON,
		&edgesJSON,
		&lastRun,
		&nextRun,
		&errDate,
		&errMessage,
		&automation.CreatedAt,
		&automation.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(nodesJSON, &automation.Nodes); err != nil {
		return nil, fmt.Errorf("failed to decode nodes: %w", err)
	}

	if err := json.Unmarshal(edgesJSON, &automation.Edges); err != nil {
		return nil, fmt.Errorf("failed to decode edges: %w", err)
	}

	if lastRun.Valid {
		automation.LastRun = &lastRun.Time
	}

	if nextRun.Valid {
		automation.NextRun = &nextRun.Time
	}

	if errDate.Valid {
		automation.LastError = &models.RunError{
			Date:    errDate.Time,
			Message: errMessage.String,
		}
	}

	return &automation, nil
}

func nullableTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}

	return sql.NullTime{Time: *t, Valid: true}
}
