package submissions

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"

	"application-workflow/internal/common/errors"
	"application-workflow/internal/common/logger"
	"application-workflow/internal/models"

	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// errAlreadyApplied is returned by Insert when the (posting_id, email) unique
// constraint rejects the row.
var errAlreadyApplied = stderrors.New("application already exists")

type Repository struct {
	db     *sql.DB
	logger logger.Logger
}

func NewRepository(db *sql.DB, log logger.Logger) *Repository {
	return &Repository{db: db, logger: log}
}

// FindExisting returns the id of a completed submission for the pair.
func (r *Repository) FindExisting(ctx context.Context, postingID, email string) (string, bool, error) {
	var id string
	err := r.db.QueryRowContext(ctx, `
		SELECT id FROM job_applications
		WHERE posting_id = $1 AND email = $2`, postingID, email).Scan(&id)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.NewQueryExecutionFailedError("duplicate_check", err)
	}
	return id, true, nil
}

// Insert stores the application and its audit entry in one transaction.
func (r *Repository) Insert(ctx context.Context, app *models.Application) error {
	responsesJSON, err := json.Marshal(app.Responses)
	if err != nil {
		return errors.NewDatabaseInsertFailedError(fmt.Errorf("marshal responses: %w", err))
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewDatabaseConnectionFailedError(err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx, `
		INSERT INTO job_applications (
			id, posting_id, email, name, phone, age, cep, address, whatsapp,
			instagram, linkedin, responses, idempotency_key, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		app.ID,
		app.PostingID,
		app.Email,
		app.Name,
		app.Phone,
		app.Age,
		app.CEP,
		app.Address,
		app.WhatsApp,
		app.Instagram,
		app.LinkedIn,
		responsesJSON,
		app.IdempotencyKey,
		app.Status,
		app.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if stderrors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return errAlreadyApplied
		}
		return errors.NewDatabaseInsertFailedError(err)
	}

	auditJSON, err := json.Marshal(map[string]interface{}{
		"postingId":      app.PostingID,
		"idempotencyKey": app.IdempotencyKey,
		"answered":       len(app.Responses),
	})
	if err != nil {
		auditJSON = []byte("{}")
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO application_audit_log (application_id, action, details, created_at)
		VALUES ($1, $2, $3, $4)`,
		app.ID, "application_submitted", auditJSON, app.CreatedAt,
	); err != nil {
		return errors.NewDatabaseInsertFailedError(err)
	}

	if err := tx.Commit(); err != nil {
		return errors.NewDatabaseInsertFailedError(err)
	}
	return nil
}
