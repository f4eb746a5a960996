package repositories

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/felipe/wagateway/internal/db/models"
	"github.com/felipe/wagateway/internal/logger"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// SessionRepository is the Row Store Adapter's typed surface over the
// sessions table.
type SessionRepository interface {
	Create(session *models.Session) error
	GetByID(id uuid.UUID) (*models.Session, error)
	GetBySessionID(sessionID string) (*models.Session, error)
	GetByUserAndSessionID(userID, sessionID string) (*models.Session, error)
	GetAll(filter *models.SessionFilter) (*models.SessionListResponse, error)
	GetConnectedByUser(userID string) ([]*models.Session, error)
	Update(session *models.Session) error
	UpdateStatus(sessionID string, status models.SessionStatus) error
	UpdateStatusAndJID(sessionID string, status models.SessionStatus, jid, phoneNumber *string) error
	UpdateQRCode(sessionID string, qrCode *string) error
	Delete(sessionID string) error
	Exists(sessionID string) (bool, error)
	GetActiveConnections() ([]*models.Session, error)
}

var sessionColumns = `session_id, user_id, phone_number, jid, status, qr_code,
	last_activity, created_at, updated_at, last_connected_at, metadata`

type sessionRepository struct {
	db *sqlx.DB
	logger logger.Logger
}

func NewSessionRepository(db *sqlx.DB) SessionRepository {
	return &sessionRepository{db: db, logger: logger.Get()}
}

func (r *sessionRepository) Create(session *models.Session) error {
	if err := session.Validate(); err != nil {
		return fmt.Errorf("invalid session data: %w", err)
	}
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	now := time.Now()
	session.CreatedAt = now
	session.UpdatedAt = now

	query := `
 INSERT INTO sessions (id, session_id, user_id, phone_number, jid, status,
 qr_code, last_activity, created_at, updated_at, last_connected_at, metadata)
 VALUES (:id,:session_id,:user_id,:phone_number,:jid,:status,
:qr_code,:last_activity,:created_at,:updated_at,:last_connected_at,:metadata)
	`
	_, err := r.db.NamedExec(query, session)
	if err != nil {
		r.logger.Error().Err(err).Str("session_id", session.SessionID).Msg("failed to create session")
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (r *sessionRepository) GetByID(id uuid.UUID) (*models.Session, error) {
	session := &models.Session{}
	query := fmt.Sprintf("SELECT id, %s FROM sessions WHERE id = $1", sessionColumns)
	if err := r.db.Get(session, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("session not found")
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}

func (r *sessionRepository) GetBySessionID(sessionID string) (*models.Session, error) {
	session := &models.Session{}
	query := fmt.Sprintf("SELECT id, %s FROM sessions WHERE session_id = $1", sessionColumns)
	if err := r.db.Get(session, query, sessionID); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("session not found")
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}

func (r *sessionRepository) GetByUserAndSessionID(userID, sessionID string) (*models.Session, error) {
	session := &models.Session{}
	query := fmt.Sprintf("SELECT id, %s FROM sessions WHERE user_id = $1 AND session_id = $2", sessionColumns)
	if err := r.db.Get(session, query, userID, sessionID); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("session not found")
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}

func (r *sessionRepository) GetConnectedByUser(userID string) ([]*models.Session, error) {
	var sessions []*models.Session
	query := fmt.Sprintf("SELECT id, %s FROM sessions WHERE user_id = $1 AND status = $2", sessionColumns)
	if err := r.db.Select(&sessions, query, userID, models.SessionStatusConnected); err != nil {
		return nil, fmt.Errorf("failed to get connected sessions: %w", err)
	}
	return sessions, nil
}

func (r *sessionRepository) GetAll(filter *models.SessionFilter) (*models.SessionListResponse, error) {
	if filter == nil {
		filter = &models.SessionFilter{}
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PerPage <= 0 {
		filter.PerPage = 20
	}
	if filter.OrderBy == "" {
		filter.OrderBy = "created_at"
	}
	if filter.OrderDir == "" {
		filter.OrderDir = "DESC"
	}

	var conditions []string
	var args []interface{}
	argIndex := 1

	if filter.UserID != nil {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", argIndex))
		args = append(args, *filter.UserID)
		argIndex++
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, *filter.Status)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM sessions %s", whereClause)
	if err := r.db.Get(&total, countQuery, args...); err != nil {
		return nil, fmt.Errorf("failed to count sessions: %w", err)
	}

	offset := (filter.Page - 1) * filter.PerPage
	query := fmt.Sprintf(`
 SELECT id, %s FROM sessions %s
 ORDER BY %s %s
 LIMIT $%d OFFSET $%d
	`, sessionColumns, whereClause, filter.OrderBy, filter.OrderDir, argIndex, argIndex+1)
	args = append(args, filter.PerPage, offset)

	var sessions []models.Session
	if err := r.db.Select(&sessions, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}

	totalPages := (total + filter.PerPage - 1) / filter.PerPage
	return &models.SessionListResponse{
		Sessions: sessions,
		Total: total,
		Page: filter.Page,
		PerPage: filter.PerPage,
		TotalPages: totalPages,
	}, nil
}

func (r *sessionRepository) Update(session *models.Session) error {
	if err := session.Validate(); err != nil {
		return fmt.Errorf("invalid session data: %w", err)
	}
	session.UpdatedAt = time.Now()

	query := `
 UPDATE sessions SET
 phone_number =:phone_number, jid =:jid, status =:status, qr_code =:qr_code,
 last_activity =:last_activity, updated_at =:updated_at,
 last_connected_at =:last_connected_at, metadata =:metadata
 WHERE session_id =:session_id
	`
	result, err := r.db.NamedExec(query, session)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("session not found")
	}
	return nil
}

func (r *sessionRepository) UpdateStatus(sessionID string, status models.SessionStatus) error {
	now := time.Now()
	var lastConnectedAt *time.Time
	if status == models.SessionStatusConnected {
		lastConnectedAt = &now
	}
	query := `
 UPDATE sessions SET status = $2, updated_at = $3,
 last_connected_at = COALESCE($4, last_connected_at), last_activity = $3
 WHERE session_id = $1
	`
	result, err := r.db.Exec(query, sessionID, string(status), now, lastConnectedAt)
	if err != nil {
		return fmt.Errorf("failed to update session status: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("session not found")
	}
	return nil
}

func (r *sessionRepository) UpdateStatusAndJID(sessionID string, status models.SessionStatus, jid, phoneNumber *string) error {
	now := time.Now()
	var lastConnectedAt *time.Time
	if status == models.SessionStatusConnected {
		lastConnectedAt = &now
	}
	query := `
 UPDATE sessions SET status = $2, jid = $3, phone_number = $4, updated_at = $5,
 last_connected_at = COALESCE($6, last_connected_at), last_activity = $5
 WHERE session_id = $1
	`
	result, err := r.db.Exec(query, sessionID, string(status), jid, phoneNumber, now, lastConnectedAt)
	if err != nil {
		return fmt.Errorf("failed to update session status and JID: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("session not found")
	}
	return nil
}

func (r *sessionRepository) UpdateQRCode(sessionID string, qrCode *string) error {
	query := `UPDATE sessions SET qr_code = $1, updated_at = CURRENT_TIMESTAMP WHERE session_id = $2`
	result, err := r.db.Exec(query, qrCode, sessionID)
	if err != nil {
		return fmt.Errorf("failed to update session QR code: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("session not found")
	}
	return nil
}

func (r *sessionRepository) Delete(sessionID string) error {
	result, err := r.db.Exec("DELETE FROM sessions WHERE session_id = $1", sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("session not found")
	}
	return nil
}

func (r *sessionRepository) Exists(sessionID string) (bool, error) {
	var exists bool
	err := r.db.Get(&exists, "SELECT EXISTS(SELECT 1 FROM sessions WHERE session_id = $1)", sessionID)
	if err != nil {
		return false, fmt.Errorf("failed to check session existence: %w", err)
	}
	return exists, nil
}

func (r *sessionRepository) GetActiveConnections() ([]*models.Session, error) {
	var sessions []*models.Session
	query := fmt.Sprintf(`
 SELECT id, %s FROM sessions WHERE status = $1
 ORDER BY last_connected_at DESC NULLS LAST, updated_at DESC
	`, sessionColumns)
	if err := r.db.Select(&sessions, query, models.SessionStatusConnected); err != nil {
		return nil, fmt.Errorf("failed to get active connections: %w", err)
	}
	return sessions, nil
}
