package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pillarmind/account-service/internal/models"
)

const accountColumns = `uid, username, email, phone, password_hash, role, state,
			      created_at, updated_at, last_login_at, failed_login_attempts,
			      lockout_until, password_changed_at`

// CreateAccountWithProfile сохраняет новую учётную запись и её профиль
// в одной транзакции: либо создаются обе записи, либо ни одной.
func (s *Storage) CreateAccountWithProfile(ctx context.Context, acc models.Account, profile models.Profile) error {
	const op = "storage.CreateAccountWithProfile"

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `INSERT INTO accounts (uid, username, email, phone, password_hash, role, state,
			      created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`
	if _, err = tx.ExecContext(ctx, query,
		acc.UID, acc.Username, acc.Email, acc.Phone, acc.PasswordHash,
		acc.Role, acc.State, acc.CreatedAt); err != nil {
		return translateError(op, err)
	}

	weights, privacy, medications, conditions, err := marshalProfileJSON(profile)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	query = `INSERT INTO profiles (account_uid, pillar_weights, privacy_settings,
			      medications, conditions, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err = tx.ExecContext(ctx, query,
		profile.AccountUID, weights, privacy, medications, conditions, profile.UpdatedAt); err != nil {
		return translateError(op, err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetAccountByEmail возвращает учётную запись по адресу почты.
func (s *Storage) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	const op = "storage.GetAccountByEmail"

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`
	return s.scanAccount(op, s.DB.QueryRowContext(ctx, query, email))
}

// GetAccountByUID возвращает учётную запись по идентификатору.
func (s *Storage) GetAccountByUID(ctx context.Context, uid string) (*models.Account, error) {
	const op = "storage.GetAccountByUID"

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE uid = $1`
	return s.scanAccount(op, s.DB.QueryRowContext(ctx, query, uid))
}

// ListAccounts возвращает учётные записи с пагинацией, стабильно по uid.
func (s *Storage) ListAccounts(ctx context.Context, limit, offset int) ([]*models.Account, error) {
	const op = "storage.ListAccounts"

	query := `SELECT ` + accountColumns + ` FROM accounts ORDER BY uid LIMIT $1 OFFSET $2`
	rows, err := s.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Account
	for rows.Next() {
		acc, err := scanAccountRow(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, acc)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// RecordLoginSuccess фиксирует успешный вход: обновляет last_login_at,
// сбрасывает счётчик неудачных попыток и блокировку.
func (s *Storage) RecordLoginSuccess(ctx context.Context, uid string, at time.Time) error {
	const op = "storage.RecordLoginSuccess"

	query := `UPDATE accounts
			  SET last_login_at = $1, failed_login_attempts = 0, lockout_until = NULL,
			      updated_at = $1
			  WHERE uid = $2`
	if _, err := s.DB.ExecContext(ctx, query, at, uid); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// RecordLoginFailure увеличивает счётчик неудачных попыток и, при
// достижении порога, устанавливает блокировку до lockoutUntil.
func (s *Storage) RecordLoginFailure(ctx context.Context, uid string, attempts int, lockoutUntil *time.Time) error {
	const op = "storage.RecordLoginFailure"

	query := `UPDATE accounts
			  SET failed_login_attempts = $1, lockout_until = $2, updated_at = $3
			  WHERE uid = $4`
	if _, err := s.DB.ExecContext(ctx, query, attempts, lockoutUntil, time.Now().UTC(), uid); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// UpdatePasswordHash атомарно заменяет хэш пароля и фиксирует момент смены.
func (s *Storage) UpdatePasswordHash(ctx context.Context, uid, hash string, changedAt time.Time) error {
	const op = "storage.UpdatePasswordHash"

	query := `UPDATE accounts
			  SET password_hash = $1, password_changed_at = $2, updated_at = $2
			  WHERE uid = $3`
	res, err := s.DB.ExecContext(ctx, query, hash, changedAt, uid)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	return nil
}

// UpdateRole изменяет роль учётной записи.
func (s *Storage) UpdateRole(ctx context.Context, uid string, role models.Role) error {
	const op = "storage.UpdateRole"

	query := `UPDATE accounts SET role = $1, updated_at = $2 WHERE uid = $3`
	res, err := s.DB.ExecContext(ctx, query, role, time.Now().UTC(), uid)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	return nil
}

// TransitionState переводит учётную запись из event.FromState в event.ToState
// и дописывает запись журнала в одной транзакции. Оптимистическая проверка:
// строка обновляется только если её текущее состояние совпадает с FromState,
// иначе возвращается ErrInvalidStateTransition. Переход в deleted
// анонимизирует данные на месте: строка и журнал сохраняются.
func (s *Storage) TransitionState(ctx context.Context, event models.StatusEvent) error {
	const op = "storage.TransitionState"

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `UPDATE accounts SET state = $1, updated_at = $2 WHERE uid = $3 AND state = $4`
	res, err := tx.ExecContext(ctx, query, event.ToState, event.CreatedAt, event.AccountUID, event.FromState)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%s: %w", op, models.ErrInvalidStateTransition)
	}

	if event.ToState == models.StateDeleted {
		if err = anonymizeAccount(ctx, tx, event.AccountUID); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	query = `INSERT INTO account_status_events (account_uid, actor_uid, from_state, to_state, reason, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err = tx.ExecContext(ctx, query,
		event.AccountUID, event.ActorUID, event.FromState, event.ToState,
		event.Reason, event.CreatedAt); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// anonymizeAccount затирает персональные данные учётной записи и профиля.
// Почта и имя заменяются надгробными значениями на основе uid, чтобы
// не нарушать ограничения уникальности.
func anonymizeAccount(ctx context.Context, tx *sql.Tx, uid string) error {
	query := `UPDATE accounts
			  SET username = 'deleted-' || uid,
			      email = 'deleted-' || uid || '@invalid.local',
			      phone = NULL, password_hash = ''
			  WHERE uid = $1`
	if _, err := tx.ExecContext(ctx, query, uid); err != nil {
		return err
	}
	query = `UPDATE profiles
			 SET full_name = NULL, date_of_birth = NULL, gender = NULL, location = NULL,
			     timezone = NULL, preferred_language = NULL, crisis_contact = NULL,
			     bio = NULL, medications = '[]', conditions = '[]',
			     privacy_settings = '{"show_profile":false,"show_email":false,"show_phone":false,"show_location":false,"show_birthday":false,"show_in_search":false,"allow_messages":false}',
			     updated_at = NOW()
			 WHERE account_uid = $1`
	_, err := tx.ExecContext(ctx, query, uid)
	return err
}

// ListStatusEvents возвращает журнал переходов учётной записи, от старых к новым.
func (s *Storage) ListStatusEvents(ctx context.Context, accountUID string) ([]*models.StatusEvent, error) {
	const op = "storage.ListStatusEvents"

	query := `SELECT id, account_uid, actor_uid, from_state, to_state, reason, created_at
			  FROM account_status_events
			  WHERE account_uid = $1
			  ORDER BY id`
	rows, err := s.DB.QueryContext(ctx, query, accountUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.StatusEvent
	for rows.Next() {
		var e models.StatusEvent
		if err = rows.Scan(&e.ID, &e.AccountUID, &e.ActorUID, &e.FromState,
			&e.ToState, &e.Reason, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Storage) scanAccount(op string, row *sql.Row) (*models.Account, error) {
	acc, err := scanAccountRow(row)
	if err != nil {
		return nil, translateError(op, err)
	}
	return acc, nil
}

func scanAccountRow(row rowScanner) (*models.Account, error) {
	acc := &models.Account{}
	var phone sql.NullString
	var lastLoginAt, lockoutUntil, passwordChangedAt sql.NullTime
	if err := row.Scan(&acc.UID, &acc.Username, &acc.Email, &phone, &acc.PasswordHash,
		&acc.Role, &acc.State, &acc.CreatedAt, &acc.UpdatedAt, &lastLoginAt,
		&acc.FailedLoginAttempts, &lockoutUntil, &passwordChangedAt); err != nil {
		return nil, err
	}
	if phone.Valid {
		acc.Phone = &phone.String
	}
	if lastLoginAt.Valid {
		acc.LastLoginAt = &lastLoginAt.Time
	}
	if lockoutUntil.Valid {
		acc.LockoutUntil = &lockoutUntil.Time
	}
	if passwordChangedAt.Valid {
		acc.PasswordChangedAt = &passwordChangedAt.Time
	}
	return acc, nil
}
