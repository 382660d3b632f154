package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pillarmind/account-service/internal/models"
)

const profileColumns = `account_uid, full_name, date_of_birth, gender, location, timezone,
			      preferred_language, crisis_contact, bio, medications, conditions,
			      pillar_weights, privacy_settings, updated_at`

// GetProfile возвращает профиль учётной записи.
func (s *Storage) GetProfile(ctx context.Context, accountUID string) (*models.Profile, error) {
	const op = "storage.GetProfile"

	query := `SELECT ` + profileColumns + ` FROM profiles WHERE account_uid = $1`
	profile, err := scanProfileRow(s.DB.QueryRowContext(ctx, query, accountUID))
	if err != nil {
		return nil, translateError(op, err)
	}
	return profile, nil
}

// UpdateProfile перезаписывает изменяемые поля профиля и, если phone не nil,
// телефон учётной записи — в одной транзакции: при любом отказе (включая
// нарушение уникальности телефона) не фиксируется ни одно из изменений.
// Вызывающая сторона передаёт уже провалидированный полный профиль.
func (s *Storage) UpdateProfile(ctx context.Context, profile models.Profile, phone *string) error {
	const op = "storage.UpdateProfile"

	weights, privacy, medications, conditions, err := marshalProfileJSON(profile)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if phone != nil {
		query := `UPDATE accounts SET phone = $1, updated_at = $2 WHERE uid = $3`
		res, err := tx.ExecContext(ctx, query, phone, profile.UpdatedAt, profile.AccountUID)
		if err != nil {
			return translateError(op, err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("%s: %w", op, models.ErrNotFound)
		}
	}

	query := `UPDATE profiles
			  SET full_name = $1, date_of_birth = $2, gender = $3, location = $4,
			      timezone = $5, preferred_language = $6, crisis_contact = $7, bio = $8,
			      medications = $9, conditions = $10, pillar_weights = $11,
			      privacy_settings = $12, updated_at = $13
			  WHERE account_uid = $14`
	res, err := tx.ExecContext(ctx, query,
		profile.FullName, profile.DateOfBirth, profile.Gender, profile.Location,
		profile.Timezone, profile.PreferredLanguage, profile.CrisisContact, profile.Bio,
		medications, conditions, weights, privacy, profile.UpdatedAt, profile.AccountUID)
	if err != nil {
		return translateError(op, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// UpdatePrivacy сохраняет настройки приватности профиля.
func (s *Storage) UpdatePrivacy(ctx context.Context, accountUID string, privacy models.PrivacySettings) error {
	const op = "storage.UpdatePrivacy"

	raw, err := json.Marshal(privacy)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	query := `UPDATE profiles SET privacy_settings = $1, updated_at = $2 WHERE account_uid = $3`
	res, err := s.DB.ExecContext(ctx, query, raw, time.Now().UTC(), accountUID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	return nil
}

// SearchProfiles ищет учётные записи по подстроке в username, full_name
// или location без учёта регистра. Возвращает пары аккаунт+профиль
// детерминированно, по возрастанию uid; фильтрацию по настройкам
// приватности выполняет вызывающий сервис.
func (s *Storage) SearchProfiles(ctx context.Context, queryText string, limit, offset int) ([]*models.AccountWithProfile, error) {
	const op = "storage.SearchProfiles"

	pattern := "%" + escapeLike(strings.ToLower(queryText)) + "%"
	query := `SELECT a.uid, a.username, a.email, a.phone, a.role, a.state, a.created_at,
			      p.account_uid, p.full_name, p.date_of_birth, p.gender, p.location, p.timezone,
			      p.preferred_language, p.crisis_contact, p.bio, p.medications, p.conditions,
			      p.pillar_weights, p.privacy_settings, p.updated_at
			  FROM accounts a
			  JOIN profiles p ON p.account_uid = a.uid
			  WHERE a.state = 'active'
			    AND (a.username ILIKE $1 OR p.full_name ILIKE $1 OR p.location ILIKE $1)
			  ORDER BY a.uid
			  LIMIT $2 OFFSET $3`
	rows, err := s.DB.QueryContext(ctx, query, pattern, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.AccountWithProfile
	for rows.Next() {
		var (
			pair        models.AccountWithProfile
			phone       sql.NullString
			fullName    sql.NullString
			dateOfBirth sql.NullTime
			gender      sql.NullString
			location    sql.NullString
			timezone    sql.NullString
			language    sql.NullString
			crisis      sql.NullString
			bio         sql.NullString
			medications []byte
			conditions  []byte
			weights     []byte
			privacy     []byte
		)
		if err = rows.Scan(&pair.Account.UID, &pair.Account.Username, &pair.Account.Email,
			&phone, &pair.Account.Role, &pair.Account.State, &pair.Account.CreatedAt,
			&pair.Profile.AccountUID, &fullName, &dateOfBirth, &gender, &location,
			&timezone, &language, &crisis, &bio, &medications, &conditions,
			&weights, &privacy, &pair.Profile.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if phone.Valid {
			pair.Account.Phone = &phone.String
		}
		assignNullString(&pair.Profile.FullName, fullName)
		assignNullString(&pair.Profile.Gender, gender)
		assignNullString(&pair.Profile.Location, location)
		assignNullString(&pair.Profile.Timezone, timezone)
		assignNullString(&pair.Profile.PreferredLanguage, language)
		assignNullString(&pair.Profile.CrisisContact, crisis)
		assignNullString(&pair.Profile.Bio, bio)
		if dateOfBirth.Valid {
			pair.Profile.DateOfBirth = &dateOfBirth.Time
		}
		if err = unmarshalProfileJSON(&pair.Profile, medications, conditions, weights, privacy); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &pair)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// likeEscaper экранирует метасимволы шаблона LIKE/ILIKE в пользовательском
// вводе, иначе запрос вида "%" совпадает с любой записью. Символ
// экранирования по умолчанию в PostgreSQL — обратная косая черта.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }

func scanProfileRow(row rowScanner) (*models.Profile, error) {
	var (
		p           models.Profile
		fullName    sql.NullString
		dateOfBirth sql.NullTime
		gender      sql.NullString
		location    sql.NullString
		timezone    sql.NullString
		language    sql.NullString
		crisis      sql.NullString
		bio         sql.NullString
		medications []byte
		conditions  []byte
		weights     []byte
		privacy     []byte
	)
	if err := row.Scan(&p.AccountUID, &fullName, &dateOfBirth, &gender, &location,
		&timezone, &language, &crisis, &bio, &medications, &conditions,
		&weights, &privacy, &p.UpdatedAt); err != nil {
		return nil, err
	}
	assignNullString(&p.FullName, fullName)
	assignNullString(&p.Gender, gender)
	assignNullString(&p.Location, location)
	assignNullString(&p.Timezone, timezone)
	assignNullString(&p.PreferredLanguage, language)
	assignNullString(&p.CrisisContact, crisis)
	assignNullString(&p.Bio, bio)
	if dateOfBirth.Valid {
		p.DateOfBirth = &dateOfBirth.Time
	}
	if err := unmarshalProfileJSON(&p, medications, conditions, weights, privacy); err != nil {
		return nil, err
	}
	return &p, nil
}

func assignNullString(dst **string, src sql.NullString) {
	if src.Valid {
		*dst = &src.String
	}
}

func marshalProfileJSON(p models.Profile) (weights, privacy, medications, conditions []byte, err error) {
	if weights, err = json.Marshal(p.PillarWeights); err != nil {
		return nil, nil, nil, nil, err
	}
	if privacy, err = json.Marshal(p.Privacy); err != nil {
		return nil, nil, nil, nil, err
	}
	if p.Medications == nil {
		p.Medications = []models.Medication{}
	}
	if medications, err = json.Marshal(p.Medications); err != nil {
		return nil, nil, nil, nil, err
	}
	if p.Conditions == nil {
		p.Conditions = []string{}
	}
	if conditions, err = json.Marshal(p.Conditions); err != nil {
		return nil, nil, nil, nil, err
	}
	return weights, privacy, medications, conditions, nil
}

func unmarshalProfileJSON(p *models.Profile, medications, conditions, weights, privacy []byte) error {
	if len(medications) > 0 {
		if err := json.Unmarshal(medications, &p.Medications); err != nil {
			return err
		}
	}
	if len(conditions) > 0 {
		if err := json.Unmarshal(conditions, &p.Conditions); err != nil {
			return err
		}
	}
	if len(weights) > 0 {
		if err := json.Unmarshal(weights, &p.PillarWeights); err != nil {
			return err
		}
	}
	if len(privacy) > 0 {
		if err := json.Unmarshal(privacy, &p.Privacy); err != nil {
			return err
		}
	}
	return nil
}
