package db

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrEmailTaken возвращается при регистрации на занятый email
var ErrEmailTaken = errors.New("пользователь с таким email уже существует")

// ErrUserNotFound возвращается, когда пользователь не найден
var ErrUserNotFound = errors.New("пользователь не найден")

// User представляет пользователя в системе
type User struct {
	ID                uuid.UUID
	Email             string
	PasswordHash      string
	Name              string
	Bio               string
	AvatarURL         string
	Skills            []string
	SkillsToLearn     []string
	EmailConfirmed    bool
	ConfirmationToken string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	LastLoginAt       *time.Time
}

const userColumns = `
    id, COALESCE(email, ''), COALESCE(password_hash, ''), name, bio, avatar_url,
    skills, skills_to_learn, email_confirmed, COALESCE(confirmation_token, ''),
    created_at, updated_at, last_login_at
`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Bio, &u.AvatarURL,
		&u.Skills, &u.SkillsToLearn, &u.EmailConfirmed, &u.ConfirmationToken,
		&u.CreatedAt, &u.UpdatedAt, &u.LastLoginAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// CreateUser регистрирует нового пользователя по email
func CreateUser(email, passwordHash, confirmationToken string) (*User, error) {
	ctx, cancel := GetContext()
	defer cancel()

	row := Pool.QueryRow(ctx, `
        INSERT INTO users (email, password_hash, confirmation_token)
        VALUES ($1, $2, $3)
        RETURNING `+userColumns+`
    `, email, passwordHash, confirmationToken)

	u, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("ошибка создания пользователя: %w", err)
	}
	return u, nil
}

// GetUserByEmail возвращает пользователя по email
func GetUserByEmail(email string) (*User, error) {
	ctx, cancel := GetContext()
	defer cancel()

	row := Pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

// GetUserByID возвращает пользователя по ID
func GetUserByID(id uuid.UUID) (*User, error) {
	ctx, cancel := GetContext()
	defer cancel()

	row := Pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// ConfirmEmail подтверждает email по токену из письма
func ConfirmEmail(token string) (*User, error) {
	ctx, cancel := GetContext()
	defer cancel()

	row := Pool.QueryRow(ctx, `
        UPDATE users
        SET email_confirmed = TRUE, confirmation_token = NULL, updated_at = NOW()
        WHERE confirmation_token = $1
        RETURNING `+userColumns+`
    `, token)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("ошибка подтверждения email: %w", err)
	}
	return u, nil
}

// UpdateProfile обновляет профиль пользователя
func UpdateProfile(id uuid.UUID, name, bio, avatarURL string, skills, skillsToLearn []string) (*User, error) {
	ctx, cancel := GetContext()
	defer cancel()

	if skills == nil {
		skills = []string{}
	}
	if skillsToLearn == nil {
		skillsToLearn = []string{}
	}

	row := Pool.QueryRow(ctx, `
        UPDATE users
        SET name = $2, bio = $3, avatar_url = $4, skills = $5, skills_to_learn = $6, updated_at = NOW()
        WHERE id = $1
        RETURNING `+userColumns+`
    `, id, name, bio, avatarURL, skills, skillsToLearn)

	return scanUser(row)
}

// TouchLastLogin обновляет отметку последнего входа
func TouchLastLogin(id uuid.UUID) error {
	ctx, cancel := GetContext()
	defer cancel()

	_, err := Pool.Exec(ctx, `UPDATE users SET last_login_at = NOW() WHERE id = $1`, id)
	return err
}

// CreateOrUpdateTelegramUser создает нового пользователя через Telegram или
// обновляет существующего
func CreateOrUpdateTelegramUser(telegramID int64, username, firstName, lastName, photoURL string, rawData []byte) (*User, error) {
	ctx, cancel := GetContext()
	defer cancel()

	// Начинаем транзакцию
	tx, err := Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка при начале транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	// Проверяем, существует ли пользователь Telegram
	var userID uuid.UUID
	err = tx.QueryRow(ctx, `
        SELECT user_id FROM telegram_users WHERE telegram_id = $1
    `, telegramID).Scan(&userID)

	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("ошибка при проверке пользователя Telegram: %w", err)
	}

	name := firstName
	if lastName != "" {
		name = firstName + " " + lastName
	}

	if errors.Is(err, pgx.ErrNoRows) {
		// Создаем запись в users: вход через Telegram не требует подтверждения email
		err = tx.QueryRow(ctx, `
            INSERT INTO users (name, avatar_url, email_confirmed, last_login_at)
            VALUES ($1, $2, TRUE, NOW())
            RETURNING id
        `, name, photoURL).Scan(&userID)
		if err != nil {
			return nil, fmt.Errorf("ошибка создания пользователя: %w", err)
		}

		_, err = tx.Exec(ctx, `
            INSERT INTO telegram_users (user_id, telegram_id, username, first_name, last_name, photo_url, raw_data)
            VALUES ($1, $2, $3, $4, $5, $6, $7)
        `, userID, telegramID, username, firstName, lastName, photoURL, rawData)
		if err != nil {
			return nil, fmt.Errorf("ошибка создания пользователя Telegram: %w", err)
		}
	} else {
		_, err = tx.Exec(ctx, `
            UPDATE telegram_users
            SET username = $2, first_name = $3, last_name = $4, photo_url = $5, raw_data = $6, updated_at = NOW()
            WHERE telegram_id = $1
        `, telegramID, username, firstName, lastName, photoURL, rawData)
		if err != nil {
			return nil, fmt.Errorf("ошибка обновления пользователя Telegram: %w", err)
		}

		_, err = tx.Exec(ctx, `UPDATE users SET last_login_at = NOW() WHERE id = $1`, userID)
		if err != nil {
			return nil, fmt.Errorf("ошибка обновления отметки входа: %w", err)
		}
	}

	row := tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
	u, err := scanUser(row)
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}

	return u, nil
}
