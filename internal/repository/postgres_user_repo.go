package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/ichiba/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

const userColumns = `id, name, email, COALESCE(password_hash, ''), provider,
	COALESCE(provider_id, ''), COALESCE(profile_picture, ''), COALESCE(phone_number, ''),
	is_active, created_at, updated_at`

func scanUser(row *sql.Row) (*model.User, error) {
	user := &model.User{}
	err := row.Scan(
		&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.Provider,
		&user.ProviderID, &user.ProfilePicture, &user.PhoneNumber,
		&user.IsActive, &user.CreatedAt, &user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`,
		id,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}
	return user, nil
}

// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`,
		email,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	return user, nil
}

// Create はユーザーを作成する。
func (r *PostgresUserRepo) Create(ctx context.Context, user *model.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, password_hash, provider, provider_id,
		  profile_picture, phone_number, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, NULLIF($4, ''), $5, NULLIF($6, ''), NULLIF($7, ''), NULLIF($8, ''), $9, $10, $11)`,
		user.ID, user.Name, user.Email, user.PasswordHash, user.Provider, user.ProviderID,
		user.ProfilePicture, user.PhoneNumber, user.IsActive, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// UpdateOAuthLink はOAuthログイン成功時にprovider、provider_id、
// profile_pictureを更新する。それ以外のフィールドは変更しない。
func (r *PostgresUserRepo) UpdateOAuthLink(ctx context.Context, userID, provider, providerID, profilePicture string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users
		 SET provider = $2, provider_id = NULLIF($3, ''), profile_picture = NULLIF($4, ''), updated_at = now()
		 WHERE id = $1`,
		userID, provider, providerID, profilePicture,
	)
	if err != nil {
		return fmt.Errorf("failed to update oauth link: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user not found: %s", userID)
	}
	return nil
}

// UpdateProfile はプロフィール編集でname、phone_number、
// profile_pictureを更新する。認証情報には触れない。
func (r *PostgresUserRepo) UpdateProfile(ctx context.Context, userID, name, phoneNumber, profilePicture string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users
		 SET name = $2, phone_number = NULLIF($3, ''), profile_picture = NULLIF($4, ''), updated_at = now()
		 WHERE id = $1`,
		userID, name, phoneNumber, profilePicture,
	)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user not found: %s", userID)
	}
	return nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
