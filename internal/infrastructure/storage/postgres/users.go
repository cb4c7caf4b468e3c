package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"farmastok/internal/core/apperror"
	"farmastok/internal/core/id"
	"farmastok/internal/domain/auth"
)

const (
	userTable  = "users"
	tokenTable = "refresh_tokens"
)

// UserRepo implements auth.UserRepository.
type UserRepo struct {
	txManager *TxManager
}

// NewUserRepo creates a new user repository.
func NewUserRepo(txManager *TxManager) *UserRepo {
	return &UserRepo{txManager: txManager}
}

var _ auth.UserRepository = (*UserRepo)(nil)

func (r *UserRepo) userSelect() squirrel.SelectBuilder {
	return builder().
		Select(
			"user_id", "name", "email", "password_hash", "role", "is_active",
			"last_login_at", "failed_login_attempts", "locked_until",
			"created_at", "updated_at",
		).
		From(userTable)
}

// Create creates a new account.
func (r *UserRepo) Create(ctx context.Context, user *auth.User) error {
	q := builder().
		Insert(userTable).
		Columns(
			"user_id", "name", "email", "password_hash", "role", "is_active",
			"failed_login_attempts", "created_at", "updated_at",
		).
		Values(
			user.ID, user.Name, user.Email, user.PasswordHash, user.Role,
			user.IsActive, user.FailedLoginAttempts, user.CreatedAt, user.UpdatedAt,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetByID retrieves an account by ID.
func (r *UserRepo) GetByID(ctx context.Context, userID id.ID) (*auth.User, error) {
	q := r.userSelect().Where(squirrel.Eq{"user_id": userID}).Limit(1)
	return r.getUser(ctx, q, userID.String())
}

// GetByEmail retrieves an account by email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	q := r.userSelect().Where(squirrel.Eq{"email": email}).Limit(1)
	return r.getUser(ctx, q, email)
}

func (r *UserRepo) getUser(ctx context.Context, q squirrel.SelectBuilder, ref string) (*auth.User, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var user auth.User
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &user, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("user", ref)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}

// Update updates account data.
func (r *UserRepo) Update(ctx context.Context, user *auth.User) error {
	q := builder().
		Update(userTable).
		Set("name", user.Name).
		Set("email", user.Email).
		Set("password_hash", user.PasswordHash).
		Set("role", user.Role).
		Set("is_active", user.IsActive).
		Set("last_login_at", user.LastLoginAt).
		Set("failed_login_attempts", user.FailedLoginAttempts).
		Set("locked_until", user.LockedUntil).
		Set("updated_at", time.Now()).
		Where(squirrel.Eq{"user_id": user.ID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("user", user.ID.String())
	}
	return nil
}

// List retrieves accounts with filtering.
func (r *UserRepo) List(ctx context.Context, filter auth.UserFilter) ([]auth.User, int, error) {
	base := r.userSelect()
	countQ := builder().Select("COUNT(*)").From(userTable)

	conds := squirrel.And{}
	if filter.Search != "" {
		term := "%" + filter.Search + "%"
		conds = append(conds, squirrel.Or{
			squirrel.ILike{"name": term},
			squirrel.ILike{"email": term},
		})
	}
	if filter.IsActive != nil {
		conds = append(conds, squirrel.Eq{"is_active": *filter.IsActive})
	}
	if filter.Role != "" {
		conds = append(conds, squirrel.Eq{"role": filter.Role})
	}
	if len(conds) > 0 {
		base = base.Where(conds)
		countQ = countQ.Where(conds)
	}

	querier := r.txManager.GetQuerier(ctx)

	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count query: %w", err)
	}
	var total int
	if err := pgxscan.Get(ctx, querier, &total, countSQL, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	base = base.OrderBy("name ASC")
	if filter.Limit > 0 {
		base = base.Limit(uint64(filter.Limit)).Offset(uint64(filter.Offset))
	}

	sql, args, err := base.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build query: %w", err)
	}

	var users []auth.User
	if err := pgxscan.Select(ctx, querier, &users, sql, args...); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	return users, total, nil
}

// Exists checks if the email is taken.
func (r *UserRepo) Exists(ctx context.Context, email string) (bool, error) {
	q := builder().
		Select("COUNT(*)").
		From(userTable).
		Where(squirrel.Eq{"email": email})

	sql, args, err := q.ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}

	var count int
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &count, sql, args...); err != nil {
		return false, fmt.Errorf("check email exists: %w", err)
	}
	return count > 0, nil
}

// TokenRepo implements auth.TokenRepository.
type TokenRepo struct {
	txManager *TxManager
}

// NewTokenRepo creates a new refresh token repository.
func NewTokenRepo(txManager *TxManager) *TokenRepo {
	return &TokenRepo{txManager: txManager}
}

var _ auth.TokenRepository = (*TokenRepo)(nil)

// SaveRefreshToken saves a refresh token.
func (r *TokenRepo) SaveRefreshToken(ctx context.Context, token *auth.RefreshToken) error {
	q := builder().
		Insert(tokenTable).
		Columns("token_id", "user_id", "token_hash", "expires_at", "created_at").
		Values(token.ID, token.UserID, token.TokenHash, token.ExpiresAt, token.CreatedAt)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert refresh token: %w", err)
	}
	return nil
}

// GetRefreshToken retrieves refresh token by hash.
func (r *TokenRepo) GetRefreshToken(ctx context.Context, tokenHash string) (*auth.RefreshToken, error) {
	q := builder().
		Select(
			"token_id", "user_id", "token_hash", "expires_at",
			"created_at", "revoked_at", "revoked_reason",
		).
		From(tokenTable).
		Where(squirrel.Eq{"token_hash": tokenHash}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var token auth.RefreshToken
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &token, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("refresh token", "")
		}
		return nil, fmt.Errorf("get refresh token: %w", err)
	}
	return &token, nil
}

// RevokeRefreshToken revokes a refresh token.
func (r *TokenRepo) RevokeRefreshToken(ctx context.Context, tokenID id.ID, reason string) error {
	q := builder().
		Update(tokenTable).
		Set("revoked_at", time.Now()).
		Set("revoked_reason", reason).
		Where(squirrel.Eq{"token_id": tokenID}).
		Where(squirrel.Eq{"revoked_at": nil})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// RevokeAllUserTokens revokes all tokens for an account.
func (r *TokenRepo) RevokeAllUserTokens(ctx context.Context, userID id.ID, reason string) error {
	q := builder().
		Update(tokenTable).
		Set("revoked_at", time.Now()).
		Set("revoked_reason", reason).
		Where(squirrel.Eq{"user_id": userID}).
		Where(squirrel.Eq{"revoked_at": nil})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("revoke user tokens: %w", err)
	}
	return nil
}

// CleanupExpiredTokens removes expired tokens.
func (r *TokenRepo) CleanupExpiredTokens(ctx context.Context) (int, error) {
	q := builder().
		Delete(tokenTable).
		Where(squirrel.Lt{"expires_at": time.Now()})

	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete: %w", err)
	}

	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("cleanup expired tokens: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
