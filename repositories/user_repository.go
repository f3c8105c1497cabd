package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Dosada05/rating-board/models"
)

var ErrUserNotFound = errors.New("user not found")

type UserRepository interface {
	List(ctx context.Context) ([]models.User, error)
	GetByName(ctx context.Context, trapAccountName string) (*models.User, error)
	// UpsertAll writes the full merged snapshot in a single statement:
	// insert for new members, overwrite of every non-key column for
	// existing ones. Rows absent from the snapshot are left untouched.
	UpsertAll(ctx context.Context, users []models.User) error
}

type postgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) UserRepository {
	return &postgresUserRepository{db: db}
}

const userColumns = `trap_account_name, atcoder_account_name, atcoder_rating, heuristic_rating, is_algo_team, is_active, grade`

func (r *postgresUserRepository) List(ctx context.Context) ([]models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		ORDER BY trap_account_name ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]models.User, 0)
	for rows.Next() {
		var user models.User
		scanErr := rows.Scan(
			&user.TrapAccountName,
			&user.AtCoderName,
			&user.AtCoderRating,
			&user.HeuristicRating,
			&user.IsAlgoTeam,
			&user.IsActive,
			&user.Grade,
		)
		if scanErr != nil {
			return nil, scanErr
		}
		users = append(users, user)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return users, nil
}

func (r *postgresUserRepository) GetByName(ctx context.Context, trapAccountName string) (*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE trap_account_name = $1`

	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, trapAccountName).Scan(
		&user.TrapAccountName,
		&user.AtCoderName,
		&user.AtCoderRating,
		&user.HeuristicRating,
		&user.IsAlgoTeam,
		&user.IsActive,
		&user.Grade,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (r *postgresUserRepository) UpsertAll(ctx context.Context, users []models.User) error {
	if len(users) == 0 {
		return nil
	}

	query := buildUpsertQuery(len(users))
	args := buildUpsertArgs(users)

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to upsert users: %w", err)
	}
	return nil
}

// buildUpsertQuery renders a multi-row INSERT ... ON CONFLICT statement for
// n users, seven placeholders per row.
func buildUpsertQuery(n int) string {
	var sb strings.Builder
	sb.WriteString(`INSERT INTO users (` + userColumns + `) VALUES `)
	for i := 0; i < n; i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * 7
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7)
	}
	sb.WriteString(`
		ON CONFLICT (trap_account_name) DO UPDATE SET
			atcoder_account_name = EXCLUDED.atcoder_account_name,
			atcoder_rating = EXCLUDED.atcoder_rating,
			heuristic_rating = EXCLUDED.heuristic_rating,
			is_algo_team = EXCLUDED.is_algo_team,
			is_active = EXCLUDED.is_active,
			grade = EXCLUDED.grade`)
	return sb.String()
}

func buildUpsertArgs(users []models.User) []interface{} {
	args := make([]interface{}, 0, len(users)*7)
	for _, user := range users {
		args = append(args,
			user.TrapAccountName,
			user.AtCoderName,
			user.AtCoderRating,
			user.HeuristicRating,
			user.IsAlgoTeam,
			user.IsActive,
			user.Grade,
		)
	}
	return args
}
