// Package repository содержит реализацию доступа к данным в PostgreSQL.
package repository

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/salda-id/booking-system/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrUserExists возвращается при попытке создать пользователя с уже существующим email.
var (
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound возвращается, если пользователь не найден.
	ErrUserNotFound = errors.New("user not found")
	// ErrStreamerNotFound возвращается, если стример не найден.
	ErrStreamerNotFound = errors.New("streamer not found")
	// ErrScheduleNotFound возвращается, если у стримера нет опубликованного расписания.
	ErrScheduleNotFound = errors.New("schedule not found")
	// ErrVoucherNotFound возвращается, если ваучер с указанным кодом не существует.
	ErrVoucherNotFound = errors.New("voucher not found")
	// ErrVoucherCodeTaken возвращается при создании ваучера с занятым кодом.
	ErrVoucherCodeTaken = errors.New("voucher code already taken")
	// ErrVoucherExhausted возвращается, когда у ваучера не осталось применений.
	ErrVoucherExhausted = errors.New("voucher exhausted")
	// ErrSlotConflict возвращается, если интервал уже занят другим бронированием.
	ErrSlotConflict = errors.New("slot already booked")
	// ErrPaymentExists возвращается при повторной фиксации того же transaction_id.
	ErrPaymentExists = errors.New("payment already recorded")
	// ErrBookingNotFound возвращается, если бронирование не найдено.
	ErrBookingNotFound = errors.New("booking not found")
	// ErrInvalidTransition возвращается при недопустимой смене статуса бронирования.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// withRetry повторяет fn при временных ошибках: сбоях сериализации,
// дедлоках и обрывах соединения. Логика фиксации бронирования идемпотентна,
// поэтому повтор безопасен.
func (r *PostgresRepository) withRetry(ctx context.Context, fn func() error) error {
	var err error
	delays := []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second}

	for i := 0; i <= len(delays); i++ {
		err = fn()
		if err == nil {
			return nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected {
				if i < len(delays) {
					time.Sleep(delays[i])
					continue
				}
			}
		}

		if isConnectionError(err) {
			if i < len(delays) {
				time.Sleep(delays[i])
				continue
			}
		}

		break
	}
	return err
}

func isConnectionError(err error) bool {
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// CreateUser создаёт нового пользователя.
func (r *PostgresRepository) CreateUser(ctx context.Context, email, firstName, lastName string, passwordHash []byte, role model.UserRole) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (email, first_name, last_name, password_hash, role)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		email, firstName, lastName, passwordHash, string(role),
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%w: %s", ErrUserExists, email)
		}
		return 0, fmt.Errorf("create user: %w", err)
	}
	return id, nil
}

// GetUserByEmail возвращает пользователя по email.
func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, email, first_name, last_name, password_hash, role, created_at
		 FROM users WHERE email = $1`,
		email,
	)
	return scanUser(row)
}

// GetUserByID возвращает пользователя по идентификатору.
func (r *PostgresRepository) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, email, first_name, last_name, password_hash, role, created_at
		 FROM users WHERE id = $1`,
		id,
	)
	return scanUser(row)
}

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	var role string
	err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.PasswordHash, &role, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	u.Role = model.UserRole(role)
	return &u, nil
}

// CreateStreamer создаёт профиль стримера для указанного пользователя.
func (r *PostgresRepository) CreateStreamer(ctx context.Context, userID int64, firstName, lastName string, hourlyRate int64) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO streamers (user_id, first_name, last_name, hourly_rate)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		userID, firstName, lastName, hourlyRate,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create streamer: %w", err)
	}
	return id, nil
}

// GetStreamerByID возвращает стримера по идентификатору.
func (r *PostgresRepository) GetStreamerByID(ctx context.Context, id int64) (*model.Streamer, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, user_id, first_name, last_name, hourly_rate, created_at
		 FROM streamers WHERE id = $1`,
		id,
	)
	return scanStreamer(row)
}

// GetStreamerByUserID возвращает профиль стримера по идентификатору пользователя.
func (r *PostgresRepository) GetStreamerByUserID(ctx context.Context, userID int64) (*model.Streamer, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, user_id, first_name, last_name, hourly_rate, created_at
		 FROM streamers WHERE user_id = $1`,
		userID,
	)
	return scanStreamer(row)
}

func scanStreamer(row pgx.Row) (*model.Streamer, error) {
	var s model.Streamer
	err := row.Scan(&s.ID, &s.UserID, &s.FirstName, &s.LastName, &s.HourlyRate, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStreamerNotFound
		}
		return nil, fmt.Errorf("get streamer: %w", err)
	}
	return &s, nil
}

// GetScheduleTemplate возвращает недельный шаблон расписания стримера.
func (r *PostgresRepository) GetScheduleTemplate(ctx context.Context, streamerID int64) (model.WeeklyTemplate, error) {
	var raw []byte
	err := r.pool.QueryRow(ctx,
		`SELECT schedule FROM streamer_schedules WHERE streamer_id = $1`,
		streamerID,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrScheduleNotFound
		}
		return nil, fmt.Errorf("get schedule: %w", err)
	}

	var tpl model.WeeklyTemplate
	if err := json.Unmarshal(raw, &tpl); err != nil {
		return nil, fmt.Errorf("unmarshal schedule: %w", err)
	}

	return tpl, nil
}

// UpsertScheduleTemplate сохраняет недельный шаблон расписания стримера.
func (r *PostgresRepository) UpsertScheduleTemplate(ctx context.Context, streamerID int64, tpl model.WeeklyTemplate) error {
	raw, err := json.Marshal(tpl)
	if err != nil {
		return fmt.Errorf("marshal schedule: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO streamer_schedules (streamer_id, schedule, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (streamer_id) DO UPDATE SET schedule = EXCLUDED.schedule, updated_at = now()`,
		streamerID, raw,
	)
	if err != nil {
		return fmt.Errorf("upsert schedule: %w", err)
	}

	return nil
}
