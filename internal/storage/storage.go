package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/ecoscan/ecoscan/cmd/config"
	"github.com/ecoscan/ecoscan/internal/logger"
	"github.com/ecoscan/ecoscan/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgtype"
	_ "github.com/jackc/pgx/v4/stdlib"
	"go.uber.org/zap"
)

var (
	DB                     *sql.DB
	ErrConnectionFailed    = errors.New("db connection failed")
	ErrCreatingTableFailed = errors.New("creating table failed")
	ErrUserNotFound        = errors.New("user not found")
	ErrOrderNotFound       = errors.New("order not found")
	ErrAlreadyRedeemed     = errors.New("order already redeemed")
	ErrInsufficientPoints  = errors.New("insufficient points")
	ErrUnknownBucket       = errors.New("unknown redemption bucket")
)

var counterBuckets = map[string]bool{
	"one":    true,
	"three":  true,
	"five":   true,
	"ten":    true,
	"twenty": true,
}

func Init() error {
	if config.DatabaseURI == "" {
		return ErrConnectionFailed
	}

	db, err := sql.Open("pgx", config.DatabaseURI)
	if err != nil {
		logger.Log.Fatal("Error opening database connection", zap.Error(err))
		return ErrConnectionFailed
	}
	DB = db

	tables := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY NOT NULL,
			email VARCHAR(255) UNIQUE NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			name VARCHAR(255) NOT NULL,
			avatar_index INT NOT NULL DEFAULT 0,
			points INT NOT NULL DEFAULT 0,
			lifetime_points INT NOT NULL DEFAULT 0,
			scan_count INT NOT NULL DEFAULT 0,
			last_scan TIMESTAMP,
			last_trash_photo BYTEA,
			is_admin BOOLEAN NOT NULL DEFAULT FALSE,
			claimed_missions TEXT[] NOT NULL DEFAULT '{}',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS scan_days (
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			day DATE NOT NULL,
			PRIMARY KEY (user_id, day)
		);`,
		`CREATE TABLE IF NOT EXISTS orders (
			id UUID PRIMARY KEY NOT NULL,
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			reward_name VARCHAR(255) NOT NULL,
			cost INT NOT NULL,
			status VARCHAR(20) NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			redeemed_at TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS rewards (
			id UUID PRIMARY KEY NOT NULL,
			name VARCHAR(255) NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			cost INT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS monthly_redemptions (
			id VARCHAR(32) PRIMARY KEY NOT NULL,
			one INT NOT NULL DEFAULT 0,
			three INT NOT NULL DEFAULT 0,
			five INT NOT NULL DEFAULT 0,
			ten INT NOT NULL DEFAULT 0,
			twenty INT NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS settings (
			key VARCHAR(64) PRIMARY KEY NOT NULL,
			value TEXT NOT NULL
		);`,
	}

	for _, table := range tables {
		if _, err := DB.Exec(table); err != nil {
			logger.Log.Error("Error creating table", zap.Error(err))
			return ErrCreatingTableFailed
		}
	}

	_, err = DB.Exec(`INSERT INTO monthly_redemptions (id) VALUES ('current_month') ON CONFLICT (id) DO NOTHING;`)
	if err != nil {
		logger.Log.Error("Error seeding monthly counters", zap.Error(err))
		return ErrCreatingTableFailed
	}

	return nil
}

const userColumns = `id, email, password_hash, name, avatar_index, points, lifetime_points, scan_count, last_scan, is_admin, claimed_missions, created_at`

func scanUser(row *sql.Row) (models.User, error) {
	var user models.User
	var claimed pgtype.TextArray

	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.Name,
		&user.AvatarIndex, &user.Points, &user.LifetimePoints, &user.ScanCount,
		&user.LastScan, &user.IsAdmin, &claimed, &user.CreatedAt)
	if err != nil {
		return models.User{}, err
	}

	for _, el := range claimed.Elements {
		user.ClaimedMissions = append(user.ClaimedMissions, el.String)
	}

	return user, nil
}

func GetUserByEmail(ctx context.Context, email string) (models.User, error) {

	user, err := scanUser(DB.QueryRowContext(ctx, `
		SELECT `+userColumns+` FROM users WHERE email = $1;
	`, email))

	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return models.User{}, err
		}
		return models.User{}, nil
	}

	return user, nil
}

func GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error) {

	user, err := scanUser(DB.QueryRowContext(ctx, `
		SELECT `+userColumns+` FROM users WHERE id = $1;
	`, userID))

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}

	return user, nil
}

func CreateUser(ctx context.Context, userID string, email string, passwordHash string, name string, avatarIndex int) error {

	_, err := DB.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, name, avatar_index) VALUES ($1, $2, $3, $4, $5);
	`, userID, email, passwordHash, name, avatarIndex)

	return err
}

func UpdateUserProfile(ctx context.Context, userID uuid.UUID, name string, avatarIndex int) error {

	_, err := DB.ExecContext(ctx, `
		UPDATE users SET name = $1, avatar_index = $2 WHERE id = $3;
	`, name, avatarIndex, userID)

	return err
}

func DeleteUser(ctx context.Context, userID uuid.UUID) error {

	result, err := DB.ExecContext(ctx, `
		DELETE FROM users WHERE id = $1;
	`, userID)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrUserNotFound
	}

	return nil
}

// ApplyScanAward commits a verified scan: both balances and the scan count
// move as SQL-side deltas, last_scan is stamped, the verified photo replaces
// the previous one, and the calendar day is inserted with set semantics so a
// same-day rescan cannot inflate streaks.
func ApplyScanAward(ctx context.Context, userID uuid.UUID, points int, photo []byte, day time.Time, now time.Time) error {

	tx, err := DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE users
		SET points = points + $1,
			lifetime_points = lifetime_points + $1,
			scan_count = scan_count + 1,
			last_scan = $2,
			last_trash_photo = $3
		WHERE id = $4;
	`, points, now, photo, userID)
	if err != nil {
		tx.Rollback()
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO scan_days (user_id, day) VALUES ($1, $2) ON CONFLICT (user_id, day) DO NOTHING;
	`, userID, day.Format("2006-01-02"))
	if err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

// GetLastTrashPhoto returns the photo kept from the user's most recent
// verified scan, or nil when none has been stored yet. The blob is excluded
// from the regular user select so profile reads stay light.
func GetLastTrashPhoto(ctx context.Context, userID uuid.UUID) ([]byte, error) {

	var photo []byte

	err := DB.QueryRowContext(ctx, `
		SELECT last_trash_photo FROM users WHERE id = $1;
	`, userID).Scan(&photo)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return photo, nil
}

func GetScanDays(ctx context.Context, userID uuid.UUID) ([]time.Time, error) {

	rows, err := DB.QueryContext(ctx, `
		SELECT day FROM scan_days WHERE user_id = $1;
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var days []time.Time
	for rows.Next() {
		var day time.Time
		if err = rows.Scan(&day); err != nil {
			return nil, err
		}
		days = append(days, day)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return days, nil
}

// ClaimMission pays out a mission exactly once: the membership check and the
// credit happen in one guarded UPDATE, so a double claim loses the race in
// the database rather than in the handler. Returns false when already
// claimed.
func ClaimMission(ctx context.Context, userID uuid.UUID, missionID string, rewardPoints int) (bool, error) {

	result, err := DB.ExecContext(ctx, `
		UPDATE users
		SET claimed_missions = array_append(claimed_missions, $2),
			points = points + $3,
			lifetime_points = lifetime_points + $3
		WHERE id = $1 AND NOT ($2 = ANY(claimed_missions));
	`, userID, missionID, rewardPoints)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}

func GetRewards(ctx context.Context) ([]models.Reward, error) {

	rows, err := DB.QueryContext(ctx, `
		SELECT id, name, description, cost FROM rewards ORDER BY cost;
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rewards []models.Reward
	for rows.Next() {
		var reward models.Reward
		if err = rows.Scan(&reward.ID, &reward.Name, &reward.Description, &reward.Cost); err != nil {
			return nil, err
		}
		rewards = append(rewards, reward)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return rewards, nil
}

// CreateOrder debits the user and creates the PENDING order in one
// transaction. The debit is guarded by the current balance, so an
// insufficient-points redemption is refused before any order row exists.
func CreateOrder(ctx context.Context, orderID uuid.UUID, userID uuid.UUID, rewardName string, cost int) error {

	tx, err := DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE users SET points = points - $1 WHERE id = $2 AND points >= $1;
	`, cost, userID)
	if err != nil {
		tx.Rollback()
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		tx.Rollback()
		return err
	}
	if affected == 0 {
		tx.Rollback()
		return ErrInsufficientPoints
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, user_id, reward_name, cost, status) VALUES ($1, $2, $3, $4, $5);
	`, orderID, userID, rewardName, cost, models.PENDING)
	if err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

func GetOrderByID(ctx context.Context, orderID uuid.UUID) (models.Order, error) {

	var order models.Order

	err := DB.QueryRowContext(ctx, `
		SELECT id, user_id, reward_name, cost, status, created_at, redeemed_at FROM orders WHERE id = $1;
	`, orderID).Scan(&order.ID, &order.UserID, &order.RewardName, &order.Cost,
		&order.Status, &order.CreatedAt, &order.RedeemedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Order{}, ErrOrderNotFound
		}
		return models.Order{}, err
	}

	return order, nil
}

func GetUserOrders(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {

	rows, err := DB.QueryContext(ctx, `
		SELECT id, user_id, reward_name, cost, status, created_at, redeemed_at
		FROM orders WHERE user_id = $1 ORDER BY created_at DESC;
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		var order models.Order
		err = rows.Scan(&order.ID, &order.UserID, &order.RewardName, &order.Cost,
			&order.Status, &order.CreatedAt, &order.RedeemedAt)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return orders, nil
}

// RedeemOrder flips a pending order to REDEEMED and bumps the monthly
// counter bucket in a single transaction. The status flip is guarded by the
// current status, so confirming the same code twice never double-pays and a
// crash cannot leave the counter behind a redeemed order.
func RedeemOrder(ctx context.Context, orderID uuid.UUID, bucket string) error {

	if !counterBuckets[bucket] {
		return ErrUnknownBucket
	}

	tx, err := DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE orders SET status = $1, redeemed_at = CURRENT_TIMESTAMP WHERE id = $2 AND status = $3;
	`, models.REDEEMED, orderID, models.PENDING)
	if err != nil {
		tx.Rollback()
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		tx.Rollback()
		return err
	}
	if affected == 0 {
		tx.Rollback()

		var status string
		err = DB.QueryRowContext(ctx, `SELECT status FROM orders WHERE id = $1;`, orderID).Scan(&status)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrOrderNotFound
		}
		if err != nil {
			return err
		}
		return ErrAlreadyRedeemed
	}

	// Bucket names come from a fixed whitelist, never from user input.
	_, err = tx.ExecContext(ctx, `
		UPDATE monthly_redemptions SET `+bucket+` = `+bucket+` + 1 WHERE id = 'current_month';
	`)
	if err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

func GetMonthlyRedemptions(ctx context.Context) (models.MonthlyRedemptions, error) {

	var counters models.MonthlyRedemptions

	err := DB.QueryRowContext(ctx, `
		SELECT one, three, five, ten, twenty FROM monthly_redemptions WHERE id = 'current_month';
	`).Scan(&counters.One, &counters.Three, &counters.Five, &counters.Ten, &counters.Twenty)

	if err != nil {
		return models.MonthlyRedemptions{}, err
	}

	return counters, nil
}

// ResetMonthlyRedemptions zeroes every bucket. Running it twice in the same
// period rewrites zeros, which is a no-op.
func ResetMonthlyRedemptions(ctx context.Context) error {

	_, err := DB.ExecContext(ctx, `
		UPDATE monthly_redemptions SET one = 0, three = 0, five = 0, ten = 0, twenty = 0 WHERE id = 'current_month';
	`)

	return err
}

func GetLeaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {

	rows, err := DB.QueryContext(ctx, `
		SELECT id, name, avatar_index, lifetime_points FROM users ORDER BY lifetime_points DESC LIMIT $1;
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.LeaderboardEntry
	for rows.Next() {
		var entry models.LeaderboardEntry
		if err = rows.Scan(&entry.UserID, &entry.Name, &entry.AvatarIndex, &entry.LifetimePoints); err != nil {
			return nil, err
		}
		entry.Rank = len(entries) + 1
		entries = append(entries, entry)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}

func GetSetting(ctx context.Context, key string) (string, error) {

	var value string

	err := DB.QueryRowContext(ctx, `
		SELECT value FROM settings WHERE key = $1;
	`, key).Scan(&value)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}

	return value, nil
}

func SetSetting(ctx context.Context, key string, value string) error {

	_, err := DB.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value;
	`, key, value)

	return err
}

// Handle adapts the package-level storage functions to the narrow
// interfaces the scan workflow is constructed with.
type Handle struct{}

func (Handle) GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error) {
	return GetUserByID(ctx, userID)
}

func (Handle) ApplyScanAward(ctx context.Context, userID uuid.UUID, points int, photo []byte, day time.Time, now time.Time) error {
	return ApplyScanAward(ctx, userID, points, photo, day, now)
}

func (Handle) GetSetting(ctx context.Context, key string) (string, error) {
	return GetSetting(ctx, key)
}
