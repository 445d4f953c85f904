package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	sq "github.com/Masterminds/squirrel"

	"go-soilsync/models"
)

// TableName 历史记录表
const TableName = "soil_analyses"

var columns = []string{
	"id", "user_id", "created_at",
	"phosphorus", "potassium", "nitrogen", "organic_carbon", "cation_exchange",
	"sand_percent", "clay_percent", "silt_percent", "rainfall", "elevation", "crop_type",
	"recommended_fertilizer", "application_rate", "confidence_score", "expected_yield_increase", "source",
}

// SQLStore MySQL / SQLite 存储，表结构见 config.Migrations
type SQLStore struct {
	db  *sql.DB
	max int
}

var _ Store = (*SQLStore)(nil)

// NewSQLStore 使用已迁移的数据库
func NewSQLStore(db *sql.DB, max int) *SQLStore {
	return &SQLStore{db: db, max: normalizeMax(max)}
}

// Append 在事务中插入记录并删除超出上限的旧记录
func (s *SQLStore) Append(ctx context.Context, e models.HistoryEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	insert, args, err := sq.Insert(TableName).Columns(columns...).Values(
		e.ID, e.UserID, e.CreatedAt.UnixNano(),
		e.SoilData.Phosphorus, e.SoilData.Potassium, e.SoilData.Nitrogen, e.SoilData.OrganicCarbon, e.SoilData.CationExchange,
		e.SoilData.SandPercent, e.SoilData.ClayPercent, e.SoilData.SiltPercent, e.SoilData.Rainfall, e.SoilData.Elevation, e.SoilData.CropType,
		e.Fertilizer, e.Rate, e.Confidence, e.ExpectedYield, e.Source,
	).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, insert, args...); err != nil {
		return fmt.Errorf("insert analysis: %w", err)
	}

	stale, err := s.staleIDs(ctx, tx, e.UserID)
	if err != nil {
		return err
	}
	if len(stale) > 0 {
		del, args, err := sq.Delete(TableName).Where(sq.Eq{"id": stale}).ToSql()
		if err != nil {
			return fmt.Errorf("build delete: %w", err)
		}
		if _, err := tx.ExecContext(ctx, del, args...); err != nil {
			return fmt.Errorf("evict analyses: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *SQLStore) staleIDs(ctx context.Context, tx *sql.Tx, owner string) ([]string, error) {
	query, args, err := sq.Select("id").From(TableName).
		Where(sq.Eq{"user_id": owner}).
		OrderBy("created_at DESC", "id DESC").
		Limit(math.MaxInt64).
		Offset(uint64(s.max)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build stale query: %w", err)
	}

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query stale: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLStore) List(ctx context.Context, owner string, limit int) ([]models.HistoryEntry, error) {
	query, args, err := sq.Select(columns...).From(TableName).
		Where(sq.Eq{"user_id": owner}).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(normalizeLimit(limit, s.max))).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query analyses: %w", err)
	}
	defer rows.Close()

	out := []models.HistoryEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}

func (s *SQLStore) Get(ctx context.Context, owner, id string) (models.HistoryEntry, error) {
	query, args, err := sq.Select(columns...).From(TableName).
		Where(sq.Eq{"id": id, "user_id": owner}).
		ToSql()
	if err != nil {
		return models.HistoryEntry{}, fmt.Errorf("build get query: %w", err)
	}

	e, err := scanEntry(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return models.HistoryEntry{}, models.ErrNotFound
	}
	return e, err
}

func (s *SQLStore) MaxEntries() int { return s.max }

func (s *SQLStore) Close() error { return s.db.Close() }

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (models.HistoryEntry, error) {
	var (
		e       models.HistoryEntry
		created int64
	)
	err := row.Scan(
		&e.ID, &e.UserID, &created,
		&e.SoilData.Phosphorus, &e.SoilData.Potassium, &e.SoilData.Nitrogen, &e.SoilData.OrganicCarbon, &e.SoilData.CationExchange,
		&e.SoilData.SandPercent, &e.SoilData.ClayPercent, &e.SoilData.SiltPercent, &e.SoilData.Rainfall, &e.SoilData.Elevation, &e.SoilData.CropType,
		&e.Fertilizer, &e.Rate, &e.Confidence, &e.ExpectedYield, &e.Source,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.HistoryEntry{}, err
		}
		return models.HistoryEntry{}, fmt.Errorf("scan analysis: %w", err)
	}
	e.CreatedAt = time.Unix(0, created).UTC()
	return e, nil
}
