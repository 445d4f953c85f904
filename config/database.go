package config

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"

	"go-soilsync/logger"
)

// 本地开发数据库连接信息
const (
	Username = "root"
	Password = "root"
	Hostname = "127.0.0.1:3306"
	DBName   = "soilsync"
)

// DefaultMySQLDSN 本地 MySQL 连接串
func DefaultMySQLDSN() string {
	cfg := mysql.NewConfig()
	cfg.User = Username
	cfg.Passwd = Password
	cfg.Net = "tcp"
	cfg.Addr = Hostname
	cfg.DBName = DBName
	cfg.ParseTime = true
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	return cfg.FormatDSN()
}

// OpenDB 连接数据库并自动迁移
func OpenDB(ctx context.Context, cfg StorageConfig, log *logger.Logger) (*sql.DB, error) {
	var (
		db  *sql.DB
		err error
	)
	switch cfg.Driver {
	case DriverMySQL:
		db, err = sql.Open("mysql", cfg.DSN)
	case DriverSQLite:
		db, err = openSQLite(cfg.DSN)
	default:
		return nil, fmt.Errorf("driver %q is not a SQL driver", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := Migrate(ctx, db, log); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	log.Info("Database connected and migrated successfully", "driver", cfg.Driver)
	return db, nil
}

func openSQLite(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// 每个 :memory: 连接都是独立的数据库
	if dsn == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}
	return db, nil
}

// Migrate 执行所有未执行过的迁移
func Migrate(ctx context.Context, db *sql.DB, log *logger.Logger) error {
	// 创建 migrations 表用于跟踪迁移状态
	if err := createMigrationsTable(ctx, db); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	for _, migration := range Migrations() {
		if err := runMigrationIfNotExists(ctx, db, migration, log); err != nil {
			return fmt.Errorf("failed to run migration %s: %w", migration.Name, err)
		}
	}

	return nil
}

// Migration 迁移结构
type Migration struct {
	Name string
	SQL  string
}

// createMigrationsTable 创建迁移表，MySQL 与 SQLite 通用
func createMigrationsTable(ctx context.Context, db *sql.DB) error {
	createSQL := `
	CREATE TABLE IF NOT EXISTS migrations (
		name VARCHAR(255) NOT NULL PRIMARY KEY,
		executed_at BIGINT NOT NULL
	)
	`
	_, err := db.ExecContext(ctx, createSQL)
	return err
}

// Migrations 获取所有迁移
func Migrations() []Migration {
	return []Migration{
		{
			Name: "001_create_soil_analyses_table",
			SQL: `
			CREATE TABLE IF NOT EXISTS soil_analyses (
				id VARCHAR(32) NOT NULL PRIMARY KEY,
				user_id VARCHAR(64) NOT NULL DEFAULT '',
				created_at BIGINT NOT NULL,
				phosphorus DOUBLE NOT NULL,
				potassium DOUBLE NOT NULL,
				nitrogen DOUBLE NOT NULL,
				organic_carbon DOUBLE NOT NULL,
				cation_exchange DOUBLE NOT NULL,
				sand_percent DOUBLE NOT NULL,
				clay_percent DOUBLE NOT NULL,
				silt_percent DOUBLE NOT NULL,
				rainfall DOUBLE NOT NULL,
				elevation DOUBLE NOT NULL,
				crop_type VARCHAR(64) NOT NULL,
				recommended_fertilizer VARCHAR(64) NOT NULL,
				application_rate DOUBLE NOT NULL,
				confidence_score DOUBLE NOT NULL,
				expected_yield_increase DOUBLE NOT NULL,
				source VARCHAR(16) NOT NULL DEFAULT ''
			)
			`,
		},
		{
			Name: "002_index_soil_analyses_user_created",
			SQL:  `CREATE INDEX idx_soil_analyses_user_created ON soil_analyses (user_id, created_at)`,
		},
	}
}

// runMigrationIfNotExists 如果迁移不存在则运行
func runMigrationIfNotExists(ctx context.Context, db *sql.DB, migration Migration, log *logger.Logger) error {
	// 检查迁移是否已执行
	var count int
	err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM migrations WHERE name = ?", migration.Name).Scan(&count)
	if err != nil {
		return err
	}

	if count > 0 {
		log.Debug("Migration already executed, skipping", "migration", migration.Name)
		return nil
	}

	log.Info("Running migration", "migration", migration.Name)
	if _, err := db.ExecContext(ctx, migration.SQL); err != nil {
		return err
	}

	// 记录迁移已执行
	_, err = db.ExecContext(ctx, "INSERT INTO migrations (name, executed_at) VALUES (?, ?)", migration.Name, time.Now().Unix())
	return err
}
