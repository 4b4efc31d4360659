package database

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// Execer 写入所需的最小接口，*sql.DB 满足
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Connect 连接到数据库
func Connect(databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// 测试连接
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// 设置连接池
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return db, nil
}

// Migrations 建表语句，按顺序执行且可重复执行
var Migrations = []string{
	// 原始消息归档
	`CREATE TABLE IF NOT EXISTS uof_messages (
		id BIGSERIAL PRIMARY KEY,
		message_type VARCHAR(50) NOT NULL,
		event_id VARCHAR(100),
		product_id INTEGER NOT NULL,
		sport_id VARCHAR(50),
		routing_key VARCHAR(255) NOT NULL,
		encoding VARCHAR(10) NOT NULL DEFAULT 'xml',
		payload BYTEA NOT NULL,
		timestamp BIGINT,
		received_at TIMESTAMP NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_uof_messages_event_id ON uof_messages(event_id)`,
	`CREATE INDEX IF NOT EXISTS idx_uof_messages_message_type ON uof_messages(message_type)`,
	`CREATE INDEX IF NOT EXISTS idx_uof_messages_received_at ON uof_messages(received_at)`,

	// 生产者状态
	`CREATE TABLE IF NOT EXISTS producer_status (
		id BIGSERIAL PRIMARY KEY,
		product_id INTEGER UNIQUE NOT NULL,
		status VARCHAR(20) DEFAULT 'unknown',
		reason VARCHAR(100),
		last_alive BIGINT NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
}

// Migrate 运行数据库迁移
func Migrate(ctx context.Context, db Execer) error {
	for i, migration := range Migrations {
		if _, err := db.ExecContext(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
