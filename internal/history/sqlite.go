package history

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/lk2023060901/relay-garden-go/pkg/log"
	"github.com/lk2023060901/relay-garden-go/pkg/metrics"
	"github.com/lk2023060901/relay-garden-go/pkg/util/merr"
)

// SQLiteStore 是基于 SQLite 的 Store 实现。
//
// 同步策略：
//   - 追加写入持有排他锁，快照读取持有共享锁；
//   - 保证快照不会观察到半写入的记录，同时允许多个快照并发执行。
type SQLiteStore struct {
	mu sync.RWMutex
	db *sql.DB
}

// 确保 SQLiteStore 实现了 Store 接口。
var _ Store = (*SQLiteStore)(nil)

const createTableSQL = `CREATE TABLE IF NOT EXISTS messages (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	username TEXT NOT NULL,
	message TEXT NOT NULL,
	ts DATETIME DEFAULT CURRENT_TIMESTAMP
)`

// OpenSQLite 打开（或创建）指定路径上的 SQLite 历史存储。
//
// 行为：
//   - 以 WAL 模式打开数据库并验证连通性；
//   - 建表后清空 messages 表：历史仅在本次进程运行内有效，不跨重启保留。
func OpenSQLite(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, merr.WrapErrParameterInvalidMsg("history storage path is empty")
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, merr.WrapErrHistoryInit(cleanPath, err.Error())
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, merr.WrapErrHistoryInit(cleanPath, err.Error())
	}

	if _, err := db.Exec(createTableSQL); err != nil {
		_ = db.Close()
		return nil, merr.WrapErrHistoryInit(cleanPath, err.Error())
	}

	// 每次启动清空上一轮的历史。清空失败不影响服务启动，仅记录日志：
	// 代价只是回放中混入上一轮的若干旧记录。
	if _, err := db.Exec(`DELETE FROM messages`); err != nil {
		metrics.HistoryFailures.WithLabelValues("truncate").Inc()
		log.Warn("history truncation failed, keeping stale records",
			zap.String("path", cleanPath),
			zap.Error(err))
	}

	log.Info("history store opened", zap.String("path", cleanPath))

	return &SQLiteStore{db: db}, nil
}

// Append 实现 Store.Append。
func (s *SQLiteStore) Append(ctx context.Context, username, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return merr.WrapErrHistoryWrite(username, "store is closed")
	}

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (username, message) VALUES (?, ?)`,
		username, message,
	); err != nil {
		metrics.HistoryFailures.WithLabelValues("append").Inc()
		return merr.WrapErrHistoryWrite(username, err.Error())
	}
	return nil
}

// Recent 实现 Store.Recent。
//
// 返回最近的 limit 条记录，按 id 从大到小排列。
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, merr.WrapErrHistoryRead(limit, "store is closed")
	}
	if limit <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, username, message FROM messages ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		metrics.HistoryFailures.WithLabelValues("query").Inc()
		return nil, merr.WrapErrHistoryRead(limit, err.Error())
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.Username, &r.Message); err != nil {
			metrics.HistoryFailures.WithLabelValues("scan").Inc()
			return nil, merr.WrapErrHistoryRead(limit, err.Error())
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		metrics.HistoryFailures.WithLabelValues("query").Inc()
		return nil, merr.WrapErrHistoryRead(limit, err.Error())
	}
	return records, nil
}

// Close 实现 Store.Close。
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
