package dantry

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

const (
	DefaultClickHouseTable = "error_logs.client_errors"
	clickHouseSinkName     = "clickhouse"
)

// ClickHouseConfig ClickHouse 접속 정보
type ClickHouseConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	Table    string
}

// chConn is the subset of driver.Conn the sink uses
type chConn interface {
	PrepareBatch(ctx context.Context, query string, opts ...driver.PrepareBatchOption) (driver.Batch, error)
	Exec(ctx context.Context, query string, args ...any) error
	Query(ctx context.Context, query string, args ...any) (driver.Rows, error)
	Close() error
}

// ClickHouseSink 보고서를 ClickHouse 에 배치 INSERT
type ClickHouseSink struct {
	conn  chConn
	table string
}

// OpenClickHouseSink 연결 + ping
func OpenClickHouseSink(ctx context.Context, cfg ClickHouseConfig) (*ClickHouseSink, error) {
	options := &clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 30,
		},
		DialTimeout:      5 * time.Second,
		MaxOpenConns:     2,
		MaxIdleConns:     1,
		ConnMaxLifetime:  5 * time.Minute,
		ConnOpenStrategy: clickhouse.ConnOpenInOrder,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	}
	options.TLS = tlsConfig(cfg.Host)

	conn, err := clickhouse.Open(options)
	if err != nil {
		return nil, fmt.Errorf("dantry: failed to open ClickHouse: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := conn.Ping(pingCtx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("dantry: failed to ping ClickHouse: %w", err)
	}

	return newClickHouseSink(conn, cfg.Table), nil
}

func newClickHouseSink(conn chConn, table string) *ClickHouseSink {
	if table == "" {
		table = DefaultClickHouseTable
	}
	return &ClickHouseSink{conn: conn, table: table}
}

// privateHost reports hosts reached without TLS: loopback, RFC 1918 and
// unique local addresses, plus the usual local host names
func privateHost(host string) bool {
	switch strings.ToLower(host) {
	case "localhost", "host.docker.internal":
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && (ip.IsLoopback() || ip.IsPrivate())
}

// tlsConfig nil for private hosts, otherwise TLS with certificate verification
func tlsConfig(host string) *tls.Config {
	if privateHost(host) {
		return nil
	}
	return &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}
}

func (s *ClickHouseSink) Name() string { return clickHouseSinkName }

// EnsureTable 테이블이 없으면 생성
func (s *ClickHouseSink) EnsureTable(ctx context.Context) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id String,
	message String,
	stack String,
	severity LowCardinality(String),
	context String,
	source LowCardinality(String),
	user_id String,
	user_agent String,
	created_at DateTime64(3)
) ENGINE = MergeTree ORDER BY (created_at, id)`, s.table)
	if err := s.conn.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("dantry: create table: %w", err)
	}
	return nil
}

// Write 배치 INSERT
func (s *ClickHouseSink) Write(ctx context.Context, reports []Report) error {
	if len(reports) == 0 {
		return nil
	}
	batch, err := s.conn.PrepareBatch(ctx, fmt.Sprintf(
		"INSERT INTO %s (id, message, stack, severity, context, source, user_id, user_agent, created_at)", s.table))
	if err != nil {
		return fmt.Errorf("dantry: prepare batch: %w", err)
	}
	for _, r := range reports {
		if err := batch.Append(
			r.ID, r.Message, r.Stack, string(r.Severity), r.Context,
			r.Source, r.UserID, r.UserAgent, r.Timestamp,
		); err != nil {
			_ = batch.Abort()
			return fmt.Errorf("dantry: append report %s: %w", r.ID, err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("dantry: send batch: %w", err)
	}
	return nil
}

// Recent 최근 보고 조회 (최신순)
func (s *ClickHouseSink) Recent(ctx context.Context, limit int) ([]Report, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := s.conn.Query(ctx, fmt.Sprintf(`
		SELECT id, message, stack, severity, context, source, user_id, user_agent, created_at
		FROM %s
		ORDER BY created_at DESC
		LIMIT ?`, s.table), limit)
	if err != nil {
		return nil, fmt.Errorf("dantry: query recent: %w", err)
	}
	defer rows.Close()

	var out []Report
	for rows.Next() {
		var (
			r        Report
			severity string
		)
		if err := rows.Scan(&r.ID, &r.Message, &r.Stack, &severity, &r.Context,
			&r.Source, &r.UserID, &r.UserAgent, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("dantry: scan: %w", err)
		}
		r.Severity = Severity(severity)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close 연결 종료
func (s *ClickHouseSink) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
