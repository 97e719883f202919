package dantry

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DefaultLocalKeep 로컬 sink 에 남기는 보고 수
const DefaultLocalKeep = 20

// reportRow error_reports 테이블 행
type reportRow struct {
	ID        string    `gorm:"column:id;primaryKey;size:36"`
	Message   string    `gorm:"column:message;type:text"`
	Stack     string    `gorm:"column:stack;type:text"`
	Severity  string    `gorm:"column:severity;size:16;index"`
	Context   string    `gorm:"column:context;size:255"`
	Source    string    `gorm:"column:source;size:64"`
	UserID    string    `gorm:"column:user_id;size:64"`
	UserAgent string    `gorm:"column:user_agent;size:255"`
	CreatedAt time.Time `gorm:"column:created_at;index"`
}

func (reportRow) TableName() string { return "error_reports" }

func toRow(r Report) reportRow {
	return reportRow{
		ID:        r.ID,
		Message:   r.Message,
		Stack:     r.Stack,
		Severity:  string(r.Severity),
		Context:   r.Context,
		Source:    r.Source,
		UserID:    r.UserID,
		UserAgent: r.UserAgent,
		CreatedAt: r.Timestamp,
	}
}

func (row reportRow) report() Report {
	return Report{
		ID:        row.ID,
		Message:   row.Message,
		Stack:     row.Stack,
		Timestamp: row.CreatedAt.UTC(),
		Source:    row.Source,
		UserAgent: row.UserAgent,
		UserID:    row.UserID,
		Context:   row.Context,
		Severity:  Severity(row.Severity),
	}
}

// GormSink 최근 보고를 로컬 DB 에 보관
type GormSink struct {
	db   *gorm.DB
	keep int
}

// OpenGormSink sqlite 파일을 열고 마이그레이션
func OpenGormSink(path string, keep int) (*GormSink, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("dantry: open sqlite %s: %w", path, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return NewGormSink(db, keep)
}

// NewGormSink 생성자
func NewGormSink(db *gorm.DB, keep int) (*GormSink, error) {
	if keep <= 0 {
		keep = DefaultLocalKeep
	}
	if err := db.AutoMigrate(&reportRow{}); err != nil {
		return nil, fmt.Errorf("dantry: migrate error_reports: %w", err)
	}
	return &GormSink{db: db, keep: keep}, nil
}

func (s *GormSink) Name() string { return "gorm" }

// Write 저장 후 오래된 행 정리
func (s *GormSink) Write(ctx context.Context, reports []Report) error {
	if len(reports) == 0 {
		return nil
	}
	rows := make([]reportRow, 0, len(reports))
	for _, r := range reports {
		rows = append(rows, toRow(r))
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&rows).Error; err != nil {
			return err
		}
		keep := tx.Model(&reportRow{}).Select("id").Order("created_at DESC, id DESC").Limit(s.keep)
		return tx.Where("id NOT IN (?)", keep).Delete(&reportRow{}).Error
	})
}

// List 최신순
func (s *GormSink) List(ctx context.Context) ([]Report, error) {
	var rows []reportRow
	if err := s.db.WithContext(ctx).Order("created_at DESC, id DESC").Limit(s.keep).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]Report, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.report())
	}
	return out, nil
}

// Clear 전체 삭제
func (s *GormSink) Clear(ctx context.Context) error {
	return s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&reportRow{}).Error
}

// Close 커넥션 풀 종료
func (s *GormSink) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
