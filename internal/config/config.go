package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/damoang/blok-client/internal/store"
)

// Config blok 클라이언트 설정
type Config struct {
	Env        string           `yaml:"env"`
	API        APIConfig        `yaml:"api"`
	Token      TokenConfig      `yaml:"token"`
	Redis      RedisConfig      `yaml:"redis"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
	Reporter   ReporterConfig   `yaml:"reporter"`
	Views      ViewsConfig      `yaml:"views"`
	Feed       FeedConfig       `yaml:"feed"`
	Admin      AdminConfig      `yaml:"admin"`
}

type APIConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// TokenConfig 세션 토큰 저장소. Store 는 file|redis|memory
type TokenConfig struct {
	Store   string        `yaml:"store"`
	Path    string        `yaml:"path"`
	Profile string        `yaml:"profile"`
	TTL     time.Duration `yaml:"ttl"`
}

type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

// ClickHouseConfig 에러 리포트 원격 저장소. Host 가 비어 있으면 사용하지 않음
type ClickHouseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Table    string `yaml:"table"`
}

// ReporterConfig DB 는 sqlite 경로, 비어 있으면 로컬 저장 안 함
type ReporterConfig struct {
	Capacity int    `yaml:"capacity"`
	Keep     int    `yaml:"keep"`
	DB       string `yaml:"db"`
}

type ViewsConfig struct {
	Debounce  time.Duration `yaml:"debounce"`
	Threshold float64       `yaml:"threshold"`
}

type FeedConfig struct {
	DropStaleReconciliation bool `yaml:"drop_stale_reconciliation"`
}

type AdminConfig struct {
	PageSize int `yaml:"page_size"`
}

// Default 기본값
func Default() *Config {
	tokenPath := ".blok/token"
	if home, err := os.UserHomeDir(); err == nil {
		tokenPath = filepath.Join(home, ".blok", "token")
	}
	return &Config{
		Env:   "local",
		API:   APIConfig{BaseURL: "http://localhost:8080", Timeout: 15 * time.Second},
		Token: TokenConfig{Store: store.KindFile, Path: tokenPath, Profile: "default"},
		Redis: RedisConfig{Host: "localhost", Port: 6379, PoolSize: 4},
		ClickHouse: ClickHouseConfig{
			Port:     9000,
			Database: "error_logs",
			User:     "default",
		},
		Reporter: ReporterConfig{Capacity: 50, Keep: 20},
		Views:    ViewsConfig{Debounce: 500 * time.Millisecond, Threshold: 0.5},
		Admin:    AdminConfig{PageSize: 20},
	}
}

// Path APP_ENV 기준 설정 파일 경로
func Path(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf("configs/config.%s.yaml", env)
}

// Load 설정 파일 로드 후 환경변수 덮어쓰기.
// A missing file is not an error: defaults plus environment apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Env, "APP_ENV")
	setString(&cfg.API.BaseURL, "BLOK_API_URL")
	setString(&cfg.Token.Store, "BLOK_TOKEN_STORE")
	setString(&cfg.Token.Path, "BLOK_TOKEN_PATH")
	setString(&cfg.Redis.Host, "REDIS_HOST")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")
	setString(&cfg.ClickHouse.Host, "CLICKHOUSE_HOST")
	setString(&cfg.ClickHouse.Database, "CLICKHOUSE_DB")
	setString(&cfg.ClickHouse.User, "CLICKHOUSE_USER")
	setString(&cfg.ClickHouse.Password, "CLICKHOUSE_PASSWORD")
	setString(&cfg.Reporter.DB, "BLOK_REPORT_DB")

	for key, dst := range map[string]*int{
		"REDIS_PORT":      &cfg.Redis.Port,
		"REDIS_DB":        &cfg.Redis.DB,
		"CLICKHOUSE_PORT": &cfg.ClickHouse.Port,
	} {
		if err := setInt(dst, key); err != nil {
			return err
		}
	}
	return nil
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = n
	return nil
}

// Validate 필수 값 검증
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive")
	}
	if !store.ValidKind(c.Token.Store) {
		return fmt.Errorf("unknown token store %q", c.Token.Store)
	}
	if c.Token.Store == store.KindFile && c.Token.Path == "" {
		return fmt.Errorf("token.path is required for the file store")
	}
	if c.Views.Debounce <= 0 {
		return fmt.Errorf("views.debounce must be positive")
	}
	if c.Views.Threshold <= 0 || c.Views.Threshold > 1 {
		return fmt.Errorf("views.threshold must be in (0, 1]")
	}
	return nil
}

// LogResolved 최종 설정 출력 (비밀번호 제외)
func LogResolved(cfg *Config, log zerolog.Logger) {
	log.Info().
		Str("env", cfg.Env).
		Str("api", cfg.API.BaseURL).
		Dur("timeout", cfg.API.Timeout).
		Str("token_store", cfg.Token.Store).
		Str("redis", fmt.Sprintf("%s:%d/%d", cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.DB)).
		Bool("clickhouse", cfg.ClickHouse.Host != "").
		Str("report_db", cfg.Reporter.DB).
		Dur("view_debounce", cfg.Views.Debounce).
		Float64("view_threshold", cfg.Views.Threshold).
		Msg("config resolved")
}
