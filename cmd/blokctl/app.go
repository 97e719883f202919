package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/damoang/blok-client/internal/auth"
	"github.com/damoang/blok-client/internal/common"
	"github.com/damoang/blok-client/internal/config"
	"github.com/damoang/blok-client/internal/dantry"
	"github.com/damoang/blok-client/internal/events"
	"github.com/damoang/blok-client/internal/feed"
	"github.com/damoang/blok-client/internal/store"
	"github.com/damoang/blok-client/pkg/apiclient"
	pkglogger "github.com/damoang/blok-client/pkg/logger"
	pkgredis "github.com/damoang/blok-client/pkg/redis"
)

const shutdownTimeout = 5 * time.Second

// app 명령 실행에 필요한 컴포넌트 묶음
type app struct {
	cfg      *config.Config
	out      io.Writer
	errOut   io.Writer
	log      zerolog.Logger
	api      *apiclient.Client
	session  *auth.Session
	auth     *auth.Service
	bus      *events.Bus
	feed     *feed.Engine
	reporter *dantry.Reporter
	local    *dantry.GormSink
	remote   *dantry.ClickHouseSink
	closers  []func() error
}

func newApp(ctx context.Context, cfg *config.Config, out, errOut io.Writer, log zerolog.Logger) (*app, error) {
	a := &app{cfg: cfg, out: out, errOut: errOut, log: log}

	st, err := a.tokenStore(ctx)
	if err != nil {
		return nil, err
	}
	a.session = auth.NewSession(st, pkglogger.WithComponent("session"))
	a.api = apiclient.New(apiclient.Config{BaseURL: cfg.API.BaseURL, Timeout: cfg.API.Timeout}, a.session, pkglogger.WithComponent("apiclient"))
	a.auth = auth.NewService(a.api, a.session, pkglogger.WithComponent("auth"))

	a.bus = events.NewBus(pkglogger.WithComponent("events"))
	for _, topic := range events.Topics {
		a.bus.Subscribe("blokctl", topic, func(e events.Event) {
			log.Debug().Str("topic", string(e.Topic)).Str("source", e.Source).Interface("payload", e.Payload).Msg("event")
		})
	}
	a.feed = feed.NewEngine(a.api, a.session, a.bus, feed.Options{DropStaleReconciliation: cfg.Feed.DropStaleReconciliation}, pkglogger.WithComponent("feed"))

	a.reporter = dantry.NewReporter(dantry.Options{
		Capacity: cfg.Reporter.Capacity,
		Source:   "blokctl",
		Sinks:    a.sinks(ctx),
		Log:      pkglogger.WithComponent("dantry"),
	})
	return a, nil
}

func (a *app) tokenStore(ctx context.Context) (store.TokenStore, error) {
	switch a.cfg.Token.Store {
	case store.KindMemory:
		return store.NewMemoryStore(), nil
	case store.KindRedis:
		client, err := pkgredis.NewClient(ctx, pkgredis.Options{
			Host:     a.cfg.Redis.Host,
			Port:     a.cfg.Redis.Port,
			Password: a.cfg.Redis.Password,
			DB:       a.cfg.Redis.DB,
			PoolSize: a.cfg.Redis.PoolSize,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		return store.NewRedisStore(client, a.cfg.Token.Profile, a.cfg.Token.TTL), nil
	default:
		return store.NewFileStore(a.cfg.Token.Path), nil
	}
}

// sinks 설정된 보고서 저장소. 연결 실패 시 해당 저장소 없이 계속
func (a *app) sinks(ctx context.Context) []dantry.Sink {
	var sinks []dantry.Sink
	if path := a.cfg.Reporter.DB; path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			a.log.Warn().Err(err).Msg("report db directory unavailable, continuing without local reports")
		} else if sink, err := dantry.OpenGormSink(path, a.cfg.Reporter.Keep); err != nil {
			a.log.Warn().Err(err).Msg("continuing without local reports")
		} else {
			a.local = sink
			a.closers = append(a.closers, sink.Close)
			sinks = append(sinks, sink)
		}
	}
	if ch := a.cfg.ClickHouse; ch.Host != "" {
		sink, err := dantry.OpenClickHouseSink(ctx, dantry.ClickHouseConfig{
			Host:     ch.Host,
			Port:     ch.Port,
			Database: ch.Database,
			User:     ch.User,
			Password: ch.Password,
			Table:    ch.Table,
		})
		if err != nil {
			a.log.Warn().Err(err).Msg("continuing without ClickHouse reports")
		} else {
			a.remote = sink
			a.closers = append(a.closers, sink.Close)
			sinks = append(sinks, sink)
		}
	}
	return sinks
}

// restore 저장된 토큰으로 세션 복원. 실패해도 게스트로 계속
func (a *app) restore(ctx context.Context) {
	if _, err := a.auth.Restore(ctx); err != nil {
		a.log.Warn().Err(err).Msg("session restore failed")
	}
}

// report 명령 실패를 에러 리포터에 기록
func (a *app) report(command string, err error) {
	var appErr *common.AppError
	switch {
	case errors.As(err, &appErr) && appErr.Status == 0 && appErr.Category != common.CategoryNetwork:
		a.reporter.ReportUserError(appErr.Message, command)
	case errors.As(err, &appErr):
		a.reporter.ReportAPIError(err, command)
	default:
		a.reporter.ReportUserError(err.Error(), command)
	}
}

func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.reporter.Close(ctx); err != nil {
		a.log.Warn().Err(err).Msg("reporter did not drain")
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Debug().Err(err).Msg("close")
		}
	}
}

// flags 하위 명령 플래그
func (a *app) flags(name, args string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	fs.Usage = func() {
		fmt.Fprintf(a.errOut, "usage: blokctl %s %s\n", name, args)
		fs.PrintDefaults()
	}
	return fs
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}
