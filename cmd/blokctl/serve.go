package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/damoang/blok-client/internal/fakeapi"
	pkglogger "github.com/damoang/blok-client/pkg/logger"
)

// cmdServeFake 인메모리 백엔드 실행. Prometheus 지표는 /metrics
func cmdServeFake(ctx context.Context, a *app, args []string) error {
	fs := a.flags("serve-fake", "[-addr host:port] [-empty]")
	addr := fs.String("addr", ":8080", "listen address")
	empty := fs.Bool("empty", false, "start without seed data")
	if err := fs.Parse(args); err != nil {
		return err
	}

	opts := []fakeapi.Option{fakeapi.WithLogger(pkglogger.WithComponent("fakeapi"))}
	if *empty {
		opts = append(opts, fakeapi.WithoutSeed())
	}
	srv := fakeapi.New(opts...)
	router := srv.Router()
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "blok-fakeapi"})
	})

	httpSrv := &http.Server{Addr: *addr, Handler: router, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpSrv.ListenAndServe()
	}()
	a.log.Info().Str("addr", *addr).Msg("fake backend listening")
	a.printf("fake backend listening on %s (admin/%s, ayse/%s)\n", *addr, fakeapi.SeedAdminPassword, fakeapi.SeedUserPassword)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}
