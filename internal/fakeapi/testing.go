package fakeapi

import (
	"net/http/httptest"
	"testing"
)

// Start 서버를 httptest 로 띄우고 테스트 종료 시 정리
func Start(tb testing.TB, opts ...Option) (*Server, *httptest.Server) {
	tb.Helper()
	s := New(opts...)
	ts := httptest.NewServer(s.Handler())
	tb.Cleanup(ts.Close)
	return s, ts
}
