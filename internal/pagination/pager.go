package pagination

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/damoang/blok-client/internal/common"
	"github.com/damoang/blok-client/internal/domain"
	"github.com/damoang/blok-client/internal/mapper"
	"github.com/damoang/blok-client/pkg/apiclient"
)

// DefaultPageSize 기본 페이지 크기
const DefaultPageSize = 20

var (
	// ErrNoNextPage is returned by Next on the last page
	ErrNoNextPage = errors.New("already on the last page")
	// ErrNoPrevPage is returned by Prev on the first page
	ErrNoPrevPage = errors.New("already on the first page")
)

// Query 페이지 요청 파라미터
type Query struct {
	Page int
	Size int
	Q    string
}

// Values encodes page, size and a trimmed q (omitted when empty)
func (q Query) Values() url.Values {
	v := url.Values{}
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("size", strconv.Itoa(q.Size))
	if s := strings.TrimSpace(q.Q); s != "" {
		v.Set("q", s)
	}
	return v
}

// Fetcher loads one page
type Fetcher[T any] func(ctx context.Context, q Query) (*domain.PageResult[T], error)

// HTTPFetcher GET path?page=&size=&q= 후 PageResult 매핑
func HTTPFetcher[T any](api *apiclient.Client, path string, item func(mapper.Record) T) Fetcher[T] {
	return func(ctx context.Context, q Query) (*domain.PageResult[T], error) {
		resp := api.Get(ctx, apiclient.WithQuery(path, q.Values()))
		if appErr := common.FromResponse(resp); appErr != nil {
			return nil, appErr
		}
		if !resp.HasData() {
			return nil, common.ClassifyResponse(resp.Status, apiclient.ParseError)
		}
		page := mapper.MapPage(mapper.DecodeRecord(resp.Body), item)
		return &page, nil
	}
}

// Info 페이지 상태. 아직 로드 전이면 요청 값과 first/last=true
type Info struct {
	Page          int
	Size          int
	TotalPages    int
	TotalElements int64
	IsFirst       bool
	IsLast        bool
}

// Pager 서버 페이지네이션 목록.
// Navigation trusts the server's first/last flags; a response for a query
// that is no longer current is discarded.
type Pager[T any] struct {
	mu    sync.Mutex
	fetch Fetcher[T]
	query Query
	data  *domain.PageResult[T]
	seq   uint64
	log   zerolog.Logger
}

// New 생성자
func New[T any](fetch Fetcher[T], size int, initialQuery string, log zerolog.Logger) *Pager[T] {
	if size <= 0 {
		size = DefaultPageSize
	}
	return &Pager[T]{
		fetch: fetch,
		query: Query{Size: size, Q: initialQuery},
		log:   log,
	}
}

// Query 현재 요청 파라미터
func (p *Pager[T]) Query() Query {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.query
}

func (p *Pager[T]) run(ctx context.Context, mutate func(q *Query)) error {
	p.mu.Lock()
	if mutate != nil {
		mutate(&p.query)
	}
	q := p.query
	p.seq++
	seq := p.seq
	p.mu.Unlock()

	page, err := p.fetch(ctx, q)
	if err != nil {
		p.log.Warn().Err(err).Int("page", q.Page).Str("q", q.Q).Msg("page fetch failed")
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if seq != p.seq {
		p.log.Debug().Int("page", q.Page).Msg("stale page response dropped")
		return nil
	}
	p.data = page
	return nil
}

// Load 현재 쿼리로 조회
func (p *Pager[T]) Load(ctx context.Context) error {
	return p.run(ctx, nil)
}

// Refresh is Load under the name the list screens use
func (p *Pager[T]) Refresh(ctx context.Context) error {
	return p.run(ctx, nil)
}

// Search 새 검색어. 항상 0 페이지부터
func (p *Pager[T]) Search(ctx context.Context, q string) error {
	return p.run(ctx, func(cur *Query) {
		cur.Q = q
		cur.Page = 0
	})
}

// SetPage 페이지 이동. 음수는 0
func (p *Pager[T]) SetPage(ctx context.Context, n int) error {
	return p.run(ctx, func(cur *Query) { cur.Page = max(n, 0) })
}

// SetSize 페이지 크기 변경 후 0 페이지부터
func (p *Pager[T]) SetSize(ctx context.Context, size int) error {
	if size <= 0 {
		size = DefaultPageSize
	}
	return p.run(ctx, func(cur *Query) {
		cur.Size = size
		cur.Page = 0
	})
}

// Next 다음 페이지. 서버가 last 라고 하면 거부
func (p *Pager[T]) Next(ctx context.Context) error {
	p.mu.Lock()
	if p.data == nil || p.data.Last {
		p.mu.Unlock()
		return ErrNoNextPage
	}
	next := p.data.Number + 1
	p.mu.Unlock()
	return p.run(ctx, func(cur *Query) { cur.Page = next })
}

// Prev 이전 페이지. 서버가 first 라고 하면 거부
func (p *Pager[T]) Prev(ctx context.Context) error {
	p.mu.Lock()
	if p.data == nil || p.data.First {
		p.mu.Unlock()
		return ErrNoPrevPage
	}
	prev := max(p.data.Number-1, 0)
	p.mu.Unlock()
	return p.run(ctx, func(cur *Query) { cur.Page = prev })
}

// Items 현재 페이지 항목 복사본
func (p *Pager[T]) Items() []T {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.data == nil {
		return []T{}
	}
	return append([]T{}, p.data.Content...)
}

// Info 페이지 상태
func (p *Pager[T]) Info() Info {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.data == nil {
		return Info{Page: p.query.Page, Size: p.query.Size, IsFirst: true, IsLast: true}
	}
	return Info{
		Page:          p.data.Number,
		Size:          p.data.Size,
		TotalPages:    p.data.TotalPages,
		TotalElements: p.data.TotalElements,
		IsFirst:       p.data.First,
		IsLast:        p.data.Last,
	}
}

// RemoveWhere 삭제 확인 후 로컬 제거. totalElements 는 0 미만으로 내려가지 않음
func (p *Pager[T]) RemoveWhere(match func(T) bool) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.data == nil {
		return 0
	}
	kept := make([]T, 0, len(p.data.Content))
	removed := 0
	for _, item := range p.data.Content {
		if match(item) {
			removed++
			continue
		}
		kept = append(kept, item)
	}
	p.data.Content = kept
	p.data.TotalElements = max(p.data.TotalElements-int64(removed), 0)
	p.data.Empty = len(kept) == 0
	return removed
}
