package dantry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	DefaultCapacity  = 50
	DefaultQueueSize = 64
	sinkBatchSize    = 16
	sinkTimeout      = 5 * time.Second
)

// Sink 보고서를 외부 저장소로 전달
type Sink interface {
	Name() string
	Write(ctx context.Context, reports []Report) error
}

// Clearer is implemented by sinks that can drop their stored reports
type Clearer interface {
	Clear(ctx context.Context) error
}

// Options 리포터 설정
type Options struct {
	Capacity  int
	QueueSize int
	Source    string // reporting component or command
	UserAgent string
	Sinks     []Sink
	Log       zerolog.Logger
	Now       func() time.Time
}

// Reporter 에러 보고 링 버퍼 + 비동기 sink 전달.
// Create one per process with NewReporter and Close it on shutdown.
type Reporter struct {
	mu    sync.Mutex
	ring  []Report
	head  int // next write position
	count int

	source    string
	userAgent string
	sinks     []Sink
	queue     chan Report
	wg        sync.WaitGroup
	closeOnce sync.Once
	closed    bool
	log       zerolog.Logger
	now       func() time.Time
}

// NewReporter 생성자. sink 가 있으면 전달 워커 시작
func NewReporter(opts Options) *Reporter {
	capacity := opts.Capacity
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	queueSize := opts.QueueSize
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = fmt.Sprintf("blok-client (%s/%s; %s)", runtime.GOOS, runtime.GOARCH, runtime.Version())
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	r := &Reporter{
		ring:      make([]Report, capacity),
		source:    opts.Source,
		userAgent: userAgent,
		sinks:     opts.Sinks,
		log:       opts.Log,
		now:       now,
	}
	if len(r.sinks) > 0 {
		r.queue = make(chan Report, queueSize)
		r.wg.Add(1)
		go r.run()
	}
	return r
}

// Report 보고 추가. 기본 심각도 medium
func (r *Reporter) Report(e Event) Report {
	severity := e.Severity
	if severity == "" {
		severity = SeverityMedium
	}
	rep := Report{
		ID:        uuid.NewString(),
		Message:   e.Message,
		Stack:     e.Stack,
		Timestamp: r.now().UTC(),
		Source:    r.source,
		UserAgent: r.userAgent,
		UserID:    e.UserID,
		Context:   e.Context,
		Severity:  severity,
	}

	// the queue is closed under mu, so the non-blocking send stays under it too
	r.mu.Lock()
	r.ring[r.head] = rep
	r.head = (r.head + 1) % len(r.ring)
	if r.count < len(r.ring) {
		r.count++
	}
	dropped := false
	if r.queue != nil && !r.closed {
		select {
		case r.queue <- rep:
		default:
			dropped = true
		}
	}
	r.mu.Unlock()

	r.log.Debug().
		Str("report_id", rep.ID).
		Str("severity", string(rep.Severity)).
		Str("context", rep.Context).
		Msg(rep.Message)
	if dropped {
		r.log.Warn().Str("report_id", rep.ID).Msg("report queue full, dropping sink delivery")
	}
	return rep
}

// Reports 최신순 복사본
func (r *Reporter) Reports() []Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Report, 0, r.count)
	for i := 1; i <= r.count; i++ {
		idx := (r.head - i + len(r.ring)) % len(r.ring)
		out = append(out, r.ring[idx])
	}
	return out
}

// Clear 링 버퍼와 Clearer sink 비우기
func (r *Reporter) Clear(ctx context.Context) error {
	r.mu.Lock()
	for i := range r.ring {
		r.ring[i] = Report{}
	}
	r.head, r.count = 0, 0
	r.mu.Unlock()

	var errs []error
	for _, s := range r.sinks {
		if c, ok := s.(Clearer); ok {
			if err := c.Clear(ctx); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			}
		}
	}
	return errors.Join(errs...)
}

// Export 들여쓰기 JSON
func (r *Reporter) Export() (string, error) {
	data, err := json.MarshalIndent(r.Reports(), "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Close 새 sink 전달을 멈추고 대기 중인 보고를 모두 전달
func (r *Reporter) Close(ctx context.Context) error {
	r.closeOnce.Do(func() {
		r.mu.Lock()
		r.closed = true
		if r.queue != nil {
			close(r.queue)
		}
		r.mu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Reporter) run() {
	defer r.wg.Done()
	for first := range r.queue {
		batch := []Report{first}
	fill:
		for len(batch) < sinkBatchSize {
			select {
			case rep, ok := <-r.queue:
				if !ok {
					break fill
				}
				batch = append(batch, rep)
			default:
				break fill
			}
		}
		r.deliver(batch)
	}
}

func (r *Reporter) deliver(batch []Report) {
	for _, s := range r.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
		if err := s.Write(ctx, batch); err != nil {
			r.log.Warn().Err(err).Str("sink", s.Name()).Int("reports", len(batch)).Msg("sink write failed")
		}
		cancel()
	}
}

// ReportAPIError API 실패 보고. 네트워크 계열 메시지는 high
func (r *Reporter) ReportAPIError(err error, context string) Report {
	message := "API request failed"
	severity := SeverityMedium
	if err != nil {
		message = err.Error()
		lower := strings.ToLower(message)
		if strings.Contains(lower, "fetch") || strings.Contains(lower, "network") {
			severity = SeverityHigh
		}
	}
	return r.Report(Event{Message: message, Context: context, Severity: severity})
}

// ReportUserError 사용자 동작 오류 (low)
func (r *Reporter) ReportUserError(message, context string) Report {
	if context == "" {
		context = "User Action"
	}
	return r.Report(Event{Message: message, Context: context, Severity: SeverityLow})
}

// ReportCritical 치명적 오류
func (r *Reporter) ReportCritical(err error, context string) Report {
	message := "unknown error"
	if err != nil {
		message = err.Error()
	}
	return r.Report(Event{Message: message, Context: context, Severity: SeverityCritical})
}
