package worker

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/nephila016/emailvalidate/internal/verifier"
)

// Job represents a validation job
type Job struct {
	Email string
	Index int
}

// Output pairs a result with the index of the job that produced it
type Output struct {
	Index  int
	Result *verifier.Result
}

// Pool runs the validation pipeline over many addresses concurrently
type Pool struct {
	workers        int
	pipeline       *verifier.Pipeline
	logger         *zap.Logger
	delay          time.Duration
	jitter         time.Duration
	healthEmail    string
	healthInterval int
	healthPause    time.Duration

	// Channels
	jobs    chan Job
	results chan Output

	// State
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	processed   int64
	errors      int64
	healthFails int64

	// Callbacks
	onResult func(*verifier.Result)
}

// PoolConfig holds pool configuration
type PoolConfig struct {
	Workers int
	Delay   time.Duration
	Jitter  time.Duration

	// HealthEmail, when set, is validated every HealthInterval jobs per
	// worker and must come back VALID. A failure pauses the worker for
	// HealthPause before it takes the next job.
	HealthEmail    string
	HealthInterval int
	HealthPause    time.Duration

	BufferSize int
	Logger     *zap.Logger
}

// DefaultPoolConfig returns default configuration
func DefaultPoolConfig() *PoolConfig {
	return &PoolConfig{
		Workers:        3,
		Delay:          500 * time.Millisecond,
		Jitter:         250 * time.Millisecond,
		HealthInterval: 10,
		HealthPause:    30 * time.Second,
		BufferSize:     100,
	}
}

// NewPool creates a new worker pool
func NewPool(ctx context.Context, p *verifier.Pipeline, config *PoolConfig) *Pool {
	if config == nil {
		config = DefaultPoolConfig()
	}
	workers := config.Workers
	if workers < 1 {
		workers = 1
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(ctx)

	return &Pool{
		workers:        workers,
		pipeline:       p,
		logger:         logger.Named("pool"),
		delay:          config.Delay,
		jitter:         config.Jitter,
		healthEmail:    config.HealthEmail,
		healthInterval: config.HealthInterval,
		healthPause:    config.HealthPause,
		jobs:           make(chan Job, config.BufferSize),
		results:        make(chan Output, config.BufferSize),
		ctx:            ctx,
		cancel:         cancel,
	}
}

// SetCallback sets a function called after each result, from the worker
// goroutine that produced it.
func (p *Pool) SetCallback(onResult func(*verifier.Result)) {
	p.onResult = onResult
}

// Start starts the worker pool
func (p *Pool) Start() {
	p.logger.Info("starting workers", zap.Int("workers", p.workers))

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Submit submits a job to the pool
func (p *Pool) Submit(email string, index int) {
	select {
	case p.jobs <- Job{Email: email, Index: index}:
	case <-p.ctx.Done():
	}
}

// Results returns the results channel
func (p *Pool) Results() <-chan Output {
	return p.results
}

// Close closes the job channel and waits for workers to finish
func (p *Pool) Close() {
	close(p.jobs)
	p.wg.Wait()
	close(p.results)
	p.cancel()
}

// Stop cancels in-flight work. Close must still be called.
func (p *Pool) Stop() {
	p.cancel()
}

// Processed returns the number of processed jobs
func (p *Pool) Processed() int64 {
	return atomic.LoadInt64(&p.processed)
}

// Errors returns the number of jobs that ended in a remote or
// configuration failure
func (p *Pool) Errors() int64 {
	return atomic.LoadInt64(&p.errors)
}

// HealthFails returns the number of health check failures
func (p *Pool) HealthFails() int64 {
	return atomic.LoadInt64(&p.healthFails)
}

func isError(o verifier.Outcome) bool {
	switch o {
	case verifier.OutcomeLookupFailed, verifier.OutcomeVerificationFailed, verifier.OutcomeMisconfigured:
		return true
	}
	return false
}

// worker processes jobs from the queue
func (p *Pool) worker(id int) {
	defer p.wg.Done()

	log := p.logger.With(zap.Int("worker", id))
	log.Debug("worker started")

	localProcessed := 0

	for {
		select {
		case job, ok := <-p.jobs:
			if !ok {
				log.Debug("worker shutting down", zap.Int("processed", localProcessed))
				return
			}

			if p.healthEmail != "" && p.healthInterval > 0 &&
				localProcessed > 0 && localProcessed%p.healthInterval == 0 {
				if !p.runHealthCheck() {
					log.Error("health check failed, pausing", zap.Duration("pause", p.healthPause))
					atomic.AddInt64(&p.healthFails, 1)
					if !p.sleep(p.healthPause) {
						return
					}
				}
			}

			result := p.pipeline.Validate(p.ctx, job.Email)

			atomic.AddInt64(&p.processed, 1)
			if isError(result.Outcome) {
				atomic.AddInt64(&p.errors, 1)
			}

			select {
			case p.results <- Output{Index: job.Index, Result: result}:
			case <-p.ctx.Done():
				return
			}

			if p.onResult != nil {
				p.onResult(result)
			}

			localProcessed++

			if !p.sleep(p.nextDelay()) {
				return
			}

		case <-p.ctx.Done():
			log.Debug("worker cancelled")
			return
		}
	}
}

// nextDelay returns the pause between jobs with jitter
func (p *Pool) nextDelay() time.Duration {
	if p.delay <= 0 {
		return 0
	}

	delay := p.delay
	if p.jitter > 0 {
		delay += time.Duration(rand.Int63n(int64(p.jitter)))
	}
	return delay
}

// sleep waits for d, returning false if the pool was cancelled first
func (p *Pool) sleep(d time.Duration) bool {
	if d <= 0 {
		return p.ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-p.ctx.Done():
		return false
	}
}

// runHealthCheck validates the health email
func (p *Pool) runHealthCheck() bool {
	result := p.pipeline.Validate(p.ctx, p.healthEmail)

	if result.Valid() {
		p.logger.Debug("health check passed")
		return true
	}

	p.logger.Warn("health check failed",
		zap.String("outcome", string(result.Outcome)),
		zap.String("error", result.ErrorString()))
	return false
}

// ProcessEmails validates emails and returns results in input order.
// Jobs dropped by cancellation are missing from the returned slice.
func (p *Pool) ProcessEmails(emails []string) []*verifier.Result {
	ordered := make([]*verifier.Result, len(emails))

	done := make(chan struct{})
	go func() {
		for out := range p.results {
			ordered[out.Index] = out.Result
		}
		close(done)
	}()

	p.Start()
	for i, email := range emails {
		p.Submit(email, i)
	}

	p.Close()
	<-done

	results := make([]*verifier.Result, 0, len(emails))
	for _, r := range ordered {
		if r != nil {
			results = append(results, r)
		}
	}
	return results
}

// Stats holds pool statistics
type Stats struct {
	Processed   int64
	Errors      int64
	HealthFails int64
	Duration    time.Duration
	Rate        float64 // emails per second
}

// GetStats returns current statistics
func (p *Pool) GetStats(startTime time.Time) *Stats {
	processed := p.Processed()
	duration := time.Since(startTime)

	rate := float64(0)
	if duration.Seconds() > 0 {
		rate = float64(processed) / duration.Seconds()
	}

	return &Stats{
		Processed:   processed,
		Errors:      p.Errors(),
		HealthFails: p.HealthFails(),
		Duration:    duration,
		Rate:        rate,
	}
}
