// Package analysis runs cached analysis calls: build a prompt, look up its
// fingerprint, and only call the remote endpoint on a miss.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/storepilot/storepilot/pkg/cache"
	"github.com/storepilot/storepilot/pkg/gateway"
	"github.com/storepilot/storepilot/pkg/models"
	"github.com/storepilot/storepilot/pkg/tracker"
)

// ErrNoTask is returned for a Task without a name or prompt.
var ErrNoTask = errors.New("task needs a name and a prompt")

// Gateway is the remote side of an analysis call. *gateway.Client implements it.
type Gateway interface {
	Complete(ctx context.Context, prompt string, maxTokens int) (*gateway.Completion, error)
	Extract(text string) (models.AnalysisResult, error)
	Provider() string
	Model() string
	// Params reports the request settings that shape the reply
	// (sampling, system prompt, defaults).
	Params() map[string]string
}

// Budget gates remote calls. *budget.Enforcer implements it.
type Budget interface {
	Check(ctx context.Context, task string) error
}

// Task is one analysis request.
type Task struct {
	Name      string
	Prompt    string
	Options   map[string]string
	MaxTokens int
}

// Outcome is the result of Run.
type Outcome struct {
	Fingerprint cache.Fingerprint
	Result      models.AnalysisResult
	Cached      bool
	Usage       models.Usage
}

// Service wires the cache, the gateway and the usage tracker together.
type Service struct {
	cache   *cache.Cache
	gw      Gateway
	tracker tracker.Tracker
	budget  Budget
	group   singleflight.Group
	log     *zap.Logger
	now     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithTracker records every Run in t.
func WithTracker(t tracker.Tracker) Option {
	return func(s *Service) { s.tracker = t }
}

// WithBudget refuses remote calls once b reports a budget exhausted.
// Cache hits are always served.
func WithBudget(b Budget) Option {
	return func(s *Service) { s.budget = b }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// New creates a Service.
func New(c *cache.Cache, gw Gateway, opts ...Option) *Service {
	s := &Service{
		cache: c,
		gw:    gw,
		log:   zap.NewNop(),
		now:   time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	s.log = s.log.Named("analysis")
	return s
}

// Fingerprint returns the cache key of task: its prompt plus every option
// that changes the reply (caller options, gateway settings, model, max tokens).
func (s *Service) Fingerprint(task Task) cache.Fingerprint {
	params := s.gw.Params()
	opts := make(map[string]string, len(task.Options)+len(params)+3)
	for k, v := range task.Options {
		opts[k] = v
	}
	for k, v := range params {
		opts[k] = v
	}
	opts["task"] = task.Name
	opts["model"] = s.gw.Model()
	opts["max_tokens"] = strconv.Itoa(task.MaxTokens)
	return cache.NewFingerprint(task.Prompt, opts)
}

// flight is the shared outcome of one remote call. The first caller to claim
// it reports its usage; the tokens were already recorded by the flight.
type flight struct {
	result  models.AnalysisResult
	usage   models.Usage
	claimed atomic.Bool
}

// Run returns the cached result for task or calls the gateway and caches the
// reply. Concurrent runs of the same fingerprint share one remote call, which
// runs to completion even if the caller that started it gives up.
// Failed calls are never cached; gateway errors are returned unwrapped.
func (s *Service) Run(ctx context.Context, task Task) (Outcome, error) {
	if task.Name == "" || task.Prompt == "" {
		return Outcome{}, ErrNoTask
	}
	fp := s.Fingerprint(task)
	log := s.log.With(zap.String("task", task.Name), zap.String("fingerprint", fp.String()))

	res, ok, err := s.cache.Get(ctx, fp)
	if err != nil {
		return Outcome{}, fmt.Errorf("%s: %w", task.Name, err)
	}
	if ok {
		log.Info("served from cache")
		s.record(ctx, task, fp, models.Usage{}, true)
		return Outcome{Fingerprint: fp, Result: res, Cached: true}, nil
	}

	if s.budget != nil {
		if err := s.budget.Check(ctx, task.Name); err != nil {
			log.Warn("remote call refused", zap.Error(err))
			return Outcome{}, err
		}
	}

	detached := context.WithoutCancel(ctx)
	ch := s.group.DoChan(fp.String(), func() (any, error) {
		return s.call(detached, task, fp)
	})

	var r singleflight.Result
	select {
	case r = <-ch:
	case <-ctx.Done():
		log.Warn("stopped waiting for analysis", zap.Error(ctx.Err()))
		return Outcome{}, ctx.Err()
	}

	f, _ := r.Val.(*flight)
	mine := f != nil && f.claimed.CompareAndSwap(false, true)
	if r.Err != nil {
		log.Warn("analysis failed", zap.Error(r.Err))
		return Outcome{}, r.Err
	}

	out := Outcome{Fingerprint: fp, Result: f.result, Usage: f.usage}
	if !mine {
		// Joined another caller's flight: own copy of the result, no tokens.
		out.Result = f.result.Clone()
		out.Usage = models.Usage{}
		s.record(ctx, task, fp, models.Usage{}, false)
	}
	log.Info("analysis complete", zap.Int("total_tokens", out.Usage.TotalTokens), zap.Bool("shared", r.Shared))
	return out, nil
}

// call performs the remote call. Once Complete succeeds the tokens are spent,
// so they are recorded before the reply is parsed or cached.
func (s *Service) call(ctx context.Context, task Task, fp cache.Fingerprint) (*flight, error) {
	comp, err := s.gw.Complete(ctx, task.Prompt, task.MaxTokens)
	if err != nil {
		return nil, err
	}
	s.record(ctx, task, fp, comp.Usage, false)

	f := &flight{usage: comp.Usage}
	res, err := s.gw.Extract(comp.Content)
	if err != nil {
		return f, err
	}
	if err := s.cache.Put(ctx, fp, res); err != nil {
		return f, fmt.Errorf("%s: %w", task.Name, err)
	}
	f.result = res
	return f, nil
}

func (s *Service) record(ctx context.Context, task Task, fp cache.Fingerprint, u models.Usage, hit bool) {
	if s.tracker == nil {
		return
	}
	rec := models.UsageRecord{
		RequestID:        uuid.NewString(),
		Task:             task.Name,
		Fingerprint:      fp.String(),
		Provider:         s.gw.Provider(),
		Model:            s.gw.Model(),
		PromptChars:      utf8.RuneCountInString(task.Prompt),
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.TotalTokens,
		CacheHit:         hit,
		CreatedAt:        s.now(),
	}
	if err := s.tracker.Record(ctx, rec); err != nil {
		s.log.Warn("record usage failed", zap.Error(err))
	}
}
