package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ppiankov/carelog/internal/cache"
	"github.com/ppiankov/carelog/internal/datetime"
	"github.com/ppiankov/carelog/internal/logging"
	"github.com/ppiankov/carelog/internal/model"
)

var (
	// ErrNoCredential means no provider could be built for lack of a key
	ErrNoCredential = errors.New("no model credential configured")

	// ErrCall means the remote call failed or timed out
	ErrCall = errors.New("model call failed")

	// ErrParse means the reply was not a JSON object
	ErrParse = errors.New("model reply is not valid JSON")

	// ErrEmptyResponse means the reply carried no usable fact
	ErrEmptyResponse = errors.New("model returned no facts")
)

// Result is the outcome of one extraction. Err is nil on success; on
// failure Facts is empty and Evidence is nil.
type Result struct {
	Facts    model.Facts
	Evidence []model.Evidence
	Err      error
	Cached   bool
}

// Reason returns a short label for Err, empty on success.
func (r Result) Reason() string {
	switch {
	case r.Err == nil:
		return ""
	case errors.Is(r.Err, ErrNoCredential):
		return "no_credential"
	case errors.Is(r.Err, ErrParse):
		return "parse_error"
	case errors.Is(r.Err, ErrEmptyResponse):
		return "empty"
	default:
		return "call_error"
	}
}

// Throttle delays a call until the named key may proceed.
type Throttle interface {
	Wait(ctx context.Context, key string) error
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithCache caches successful raw replies for ttl.
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(e *Extractor) {
		e.cache = c
		e.cacheTTL = ttl
	}
}

// WithThrottle rate-limits calls per provider.
func WithThrottle(t Throttle) Option {
	return func(e *Extractor) { e.throttle = t }
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(e *Extractor) { e.logger = l }
}

// Extractor turns a transcript into facts through a language model. It never
// returns an error to the caller; failures are reported in Result.Err.
type Extractor struct {
	provider Provider
	cache    cache.Cache
	cacheTTL time.Duration
	throttle Throttle
	logger   logrus.FieldLogger
}

// NewExtractor creates an extractor. A nil provider makes every call return
// ErrNoCredential without network access.
func NewExtractor(provider Provider, opts ...Option) *Extractor {
	e := &Extractor{provider: provider}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = logging.OrDiscard(e.logger)
	return e
}

// Available reports whether a provider is configured.
func (e *Extractor) Available() bool {
	return e != nil && e.provider != nil
}

// Provider returns the configured provider, or nil.
func (e *Extractor) Provider() Provider {
	if e == nil {
		return nil
	}
	return e.provider
}

// Extract asks the model for the facts in text. ref, when non-zero, is given
// to the model for resolving relative times. A single attempt is made.
func (e *Extractor) Extract(ctx context.Context, text string, ref time.Time) Result {
	if !e.Available() {
		return Result{Err: ErrNoCredential}
	}

	prompt := BuildPrompt(text, ref)
	key := e.cacheKey(text, ref)
	log := e.logger.WithFields(logrus.Fields{
		"provider": e.provider.Name(),
		"model":    e.provider.Model(),
	})

	if e.cache != nil {
		if raw, ok := e.cache.Get(key); ok {
			facts, evidence, err := ParseResponse(string(raw))
			if err == nil {
				log.Debug("llm: cache hit")
				return Result{Facts: facts, Evidence: evidence, Cached: true}
			}
			_ = e.cache.Delete(key)
		}
	}

	if e.throttle != nil {
		if err := e.throttle.Wait(ctx, e.provider.Name()); err != nil {
			return e.fail(log, fmt.Errorf("%w: %w", ErrCall, err))
		}
	}

	start := time.Now()
	resp, err := e.provider.Complete(ctx, CompletionRequest{
		System: SystemInstruction,
		Prompt: prompt,
	})
	if err != nil {
		return e.fail(log, fmt.Errorf("%w: %w", ErrCall, err))
	}

	facts, evidence, err := ParseResponse(resp.Text)
	if err != nil {
		return e.fail(log, err)
	}

	if e.cache != nil {
		if err := e.cache.Set(key, []byte(resp.Text), e.cacheTTL); err != nil {
			log.WithError(err).Warn("llm: cache write failed")
		}
	}

	log.WithFields(logrus.Fields{
		"tokens":   resp.TokensUsed,
		"duration": time.Since(start).String(),
		"evidence": len(evidence),
	}).Debug("llm: extraction done")
	return Result{Facts: facts, Evidence: evidence}
}

// cacheKey identifies a reply by provider, model, the prompt without its
// reference time, and only as much of ref as the transcript's times depend
// on. Identical transcripts analyzed seconds apart share a reply.
func (e *Extractor) cacheKey(text string, ref time.Time) string {
	return cache.Key(
		e.provider.Name(),
		e.provider.Model(),
		SystemInstruction,
		BuildPrompt(text, time.Time{}),
		datetime.AnchorKey(text, ref),
	)
}

func (e *Extractor) fail(log logrus.FieldLogger, err error) Result {
	r := Result{Err: err}
	log.WithField("reason", r.Reason()).WithError(err).Warn("llm: extraction failed")
	return r
}
