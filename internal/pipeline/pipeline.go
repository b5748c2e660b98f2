package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ppiankov/carelog/internal/assess"
	"github.com/ppiankov/carelog/internal/cache"
	"github.com/ppiankov/carelog/internal/config"
	"github.com/ppiankov/carelog/internal/datetime"
	"github.com/ppiankov/carelog/internal/extract"
	"github.com/ppiankov/carelog/internal/llm"
	"github.com/ppiankov/carelog/internal/logging"
	"github.com/ppiankov/carelog/internal/model"
)

// Advisory actions appended to immediate_actions_taken.
const (
	ActionContactGP       = "Contact GP immediately (policy trigger)"
	ActionCall999         = "Call 999 / emergency services (life-threatening trigger)"
	ActionConfirmDateTime = "Confirm incident date/time with reporter (estimated from relative phrase)"
)

// plausibleWindow bounds how far an incident time may be from the call
// when the transcript gives no explicit date.
const plausibleWindow = 7 * 24 * time.Hour

// Pipeline orchestrates the analysis of one transcript
type Pipeline struct {
	store       *config.Store
	rules       *extract.RuleExtractor
	llm         *llm.Extractor
	llmConfig   llm.Config
	providerErr error
	now         func() time.Time
	logger      logrus.FieldLogger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClock replaces the wall clock, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithLLMConfig records the model settings reported by Diagnose, and the
// error that prevented building a provider, if any.
func WithLLMConfig(cfg llm.Config, providerErr error) Option {
	return func(p *Pipeline) {
		p.llmConfig = cfg
		p.providerErr = providerErr
	}
}

// New creates a pipeline over an incident config store and a model
// extractor. A nil extractor means rules only.
func New(store *config.Store, extractor *llm.Extractor, opts ...Option) *Pipeline {
	p := &Pipeline{
		store: store,
		llm:   extractor,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = logging.OrDiscard(p.logger)
	if p.llm == nil {
		p.llm = llm.NewExtractor(nil)
	}
	if prov := p.llm.Provider(); prov != nil && p.llmConfig.Provider == "" {
		p.llmConfig.Provider = prov.Name()
		p.llmConfig.Model = prov.Model()
	}
	p.rules = extract.NewRuleExtractor(store, assess.NewMatcher(store), p.logger)
	return p
}

// NewPipeline wires a pipeline from application config. A provider that
// cannot be built leaves the pipeline on rules; the reason is logged and
// surfaced by Diagnose.
func NewPipeline(cfg *model.Config, logger logrus.FieldLogger, llmOpts ...llm.Option) *Pipeline {
	logger = logging.OrDiscard(logger)
	store := config.NewStore(cfg.Incident.Path, logger)

	llmCfg := llm.ConfigFromModel(cfg.LLM)
	provider, err := llm.NewProvider(llmCfg)
	switch {
	case errors.Is(err, llm.ErrNoCredential):
		logger.WithField("provider", llmCfg.Provider).Info("no model credential, using rules extraction")
	case err != nil:
		logger.WithError(err).Warn("failed to initialize LLM provider, using rules extraction")
	}

	opts := []llm.Option{llm.WithLogger(logger)}
	if c := cache.New(cfg.Cache); c != nil {
		opts = append(opts, llm.WithCache(c, cfg.Cache.TTL))
	}
	opts = append(opts, llmOpts...)

	return New(store, llm.NewExtractor(provider, opts...),
		WithLogger(logger),
		WithLLMConfig(llmCfg, err),
	)
}

// Store returns the incident config store.
func (p *Pipeline) Store() *config.Store { return p.store }

// Analyze turns a transcript into an incident form, evidence and a draft
// email. The incident config is read once and used for every step. Only an unloadable incident config is returned as an error; every
// extraction failure degrades to the rules path.
func (p *Pipeline) Analyze(ctx context.Context, text string, mode model.SourceMode) (*model.AnalysisResult, error) {
	cfg, err := p.store.Get()
	if err != nil {
		return nil, err
	}

	started := time.Now()
	callTime := p.now().In(datetime.London)
	log := p.logger.WithFields(logrus.Fields{
		"analysis_id": uuid.NewString(),
		"mode":        string(mode),
	})
	log.WithField("chars", len(text)).Info("analysis.start")

	facts, evidence, source := p.selectSource(ctx, cfg, text, mode, callTime, log)

	form := model.NewIncidentForm(callTime.Format(datetime.Layout))
	form.Apply(facts)

	inferred := false
	if form.DateTimeOfIncident == nil {
		inferred = p.inferDateTime(form, &evidence, text, callTime)
	}
	if !inferred {
		p.checkDateTime(form, &evidence, text, callTime, log)
	}

	p.applyPolicyTriggers(form, cfg.PolicyTriggers(), text)

	email := RenderEmail(form, cfg.Notifications())

	if evidence == nil {
		evidence = []model.Evidence{}
	}

	AnalysesTotal.WithLabelValues(source).Inc()
	AnalysisDuration.Observe(time.Since(started).Seconds())
	log.WithFields(logrus.Fields{
		"source":        source,
		"facts_present": !facts.IsEmpty(),
		"evidence":      len(evidence),
		"duration":      time.Since(started).String(),
	}).Info("analysis.done")

	return &model.AnalysisResult{
		ExtractionSource: source,
		IncidentForm:     form,
		Evidence:         evidence,
		DraftEmail:       email,
	}, nil
}

// selectSource runs the model extractor and, unless the mode forbids it,
// falls back to rules when the model produced nothing.
func (p *Pipeline) selectSource(ctx context.Context, cfg *config.IncidentConfig, text string, mode model.SourceMode, callTime time.Time, log logrus.FieldLogger) (model.Facts, []model.Evidence, string) {
	switch mode {
	case model.SourceRulesOnly:
		facts, evidence := p.rules.ExtractWith(cfg, text)
		return facts, evidence, model.SourceRules

	case model.SourceLLMOnly:
		res := p.llm.Extract(ctx, text, callTime)
		if res.Err != nil {
			log.WithField("reason", res.Reason()).Info("llm only: no facts")
			return model.Facts{}, nil, model.SourceLLMEmpty
		}
		return res.Facts, res.Evidence, model.SourceLLM
	}

	if p.llm.Available() {
		res := p.llm.Extract(ctx, text, callTime)
		if res.Err == nil {
			return res.Facts, res.Evidence, model.SourceLLM
		}
		LLMFallbacksTotal.WithLabelValues(res.Reason()).Inc()
		log.WithField("reason", res.Reason()).Info("rules.fallback")
	}

	facts, evidence := p.rules.ExtractWith(cfg, text)
	return facts, evidence, model.SourceRules
}

// inferDateTime fills an absent incident time from the transcript and
// reports whether it did.
func (p *Pipeline) inferDateTime(form *model.IncidentForm, evidence *[]model.Evidence, text string, callTime time.Time) bool {
	r := datetime.Infer(text, callTime)
	if !r.Found() {
		return false
	}
	applyInference(form, evidence, text, r)
	return true
}

// checkDateTime replaces an implausible incident time. A value is
// implausible when the transcript has no explicit date and the value is
// unparseable or more than a week from the call.
func (p *Pipeline) checkDateTime(form *model.IncidentForm, evidence *[]model.Evidence, text string, callTime time.Time, log logrus.FieldLogger) {
	if form.DateTimeOfIncident == nil || datetime.HasExplicitDate(text) {
		return
	}

	original := *form.DateTimeOfIncident
	at, ok := parseInstant(original)
	if ok && absDuration(at.Sub(callTime)) <= plausibleWindow {
		return
	}

	r := datetime.Infer(text, callTime)
	if !r.Found() {
		form.DateTimeOfIncident = nil
		log.WithField("value", original).Info("datetime.sanity: implausible value cleared")
		return
	}
	applyInference(form, evidence, text, r)
	log.WithFields(logrus.Fields{"value": original, "replacement": r.Value}).Info("datetime.sanity: implausible value replaced")
}

func applyInference(form *model.IncidentForm, evidence *[]model.Evidence, text string, r datetime.Result) {
	form.DateTimeOfIncident = model.String(r.Value)
	if r.Confidence == datetime.ConfidenceLow {
		form.AppendAction(ActionConfirmDateTime)
	}
	if r.EvidenceQuote == "" {
		return
	}
	ev := model.Evidence{Field: "date_time_of_incident", Quote: r.EvidenceQuote}
	if start, end, ok := extract.Locate(text, r.EvidenceQuote); ok {
		ev.StartIdx, ev.EndIdx = model.Int(start), model.Int(end)
	}
	*evidence = append(*evidence, ev)
}

// applyPolicyTriggers appends one advisory per trigger list that has a
// matching pattern.
func (p *Pipeline) applyPolicyTriggers(form *model.IncidentForm, triggers config.PolicyTriggers, text string) {
	if anyMatch(triggers.ContactGPIf, text) {
		form.AppendAction(ActionContactGP)
		PolicyTriggersTotal.WithLabelValues("contact_gp").Inc()
	}
	if anyMatch(triggers.Call999If, text) {
		form.AppendAction(ActionCall999)
		PolicyTriggersTotal.WithLabelValues("call_999").Inc()
	}
}

func anyMatch(patterns []config.Pattern, text string) bool {
	for _, p := range patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

var instantLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// parseInstant reads an ISO 8601 value. Values without an offset are UK
// local time.
func parseInstant(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range instantLayouts {
		if t, err := time.ParseInLocation(layout, s, datetime.London); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
