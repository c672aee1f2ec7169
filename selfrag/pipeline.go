// Package selfrag implements the Self-RAG quality loop: retrieval,
// generation, and an LLM-judge acceptance gate that can regenerate once or
// refuse to answer, wrapped in circuit breakers so a failing dependency
// degrades the pipeline instead of taking it down.
package selfrag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/ragforge/retrieval/document"
	"github.com/ragforge/retrieval/evaluation"
	"github.com/ragforge/retrieval/generation"
	"github.com/ragforge/retrieval/orchestrator"
)

const (
	// DefaultAcceptThreshold is the overall score above which a generated
	// answer is accepted outright.
	DefaultAcceptThreshold = 0.7
	// DefaultRegenerateThreshold is the overall score above which a
	// low-scoring answer gets one regeneration attempt instead of an
	// outright refusal.
	DefaultRegenerateThreshold = 0.5

	// RefusalMessage is the canonical low-quality refusal answer.
	RefusalMessage = "I don't have enough reliable information to answer that confidently."
	// NoContextMessage is returned when retrieval yields no usable
	// context at all.
	NoContextMessage = "I couldn't find relevant information to answer that."
)

// Router optionally classifies/routes a query before retrieval. It is
// external to the core pipeline and may be disabled (nil).
type Router interface {
	Route(ctx context.Context, query string) (string, error)
}

// SessionContextResolver optionally resolves prior conversation context
// for a session id into a string prepended to the generation prompt.
type SessionContextResolver interface {
	ResolveContext(ctx context.Context, sessionID string) (string, error)
}

// Config configures a Pipeline.
type Config struct {
	SelfRAGEnabled      bool
	AcceptThreshold     float64
	RegenerateThreshold float64

	BreakerMaxRequests uint32
	BreakerInterval    time.Duration
	BreakerTimeout     time.Duration
	// BreakerConsecutiveFailures is how many consecutive failures trip a
	// breaker open.
	BreakerConsecutiveFailures uint32

	Logger *slog.Logger
}

func (c *Config) validate() {
	if c.AcceptThreshold <= 0 {
		c.AcceptThreshold = DefaultAcceptThreshold
	}
	if c.RegenerateThreshold <= 0 {
		c.RegenerateThreshold = DefaultRegenerateThreshold
	}
	if c.BreakerMaxRequests == 0 {
		c.BreakerMaxRequests = 1
	}
	if c.BreakerInterval == 0 {
		c.BreakerInterval = 60 * time.Second
	}
	if c.BreakerTimeout == 0 {
		c.BreakerTimeout = 30 * time.Second
	}
	if c.BreakerConsecutiveFailures == 0 {
		c.BreakerConsecutiveFailures = 5
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Deps wires the Pipeline's collaborators. Orchestrator and Generator are
// required; everything else is optional.
type Deps struct {
	Orchestrator *orchestrator.Orchestrator
	Generator    generation.Generator
	Evaluator    evaluation.Evaluator
	Router       Router
	SessionCtx   SessionContextResolver
}

// Pipeline is the Self-RAG end-to-end request handler.
type Pipeline struct {
	orchestrator *orchestrator.Orchestrator
	generator    generation.Generator
	evaluator    evaluation.Evaluator
	router       Router
	sessionCtx   SessionContextResolver

	selfRAGEnabled      bool
	acceptThreshold     float64
	regenerateThreshold float64
	logger              *slog.Logger

	retrievalBreaker  *gobreaker.CircuitBreaker
	generationBreaker *gobreaker.CircuitBreaker
	evaluationBreaker *gobreaker.CircuitBreaker
}

// New constructs a Pipeline.
func New(deps Deps, cfg *Config) *Pipeline {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.validate()

	readyToTrip := func(counts gobreaker.Counts) bool {
		return counts.ConsecutiveFailures >= cfg.BreakerConsecutiveFailures
	}

	mkBreaker := func(name string) *gobreaker.CircuitBreaker {
		return gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: cfg.BreakerMaxRequests,
			Interval:    cfg.BreakerInterval,
			Timeout:     cfg.BreakerTimeout,
			ReadyToTrip: readyToTrip,
			OnStateChange: func(name string, from, to gobreaker.State) {
				cfg.Logger.Warn("selfrag: circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
			},
		})
	}

	return &Pipeline{
		orchestrator:        deps.Orchestrator,
		generator:           deps.Generator,
		evaluator:           deps.Evaluator,
		router:              deps.Router,
		sessionCtx:          deps.SessionCtx,
		selfRAGEnabled:      cfg.SelfRAGEnabled,
		acceptThreshold:     cfg.AcceptThreshold,
		regenerateThreshold: cfg.RegenerateThreshold,
		logger:              cfg.Logger,
		retrievalBreaker:    mkBreaker("retrieval"),
		generationBreaker:   mkBreaker("generation"),
		evaluationBreaker:   mkBreaker("evaluation"),
	}
}

// Options parameterizes one Run call.
type Options struct {
	SessionID        string
	TopK             int
	UseGraph         *bool
	EnableDebugTrace bool
}

// Result is the outcome of one Self-RAG request.
type Result struct {
	Answer        string
	Sources       []*document.Result
	TokensUsed    int
	ModelInfo     string
	QualityScore  *float64
	RefusalReason string
	DebugTrace    *DebugTrace
}

// Run executes the end-to-end Self-RAG pipeline for one message. It never
// panics out to the caller: any unexpected failure anywhere degrades to a
// graceful Result carrying whatever partial state exists.
func (p *Pipeline) Run(ctx context.Context, message string, opts *Options) (result Result) {
	if opts == nil {
		opts = &Options{}
	}
	var trace *DebugTrace
	if opts.EnableDebugTrace {
		trace = &DebugTrace{}
	}

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("selfrag: recovered from panic", "panic", r)
			result = Result{Answer: RefusalMessage, RefusalReason: fmt.Sprintf("internal error: %v", r), DebugTrace: trace}
		}
	}()

	state := StateIdle
	query := message

	// 1. Resolve session context (external).
	sessionContext := ""
	if p.sessionCtx != nil && opts.SessionID != "" {
		resolved, err := p.sessionCtx.ResolveContext(ctx, opts.SessionID)
		if err == nil {
			sessionContext = resolved
		}
	}

	// 2. Optionally classify/route.
	state = StateRouting
	if p.router != nil {
		started := time.Now()
		routed, err := p.router.Route(ctx, query)
		trace.record(state, routed, err, time.Since(started).Milliseconds())
		if err == nil && routed != "" {
			query = routed
		}
	}

	// 3-4. Expansion + retrieval: delegated to the orchestrator, which
	// performs query expansion internally as part of Search.
	state = StateRetrieving
	started := time.Now()
	sources, err := p.retrieve(ctx, query, opts)
	trace.record(state, fmt.Sprintf("%d sources", len(sources)), err, time.Since(started).Milliseconds())

	if len(sources) == 0 {
		return Result{Answer: NoContextMessage, Sources: sources, DebugTrace: trace}
	}

	// 5. Generate.
	state = StateGenerating
	started = time.Now()
	answer, genErr := p.generate(ctx, query, sessionContext, sources)
	trace.record(state, "", genErr, time.Since(started).Milliseconds())
	if genErr != nil {
		return Result{Answer: RefusalMessage, Sources: sources, RefusalReason: "generation unavailable", DebugTrace: trace}
	}

	if !p.selfRAGEnabled || p.evaluator == nil {
		state = StateDone
		return Result{Answer: answer, Sources: sources, DebugTrace: trace}
	}

	// 6. Evaluate and possibly regenerate/refuse.
	return p.evaluateAndDecide(ctx, query, answer, sources, trace)
}

func (p *Pipeline) retrieve(ctx context.Context, query string, opts *Options) ([]*document.Result, error) {
	raw, err := p.retrievalBreaker.Execute(func() (interface{}, error) {
		results := p.orchestrator.Search(ctx, query, &orchestrator.SearchOptions{
			TopK:     opts.TopK,
			UseGraph: opts.UseGraph,
		})
		return results, nil
	})
	if err != nil {
		p.logger.Error("selfrag: retrieval circuit breaker rejected call", "error", err)
		return nil, err
	}
	return raw.([]*document.Result), nil
}

func (p *Pipeline) generate(ctx context.Context, query, sessionContext string, sources []*document.Result) (string, error) {
	prompt := buildGenerationPrompt(query, sessionContext, sources, "")
	raw, err := p.generationBreaker.Execute(func() (interface{}, error) {
		return p.generator.Generate(ctx, generation.Request{
			System: "You are a helpful assistant. Answer using only the provided context.",
			Prompt: prompt,
		})
	})
	if err != nil {
		return "", err
	}
	return raw.(string), nil
}

func (p *Pipeline) evaluateAndDecide(ctx context.Context, query, answer string, sources []*document.Result, trace *DebugTrace) Result {
	contextTexts := make([]string, len(sources))
	for i, s := range sources {
		contextTexts[i] = s.Text
	}

	state := StateEvaluating
	started := time.Now()
	firstEval, evalErr := p.evaluate(ctx, query, answer, contextTexts)
	trace.record(state, fmt.Sprintf("overall=%.2f", firstEval.Overall), evalErr, time.Since(started).Milliseconds())

	if evalErr != nil {
		// Evaluation unavailable: degrade gracefully by returning the
		// answer as-is rather than blocking on a broken quality gate.
		return Result{Answer: answer, Sources: sources, DebugTrace: trace}
	}

	if firstEval.IsAcceptable(p.acceptThreshold) {
		score := firstEval.Overall
		trace.record(StateAccept, "", nil, 0)
		return Result{Answer: answer, Sources: sources, QualityScore: &score, DebugTrace: trace}
	}

	if firstEval.Overall >= p.regenerateThreshold {
		trace.record(StateRegenerate, "", nil, 0)

		augmentedPrompt := buildGenerationPrompt(query, "", sources, firstEval.Reasoning)
		started = time.Now()
		raw, err := p.generationBreaker.Execute(func() (interface{}, error) {
			return p.generator.Generate(ctx, generation.Request{
				System: "You are a helpful assistant. Improve faithfulness and relevance using only the provided context.",
				Prompt: augmentedPrompt,
			})
		})
		trace.record(StateGenerating, "regeneration attempt", err, time.Since(started).Milliseconds())

		if err == nil {
			regenerated := raw.(string)
			started = time.Now()
			secondEval, evalErr2 := p.evaluate(ctx, query, regenerated, contextTexts)
			trace.record(StateEvaluating, fmt.Sprintf("overall=%.2f", secondEval.Overall), evalErr2, time.Since(started).Milliseconds())

			if evalErr2 == nil && secondEval.Overall >= firstEval.Overall {
				score := secondEval.Overall
				trace.record(StateAccept, "accepted regenerated answer", nil, 0)
				return Result{Answer: regenerated, Sources: sources, QualityScore: &score, DebugTrace: trace}
			}
		}

		// Regeneration did not improve things: fall through to the
		// original answer at its original score.
		score := firstEval.Overall
		trace.record(StateAccept, "kept original answer over regeneration", nil, 0)
		return Result{Answer: answer, Sources: sources, QualityScore: &score, DebugTrace: trace}
	}

	trace.record(StateRefuse, "", nil, 0)
	return Result{
		Answer:        RefusalMessage,
		Sources:       sources,
		QualityScore:  &firstEval.Overall,
		RefusalReason: "low quality: " + strings.TrimSpace(firstEval.Reasoning),
		DebugTrace:    trace,
	}
}

func (p *Pipeline) evaluate(ctx context.Context, query, answer string, contextTexts []string) (evaluation.Result, error) {
	raw, err := p.evaluationBreaker.Execute(func() (interface{}, error) {
		return p.evaluator.Evaluate(ctx, query, answer, contextTexts, "")
	})
	if err != nil {
		return evaluation.Result{}, err
	}
	result, ok := raw.(evaluation.Result)
	if !ok {
		return evaluation.Result{}, errors.New("selfrag: evaluator returned unexpected type")
	}
	return result, nil
}

func buildGenerationPrompt(query, sessionContext string, sources []*document.Result, critique string) string {
	var b strings.Builder
	if sessionContext != "" {
		b.WriteString("Conversation so far:\n")
		b.WriteString(sessionContext)
		b.WriteString("\n\n")
	}
	b.WriteString("Context:\n")
	for i, s := range sources {
		fmt.Fprintf(&b, "Document %d:\n%s\n\n", i+1, s.Text)
	}
	if critique != "" {
		b.WriteString("A previous answer was judged low quality for this reason: ")
		b.WriteString(critique)
		b.WriteString("\nAddress that issue in your answer.\n\n")
	}
	b.WriteString("Question:\n")
	b.WriteString(query)
	return b.String()
}
