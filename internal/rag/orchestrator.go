package rag

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrchestrateRequest is the Orchestrator's external input for one call.
type OrchestrateRequest struct {
	Query                string
	SessionID            string
	UserID               string
	RetrievalFilters     RetrievalFilters
	SearchFilters        SearchFilters
	MaxTokensOverride    *int
	ReservedTokensOverride *int
	HeuristicValidation  bool
	InstructionOverride  string
}

// Orchestrator is a stateful composition of every pipeline stage. It is
// safe for concurrent use: per-call state lives entirely on the stack of
// Orchestrate, not on the Orchestrator itself.
type Orchestrator struct {
	router       *Router
	enhancer     *Enhancer
	decomposer   *Decomposer
	retriever    *Retriever
	validator    *Validator
	contextMgr   *ContextWindowManager
	promptBuilder *PromptBuilder
	toolPlanner  *ToolPlanner
	grader       *Grader
	maxResultsPerQuery int
	clock        Clock
	logger       *zap.Logger
}

// NewOrchestrator wires every stage into a single Orchestrator.
func NewOrchestrator(
	router *Router,
	enhancer *Enhancer,
	decomposer *Decomposer,
	retriever *Retriever,
	validator *Validator,
	contextMgr *ContextWindowManager,
	promptBuilder *PromptBuilder,
	toolPlanner *ToolPlanner,
	grader *Grader,
	maxResultsPerQuery int,
	logger *zap.Logger,
) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		router:        router,
		enhancer:      enhancer,
		decomposer:    decomposer,
		retriever:     retriever,
		validator:     validator,
		contextMgr:    contextMgr,
		promptBuilder: promptBuilder,
		toolPlanner:   toolPlanner,
		grader:        grader,
		maxResultsPerQuery: maxResultsPerQuery,
		clock:         SystemClock{},
		logger:        logger,
	}
}

// Orchestrate runs the full query -> route -> (enhance?) -> (decompose?) ->
// retrieve -> validate -> fit -> (plan_tools?) -> build_prompt pipeline.
// It returns an error only for pipeline-fatal failures (primary-path
// vector-search failure on every variation); every other subcomponent
// failure is absorbed by that component's documented fallback.
func (o *Orchestrator) Orchestrate(ctx context.Context, req OrchestrateRequest) (OrchestrationResponse, error) {
	start := o.clock.Now()
	messageID := uuid.NewString()
	var steps []string

	route, err := o.router.Route(ctx, req.Query, req.UserID)
	if err != nil {
		return OrchestrationResponse{}, newFatalError("route", err)
	}
	steps = append(steps, "route")

	if !route.Classification.NeedsRetrieval {
		prompt := o.promptBuilder.Build(req.Query, route.Classification.Category, nil, req.InstructionOverride)
		steps = append(steps, "build_prompt")
		return OrchestrationResponse{
			Prompt:     prompt,
			PathTaken:  route.Path,
			MessageID:  messageID,
			Confidence: CalculateConfidence(0, 0, nil, false, false),
			Metadata: OrchestrationMetadata{
				Duration:      o.clock.Now().Sub(start),
				Enhanced:      false,
				Decomposed:    false,
				StepsExecuted: steps,
				ContextStats:  ContextStats{},
			},
		}, nil
	}

	var enhanced EnhancedQuery
	enhancedRan := false
	if route.Strategy.UseHyDE || route.Strategy.UseQueryExpansion {
		enhanced = o.enhancer.Enhance(ctx, req.Query, req.UserID, route.Strategy)
		enhancedRan = true
		steps = append(steps, "enhance")
	}

	decomposedRan := false
	if route.Strategy.UseDecomposition {
		o.decomposer.Decompose(ctx, req.Query, req.UserID)
		decomposedRan = true
		steps = append(steps, "decompose")
	}

	limit := RetrieveLimitForComplexity(route.Classification.Complexity, o.maxResultsPerQuery)
	retrieved, err := o.retriever.Retrieve(ctx, req.Query, req.UserID, enhanced, limit, req.RetrievalFilters, req.SearchFilters)
	if err != nil {
		return OrchestrationResponse{}, newFatalError("retrieve", err)
	}
	steps = append(steps, "retrieve")

	validated := o.validator.Validate(ctx, req.Query, retrieved.Results, req.HeuristicValidation)
	steps = append(steps, "validate")

	fitted := o.contextMgr.Fit(validated.Results, req.MaxTokensOverride, req.ReservedTokensOverride)
	steps = append(steps, "fit")

	if route.Strategy.UseToolPlanning {
		plan := o.toolPlanner.Plan(ctx, req.Query)
		o.logger.Info("tool plan proposed (advisory, not wired into prompt)", zap.Int("steps", len(plan.Steps)))
		steps = append(steps, "plan_tools")
	}

	prompt := o.promptBuilder.Build(req.Query, route.Classification.Category, fitted.Results, req.InstructionOverride)
	steps = append(steps, "build_prompt")

	citationScores := make([]float64, len(prompt.Citations))
	for i, c := range prompt.Citations {
		citationScores[i] = c.RelevanceScore
	}
	confidence := CalculateConfidence(len(validated.Results), len(retrieved.Results), citationScores, enhancedRan, decomposedRan)

	return OrchestrationResponse{
		Prompt:     prompt,
		PathTaken:  route.Path,
		MessageID:  messageID,
		Confidence: confidence,
		Metadata: OrchestrationMetadata{
			Duration:      o.clock.Now().Sub(start),
			Enhanced:      enhancedRan,
			Decomposed:    decomposedRan,
			StepsExecuted: steps,
			ContextStats: ContextStats{
				Retrieved: len(retrieved.Results),
				Validated: len(validated.Results),
				Fitted:    len(fitted.Results),
			},
		},
	}, nil
}

// GradeCompletion schedules asynchronous quality grading for a completion
// the caller obtained downstream of Orchestrate; it never blocks the
// caller and suppresses any failure internally.
func (o *Orchestrator) GradeCompletion(ctx context.Context, query, completion string, onResult func(GradingResult)) {
	o.grader.GradeAsync(ctx, query, completion, onResult)
}
