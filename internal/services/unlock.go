package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"

	dataagg "github.com/yungbote/progression-backend/internal/data/aggregates"
	"github.com/yungbote/progression-backend/internal/data/repos"
	types "github.com/yungbote/progression-backend/internal/domain"
	domainagg "github.com/yungbote/progression-backend/internal/domain/aggregates"
	"github.com/yungbote/progression-backend/internal/modules/progression/conditions"
	"github.com/yungbote/progression-backend/internal/modules/progression/skillgraph"
	"github.com/yungbote/progression-backend/internal/observability"
	"github.com/yungbote/progression-backend/internal/platform/dbctx"
	"github.com/yungbote/progression-backend/internal/platform/logger"
)

const ErrCodeConditionsNotMet = "CONDITIONS_NOT_MET"

// Unlock attempt outcomes, as reported to metrics.
const (
	UnlockOutcomeUnlocked        = "unlocked"
	UnlockOutcomeAlreadyUnlocked = "already_unlocked"
	UnlockOutcomeNotMet          = "conditions_not_met"
	UnlockOutcomeError           = "error"
)

type SkillSummary struct {
	ID   uuid.UUID `json:"id"`
	Key  string    `json:"key"`
	Name string    `json:"name"`
}

type NextSkill struct {
	SkillSummary
	CanUnlock bool `json:"can_unlock"`
}

type UnmetCondition struct {
	Type            types.ConditionType `json:"type"`
	TargetValue     int                 `json:"target_value"`
	CurrentProgress int                 `json:"current_progress"`
	Description     string              `json:"description"`
}

type UnmetDetails struct {
	UnmetDependencies []SkillSummary   `json:"unmet_dependencies"`
	UnmetConditions   []UnmetCondition `json:"unmet_conditions"`
}

type UnlockRewards struct {
	Experience int    `json:"experience"`
	Granted    bool   `json:"granted"`
	Error      string `json:"error,omitempty"`
}

// UnlockResult is returned for every attempt that could be evaluated.
// Success=false always carries Error=CONDITIONS_NOT_MET and Details.
type UnlockResult struct {
	Success         bool           `json:"success"`
	AlreadyUnlocked bool           `json:"already_unlocked,omitempty"`
	Unlocked        bool           `json:"unlocked,omitempty"`
	UnlockedAt      *time.Time     `json:"unlocked_at,omitempty"`
	Skill           *SkillSummary  `json:"skill,omitempty"`
	Rewards         *UnlockRewards `json:"rewards,omitempty"`
	NextSkills      []NextSkill    `json:"next_skills,omitempty"`
	Error           string         `json:"error,omitempty"`
	Message         string         `json:"message,omitempty"`
	Details         *UnmetDetails  `json:"details,omitempty"`
}

type ConditionProgress struct {
	ID              uuid.UUID           `json:"id"`
	Type            types.ConditionType `json:"type"`
	TargetValue     int                 `json:"target_value"`
	CurrentProgress int                 `json:"current_progress"`
	IsMet           bool                `json:"is_met"`
	Description     string              `json:"description"`
}

type PrerequisiteStatus struct {
	SkillSummary
	IsUnlocked bool `json:"is_unlocked"`
}

type NodeDetails struct {
	Skill           *types.SkillNode     `json:"skill"`
	IsUnlocked      bool                 `json:"is_unlocked"`
	UnlockedAt      *time.Time           `json:"unlocked_at,omitempty"`
	Prerequisites   []PrerequisiteStatus `json:"prerequisites"`
	Dependents      []SkillSummary       `json:"dependents"`
	Conditions      []ConditionProgress  `json:"conditions"`
	CanUnlock       bool                 `json:"can_unlock"`
	BlockingReasons []string             `json:"blocking_reasons"`
}

type GraphNode struct {
	ID          uuid.UUID      `json:"id"`
	Key         string         `json:"key"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	SortIndex   int            `json:"sort_index"`
	RewardXP    int            `json:"reward_xp"`
	Metadata    datatypes.JSON `json:"metadata,omitempty"`
	IsUnlocked  bool           `json:"is_unlocked"`
	UnlockedAt  *time.Time     `json:"unlocked_at,omitempty"`
	// Conditions is only filled for locked nodes.
	Conditions []ConditionProgress `json:"conditions,omitempty"`
}

type GraphEdge struct {
	SourceID uuid.UUID `json:"source_id"`
	TargetID uuid.UUID `json:"target_id"`
}

type GraphSummary struct {
	TotalNodes     int         `json:"total_nodes"`
	UnlockedCount  int         `json:"unlocked_count"`
	Percentage     float64     `json:"percentage"`
	NextUnlockable []uuid.UUID `json:"next_unlockable"`
}

type GraphProgress struct {
	Nodes   []GraphNode  `json:"nodes"`
	Edges   []GraphEdge  `json:"edges"`
	Summary GraphSummary `json:"summary"`
}

type UnlockService interface {
	AttemptUnlock(ctx context.Context, userID, nodeID uuid.UUID, unlockContext map[string]any) (*UnlockResult, error)
	// GetNodeDetails returns nil, nil when the node does not exist.
	GetNodeDetails(ctx context.Context, nodeID, userID uuid.UUID) (*NodeDetails, error)
	GetGraphWithProgress(ctx context.Context, userID uuid.UUID) (*GraphProgress, error)
}

// UnlockRecorder mirrors committed unlocks somewhere outside the primary store.
type UnlockRecorder interface {
	RecordUnlock(ctx context.Context, row *types.UserUnlock) error
}

type UnlockServiceDeps struct {
	Graphs     *skillgraph.Cache
	Evaluator  conditions.Evaluator
	Conditions repos.UnlockConditionRepo
	Unlocks    repos.UserUnlockRepo
	Rewards    RewardService
	Notifier   ProgressNotifier
	Mirror     UnlockRecorder
	Metrics    *observability.Metrics
	// ReadTimeout bounds every read before the unlock write. Zero disables it.
	ReadTimeout time.Duration
	Now         func() time.Time
}

type unlockService struct {
	log  *logger.Logger
	deps UnlockServiceDeps
	now  func() time.Time
}

func NewUnlockService(log *logger.Logger, deps UnlockServiceDeps) UnlockService {
	if log == nil {
		log = logger.Nop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &unlockService{
		log:  log.With("service", "UnlockService"),
		deps: deps,
		now:  now,
	}
}

// userView is the read-side snapshot shared by every operation.
type userView struct {
	graph    *skillgraph.Graph
	unlocked skillgraph.UnlockedSet
	at       map[uuid.UUID]time.Time
}

func (s *unlockService) AttemptUnlock(ctx context.Context, userID, nodeID uuid.UUID, unlockContext map[string]any) (res *UnlockResult, err error) {
	const op = "UnlockService.AttemptUnlock"
	ctx, span := s.startSpan(ctx, "progression.attempt_unlock", nodeID)
	defer func() {
		outcome := UnlockOutcomeError
		switch code := domainagg.CodeOf(err); {
		case err == nil && res != nil:
			outcome = resultOutcome(res)
		case code == domainagg.CodeNotFound, code == domainagg.CodeUserNotFound, code == domainagg.CodeValidation:
			outcome = string(code)
		}
		s.deps.Metrics.IncUnlockAttempt(outcome)
		endSpan(span, err, attribute.String("unlock.outcome", outcome))
	}()

	if userID == uuid.Nil || nodeID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing user_id or node_id", nil)
	}

	readCtx, cancel := s.readContext(ctx)
	defer cancel()
	rdc := dbctx.Context{Ctx: readCtx}

	view, err := s.loadView(readCtx, op, userID)
	if err != nil {
		return nil, err
	}
	node, ok := view.graph.Node(nodeID)
	if !ok {
		return nil, domainagg.NewError(domainagg.CodeNotFound, op, "skill node not found", nil)
	}
	if at, ok := view.at[nodeID]; ok {
		return alreadyUnlocked(node, at), nil
	}

	conds, err := s.deps.Conditions.ListByNodeID(rdc, nodeID)
	if err != nil {
		return nil, dataagg.Unavailable(op, fmt.Errorf("list conditions: %w", err))
	}
	evaluated, err := s.deps.Evaluator.EvaluateAll(readCtx, userID, conds)
	if err != nil {
		return nil, dataagg.Unavailable(op, err)
	}
	if err := readCtx.Err(); err != nil {
		return nil, dataagg.Unavailable(op, err)
	}

	details := &UnmetDetails{
		UnmetDependencies: summaries(view.graph, view.graph.UnmetPrerequisites(nodeID, view.unlocked)),
		UnmetConditions:   unmetConditions(evaluated),
	}
	if len(details.UnmetDependencies) > 0 || len(details.UnmetConditions) > 0 {
		s.log.Debug("unlock conditions not met",
			"user_id", userID,
			"node_key", node.Key,
			"unmet_dependencies", len(details.UnmetDependencies),
			"unmet_conditions", len(details.UnmetConditions),
		)
		return &UnlockResult{
			Success: false,
			Error:   ErrCodeConditionsNotMet,
			Message: notMetMessage(node, details),
			Details: details,
		}, nil
	}

	row := &types.UserUnlock{
		UserID:     userID,
		NodeID:     nodeID,
		UnlockedAt: s.now().UTC(),
	}
	if len(unlockContext) > 0 {
		raw, mErr := json.Marshal(unlockContext)
		if mErr != nil {
			return nil, domainagg.NewError(domainagg.CodeValidation, op, "unlock context is not JSON encodable", mErr)
		}
		row.Context = datatypes.JSON(raw)
	}

	saved, created, err := s.deps.Unlocks.CreateIfAbsent(dbctx.Context{Ctx: ctx}, row)
	if err != nil {
		mapped := dataagg.MapError(op, err)
		if !domainagg.IsCode(mapped, domainagg.CodeConflict) {
			s.log.Error("unlock write failed", "user_id", userID, "node_id", nodeID, "error", err)
			return nil, mapped
		}
		existing, gErr := s.deps.Unlocks.GetByUserAndNode(dbctx.Context{Ctx: ctx}, userID, nodeID)
		if gErr != nil || existing == nil {
			return nil, mapped
		}
		return alreadyUnlocked(node, existing.UnlockedAt), nil
	}
	if !created {
		return alreadyUnlocked(node, saved.UnlockedAt), nil
	}

	after := view.unlocked.Clone()
	after.Add(nodeID)
	unlockedAt := saved.UnlockedAt
	skill := summary(node)
	out := &UnlockResult{
		Success:    true,
		Unlocked:   true,
		UnlockedAt: &unlockedAt,
		Skill:      &skill,
		NextSkills: frontier(view.graph, nodeID, after),
	}
	out.Rewards = s.grantReward(ctx, userID, node)

	if s.deps.Mirror != nil {
		if mErr := s.deps.Mirror.RecordUnlock(ctx, saved); mErr != nil {
			s.log.Warn("mirror unlock failed", "user_id", userID, "node_id", nodeID, "error", mErr)
		}
	}
	if s.deps.Notifier != nil {
		s.deps.Notifier.SkillUnlocked(ctx, userID, SkillUnlockedPayload{Skill: skill, NextSkills: out.NextSkills})
	}
	s.log.Info("skill unlocked", "user_id", userID, "node_key", node.Key, "next_skills", len(out.NextSkills))
	return out, nil
}

// grantReward never fails the unlock; the outcome is reported in the result.
func (s *unlockService) grantReward(ctx context.Context, userID uuid.UUID, node *types.SkillNode) *UnlockRewards {
	if node.RewardXP <= 0 {
		return nil
	}
	out := &UnlockRewards{Experience: node.RewardXP}
	if s.deps.Rewards == nil {
		out.Error = "rewards unavailable"
		return out
	}
	nodeID := node.ID
	if _, err := s.deps.Rewards.Grant(ctx, userID, node.RewardXP, RewardReasonSkillUnlock, &nodeID); err != nil {
		s.log.Warn("reward grant failed after unlock", "user_id", userID, "node_key", node.Key, "error", err)
		out.Error = string(domainagg.CodeOf(err))
		if out.Error == "" {
			out.Error = string(domainagg.CodeInternal)
		}
		return out
	}
	out.Granted = true
	return out
}

func (s *unlockService) GetNodeDetails(ctx context.Context, nodeID, userID uuid.UUID) (_ *NodeDetails, err error) {
	const op = "UnlockService.GetNodeDetails"
	ctx, span := s.startSpan(ctx, "progression.node_details", nodeID)
	defer func() { endSpan(span, err) }()

	if userID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing user_id", nil)
	}
	readCtx, cancel := s.readContext(ctx)
	defer cancel()

	view, err := s.loadView(readCtx, op, userID)
	if err != nil {
		return nil, err
	}
	node, ok := view.graph.Node(nodeID)
	if !ok {
		return nil, nil
	}

	conds, err := s.deps.Conditions.ListByNodeID(dbctx.Context{Ctx: readCtx}, nodeID)
	if err != nil {
		return nil, dataagg.Unavailable(op, fmt.Errorf("list conditions: %w", err))
	}
	evaluated, err := s.deps.Evaluator.EvaluateAll(readCtx, userID, conds)
	if err != nil {
		return nil, dataagg.Unavailable(op, err)
	}

	out := &NodeDetails{
		Skill:           node,
		Prerequisites:   []PrerequisiteStatus{},
		Dependents:      summaries(view.graph, view.graph.DependentsOf(nodeID)),
		Conditions:      conditionProgress(evaluated),
		BlockingReasons: []string{},
	}
	if at, ok := view.at[nodeID]; ok {
		out.IsUnlocked = true
		out.UnlockedAt = &at
	}
	for _, pid := range view.graph.PrerequisitesOf(nodeID) {
		out.Prerequisites = append(out.Prerequisites, PrerequisiteStatus{
			SkillSummary: summaryOf(view.graph, pid),
			IsUnlocked:   view.unlocked.Has(pid),
		})
	}
	if !out.IsUnlocked {
		for _, p := range out.Prerequisites {
			if !p.IsUnlocked {
				out.BlockingReasons = append(out.BlockingReasons, "Requires "+p.Name)
			}
		}
		for _, c := range out.Conditions {
			if !c.IsMet {
				out.BlockingReasons = append(out.BlockingReasons, c.Description)
			}
		}
		out.CanUnlock = len(out.BlockingReasons) == 0
	}
	return out, nil
}

func (s *unlockService) GetGraphWithProgress(ctx context.Context, userID uuid.UUID) (_ *GraphProgress, err error) {
	const op = "UnlockService.GetGraphWithProgress"
	ctx, span := s.startSpan(ctx, "progression.graph_progress", uuid.Nil)
	defer func() { endSpan(span, err) }()

	if userID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing user_id", nil)
	}
	readCtx, cancel := s.readContext(ctx)
	defer cancel()

	view, err := s.loadView(readCtx, op, userID)
	if err != nil {
		return nil, err
	}

	nodes := view.graph.Nodes()
	var locked []uuid.UUID
	for _, n := range nodes {
		if !view.unlocked.Has(n.ID) {
			locked = append(locked, n.ID)
		}
	}
	progressByNode := map[uuid.UUID][]ConditionProgress{}
	if len(locked) > 0 {
		conds, err := s.deps.Conditions.ListByNodeIDs(dbctx.Context{Ctx: readCtx}, locked)
		if err != nil {
			return nil, dataagg.Unavailable(op, fmt.Errorf("list conditions: %w", err))
		}
		evaluated, err := s.deps.Evaluator.EvaluateAll(readCtx, userID, conds)
		if err != nil {
			return nil, dataagg.Unavailable(op, err)
		}
		for _, cp := range evaluated {
			nid := cp.Condition.NodeID
			progressByNode[nid] = append(progressByNode[nid], conditionProgress([]conditions.Result{cp})...)
		}
	}

	out := &GraphProgress{
		Nodes: make([]GraphNode, 0, len(nodes)),
		Edges: make([]GraphEdge, 0, len(view.graph.Edges())),
		Summary: GraphSummary{
			TotalNodes:     len(nodes),
			NextUnlockable: []uuid.UUID{},
		},
	}
	for _, n := range nodes {
		gn := GraphNode{
			ID:          n.ID,
			Key:         n.Key,
			Name:        n.Name,
			Description: n.Description,
			SortIndex:   n.SortIndex,
			RewardXP:    n.RewardXP,
			Metadata:    n.Metadata,
		}
		if at, ok := view.at[n.ID]; ok {
			gn.IsUnlocked = true
			gn.UnlockedAt = &at
			out.Summary.UnlockedCount++
		} else {
			gn.Conditions = progressByNode[n.ID]
			if view.graph.AllPrerequisitesUnlocked(n.ID, view.unlocked) {
				out.Summary.NextUnlockable = append(out.Summary.NextUnlockable, n.ID)
			}
		}
		out.Nodes = append(out.Nodes, gn)
	}
	for _, e := range view.graph.Edges() {
		out.Edges = append(out.Edges, GraphEdge{SourceID: e.Source, TargetID: e.Target})
	}
	if out.Summary.TotalNodes > 0 {
		pct := float64(out.Summary.UnlockedCount) * 100 / float64(out.Summary.TotalNodes)
		out.Summary.Percentage = math.Round(pct*10) / 10
	}
	return out, nil
}

// loadView reads the cached graph and the user's unlocks. Unlocks for nodes
// no longer in the catalog are kept; they never match a graph lookup.
func (s *unlockService) loadView(ctx context.Context, op string, userID uuid.UUID) (*userView, error) {
	graph, err := s.deps.Graphs.Get(ctx)
	if err != nil {
		return nil, dataagg.Unavailable(op, fmt.Errorf("load skill graph: %w", err))
	}
	rows, err := s.deps.Unlocks.ListByUser(dbctx.Context{Ctx: ctx}, userID)
	if err != nil {
		return nil, dataagg.Unavailable(op, fmt.Errorf("list unlocks: %w", err))
	}
	view := &userView{
		graph:    graph,
		unlocked: skillgraph.NewUnlockedSet(),
		at:       make(map[uuid.UUID]time.Time, len(rows)),
	}
	for _, r := range rows {
		if r == nil {
			continue
		}
		view.unlocked.Add(r.NodeID)
		view.at[r.NodeID] = r.UnlockedAt
	}
	return view, nil
}

func (s *unlockService) readContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.deps.ReadTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.deps.ReadTimeout)
}

func (s *unlockService) startSpan(ctx context.Context, name string, nodeID uuid.UUID) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{}
	if nodeID != uuid.Nil {
		attrs = append(attrs, attribute.String("skill.node_id", nodeID.String()))
	}
	return observability.Tracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error, attrs ...attribute.KeyValue) {
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(domainagg.CodeOf(err)))
	}
	span.End()
}

func resultOutcome(res *UnlockResult) string {
	switch {
	case res.AlreadyUnlocked:
		return UnlockOutcomeAlreadyUnlocked
	case res.Success:
		return UnlockOutcomeUnlocked
	default:
		return UnlockOutcomeNotMet
	}
}

func alreadyUnlocked(node *types.SkillNode, at time.Time) *UnlockResult {
	skill := summary(node)
	return &UnlockResult{
		Success:         true,
		AlreadyUnlocked: true,
		UnlockedAt:      &at,
		Skill:           &skill,
	}
}

// frontier lists every direct dependent of nodeID. CanUnlock only reflects
// dependencies; conditions are checked when the dependent is attempted.
func frontier(g *skillgraph.Graph, nodeID uuid.UUID, unlocked skillgraph.UnlockedSet) []NextSkill {
	deps := g.DependentsOf(nodeID)
	out := make([]NextSkill, 0, len(deps))
	for _, id := range deps {
		if unlocked.Has(id) {
			continue
		}
		out = append(out, NextSkill{
			SkillSummary: summaryOf(g, id),
			CanUnlock:    g.AllPrerequisitesUnlocked(id, unlocked),
		})
	}
	return out
}

func summary(n *types.SkillNode) SkillSummary {
	return SkillSummary{ID: n.ID, Key: n.Key, Name: n.Name}
}

func summaryOf(g *skillgraph.Graph, id uuid.UUID) SkillSummary {
	if n, ok := g.Node(id); ok {
		return summary(n)
	}
	return SkillSummary{ID: id}
}

func summaries(g *skillgraph.Graph, ids []uuid.UUID) []SkillSummary {
	out := make([]SkillSummary, 0, len(ids))
	for _, id := range ids {
		out = append(out, summaryOf(g, id))
	}
	return out
}

func unmetConditions(results []conditions.Result) []UnmetCondition {
	out := []UnmetCondition{}
	for _, r := range results {
		if r.Progress.IsMet {
			continue
		}
		out = append(out, UnmetCondition{
			Type:            r.Condition.Type,
			TargetValue:     r.Condition.TargetValue,
			CurrentProgress: r.Progress.CurrentProgress,
			Description:     conditions.Describe(r.Condition, r.Progress),
		})
	}
	return out
}

func conditionProgress(results []conditions.Result) []ConditionProgress {
	out := make([]ConditionProgress, 0, len(results))
	for _, r := range results {
		out = append(out, ConditionProgress{
			ID:              r.Condition.ID,
			Type:            r.Condition.Type,
			TargetValue:     r.Condition.TargetValue,
			CurrentProgress: r.Progress.CurrentProgress,
			IsMet:           r.Progress.IsMet,
			Description:     conditions.Describe(r.Condition, r.Progress),
		})
	}
	return out
}

func notMetMessage(node *types.SkillNode, d *UnmetDetails) string {
	switch {
	case len(d.UnmetDependencies) > 0 && len(d.UnmetConditions) > 0:
		return fmt.Sprintf("%s requires %d more skill(s) and %d more condition(s)", node.Name, len(d.UnmetDependencies), len(d.UnmetConditions))
	case len(d.UnmetDependencies) > 0:
		return fmt.Sprintf("%s requires %d more skill(s)", node.Name, len(d.UnmetDependencies))
	default:
		return fmt.Sprintf("%s has %d unmet condition(s)", node.Name, len(d.UnmetConditions))
	}
}
