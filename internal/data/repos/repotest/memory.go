package repotest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/progression-backend/internal/data/repos"
	types "github.com/yungbote/progression-backend/internal/domain"
	"github.com/yungbote/progression-backend/internal/platform/dbctx"
)

// Memory is an in-process stand-in for every progression repo, used by
// service and module tests that do not need Postgres. All views share one
// mutex so CreateIfAbsent behaves like the unique index.
//
// Fail and Slow inject errors and latency per operation, keyed by
// "<Repo>.<Method>", e.g. "UserRepo.GetLevel".
type Memory struct {
	mu sync.Mutex

	users        map[uuid.UUID]*types.User
	nodes        map[uuid.UUID]*types.SkillNode
	edges        []*types.SkillEdge
	conditions   map[uuid.UUID][]*types.UnlockCondition
	unlocks      []*types.UserUnlock
	sessions     []*types.TrainingSession
	goals        []*types.DailyGoal
	achievements []*types.UserAchievement
	rewards      []*types.RewardGrant

	fail  map[string]error
	slow  map[string]time.Duration
	calls map[string]int
}

func NewMemory() *Memory {
	return &Memory{
		users:      map[uuid.UUID]*types.User{},
		nodes:      map[uuid.UUID]*types.SkillNode{},
		conditions: map[uuid.UUID][]*types.UnlockCondition{},
		fail:       map[string]error{},
		slow:       map[string]time.Duration{},
		calls:      map[string]int{},
	}
}

func (m *Memory) Fail(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.fail, op)
		return
	}
	m.fail[op] = err
}

func (m *Memory) Slow(op string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slow[op] = d
}

// Calls reports how many times op ran, including failed attempts.
func (m *Memory) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// enter records the call, applies injected latency and failure, and on
// success returns with m.mu held.
func (m *Memory) enter(dbc dbctx.Context, op string) error {
	m.mu.Lock()
	m.calls[op]++
	delay := m.slow[op]
	err := m.fail[op]
	m.mu.Unlock()

	ctx := dbc.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if delay > 0 {
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err != nil {
		return err
	}
	m.mu.Lock()
	return nil
}

// Seeding helpers. They bypass failure injection.

func (m *Memory) AddUser(level int) *types.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	u := &types.User{ID: uuid.New(), Email: uuid.NewString() + "@example.com", Level: level, CreatedAt: now, UpdatedAt: now}
	m.users[u.ID] = u
	return u
}

func (m *Memory) User(id uuid.UUID) *types.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil
	}
	cp := *u
	return &cp
}

func (m *Memory) SetLevel(id uuid.UUID, level int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		u.Level = level
	}
}

func (m *Memory) AddNode(key string, rewardXP int, conds ...*types.UnlockCondition) *types.SkillNode {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := &types.SkillNode{ID: uuid.New(), Key: key, Name: strings.ToUpper(key[:1]) + key[1:], SortIndex: len(m.nodes), RewardXP: rewardXP}
	m.nodes[n.ID] = n
	for i, c := range conds {
		c.ID = uuid.New()
		c.NodeID = n.ID
		c.SortIndex = i
		m.conditions[n.ID] = append(m.conditions[n.ID], c)
	}
	return n
}

func (m *Memory) AddEdge(src, dst *types.SkillNode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edges = append(m.edges, &types.SkillEdge{ID: uuid.New(), SourceNodeID: src.ID, TargetNodeID: dst.ID})
}

func (m *Memory) AddCompletedSession(userID uuid.UUID, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	at = at.UTC()
	m.sessions = append(m.sessions, &types.TrainingSession{ID: uuid.New(), UserID: userID, Mode: "standard", StartedAt: at, CompletedAt: &at})
}

func (m *Memory) AddCompletedGoal(userID uuid.UUID, title string, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	at = at.UTC()
	m.goals = append(m.goals, &types.DailyGoal{ID: uuid.New(), UserID: userID, Title: title, GoalDate: at.Format("2006-01-02"), CompletedAt: &at})
}

func (m *Memory) AddAchievement(userID uuid.UUID, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.achievements = append(m.achievements, &types.UserAchievement{ID: uuid.New(), UserID: userID, AchievementKey: key, UnlockedAt: time.Now().UTC()})
}

func (m *Memory) UnlockCount(userID uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, u := range m.unlocks {
		if u.UserID == userID {
			n++
		}
	}
	return n
}

func (m *Memory) RewardRows(userID uuid.UUID) []*types.RewardGrant {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*types.RewardGrant
	for _, r := range m.rewards {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out
}

// Repo views.

func (m *Memory) Users() repos.UserRepo { return memUsers{m} }
func (m *Memory) SkillNodes() repos.SkillNodeRepo { return memNodes{m} }
func (m *Memory) SkillEdges() repos.SkillEdgeRepo { return memEdges{m} }
func (m *Memory) Conditions() repos.UnlockConditionRepo { return memConditions{m} }
func (m *Memory) Unlocks() repos.UserUnlockRepo { return memUnlocks{m} }
func (m *Memory) Sessions() repos.TrainingSessionRepo { return memSessions{m} }
func (m *Memory) Goals() repos.DailyGoalRepo { return memGoals{m} }
func (m *Memory) Achievements() repos.UserAchievementRepo { return memAchievements{m} }
func (m *Memory) Rewards() repos.RewardGrantRepo { return memRewards{m} }
func (m *Memory) TxRunner() *MemoryTx { return &MemoryTx{} }

// MemoryTx runs fn without isolation or rollback.
type MemoryTx struct{}

func (*MemoryTx) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(dbctx.Context{Ctx: ctx})
}

type memUsers struct{ m *Memory }

func (r memUsers) Create(dbc dbctx.Context, users []*types.User) ([]*types.User, error) {
	if err := r.m.enter(dbc, "UserRepo.Create"); err != nil {
		return nil, err
	}
	defer r.m.mu.Unlock()
	for _, u := range users {
		if u.ID == uuid.Nil {
			u.ID = uuid.New()
		}
		cp := *u
		r.m.users[u.ID] = &cp
	}
	return users, nil
}

func (r memUsers) GetByID(dbc dbctx.Context, userID uuid.UUID) (*types.User, error) {
	if err := r.m.enter(dbc, "UserRepo.GetByID"); err != nil {
		return nil, err
	}
	defer r.m.mu.Unlock()
	u, ok := r.m.users[userID]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r memUsers) GetByIDs(dbc dbctx.Context, userIDs []uuid.UUID) ([]*types.User, error) {
	if err := r.m.enter(dbc, "UserRepo.GetByIDs"); err != nil {
		return nil, err
	}
	defer r.m.mu.Unlock()
	var out []*types.User
	for _, id := range userIDs {
		if u, ok := r.m.users[id]; ok {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r memUsers) GetLevel(dbc dbctx.Context, userID uuid.UUID) (int, error) {
	if err := r.m.enter(dbc, "UserRepo.GetLevel"); err != nil {
		return 0, err
	}
	defer r.m.mu.Unlock()
	u, ok := r.m.users[userID]
	if !ok {
		return 0, gorm.ErrRecordNotFound
	}
	return u.Level, nil
}

func (r memUsers) SaveStreakStats(dbc dbctx.Context, userID uuid.UUID, stats repos.StreakStats) error {
	if err := r.m.enter(dbc, "UserRepo.SaveStreakStats"); err != nil {
		return err
	}
	defer r.m.mu.Unlock()
	u, ok := r.m.users[userID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	at := stats.RecalculatedAt.UTC()
	u.CurrentStreak = stats.CurrentStreak
	u.LongestStreak = stats.LongestStreak
	u.TotalActiveDays = stats.TotalActiveDays
	u.StatsRecalculatedAt = &at
	return nil
}

func (r memUsers) AddExperience(dbc dbctx.Context, userID uuid.UUID, amount int) error {
	if err := r.m.enter(dbc, "UserRepo.AddExperience"); err != nil {
		return err
	}
	defer r.m.mu.Unlock()
	u, ok := r.m.users[userID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.Experience += int64(amount)
	return nil
}

type memNodes struct{ m *Memory }

func (r memNodes) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.SkillNode, error) {
	if err := r.m.enter(dbc, "SkillNodeRepo.GetByID"); err != nil {
		return nil, err
	}
	defer r.m.mu.Unlock()
	n, ok := r.m.nodes[id]
	if !ok {
		return nil, nil
	}
	return n, nil
}

func (r memNodes) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.SkillNode, error) {
	if err := r.m.enter(dbc, "SkillNodeRepo.GetByIDs"); err != nil {
		return nil, err
	}
	defer r.m.mu.Unlock()
	var out []*types.SkillNode
	for _, id := range ids {
		if n, ok := r.m.nodes[id]; ok {
			out = append(out, n)
		}
	}
	return out, nil
}

func (r memNodes) GetByKeys(dbc dbctx.Context, keys []string) ([]*types.SkillNode, error) {
	if err := r.m.enter(dbc, "SkillNodeRepo.GetByKeys"); err != nil {
		return nil, err
	}
	defer r.m.mu.Unlock()
	want := map[string]bool{}
	for _, k := range keys {
		want[k] = true
	}
	var out []*types.SkillNode
	for _, n := range r.m.nodes {
		if want[n.Key] {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (r memNodes) ListAll(dbc dbctx.Context) ([]*types.SkillNode, error) {
	if err := r.m.enter(dbc, "SkillNodeRepo.ListAll"); err != nil {
		return nil, err
	}
	defer r.m.mu.Unlock()
	out := make([]*types.SkillNode, 0, len(r.m.nodes))
	for _, n := range r.m.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortIndex != out[j].SortIndex {
			return out[i].SortIndex < out[j].SortIndex
		}
		return out[i].Key < out[j].Key
	})
	return out, nil
}

func (r memNodes) UpsertByKey(dbc dbctx.Context, row *types.SkillNode) error {
	if err := r.m.enter(dbc, "SkillNodeRepo.UpsertByKey"); err != nil {
		return err
	}
	defer r.m.mu.Unlock()
	for _, n := range r.m.nodes {
		if n.Key == row.Key {
			row.ID = n.ID
			cp := *row
			r.m.nodes[n.ID] = &cp
			return nil
		}
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	cp := *row
	r.m.nodes[row.ID] = &cp
	return nil
}

type memEdges struct{ m *Memory }

func (r memEdges) ListAll(dbc dbctx.Context) ([]*types.SkillEdge, error) {
	if err := r.m.enter(dbc, "SkillEdgeRepo.ListAll"); err != nil {
		return nil, err
	}
	defer r.m.mu.Unlock()
	return append([]*types.SkillEdge(nil), r.m.edges...), nil
}

func (r memEdges) CreateIgnoreDuplicates(dbc dbctx.Context, rows []*types.SkillEdge) (int, error) {
	if err := r.m.enter(dbc, "SkillEdgeRepo.CreateIgnoreDuplicates"); err != nil {
		return 0, err
	}
	defer r.m.mu.Unlock()
	created := 0
	for _, row := range rows {
		dup := false
		for _, e := range r.m.edges {
			if e.SourceNodeID == row.SourceNodeID && e.TargetNodeID == row.TargetNodeID {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		if row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
		r.m.edges = append(r.m.edges, row)
		created++
	}
	return created, nil
}

func (r memEdges) FullDeleteByTargetNodeIDs(dbc dbctx.Context, targetIDs []uuid.UUID) error {
	if err := r.m.enter(dbc, "SkillEdgeRepo.FullDeleteByTargetNodeIDs"); err != nil {
		return err
	}
	defer r.m.mu.Unlock()
	drop := map[uuid.UUID]bool{}
	for _, id := range targetIDs {
		drop[id] = true
	}
	kept := r.m.edges[:0]
	for _, e := range r.m.edges {
		if !drop[e.TargetNodeID] {
			kept = append(kept, e)
		}
	}
	r.m.edges = kept
	return nil
}

type memConditions struct{ m *Memory }

func (r memConditions) ListByNodeID(dbc dbctx.Context, nodeID uuid.UUID) ([]*types.UnlockCondition, error) {
	if err := r.m.enter(dbc, "UnlockConditionRepo.ListByNodeID"); err != nil {
		return nil, err
	}
	defer r.m.mu.Unlock()
	return append([]*types.UnlockCondition{}, r.m.conditions[nodeID]...), nil
}

func (r memConditions) ListByNodeIDs(dbc dbctx.Context, nodeIDs []uuid.UUID) ([]*types.UnlockCondition, error) {
	if err := r.m.enter(dbc, "UnlockConditionRepo.ListByNodeIDs"); err != nil {
		return nil, err
	}
	defer r.m.mu.Unlock()
	var out []*types.UnlockCondition
	for _, id := range nodeIDs {
		out = append(out, r.m.conditions[id]...)
	}
	return out, nil
}

func (r memConditions) ReplaceForNode(dbc dbctx.Context, nodeID uuid.UUID, rows []*types.UnlockCondition) error {
	if err := r.m.enter(dbc, "UnlockConditionRepo.ReplaceForNode"); err != nil {
		return err
	}
	defer r.m.mu.Unlock()
	for _, c := range rows {
		if c.ID == uuid.Nil {
			c.ID = uuid.New()
		}
		c.NodeID = nodeID
	}
	r.m.conditions[nodeID] = append([]*types.UnlockCondition(nil), rows...)
	return nil
}

type memUnlocks struct{ m *Memory }

func (r memUnlocks) GetByUserAndNode(dbc dbctx.Context, userID, nodeID uuid.UUID) (*types.UserUnlock, error) {
	if err := r.m.enter(dbc, "UserUnlockRepo.GetByUserAndNode"); err != nil {
		return nil, err
	}
	defer r.m.mu.Unlock()
	for _, u := range r.m.unlocks {
		if u.UserID == userID && u.NodeID == nodeID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r memUnlocks) ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.UserUnlock, error) {
	if err := r.m.enter(dbc, "UserUnlockRepo.ListByUser"); err != nil {
		return nil, err
	}
	defer r.m.mu.Unlock()
	out := []*types.UserUnlock{}
	for _, u := range r.m.unlocks {
		if u.UserID == userID {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r memUnlocks) CreateIfAbsent(dbc dbctx.Context, row *types.UserUnlock) (*types.UserUnlock, bool, error) {
	if err := r.m.enter(dbc, "UserUnlockRepo.CreateIfAbsent"); err != nil {
		return nil, false, err
	}
	defer r.m.mu.Unlock()
	for _, u := range r.m.unlocks {
		if u.UserID == row.UserID && u.NodeID == row.NodeID {
			cp := *u
			return &cp, false, nil
		}
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.UnlockedAt.IsZero() {
		row.UnlockedAt = time.Now().UTC()
	}
	row.CreatedAt = row.UnlockedAt
	cp := *row
	r.m.unlocks = append(r.m.unlocks, &cp)
	return row, true, nil
}

type memSessions struct{ m *Memory }

func (r memSessions) Create(dbc dbctx.Context, rows []*types.TrainingSession) ([]*types.TrainingSession, error) {
	if err := r.m.enter(dbc, "TrainingSessionRepo.Create"); err != nil {
		return nil, err
	}
	defer r.m.mu.Unlock()
	for _, s := range rows {
		if s.ID == uuid.Nil {
			s.ID = uuid.New()
		}
		cp := *s
		r.m.sessions = append(r.m.sessions, &cp)
	}
	return rows, nil
}

func (r memSessions) CountCompleted(dbc dbctx.Context, userID uuid.UUID) (int64, error) {
	if err := r.m.enter(dbc, "TrainingSessionRepo.CountCompleted"); err != nil {
		return 0, err
	}
	defer r.m.mu.Unlock()
	var n int64
	for _, s := range r.m.sessions {
		if s.UserID == userID && s.CompletedAt != nil {
			n++
		}
	}
	return n, nil
}

func (r memSessions) ListCompletedAt(dbc dbctx.Context, userID uuid.UUID) ([]time.Time, error) {
	if err := r.m.enter(dbc, "TrainingSessionRepo.ListCompletedAt"); err != nil {
		return nil, err
	}
	defer r.m.mu.Unlock()
	var out []time.Time
	for _, s := range r.m.sessions {
		if s.UserID == userID && s.CompletedAt != nil {
			out = append(out, *s.CompletedAt)
		}
	}
	return out, nil
}

type memGoals struct{ m *Memory }

func (r memGoals) CompleteForDay(dbc dbctx.Context, userID uuid.UUID, title string, at time.Time) (bool, error) {
	if err := r.m.enter(dbc, "DailyGoalRepo.CompleteForDay"); err != nil {
		return false, err
	}
	defer r.m.mu.Unlock()
	title = strings.TrimSpace(title)
	if userID == uuid.Nil || title == "" {
		return false, nil
	}
	at = at.UTC()
	day := at.Format("2006-01-02")
	for _, g := range r.m.goals {
		if g.UserID == userID && g.Title == title && g.GoalDate == day {
			return false, nil
		}
	}
	r.m.goals = append(r.m.goals, &types.DailyGoal{ID: uuid.New(), UserID: userID, Title: title, GoalDate: day, CompletedAt: &at})
	return true, nil
}

func (r memGoals) CountCompleted(dbc dbctx.Context, userID uuid.UUID) (int64, error) {
	if err := r.m.enter(dbc, "DailyGoalRepo.CountCompleted"); err != nil {
		return 0, err
	}
	defer r.m.mu.Unlock()
	var n int64
	for _, g := range r.m.goals {
		if g.UserID == userID && g.CompletedAt != nil {
			n++
		}
	}
	return n, nil
}

func (r memGoals) ListCompletedAt(dbc dbctx.Context, userID uuid.UUID) ([]time.Time, error) {
	if err := r.m.enter(dbc, "DailyGoalRepo.ListCompletedAt"); err != nil {
		return nil, err
	}
	defer r.m.mu.Unlock()
	var out []time.Time
	for _, g := range r.m.goals {
		if g.UserID == userID && g.CompletedAt != nil {
			out = append(out, *g.CompletedAt)
		}
	}
	return out, nil
}

type memAchievements struct{ m *Memory }

func (r memAchievements) Grant(dbc dbctx.Context, userID uuid.UUID, achievementKey string, at time.Time) (bool, error) {
	if err := r.m.enter(dbc, "UserAchievementRepo.Grant"); err != nil {
		return false, err
	}
	defer r.m.mu.Unlock()
	for _, a := range r.m.achievements {
		if a.UserID == userID && a.AchievementKey == achievementKey {
			return false, nil
		}
	}
	r.m.achievements = append(r.m.achievements, &types.UserAchievement{ID: uuid.New(), UserID: userID, AchievementKey: achievementKey, UnlockedAt: at.UTC()})
	return true, nil
}

func (r memAchievements) CountUnlocked(dbc dbctx.Context, userID uuid.UUID) (int64, error) {
	if err := r.m.enter(dbc, "UserAchievementRepo.CountUnlocked"); err != nil {
		return 0, err
	}
	defer r.m.mu.Unlock()
	var n int64
	for _, a := range r.m.achievements {
		if a.UserID == userID {
			n++
		}
	}
	return n, nil
}

type memRewards struct{ m *Memory }

func (r memRewards) Create(dbc dbctx.Context, row *types.RewardGrant) error {
	if err := r.m.enter(dbc, "RewardGrantRepo.Create"); err != nil {
		return err
	}
	defer r.m.mu.Unlock()
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	row.CreatedAt = time.Now().UTC()
	cp := *row
	r.m.rewards = append(r.m.rewards, &cp)
	return nil
}

func (r memRewards) SumByUser(dbc dbctx.Context, userID uuid.UUID) (int64, error) {
	if err := r.m.enter(dbc, "RewardGrantRepo.SumByUser"); err != nil {
		return 0, err
	}
	defer r.m.mu.Unlock()
	var total int64
	for _, row := range r.m.rewards {
		if row.UserID == userID {
			total += int64(row.Amount)
		}
	}
	return total, nil
}
