package queueservice

import (
	"context"
	"slices"
	"strings"
	"sync"

	competitiondb "github.com/42core-team/arena/app/modules/competition/infrastructure/repositories"
	matchservice "github.com/42core-team/arena/app/modules/match/application"
	matchdb "github.com/42core-team/arena/app/modules/match/infrastructure/repositories"
	sharedtypes "github.com/42core-team/arena/app/shared/types"
	"github.com/uptrace/bun"
)

// FakeWorld keeps events, teams and queue matches in memory and implements
// every store the queue service reads or writes.
type FakeWorld struct {
	mu    sync.Mutex
	trace []string

	events  map[sharedtypes.EventID]*competitiondb.Event
	teams   []*competitiondb.Team
	matches []*matchdb.Match
	history map[sharedtypes.TeamID][]matchservice.RatingPoint

	// Errs makes the named method fail.
	Errs map[string]error
	// ListQueuedTeamsFunc overrides ListQueuedTeams.
	ListQueuedTeamsFunc func(ctx context.Context, eventID sharedtypes.EventID) ([]*competitiondb.Team, error)
	// StartMatchFunc overrides StartMatch.
	StartMatchFunc func(ctx context.Context, id sharedtypes.MatchID) error
}

func NewFakeWorld() *FakeWorld {
	return &FakeWorld{
		trace:   []string{},
		events:  map[sharedtypes.EventID]*competitiondb.Event{},
		history: map[sharedtypes.TeamID][]matchservice.RatingPoint{},
		Errs:    map[string]error{},
	}
}

func (w *FakeWorld) record(step string) error {
	w.trace = append(w.trace, step)
	return w.Errs[step]
}

func (w *FakeWorld) Trace() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.trace)
}

func (w *FakeWorld) AddEvent(state sharedtypes.EventState) *competitiondb.Event {
	w.mu.Lock()
	defer w.mu.Unlock()
	e := &competitiondb.Event{ID: sharedtypes.NewEventID(), Name: "event", State: state}
	w.events[e.ID] = e
	return e
}

// AddQueuedTeams adds n teams that are already waiting in the queue.
func (w *FakeWorld) AddQueuedTeams(eventID sharedtypes.EventID, n int) []sharedtypes.TeamID {
	w.mu.Lock()
	defer w.mu.Unlock()
	ids := make([]sharedtypes.TeamID, n)
	for i := range ids {
		t := &competitiondb.Team{ID: sharedtypes.NewTeamID(), EventID: eventID, QueueScore: 1000, InQueue: true}
		w.teams = append(w.teams, t)
		ids[i] = t.ID
	}
	return ids
}

func (w *FakeWorld) Team(id sharedtypes.TeamID) competitiondb.Team {
	w.mu.Lock()
	defer w.mu.Unlock()
	return *w.team(id)
}

func (w *FakeWorld) team(id sharedtypes.TeamID) *competitiondb.Team {
	for _, t := range w.teams {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// QueueMatches returns every queue match created so far.
func (w *FakeWorld) QueueMatches() []*matchdb.Match {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.matches)
}

func (w *FakeWorld) SetHistory(id sharedtypes.TeamID, points []matchservice.RatingPoint) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.history[id] = points
}

// CompetitionStore

func (w *FakeWorld) GetEvent(_ context.Context, _ bun.IDB, id sharedtypes.EventID) (*competitiondb.Event, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.record("GetEvent"); err != nil {
		return nil, err
	}
	e, ok := w.events[id]
	if !ok {
		return nil, competitiondb.ErrEventNotFound
	}
	cp := *e
	return &cp, nil
}

func (w *FakeWorld) GetTeam(_ context.Context, _ bun.IDB, id sharedtypes.TeamID) (*competitiondb.Team, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.record("GetTeam"); err != nil {
		return nil, err
	}
	t := w.team(id)
	if t == nil {
		return nil, competitiondb.ErrTeamNotFound
	}
	cp := *t
	return &cp, nil
}

func (w *FakeWorld) ListEventsInStates(_ context.Context, _ bun.IDB, states []sharedtypes.EventState) ([]*competitiondb.Event, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.record("ListEventsInStates"); err != nil {
		return nil, err
	}
	var out []*competitiondb.Event
	for _, e := range w.events {
		if slices.Contains(states, e.State) {
			cp := *e
			out = append(out, &cp)
		}
	}
	slices.SortFunc(out, func(a, b *competitiondb.Event) int {
		return strings.Compare(a.ID.String(), b.ID.String())
	})
	return out, nil
}

func (w *FakeWorld) ListQueuedTeams(ctx context.Context, _ bun.IDB, eventID sharedtypes.EventID) ([]*competitiondb.Team, error) {
	if w.ListQueuedTeamsFunc != nil {
		return w.ListQueuedTeamsFunc(ctx, eventID)
	}
	w.mu.Lock()
	err := w.record("ListQueuedTeams")
	w.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return w.listQueued(eventID), nil
}

func (w *FakeWorld) listQueued(eventID sharedtypes.EventID) []*competitiondb.Team {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []*competitiondb.Team
	for _, t := range w.teams {
		if t.EventID == eventID && t.InQueue {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out
}

func (w *FakeWorld) SetInQueue(_ context.Context, _ bun.IDB, id sharedtypes.TeamID, inQueue bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.record("SetInQueue"); err != nil {
		return err
	}
	t := w.team(id)
	if t == nil {
		return competitiondb.ErrTeamNotFound
	}
	t.InQueue = inQueue
	return nil
}

// ClaimQueuedTeams is all or nothing, like the real claim inside a
// transaction that rolls back when fewer rows than asked were updated.
func (w *FakeWorld) ClaimQueuedTeams(_ context.Context, _ bun.IDB, ids []sharedtypes.TeamID) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.record("ClaimQueuedTeams"); err != nil {
		return 0, err
	}
	n := 0
	for _, id := range ids {
		if t := w.team(id); t != nil && t.InQueue {
			n++
		}
	}
	if n == len(ids) {
		for _, id := range ids {
			w.team(id).InQueue = false
		}
	}
	return n, nil
}

// MatchReader

func (w *FakeWorld) HasOpenMatch(_ context.Context, _ bun.IDB, teamID sharedtypes.TeamID, phase sharedtypes.MatchPhase) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.record("HasOpenMatch"); err != nil {
		return false, err
	}
	for _, m := range w.matches {
		if m.Phase == phase && m.HasTeam(teamID) && m.State != sharedtypes.MatchStateFinished {
			return true, nil
		}
	}
	return false, nil
}

// MatchScheduler

func (w *FakeWorld) CreateMatchInTx(_ context.Context, _ bun.IDB, req matchservice.CreateMatchRequest) (*matchservice.MatchView, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.record("CreateMatchInTx"); err != nil {
		return nil, err
	}
	m := &matchdb.Match{
		ID:      sharedtypes.NewMatchID(),
		EventID: req.EventID,
		State:   sharedtypes.MatchStatePlanned,
		Phase:   req.Phase,
	}
	for i, id := range req.TeamIDs {
		m.Teams = append(m.Teams, &matchdb.MatchTeam{MatchID: m.ID, TeamID: id, Position: i})
	}
	w.matches = append(w.matches, m)
	return &matchservice.MatchView{ID: m.ID, EventID: m.EventID, State: m.State, Phase: m.Phase}, nil
}

func (w *FakeWorld) StartMatch(ctx context.Context, id sharedtypes.MatchID) error {
	if w.StartMatchFunc != nil {
		return w.StartMatchFunc(ctx, id)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.record("StartMatch"); err != nil {
		return err
	}
	for _, m := range w.matches {
		if m.ID == id {
			m.State = sharedtypes.MatchStateInProgress
			return nil
		}
	}
	return matchdb.ErrNotFound
}

func (w *FakeWorld) QueueRatingHistory(_ context.Context, teamID sharedtypes.TeamID) ([]matchservice.RatingPoint, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.record("QueueRatingHistory"); err != nil {
		return nil, err
	}
	return w.history[teamID], nil
}

// FakeLocker is a process-local lock. Busy makes every attempt fail to acquire.
type FakeLocker struct {
	mu       sync.Mutex
	Busy     bool
	Err      error
	acquired int
}

func (l *FakeLocker) TryAcquire(_ context.Context, _ int64) (bool, func(), error) {
	if l.Err != nil {
		return false, nil, l.Err
	}
	if l.Busy || !l.mu.TryLock() {
		return false, nil, nil
	}
	l.acquired++
	return true, l.mu.Unlock, nil
}

var (
	_ CompetitionStore = (*FakeWorld)(nil)
	_ MatchReader      = (*FakeWorld)(nil)
	_ MatchScheduler   = (*FakeWorld)(nil)
	_ Locker           = (*FakeLocker)(nil)
)
