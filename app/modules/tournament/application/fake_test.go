package tournamentservice

import (
	"cmp"
	"context"
	"slices"
	"sync"

	competitiondb "github.com/42core-team/arena/app/modules/competition/infrastructure/repositories"
	matchservice "github.com/42core-team/arena/app/modules/match/application"
	matchdb "github.com/42core-team/arena/app/modules/match/infrastructure/repositories"
	"github.com/42core-team/arena/app/shared/apperrors"
	sharedtypes "github.com/42core-team/arena/app/shared/types"
	"github.com/uptrace/bun"
)

// ------------------------
// In-memory world
// ------------------------

// FakeWorld keeps events, teams and matches in memory. It implements every
// collaborator the tournament service needs, so progression can be driven
// round by round.
type FakeWorld struct {
	mu    sync.Mutex
	trace []string

	events  map[sharedtypes.EventID]*competitiondb.Event
	teams   []*competitiondb.Team
	matches []*matchdb.Match

	// Errs makes the named method fail.
	Errs map[string]error
	// StartMatchFunc overrides StartMatch.
	StartMatchFunc func(ctx context.Context, id sharedtypes.MatchID) error
}

func NewFakeWorld() *FakeWorld {
	return &FakeWorld{
		trace:  []string{},
		events: map[sharedtypes.EventID]*competitiondb.Event{},
		Errs:   map[string]error{},
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

func (w *FakeWorld) AddEvent(state sharedtypes.EventState, round int) *competitiondb.Event {
	w.mu.Lock()
	defer w.mu.Unlock()
	e := &competitiondb.Event{ID: sharedtypes.NewEventID(), Name: "event", State: state, CurrentRound: round}
	w.events[e.ID] = e
	return e
}

func (w *FakeWorld) AddTeams(eventID sharedtypes.EventID, names ...string) []*competitiondb.Team {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []*competitiondb.Team
	for _, n := range names {
		t := &competitiondb.Team{ID: sharedtypes.NewTeamID(), EventID: eventID, Name: n, QueueScore: 1000}
		w.teams = append(w.teams, t)
		out = append(out, t)
	}
	return out
}

func (w *FakeWorld) Event(id sharedtypes.EventID) competitiondb.Event {
	w.mu.Lock()
	defer w.mu.Unlock()
	return *w.events[id]
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

// Matches returns the matches of a phase and round in creation order.
func (w *FakeWorld) Matches(eventID sharedtypes.EventID, phase sharedtypes.MatchPhase, round int) []*matchdb.Match {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []*matchdb.Match
	for _, m := range w.matches {
		if m.EventID == eventID && m.Phase == phase && m.Round == round {
			out = append(out, m)
		}
	}
	return out
}

// Win finishes a match the way the match state machine does for tournament
// phases: the winner gains one point.
func (w *FakeWorld) Win(matchID sharedtypes.MatchID, winner sharedtypes.TeamID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, m := range w.matches {
		if m.ID == matchID {
			m.State = sharedtypes.MatchStateFinished
			m.WinnerID = &winner
			w.team(winner).Score++
			return
		}
	}
	panic("unknown match " + matchID.String())
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

func (w *FakeWorld) LockEvent(_ context.Context, _ bun.IDB, id sharedtypes.EventID) (*competitiondb.Event, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.record("LockEvent"); err != nil {
		return nil, err
	}
	e, ok := w.events[id]
	if !ok {
		return nil, competitiondb.ErrEventNotFound
	}
	cp := *e
	return &cp, nil
}

func (w *FakeWorld) SetEventState(_ context.Context, _ bun.IDB, id sharedtypes.EventID, state sharedtypes.EventState) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.record("SetEventState"); err != nil {
		return err
	}
	w.events[id].State = state
	return nil
}

func (w *FakeWorld) SetCurrentRound(_ context.Context, _ bun.IDB, id sharedtypes.EventID, round int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.record("SetCurrentRound"); err != nil {
		return err
	}
	w.events[id].CurrentRound = round
	return nil
}

func (w *FakeWorld) ListTeamsForEvent(_ context.Context, _ bun.IDB, eventID sharedtypes.EventID) ([]*competitiondb.Team, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.record("ListTeamsForEvent"); err != nil {
		return nil, err
	}
	return w.eventTeams(eventID), nil
}

func (w *FakeWorld) ListRankedTeams(_ context.Context, _ bun.IDB, eventID sharedtypes.EventID) ([]*competitiondb.Team, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.record("ListRankedTeams"); err != nil {
		return nil, err
	}
	teams := w.eventTeams(eventID)
	slices.SortStableFunc(teams, func(a, b *competitiondb.Team) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(b.BuchholzPoints, a.BuchholzPoints)
	})
	return teams, nil
}

func (w *FakeWorld) CountTeamsForEvent(_ context.Context, _ bun.IDB, eventID sharedtypes.EventID) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.record("CountTeamsForEvent"); err != nil {
		return 0, err
	}
	return len(w.eventTeams(eventID)), nil
}

func (w *FakeWorld) SetHadBye(_ context.Context, _ bun.IDB, id sharedtypes.TeamID, hadBye bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.record("SetHadBye"); err != nil {
		return err
	}
	w.team(id).HadBye = hadBye
	return nil
}

func (w *FakeWorld) SetBuchholzPoints(_ context.Context, _ bun.IDB, id sharedtypes.TeamID, points int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.record("SetBuchholzPoints"); err != nil {
		return err
	}
	w.team(id).BuchholzPoints = points
	return nil
}

func (w *FakeWorld) eventTeams(eventID sharedtypes.EventID) []*competitiondb.Team {
	var out []*competitiondb.Team
	for _, t := range w.teams {
		if t.EventID == eventID {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out
}

// MatchReader

func (w *FakeWorld) List(_ context.Context, _ bun.IDB, f matchdb.Filter) ([]*matchdb.Match, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.record("List"); err != nil {
		return nil, err
	}
	var out []*matchdb.Match
	for _, m := range w.matches {
		if filterMatch(m, f) {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (w *FakeWorld) Count(_ context.Context, _ bun.IDB, f matchdb.Filter) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.record("Count"); err != nil {
		return 0, err
	}
	n := 0
	for _, m := range w.matches {
		if filterMatch(m, f) {
			n++
		}
	}
	return n, nil
}

func (w *FakeWorld) CountUnfinished(_ context.Context, _ bun.IDB, eventID sharedtypes.EventID, phase sharedtypes.MatchPhase, round int) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.record("CountUnfinished"); err != nil {
		return 0, err
	}
	n := 0
	for _, m := range w.matches {
		if m.EventID == eventID && m.Phase == phase && m.Round == round && m.State != sharedtypes.MatchStateFinished {
			n++
		}
	}
	return n, nil
}

func filterMatch(m *matchdb.Match, f matchdb.Filter) bool {
	if f.EventID != nil && m.EventID != *f.EventID {
		return false
	}
	if f.Phase != nil && m.Phase != *f.Phase {
		return false
	}
	if f.Round != nil && m.Round != *f.Round {
		return false
	}
	if f.State != nil && m.State != *f.State {
		return false
	}
	if f.TeamID != nil && !m.HasTeam(*f.TeamID) {
		return false
	}
	return true
}

// MatchScheduler

func (w *FakeWorld) CreateMatchInTx(_ context.Context, _ bun.IDB, req matchservice.CreateMatchRequest) (*matchservice.MatchView, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.record("CreateMatchInTx"); err != nil {
		return nil, err
	}
	if len(req.TeamIDs) != 2 || req.TeamIDs[0] == req.TeamIDs[1] {
		return nil, apperrors.Validation("CreateMatch", "bad teams %v", req.TeamIDs)
	}
	m := &matchdb.Match{
		ID:      sharedtypes.NewMatchID(),
		EventID: req.EventID,
		State:   sharedtypes.MatchStatePlanned,
		Phase:   req.Phase,
		Round:   req.Round,
		Ordinal: req.Ordinal,
	}
	for i, id := range req.TeamIDs {
		m.Teams = append(m.Teams, &matchdb.MatchTeam{MatchID: m.ID, TeamID: id, Position: i})
	}
	w.matches = append(w.matches, m)
	return &matchservice.MatchView{ID: m.ID, EventID: m.EventID, State: m.State, Phase: m.Phase, Round: m.Round}, nil
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

var (
	_ CompetitionStore = (*FakeWorld)(nil)
	_ MatchReader      = (*FakeWorld)(nil)
	_ MatchScheduler   = (*FakeWorld)(nil)
)
