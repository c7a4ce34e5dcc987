package service

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/shiftproof/shiftproof/internal/services/attendance/domain/ledger"
	"github.com/shiftproof/shiftproof/internal/services/attendance/domain/presence"
	"github.com/shiftproof/shiftproof/internal/services/attendance/domain/session"
	"github.com/shiftproof/shiftproof/internal/services/attendance/storage"
)

type fakeEventStore struct {
	mu     sync.Mutex
	events []ledger.Event
	err    error
}

func (f *fakeEventStore) scoped(query storage.EventQuery) []ledger.Event {
	var out []ledger.Event
	for _, evt := range f.events {
		if evt.EmployeeID != query.EmployeeID {
			continue
		}
		if query.ProjectID != "" && evt.ProjectID != query.ProjectID {
			continue
		}
		out = append(out, evt)
	}
	ledger.Sort(out)
	return out
}

func (f *fakeEventStore) AppendEvent(_ context.Context, evt ledger.Event) (ledger.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return ledger.Event{}, f.err
	}
	evt.Seq = int64(len(f.events) + 1)
	f.events = append(f.events, evt)
	return evt, nil
}

func (f *fakeEventStore) LatestEvent(_ context.Context, query storage.EventQuery) (ledger.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return ledger.Event{}, f.err
	}
	latest := ledger.Latest(f.scoped(query))
	if latest == nil {
		return ledger.Event{}, storage.ErrNotFound
	}
	return *latest, nil
}

func (f *fakeEventStore) LatestEventBefore(_ context.Context, query storage.EventQuery, t time.Time) (ledger.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return ledger.Event{}, f.err
	}
	var before []ledger.Event
	for _, evt := range f.scoped(query) {
		if evt.OccurredAt.Before(t) {
			before = append(before, evt)
		}
	}
	latest := ledger.Latest(before)
	if latest == nil {
		return ledger.Event{}, storage.ErrNotFound
	}
	return *latest, nil
}

func (f *fakeEventStore) ListEventsBetween(_ context.Context, query storage.EventQuery, from, until time.Time) ([]ledger.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var out []ledger.Event
	for _, evt := range f.scoped(query) {
		if !evt.OccurredAt.Before(from) && evt.OccurredAt.Before(until) {
			out = append(out, evt)
		}
	}
	return out, nil
}

func (f *fakeEventStore) ListEventsPage(_ context.Context, req storage.ListEventsPageRequest) (storage.ListEventsPageResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return storage.ListEventsPageResult{}, f.err
	}
	var out []ledger.Event
	for i := len(f.events) - 1; i >= 0; i-- {
		evt := f.events[i]
		if evt.EmployeeID != req.EmployeeID || (req.BeforeSeq > 0 && evt.Seq >= req.BeforeSeq) {
			continue
		}
		out = append(out, evt)
	}
	result := storage.ListEventsPageResult{Events: out}
	if len(out) > req.PageSize {
		result.Events = out[:req.PageSize]
		result.NextBeforeSeq = result.Events[req.PageSize-1].Seq
	}
	return result, nil
}

type fakeChallengeStore struct {
	mu         sync.Mutex
	challenges map[string]presence.Challenge
	createErr  error
}

func newFakeChallengeStore() *fakeChallengeStore {
	return &fakeChallengeStore{challenges: map[string]presence.Challenge{}}
}

func keyOf(c presence.Challenge) storage.ChallengeKey {
	return storage.ChallengeKey{EmployeeID: c.EmployeeID, ProjectID: c.ProjectID, CalendarDate: c.CalendarDate, Slot: c.Slot}
}

func (f *fakeChallengeStore) CreateChallenge(_ context.Context, c presence.Challenge) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	for _, existing := range f.challenges {
		if keyOf(existing) == keyOf(c) {
			return storage.ErrAlreadyExists
		}
	}
	f.challenges[c.ID] = c
	return nil
}

func (f *fakeChallengeStore) GetChallenge(_ context.Context, challengeID string) (presence.Challenge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.challenges[challengeID]
	if !ok {
		return presence.Challenge{}, storage.ErrNotFound
	}
	return c, nil
}

func (f *fakeChallengeStore) GetChallengeByKey(_ context.Context, key storage.ChallengeKey) (presence.Challenge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.challenges {
		if keyOf(c) == key {
			return c, nil
		}
	}
	return presence.Challenge{}, storage.ErrNotFound
}

func (f *fakeChallengeStore) ListChallenges(_ context.Context, employeeID, projectID string, date presence.Date) ([]presence.Challenge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []presence.Challenge
	for _, c := range f.challenges {
		if c.EmployeeID == employeeID && c.ProjectID == projectID && c.CalendarDate == date {
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b presence.Challenge) int { return int(a.Slot) - int(b.Slot) })
	return out, nil
}

func (f *fakeChallengeStore) ReplaceFireTime(_ context.Context, key storage.ChallengeKey, firedAt time.Time) (presence.Challenge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, c := range f.challenges {
		if keyOf(c) != key {
			continue
		}
		if c.Responded {
			return presence.Challenge{}, storage.ErrAlreadyResponded
		}
		c.FiredAt = firedAt
		f.challenges[id] = c
		return c, nil
	}
	return presence.Challenge{}, storage.ErrNotFound
}

func (f *fakeChallengeStore) MarkResponded(_ context.Context, challengeID string, respondedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.challenges[challengeID]
	if !ok {
		return storage.ErrNotFound
	}
	if c.Responded {
		return storage.ErrAlreadyResponded
	}
	c.Responded = true
	c.RespondedAt = &respondedAt
	f.challenges[challengeID] = c
	return nil
}

type fakeRegistry struct {
	mu       sync.Mutex
	projects map[string]storage.Project
	members  map[[2]string]bool
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{projects: map[string]storage.Project{}, members: map[[2]string]bool{}}
}

func (f *fakeRegistry) GetProject(_ context.Context, projectID string) (storage.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.projects[projectID]
	if !ok {
		return storage.Project{}, storage.ErrNotFound
	}
	return p, nil
}

func (f *fakeRegistry) PutProject(_ context.Context, project storage.Project) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.projects[project.ID] = project
	return nil
}

func (f *fakeRegistry) PutMember(_ context.Context, member storage.Member) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.members[[2]string{member.ProjectID, member.EmployeeID}] = member.Active
	return nil
}

func (f *fakeRegistry) IsActiveMember(_ context.Context, projectID, employeeID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.members[[2]string{projectID, employeeID}], nil
}

func (f *fakeRegistry) ListActiveMembers(_ context.Context, projectID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for key, active := range f.members {
		if key[0] == projectID && active {
			out = append(out, key[1])
		}
	}
	slices.Sort(out)
	return out, nil
}

type recordingMetrics struct {
	mu          sync.Mutex
	anomalies   map[session.AnomalyKind]int
	challenges  map[ChallengeOutcome]int
	adjudicated []presence.Outcome
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{anomalies: map[session.AnomalyKind]int{}, challenges: map[ChallengeOutcome]int{}}
}

func (m *recordingMetrics) ObserveAnomalies(counts map[session.AnomalyKind]int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for kind, n := range counts {
		m.anomalies[kind] += n
	}
}

func (m *recordingMetrics) ObserveChallenge(_ presence.Slot, outcome ChallengeOutcome) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.challenges[outcome]++
}

func (m *recordingMetrics) ObserveAdjudication(outcome presence.Outcome) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.adjudicated = append(m.adjudicated, outcome)
}
