package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	dbcontracts "zenhabit/contracts/db"
	"zenhabit/pkg/streak"
)

type fakeHabits struct {
	mu     sync.Mutex
	nextID int
	rows   map[int]*dbcontracts.Habit
}

func newFakeHabits() *fakeHabits {
	return &fakeHabits{rows: map[int]*dbcontracts.Habit{}}
}

func (f *fakeHabits) add(h dbcontracts.Habit) *dbcontracts.Habit {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	h.ID = f.nextID
	if h.Completions == nil {
		h.Completions = streak.Ledger{}
	}
	f.rows[h.ID] = &h
	return &h
}

func (f *fakeHabits) Insert(_ context.Context, h *dbcontracts.Habit) (int, error) {
	stored := f.add(*h)
	h.ID = stored.ID
	return h.ID, nil
}

func (f *fakeHabits) ListByUser(_ context.Context, userID int) ([]dbcontracts.Habit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []dbcontracts.Habit
	for _, h := range f.rows {
		if h.UserID == userID {
			cp := *h
			cp.Completions = streak.Ledger{}
			for k, v := range h.Completions {
				cp.Completions[k] = v
			}
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeHabits) FindByID(ctx context.Context, userID, habitID int) (*dbcontracts.Habit, error) {
	list, _ := f.ListByUser(ctx, userID)
	for i := range list {
		if list[i].ID == habitID {
			return &list[i], nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeHabits) SetActive(_ context.Context, userID, habitID int, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	h, ok := f.rows[habitID]
	if !ok || h.UserID != userID {
		return pgx.ErrNoRows
	}
	h.IsActive = active
	return nil
}

func (f *fakeHabits) Delete(_ context.Context, userID, habitID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	h, ok := f.rows[habitID]
	if !ok || h.UserID != userID {
		return pgx.ErrNoRows
	}
	delete(f.rows, habitID)
	return nil
}

func (f *fakeHabits) ToggleCompletion(_ context.Context, habitID int, date string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h := f.rows[habitID]
	done, seen := h.Completions[date]
	next := !seen || !done
	h.Completions[date] = next
	return next, nil
}

func (f *fakeHabits) AnyCompletedOn(_ context.Context, userID int, date string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, h := range f.rows {
		if h.UserID == userID && h.Completions[date] {
			return true, nil
		}
	}
	return false, nil
}

type fakeMilestones struct {
	mu     sync.Mutex
	nextID int
	rows   []dbcontracts.Milestone
}

func (f *fakeMilestones) Insert(_ context.Context, m *dbcontracts.Milestone) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	m.ID = f.nextID
	f.rows = append(f.rows, *m)
	return m.ID, nil
}

func (f *fakeMilestones) ListByUser(_ context.Context, userID int) ([]dbcontracts.Milestone, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []dbcontracts.Milestone
	for _, m := range f.rows {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (f *fakeMilestones) ExistsOn(ctx context.Context, userID int, date string) (bool, error) {
	list, _ := f.ListByUser(ctx, userID)
	for _, m := range list {
		if m.Date == date {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeMilestones) Delete(_ context.Context, userID, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, m := range f.rows {
		if m.ID == id && m.UserID == userID {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			return nil
		}
	}
	return pgx.ErrNoRows
}

type fakeInsights struct {
	latest  map[int]*dbcontracts.Insight
	cleared []int
}

func (f *fakeInsights) Latest(_ context.Context, userID int) (*dbcontracts.Insight, error) {
	if in, ok := f.latest[userID]; ok {
		return in, nil
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeInsights) DeleteByUser(_ context.Context, userID int) error {
	f.cleared = append(f.cleared, userID)
	delete(f.latest, userID)
	return nil
}

type published struct {
	routingKey string
	payload    any
}

type fakePublisher struct {
	err    error
	events []published
}

func (f *fakePublisher) Publish(_ context.Context, routingKey string, payload any) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, published{routingKey, payload})
	return nil
}

type fakeCache struct {
	data        map[int]*Dashboard
	day         map[int]string
	invalidated int
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: map[int]*Dashboard{}, day: map[int]string{}}
}

func (f *fakeCache) Get(_ context.Context, userID int, day string, out any) bool {
	d, ok := f.data[userID]
	if !ok || f.day[userID] != day {
		return false
	}
	*out.(*Dashboard) = *d
	return true
}

func (f *fakeCache) Set(_ context.Context, userID int, day string, v any) {
	f.data[userID] = v.(*Dashboard)
	f.day[userID] = day
}

func (f *fakeCache) Invalidate(_ context.Context, userID int) {
	f.invalidated++
	delete(f.data, userID)
}

type fakeUsers struct {
	byEmail map[string]*dbcontracts.User
	nextID  int
}

func (f *fakeUsers) CreateUser(_ context.Context, u *dbcontracts.User) error {
	f.nextID++
	u.ID = f.nextID
	u.CreatedAt = time.Now()
	f.byEmail[u.Email] = u
	return nil
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (*dbcontracts.User, error) {
	if u, ok := f.byEmail[email]; ok {
		return u, nil
	}
	return nil, pgx.ErrNoRows
}
