package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/table-reservation/internal/model"
)

// MemoryStore keeps everything in process memory.  It has the same
// method set and error contract as Store and is used by tests and by
// DB_DRIVER=memory.
//
// WithTableLock serialises callers per table with a mutex.  Writes made
// inside fn are applied immediately; there is no rollback.
type MemoryStore struct {
	mu           sync.RWMutex
	restaurants  map[uint64]model.Restaurant
	tables       map[uint64]model.Table
	reservations map[uint64]model.Reservation
	users        map[uint64]model.User
	nextID       uint64

	lockMu     sync.Mutex
	tableLocks map[uint64]*sync.Mutex
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		restaurants:  make(map[uint64]model.Restaurant),
		tables:       make(map[uint64]model.Table),
		reservations: make(map[uint64]model.Reservation),
		users:        make(map[uint64]model.User),
		tableLocks:   make(map[uint64]*sync.Mutex),
	}
}

type heldLocks struct{}

func (m *MemoryStore) Ping(context.Context) error { return nil }

// WithTableLock runs fn while holding the table's mutex.  A context that
// already holds the lock runs fn directly.
func (m *MemoryStore) WithTableLock(ctx context.Context, tableID uint64, fn func(ctx context.Context) error) error {
	held, _ := ctx.Value(heldLocks{}).(map[uint64]bool)
	if held[tableID] {
		return fn(ctx)
	}
	if _, err := m.GetTable(ctx, tableID); err != nil {
		return err
	}
	l := m.tableLock(tableID)
	l.Lock()
	defer l.Unlock()

	next := make(map[uint64]bool, len(held)+1)
	for id := range held {
		next[id] = true
	}
	next[tableID] = true
	return fn(context.WithValue(ctx, heldLocks{}, next))
}

func (m *MemoryStore) tableLock(id uint64) *sync.Mutex {
	m.lockMu.Lock()
	defer m.lockMu.Unlock()
	l, ok := m.tableLocks[id]
	if !ok {
		l = &sync.Mutex{}
		m.tableLocks[id] = l
	}
	return l
}

func (m *MemoryStore) id() uint64 {
	m.nextID++
	return m.nextID
}

func (m *MemoryStore) CreateRestaurant(_ context.Context, r *model.Restaurant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = m.id()
	m.restaurants[r.ID] = *r
	return nil
}

func (m *MemoryStore) ListRestaurants(context.Context) ([]model.Restaurant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Restaurant, 0, len(m.restaurants))
	for _, r := range m.restaurants {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) GetRestaurant(_ context.Context, id uint64) (model.Restaurant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.restaurants[id]
	if !ok {
		return model.Restaurant{}, ErrNotFound
	}
	return r, nil
}

func (m *MemoryStore) UpdateRestaurant(_ context.Context, r model.Restaurant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.restaurants[r.ID]; !ok {
		return ErrNotFound
	}
	m.restaurants[r.ID] = r
	return nil
}

func (m *MemoryStore) CreateTable(_ context.Context, t *model.Table) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.restaurants[t.RestaurantID]; !ok {
		return ErrNotFound
	}
	for _, existing := range m.tables {
		if existing.Number == t.Number {
			return ErrConflict
		}
	}
	t.ID = m.id()
	m.tables[t.ID] = *t
	return nil
}

func (m *MemoryStore) GetTable(_ context.Context, id uint64) (model.Table, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tables[id]
	if !ok {
		return model.Table{}, ErrNotFound
	}
	return t, nil
}

func (m *MemoryStore) ListTables(_ context.Context, restaurantID uint64) ([]model.Table, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Table, 0)
	for _, t := range m.tables {
		if t.RestaurantID == restaurantID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].NumberOfSeats == out[j].NumberOfSeats {
			return out[i].ID < out[j].ID
		}
		return out[i].NumberOfSeats < out[j].NumberOfSeats
	})
	return out, nil
}

func (m *MemoryStore) DeleteTable(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tables[id]; !ok {
		return ErrNotFound
	}
	for _, r := range m.reservations {
		if r.TableID == id {
			return ErrConflict
		}
	}
	delete(m.tables, id)
	return nil
}

func (m *MemoryStore) CreateReservation(_ context.Context, r *model.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tables[r.TableID]; !ok {
		return ErrNotFound
	}
	for _, existing := range m.reservations {
		if existing.TableID == r.TableID && existing.StartTime.Equal(r.StartTime) {
			return ErrConstraintViolation
		}
	}
	r.ID = m.id()
	m.reservations[r.ID] = *r
	return nil
}

func (m *MemoryStore) GetReservation(_ context.Context, id uint64) (model.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.reservations[id]
	if !ok {
		return model.Reservation{}, ErrNotFound
	}
	return r, nil
}

func (m *MemoryStore) ReservationsForTableOnDate(_ context.Context, tableID uint64, date time.Time) ([]model.Reservation, error) {
	day := dateOf(date)
	next := day.AddDate(0, 0, 1)
	return m.filterReservations(func(r model.Reservation) bool {
		return r.TableID == tableID && !r.StartTime.Before(day) && r.StartTime.Before(next)
	}, false), nil
}

func (m *MemoryStore) ReservationsWithin(_ context.Context, start, end time.Time) ([]model.Reservation, error) {
	return m.filterReservations(func(r model.Reservation) bool {
		return !r.StartTime.Before(start) && !r.EndTime.After(end)
	}, false), nil
}

func (m *MemoryStore) ListReservations(_ context.Context, restaurantID uint64, f ReservationFilter) ([]model.Reservation, error) {
	m.mu.RLock()
	owned := make(map[uint64]bool)
	for _, t := range m.tables {
		if t.RestaurantID == restaurantID {
			owned[t.ID] = true
		}
	}
	m.mu.RUnlock()

	from, to := dateOf(f.From), dateOf(f.To)
	return m.filterReservations(func(r model.Reservation) bool {
		switch {
		case !owned[r.TableID]:
			return false
		case f.TableID != 0 && r.TableID != f.TableID:
			return false
		case !f.From.IsZero() && r.StartTime.Before(from):
			return false
		case !f.To.IsZero() && !r.StartTime.Before(to):
			return false
		}
		return true
	}, f.Descending), nil
}

func (m *MemoryStore) DeleteReservation(_ context.Context, id uint64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reservations[id]; !ok {
		return 0, nil
	}
	delete(m.reservations, id)
	return 1, nil
}

func (m *MemoryStore) filterReservations(keep func(model.Reservation) bool, desc bool) []model.Reservation {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Reservation, 0)
	for _, r := range m.reservations {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if desc {
			a, b = b, a
		}
		if a.StartTime.Equal(b.StartTime) {
			return a.ID < b.ID
		}
		return a.StartTime.Before(b.StartTime)
	})
	return out
}

func (m *MemoryStore) CreateUser(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.ENumber == u.ENumber {
			return ErrConflict
		}
	}
	now := time.Now().UTC().Truncate(time.Second)
	u.ID = m.id()
	u.CreatedAt, u.UpdatedAt = now, now
	m.users[u.ID] = *u
	return nil
}

func (m *MemoryStore) GetUserByENumber(_ context.Context, eNumber int) (model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.ENumber == eNumber {
			return u, nil
		}
	}
	return model.User{}, ErrNotFound
}

func (m *MemoryStore) GetUserByID(_ context.Context, id uint64) (model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return model.User{}, ErrNotFound
	}
	return u, nil
}
