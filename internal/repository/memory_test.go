package repository

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/iliyamo/table-reservation/internal/model"
)

func seed(t *testing.T) (*MemoryStore, model.Restaurant, model.Table) {
	t.Helper()
	ctx := context.Background()
	m := NewMemoryStore()
	r := model.Restaurant{Name: "Bistro", OpenHour: 9, CloseHour: 22}
	if err := m.CreateRestaurant(ctx, &r); err != nil {
		t.Fatal(err)
	}
	tb := model.Table{RestaurantID: r.ID, NumberOfSeats: 4, Number: 1}
	if err := m.CreateTable(ctx, &tb); err != nil {
		t.Fatal(err)
	}
	return m, r, tb
}

func at(h, mm int) time.Time {
	return time.Date(2030, 5, 1, h, mm, 0, 0, time.UTC)
}

func TestMemoryStoreTableConstraints(t *testing.T) {
	ctx := context.Background()
	m, r, _ := seed(t)

	dup := model.Table{RestaurantID: r.ID, NumberOfSeats: 2, Number: 1}
	if err := m.CreateTable(ctx, &dup); !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate number: got %v, want ErrConflict", err)
	}
	orphan := model.Table{RestaurantID: 999, NumberOfSeats: 2, Number: 7}
	if err := m.CreateTable(ctx, &orphan); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown restaurant: got %v, want ErrNotFound", err)
	}
	if err := m.DeleteTable(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("delete missing: got %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreReservationUniqueness(t *testing.T) {
	ctx := context.Background()
	m, _, tb := seed(t)

	first := model.Reservation{MainGuestName: "A", NumberOfCustomers: 2, TableID: tb.ID, StartTime: at(12, 0), EndTime: at(12, 15)}
	if err := m.CreateReservation(ctx, &first); err != nil {
		t.Fatal(err)
	}
	second := first
	second.ID = 0
	if err := m.CreateReservation(ctx, &second); !errors.Is(err, ErrConstraintViolation) {
		t.Fatalf("got %v, want ErrConstraintViolation", err)
	}
	if err := m.DeleteTable(ctx, tb.ID); !errors.Is(err, ErrConflict) {
		t.Fatalf("delete referenced table: got %v, want ErrConflict", err)
	}

	n, err := m.DeleteReservation(ctx, first.ID)
	if err != nil || n != 1 {
		t.Fatalf("delete: n=%d err=%v", n, err)
	}
	n, _ = m.DeleteReservation(ctx, first.ID)
	if n != 0 {
		t.Fatalf("second delete: n=%d, want 0", n)
	}
}

func TestMemoryStoreQueries(t *testing.T) {
	ctx := context.Background()
	m, r, tb := seed(t)
	other := model.Table{RestaurantID: r.ID, NumberOfSeats: 6, Number: 2}
	if err := m.CreateTable(ctx, &other); err != nil {
		t.Fatal(err)
	}
	next := time.Date(2030, 5, 2, 12, 0, 0, 0, time.UTC)
	for _, res := range []model.Reservation{
		{MainGuestName: "a", NumberOfCustomers: 2, TableID: tb.ID, StartTime: at(12, 0), EndTime: at(12, 15)},
		{MainGuestName: "b", NumberOfCustomers: 2, TableID: tb.ID, StartTime: at(13, 0), EndTime: at(13, 15)},
		{MainGuestName: "c", NumberOfCustomers: 5, TableID: other.ID, StartTime: at(12, 0), EndTime: at(12, 15)},
		{MainGuestName: "d", NumberOfCustomers: 2, TableID: tb.ID, StartTime: next, EndTime: next.Add(15 * time.Minute)},
	} {
		res := res
		if err := m.CreateReservation(ctx, &res); err != nil {
			t.Fatal(err)
		}
	}

	day, _ := m.ReservationsForTableOnDate(ctx, tb.ID, at(0, 0))
	if len(day) != 2 || day[0].MainGuestName != "a" || day[1].MainGuestName != "b" {
		t.Fatalf("on date: %+v", day)
	}

	within, _ := m.ReservationsWithin(ctx, at(12, 0), at(12, 15))
	if len(within) != 2 {
		t.Fatalf("within: got %d, want 2 (both tables)", len(within))
	}

	all, _ := m.ListReservations(ctx, r.ID, ReservationFilter{Descending: true})
	if len(all) != 4 || all[0].MainGuestName != "d" {
		t.Fatalf("list desc: %+v", all)
	}
	filtered, _ := m.ListReservations(ctx, r.ID, ReservationFilter{From: at(0, 0), To: next, TableID: tb.ID})
	if len(filtered) != 2 {
		t.Fatalf("filtered: got %d, want 2", len(filtered))
	}

	tables, _ := m.ListTables(ctx, r.ID)
	if len(tables) != 2 || tables[0].NumberOfSeats != 4 {
		t.Fatalf("tables not ordered by seats: %+v", tables)
	}
}

func TestMemoryStoreTableLockSerialises(t *testing.T) {
	ctx := context.Background()
	m, _, tb := seed(t)

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.WithTableLock(ctx, tb.ID, func(ctx context.Context) error {
				n := atomic.AddInt32(&inside, 1)
				for {
					cur := atomic.LoadInt32(&maxInside)
					if n <= cur || atomic.CompareAndSwapInt32(&maxInside, cur, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&inside, -1)
				return nil
			})
		}()
	}
	wg.Wait()
	if maxInside != 1 {
		t.Fatalf("max concurrent holders = %d, want 1", maxInside)
	}
}

func TestMemoryStoreTableLockReentrant(t *testing.T) {
	ctx := context.Background()
	m, _, tb := seed(t)

	err := m.WithTableLock(ctx, tb.ID, func(ctx context.Context) error {
		return m.WithTableLock(ctx, tb.ID, func(context.Context) error { return nil })
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := m.WithTableLock(ctx, 999, func(context.Context) error { return nil }); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown table: got %v, want ErrNotFound", err)
	}
}
