package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/iliyamo/table-reservation/internal/model"
)

var (
	tableRow       = []string{"id", "restaurant_id", "number_of_seats", "number"}
	reservationRow = []string{"id", "main_guest_name", "number_of_customers", "table_id", "start_time", "end_time"}

	lockQuery = regexp.QuoteMeta(`SELECT id, restaurant_id, number_of_seats, number FROM tables WHERE id = ? FOR UPDATE`)
	tableGet  = regexp.QuoteMeta(`SELECT id, restaurant_id, number_of_seats, number FROM tables WHERE id = ?`) + `$`
	insertRes = regexp.QuoteMeta(`INSERT INTO reservations (main_guest_name, number_of_customers, table_id, start_time, end_time) VALUES (?, ?, ?, ?, ?)`)
)

// newMockStore returns a Store over a single sqlmock connection.  With
// one connection, a statement issued outside the locking transaction
// blocks until its context expires instead of silently succeeding.
func newMockStore(t *testing.T, driver string) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	raw.SetMaxOpenConns(1)
	db := sqlx.NewDb(raw, driver)
	t.Cleanup(func() {
		_ = db.Close()
	})
	return NewStore(db), mock
}

func withDeadline(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func sampleReservation() model.Reservation {
	return model.Reservation{
		MainGuestName:     "Ada",
		NumberOfCustomers: 2,
		TableID:           3,
		StartTime:         time.Date(2030, 5, 2, 10, 0, 0, 0, time.UTC),
		EndTime:           time.Date(2030, 5, 2, 10, 15, 0, 0, time.UTC),
	}
}

func expectLock(mock sqlmock.Sqlmock, tableID uint64) {
	mock.ExpectQuery(lockQuery).WithArgs(tableID).
		WillReturnRows(sqlmock.NewRows(tableRow).AddRow(tableID, 1, 4, 7))
}

func TestWithTableLockRunsReadsAndInsertOnTheLockingTx(t *testing.T) {
	s, mock := newMockStore(t, "mysql")
	res := sampleReservation()

	mock.ExpectBegin()
	expectLock(mock, 3)
	mock.ExpectQuery(tableGet).WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows(tableRow).AddRow(3, 1, 4, 7))
	mock.ExpectExec(insertRes).
		WithArgs(res.MainGuestName, res.NumberOfCustomers, res.TableID, res.StartTime, res.EndTime).
		WillReturnResult(sqlmock.NewResult(42, 1))
	mock.ExpectCommit()

	err := s.WithTableLock(withDeadline(t), 3, func(ctx context.Context) error {
		if _, err := s.GetTable(ctx, 3); err != nil {
			return err
		}
		return s.CreateReservation(ctx, &res)
	})
	if err != nil {
		t.Fatalf("WithTableLock: %v", err)
	}
	if res.ID != 42 {
		t.Fatalf("ID = %d, want 42", res.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestWithTableLockDuplicateInsertRollsBack(t *testing.T) {
	cases := []struct {
		name   string
		driver string
		expect func(mock sqlmock.Sqlmock)
	}{
		{"mysql 1062", "mysql", func(mock sqlmock.Sqlmock) {
			mock.ExpectExec(insertRes).WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
		}},
		{"postgres 23505", "postgres", func(mock sqlmock.Sqlmock) {
			mock.ExpectQuery(regexp.QuoteMeta(`VALUES ($1, $2, $3, $4, $5) RETURNING id`)).
				WillReturnError(&pq.Error{Code: "23505"})
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, mock := newMockStore(t, tc.driver)
			mock.ExpectBegin()
			mock.ExpectQuery(`FOR UPDATE`).WithArgs(uint64(3)).
				WillReturnRows(sqlmock.NewRows(tableRow).AddRow(3, 1, 4, 7))
			tc.expect(mock)
			mock.ExpectRollback()

			res := sampleReservation()
			err := s.WithTableLock(withDeadline(t), 3, func(ctx context.Context) error {
				return s.CreateReservation(ctx, &res)
			})
			if !errors.Is(err, ErrConstraintViolation) {
				t.Fatalf("err = %v, want ErrConstraintViolation", err)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Fatal(err)
			}
		})
	}
}

func TestWithTableLockCommitViolation(t *testing.T) {
	s, mock := newMockStore(t, "postgres")
	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows(tableRow).AddRow(3, 1, 4, 7))
	mock.ExpectCommit().WillReturnError(&pq.Error{Code: "23505"})

	err := s.WithTableLock(withDeadline(t), 3, func(context.Context) error { return nil })
	if !errors.Is(err, ErrConstraintViolation) {
		t.Fatalf("err = %v, want ErrConstraintViolation", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestWithTableLockFailures(t *testing.T) {
	errBoom := errors.New("boom")
	cases := []struct {
		name    string
		lock    func(mock sqlmock.Sqlmock)
		fnErr   error
		wantErr error
		wantFn  bool
	}{
		{
			name: "unknown table",
			lock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(lockQuery).WithArgs(uint64(3)).WillReturnRows(sqlmock.NewRows(tableRow))
			},
			wantErr: ErrNotFound,
		},
		{
			name: "lock error",
			lock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(lockQuery).WithArgs(uint64(3)).WillReturnError(errBoom)
			},
			wantErr: errBoom,
		},
		{
			name:    "callback error",
			lock:    func(mock sqlmock.Sqlmock) { expectLock(mock, 3) },
			fnErr:   errBoom,
			wantErr: errBoom,
			wantFn:  true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, mock := newMockStore(t, "mysql")
			mock.ExpectBegin()
			tc.lock(mock)
			mock.ExpectRollback()

			called := false
			err := s.WithTableLock(withDeadline(t), 3, func(context.Context) error {
				called = true
				return tc.fnErr
			})
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}
			if called != tc.wantFn {
				t.Fatalf("fn called = %v, want %v", called, tc.wantFn)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Fatal(err)
			}
		})
	}
}

func TestWithTableLockNestedReusesTx(t *testing.T) {
	s, mock := newMockStore(t, "mysql")
	mock.ExpectBegin()
	expectLock(mock, 3)
	expectLock(mock, 5)
	mock.ExpectCommit()

	err := s.WithTableLock(withDeadline(t), 3, func(ctx context.Context) error {
		return s.WithTableLock(ctx, 5, func(context.Context) error { return nil })
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestPostgresInsertReturnsID(t *testing.T) {
	s, mock := newMockStore(t, "postgres")
	res := sampleReservation()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO reservations (main_guest_name, number_of_customers, table_id, start_time, end_time) VALUES ($1, $2, $3, $4, $5) RETURNING id`)).
		WithArgs(res.MainGuestName, res.NumberOfCustomers, res.TableID, res.StartTime, res.EndTime).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(9))

	if err := s.CreateReservation(withDeadline(t), &res); err != nil {
		t.Fatal(err)
	}
	if res.ID != 9 {
		t.Fatalf("ID = %d, want 9", res.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestListReservationsFilters(t *testing.T) {
	const base = `SELECT r.id, r.main_guest_name, r.number_of_customers, r.table_id, r.start_time, r.end_time FROM reservations r JOIN tables t ON t.id = r.table_id WHERE t.restaurant_id = ?`
	may1 := time.Date(2030, 5, 1, 0, 0, 0, 0, time.UTC)
	may3 := time.Date(2030, 5, 3, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		name   string
		filter ReservationFilter
		query  string
		args   []interface{}
	}{
		{"none", ReservationFilter{},
			base + ` ORDER BY r.start_time ASC, r.id ASC`, []interface{}{uint64(1)}},
		{"dates truncate to the day", ReservationFilter{From: may1.Add(13 * time.Hour), To: may3.Add(time.Minute)},
			base + ` AND r.start_time >= ? AND r.start_time < ? ORDER BY r.start_time ASC, r.id ASC`,
			[]interface{}{uint64(1), may1, may3}},
		{"table and descending", ReservationFilter{TableID: 4, Descending: true},
			base + ` AND r.table_id = ? ORDER BY r.start_time DESC, r.id DESC`, []interface{}{uint64(1), uint64(4)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, mock := newMockStore(t, "mysql")
			args := make([]driver.Value, len(tc.args))
			for i, a := range tc.args {
				args[i] = a
			}
			start := time.Date(2030, 5, 2, 10, 0, 0, 0, time.FixedZone("", 0))
			mock.ExpectQuery(`^` + regexp.QuoteMeta(tc.query) + `$`).WithArgs(args...).
				WillReturnRows(sqlmock.NewRows(reservationRow).
					AddRow(1, "Ada", 2, 4, start, start.Add(15*time.Minute)))

			rs, err := s.ListReservations(withDeadline(t), 1, tc.filter)
			if err != nil {
				t.Fatal(err)
			}
			if len(rs) != 1 || rs[0].StartTime.Location() != time.UTC {
				t.Fatalf("rows = %+v", rs)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Fatal(err)
			}
		})
	}
}

func TestDeleteTableOutcomes(t *testing.T) {
	del := regexp.QuoteMeta(`DELETE FROM tables WHERE id = ?`)
	cases := []struct {
		name   string
		expect func(mock sqlmock.Sqlmock)
		want   error
	}{
		{"deleted", func(mock sqlmock.Sqlmock) {
			mock.ExpectExec(del).WithArgs(uint64(3)).WillReturnResult(sqlmock.NewResult(0, 1))
		}, nil},
		{"missing", func(mock sqlmock.Sqlmock) {
			mock.ExpectExec(del).WithArgs(uint64(3)).WillReturnResult(sqlmock.NewResult(0, 0))
		}, ErrNotFound},
		{"referenced", func(mock sqlmock.Sqlmock) {
			mock.ExpectExec(del).WithArgs(uint64(3)).WillReturnError(&mysql.MySQLError{Number: 1451})
		}, ErrConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, mock := newMockStore(t, "mysql")
			tc.expect(mock)
			if err := s.DeleteTable(withDeadline(t), 3); !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Fatal(err)
			}
		})
	}
}
