package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/table-reservation/internal/config"
	"github.com/iliyamo/table-reservation/internal/handler"
	"github.com/iliyamo/table-reservation/internal/logging"
	"github.com/iliyamo/table-reservation/internal/middleware"
	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/queue"
	"github.com/iliyamo/table-reservation/internal/repository"
	"github.com/iliyamo/table-reservation/internal/service"
	"github.com/iliyamo/table-reservation/internal/utils"
)

const secret = "router-test-secret"

var now = time.Date(2030, 5, 1, 12, 0, 0, 0, time.UTC)

type recorder struct {
	mu     sync.Mutex
	events []queue.ReservationEvent
}

func (r *recorder) Notify(_ context.Context, ev queue.ReservationEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

type app struct {
	e          *echo.Echo
	store      *repository.MemoryStore
	users      *service.UserService
	events     *recorder
	restaurant model.Restaurant
	tables     []model.Table // seats 2, 4, 6
	admin      string
	employee   string
}

func newApp(t *testing.T) *app {
	t.Helper()
	ctx := context.Background()
	log := logging.Discard()
	store := repository.NewMemoryStore()

	rest := model.Restaurant{Name: "Bistro", OpenHour: 9, CloseHour: 22}
	if err := store.CreateRestaurant(ctx, &rest); err != nil {
		t.Fatal(err)
	}
	var tables []model.Table
	for i, seats := range []int{2, 4, 6} {
		tbl := model.Table{RestaurantID: rest.ID, NumberOfSeats: seats, Number: i + 1}
		if err := store.CreateTable(ctx, &tbl); err != nil {
			t.Fatal(err)
		}
		tables = append(tables, tbl)
	}

	users := service.NewUserService(store, secret, time.Hour, bcrypt.MinCost, log)
	reservations := service.NewReservationService(store, service.Options{
		SlotMinutes: 15,
		Location:    time.UTC,
		Clock:       func() time.Time { return now },
		Logger:      log,
	})
	events := &recorder{}
	cache := middleware.NewResponseCache(config.CacheConfig{}, nil, log)

	e := echo.New()
	Register(e, Handlers{
		Health:       handler.Health(store),
		Auth:         handler.NewAuthHandler(users, log),
		Restaurants:  handler.NewRestaurantHandler(store, cache, log),
		Reservations: handler.NewReservationHandler(reservations, store, events, time.UTC, log),
	}, Options{JWTSecret: secret})

	return &app{
		e:          e,
		store:      store,
		users:      users,
		events:     events,
		restaurant: rest,
		tables:     tables,
		admin:      token(t, 1, model.RoleAdmin),
		employee:   token(t, 2, model.RoleEmployee),
	}
}

func token(t *testing.T, id uint64, role string) string {
	t.Helper()
	tok, err := utils.NewAccessToken(secret, id, role, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	return tok.Token
}

func (a *app) do(t *testing.T, method, path, tok, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func id(v uint64) string { return strconv.FormatUint(v, 10) }

func booking(table model.Table, party int, start string, end string) string {
	b, _ := json.Marshal(map[string]any{
		"main_guest_name":     "Ada",
		"number_of_customers": party,
		"table_id":            table.ID,
		"start_time":          start,
		"end_time":            end,
	})
	return string(b)
}

func TestHealth(t *testing.T) {
	a := newApp(t)
	rec := a.do(t, http.MethodGet, "/healthz", "", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("got %d %q", rec.Code, rec.Body.String())
	}
}

func TestCreateReservationFlow(t *testing.T) {
	a := newApp(t)
	small, mid, big := a.tables[0], a.tables[1], a.tables[2]

	rec := a.do(t, http.MethodPost, "/v1/reservations", a.employee,
		booking(small, 2, "2030-05-02T10:00:00", "2030-05-02T10:15:00"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	var created struct {
		ID        uint64 `json:"id"`
		TableID   uint64 `json:"table_id"`
		StartTime string `json:"start_time"`
	}
	decode(t, rec, &created)
	if created.TableID != small.ID || created.StartTime != "2030-05-02T10:00:00" {
		t.Fatalf("created %+v", created)
	}

	rec = a.do(t, http.MethodPost, "/v1/reservations", a.employee,
		booking(small, 2, "2030-05-02T10:00:00", "2030-05-02T10:15:00"))
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate: %d %s", rec.Code, rec.Body.String())
	}

	// The 2-seat table is taken at 10:00, leaving the 4-seat table as the
	// only smaller fit for a party of 2 on the 6-seat table.
	rec = a.do(t, http.MethodPost, "/v1/reservations", a.employee,
		booking(big, 2, "2030-05-02T10:00:00", "2030-05-02T10:15:00"))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("better allocation: %d %s", rec.Code, rec.Body.String())
	}
	var better struct {
		Error  string   `json:"error"`
		Tables []uint64 `json:"tables"`
	}
	decode(t, rec, &better)
	if len(better.Tables) != 1 || better.Tables[0] != mid.ID {
		t.Fatalf("tables = %v, want [%d]", better.Tables, mid.ID)
	}

	rec = a.do(t, http.MethodPost, "/v1/reservations", a.employee,
		booking(mid, 5, "2030-05-02T11:00:00", "2030-05-02T11:15:00"))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("capacity: %d %s", rec.Code, rec.Body.String())
	}

	if got := a.events.types(); len(got) != 1 || got[0] != queue.EventReservationCreated {
		t.Fatalf("events = %v", got)
	}
}

func TestCreateReservationRejectsBadInput(t *testing.T) {
	a := newApp(t)
	small := a.tables[0]
	cases := []struct {
		name string
		body string
		want int
	}{
		{"not json", "{", http.StatusBadRequest},
		{"bad timestamp", booking(small, 2, "tomorrow", "2030-05-02T10:15:00"), http.StatusBadRequest},
		{"wrong duration", booking(small, 2, "2030-05-02T10:00:00", "2030-05-02T10:30:00"), http.StatusBadRequest},
		{"in the past", booking(small, 2, "2030-04-30T10:00:00", "2030-04-30T10:15:00"), http.StatusBadRequest},
		{"outside hours", booking(small, 2, "2030-05-02T23:00:00", "2030-05-02T23:15:00"), http.StatusBadRequest},
		{"unknown table", booking(model.Table{ID: 999}, 2, "2030-05-02T10:00:00", "2030-05-02T10:15:00"), http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := a.do(t, http.MethodPost, "/v1/reservations", a.employee, tc.body)
			if rec.Code != tc.want {
				t.Fatalf("got %d %s, want %d", rec.Code, rec.Body.String(), tc.want)
			}
		})
	}
}

func TestRoleGates(t *testing.T) {
	a := newApp(t)
	cases := []struct {
		name   string
		method string
		path   string
		tok    string
		want   int
	}{
		{"no token", http.MethodGet, "/v1/restaurants", "", http.StatusUnauthorized},
		{"employee cannot list restaurants", http.MethodGet, "/v1/restaurants", a.employee, http.StatusForbidden},
		{"admin lists restaurants", http.MethodGet, "/v1/restaurants", a.admin, http.StatusOK},
		{"employee cannot delete reservations", http.MethodDelete, "/v1/reservations/1", a.employee, http.StatusForbidden},
		{"employee cannot list reservations", http.MethodGet, "/v1/reservations/" + id(a.restaurant.ID), a.employee, http.StatusForbidden},
		{"employee reads today", http.MethodGet, "/v1/reservations/" + id(a.restaurant.ID) + "/today", a.employee, http.StatusOK},
		{"admin reads today", http.MethodGet, "/v1/reservations/" + id(a.restaurant.ID) + "/today", a.admin, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := a.do(t, tc.method, tc.path, tc.tok, "")
			if rec.Code != tc.want {
				t.Fatalf("got %d %s, want %d", rec.Code, rec.Body.String(), tc.want)
			}
		})
	}
}

func TestSlots(t *testing.T) {
	a := newApp(t)
	small := a.tables[0]
	if rec := a.do(t, http.MethodPost, "/v1/reservations", a.employee,
		booking(small, 2, "2030-05-02T10:00:00", "2030-05-02T10:15:00")); rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}

	path := "/v1/restaurants/" + id(a.restaurant.ID) + "/tables/" + id(small.ID) + "/slots?date=2030-05-02T10:00:00"
	rec := a.do(t, http.MethodGet, path, a.employee, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("slots: %d %s", rec.Code, rec.Body.String())
	}
	var slots []struct {
		Start string `json:"start"`
		End   string `json:"end"`
	}
	decode(t, rec, &slots)
	// 09:00 through 22:00 inclusive is 53 slots; one is booked.
	if len(slots) != 52 {
		t.Fatalf("len = %d, want 52", len(slots))
	}
	if slots[0].Start != "2030-05-02T09:00:00" || slots[0].End != "2030-05-02T09:15:00" {
		t.Fatalf("first slot %+v", slots[0])
	}
	for _, s := range slots {
		if s.Start == "2030-05-02T10:00:00" {
			t.Fatal("booked slot reported as free")
		}
	}

	other := "/v1/restaurants/" + id(a.restaurant.ID+100) + "/tables/" + id(small.ID) + "/slots?date=2030-05-02T10:00:00"
	if rec := a.do(t, http.MethodGet, other, a.employee, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("foreign restaurant: %d", rec.Code)
	}
	closed := "/v1/restaurants/" + id(a.restaurant.ID) + "/tables/" + id(small.ID) + "/slots?date=2030-05-02T23:00:00"
	if rec := a.do(t, http.MethodGet, closed, a.employee, ""); rec.Code == http.StatusOK {
		t.Fatalf("closed hour: %d %s", rec.Code, rec.Body.String())
	}
}

func TestBetterAllocationsEndpoint(t *testing.T) {
	a := newApp(t)
	big := a.tables[2]
	path := "/v1/tables/" + id(big.ID) + "/better-allocations?start=2030-05-02T10:00:00&end=2030-05-02T10:15:00&party_size=2"
	rec := a.do(t, http.MethodGet, path, a.employee, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d %s", rec.Code, rec.Body.String())
	}
	var tables []struct {
		ID            uint64 `json:"id"`
		NumberOfSeats int    `json:"number_of_seats"`
	}
	decode(t, rec, &tables)
	if len(tables) != 2 || tables[0].NumberOfSeats != 2 || tables[1].NumberOfSeats != 4 {
		t.Fatalf("tables = %+v", tables)
	}

	if rec := a.do(t, http.MethodGet, "/v1/tables/"+id(big.ID)+"/better-allocations?start=x&end=y&party_size=2", a.employee, ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad query: %d", rec.Code)
	}
}

func TestDeleteAndListReservations(t *testing.T) {
	a := newApp(t)
	ctx := context.Background()
	small, mid := a.tables[0], a.tables[1]

	past := model.Reservation{MainGuestName: "Bob", NumberOfCustomers: 2, TableID: small.ID,
		StartTime: time.Date(2030, 4, 30, 10, 0, 0, 0, time.UTC), EndTime: time.Date(2030, 4, 30, 10, 15, 0, 0, time.UTC)}
	today := model.Reservation{MainGuestName: "Cy", NumberOfCustomers: 3, TableID: mid.ID,
		StartTime: time.Date(2030, 5, 1, 14, 0, 0, 0, time.UTC), EndTime: time.Date(2030, 5, 1, 14, 15, 0, 0, time.UTC)}
	for _, r := range []*model.Reservation{&past, &today} {
		if err := a.store.CreateReservation(ctx, r); err != nil {
			t.Fatal(err)
		}
	}
	rec := a.do(t, http.MethodPost, "/v1/reservations", a.employee,
		booking(small, 2, "2030-05-02T10:00:00", "2030-05-02T10:15:00"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	var future struct {
		ID uint64 `json:"id"`
	}
	decode(t, rec, &future)

	list := func(query string) []uint64 {
		t.Helper()
		rec := a.do(t, http.MethodGet, "/v1/reservations/"+id(a.restaurant.ID)+query, a.admin, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("list %q: %d %s", query, rec.Code, rec.Body.String())
		}
		var rs []struct {
			ID uint64 `json:"id"`
		}
		decode(t, rec, &rs)
		ids := make([]uint64, len(rs))
		for i, r := range rs {
			ids[i] = r.ID
		}
		return ids
	}

	if got := list(""); len(got) != 3 || got[0] != past.ID || got[2] != future.ID {
		t.Fatalf("asc = %v", got)
	}
	if got := list("?order=desc"); len(got) != 3 || got[0] != future.ID {
		t.Fatalf("desc = %v", got)
	}
	if got := list("?table_id=" + id(mid.ID)); len(got) != 1 || got[0] != today.ID {
		t.Fatalf("by table = %v", got)
	}
	if got := list("?start=2030-05-01&end=2030-05-02"); len(got) != 1 || got[0] != today.ID {
		t.Fatalf("by date = %v", got)
	}
	if rec := a.do(t, http.MethodGet, "/v1/reservations/"+id(a.restaurant.ID)+"?order=sideways", a.admin, ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad order: %d", rec.Code)
	}

	rec = a.do(t, http.MethodGet, "/v1/reservations/"+id(a.restaurant.ID)+"/today", a.employee, "")
	var todays []struct {
		ID uint64 `json:"id"`
	}
	decode(t, rec, &todays)
	if len(todays) != 1 || todays[0].ID != today.ID {
		t.Fatalf("today = %+v", todays)
	}

	if rec := a.do(t, http.MethodDelete, "/v1/reservations/"+id(past.ID), a.admin, ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("delete past: %d %s", rec.Code, rec.Body.String())
	}
	if rec := a.do(t, http.MethodDelete, "/v1/reservations/"+id(future.ID), a.admin, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("delete future: %d %s", rec.Code, rec.Body.String())
	}
	if rec := a.do(t, http.MethodDelete, "/v1/reservations/"+id(future.ID), a.admin, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("delete twice: %d", rec.Code)
	}

	want := []string{queue.EventReservationCreated, queue.EventReservationDeleted}
	if got := a.events.types(); len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("events = %v, want %v", got, want)
	}
}

func TestRestaurantAdministration(t *testing.T) {
	a := newApp(t)

	rec := a.do(t, http.MethodPost, "/v1/restaurants", a.admin, `{"name":"Oyster Bar","open_hour":11,"close_hour":23}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create restaurant: %d %s", rec.Code, rec.Body.String())
	}
	var rest struct {
		ID uint64 `json:"id"`
	}
	decode(t, rec, &rest)

	for _, body := range []string{
		`{"name":"","open_hour":9,"close_hour":17}`,
		`{"name":"Late","open_hour":18,"close_hour":18}`,
		`{"name":"Never","open_hour":9,"close_hour":24}`,
		`{"name":"Hourless"}`,
	} {
		if rec := a.do(t, http.MethodPost, "/v1/restaurants", a.admin, body); rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: %d", body, rec.Code)
		}
	}

	rec = a.do(t, http.MethodPut, "/v1/restaurants/"+id(rest.ID), a.admin, `{"name":"Oyster Bar","open_hour":12,"close_hour":22}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update: %d %s", rec.Code, rec.Body.String())
	}
	if got, _ := a.store.GetRestaurant(context.Background(), rest.ID); got.OpenHour != 12 {
		t.Fatalf("stored %+v", got)
	}
	if rec := a.do(t, http.MethodPut, "/v1/restaurants/9999", a.admin, `{"name":"Ghost","open_hour":9,"close_hour":17}`); rec.Code != http.StatusNotFound {
		t.Fatalf("update missing: %d", rec.Code)
	}

	table := func(seats, number int) string {
		return `{"restaurant_id":` + id(rest.ID) + `,"number_of_seats":` + strconv.Itoa(seats) + `,"number":` + strconv.Itoa(number) + `}`
	}
	rec = a.do(t, http.MethodPost, "/v1/restaurants/tables", a.admin, table(4, 10))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create table: %d %s", rec.Code, rec.Body.String())
	}
	var tbl struct {
		ID uint64 `json:"id"`
	}
	decode(t, rec, &tbl)
	if rec := a.do(t, http.MethodPost, "/v1/restaurants/tables", a.admin, table(4, 10)); rec.Code != http.StatusConflict {
		t.Fatalf("duplicate number: %d", rec.Code)
	}
	if rec := a.do(t, http.MethodPost, "/v1/restaurants/tables", a.admin, table(13, 11)); rec.Code != http.StatusBadRequest {
		t.Fatalf("too many seats: %d", rec.Code)
	}

	rec = a.do(t, http.MethodGet, "/v1/restaurants/"+id(rest.ID)+"/tables", a.admin, "")
	var tables []struct {
		ID uint64 `json:"id"`
	}
	decode(t, rec, &tables)
	if rec.Code != http.StatusOK || len(tables) != 1 || tables[0].ID != tbl.ID {
		t.Fatalf("tables: %d %s", rec.Code, rec.Body.String())
	}

	if rec := a.do(t, http.MethodDelete, "/v1/restaurants/tables/"+id(tbl.ID), a.admin, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("delete table: %d", rec.Code)
	}
	if rec := a.do(t, http.MethodDelete, "/v1/restaurants/tables/"+id(tbl.ID), a.admin, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("delete table twice: %d", rec.Code)
	}
}

func TestUsers(t *testing.T) {
	a := newApp(t)
	ctx := context.Background()
	if _, err := a.users.Register(ctx, 4242, "s3cret-pass", model.RoleEmployee); err != nil {
		t.Fatal(err)
	}

	rec := a.do(t, http.MethodPost, "/v1/users/login", "", `{"e_number":4242,"password":"s3cret-pass"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: %d %s", rec.Code, rec.Body.String())
	}
	var login struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	decode(t, rec, &login)
	if login.AccessToken == "" || login.TokenType != "bearer" {
		t.Fatalf("login %+v", login)
	}

	rec = a.do(t, http.MethodGet, "/v1/users/info", login.AccessToken, "")
	var info struct {
		ENumber int    `json:"e_number"`
		Role    string `json:"role"`
	}
	decode(t, rec, &info)
	if rec.Code != http.StatusOK || info.ENumber != 4242 || info.Role != model.RoleEmployee {
		t.Fatalf("info: %d %s", rec.Code, rec.Body.String())
	}

	if rec := a.do(t, http.MethodPost, "/v1/users/login", "", `{"e_number":4242,"password":"wrong-pass"}`); rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad password: %d", rec.Code)
	}
	if rec := a.do(t, http.MethodPost, "/v1/users", login.AccessToken, `{"e_number":5000,"password":"another-pass"}`); rec.Code != http.StatusForbidden {
		t.Fatalf("employee creates user: %d", rec.Code)
	}
	if rec := a.do(t, http.MethodPost, "/v1/users", a.admin, `{"e_number":5000,"password":"another-pass"}`); rec.Code != http.StatusCreated {
		t.Fatalf("admin creates user: %d %s", rec.Code, rec.Body.String())
	}
	if rec := a.do(t, http.MethodPost, "/v1/users", a.admin, `{"e_number":5000,"password":"another-pass"}`); rec.Code != http.StatusConflict {
		t.Fatalf("duplicate user: %d", rec.Code)
	}
	if rec := a.do(t, http.MethodPost, "/v1/users", a.admin, `{"e_number":12,"password":"another-pass"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("short e_number: %d", rec.Code)
	}
}
