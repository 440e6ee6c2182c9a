package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/RoGogDBD/items/internal/models"
	"github.com/RoGogDBD/items/internal/repository"
	"github.com/RoGogDBD/items/internal/repository/mocks"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type eventsRecorder struct {
	mu     sync.Mutex
	events []models.ItemEvent
}

func (e *eventsRecorder) Publish(_ context.Context, event models.ItemEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
}

func newRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()
	r.NotFound(NotFound)
	r.MethodNotAllowed(MethodNotAllowed)
	r.Get("/healthz", h.HealthHandler)
	h.Routes(r)
	return r
}

func do(t *testing.T, h *Handler, method, target, body string) (*httptest.ResponseRecorder, map[string]json.RawMessage) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	newRouter(h).ServeHTTP(rr, req)

	var env map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env), "body: %s", rr.Body.String())
	return rr, env
}

func requireEnvelope(t *testing.T, env map[string]json.RawMessage, success bool) (data json.RawMessage, message string) {
	t.Helper()
	require.Len(t, env, 3)
	require.Contains(t, env, "success")
	require.Contains(t, env, "data")
	require.Contains(t, env, "message")

	var gotSuccess bool
	require.NoError(t, json.Unmarshal(env["success"], &gotSuccess))
	assert.Equal(t, success, gotSuccess)
	require.NoError(t, json.Unmarshal(env["message"], &message))
	return env["data"], message
}

func TestListItems(t *testing.T) {
	tests := []struct {
		name       string
		list       func(ctx context.Context) ([]models.Item, error)
		wantStatus int
		wantLen    int
		wantMsg    string
	}{
		{
			name: "empty table",
			list: func(ctx context.Context) ([]models.Item, error) {
				return nil, nil
			},
			wantStatus: http.StatusOK,
			wantLen:    0,
			wantMsg:    "Items fetched successfully",
		},
		{
			name: "two items",
			list: func(ctx context.Context) ([]models.Item, error) {
				return []models.Item{testItem(), testItem()}, nil
			},
			wantStatus: http.StatusOK,
			wantLen:    2,
			wantMsg:    "Items fetched successfully",
		},
		{
			name: "store failure",
			list: func(ctx context.Context) ([]models.Item, error) {
				return nil, &repository.PersistenceError{Op: "list items", Err: errors.New("connection refused")}
			},
			wantStatus: http.StatusInternalServerError,
			wantLen:    -1,
			wantMsg:    "Failed to fetch items: list items: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(&mocks.ItemStoreMock{ListFunc: tt.list}, nil)
			rr, env := do(t, h, http.MethodGet, "/item", "")

			assert.Equal(t, tt.wantStatus, rr.Code)
			data, msg := requireEnvelope(t, env, tt.wantLen >= 0)
			assert.Equal(t, tt.wantMsg, msg)
			if tt.wantLen < 0 {
				assert.JSONEq(t, "null", string(data))
				return
			}
			var items []models.Item
			require.NoError(t, json.Unmarshal(data, &items))
			assert.NotNil(t, items)
			assert.Len(t, items, tt.wantLen)
		})
	}
}

func TestGetItem(t *testing.T) {
	item := testItem()

	tests := []struct {
		name       string
		id         string
		get        func(ctx context.Context, id uuid.UUID) (models.Item, error)
		wantStatus int
		wantMsg    string
		wantCalls  int
	}{
		{
			name: "found",
			id:   item.ID.String(),
			get: func(ctx context.Context, id uuid.UUID) (models.Item, error) {
				return item, nil
			},
			wantStatus: http.StatusOK,
			wantMsg:    "Item fetched successfully",
			wantCalls:  1,
		},
		{
			name: "missing",
			id:   uuid.New().String(),
			get: func(ctx context.Context, id uuid.UUID) (models.Item, error) {
				return models.Item{}, repository.ErrNotFound
			},
			wantStatus: http.StatusNotFound,
			wantMsg:    "Item not found",
			wantCalls:  1,
		},
		{
			name:       "malformed id",
			id:         "not-a-uuid",
			wantStatus: http.StatusNotFound,
			wantMsg:    "Item not found",
			wantCalls:  0,
		},
		{
			name: "unexpected error is hidden",
			id:   item.ID.String(),
			get: func(ctx context.Context, id uuid.UUID) (models.Item, error) {
				return models.Item{}, errors.New("boom: secret internals")
			},
			wantStatus: http.StatusInternalServerError,
			wantMsg:    "Internal server error",
			wantCalls:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mocks.ItemStoreMock{GetFunc: tt.get}
			rr, env := do(t, NewHandler(store, nil), http.MethodGet, "/item/"+tt.id, "")

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantCalls, store.GetCalls)
			data, msg := requireEnvelope(t, env, tt.wantStatus == http.StatusOK)
			assert.Equal(t, tt.wantMsg, msg)

			if tt.wantStatus != http.StatusOK {
				assert.JSONEq(t, "null", string(data))
				return
			}
			var got models.Item
			require.NoError(t, json.Unmarshal(data, &got))
			assert.Equal(t, item.ID, got.ID)
			assert.Equal(t, "19.99", got.Price.String())
		})
	}
}

func TestCreateItem(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		insert      func(ctx context.Context, n models.NewItem) (models.Item, error)
		wantStatus  int
		wantMsg     string
		wantInserts int
		wantEvents  int
	}{
		{
			name:        "created",
			body:        `{"name":"Desk Lamp","description":"A small LED desk lamp","price":19.99}`,
			insert:      insertEcho,
			wantStatus:  http.StatusCreated,
			wantMsg:     "Item created successfully",
			wantInserts: 1,
			wantEvents:  1,
		},
		{
			name:        "short name",
			body:        `{"name":"ab","description":"A small LED desk lamp","price":19.99}`,
			wantStatus:  http.StatusBadRequest,
			wantMsg:     "Validation failed: name must be at least 3 characters",
			wantInserts: 0,
		},
		{
			name:        "zero price",
			body:        `{"name":"Desk Lamp","description":"A small LED desk lamp","price":0}`,
			wantStatus:  http.StatusBadRequest,
			wantMsg:     "Validation failed: price must be greater than 0",
			wantInserts: 0,
		},
		{
			name: "persistence failure",
			body: `{"name":"Desk Lamp","description":"A small LED desk lamp","price":19.99}`,
			insert: func(ctx context.Context, n models.NewItem) (models.Item, error) {
				return models.Item{}, &repository.PersistenceError{Op: "insert item", Err: errors.New("duplicate key value")}
			},
			wantStatus:  http.StatusInternalServerError,
			wantMsg:     "Failed to create item: insert item: duplicate key value",
			wantInserts: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mocks.ItemStoreMock{InsertFunc: tt.insert}
			events := &eventsRecorder{}
			rr, env := do(t, NewHandler(store, events), http.MethodPost, "/item", tt.body)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantInserts, store.InsertCalls)
			assert.Len(t, events.events, tt.wantEvents)
			_, msg := requireEnvelope(t, env, tt.wantStatus == http.StatusCreated)
			assert.Equal(t, tt.wantMsg, msg)
		})
	}
}

func TestCreateItemValidationData(t *testing.T) {
	store := &mocks.ItemStoreMock{}
	rr, env := do(t, NewHandler(store, nil), http.MethodPost, "/item", `{"name":"ab","description":"short","price":-1}`)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	data, _ := requireEnvelope(t, env, false)

	var fields []struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(data, &fields))
	require.Len(t, fields, 3)
	assert.Equal(t, "name", fields[0].Field)
	assert.Equal(t, "description", fields[1].Field)
	assert.Equal(t, "price", fields[2].Field)
	assert.Equal(t, 0, store.InsertCalls)
}

func TestCreateItemEchoesCreatedRow(t *testing.T) {
	events := &eventsRecorder{}
	rr, env := do(t, NewHandler(&mocks.ItemStoreMock{InsertFunc: insertEcho}, events), http.MethodPost, "/item",
		`{"name":"Desk Lamp","description":"A small LED desk lamp","price":19.99}`)

	require.Equal(t, http.StatusCreated, rr.Code)
	data, _ := requireEnvelope(t, env, true)

	var got models.Item
	require.NoError(t, json.Unmarshal(data, &got))
	assert.NotEqual(t, uuid.Nil, got.ID)
	assert.Equal(t, "Desk Lamp", got.Name)
	assert.Equal(t, "19.99", got.Price.String())

	require.Len(t, events.events, 1)
	assert.Equal(t, models.EventItemCreated, events.events[0].Type)
	assert.Equal(t, got.ID, events.events[0].ItemID)
}

func TestDeleteItem(t *testing.T) {
	tests := []struct {
		name        string
		id          string
		del         func(ctx context.Context, id uuid.UUID) (bool, error)
		wantStatus  int
		wantMsg     string
		wantDeletes int
		wantEvents  int
	}{
		{
			name: "existing",
			id:   uuid.New().String(),
			del: func(ctx context.Context, id uuid.UUID) (bool, error) {
				return true, nil
			},
			wantStatus:  http.StatusOK,
			wantMsg:     "Item deleted successfully",
			wantDeletes: 1,
			wantEvents:  1,
		},
		{
			name: "missing is still success",
			id:   uuid.New().String(),
			del: func(ctx context.Context, id uuid.UUID) (bool, error) {
				return false, nil
			},
			wantStatus:  http.StatusOK,
			wantMsg:     "Item deleted successfully",
			wantDeletes: 1,
		},
		{
			name:        "malformed id",
			id:          "42",
			wantStatus:  http.StatusOK,
			wantMsg:     "Item deleted successfully",
			wantDeletes: 0,
		},
		{
			name: "store failure",
			id:   uuid.New().String(),
			del: func(ctx context.Context, id uuid.UUID) (bool, error) {
				return false, &repository.PersistenceError{Op: "delete item", Err: errors.New("connection reset")}
			},
			wantStatus:  http.StatusInternalServerError,
			wantMsg:     "Failed to delete item: delete item: connection reset",
			wantDeletes: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mocks.ItemStoreMock{DeleteFunc: tt.del}
			events := &eventsRecorder{}
			rr, env := do(t, NewHandler(store, events), http.MethodDelete, "/item/"+tt.id, "")

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantDeletes, store.DeleteCalls)
			assert.Len(t, events.events, tt.wantEvents)
			data, msg := requireEnvelope(t, env, tt.wantStatus == http.StatusOK)
			assert.Equal(t, tt.wantMsg, msg)
			assert.JSONEq(t, "null", string(data))
		})
	}
}

func TestUnsupportedRoutes(t *testing.T) {
	h := NewHandler(&mocks.ItemStoreMock{}, nil)

	for _, method := range []string{http.MethodPut, http.MethodPatch} {
		rr, env := do(t, h, method, "/item/"+uuid.New().String(), `{}`)
		assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
		requireEnvelope(t, env, false)
	}

	rr, env := do(t, h, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	requireEnvelope(t, env, false)
}

func TestHealthHandler(t *testing.T) {
	rr, env := do(t, NewHandler(&mocks.ItemStoreMock{}, nil), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	requireEnvelope(t, env, true)

	down := &mocks.ItemStoreMock{PingFunc: func(ctx context.Context) error { return errors.New("down") }}
	rr, env = do(t, NewHandler(down, nil), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	requireEnvelope(t, env, false)
}

func insertEcho(ctx context.Context, n models.NewItem) (models.Item, error) {
	now := time.Now().UTC()
	return models.Item{
		ID:          uuid.New(),
		Name:        n.Name,
		Description: n.Description,
		Price:       n.Price,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func testItem() models.Item {
	now := time.Now().UTC()
	return models.Item{
		ID:          uuid.New(),
		Name:        "Desk Lamp",
		Description: "A small LED desk lamp",
		Price:       decimal.RequireFromString("19.99"),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestRecoverer(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Recoverer)
	r.Get("/boom", func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})
	r.Get("/abort", func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	var env map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	data, msg := requireEnvelope(t, env, false)
	assert.Equal(t, "Internal server error", msg)
	assert.JSONEq(t, "null", string(data))

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/abort", nil))
	})
}

func TestCreateItemBodyTooLarge(t *testing.T) {
	store := &mocks.ItemStoreMock{InsertFunc: insertEcho}
	body := `{"name":"Desk Lamp","description":"` + strings.Repeat("d", maxBodyBytes) + `","price":1}`
	rr, env := do(t, NewHandler(store, nil), http.MethodPost, "/item", body)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	_, msg := requireEnvelope(t, env, false)
	assert.Equal(t, "Request body too large", msg)
	assert.Equal(t, 0, store.InsertCalls)
}

func TestCreateItemRejectsTrailingData(t *testing.T) {
	store := &mocks.ItemStoreMock{InsertFunc: insertEcho}
	rr, env := do(t, NewHandler(store, nil), http.MethodPost, "/item",
		`{"name":"Desk Lamp","description":"A small LED desk lamp","price":19.99}{"name":"x"}`)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	_, msg := requireEnvelope(t, env, false)
	assert.Equal(t, "Validation failed: request body must contain a single JSON object", msg)
	assert.Equal(t, 0, store.InsertCalls)
}
