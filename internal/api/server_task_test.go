package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jalaleddinemaoukil/interventions-m1/internal/config"
	"github.com/jalaleddinemaoukil/interventions-m1/internal/model"
	"github.com/jalaleddinemaoukil/interventions-m1/internal/pkg/metrics"

	"github.com/gin-gonic/gin"
)

type mockTaskStore struct {
	createFunc func(ctx context.Context, task *model.Intervention) error
	updateFunc func(ctx context.Context, userID, taskID uint, updates map[string]interface{}) (*model.Intervention, error)
	listFunc   func(ctx context.Context, userID uint) ([]model.Intervention, error)
	deleteFunc func(ctx context.Context, userID, taskID uint) error
	searchFunc func(ctx context.Context, userID uint, query string) ([]model.Intervention, error)

	createCalls int
	updateCalls int
	deleteCalls int
	searchCalls int
}

func (m *mockTaskStore) Create(ctx context.Context, task *model.Intervention) error {
	m.createCalls++
	return m.createFunc(ctx, task)
}

func (m *mockTaskStore) Get(ctx context.Context, userID, taskID uint) (*model.Intervention, error) {
	return nil, ErrInterventionNotFound
}

func (m *mockTaskStore) Update(ctx context.Context, userID, taskID uint, updates map[string]interface{}) (*model.Intervention, error) {
	m.updateCalls++
	return m.updateFunc(ctx, userID, taskID, updates)
}

func (m *mockTaskStore) List(ctx context.Context, userID uint) ([]model.Intervention, error) {
	return m.listFunc(ctx, userID)
}

func (m *mockTaskStore) Delete(ctx context.Context, userID, taskID uint) error {
	m.deleteCalls++
	return m.deleteFunc(ctx, userID, taskID)
}

func (m *mockTaskStore) Search(ctx context.Context, userID uint, query string) ([]model.Intervention, error) {
	m.searchCalls++
	return m.searchFunc(ctx, userID, query)
}

func newTaskServer(store TaskStore) *Server {
	return &Server{
		cfg:    &config.Config{},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		tasks:  store,
	}
}

// asUser simulates a request passing the auth gate as the given user.
func asUser(userID uint, handler gin.HandlerFunc) (*gin.Engine, func(method, path string, body interface{}) *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	metrics.InitMetrics()
	r := gin.New()
	wrap := func(c *gin.Context) {
		c.Set("userID", userID)
		handler(c)
	}
	r.POST("/t", wrap)
	r.PUT("/t/:taskId", wrap)
	r.DELETE("/t/:taskId", wrap)
	r.GET("/t", wrap)

	do := func(method, path string, body interface{}) *httptest.ResponseRecorder {
		var reader io.Reader
		if body != nil {
			payload, _ := json.Marshal(body)
			reader = bytes.NewReader(payload)
		}
		req := httptest.NewRequest(method, path, reader)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}
	return r, do
}

func envelope(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body: %v (%s)", err, w.Body.String())
	}
	return out
}

func TestAddTask_Normal(t *testing.T) {
	store := &mockTaskStore{
		createFunc: func(ctx context.Context, task *model.Intervention) error {
			task.ID = 1
			return nil
		},
	}
	s := newTaskServer(store)
	_, do := asUser(7, s.handleAddTask)

	w := do(http.MethodPost, "/t", map[string]interface{}{
		"title":         "Fix printer",
		"companyName":   "Acme",
		"companyNumber": "123",
		"content":       "Printer jam",
	})

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	if store.createCalls != 1 {
		t.Fatalf("expected create to be called once")
	}
	body := envelope(t, w)
	if body["error"] != false {
		t.Fatalf("expected error=false")
	}
	task, _ := body["task"].(map[string]interface{})
	if task == nil {
		t.Fatalf("expected task in response")
	}
	if task["userId"] != float64(7) {
		t.Fatalf("expected owner 7, got %v", task["userId"])
	}
	if task["isPinned"] != false {
		t.Fatalf("new task must not be pinned")
	}
	if tags, ok := task["tags"].([]interface{}); !ok || len(tags) != 0 {
		t.Fatalf("expected empty tags, got %v", task["tags"])
	}
}

func TestAddTask_MissingTitle(t *testing.T) {
	store := &mockTaskStore{
		createFunc: func(ctx context.Context, task *model.Intervention) error { return nil },
	}
	s := newTaskServer(store)
	_, do := asUser(1, s.handleAddTask)

	w := do(http.MethodPost, "/t", map[string]interface{}{
		"companyName":   "Acme",
		"companyNumber": "123",
		"content":       "text",
	})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if store.createCalls != 0 {
		t.Fatalf("store must not be reached on validation failure")
	}
	body := envelope(t, w)
	if body["message"] != "Title and content are required" {
		t.Fatalf("unexpected message: %v", body["message"])
	}
}

func TestAddTask_MissingCompany(t *testing.T) {
	store := &mockTaskStore{
		createFunc: func(ctx context.Context, task *model.Intervention) error { return nil },
	}
	s := newTaskServer(store)
	_, do := asUser(1, s.handleAddTask)

	w := do(http.MethodPost, "/t", map[string]interface{}{
		"title":   "Fix printer",
		"content": "Printer jam",
	})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if store.createCalls != 0 {
		t.Fatalf("store must not be reached on validation failure")
	}
}

func TestAddTask_StoreError(t *testing.T) {
	store := &mockTaskStore{
		createFunc: func(ctx context.Context, task *model.Intervention) error {
			return errors.New("connection lost")
		},
	}
	s := newTaskServer(store)
	_, do := asUser(1, s.handleAddTask)

	w := do(http.MethodPost, "/t", map[string]interface{}{
		"title":         "Fix printer",
		"companyName":   "Acme",
		"companyNumber": "123",
		"content":       "Printer jam",
	})

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	body := envelope(t, w)
	if body["message"] != "Internal Server Error" {
		t.Fatalf("internal detail must not leak: %v", body["message"])
	}
}

func TestEditTask_NoFields(t *testing.T) {
	store := &mockTaskStore{
		updateFunc: func(ctx context.Context, userID, taskID uint, updates map[string]interface{}) (*model.Intervention, error) {
			return &model.Intervention{}, nil
		},
	}
	s := newTaskServer(store)
	_, do := asUser(1, s.handleEditTask)

	w := do(http.MethodPut, "/t/3", map[string]interface{}{})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if store.updateCalls != 0 {
		t.Fatalf("store must not be reached with an empty partial set")
	}
	body := envelope(t, w)
	if body["message"] != "At least one field is required" {
		t.Fatalf("unexpected message: %v", body["message"])
	}
}

func TestEditTask_NotOwned(t *testing.T) {
	store := &mockTaskStore{
		updateFunc: func(ctx context.Context, userID, taskID uint, updates map[string]interface{}) (*model.Intervention, error) {
			return nil, ErrInterventionNotFound
		},
	}
	s := newTaskServer(store)
	_, do := asUser(2, s.handleEditTask)

	w := do(http.MethodPut, "/t/3", map[string]interface{}{"title": "hijack"})

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestEditTask_EmptyTitleRejected(t *testing.T) {
	store := &mockTaskStore{
		updateFunc: func(ctx context.Context, userID, taskID uint, updates map[string]interface{}) (*model.Intervention, error) {
			return &model.Intervention{}, nil
		},
	}
	s := newTaskServer(store)
	_, do := asUser(1, s.handleEditTask)

	w := do(http.MethodPut, "/t/3", map[string]interface{}{"title": "  "})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if store.updateCalls != 0 {
		t.Fatalf("store must not be reached")
	}
}

func TestEditTask_ExplicitUnpinReachesStore(t *testing.T) {
	var captured map[string]interface{}
	store := &mockTaskStore{
		updateFunc: func(ctx context.Context, userID, taskID uint, updates map[string]interface{}) (*model.Intervention, error) {
			captured = updates
			return &model.Intervention{ID: taskID, UserID: userID}, nil
		},
	}
	s := newTaskServer(store)
	_, do := asUser(1, s.handleEditTask)

	w := do(http.MethodPut, "/t/3", map[string]interface{}{"isPinned": false})

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	v, ok := captured["is_pinned"]
	if !ok {
		t.Fatalf("explicit false must be treated as provided")
	}
	if v != false {
		t.Fatalf("expected is_pinned=false, got %v", v)
	}
}

func TestEditTask_ScopesToCaller(t *testing.T) {
	var gotUser, gotTask uint
	store := &mockTaskStore{
		updateFunc: func(ctx context.Context, userID, taskID uint, updates map[string]interface{}) (*model.Intervention, error) {
			gotUser, gotTask = userID, taskID
			return &model.Intervention{ID: taskID, UserID: userID}, nil
		},
	}
	s := newTaskServer(store)
	_, do := asUser(42, s.handleEditTask)

	w := do(http.MethodPut, "/t/9", map[string]interface{}{"content": "updated"})

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if gotUser != 42 || gotTask != 9 {
		t.Fatalf("expected scope (42, 9), got (%d, %d)", gotUser, gotTask)
	}
}

func TestDeleteTask_NotOwned(t *testing.T) {
	store := &mockTaskStore{
		deleteFunc: func(ctx context.Context, userID, taskID uint) error {
			return ErrInterventionNotFound
		},
	}
	s := newTaskServer(store)
	_, do := asUser(2, s.handleDeleteTask)

	w := do(http.MethodDelete, "/t/5", nil)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	body := envelope(t, w)
	if body["message"] != "Task not found" {
		t.Fatalf("unexpected message: %v", body["message"])
	}
}

func TestDeleteTask_Normal(t *testing.T) {
	var gotUser, gotTask uint
	store := &mockTaskStore{
		deleteFunc: func(ctx context.Context, userID, taskID uint) error {
			gotUser, gotTask = userID, taskID
			return nil
		},
	}
	s := newTaskServer(store)
	_, do := asUser(1, s.handleDeleteTask)

	w := do(http.MethodDelete, "/t/5", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if gotUser != 1 || gotTask != 5 {
		t.Fatalf("expected scope (1, 5), got (%d, %d)", gotUser, gotTask)
	}
	body := envelope(t, w)
	if body["error"] != false {
		t.Fatalf("expected error=false")
	}
}

func TestUpdatePinned_MissingFlag(t *testing.T) {
	store := &mockTaskStore{
		updateFunc: func(ctx context.Context, userID, taskID uint, updates map[string]interface{}) (*model.Intervention, error) {
			return &model.Intervention{}, nil
		},
	}
	s := newTaskServer(store)
	_, do := asUser(1, s.handleUpdatePinned)

	w := do(http.MethodPut, "/t/5", map[string]interface{}{})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if store.updateCalls != 0 {
		t.Fatalf("store must not be reached")
	}
}

func TestUpdatePinned_AppliesVerbatim(t *testing.T) {
	var captured map[string]interface{}
	store := &mockTaskStore{
		updateFunc: func(ctx context.Context, userID, taskID uint, updates map[string]interface{}) (*model.Intervention, error) {
			captured = updates
			return &model.Intervention{ID: taskID, UserID: userID, IsPinned: true}, nil
		},
	}
	s := newTaskServer(store)
	_, do := asUser(1, s.handleUpdatePinned)

	w := do(http.MethodPut, "/t/5", map[string]interface{}{"isPinned": true})

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if captured["is_pinned"] != true {
		t.Fatalf("expected is_pinned=true, got %v", captured["is_pinned"])
	}
	body := envelope(t, w)
	task, _ := body["task"].(map[string]interface{})
	if task == nil || task["isPinned"] != true {
		t.Fatalf("expected pinned task in response: %v", body)
	}
}

func TestUpdatePinned_NotOwned(t *testing.T) {
	store := &mockTaskStore{
		updateFunc: func(ctx context.Context, userID, taskID uint, updates map[string]interface{}) (*model.Intervention, error) {
			return nil, ErrInterventionNotFound
		},
	}
	s := newTaskServer(store)
	_, do := asUser(2, s.handleUpdatePinned)

	w := do(http.MethodPut, "/t/5", map[string]interface{}{"isPinned": true})

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestListTasks_Normal(t *testing.T) {
	store := &mockTaskStore{
		listFunc: func(ctx context.Context, userID uint) ([]model.Intervention, error) {
			return []model.Intervention{
				{ID: 2, Title: "pinned", IsPinned: true, UserID: userID},
				{ID: 1, Title: "plain", UserID: userID},
			}, nil
		},
	}
	s := newTaskServer(store)
	_, do := asUser(1, s.handleListTasks)

	w := do(http.MethodGet, "/t", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := envelope(t, w)
	tasks, _ := body["tasks"].([]interface{})
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(tasks))
	}
	first, _ := tasks[0].(map[string]interface{})
	if first["isPinned"] != true {
		t.Fatalf("pinned task must come first")
	}
}

func TestListTasks_StoreError(t *testing.T) {
	store := &mockTaskStore{
		listFunc: func(ctx context.Context, userID uint) ([]model.Intervention, error) {
			return nil, errors.New("connection lost")
		},
	}
	s := newTaskServer(store)
	_, do := asUser(1, s.handleListTasks)

	w := do(http.MethodGet, "/t", nil)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}

func TestSearchTasks_MissingQuery(t *testing.T) {
	store := &mockTaskStore{
		searchFunc: func(ctx context.Context, userID uint, query string) ([]model.Intervention, error) {
			return nil, nil
		},
	}
	s := newTaskServer(store)
	_, do := asUser(1, s.handleSearchTasks)

	w := do(http.MethodGet, "/t", nil)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if store.searchCalls != 0 {
		t.Fatalf("store must not be reached without a query")
	}
	body := envelope(t, w)
	if body["message"] != "Search Query is required" {
		t.Fatalf("unexpected message: %v", body["message"])
	}
}

func TestSearchTasks_ScopesToCaller(t *testing.T) {
	var gotUser uint
	var gotQuery string
	store := &mockTaskStore{
		searchFunc: func(ctx context.Context, userID uint, query string) ([]model.Intervention, error) {
			gotUser, gotQuery = userID, query
			return []model.Intervention{{ID: 1, Title: "Invoice follow-up", UserID: userID}}, nil
		},
	}
	s := newTaskServer(store)
	_, do := asUser(8, s.handleSearchTasks)

	w := do(http.MethodGet, "/t?query=invoice", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if gotUser != 8 || gotQuery != "invoice" {
		t.Fatalf("expected scope (8, invoice), got (%d, %q)", gotUser, gotQuery)
	}
	body := envelope(t, w)
	tasks, _ := body["tasks"].([]interface{})
	if len(tasks) != 1 {
		t.Fatalf("expected 1 match, got %d", len(tasks))
	}
}
