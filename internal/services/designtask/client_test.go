package designtask_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"launchpro/internal/config"
	"launchpro/internal/services"
	"launchpro/internal/services/designtask"
)

func newClient(t *testing.T, handler http.Handler) *designtask.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return designtask.NewClient(config.DesignTasks{Enabled: true, BaseURL: server.URL, APIKey: "secret"})
}

func TestCreateTaskReturnsRemoteID(t *testing.T) {
	var gotBody map[string]string
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/tasks" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		_, _ = w.Write([]byte(`{"id":"task-7","status":"pending"}`))
	}))

	taskID, err := client.CreateTask(context.Background(), "Summer Promo", "https://news.example/a/1", "offer-42")
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if taskID != "task-7" {
		t.Fatalf("task id = %q", taskID)
	}
	if gotBody["campaign_name"] != "Summer Promo" || gotBody["article_link"] != "https://news.example/a/1" {
		t.Fatalf("body = %v", gotBody)
	}
}

func TestCreateTaskRequiresArticleLink(t *testing.T) {
	client := designtask.NewClient(config.DesignTasks{BaseURL: "http://design.invalid"})
	_, err := client.CreateTask(context.Background(), "x", "  ", "")
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("err = %v, want configuration error", err)
	}
}

func TestGetTaskNormalizesStatus(t *testing.T) {
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/tasks/task-7" {
			t.Errorf("path = %q", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"id":"task-7","status":"COMPLETED","delivery_link":" https://cdn.example/pack.zip "}`))
	}))

	task, err := client.GetTaskByID(context.Background(), "task-7")
	if err != nil {
		t.Fatalf("GetTaskByID: %v", err)
	}
	if task.Status != designtask.TaskCompleted {
		t.Fatalf("status = %q, want completed", task.Status)
	}
	if task.DeliveryLink != "https://cdn.example/pack.zip" {
		t.Fatalf("delivery link = %q", task.DeliveryLink)
	}
}

func TestGetTaskMapsNotFound(t *testing.T) {
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := client.GetTaskByID(context.Background(), "task-missing")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}
