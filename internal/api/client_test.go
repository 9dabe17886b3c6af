package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFetchUsers(t *testing.T) {
	var gotPath, gotAgent string
	var gotBody fetchUsersRequest

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAgent = r.Header.Get("User-Agent")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(fetchUsersResponse{Users: []User{
			{ID: "u-1", AccessToken: "tok-1", Location: Location{ID: "loc-1", Name: "Desk 1", Number: 1}},
			{ID: "u-2", AccessToken: "tok-2", Location: Location{ID: "loc-2", Name: "Desk 2", Number: 2}},
		}})
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "api/v1/users/by-branch", "co-9", "panel-7")
	users, err := c.FetchUsers(context.Background())
	if err != nil {
		t.Fatalf("FetchUsers: %v", err)
	}

	if gotPath != "/api/v1/users/by-branch" {
		t.Errorf("path: got %q", gotPath)
	}
	if gotAgent != "callpanel/1.0/panel-7" {
		t.Errorf("user-agent: got %q", gotAgent)
	}
	if gotBody.BranchID != "panel-7" {
		t.Errorf("branchId: got %q, want panel-7", gotBody.BranchID)
	}
	if len(users) != 2 {
		t.Fatalf("users: got %d, want 2", len(users))
	}
	if users[0].ID != "u-1" || users[0].Location.Number != 1 {
		t.Errorf("user 0: got %+v", users[0])
	}
}

func TestFetchUsersRejectsUnexpectedStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK) // service contract says 201
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "users", "co", "dev")
	if _, err := c.FetchUsers(context.Background()); err == nil {
		t.Error("expected error for status 200 on fetch")
	}
}

func TestSendSwitchEvent(t *testing.T) {
	var gotPath, gotAuth string
	var gotEvent SwitchEvent

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotEvent)
		w.WriteHeader(http.StatusCreated)
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "users", "co-9", "panel-7")
	event := SwitchEvent{
		Location:       Location{ID: "loc-3", Name: "Desk 3", Number: 3},
		BranchID:       "panel-7",
		IsMultiService: false,
		Status:         StatusCalling,
	}

	if err := c.SendSwitchEvent(context.Background(), event, "tok-3"); err != nil {
		t.Fatalf("SendSwitchEvent: %v", err)
	}

	if gotPath != "/api/v1/companies/co-9/queues/call-external" {
		t.Errorf("path: got %q", gotPath)
	}
	if gotAuth != "Bearer tok-3" {
		t.Errorf("authorization: got %q", gotAuth)
	}
	if gotEvent.Status != StatusCalling {
		t.Errorf("status: got %q, want calling", gotEvent.Status)
	}
	if gotEvent.Location.ID != "loc-3" {
		t.Errorf("location: got %+v", gotEvent.Location)
	}
}

func TestSendSwitchEventFailureStatuses(t *testing.T) {
	for _, code := range []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusInternalServerError} {
		code := code
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(code)
		}))
		c := NewClient(ts.URL, "users", "co", "dev")
		if err := c.SendSwitchEvent(context.Background(), SwitchEvent{}, "tok"); err == nil {
			t.Errorf("status %d: expected error", code)
		}
		ts.Close()
	}
}

func TestSendSwitchEventTransportError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ts.Close() // connection refused from here on

	c := NewClient(ts.URL, "users", "co", "dev")
	if err := c.SendSwitchEvent(context.Background(), SwitchEvent{}, "tok"); err == nil {
		t.Error("expected transport error")
	}
}
