package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/demoplane/demoplane/internal/domain/audit"
)

func TestAuditHandler_ListEvents(t *testing.T) {
	service := audit.NewService(setupTestDB(t))
	handler := NewAuditHandler(service)

	if _, err := service.Log(context.Background(), audit.LogInput{
		Actor:     "admin",
		ActorType: audit.ActorTypeAdmin,
		Action:    "update_config",
		Outcome:   audit.OutcomeSuccess,
	}); err != nil {
		t.Fatalf("Log error = %v", err)
	}

	rec := httptest.NewRecorder()
	handler.ListEvents(rec, httptest.NewRequest(http.MethodGet, "/api/audit?limit=10", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", rec.Code)
	}
	var events []audit.Event
	decodeBody(t, rec, &events)
	if len(events) != 1 || events[0].Action != "update_config" {
		t.Errorf("events = %+v", events)
	}
}

func TestAuditHandler_ListEvents_EmptyTrail(t *testing.T) {
	handler := NewAuditHandler(audit.NewService(setupTestDB(t)))

	rec := httptest.NewRecorder()
	handler.ListEvents(rec, httptest.NewRequest(http.MethodGet, "/api/audit", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", rec.Code)
	}
}
