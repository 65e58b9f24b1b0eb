package service

import (
	"context"
	"testing"

	"github.com/siva-ai/governor/internal/adapter/outbound/memory"
	"github.com/siva-ai/governor/internal/domain/persona"
)

func TestAuthorizeCapability(t *testing.T) {
	pol := &persona.Policy{
		ID:                    "policy-1",
		PersonaID:             "persona-1",
		Version:               1,
		AllowedCapabilities:   []string{"chat.complete", "search.web", "payments.execute"},
		ForbiddenCapabilities: []string{"payments.execute", "email.send"},
		MaxCostPerCall:        0.01,
		MaxLatencyMS:          5000,
		Status:                persona.StatusActive,
	}

	tests := []struct {
		name       string
		capability string
		wantAllow  bool
		wantReason string
	}{
		{"allowlisted", "chat.complete", true, ""},
		{"not allowlisted", "files.delete", false, DenyReasonNotAllowlisted},
		{"forbidden only", "email.send", false, DenyReasonBlacklisted},
		// Present in both sets; deny wins.
		{"forbidden and allowed", "payments.execute", false, DenyReasonBlacklisted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			denials := memory.NewDenialStore()
			svc := NewAuthorizerService(denials, testLogger())

			res, err := svc.Authorize(context.Background(), pol, tt.capability, "test")
			if err != nil {
				t.Fatalf("Authorize: %v", err)
			}
			if res.Allowed != tt.wantAllow {
				t.Fatalf("Allowed = %v, want %v (reason=%s)", res.Allowed, tt.wantAllow, res.Reason)
			}
			if tt.wantAllow {
				if res.MaxCostPerCall != 0.01 || res.MaxLatencyMS != 5000 {
					t.Errorf("budgets = (%g, %d), want (0.01, 5000)", res.MaxCostPerCall, res.MaxLatencyMS)
				}
				return
			}
			if res.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", res.Reason, tt.wantReason)
			}
			if res.DenialID == "" {
				t.Error("denial must carry a denial ID")
			}
			logged, err := denials.List(context.Background(), 10)
			if err != nil {
				t.Fatalf("list denials: %v", err)
			}
			if len(logged) != 1 {
				t.Fatalf("denial log has %d entries, want 1", len(logged))
			}
			if logged[0].ID != res.DenialID || logged[0].Reason != tt.wantReason {
				t.Errorf("logged denial = %+v, want id=%s reason=%s", logged[0], res.DenialID, tt.wantReason)
			}
		})
	}
}

func TestAuthorizeAllowWritesNoDenial(t *testing.T) {
	denials := memory.NewDenialStore()
	svc := NewAuthorizerService(denials, testLogger())
	pol := &persona.Policy{
		PersonaID:           "persona-1",
		AllowedCapabilities: []string{"chat.complete"},
	}

	res, err := svc.Authorize(context.Background(), pol, "chat.complete", "")
	if err != nil || !res.Allowed {
		t.Fatalf("Authorize = (%+v, %v), want allow", res, err)
	}
	logged, _ := denials.List(context.Background(), 10)
	if len(logged) != 0 {
		t.Errorf("allow must not write to the denial log, found %d entries", len(logged))
	}
}
