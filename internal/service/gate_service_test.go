package service

import (
	"context"
	"testing"
	"time"

	"github.com/siva-ai/governor/internal/adapter/outbound/memory"
	"github.com/siva-ai/governor/internal/domain/fault"
	"github.com/siva-ai/governor/internal/domain/gate"
)

func newGateFixture(t *testing.T) (*GateService, *EnvelopeService, *memory.ViolationStore) {
	t.Helper()
	envelopes := NewEnvelopeService(memory.NewEnvelopeStore(), testLogger(), 0)
	violations := memory.NewViolationStore()
	return NewGateService(envelopes, violations, testLogger()), envelopes, violations
}

func TestGatePassesValidEnvelope(t *testing.T) {
	svc, envelopes, violations := newGateFixture(t)
	e, err := envelopes.Seal(context.Background(), sealTestRequest())
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	res, err := svc.CheckGate(context.Background(),
		RequestMeta{Source: "agent-runtime"}, EnvelopeRef{Hash: e.SHA256Hash})
	if err != nil {
		t.Fatalf("CheckGate: %v", err)
	}
	if !res.Passed || res.EnvelopeID != e.ID {
		t.Errorf("result = %+v, want pass with envelope %s", res, e.ID)
	}
	logged, _ := violations.List(context.Background(), 10)
	if len(logged) != 0 {
		t.Errorf("a passing check must not write violations, found %d", len(logged))
	}
}

func TestGateBlocks(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(t *testing.T, envelopes *EnvelopeService) EnvelopeRef
		wantCode gate.ViolationCode
	}{
		{
			name:     "no envelope reference",
			setup:    func(t *testing.T, _ *EnvelopeService) EnvelopeRef { return EnvelopeRef{} },
			wantCode: gate.CodeNoEnvelope,
		},
		{
			name: "unknown envelope",
			setup: func(t *testing.T, _ *EnvelopeService) EnvelopeRef {
				return EnvelopeRef{ID: "no-such-envelope"}
			},
			wantCode: gate.CodeInvalidEnvelope,
		},
		{
			name: "expired envelope",
			setup: func(t *testing.T, envelopes *EnvelopeService) EnvelopeRef {
				req := sealTestRequest()
				req.TTL = time.Minute
				e, err := envelopes.Seal(context.Background(), req)
				if err != nil {
					t.Fatalf("Seal: %v", err)
				}
				envelopes.now = func() time.Time { return e.SealedAt.Add(2 * time.Minute) }
				return EnvelopeRef{ID: e.ID}
			},
			wantCode: gate.CodeExpiredEnvelope,
		},
		{
			name: "revoked envelope",
			setup: func(t *testing.T, envelopes *EnvelopeService) EnvelopeRef {
				e, err := envelopes.Seal(context.Background(), sealTestRequest())
				if err != nil {
					t.Fatalf("Seal: %v", err)
				}
				if err := envelopes.Revoke(context.Background(), EnvelopeRef{ID: e.ID}); err != nil {
					t.Fatalf("Revoke: %v", err)
				}
				return EnvelopeRef{ID: e.ID}
			},
			wantCode: gate.CodeRevokedEnvelope,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, envelopes, violations := newGateFixture(t)
			ref := tt.setup(t, envelopes)

			res, err := svc.CheckGate(context.Background(),
				RequestMeta{Source: "agent-runtime", Endpoint: "/execute", TenantID: "tenant-1"}, ref)
			if res.Passed {
				t.Fatal("gate must block")
			}
			if !fault.IsCode(err, fault.CodeRuntimeGateViolation) {
				t.Fatalf("err = %v, want RUNTIME_GATE_VIOLATION", err)
			}
			if res.Code != tt.wantCode {
				t.Errorf("violation code = %s, want %s", res.Code, tt.wantCode)
			}

			logged, _ := violations.List(context.Background(), 10)
			if len(logged) != 1 {
				t.Fatalf("violation log has %d rows, want 1", len(logged))
			}
			v := logged[0]
			if v.ID != res.ViolationID || v.Code != tt.wantCode {
				t.Errorf("logged violation = %+v, want id=%s code=%s", v, res.ViolationID, tt.wantCode)
			}
			if v.Resolution != gate.ResolutionUnresolved {
				t.Errorf("new violation resolution = %s, want UNRESOLVED", v.Resolution)
			}
			if v.Source != "agent-runtime" || v.TenantID != "tenant-1" {
				t.Errorf("violation must capture caller identity, got %+v", v)
			}
		})
	}
}

func TestGateLogsEveryFailure(t *testing.T) {
	svc, _, violations := newGateFixture(t)

	for i := 0; i < 3; i++ {
		_, _ = svc.CheckGate(context.Background(), RequestMeta{Source: "retrying-caller"}, EnvelopeRef{})
	}
	logged, _ := violations.List(context.Background(), 10)
	if len(logged) != 3 {
		t.Errorf("3 failed checks must write 3 violations, found %d", len(logged))
	}
}
