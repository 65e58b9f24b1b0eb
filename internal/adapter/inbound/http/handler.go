package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/siva-ai/governor/internal/domain/envelope"
	"github.com/siva-ai/governor/internal/domain/fault"
	"github.com/siva-ai/governor/internal/domain/gate"
	"github.com/siva-ai/governor/internal/domain/replay"
	"github.com/siva-ai/governor/internal/service"
)

// maxRequestBodySize is the maximum allowed request body size (1 MB).
const maxRequestBodySize = 1 << 20

// validate checks request structs before they reach the services.
var validate = validator.New()

// Handler serves the governance API.
type Handler struct {
	resolver   *service.ResolverService
	authorizer *service.AuthorizerService
	router     *service.RouterService
	envelopes  *service.EnvelopeService
	replays    *service.ReplayService
	gatekeeper *service.GateService
	pipeline   *service.PipelineService
	audit      *service.AuditQueryService
	metrics    *Metrics
	logger     *slog.Logger
}

// NewHandler creates the API handler.
func NewHandler(
	resolver *service.ResolverService,
	authorizer *service.AuthorizerService,
	router *service.RouterService,
	envelopes *service.EnvelopeService,
	replays *service.ReplayService,
	gatekeeper *service.GateService,
	pipeline *service.PipelineService,
	audit *service.AuditQueryService,
	metrics *Metrics,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		resolver:   resolver,
		authorizer: authorizer,
		router:     router,
		envelopes:  envelopes,
		replays:    replays,
		gatekeeper: gatekeeper,
		pipeline:   pipeline,
		audit:      audit,
		metrics:    metrics,
		logger:     logger,
	}
}

// Routes builds the API route table.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/resolve-persona", h.handleResolvePersona)
	mux.HandleFunc("GET /api/v1/resolve-territory", h.handleResolveTerritory)
	mux.HandleFunc("POST /api/v1/authorize-capability", h.handleAuthorizeCapability)
	mux.HandleFunc("POST /api/v1/route-model", h.handleRouteModel)
	mux.HandleFunc("POST /api/v1/envelope", h.handleSealEnvelope)
	mux.HandleFunc("GET /api/v1/verify-envelope", h.handleVerifyEnvelope)
	mux.HandleFunc("GET /api/v1/envelope/content", h.handleEnvelopeContent)
	mux.HandleFunc("POST /api/v1/envelope/revoke", h.handleRevokeEnvelope)
	mux.HandleFunc("POST /api/v1/envelope/output", h.handleRecordOutput)
	mux.HandleFunc("POST /api/v1/replay", h.handleReplay)
	mux.HandleFunc("POST /api/v1/replay/{id}/complete", h.handleReplayComplete)
	mux.HandleFunc("POST /api/v1/runtime-gate/check", h.handleGateCheck)
	mux.HandleFunc("GET /api/v1/audit/denials", h.handleListDenials)
	mux.HandleFunc("GET /api/v1/audit/violations", h.handleListViolations)
	mux.HandleFunc("POST /api/v1/audit/violations/{id}/resolve", h.handleResolveViolation)
	return mux
}

// errorBody is the JSON error shape. No stack traces cross this boundary.
type errorBody struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}

// httpStatusFor maps stable error codes to HTTP statuses.
func httpStatusFor(code fault.Code) int {
	switch code {
	case fault.CodePersonaNotResolved, fault.CodePolicyNotFound,
		fault.CodeTerritoryNotConfigured, fault.CodeEnvelopeNotSealed:
		return http.StatusNotFound
	case fault.CodeMultipleActivePolicies, fault.CodeNoEligibleModel,
		fault.CodeTerritoryInvalidForSubVert, fault.CodeReplayDriftDetected:
		return http.StatusConflict
	case fault.CodeEnvelopeExpired, fault.CodeEnvelopeRevoked:
		return http.StatusGone
	case fault.CodeRuntimeGateViolation:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// respondJSON writes a JSON response with the given status.
func (h *Handler) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("response encode failed", "error", err)
	}
}

// respondFault maps a service error to its stable code and HTTP status.
// Non-fault errors become an opaque 500.
func (h *Handler) respondFault(w http.ResponseWriter, err error) {
	var fe *fault.Error
	if errors.As(err, &fe) {
		h.respondJSON(w, httpStatusFor(fe.Code), errorBody{
			ErrorCode: string(fe.Code),
			Message:   fe.Message,
		})
		return
	}
	h.logger.Error("internal error", "error", err)
	h.respondJSON(w, http.StatusInternalServerError, errorBody{
		ErrorCode: "INTERNAL",
		Message:   "internal error",
	})
}

// respondBadRequest writes a 400 with a validation message.
func (h *Handler) respondBadRequest(w http.ResponseWriter, msg string) {
	h.respondJSON(w, http.StatusBadRequest, errorBody{ErrorCode: "BAD_REQUEST", Message: msg})
}

// readJSON decodes and validates a JSON request body.
func (h *Handler) readJSON(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return err
	}
	return validate.Struct(v)
}

type personaJSON struct {
	ID            string `json:"id"`
	Key           string `json:"key"`
	Name          string `json:"name"`
	Mission       string `json:"mission"`
	DecisionLens  string `json:"decision_lens"`
	SubVerticalID string `json:"sub_vertical_id"`
	Scope         string `json:"scope"`
}

type policyJSON struct {
	ID                    string   `json:"id"`
	PersonaID             string   `json:"persona_id"`
	Version               int      `json:"version"`
	AllowedCapabilities   []string `json:"allowed_capabilities"`
	ForbiddenCapabilities []string `json:"forbidden_capabilities"`
	MaxCostPerCall        float64  `json:"max_cost_per_call"`
	MaxLatencyMS          int      `json:"max_latency_ms"`
	Status                string   `json:"status"`
}

func (h *Handler) handleResolvePersona(w http.ResponseWriter, r *http.Request) {
	subVertical := r.URL.Query().Get("sub_vertical_id")
	if subVertical == "" {
		h.respondBadRequest(w, "sub_vertical_id is required")
		return
	}
	regionCode := r.URL.Query().Get("region_code")

	res, err := h.resolver.ResolvePersona(r.Context(), subVertical, regionCode)
	if err != nil {
		h.metrics.Resolutions.WithLabelValues("persona", "error").Inc()
		h.respondFault(w, err)
		return
	}
	h.metrics.Resolutions.WithLabelValues("persona", "ok").Inc()

	h.respondJSON(w, http.StatusOK, map[string]any{
		"persona": personaJSON{
			ID:            res.Persona.ID,
			Key:           res.Persona.Key,
			Name:          res.Persona.Name,
			Mission:       res.Persona.Mission,
			DecisionLens:  res.Persona.DecisionLens,
			SubVerticalID: res.Persona.SubVerticalID,
			Scope:         string(res.Persona.Scope),
		},
		"policy": policyJSON{
			ID:                    res.Policy.ID,
			PersonaID:             res.Policy.PersonaID,
			Version:               res.Policy.Version,
			AllowedCapabilities:   res.Policy.AllowedCapabilities,
			ForbiddenCapabilities: res.Policy.ForbiddenCapabilities,
			MaxCostPerCall:        res.Policy.MaxCostPerCall,
			MaxLatencyMS:          res.Policy.MaxLatencyMS,
			Status:                string(res.Policy.Status),
		},
		"resolution_path": service.JoinPath(res.Path),
	})
}

func (h *Handler) handleResolveTerritory(w http.ResponseWriter, r *http.Request) {
	regionCode := r.URL.Query().Get("region_code")
	if regionCode == "" {
		h.respondBadRequest(w, "region_code is required")
		return
	}
	subVertical := r.URL.Query().Get("sub_vertical_id")

	res, err := h.resolver.ResolveTerritory(r.Context(), regionCode, subVertical)
	if err != nil {
		h.metrics.Resolutions.WithLabelValues("territory", "error").Inc()
		h.respondFault(w, err)
		return
	}
	h.metrics.Resolutions.WithLabelValues("territory", "ok").Inc()

	h.respondJSON(w, http.StatusOK, map[string]any{
		"territory": map[string]any{
			"id":            res.Territory.ID,
			"slug":          res.Territory.Slug,
			"name":          res.Territory.Name,
			"level":         string(res.Territory.Level),
			"coverage_type": res.Territory.CoverageType,
		},
		"resolution_path": service.JoinPath(res.Path),
	})
}

type authorizeRequest struct {
	PersonaID     string `json:"persona_id" validate:"required"`
	CapabilityKey string `json:"capability_key" validate:"required"`
	EnvelopeHash  string `json:"envelope_hash"`
	Context       string `json:"context"`
}

func (h *Handler) handleAuthorizeCapability(w http.ResponseWriter, r *http.Request) {
	var req authorizeRequest
	if err := h.readJSON(r, &req); err != nil {
		h.respondBadRequest(w, "invalid request body: "+err.Error())
		return
	}

	pol, err := h.resolver.ActivePolicy(r.Context(), req.PersonaID)
	if err != nil {
		h.respondFault(w, err)
		return
	}

	res, err := h.authorizer.Authorize(r.Context(), pol, req.CapabilityKey, req.Context)
	if err != nil {
		h.respondFault(w, err)
		return
	}
	if !res.Allowed {
		h.metrics.Authorizations.WithLabelValues("deny").Inc()
		h.respondJSON(w, http.StatusForbidden, map[string]any{
			"authorized":    false,
			"denial_reason": res.Reason,
			"denial_id":     res.DenialID,
		})
		return
	}
	h.metrics.Authorizations.WithLabelValues("allow").Inc()
	h.respondJSON(w, http.StatusOK, map[string]any{
		"authorized":        true,
		"max_cost_per_call": res.MaxCostPerCall,
		"max_latency_ms":    res.MaxLatencyMS,
	})
}

type routeModelRequest struct {
	CapabilityKey  string  `json:"capability_key" validate:"required"`
	PersonaID      string  `json:"persona_id"`
	EnvelopeHash   string  `json:"envelope_hash"`
	MaxCostPerCall float64 `json:"max_cost_per_call"`
	MaxLatencyMS   int     `json:"max_latency_ms"`
}

func (h *Handler) handleRouteModel(w http.ResponseWriter, r *http.Request) {
	var req routeModelRequest
	if err := h.readJSON(r, &req); err != nil {
		h.respondBadRequest(w, "invalid request body: "+err.Error())
		return
	}

	d, err := h.router.SelectModel(r.Context(), req.CapabilityKey, req.PersonaID,
		req.EnvelopeHash, service.Budgets{
			MaxCostPerCall: req.MaxCostPerCall,
			MaxLatencyMS:   req.MaxLatencyMS,
		})
	if err != nil {
		h.metrics.RoutingDecisions.WithLabelValues("no_eligible_model").Inc()
		h.respondFault(w, err)
		return
	}
	h.metrics.RoutingDecisions.WithLabelValues("ok").Inc()

	h.respondJSON(w, http.StatusOK, map[string]any{
		"decision_id":     d.ID,
		"model_id":        d.ModelID,
		"model_slug":      d.ModelSlug,
		"routing_score":   d.Score,
		"cost_estimate":   d.CostEstimate,
		"latency_class":   string(d.LatencyClass),
		"alternatives":    d.Alternatives,
		"formula_version": d.FormulaVersion,
	})
}

type sealRequest struct {
	TenantID      string `json:"tenant_id" validate:"required"`
	WorkspaceID   string `json:"workspace_id" validate:"required"`
	UserID        string `json:"user_id"`
	SubVerticalID string `json:"sub_vertical_id" validate:"required"`
	RegionCode    string `json:"region_code"`
	CapabilityKey string `json:"capability_key" validate:"required"`
	Context       string `json:"context"`
	TTLSeconds    int    `json:"ttl_seconds" validate:"omitempty,gte=0"`
}

func (h *Handler) handleSealEnvelope(w http.ResponseWriter, r *http.Request) {
	var req sealRequest
	if err := h.readJSON(r, &req); err != nil {
		h.respondBadRequest(w, "invalid request body: "+err.Error())
		return
	}

	result, authz, err := h.pipeline.Execute(r.Context(), service.PipelineRequest{
		TenantID:      req.TenantID,
		WorkspaceID:   req.WorkspaceID,
		UserID:        req.UserID,
		SubVerticalID: req.SubVerticalID,
		RegionCode:    req.RegionCode,
		CapabilityKey: req.CapabilityKey,
		Context:       req.Context,
		TTL:           time.Duration(req.TTLSeconds) * time.Second,
	})
	if err != nil {
		h.respondFault(w, err)
		return
	}
	if !authz.Allowed {
		h.metrics.Authorizations.WithLabelValues("deny").Inc()
		h.respondJSON(w, http.StatusForbidden, map[string]any{
			"authorized":    false,
			"denial_reason": authz.Reason,
			"denial_id":     authz.DenialID,
		})
		return
	}
	h.metrics.Authorizations.WithLabelValues("allow").Inc()
	h.metrics.EnvelopesSealed.Inc()
	h.metrics.RoutingDecisions.WithLabelValues("ok").Inc()

	e := result.Envelope
	h.respondJSON(w, http.StatusOK, map[string]any{
		"envelope_id":     e.ID,
		"sha256_hash":     e.SHA256Hash,
		"status":          string(e.Status),
		"persona_id":      e.PersonaID,
		"policy_id":       e.PolicyID,
		"policy_version":  e.PolicyVersion,
		"territory_id":    e.TerritoryID,
		"resolution_path": e.ResolutionPath,
		"sealed_at":       e.SealedAt.Format(time.RFC3339),
		"expires_at":      formatExpiry(e),
		"routing": map[string]any{
			"model_id":      result.Decision.ModelID,
			"model_slug":    result.Decision.ModelSlug,
			"routing_score": result.Decision.Score,
			"latency_class": string(result.Decision.LatencyClass),
		},
	})
}

func formatExpiry(e *envelope.Envelope) string {
	if e.ExpiresAt.IsZero() {
		return ""
	}
	return e.ExpiresAt.Format(time.RFC3339)
}

// refFromQuery builds an EnvelopeRef from envelope_id / sha256_hash params.
func refFromQuery(r *http.Request) service.EnvelopeRef {
	return service.EnvelopeRef{
		ID:   r.URL.Query().Get("envelope_id"),
		Hash: r.URL.Query().Get("sha256_hash"),
	}
}

func (h *Handler) handleVerifyEnvelope(w http.ResponseWriter, r *http.Request) {
	ref := refFromQuery(r)
	if ref.Empty() {
		h.respondBadRequest(w, "envelope_id or sha256_hash is required")
		return
	}

	e, err := h.envelopes.Verify(r.Context(), ref)
	if err != nil {
		h.metrics.Verifications.WithLabelValues(verifyLabel(err)).Inc()
		h.respondFault(w, err)
		return
	}
	h.metrics.Verifications.WithLabelValues("valid").Inc()

	h.respondJSON(w, http.StatusOK, map[string]any{
		"valid":       true,
		"status":      string(e.Status),
		"envelope_id": e.ID,
		"sha256_hash": e.SHA256Hash,
	})
}

// verifyLabel maps a verification failure to its metric label.
func verifyLabel(err error) string {
	switch {
	case fault.IsCode(err, fault.CodeEnvelopeExpired):
		return "expired"
	case fault.IsCode(err, fault.CodeEnvelopeRevoked):
		return "revoked"
	case fault.IsCode(err, fault.CodeEnvelopeNotSealed):
		return "not_sealed"
	default:
		return "error"
	}
}

func (h *Handler) handleEnvelopeContent(w http.ResponseWriter, r *http.Request) {
	ref := refFromQuery(r)
	if ref.Empty() {
		h.respondBadRequest(w, "envelope_id or sha256_hash is required")
		return
	}

	e, content, err := h.envelopes.GetContent(r.Context(), ref)
	if err != nil {
		h.respondFault(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]any{
		"envelope_id": e.ID,
		"sha256_hash": e.SHA256Hash,
		"content":     json.RawMessage(content),
	})
}

type envelopeRefRequest struct {
	EnvelopeID string `json:"envelope_id"`
	Hash       string `json:"sha256_hash"`
}

func (r envelopeRefRequest) ref() service.EnvelopeRef {
	return service.EnvelopeRef{ID: r.EnvelopeID, Hash: r.Hash}
}

func (h *Handler) handleRevokeEnvelope(w http.ResponseWriter, r *http.Request) {
	var req envelopeRefRequest
	if err := h.readJSON(r, &req); err != nil {
		h.respondBadRequest(w, "invalid request body: "+err.Error())
		return
	}
	if req.ref().Empty() {
		h.respondBadRequest(w, "envelope_id or sha256_hash is required")
		return
	}
	if err := h.envelopes.Revoke(r.Context(), req.ref()); err != nil {
		h.respondFault(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]any{"revoked": true})
}

type recordOutputRequest struct {
	EnvelopeID string `json:"envelope_id"`
	Hash       string `json:"sha256_hash"`
	Output     string `json:"output"`
	OutputHash string `json:"output_hash"`
}

func (h *Handler) handleRecordOutput(w http.ResponseWriter, r *http.Request) {
	var req recordOutputRequest
	if err := h.readJSON(r, &req); err != nil {
		h.respondBadRequest(w, "invalid request body: "+err.Error())
		return
	}
	ref := service.EnvelopeRef{ID: req.EnvelopeID, Hash: req.Hash}
	if ref.Empty() {
		h.respondBadRequest(w, "envelope_id or sha256_hash is required")
		return
	}
	outputHash := req.OutputHash
	if outputHash == "" {
		if req.Output == "" {
			h.respondBadRequest(w, "output or output_hash is required")
			return
		}
		outputHash = envelope.HashOutput([]byte(req.Output))
	}
	if err := h.envelopes.RecordOutput(r.Context(), ref, outputHash); err != nil {
		h.respondFault(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]any{"output_hash": outputHash})
}

type replayRequest struct {
	EnvelopeHash string `json:"envelope_hash" validate:"required"`
	Context      string `json:"context"`
}

func (h *Handler) handleReplay(w http.ResponseWriter, r *http.Request) {
	var req replayRequest
	if err := h.readJSON(r, &req); err != nil {
		h.respondBadRequest(w, "invalid request body: "+err.Error())
		return
	}

	attempt, content, err := h.replays.InitiateReplay(r.Context(), req.EnvelopeHash, req.Context)
	if err != nil {
		h.respondFault(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]any{
		"replay_id":        attempt.ID,
		"envelope_id":      attempt.EnvelopeID,
		"envelope_content": json.RawMessage(content),
	})
}

type replayCompleteRequest struct {
	Output  string `json:"output"`
	NewHash string `json:"new_hash"`
}

func (h *Handler) handleReplayComplete(w http.ResponseWriter, r *http.Request) {
	replayID := r.PathValue("id")
	var req replayCompleteRequest
	if err := h.readJSON(r, &req); err != nil {
		h.respondBadRequest(w, "invalid request body: "+err.Error())
		return
	}

	attempt, err := h.replays.CompleteReplay(r.Context(), replayID, []byte(req.Output), req.NewHash)
	if err != nil && !fault.IsCode(err, fault.CodeReplayDriftDetected) {
		h.respondFault(w, err)
		return
	}
	if attempt.Status == replay.StatusDrifted {
		h.metrics.ReplayCompletions.WithLabelValues("drifted").Inc()
		h.respondJSON(w, http.StatusConflict, map[string]any{
			"drift_detected": true,
			"error_code":     string(fault.CodeReplayDriftDetected),
			"drift_details":  attempt.DriftDetails,
		})
		return
	}
	h.metrics.ReplayCompletions.WithLabelValues("matched").Inc()
	h.respondJSON(w, http.StatusOK, map[string]any{"drift_detected": false})
}

type gateCheckRequest struct {
	Source       string `json:"source" validate:"required"`
	Endpoint     string `json:"endpoint"`
	TenantID     string `json:"tenant_id"`
	WorkspaceID  string `json:"workspace_id"`
	UserID       string `json:"user_id"`
	EnvelopeID   string `json:"envelope_id"`
	EnvelopeHash string `json:"envelope_hash"`
}

func (h *Handler) handleGateCheck(w http.ResponseWriter, r *http.Request) {
	var req gateCheckRequest
	if err := h.readJSON(r, &req); err != nil {
		h.respondBadRequest(w, "invalid request body: "+err.Error())
		return
	}

	result, err := h.gatekeeper.CheckGate(r.Context(), service.RequestMeta{
		Source:      req.Source,
		Endpoint:    req.Endpoint,
		TenantID:    req.TenantID,
		WorkspaceID: req.WorkspaceID,
		UserID:      req.UserID,
	}, service.EnvelopeRef{ID: req.EnvelopeID, Hash: req.EnvelopeHash})
	if !result.Passed {
		h.metrics.GateChecks.WithLabelValues(string(result.Code)).Inc()
		h.respondJSON(w, http.StatusForbidden, map[string]any{
			"gate_passed":    false,
			"violation_code": string(result.Code),
			"violation_id":   result.ViolationID,
		})
		return
	}
	if err != nil {
		h.respondFault(w, err)
		return
	}
	h.metrics.GateChecks.WithLabelValues("pass").Inc()
	h.respondJSON(w, http.StatusOK, map[string]any{
		"gate_passed": true,
		"envelope_id": result.EnvelopeID,
	})
}

// limitParam parses the ?limit query param with a default of 100.
func limitParam(r *http.Request) int {
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			return n
		}
	}
	return 100
}

type denialJSON struct {
	ID            string `json:"id"`
	PersonaID     string `json:"persona_id"`
	CapabilityKey string `json:"capability_key"`
	Reason        string `json:"reason"`
	Context       string `json:"context,omitempty"`
	CreatedAt     string `json:"created_at"`
}

func (h *Handler) handleListDenials(w http.ResponseWriter, r *http.Request) {
	denials, err := h.audit.ListDenials(r.Context(), limitParam(r))
	if err != nil {
		h.respondFault(w, err)
		return
	}
	out := make([]denialJSON, 0, len(denials))
	for _, d := range denials {
		out = append(out, denialJSON{
			ID:            d.ID,
			PersonaID:     d.PersonaID,
			CapabilityKey: d.CapabilityKey,
			Reason:        d.Reason,
			Context:       d.Context,
			CreatedAt:     d.CreatedAt.Format(time.RFC3339),
		})
	}
	h.respondJSON(w, http.StatusOK, map[string]any{"denials": out})
}

type violationJSON struct {
	ID          string `json:"id"`
	Source      string `json:"source"`
	Endpoint    string `json:"endpoint,omitempty"`
	TenantID    string `json:"tenant_id,omitempty"`
	WorkspaceID string `json:"workspace_id,omitempty"`
	UserID      string `json:"user_id,omitempty"`
	Code        string `json:"code"`
	Message     string `json:"message"`
	Resolution  string `json:"resolution"`
	CreatedAt   string `json:"created_at"`
}

func (h *Handler) handleListViolations(w http.ResponseWriter, r *http.Request) {
	violations, err := h.audit.ListViolations(r.Context(), limitParam(r))
	if err != nil {
		h.respondFault(w, err)
		return
	}
	out := make([]violationJSON, 0, len(violations))
	for _, v := range violations {
		out = append(out, violationJSON{
			ID:          v.ID,
			Source:      v.Source,
			Endpoint:    v.Endpoint,
			TenantID:    v.TenantID,
			WorkspaceID: v.WorkspaceID,
			UserID:      v.UserID,
			Code:        string(v.Code),
			Message:     v.Message,
			Resolution:  string(v.Resolution),
			CreatedAt:   v.CreatedAt.Format(time.RFC3339),
		})
	}
	h.respondJSON(w, http.StatusOK, map[string]any{"violations": out})
}

type resolveViolationRequest struct {
	Status string `json:"status" validate:"required,oneof=RESOLVED IGNORED ESCALATED"`
}

func (h *Handler) handleResolveViolation(w http.ResponseWriter, r *http.Request) {
	var req resolveViolationRequest
	if err := h.readJSON(r, &req); err != nil {
		h.respondBadRequest(w, "invalid request body: "+err.Error())
		return
	}
	id := r.PathValue("id")
	if err := h.audit.ResolveViolation(r.Context(), id, gate.ResolutionStatus(req.Status)); err != nil {
		h.respondFault(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]any{"id": id, "resolution": req.Status})
}
