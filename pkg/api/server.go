package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/CivicMesh-Labs/quietgrid/core/pkg/allowance"
	"github.com/CivicMesh-Labs/quietgrid/core/pkg/contracts"
	"github.com/CivicMesh-Labs/quietgrid/core/pkg/governance"
	"github.com/CivicMesh-Labs/quietgrid/core/pkg/noise"
	"github.com/CivicMesh-Labs/quietgrid/core/pkg/permit"
	"github.com/CivicMesh-Labs/quietgrid/core/pkg/trading"
	"github.com/CivicMesh-Labs/quietgrid/core/pkg/zone"
)

// Server exposes the QuietGrid engines over HTTP JSON. Every mutating
// endpoint maps to exactly one state transition; the authenticated bearer
// subject is the transition's caller principal.
type Server struct {
	zones      *zone.Registry
	allowances *allowance.Ledger
	permits    *permit.Manager
	market     *trading.Engine
	gov        *governance.Engine
	monitor    *noise.Monitor
	tracer     trace.Tracer
	logger     *slog.Logger
}

// NewServer wires the engines into an HTTP server.
func NewServer(zones *zone.Registry, allowances *allowance.Ledger, permits *permit.Manager,
	market *trading.Engine, gov *governance.Engine, monitor *noise.Monitor, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		zones:      zones,
		allowances: allowances,
		permits:    permits,
		market:     market,
		gov:        gov,
		monitor:    monitor,
		tracer:     noop.NewTracerProvider().Tracer(""),
		logger:     logger,
	}
}

// WithTracer attaches an OpenTelemetry tracer; spans wrap each operation.
func (s *Server) WithTracer(tracer trace.Tracer) *Server {
	if tracer != nil {
		s.tracer = tracer
	}
	return s
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("POST /v1/zones", s.op("create_zone", s.handleCreateZone))
	mux.HandleFunc("GET /v1/zones/{id}", s.handleGetZone)
	mux.HandleFunc("GET /v1/zones/{id}/owner", s.handleGetZoneOwner)
	mux.HandleFunc("GET /v1/zones/{id}/fee", s.handleCalculateFee)

	mux.HandleFunc("POST /v1/zones/{id}/allowances", s.op("allocate", s.handleAllocate))
	mux.HandleFunc("POST /v1/zones/{id}/transfers", s.op("transfer", s.handleTransfer))
	mux.HandleFunc("GET /v1/zones/{id}/allowances/{holder}", s.handleGetAllowance)

	mux.HandleFunc("POST /v1/permits", s.op("apply_for_permit", s.handleApplyPermit))
	mux.HandleFunc("POST /v1/permits/{id}/approve", s.op("approve_permit", s.handleApprovePermit))
	mux.HandleFunc("GET /v1/permits/{id}", s.handleGetPermit)

	mux.HandleFunc("POST /v1/offers", s.op("create_trade_offer", s.handleCreateOffer))
	mux.HandleFunc("POST /v1/offers/{id}/accept", s.op("accept_trade_offer", s.handleAcceptOffer))
	mux.HandleFunc("GET /v1/offers/{id}", s.handleGetOffer)
	mux.HandleFunc("GET /v1/tokens/last", s.handleLastTokenID)
	mux.HandleFunc("GET /v1/tokens/{id}/owner", s.handleTokenOwner)
	mux.HandleFunc("GET /v1/tokens/{id}/uri", s.handleTokenURI)

	mux.HandleFunc("POST /v1/proposals", s.op("create_proposal", s.handleCreateProposal))
	mux.HandleFunc("POST /v1/proposals/{id}/votes", s.op("vote", s.handleVote))
	mux.HandleFunc("POST /v1/proposals/{id}/execute", s.op("execute_proposal", s.handleExecute))
	mux.HandleFunc("GET /v1/proposals/{id}", s.handleGetProposal)
	mux.HandleFunc("GET /v1/proposals/{id}/votes/{voter}", s.handleGetVote)

	mux.HandleFunc("POST /v1/zones/{id}/readings", s.op("report_noise", s.handleReportNoise))
	mux.HandleFunc("GET /v1/zones/{id}/readings/{height}", s.handleGetReading)

	return s.logRequests(mux)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}

// op wraps a mutating handler in a span named after the state transition.
func (s *Server) op(name string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := s.tracer.Start(r.Context(), name,
			trace.WithAttributes(attribute.String("http.route", r.URL.Path)))
		defer span.End()

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		h(sw, r.WithContext(ctx))
		if sw.status >= 400 {
			span.SetStatus(codes.Error, http.StatusText(sw.status))
		}
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func pathID(r *http.Request, name string) (uint64, bool) {
	id, err := strconv.ParseUint(r.PathValue(name), 10, 64)
	return id, err == nil
}

func decode(r *http.Request, v interface{}) error {
	defer func() { _ = r.Body.Close() }()
	return json.NewDecoder(r.Body).Decode(v)
}

func caller(w http.ResponseWriter, r *http.Request) (contracts.Principal, bool) {
	p, err := GetPrincipal(r.Context())
	if err != nil {
		WriteUnauthorized(w, r, "no authenticated caller")
		return "", false
	}
	return p, true
}

// --- zones ---

func (s *Server) handleCreateZone(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	var req struct {
		Name        string `json:"name"`
		MaxDecibel  uint64 `json:"max_decibel"`
		IsQuietZone bool   `json:"is_quiet_zone"`
	}
	if err := decode(r, &req); err != nil {
		WriteBadRequest(w, r, err.Error())
		return
	}
	id, err := s.zones.CreateZone(r.Context(), p, req.Name, req.MaxDecibel, req.IsQuietZone)
	if err != nil {
		WriteLedgerError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, map[string]uint64{"zone_id": id})
}

func (s *Server) handleGetZone(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		WriteBadRequest(w, r, "invalid zone id")
		return
	}
	z, err := s.zones.Get(r.Context(), id)
	if err != nil {
		WriteLedgerError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, z)
}

func (s *Server) handleGetZoneOwner(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		WriteBadRequest(w, r, "invalid zone id")
		return
	}
	owner, err := s.zones.Owner(r.Context(), id)
	if err != nil {
		WriteLedgerError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"owner": string(owner)})
}

func (s *Server) handleCalculateFee(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		WriteBadRequest(w, r, "invalid zone id")
		return
	}
	q := r.URL.Query()
	decibels, err1 := strconv.ParseUint(q.Get("decibels"), 10, 64)
	duration, err2 := strconv.ParseUint(q.Get("duration"), 10, 64)
	if err1 != nil || err2 != nil {
		WriteBadRequest(w, r, "decibels and duration query params required")
		return
	}
	fee, err := s.permits.CalculateFee(r.Context(), id, decibels, duration)
	if err != nil {
		WriteLedgerError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]uint64{"fee": fee})
}

// --- allowances ---

func (s *Server) handleAllocate(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	zoneID, ok := pathID(r, "id")
	if !ok {
		WriteBadRequest(w, r, "invalid zone id")
		return
	}
	var req struct {
		Recipient      string `json:"recipient"`
		Amount         uint64 `json:"amount"`
		DurationBlocks uint64 `json:"duration_blocks"`
	}
	if err := decode(r, &req); err != nil {
		WriteBadRequest(w, r, err.Error())
		return
	}
	err := s.allowances.Allocate(r.Context(), p, zoneID, contracts.Principal(req.Recipient), req.Amount, req.DurationBlocks)
	if err != nil {
		WriteLedgerError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, map[string]string{"status": "allocated"})
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	zoneID, ok := pathID(r, "id")
	if !ok {
		WriteBadRequest(w, r, "invalid zone id")
		return
	}
	var req struct {
		Recipient string `json:"recipient"`
		Amount    uint64 `json:"amount"`
	}
	if err := decode(r, &req); err != nil {
		WriteBadRequest(w, r, err.Error())
		return
	}
	if err := s.allowances.Transfer(r.Context(), zoneID, p, contracts.Principal(req.Recipient), req.Amount); err != nil {
		WriteLedgerError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "transferred"})
}

func (s *Server) handleGetAllowance(w http.ResponseWriter, r *http.Request) {
	zoneID, ok := pathID(r, "id")
	if !ok {
		WriteBadRequest(w, r, "invalid zone id")
		return
	}
	a, err := s.allowances.Get(r.Context(), zoneID, contracts.Principal(r.PathValue("holder")))
	if err != nil {
		WriteLedgerError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, a)
}

// --- permits ---

func (s *Server) handleApplyPermit(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	var req struct {
		ZoneID            uint64 `json:"zone_id"`
		RequestedDecibels uint64 `json:"requested_decibels"`
		DurationBlocks    uint64 `json:"duration_blocks"`
	}
	if err := decode(r, &req); err != nil {
		WriteBadRequest(w, r, err.Error())
		return
	}
	id, err := s.permits.Apply(r.Context(), p, req.ZoneID, req.RequestedDecibels, req.DurationBlocks)
	if err != nil {
		WriteLedgerError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, map[string]uint64{"permit_id": id})
}

func (s *Server) handleApprovePermit(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		WriteBadRequest(w, r, "invalid permit id")
		return
	}
	if err := s.permits.Approve(r.Context(), p, id); err != nil {
		WriteLedgerError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "approved"})
}

func (s *Server) handleGetPermit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		WriteBadRequest(w, r, "invalid permit id")
		return
	}
	perm, err := s.permits.Get(r.Context(), id)
	if err != nil {
		WriteLedgerError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, perm)
}

// --- trading ---

func (s *Server) handleCreateOffer(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	var req struct {
		ZoneID        uint64 `json:"zone_id"`
		DecibelAmount uint64 `json:"decibel_amount"`
		Price         uint64 `json:"price"`
	}
	if err := decode(r, &req); err != nil {
		WriteBadRequest(w, r, err.Error())
		return
	}
	id, err := s.market.CreateOffer(r.Context(), p, req.ZoneID, req.DecibelAmount, req.Price)
	if err != nil {
		WriteLedgerError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, map[string]uint64{"token_id": id})
}

func (s *Server) handleAcceptOffer(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		WriteBadRequest(w, r, "invalid token id")
		return
	}
	if err := s.market.AcceptOffer(r.Context(), p, id); err != nil {
		WriteLedgerError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "settled"})
}

func (s *Server) handleGetOffer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		WriteBadRequest(w, r, "invalid token id")
		return
	}
	o, err := s.market.GetOffer(r.Context(), id)
	if err != nil {
		WriteLedgerError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, o)
}

func (s *Server) handleLastTokenID(w http.ResponseWriter, r *http.Request) {
	last, err := s.market.LastTokenID(r.Context())
	if err != nil {
		WriteLedgerError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]uint64{"last_token_id": last})
}

func (s *Server) handleTokenOwner(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		WriteBadRequest(w, r, "invalid token id")
		return
	}
	owner, err := s.market.TokenOwner(r.Context(), id)
	if err != nil {
		WriteLedgerError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"owner": string(owner)})
}

func (s *Server) handleTokenURI(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		WriteBadRequest(w, r, "invalid token id")
		return
	}
	uri, err := s.market.TokenURI(r.Context(), id)
	if err != nil {
		WriteLedgerError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"uri": uri})
}

// --- governance ---

func (s *Server) handleCreateProposal(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	var req struct {
		ZoneID             uint64 `json:"zone_id"`
		Title              string `json:"title"`
		Description        string `json:"description"`
		ProposedMaxDecibel uint64 `json:"proposed_max_decibel"`
	}
	if err := decode(r, &req); err != nil {
		WriteBadRequest(w, r, err.Error())
		return
	}
	id, err := s.gov.CreateProposal(r.Context(), p, req.ZoneID, req.Title, req.Description, req.ProposedMaxDecibel)
	if err != nil {
		WriteLedgerError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, map[string]uint64{"proposal_id": id})
}

func (s *Server) handleVote(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		WriteBadRequest(w, r, "invalid proposal id")
		return
	}
	var req struct {
		Support bool `json:"support"`
	}
	if err := decode(r, &req); err != nil {
		WriteBadRequest(w, r, err.Error())
		return
	}
	if err := s.gov.CastVote(r.Context(), p, id, req.Support); err != nil {
		WriteLedgerError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, map[string]string{"status": "recorded"})
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		WriteBadRequest(w, r, "invalid proposal id")
		return
	}
	if err := s.gov.Execute(r.Context(), p, id); err != nil {
		WriteLedgerError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "executed"})
}

func (s *Server) handleGetProposal(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		WriteBadRequest(w, r, "invalid proposal id")
		return
	}
	prop, err := s.gov.GetProposal(r.Context(), id)
	if err != nil {
		WriteLedgerError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, prop)
}

func (s *Server) handleGetVote(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		WriteBadRequest(w, r, "invalid proposal id")
		return
	}
	v, err := s.gov.GetVote(r.Context(), id, contracts.Principal(r.PathValue("voter")))
	if err != nil {
		WriteLedgerError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, v)
}

// --- noise ---

func (s *Server) handleReportNoise(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	zoneID, ok := pathID(r, "id")
	if !ok {
		WriteBadRequest(w, r, "invalid zone id")
		return
	}
	var req struct {
		Level uint64 `json:"level"`
	}
	if err := decode(r, &req); err != nil {
		WriteBadRequest(w, r, err.Error())
		return
	}
	if err := s.monitor.Report(r.Context(), p, zoneID, req.Level); err != nil {
		WriteLedgerError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, map[string]string{"status": "recorded"})
}

func (s *Server) handleGetReading(w http.ResponseWriter, r *http.Request) {
	zoneID, ok := pathID(r, "id")
	if !ok {
		WriteBadRequest(w, r, "invalid zone id")
		return
	}
	height, ok := pathID(r, "height")
	if !ok {
		WriteBadRequest(w, r, "invalid height")
		return
	}
	reading, err := s.monitor.Get(r.Context(), zoneID, height)
	if err != nil {
		WriteLedgerError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, reading)
}
