package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/opensource-welfare/kestrel/internal/auth"
	"github.com/opensource-welfare/kestrel/internal/domain"
	"github.com/opensource-welfare/kestrel/internal/engine"
	"github.com/opensource-welfare/kestrel/internal/repository"
	"github.com/opensource-welfare/kestrel/internal/rules"
)

// Handler holds dependencies for API handlers.
type Handler struct {
	repo    domain.Repository
	cache   domain.Cache
	bus     domain.EventBus
	engine  *engine.Engine
	custom  *rules.CustomEngine
	auth    *auth.Service
	version string

	// verifyRoll drives the simulated identity verification outcome.
	// Swappable in tests.
	verifyRoll func() float64
}

// NewHandler creates a new API handler.
func NewHandler(repo domain.Repository, cache domain.Cache, bus domain.EventBus, eng *engine.Engine, custom *rules.CustomEngine, authSvc *auth.Service, version string) *Handler {
	return &Handler{
		repo:       repo,
		cache:      cache,
		bus:        bus,
		engine:     eng,
		custom:     custom,
		auth:       authSvc,
		version:    version,
		verifyRoll: rand.Float64,
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// ============================================================================
// AUTH
// ============================================================================

// RegisterRequest is the request body for POST /api/auth/register.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role,omitempty"`
}

// Register creates a new operator account.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}
	if req.Email == "" || req.Password == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "email, password, and name are required")
		return
	}
	if len(req.Password) < 8 {
		writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	if _, err := h.repo.GetAdminByEmail(ctx, req.Email); err == nil {
		writeError(w, http.StatusConflict, "email is already registered")
		return
	} else if !errors.Is(err, repository.ErrNotFound) {
		slog.Error("failed to check admin email", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to register")
		return
	}

	hash, err := h.auth.HashPassword(req.Password)
	if err != nil {
		slog.Error("failed to hash password", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to register")
		return
	}

	role := req.Role
	if role == "" {
		role = "admin"
	}

	admin := &domain.Admin{
		ID:           uuid.New().String(),
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}
	if err := h.repo.SaveAdmin(ctx, admin); err != nil {
		slog.Error("failed to save admin", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to register")
		return
	}

	slog.Info("admin registered", "email", admin.Email)
	writeJSON(w, http.StatusCreated, admin)
}

// LoginRequest is the request body for POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates an operator and issues an access token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}

	admin, err := h.repo.GetAdminByEmail(ctx, req.Email)
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err != nil {
		slog.Error("failed to load admin", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to log in")
		return
	}

	if err := h.auth.CheckPassword(admin.PasswordHash, req.Password); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, expiresAt, err := h.auth.IssueToken(admin)
	if err != nil {
		slog.Error("failed to issue token", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to log in")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token":     token,
		"expiresAt": expiresAt.UTC(),
		"admin":     admin,
	})
}

// ============================================================================
// SUBJECTS
// ============================================================================

// SubjectRequest is the request body for POST /api/subjects.
type SubjectRequest struct {
	NationalID     string  `json:"nationalId"`
	Name           string  `json:"name"`
	Address        string  `json:"address"`
	District       string  `json:"district"`
	State          string  `json:"state"`
	Phone          string  `json:"phone,omitempty"`
	FamilySize     int     `json:"familySize"`
	DeclaredIncome float64 `json:"declaredIncome"`
	CardType       string  `json:"cardType"`
}

// CreateSubject registers a beneficiary and immediately scans it.
func (h *Handler) CreateSubject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req SubjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}
	if req.NationalID == "" || req.Name == "" || req.Address == "" {
		writeError(w, http.StatusBadRequest, "nationalId, name, and address are required")
		return
	}
	switch req.CardType {
	case domain.CardTypeBPL, domain.CardTypeAPL, domain.CardTypeAAY:
	case "":
		req.CardType = domain.CardTypeBPL
	default:
		writeError(w, http.StatusBadRequest, "cardType must be BPL, APL, or AAY")
		return
	}

	now := time.Now().UTC()
	subject := &domain.Subject{
		ID:             uuid.New().String(),
		NationalID:     req.NationalID,
		Name:           req.Name,
		Address:        req.Address,
		District:       req.District,
		State:          req.State,
		Phone:          req.Phone,
		FamilySize:     req.FamilySize,
		DeclaredIncome: req.DeclaredIncome,
		CardType:       req.CardType,
		Status:         domain.SubjectActive,
		Verification:   domain.VerificationPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := h.repo.SaveSubject(ctx, subject); err != nil {
		slog.Error("failed to save subject", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create subject")
		return
	}

	if h.bus != nil {
		if payload, err := json.Marshal(subject); err == nil {
			if err := h.bus.Publish(ctx, domain.TopicSubjectCreated, payload); err != nil {
				slog.Warn("failed to publish subject created event", "error", err)
			}
		}
	}

	// Registration scan catches duplicates up front. Failures here do
	// not fail the registration.
	scan, err := h.engine.ScanSubject(ctx, subject.ID)
	if err != nil {
		slog.Warn("registration scan failed", "subject_id", subject.ID, "error", err)
		scan = nil
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"subject": subject,
		"scan":    scan,
	})
}

// ListSubjects returns subjects, optionally filtered.
func (h *Handler) ListSubjects(w http.ResponseWriter, r *http.Request) {
	filter := domain.SubjectFilter{
		Status: domain.SubjectStatus(r.URL.Query().Get("status")),
		Search: r.URL.Query().Get("search"),
	}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		filter.Limit = n
	}

	subjects, err := h.repo.ListSubjects(r.Context(), filter)
	if err != nil {
		slog.Error("failed to list subjects", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list subjects")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"subjects": subjects,
		"count":    len(subjects),
	})
}

// GetSubject returns one subject with its entitlement cards.
func (h *Handler) GetSubject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	subject, err := h.repo.GetSubject(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, "subject not found")
		return
	}
	if err != nil {
		slog.Error("failed to get subject", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get subject")
		return
	}

	cards, err := h.repo.ListCardsBySubject(ctx, id)
	if err != nil {
		slog.Error("failed to list cards", "subject_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get subject")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"subject": subject,
		"cards":   cards,
	})
}

// UpdateSubjectStatus handles PATCH /api/subjects/{id}/status.
func (h *Handler) UpdateSubjectStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		Status domain.SubjectStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}
	switch req.Status {
	case domain.SubjectActive, domain.SubjectSuspended, domain.SubjectFlagged:
	default:
		writeError(w, http.StatusBadRequest, "status must be active, suspended, or flagged")
		return
	}

	err := h.repo.UpdateSubjectStatus(r.Context(), id, req.Status)
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, "subject not found")
		return
	}
	if err != nil {
		slog.Error("failed to update subject status", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update status")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":     id,
		"status": req.Status,
	})
}

// VerifySubject simulates an identity verification check. Roughly nine
// in ten checks succeed; the outcome is stored on the subject.
func (h *Handler) VerifySubject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	if _, err := h.repo.GetSubject(ctx, id); errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, "subject not found")
		return
	} else if err != nil {
		slog.Error("failed to get subject", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to verify subject")
		return
	}

	outcome := domain.VerificationVerified
	if h.verifyRoll() >= 0.9 {
		outcome = domain.VerificationRejected
	}

	if err := h.repo.UpdateSubjectVerification(ctx, id, outcome); err != nil {
		slog.Error("failed to update verification", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to verify subject")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":           id,
		"verification": outcome,
	})
}

// ============================================================================
// TRANSACTIONS
// ============================================================================

// CreateTransaction records a distribution and scores it.
func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req domain.TransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}
	if req.SubjectID == "" || req.ShopID == "" {
		writeError(w, http.StatusBadRequest, "subjectId and shopId are required")
		return
	}
	if len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, "at least one item is required")
		return
	}

	if _, err := h.repo.GetSubject(ctx, req.SubjectID); errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, "subject not found")
		return
	} else if err != nil {
		slog.Error("failed to get subject", "id", req.SubjectID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to record transaction")
		return
	}

	tx := req.ToTransaction()
	tx.ID = uuid.New().String()

	if err := h.repo.SaveTransaction(ctx, tx); err != nil {
		slog.Error("failed to save transaction", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to record transaction")
		return
	}

	// Scoring is best effort. The distribution is already recorded;
	// a scoring failure must not roll it back.
	confidence, err := h.engine.ScoreTransaction(ctx, tx)
	if err != nil {
		slog.Warn("transaction scoring failed", "transaction_id", tx.ID, "error", err)
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"transaction":     tx,
		"fraudConfidence": confidence,
	})
}

// ListTransactions returns the most recent distributions.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	txs, err := h.repo.ListTransactions(r.Context(), limit)
	if err != nil {
		slog.Error("failed to list transactions", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list transactions")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"transactions": txs,
		"count":        len(txs),
	})
}

// ============================================================================
// FRAUD ALERTS
// ============================================================================

// ListAlerts returns fraud alerts, optionally filtered by status.
func (h *Handler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	status := domain.AlertStatus(r.URL.Query().Get("status"))

	alerts, err := h.repo.ListAlerts(r.Context(), status)
	if err != nil {
		slog.Error("failed to list alerts", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list alerts")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

// ResolveAlert handles PATCH /api/fraud-alerts/{id}. Confirming an
// alert flags the subject.
func (h *Handler) ResolveAlert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	var req struct {
		Status domain.AlertStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}
	if req.Status != domain.AlertConfirmed && req.Status != domain.AlertDismissed {
		writeError(w, http.StatusBadRequest, "status must be confirmed or dismissed")
		return
	}

	alert, err := h.repo.GetAlert(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, "alert not found")
		return
	}
	if err != nil {
		slog.Error("failed to get alert", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to resolve alert")
		return
	}

	resolvedBy := ""
	if claims := GetClaims(ctx); claims != nil {
		resolvedBy = claims.Email
	}

	if err := h.repo.UpdateAlertStatus(ctx, id, req.Status, resolvedBy); err != nil {
		slog.Error("failed to update alert", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to resolve alert")
		return
	}

	// A confirmed alert flags the subject for review.
	if req.Status == domain.AlertConfirmed {
		if err := h.repo.UpdateSubjectStatus(ctx, alert.SubjectID, domain.SubjectFlagged); err != nil {
			slog.Error("failed to flag subject", "subject_id", alert.SubjectID, "error", err)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":     id,
		"status": req.Status,
	})
}

// ScanSubject handles POST /api/fraud-alerts/scan/{subjectID}.
func (h *Handler) ScanSubject(w http.ResponseWriter, r *http.Request) {
	subjectID := chi.URLParam(r, "subjectID")

	result, err := h.engine.ScanSubject(r.Context(), subjectID)
	if err != nil {
		slog.Error("scan failed", "subject_id", subjectID, "error", err)
		writeError(w, http.StatusInternalServerError, "scan failed")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Rescan queues a scan for every subject via the event bus.
func (h *Handler) Rescan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.bus == nil {
		writeError(w, http.StatusServiceUnavailable, "event bus not available")
		return
	}

	subjects, err := h.repo.ListSubjects(ctx, domain.SubjectFilter{})
	if err != nil {
		slog.Error("failed to list subjects for rescan", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to queue rescan")
		return
	}

	queued := 0
	for _, s := range subjects {
		payload, err := json.Marshal(domain.ScanRequest{SubjectID: s.ID})
		if err != nil {
			continue
		}
		if err := h.bus.Publish(ctx, domain.TopicScanRequest, payload); err != nil {
			slog.Warn("failed to queue scan", "subject_id", s.ID, "error", err)
			continue
		}
		queued++
	}

	slog.Info("bulk rescan queued", "subjects", queued)
	writeJSON(w, http.StatusAccepted, map[string]any{
		"queued": queued,
	})
}

// ============================================================================
// ANALYTICS
// ============================================================================

// Dashboard returns headline counts for the review console.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.repo.DashboardStats(r.Context())
	if err != nil {
		slog.Error("failed to load dashboard stats", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load dashboard")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// FraudByType returns alert counts grouped by fraud type.
func (h *Handler) FraudByType(w http.ResponseWriter, r *http.Request) {
	counts, err := h.repo.AlertCountsByType(r.Context())
	if err != nil {
		slog.Error("failed to load fraud-by-type", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load analytics")
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

// FraudByDistrict returns alert counts grouped by subject district.
func (h *Handler) FraudByDistrict(w http.ResponseWriter, r *http.Request) {
	counts, err := h.repo.AlertCountsByDistrict(r.Context())
	if err != nil {
		slog.Error("failed to load fraud-by-district", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load analytics")
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

// TransactionsTrend returns daily distribution volumes.
func (h *Handler) TransactionsTrend(w http.ResponseWriter, r *http.Request) {
	days := 30
	if q := r.URL.Query().Get("days"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		days = n
	}

	trend, err := h.repo.TransactionTrend(r.Context(), days)
	if err != nil {
		slog.Error("failed to load transaction trend", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load analytics")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"days":  days,
		"trend": trend,
	})
}

// ============================================================================
// ML
// ============================================================================

// TrainModel retrains the anomaly model on the stored history.
func (h *Handler) TrainModel(w http.ResponseWriter, r *http.Request) {
	trained, samples, err := h.engine.Train(r.Context())
	if err != nil {
		slog.Error("training failed", "error", err)
		writeError(w, http.StatusInternalServerError, "training failed")
		return
	}

	resp := map[string]any{
		"trained": trained,
		"samples": samples,
	}
	if !trained {
		resp["message"] = "not enough transactions to train"
	}
	writeJSON(w, http.StatusOK, resp)
}

// ModelStatus returns the anomaly model's training state.
func (h *Handler) ModelStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.ModelStatus())
}

// ============================================================================
// SHOPS
// ============================================================================

// ListShops returns all distribution outlets.
func (h *Handler) ListShops(w http.ResponseWriter, r *http.Request) {
	shops, err := h.repo.ListShops(r.Context())
	if err != nil {
		slog.Error("failed to list shops", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list shops")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"shops": shops,
		"count": len(shops),
	})
}

// ============================================================================
// CUSTOM RULES
// ============================================================================

// ListRules returns the rules currently loaded in the custom engine.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	if h.custom == nil {
		writeError(w, http.StatusServiceUnavailable, "custom rule engine not available")
		return
	}

	loaded := h.custom.GetLoadedRules()
	writeJSON(w, http.StatusOK, map[string]any{
		"rules": loaded,
		"count": len(loaded),
	})
}

// CreateRuleRequest is the request body for creating a custom rule.
type CreateRuleRequest struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Expression  string  `json:"expression"`
	Confidence  float64 `json:"confidence"`
	Enabled     bool    `json:"enabled"`
}

// CreateRule validates, persists, and loads a custom CEL rule.
func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.custom == nil {
		writeError(w, http.StatusServiceUnavailable, "custom rule engine not available")
		return
	}

	var req CreateRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}
	if req.ID == "" || req.Name == "" || req.Expression == "" {
		writeError(w, http.StatusBadRequest, "id, name, and expression are required")
		return
	}
	if req.Confidence <= 0 || req.Confidence > 1 {
		writeError(w, http.StatusBadRequest, "confidence must be in (0, 1]")
		return
	}

	cfg := &domain.RuleConfig{
		ID:          req.ID,
		Name:        req.Name,
		Description: req.Description,
		Expression:  req.Expression,
		Confidence:  req.Confidence,
		Enabled:     req.Enabled,
	}

	if err := h.custom.ValidateRule(cfg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid CEL expression: "+err.Error())
		return
	}

	if err := h.repo.SaveRuleConfig(ctx, cfg); err != nil {
		slog.Error("failed to save rule config", "id", cfg.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save rule")
		return
	}

	if cfg.Enabled {
		if err := h.custom.LoadRule(cfg); err != nil {
			slog.Error("failed to load rule", "id", cfg.ID, "error", err)
		}
	}

	slog.Info("custom rule created", "id", cfg.ID, "name", cfg.Name)
	writeJSON(w, http.StatusCreated, cfg)
}

// ReloadRules reloads all enabled rules from the database.
func (h *Handler) ReloadRules(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.custom == nil {
		writeError(w, http.StatusServiceUnavailable, "custom rule engine not available")
		return
	}

	configs, err := h.repo.ListRuleConfigs(ctx)
	if err != nil {
		slog.Error("failed to list rule configs", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load rules from database")
		return
	}

	if err := h.custom.ReloadRules(configs); err != nil {
		slog.Error("failed to reload rules", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to reload rules: "+err.Error())
		return
	}

	slog.Info("custom rules reloaded", "count", len(configs))
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "rules reloaded successfully",
		"count":   len(configs),
	})
}

// ============================================================================
// HEALTH
// ============================================================================

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}
	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"ready": "false",
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}
