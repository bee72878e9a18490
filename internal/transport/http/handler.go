package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	id "healthnet/pkg/domain"
	dErrors "healthnet/pkg/domain-errors"
	"healthnet/pkg/platform/httputil"
	"healthnet/pkg/requestcontext"
)

// Verifier defines the verification operations exposed to operators.
type Verifier interface {
	AttemptAutoVerify(ctx context.Context, workerID id.WorkerID) (bool, error)
	MarkManuallyVerified(ctx context.Context, workerID id.WorkerID, notes string) error
	MatchedName(ctx context.Context, workerID id.WorkerID) (string, bool, error)
}

// Membership defines the closed user group operations exposed to operators.
type Membership interface {
	SetClosedUserGroup(ctx context.Context, workerID id.WorkerID, enabled bool) error
	RequestClosedUserGroup(ctx context.Context, workerID id.WorkerID) error
}

// Handler wires operator endpoints to the verification and membership
// services.
type Handler struct {
	verifier   Verifier
	membership Membership
	logger     *slog.Logger
}

func NewHandler(verifier Verifier, membership Membership, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{verifier: verifier, membership: membership, logger: logger}
}

// Register mounts the worker endpoints on r.
func (h *Handler) Register(r chi.Router) {
	r.Route("/workers/{id}", func(r chi.Router) {
		r.Post("/verify", h.handleVerify)
		r.Post("/manual-verification", h.handleManualVerification)
		r.Get("/matched-name", h.handleMatchedName)
		r.Put("/closed-user-group", h.handleSetClosedUserGroup)
		r.Post("/closed-user-group/request", h.handleRequestClosedUserGroup)
	})
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	workerID, ok := h.workerID(w, r)
	if !ok {
		return
	}
	start := time.Now()

	verified, err := h.verifier.AttemptAutoVerify(ctx, workerID)
	if err != nil {
		h.fail(w, r, "auto verification failed", workerID, err)
		return
	}
	h.logger.InfoContext(ctx, "auto verification requested",
		"request_id", requestcontext.RequestID(ctx),
		"actor_id", requestcontext.ActorID(ctx),
		"worker_id", workerID,
		"verified", verified,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, VerifyResponse{WorkerID: int64(workerID), Verified: verified})
}

func (h *Handler) handleManualVerification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	workerID, ok := h.workerID(w, r)
	if !ok {
		return
	}
	req, err := httputil.DecodeJSON[ManualVerificationRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.verifier.MarkManuallyVerified(ctx, workerID, req.Notes); err != nil {
		h.fail(w, r, "manual verification failed", workerID, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMatchedName(w http.ResponseWriter, r *http.Request) {
	workerID, ok := h.workerID(w, r)
	if !ok {
		return
	}
	name, found, err := h.verifier.MatchedName(r.Context(), workerID)
	if err != nil {
		h.fail(w, r, "matched name lookup failed", workerID, err)
		return
	}
	if !found {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "worker was not verified by name"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, MatchedNameResponse{WorkerID: int64(workerID), Name: name})
}

func (h *Handler) handleSetClosedUserGroup(w http.ResponseWriter, r *http.Request) {
	workerID, ok := h.workerID(w, r)
	if !ok {
		return
	}
	req, err := httputil.DecodeJSON[ClosedUserGroupRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.membership.SetClosedUserGroup(r.Context(), workerID, *req.Enabled); err != nil {
		h.fail(w, r, "closed user group change failed", workerID, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRequestClosedUserGroup(w http.ResponseWriter, r *http.Request) {
	workerID, ok := h.workerID(w, r)
	if !ok {
		return
	}
	if err := h.membership.RequestClosedUserGroup(r.Context(), workerID); err != nil {
		h.fail(w, r, "closed user group request failed", workerID, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) workerID(w http.ResponseWriter, r *http.Request) (id.WorkerID, bool) {
	n, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || n <= 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "worker id must be a positive integer"))
		return 0, false
	}
	return id.WorkerID(n), true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, msg string, workerID id.WorkerID, err error) {
	ctx := r.Context()
	level := slog.LevelWarn
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		level = slog.LevelError
	}
	h.logger.Log(ctx, level, msg,
		"request_id", requestcontext.RequestID(ctx),
		"worker_id", workerID,
		"error", err,
	)
	httputil.WriteError(w, err)
}
