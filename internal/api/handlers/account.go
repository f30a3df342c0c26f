package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sellerhub/backend/internal/api/dto"
	"github.com/sellerhub/backend/internal/domain/credential"
	"github.com/sellerhub/backend/internal/pkg/errors"
	"github.com/sellerhub/backend/internal/pkg/logger"
	"github.com/sellerhub/backend/internal/pkg/utils"
	"github.com/sellerhub/backend/internal/pkg/validator"
	"github.com/sellerhub/backend/internal/services"
)

// AccountHandler handles account linking, sync and data endpoints
type AccountHandler struct {
	creds        credential.Store
	tokens       *services.TokenManager
	orchestrator *services.Orchestrator
	logger       *logger.Logger
	validator    *validator.Validator
}

// NewAccountHandler creates an account handler
func NewAccountHandler(
	creds credential.Store,
	tokens *services.TokenManager,
	orch *services.Orchestrator,
	log *logger.Logger,
	val *validator.Validator,
) *AccountHandler {
	return &AccountHandler{
		creds:        creds,
		tokens:       tokens,
		orchestrator: orch,
		logger:       log,
		validator:    val,
	}
}

// List returns the metadata of every linked account
func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	records, err := h.creds.List(r.Context())
	if err != nil {
		h.logger.ErrorWithErr(err, "Failed to list accounts")
		utils.WriteError(w, err)
		return
	}

	dtos := make([]dto.AccountDTO, len(records))
	for i, rec := range records {
		dtos[i] = dto.NewAccountDTO(rec)
	}
	utils.WriteSuccess(w, http.StatusOK, dtos)
}

// Connect starts the OAuth link flow and returns the authorization URL
func (h *AccountHandler) Connect(w http.ResponseWriter, r *http.Request) {
	url, state, err := h.orchestrator.ConnectAccount("")
	if err != nil {
		h.logger.ErrorWithErr(err, "Failed to build authorization URL")
		utils.WriteError(w, err)
		return
	}

	utils.WriteSuccess(w, http.StatusOK, dto.ConnectResponse{
		AuthorizationURL: url,
		State:            state,
	})
}

// Callback completes the OAuth link flow. The code is exchanged by the
// trusted backend and never logged here.
func (h *AccountHandler) Callback(w http.ResponseWriter, r *http.Request) {
	req := dto.CallbackRequest{
		Code:  r.URL.Query().Get("code"),
		State: r.URL.Query().Get("state"),
	}
	if req.Code == "" && req.State == "" {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.WriteError(w, errors.BadRequest("invalid request body"))
			return
		}
	}
	if errs := h.validator.Validate(req); len(errs) > 0 {
		utils.WriteError(w, errors.Validation("validation failed", errs))
		return
	}

	cred, err := h.tokens.HandleCallback(r.Context(), req.Code, req.State)
	if err != nil {
		h.logger.ErrorWithErr(err, "Account link failed")
		utils.WriteError(w, err)
		return
	}

	if err := h.orchestrator.RegisterAccount(r.Context(), cred.AccountID); err != nil {
		h.logger.WithFields(map[string]interface{}{
			"account_id": cred.AccountID,
		}).ErrorWithErr(err, "Linked account could not be registered")
	}

	utils.WriteSuccess(w, http.StatusCreated, dto.NewAccountDTO(cred))
}

// Disconnect unlinks an account and removes all its stored data
func (h *AccountHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "id")
	if err := h.orchestrator.DisconnectAccount(r.Context(), accountID); err != nil {
		h.logger.WithFields(map[string]interface{}{
			"account_id": accountID,
		}).ErrorWithErr(err, "Failed to disconnect account")
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccessWithMessage(w, http.StatusOK, "account disconnected", nil)
}

// Sync triggers a sync run for one account
func (h *AccountHandler) Sync(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "id")
	if err := h.orchestrator.SyncAccount(r.Context(), accountID); err != nil {
		utils.WriteError(w, err)
		return
	}

	state, err := h.orchestrator.SyncStatus(accountID)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, dto.NewSyncStateDTO(state))
}

// SyncAll triggers a sync run for every linked account
func (h *AccountHandler) SyncAll(w http.ResponseWriter, r *http.Request) {
	h.orchestrator.SyncAll(r.Context())
	h.Statuses(w, r)
}

// Status returns the sync state of one account
func (h *AccountHandler) Status(w http.ResponseWriter, r *http.Request) {
	state, err := h.orchestrator.SyncStatus(chi.URLParam(r, "id"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, dto.NewSyncStateDTO(state))
}

// Statuses returns the sync state of every account
func (h *AccountHandler) Statuses(w http.ResponseWriter, r *http.Request) {
	states := h.orchestrator.SyncStatuses()
	dtos := make(map[string]dto.SyncStateDTO, len(states))
	for id, state := range states {
		dtos[id] = dto.NewSyncStateDTO(state)
	}
	utils.WriteSuccess(w, http.StatusOK, dtos)
}

// Data returns the last persisted snapshot for an account
func (h *AccountHandler) Data(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "id")
	snap, err := h.orchestrator.AccountData(r.Context(), accountID)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	if snap == nil {
		utils.WriteError(w, errors.NotFound("snapshot"))
		return
	}
	utils.WriteSuccess(w, http.StatusOK, snap)
}
