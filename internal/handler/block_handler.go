package handler

import (
	"net/http"

	"duochat/internal/pkg/auth/jwt"
	"duochat/internal/pkg/errs"
	"duochat/internal/pkg/req"
	"duochat/internal/pkg/resp"
)

// blockRequest is the body of block and unblock requests. The blocker field
// must match the caller's token identity.
type blockRequest struct {
	Blocker string `json:"blocker"`
	Blocked string `json:"blocked"`
}

// HandleBlock records a block relation and notifies both live sessions.
func HandleBlock(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reqBody, customErr := bindBlockRequest(r)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if customErr := deps.Gateway.Blocks().Block(r.Context(), reqBody.Blocker, reqBody.Blocked); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondSuccess(w, r, nil)
	}
}

// HandleUnblock removes a block relation and notifies both live sessions.
func HandleUnblock(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reqBody, customErr := bindBlockRequest(r)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if customErr := deps.Gateway.Blocks().Unblock(r.Context(), reqBody.Blocker, reqBody.Blocked); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondSuccess(w, r, nil)
	}
}

// HandleListBlocked returns every identity the caller has blocked.
func HandleListBlocked(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := jwt.GetPayloadFromContext(r)
		if payload == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		blocked, customErr := deps.Gateway.Blocks().ListBlockedBy(r.Context(), payload.Identity)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"blocked": blocked,
		})
	}
}

// bindBlockRequest parses a block mutation body and checks that the caller is
// acting as themselves.
func bindBlockRequest(r *http.Request) (*blockRequest, *errs.CustomError) {
	payload := jwt.GetPayloadFromContext(r)
	if payload == nil {
		return nil, errs.NewError(errs.ErrUnauthorized)
	}

	var reqBody blockRequest
	if customErr := req.BindJSON(r, &reqBody); customErr != nil {
		return nil, customErr
	}

	if reqBody.Blocker != payload.Identity {
		return nil, errs.NewError(errs.ErrIdentityMismatch)
	}

	return &reqBody, nil
}
