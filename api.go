/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
)

const maxClaimBody = 4 << 10

type claimRequest struct {
	Name string `json:"name"`
}

type claimResponse struct {
	OK   bool   `json:"ok"`
	Name string `json:"name,omitempty"`
}

type statusResponse struct {
	Claimed bool    `json:"claimed"`
	Name    *string `json:"name"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func writeJSON(cfg *Config, w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	securityHeaders(cfg, w)
	w.WriteHeader(status)

	return json.NewEncoder(w).Encode(v)
}

func serveStatus(cfg *Config, coord *ClaimCoordinator, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		state := coord.Status()

		resp := statusResponse{Claimed: state.Claimed}
		if state.Claimed {
			resp.Name = &state.Name
		}

		if err := writeJSON(cfg, w, http.StatusOK, resp); err != nil {
			errs <- err
		}
	}
}

func serveClaim(cfg *Config, coord *ClaimCoordinator, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		// A body that cannot be decoded is treated as a claim with no name.
		var req claimRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxClaimBody)).Decode(&req); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				if err := writeJSON(cfg, w, http.StatusRequestEntityTooLarge, errorResponse{Detail: "Name is too long."}); err != nil {
					errs <- err
				}

				return
			}

			req = claimRequest{}
		}

		name, err := coord.Claim(req.Name)

		var (
			status = http.StatusOK
			body   any
			taken  *AlreadyClaimedError
		)

		switch {
		case errors.As(err, &taken):
			status = http.StatusConflict
			body = errorResponse{Detail: fmt.Sprintf("Shield already triggered by %s.", taken.Name)}
		case errors.Is(err, ErrInvalidName):
			status = http.StatusBadRequest
			body = errorResponse{Detail: "Name is required."}
		default:
			body = claimResponse{OK: true, Name: name}
		}

		if err := writeJSON(cfg, w, status, body); err != nil {
			errs <- err

			return
		}

		logf(cfg, "CLAIM: %d for %s in %s",
			status,
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

func serveReset(cfg *Config, coord *ClaimCoordinator, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		coord.Reset()

		if err := writeJSON(cfg, w, http.StatusOK, claimResponse{OK: true}); err != nil {
			errs <- err

			return
		}

		logf(cfg, "RESET: Requested by %s", realIP(r))
	}
}
