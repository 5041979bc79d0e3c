package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/trusthive/trusthive/storage"
)

// SubmitReview handles POST /reviews. Submission is authenticated by
// the plugin's HMAC on the ingestion path upstream; here the shop id in
// the body is validated against the shop table so orphan reviews cannot
// be created.
func (a *API) SubmitReview(w http.ResponseWriter, r *http.Request) {
	var req SubmitReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ShopID == "" || req.ProductID == "" || req.Content == "" ||
		req.Author.Name == "" || req.Author.Email == "" {
		writeError(w, http.StatusBadRequest, "missing required fields")
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		writeError(w, http.StatusBadRequest, "rating must be between 1 and 5")
		return
	}

	if _, err := a.repo.GetShop(r.Context(), req.ShopID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "unknown shop")
			return
		}
		a.audit.logError(AuditReviewSubmitted, r, err)
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	review := &storage.Review{
		ID:          uuid.New().String(),
		ShopID:      req.ShopID,
		ProductID:   req.ProductID,
		AuthorName:  req.Author.Name,
		AuthorEmail: req.Author.Email,
		Rating:      req.Rating,
		Title:       req.Title,
		Content:     req.Content,
		Approved:    false,
		CreatedAt:   a.now(),
	}
	if err := a.repo.CreateReview(r.Context(), review); err != nil {
		a.audit.logError(AuditReviewSubmitted, r, err)
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	a.audit.logEvent(AuditReviewSubmitted, r, review.ShopID)
	writeJSON(w, http.StatusCreated, SubmitReviewResponse{OK: true, ReviewID: review.ID})
}

// ListReviews handles GET /reviews. The caller must authenticate with
// any supported mechanism; the listing is scoped to the authenticated
// shop.
func (a *API) ListReviews(w http.ResponseWriter, r *http.Request) {
	identity, err := a.identityFromRequest(r)
	if err != nil {
		a.audit.logFailure(AuditAuthFailure, r, failureReason(err))
		writeUnauthorized(w)
		return
	}

	reviews, err := a.repo.ListReviews(r.Context(), identity.ShopID)
	if err != nil {
		a.audit.logError(AuditAuthFailure, r, err)
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	items := make([]ReviewItem, 0, len(reviews))
	for _, rev := range reviews {
		items = append(items, ReviewItem{
			ID:        rev.ID,
			ProductID: rev.ProductID,
			Author:    rev.AuthorName,
			Rating:    rev.Rating,
			Title:     rev.Title,
			Content:   rev.Content,
			Approved:  rev.Approved,
			CreatedAt: rev.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, ListReviewsResponse{OK: true, Items: items})
}

// ReviewAction handles POST /reviews/{reviewID}/action. The action can
// arrive as a JSON body, a form field, or a query parameter; the plugin
// and the dashboard use different shapes.
func (a *API) ReviewAction(w http.ResponseWriter, r *http.Request) {
	identity, err := a.identityFromRequest(r)
	if err != nil {
		a.audit.logFailure(AuditModerationDenied, r, failureReason(err))
		writeUnauthorized(w)
		return
	}

	// A shop named in the request must be the shop that authenticated.
	if shop := r.URL.Query().Get("shop"); shop != "" && shop != identity.ShopID {
		a.audit.logFailure(AuditModerationDenied, r, "shop mismatch")
		writeUnauthorized(w)
		return
	}

	action := a.actionFromRequest(r)
	reviewID := chi.URLParam(r, "reviewID")

	review, err := a.repo.GetReview(r.Context(), reviewID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "review not found")
			return
		}
		a.audit.logError(AuditModerationDenied, r, err)
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	// Cross-tenant probes get the same answer as a missing review.
	if review.ShopID != identity.ShopID {
		a.audit.logFailure(AuditModerationDenied, r, "cross-tenant review access")
		writeError(w, http.StatusNotFound, "review not found")
		return
	}

	switch action {
	case "approve":
		err = a.repo.SetReviewApproved(r.Context(), reviewID, true)
	case "hide":
		err = a.repo.SetReviewApproved(r.Context(), reviewID, false)
	case "delete":
		err = a.repo.DeleteReview(r.Context(), reviewID)
	default:
		writeError(w, http.StatusBadRequest, "invalid_action")
		return
	}
	if err != nil {
		a.audit.logError(AuditModerationDenied, r, err)
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	a.audit.logEvent(AuditReviewModerated, r, identity.ShopID,
		slog.String("action", action), slog.String("review_id", reviewID))
	writeJSON(w, http.StatusOK, OKResponse{OK: true})
}

// actionFromRequest extracts the moderation action from whichever shape
// the request used.
func (a *API) actionFromRequest(r *http.Request) string {
	ct := r.Header.Get("Content-Type")
	switch {
	case strings.HasPrefix(ct, "application/json"):
		var req ReviewActionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil && req.Action != "" {
			return req.Action
		}
	case strings.HasPrefix(ct, "application/x-www-form-urlencoded"):
		if err := r.ParseForm(); err == nil && r.PostForm.Get("action") != "" {
			return r.PostForm.Get("action")
		}
	}
	return r.URL.Query().Get("action")
}
