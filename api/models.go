package api

import "time"

// ErrorResponse is returned for all error cases.
type ErrorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// OKResponse is returned from endpoints with no payload.
type OKResponse struct {
	OK bool `json:"ok"`
}

// GenerateTokenRequest is the JSON body for POST /auth/generate-token.
type GenerateTokenRequest struct {
	Shop string `json:"shop"`
}

// GenerateTokenResponse is returned from POST /auth/generate-token.
// Token is the raw opaque token; it is never stored in this form.
type GenerateTokenResponse struct {
	OK    bool   `json:"ok"`
	Token string `json:"token"`
}

// SessionRequest is the JSON body for POST /auth/session. Either Token
// alone (opaque token redemption) or Shop+TS+Token (HMAC triple).
type SessionRequest struct {
	Shop  string `json:"shop,omitempty"`
	TS    string `json:"ts,omitempty"`
	Token string `json:"token"`
}

// CleanupResponse is returned from the cleanup endpoint.
type CleanupResponse struct {
	OK           bool   `json:"ok"`
	Message      string `json:"message"`
	CleanedCount int    `json:"cleanedCount"`
}

// RegisterShopRequest is the JSON body for POST /register.
type RegisterShopRequest struct {
	SiteURL    string `json:"site_url"`
	SiteName   string `json:"site_name,omitempty"`
	AdminEmail string `json:"admin_email,omitempty"`
}

// RegisterShopResponse is returned from POST /register. APIKey is the
// shop's shared secret; this response is the only place it ever leaves
// the server.
type RegisterShopResponse struct {
	OK     bool   `json:"ok"`
	ShopID string `json:"shop_id"`
	APIKey string `json:"api_key"`
}

// ReviewAuthor is the nested author object of a review submission.
type ReviewAuthor struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// SubmitReviewRequest is the JSON body for POST /reviews, as forwarded
// by the WordPress plugin.
type SubmitReviewRequest struct {
	ShopID    string       `json:"shop_id"`
	ProductID string       `json:"product_id"`
	Author    ReviewAuthor `json:"author"`
	Rating    int          `json:"rating"`
	Title     string       `json:"title,omitempty"`
	Content   string       `json:"content"`
}

// SubmitReviewResponse is returned from POST /reviews.
type SubmitReviewResponse struct {
	OK       bool   `json:"ok"`
	ReviewID string `json:"review_id"`
}

// ReviewItem is one review row in a listing.
type ReviewItem struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	Author    string    `json:"author"`
	Rating    int       `json:"rating"`
	Title     string    `json:"title,omitempty"`
	Content   string    `json:"content"`
	Approved  bool      `json:"approved"`
	CreatedAt time.Time `json:"created_at"`
}

// ListReviewsResponse is returned from GET /reviews.
type ListReviewsResponse struct {
	OK    bool         `json:"ok"`
	Items []ReviewItem `json:"items"`
}

// ReviewActionRequest is the JSON body for POST /reviews/{id}/action.
type ReviewActionRequest struct {
	Action string `json:"action"`
}
