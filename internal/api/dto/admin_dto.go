package dto

// PrincipalStatusRequest toggles an account's active flag.
type PrincipalStatusRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// PrincipalListResponse is a page of principals.
type PrincipalListResponse struct {
	Principals []PrincipalResponse `json:"principals"`
	Total      int                 `json:"total"`
	Limit      int                 `json:"limit"`
	Offset     int                 `json:"offset"`
}
