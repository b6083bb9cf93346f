package handler

const (
	errInternalServer = "Internal server error"
	errLinkInvalid    = "Login link is invalid"
	errLinkExpired    = "Login link has expired, request a new one"
	errUnauthorized   = "Unauthorized"
)
