package apistrings

const (
	UserNotFound   = "user or account does not exist"
	Unauthorized   = "Unauthorized Request"
	BearerExpected = "Invalid token, expects bearer token"
	AdminOnly      = "Admin access required"
	ServerError    = "a server error occurred, please try again later"
	WelcomeMessage = "Welcome to SwiftFiat Payouts!"
)
