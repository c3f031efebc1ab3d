package domain

// UserProfile holds the user details sent along with a certification request.
type UserProfile struct {
	UserID          int64  `json:"user_id"`
	DisplayName     string `json:"display_name"`
	EmailOrUsername string `json:"email_or_username"`
}
