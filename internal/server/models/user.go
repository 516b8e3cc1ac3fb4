package models

// User is a member profile belonging to an account. An account (the subject
// of an access token) may own several members.
type User struct {
	ID               int64
	AccountID        int64
	ProfileImage     string
	ProfileThumbnail string
}
