package models

// UserProfile holds the display metadata of a user, owned by the external
// user-profile store. The chat core keeps only a continuously refreshed copy.
type UserProfile struct {
	UserID       string `db:"id" json:"user_id"`
	Name         string `db:"name" json:"name"`
	Surname      string `db:"surname" json:"surname"`
	ProfileImage string `db:"profile_image_url" json:"profile_image_url,omitempty"`
}
