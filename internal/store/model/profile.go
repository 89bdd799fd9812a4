package model

// Profile is the member profile owned by the web application. This service only reads
// the role to decide whether a session may trigger runs.
type Profile struct {
	ID    string `gorm:"primaryKey;column:id;type:VARCHAR(255);"`
	Email string
	Role  string `gorm:"not null;default:'member'"`
}
