package models

import "time"

// Moderator is a resolved identity-provider user authorized to own and
// resolve reports. The id is the identity resolver's stable user id; rows
// are created lazily the first time an identity touches assignment.
type Moderator struct {
	ID        string    `db:"id" json:"id"`
	FullName  *string   `db:"full_name" json:"full_name,omitempty"`
	Email     *string   `db:"email" json:"email,omitempty"`
	ImageURL  *string   `db:"image_url" json:"image_url,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// DisplayName returns the moderator's name for outbound notifications,
// falling back to the raw id.
func (m *Moderator) DisplayName() string {
	if m == nil {
		return ""
	}
	if m.FullName != nil && *m.FullName != "" {
		return *m.FullName
	}
	return m.ID
}
