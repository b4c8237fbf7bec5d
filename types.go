package studyblog

import "time"

// Post is the core content type stored in SQLite and served by the API.
// A post is visible on public surfaces only while Published is true.
type Post struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Published bool      `json:"published"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	UserID    string    `json:"user_id"`
	SubjectID string    `json:"subject_id"`
	ImageURL  string    `json:"image_url,omitempty"`

	// Subject is the embedded relation, populated on reads that join it.
	Subject *Subject `json:"subject,omitempty"`
}

// Subject is a named topical category assigned to posts. Subjects are
// read-only from the HTTP surface; they are seeded or managed upstream.
type Subject struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// User is an authenticated identity. The password hash never leaves the server.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"display_name,omitempty"`
	AvatarURL    string    `json:"avatar_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	PasswordHash string    `json:"-"`
}

// SiteSettings is the singleton configuration record (row id 1).
// Saves are full-record upserts; last write wins.
type SiteSettings struct {
	SiteName        string `json:"site_name"`
	SiteDescription string `json:"site_description"`
	ShowOwnerEmail  bool   `json:"show_owner_email"`
}

// PostView is a post annotated with derived display metadata. The derived
// fields are computed on read and never stored.
type PostView struct {
	Post
	SubjectName string `json:"subject_name"`
	Author      string `json:"author,omitempty"`
	ReadTime    string `json:"read_time"`
	PostedOn    string `json:"posted_on"`
}
