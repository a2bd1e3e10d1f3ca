package domain

import "time"

// Group is a named collection of users who share resources and a leaderboard.
type Group struct {
	ID        string          `json:"id"         db:"id"`
	Name      string          `json:"name"       db:"name"`
	CreatedBy string          `json:"created_by" db:"created_by"`
	Members   map[string]bool `json:"members"    db:"-"`
	Resources Resources       `json:"resources"  db:"-"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// GroupRef is the read-only view of a group handed to the pomodoro engine.
type GroupRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Ref returns the group's GroupRef.
func (g *Group) Ref() GroupRef {
	return GroupRef{ID: g.ID, Name: g.Name}
}

// IsMember reports whether userID currently belongs to the group.
func (g *Group) IsMember(userID string) bool {
	return g.Members[userID]
}

// MemberCount returns the number of current members.
func (g *Group) MemberCount() int {
	n := 0
	for _, active := range g.Members {
		if active {
			n++
		}
	}
	return n
}

// Resources holds the Drive-backed items attached to a group.
type Resources struct {
	Documents []Resource `json:"documents"`
	Files     []Resource `json:"files"`
}

// Of returns the resources of the given kind.
func (r Resources) Of(kind string) []Resource {
	switch kind {
	case ResourceKindDocuments:
		return r.Documents
	case ResourceKindFiles:
		return r.Files
	}
	return nil
}

// Resource kinds, named after the group collections they live in.
const (
	ResourceKindDocuments = "documents"
	ResourceKindFiles     = "files"
)

// ValidResourceKind reports whether kind names a resource collection.
func ValidResourceKind(kind string) bool {
	return kind == ResourceKindDocuments || kind == ResourceKindFiles
}

// Resource is a Google Drive file referenced by a group.
type Resource struct {
	ID        string    `json:"id"         db:"id"         firestore:"id"`
	GroupID   string    `json:"-"          db:"group_id"   firestore:"-"`
	Kind      string    `json:"-"          db:"kind"       firestore:"-"`
	Name      string    `json:"name"       db:"name"       firestore:"name"`
	URL       string    `json:"url"        db:"url"        firestore:"url"`
	Type      string    `json:"type,omitempty"      db:"type"      firestore:"type,omitempty"`
	MimeType  string    `json:"mime_type,omitempty" db:"mime_type" firestore:"mimeType,omitempty"`
	Size      int64     `json:"size,omitempty"      db:"size"      firestore:"size,omitempty"`
	CreatedBy string    `json:"created_by" db:"created_by" firestore:"createdBy"`
	CreatedAt time.Time `json:"created_at" db:"created_at" firestore:"createdAt"`
}

// ResourceTypeGoogleDoc marks documents created as native Google Docs.
const ResourceTypeGoogleDoc = "google_doc"
