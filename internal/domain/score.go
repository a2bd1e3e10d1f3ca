package domain

import "time"

// ScoreRecord is the persisted per-user, per-group point total.
type ScoreRecord struct {
	GroupID     string    `json:"group_id"     db:"group_id"     firestore:"groupId"`
	UserID      string    `json:"user_id"      db:"user_id"      firestore:"userId"`
	UserName    string    `json:"user_name"    db:"user_name"    firestore:"userName"`
	UserEmail   string    `json:"user_email"   db:"user_email"   firestore:"userEmail"`
	Score       int       `json:"score"        db:"score"        firestore:"score"`
	LastUpdated time.Time `json:"last_updated" db:"last_updated" firestore:"lastUpdated"`
}

// ScoreKey is the composite document key of a score record.
func ScoreKey(groupID, userID string) string {
	return groupID + "_" + userID
}

// Key returns the record's composite document key.
func (r ScoreRecord) Key() string {
	return ScoreKey(r.GroupID, r.UserID)
}
