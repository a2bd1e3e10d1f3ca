package domain

import "time"

// AuditLog records every significant action in the system.
type AuditLog struct {
	ID         string    `json:"id"          db:"id"          firestore:"-"`
	UserID     string    `json:"user_id"     db:"user_id"     firestore:"userId"`
	Action     string    `json:"action"      db:"action"      firestore:"action"`
	Resource   string    `json:"resource"    db:"resource"    firestore:"resource"`
	ResourceID string    `json:"resource_id" db:"resource_id" firestore:"resourceId"`
	Details    string    `json:"details"     db:"details"     firestore:"details"` // JSON blob
	IP         string    `json:"ip"          db:"ip"          firestore:"ip"`
	UserAgent  string    `json:"user_agent"  db:"user_agent"  firestore:"userAgent"`
	CreatedAt  time.Time `json:"created_at"  db:"created_at"  firestore:"createdAt"`
}

// Audit action constants.
const (
	AuditActionLogin       = "login"
	AuditActionHTTPRequest = "http_request"
	AuditActionGroupCreate = "group_create"
	AuditActionGroupJoin   = "group_join"
	AuditActionGroupLeave  = "group_leave"
	AuditActionAward       = "pomodoro_award"
)
