package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/arturoeanton/cirkle/internal/domain"
	"github.com/arturoeanton/cirkle/internal/port"
)

// Firestore collection names. They match the documents the web client reads.
const (
	CollectionUsers  = "users"
	CollectionGroups = "groups"
	CollectionScores = "pomodoro_scores"
	CollectionAudit  = "audit_logs"
)

// FirestoreStore keeps users, groups, scores and audit logs in Cloud Firestore.
type FirestoreStore struct {
	client *firestore.Client
	now    func() time.Time
}

// NewFirestoreStore connects to the project's default database. The client
// honours FIRESTORE_EMULATOR_HOST.
func NewFirestoreStore(ctx context.Context, projectID string) (*FirestoreStore, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("firestore client: %w", err)
	}
	return &FirestoreStore{client: client, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Close releases the client.
func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

// groupDoc is the stored shape of a group document.
type groupDoc struct {
	Name      string            `firestore:"name"`
	CreatedBy string            `firestore:"createdBy"`
	Members   map[string]bool   `firestore:"members"`
	Documents []domain.Resource `firestore:"documents"`
	Files     []domain.Resource `firestore:"files"`
	CreatedAt time.Time         `firestore:"createdAt"`
	UpdatedAt time.Time         `firestore:"updatedAt"`
}

func (d groupDoc) toDomain(id string) domain.Group {
	g := domain.Group{
		ID:        id,
		Name:      d.Name,
		CreatedBy: d.CreatedBy,
		Members:   d.Members,
		Resources: domain.Resources{Documents: d.Documents, Files: d.Files},
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
	if g.Members == nil {
		g.Members = map[string]bool{}
	}
	return g
}

// --- Users ---

// UpsertUser inserts or updates a user by provider + provider_id.
func (s *FirestoreStore) UpsertUser(ctx context.Context, u *domain.User) (*domain.User, error) {
	users := s.client.Collection(CollectionUsers)
	q := users.Where("provider", "==", u.Provider).Where("providerId", "==", u.ProviderID).Limit(1)

	var out domain.User
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		docs, err := tx.Documents(q).GetAll()
		if err != nil {
			return err
		}

		now := s.now()
		if len(docs) == 0 {
			out = *u
			out.ID = uuid.NewString()
			if out.Role == "" {
				out.Role = "user"
			}
			out.CreatedAt = now
			out.UpdatedAt = now
			return tx.Set(users.Doc(out.ID), out)
		}

		if err := docs[0].DataTo(&out); err != nil {
			return err
		}
		out.ID = docs[0].Ref.ID
		out.Email = u.Email
		out.Name = u.Name
		out.AvatarURL = u.AvatarURL
		out.AccessToken = u.AccessToken
		if u.RefreshToken != "" {
			out.RefreshToken = u.RefreshToken
		}
		out.TokenExpiry = u.TokenExpiry
		out.UpdatedAt = now
		return tx.Set(docs[0].Ref, out)
	})
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	return &out, nil
}

// GetUserByID retrieves a user by ID.
func (s *FirestoreStore) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	snap, err := s.client.Collection(CollectionUsers).Doc(id).Get(ctx)
	if isNotFound(err) {
		return nil, port.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	var u domain.User
	if err := snap.DataTo(&u); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	u.ID = snap.Ref.ID
	return &u, nil
}

// --- Groups ---

// CreateGroup stores a new group; the ID is assigned when empty.
func (s *FirestoreStore) CreateGroup(ctx context.Context, g *domain.Group) error {
	groups := s.client.Collection(CollectionGroups)
	ref := groups.NewDoc()
	if g.ID != "" {
		ref = groups.Doc(g.ID)
	}
	doc := groupDoc{
		Name:      g.Name,
		CreatedBy: g.CreatedBy,
		Members:   g.Members,
		Documents: g.Resources.Documents,
		Files:     g.Resources.Files,
		CreatedAt: g.CreatedAt,
		UpdatedAt: g.UpdatedAt,
	}
	if _, err := ref.Create(ctx, doc); err != nil {
		return fmt.Errorf("create group: %w", err)
	}
	g.ID = ref.ID
	return nil
}

// GetGroup loads a group document.
func (s *FirestoreStore) GetGroup(ctx context.Context, groupID string) (*domain.Group, error) {
	snap, err := s.client.Collection(CollectionGroups).Doc(groupID).Get(ctx)
	if isNotFound(err) {
		return nil, port.ErrGroupNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get group: %w", err)
	}
	var doc groupDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("decode group: %w", err)
	}
	g := doc.toDomain(snap.Ref.ID)
	return &g, nil
}

// ListGroupsByMember returns the groups the user belongs to, oldest first.
func (s *FirestoreStore) ListGroupsByMember(ctx context.Context, userID string) ([]domain.Group, error) {
	docs, err := s.client.Collection(CollectionGroups).
		WherePath(firestore.FieldPath{"members", userID}, "==", true).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}

	out := make([]domain.Group, 0, len(docs))
	for _, snap := range docs {
		var doc groupDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode group %s: %w", snap.Ref.ID, err)
		}
		out = append(out, doc.toDomain(snap.Ref.ID))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// AddMember sets members.<userID> to true.
func (s *FirestoreStore) AddMember(ctx context.Context, groupID, userID string) error {
	return s.setMember(ctx, groupID, userID, true)
}

// RemoveMember sets members.<userID> to false.
func (s *FirestoreStore) RemoveMember(ctx context.Context, groupID, userID string) error {
	return s.setMember(ctx, groupID, userID, false)
}

func (s *FirestoreStore) setMember(ctx context.Context, groupID, userID string, member bool) error {
	_, err := s.client.Collection(CollectionGroups).Doc(groupID).Update(ctx, []firestore.Update{
		{FieldPath: firestore.FieldPath{"members", userID}, Value: member},
		{Path: "updatedAt", Value: firestore.ServerTimestamp},
	})
	if isNotFound(err) {
		return port.ErrGroupNotFound
	}
	if err != nil {
		return fmt.Errorf("update membership: %w", err)
	}
	return nil
}

// AddResource appends a resource to the group's list of the given kind.
func (s *FirestoreStore) AddResource(ctx context.Context, groupID, kind string, r domain.Resource) error {
	if !domain.ValidResourceKind(kind) {
		return port.ErrInvalidInput
	}
	return s.updateResources(ctx, groupID, kind, func(list []domain.Resource) ([]domain.Resource, error) {
		return append(list, r), nil
	})
}

// RemoveResource deletes a resource and returns it.
func (s *FirestoreStore) RemoveResource(ctx context.Context, groupID, kind, resourceID string) (*domain.Resource, error) {
	var removed *domain.Resource
	err := s.updateResources(ctx, groupID, kind, func(list []domain.Resource) ([]domain.Resource, error) {
		removed = nil
		kept := make([]domain.Resource, 0, len(list))
		for _, r := range list {
			if r.ID == resourceID && removed == nil {
				removed = &r
				continue
			}
			kept = append(kept, r)
		}
		if removed == nil {
			return nil, port.ErrResourceNotFound
		}
		return kept, nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

// RenameResource updates a resource's display name.
func (s *FirestoreStore) RenameResource(ctx context.Context, groupID, kind, resourceID, name string) error {
	return s.updateResources(ctx, groupID, kind, func(list []domain.Resource) ([]domain.Resource, error) {
		for i := range list {
			if list[i].ID == resourceID {
				list[i].Name = name
				return list, nil
			}
		}
		return nil, port.ErrResourceNotFound
	})
}

// updateResources rewrites one resource array inside a transaction.
func (s *FirestoreStore) updateResources(ctx context.Context, groupID, kind string,
	fn func([]domain.Resource) ([]domain.Resource, error)) error {
	ref := s.client.Collection(CollectionGroups).Doc(groupID)
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		var doc groupDoc
		if err := snap.DataTo(&doc); err != nil {
			return err
		}
		current := doc.Documents
		if kind == domain.ResourceKindFiles {
			current = doc.Files
		}
		next, err := fn(current)
		if err != nil {
			return err
		}
		if next == nil {
			next = []domain.Resource{}
		}
		return tx.Update(ref, []firestore.Update{
			{Path: kind, Value: next},
			{Path: "updatedAt", Value: firestore.ServerTimestamp},
		})
	})
	switch {
	case isNotFound(err):
		return port.ErrGroupNotFound
	case errors.Is(err, port.ErrResourceNotFound):
		return err
	case err != nil:
		return fmt.Errorf("update %s: %w", kind, err)
	}
	return nil
}

// --- Scores ---

// GetScore returns the stored score or port.ErrScoreNotFound.
func (s *FirestoreStore) GetScore(ctx context.Context, groupID, userID string) (int, error) {
	snap, err := s.client.Collection(CollectionScores).Doc(domain.ScoreKey(groupID, userID)).Get(ctx)
	if isNotFound(err) {
		return 0, port.ErrScoreNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("get score: %w", err)
	}
	var rec domain.ScoreRecord
	if err := snap.DataTo(&rec); err != nil {
		return 0, fmt.Errorf("decode score: %w", err)
	}
	return rec.Score, nil
}

// UpsertScore merge-writes the record; empty name/email keep the stored values.
func (s *FirestoreStore) UpsertScore(ctx context.Context, rec domain.ScoreRecord) error {
	_, err := s.client.Collection(CollectionScores).Doc(rec.Key()).Set(ctx, scoreFields(rec, rec.Score), firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("upsert score: %w", err)
	}
	return nil
}

// IncrementScore adds delta inside a transaction and returns the new total.
func (s *FirestoreStore) IncrementScore(ctx context.Context, rec domain.ScoreRecord, delta int) (int, error) {
	ref := s.client.Collection(CollectionScores).Doc(rec.Key())
	var total int
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		total = delta
		snap, err := tx.Get(ref)
		switch {
		case isNotFound(err):
		case err != nil:
			return err
		default:
			var prev domain.ScoreRecord
			if err := snap.DataTo(&prev); err != nil {
				return err
			}
			total += prev.Score
		}
		return tx.Set(ref, scoreFields(rec, total), firestore.MergeAll)
	})
	if err != nil {
		return 0, fmt.Errorf("increment score: %w", err)
	}
	return total, nil
}

func scoreFields(rec domain.ScoreRecord, score int) map[string]any {
	m := map[string]any{
		"groupId":     rec.GroupID,
		"userId":      rec.UserID,
		"score":       score,
		"lastUpdated": rec.LastUpdated,
	}
	if rec.UserName != "" {
		m["userName"] = rec.UserName
	}
	if rec.UserEmail != "" {
		m["userEmail"] = rec.UserEmail
	}
	return m
}

// ListScores returns the group's scores sorted by score descending.
func (s *FirestoreStore) ListScores(ctx context.Context, groupID string) ([]domain.ScoreRecord, error) {
	docs, err := s.client.Collection(CollectionScores).
		Where("groupId", "==", groupID).
		OrderBy("score", firestore.Desc).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("list scores: %w", err)
	}
	out := make([]domain.ScoreRecord, 0, len(docs))
	for _, snap := range docs {
		var rec domain.ScoreRecord
		if err := snap.DataTo(&rec); err != nil {
			return nil, fmt.Errorf("decode score %s: %w", snap.Ref.ID, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// --- Audit Logs ---

// WriteAudit implements middleware.AuditWriter.
func (s *FirestoreStore) WriteAudit(userID, action, resource, resourceID, details, ip, userAgent string) error {
	_, _, err := s.client.Collection(CollectionAudit).Add(context.Background(), domain.AuditLog{
		UserID:     userID,
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		Details:    details,
		IP:         ip,
		UserAgent:  userAgent,
		CreatedAt:  s.now(),
	})
	return err
}

// ListAuditLogs returns recent audit logs, newest first.
func (s *FirestoreStore) ListAuditLogs(ctx context.Context, limit int, action string) ([]domain.AuditLog, error) {
	q := s.client.Collection(CollectionAudit).Query
	if action != "" {
		q = q.Where("action", "==", action)
	}
	q = q.OrderBy("createdAt", firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}
	docs, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	out := make([]domain.AuditLog, 0, len(docs))
	for _, snap := range docs {
		var l domain.AuditLog
		if err := snap.DataTo(&l); err != nil {
			return nil, fmt.Errorf("decode audit log: %w", err)
		}
		l.ID = snap.Ref.ID
		out = append(out, l)
	}
	return out, nil
}
