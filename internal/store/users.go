package store

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/harentsoaR/tour-booking-api/internal/models"
	"github.com/harentsoaR/tour-booking-api/internal/query"
)

var activeOnly = bson.M{"active": bson.M{"$ne": false}}

// UserSchema lists the fields admins may filter users by.
var UserSchema = query.Schema{
	"name":  query.String,
	"email": query.String,
	"role":  query.String,
}

type Users struct {
	c collection[models.User]
}

func NewUsers(db *mongo.Database) *Users {
	return &Users{c: collection[models.User]{
		coll:       db.Collection(usersCollection),
		entity:     "user",
		defaults:   activeOnly,
		dupMessage: "An account with this email already exists",
	}}
}

// WithInactive returns a view of the store that also sees deactivated users.
// Only admin routes use it.
func (s *Users) WithInactive() *Users {
	c := s.c
	c.defaults = nil
	return &Users{c: c}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Users) Create(ctx context.Context, u *models.User) error {
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	u.Email = normalizeEmail(u.Email)
	if u.Role == "" {
		u.Role = models.RoleUser
	}
	if u.Photo == "" {
		u.Photo = models.DefaultPhoto
	}
	u.Active = true
	return s.c.insert(ctx, u)
}

func (s *Users) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.c.byID(ctx, id)
}

func (s *Users) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.c.findOne(ctx, bson.M{"email": normalizeEmail(email)})
}

func (s *Users) FindByResetToken(ctx context.Context, hashed string, now time.Time) (*models.User, error) {
	return s.c.findOne(ctx, bson.M{
		"passwordResetToken":   hashed,
		"passwordResetExpires": bson.M{"$gt": now},
	})
}

// UpdatePassword stores a new hash, records the change time and clears any
// pending reset token.
func (s *Users) UpdatePassword(ctx context.Context, id primitive.ObjectID, hash string, changedAt time.Time) error {
	_, err := s.c.updateByID(ctx, id, bson.M{
		"$set":   bson.M{"password": hash, "passwordChangedAt": changedAt},
		"$unset": bson.M{"passwordResetToken": "", "passwordResetExpires": ""},
	})
	return err
}

func (s *Users) SetResetToken(ctx context.Context, id primitive.ObjectID, hashed string, expires time.Time) error {
	_, err := s.c.updateByID(ctx, id, bson.M{"$set": bson.M{
		"passwordResetToken":   hashed,
		"passwordResetExpires": expires,
	}})
	return err
}

func (s *Users) ClearResetToken(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.updateByID(ctx, id, bson.M{
		"$unset": bson.M{"passwordResetToken": "", "passwordResetExpires": ""},
	})
	return err
}

func (s *Users) Deactivate(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.updateByID(ctx, id, bson.M{"$set": bson.M{"active": false}})
	return err
}

func (s *Users) List(ctx context.Context, opts query.Options, scope bson.M) ([]models.User, error) {
	return s.c.find(ctx, opts, scope)
}

func (s *Users) Get(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.c.byID(ctx, id)
}

func (s *Users) Update(ctx context.Context, id primitive.ObjectID, fields bson.M) (*models.User, error) {
	if email, ok := fields["email"].(string); ok {
		fields["email"] = normalizeEmail(email)
	}
	return s.c.updateByID(ctx, id, bson.M{"$set": fields})
}

func (s *Users) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.deleteByID(ctx, id)
	return err
}

// Refs loads the populated form of the given users, keyed by id.
func (s *Users) Refs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.UserRef, error) {
	out := make(map[primitive.ObjectID]*models.UserRef, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	fo := options.Find().SetProjection(bson.M{"name": 1, "email": 1, "photo": 1, "role": 1})
	users, err := s.c.findWith(ctx, s.c.where(bson.M{"_id": bson.M{"$in": uniqueIDs(ids)}}), fo)
	if err != nil {
		return nil, err
	}
	for i := range users {
		out[users[i].ID] = users[i].Ref()
	}
	return out, nil
}

func uniqueIDs(ids []primitive.ObjectID) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]bool, len(ids))
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
