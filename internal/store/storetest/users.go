package storetest

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/harentsoaR/tour-booking-api/internal/apperr"
	"github.com/harentsoaR/tour-booking-api/internal/models"
	"github.com/harentsoaR/tour-booking-api/internal/query"
)

type Users struct {
	t *table[models.User]
}

func NewUsers() *Users {
	t := newTable("user", func(u *models.User) *primitive.ObjectID { return &u.ID })
	t.visible = func(u *models.User) bool { return u.Active }
	return &Users{t: t}
}

// Raw returns the stored record regardless of the active flag.
func (s *Users) Raw(id primitive.ObjectID) (models.User, bool) {
	s.t.mu.Lock()
	defer s.t.mu.Unlock()
	u, ok := s.t.rows[id]
	return u, ok
}

func (s *Users) Create(_ context.Context, u *models.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	for _, other := range s.t.all() {
		if other.Email == u.Email {
			return apperr.Conflict("An account with this email already exists")
		}
	}
	if u.Role == "" {
		u.Role = models.RoleUser
	}
	if u.Photo == "" {
		u.Photo = models.DefaultPhoto
	}
	u.Active = true
	s.t.insert(u)
	return nil
}

func (s *Users) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.t.get(id)
}

func (s *Users) FindByEmail(_ context.Context, email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range s.t.all() {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, s.t.notFound()
}

func (s *Users) FindByResetToken(_ context.Context, hashed string, now time.Time) (*models.User, error) {
	for _, u := range s.t.all() {
		if u.PasswordResetToken == hashed && u.PasswordResetExpires != nil && u.PasswordResetExpires.After(now) {
			return &u, nil
		}
	}
	return nil, s.t.notFound()
}

func (s *Users) mutate(id primitive.ObjectID, fn func(u *models.User)) error {
	s.t.mu.Lock()
	defer s.t.mu.Unlock()
	u, ok := s.t.rows[id]
	if !ok || !u.Active {
		return s.t.notFound()
	}
	fn(&u)
	s.t.rows[id] = u
	return nil
}

func (s *Users) UpdatePassword(_ context.Context, id primitive.ObjectID, hash string, changedAt time.Time) error {
	return s.mutate(id, func(u *models.User) {
		u.Password = hash
		u.PasswordChangedAt = &changedAt
		u.PasswordResetToken = ""
		u.PasswordResetExpires = nil
	})
}

func (s *Users) SetResetToken(_ context.Context, id primitive.ObjectID, hashed string, expires time.Time) error {
	return s.mutate(id, func(u *models.User) {
		u.PasswordResetToken = hashed
		u.PasswordResetExpires = &expires
	})
}

func (s *Users) ClearResetToken(_ context.Context, id primitive.ObjectID) error {
	return s.mutate(id, func(u *models.User) {
		u.PasswordResetToken = ""
		u.PasswordResetExpires = nil
	})
}

func (s *Users) Deactivate(_ context.Context, id primitive.ObjectID) error {
	return s.mutate(id, func(u *models.User) { u.Active = false })
}

func (s *Users) List(_ context.Context, opts query.Options, scope bson.M) ([]models.User, error) {
	return s.t.list(opts, scope), nil
}

func (s *Users) Get(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.t.get(id)
}

func (s *Users) Update(_ context.Context, id primitive.ObjectID, fields bson.M) (*models.User, error) {
	if email, ok := fields["email"].(string); ok {
		fields["email"] = strings.ToLower(strings.TrimSpace(email))
	}
	return s.t.update(id, fields)
}

func (s *Users) Delete(_ context.Context, id primitive.ObjectID) error {
	_, err := s.t.remove(id)
	return err
}
