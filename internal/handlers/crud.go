package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/harentsoaR/tour-booking-api/internal/apperr"
	"github.com/harentsoaR/tour-booking-api/internal/query"
)

type Repository[T any] interface {
	List(ctx context.Context, opts query.Options, scope bson.M) ([]T, error)
	Get(ctx context.Context, id primitive.ObjectID) (*T, error)
	Create(ctx context.Context, doc *T) error
	Update(ctx context.Context, id primitive.ObjectID, fields bson.M) (*T, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// Resource is the list/get/create/update/delete handler set shared by every
// collection.
type Resource[T any] struct {
	Repo   Repository[T]
	Schema query.Schema
	// Scope narrows List, e.g. to the tour of a nested route.
	Scope func(c *gin.Context) (bson.M, error)
	// Decode builds a new document from the request.
	Decode func(c *gin.Context) (*T, error)
	// Patch extracts the fields of a partial update.
	Patch func(c *gin.Context) (bson.M, error)
}

func (r *Resource[T]) List(c *gin.Context) {
	opts, err := query.Parse(c.Request.URL.Query(), r.Schema)
	if err != nil {
		abort(c, err)
		return
	}
	var scope bson.M
	if r.Scope != nil {
		if scope, err = r.Scope(c); err != nil {
			abort(c, err)
			return
		}
	}
	items, err := r.Repo.List(c.Request.Context(), opts, scope)
	if err != nil {
		abort(c, err)
		return
	}
	respondList(c, items)
}

func (r *Resource[T]) Get(c *gin.Context) {
	id, ok := objectID(c, "id")
	if !ok {
		return
	}
	doc, err := r.Repo.Get(c.Request.Context(), id)
	if err != nil {
		abort(c, err)
		return
	}
	respondOne(c, http.StatusOK, doc)
}

func (r *Resource[T]) Create(c *gin.Context) {
	doc, err := r.Decode(c)
	if err != nil {
		abort(c, err)
		return
	}
	if err := r.Repo.Create(c.Request.Context(), doc); err != nil {
		abort(c, err)
		return
	}
	respondOne(c, http.StatusCreated, doc)
}

func (r *Resource[T]) Update(c *gin.Context) {
	id, ok := objectID(c, "id")
	if !ok {
		return
	}
	fields, err := r.Patch(c)
	if err != nil {
		abort(c, err)
		return
	}
	doc, err := r.Repo.Update(c.Request.Context(), id, fields)
	if err != nil {
		abort(c, err)
		return
	}
	respondOne(c, http.StatusOK, doc)
}

func (r *Resource[T]) Delete(c *gin.Context) {
	id, ok := objectID(c, "id")
	if !ok {
		return
	}
	if err := r.Repo.Delete(c.Request.Context(), id); err != nil {
		abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type patcher interface {
	fields() bson.M
}

// bindPatch binds the JSON body into P and returns the fields it sets.
func bindPatch[P any, PP interface {
	*P
	patcher
}](c *gin.Context) (bson.M, error) {
	var p P
	if err := c.ShouldBindJSON(&p); err != nil {
		return nil, err
	}
	fields := PP(&p).fields()
	if len(fields) == 0 {
		return nil, apperr.Validation("No update fields provided")
	}
	return fields, nil
}

// set adds *v under key when the client sent it.
func set[V any](m bson.M, key string, v *V) {
	if v != nil {
		m[key] = *v
	}
}
