// Package events carries domain events over a RabbitMQ topic exchange.
package events

import (
	"context"
	"encoding/json"
	"fmt"
)

const (
	RKReviewChanged = "review.changed"
	RKBookingPaid   = "booking.paid"
)

// ReviewChanged is published after any review mutation.
type ReviewChanged struct {
	TourID string `json:"tour_id"`
}

// BookingPaid is published once a checkout has been turned into a booking.
type BookingPaid struct {
	BookingID string  `json:"booking_id"`
	TourID    string  `json:"tour_id"`
	UserID    string  `json:"user_id"`
	Price     float64 `json:"price"`
}

type Publisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

// Nop drops every event. It is used when no broker is configured.
type Nop struct{}

func (Nop) PublishJSON(context.Context, string, any) error { return nil }

func Decode[T any](b []byte) (T, error) {
	var t T
	if err := json.Unmarshal(b, &t); err != nil {
		var zero T
		return zero, fmt.Errorf("decode payload failed: %w", err)
	}
	return t, nil
}
