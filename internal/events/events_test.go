package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeBookingPaid(t *testing.T) {
	evt, err := Decode[BookingPaid]([]byte(`{"booking_id":"b1","tour_id":"t1","user_id":"u1","price":497}`))
	require.NoError(t, err)
	assert.Equal(t, BookingPaid{BookingID: "b1", TourID: "t1", UserID: "u1", Price: 497}, evt)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode[ReviewChanged]([]byte(`{"tour_id":`))
	assert.Error(t, err)
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = Nop{}
	assert.NoError(t, p.PublishJSON(context.Background(), RKReviewChanged, ReviewChanged{TourID: "t"}))
}
