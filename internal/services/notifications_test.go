package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/harentsoaR/tour-booking-api/internal/models"
	"github.com/harentsoaR/tour-booking-api/internal/store/storetest"
)

func TestBookingConfirmationMail(t *testing.T) {
	outbox := &storetest.Outbox{}
	svc := NewNotificationService(outbox)
	user := &models.User{Name: "Jonas Schmedtmann", Email: "jonas@example.com"}

	err := svc.SendBookingConfirmation(context.Background(), user, &models.Tour{Name: "The Sea Explorer"}, 497)
	require.NoError(t, err)

	sent := outbox.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "jonas@example.com", sent[0].To)
	assert.Contains(t, sent[0].Body, "Hi Jonas,")
	assert.Contains(t, sent[0].Body, "The Sea Explorer")
	assert.Contains(t, sent[0].Body, "$497.00")
}

func TestLogMailerNeverFails(t *testing.T) {
	svc := NewNotificationService(NewLogMailer(zap.NewNop()))
	assert.NoError(t, svc.SendWelcome(context.Background(), &models.User{Name: "A", Email: "a@b.c"}, "http://x/me"))
}
