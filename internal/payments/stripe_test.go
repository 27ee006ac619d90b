package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harentsoaR/tour-booking-api/internal/apperr"
)

const testSecret = "whsec_test"

func sign(payload []byte, secret string, at time.Time) string {
	ts := at.Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func event(kind, object string) []byte {
	return []byte(fmt.Sprintf(
		`{"id":"evt_1","object":"event","api_version":"2020-08-27","type":%q,"data":{"object":%s}}`,
		kind, object,
	))
}

func TestParseCompletedCheckout(t *testing.T) {
	payload := event("checkout.session.completed",
		`{"id":"cs_1","object":"checkout.session","client_reference_id":"5c88fa8cf4afda39709c2955","customer_email":"laura@example.com","amount_total":49700}`)

	got, err := parseWebhook(payload, sign(payload, testSecret, time.Now()), testSecret)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "cs_1", got.SessionID)
	assert.Equal(t, "5c88fa8cf4afda39709c2955", got.TourID)
	assert.Equal(t, "laura@example.com", got.CustomerEmail)
	assert.Equal(t, 497.0, got.Price())
}

func TestParseIgnoresOtherEvents(t *testing.T) {
	payload := event("payment_intent.created", `{"id":"pi_1","object":"payment_intent"}`)

	got, err := parseWebhook(payload, sign(payload, testSecret, time.Now()), testSecret)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestParseRejectsBadSignature(t *testing.T) {
	payload := event("checkout.session.completed", `{"id":"cs_1","object":"checkout.session"}`)

	_, err := parseWebhook(payload, sign(payload, "whsec_other", time.Now()), testSecret)
	assert.True(t, apperr.Is(err, apperr.KindInvalidInput))

	_, err = parseWebhook(payload, "", testSecret)
	assert.True(t, apperr.Is(err, apperr.KindInvalidInput))
}

func TestParseRejectsStaleSignature(t *testing.T) {
	payload := event("checkout.session.completed", `{"id":"cs_1","object":"checkout.session"}`)

	_, err := parseWebhook(payload, sign(payload, testSecret, time.Now().Add(-time.Hour)), testSecret)
	assert.True(t, apperr.Is(err, apperr.KindInvalidInput))
}
