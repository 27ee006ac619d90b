// Package payments creates hosted checkout sessions and verifies the
// provider's webhook callbacks.
package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/harentsoaR/tour-booking-api/internal/apperr"
)

type CheckoutRequest struct {
	TourID        string
	TourName      string
	Summary       string
	ImageURL      string
	Price         float64
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
}

type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// CompletedCheckout is the part of a completed session needed to record a
// booking.
type CompletedCheckout struct {
	SessionID     string
	TourID        string
	CustomerEmail string
	AmountTotal   int64
}

// Price converts the charged amount back to the tour's currency unit.
func (c *CompletedCheckout) Price() float64 {
	return float64(c.AmountTotal) / 100
}

type Provider interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	// ParseWebhook verifies payload against its signature header. It returns
	// nil without error for events other than a completed checkout.
	ParseWebhook(payload []byte, signature string) (*CompletedCheckout, error)
}

type Stripe struct {
	api           *client.API
	webhookSecret string
	currency      string
}

func NewStripe(secretKey, webhookSecret, currency string) *Stripe {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &Stripe{api: api, webhookSecret: webhookSecret, currency: currency}
}

func (s *Stripe) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
		Name:        stripe.String(req.TourName + " Tour"),
		Description: stripe.String(req.Summary),
	}
	if req.ImageURL != "" {
		product.Images = stripe.StringSlice([]string{req.ImageURL})
	}
	params := &stripe.CheckoutSessionParams{
		Params:             stripe.Params{Context: ctx},
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:         stripe.String(req.SuccessURL),
		CancelURL:          stripe.String(req.CancelURL),
		CustomerEmail:      stripe.String(req.CustomerEmail),
		ClientReferenceID:  stripe.String(req.TourID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(s.currency),
				UnitAmount:  stripe.Int64(int64(math.Round(req.Price * 100))),
				ProductData: product,
			},
		}},
	}
	sess, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	return &CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

func (s *Stripe) ParseWebhook(payload []byte, signature string) (*CompletedCheckout, error) {
	return parseWebhook(payload, signature, s.webhookSecret)
}

func parseWebhook(payload []byte, signature, secret string) (*CompletedCheckout, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInvalidInput, "Webhook error: invalid signature", err)
	}
	if event.Type != stripe.EventTypeCheckoutSessionCompleted {
		return nil, nil
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return nil, apperr.Wrap(apperr.KindInvalidInput, "Webhook error: malformed checkout session", err)
	}
	email := sess.CustomerEmail
	if email == "" && sess.CustomerDetails != nil {
		email = sess.CustomerDetails.Email
	}
	return &CompletedCheckout{
		SessionID:     sess.ID,
		TourID:        sess.ClientReferenceID,
		CustomerEmail: email,
		AmountTotal:   sess.AmountTotal,
	}, nil
}
