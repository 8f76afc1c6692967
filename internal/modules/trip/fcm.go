// README: FCM push delivery with per-send device token resolution.
package trip

import (
	"context"
	"errors"
	"fmt"

	"firebase.google.com/go/v4/messaging"

	"gavra/internal/types"
)

var ErrNoToken = errors.New("no push token for passenger")

// TokenSource resolves a passenger's current device token. Implementations
// look it up directly on every send; tokens rotate too often to cache
// globally.
type TokenSource interface {
	Token(ctx context.Context, passengerID types.ID) (string, error)
}

// FCMNotifier sends push messages through Firebase Cloud Messaging.
type FCMNotifier struct {
	client *messaging.Client
	tokens TokenSource
}

func NewFCMNotifier(client *messaging.Client, tokens TokenSource) *FCMNotifier {
	return &FCMNotifier{client: client, tokens: tokens}
}

func (n *FCMNotifier) Send(ctx context.Context, passengerID types.ID, title, body string) error {
	token, err := n.tokens.Token(ctx, passengerID)
	if err != nil {
		return fmt.Errorf("resolving token for %s: %w", string(passengerID), err)
	}
	msg := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
	}
	if _, err := n.client.Send(ctx, msg); err != nil {
		return fmt.Errorf("sending FCM to %s: %w", string(passengerID), err)
	}
	return nil
}
