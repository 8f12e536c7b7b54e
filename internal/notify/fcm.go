// Package notify pushes order status changes to customers through Firebase
// Cloud Messaging. Each customer's app subscribes to the topic user-<uid>
// after sign-in, so the backend never stores device tokens.
package notify

import (
	"context"
	"fmt"
	"log"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"

	"village/internal/modules/order"
)

type sender interface {
	Send(ctx context.Context, msg *messaging.Message) (string, error)
}

// FCM implements order.Notifier.
type FCM struct {
	client sender
}

func NewFCM(ctx context.Context, app *firebase.App) (*FCM, error) {
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialising firebase messaging client: %w", err)
	}
	return &FCM{client: client}, nil
}

func (f *FCM) OrderStatusChanged(ctx context.Context, ev order.StatusEvent) error {
	if ev.CustomerID == "" {
		return fmt.Errorf("order %s has no customer to notify", ev.OrderID)
	}
	msg := statusMessage(ev)
	messageID, err := f.client.Send(ctx, msg)
	if err != nil {
		return fmt.Errorf("sending FCM to topic %s: %w", msg.Topic, err)
	}
	log.Printf("FCM sent for order %s (%s), message_id=%s", ev.OrderID, ev.To, messageID)
	return nil
}

// TopicFor is the FCM topic the customer app subscribes to.
func TopicFor(uid string) string {
	return "user-" + uid
}

func statusMessage(ev order.StatusEvent) *messaging.Message {
	title, body := statusText(ev)
	return &messaging.Message{
		Topic: TopicFor(ev.CustomerID),
		Data: map[string]string{
			"type":       "order_status",
			"order_id":   string(ev.OrderID),
			"order_type": string(ev.OrderType),
			"status":     string(ev.To),
			"at":         ev.At.UTC().Format(time.RFC3339),
		},
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
	}
}

func statusText(ev order.StatusEvent) (string, string) {
	var body string
	switch ev.To {
	case order.StatusPending:
		body = "We have received your order."
	case order.StatusConfirmed:
		body = "Your order is confirmed."
	case order.StatusAssigned:
		body = "A team member has been assigned."
	case order.StatusPicked:
		body = "Your order has been picked up."
	case order.StatusOnway:
		body = "Your order is on the way."
	case order.StatusDelivered:
		body = "Your order has been delivered."
	case order.StatusCompleted:
		body = "Your order is complete. Thank you!"
	case order.StatusCancelled:
		body = "Your order was cancelled."
	default:
		body = fmt.Sprintf("Order status: %s", ev.To)
	}
	if ev.Note != "" && ev.To != order.StatusPending {
		body += " " + ev.Note
	}
	return fmt.Sprintf("Order %s", shortID(string(ev.OrderID))), body
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
