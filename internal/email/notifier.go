// Package email hands transactional emails to the mail sender through an SQS outbox.
package email

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/imrishuroy/omnichannel-fulfillment/internal/aws"
)

type Type string

const (
	OrderConfirmation Type = "ORDER_CONFIRMATION"
	OrderCancellation Type = "ORDER_CANCELLATION"
	OrderRejection    Type = "ORDER_REJECTION"
)

// LineItem is one row of the confirmation email.
type LineItem struct {
	Title    string `json:"title"`
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
}

// Data carries the template variables.
type Data struct {
	IsTest         bool       `json:"is_test"`
	OrderNumber    string     `json:"order_number"`
	OrderAdminURL  string     `json:"order_admin_url"`
	TotalLineItems int        `json:"total_line_items,omitempty"`
	LineItems      []LineItem `json:"line_items,omitempty"`
}

type Message struct {
	Type Type     `json:"type"`
	To   []string `json:"to"`
	Data Data     `json:"data"`
}

// Notifier sends one email. Callers treat failures as best-effort.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

type sender interface {
	Send(ctx context.Context, msg aws.Message) error
}

// SQSNotifier writes messages to the emails queue.
type SQSNotifier struct {
	queue sender
}

func NewSQSNotifier(queue sender) *SQSNotifier {
	return &SQSNotifier{queue: queue}
}

// Send skips messages without recipients.
func (n *SQSNotifier) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return nil
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}
	if err := n.queue.Send(ctx, aws.Message{
		Body:       string(b),
		Attributes: map[string]string{"EmailType": string(msg.Type)},
	}); err != nil {
		return fmt.Errorf("enqueue %s email: %w", msg.Type, err)
	}
	return nil
}

// Nop drops every message.
type Nop struct{}

func (Nop) Send(context.Context, Message) error { return nil }
