package email

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/imrishuroy/omnichannel-fulfillment/internal/aws"
	"github.com/imrishuroy/omnichannel-fulfillment/internal/awstest"
)

func TestSQSNotifier_Send(t *testing.T) {
	fake := awstest.NewFakeSQS()
	n := NewSQSNotifier(aws.NewPublisher(fake, "emails-url"))

	err := n.Send(context.Background(), Message{
		Type: OrderConfirmation,
		To:   []string{"a@x.com", "b@x.com"},
		Data: Data{OrderNumber: "113-1", LineItems: []LineItem{{SKU: "SKU1", Quantity: 2}}},
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	sent := fake.Sent("emails-url")
	if len(sent) != 1 {
		t.Fatalf("expected 1 message, got %d", len(sent))
	}
	if sent[0].Attr("EmailType") != "ORDER_CONFIRMATION" {
		t.Fatalf("unexpected attributes %v", sent[0].Attributes)
	}
	var got Message
	if err := json.Unmarshal([]byte(sent[0].Body), &got); err != nil {
		t.Fatalf("body: %v", err)
	}
	if len(got.To) != 2 || got.Data.OrderNumber != "113-1" {
		t.Fatalf("unexpected body %+v", got)
	}
}

func TestSQSNotifier_NoRecipients(t *testing.T) {
	fake := awstest.NewFakeSQS()
	n := NewSQSNotifier(aws.NewPublisher(fake, "emails-url"))

	if err := n.Send(context.Background(), Message{Type: OrderCancellation}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(fake.Sent("emails-url")) != 0 {
		t.Fatalf("expected nothing sent")
	}
}
