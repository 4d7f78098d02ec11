package main

import (
	"strconv"

	"github.com/aws/aws-lambda-go/events"

	"github.com/imrishuroy/omnichannel-fulfillment/internal/retry"
)

// Worker roles, one per queue consumer.
const (
	RoleNotifications = "notifications"
	RoleCommands      = "commands"
	RoleErrors        = "errors"
)

// failureCount reads the FailureCount attribute; a missing or malformed value counts as 0.
func failureCount(rec events.SQSMessage) int {
	n, err := strconv.Atoi(stringAttr(rec, retry.AttrFailureCount))
	if err != nil {
		return 0
	}
	return n
}

func stringAttr(rec events.SQSMessage, name string) string {
	attr, ok := rec.MessageAttributes[name]
	if !ok || attr.StringValue == nil {
		return ""
	}
	return *attr.StringValue
}

// retryMessage is how the errors queue record reaches the router.
func retryMessage(rec events.SQSMessage) retry.Message {
	return retry.Message{
		Body:         rec.Body,
		ErrorType:    stringAttr(rec, retry.AttrErrorType),
		FailureCount: failureCount(rec),
		EventTime:    stringAttr(rec, retry.AttrEventTime),
	}
}
