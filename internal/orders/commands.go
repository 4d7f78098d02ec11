package orders

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/imrishuroy/omnichannel-fulfillment/internal/fulfillment"
)

// CommandType names a deferred backend call placed on the commands queue.
type CommandType string

const (
	CommandConfirmShipment CommandType = "CONFIRM_SHIPMENT"
	CommandRejectShipment  CommandType = "REJECT_SHIPMENT"
)

// Command is the body of a commands queue message. The commit decision produces them;
// the commands worker executes them.
type Command struct {
	Type       CommandType                  `json:"type"`
	ShipmentID string                       `json:"shipment_id"`
	LocationID string                       `json:"location_id,omitempty"`
	LineItems  []fulfillment.RejectLineItem `json:"line_items,omitempty"`
	EventTime  time.Time                    `json:"event_time"`
}

// ParseCommand decodes and checks a commands queue body.
func ParseCommand(body string) (*Command, error) {
	var c Command
	if err := json.Unmarshal([]byte(body), &c); err != nil {
		return nil, fmt.Errorf("decode command: %w", err)
	}
	switch c.Type {
	case CommandConfirmShipment, CommandRejectShipment:
	default:
		return nil, fmt.Errorf("unknown command type %q", c.Type)
	}
	if c.ShipmentID == "" {
		return nil, fmt.Errorf("command %s without shipment id", c.Type)
	}
	return &c, nil
}

func (c *Command) encode() (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encode command: %w", err)
	}
	return string(b), nil
}
