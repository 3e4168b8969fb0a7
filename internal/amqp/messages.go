package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// ChangeMessage tells consumers that one collection of a user changed.
// It carries no data: consumers reload what they need from the store.
type ChangeMessage struct {
	UserID     string    `json:"user_id"`
	Collection string    `json:"collection"`
	Timestamp  time.Time `json:"timestamp"`
}

func NewChangeMessage(userID, collection string) *ChangeMessage {
	return &ChangeMessage{
		UserID:     userID,
		Collection: collection,
		Timestamp:  time.Now(),
	}
}

func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ChangeMessageFromJSON decodes a message and rejects one without a user.
func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.UserID == "" {
		return nil, errors.New("change message without user_id")
	}
	return &msg, nil
}
