package domain

import "time"

// Message represents one chat message between two users.
// CreatedAt is server-assigned and is the sole ordering key of a
// conversation; Read is the only field ever mutated.
type Message struct {
	ID        string    `bson:"_id" json:"id"`
	From      string    `bson:"from" json:"from"`
	To        string    `bson:"to" json:"to"`
	Text      string    `bson:"text" json:"text"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	Read      bool      `bson:"read" json:"read"`
}

// IsBetween check the message belongs to the a-b conversation pair
func (m *Message) IsBetween(a, b string) bool {
	return (m.From == a && m.To == b) || (m.From == b && m.To == a)
}

// PeerOf return the other participant relative to userID
func (m *Message) PeerOf(userID string) string {
	if m.From == userID {
		return m.To
	}
	return m.From
}
