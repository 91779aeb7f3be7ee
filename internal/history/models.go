package history

import "time"

const (
	DirectionSent     = "sent"
	DirectionReceived = "received"
)

// Record is one logged frame, header fields flattened for querying.
type Record struct {
	ID           uint      `gorm:"primarykey"`
	Direction    string    `gorm:"index;size:10"`
	DestAddr     uint16
	DestOffset   uint8
	SenderAddr   uint16
	SenderOffset uint8
	Payload      string
	CreatedAt    time.Time `gorm:"index"`
}

// TableName specifies the table name for GORM
func (Record) TableName() string {
	return "messages"
}
