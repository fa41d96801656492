package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"vetdesk-backend/internal/db"
)

// DeliveryLog records sent summary emails in PostgreSQL. The server runs
// fine without it; logging is best effort.
type DeliveryLog struct {
	db *db.DB
}

func NewDeliveryLog(database *db.DB) *DeliveryLog {
	return &DeliveryLog{db: database}
}

// Delivery is one sent summary email.
type Delivery struct {
	ID        string    `json:"id"`
	Recipient string    `json:"recipient"`
	ClientIP  string    `json:"clientIp"`
	MessageID string    `json:"messageId"`
	SentAt    time.Time `json:"sentAt"`
}

// Record inserts one delivery row.
func (dl *DeliveryLog) Record(recipient, clientIP, messageID string) error {
	if recipient == "" || messageID == "" {
		return fmt.Errorf("recipient and message_id are required")
	}
	query := `
		INSERT INTO summary_deliveries (id, recipient, client_ip, message_id, sent_at)
		VALUES ($1, $2, $3, $4, NOW())
	`
	if _, err := dl.db.Exec(query, uuid.NewString(), recipient, clientIP, messageID); err != nil {
		return fmt.Errorf("failed to record delivery: %w", err)
	}
	return nil
}

// CountSince reports how many summaries a recipient received after the cutoff.
func (dl *DeliveryLog) CountSince(recipient string, since time.Time) (int, error) {
	if recipient == "" {
		return 0, fmt.Errorf("recipient is required")
	}
	var count int
	query := `SELECT COUNT(*) FROM summary_deliveries WHERE recipient = $1 AND sent_at >= $2`
	if err := dl.db.QueryRow(query, recipient, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count deliveries: %w", err)
	}
	return count, nil
}

// Recent returns the latest deliveries, newest first.
func (dl *DeliveryLog) Recent(limit int) ([]Delivery, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
		SELECT id, recipient, client_ip, message_id, sent_at
		FROM summary_deliveries
		ORDER BY sent_at DESC
		LIMIT $1
	`
	rows, err := dl.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list deliveries: %w", err)
	}
	defer rows.Close()

	var out []Delivery
	for rows.Next() {
		var d Delivery
		if err := rows.Scan(&d.ID, &d.Recipient, &d.ClientIP, &d.MessageID, &d.SentAt); err != nil {
			return nil, fmt.Errorf("failed to scan delivery: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
