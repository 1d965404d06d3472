package model

import "time"

// VisitEvent records a single use of a pass at the access gate.
type VisitEvent struct {
	ID          string    `json:"id" gorm:"primaryKey;size:36"`
	VisitorUUID string    `json:"visitor_uuid" gorm:"index;size:36"`
	IP          string    `json:"ip" gorm:"size:45"`
	UserAgent   string    `json:"user_agent" gorm:"size:512"`
	Timestamp   time.Time `json:"timestamp" gorm:"index"`
}

const (
	VisitStreamName     = "VISITS"
	VisitStreamSubject  = "visits.events"
	VisitConsumerName   = "visit-logger"
	VisitStreamMaxBytes = 1024 * 1024 * 100 // 100MB
)
