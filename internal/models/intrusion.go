package models

import "time"

// IntrusionLogEntry is a persisted, append-only record of a confirmed unknown-face event.
type IntrusionLogEntry struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	Timestamp  time.Time `gorm:"index;not null" json:"timestamp"`
	FaceImage  string    `gorm:"type:longtext;not null" json:"face_image"`
	CameraName string    `gorm:"size:191;index" json:"camera_name" example:"Front Door"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (IntrusionLogEntry) TableName() string { return "unknown_face_logs" }

// IntrusionLogPage is one page of the intrusion log, newest first.
type IntrusionLogPage struct {
	Entries    []IntrusionLogEntry `json:"entries"`
	Page       int                 `json:"page"`
	PageSize   int                 `json:"page_size"`
	TotalPages int                 `json:"total_pages"`
	TotalCount int64               `json:"total_count"`
}

// IntrusionLogRequest is a client-submitted intrusion, dispatched like a pipeline alert.
type IntrusionLogRequest struct {
	FaceImage  string `json:"face_image" binding:"required"`
	CameraName string `json:"camera_name" binding:"required" example:"Front Door"`
}

// IntrusionEvent is broadcast on the event bus after an entry is persisted. It carries no image.
type IntrusionEvent struct {
	LogID      string    `json:"log_id"`
	CameraID   string    `json:"camera_id,omitempty"`
	CameraName string    `json:"camera_name"`
	Timestamp  time.Time `json:"timestamp"`
	WorkerID   string    `json:"worker_id,omitempty"`
}

// Setting is a singleton key/value pair.
type Setting struct {
	Key       string    `gorm:"primaryKey;size:191" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

const SettingAlertRecipientEmail = "alertRecipientEmail"
