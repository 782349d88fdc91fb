package models

import (
	"time"

	"github.com/basel-ax/watermark-builder/internal/domain"
)

// APIResponse is the envelope of every JSON response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthCheck reports the state of the service and its dependencies
type HealthCheck struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]string `json:"services"`
}

// CreatedSession is returned when a session is created
type CreatedSession struct {
	ID string `json:"id"`
}

// ModeRequest selects a watermark mode
type ModeRequest struct {
	Mode domain.Mode `json:"mode"`
}

// SubmitAccepted carries the sequence number of an issued request
type SubmitAccepted struct {
	Seq uint64 `json:"seq"`
}

// Status is the observed outcome of a session
type Status struct {
	State   string `json:"state"`
	Message string `json:"message,omitempty"`
	Seq     uint64 `json:"seq"`
}

// Exported holds the location of an exported result
type Exported struct {
	Location string `json:"location"`
}

// CustomParamsView shows custom parameters without the watermark bytes
type CustomParamsView struct {
	Opacity       *float64             `json:"opacity,omitempty"`
	RotationAngle *int                 `json:"rotation_angle,omitempty"`
	DensityLevel  *domain.DensityLevel `json:"density_level,omitempty"`
	HasWatermark  bool                 `json:"has_watermark"`
}

// SessionView is the JSON form of a session snapshot
type SessionView struct {
	ID         string                     `json:"id"`
	Mode       domain.Mode                `json:"mode"`
	Text       domain.TextWatermarkParams `json:"text"`
	Custom     CustomParamsView           `json:"custom"`
	HasPicture bool                       `json:"has_picture"`
	Status     Status                     `json:"status"`
}

// SubmissionView is one entry of the submission history
type SubmissionView struct {
	Seq       uint64    `json:"seq"`
	Mode      string    `json:"mode"`
	State     string    `json:"state"`
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
