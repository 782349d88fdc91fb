package domain

import "time"

// Preset is the saved set of watermark settings of one owner. The image
// watermark itself is not part of a preset.
type Preset struct {
	Mode   Mode                  `json:"mode"`
	Text   TextWatermarkParams   `json:"text"`
	Custom CustomWatermarkParams `json:"custom"`
}

// SubmissionRecord is one entry of the submission history
type SubmissionRecord struct {
	ID        int64
	SessionID string
	Seq       uint64
	Mode      Mode
	State     RequestState
	Message   string
	CreatedAt time.Time
	UpdatedAt time.Time
}
