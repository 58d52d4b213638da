package app

import (
	"fmt"
	"time"
)

// CaptureTarget selects the capture file and the part of the disk to read
type CaptureTarget struct {
	RawPath     string
	Tracks      int
	Heads       int
	CatalogOnly bool
}

// Validate ensures the capture target is usable
func (ct *CaptureTarget) Validate() error {
	if ct.RawPath == "" {
		return NewError(ErrCodeInvalidInput, "capture file path is required", nil)
	}
	if ct.Tracks < 0 || ct.Tracks > 84 {
		return NewError(ErrCodeInvalidInput, fmt.Sprintf("tracks must be at most 84, got %d", ct.Tracks), nil)
	}
	if ct.Heads < 0 || ct.Heads > 2 {
		return NewError(ErrCodeInvalidInput, fmt.Sprintf("heads must be 1 or 2, got %d", ct.Heads), nil)
	}
	return nil
}

// String returns a string representation of the capture target
func (ct *CaptureTarget) String() string {
	result := "Capture: " + ct.RawPath
	if ct.Tracks > 0 {
		result += fmt.Sprintf(" (%d tracks)", ct.Tracks)
	}
	if ct.Heads > 0 {
		result += fmt.Sprintf(" (%d heads)", ct.Heads)
	}
	if ct.CatalogOnly {
		result += " (catalogue only)"
	}
	return result
}

// ProgressUpdate represents progress information
type ProgressUpdate struct {
	Message     string
	Completed   int64
	Total       int64
	StartedAt   time.Time
	ElapsedTime time.Duration
}

// Percent calculates completion percentage
func (p *ProgressUpdate) Percent() int {
	if p.Total == 0 {
		return 0
	}
	return int((p.Completed * 100) / p.Total)
}

// Rate calculates items per second
func (p *ProgressUpdate) Rate() float64 {
	if p.ElapsedTime == 0 {
		return 0
	}
	return float64(p.Completed) / p.ElapsedTime.Seconds()
}

// ETA estimates time to completion
func (p *ProgressUpdate) ETA() time.Duration {
	if p.Completed == 0 || p.Total == 0 {
		return 0
	}
	rate := p.Rate()
	if rate == 0 {
		return 0
	}
	remaining := p.Total - p.Completed
	return time.Duration(float64(remaining) / rate * float64(time.Second))
}

// CommonError represents application-level errors
type CommonError struct {
	Code    string
	Message string
	Cause   error
}

func (e *CommonError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *CommonError) Unwrap() error {
	return e.Cause
}

// Common error codes
const (
	ErrCodeInvalidInput  = "INVALID_INPUT"
	ErrCodeConfig        = "CONFIG"
	ErrCodeCaptureAccess = "CAPTURE_ACCESS"
	ErrCodeUnknownFormat = "UNKNOWN_FORMAT"
	ErrCodeIncomplete    = "INCOMPLETE"
	ErrCodeTimeout       = "TIMEOUT"
)

// NewError creates a new CommonError
func NewError(code, message string, cause error) *CommonError {
	return &CommonError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}
