// internal/errors/errors.go
package appErrors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrCampaignNotFound is returned when no campaign has the given ID
type ErrCampaignNotFound struct {
	CampaignID string
}

func (e *ErrCampaignNotFound) Error() string {
	return fmt.Sprintf("campaign with ID %s not found", e.CampaignID)
}

func NewCampaignNotFound(id string) error {
	return &ErrCampaignNotFound{CampaignID: id}
}

// ErrTokenNotFound is returned when no campaign is distributed under the token
type ErrTokenNotFound struct {
	Token string
}

func (e *ErrTokenNotFound) Error() string {
	return fmt.Sprintf("no campaign for token %q", e.Token)
}

func NewTokenNotFound(token string) error {
	return &ErrTokenNotFound{Token: token}
}

type ErrSessionNotFound struct {
	SessionID string
}

func (e *ErrSessionNotFound) Error() string {
	return fmt.Sprintf("wizard session %s not found", e.SessionID)
}

func NewSessionNotFound(id string) error {
	return &ErrSessionNotFound{SessionID: id}
}

// ErrAttachmentNotFound is returned when a session holds no attachment for the reference
type ErrAttachmentNotFound struct {
	Ref string
}

func (e *ErrAttachmentNotFound) Error() string {
	return fmt.Sprintf("no attachment %q in this session", e.Ref)
}

func NewAttachmentNotFound(ref string) error {
	return &ErrAttachmentNotFound{Ref: ref}
}

// IsNotFound reports whether err belongs to the not-found class.
func IsNotFound(err error) bool {
	var c *ErrCampaignNotFound
	var t *ErrTokenNotFound
	var s *ErrSessionNotFound
	var a *ErrAttachmentNotFound
	return errors.As(err, &c) || errors.As(err, &t) || errors.As(err, &s) || errors.As(err, &a)
}

// ValidationError carries field key -> message for user input errors.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return "validation failed: " + strings.Join(keys, ", ")
}

func NewValidationError(fields map[string]string) error {
	return &ValidationError{Fields: fields}
}

var (
	// ErrPolicyBlocked marks operations that are disabled on purpose, not failing.
	ErrPolicyBlocked = errors.New("automatic fetch requires a paid API contract")

	ErrUnsupportedPlatform     = errors.New("unsupported platform")
	ErrFileTooLarge            = errors.New("file exceeds the size limit")
	ErrFileTypeNotAllowed      = errors.New("file type is not allowed")
	ErrUnrecognizedObjectRef   = errors.New("unrecognized storage object reference")
	ErrInvalidTransition       = errors.New("invalid wizard transition")
	ErrSubmitInFlight          = errors.New("a submission is already in progress")
	ErrCampaignClosed          = errors.New("campaign is closed")
	ErrSlugTaken               = errors.New("slug is already in use")
	ErrInvalidStatusTransition = errors.New("invalid campaign status transition")
	ErrStaleSession            = errors.New("session changed while the request was pending")
)
