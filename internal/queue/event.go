package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

// TopicSubmissionReceived carries a SubmissionEvent for every stored
// submission or opt-in.
const TopicSubmissionReceived = "submission_received"

const (
	KindSubmission = "submission"
	KindOptIn      = "opt_in"
)

type SubmissionEvent struct {
	Kind            string    `json:"kind"`
	RecordID        string    `json:"record_id"`
	CampaignID      string    `json:"campaign_id"`
	CampaignTitle   string    `json:"campaign_title"`
	CampaignContact string    `json:"campaign_contact"`
	ActivityName    string    `json:"activity_name,omitempty"`
	MainSNS         string    `json:"main_sns,omitempty"`
	MainAccount     string    `json:"main_account,omitempty"`
	ContactEmail    string    `json:"contact_email,omitempty"`
	ContactLineID   string    `json:"contact_line_id,omitempty"`
	Attachments     int       `json:"attachments"`
	CreatedAt       time.Time `json:"created_at"`
}

// DecodeSubmissionEvent accepts the payload shapes the queues deliver:
// the event itself from InMemoryQueue, or its JSON body from AMQP.
func DecodeSubmissionEvent(payload any) (SubmissionEvent, error) {
	switch p := payload.(type) {
	case SubmissionEvent:
		return p, nil
	case *SubmissionEvent:
		if p == nil {
			return SubmissionEvent{}, fmt.Errorf("nil submission event")
		}
		return *p, nil
	case []byte:
		var ev SubmissionEvent
		if err := json.Unmarshal(p, &ev); err != nil {
			return SubmissionEvent{}, fmt.Errorf("decode submission event: %w", err)
		}
		return ev, nil
	}
	return SubmissionEvent{}, fmt.Errorf("unexpected payload type %T", payload)
}
