package domain

import "time"

// Interest is a photo/opinion a user shares with friends for yes/no feedback.
// The photo itself lives in object storage under ImageKey; the push message
// sent to each friend's device carries only the interest id.
type Interest struct {
	InterestID  string    `json:"id" dynamodbav:"interest_id"`
	Owner       string    `json:"owner" dynamodbav:"owner"`
	Message     string    `json:"message" dynamodbav:"message"`
	ImageKey    string    `json:"image_key" dynamodbav:"image_key"`
	ContentType string    `json:"content_type" dynamodbav:"content_type"`
	CreatedAt   time.Time `json:"created" dynamodbav:"created_at"`
}
