package domain

// DeliveryConfigID is the fixed key of the single delivery_config row.
const DeliveryConfigID = "1"

// DeliveryConfig holds the delivery service's bearer credential and endpoint.
// Exactly one row exists; it is lazily created with a freshly fetched token
// the first time the token store loads it.
type DeliveryConfig struct {
	ConfigID  string `json:"id" dynamodbav:"config_id"`
	AuthToken string `json:"auth_token" dynamodbav:"auth_token"`
	Endpoint  string `json:"endpoint" dynamodbav:"endpoint"`
}
