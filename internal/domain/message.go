package domain

// Form field names of the delivery service's send endpoint.
const (
	ParamRegistrationID = "registration_id"
	ParamCollapseKey    = "collapse_key"
	ParamDelayWhileIdle = "delay_while_idle"

	// DataPrefix namespaces every custom payload key on the wire.
	DataPrefix = "data."
)

// Push payload data keys the Android client's message receiver understands.
const (
	DataKeyInterestID = "geatteid"
	DataKeyMessage    = "message"
	DataKeyAccount    = "account"
)

// OutboundMessage is a single push message addressed to one device
// registration. It is constructed per send attempt and never persisted;
// a retried message carries the identical field values.
type OutboundMessage struct {
	RegistrationID string            `json:"registration_id"`
	CollapseKey    string            `json:"collapse_key"`
	DelayWhileIdle bool              `json:"delay_while_idle"`
	Data           map[string]string `json:"data"`
}
