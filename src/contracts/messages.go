package contracts

// StoredRecord is a forwarded record as kept by the control plane.
type StoredRecord struct {
	// Unique identifier assigned on receipt.
	ID string `json:"id"`
	// Device that forwarded the record.
	DeviceID string `json:"device_id"`
	// Time the control plane received it (RFC 3339).
	ReceivedAt string `json:"received_at"`
	// The record as sent by the agent.
	Record LogRecord `json:"record"`
}

// DeviceSummary describes one device known to the control plane.
type DeviceSummary struct {
	ID string `json:"id"`
	// Active policy for the device (the default when none was set).
	Policy Policy `json:"policy"`
	// Number of stored records.
	Records int `json:"records"`
	// Last heartbeat or record time (RFC 3339), empty when never seen.
	LastSeen string `json:"last_seen,omitempty"`
}

// Heartbeat is the optional liveness report sent after each policy refresh.
type Heartbeat struct {
	Timestamp string `json:"timestamp"`
	// Priorities of the policy the agent has active.
	Priorities []string `json:"priorities"`
	// Number of match predicates installed on the journal.
	Filters int `json:"filters"`
}

// TopicLogs is the default topic forwarded records are published to when the agent
// uses a Kafka-compatible sink. The device id is the record key.
const TopicLogs = "logrero.logs"
