package domain

// ServiceState is the lifecycle state of a simulated service.
//
//	inactive --(add)--> pending --(next round)--> active --(remove)--> inactive
type ServiceState string

const (
	StateInactive ServiceState = "inactive"
	StatePending  ServiceState = "pending"
	StateActive   ServiceState = "active"
)

// ServiceStatus reports the current state of one catalog service.
type ServiceStatus struct {
	Name  string       `json:"name"`
	State ServiceState `json:"state"`
	// LastAvailability is the value recorded in the most recent round that
	// included the service, empty if it never appeared.
	LastAvailability string `json:"last_availability,omitempty"`
}
