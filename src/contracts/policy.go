// Package contracts defines the data exchanged between the agent and the control plane.
package contracts

import "net/url"

// Policy is the set of journal priorities the control plane wants forwarded.
// A fetched Policy is never modified; a newer one replaces it wholesale.
type Policy struct {
	Priorities []string `json:"priorities"`
}

// Equal reports structural equality: same priorities in the same order.
// A nil and an empty priority list are equal.
func (p Policy) Equal(other Policy) bool {
	if len(p.Priorities) != len(other.Priorities) {
		return false
	}
	for i := range p.Priorities {
		if p.Priorities[i] != other.Priorities[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy that shares no memory with p.
func (p Policy) Clone() Policy {
	if p.Priorities == nil {
		return Policy{}
	}
	priorities := make([]string, len(p.Priorities))
	copy(priorities, p.Priorities)
	return Policy{Priorities: priorities}
}

// AgentIdentity addresses every control-plane call made by one agent process.
type AgentIdentity struct {
	// ID is the device id used in API paths.
	ID string
	// Endpoint is the control-plane base URL, e.g. http://127.0.0.1:8080.
	Endpoint *url.URL
	// Credential is sent as a bearer token.
	Credential string
}
