// Package queue defines message payloads exchanged over the message broker.
package queue

// OwnerRegisteredEvent is published when a system manager registers a new
// station owner. It carries enough information for downstream consumers to
// log or feed reporting without querying the primary database.
type OwnerRegisteredEvent struct {
	ManagerID       uint64 `json:"manager_id"`
	ManagerUsername string `json:"manager_username"`
	OwnerID         uint64 `json:"owner_id"`
	OwnerUsername   string `json:"owner_username"`
	OwnerEmail      string `json:"owner_email"`
	RegisteredAt    string `json:"registered_at"`
}
