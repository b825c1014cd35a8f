// Package idgen generates default client identifiers when the caller
// doesn't supply one.
package idgen

import "github.com/google/uuid"

// ClientID returns a new random client identifier, prefixed so it's
// recognizable as generated rather than caller-supplied when it shows up
// in logs or broker ACLs.
func ClientID() string {
	return "mqttv5-" + uuid.NewString()
}
