package approval

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// rosterFile models the on-disk approver roster:
//
//	approvers:
//	  - user_id: alice
//	    name: Alice Example
//	    email: alice@example.com
//	escalation:
//	  - risk-committee@example.com
type rosterFile struct {
	Approvers  []Identity `yaml:"approvers"`
	Escalation []string   `yaml:"escalation"`
}

// Roster is an IdentityProvider backed by a YAML file loaded at startup
type Roster struct {
	identities map[string]Identity
	escalation []string
}

// LoadRoster reads and validates a roster file
func LoadRoster(path string) (*Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("roster: read %s: %w", path, err)
	}
	return ParseRoster(data)
}

// ParseRoster parses roster YAML
func ParseRoster(data []byte) (*Roster, error) {
	var file rosterFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("roster: parse: %w", err)
	}

	r := &Roster{
		identities: make(map[string]Identity, len(file.Approvers)),
		escalation: file.Escalation,
	}
	for i, identity := range file.Approvers {
		if identity.UserID == "" {
			return nil, fmt.Errorf("roster: approvers[%d] has no user_id", i)
		}
		if _, dup := r.identities[identity.UserID]; dup {
			return nil, fmt.Errorf("roster: duplicate user_id %q", identity.UserID)
		}
		r.identities[identity.UserID] = identity
	}
	return r, nil
}

// Lookup implements IdentityProvider
func (r *Roster) Lookup(_ context.Context, userID string) (Identity, bool, error) {
	identity, ok := r.identities[userID]
	return identity, ok, nil
}

// EscalationContacts returns the configured escalation contacts
func (r *Roster) EscalationContacts() []string {
	return append([]string(nil), r.escalation...)
}

// Size returns the number of known identities
func (r *Roster) Size() int {
	return len(r.identities)
}
