package auditlog

import (
	"fmt"
	"strings"
)

// Config carries the audit settings shared with the log writers. The reader
// is enabled only when all four are set.
type Config struct {
	LogSpaceID string // bucket holding the audit log objects
	QueueName  string
	Username   string
	Password   string
}

// Enabled reports whether every audit setting is present.
func (c Config) Enabled() bool {
	for _, v := range []string{c.LogSpaceID, c.QueueName, c.Username, c.Password} {
		if strings.TrimSpace(v) == "" {
			return false
		}
	}
	return true
}

// Scope selects the audit objects of one logical space.
type Scope struct {
	Account string
	StoreID string
	SpaceID string
}

// Prefix is the object key prefix for the scope: account/storeId/spaceId/.
func (s Scope) Prefix() string {
	return s.Account + "/" + s.StoreID + "/" + s.SpaceID + "/"
}

// Validate rejects blank components and components containing a slash, either
// of which would widen the prefix beyond one space.
func (s Scope) Validate() error {
	for _, part := range []struct{ name, value string }{
		{"account", s.Account},
		{"store id", s.StoreID},
		{"space id", s.SpaceID},
	} {
		if strings.TrimSpace(part.value) == "" {
			return fmt.Errorf("%w: %s is empty", ErrInvalidScope, part.name)
		}
		if strings.Contains(part.value, "/") {
			return fmt.Errorf("%w: %s %q contains '/'", ErrInvalidScope, part.name, part.value)
		}
	}
	return nil
}

func (s Scope) String() string {
	return s.Account + "/" + s.StoreID + "/" + s.SpaceID
}
