package spec

import (
	"crypto/rand"
	"fmt"
)

// Secret is an opaque credential value. All the usual formatting paths
// (fmt, JSON, %#v) render a placeholder so a secret can never leak into
// logs or event output. Use Reveal at the single point of consumption.
type Secret string

// Reveal returns the underlying value.
func (s Secret) Reveal() string { return string(s) }

// IsZero reports whether the secret is unset.
func (s Secret) IsZero() bool { return s == "" }

func (s Secret) String() string   { return "[redacted]" }
func (s Secret) GoString() string { return "[redacted]" }

// MarshalJSON redacts the value. Secrets are inputs, never outputs.
func (s Secret) MarshalJSON() ([]byte, error) {
	return []byte(`"[redacted]"`), nil
}

// Credentials are the administrative secrets used only at site creation
// time. Ownership is transient: the provisioner consumes them for the
// one-time bootstrap and nothing persists them afterwards.
type Credentials struct {
	// DBRootPassword authenticates the one-time schema bootstrap against
	// the stack database.
	DBRootPassword Secret `json:"db_root_password"`

	// AdminPassword becomes the new site's administrator password.
	AdminPassword Secret `json:"admin_password"`
}

// GenerateSecret returns a random 16-byte hex secret. Used when the
// operator does not supply a credential explicitly.
func GenerateSecret() Secret {
	b := make([]byte, 16)
	rand.Read(b)
	return Secret(fmt.Sprintf("%x", b))
}
