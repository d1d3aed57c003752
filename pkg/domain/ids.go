package domain

import (
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/net/idna"

	dErrors "github.com/alangunning/nomulus/pkg/domain-errors"
)

// RegistrarID is the EPP client identifier (clID) of a registrar.
// Parsed values are 3 to 16 printable, non-space characters.
type RegistrarID string

const (
	minRegistrarIDLength = 3
	maxRegistrarIDLength = 16
	maxDomainNameLength  = 253
	maxLabelLength       = 63
)

// ParseRegistrarID validates a registrar identifier at a trust boundary.
func ParseRegistrarID(s string) (RegistrarID, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "registrar id is required")
	}
	if len(s) < minRegistrarIDLength || len(s) > maxRegistrarIDLength {
		return "", dErrors.New(dErrors.CodeInvalidInput, "registrar id must be 3 to 16 characters")
	}
	for _, r := range s {
		if unicode.IsSpace(r) || !unicode.IsPrint(r) {
			return "", dErrors.New(dErrors.CodeInvalidInput, "registrar id contains invalid characters")
		}
	}
	return RegistrarID(s), nil
}

func (id RegistrarID) String() string { return string(id) }

func (id RegistrarID) IsNil() bool { return id == "" }

// DomainName is a fully qualified domain name in canonical form: ASCII
// (punycode for IDNs), lower case, no trailing dot.
type DomainName string

// ParseDomainName canonicalizes and validates a fully qualified domain name.
// Unicode labels are converted to their A-label form.
func ParseDomainName(s string) (DomainName, error) {
	s = strings.TrimSuffix(strings.TrimSpace(s), ".")
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "domain name is required")
	}
	ascii, err := idna.Lookup.ToASCII(s)
	if err != nil {
		return "", dErrors.New(dErrors.CodeInvalidInput, "domain name is not a valid host name")
	}
	ascii = strings.ToLower(ascii)
	if len(ascii) > maxDomainNameLength {
		return "", dErrors.New(dErrors.CodeInvalidInput, "domain name is too long")
	}
	labels := strings.Split(ascii, ".")
	if len(labels) < 2 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "domain name must be fully qualified")
	}
	for _, label := range labels {
		if label == "" || len(label) > maxLabelLength {
			return "", dErrors.New(dErrors.CodeInvalidInput, "domain name has an empty or oversized label")
		}
	}
	return DomainName(ascii), nil
}

func (n DomainName) String() string { return string(n) }

func (n DomainName) IsNil() bool { return n == "" }

// TLD returns the last label of the name.
func (n DomainName) TLD() string {
	s := string(n)
	return s[strings.LastIndex(s, ".")+1:]
}

// RepoID is the repository object identifier (ROID) assigned at creation.
type RepoID uuid.UUID

// NewRepoID allocates a fresh repository id.
func NewRepoID() RepoID { return RepoID(uuid.New()) }

// ParseRepoID parses a non-nil UUID repository id.
func ParseRepoID(s string) (RepoID, error) {
	if s == "" {
		return RepoID{}, dErrors.New(dErrors.CodeInvalidInput, "repo id is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return RepoID{}, dErrors.New(dErrors.CodeInvalidInput, "repo id is not a valid uuid")
	}
	if u == uuid.Nil {
		return RepoID{}, dErrors.New(dErrors.CodeInvalidInput, "repo id cannot be nil")
	}
	return RepoID(u), nil
}

func (id RepoID) String() string { return uuid.UUID(id).String() }

func (id RepoID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id RepoID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *RepoID) UnmarshalText(b []byte) error {
	var u uuid.UUID
	if err := u.UnmarshalText(b); err != nil {
		return err
	}
	*id = RepoID(u)
	return nil
}
