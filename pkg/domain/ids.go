package domain

import (
	"github.com/google/uuid"

	dErrors "veriloc/pkg/domain-errors"
)

// ID value types are distinct uuid wrappers so the compiler rejects mixing a
// subject with a target or an organization.
//
// Invariant: IDs must be valid, non-nil UUIDs. Construct via the Parse*
// functions at trust boundaries; direct casting bypasses validation.
type (
	// SubjectID identifies a tracked data subject (a worker).
	SubjectID uuid.UUID
	// TargetID identifies a geofenced work site.
	TargetID uuid.UUID
	// OrgID identifies the organization owning a target.
	OrgID uuid.UUID
)

func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id is not a valid uuid")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be the nil uuid")
	}
	return u, nil
}

// ParseSubjectID constructs a SubjectID from external input.
func ParseSubjectID(s string) (SubjectID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return SubjectID{}, err
	}
	return SubjectID(u), nil
}

// ParseTargetID constructs a TargetID from external input.
func ParseTargetID(s string) (TargetID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return TargetID{}, err
	}
	return TargetID(u), nil
}

// ParseOrgID constructs an OrgID from external input.
func ParseOrgID(s string) (OrgID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return OrgID{}, err
	}
	return OrgID(u), nil
}

func (id SubjectID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id SubjectID) String() string { return uuid.UUID(id).String() }

func (id TargetID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id TargetID) String() string { return uuid.UUID(id).String() }

func (id OrgID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id OrgID) String() string { return uuid.UUID(id).String() }

// NewSubjectID returns a random SubjectID. Intended for tests and seeding.
func NewSubjectID() SubjectID { return SubjectID(uuid.New()) }

// NewTargetID returns a random TargetID. Intended for tests and seeding.
func NewTargetID() TargetID { return TargetID(uuid.New()) }

// NewOrgID returns a random OrgID. Intended for tests and seeding.
func NewOrgID() OrgID { return OrgID(uuid.New()) }
