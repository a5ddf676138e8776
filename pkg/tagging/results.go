package tagging

// AttachResult distinguishes the three successful outcomes of an attach.
type AttachResult string

const (
	// AttachCreated means a new association row was inserted.
	AttachCreated AttachResult = "created"
	// AttachAlreadyActive means the pair was already actively tagged and
	// nothing was mutated.
	AttachAlreadyActive AttachResult = "already_active"
	// AttachReactivated means a previously removed association row was
	// reopened for a new interval.
	AttachReactivated AttachResult = "reactivated"
)

// DetachResult distinguishes the two successful outcomes of a detach.
type DetachResult string

const (
	// DetachRemoved means the active association was closed.
	DetachRemoved DetachResult = "removed"
	// DetachNotTagged means no active association existed; the operation is
	// an idempotent no-op, not an error.
	DetachNotTagged DetachResult = "not_tagged"
)

// DefaultAddedBy is recorded when the caller supplies no attacher identity.
const DefaultAddedBy = "system"
