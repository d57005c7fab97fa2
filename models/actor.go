package models

type Role string

const (
	RoleOperator  Role = "operator"
	RoleApplicant Role = "applicant"
)

// Actor is the verified identity supplied by the session layer.
type Actor struct {
	ID   uint
	Role Role
}

func (a Actor) IsOperator() bool {
	return a.Role == RoleOperator
}
