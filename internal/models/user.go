package models

// Portal roles carried in the JWT role claim.
const (
	RoleStudent   = "student"
	RoleEvaluator = "evaluator"
	RoleAdmin     = "admin"
)
