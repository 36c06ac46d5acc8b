package domain

import "time"

// Audit module tags.
const (
	AuditModuleEvaluation = "evaluation"
	AuditModuleApproval   = "approval"
	AuditModuleScan       = "scan"
	AuditModuleRisk       = "risk"
	AuditModuleArchive    = "archive"
)

// AuditRecord is one append-only entry in the decision trail. Records are
// created once and never updated or deleted; they are the system's only
// durable explanation of why a decision was made.
type AuditRecord struct {
	ID        string
	Module    string
	Action    string
	Inputs    map[string]any
	Metrics   map[string]any
	Narrative string
	Operator  string
	Result    string
	CreatedAt time.Time
}
