package models

import "time"

// Assignment binds exactly one report to exactly one moderator. The record
// store enforces at most one row per report id (unique constraint on
// report_id); this row, not the denormalized content fields, is the source
// of truth for ownership.
type Assignment struct {
	ID          string    `db:"id" json:"id"`
	ReportID    string    `db:"report_id" json:"report_id"`
	ModeratorID string    `db:"moderator_id" json:"moderator_id"`
	AssignedAt  time.Time `db:"assigned_at" json:"assigned_at"`
}
