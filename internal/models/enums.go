package models

import "fmt"

type Category string

const (
	CategoryAcademicLabs       Category = "academic_labs"
	CategoryInfrastructureWifi Category = "infrastructure_wifi"
	CategoryHostelMess         Category = "hostel_mess"
	CategorySanitationHygiene  Category = "sanitation_hygiene"
	CategoryAdministrative     Category = "administrative"
	CategoryOther              Category = "other"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryAcademicLabs,
	CategoryInfrastructureWifi,
	CategoryHostelMess,
	CategorySanitationHygiene,
	CategoryAdministrative,
	CategoryOther,
}

func (c Category) IsValid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityCritical Severity = "critical"
)

// Severities lists severities from least to most urgent.
var Severities = []Severity{SeverityLow, SeverityMedium, SeverityCritical}

var severityRank = map[Severity]int{
	SeverityLow:      0,
	SeverityMedium:   1,
	SeverityCritical: 2,
}

func (s Severity) IsValid() bool {
	_, ok := severityRank[s]
	return ok
}

// Rank orders severities; higher is more urgent. Unknown values rank lowest.
func (s Severity) Rank() int {
	rank, ok := severityRank[s]
	if !ok {
		return -1
	}
	return rank
}

func ParseSeverity(s string) (Severity, error) {
	sev := Severity(s)
	if !sev.IsValid() {
		return "", fmt.Errorf("invalid severity: %s", s)
	}
	return sev, nil
}

type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
)

// Statuses lists the lifecycle states in forward order.
var Statuses = []Status{StatusOpen, StatusInProgress, StatusResolved}

func (s Status) IsValid() bool {
	return s == StatusOpen || s == StatusInProgress || s == StatusResolved
}

// IsActive reports whether the ticket still awaits resolution.
func (s Status) IsActive() bool {
	return s == StatusOpen || s == StatusInProgress
}

// Label is the human form used in notification text.
func (s Status) Label() string {
	switch s {
	case StatusOpen:
		return "Open"
	case StatusInProgress:
		return "In Progress"
	case StatusResolved:
		return "Resolved"
	default:
		return string(s)
	}
}

func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.IsValid() {
		return "", fmt.Errorf("invalid status: %s", s)
	}
	return st, nil
}

type Visibility string

const (
	VisibilityPrivate Visibility = "private"
	VisibilityPublic  Visibility = "public"
)

func (v Visibility) IsValid() bool {
	return v == VisibilityPrivate || v == VisibilityPublic
}

type StatusType string

const (
	StatusTypeInfo     StatusType = "info"
	StatusTypeWarning  StatusType = "warning"
	StatusTypeCritical StatusType = "critical"
)

func (t StatusType) IsValid() bool {
	return t == StatusTypeInfo || t == StatusTypeWarning || t == StatusTypeCritical
}
