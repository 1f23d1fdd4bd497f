package models

import "slices"

// ValidPhase reports whether s is a session phase.
func ValidPhase(s string) bool { return slices.Contains(Phases, s) }

// ValidCategory reports whether s is an item category.
func ValidCategory(s string) bool { return slices.Contains(Categories, s) }

// ValidPriority reports whether s is an action item priority.
func ValidPriority(s string) bool { return slices.Contains(Priorities, s) }

// ValidActionStatus reports whether s is an action item status.
func ValidActionStatus(s string) bool { return slices.Contains(ActionStatuses, s) }
