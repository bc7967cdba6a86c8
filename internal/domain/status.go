package domain

import "strings"

type Status string

const (
	StatusPending    Status = "Pending"
	StatusInProgress Status = "InProgress"
	StatusResolved   Status = "Resolved"
)

var Statuses = []Status{StatusPending, StatusInProgress, StatusResolved}

// ParseStatus 兼容 "InProgress" / "In Progress" / "in-progress" / "in_progress"
func ParseStatus(s string) (Status, bool) {
	k := strings.ToLower(strings.TrimSpace(s))
	k = strings.NewReplacer(" ", "", "-", "", "_", "").Replace(k)
	switch k {
	case "pending":
		return StatusPending, true
	case "inprogress":
		return StatusInProgress, true
	case "resolved":
		return StatusResolved, true
	}
	return "", false
}

func (s Status) Valid() bool { return s.rank() >= 0 }

// Label 展示用文案
func (s Status) Label() string {
	if s == StatusInProgress {
		return "In Progress"
	}
	return string(s)
}

func (s Status) rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusInProgress:
		return 1
	case StatusResolved:
		return 2
	}
	return -1
}

// CanTransition 只允许向前推进；allowSkip 控制 Pending→Resolved
func CanTransition(from, to Status, allowSkip bool) bool {
	f, t := from.rank(), to.rank()
	if f < 0 || t < 0 || t <= f {
		return false
	}
	if t-f > 1 && !allowSkip {
		return false
	}
	return true
}
