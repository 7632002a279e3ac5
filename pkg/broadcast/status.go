package broadcast

import (
	"time"

	"github.com/edgeflare/replica/pkg/names"
)

// TargetStatus is the synchronization state of one target database of an account.
type TargetStatus struct {
	Name         string `json:"targetName"`
	Synchronized bool   `json:"complete"`
}

// AccountStatus tracks the targets of an account as status messages arrive.
type AccountStatus struct {
	QueuedAt *time.Time     `json:"queuedAt"`
	ID       string         `json:"id"`
	Targets  []TargetStatus `json:"targets"`
}

// NewAccountStatus starts with every known target synchronized.
func NewAccountStatus(id string, targets []string) *AccountStatus {
	a := &AccountStatus{ID: id, Targets: make([]TargetStatus, 0, len(targets))}
	for _, t := range targets {
		a.Targets = append(a.Targets, TargetStatus{Name: t, Synchronized: true})
	}
	return a
}

// Apply folds a status message into the account. A source message means the account row
// changed and every target is synchronizing again. Any other label marks that target
// synchronized; an unknown target is appended and Apply reports true.
func (a *AccountStatus) Apply(msg StatusMessage) bool {
	if msg.Label == names.SourceLabel {
		for i := range a.Targets {
			a.Targets[i].Synchronized = false
		}
		queued := time.Now().UTC()
		if msg.UpdatedOn != nil {
			queued = *msg.UpdatedOn
		}
		a.QueuedAt = &queued
		return false
	}

	for i := range a.Targets {
		if a.Targets[i].Name == msg.Label {
			a.Targets[i].Synchronized = true
			return false
		}
	}
	a.Targets = append(a.Targets, TargetStatus{Name: msg.Label, Synchronized: true})
	return true
}

// TargetNames lists the tracked targets in order.
func (a *AccountStatus) TargetNames() []string {
	out := make([]string, len(a.Targets))
	for i, t := range a.Targets {
		out[i] = t.Name
	}
	return out
}

// Synchronized reports whether no target is still catching up.
func (a *AccountStatus) Synchronized() bool {
	for _, t := range a.Targets {
		if !t.Synchronized {
			return false
		}
	}
	return true
}
