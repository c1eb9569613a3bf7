package complaint

import (
	"encoding/json"
	"strings"
	"time"

	pkgerrors "github.com/hellokitty09/inharitance/pkg/errors"
)

// Status is the complaint lifecycle state. Any status may be set from any
// other via the generic transition operation; the permissive graph mirrors
// the operator workflow this system replaces (see DESIGN.md).
type Status string

const (
	StatusPending      Status = "pending"
	StatusReviewing    Status = "reviewing"
	StatusInvestigated Status = "investigated"
	StatusResolved     Status = "resolved"
	StatusDismissed    Status = "dismissed"
)

// AllStatuses is the exact recognized set; anything else is rejected at the
// boundary.
var AllStatuses = []Status{
	StatusPending,
	StatusReviewing,
	StatusInvestigated,
	StatusResolved,
	StatusDismissed,
}

// ParseStatus validates a wire-level status string.
func ParseStatus(s string) (Status, error) {
	for _, known := range AllStatuses {
		if Status(s) == known {
			return known, nil
		}
	}
	names := make([]string, len(AllStatuses))
	for i, st := range AllStatuses {
		names[i] = string(st)
	}
	return "", pkgerrors.New(pkgerrors.CodeInvalidStatus,
		"status must be one of: "+strings.Join(names, ", "))
}

// Record is a stored complaint. It carries no submitter identifier anywhere:
// the record's owner is the system itself. ZKPProof is kept verbatim for
// audit but never re-exposed through a public projection.
type Record struct {
	ID          string
	Category    string
	PartyName   string
	Description string
	Evidence    string
	ZKPProof    json.RawMessage
	RegionHash  string
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// View is the identity-free public projection of a Record. The stored proof
// blob is excluded here, at the package boundary, not by caller discipline.
type View struct {
	ID          string    `json:"id"`
	Category    string    `json:"category"`
	PartyName   string    `json:"party_name,omitempty"`
	Description string    `json:"description"`
	Evidence    string    `json:"evidence,omitempty"`
	RegionHash  string    `json:"region_hash,omitempty"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// View projects the record for external consumption.
func (r Record) View() View {
	return View{
		ID:          r.ID,
		Category:    r.Category,
		PartyName:   r.PartyName,
		Description: r.Description,
		Evidence:    r.Evidence,
		RegionHash:  r.RegionHash,
		Status:      r.Status,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

// Summary is the compact projection for dashboards and recent-activity feeds.
type Summary struct {
	ID        string    `json:"id"`
	Category  string    `json:"category"`
	PartyName string    `json:"party_name,omitempty"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Summary projects the record down to its dashboard fields.
func (r Record) Summary() Summary {
	return Summary{
		ID:        r.ID,
		Category:  r.Category,
		PartyName: r.PartyName,
		Status:    r.Status,
		CreatedAt: r.CreatedAt,
	}
}

// Filter narrows List results. Zero values mean "no constraint".
type Filter struct {
	Status   Status
	Category string
	Party    string
}

// Stats is a pure recomputation over the current record set. It is always
// rebuilt from ground truth, never patched in place.
type Stats struct {
	Total      int            `json:"total"`
	ByStatus   map[Status]int `json:"byStatus"`
	ByCategory map[string]int `json:"byCategory"`
}

// NewStats returns an empty aggregate with allocated maps.
func NewStats() Stats {
	return Stats{
		ByStatus:   make(map[Status]int),
		ByCategory: make(map[string]int),
	}
}
