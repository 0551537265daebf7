package exchange

// ImportReport summarizes one bundle import. Created lists persisted
// resources, Skipped lists intentional no-ops (idempotent duplicates,
// patients without a rut, unknown biomarker codes), Errors lists
// per-entry failures. An entry's failure never aborts the bundle.
type ImportReport struct {
	Created []ReportEntry `json:"created"`
	Skipped []ReportEntry `json:"skipped"`
	Errors  []ReportEntry `json:"errors"`
}

type ReportEntry struct {
	Type   string `json:"type"`
	ID     string `json:"id,omitempty"`
	Reason string `json:"reason,omitempty"`
}

func NewImportReport() *ImportReport {
	return &ImportReport{
		Created: []ReportEntry{},
		Skipped: []ReportEntry{},
		Errors:  []ReportEntry{},
	}
}

func (r *ImportReport) created(resourceType, id string) {
	r.Created = append(r.Created, ReportEntry{Type: resourceType, ID: id})
}

func (r *ImportReport) skipped(resourceType, id, reason string) {
	r.Skipped = append(r.Skipped, ReportEntry{Type: resourceType, ID: id, Reason: reason})
}

func (r *ImportReport) failed(resourceType, reason string) {
	r.Errors = append(r.Errors, ReportEntry{Type: resourceType, Reason: reason})
}
