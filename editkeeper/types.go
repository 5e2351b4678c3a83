// CLAUDE:SUMMARY Defines the request, response, and op types for the propose/apply/read surfaces.
package editkeeper

// Stats counts lines touched by a diff.
type Stats struct {
	Added   int `json:"added"`
	Removed int `json:"removed"`
}

// FileID names a file symbolically as (root, relative path); raw OS paths
// never cross the keeper boundary.
type FileID struct {
	Root string `json:"root"`
	Path string `json:"path"`
}

// EditSpec is one requested edit inside a propose call. Exactly one of
// (Find, PatchUnified) must be set.
type EditSpec struct {
	Root         string `json:"root"`
	Path         string `json:"path"`
	Mode         string `json:"mode,omitempty"`
	Find         string `json:"find,omitempty"`
	Replace      string `json:"replace,omitempty"`
	PatchUnified string `json:"patch_unified,omitempty"`
}

// ProposeRequest asks for a proposal over one or more edits. Nothing is
// written.
type ProposeRequest struct {
	Edits []EditSpec `json:"edits"`
}

// Op is one file's fully derived, token-bound proposed edit.
type Op struct {
	Root         string `json:"root"`
	Path         string `json:"path"`
	Mode         string `json:"mode"`
	Matches      int    `json:"matches"`
	Changed      bool   `json:"changed"`
	ExpectedHash string `json:"expected_hash"`
	BeforeHash   string `json:"before_hash"`
	AfterHash    string `json:"after_hash"`
	PatchUnified string `json:"patch_unified"`
	PatchHash    string `json:"patch_hash"`
	ApprovalID   string `json:"approval_id"`
	EOL          string `json:"eol"`
	Stats        Stats  `json:"stats"`
	RiskLevel    string `json:"risk_level"`
}

// ProposeResponse is the full proposal bundle. It has no server-side
// lifecycle; its only durable trace is the audit record.
type ProposeResponse struct {
	OK        bool     `json:"ok"`
	Ops       []Op     `json:"ops"`
	RiskLevel string   `json:"risk_level"`
	Files     []FileID `json:"files"`
}

// ApplyRequest gates one write previously proposed.
type ApplyRequest struct {
	Root         string `json:"root"`
	Path         string `json:"path"`
	PatchUnified string `json:"patch_unified"`
	DryRun       bool   `json:"dry_run"`
	ExpectedHash string `json:"expected_hash"`
	ApprovalID   string `json:"approval_id"`
}

// ApplyResponse reports one gated write (or dry run).
type ApplyResponse struct {
	OK         bool   `json:"ok"`
	Root       string `json:"root"`
	Path       string `json:"path"`
	DryRun     bool   `json:"dry_run"`
	BeforeHash string `json:"before_hash"`
	AfterHash  string `json:"after_hash"`
	PatchHash  string `json:"patch_hash"`
	ApprovalID string `json:"approval_id"`
	Wrote      bool   `json:"wrote"`
	EOL        string `json:"eol"`
}

// Batch apply statuses. Ops run strictly in order; the first failure
// stops the batch and later ops are reported as skipped.
const (
	BatchApplied = "applied"
	BatchFailed  = "failed"
	BatchSkipped = "skipped"
)

// BatchApplyRequest applies several ops sequentially with no cross-op
// atomicity.
type BatchApplyRequest struct {
	Ops []ApplyRequest `json:"ops"`
}

// BatchResult is one op's outcome inside a batch.
type BatchResult struct {
	Root   string         `json:"root"`
	Path   string         `json:"path"`
	Status string         `json:"status"`
	Error  string         `json:"error,omitempty"`
	Hint   string         `json:"hint,omitempty"`
	Result *ApplyResponse `json:"result,omitempty"`
}

// BatchApplyResponse reports per-op outcomes. OK is true only when every
// op applied.
type BatchApplyResponse struct {
	OK      bool          `json:"ok"`
	Results []BatchResult `json:"results"`
}

// ReadRequest fetches current content plus its hash and EOL style so a
// caller can re-derive after a conflict.
type ReadRequest struct {
	Root string `json:"root"`
	Path string `json:"path"`
}

// ReadResponse carries the current file state.
type ReadResponse struct {
	OK          bool   `json:"ok"`
	Root        string `json:"root"`
	Path        string `json:"path"`
	Content     string `json:"content"`
	ContentHash string `json:"content_hash"`
	EOL         string `json:"eol"`
	Bytes       int    `json:"bytes"`
}
