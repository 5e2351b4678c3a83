// CLAUDE:SUMMARY Core keeper orchestrating propose, apply, batch apply, and read over the staged patch pipeline.
// Package editkeeper is the staged patch pipeline for agent-driven file
// edits.
//
// An edit flows through two synchronous phases. Propose derives a
// candidate change (find/replace or a supplied unified diff), generates a
// self-validated canonical diff, and binds it to a deterministic approval
// token. Apply gates the eventual write behind a hash compare-and-swap
// plus token recomputation and finishes with an atomic rename. Nothing is
// stored between the two phases: the token is a pure function of
// (file identity, before hash, diff text), so staleness is enforced by
// the hash gate rather than server-side state.
//
// Usage:
//
//	k, err := editkeeper.New(cfg, logger, editkeeper.WithAuditLogger(auditor))
//	k.RegisterMCP(mcpServer)
//	mux.Mount("/api", k.Routes())
package editkeeper

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strconv"

	"github.com/hazyhaar/scribe/audit"
	"github.com/hazyhaar/scribe/editkeeper/internal/approve"
	"github.com/hazyhaar/scribe/editkeeper/internal/derive"
	"github.com/hazyhaar/scribe/editkeeper/internal/gate"
	"github.com/hazyhaar/scribe/editkeeper/internal/risk"
	"github.com/hazyhaar/scribe/editkeeper/internal/textnorm"
	"github.com/hazyhaar/scribe/editkeeper/internal/udiff"
	"github.com/hazyhaar/scribe/guard"
	"github.com/hazyhaar/scribe/kit"
)

// Keeper is the pipeline orchestrator.
type Keeper struct {
	config  *Config
	guard   *guard.Guard
	gate    *gate.Gate
	risk    *risk.Classifier
	auditor *audit.SQLiteLogger
	logger  *slog.Logger
}

// Option configures optional Keeper collaborators.
type Option func(*Keeper)

// WithAuditLogger attaches an audit sink; every propose/apply/read then
// emits exactly one record, failures included.
func WithAuditLogger(a *audit.SQLiteLogger) Option {
	return func(k *Keeper) { k.auditor = a }
}

// New creates a Keeper. The root allow-list is validated up front.
func New(cfg *Config, logger *slog.Logger, opts ...Option) (*Keeper, error) {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}

	g, err := guard.New(guard.Config{
		Roots:             cfg.Roots,
		AllowedExtensions: cfg.AllowedExtensions,
		MaxFileBytes:      cfg.MaxFileBytes,
	})
	if err != nil {
		return nil, err
	}

	k := &Keeper{
		config: cfg,
		guard:  g,
		gate:   gate.New(g.ReadResolved),
		risk:   risk.New(cfg.Risk.HighLines, cfg.Risk.MediumLines),
		logger: logger,
	}
	for _, o := range opts {
		o(k)
	}
	return k, nil
}

// Roots lists the configured root keys.
func (k *Keeper) Roots() []string { return k.guard.Roots() }

// FileIdentity lets the audit middleware attribute apply records to a file.
func (r *ApplyRequest) FileIdentity() (string, string) { return r.Root, r.Path }

// FileIdentity lets the audit middleware attribute read records to a file.
func (r *ReadRequest) FileIdentity() (string, string) { return r.Root, r.Path }

// Propose derives one Op per requested edit without writing anything.
// The first failing edit aborts the whole proposal.
func (k *Keeper) Propose(ctx context.Context, req *ProposeRequest) (*ProposeResponse, error) {
	if len(req.Edits) == 0 {
		return nil, E(KindMissingFields, "edits must not be empty")
	}

	resp := &ProposeResponse{OK: true, RiskLevel: string(risk.Low)}
	seen := map[FileID]struct{}{}
	overall := risk.Low

	for i, spec := range req.Edits {
		op, kerr := k.proposeOne(spec)
		if kerr != nil {
			kerr.Hint = prefixHint(i, kerr.Hint)
			k.logger.Warn("proposal rejected",
				"root", spec.Root, "path", spec.Path, "error", kerr.Kind)
			return nil, kerr
		}
		resp.Ops = append(resp.Ops, op)

		id := FileID{Root: op.Root, Path: op.Path}
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			resp.Files = append(resp.Files, id)
		}
		overall = risk.Max(overall, risk.Level(op.RiskLevel))
	}
	resp.RiskLevel = string(overall)

	k.logger.Info("proposal prepared",
		"ops", len(resp.Ops), "files", len(resp.Files), "risk", resp.RiskLevel)
	return resp, nil
}

func (k *Keeper) proposeOne(spec EditSpec) (Op, *Error) {
	if spec.Root == "" || spec.Path == "" {
		return Op{}, E(KindMissingFields, "root and path are required")
	}
	hasFind := spec.Find != ""
	hasPatch := spec.PatchUnified != ""
	if hasFind == hasPatch {
		return Op{}, E(KindMissingFields, "exactly one of find or patch_unified is required")
	}

	raw, _, err := k.guard.ReadFile(spec.Root, spec.Path)
	if err != nil {
		return Op{}, mapFileErr(err)
	}
	original := string(raw)
	eol := textnorm.DetectStyle(original)
	canonical := textnorm.ToCanonical(original)
	beforeHash := approve.ContentHash(original)

	op := Op{
		Root:         spec.Root,
		Path:         spec.Path,
		EOL:          string(eol),
		ExpectedHash: beforeHash,
		BeforeHash:   beforeHash,
	}

	var res derive.Result
	if hasPatch {
		if len(spec.PatchUnified) > k.config.MaxPatchBytes {
			return Op{}, Ef(KindPatchTooLarge, "patch is %d bytes (max %d)", len(spec.PatchUnified), k.config.MaxPatchBytes)
		}
		op.Mode = "patch"
		res, err = derive.ApplyPatch(canonical, spec.PatchUnified)
		if err != nil {
			e := wrap(KindPatchDoesNotApply, "supplied patch does not apply to the current content; re-read and regenerate", err)
			e.EOL = string(eol)
			return Op{}, e
		}
	} else {
		modeStr := spec.Mode
		if modeStr == "" {
			modeStr = string(derive.ModeSingle)
		}
		mode, perr := derive.ParseMode(modeStr)
		if perr != nil {
			return Op{}, Ef(KindInvalidMode, "mode must be one of single, first, all; got %q", spec.Mode)
		}
		op.Mode = string(mode)

		res, err = derive.FindReplace(canonical, spec.Find, spec.Replace, mode)
		var ambig *derive.AmbiguousError
		switch {
		case errors.As(err, &ambig):
			e := Ef(KindAmbiguousMatch, "find text matches %d times; tighten it or use first/all", ambig.Matches)
			e.Matches = ambig.Matches
			return Op{}, e
		case errors.Is(err, derive.ErrNotFound):
			return Op{}, E(KindFindNotFound, "find text not present in current content; re-read the file")
		case errors.Is(err, derive.ErrEmptyFind):
			return Op{}, E(KindMissingFields, "find must not be empty")
		case err != nil:
			return Op{}, AsError(err)
		}
		op.Matches = res.Matches
	}

	if !res.Changed {
		// No-op short-circuit: no diff, no token, nothing to apply.
		op.AfterHash = beforeHash
		op.RiskLevel = string(k.risk.Classify(spec.Path, 0, 0))
		return op, nil
	}
	op.Changed = true

	diff, err := udiff.Generate(filepath.ToSlash(spec.Path), canonical, res.After)
	if err != nil {
		return Op{}, wrap(KindPatchGenerationFailed, "diff engine could not reproduce its own output", err)
	}
	if len(diff) > k.config.MaxPatchBytes {
		return Op{}, Ef(KindPatchTooLarge, "generated patch is %d bytes (max %d)", len(diff), k.config.MaxPatchBytes)
	}

	afterOriginal := textnorm.ToOriginal(res.After, eol)
	op.AfterHash = approve.ContentHash(afterOriginal)
	op.PatchUnified = diff
	op.PatchHash = approve.ContentHash(diff)
	op.ApprovalID = approve.Token(approve.PathKey(spec.Root, spec.Path), beforeHash, diff)
	added, removed := udiff.Stats(diff)
	op.Stats = Stats{Added: added, Removed: removed}
	op.RiskLevel = string(k.risk.Classify(spec.Path, added, removed))
	return op, nil
}

// Apply gates one write. With DryRun set every check still runs but the
// file is left untouched.
func (k *Keeper) Apply(ctx context.Context, req *ApplyRequest) (*ApplyResponse, error) {
	if req.Root == "" || req.Path == "" || req.PatchUnified == "" ||
		req.ExpectedHash == "" || req.ApprovalID == "" {
		return nil, E(KindMissingFields, "root, path, patch_unified, expected_hash and approval_id are required")
	}
	if len(req.PatchUnified) > k.config.MaxPatchBytes {
		return nil, Ef(KindPatchTooLarge, "patch is %d bytes (max %d)", len(req.PatchUnified), k.config.MaxPatchBytes)
	}

	abs, err := k.guard.Resolve(req.Root, req.Path)
	if err != nil {
		return nil, mapFileErr(err)
	}

	out, err := k.gate.Apply(gate.Request{
		AbsPath:      abs,
		PathKey:      approve.PathKey(req.Root, req.Path),
		DiffText:     req.PatchUnified,
		ExpectedHash: req.ExpectedHash,
		ApprovalID:   req.ApprovalID,
		DryRun:       req.DryRun,
	})
	if err != nil {
		kerr := mapGateErr(err)
		kerr.EOL = string(out.EOL)
		k.logger.Warn("apply rejected",
			"root", req.Root, "path", req.Path, "dry_run", req.DryRun, "error", kerr.Kind)
		return nil, kerr
	}

	k.logger.Info("apply completed",
		"root", req.Root, "path", req.Path, "dry_run", req.DryRun, "wrote", out.Wrote)
	return &ApplyResponse{
		OK:         true,
		Root:       req.Root,
		Path:       req.Path,
		DryRun:     req.DryRun,
		BeforeHash: out.BeforeHash,
		AfterHash:  out.AfterHash,
		PatchHash:  approve.ContentHash(req.PatchUnified),
		ApprovalID: req.ApprovalID,
		Wrote:      out.Wrote,
		EOL:        string(out.EOL),
	}, nil
}

// ApplyBatch applies ops strictly in order with no cross-op atomicity:
// the first failure stops the batch, earlier writes stay written and
// later ops are reported as skipped.
func (k *Keeper) ApplyBatch(ctx context.Context, req *BatchApplyRequest) (*BatchApplyResponse, error) {
	if len(req.Ops) == 0 {
		return nil, E(KindMissingFields, "ops must not be empty")
	}

	resp := &BatchApplyResponse{OK: true}
	failed := false
	for i := range req.Ops {
		op := &req.Ops[i]
		if failed {
			resp.Results = append(resp.Results, BatchResult{
				Root: op.Root, Path: op.Path, Status: BatchSkipped,
			})
			continue
		}
		res, err := k.Apply(ctx, op)
		if err != nil {
			kerr := AsError(err)
			resp.Results = append(resp.Results, BatchResult{
				Root:   op.Root,
				Path:   op.Path,
				Status: BatchFailed,
				Error:  string(kerr.Kind),
				Hint:   kerr.Hint,
			})
			resp.OK = false
			failed = true
			continue
		}
		resp.Results = append(resp.Results, BatchResult{
			Root: op.Root, Path: op.Path, Status: BatchApplied, Result: res,
		})
	}
	return resp, nil
}

// Read returns the current content with its hash and EOL style so a
// caller can re-derive after a conflict.
func (k *Keeper) Read(ctx context.Context, req *ReadRequest) (*ReadResponse, error) {
	if req.Root == "" || req.Path == "" {
		return nil, E(KindMissingFields, "root and path are required")
	}
	raw, _, err := k.guard.ReadFile(req.Root, req.Path)
	if err != nil {
		return nil, mapFileErr(err)
	}
	content := string(raw)
	return &ReadResponse{
		OK:          true,
		Root:        req.Root,
		Path:        req.Path,
		Content:     content,
		ContentHash: approve.ContentHash(content),
		EOL:         string(textnorm.DetectStyle(content)),
		Bytes:       len(raw),
	}, nil
}

func prefixHint(i int, hint string) string {
	prefix := "edits[" + strconv.Itoa(i) + "]"
	if hint == "" {
		return prefix
	}
	return prefix + ": " + hint
}

func mapFileErr(err error) *Error {
	switch {
	case errors.Is(err, guard.ErrUnknownRoot):
		return wrap(KindUnknownRoot, "root is not in the configured allow-list", err)
	case errors.Is(err, guard.ErrPathTraversal),
		errors.Is(err, guard.ErrSymlinkEscape),
		errors.Is(err, guard.ErrExtensionNotAllowed),
		errors.Is(err, guard.ErrNotRegular):
		return wrap(KindInvalidPath, err.Error(), err)
	case errors.Is(err, guard.ErrFileTooLarge):
		return wrap(KindFileTooLarge, err.Error(), err)
	case errors.Is(err, fs.ErrNotExist):
		return wrap(KindFileNotFound, "file does not exist", err)
	default:
		return AsError(err)
	}
}

func mapGateErr(err error) *Error {
	switch {
	case errors.Is(err, gate.ErrHashMismatch):
		return wrap(KindHashMismatch, "file changed since the proposal; re-run propose against current content", err)
	case errors.Is(err, gate.ErrApprovalMismatch):
		return wrap(KindApprovalIDMismatch, "approval token does not match this file state and patch", err)
	case errors.Is(err, udiff.ErrNoApply), errors.Is(err, udiff.ErrMalformed):
		return wrap(KindPatchDoesNotApply, "patch no longer applies to the current content", err)
	default:
		return mapFileErr(err)
	}
}

// endpoint wraps a handler as a kit.Endpoint with audit middleware when an
// audit sink is attached.
func (k *Keeper) endpoint(action string, fn kit.Endpoint) kit.Endpoint {
	if k.auditor == nil {
		return fn
	}
	return kit.Chain(audit.Middleware(k.auditor, action))(fn)
}

// ProposeEndpoint exposes Propose as a kit.Endpoint shared by all
// transports.
func (k *Keeper) ProposeEndpoint() kit.Endpoint {
	return k.endpoint("edit_propose", func(ctx context.Context, req any) (any, error) {
		return k.Propose(ctx, req.(*ProposeRequest))
	})
}

// ApplyEndpoint exposes Apply as a kit.Endpoint.
func (k *Keeper) ApplyEndpoint() kit.Endpoint {
	return k.endpoint("edit_apply", func(ctx context.Context, req any) (any, error) {
		return k.Apply(ctx, req.(*ApplyRequest))
	})
}

// BatchApplyEndpoint exposes ApplyBatch as a kit.Endpoint.
func (k *Keeper) BatchApplyEndpoint() kit.Endpoint {
	return k.endpoint("edit_apply_batch", func(ctx context.Context, req any) (any, error) {
		return k.ApplyBatch(ctx, req.(*BatchApplyRequest))
	})
}

// ReadEndpoint exposes Read as a kit.Endpoint.
func (k *Keeper) ReadEndpoint() kit.Endpoint {
	return k.endpoint("file_read", func(ctx context.Context, req any) (any, error) {
		return k.Read(ctx, req.(*ReadRequest))
	})
}
