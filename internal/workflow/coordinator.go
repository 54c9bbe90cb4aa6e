package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mateo/contract-intake/internal/convert"
	"github.com/mateo/contract-intake/internal/crm"
	"github.com/mateo/contract-intake/internal/extraction"
	"github.com/mateo/contract-intake/internal/rules"
	"github.com/mateo/contract-intake/internal/types"
)

// Verifier aggregates the external verification calls for one document.
type Verifier interface {
	Verify(ctx context.Context, documentID string, fp types.IdentityFingerprint, prior *types.VerificationResult) *types.VerificationResult
}

// Scheduler builds a discount schedule from a validated contract.
type Scheduler interface {
	Build(rec *types.ContractRecord) (*types.DiscountSchedule, error)
}

// Coordinator drives a document through the pipeline stages, persisting state
// after every checkpoint so a crashed or failed run can be replayed. One
// coordinator serves many documents concurrently; per-document state never
// leaves the store unmanaged.
type Coordinator struct {
	store          Store
	converter      convert.Converter
	extractor      *extraction.Extractor
	engine         *rules.Engine
	verifier       Verifier
	calculator     Scheduler
	submitter      crm.Submitter
	verifyDeadline time.Duration
}

// NewCoordinator wires the pipeline collaborators together. verifyDeadline
// bounds the whole verification phase; zero means no overall bound beyond the
// caller's context.
func NewCoordinator(store Store, converter convert.Converter, extractor *extraction.Extractor, engine *rules.Engine, verifier Verifier, calculator Scheduler, submitter crm.Submitter, verifyDeadline time.Duration) *Coordinator {
	return &Coordinator{
		store:          store,
		converter:      converter,
		extractor:      extractor,
		engine:         engine,
		verifier:       verifier,
		calculator:     calculator,
		submitter:      submitter,
		verifyDeadline: verifyDeadline,
	}
}

// Process runs the full pipeline for a new document. The document id is the
// idempotency key: re-submitting an id whose workflow already reached a
// terminal disposition returns the existing state unchanged, and re-submitting
// one that is still in flight returns ErrAlreadyProcessing.
func (c *Coordinator) Process(ctx context.Context, doc types.RawDocument) (*types.WorkflowState, error) {
	if doc.ID == "" {
		return nil, fmt.Errorf("document id is required")
	}

	receivedAt := doc.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = time.Now().UTC()
	}
	state := &types.WorkflowState{
		DocumentID: doc.ID,
		Source:     doc.Source,
		Location:   doc.Location,
		Stage:      types.StageReceived,
		Attempts:   1,
		ReceivedAt: receivedAt,
		UpdatedAt:  time.Now().UTC(),
	}

	// Create is the atomic claim on the document id: of any concurrent
	// intakes for the same id exactly one wins, the rest observe the
	// claimed state.
	if err := c.store.Create(ctx, state); err != nil {
		if !errors.Is(err, ErrExists) {
			return nil, fmt.Errorf("failed to claim document: %w", err)
		}
		existing, gerr := c.store.Get(ctx, doc.ID)
		if gerr != nil {
			return nil, fmt.Errorf("failed to load workflow state: %w", gerr)
		}
		if existing == nil {
			return nil, ErrAlreadyProcessing
		}
		if existing.Terminal() {
			return existing, nil
		}
		return existing, ErrAlreadyProcessing
	}
	if len(doc.Bytes) > 0 {
		if err := c.store.SaveArtifact(ctx, doc.ID, ArtifactRaw, doc.Bytes); err != nil {
			return nil, fmt.Errorf("failed to save raw document: %w", err)
		}
	}
	return c.run(ctx, state, doc)
}

// Replay reprocesses a failed document from the start. Only documents with a
// failed disposition are eligible; approved and rejected outcomes are final
// and needs_review awaits a human. Completed verification results (clear or
// flagged) and a stored CRM acknowledgment survive the reset so external
// services are not re-triggered.
func (c *Coordinator) Replay(ctx context.Context, documentID string) (*types.WorkflowState, error) {
	state, err := c.store.Get(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load workflow state: %w", err)
	}
	if state == nil {
		return nil, ErrNotFound
	}
	if !state.Terminal() {
		return state, ErrAlreadyProcessing
	}
	if !state.Disposition.Replayable() {
		return state, fmt.Errorf("%w: disposition is %s", ErrNotReplayable, state.Disposition)
	}

	raw, err := c.store.GetArtifact(ctx, documentID, ArtifactRaw)
	if err != nil {
		return nil, fmt.Errorf("failed to load raw document: %w", err)
	}
	if raw == nil {
		return state, fmt.Errorf("%w: raw document is no longer available", ErrNotReplayable)
	}

	doc := types.RawDocument{
		ID:         documentID,
		Source:     state.Source,
		Location:   state.Location,
		ReceivedAt: state.ReceivedAt,
		Bytes:      raw,
	}

	state.Stage = types.StageReceived
	state.Disposition = types.DispositionNone
	state.Cause = nil
	state.Contract = nil
	state.Validation = nil
	state.Schedule = nil
	state.Attempts++
	if err := c.put(ctx, state); err != nil {
		return nil, err
	}
	return c.run(ctx, state, doc)
}

// run executes the pipeline stages against a freshly persisted state.
func (c *Coordinator) run(ctx context.Context, state *types.WorkflowState, doc types.RawDocument) (*types.WorkflowState, error) {
	// Conversion.
	st, err := c.converter.Convert(ctx, doc)
	if err != nil {
		return c.fail(ctx, state, "conversion failed: "+err.Error())
	}
	if raw, err := json.Marshal(st); err == nil {
		if err := c.store.SaveArtifact(ctx, state.DocumentID, ArtifactStructured, raw); err != nil {
			return nil, fmt.Errorf("failed to save structured text: %w", err)
		}
	}

	// Extraction.
	rec, err := c.extractor.Extract(state.DocumentID, st)
	if err != nil {
		return c.fail(ctx, state, "extraction failed: "+err.Error())
	}
	state.Contract = rec
	state.Stage = types.StageExtracted
	if err := c.put(ctx, state); err != nil {
		return nil, err
	}

	// Validation. Only a hard failure stops here; soft failures are
	// recorded and the record continues into verification so a flagged
	// counterparty is screened and on the record even when the contract
	// already needs a human look.
	result := c.engine.Evaluate(rec)
	state.Validation = result
	state.Stage = types.StageValidated
	if result.Verdict == types.VerdictInvalid {
		for _, o := range result.HardFailures() {
			state.RecordCause(fmt.Sprintf("rule %s failed: %s", o.RuleID, o.Reason))
		}
		return c.finish(ctx, state, types.DispositionRejected)
	}
	for _, o := range result.Failures() {
		state.RecordCause(fmt.Sprintf("rule %s failed: %s", o.RuleID, o.Reason))
	}
	if err := c.put(ctx, state); err != nil {
		return nil, err
	}

	// Verification. The verifying stage marks the calls as in flight; the
	// settled aggregate lands back on the validated checkpoint.
	state.Stage = types.StageVerifying
	if err := c.put(ctx, state); err != nil {
		return nil, err
	}
	vctx := ctx
	if c.verifyDeadline > 0 {
		var cancel context.CancelFunc
		vctx, cancel = context.WithTimeout(ctx, c.verifyDeadline)
		defer cancel()
	}
	state.Verification = c.verifier.Verify(vctx, state.DocumentID, rec.Fingerprint(), state.Verification)
	state.Stage = types.StageValidated
	if state.Verification.Flagged() {
		for _, svc := range types.RequiredServices {
			if r, ok := state.Verification.Services[svc]; ok && r.Status == types.StatusFlagged {
				state.RecordCause(fmt.Sprintf("%s check flagged: %s", r.Service, r.Detail))
			}
		}
		return c.finish(ctx, state, types.DispositionNeedsReview)
	}
	if state.Verification.Degraded() {
		for _, svc := range types.RequiredServices {
			if r, ok := state.Verification.Services[svc]; ok && (r.Status == types.StatusError || r.Status == types.StatusTimeout) {
				state.RecordCause(fmt.Sprintf("%s check did not complete (%s): %s", r.Service, r.Status, r.Detail))
			}
		}
		return c.finish(ctx, state, types.DispositionNeedsReview)
	}
	if err := c.put(ctx, state); err != nil {
		return nil, err
	}

	// Soft rule failures skip scheduling and await a human decision with
	// the verification aggregate attached.
	if result.Verdict == types.VerdictNeedsReview {
		return c.finish(ctx, state, types.DispositionNeedsReview)
	}

	// Scheduling. A schedule error fails the run but leaves the validated
	// checkpoint in place so a replay can pick up after the root cause is
	// fixed.
	sched, err := c.calculator.Build(rec)
	if err != nil {
		return c.fail(ctx, state, "schedule computation failed: "+err.Error())
	}
	state.Schedule = sched
	state.Stage = types.StageScheduled
	if err := c.put(ctx, state); err != nil {
		return nil, err
	}

	return c.finish(ctx, state, types.DispositionApproved)
}

// finish records the business disposition and submits the outcome to the CRM.
// Submission is at most once per document id: a stored acknowledgment short-
// circuits the wire call, and a duplicate response carrying the earlier
// acknowledgment is adopted rather than treated as a failure.
func (c *Coordinator) finish(ctx context.Context, state *types.WorkflowState, disposition types.Disposition) (*types.WorkflowState, error) {
	state.Disposition = disposition

	if state.CRMAckID != "" {
		state.Stage = types.StageSubmitted
		return state, c.put(ctx, state)
	}

	ack, err := c.submitter.Submit(ctx, state)
	if err != nil {
		var cerr *crm.Error
		if errors.As(err, &cerr) && cerr.Kind == crm.KindDuplicate && cerr.AckID != "" {
			state.CRMAckID = cerr.AckID
			state.Stage = types.StageSubmitted
			return state, c.put(ctx, state)
		}
		state.Disposition = types.DispositionFailed
		state.RecordCause("CRM submission failed: " + err.Error())
		return state, c.put(ctx, state)
	}

	state.CRMAckID = ack
	state.Stage = types.StageSubmitted
	return state, c.put(ctx, state)
}

// fail marks the run failed with a cause. The stage is left at the last
// durable checkpoint so the document stays replayable from the start.
func (c *Coordinator) fail(ctx context.Context, state *types.WorkflowState, cause string) (*types.WorkflowState, error) {
	state.Disposition = types.DispositionFailed
	state.RecordCause(cause)
	return state, c.put(ctx, state)
}

func (c *Coordinator) put(ctx context.Context, state *types.WorkflowState) error {
	state.UpdatedAt = time.Now().UTC()
	if err := c.store.Put(ctx, state); err != nil {
		return fmt.Errorf("failed to persist workflow state: %w", err)
	}
	return nil
}
