// Package validate is the central schema boundary (§4.4, §2): every signal
// destined for signal.display.v1 passes through here first. News items and
// fusion plans are not validated by this package. A rejection publishes an
// audit record and never reaches the topic it was headed for; the caller
// decides what, if anything, to do next.
package validate

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/streamforge/pipeline/internal/audit"
	"github.com/streamforge/pipeline/internal/bus"
	"github.com/streamforge/pipeline/internal/metrics"
	"github.com/streamforge/pipeline/internal/signals"
)

// Status is the outcome of a validate-and-publish call.
type Status string

const (
	StatusOK     Status = "OK"
	StatusReject Status = "REJECT"
)

// Result mirrors the {status, errors} shape the original pipeline returns to
// its caller.
type Result struct {
	Status  Status   `json:"status"`
	Errors  []string `json:"errors,omitempty"`
	SignalID string  `json:"signal_id,omitempty"`
}

// displaySignal is the validated shape of a Signal, per the §3 field
// constraints. go-playground/validator enforces min/max length and numeric
// ranges the way the teacher's API layer validates inbound requests.
type displaySignal struct {
	ID               string   `validate:"required,min=8,max=64"`
	Symbol           string   `validate:"required"`
	Side             string   `validate:"required,oneof=LONG SHORT"`
	GeneratedTsMs    int64    `validate:"gte=0"`
	EntryPriceTicks  int64    `validate:"gte=1"`
	StopPriceTicks   int64    `validate:"gte=1"`
	ConfidencePct    int      `validate:"gte=0,lte=100"`
	SignalType       string   `validate:"required"`
	ExplanationShort string   `validate:"max=240"`
	ExplanationLong  string   `validate:"max=2000"`
}

// Validator wraps a go-playground/validator instance and the audit sink
// every rejection is reported through.
type Validator struct {
	v       *validator.Validate
	bus     bus.EventBus
	audit   *audit.Publisher
	metrics *metrics.Registry
}

// New builds a Validator. nowMs stamps rejection/acceptance audit records.
func New(b bus.EventBus, nowMs func() int64) *Validator {
	return &Validator{v: validator.New(), bus: b, audit: audit.NewPublisher(b, nowMs)}
}

// SetMetrics attaches a Prometheus registry that every accepted signal
// reports into, labeled by signal_type. Optional: a nil or never-set
// registry means metrics reporting is simply skipped.
func (vd *Validator) SetMetrics(reg *metrics.Registry) {
	vd.metrics = reg
}

// ValidateAndPublishSignal validates sig against the §3 signal envelope; on
// success it publishes the canonical signal to signal.display.v1 and an
// acceptance audit, on failure it publishes only a rejection audit. The
// payload is never forwarded on rejection — callers that want the permissive
// fallback behavior of §4.3 must re-publish explicitly.
func (vd *Validator) ValidateAndPublishSignal(ctx context.Context, sig signals.Signal) (Result, error) {
	ds := displaySignal{
		ID:               sig.ID,
		Symbol:           sig.Symbol,
		Side:             sig.Side,
		GeneratedTsMs:    sig.GeneratedTsMs,
		EntryPriceTicks:  sig.EntryPriceTicks,
		StopPriceTicks:   sig.StopPriceTicks,
		ConfidencePct:    sig.ConfidencePct,
		SignalType:       sig.SignalType,
		ExplanationShort: sig.ExplanationShort,
		ExplanationLong:  sig.ExplanationLong,
	}

	if err := vd.v.Struct(ds); err != nil {
		errs := fieldErrors(err)
		if auditErr := vd.audit.Emit(ctx, "codex_validation_failed", map[string]interface{}{
			"status": StatusReject,
			"errors": errs,
		}); auditErr != nil {
			return Result{}, auditErr
		}
		return Result{Status: StatusReject, Errors: errs}, nil
	}

	if err := vd.bus.Publish(ctx, bus.TopicSignalDisplay, sig); err != nil {
		return Result{}, fmt.Errorf("validate: publish %s: %w", bus.TopicSignalDisplay, err)
	}
	if err := vd.audit.Emit(ctx, "codex_validated_signal", sig); err != nil {
		return Result{}, err
	}
	if vd.metrics != nil {
		vd.metrics.SignalsEmitted.WithLabelValues(sig.SignalType).Inc()
	}
	return Result{Status: StatusOK, SignalID: sig.ID}, nil
}

func fieldErrors(err error) []string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, fmt.Sprintf("%s: failed %s", fe.Field(), fe.Tag()))
	}
	return out
}
