// Package orchestrator sequences the request pipeline: parse the text
// into an intent, validate the extracted configuration against the
// resolved schema, evaluate policy rules, and dispatch to the
// provisioning backend when execution is requested. Every outcome,
// including a refusal, carries a human-readable response.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/averto-io/stratus/internal/intent"
	"github.com/averto-io/stratus/internal/observability"
	"github.com/averto-io/stratus/internal/policy"
	"github.com/averto-io/stratus/internal/schema"
	"github.com/averto-io/stratus/internal/validate"
	"github.com/averto-io/stratus/model"
)

// Provisioner is the provisioning backend boundary. Implementations own
// their timeout and retry policy.
type Provisioner interface {
	Create(ctx context.Context, typeName string, desiredState []byte) (model.ProgressEvent, error)
	Read(ctx context.Context, typeName, identifier string) (model.ResourceDescription, error)
	Update(ctx context.Context, typeName, identifier string, patch []model.PatchOp) (model.ProgressEvent, error)
	Delete(ctx context.Context, typeName, identifier string) (model.ProgressEvent, error)
	List(ctx context.Context, typeName string) ([]model.ResourceDescription, error)
	Status(ctx context.Context, requestToken string) (model.ProgressEvent, error)
}

// Result is the full outcome of one request: the structured intent, the
// checks that ran, what the dispatch produced, and the rendered reply.
type Result struct {
	Response   string                      `json:"response"`
	Intent     model.Intent                `json:"intent"`
	Validation *model.ValidationOutcome    `json:"validation,omitempty"`
	Policy     *model.PolicyResult         `json:"policy,omitempty"`
	Patch      []model.PatchOp             `json:"patch,omitempty"`
	Progress   *model.ProgressEvent        `json:"progress,omitempty"`
	Resource   *model.ResourceDescription  `json:"resource,omitempty"`
	Resources  []model.ResourceDescription `json:"resources,omitempty"`
	Executed   bool                        `json:"executed"`
}

// Orchestrator wires the pipeline stages together. The provisioner may
// be nil when the deployment has no backend credentials; execution is
// then refused while parsing, validation, and policy still work.
type Orchestrator struct {
	parser    *intent.Parser
	schemas   *schema.Store
	evaluator *policy.Evaluator
	prov      Provisioner
	logger    *zap.Logger
}

func New(parser *intent.Parser, schemas *schema.Store, evaluator *policy.Evaluator, prov Provisioner, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		parser:    parser,
		schemas:   schemas,
		evaluator: evaluator,
		prov:      prov,
		logger:    logger,
	}
}

// Process runs one request through the pipeline. With execute false the
// dispatch is skipped and the reply previews what would happen. A nil
// error with a refusing Response is the normal shape for bad input; an
// error return means the backend itself failed.
func (o *Orchestrator) Process(ctx context.Context, text string, execute bool) (Result, error) {
	_, parseSpan := observability.StartSpan(ctx, "intent.parse")
	in := o.parser.Parse(text)
	parseSpan.SetAttributes(
		observability.AttrOperation.String(string(in.Operation)),
		observability.AttrTypeName.String(in.TypeName),
		observability.AttrIdentifier.String(in.Identifier),
	)
	parseSpan.End()

	result := Result{Intent: in}

	o.logger.Debug("parsed intent",
		zap.String("operation", string(in.Operation)),
		zap.String("type_name", in.TypeName),
		zap.String("identifier", in.Identifier),
		zap.Float64("confidence", in.Confidence),
	)

	if !in.Resolved() {
		result.Response = "I couldn't determine the resource type from your request. Please name the resource, for example \"S3 bucket\" or \"AWS::S3::Bucket\"."
		return result, nil
	}

	if needsIdentifier(in.Operation) && in.Identifier == "" {
		result.Response = fmt.Sprintf("I couldn't determine which %s resource you mean. Please include its identifier.", in.TypeName)
		return result, nil
	}

	if in.Operation == model.OpCreate || in.Operation == model.OpUpdate {
		stop, err := o.check(ctx, &result, in)
		if stop || err != nil {
			return result, err
		}
	}

	if in.Operation == model.OpUpdate {
		result.Patch = patchFor(in.Properties)
	}

	if !execute {
		result.Response = previewMessage(in, result.Patch)
		return result, nil
	}
	return o.dispatch(ctx, result, in)
}

// check validates the property tree against the schema and the policy
// rules. It fills the result and reports whether the pipeline stops.
func (o *Orchestrator) check(ctx context.Context, result *Result, in model.Intent) (bool, error) {
	s, err := o.schemas.Get(in.TypeName)
	if err != nil {
		result.Response = fmt.Sprintf("The schema for %s is not loaded. Download it first, then retry.", in.TypeName)
		return true, nil
	}

	// Partial updates carry only the properties being changed, so the
	// required-set check applies to creates alone.
	if in.Operation == model.OpUpdate {
		s.RequiredProperties = nil
	}

	_, valSpan := observability.StartSpan(ctx, "schema.validate",
		observability.AttrTypeName.String(in.TypeName))
	outcome := validate.Validate(s, in.Properties.Map())
	valSpan.End()

	result.Validation = &outcome
	if !outcome.Valid {
		result.Response = refusalMessage(in, outcome.Errors)
		return true, nil
	}

	_, polSpan := observability.StartSpan(ctx, "policy.evaluate",
		observability.AttrTypeName.String(in.TypeName))
	policyResult, err := o.evaluator.Evaluate(in.Properties.Map(), in.TypeName, nil)
	if err != nil {
		observability.EndSpanWithError(polSpan, err)
		return true, err
	}
	ruleNames := make([]string, 0, len(policyResult.PerRule))
	for name := range policyResult.PerRule {
		ruleNames = append(ruleNames, name)
	}
	sort.Strings(ruleNames)
	polSpan.SetAttributes(observability.AttrRuleName.StringSlice(ruleNames))
	polSpan.End()

	result.Policy = &policyResult
	if !policyResult.Valid {
		result.Response = policyRefusalMessage(in, policyResult)
		return true, nil
	}
	return false, nil
}

// dispatch sends the intent to the provisioning backend and renders the
// post-execution reply.
func (o *Orchestrator) dispatch(ctx context.Context, result Result, in model.Intent) (_ Result, err error) {
	if o.prov == nil {
		return result, model.NewBackendUnavailableError()
	}

	ctx, span := observability.StartSpan(ctx, "provision.dispatch",
		observability.AttrOperation.String(string(in.Operation)),
		observability.AttrTypeName.String(in.TypeName),
	)
	defer func() { observability.EndSpanWithError(span, err) }()

	switch in.Operation {
	case model.OpCreate:
		desired, err := json.Marshal(in.Properties)
		if err != nil {
			return result, fmt.Errorf("encoding desired state: %w", err)
		}
		event, err := o.prov.Create(ctx, in.TypeName, desired)
		if err != nil {
			return result, err
		}
		result.Progress = &event

	case model.OpRead:
		desc, err := o.prov.Read(ctx, in.TypeName, in.Identifier)
		if err != nil {
			return result, err
		}
		result.Resource = &desc

	case model.OpUpdate:
		event, err := o.prov.Update(ctx, in.TypeName, in.Identifier, result.Patch)
		if err != nil {
			return result, err
		}
		result.Progress = &event

	case model.OpDelete:
		event, err := o.prov.Delete(ctx, in.TypeName, in.Identifier)
		if err != nil {
			return result, err
		}
		result.Progress = &event

	case model.OpList:
		descs, err := o.prov.List(ctx, in.TypeName)
		if err != nil {
			return result, err
		}
		result.Resources = descs
	}

	result.Executed = true
	span.SetAttributes(observability.AttrExecuted.Bool(true))
	if result.Progress != nil {
		span.SetAttributes(observability.AttrRequestToken.String(result.Progress.RequestToken))
	}
	result.Response = executedMessage(in, result)
	return result, nil
}

// Status exposes backend request polling for status endpoints.
func (o *Orchestrator) Status(ctx context.Context, requestToken string) (model.ProgressEvent, error) {
	if o.prov == nil {
		return model.ProgressEvent{}, model.NewBackendUnavailableError()
	}
	ctx, span := observability.StartSpan(ctx, "provision.status",
		observability.AttrRequestToken.String(requestToken))
	event, err := o.prov.Status(ctx, requestToken)
	observability.EndSpanWithError(span, err)
	return event, err
}

func needsIdentifier(op model.Operation) bool {
	return op == model.OpRead || op == model.OpUpdate || op == model.OpDelete
}

// patchFor converts extracted properties into an ordered JSON Patch of
// replace operations.
func patchFor(props *model.Properties) []model.PatchOp {
	keys := props.Keys()
	if len(keys) == 0 {
		return nil
	}
	patch := make([]model.PatchOp, 0, len(keys))
	for _, key := range keys {
		value, _ := props.Get(key)
		patch = append(patch, model.PatchOp{Op: "replace", Path: "/" + key, Value: value})
	}
	return patch
}
