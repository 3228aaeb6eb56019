package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"

	"github.com/averto-io/stratus/internal/intent"
	"github.com/averto-io/stratus/internal/observability"
	"github.com/averto-io/stratus/internal/policy"
	"github.com/averto-io/stratus/internal/schema"
	"github.com/averto-io/stratus/model"
)

const bucketDoc = `{
	"typeName": "AWS::S3::Bucket",
	"properties": {
		"BucketName": {"type": "string"},
		"VersioningConfiguration": {
			"type": "object",
			"properties": {"Status": {"type": "string", "enum": ["Enabled", "Suspended"]}},
			"required": ["Status"]
		},
		"BucketEncryption": {"type": "object", "properties": {}},
		"PublicAccessBlockConfiguration": {"type": "object", "properties": {}}
	},
	"required": ["BucketName"],
	"primaryIdentifier": ["/properties/BucketName"]
}`

// fakeProvisioner records dispatched calls and replies with canned
// events.
type fakeProvisioner struct {
	createdState []byte
	patched      []model.PatchOp
	deleted      string
	listed       []model.ResourceDescription
	err          error
}

func (f *fakeProvisioner) Create(_ context.Context, typeName string, desiredState []byte) (model.ProgressEvent, error) {
	if f.err != nil {
		return model.ProgressEvent{}, f.err
	}
	f.createdState = desiredState
	return model.ProgressEvent{
		RequestToken:    "tok-1",
		Operation:       model.OpCreate,
		OperationStatus: "IN_PROGRESS",
		TypeName:        typeName,
	}, nil
}

func (f *fakeProvisioner) Read(_ context.Context, _, identifier string) (model.ResourceDescription, error) {
	if f.err != nil {
		return model.ResourceDescription{}, f.err
	}
	return model.ResourceDescription{
		Identifier: identifier,
		Properties: map[string]any{"BucketName": identifier},
	}, nil
}

func (f *fakeProvisioner) Update(_ context.Context, typeName, identifier string, patch []model.PatchOp) (model.ProgressEvent, error) {
	if f.err != nil {
		return model.ProgressEvent{}, f.err
	}
	f.patched = patch
	return model.ProgressEvent{
		RequestToken:    "tok-2",
		Operation:       model.OpUpdate,
		OperationStatus: "IN_PROGRESS",
		TypeName:        typeName,
		Identifier:      identifier,
	}, nil
}

func (f *fakeProvisioner) Delete(_ context.Context, typeName, identifier string) (model.ProgressEvent, error) {
	if f.err != nil {
		return model.ProgressEvent{}, f.err
	}
	f.deleted = identifier
	return model.ProgressEvent{
		RequestToken:    "tok-3",
		Operation:       model.OpDelete,
		OperationStatus: "IN_PROGRESS",
		TypeName:        typeName,
		Identifier:      identifier,
	}, nil
}

func (f *fakeProvisioner) List(_ context.Context, _ string) ([]model.ResourceDescription, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.listed, nil
}

func (f *fakeProvisioner) Status(_ context.Context, requestToken string) (model.ProgressEvent, error) {
	if f.err != nil {
		return model.ProgressEvent{}, f.err
	}
	return model.ProgressEvent{RequestToken: requestToken, OperationStatus: "SUCCESS"}, nil
}

func testOrchestrator(t *testing.T, prov Provisioner) *Orchestrator {
	t.Helper()
	schemas := schema.NewStore(t.TempDir())
	if _, err := schemas.Load("AWS::S3::Bucket", []byte(bucketDoc)); err != nil {
		t.Fatalf("Load: %v", err)
	}
	rules, err := policy.NewStore(t.TempDir(), zap.NewNop())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return New(
		intent.NewParser(schemas),
		schemas,
		policy.NewEvaluator(rules),
		prov,
		zap.NewNop(),
	)
}

// --- preview mode ---

func TestProcessCreatePreview(t *testing.T) {
	prov := &fakeProvisioner{}
	o := testOrchestrator(t, prov)

	res, err := o.Process(context.Background(), "Create an S3 bucket named my-bucket with versioning enabled", false)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.Executed {
		t.Fatal("preview must not execute")
	}
	if prov.createdState != nil {
		t.Fatal("preview dispatched to backend")
	}
	if res.Validation == nil || !res.Validation.Valid {
		t.Fatalf("validation = %+v", res.Validation)
	}
	if !strings.Contains(res.Response, "I'll create a new AWS::S3::Bucket resource") {
		t.Fatalf("response = %q", res.Response)
	}
	if !strings.Contains(res.Response, "Would you like me to proceed?") {
		t.Fatalf("response = %q", res.Response)
	}
}

func TestProcessDeletePreview(t *testing.T) {
	o := testOrchestrator(t, &fakeProvisioner{})
	res, err := o.Process(context.Background(), "Delete S3 bucket my-bucket", false)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	want := "I'll delete the AWS::S3::Bucket resource with identifier 'my-bucket'. Would you like me to proceed?"
	if res.Response != want {
		t.Fatalf("response = %q", res.Response)
	}
}

// --- execution ---

func TestProcessCreateExecute(t *testing.T) {
	prov := &fakeProvisioner{}
	o := testOrchestrator(t, prov)

	res, err := o.Process(context.Background(), "Create an S3 bucket named my-bucket with versioning enabled", true)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !res.Executed {
		t.Fatal("not executed")
	}
	want := `{"BucketName":"my-bucket","VersioningConfiguration":{"Status":"Enabled"}}`
	if string(prov.createdState) != want {
		t.Fatalf("desired state = %s", prov.createdState)
	}
	if !strings.Contains(res.Response, "request token: tok-1") {
		t.Fatalf("response = %q", res.Response)
	}
}

func TestProcessUpdateBuildsPatch(t *testing.T) {
	prov := &fakeProvisioner{}
	o := testOrchestrator(t, prov)

	res, err := o.Process(context.Background(), "Update bucket my-bucket with versioning suspended", true)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(prov.patched) != 1 {
		t.Fatalf("patch = %+v", prov.patched)
	}
	op := prov.patched[0]
	if op.Op != "replace" || op.Path != "/VersioningConfiguration" {
		t.Fatalf("patch op = %+v", op)
	}
	if !strings.Contains(res.Response, "started updating") {
		t.Fatalf("response = %q", res.Response)
	}
}

func TestProcessDeleteExecute(t *testing.T) {
	prov := &fakeProvisioner{}
	o := testOrchestrator(t, prov)

	res, err := o.Process(context.Background(), "Delete S3 bucket my-bucket", true)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if prov.deleted != "my-bucket" {
		t.Fatalf("deleted = %q", prov.deleted)
	}
	if !strings.Contains(res.Response, "started deleting") {
		t.Fatalf("response = %q", res.Response)
	}
}

func TestProcessListExecute(t *testing.T) {
	prov := &fakeProvisioner{listed: []model.ResourceDescription{
		{Identifier: "a"}, {Identifier: "b"},
	}}
	o := testOrchestrator(t, prov)

	res, err := o.Process(context.Background(), "List all s3 buckets", true)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(res.Resources) != 2 {
		t.Fatalf("resources = %+v", res.Resources)
	}
	if !strings.Contains(res.Response, "I found 2 AWS::S3::Bucket resources") {
		t.Fatalf("response = %q", res.Response)
	}
}

func TestProcessListEmpty(t *testing.T) {
	o := testOrchestrator(t, &fakeProvisioner{})
	res, _ := o.Process(context.Background(), "List all s3 buckets", true)
	if res.Response != "No AWS::S3::Bucket resources found." {
		t.Fatalf("response = %q", res.Response)
	}
}

// --- refusals ---

func TestProcessUnresolvedType(t *testing.T) {
	o := testOrchestrator(t, &fakeProvisioner{})
	res, err := o.Process(context.Background(), "create a flux capacitor", true)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.Executed {
		t.Fatal("unresolved intent executed")
	}
	if !strings.Contains(res.Response, "couldn't determine the resource type") {
		t.Fatalf("response = %q", res.Response)
	}
}

func TestProcessMissingIdentifier(t *testing.T) {
	o := testOrchestrator(t, &fakeProvisioner{})
	res, err := o.Process(context.Background(), "delete the bucket", true)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.Executed {
		t.Fatal("executed without identifier")
	}
	if !strings.Contains(res.Response, "identifier") {
		t.Fatalf("response = %q", res.Response)
	}
}

func TestProcessValidationRefusal(t *testing.T) {
	prov := &fakeProvisioner{}
	o := testOrchestrator(t, prov)

	res, err := o.Process(context.Background(), "create a bucket named b1 with color = blue", true)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.Executed || prov.createdState != nil {
		t.Fatal("invalid configuration dispatched")
	}
	if res.Validation == nil || res.Validation.Valid {
		t.Fatalf("validation = %+v", res.Validation)
	}
	if !strings.Contains(res.Response, "invalid") || !strings.Contains(res.Response, "color") {
		t.Fatalf("response = %q", res.Response)
	}
}

func TestProcessPolicyRefusal(t *testing.T) {
	prov := &fakeProvisioner{}
	schemas := schema.NewStore(t.TempDir())
	if _, err := schemas.Load("AWS::S3::Bucket", []byte(bucketDoc)); err != nil {
		t.Fatalf("Load: %v", err)
	}
	rules, err := policy.NewStore(t.TempDir(), zap.NewNop())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	rules.Put("versioning.guard", `rule versioning_on {
    AWS::S3::Bucket {
        VersioningConfiguration exists
    }
}`)
	o := New(intent.NewParser(schemas), schemas, policy.NewEvaluator(rules), prov, zap.NewNop())

	res, err := o.Process(context.Background(), "create a bucket named b1", true)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.Executed {
		t.Fatal("policy-violating configuration dispatched")
	}
	if res.Policy == nil || res.Policy.Valid {
		t.Fatalf("policy = %+v", res.Policy)
	}
	if !strings.Contains(res.Response, "violates policy") {
		t.Fatalf("response = %q", res.Response)
	}
}

// --- backend failures ---

func TestProcessBackendError(t *testing.T) {
	boom := errors.New("backend down")
	o := testOrchestrator(t, &fakeProvisioner{err: boom})
	_, err := o.Process(context.Background(), "Delete S3 bucket my-bucket", true)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
}

func TestProcessNoProvisioner(t *testing.T) {
	o := testOrchestrator(t, nil)
	_, err := o.Process(context.Background(), "Delete S3 bucket my-bucket", true)
	var env *model.ErrorEnvelope
	if !errors.As(err, &env) || env.Code != model.ErrBackendUnavailable {
		t.Fatalf("err = %v", err)
	}
	// preview still works without a backend
	res, err := o.Process(context.Background(), "Delete S3 bucket my-bucket", false)
	if err != nil || res.Response == "" {
		t.Fatalf("preview: %v %+v", err, res)
	}
}

func TestProcessFailedProgressEvent(t *testing.T) {
	o := testOrchestrator(t, &fakeProvisioner{})
	// exercise the failure rendering directly
	in := model.Intent{Operation: model.OpCreate, TypeName: "AWS::S3::Bucket"}
	msg := executedMessage(in, Result{Progress: &model.ProgressEvent{
		OperationStatus: "FAILED",
		ErrorCode:       "AlreadyExists",
		StatusMessage:   "Resource already exists",
	}})
	if !strings.Contains(msg, "failed with error code 'AlreadyExists'") {
		t.Fatalf("message = %q", msg)
	}
	_ = o
}

// --- tracing ---

func TestProcessEmitsPipelineSpans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	o := testOrchestrator(t, &fakeProvisioner{})
	res, err := o.Process(context.Background(),
		"Create an S3 bucket named my-bucket with versioning enabled", true)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !res.Executed {
		t.Fatal("expected dispatch")
	}

	spans := make(map[string]tracetest.SpanStub)
	for _, s := range exporter.GetSpans() {
		spans[s.Name] = s
	}
	for _, name := range []string{"intent.parse", "schema.validate", "policy.evaluate", "provision.dispatch"} {
		if _, ok := spans[name]; !ok {
			t.Fatalf("span %q not emitted, got %v", name, spanNames(exporter))
		}
	}

	parse := attrMap(spans["intent.parse"])
	if parse[observability.AttrOperation] != "CREATE" {
		t.Errorf("parse operation attr = %v", parse[observability.AttrOperation])
	}
	if parse[observability.AttrTypeName] != "AWS::S3::Bucket" {
		t.Errorf("parse type attr = %v", parse[observability.AttrTypeName])
	}
	if parse[observability.AttrIdentifier] != "my-bucket" {
		t.Errorf("parse identifier attr = %v", parse[observability.AttrIdentifier])
	}

	dispatch := attrMap(spans["provision.dispatch"])
	if dispatch[observability.AttrExecuted] != true {
		t.Errorf("dispatch executed attr = %v", dispatch[observability.AttrExecuted])
	}
	if dispatch[observability.AttrRequestToken] != "tok-1" {
		t.Errorf("dispatch token attr = %v", dispatch[observability.AttrRequestToken])
	}
}

func TestStatusEmitsSpan(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	o := testOrchestrator(t, &fakeProvisioner{})
	if _, err := o.Status(context.Background(), "tok-9"); err != nil {
		t.Fatalf("Status: %v", err)
	}

	var found bool
	for _, s := range exporter.GetSpans() {
		if s.Name != "provision.status" {
			continue
		}
		found = true
		if attrMap(s)[observability.AttrRequestToken] != "tok-9" {
			t.Errorf("token attr = %v", attrMap(s)[observability.AttrRequestToken])
		}
	}
	if !found {
		t.Fatalf("provision.status span not emitted, got %v", spanNames(exporter))
	}
}

func attrMap(s tracetest.SpanStub) map[attribute.Key]any {
	out := make(map[attribute.Key]any, len(s.Attributes))
	for _, kv := range s.Attributes {
		out[kv.Key] = kv.Value.AsInterface()
	}
	return out
}

func spanNames(exporter *tracetest.InMemoryExporter) []string {
	var names []string
	for _, s := range exporter.GetSpans() {
		names = append(names, s.Name)
	}
	return names
}
