package awscloud

import (
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	cctypes "github.com/aws/aws-sdk-go-v2/service/cloudcontrol/types"

	"github.com/averto-io/stratus/model"
)

// --- error translation ---

func TestTranslate_resourceNotFound(t *testing.T) {
	err := translate("reading", "AWS::S3::Bucket", &cctypes.ResourceNotFoundException{})

	var ee *model.ErrorEnvelope
	if !errors.As(err, &ee) {
		t.Fatalf("translate returned %T, want envelope", err)
	}
	if ee.Code != model.ErrNotFound {
		t.Errorf("code = %q", ee.Code)
	}
}

func TestTranslate_alreadyExists(t *testing.T) {
	err := translate("creating", "AWS::S3::Bucket", &cctypes.AlreadyExistsException{})

	var ee *model.ErrorEnvelope
	if !errors.As(err, &ee) {
		t.Fatalf("translate returned %T", err)
	}
	if ee.Code != model.ErrConflict {
		t.Errorf("code = %q", ee.Code)
	}
}

func TestTranslate_concurrentOperation(t *testing.T) {
	err := translate("updating", "AWS::S3::Bucket", &cctypes.ConcurrentOperationException{})

	var ee *model.ErrorEnvelope
	if !errors.As(err, &ee) {
		t.Fatalf("translate returned %T", err)
	}
	if ee.Code != model.ErrConflict {
		t.Errorf("code = %q", ee.Code)
	}
}

func TestTranslate_throttling(t *testing.T) {
	err := translate("creating", "AWS::S3::Bucket", &cctypes.ThrottlingException{})

	var ee *model.ErrorEnvelope
	if !errors.As(err, &ee) {
		t.Fatalf("translate returned %T", err)
	}
	if ee.Code != model.ErrBackendUnavailable {
		t.Errorf("code = %q", ee.Code)
	}
}

func TestTranslate_unknownErrorWrapped(t *testing.T) {
	cause := fmt.Errorf("connection reset")
	err := translate("deleting", "AWS::S3::Bucket", cause)

	var ee *model.ErrorEnvelope
	if errors.As(err, &ee) {
		t.Fatalf("unknown error should not map to an envelope: %v", err)
	}
	if !errors.Is(err, cause) {
		t.Error("cause not preserved in wrapped error")
	}
}

// --- response mapping ---

func TestProgressEventFrom(t *testing.T) {
	pe := &cctypes.ProgressEvent{
		RequestToken:    aws.String("tok-1"),
		Operation:       cctypes.OperationCreate,
		OperationStatus: cctypes.OperationStatusInProgress,
		TypeName:        aws.String("AWS::S3::Bucket"),
		Identifier:      aws.String("my-bucket"),
		StatusMessage:   aws.String("creating"),
	}

	got := progressEventFrom(pe)
	if got.RequestToken != "tok-1" {
		t.Errorf("RequestToken = %q", got.RequestToken)
	}
	if got.Operation != model.OpCreate {
		t.Errorf("Operation = %q", got.Operation)
	}
	if got.OperationStatus != "IN_PROGRESS" {
		t.Errorf("OperationStatus = %q", got.OperationStatus)
	}
	if got.Identifier != "my-bucket" {
		t.Errorf("Identifier = %q", got.Identifier)
	}
}

func TestProgressEventFrom_nil(t *testing.T) {
	got := progressEventFrom(nil)
	if got != (model.ProgressEvent{}) {
		t.Errorf("nil event should map to zero value, got %+v", got)
	}
}

func TestDescriptionFrom(t *testing.T) {
	rd := &cctypes.ResourceDescription{
		Identifier: aws.String("my-bucket"),
		Properties: aws.String(`{"BucketName": "my-bucket"}`),
	}

	got := descriptionFrom(rd)
	if got.Identifier != "my-bucket" {
		t.Errorf("Identifier = %q", got.Identifier)
	}
	if got.Properties["BucketName"] != "my-bucket" {
		t.Errorf("Properties = %v", got.Properties)
	}
}

func TestDescriptionFrom_malformedProperties(t *testing.T) {
	rd := &cctypes.ResourceDescription{
		Identifier: aws.String("my-bucket"),
		Properties: aws.String("{not json"),
	}

	got := descriptionFrom(rd)
	if got.Identifier != "my-bucket" {
		t.Errorf("Identifier = %q", got.Identifier)
	}
	if got.Properties != nil {
		t.Errorf("malformed properties should be dropped, got %v", got.Properties)
	}
}
