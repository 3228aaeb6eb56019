package model

import "testing"

func TestErrorEnvelope_Error(t *testing.T) {
	err := NewNotFoundError("schema AWS::S3::Bucket not found")
	want := "NOT_FOUND: schema AWS::S3::Bucket not found"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestNewValidationError_details(t *testing.T) {
	err := NewValidationError([]PropertyError{
		{PropertyPath: "BucketName", Message: "required property is missing"},
	})
	if err.Code != ErrValidationError {
		t.Errorf("Code = %q, want %q", err.Code, ErrValidationError)
	}
	if len(err.Details) != 1 {
		t.Fatalf("len(Details) = %d, want 1", len(err.Details))
	}
	if err.Details[0].PropertyPath != "BucketName" {
		t.Errorf("PropertyPath = %q", err.Details[0].PropertyPath)
	}
}

func TestSchemaParseError_formats(t *testing.T) {
	err := &SchemaParseError{TypeName: "AWS::S3::Bucket", Path: "properties.Tags", Message: "array definition missing items"}
	want := "schema AWS::S3::Bucket: properties.Tags: array definition missing items"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	noPath := &SchemaParseError{TypeName: "AWS::S3::Bucket", Message: "invalid JSON"}
	if noPath.Error() != "schema AWS::S3::Bucket: invalid JSON" {
		t.Errorf("Error() = %q", noPath.Error())
	}
}

func TestRuleParseError_formats(t *testing.T) {
	err := &RuleParseError{Rule: "s3_encryption.guard", Line: 4, Message: "unbalanced brace"}
	want := "rule s3_encryption.guard: line 4: unbalanced brace"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
