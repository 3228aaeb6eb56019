package transport

import (
	"net/http"
	"testing"

	"github.com/averto-io/stratus/model"
)

func TestHandleCreateResource(t *testing.T) {
	deps := newTestDeps(t)
	deps.Provisioner = fakeProvisioner{}

	rec := doRequest(t, deps, http.MethodPost, "/v1/resources/AWS::S3::Bucket",
		`{"desired_state": {"BucketName": "my-bucket"}}`)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["request_token"] != "tok-1" {
		t.Errorf("request_token = %v", body["request_token"])
	}
	if body["operation_status"] != "IN_PROGRESS" {
		t.Errorf("operation_status = %v", body["operation_status"])
	}
}

func TestHandleCreateResource_invalidState(t *testing.T) {
	deps := newTestDeps(t)
	deps.Provisioner = fakeProvisioner{}

	rec := doRequest(t, deps, http.MethodPost, "/v1/resources/AWS::S3::Bucket",
		`{"desired_state": {}}`)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	if code := errorCode(t, rec); code != model.ErrValidationError {
		t.Errorf("code = %q", code)
	}
}

func TestHandleCreateResource_policyRefusal(t *testing.T) {
	deps := newTestDeps(t)
	deps.Provisioner = fakeProvisioner{}
	if err := deps.Rules.Put("versioning.guard", `rule versioning_on {
    AWS::S3::Bucket {
        VersioningConfiguration exists
    }
}
`); err != nil {
		t.Fatalf("Put: %v", err)
	}

	rec := doRequest(t, deps, http.MethodPost, "/v1/resources/AWS::S3::Bucket",
		`{"desired_state": {"BucketName": "my-bucket"}}`)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422, body %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	errObj := body["error"].(map[string]any)
	details := errObj["details"].([]any)
	first := details[0].(map[string]any)
	if first["property_path"] != "versioning.guard" {
		t.Errorf("details = %v", details)
	}
}

func TestHandleCreateResource_unknownSchema(t *testing.T) {
	deps := newTestDeps(t)
	deps.Provisioner = fakeProvisioner{}

	rec := doRequest(t, deps, http.MethodPost, "/v1/resources/AWS::EC2::Instance",
		`{"desired_state": {"InstanceType": "t3.micro"}}`)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestHandleCreateResource_missingState(t *testing.T) {
	deps := newTestDeps(t)
	deps.Provisioner = fakeProvisioner{}

	rec := doRequest(t, deps, http.MethodPost, "/v1/resources/AWS::S3::Bucket", `{}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleReadResource(t *testing.T) {
	deps := newTestDeps(t)
	deps.Provisioner = fakeProvisioner{}

	rec := doRequest(t, deps, http.MethodGet, "/v1/resources/AWS::S3::Bucket/my-bucket", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["identifier"] != "my-bucket" {
		t.Errorf("identifier = %v", body["identifier"])
	}
}

func TestHandleListResources(t *testing.T) {
	deps := newTestDeps(t)
	deps.Provisioner = fakeProvisioner{}

	rec := doRequest(t, deps, http.MethodGet, "/v1/resources/AWS::S3::Bucket", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["count"] != float64(0) {
		t.Errorf("count = %v", body["count"])
	}
	if body["type_name"] != "AWS::S3::Bucket" {
		t.Errorf("type_name = %v", body["type_name"])
	}
}

func TestHandlePatchResource(t *testing.T) {
	deps := newTestDeps(t)
	deps.Provisioner = fakeProvisioner{}

	rec := doRequest(t, deps, http.MethodPatch, "/v1/resources/AWS::S3::Bucket/my-bucket",
		`{"patch": [{"op": "replace", "path": "/VersioningConfiguration", "value": {"Status": "Enabled"}}]}`)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["request_token"] != "tok-2" {
		t.Errorf("request_token = %v", body["request_token"])
	}
}

func TestHandlePatchResource_emptyPatch(t *testing.T) {
	deps := newTestDeps(t)
	deps.Provisioner = fakeProvisioner{}

	rec := doRequest(t, deps, http.MethodPatch, "/v1/resources/AWS::S3::Bucket/my-bucket",
		`{"patch": []}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleDeleteResource(t *testing.T) {
	deps := newTestDeps(t)
	deps.Provisioner = fakeProvisioner{}

	rec := doRequest(t, deps, http.MethodDelete, "/v1/resources/AWS::S3::Bucket/my-bucket", "")

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["request_token"] != "tok-3" {
		t.Errorf("request_token = %v", body["request_token"])
	}
}

func TestResourceRoutes_noProvisioner(t *testing.T) {
	deps := newTestDeps(t)

	for _, tc := range []struct{ method, target, body string }{
		{http.MethodPost, "/v1/resources/AWS::S3::Bucket", `{"desired_state": {"BucketName": "b"}}`},
		{http.MethodGet, "/v1/resources/AWS::S3::Bucket", ""},
		{http.MethodGet, "/v1/resources/AWS::S3::Bucket/b", ""},
		{http.MethodPatch, "/v1/resources/AWS::S3::Bucket/b", `{"patch": [{"op": "replace", "path": "/X"}]}`},
		{http.MethodDelete, "/v1/resources/AWS::S3::Bucket/b", ""},
	} {
		rec := doRequest(t, deps, tc.method, tc.target, tc.body)
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("%s %s: status = %d, want 503", tc.method, tc.target, rec.Code)
		}
	}
}
