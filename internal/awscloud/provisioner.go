package awscloud

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudcontrol"
	cctypes "github.com/aws/aws-sdk-go-v2/service/cloudcontrol/types"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"

	"github.com/averto-io/stratus/model"
)

// Provisioner drives resource lifecycle operations through the Cloud
// Control API. Mutating calls carry a fresh client token, so a retried
// request is idempotent on the service side.
type Provisioner struct {
	cc *cloudcontrol.Client
}

func NewProvisioner(cfg aws.Config) *Provisioner {
	return &Provisioner{cc: cloudcontrol.NewFromConfig(cfg)}
}

// Create starts resource creation from a desired-state document.
func (p *Provisioner) Create(ctx context.Context, typeName string, desiredState []byte) (model.ProgressEvent, error) {
	out, err := p.cc.CreateResource(ctx, &cloudcontrol.CreateResourceInput{
		TypeName:     aws.String(typeName),
		DesiredState: aws.String(string(desiredState)),
		ClientToken:  aws.String(uuid.NewString()),
	})
	if err != nil {
		return model.ProgressEvent{}, translate("creating", typeName, err)
	}
	return progressEventFrom(out.ProgressEvent), nil
}

// Read fetches the current state of one resource.
func (p *Provisioner) Read(ctx context.Context, typeName, identifier string) (model.ResourceDescription, error) {
	out, err := p.cc.GetResource(ctx, &cloudcontrol.GetResourceInput{
		TypeName:   aws.String(typeName),
		Identifier: aws.String(identifier),
	})
	if err != nil {
		return model.ResourceDescription{}, translate("reading", typeName, err)
	}
	return descriptionFrom(out.ResourceDescription), nil
}

// Update applies a JSON Patch document to an existing resource.
func (p *Provisioner) Update(ctx context.Context, typeName, identifier string, patch []model.PatchOp) (model.ProgressEvent, error) {
	doc, err := json.Marshal(patch)
	if err != nil {
		return model.ProgressEvent{}, fmt.Errorf("encoding patch document: %w", err)
	}
	out, err := p.cc.UpdateResource(ctx, &cloudcontrol.UpdateResourceInput{
		TypeName:      aws.String(typeName),
		Identifier:    aws.String(identifier),
		PatchDocument: aws.String(string(doc)),
		ClientToken:   aws.String(uuid.NewString()),
	})
	if err != nil {
		return model.ProgressEvent{}, translate("updating", typeName, err)
	}
	return progressEventFrom(out.ProgressEvent), nil
}

// Delete starts resource deletion.
func (p *Provisioner) Delete(ctx context.Context, typeName, identifier string) (model.ProgressEvent, error) {
	out, err := p.cc.DeleteResource(ctx, &cloudcontrol.DeleteResourceInput{
		TypeName:    aws.String(typeName),
		Identifier:  aws.String(identifier),
		ClientToken: aws.String(uuid.NewString()),
	})
	if err != nil {
		return model.ProgressEvent{}, translate("deleting", typeName, err)
	}
	return progressEventFrom(out.ProgressEvent), nil
}

// List enumerates resources of one type.
func (p *Provisioner) List(ctx context.Context, typeName string) ([]model.ResourceDescription, error) {
	var out []model.ResourceDescription
	paginator := cloudcontrol.NewListResourcesPaginator(p.cc, &cloudcontrol.ListResourcesInput{
		TypeName: aws.String(typeName),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, translate("listing", typeName, err)
		}
		for _, desc := range page.ResourceDescriptions {
			out = append(out, descriptionFrom(&desc))
		}
	}
	return out, nil
}

// HealthCheck verifies the backend is reachable with the configured
// credentials. It lists in-flight requests, the cheapest authenticated
// call the API offers.
func (p *Provisioner) HealthCheck(ctx context.Context) error {
	_, err := p.cc.ListResourceRequests(ctx, &cloudcontrol.ListResourceRequestsInput{
		MaxResults: aws.Int32(1),
	})
	if err != nil {
		return fmt.Errorf("cloud control unreachable: %w", err)
	}
	return nil
}

// Status polls the progress of an in-flight mutating request.
func (p *Provisioner) Status(ctx context.Context, requestToken string) (model.ProgressEvent, error) {
	out, err := p.cc.GetResourceRequestStatus(ctx, &cloudcontrol.GetResourceRequestStatusInput{
		RequestToken: aws.String(requestToken),
	})
	if err != nil {
		var rnf *cctypes.RequestTokenNotFoundException
		if errors.As(err, &rnf) {
			return model.ProgressEvent{}, model.NewNotFoundError(
				fmt.Sprintf("request %s not found", requestToken))
		}
		return model.ProgressEvent{}, fmt.Errorf("fetching request status: %w", err)
	}
	return progressEventFrom(out.ProgressEvent), nil
}

func progressEventFrom(pe *cctypes.ProgressEvent) model.ProgressEvent {
	if pe == nil {
		return model.ProgressEvent{}
	}
	return model.ProgressEvent{
		RequestToken:    aws.ToString(pe.RequestToken),
		Operation:       model.Operation(pe.Operation),
		OperationStatus: string(pe.OperationStatus),
		TypeName:        aws.ToString(pe.TypeName),
		Identifier:      aws.ToString(pe.Identifier),
		StatusMessage:   aws.ToString(pe.StatusMessage),
		ErrorCode:       string(pe.ErrorCode),
	}
}

func descriptionFrom(rd *cctypes.ResourceDescription) model.ResourceDescription {
	if rd == nil {
		return model.ResourceDescription{}
	}
	desc := model.ResourceDescription{Identifier: aws.ToString(rd.Identifier)}
	if rd.Properties != nil {
		var tree map[string]any
		if err := json.Unmarshal([]byte(*rd.Properties), &tree); err == nil {
			desc.Properties = tree
		}
	}
	return desc
}

// translate maps Cloud Control failures onto the service error
// taxonomy, falling back to a wrapped error for everything else.
func translate(verb, typeName string, err error) error {
	var rnf *cctypes.ResourceNotFoundException
	if errors.As(err, &rnf) {
		return model.NewNotFoundError(fmt.Sprintf("resource of type %s not found", typeName))
	}
	var ae *cctypes.AlreadyExistsException
	if errors.As(err, &ae) {
		return model.NewConflictError(fmt.Sprintf("resource of type %s already exists", typeName))
	}
	var cde *cctypes.ConcurrentOperationException
	if errors.As(err, &cde) {
		return model.NewConflictError(fmt.Sprintf("another operation is in flight for this %s resource", typeName))
	}
	var throttle *cctypes.ThrottlingException
	if errors.As(err, &throttle) {
		return model.NewBackendUnavailableError()
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "ServiceUnavailableException" {
		return model.NewBackendUnavailableError()
	}
	return fmt.Errorf("%s %s resource: %w", verb, typeName, err)
}
