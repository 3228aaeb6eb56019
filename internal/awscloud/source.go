// Package awscloud adapts the AWS Cloud Control and CloudFormation
// registry APIs to the interfaces the rest of the service consumes.
package awscloud

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	cftypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"

	"github.com/averto-io/stratus/internal/schema"
	"github.com/averto-io/stratus/model"
)

// LoadConfig loads the default AWS configuration chain, optionally
// pinned to a region.
func LoadConfig(ctx context.Context, region string) (aws.Config, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return cfg, nil
}

// SchemaSource fetches resource type schemas from the CloudFormation
// registry. It implements schema.Source.
type SchemaSource struct {
	cf     *cloudformation.Client
	logger *zap.Logger
}

func NewSchemaSource(cfg aws.Config, logger *zap.Logger) *SchemaSource {
	return &SchemaSource{
		cf:     cloudformation.NewFromConfig(cfg),
		logger: logger,
	}
}

// FetchRaw returns the registry schema document for one type name.
func (s *SchemaSource) FetchRaw(ctx context.Context, typeName string) ([]byte, error) {
	out, err := s.cf.DescribeType(ctx, &cloudformation.DescribeTypeInput{
		Type:     cftypes.RegistryTypeResource,
		TypeName: aws.String(typeName),
	})
	if err != nil {
		if isTypeNotFound(err) {
			return nil, model.NewNotFoundError(fmt.Sprintf("resource type %s not found in registry", typeName))
		}
		return nil, fmt.Errorf("describing type %s: %w", typeName, err)
	}
	if out.Schema == nil {
		return nil, fmt.Errorf("registry returned no schema for %s", typeName)
	}
	return []byte(*out.Schema), nil
}

// FetchCommon fetches the documents for the fixed common type set. A
// type that fails to fetch is logged and left out of the result.
func (s *SchemaSource) FetchCommon(ctx context.Context) (map[string][]byte, error) {
	return s.fetchEach(ctx, schema.CommonTypes), nil
}

// FetchAll lists every public resource type in the registry and fetches
// each document. Fetches are sequential.
func (s *SchemaSource) FetchAll(ctx context.Context) (map[string][]byte, error) {
	var names []string
	paginator := cloudformation.NewListTypesPaginator(s.cf, &cloudformation.ListTypesInput{
		Type:       cftypes.RegistryTypeResource,
		Visibility: cftypes.VisibilityPublic,
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing registry types: %w", err)
		}
		for _, summary := range page.TypeSummaries {
			if summary.TypeName != nil {
				names = append(names, *summary.TypeName)
			}
		}
	}
	return s.fetchEach(ctx, names), nil
}

func (s *SchemaSource) fetchEach(ctx context.Context, names []string) map[string][]byte {
	docs := make(map[string][]byte, len(names))
	for _, name := range names {
		raw, err := s.FetchRaw(ctx, name)
		if err != nil {
			s.logger.Warn("schema fetch failed",
				zap.String("type_name", name),
				zap.Error(err),
			)
			continue
		}
		docs[name] = raw
	}
	return docs
}

func isTypeNotFound(err error) bool {
	var tnf *cftypes.TypeNotFoundException
	if errors.As(err, &tnf) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode() == "TypeNotFoundException"
	}
	return false
}
