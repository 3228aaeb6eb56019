package schema

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Source fetches raw schema documents from a remote registry. Timeouts,
// retries, and credentials are the implementation's concern, not this
// core's.
type Source interface {
	// FetchRaw returns the raw document for one type name.
	FetchRaw(ctx context.Context, typeName string) ([]byte, error)

	// FetchCommon returns raw documents for the registry's common types.
	FetchCommon(ctx context.Context) (map[string][]byte, error)

	// FetchAll returns raw documents for every available type.
	FetchAll(ctx context.Context) (map[string][]byte, error)
}

// CommonTypes is the fixed set of resource types downloaded by default.
var CommonTypes = []string{
	"AWS::S3::Bucket",
	"AWS::EC2::Instance",
	"AWS::Lambda::Function",
	"AWS::DynamoDB::Table",
	"AWS::RDS::DBInstance",
	"AWS::SNS::Topic",
	"AWS::SQS::Queue",
	"AWS::IAM::Role",
	"AWS::CloudFront::Distribution",
	"AWS::ApiGateway::RestApi",
	"AWS::ElasticLoadBalancingV2::LoadBalancer",
	"AWS::ElasticLoadBalancingV2::TargetGroup",
	"AWS::CloudWatch::Alarm",
	"AWS::Route53::RecordSet",
	"AWS::EC2::SecurityGroup",
	"AWS::EC2::VPC",
	"AWS::EC2::Subnet",
	"AWS::EC2::RouteTable",
	"AWS::EC2::InternetGateway",
	"AWS::KMS::Key",
}

// Downloader pulls schema documents from a Source into a Store. Downloads
// are sequential; each type's fetch and parse failure is isolated and
// never aborts the batch. The fetch happens entirely outside the store's
// critical section.
type Downloader struct {
	source Source
	store  *Store
	logger *zap.Logger
}

// NewDownloader creates a Downloader.
func NewDownloader(source Source, store *Store, logger *zap.Logger) *Downloader {
	return &Downloader{source: source, store: store, logger: logger}
}

// DownloadOne fetches and loads a single type's schema.
func (d *Downloader) DownloadOne(ctx context.Context, typeName string) error {
	raw, err := d.source.FetchRaw(ctx, typeName)
	if err != nil {
		return fmt.Errorf("fetching schema for %s: %w", typeName, err)
	}
	if _, err := d.store.Load(typeName, raw); err != nil {
		return err
	}
	return nil
}

// DownloadCommon fetches and loads the common types. Returns the number
// loaded; per-type failures are logged and skipped.
func (d *Downloader) DownloadCommon(ctx context.Context) int {
	docs, err := d.source.FetchCommon(ctx)
	if err != nil {
		d.logger.Warn("common schema fetch failed", zap.Error(err))
		return 0
	}
	return d.loadAll(docs)
}

// DownloadAll fetches and loads every available type. Returns the number
// loaded; per-type failures are logged and skipped.
func (d *Downloader) DownloadAll(ctx context.Context) int {
	docs, err := d.source.FetchAll(ctx)
	if err != nil {
		d.logger.Warn("full schema fetch failed", zap.Error(err))
		return 0
	}
	return d.loadAll(docs)
}

func (d *Downloader) loadAll(docs map[string][]byte) int {
	loaded := 0
	for typeName, raw := range docs {
		if _, err := d.store.Load(typeName, raw); err != nil {
			d.logger.Warn("schema load failed",
				zap.String("type_name", typeName),
				zap.Error(err),
			)
			continue
		}
		loaded++
	}
	return loaded
}
