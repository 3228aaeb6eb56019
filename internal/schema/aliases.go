package schema

import (
	"regexp"
	"sort"
	"strings"
)

// typeNamePattern matches a namespaced type identifier mentioned directly
// in text, e.g. "AWS::S3::Bucket".
var typeNamePattern = regexp.MustCompile(`\b[A-Za-z0-9]+::[A-Za-z0-9]+::[A-Za-z0-9]+\b`)

// aliases maps common human phrases to canonical type names. Matching is
// case-insensitive; when several aliases occur in a phrase, the longest
// one wins.
var aliases = map[string]string{
	"s3 bucket":               "AWS::S3::Bucket",
	"s3":                      "AWS::S3::Bucket",
	"bucket":                  "AWS::S3::Bucket",
	"storage bucket":          "AWS::S3::Bucket",
	"object storage":          "AWS::S3::Bucket",
	"lambda function":         "AWS::Lambda::Function",
	"lambda":                  "AWS::Lambda::Function",
	"function":                "AWS::Lambda::Function",
	"dynamodb table":          "AWS::DynamoDB::Table",
	"dynamodb":                "AWS::DynamoDB::Table",
	"dynamo":                  "AWS::DynamoDB::Table",
	"table":                   "AWS::DynamoDB::Table",
	"ec2 instance":            "AWS::EC2::Instance",
	"ec2":                     "AWS::EC2::Instance",
	"instance":                "AWS::EC2::Instance",
	"virtual machine":         "AWS::EC2::Instance",
	"server":                  "AWS::EC2::Instance",
	"vm":                      "AWS::EC2::Instance",
	"rds instance":            "AWS::RDS::DBInstance",
	"rds":                     "AWS::RDS::DBInstance",
	"database":                "AWS::RDS::DBInstance",
	"db":                      "AWS::RDS::DBInstance",
	"sns topic":               "AWS::SNS::Topic",
	"sns":                     "AWS::SNS::Topic",
	"topic":                   "AWS::SNS::Topic",
	"notification topic":      "AWS::SNS::Topic",
	"sqs queue":               "AWS::SQS::Queue",
	"sqs":                     "AWS::SQS::Queue",
	"queue":                   "AWS::SQS::Queue",
	"message queue":           "AWS::SQS::Queue",
	"iam role":                "AWS::IAM::Role",
	"role":                    "AWS::IAM::Role",
	"security group":          "AWS::EC2::SecurityGroup",
	"vpc":                     "AWS::EC2::VPC",
	"subnet":                  "AWS::EC2::Subnet",
	"kms key":                 "AWS::KMS::Key",
	"encryption key":          "AWS::KMS::Key",
	"load balancer":           "AWS::ElasticLoadBalancingV2::LoadBalancer",
	"cloudfront distribution": "AWS::CloudFront::Distribution",
	"alarm":                   "AWS::CloudWatch::Alarm",
	"rest api":                "AWS::ApiGateway::RestApi",
	"api gateway":             "AWS::ApiGateway::RestApi",
}

// orderedAliases holds the alias phrases longest-first, so the first match
// found in a scan is the longest one. Ties break lexicographically for
// determinism.
var orderedAliases = func() []string {
	keys := make([]string, 0, len(aliases))
	for k := range aliases {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}()

// resolveAlias finds the longest alias phrase contained in text, matched on
// word boundaries, and returns its canonical type name. A direct
// "Vendor::Service::Type" mention takes precedence over aliases.
func resolveAlias(text string) (string, bool) {
	if m := typeNamePattern.FindString(text); m != "" {
		return m, true
	}

	lower := strings.ToLower(text)
	for _, alias := range orderedAliases {
		if containsWord(lower, alias) {
			return aliases[alias], true
		}
	}
	return "", false
}

// aliasWords holds every individual word appearing in an alias phrase,
// lowercased. Callers use it to tell resource nouns apart from candidate
// identifiers.
var aliasWords = func() map[string]struct{} {
	words := make(map[string]struct{})
	for phrase := range aliases {
		for _, w := range strings.Fields(phrase) {
			words[w] = struct{}{}
		}
	}
	return words
}()

// IsAliasWord reports whether the word, case-insensitively, is part of
// any type alias phrase.
func IsAliasWord(word string) bool {
	_, ok := aliasWords[strings.ToLower(word)]
	return ok
}

// containsWord reports whether phrase occurs in text bounded by
// non-alphanumeric characters on both sides.
func containsWord(text, phrase string) bool {
	for start := 0; ; {
		idx := strings.Index(text[start:], phrase)
		if idx < 0 {
			return false
		}
		idx += start
		end := idx + len(phrase)
		leftOK := idx == 0 || !isWordByte(text[idx-1])
		rightOK := end == len(text) || !isWordByte(text[end])
		if leftOK && rightOK {
			return true
		}
		start = idx + 1
	}
}

func isWordByte(b byte) bool {
	return b == '_' ||
		(b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}
