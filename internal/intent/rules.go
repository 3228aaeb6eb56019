package intent

import (
	"regexp"

	"github.com/averto-io/stratus/model"
)

// operationRules map verb patterns to operations. Order is priority:
// destructive verbs are recognized first so "delete the new bucket"
// never reads as CREATE, and collection verbs beat singular reads so
// "show all buckets" is a LIST.
var operationRules = []struct {
	op model.Operation
	re *regexp.Regexp
}{
	{model.OpDelete, regexp.MustCompile(`(?i)\b(delete|remove|destroy|terminate|tear down|drop)\b`)},
	{model.OpUpdate, regexp.MustCompile(`(?i)\b(update|modify|change|configure|rename|set)\b`)},
	{model.OpList, regexp.MustCompile(`(?i)\b(list|show all|show me all|get all|enumerate|all of)\b`)},
	{model.OpRead, regexp.MustCompile(`(?i)\b(get|describe|show|read|fetch|details|info|status of)\b`)},
	{model.OpCreate, regexp.MustCompile(`(?i)\b(create|make|provision|add|new|launch|deploy|spin up|build)\b`)},
}

// identifierRules extract an explicit resource identifier. Tried in
// order; the first capture wins.
var identifierRules = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:named|called|name)(?:\s+is)?\s+"?([A-Za-z0-9][A-Za-z0-9._/:-]*)"?`),
	regexp.MustCompile(`(?i)\b(?:with\s+)?(?:identifier|id)\s+"?([A-Za-z0-9][A-Za-z0-9._/:-]*)"?`),
}

// propertyRule pairs a matcher with an extractor that writes the
// matched configuration into the property tree. Rules run in
// declaration order over the not-yet-consumed text; a match consumes
// its span so later rules never see it again.
type propertyRule struct {
	re    *regexp.Regexp
	apply func(match []string, props *model.Properties)
}

var propertyRules = []propertyRule{
	{
		// Suspended forms first, so "versioning suspended" is not
		// claimed by the bare "with versioning" alternative below.
		re: regexp.MustCompile(`(?i)\bversioning\s+(?:disabled|suspended|off|turned off)\b`),
		apply: func(_ []string, props *model.Properties) {
			v := model.NewProperties()
			v.Set("Status", "Suspended")
			props.Set("VersioningConfiguration", v)
		},
	},
	{
		re: regexp.MustCompile(`(?i)\bversioning\s+(?:enabled|on|turned on)\b|\bwith\s+versioning\b`),
		apply: func(_ []string, props *model.Properties) {
			v := model.NewProperties()
			v.Set("Status", "Enabled")
			props.Set("VersioningConfiguration", v)
		},
	},
	{
		re: regexp.MustCompile(`(?i)\b(?:with\s+)?encryption(?:\s+enabled)?\b|\bencrypted\b`),
		apply: func(_ []string, props *model.Properties) {
			byDefault := model.NewProperties()
			byDefault.Set("SSEAlgorithm", "AES256")
			rule := model.NewProperties()
			rule.Set("ServerSideEncryptionByDefault", byDefault)
			enc := model.NewProperties()
			enc.Set("ServerSideEncryptionConfiguration", []any{rule})
			props.Set("BucketEncryption", enc)
		},
	},
	{
		re: regexp.MustCompile(`(?i)\bblock(?:ing|ed)?\s+public\s+access\b|\bpublic\s+access\s+block(?:ed)?\b|\bno\s+public\s+access\b`),
		apply: func(_ []string, props *model.Properties) {
			block := model.NewProperties()
			block.Set("BlockPublicAcls", true)
			block.Set("BlockPublicPolicy", true)
			block.Set("IgnorePublicAcls", true)
			block.Set("RestrictPublicBuckets", true)
			props.Set("PublicAccessBlockConfiguration", block)
		},
	},
	{
		// Generic key = value / key is value / key: value.
		re: regexp.MustCompile(`(?i)\b([A-Za-z][A-Za-z0-9_]*)\s*(?:=|:|\bis\b|\bset\s+to\b)\s*"?([A-Za-z0-9][A-Za-z0-9._-]*)"?`),
		apply: func(match []string, props *model.Properties) {
			props.Set(match[1], typedValue(match[2]))
		},
	},
}
