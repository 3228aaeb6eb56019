package orchestrator

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/averto-io/stratus/model"
)

// previewMessage renders the would-do reply for a request that was not
// executed.
func previewMessage(in model.Intent, patch []model.PatchOp) string {
	switch in.Operation {
	case model.OpCreate:
		return fmt.Sprintf("I'll create a new %s resource with the following properties: %s. Would you like me to proceed?",
			in.TypeName, formatProperties(in.Properties))
	case model.OpRead:
		return fmt.Sprintf("I'll retrieve the %s resource with identifier '%s'. Would you like me to proceed?",
			in.TypeName, in.Identifier)
	case model.OpUpdate:
		return fmt.Sprintf("I'll update the %s resource with identifier '%s' with the following changes: %s. Would you like me to proceed?",
			in.TypeName, in.Identifier, formatPatch(patch))
	case model.OpDelete:
		return fmt.Sprintf("I'll delete the %s resource with identifier '%s'. Would you like me to proceed?",
			in.TypeName, in.Identifier)
	default:
		return fmt.Sprintf("I'll list all %s resources. Would you like me to proceed?", in.TypeName)
	}
}

// executedMessage renders the reply after a dispatch completed.
func executedMessage(in model.Intent, result Result) string {
	if result.Progress != nil && result.Progress.Failed() {
		message := result.Progress.StatusMessage
		if message == "" {
			message = "No additional information available."
		}
		return fmt.Sprintf("The %s operation for %s failed with error code '%s'. %s",
			in.Operation, in.TypeName, result.Progress.ErrorCode, message)
	}

	switch in.Operation {
	case model.OpCreate:
		if result.Progress.Identifier != "" {
			return fmt.Sprintf("I've started creating a new %s resource with identifier '%s'. You can check the status using the request token: %s",
				in.TypeName, result.Progress.Identifier, result.Progress.RequestToken)
		}
		return fmt.Sprintf("I've started creating a new %s resource. You can check the status using the request token: %s",
			in.TypeName, result.Progress.RequestToken)

	case model.OpRead:
		raw, err := json.MarshalIndent(result.Resource.Properties, "", "  ")
		if err != nil {
			raw = []byte("{}")
		}
		return fmt.Sprintf("Here are the details of the %s resource:\n%s", in.TypeName, raw)

	case model.OpUpdate:
		return fmt.Sprintf("I've started updating the %s resource with identifier '%s'. You can check the status using the request token: %s",
			in.TypeName, in.Identifier, result.Progress.RequestToken)

	case model.OpDelete:
		return fmt.Sprintf("I've started deleting the %s resource with identifier '%s'. You can check the status using the request token: %s",
			in.TypeName, in.Identifier, result.Progress.RequestToken)

	case model.OpList:
		if len(result.Resources) == 0 {
			return fmt.Sprintf("No %s resources found.", in.TypeName)
		}
		lines := make([]string, len(result.Resources))
		for i, r := range result.Resources {
			lines[i] = "- " + r.Identifier
		}
		return fmt.Sprintf("I found %d %s resources:\n%s",
			len(result.Resources), in.TypeName, strings.Join(lines, "\n"))
	}
	return "I've processed your request, but I'm not sure how to describe the result."
}

// refusalMessage renders a validation refusal with every violation
// listed.
func refusalMessage(in model.Intent, errs []model.PropertyError) string {
	lines := make([]string, len(errs))
	for i, e := range errs {
		lines[i] = fmt.Sprintf("%s: %s", e.PropertyPath, e.Message)
	}
	return fmt.Sprintf("The requested %s configuration is invalid:\n%s",
		in.TypeName, strings.Join(lines, "\n"))
}

// policyRefusalMessage renders a policy refusal listing each failed
// rule's reasons.
func policyRefusalMessage(in model.Intent, result model.PolicyResult) string {
	names := make([]string, 0, len(result.PerRule))
	for name := range result.PerRule {
		names = append(names, name)
	}
	sort.Strings(names)

	var lines []string
	for _, name := range names {
		rule := result.PerRule[name]
		if rule.Passed {
			continue
		}
		for _, msg := range rule.Messages {
			lines = append(lines, fmt.Sprintf("%s: %s", name, msg))
		}
	}
	return fmt.Sprintf("The requested %s configuration violates policy:\n%s",
		in.TypeName, strings.Join(lines, "\n"))
}

func formatProperties(props *model.Properties) string {
	keys := props.Keys()
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		value, _ := props.Get(key)
		parts = append(parts, fmt.Sprintf("%s: %s", key, formatValue(value)))
	}
	return strings.Join(parts, ", ")
}

func formatPatch(patch []model.PatchOp) string {
	parts := make([]string, 0, len(patch))
	for _, op := range patch {
		parts = append(parts, fmt.Sprintf("%s: %s", strings.TrimPrefix(op.Path, "/"), formatValue(op.Value)))
	}
	return strings.Join(parts, ", ")
}

func formatValue(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(raw)
}
