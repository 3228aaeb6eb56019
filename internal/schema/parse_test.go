package schema

import (
	"reflect"
	"testing"

	"github.com/averto-io/stratus/model"
)

const bucketDoc = `{
	"typeName": "AWS::S3::Bucket",
	"description": "Amazon S3 bucket",
	"properties": {
		"BucketName": {"type": "string", "pattern": "^[a-z0-9.-]{3,63}$"},
		"AccessControl": {"type": "string", "enum": ["Private", "PublicRead"]},
		"VersioningConfiguration": {
			"type": "object",
			"properties": {
				"Status": {"type": "string", "enum": ["Enabled", "Suspended"]}
			},
			"required": ["Status"]
		},
		"Tags": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"Key": {"type": "string"},
					"Value": {"type": "string"}
				},
				"required": ["Key", "Value"]
			}
		},
		"ObjectLockEnabled": {"type": "boolean"}
	},
	"required": ["BucketName"],
	"primaryIdentifier": ["/properties/BucketName"]
}`

func parseBucket(t *testing.T) model.ResourceSchema {
	t.Helper()
	s, err := ParseDocument("AWS::S3::Bucket", []byte(bucketDoc))
	if err != nil {
		t.Fatalf("ParseDocument error: %v", err)
	}
	return s
}

func TestParseDocument_declarationOrder(t *testing.T) {
	s := parseBucket(t)

	want := []string{"BucketName", "AccessControl", "VersioningConfiguration", "Tags", "ObjectLockEnabled"}
	if !reflect.DeepEqual(s.PropertyOrder, want) {
		t.Errorf("PropertyOrder = %v, want %v", s.PropertyOrder, want)
	}
}

func TestParseDocument_kinds(t *testing.T) {
	s := parseBucket(t)

	if s.Properties["BucketName"].Kind != model.KindString {
		t.Errorf("BucketName kind = %q", s.Properties["BucketName"].Kind)
	}
	if s.Properties["ObjectLockEnabled"].Kind != model.KindBoolean {
		t.Errorf("ObjectLockEnabled kind = %q", s.Properties["ObjectLockEnabled"].Kind)
	}

	vc := s.Properties["VersioningConfiguration"]
	if vc.Kind != model.KindObject {
		t.Fatalf("VersioningConfiguration kind = %q", vc.Kind)
	}
	if vc.Nested == nil {
		t.Fatal("object definition has nil Nested")
	}
	if vc.Nested["Status"].Kind != model.KindString {
		t.Errorf("Status kind = %q", vc.Nested["Status"].Kind)
	}

	tags := s.Properties["Tags"]
	if tags.Kind != model.KindArray {
		t.Fatalf("Tags kind = %q", tags.Kind)
	}
	if tags.Items == nil {
		t.Fatal("array definition has nil Items")
	}
	if tags.Items.Kind != model.KindObject {
		t.Errorf("Tags items kind = %q", tags.Items.Kind)
	}
}

func TestParseDocument_primaryIdentifierStripped(t *testing.T) {
	s := parseBucket(t)
	if len(s.PrimaryIdentifier) != 1 || s.PrimaryIdentifier[0] != "BucketName" {
		t.Errorf("PrimaryIdentifier = %v, want [BucketName]", s.PrimaryIdentifier)
	}
}

func TestParseDocument_idempotent(t *testing.T) {
	a := parseBucket(t)
	b := parseBucket(t)
	if !reflect.DeepEqual(a, b) {
		t.Error("parsing the same document twice produced different schemas")
	}
}

// --- malformed documents ---

func TestParseDocument_invalidJSON(t *testing.T) {
	_, err := ParseDocument("AWS::S3::Bucket", []byte(`{not json`))
	spe, ok := err.(*model.SchemaParseError)
	if !ok {
		t.Fatalf("err = %T, want *model.SchemaParseError", err)
	}
	if spe.TypeName != "AWS::S3::Bucket" {
		t.Errorf("TypeName = %q", spe.TypeName)
	}
}

func TestParseDocument_arrayWithoutItems(t *testing.T) {
	doc := `{"properties": {"Tags": {"type": "array"}}}`
	_, err := ParseDocument("AWS::S3::Bucket", []byte(doc))
	spe, ok := err.(*model.SchemaParseError)
	if !ok {
		t.Fatalf("err = %T, want *model.SchemaParseError", err)
	}
	if spe.Path != "properties.Tags" {
		t.Errorf("Path = %q, want properties.Tags", spe.Path)
	}
}

func TestParseDocument_requiredNotDeclared(t *testing.T) {
	doc := `{"properties": {"A": {"type": "string"}}, "required": ["B"]}`
	_, err := ParseDocument("X::Y::Z", []byte(doc))
	if _, ok := err.(*model.SchemaParseError); !ok {
		t.Fatalf("err = %T, want *model.SchemaParseError", err)
	}
}

func TestParseDocument_invalidPattern(t *testing.T) {
	doc := `{"properties": {"A": {"type": "string", "pattern": "["}}}`
	_, err := ParseDocument("X::Y::Z", []byte(doc))
	spe, ok := err.(*model.SchemaParseError)
	if !ok {
		t.Fatalf("err = %T, want *model.SchemaParseError", err)
	}
	if spe.Path != "properties.A" {
		t.Errorf("Path = %q, want properties.A", spe.Path)
	}
}

func TestParseDocument_unsupportedType(t *testing.T) {
	doc := `{"properties": {"A": {"type": "tuple"}}}`
	_, err := ParseDocument("X::Y::Z", []byte(doc))
	if _, ok := err.(*model.SchemaParseError); !ok {
		t.Fatalf("err = %T, want *model.SchemaParseError", err)
	}
}

func TestParseDocument_missingTypeTreatedAsObject(t *testing.T) {
	doc := `{"properties": {"A": {"$ref": "#/definitions/Thing"}}}`
	s, err := ParseDocument("X::Y::Z", []byte(doc))
	if err != nil {
		t.Fatalf("ParseDocument error: %v", err)
	}
	def := s.Properties["A"]
	if def.Kind != model.KindObject {
		t.Errorf("Kind = %q, want object", def.Kind)
	}
	if def.Nested == nil {
		t.Error("Nested is nil, want empty map")
	}
}
