package schema

import "testing"

func TestScalarSampleValidates(t *testing.T) {
	s := ScalarSample()
	if err := Validate(s); err != nil {
		t.Fatalf("ScalarSample should validate: %v", err)
	}
	if s.NumFields() != 13 {
		t.Errorf("Expected 13 fields, got %d", s.NumFields())
	}
	for _, f := range s.Fields() {
		if NestingDepth(f.Type) != 0 {
			t.Errorf("Field %q should be scalar, depth %d", f.Name, NestingDepth(f.Type))
		}
	}
}

func TestNestedSampleValidates(t *testing.T) {
	s := NestedSample()
	if err := Validate(s); err != nil {
		t.Fatalf("NestedSample should validate: %v", err)
	}

	polygons, ok := s.FieldsByName("polygons")
	if !ok || len(polygons) != 1 {
		t.Fatal("NestedSample missing polygons field")
	}
	if got := NestingDepth(polygons[0].Type); got != 3 {
		t.Errorf("Expected polygons depth 3, got %d", got)
	}
}
