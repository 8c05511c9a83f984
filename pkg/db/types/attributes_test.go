package dbtypes

import "testing"

func TestAttributesScanValue(t *testing.T) {
	attrs := Attributes{"color": "12", "size": "4"}
	value, err := attrs.Value()
	if err != nil {
		t.Fatalf("unexpected value error: %v", err)
	}

	var scanned Attributes
	if err := scanned.Scan(value); err != nil {
		t.Fatalf("unexpected scan error: %v", err)
	}
	if !scanned.Equal(attrs) {
		t.Fatalf("expected %v got %v", attrs, scanned)
	}
}

func TestAttributesScanEdgeCases(t *testing.T) {
	var attrs Attributes
	if err := attrs.Scan(nil); err != nil || len(attrs) != 0 {
		t.Fatalf("nil scan should produce empty attributes, got %v err=%v", attrs, err)
	}
	if err := attrs.Scan([]byte("  ")); err != nil || len(attrs) != 0 {
		t.Fatalf("blank scan should produce empty attributes, got %v err=%v", attrs, err)
	}
	if err := attrs.Scan(42); err == nil {
		t.Fatal("expected unsupported type error")
	}
	if err := attrs.Scan("{not json"); err == nil {
		t.Fatal("expected json error")
	}
}

func TestAttributesNormalizeAndKeys(t *testing.T) {
	attrs := Attributes{" size ": " 4 ", "color": "12", "empty": " "}.Normalize()
	if len(attrs) != 2 || attrs["size"] != "4" {
		t.Fatalf("unexpected normalized attributes %v", attrs)
	}
	keys := attrs.Keys()
	if len(keys) != 2 || keys[0] != "color" || keys[1] != "size" {
		t.Fatalf("unexpected key order %v", keys)
	}
	if attrs.Equal(Attributes{"size": "4"}) {
		t.Fatal("attribute sets of different size are not equal")
	}
}
