package classifier

import (
	"reflect"
	"testing"

	"npdetector/internal/schema"
)

func TestScanTextEIN(t *testing.T) {
	texts := []string{"Welcome", "EIN: 12-3456789", "Contact us"}
	got := New(nil).Text(texts)
	if !reflect.DeepEqual(got[schema.TextEIN], []string{"EIN: 12-3456789"}) {
		t.Fatalf("einscan: got %#v", got[schema.TextEIN])
	}
	for _, k := range []string{schema.TextNonprofit, schema.Text501c3, schema.Text501c6} {
		v, ok := got[k]
		if !ok || v == nil || len(v) != 0 {
			t.Errorf("%s: want empty slice, got %#v (present=%v)", k, v, ok)
		}
	}
}

func TestScanTextKeepsDuplicates(t *testing.T) {
	texts := []string{"A nonprofit org", "A nonprofit org", "501(c)(3) nonprofit"}
	got := ScanText(texts, schema.Default().Text)
	if len(got[schema.TextNonprofit]) != 3 {
		t.Fatalf("want 3 nonprofit matches, got %#v", got[schema.TextNonprofit])
	}
	if len(got[schema.Text501c3]) != 1 {
		t.Fatalf("want 1 501c3 match, got %#v", got[schema.Text501c3])
	}
}
