package serialization_test

import (
	"reflect"
	"testing"

	"github.com/tigerroll/chunkbatch/pkg/batch/support/util/serialization"
)

func TestMaskParameters(t *testing.T) {
	params := map[string]interface{}{
		"user":     "alice",
		"password": "secret_password",
		"count":    10,
	}

	masked := serialization.MaskParameters(params, []string{"password", "api_key"})

	if masked["user"] != "alice" || masked["count"] != 10 {
		t.Errorf("unmasked keys changed: %v", masked)
	}
	if masked["password"] != serialization.Mask {
		t.Errorf("password was not masked, got %v", masked["password"])
	}
	if _, ok := masked["api_key"]; ok {
		t.Errorf("absent key must not be added")
	}
	if params["password"] != "secret_password" {
		t.Errorf("input map was modified")
	}
}

func TestMapRoundTrip(t *testing.T) {
	data, err := serialization.MarshalMap(map[string]interface{}{"reader.read.count": 3.0, "name": "players"})
	if err != nil {
		t.Fatalf("MarshalMap failed: %v", err)
	}
	got, err := serialization.UnmarshalMap(data)
	if err != nil {
		t.Fatalf("UnmarshalMap failed: %v", err)
	}
	want := map[string]interface{}{"reader.read.count": 3.0, "name": "players"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestNilAndEmptyColumns(t *testing.T) {
	data, _ := serialization.MarshalMap(nil)
	if string(data) != "{}" {
		t.Errorf("nil map serialized as %s", data)
	}
	data, _ = serialization.MarshalFailures(nil)
	if string(data) != "[]" {
		t.Errorf("nil failures serialized as %s", data)
	}
	m, err := serialization.UnmarshalMap([]byte("null"))
	if err != nil || len(m) != 0 {
		t.Errorf("null map column: %v %v", m, err)
	}
	f, err := serialization.UnmarshalFailures(nil)
	if err != nil || len(f) != 0 {
		t.Errorf("empty failures column: %v %v", f, err)
	}
}

func TestUnmarshalFailures_Invalid(t *testing.T) {
	if _, err := serialization.UnmarshalFailures([]byte("{not json")); err == nil {
		t.Errorf("expected an error for malformed JSON")
	}
}
