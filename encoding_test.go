package shuttle

import (
	"reflect"
	"testing"
)

func TestApplyRulesExceptFields(t *testing.T) {
	ev := NewLogEvent()
	ev.Insert("a", 1)
	ev.Insert("b", 2)
	ev.Insert("c", 3)

	ec := EncodingConfig{ExceptFields: []string{"b", "missing"}}
	ec.ApplyRules(ev)

	if fields := ev.Fields(); !reflect.DeepEqual(fields, []string{"a", "c"}) {
		t.Fatalf("fields=%v", fields)
	}
}

func TestApplyRulesOnlyFields(t *testing.T) {
	ev := NewLogEvent()
	ev.Insert("a", 1)
	ev.Insert("b", 2)
	ev.Insert("c", 3)

	ec := EncodingConfig{OnlyFields: []string{"c", "a"}}
	ec.ApplyRules(ev)

	if fields := ev.Fields(); !reflect.DeepEqual(fields, []string{"a", "c"}) {
		t.Fatalf("fields=%v", fields)
	}
}

func TestApplyRulesNoFilter(t *testing.T) {
	ev := NewLogEvent()
	ev.Insert("a", 1)

	ec := EncodingConfig{}
	ec.ApplyRules(ev)

	if ev.Len() != 1 {
		t.Fatalf("len=%d", ev.Len())
	}
}

func TestEncodingConfigValidate(t *testing.T) {
	ec := EncodingConfig{OnlyFields: []string{"a"}, ExceptFields: []string{"b"}}
	if err := ec.Validate(); err == nil {
		t.Fatal("only_fields + except_fields should not validate")
	}

	ec = EncodingConfig{OnlyFields: []string{"a"}}
	if err := ec.Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestParseCodec(t *testing.T) {
	if c, err := ParseCodec("json"); err != nil || c != CodecJSON {
		t.Fatalf("codec=%v err=%v", c, err)
	}
	if c, err := ParseCodec("text"); err != nil || c != CodecText {
		t.Fatalf("codec=%v err=%v", c, err)
	}
	if _, err := ParseCodec("yaml"); err == nil {
		t.Fatal("unknown codec should error")
	}
}
