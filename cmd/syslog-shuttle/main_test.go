package main

import (
	"reflect"
	"testing"

	shuttle "github.com/heroku/syslog-shuttle"
)

func TestMapInputFormat(t *testing.T) {
	if f, err := mapInputFormat("raw"); err != nil || f != shuttle.InputFormatRaw {
		t.Fatalf("raw: f=%d err=%v", f, err)
	}
	if f, err := mapInputFormat("json"); err != nil || f != shuttle.InputFormatJSON {
		t.Fatalf("json: f=%d err=%v", f, err)
	}
	if _, err := mapInputFormat("yaml"); err == nil {
		t.Fatal("yaml should be rejected")
	}
}

func TestDetermineEndpoint(t *testing.T) {
	if e := determineEndpoint("env:514", ""); e != "env:514" {
		t.Fatalf("endpoint=%q", e)
	}
	if e := determineEndpoint("env:514", "flag:514"); e != "flag:514" {
		t.Fatalf("flag should win, got %q", e)
	}
	if e := determineEndpoint("", ""); e != "" {
		t.Fatalf("endpoint=%q", e)
	}
}

func TestSplitFields(t *testing.T) {
	if f := splitFields(""); f != nil {
		t.Fatalf("fields=%v", f)
	}
	if f := splitFields("a, b,c"); !reflect.DeepEqual(f, []string{"a", "b", "c"}) {
		t.Fatalf("fields=%v", f)
	}
}

func TestDetectAWSHosts(t *testing.T) {
	if m := detectKinesis.FindStringSubmatch("kinesis.us-east-1.amazonaws.com"); m == nil || m[1] != "us-east-1" {
		t.Fatalf("match=%v", m)
	}
	if m := detectCloudWatchLogs.FindStringSubmatch("logs.eu-west-1.amazonaws.com"); m == nil || m[1] != "eu-west-1" {
		t.Fatalf("match=%v", m)
	}
	if detectKinesis.MatchString("logs.example.com") {
		t.Fatal("syslog host should not look like kinesis")
	}
	if detectCloudWatchLogs.MatchString("logsXus-east-1.amazonaws.com") {
		t.Fatal("dot must be literal")
	}
}
