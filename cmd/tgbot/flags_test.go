package main

import (
	"reflect"
	"testing"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantArgs []string
		wantVals map[string]string
		wantErr  bool
	}{
		{"positional only", []string{"a", "b"}, []string{"a", "b"}, map[string]string{}, false},
		{"separate value", []string{"--config", "x.toml", "a"}, []string{"a"}, map[string]string{"config": "x.toml"}, false},
		{"inline value", []string{"a", "--config=x.toml"}, []string{"a"}, map[string]string{"config": "x.toml"}, false},
		{"switch", []string{"--markdown", "a"}, []string{"a"}, map[string]string{"markdown": ""}, false},
		{"double dash", []string{"--", "--markdown"}, []string{"--markdown"}, map[string]string{}, false},
		{"negative chat id", []string{"-100", "hi"}, []string{"-100", "hi"}, map[string]string{}, false},
		{"unknown", []string{"--nope"}, nil, nil, true},
		{"missing value", []string{"--config"}, nil, nil, true},
		{"switch with value", []string{"--markdown=yes"}, nil, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs, err := parseFlags(tt.args, []string{"config"}, []string{"markdown"})
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parseFlags: %v", err)
			}
			if !reflect.DeepEqual(fs.args, tt.wantArgs) {
				t.Errorf("args = %q, want %q", fs.args, tt.wantArgs)
			}
			if !reflect.DeepEqual(fs.values, tt.wantVals) {
				t.Errorf("values = %v, want %v", fs.values, tt.wantVals)
			}
		})
	}
}

func TestFlagSet_value(t *testing.T) {
	fs, _ := parseFlags([]string{"--config", "a.toml"}, []string{"config", "chat"}, nil)
	if got := fs.value("config", "def"); got != "a.toml" {
		t.Errorf("value(config) = %q", got)
	}
	if got := fs.value("chat", "def"); got != "def" {
		t.Errorf("value(chat) = %q, want def", got)
	}
}
