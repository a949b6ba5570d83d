package cli

import (
	"strings"
	"testing"

	"github.com/ishaan812/gitinsight/internal/insight"
)

func TestParseRange(t *testing.T) {
	tests := []struct {
		name     string
		limitSet bool
		limit    int
		since    string
		wantErr  string
		wantDay  string
	}{
		{name: "defaults"},
		{name: "limit", limitSet: true, limit: 50},
		{name: "zero limit", limitSet: true, limit: 0, wantErr: "at least 1"},
		{name: "both", limitSet: true, limit: 5, since: "2025-01-01", wantErr: "cannot be used together"},
		{name: "since", since: "2025-03-04", wantDay: "2025-03-04"},
		{name: "bad since", since: "03/04/2025", wantErr: "YYYY-MM-DD"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseRange(tt.limitSet, tt.limit, tt.since)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("err = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if tt.wantDay == "" {
				if !got.IsZero() {
					t.Errorf("got %v, want zero", got)
				}
				return
			}
			if day := got.Format("2006-01-02"); day != tt.wantDay {
				t.Errorf("day = %s", day)
			}
		})
	}
}

func TestValidators(t *testing.T) {
	for _, in := range []string{"1", " 20 "} {
		if err := validatePositive(in); err != nil {
			t.Errorf("validatePositive(%q) = %v", in, err)
		}
	}
	for _, in := range []string{"0", "-3", "x", ""} {
		if err := validatePositive(in); err == nil {
			t.Errorf("validatePositive(%q) accepted", in)
		}
	}
	for _, in := range []string{"@every 30m", "0 * * * *", "@daily"} {
		if err := validateSchedule(in); err != nil {
			t.Errorf("validateSchedule(%q) = %v", in, err)
		}
	}
	if err := validateSchedule("every now and then"); err == nil {
		t.Error("bad schedule accepted")
	}
}

func TestMaskKey(t *testing.T) {
	tests := map[string]string{
		"":                 "(not set)",
		"short":            "*****",
		"sk-1234567890abc": "sk-1********0abc",
	}
	for in, want := range tests {
		if got := maskKey(in); got != want {
			t.Errorf("maskKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPreviewLines(t *testing.T) {
	got := previewLines("a\n\nb\n  \nc\nd", 3)
	if strings.Join(got, ",") != "a,b,c" {
		t.Errorf("previewLines = %v", got)
	}
}

func TestStageLabels(t *testing.T) {
	seen := map[string]bool{}
	for _, st := range []string{"fetch", "summarize", "overall", "chart", "ingest"} {
		label := stageLabel(insight.Stage(st))
		if label == st || seen[label] {
			t.Errorf("stage %s label %q", st, label)
		}
		seen[label] = true
	}
}
