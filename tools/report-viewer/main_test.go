package main

import (
	"testing"
)

func TestDecodeReport(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantOK  bool
		wantErr bool
		covered int
	}{
		{
			name:    "report",
			value:   `{"eventType":"interaction.adherence.report","interactionId":"i-1","results":[{"topic":"a","fully_covered":true},{"topic":"b","fully_covered":false}]}`,
			wantOK:  true,
			covered: 1,
		},
		{
			name:   "other event type",
			value:  `{"eventType":"interaction.transcript.final","interactionId":"i-1"}`,
			wantOK: false,
		},
		{
			name:    "malformed",
			value:   `{"eventType":`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, ok, err := decodeReport([]byte(tt.value))
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && event.Covered() != tt.covered {
				t.Errorf("Covered() = %d, want %d", event.Covered(), tt.covered)
			}
		})
	}
}

func TestHub_RecentKeepsNewest(t *testing.T) {
	hub := newHub(2)
	hub.remember(ReportEvent{ReportID: "r1"})
	hub.remember(ReportEvent{ReportID: "r2"})
	hub.remember(ReportEvent{ReportID: "r3"})

	recent := hub.Recent()
	if len(recent) != 2 {
		t.Fatalf("len(Recent()) = %d, want 2", len(recent))
	}
	if recent[0].ReportID != "r2" || recent[1].ReportID != "r3" {
		t.Errorf("Recent() = %v, want r2 then r3", recent)
	}
}
