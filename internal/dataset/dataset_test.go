package dataset

import (
	"testing"

	"github.com/chrissnell/sensordash/internal/types"
)

func TestSelect(t *testing.T) {
	normal := &types.Dataset{Name: NormalName}
	anomalies := &types.Dataset{Name: AnomaliesName}
	s := Set{Normal: normal, Anomalies: anomalies}

	if s.Select(Normal) != normal {
		t.Error("Normal choice did not return the normal dataset")
	}
	if s.Select(Anomalies) != anomalies {
		t.Error("Anomalies choice did not return the anomalies dataset")
	}
	if (Set{Normal: normal}).Select(Anomalies) != nil {
		t.Error("expected nil for a dataset that failed to load")
	}
}

func TestParseChoice(t *testing.T) {
	tests := []struct {
		in      string
		want    Choice
		wantErr bool
	}{
		{in: "Normal Readings", want: Normal},
		{in: "normal", want: Normal},
		{in: "Anomalies", want: Anomalies},
		{in: " anomalies ", want: Anomalies},
		{in: "both", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseChoice(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseChoice(%q) error = %v", tt.in, err)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseChoice(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestChoiceTextRoundTrip(t *testing.T) {
	for _, c := range Choices {
		b, err := c.MarshalText()
		if err != nil {
			t.Fatal(err)
		}
		var got Choice
		if err := got.UnmarshalText(b); err != nil {
			t.Fatal(err)
		}
		if got != c {
			t.Errorf("round trip of %v gave %v", c, got)
		}
	}
}
