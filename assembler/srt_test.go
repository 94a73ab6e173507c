package assembler

import (
	"strings"
	"testing"
)

const sceneOneSRT = `1
00:00:00,000 --> 00:00:02,500
First line

2
00:00:03,000 --> 00:00:05,000
Second line
continued
`

const sceneTwoSRT = `1
00:00:01,000 --> 00:00:02,000
Later scene
`

func TestParseSRT(t *testing.T) {
	cues := ParseSRT(sceneOneSRT)
	if len(cues) != 2 {
		t.Fatalf("got %d cues, want 2", len(cues))
	}
	if cues[0].Start != 0 || cues[0].End != 2.5 {
		t.Errorf("cue 0 times = %v..%v", cues[0].Start, cues[0].End)
	}
	if len(cues[1].Text) != 2 || cues[1].Text[1] != "continued" {
		t.Errorf("cue 1 text = %v", cues[1].Text)
	}
}

func TestParseSRTSkipsMalformedBlocks(t *testing.T) {
	data := "1\nnot a time line\nsome text\n\n2\n00:00:01,000 --> 00:00:02,000\nok\n"
	cues := ParseSRT(data)
	if len(cues) != 1 {
		t.Fatalf("got %d cues, want 1", len(cues))
	}
	if cues[0].Text[0] != "ok" {
		t.Errorf("cue text = %v", cues[0].Text)
	}
}

func TestMergeSRTShiftsAndRenumbers(t *testing.T) {
	scene1 := ParseSRT(sceneOneSRT)
	scene2 := ParseSRT(sceneTwoSRT)

	merged := MergeSRT([][]Cue{scene1, scene2}, []float64{0, 10})
	lines := strings.Split(strings.TrimSpace(merged), "\n")

	if lines[0] != "1" {
		t.Errorf("first cue index = %q", lines[0])
	}
	if !strings.Contains(merged, "00:00:11,000 --> 00:00:12,000") {
		t.Errorf("second scene cue not shifted by offset:\n%s", merged)
	}
	if !strings.Contains(merged, "\n3\n00:00:11,000") {
		t.Errorf("cues not renumbered sequentially:\n%s", merged)
	}

	// Cue times must be non-decreasing across the merged document.
	cues := ParseSRT(merged)
	if len(cues) != 3 {
		t.Fatalf("merged document has %d cues, want 3", len(cues))
	}
	for i := 1; i < len(cues); i++ {
		if cues[i].Start < cues[i-1].Start {
			t.Errorf("cue %d starts at %v, before cue %d at %v", i, cues[i].Start, i-1, cues[i-1].Start)
		}
	}
}

func TestFormatTime(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{0, "00:00:00,000"},
		{2.5, "00:00:02,500"},
		{61.25, "00:01:01,250"},
		{3661.5, "01:01:01,500"},
	}
	for _, tt := range tests {
		if got := formatTime(tt.seconds); got != tt.want {
			t.Errorf("formatTime(%v) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}
