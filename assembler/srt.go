package assembler

import (
	"fmt"
	"strconv"
	"strings"
)

// Cue is one subtitle entry. Times are seconds from the start of its file.
type Cue struct {
	Start float64
	End   float64
	Text  []string
}

// ParseSRT parses SubRip content. Malformed blocks are skipped rather than
// failing the whole file.
func ParseSRT(data string) []Cue {
	var cues []Cue
	lines := strings.Split(strings.ReplaceAll(data, "\r\n", "\n"), "\n")
	i := 0
	for i < len(lines) {
		line := strings.TrimSpace(lines[i])
		if _, err := strconv.Atoi(line); err != nil {
			i++
			continue
		}
		i++
		if i >= len(lines) {
			break
		}
		start, end, ok := parseTimeLine(strings.TrimSpace(lines[i]))
		if !ok {
			continue
		}
		i++
		var text []string
		for i < len(lines) && strings.TrimSpace(lines[i]) != "" {
			text = append(text, lines[i])
			i++
		}
		cues = append(cues, Cue{Start: start, End: end, Text: text})
	}
	return cues
}

func parseTimeLine(line string) (start, end float64, ok bool) {
	parts := strings.Split(line, " --> ")
	if len(parts) != 2 {
		return 0, 0, false
	}
	start, okS := parseTime(strings.TrimSpace(parts[0]))
	end, okE := parseTime(strings.TrimSpace(parts[1]))
	return start, end, okS && okE
}

// parseTime reads "HH:MM:SS,mmm" into seconds.
func parseTime(s string) (float64, bool) {
	s = strings.Replace(s, ",", ".", 1)
	fields := strings.Split(s, ":")
	if len(fields) != 3 {
		return 0, false
	}
	h, err1 := strconv.ParseFloat(fields[0], 64)
	m, err2 := strconv.ParseFloat(fields[1], 64)
	sec, err3 := strconv.ParseFloat(fields[2], 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, false
	}
	return h*3600 + m*60 + sec, true
}

// formatTime writes seconds as "HH:MM:SS,mmm".
func formatTime(seconds float64) string {
	h := int(seconds) / 3600
	m := (int(seconds) % 3600) / 60
	s := seconds - float64(h*3600) - float64(m*60)
	return strings.Replace(fmt.Sprintf("%02d:%02d:%06.3f", h, m, s), ".", ",", 1)
}

// MergeSRT concatenates per-scene cue lists into one SubRip document. offsets
// holds each scene's start time in the combined video; cue indices are
// renumbered from 1.
func MergeSRT(sceneCues [][]Cue, offsets []float64) string {
	var sb strings.Builder
	index := 1
	for i, cues := range sceneCues {
		for _, cue := range cues {
			fmt.Fprintf(&sb, "%d\n", index)
			index++
			fmt.Fprintf(&sb, "%s --> %s\n", formatTime(cue.Start+offsets[i]), formatTime(cue.End+offsets[i]))
			for _, line := range cue.Text {
				sb.WriteString(line + "\n")
			}
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
