package subtitles

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// FormatTimestamp renders d as HH:MM:SS,mmm.
func FormatTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	ms := d.Milliseconds()
	hours := ms / 3_600_000
	minutes := (ms / 60_000) % 60
	seconds := (ms / 1000) % 60
	millis := ms % 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, seconds, millis)
}

// ParseTimestamp reads an HH:MM:SS,mmm timestamp. A period is accepted in
// place of the comma.
func ParseTimestamp(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	value = strings.ReplaceAll(value, ".", ",")
	timeParts := strings.Split(value, ",")
	if len(timeParts) != 2 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hms := strings.Split(timeParts[0], ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, errH := strconv.Atoi(hms[0])
	minutes, errM := strconv.Atoi(hms[1])
	seconds, errS := strconv.Atoi(hms[2])
	millis, errMS := strconv.Atoi(timeParts[1])
	if errH != nil || errM != nil || errS != nil || errMS != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	if minutes > 59 || seconds > 59 || millis > 999 || hours < 0 || minutes < 0 || seconds < 0 || millis < 0 {
		return 0, fmt.Errorf("timestamp %q out of range", value)
	}
	total := time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second +
		time.Duration(millis)*time.Millisecond
	return total, nil
}

// WriteSRT serializes the timeline as SRT blocks.
func (t Timeline) WriteSRT(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, entry := range t.Entries {
		if _, err := fmt.Fprintf(bw, "%d\n%s --> %s\n%s\n\n", entry.Index, FormatTimestamp(entry.Start), FormatTimestamp(entry.End), entry.Text); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// SRT returns the timeline serialized as SRT.
func (t Timeline) SRT() string {
	var b strings.Builder
	_ = t.WriteSRT(&b)
	return b.String()
}

// WriteFile writes the timeline as an SRT file at path, replacing it atomically.
func (t Timeline) WriteFile(path string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".subtitles-*.srt")
	if err != nil {
		return fmt.Errorf("create temp srt: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)
	if err := t.WriteSRT(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("write srt: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close srt: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename srt: %w", err)
	}
	return nil
}

// ParseSRT reads SRT blocks. Scene numbers are not part of the format, so
// parsed entries carry Scene == 0. Multi-line cue text is joined with spaces.
func ParseSRT(r io.Reader) ([]Entry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read srt: %w", err)
	}
	content := strings.ReplaceAll(string(data), "\r\n", "\n")
	content = strings.TrimPrefix(content, "\ufeff")

	var entries []Entry
	for _, block := range strings.Split(content, "\n\n") {
		block = strings.Trim(block, "\n")
		if strings.TrimSpace(block) == "" {
			continue
		}
		lines := strings.Split(block, "\n")
		if len(lines) < 2 {
			return nil, fmt.Errorf("srt block %q: missing timing line", lines[0])
		}
		index, err := strconv.Atoi(strings.TrimSpace(lines[0]))
		if err != nil {
			return nil, fmt.Errorf("srt block %q: invalid index", lines[0])
		}
		bounds := strings.Split(lines[1], "-->")
		if len(bounds) != 2 {
			return nil, fmt.Errorf("srt block %d: invalid timing line %q", index, lines[1])
		}
		start, err := ParseTimestamp(bounds[0])
		if err != nil {
			return nil, fmt.Errorf("srt block %d: %w", index, err)
		}
		end, err := ParseTimestamp(bounds[1])
		if err != nil {
			return nil, fmt.Errorf("srt block %d: %w", index, err)
		}
		if end < start {
			return nil, fmt.Errorf("srt block %d: end before start", index)
		}
		text := make([]string, 0, len(lines)-2)
		for _, line := range lines[2:] {
			if line = strings.TrimSpace(line); line != "" {
				text = append(text, line)
			}
		}
		entries = append(entries, Entry{Index: index, Start: start, End: end, Text: strings.Join(text, " ")})
	}
	return entries, nil
}
