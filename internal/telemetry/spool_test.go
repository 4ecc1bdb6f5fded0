package telemetry

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/Scripted-Ventures-NZ/uptimesquirrel-agent/internal/agent"
)

func TestSpoolWritesJSONLines(t *testing.T) {
	var buf bytes.Buffer
	spool := NewSpoolWithWriter(&buf, nil)

	if err := spool.Write(NewSampleRecord(sampleAt(100))); err != nil {
		t.Fatal(err)
	}
	if err := spool.Write(NewAlertRecord(&agent.Alert{ID: "a1", Type: "cpu_high"})); err != nil {
		t.Fatal(err)
	}
	if err := spool.Flush(); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}

	var first Record
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("line 1 is not valid JSON: %v", err)
	}
	if first.Kind != KindSample || first.Sample.Timestamp != 100 {
		t.Errorf("first record = %+v", first)
	}

	var second Record
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatalf("line 2 is not valid JSON: %v", err)
	}
	if second.Kind != KindAlert || second.Alert.Type != "cpu_high" {
		t.Errorf("second record = %+v", second)
	}

	if spool.Stats().TotalWritten != 2 {
		t.Errorf("TotalWritten = %d, want 2", spool.Stats().TotalWritten)
	}
}

func TestSpoolDisabledWithoutPath(t *testing.T) {
	spool, err := NewSpool(nil)
	if err != nil {
		t.Fatal(err)
	}

	if err := spool.Write(NewSampleRecord(sampleAt(1))); err != nil {
		t.Errorf("disabled spool should accept writes: %v", err)
	}
	if spool.Stats().TotalWritten != 0 {
		t.Error("disabled spool should not count writes")
	}
	if err := spool.Close(); err != nil {
		t.Errorf("Close on disabled spool: %v", err)
	}
}

func TestSpoolAppendsToFile(t *testing.T) {
	path := t.TempDir() + "/spool.jsonl"

	for i := int64(1); i <= 2; i++ {
		spool, err := NewSpool(&SpoolConfig{OutputPath: path, BufferSize: 1024})
		if err != nil {
			t.Fatal(err)
		}
		if err := spool.Write(NewSampleRecord(sampleAt(i))); err != nil {
			t.Fatal(err)
		}
		if err := spool.Close(); err != nil {
			t.Fatal(err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Errorf("reopening the spool should append, got %d lines", len(lines))
	}
}
