package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultLogConfig(t *testing.T) {
	config := DefaultLogConfig()
	if config.Level != LogLevelWarn {
		t.Errorf("Expected default level Warn, got %d", config.Level)
	}
	if !config.Console {
		t.Error("Expected console output to be enabled by default")
	}
	if config.File {
		t.Error("Expected file output to be disabled by default")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    LogLevel
		wantErr bool
	}{
		{"debug", LogLevelDebug, false},
		{"INFO", LogLevelInfo, false},
		{"", LogLevelWarn, false},
		{"warning", LogLevelWarn, false},
		{" error ", LogLevelError, false},
		{"loud", LogLevelWarn, true},
	}

	for _, tt := range tests {
		got, err := ParseLogLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLogLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestInitLoggerLevelAndModule(t *testing.T) {
	var buf bytes.Buffer
	config := DefaultLogConfig()
	config.Out = &buf
	config.NoColor = true
	config.Level = LogLevelInfo

	if err := InitLogger(config); err != nil {
		t.Fatalf("Failed to init logger: %v", err)
	}
	defer InitLogger(LogConfig{})

	LogDebug("test").Msg("debug message")
	LogInfo("test").Str("key", "value").Msg("info message")
	LogError("test").Msg("error message")

	output := buf.String()
	if strings.Contains(output, "debug message") {
		t.Error("Debug message should be filtered at info level")
	}
	if !strings.Contains(output, "info message") {
		t.Error("Expected info message in output")
	}
	if !strings.Contains(output, "error message") {
		t.Error("Expected error message in output")
	}
	if !strings.Contains(output, "module=test") {
		t.Errorf("Expected module field in output, got %q", output)
	}
	if !strings.Contains(output, "key=value") {
		t.Errorf("Expected structured field in output, got %q", output)
	}
}

func TestInitLoggerNoWriters(t *testing.T) {
	if err := InitLogger(LogConfig{}); err != nil {
		t.Fatalf("Failed to init logger: %v", err)
	}
	// Must not panic.
	LogWarn("test").Msg("discarded")
}

func TestLogFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "logs", "sift.log")

	config := LogConfig{
		Level:      LogLevelDebug,
		File:       true,
		FilePath:   logPath,
		MaxSizeMB:  10,
		MaxBackups: 3,
	}
	if err := InitLogger(config); err != nil {
		t.Fatalf("Failed to init logger: %v", err)
	}

	LogDebug("test").Msg("written to file")
	CloseLogger()
	defer InitLogger(LogConfig{})

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("Log file was not created: %v", err)
	}
	if !strings.Contains(string(data), "written to file") {
		t.Errorf("Log file should contain the message, got %q", data)
	}
}

func TestRotatingFileRotates(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "rotate.log")

	rf, err := NewRotatingFile(LogConfig{FilePath: logPath, MaxSizeMB: 1, MaxBackups: 1})
	if err != nil {
		t.Fatalf("Failed to create rotating file: %v", err)
	}
	defer rf.Close()

	chunk := bytes.Repeat([]byte("x"), 600*1024)
	for i := 0; i < 2; i++ {
		if _, err := rf.Write(chunk); err != nil {
			t.Fatalf("Write %d failed: %v", i, err)
		}
	}

	rotated, _ := filepath.Glob(logPath + ".*")
	if len(rotated) != 1 || rotated[0] != logPath+".1" {
		t.Errorf("Expected only %s.1, got %v", logPath, rotated)
	}

	info, err := os.Stat(logPath)
	if err != nil {
		t.Fatalf("Current log file missing: %v", err)
	}
	if info.Size() != int64(len(chunk)) {
		t.Errorf("Current log size = %d, want %d", info.Size(), len(chunk))
	}
}

func TestRotatingFileKeepsBackupLimit(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "sift.log")
	chunk := bytes.Repeat([]byte("y"), 700*1024)

	// One chunk per run: every run after the first rotates on its first write.
	for run := 0; run < 4; run++ {
		rf, err := NewRotatingFile(LogConfig{FilePath: logPath, MaxSizeMB: 1, MaxBackups: 2})
		if err != nil {
			t.Fatalf("run %d: %v", run, err)
		}
		chunk[0] = byte('0' + run)
		if _, err := rf.Write(chunk); err != nil {
			t.Fatalf("run %d write: %v", run, err)
		}
		rf.Close()
	}

	want := map[string]byte{logPath: '3', logPath + ".1": '2', logPath + ".2": '1'}
	for path, first := range want {
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("Expected %s: %v", path, err)
		}
		if data[0] != first {
			t.Errorf("%s starts with %q, want %q", path, data[0], first)
		}
	}
	if _, err := os.Stat(logPath + ".3"); !os.IsNotExist(err) {
		t.Errorf("%s.3 should have been dropped", logPath)
	}
}

func TestRotatingFileClosed(t *testing.T) {
	rf, err := NewRotatingFile(LogConfig{FilePath: filepath.Join(t.TempDir(), "closed.log")})
	if err != nil {
		t.Fatal(err)
	}
	if err := rf.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := rf.Write([]byte("late")); err == nil {
		t.Error("Write after Close should fail")
	}
}
