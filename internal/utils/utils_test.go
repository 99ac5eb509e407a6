package utils

import (
	"bufio"
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestSplitJpeg(t *testing.T) {
	// Construct a stream containing: [Garbage] [JPEG] [Garbage] [JPEG]
	// SOI (Start of Image): FF D8
	// EOI (End of Image):   FF D9

	jpegA := []byte{0xFF, 0xD8, 0x01, 0x02, 0x03, 0xFF, 0xD9}
	jpegB := []byte{0xFF, 0xD8, 0x04, 0xFF, 0xD9}

	streamData := []byte{0x00, 0x00} // Garbage at start
	streamData = append(streamData, jpegA...)
	streamData = append(streamData, 0x00)
	streamData = append(streamData, jpegB...)
	streamData = append(streamData, []byte{0x00, 0x00}...) // Garbage at end

	scanner := bufio.NewScanner(bytes.NewReader(streamData))
	scanner.Split(SplitJpeg)

	for i, want := range [][]byte{jpegA, jpegB} {
		if !scanner.Scan() {
			t.Fatalf("Expected token %d, got EOF", i)
		}
		if !bytes.Equal(scanner.Bytes(), want) {
			t.Errorf("token %d: expected %X, got %X", i, want, scanner.Bytes())
		}
	}

	// The trailing garbage is not a JPEG
	if scanner.Scan() {
		t.Error("Expected only two tokens, found more")
	}
}

func TestSplitJpegTruncated(t *testing.T) {
	scanner := bufio.NewScanner(bytes.NewReader([]byte{0xFF, 0xD8, 0x01, 0x02}))
	scanner.Split(SplitJpeg)
	if scanner.Scan() {
		t.Errorf("Expected no token for a frame without EOI, got %X", scanner.Bytes())
	}
}

func TestParseFrameRate(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"25", 25},
		{"30000/1001", 30000.0 / 1001.0},
		{"0/0", 0},
		{"30/0", 0},
		{"N/A", 0},
		{"", 0},
	}
	for _, tt := range tests {
		if got := ParseFrameRate(tt.in); got != tt.want {
			t.Errorf("ParseFrameRate(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewFFmpegCmd(t *testing.T) {
	all := strings.Join(NewFFmpegCmd("in.mp4", 1).Args, " ")
	if strings.Contains(all, "select=") {
		t.Errorf("unexpected frame filter: %s", all)
	}
	if !strings.HasSuffix(all, "-f image2pipe -vcodec mjpeg -") {
		t.Errorf("unexpected args: %s", all)
	}

	sampled := strings.Join(NewFFmpegCmd("in.mp4", 5).Args, " ")
	if !strings.Contains(sampled, `select=not(mod(n\,5))`) {
		t.Errorf("missing frame filter: %s", sampled)
	}
}

func TestShowError(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	ShowError(&buf, "Landmark worker crashed", errors.New("broken pipe"), "Traceback: boom\n")

	out := buf.String()
	for _, want := range []string{"WILLIS ERROR: Landmark worker crashed", "DETAILS: broken pipe", "PYTHON CRASH LOGS:\nTraceback: boom"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	ShowError(&buf, "no logs", nil, "  ")
	if strings.Contains(buf.String(), "CRASH LOGS") || strings.Contains(buf.String(), "DETAILS") {
		t.Errorf("unexpected sections:\n%s", buf.String())
	}
}

func TestContentID(t *testing.T) {
	a := ContentID([]byte("frame-a"))
	if len(a) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(a))
	}
	if a != ContentID([]byte("frame-a")) {
		t.Error("ContentID is not deterministic")
	}
	if a == ContentID([]byte("frame-b")) {
		t.Error("ContentID ignores content")
	}
}

func TestGenerateFileID(t *testing.T) {
	// Integration test using the OS filesystem
	tmp, err := os.CreateTemp(t.TempDir(), "video_test")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := tmp.Write([]byte("fake video content")); err != nil {
		t.Fatal(err)
	}
	tmp.Close()

	id, err := GenerateFileID(tmp.Name())
	if err != nil || id == "" {
		t.Errorf("Failed to generate ID: %v", err)
	}

	// Verify Determinism
	id2, _ := GenerateFileID(tmp.Name())
	if id != id2 {
		t.Errorf("Hash is not deterministic. Got %s, then %s", id, id2)
	}

	// Verify Sensitivity (Change content -> Change ID)
	f, _ := os.OpenFile(tmp.Name(), os.O_APPEND|os.O_WRONLY, 0644)
	f.Write([]byte(" modification"))
	f.Close()

	id3, _ := GenerateFileID(tmp.Name())
	if id == id3 {
		t.Error("Hash did not change after file modification")
	}

	if _, err := GenerateFileID(tmp.Name() + ".missing"); err == nil {
		t.Error("expected error for missing file")
	}
}
