package cliutil_test

import (
	"testing"
	"time"

	"github.com/book-expert/voice-mcp-service/internal/cliutil"
)

// TestFormatDuration verifies duration formatting logic.
func TestFormatDuration(t *testing.T) {
	t.Parallel()

	const (
		halfMinute    = 30*time.Second + 500*time.Millisecond
		exactMinute   = time.Minute
		minuteAndHalf = 90*time.Second + 500*time.Millisecond
		exactHour     = time.Hour
		hourAndMinute = time.Hour + 70*time.Second
	)

	testCases := []struct {
		name     string
		expected string
		duration time.Duration
	}{
		{
			name:     "less than a minute",
			duration: halfMinute,
			expected: "30.5s",
		},
		{
			name:     "exactly a minute",
			duration: exactMinute,
			expected: "1m 0.0s",
		},
		{
			name:     "less than an hour",
			duration: minuteAndHalf,
			expected: "1m 30.5s",
		},
		{name: "exactly an hour", duration: exactHour, expected: "1h 0m"},
		{
			name:     "more than an hour",
			duration: hourAndMinute,
			expected: "1h 1m",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			result := cliutil.FormatDuration(testCase.duration)
			if result != testCase.expected {
				t.Errorf("Expected %q, got %q", testCase.expected, result)
			}
		})
	}
}

// TestFormatFileSize verifies file size formatting logic.
func TestFormatFileSize(t *testing.T) {
	t.Parallel()

	const (
		bytesTestValue               int64 = 500
		kibibytesTestValue           int64 = 2048
		oneAndHalfMebibytesTestValue int64 = 1572864
		twoGibibytesTestValue        int64 = 2147483648
	)

	testCases := []struct {
		name     string
		expected string
		bytes    int64
	}{
		{name: "bytes", bytes: bytesTestValue, expected: "500 B"},
		{name: "kilobytes", bytes: kibibytesTestValue, expected: "2.0 KB"},
		{
			name:     "megabytes",
			bytes:    oneAndHalfMebibytesTestValue,
			expected: "1.5 MB",
		},
		{name: "gigabytes", bytes: twoGibibytesTestValue, expected: "2.0 GB"},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			result := cliutil.FormatFileSize(testCase.bytes)
			if result != testCase.expected {
				t.Errorf("Expected %q, got %q", testCase.expected, result)
			}
		})
	}
}

// TestIsValidAudioFile verifies audio file extension checks.
func TestIsValidAudioFile(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		filename string
		isValid  bool
	}{
		{"sample.wav", true},
		{"sample.mp3", true},
		{"sample.flac", true},
		{"sample.ogg", true},
		{"sample.m4a", true},
		{"sample.aac", true},
		{"SAMPLE.WAV", true},
		{"sample.txt", false},
		{"image.jpg", false},
		{"noextension", false},
	}

	for _, testCase := range testCases {
		t.Run(testCase.filename, func(t *testing.T) {
			t.Parallel()

			if result := cliutil.IsValidAudioFile(testCase.filename); result != testCase.isValid {
				t.Errorf(
					"IsValidAudioFile(%q) = %v; want %v",
					testCase.filename,
					result,
					testCase.isValid,
				)
			}
		})
	}
}
