package references

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Report section headers and messages.
const (
	reportHeaderInspection = "=== Reference Store Inspection ==="
	reportHeaderSummary    = "=== Summary ==="
	reportComplete         = "Complete voices (audio + transcript):"
	reportMissingAudio     = "Voices missing their audio sample:"
	reportMissingText      = "Voices missing their transcript:"
	reportStrayEntries     = "Stray entries (not voice directories):"
)

// Summary format strings.
const (
	summaryComplete     = "Complete: %d\n"
	summaryMissingAudio = "Missing audio: %d\n"
	summaryMissingText  = "Missing transcript: %d\n"
	summaryStray        = "Stray entries: %d\n"
)

// List item format.
const (
	listItemFormat = "  - %s\n"
)

// StoreReport describes the integrity of the reference store: which voices
// are usable for synthesis and which are missing parts of the contract.
// The classes do not overlap; every voice directory lands in exactly one.
type StoreReport struct {
	// Complete voices have both the audio sample and the transcript.
	Complete []string
	// MissingAudio voices are unusable for cloning; the sample is gone.
	MissingAudio []string
	// MissingTranscript voices still have their audio sample.
	MissingTranscript []string
	// StrayEntries are files in the store root that are not voice
	// directories.
	StrayEntries []string
}

// Voices returns the total number of voice directories in the report.
func (r *StoreReport) Voices() int {
	return len(r.Complete) + len(r.MissingAudio) + len(r.MissingTranscript)
}

// WithAudio returns the voices whose audio sample exists, sorted by
// identifier.
func (r *StoreReport) WithAudio() []string {
	voices := make([]string, 0, len(r.Complete)+len(r.MissingTranscript))
	voices = append(voices, r.Complete...)
	voices = append(voices, r.MissingTranscript...)
	sort.Strings(voices)

	return voices
}

// Inspect walks the store root and classifies every entry. A voice is
// complete when both the audio sample and the transcript exist.
func (s *Store) Inspect() (*StoreReport, error) {
	report := &StoreReport{
		Complete:          nil,
		MissingAudio:      nil,
		MissingTranscript: nil,
		StrayEntries:      nil,
	}

	entries, readErr := os.ReadDir(s.root)
	if readErr != nil {
		return nil, fmt.Errorf("failed to read references directory: %w", readErr)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			report.StrayEntries = append(report.StrayEntries, entry.Name())

			continue
		}

		name := entry.Name()
		voiceDir := filepath.Join(s.root, name)

		_, audioErr := os.Stat(filepath.Join(voiceDir, audioFileName))
		_, textErr := os.Stat(filepath.Join(voiceDir, textFileName))

		switch {
		case audioErr == nil && textErr == nil:
			report.Complete = append(report.Complete, name)
		case audioErr == nil:
			report.MissingTranscript = append(report.MissingTranscript, name)
		default:
			report.MissingAudio = append(report.MissingAudio, name)
		}
	}

	return report, nil
}

// PrintStoreReport prints a formatted inspection report.
func PrintStoreReport(report *StoreReport) {
	fmt.Println(reportHeaderInspection)
	fmt.Println()

	printSection(reportComplete, report.Complete)
	printSection(reportMissingAudio, report.MissingAudio)
	printSection(reportMissingText, report.MissingTranscript)
	printSection(reportStrayEntries, report.StrayEntries)

	fmt.Println(reportHeaderSummary)
	fmt.Printf(summaryComplete, len(report.Complete))
	fmt.Printf(summaryMissingAudio, len(report.MissingAudio))
	fmt.Printf(summaryMissingText, len(report.MissingTranscript))
	fmt.Printf(summaryStray, len(report.StrayEntries))
}

func printSection(header string, items []string) {
	if len(items) == 0 {
		return
	}

	fmt.Println(header)

	for _, item := range items {
		fmt.Printf(listItemFormat, item)
	}

	fmt.Println()
}
