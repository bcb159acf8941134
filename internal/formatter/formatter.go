// package formatter provides functions to export discovery runs to various formats (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/earshot/internal/models"
	"github.com/desertthunder/earshot/internal/shared"
)

// ExportToCSV converts a DiscoveryRun to CSV format with columns: Rank, ID, Title, Artists, Popularity, Score, Reasons
func ExportToCSV(run *models.DiscoveryRun) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Rank", "ID", "Title", "Artists", "Popularity", "Score", "Reasons"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, result := range run.Results {
		record := []string{
			strconv.Itoa(i + 1),
			result.Track.ID,
			result.Track.Name,
			result.Track.ArtistLine(),
			strconv.Itoa(result.Track.Popularity),
			strconv.FormatFloat(result.Score, 'f', 4, 64),
			strings.Join(result.Reasons, ";"),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a DiscoveryRun to Markdown format with optional cover image
func ExportToMarkdown(run *models.DiscoveryRun, imageFilename string) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# Discovery Run %s\n\n", run.RunID))

	if imageFilename != "" {
		buf.WriteString(fmt.Sprintf("![Cover](%s)\n\n", imageFilename))
	}

	buf.WriteString(fmt.Sprintf("**Date**: %s\n", run.Created.Format(time.RFC3339)))
	buf.WriteString(fmt.Sprintf("**Tracks**: %d of %d requested\n", len(run.Results), run.Desired))
	buf.WriteString(fmt.Sprintf("**Pool**: %d candidates, %d after diversification, %d known skipped\n\n",
		run.PoolSize, run.DiversifiedSize, run.SkippedKnown))

	buf.WriteString("## Tracks\n\n")
	for i, result := range run.Results {
		reasonPart := ""
		if len(result.Reasons) > 0 {
			reasonPart = fmt.Sprintf(" (%s)", strings.Join(result.Reasons, ", "))
		}
		buf.WriteString(fmt.Sprintf("%d. %s - %s [%.3f]%s\n",
			i+1, result.Track.ArtistLine(), result.Track.Name, result.Score, reasonPart))
	}

	if run.Trace != "" {
		buf.WriteString("\n## Trace\n\n```\n")
		buf.WriteString(run.Trace)
		buf.WriteString("\n```\n")
	}

	return buf.Bytes(), nil
}

// ExportToText converts a DiscoveryRun to plain text format
func ExportToText(run *models.DiscoveryRun) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Discovery run: %s\n", run.RunID))
	buf.WriteString(fmt.Sprintf("Date: %s\n", run.Created.Format(time.RFC3339)))
	buf.WriteString(fmt.Sprintf("Tracks: %d\n\n", len(run.Results)))

	for i, result := range run.Results {
		buf.WriteString(fmt.Sprintf("%d. %s - %s\n", i+1, result.Track.ArtistLine(), result.Track.Name))
	}

	return buf.Bytes(), nil
}

// ExportToJSON converts a DiscoveryRun to indented JSON, tracks included
func ExportToJSON(run *models.DiscoveryRun) ([]byte, error) {
	return shared.MarshalJSON(run, true)
}

// DownloadImage downloads an image from the given URL and returns the raw bytes
func DownloadImage(url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("empty URL provided")
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
	}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return imageData, nil
}

// runMetadata is the run header without its track rows.
type runMetadata struct {
	RunID           string    `json:"run_id"`
	Created         time.Time `json:"created_at"`
	Desired         int       `json:"desired"`
	PoolSize        int       `json:"pool_size"`
	DiversifiedSize int       `json:"diversified_size"`
	SkippedKnown    int       `json:"skipped_known"`
	TrackCount      int       `json:"track_count"`
}

// ToMetadataJSON generates a JSON representation of run statistics (without tracks)
func ToMetadataJSON(run *models.DiscoveryRun) ([]byte, error) {
	return shared.MarshalJSON(runMetadata{
		RunID:           run.RunID,
		Created:         run.Created,
		Desired:         run.Desired,
		PoolSize:        run.PoolSize,
		DiversifiedSize: run.DiversifiedSize,
		SkippedKnown:    run.SkippedKnown,
		TrackCount:      len(run.Results),
	}, true)
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	TracksFile   string
	MetadataFile string
}

// WriteCSVExport exports a discovery run to CSV format with accompanying metadata JSON file.
//
// Defaults to the run ID as the base filename & creates {base}_tracks.csv and {base}_metadata.json
func WriteCSVExport(run *models.DiscoveryRun, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = run.RunID
	}

	csvData, err := ExportToCSV(run)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	tracksFile := baseFilepath + "_tracks.csv"
	if err := os.WriteFile(tracksFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	metadataJSON, err := ToMetadataJSON(run)
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
	}

	metadataFile := baseFilepath + "_metadata.json"
	if err := os.WriteFile(metadataFile, metadataJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}

	return &CSVExportResult{
		TracksFile:   tracksFile,
		MetadataFile: metadataFile,
	}, nil
}

// MarkdownExportResult contains information about files created by WriteMarkdownExport
type MarkdownExportResult struct {
	Directory  string
	Files      []string
	CoverImage string
}

// WriteMarkdownExport exports a discovery run to Markdown format in a dedicated directory.
//
// Directory name defaults to the run ID.
// The imageURL parameter is optional - if provided, attempts to download the cover image
// (the CLI passes the artwork of the top-ranked track).
// Creates a directory structure: {dir}/README.md and optionally {dir}/cover.jpg
func WriteMarkdownExport(run *models.DiscoveryRun, outputDir string, imageURL string) (*MarkdownExportResult, error) {
	if outputDir == "" {
		outputDir = run.RunID
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &MarkdownExportResult{
		Directory: outputDir,
		Files:     []string{},
	}

	var coverImageFilename string
	if imageURL != "" {
		imageData, err := DownloadImage(imageURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to download cover image: %v\n", err)
		} else {
			coverImageFilename = "cover.jpg"
			coverImagePath := fmt.Sprintf("%s/%s", outputDir, coverImageFilename)
			if err := os.WriteFile(coverImagePath, imageData, 0644); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to save cover image: %v\n", err)
				coverImageFilename = ""
			} else {
				result.CoverImage = coverImagePath
				result.Files = append(result.Files, coverImagePath)
			}
		}
	}

	mdData, err := ExportToMarkdown(run, coverImageFilename)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := fmt.Sprintf("%s/README.md", outputDir)
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}

	result.Files = append(result.Files, mdFile)

	return result, nil
}

// WriteJSONExport exports a discovery run to a JSON file.
//
// Defaults to {run.RunID}.json as the filename.
func WriteJSONExport(run *models.DiscoveryRun, filepath string) (string, error) {
	if filepath == "" {
		filepath = run.RunID + ".json"
	}

	jsonData, err := ExportToJSON(run)
	if err != nil {
		return "", fmt.Errorf("failed to generate JSON: %w", err)
	}

	if err := os.WriteFile(filepath, jsonData, 0644); err != nil {
		return "", fmt.Errorf("failed to write JSON file: %w", err)
	}

	return filepath, nil
}

// WriteTextExport exports a discovery run to plain text format.
//
// Defaults to {run.RunID}_tracks.txt as the filename.
func WriteTextExport(run *models.DiscoveryRun, filepath string) (string, error) {
	if filepath == "" {
		filepath = fmt.Sprintf("%s_tracks.txt", run.RunID)
	}

	textData, err := ExportToText(run)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if err := os.WriteFile(filepath, textData, 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}

	return filepath, nil
}
