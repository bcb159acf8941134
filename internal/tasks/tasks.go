package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/earshot/internal/formatter"
	"github.com/desertthunder/earshot/internal/models"
	"github.com/desertthunder/earshot/internal/shared"
)

// RunSource is the repository surface the export engine reads from.
type RunSource interface {
	Get(id string) (*models.DiscoveryRun, error)
	List(limit int) ([]*models.DiscoveryRun, error)
}

// ExportEngine exports saved discovery runs to disk.
type ExportEngine struct {
	source RunSource
	logger *log.Logger
}

// NewExportEngine creates an ExportEngine over the given run source.
func NewExportEngine(source RunSource, logger *log.Logger) *ExportEngine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &ExportEngine{source: source, logger: logger}
}

// BulkExportOpts contains configuration for bulk run exports.
type BulkExportOpts struct {
	Format     string // Export format: json, csv, markdown, txt
	OutputDir  string // Base output directory (default: earshot_export_{epoch})
	NumWorkers int    // Concurrent workers (default: 4)
}

// RunExportJob pairs a run ID with its loaded record for a worker.
type RunExportJob struct {
	RunID string
	Run   *models.DiscoveryRun
}

// RunExportResult records the outcome of exporting one run.
type RunExportResult struct {
	RunID   string   `json:"run_id"`
	Success bool     `json:"success"`
	Files   []string `json:"files,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// BulkExportResult summarizes a bulk export batch.
type BulkExportResult struct {
	TotalRuns         int               `json:"total_runs"`
	SuccessfulExports int               `json:"successful_exports"`
	FailedExports     int               `json:"failed_exports"`
	Results           []RunExportResult `json:"results"`
	OutputDirectory   string            `json:"output_directory"`
	ManifestPath      string            `json:"manifest_path"`
	Format            string            `json:"format"`
}

// BulkExport exports the given runs concurrently and writes a manifest
// summarizing the batch. An empty ids slice exports every saved run.
//
// Individual run failures are recorded in the result rather than
// aborting the batch.
func (e *ExportEngine) BulkExport(ctx context.Context, prog chan<- ProgressUpdate, ids []string, opts BulkExportOpts) (*BulkExportResult, error) {
	if e.source == nil {
		return nil, fmt.Errorf("%w: run store not initialized", shared.ErrServiceUnavailable)
	}

	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("earshot_export_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 4
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.Format == "" {
		opts.Format = "json"
	}

	if len(ids) == 0 {
		runs, err := e.source.List(0)
		if err != nil {
			return nil, fmt.Errorf("failed to list runs: %w", err)
		}
		for _, run := range runs {
			ids = append(ids, run.RunID)
		}
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &BulkExportResult{
		TotalRuns:       len(ids),
		OutputDirectory: opts.OutputDir,
		Format:          opts.Format,
		Results:         make([]RunExportResult, 0, len(ids)),
	}

	e.sendProgress(prog, loadingRunsUpdate(len(ids)))

	jobs := make(chan RunExportJob, len(ids))
	results := make(chan RunExportResult, len(ids))

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go e.exportWorker(ctx, &wg, jobs, results, opts)
	}

	go func() {
		for i, runID := range ids {
			select {
			case <-ctx.Done():
				close(jobs)
				return
			default:
			}

			run, err := e.source.Get(runID)
			if err != nil {
				results <- RunExportResult{
					RunID:   runID,
					Success: false,
					Error:   fmt.Sprintf("failed to load run: %v", err),
				}
				continue
			}

			jobs <- RunExportJob{RunID: runID, Run: run}
			e.sendProgress(prog, exportingRunUpdate(i+1, len(ids), runID))
		}
		close(jobs)
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		result.Results = append(result.Results, res)

		if res.Success {
			result.SuccessfulExports++
			e.sendProgress(prog, exportCompletedUpdate(completed, len(ids), res.RunID, len(res.Files)))
		} else {
			result.FailedExports++
			e.sendProgress(prog, exportFailedUpdate(completed, len(ids), res.RunID, fmt.Errorf("%s", res.Error)))
		}
	}

	manifestPath := filepath.Join(opts.OutputDir, "export_manifest.json")
	result.ManifestPath = manifestPath
	data, err := shared.MarshalJSON(result, true)
	if err != nil {
		return result, fmt.Errorf("export completed but failed to build manifest: %w", err)
	}
	if err := os.WriteFile(manifestPath, data, 0644); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	return result, nil
}

// exportWorker is a worker goroutine that exports runs from the jobs channel.
func (e *ExportEngine) exportWorker(ctx context.Context, wg *sync.WaitGroup, jobs <-chan RunExportJob, results chan<- RunExportResult, opts BulkExportOpts) {
	defer wg.Done()

	for job := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		results <- e.exportSingleRun(job, opts)
	}
}

// exportSingleRun exports a single run to the appropriate format.
func (e *ExportEngine) exportSingleRun(j RunExportJob, opts BulkExportOpts) RunExportResult {
	result := RunExportResult{
		RunID:   j.RunID,
		Success: false,
		Files:   []string{},
	}

	switch opts.Format {
	case "csv":
		baseFilepath := filepath.Join(opts.OutputDir, j.Run.RunID)
		csvRes, err := formatter.WriteCSVExport(j.Run, baseFilepath)
		if err != nil {
			result.Error = fmt.Sprintf("CSV export failed: %v", err)
			return result
		}
		result.Files = []string{csvRes.TracksFile, csvRes.MetadataFile}
		result.Success = true

	case "markdown":
		outputDir := filepath.Join(opts.OutputDir, j.Run.RunID)

		var imageURL string
		if len(j.Run.Results) > 0 {
			imageURL = j.Run.Results[0].Track.ArtworkURL
		}

		mdRes, err := formatter.WriteMarkdownExport(j.Run, outputDir, imageURL)
		if err != nil {
			result.Error = fmt.Sprintf("markdown export failed: %v", err)
			return result
		}
		result.Files = mdRes.Files
		result.Success = true

	case "txt":
		txtPath := filepath.Join(opts.OutputDir, fmt.Sprintf("%s_tracks.txt", j.Run.RunID))
		path, err := formatter.WriteTextExport(j.Run, txtPath)
		if err != nil {
			result.Error = fmt.Sprintf("text export failed: %v", err)
			return result
		}
		result.Files = []string{path}
		result.Success = true

	case "json":
		fallthrough
	default:
		jsonPath := filepath.Join(opts.OutputDir, fmt.Sprintf("%s.json", j.Run.RunID))
		path, err := formatter.WriteJSONExport(j.Run, jsonPath)
		if err != nil {
			result.Error = fmt.Sprintf("JSON export failed: %v", err)
			return result
		}
		result.Files = []string{path}
		result.Success = true
	}
	return result
}

// sendProgress sends an update without blocking. A nil channel or a
// full buffer drops the update.
func (e *ExportEngine) sendProgress(prog chan<- ProgressUpdate, update ProgressUpdate) {
	if prog == nil {
		return
	}
	select {
	case prog <- update:
	default:
	}
}
