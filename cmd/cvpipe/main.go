// Package main is the cvpipe CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	iofs "io/fs"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/draftwerk/cvpipe/internal/config"
	"github.com/draftwerk/cvpipe/internal/fileid"
	"github.com/draftwerk/cvpipe/internal/mapper"
	"github.com/draftwerk/cvpipe/internal/models"
	"github.com/draftwerk/cvpipe/internal/orchestrator"
	"github.com/draftwerk/cvpipe/internal/pipeline"
	"github.com/draftwerk/cvpipe/internal/render"
	"github.com/draftwerk/cvpipe/internal/segment"
	"github.com/draftwerk/cvpipe/internal/server"
	"github.com/draftwerk/cvpipe/internal/storage"
	"github.com/draftwerk/cvpipe/internal/validate"
	"github.com/draftwerk/cvpipe/internal/watcher"
	"github.com/draftwerk/cvpipe/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/cvpipe/config.yaml"

// defaultExtensions are the source formats picked up when the config does not
// name any.
var defaultExtensions = []string{".pdf", ".docx", ".odt", ".rtf", ".xlsx", ".txt", ".md", ".rst"}

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used. Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "process":
		runProcess()
	case "status":
		runStatus()
	case "intake":
		runIntake()
	case "version", "--version", "-v":
		fmt.Printf("cvpipe version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// buildStages assembles the stateless pipeline stages from config.
func buildStages(cfg *config.Config, logger *zap.Logger, debug bool) (*segment.Segmenter, *mapper.Mapper, *validate.Validator) {
	var segOpts []segment.Option
	var mapOpts []mapper.Option
	var valOpts []validate.Option
	if debug && logger != nil {
		segOpts = append(segOpts, segment.WithLogger(logger))
		mapOpts = append(mapOpts, mapper.WithLogger(logger))
		valOpts = append(valOpts, validate.WithLogger(logger))
	}
	seg := segment.NewSegmenter(segment.DefaultDictionary(), cfg.Pipeline.MinDocumentChars, segOpts...)
	m := mapper.NewMapper(nil, mapOpts...)
	v := validate.NewValidator(cfg.Pipeline.ValidationThreshold, cfg.Pipeline.MinTotalTextChars, valOpts...)
	return seg, m, v
}

func intakeExtensions(cfg *config.Config) []string {
	if len(cfg.Intake.Extensions) > 0 {
		return cfg.Intake.Extensions
	}
	return defaultExtensions
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (intake events, stage output, etc.)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		logger.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer store.Close()

	seg, m, v := buildStages(cfg, logger, debugMode)
	sink := server.NewDeadLetterSink(store, logger)

	// The pipeline guards its stages through the orchestrator's breakers, and
	// the orchestrator runs the pipeline; bind through a closure.
	var pipe *pipeline.Pipeline
	orch := orchestrator.New(cfg.Orchestrator,
		func(ctx context.Context, doc models.SourceDocument) (orchestrator.ProcessResult, error) {
			return pipe.Process(ctx, doc)
		},
		orchestrator.WithLogger(logger),
		orchestrator.WithSink(sink),
	)
	pipe = pipeline.New(seg, m, v,
		pipeline.WithLogger(logger),
		pipeline.WithGuard(orch),
		pipeline.WithStore(store),
		pipeline.WithRenderer(render.NewRenderer(), cfg.Storage.OutputDir),
	)
	sink.Bind(orch.Item)
	orch.Start(context.Background())

	exts := intakeExtensions(cfg)
	watchOpts := []watcher.WatcherOption{}
	if debugMode {
		watchOpts = append(watchOpts, watcher.WithLogger(logger))
	}
	intakeSvc := watcher.NewWatcher(
		cfg.Intake.Directories,
		exts,
		cfg.Intake.RecursiveOrDefault(),
		func(path string) {
			doc := models.SourceDocument{ID: fileid.DocID(path), SourcePath: path}
			if _, err := orch.Submit(doc, models.PriorityNormal); err != nil {
				logger.Warn("intake submit failed", zap.String("path", path), zap.Error(err))
			}
		},
		nil,
		watchOpts...,
	)
	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if err := intakeSvc.Start(watchCtx); err != nil {
		logger.Fatal("Failed to start intake watcher", zap.Error(err))
	}
	intakeSvc.SyncExistingFiles()

	srv := server.NewServer(orch, store, cfg, logger,
		server.WithIntake(intakeSvc),
		server.WithConfigPath(resolvedConfigPath),
	)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
	orch.Stop()
	srv.WaitReviews()
}

func runProcess() {
	fs := flag.NewFlagSet("process", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	outputFormat := fs.String("output", "text", "output format: text or json")
	save := fs.Bool("save", false, "persist documents and records to storage")
	renderOut := fs.Bool("render", false, "write standardized documents to the configured output dir")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: cvpipe process [flags] <file-or-directory>")
		os.Exit(1)
	}
	path := fs.Arg(0)

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	seg, m, v := buildStages(cfg, logger, cfg.Debug)
	opts := []pipeline.Option{pipeline.WithLogger(logger)}
	if *save {
		store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
		if err != nil {
			fmt.Printf("Failed to initialize storage: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()
		opts = append(opts, pipeline.WithStore(store))
	}
	if *renderOut {
		opts = append(opts, pipeline.WithRenderer(render.NewRenderer(), cfg.Storage.OutputDir))
	}
	pipe := pipeline.New(seg, m, v, opts...)

	paths, err := collectSources(path, intakeExtensions(cfg))
	if err != nil {
		fmt.Printf("Failed to read input: %v\n", err)
		os.Exit(1)
	}
	if len(paths) == 0 {
		fmt.Println("No matching files found")
		os.Exit(1)
	}

	ctx := context.Background()
	failures := 0
	for _, p := range paths {
		abs, _ := filepath.Abs(p)
		doc := models.SourceDocument{ID: fileid.DocID(abs), SourcePath: abs}
		result, err := pipe.Process(ctx, doc)
		if err != nil {
			failures++
			fmt.Fprintf(os.Stderr, "%s: processing failed: %v\n", p, err)
			continue
		}
		switch *outputFormat {
		case "json":
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			_ = enc.Encode(map[string]interface{}{
				"document_id": doc.ID,
				"source_path": abs,
				"record":      result.Record,
				"report":      result.Report,
			})
		default:
			fmt.Print(reportText(p, result.Record, result.Report))
		}
	}
	if failures > 0 {
		os.Exit(1)
	}
}

// collectSources returns the files to process: the path itself, or all
// matching files under it when it is a directory.
func collectSources(path string, extensions []string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}
	var paths []string
	err = filepath.WalkDir(path, func(p string, d iofs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		if matchesExtension(p, extensions) {
			paths = append(paths, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

func matchesExtension(path string, extensions []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range extensions {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}

// reportText formats one processed CV for the terminal.
func reportText(path string, record models.CanonicalRecord, report models.ValidationReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", path)
	fmt.Fprintf(&b, "  name:      %s\n", orDash(record.Identity.Name))
	fmt.Fprintf(&b, "  language:  %s\n", record.Language)
	fmt.Fprintf(&b, "  positions: %d   education: %d   courses: %d\n",
		len(record.Positions), len(record.Education), len(record.Courses))
	fmt.Fprintf(&b, "  score:     %.2f (%s)   passed: %t\n",
		report.OverallScore, report.Quality, report.Passed)
	for _, f := range report.Findings {
		fmt.Fprintf(&b, "  [%s] %s: %s\n", f.Severity, f.Rule, f.Message)
	}
	return b.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// statsResponse is the shape of GET /api/v1/stats.
type statsResponse struct {
	Documents      int64               `json:"documents"`
	Records        int64               `json:"records"`
	DiskUsageBytes *int64              `json:"disk_usage_bytes,omitempty"`
	Orchestrator   *orchestrator.Stats `json:"orchestrator,omitempty"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use direct storage)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	var status statsResponse
	if *serverURL != "" {
		res, err := statsViaHTTP(*serverURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		status = *res
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize storage: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()
		ctx := context.Background()
		docCount, err := store.CountDocuments(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Count documents failed: %v\n", err)
			os.Exit(1)
		}
		recordCount, err := store.CountRecords(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Count records failed: %v\n", err)
			os.Exit(1)
		}
		status = statsResponse{Documents: docCount, Records: recordCount}
		diskBytes, err := storage.DiskUsageBytes(cfg.Storage.DatabasePath, cfg.Storage.OutputDir)
		if err == nil {
			status.DiskUsageBytes = &diskBytes
		}
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		fmt.Printf("documents:        %d   # source documents stored\n", status.Documents)
		fmt.Printf("records:          %d   # canonical records stored\n", status.Records)
		if status.DiskUsageBytes != nil {
			fmt.Printf("disk_usage_bytes: %d   # database + rendered output on disk\n", *status.DiskUsageBytes)
		}
		if o := status.Orchestrator; o != nil {
			fmt.Println()
			fmt.Println("# orchestrator")
			fmt.Printf("queued:       %d\n", o.Queued)
			fmt.Printf("in_progress:  %d\n", o.InProgress)
			fmt.Printf("retrying:     %d\n", o.Retrying)
			fmt.Printf("succeeded:    %d\n", o.Succeeded)
			fmt.Printf("dead_letter:  %d\n", o.DeadLetter)
			fmt.Printf("needs_review: %d\n", o.NeedsReview)
			fmt.Printf("success_rate: %.2f\n", o.SuccessRate)
			if len(o.Breakers) > 0 {
				ops := make([]string, 0, len(o.Breakers))
				for op := range o.Breakers {
					ops = append(ops, op)
				}
				sort.Strings(ops)
				for _, op := range ops {
					fmt.Printf("breaker[%s]: %s\n", op, o.Breakers[op])
				}
			}
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func statsViaHTTP(serverURL string) (*statsResponse, error) {
	resp, err := http.Get(serverURL + "/api/v1/stats")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var s statsResponse
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &s, nil
}

func runIntake() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: cvpipe intake <add|remove|list> [path]")
		fmt.Println("  cvpipe intake add <path>     Add intake directory")
		fmt.Println("  cvpipe intake remove <path>  Remove intake directory")
		fmt.Println("  cvpipe intake list           List intake directories")
		os.Exit(1)
	}
	sub := os.Args[2]
	fs := flag.NewFlagSet("intake", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	_ = fs.Parse(os.Args[3:])
	switch sub {
	case "add":
		if fs.NArg() < 1 {
			fmt.Println("Usage: cvpipe intake add <path>")
			os.Exit(1)
		}
		path, _ := filepath.Abs(fs.Arg(0))
		body, _ := json.Marshal(map[string]interface{}{"path": path, "sync": true})
		resp, err := http.Post(*serverURL+"/api/v1/intake/directories", "application/json", bytes.NewReader(body))
		if err != nil {
			fmt.Printf("Request failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			b, _ := io.ReadAll(resp.Body)
			fmt.Printf("Add failed (%d): %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		fmt.Printf("Added: %s\n", path)
	case "remove":
		if fs.NArg() < 1 {
			fmt.Println("Usage: cvpipe intake remove <path>")
			os.Exit(1)
		}
		path, _ := filepath.Abs(fs.Arg(0))
		req, _ := http.NewRequest(http.MethodDelete, *serverURL+"/api/v1/intake/directories?path="+url.QueryEscape(path), nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			fmt.Printf("Request failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			fmt.Printf("Remove failed (%d): %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		fmt.Printf("Removed: %s\n", path)
	case "list":
		resp, err := http.Get(*serverURL + "/api/v1/intake/directories")
		if err != nil {
			fmt.Printf("Request failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			fmt.Printf("List failed (%d): %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		var out struct {
			Directories []string `json:"directories"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			fmt.Printf("Parse failed: %v\n", err)
			os.Exit(1)
		}
		for _, d := range out.Directories {
			fmt.Println(d)
		}
	default:
		fmt.Printf("Unknown intake subcommand: %s\n", sub)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`cvpipe - CV standardization pipeline

Usage:
  cvpipe server [flags]             Start the HTTP server and intake watcher
  cvpipe process [flags] <path>     Process a CV file or directory once
  cvpipe status [flags]             Show pipeline/storage status
  cvpipe intake <add|remove|list>   Manage intake directories
  cvpipe version                    Show version
  cvpipe help                      Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/cvpipe/config.yaml)
  --debug            Enable debug logging (intake events, stage output, etc.)

Process Flags:
  --config string    Config file path
  --output string    Output format: text or json (default: text)
  --save             Persist documents and records to storage
  --render           Write standardized documents to the configured output dir

Status Flags:
  --config string    Config file path (for direct storage mode)
  --server string    Server URL (default: http://localhost:8080). Use empty (--server "") for direct storage.
  --output string    Output format: text or json (default: text)

Intake Flags:
  --server string    Server URL (default: http://localhost:8080)

Examples:
  cvpipe server
  cvpipe process cv.pdf
  cvpipe process --output json --save ./intake/
  cvpipe status
  cvpipe intake add /data/intake
  cvpipe intake list`)
}
