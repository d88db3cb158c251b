// GoHyphanet - Hyphanet FCP Library and Tools
// Copyright (C) 2025 GoHyphanet Contributors
// Licensed under GNU AGPLv3 - see LICENSE file for details
// Source: https://github.com/blubskye/gohyphanet

package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gohyphanet/fcpcore/fcp"
)

var debugMode bool

func debugLog(format string, args ...interface{}) {
	if debugMode {
		log.Printf("[FCPGET] "+format, args...)
	}
}

type DownloadJob struct {
	URI        string
	OutputPath string
	Index      int
	Total      int
}

type DownloadResult struct {
	Job     DownloadJob
	Success bool
	Error   error
	Size    int64
}

func main() {
	output := flag.String("o", "", "Output file (default: stdout for single file)")
	outputDir := flag.String("d", ".", "Output directory (for multiple files)")
	host := flag.String("host", "localhost", "Hyphanet node hostname")
	port := flag.Int("port", 9481, "Hyphanet node port")
	timeout := flag.Duration("timeout", 30*time.Minute, "Operation timeout per file")
	progress := flag.Bool("progress", true, "Show download progress")
	quiet := flag.Bool("q", false, "Quiet mode (no progress to stderr)")
	verbose := flag.Bool("v", false, "Verbose output")
	debug := flag.Bool("debug", false, "Enable debug logging")
	maxRetries := flag.Int("retries", 3, "Number of attempts per URI, including the first")
	showVersion := flag.Bool("version", false, "Show version and license information")
	showLicense := flag.Bool("license", false, "Show license information")
	showSource := flag.Bool("source", false, "Show source code URL")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "fcpget - Retrieve data from Hyphanet v%s\n\n", fcp.Version)
		fmt.Fprintf(os.Stderr, "Usage: fcpget [options] <URI> [URI2 URI3 ...]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  # Download to stdout\n")
		fmt.Fprintf(os.Stderr, "  fcpget KSK@mykey\n\n")
		fmt.Fprintf(os.Stderr, "  # Download to file\n")
		fmt.Fprintf(os.Stderr, "  fcpget KSK@mykey -o output.txt\n\n")
		fmt.Fprintf(os.Stderr, "  # Download multiple files\n")
		fmt.Fprintf(os.Stderr, "  fcpget CHK@.../file1.txt CHK@.../file2.jpg -d downloads/\n\n")
		fmt.Fprintf(os.Stderr, "Source: %s\n", fcp.SourceURL)
		fmt.Fprintf(os.Stderr, "License: %s\n", fcp.LicenseName)
	}

	flag.Parse()

	debugMode = *debug || *verbose
	showProgress := *progress && !*quiet

	if debugMode {
		log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)
		debugLog("Debug mode enabled")
	}

	if *showLicense {
		fmt.Println(fcp.PrintLicenseNotice())
		os.Exit(0)
	}
	if *showVersion {
		fmt.Println(fcp.GetFullVersionString())
		os.Exit(0)
	}
	if *showSource {
		fmt.Println(fcp.SourceURL)
		os.Exit(0)
	}

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Error: URI required\n\n")
		flag.Usage()
		os.Exit(1)
	}

	uris := flag.Args()
	debugLog("URIs to download: %d", len(uris))

	config := fcp.DefaultConfig()
	config.Host = *host
	config.Port = *port
	config.Name = "fcpget"
	if debugMode {
		sink, err := fcp.NewZapSink(fcp.DEBUG)
		if err == nil {
			config.Logger = sink
		}
	}

	debugLog("Connecting to %s:%d", *host, *port)
	session, err := fcp.Connect(config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to connect to Hyphanet node at %s:%d: %v\n", *host, *port, err)
		os.Exit(1)
	}
	defer session.Shutdown()
	debugLog("Connected to Hyphanet node")

	if len(uris) == 1 && (*output == "" || *output == "-") {
		if err := downloadToStdout(session, uris[0], *timeout, *maxRetries, showProgress, *quiet); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if len(uris) > 1 || (*output == "" && len(uris) == 1) {
		if err := os.MkdirAll(*outputDir, 0755); err != nil {
			fmt.Fprintf(os.Stderr, "Error: Failed to create output directory: %v\n", err)
			os.Exit(1)
		}
	}

	var jobs []DownloadJob
	for i, uri := range uris {
		var outPath string
		if len(uris) == 1 && *output != "" && *output != "-" {
			outPath = *output
		} else {
			filename := extractFilename(uri)
			if filename == "" {
				filename = fmt.Sprintf("download-%d", i+1)
			}
			outPath = filepath.Join(*outputDir, filename)
		}
		jobs = append(jobs, DownloadJob{URI: uri, OutputPath: outPath, Index: i + 1, Total: len(uris)})
	}

	results := make(chan DownloadResult, len(jobs))
	var wg sync.WaitGroup

	for _, job := range jobs {
		wg.Add(1)
		go func(j DownloadJob) {
			defer wg.Done()
			result := DownloadResult{Job: j}

			for attempt := 1; attempt <= *maxRetries; attempt++ {
				if attempt > 1 && !*quiet {
					fmt.Printf("\n[%d/%d] Retrying %s (attempt %d/%d)...\n", j.Index, j.Total, j.URI, attempt, *maxRetries)
					time.Sleep(time.Duration(attempt) * 2 * time.Second)
				}

				err := downloadFile(session, j, *timeout, showProgress, *quiet)
				if err == nil {
					result.Success = true
					break
				}
				result.Error = err
				debugLog("Download attempt %d failed: %v", attempt, err)
				if attempt == *maxRetries {
					break
				}
			}
			results <- result
		}(job)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	successCount := 0
	failCount := 0
	for result := range results {
		if result.Success {
			successCount++
			if !*quiet {
				fmt.Printf("\n✓ Downloaded: %s → %s\n", result.Job.URI, result.Job.OutputPath)
			}
		} else {
			failCount++
			fmt.Fprintf(os.Stderr, "\n✗ Failed: %s - %v\n", result.Job.URI, result.Error)
		}
	}

	if !*quiet && len(jobs) > 1 {
		fmt.Printf("\nDownload Summary: %d succeeded, %d failed\n", successCount, failCount)
	}
	if failCount > 0 {
		os.Exit(1)
	}
}

func downloadToStdout(session *fcp.NodeSession, uri string, timeout time.Duration, maxRetries int, showProgress, quiet bool) error {
	var reply *fcp.Message
	var err error

	for attempt := 1; attempt <= maxRetries; attempt++ {
		if attempt > 1 && !quiet {
			fmt.Fprintf(os.Stderr, "Retry %d/%d...\n", attempt, maxRetries)
			time.Sleep(time.Duration(attempt) * time.Second)
		}
		identifier := fmt.Sprintf("get-%d", time.Now().UnixNano())
		msg := fcp.NewMessage("ClientGet").
			Set("URI", uri).
			Set("Identifier", identifier).
			Set("ReturnType", "direct")
		var job *fcp.JobTicket
		job, err = session.Submit(msg, identifier)
		if err != nil {
			continue
		}
		if job.Wait(timeout) == fcp.StatusCompleted {
			reply = job.Last()
			break
		}
		err = job.Err()
	}
	if err != nil {
		return fmt.Errorf("get operation failed: %w", err)
	}
	if reply.Header != "AllData" {
		return fmt.Errorf("get failed: %s", reply.String())
	}
	if _, err := os.Stdout.Write(reply.Payload); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if !quiet {
		fmt.Fprintf(os.Stderr, "Successfully retrieved %d bytes\n", len(reply.Payload))
	}
	return nil
}

func downloadFile(session *fcp.NodeSession, job DownloadJob, timeout time.Duration, showProgress, quiet bool) error {
	identifier := fmt.Sprintf("get-%d", time.Now().UnixNano())
	debugLog("Download identifier: %s for URI: %s", identifier, job.URI)

	if !quiet {
		if job.Total == 1 {
			fmt.Printf("Downloading: %s\nOutput: %s\n", job.URI, job.OutputPath)
		} else {
			fmt.Printf("\n[%d/%d] Downloading: %s\nOutput: %s\n", job.Index, job.Total, job.URI, job.OutputPath)
		}
	}

	msg := fcp.NewMessage("ClientGet").
		Set("URI", job.URI).
		Set("Identifier", identifier).
		Set("ReturnType", "direct").
		Set("Verbosity", "511").
		Set("MaxRetries", "-1").
		Set("PriorityClass", "2")

	job2, err := session.Submit(msg, identifier)
	if err != nil {
		return fmt.Errorf("failed to send get request: %w", err)
	}

	status := job2.Wait(timeout)
	if showProgress {
		printProgressBar(job2.GetResponse())
		fmt.Fprintf(os.Stderr, "\n")
	}

	switch status {
	case fcp.StatusCompleted:
		last := job2.Last()
		if last.Header != "AllData" {
			return fmt.Errorf("unexpected terminal message: %s", last.Header)
		}
		if err := os.WriteFile(job.OutputPath, last.Payload, 0644); err != nil {
			return fmt.Errorf("failed to write file: %w", err)
		}
		return nil
	case fcp.StatusFailed:
		return job2.Err()
	case fcp.StatusTimedOut:
		return fmt.Errorf("download timeout after %v", timeout)
	default:
		return fmt.Errorf("unexpected job status: %v", status)
	}
}

func printProgressBar(response []*fcp.Message) {
	for _, m := range response {
		if m.Header != "SimpleProgress" {
			continue
		}
		succeeded, _ := m.Get("Succeeded")
		total, _ := m.Get("Total")
		fmt.Fprintf(os.Stderr, "\rProgress: %s/%s blocks    ", succeeded, total)
	}
}

func extractFilename(uri string) string {
	parts := strings.Split(uri, "/")
	if len(parts) > 0 {
		lastPart := strings.TrimSuffix(parts[len(parts)-1], "/")
		if lastPart != "" && !strings.Contains(lastPart, "@") {
			return lastPart
		}
	}
	return ""
}
