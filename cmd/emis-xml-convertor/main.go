// Package main implements the emis-xml-convertor CLI tool. It classifies
// EMIS XML search exports and translates their clinical codes against a
// mapping-table snapshot.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	emisconv "github.com/triplebob/emis-xml-convertor"
	"github.com/triplebob/emis-xml-convertor/document"
	"github.com/triplebob/emis-xml-convertor/engine"
	"github.com/triplebob/emis-xml-convertor/lookup"
	"github.com/triplebob/emis-xml-convertor/translate"
)

const (
	version = "0.1.0"
	usage   = `emis-xml-convertor - EMIS XML search export convertor

Usage:
  emis-xml-convertor -mapping <table.json> [options] <file>...
  emis-xml-convertor -mapping <table.json> [options] -   (read from stdin)

Examples:
  emis-xml-convertor -mapping snomed.json export.xml
  emis-xml-convertor -mapping snomed.json -output json export.xml
  emis-xml-convertor -mapping snomed.json -dedup unique-by-source-and-code export.xml
  emis-xml-convertor -mapping snomed.json exports/*.xml
  cat export.xml | emis-xml-convertor -mapping snomed.json -

Options:
`
)

// OutputFormat specifies the output format.
type OutputFormat string

// Output format constants.
const (
	OutputText OutputFormat = "text"
	OutputJSON OutputFormat = "json"
)

// Config holds CLI configuration.
type Config struct {
	MappingPath string
	Output      OutputFormat
	Dedup       string
	Strict      bool
	MaxWarnings int
	Quiet       bool
	Verbose     bool
	ShowVersion bool
	Help        bool
	Files       []string
}

// DocumentOutput represents one processed document in JSON output.
type DocumentOutput struct {
	Document string            `json:"document"`
	Clean    bool              `json:"clean"`
	Errors   int               `json:"errors"`
	Warnings int               `json:"warnings"`
	Misses   int               `json:"misses"`
	Summary  *document.Summary `json:"summary,omitempty"`
	Stats    *translate.Stats  `json:"stats,omitempty"`
	Issues   []IssueOutput     `json:"issues,omitempty"`
	Duration string            `json:"duration"`
}

// IssueOutput represents a single issue in JSON output.
type IssueOutput struct {
	Severity    string   `json:"severity"`
	Code        string   `json:"code"`
	Diagnostics string   `json:"diagnostics"`
	Path        []string `json:"path,omitempty"`
}

func main() {
	config := parseFlags()

	if config.ShowVersion {
		fmt.Printf("emis-xml-convertor v%s\n", version)
		os.Exit(0)
	}

	if config.Help || len(config.Files) == 0 || config.MappingPath == "" {
		flag.Usage()
		os.Exit(0)
	}

	os.Exit(run(config))
}

func parseFlags() *Config {
	config := &Config{Output: OutputText}

	var output string
	flag.StringVar(&config.MappingPath, "mapping", "", "Path to the mapping-table JSON snapshot (required)")
	flag.StringVar(&output, "output", "text", "Output format: text, json")
	flag.StringVar(&config.Dedup, "dedup", string(emisconv.DedupUniqueByCode), "Deduplication policy: unique-by-code, unique-by-source-and-code")
	flag.BoolVar(&config.Strict, "strict", false, "Treat structural warnings as errors")
	flag.IntVar(&config.MaxWarnings, "max-warnings", 0, "Cap the number of recorded warnings (0 = unlimited)")
	flag.BoolVar(&config.Quiet, "quiet", false, "Only show errors and warnings")
	flag.BoolVar(&config.Verbose, "verbose", false, "Show stage-level debug output")
	flag.BoolVar(&config.ShowVersion, "v", false, "Show version")
	flag.BoolVar(&config.Help, "help", false, "Show help")

	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}

	flag.Parse()

	switch strings.ToLower(output) {
	case "json":
		config.Output = OutputJSON
	default:
		config.Output = OutputText
	}

	config.Files = flag.Args()
	return config
}

func run(config *Config) int {
	table, err := lookup.LoadFile(config.MappingPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load mapping table: %v\n", err)
		return 1
	}

	logger := zerolog.Nop()
	if config.Verbose {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}

	opts := []emisconv.Option{
		emisconv.WithDedupPolicy(emisconv.DedupPolicy(config.Dedup)),
		emisconv.WithStrictMode(config.Strict),
		emisconv.WithMaxWarnings(config.MaxWarnings),
		emisconv.WithLogger(logger),
	}

	processor, err := engine.New(table, opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize processor: %v\n", err)
		return 1
	}

	if !config.Quiet {
		fmt.Fprintf(os.Stderr, "Mapping table loaded (%d records). Processing %d file(s)...\n\n", table.Len(), len(config.Files))
	}

	hasErrors := false
	outputs := make([]DocumentOutput, 0, len(config.Files))

	for _, file := range config.Files {
		if file == "-" {
			data, readErr := io.ReadAll(os.Stdin)
			if readErr != nil {
				fmt.Fprintf(os.Stderr, "Error reading stdin: %v\n", readErr)
				hasErrors = true
				continue
			}
			output, failed := processData(processor, data, "stdin", config)
			outputs = append(outputs, output)
			hasErrors = hasErrors || failed
			continue
		}

		matches, globErr := filepath.Glob(file)
		if globErr != nil {
			fmt.Fprintf(os.Stderr, "Error with pattern '%s': %v\n", file, globErr)
			hasErrors = true
			continue
		}
		if len(matches) == 0 {
			fmt.Fprintf(os.Stderr, "No files match pattern: %s\n", file)
			hasErrors = true
			continue
		}

		for _, match := range matches {
			output, failed := processFile(processor, match, config)
			outputs = append(outputs, output)
			hasErrors = hasErrors || failed
		}
	}

	if config.Output == OutputJSON {
		jsonOutput, _ := json.MarshalIndent(outputs, "", "  ")
		fmt.Println(string(jsonOutput))
	}

	if hasErrors {
		return 1
	}
	return 0
}

func processFile(processor *engine.Processor, path string, config *Config) (DocumentOutput, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		output := DocumentOutput{
			Document: path,
			Errors:   1,
			Issues: []IssueOutput{{
				Severity:    string(emisconv.SeverityError),
				Code:        string(emisconv.IssueTypeProcessing),
				Diagnostics: fmt.Sprintf("failed to read file: %v", err),
			}},
		}
		if config.Output == OutputText {
			fmt.Printf("Error reading %s: %v\n", path, err)
		}
		return output, true
	}

	return processData(processor, data, path, config)
}

func processData(processor *engine.Processor, data []byte, name string, config *Config) (DocumentOutput, bool) {
	start := time.Now()
	out, err := processor.Process(context.Background(), data)
	duration := time.Since(start)

	if err != nil {
		output := DocumentOutput{
			Document: name,
			Errors:   1,
			Duration: duration.Round(time.Microsecond).String(),
			Issues: []IssueOutput{{
				Severity:    string(emisconv.SeverityFatal),
				Code:        string(emisconv.IssueTypeStructure),
				Diagnostics: fmt.Sprintf("processing failed: %v", err),
			}},
		}
		if config.Output == OutputText {
			fmt.Printf("Error processing %s: %v\n", name, err)
		}
		return output, true
	}

	summary := out.Document.Summarize()
	output := DocumentOutput{
		Document: name,
		Clean:    out.Result.Clean,
		Errors:   out.Result.ErrorCount(),
		Warnings: out.Result.WarningCount(),
		Misses:   out.Result.MissCount(),
		Summary:  &summary,
		Duration: duration.Round(time.Microsecond).String(),
	}
	if out.Translation != nil {
		output.Stats = &out.Translation.Stats
	}

	for _, iss := range out.Result.Issues {
		output.Issues = append(output.Issues, IssueOutput{
			Severity:    string(iss.Severity),
			Code:        string(iss.Code),
			Diagnostics: iss.Diagnostics,
			Path:        iss.Path,
		})
	}

	if config.Output == OutputText {
		printTextResult(name, out, duration, config)
	}

	return output, out.Result.HasErrors()
}

func printTextResult(name string, out *engine.Output, duration time.Duration, config *Config) {
	status := "CLEAN"
	if out.Result.HasErrors() {
		status = "ERRORS"
	}

	summary := out.Document.Summarize()
	fmt.Printf("== %s ==\n", name)
	fmt.Printf("Status: %s\n", status)
	fmt.Printf("Searches: %d, Lists: %d, Audits: %d, Aggregates: %d, Folders: %d\n",
		summary.Searches, summary.ListReports, summary.AuditReports, summary.AggregateReports, summary.Folders)
	if out.Translation != nil {
		stats := out.Translation.Stats
		fmt.Printf("Codes: %d translated, %d matched, %d unmatched (%.1f%% success)\n",
			stats.Total, stats.Matched, stats.Unmatched, stats.SuccessRate()*100)
	}
	fmt.Printf("Errors: %d, Warnings: %d, Misses: %d\n",
		out.Result.ErrorCount(), out.Result.WarningCount(), out.Result.MissCount())
	fmt.Printf("Duration: %s\n", duration.Round(time.Microsecond))

	if len(out.Result.Issues) > 0 {
		fmt.Println("\nIssues:")
		for _, iss := range out.Result.Issues {
			if config.Quiet && iss.Severity == emisconv.SeverityInformation {
				continue
			}

			location := ""
			if len(iss.Path) > 0 {
				location = fmt.Sprintf(" @ %s", strings.Join(iss.Path, ", "))
			}
			fmt.Printf("  %s [%s] %s%s\n", severityLabel(iss.Severity), iss.Code, iss.Diagnostics, location)
		}
	}

	fmt.Println()
}

func severityLabel(severity emisconv.Severity) string {
	switch severity {
	case emisconv.SeverityFatal:
		return "FATAL"
	case emisconv.SeverityError:
		return "ERROR"
	case emisconv.SeverityWarning:
		return "WARN "
	case emisconv.SeverityInformation:
		return "INFO "
	default:
		return "     "
	}
}
