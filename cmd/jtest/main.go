package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/xplshn/jmmc/pkg/compiler"
	"github.com/xplshn/jmmc/pkg/config"
	"github.com/xplshn/jmmc/pkg/report"
	"github.com/xplshn/jmmc/pkg/util"
)

// Golden is the recorded outcome of compiling one source file.
type Golden struct {
	Reports     []report.Report `json:"reports"`
	OLLIR       string          `json:"ollir"`
	Jasmin      string          `json:"jasmin"`
	Fingerprint string          `json:"fingerprint"`
}

type FileTestResult struct {
	File     string        `json:"file"`
	Status   string        `json:"status"` // PASS, FAIL, SKIP, ERROR, UPDATE
	Message  string        `json:"message,omitempty"`
	Diff     string        `json:"diff,omitempty"`
	Flags    []string      `json:"flags,omitempty"`
	Duration time.Duration `json:"duration"`
	Got      *Golden       `json:"got,omitempty"`
}

type TestSuiteResults map[string]*FileTestResult

var (
	testFiles  = flag.String("test-files", "tests/*.jmm", "Glob pattern(s) for files to test (space-separated).")
	skipFiles  = flag.String("skip-files", "", "Files to skip (space-separated).")
	extraFlags = flag.String("args", "", "Compiler flags applied to every file before its directives (space-separated).")
	outputJSON = flag.String("output", ".test_results.json", "Output file for the JSON test report.")
	jsonDir    = flag.String("dir", "", "Directory to store/read golden JSON files (defaults to source file dir).")
	timeout    = flag.Duration("timeout", 5*time.Second, "Timeout for each compilation.")
	jobs       = flag.Int("jobs", 4, "Number of parallel test jobs.")
	update     = flag.Bool("update", false, "Rewrite the golden files with the current output.")
	verbose    = flag.Bool("v", false, "Enable verbose logging.")
)

const directivePrefix = "// [jmmc]:"

const (
	cRed    = "\x1b[91m"
	cYellow = "\x1b[93m"
	cGreen  = "\x1b[92m"
	cCyan   = "\x1b[96m"
	cBold   = "\x1b[1m"
	cNone   = "\x1b[0m"
)

func main() {
	flag.Parse()
	log.SetFlags(0)

	if *jobs < 1 {
		*jobs = 1
	}
	if !*verbose {
		// warnings from many workers would interleave
		util.Output = io.Discard
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	files, err := expandGlobPatterns(*testFiles)
	if err != nil {
		log.Fatalf("%s[ERROR]%s Invalid glob pattern(s): %v\n", cRed, cNone, err)
	}
	if len(files) == 0 {
		log.Println("No test files found matching the pattern(s).")
		return
	}

	results := runSuite(ctx, files)
	if ctx.Err() != nil {
		fmt.Printf("\n%s[INTERRUPT]%s Test run cancelled.\n", cYellow, cNone)
	}

	printSummary(results)
	resultsMap := writeJSONReport(results)
	if hasFailures(resultsMap) {
		os.Exit(1)
	}
}

func runSuite(ctx context.Context, files []string) []*FileTestResult {
	skipList := make(map[string]bool)
	for _, f := range strings.Fields(*skipFiles) {
		skipList[f] = true
	}

	tasks := make(chan string, len(files))
	resultsChan := make(chan *FileTestResult, len(files))
	var wg sync.WaitGroup

	for i := 0; i < *jobs; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for file := range tasks {
				if ctx.Err() != nil {
					resultsChan <- &FileTestResult{File: file, Status: "SKIP", Message: "Run cancelled"}
					continue
				}
				resultsChan <- testFile(ctx, file)
			}
		}()
	}

	// Feed the tasks channel, skipping files with identical content
	seenHashes := make(map[uint64]string)
	for _, file := range files {
		if skipList[file] || skipList[filepath.Base(file)] {
			resultsChan <- &FileTestResult{File: file, Status: "SKIP", Message: "Explicitly skipped"}
			continue
		}
		fileHash, err := hashFile(file)
		if err != nil {
			resultsChan <- &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Failed to read file for hashing: %v", err)}
			continue
		}
		if originalFile, seen := seenHashes[fileHash]; seen {
			resultsChan <- &FileTestResult{File: file, Status: "SKIP", Message: fmt.Sprintf("Content is identical to %s", originalFile)}
			continue
		}
		seenHashes[fileHash] = file
		tasks <- file
	}
	close(tasks)

	wg.Wait()
	close(resultsChan)

	var allResults []*FileTestResult
	for result := range resultsChan {
		allResults = append(allResults, result)
	}
	sort.Slice(allResults, func(i, j int) bool {
		return allResults[i].File < allResults[j].File
	})
	return allResults
}

func getJSONPath(sourceFile string) string {
	jsonFileName := filepath.Base(sourceFile) + ".json"
	if *jsonDir != "" {
		return filepath.Join(*jsonDir, jsonFileName)
	}
	return filepath.Join(filepath.Dir(sourceFile), jsonFileName)
}

// hashFile computes the xxhash of a file's content
func hashFile(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return 0, err
	}
	return h.Sum64(), nil
}

// directiveFlags collects the flags of every `// [jmmc]:` line in src, in order.
func directiveFlags(src string) []string {
	var flags []string
	sc := bufio.NewScanner(strings.NewReader(src))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if rest, ok := strings.CutPrefix(line, directivePrefix); ok {
			flags = append(flags, strings.Fields(rest)...)
		}
	}
	return flags
}

func configFor(src string) (*config.Config, []string) {
	cfg := config.NewConfig()
	flags := append(strings.Fields(*extraFlags), directiveFlags(src)...)
	cfg.ProcessDirectiveFlags(strings.Join(flags, " "))
	return cfg, flags
}

// compileWithTimeout runs the pipeline in-process; a compilation that outlives
// ctx is abandoned and reported as timed out.
func compileWithTimeout(ctx context.Context, src string, cfg *config.Config) (*compiler.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	type outcome struct {
		res *compiler.Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := compiler.Compile(src, 0, cfg)
		done <- outcome{res, err}
	}()

	select {
	case o := <-done:
		return o.res, o.err
	case <-ctx.Done():
		return nil, fmt.Errorf("compilation did not finish: %w", ctx.Err())
	}
}

func toGolden(res *compiler.Result) *Golden {
	g := &Golden{Reports: res.Reports, OLLIR: res.OLLIR, Jasmin: res.Jasmin}
	if res.Jasmin != "" {
		g.Fingerprint = fmt.Sprintf("%016x", res.Fingerprint)
	}
	return g
}

func testFile(ctx context.Context, file string) *FileTestResult {
	content, err := os.ReadFile(file)
	if err != nil {
		return &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Could not read source: %v", err)}
	}
	src := string(content)
	cfg, flags := configFor(src)

	start := time.Now()
	res, err := compileWithTimeout(ctx, src, cfg)
	elapsed := time.Since(start)
	if err != nil {
		status := "ERROR"
		if errors.Is(err, context.DeadlineExceeded) {
			status = "FAIL"
		}
		return &FileTestResult{File: file, Status: status, Message: err.Error(), Flags: flags, Duration: elapsed}
	}
	got := toGolden(res)
	result := &FileTestResult{File: file, Flags: flags, Duration: elapsed, Got: got}

	goldenFile := getJSONPath(file)
	if *update {
		if err := writeGolden(goldenFile, got); err != nil {
			result.Status, result.Message = "ERROR", err.Error()
			return result
		}
		result.Status, result.Message = "UPDATE", "Golden file written to "+goldenFile
		return result
	}

	goldenData, err := os.ReadFile(goldenFile)
	if errors.Is(err, os.ErrNotExist) {
		result.Status, result.Message = "SKIP", "Cannot test without a corresponding .json golden file; rerun with --update"
		return result
	}
	if err != nil {
		result.Status, result.Message = "ERROR", fmt.Sprintf("Could not read golden file %s: %v", goldenFile, err)
		return result
	}
	var want Golden
	if err := json.Unmarshal(goldenData, &want); err != nil {
		result.Status, result.Message = "ERROR", fmt.Sprintf("Could not parse golden file %s: %v", goldenFile, err)
		return result
	}

	if diff := cmp.Diff(&want, got, cmpopts.EquateEmpty()); diff != "" {
		result.Status, result.Message, result.Diff = "FAIL", "Output differs from golden file", diff
		return result
	}
	result.Status, result.Message = "PASS", "Matches golden file"
	if len(got.Reports) > 0 {
		result.Message += fmt.Sprintf(" (%d expected report(s))", len(got.Reports))
	}
	return result
}

func writeGolden(path string, g *Golden) error {
	jsonData, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal golden data to JSON: %w", err)
	}
	if *jsonDir != "" {
		if err := os.MkdirAll(*jsonDir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", *jsonDir, err)
		}
	}
	if err := os.WriteFile(path, append(jsonData, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write golden file %s: %w", path, err)
	}
	return nil
}

func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%6dµs", d.Microseconds())
	}
	return fmt.Sprintf("%6dms", d.Milliseconds())
}

func printSummary(results []*FileTestResult) {
	var passed, failed, skipped, errored, updated int
	var total time.Duration

	for _, result := range results {
		fmt.Println("----------------------------------------------------------------------")
		fmt.Printf("Testing %s%s%s...\n", cCyan, result.File, cNone)

		switch result.Status {
		case "PASS":
			passed++
			fmt.Printf("  [%sPASS%s] %s\n", cGreen, cNone, result.Message)
		case "UPDATE":
			updated++
			fmt.Printf("  [%sUPDATE%s] %s\n", cYellow, cNone, result.Message)
		case "FAIL":
			failed++
			fmt.Printf("  [%sFAIL%s] %s\n", cRed, cNone, result.Message)
			fmt.Println(formatDiff(result.Diff))
		case "SKIP":
			skipped++
			fmt.Printf("  [%sSKIP%s] %s\n", cYellow, cNone, result.Message)
		case "ERROR":
			errored++
			fmt.Printf("  [%sERROR%s] %s\n", cRed, cNone, result.Message)
		}
		total += result.Duration
		if *verbose && result.Duration > 0 {
			fmt.Printf("  [jmmc_comp: %s] flags: %v\n", formatDuration(result.Duration), result.Flags)
		}
	}

	fmt.Println("----------------------------------------------------------------------")
	fmt.Printf("%sTest Summary:%s %s%d Passed%s, %s%d Failed%s, %s%d Skipped%s, %s%d Errored%s, %d Updated, %d Total\n",
		cBold, cNone, cGreen, passed, cNone, cRed, failed, cNone, cYellow, skipped, cNone, cRed, errored, cNone, updated, len(results))
	if compiled := passed + failed + updated; compiled > 0 {
		fmt.Printf("On average, a file took %s to compile.\n", strings.TrimSpace(formatDuration(total/time.Duration(compiled))))
	}
}

func formatDiff(diff string) string {
	if diff == "" {
		return ""
	}
	var builder strings.Builder
	builder.WriteString("    --- Diff ---\n")
	for _, line := range strings.Split(diff, "\n") {
		trimmedLine := strings.TrimSpace(line)
		if strings.HasPrefix(trimmedLine, "-") {
			builder.WriteString(cRed)
		} else if strings.HasPrefix(trimmedLine, "+") {
			builder.WriteString(cGreen)
		}
		builder.WriteString("    " + line)
		builder.WriteString(cNone)
		builder.WriteString("\n")
	}
	return builder.String()
}

func writeJSONReport(results []*FileTestResult) TestSuiteResults {
	resultsMap := make(TestSuiteResults, len(results))
	for _, r := range results {
		resultsMap[r.File] = r
	}

	jsonData, err := json.MarshalIndent(resultsMap, "", "  ")
	if err != nil {
		log.Printf("%s[ERROR]%s Failed to marshal results to JSON: %v\n", cRed, cNone, err)
		return resultsMap
	}

	outputFile := *outputJSON
	if *jsonDir != "" {
		if err := os.MkdirAll(*jsonDir, 0755); err != nil {
			log.Printf("%s[ERROR]%s Failed to create dir %s: %v\n", cRed, cNone, *jsonDir, err)
		}
		outputFile = filepath.Join(*jsonDir, *outputJSON)
	}

	if err := os.WriteFile(outputFile, jsonData, 0644); err != nil {
		log.Printf("%s[ERROR]%s Failed to write JSON report to %s: %v\n", cRed, cNone, outputFile, err)
	} else {
		fmt.Printf("Full test report saved to %s\n", outputFile)
	}
	return resultsMap
}

func hasFailures(results TestSuiteResults) bool {
	for _, result := range results {
		if result.Status == "FAIL" || result.Status == "ERROR" {
			return true
		}
	}
	return false
}

func expandGlobPatterns(patterns string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]bool)
	for _, pattern := range strings.Fields(patterns) {
		files, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %s: %w", pattern, err)
		}
		for _, file := range files {
			absFile, err := filepath.Abs(file)
			if err != nil {
				continue
			}
			if !seen[absFile] {
				if info, err := os.Stat(absFile); err == nil && info.Mode().IsRegular() {
					allFiles = append(allFiles, absFile)
					seen[absFile] = true
				}
			}
		}
	}
	return allFiles, nil
}
