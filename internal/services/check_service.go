// Package services wires the per-file pipeline: read, parse, schema load,
// validation fan-out, property set extraction, report rendering. Batch runs
// isolate failures per file; one unreadable file never stops the rest.
package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/asakaida/ifcheck/internal/entities"
	"github.com/asakaida/ifcheck/internal/schema"
	"github.com/asakaida/ifcheck/internal/services/parser"
	"github.com/asakaida/ifcheck/internal/services/psets"
	"github.com/asakaida/ifcheck/internal/services/validation"
)

// CheckService runs the validation and property set pipelines over model
// files. The schema loader memoizes registries, so batch runs over files
// sharing a schema version parse the definitions once.
type CheckService struct {
	loader  *schema.Loader
	workers int
}

// NewCheckService creates a new CheckService. workers bounds the validation
// fan-out per file; values below 1 mean no concurrency.
func NewCheckService(loader *schema.Loader, workers int) *CheckService {
	if workers < 1 {
		workers = 1
	}
	return &CheckService{loader: loader, workers: workers}
}

// ValidateRequest contains the parameters for validating one file
type ValidateRequest struct {
	Path         string
	ExpressRules bool // Run EXPRESS WHERE rules besides structural checks
	MaxIssues    int  // Cap on printed issues, 0 = unlimited
}

// ValidateResult contains the outcome of validating one file. Lines holds
// the full report body; Err is set only for fatal per-file errors (read,
// parse, unknown schema version), which still leave a short report.
type ValidateResult struct {
	Path          string
	SchemaVersion string
	Report        *validation.Report
	Lines         []string
	Err           error
}

// Invalid reports whether the file failed: fatally or with at least one
// ERROR finding. Warnings alone do not make a file invalid.
func (r *ValidateResult) Invalid() bool {
	return r.Err != nil || (r.Report != nil && !r.Report.Valid())
}

// ValidateFile runs the full validation pipeline on one file. Fatal errors
// abort the remaining stages for this file only and are reported in place of
// findings.
func (s *CheckService) ValidateFile(ctx context.Context, req *ValidateRequest) *ValidateResult {
	result := &ValidateResult{Path: req.Path}
	result.Lines = []string{fmt.Sprintf("=== %s ===", filepath.Base(req.Path))}

	g, err := s.parseFile(req.Path)
	if err != nil {
		result.Err = err
		result.Lines = append(result.Lines, fmt.Sprintf("parse: FAIL (%v)", err))
		return result
	}
	result.SchemaVersion = g.SchemaVersion
	result.Lines = append(result.Lines, fmt.Sprintf("parse: OK (schema=%s)", g.SchemaVersion))

	registry, err := s.loader.Load(ctx, g.SchemaVersion)
	if err != nil {
		result.Err = err
		result.Lines = append(result.Lines, fmt.Sprintf("validate: FAIL (%v)", err))
		return result
	}

	report, err := s.runValidators(g, registry, req.ExpressRules)
	if err != nil {
		result.Err = err
		result.Lines = append(result.Lines, fmt.Sprintf("validate: FAIL (%v)", err))
		return result
	}
	result.Report = report
	result.Lines = append(result.Lines, report.Render(req.MaxIssues)...)
	return result
}

// PsetsRequest contains the parameters for the property set report
type PsetsRequest struct {
	Path          string
	MaxProperties int // Cap on property names per set in the aggregate block
}

// PsetsResult contains the outcome of the property set pipeline
type PsetsResult struct {
	Path          string
	SchemaVersion string
	Bindings      []entities.PsetBinding
	Lines         []string
	Err           error
}

// PsetsFile builds the property set report for one file: the aggregate
// block first, then one block per object in ascending id order.
func (s *CheckService) PsetsFile(ctx context.Context, req *PsetsRequest) *PsetsResult {
	result := &PsetsResult{Path: req.Path}
	name := filepath.Base(req.Path)

	g, err := s.parseFile(req.Path)
	if err != nil {
		result.Err = err
		result.Lines = []string{"FILE: " + name, fmt.Sprintf("open: FAIL (%v)", err)}
		return result
	}
	result.SchemaVersion = g.SchemaVersion

	registry, err := s.loader.Load(ctx, g.SchemaVersion)
	if err != nil {
		result.Err = err
		result.Lines = []string{"FILE: " + name, fmt.Sprintf("open: FAIL (%v)", err)}
		return result
	}

	extractor := psets.NewExtractor(registry)
	result.Bindings = extractor.Extract(g)
	stats := extractor.CollectStats(g)

	result.Lines = psets.RenderStats(name, g.SchemaVersion, stats, req.MaxProperties)
	result.Lines = append(result.Lines, "", "OBJECTS:")
	if len(result.Bindings) == 0 {
		result.Lines = append(result.Lines, "none")
	} else {
		result.Lines = append(result.Lines, psets.RenderBindings(result.Bindings)...)
	}
	return result
}

// parseFile reads and parses one STEP file
func (s *CheckService) parseFile(path string) (*entities.Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	p := parser.NewParser(parser.NewLexer(string(data)))
	return p.Parse()
}

// runValidators fans validation out over contiguous id shards. Each worker
// appends to its own slices; determinism comes from the final sort in
// Assemble, not from scheduling.
func (s *CheckService) runValidators(g *entities.Graph, registry *schema.Registry, express bool) (*validation.Report, error) {
	var engine *validation.RuleEngine
	if express {
		var err error
		engine, err = validation.NewRuleEngine(registry)
		if err != nil {
			return nil, fmt.Errorf("failed to compile schema rules: %w", err)
		}
	}
	structural := validation.NewStructuralValidator(registry)

	shards := shardIDs(g.IDs(), s.workers)
	structuralOut := make([][]entities.ValidationIssue, len(shards))
	expressOut := make([][]entities.ValidationIssue, len(shards))

	var wg sync.WaitGroup
	for i, ids := range shards {
		wg.Add(1)
		go func(i int, ids []int64) {
			defer wg.Done()
			structuralOut[i] = structural.ValidateRange(g, ids)
			if engine != nil {
				expressOut[i] = engine.EvaluateRange(g, ids)
			}
		}(i, ids)
	}
	wg.Wait()

	var structuralAll, expressAll []entities.ValidationIssue
	for i := range shards {
		structuralAll = append(structuralAll, structuralOut[i]...)
		expressAll = append(expressAll, expressOut[i]...)
	}
	return validation.Assemble(structuralAll, expressAll), nil
}

// shardIDs splits the sorted id slice into at most n contiguous ranges
func shardIDs(ids []int64, n int) [][]int64 {
	if n > len(ids) {
		n = len(ids)
	}
	if n <= 1 {
		return [][]int64{ids}
	}
	shards := make([][]int64, 0, n)
	size := (len(ids) + n - 1) / n
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		shards = append(shards, ids[start:end])
	}
	return shards
}

// FindModelFiles returns all .ifc files under dir, sorted case-insensitively
// by file name so batch order is stable across platforms.
func FindModelFiles(dir string, recursive bool) ([]string, error) {
	var files []string
	if recursive {
		err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && isModelFile(path) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	} else {
		dirEntries, err := os.ReadDir(dir)
		if err != nil {
			return nil, err
		}
		for _, entry := range dirEntries {
			if !entry.IsDir() && isModelFile(entry.Name()) {
				files = append(files, filepath.Join(dir, entry.Name()))
			}
		}
	}

	sort.Slice(files, func(i, j int) bool {
		a := strings.ToLower(filepath.Base(files[i]))
		b := strings.ToLower(filepath.Base(files[j]))
		if a != b {
			return a < b
		}
		return files[i] < files[j]
	})
	return files, nil
}

func isModelFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".ifc")
}

// WriteReport writes report lines to path, newline-terminated. The file
// handle is released on every path.
func WriteReport(path string, lines []string) error {
	return os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644)
}

// ReportPath returns the report file path for an input file: the input's
// stem plus suffix, placed in outputDir, or next to the input when outputDir
// is empty.
func ReportPath(outputDir, inputPath, suffix string) string {
	base := filepath.Base(inputPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	dir := outputDir
	if dir == "" {
		dir = filepath.Dir(inputPath)
	}
	return filepath.Join(dir, stem+suffix)
}
