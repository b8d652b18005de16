package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ppiankov/claimcheck/internal/model"
)

// Verifier verifies the first claim of one article
type Verifier interface {
	VerifyText(ctx context.Context, text string) (*model.VerificationResult, error)
}

// VerifyJob verifies one input article
type VerifyJob struct {
	Index    int
	Input    string
	Verifier Verifier
	Limiter  *Limiter
}

// Execute executes the verification job
func (j *VerifyJob) Execute(ctx context.Context) Result {
	if j.Limiter != nil {
		if err := j.Limiter.WaitKey(ctx, batchKey); err != nil {
			return &VerifyResult{Index: j.Index, Input: j.Input, Error: err}
		}
	}

	result, err := j.Verifier.VerifyText(ctx, j.Input)
	return &VerifyResult{
		Index:  j.Index,
		Input:  j.Input,
		Result: result,
		Error:  err,
	}
}

// VerifyResult represents the result of a verification job
type VerifyResult struct {
	Index  int
	Input  string
	Result *model.VerificationResult
	Error  error
}

// GetError returns the error from the verification
func (r *VerifyResult) GetError() error {
	return r.Error
}

const batchKey = "batch"

// BatchProcessor verifies many inputs concurrently
type BatchProcessor struct {
	verifier    Verifier
	concurrency int
	limiter     *Limiter
}

// NewBatchProcessor creates a new batch processor. A positive
// requestsPerSecond caps how fast verifications start.
func NewBatchProcessor(verifier Verifier, concurrency int, requestsPerSecond float64, burst int) *BatchProcessor {
	b := &BatchProcessor{
		verifier:    verifier,
		concurrency: concurrency,
	}
	if requestsPerSecond > 0 {
		b.limiter = NewLimiter(requestsPerSecond, burst)
	}
	return b
}

// ProcessInputs verifies inputs concurrently; results come back in input order
func (b *BatchProcessor) ProcessInputs(ctx context.Context, inputs []string) []*VerifyResult {
	if len(inputs) == 0 {
		return []*VerifyResult{}
	}

	pool := NewPoolWithContext(ctx, b.concurrency)
	pool.Start()

	for i, input := range inputs {
		pool.Submit(&VerifyJob{
			Index:    i,
			Input:    input,
			Verifier: b.verifier,
			Limiter:  b.limiter,
		})
	}

	results := pool.Wait()

	out := make([]*VerifyResult, 0, len(inputs))
	seen := make(map[int]bool, len(results))
	for _, result := range results {
		vr := result.(*VerifyResult)
		seen[vr.Index] = true
		out = append(out, vr)
	}

	// Jobs dropped by cancellation still get a result
	for i, input := range inputs {
		if !seen[i] {
			err := ctx.Err()
			if err == nil {
				err = context.Canceled
			}
			out = append(out, &VerifyResult{Index: i, Input: input, Error: err})
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// ProcessFile reads inputs from a file and verifies them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*VerifyResult, error) {
	inputs, err := ReadInputsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read inputs: %w", err)
	}

	return b.ProcessInputs(ctx, inputs), nil
}

// ReadInputsFromFile reads articles from a file, one per line. Blank lines
// and lines starting with '#' are skipped; duplicates are dropped.
func ReadInputsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var inputs []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			inputs = append(inputs, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return inputs, nil
}
