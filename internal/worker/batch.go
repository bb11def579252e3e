package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/riskfeed/internal/model"
)

// Labeler turns a raw post into a labeled post
type Labeler interface {
	Label(ctx context.Context, post model.Post) model.LabeledPost
}

// LabelJob labels one post
type LabelJob struct {
	Index   int
	Post    model.Post
	Labeler Labeler
}

// Execute executes the label job
func (j *LabelJob) Execute(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return &LabelResult{Index: j.Index, Error: err}
	}
	return &LabelResult{
		Index:   j.Index,
		Labeled: j.Labeler.Label(ctx, j.Post),
	}
}

// LabelResult is the outcome of a LabelJob
type LabelResult struct {
	Index   int
	Labeled model.LabeledPost
	Error   error
}

// GetError returns the error from the label result
func (r *LabelResult) GetError() error {
	return r.Error
}

// BatchProcessor labels posts concurrently
type BatchProcessor struct {
	labeler     Labeler
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(labeler Labeler, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		labeler:     labeler,
		concurrency: concurrency,
	}
}

// ProcessPosts labels every post and returns the results in input order.
// If ctx is cancelled part-way, the posts labeled so far are returned with the context error.
func (b *BatchProcessor) ProcessPosts(ctx context.Context, posts []model.Post) ([]model.LabeledPost, error) {
	if len(posts) == 0 {
		return []model.LabeledPost{}, nil
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	go func() {
		defer pool.Close()
		for i, post := range posts {
			if !pool.Submit(&LabelJob{Index: i, Post: post, Labeler: b.labeler}) {
				return
			}
		}
	}()

	labeled := make([]model.LabeledPost, len(posts))
	done := make([]bool, len(posts))
	for result := range pool.Results() {
		r := result.(*LabelResult)
		if r.Error != nil {
			continue
		}
		labeled[r.Index] = r.Labeled
		done[r.Index] = true
	}

	if err := ctx.Err(); err != nil {
		var partial []model.LabeledPost
		for i, ok := range done {
			if ok {
				partial = append(partial, labeled[i])
			}
		}
		return partial, err
	}

	return labeled, nil
}

// ReadLinesFromFile reads one entry per line, skipping blanks and '#' comments
// and dropping duplicates
func ReadLinesFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var lines []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			lines = append(lines, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return lines, nil
}
