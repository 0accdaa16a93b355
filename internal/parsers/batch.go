package parsers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"ledger-import-service/internal/models"
	"ledger-import-service/pkg/errors"
	"ledger-import-service/pkg/logger"
)

// FileIDGap is added to a file's line count to get the next file's row offset
const FileIDGap = 1000

// SourceFile is one statement file already read into memory
type SourceFile struct {
	Name    string
	Content string
}

// FileStats counts what happened to the rows of one file
type FileStats struct {
	Name         string `json:"name"`
	Kind         Kind   `json:"kind"`
	Delimiter    string `json:"delimiter"`
	Rows         int    `json:"rows"`
	Skipped      int    `json:"skipped_short"`
	Suppressed   int    `json:"suppressed"`
	ZeroAmount   int    `json:"zero_amount"`
	Transactions int    `json:"transactions"`
	FirstID      int    `json:"first_id"`
}

// Batch is the ordered working set built from a group of files
type Batch struct {
	ID           uuid.UUID                     `json:"id"`
	Transactions []models.CanonicalTransaction `json:"transactions"`
	Files        []FileStats                   `json:"files"`
	Issues       []*errors.ImportError         `json:"issues,omitempty"`
}

// CountByKind returns the number of transactions emitted per format
func (b *Batch) CountByKind() map[Kind]int {
	counts := make(map[Kind]int)
	for _, f := range b.Files {
		counts[f.Kind] += f.Transactions
	}
	return counts
}

// IssueSummary counts the batch issues per error category
func (b *Batch) IssueSummary() *errors.ErrorSummary {
	return errors.NewErrorSummary(b.Issues)
}

// Assembler turns source files into one batch with unique row identifiers
type Assembler struct {
	profiles   *ProfileSet
	normalizer *Normalizer
	logger     logger.Logger
}

// NewAssembler creates a new Assembler
func NewAssembler(profiles *ProfileSet, normalizer *Normalizer) *Assembler {
	return &Assembler{
		profiles:   profiles,
		normalizer: normalizer,
		logger:     logger.GetGlobalLogger().WithComponent("batch_assembler"),
	}
}

// WithLogger replaces the assembler's logger
func (a *Assembler) WithLogger(l logger.Logger) *Assembler {
	a.logger = l.WithComponent("batch_assembler")
	return a
}

// Assemble processes files in the given order. The first line of each file
// is its header. A row's identifier is the running offset plus its line
// index; after each file the offset grows by the file's line count plus
// FileIDGap. Fee rows of files longer than FileIDGap lines can collide with
// later primary rows of the same file; such collisions are reported in
// Batch.Issues. Short rows and rows with invalid UTF-8 are reported there as
// parse issues; short rows are still skipped and never fail the batch.
func (a *Assembler) Assemble(files []SourceFile) (*Batch, error) {
	batch := &Batch{
		ID:           uuid.New(),
		Transactions: []models.CanonicalTransaction{},
	}

	offset := 0
	for _, file := range files {
		lines := SplitLines(file.Content)
		if len(lines) == 0 {
			return nil, errors.FileError(errors.CodeFileEmpty, file.Name, nil)
		}

		name := filepath.Base(file.Name)
		delimiter := DetectDelimiter(name, lines[0])
		header := Tokenize(lines[0], delimiter)
		profile, cols := a.profiles.Resolve(name, delimiter, header)

		stats := FileStats{
			Name:      name,
			Kind:      profile.Kind,
			Delimiter: delimiterName(delimiter),
			FirstID:   offset + 1,
		}

		for i := 1; i < len(lines); i++ {
			if isBlank(lines[i]) {
				continue
			}
			stats.Rows++
			if !utf8.ValidString(lines[i]) {
				batch.Issues = append(batch.Issues, errors.ParseError(errors.CodeEncodingError, name, i+1, nil))
			}

			row := models.RawRow{
				Fields:   Tokenize(lines[i], delimiter),
				FileName: name,
				Header:   header,
				Line:     i + 1,
			}

			txs, outcome := a.normalizer.NormalizeRow(row, profile, cols, offset+i)
			switch outcome {
			case OutcomeShort:
				stats.Skipped++
				batch.Issues = append(batch.Issues, errors.ParseError(errors.CodeInvalidFormat, name, i+1, nil).
					WithContext("fields", len(row.Fields)).
					WithContext("min_fields", profile.MinFields))
			case OutcomeSuppressed:
				stats.Suppressed++
			case OutcomeZeroAmount:
				stats.ZeroAmount++
			}
			stats.Transactions += len(txs)
			batch.Transactions = append(batch.Transactions, txs...)
		}

		a.logger.WithFields(logger.Fields{
			"batch_id":     batch.ID.String(),
			"file":         name,
			"kind":         profile.Kind,
			"rows":         stats.Rows,
			"transactions": stats.Transactions,
			"skipped":      stats.Skipped,
			"suppressed":   stats.Suppressed,
			"zero_amount":  stats.ZeroAmount,
		}).Info("Normalized statement file")

		batch.Files = append(batch.Files, stats)
		offset += len(lines) + FileIDGap
	}

	batch.Issues = append(batch.Issues, models.ValidateWorkingSet(batch.Transactions)...)
	if summary := batch.IssueSummary(); summary.Total > 0 {
		a.logger.WithFields(logger.Fields{
			"batch_id": batch.ID.String(),
			"issues":   summary.Total,
			"parse":    summary.ByCategory[errors.CategoryParse],
			"invalid":  summary.ByCategory[errors.CategoryValidation],
		}).Warn("Assembled batch has issues")
	}

	return batch, nil
}

func delimiterName(d rune) string {
	if d == '\t' {
		return "tab"
	}
	return string(d)
}

// ReadSourceFiles reads files concurrently with at most maxConcurrency reads
// in flight. Results keep the order of paths.
func ReadSourceFiles(ctx context.Context, paths []string, maxConcurrency int) ([]SourceFile, error) {
	if maxConcurrency <= 0 {
		maxConcurrency = 1
	}

	files := make([]SourceFile, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrency)

	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			content, err := readFile(path)
			if err != nil {
				return err
			}
			files[i] = SourceFile{Name: path, Content: content}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}

func readFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		switch {
		case os.IsNotExist(err):
			return "", errors.FileError(errors.CodeFileNotFound, path, err)
		case os.IsPermission(err):
			return "", errors.FileError(errors.CodeFilePermission, path, err)
		default:
			return "", errors.FileError(errors.CodeFileCorrupted, path, fmt.Errorf("read failed: %w", err))
		}
	}
	return string(data), nil
}
