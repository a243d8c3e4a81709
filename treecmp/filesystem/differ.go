package filesystem

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"

	"github.com/ZanzyTHEbar/treecmp/treecmp/filesystem/common"
	"github.com/ZanzyTHEbar/treecmp/treecmp/filesystem/filter"
	"github.com/ZanzyTHEbar/treecmp/treecmp/filesystem/options"
	"github.com/ZanzyTHEbar/treecmp/treecmp/trees"
)

// ComparisonResult is the outcome of one comparison run. Interrupted marks a
// run stopped by its context: the report is partial and HasDifferences is set.
type ComparisonResult struct {
	RunID          uuid.UUID                  `json:"run_id" yaml:"run_id"`
	LeftRoot       string                     `json:"left_root" yaml:"left_root"`
	RightRoot      string                     `json:"right_root" yaml:"right_root"`
	StartedAt      time.Time                  `json:"started_at" yaml:"started_at"`
	Duration       time.Duration              `json:"duration" yaml:"duration"`
	HasDifferences bool                       `json:"has_differences" yaml:"has_differences"`
	Interrupted    bool                       `json:"interrupted,omitempty" yaml:"interrupted,omitempty"`
	Report         *trees.DirectoryDiffReport `json:"report" yaml:"report"`
	Stats          common.Snapshot            `json:"stats" yaml:"stats"`
}

// TreeDiffer compares two directory trees level by level on a bounded
// worker pool. It holds no per-run state and may be reused.
type TreeDiffer struct {
	opts       options.CompareOptions
	filter     *filter.Filter
	validator  *common.ValidationUtils
	maxWorkers int
}

// pairTask is one directory pair waiting to be classified.
type pairTask struct {
	report     *trees.DirectoryDiffReport
	depth      int
	leftChain  []fileID // identities of this directory and its ancestors
	rightChain []fileID
}

// fileTask is one common file pair waiting to be read; diffs is its result slot.
type fileTask struct {
	report      *trees.DirectoryDiffReport
	name        string
	diffs       []trees.FileDifference
	interrupted bool
}

// NewTreeDiffer creates a differ. Invalid exclude patterns are reported as
// common.ErrInvalidInput.
func NewTreeDiffer(opts options.CompareOptions) (*TreeDiffer, error) {
	f, err := filter.New(opts.Exclude, opts.IgnoreFile)
	if err != nil {
		return nil, err
	}
	if opts.BlockSize <= 0 {
		return nil, fmt.Errorf("%w: block size must be positive, got %d", common.ErrInvalidInput, opts.BlockSize)
	}
	return &TreeDiffer{
		opts:       opts,
		filter:     f,
		validator:  common.NewValidationUtils(),
		maxWorkers: opts.EffectiveWorkers(),
	}, nil
}

// Compare reports whether the trees under rootLeft and rootRight differ,
// together with the full report. Only an invalid root or cancellation of
// ctx produce an error; on cancellation the partial report is returned too
// and the trees are reported as differing.
func (d *TreeDiffer) Compare(ctx context.Context, rootLeft, rootRight string) (bool, *trees.DirectoryDiffReport, error) {
	result, err := d.Run(ctx, rootLeft, rootRight)
	if result == nil {
		return false, nil, err
	}
	return result.HasDifferences, result.Report, err
}

// Run performs a comparison and returns the report with run metadata.
func (d *TreeDiffer) Run(ctx context.Context, rootLeft, rootRight string) (*ComparisonResult, error) {
	if err := d.validator.ValidateRoot(rootLeft); err != nil {
		return nil, err
	}
	if err := d.validator.ValidateRoot(rootRight); err != nil {
		return nil, err
	}

	f, err := d.filter.LoadIgnoreFiles(rootLeft, rootRight)
	if err != nil {
		return nil, err
	}

	result := &ComparisonResult{
		RunID:     uuid.New(),
		LeftRoot:  rootLeft,
		RightRoot: rootRight,
		StartedAt: time.Now(),
	}
	logger := d.opts.Logger.With().Str("run_id", result.RunID.String()).Logger()
	metrics := common.NewComparisonMetrics()

	logger.Info().
		Str("left", rootLeft).
		Str("right", rootRight).
		Int("workers", d.maxWorkers).
		Int("max_depth", d.opts.MaxDepth).
		Bool("compare_times", d.opts.CompareTimes).
		Msg("Comparison started")

	root := trees.NewDirectoryDiffReport(trees.RootRelPath, rootLeft, rootRight)
	w := &walk{
		differ:     d,
		logger:     logger,
		metrics:    metrics,
		classifier: NewEntryClassifier(f, logger),
		reader:     NewMetadataReader(d.opts.BlockSize, metrics),
		policy:     d.opts.Policy(),
	}
	runErr := w.run(ctx, root)

	result.Interrupted = runErr != nil
	result.HasDifferences = root.Aggregate() || result.Interrupted
	result.Report = root
	metrics.Finish()
	result.Stats = metrics.Snapshot()
	result.Duration = result.Stats.Duration

	logLevel := zerolog.InfoLevel
	if runErr != nil {
		logLevel = zerolog.WarnLevel
	}
	logger.WithLevel(logLevel).
		Err(runErr).
		Bool("has_differences", result.HasDifferences).
		Bool("interrupted", result.Interrupted).
		Int64("dir_pairs", result.Stats.DirPairsVisited).
		Int64("files_compared", result.Stats.FilesCompared).
		Int64("bytes_hashed", result.Stats.BytesHashed).
		Int64("entry_errors", result.Stats.EntryErrors).
		Str("duration", common.NewTimeUtils().FormatDuration(result.Duration)).
		Msg("Comparison finished")

	return result, runErr
}

// walk carries the state of a single run.
type walk struct {
	differ     *TreeDiffer
	logger     zerolog.Logger
	metrics    *common.ComparisonMetrics
	classifier *EntryClassifier
	reader     *MetadataReader
	policy     trees.EqualityPolicy
}

// run processes the trees breadth first. Each level is classified on one
// pool, then its common files are read on a second pool; tasks write only
// their own result slot and the report is assembled between the two.
func (w *walk) run(ctx context.Context, root *trees.DirectoryDiffReport) error {
	leftID, rightID := rootIDs(root.LeftPath), rootIDs(root.RightPath)
	level := []*pairTask{{
		report:     root,
		leftChain:  leftID,
		rightChain: rightID,
	}}

	for depth := 0; len(level) > 0; depth++ {
		if err := w.differ.validator.ValidateContextCancellation(ctx); err != nil {
			return err
		}

		classified, listErrs := w.classifyLevel(ctx, level)

		var files []*fileTask
		var next []*pairTask
		for i, task := range level {
			if err := listErrs[i]; err != nil {
				if ctx.Err() != nil {
					continue
				}
				w.metrics.AddDirPair()
				w.metrics.AddEntryError()
				task.report.ListError = err.Error()
				w.logger.Warn().Err(err).Str("path", task.report.RelPath).Msg("Failed to list directory pair")
				continue
			}
			w.metrics.AddDirPair()

			c := classified[i]
			w.guardCycles(task, c)
			w.apply(task.report, c)

			for _, name := range c.Classification.CommonFiles {
				files = append(files, &fileTask{report: task.report, name: name})
			}
			next = append(next, w.descend(task, c)...)
		}

		w.readLevel(ctx, files)
		for _, ft := range files {
			if ft.interrupted {
				continue
			}
			ft.report.Files[ft.name] = ft.diffs
		}

		w.logger.Debug().
			Int("depth", depth).
			Int("dir_pairs", len(level)).
			Int("common_files", len(files)).
			Msg("Level compared")

		level = next
	}

	return ctx.Err()
}

func (w *walk) classifyLevel(ctx context.Context, level []*pairTask) ([]*Classified, []error) {
	classified := make([]*Classified, len(level))
	errs := make([]error, len(level))

	p := pool.New().WithMaxGoroutines(w.differ.maxWorkers).WithContext(ctx)
	for i, task := range level {
		p.Go(func(ctx context.Context) error {
			r := task.report
			classified[i], errs[i] = w.classifier.ClassifyAt(ctx, r.RelPath, r.LeftPath, r.RightPath)
			return nil
		})
	}
	_ = p.Wait()

	return classified, errs
}

func (w *walk) readLevel(ctx context.Context, files []*fileTask) {
	if len(files) == 0 {
		return
	}
	p := pool.New().WithMaxGoroutines(w.differ.maxWorkers).WithContext(ctx)
	for _, ft := range files {
		p.Go(func(ctx context.Context) error {
			w.compareFile(ctx, ft)
			return nil
		})
	}
	_ = p.Wait()
}

// compareFile reads both sides of a common file and fills ft's result slot.
func (w *walk) compareFile(ctx context.Context, ft *fileTask) {
	leftPath := filepath.Join(ft.report.LeftPath, ft.name)
	rightPath := filepath.Join(ft.report.RightPath, ft.name)

	left, leftErr := w.read(ctx, leftPath)
	right, rightErr := w.read(ctx, rightPath)

	if ctx.Err() != nil && (leftErr != nil || rightErr != nil) {
		ft.interrupted = true
		return
	}

	switch {
	case leftErr != nil && rightErr != nil:
		ft.diffs = []trees.FileDifference{trees.NewReadFailure(trees.SideBoth, errors.Join(leftErr, rightErr))}
	case leftErr != nil:
		ft.diffs = []trees.FileDifference{trees.NewReadFailure(trees.SideLeft, leftErr)}
	case rightErr != nil:
		ft.diffs = []trees.FileDifference{trees.NewReadFailure(trees.SideRight, rightErr)}
	default:
		w.metrics.AddFilePair()
		ft.diffs = trees.DiffFiles(left, right, w.policy)
		return
	}

	w.metrics.AddEntryError()
	w.logger.Warn().
		Str("path", ft.report.ChildRelPath(ft.name)).
		Str("error", ft.diffs[0].Error).
		Msg("Failed to read file metadata")
}

// read applies the per-file timeout around a metadata read.
func (w *walk) read(ctx context.Context, path string) (trees.FileMetadata, error) {
	if timeout := w.differ.opts.ReadTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return w.reader.Read(ctx, path)
}

// apply copies a classification into the report of its directory pair.
func (w *walk) apply(report *trees.DirectoryDiffReport, c *Classified) {
	report.Classification = c.Classification
	report.OnlyLeftEntries = c.OnlyLeft
	report.OnlyRightEntries = c.OnlyRight
	report.InaccessibleEntries = c.Inaccessible
	if n := len(c.Inaccessible); n > 0 {
		w.logger.Debug().Str("path", report.RelPath).Int("inaccessible", n).Msg("Inaccessible entries recorded")
	}
}

// guardCycles moves common directories that lead back to one of their own
// ancestors into the inaccessible set.
func (w *walk) guardCycles(task *pairTask, c *Classified) {
	for _, name := range slices.Clone(c.Classification.CommonDirs) {
		id := c.dirIDs[name]
		leftLoop := id.hasLeft && slices.Contains(task.leftChain, id.left)
		rightLoop := id.hasRight && slices.Contains(task.rightChain, id.right)
		if !leftLoop && !rightLoop {
			continue
		}

		side := trees.SideBoth
		dir := task.report.LeftPath
		switch {
		case leftLoop && !rightLoop:
			side = trees.SideLeft
		case rightLoop && !leftLoop:
			side = trees.SideRight
			dir = task.report.RightPath
		}
		err := &common.EntryError{Op: "descend", Path: filepath.Join(dir, name), Kind: common.ErrCycle}
		c.moveToInaccessible(name, side, err)
		w.metrics.AddEntryError()
		w.logger.Warn().Str("path", task.report.ChildRelPath(name)).Str("side", string(side)).Msg("Directory cycle detected")
	}
}

// descend creates child reports for the common directories of a pair and
// returns those still within the depth limit.
func (w *walk) descend(task *pairTask, c *Classified) []*pairTask {
	childDepth := task.depth + 1
	next := make([]*pairTask, 0, len(c.Classification.CommonDirs))

	for _, name := range c.Classification.CommonDirs {
		child := trees.NewDirectoryDiffReport(
			task.report.ChildRelPath(name),
			filepath.Join(task.report.LeftPath, name),
			filepath.Join(task.report.RightPath, name),
		)
		task.report.Subdirs[name] = child

		if !w.differ.opts.Unlimited() && childDepth > w.differ.opts.MaxDepth {
			child.Truncated = true
			continue
		}

		id := c.dirIDs[name]
		next = append(next, &pairTask{
			report:     child,
			depth:      childDepth,
			leftChain:  extendChain(task.leftChain, id.left, id.hasLeft),
			rightChain: extendChain(task.rightChain, id.right, id.hasRight),
		})
	}
	return next
}

func extendChain(chain []fileID, id fileID, ok bool) []fileID {
	if !ok {
		return chain
	}
	out := make([]fileID, len(chain), len(chain)+1)
	copy(out, chain)
	return append(out, id)
}

func rootIDs(path string) []fileID {
	info, err := os.Stat(path)
	if err != nil {
		return nil
	}
	if id, ok := fileIDOf(info); ok {
		return []fileID{id}
	}
	return nil
}
