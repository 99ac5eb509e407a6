package cmd

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/andresmejia3/willis/internal/report"
	"github.com/andresmejia3/willis/internal/types"
	"github.com/andresmejia3/willis/internal/utils"
	"github.com/andresmejia3/willis/internal/willis"
	"github.com/andresmejia3/willis/internal/worker"
)

var (
	scanOpts   Options
	scanNth    int
	scanWindow int
	scanReport string
)

var scanCmd = &cobra.Command{
	Use:   "scan <video>",
	Short: "Measure a video frame by frame and report the session statistics",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runScan(cmd.Context(), args[0], scanOpts)
	},
}

func init() {
	scanCmd.Flags().IntVarP(&scanNth, "nth-frame", "n", 10, "Measure every nth frame")
	scanCmd.Flags().IntVar(&scanWindow, "window", report.DefaultWindow, "Number of most recent frontal measurements kept for the summary")
	scanCmd.Flags().StringVarP(&scanReport, "report", "r", "", "Write the session report as JSON to this path")
	scanCmd.Flags().BoolVar(&scanOpts.NoSave, "no-save", false, "Do not store per-frame results")
	rootCmd.AddCommand(scanCmd)
}

// ScanReport is the JSON document written by --report.
type ScanReport struct {
	SessionID     string          `json:"session_id"`
	Video         string          `json:"video"`
	FPS           float64         `json:"fps"`
	FramesRead    int             `json:"frames_read"`
	FramesFrontal int             `json:"frames_frontal"`
	FramesProfile int             `json:"frames_profile"`
	FramesNoFace  int             `json:"frames_no_face"`
	FramesFailed  int             `json:"frames_failed"`
	Summary       *report.Summary `json:"summary,omitempty"`
}

// frameAggregator releases worker results in frame order. Workers finish
// out of order, so early arrivals wait in pending.
type frameAggregator struct {
	next    int
	pending map[int]types.FrameResult
}

func newFrameAggregator() *frameAggregator {
	return &frameAggregator{pending: make(map[int]types.FrameResult)}
}

// Push adds r and returns every result that is now in sequence.
func (a *frameAggregator) Push(r types.FrameResult) []types.FrameResult {
	a.pending[r.Index] = r
	var ready []types.FrameResult
	for {
		next, ok := a.pending[a.next]
		if !ok {
			return ready
		}
		delete(a.pending, a.next)
		ready = append(ready, next)
		a.next++
	}
}

// Drain returns whatever is still pending, in index order. Gaps are left
// by frames dropped on cancellation.
func (a *frameAggregator) Drain() []types.FrameResult {
	idx := make([]int, 0, len(a.pending))
	for i := range a.pending {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	out := make([]types.FrameResult, 0, len(idx))
	for _, i := range idx {
		out = append(out, a.pending[i])
		delete(a.pending, i)
	}
	return out
}

// scanSession accumulates in-order frame results.
type scanSession struct {
	report  ScanReport
	history *report.History
	nth     int
	save    func(frame int, res willis.Result)
}

// record handles one frame. It returns an error only when the scan cannot
// continue.
func (s *scanSession) record(r types.FrameResult) error {
	frame := r.Index * s.nth
	s.report.FramesRead++
	if r.Err != nil {
		var crash *worker.CrashError
		switch {
		case errors.Is(r.Err, worker.ErrNoFace):
			s.report.FramesNoFace++
		case errors.Is(r.Err, worker.ErrPoolExhausted), errors.Is(r.Err, context.Canceled):
			return r.Err
		case errors.As(r.Err, &crash):
			s.report.FramesFailed++
			logrus.WithError(r.Err).WithField("frame", frame).Warn("worker crashed on frame")
		default:
			s.report.FramesFailed++
			logrus.WithError(r.Err).WithField("frame", frame).Debug("frame not measured")
		}
		return nil
	}

	if s.history.Add(r.Result) {
		s.report.FramesFrontal++
	} else {
		s.report.FramesProfile++
	}
	if s.save != nil {
		s.save(frame, r.Result)
	}
	if s.report.FPS > 0 {
		logrus.WithFields(logrus.Fields{
			"t":     fmtTime(float64(frame) / s.report.FPS),
			"ratio": fmt.Sprintf("%.3f", r.Result.Ratio),
		}).Trace(r.Result.Label())
	}
	return nil
}

// finish fills in the summary when any frontal frame was measured.
func (s *scanSession) finish() {
	if sum, err := s.history.Summary(); err == nil {
		s.report.Summary = &sum
	}
}

func runScan(ctx context.Context, path string, opts Options) error {
	if err := validateScanFlags(path, scanNth, scanWindow); err != nil {
		return err
	}

	// Cancel on early return so FFmpeg and the workers stop with us.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if id, err := utils.GenerateFileID(path); err == nil {
		logrus.WithField("video_id", id[:12]).Debug("processing video")
	}
	fps := utils.GetVideoFPS(path)
	total := utils.GetTotalFrames(path)
	if total > 0 {
		total = (total + scanNth - 1) / scanNth
	}

	p, pool, err := newPipeline(ctx, cfg.Workers, false)
	if err != nil {
		return err
	}
	defer pool.Close()

	session := &scanSession{
		report:  ScanReport{SessionID: ulid.Make().String(), Video: path, FPS: fps},
		history: report.NewHistory(scanWindow),
		nth:     scanNth,
	}
	if !opts.NoSave {
		session.save = func(frame int, res willis.Result) {
			saveResult(ctx, opts, fmt.Sprintf("%s#%d", path, frame), session.report.SessionID, res)
		}
	}
	fmt.Fprintf(os.Stderr, "Session %s: %d landmark workers, every %d frame(s)\n", session.report.SessionID, cfg.Workers, scanNth)

	bar := newProgressBar(total, "Scanning")

	tasks := make(chan types.FrameTask, cfg.Workers)
	results := p.Run(ctx, tasks, cfg.Workers)

	// Start Aggregator (Consumer)
	// Must run concurrently so workers never block on a full results channel
	aggDone := make(chan error, 1)
	go func() {
		agg := newFrameAggregator()
		var fatal error
		handle := func(r types.FrameResult) {
			if fatal != nil {
				return
			}
			if err := session.record(r); err != nil {
				fatal = err
				cancel()
			}
		}
		for r := range results {
			_ = bar.Add(1)
			for _, ready := range agg.Push(r) {
				handle(ready)
			}
		}
		for _, r := range agg.Drain() {
			handle(r)
		}
		aggDone <- fatal
	}()

	readErr := streamFrames(ctx, path, scanNth, tasks)
	close(tasks)
	fatal := <-aggDone
	_ = bar.Finish()

	switch {
	case fatal != nil:
		return fatal
	case readErr != nil:
		return readErr
	}

	session.finish()
	fmt.Fprintf(os.Stderr, "Scan complete. Measured %d frontal and %d profile frames of %d sampled.\n",
		session.report.FramesFrontal, session.report.FramesProfile, session.report.FramesRead)

	if scanReport != "" {
		if err := writeReportFile(scanReport, session.report); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Report saved to %s\n", scanReport)
	}
	return writeScanSummary(os.Stdout, session.report)
}

// streamFrames decodes path with FFmpeg and sends every emitted frame to
// tasks, numbered from 0.
func streamFrames(ctx context.Context, path string, nth int, tasks chan<- types.FrameTask) error {
	ffmpeg := utils.NewFFmpegCmd(path, nth)
	var stderrBuf bytes.Buffer
	ffmpeg.Stderr = &stderrBuf

	ffmpegOut, err := ffmpeg.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create FFmpeg stdout pipe: %w", err)
	}
	if err := ffmpeg.Start(); err != nil {
		return fmt.Errorf("failed to start FFmpeg: %w", err)
	}
	defer ffmpegOut.Close() // Ensure pipe is closed to prevent leaks/zombies

	scanner := bufio.NewScanner(ffmpegOut)
	scanner.Buffer(make([]byte, megabyte), 64*megabyte)
	scanner.Split(utils.SplitJpeg)

	sent := 0
	var sendErr error
	for scanner.Scan() {
		task := types.FrameTask{Index: sent, Data: bytes.Clone(scanner.Bytes())}
		select {
		case tasks <- task:
			sent++
			continue
		case <-ctx.Done():
			sendErr = ctx.Err()
		}
		break
	}

	if sendErr != nil {
		_ = ffmpeg.Process.Kill()
		_ = ffmpeg.Wait()
		return sendErr
	}
	// Check for scanner errors (e.g. token too long, unexpected EOF)
	if err := scanner.Err(); err != nil {
		_ = ffmpeg.Process.Kill()
		_ = ffmpeg.Wait()
		return fmt.Errorf("frame scanner failed: %w", err)
	}
	if err := ffmpeg.Wait(); err != nil {
		if stderrBuf.Len() > 0 {
			logrus.Errorf("FFmpeg Logs:\n%s", stderrBuf.String())
		}
		return fmt.Errorf("FFmpeg execution failed: %w", err)
	}
	logrus.WithField("frames", sent).Debug("ffmpeg finished")
	return nil
}

// validateScanFlags ensures all CLI arguments are valid before starting heavy processes.
func validateScanFlags(path string, nth, window int) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("input file does not exist: %w", err)
		}
		return fmt.Errorf("unable to access input file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("input path is a directory, expected a video file")
	}
	if nth < 1 {
		return fmt.Errorf("invalid nth-frame interval: must be >= 1, got %d", nth)
	}
	if window < 1 {
		return fmt.Errorf("invalid window: must be >= 1, got %d", window)
	}
	return nil
}

func writeReportFile(path string, r ScanReport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer f.Close()
	if err := writeJSON(f, r); err != nil {
		return err
	}
	return f.Close()
}

func writeScanSummary(w io.Writer, r ScanReport) error {
	fmt.Fprintf(w, "\n---------------------------------------------------------\n")
	fmt.Fprintf(w, "SESSION SUMMARY %s\n", r.SessionID)
	fmt.Fprintf(w, "---------------------------------------------------------\n")
	if r.Summary == nil {
		_, err := fmt.Fprintf(w, "No frontal measurements (profile %d, no face %d, failed %d).\n",
			r.FramesProfile, r.FramesNoFace, r.FramesFailed)
		return err
	}
	return writeSummary(w, *r.Summary)
}

// writeSummary prints the statistics and class distribution of a session.
func writeSummary(w io.Writer, s report.Summary) error {
	rows := [][]string{
		{"Pupil-Mouth", fmt.Sprintf("%.1f", s.PupilToMouth.Mean), fmt.Sprintf("%.1f", s.PupilToMouth.Std), "", ""},
		{"Nose-Chin", fmt.Sprintf("%.1f", s.NoseToChin.Mean), fmt.Sprintf("%.1f", s.NoseToChin.Std), "", ""},
		{"Ratio", fmt.Sprintf("%.3f", s.Ratio.Mean), fmt.Sprintf("%.3f", s.Ratio.Std), fmt.Sprintf("%.3f", s.Ratio.Min), fmt.Sprintf("%.3f", s.Ratio.Max)},
	}
	if err := renderTable(newTable(w, "Measurement", "Mean", "Std", "Min", "Max"), rows); err != nil {
		return err
	}

	classRows := make([][]string, 0, len(s.Classes))
	for _, c := range []willis.FrontalClass{willis.BelowAverage, willis.Normal, willis.AboveAverage} {
		cc := s.Classes[c]
		classRows = append(classRows, []string{c.Label(), fmt.Sprintf("%d", cc.Count), fmt.Sprintf("%.1f%%", cc.Percentage)})
	}
	if err := renderTable(newTable(w, "Class", "Frames", "Share"), classRows); err != nil {
		return err
	}

	rec := cautionColor.Sprint(s.Recommendation)
	if s.IsNormal() {
		rec = normalColor.Sprint(s.Recommendation)
	}
	_, err := fmt.Fprintf(w, "Frames: %d (%s)\nRecommendation: %s\nGenerated: %s\n",
		s.Frames, s.NormalCriteria, rec, s.GeneratedAt.Format(time.RFC3339))
	return err
}
