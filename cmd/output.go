package cmd

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	jsoniter "github.com/json-iterator/go"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
	"golang.org/x/term"

	"github.com/andresmejia3/willis/internal/overlay"
	"github.com/andresmejia3/willis/internal/store"
	"github.com/andresmejia3/willis/internal/willis"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const megabyte = 1024 * 1024

// maxImageSize bounds images read from disk.
const maxImageSize = 64 * megabyte

var (
	normalColor  = color.New(color.FgGreen, color.Bold)
	belowColor   = color.New(color.FgRed, color.Bold)
	cautionColor = color.New(color.FgYellow, color.Bold)
)

func stdoutIsTerminal() bool { return term.IsTerminal(int(os.Stdout.Fd())) }

func stderrIsTerminal() bool { return term.IsTerminal(int(os.Stderr.Fd())) }

// classColor picks the terminal color of a verdict.
func classColor(res willis.Result) *color.Color {
	switch {
	case res.IsNormal():
		return normalColor
	case res.Mode == willis.Frontal && res.Frontal == willis.BelowAverage:
		return belowColor
	}
	return cautionColor
}

func colorLabel(res willis.Result) string {
	return classColor(res).Sprint(res.Label())
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}

// newTable returns a right-aligned table with the given headers.
func newTable(w io.Writer, headers ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.Header(headers)
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})
	return table
}

func renderTable(table *tablewriter.Table, rows [][]string) error {
	defer func() { _ = table.Close() }()
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}

func px(v float64) string { return fmt.Sprintf("%.1f px", v) }

// resultRows lists the measurements that apply to res's mode and method.
func resultRows(res willis.Result) [][]string {
	t := res.Thresholds
	rows := [][]string{
		{"Mode", string(res.Mode)},
		{"Method", fmt.Sprintf("%s (%s confidence)", res.Method, res.Confidence)},
	}
	if res.Method == willis.MethodLandmarks {
		rows = append(rows, []string{"Symmetry", fmt.Sprintf("%.1f%% (%s)", res.Symmetry*100, res.Estimator)})
	}
	switch {
	case res.Mode == willis.Frontal:
		rows = append(rows,
			[]string{"Pupil-Mouth", px(res.PupilToMouth)},
			[]string{"Nose-Chin", px(res.NoseToChin)},
			[]string{"Willis ratio", fmt.Sprintf("%.3f", res.Ratio)},
			[]string{"Normal range", fmt.Sprintf("%.2f - %.2f", t.NormalRatioMin, t.NormalRatioMax)},
		)
	case res.Method == willis.MethodCascade:
		rows = append(rows,
			[]string{"Nose-Chin", px(res.NoseToChin)},
			[]string{"Eye-Chin", px(res.EyeToChin)},
			[]string{"Lateral ratio", fmt.Sprintf("%.3f", res.LateralRatio)},
			[]string{"Normal range", fmt.Sprintf("%.2f - %.2f", t.LateralRatioMin, t.LateralRatioMax)},
		)
	default:
		rows = append(rows,
			[]string{"Nose-Chin", px(res.NoseToChin)},
			[]string{"Jaw prominence", fmt.Sprintf("%.1f%% (normal %.0f-%.0f%%)", res.JawProminence, t.JawProminenceMin, t.JawProminenceMax)},
			[]string{"Chin angle", fmt.Sprintf("%.1f° (normal %.0f-%.0f°)", res.ChinAngle, t.ChinAngleMin, t.ChinAngleMax)},
		)
	}
	return rows
}

// writeResult prints one analysis as a table followed by the verdict.
func writeResult(w io.Writer, source string, res willis.Result) error {
	if source != "" {
		if _, err := fmt.Fprintf(w, "%s\n", source); err != nil {
			return err
		}
	}
	if err := renderTable(newTable(w, "Measurement", "Value"), resultRows(res)); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Result: %s\n", colorLabel(res))
	return err
}

// readImage loads an image file and checks that it decodes.
func readImage(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory, expected an image file", path)
	}
	if info.Size() > maxImageSize {
		return nil, fmt.Errorf("%s is too large (%d bytes)", path, info.Size())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("%s is not a supported image: %w", path, err)
	}
	return data, nil
}

// writeOverlay renders res onto the encoded image and writes it to path.
// The encoder follows the extension: .png, otherwise JPEG.
func writeOverlay(path string, data []byte, res willis.Result) error {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("decode image: %w", err)
	}
	img := overlay.ToRGBA(src)

	fonts := overlay.DefaultFontPaths
	if cfg != nil && cfg.Font != "" {
		fonts = append([]string{cfg.Font}, fonts...)
	}
	overlay.NewRenderer(overlay.NewTextRenderer(fonts...)).Render(img, res)

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		err = png.Encode(f, img)
	default:
		err = jpeg.Encode(f, img, &jpeg.Options{Quality: 95})
	}
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}

// saveResult persists res unless saving is disabled. Failures are logged,
// not returned, so one bad write does not abort a batch.
func saveResult(ctx context.Context, opts Options, source, session string, res willis.Result) {
	if opts.NoSave || DB == nil {
		return
	}
	rec, err := store.NewRecord(source, session, res)
	if err == nil {
		err = DB.SaveAnalysis(ctx, rec)
	}
	if err != nil {
		logrus.WithError(err).WithField("source", source).Warn("failed to save analysis")
	}
}

// newProgressBar writes to stderr, or discards when stderr is not a terminal.
func newProgressBar(total int, description string) *progressbar.ProgressBar {
	if total <= 0 {
		// Fallback to a spinner when the total is unknown
		total = -1
	}
	opts := []progressbar.Option{
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionThrottle(65 * time.Millisecond),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(os.Stderr) }),
	}
	if !stderrIsTerminal() {
		opts = append(opts, progressbar.OptionSetVisibility(false))
	}
	return progressbar.NewOptions(total, opts...)
}

func fmtTime(seconds float64) string {
	duration := time.Duration(seconds * float64(time.Second))
	h := int(duration.Hours())
	m := int(duration.Minutes()) % 60
	s := int(duration.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
