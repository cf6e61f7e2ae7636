package exports

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"math"
	"os"
	"strconv"

	"github.com/icza/mjpeg"
	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"spreadsim/pkg/domain"
)

const (
	chartWidth  = 960
	chartHeight = 480

	frameRate    = 10
	frameMargin  = 8
	captionBand  = 18
	maxFrameSide = 480
	jpegQuality  = 90
)

var categoryColors = map[domain.Category]drawing.Color{
	domain.CategorySusceptible:  {R: 70, G: 110, B: 200, A: 255},
	domain.CategorySymptomatic:  {R: 215, G: 40, B: 40, A: 255},
	domain.CategoryAsymptomatic: {R: 255, G: 165, B: 0, A: 255},
	domain.CategorySelfCured:    {R: 40, G: 160, B: 70, A: 255},
	domain.CategoryQuarantined:  {R: 120, G: 120, B: 120, A: 255},
}

func materialize(format Format, run domain.Run, frames []domain.Snapshot) (renderedArtifact, error) {
	var (
		payload     []byte
		contentType string
		meta        = map[string]any{"run": run.ID, "ticks": run.Ticks}
		err         error
	)
	switch format {
	case FormatJSON:
		contentType = "application/json"
		payload, err = json.MarshalIndent(run, "", "  ")
		if err != nil {
			return renderedArtifact{}, fmt.Errorf("marshal json: %w", err)
		}
	case FormatCSV:
		contentType = "text/csv"
		payload, err = buildCSV(run)
		meta["rows"] = len(run.Series)
	case FormatPNG:
		contentType = "image/png"
		payload, err = buildChart(run)
	case FormatAVI:
		contentType = "video/x-msvideo"
		payload, err = buildAnimation(run.Grid, frames)
		meta["frames"] = len(frames)
	default:
		return renderedArtifact{}, fmt.Errorf("unsupported export format %s", format)
	}
	if err != nil {
		return renderedArtifact{}, fmt.Errorf("render %s: %w", format, err)
	}
	return renderedArtifact{
		Artifact: ExportArtifact{
			Format:      format,
			ContentType: contentType,
			SizeBytes:   int64(len(payload)),
			Metadata:    meta,
		},
		Payload: payload,
	}, nil
}

var csvHeader = []string{
	"tick",
	string(domain.CategorySusceptible),
	string(domain.CategorySymptomatic),
	string(domain.CategoryAsymptomatic),
	string(domain.CategorySelfCured),
	string(domain.CategoryQuarantined),
	"new_infections",
	"new_quarantines",
	"new_cures",
	"infections_caused",
}

func buildCSV(run domain.Run) ([]byte, error) {
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, s := range run.Series {
		row := []string{
			strconv.Itoa(s.Tick),
			strconv.Itoa(s.Counts.Susceptible),
			strconv.Itoa(s.Counts.Symptomatic),
			strconv.Itoa(s.Counts.Asymptomatic),
			strconv.Itoa(s.Counts.SelfCured),
			strconv.Itoa(s.Counts.Quarantined),
			strconv.Itoa(s.NewInfections),
			strconv.Itoa(s.NewQuarantines),
			strconv.Itoa(s.NewCures),
			strconv.Itoa(s.InfectionsCaused),
		}
		if err := writer.Write(row); err != nil {
			return nil, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// buildChart plots one line per category over the run's ticks.
func buildChart(run domain.Run) ([]byte, error) {
	if len(run.Series) == 0 {
		return nil, fmt.Errorf("run %s has no tick series", run.ID)
	}
	xs := make([]float64, len(run.Series))
	for i, s := range run.Series {
		xs[i] = float64(s.Tick)
	}
	xMax := math.Max(1, xs[len(xs)-1])
	yMax := math.Max(1, float64(run.Series[0].Counts.Total()))

	series := make([]chart.Series, 0, len(domain.Categories()))
	for _, c := range domain.Categories() {
		ys := make([]float64, len(run.Series))
		for i, s := range run.Series {
			ys[i] = float64(s.Counts.Of(c))
		}
		series = append(series, chart.ContinuousSeries{
			Name:    string(c),
			XValues: xs,
			YValues: ys,
			Style: chart.Style{
				StrokeColor: categoryColors[c],
				StrokeWidth: 2.0,
			},
		})
	}

	graph := chart.Chart{
		Title:  run.Name,
		Width:  chartWidth,
		Height: chartHeight,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: chart.XAxis{
			Name:  "tick",
			Range: &chart.ContinuousRange{Min: 0, Max: xMax},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return strconv.Itoa(int(f))
				}
				return ""
			},
		},
		YAxis: chart.YAxis{
			Name:  "agents",
			Range: &chart.ContinuousRange{Min: 0, Max: yMax},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return strconv.Itoa(int(f))
				}
				return ""
			},
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	buf := &bytes.Buffer{}
	if err := graph.Render(chart.PNG, buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// buildAnimation encodes each frame as a JPEG and muxes them into an MJPEG AVI.
func buildAnimation(grid domain.Grid, frames []domain.Snapshot) ([]byte, error) {
	if len(frames) == 0 {
		return nil, fmt.Errorf("avi export requires captured frames; rerun with a frame interval")
	}
	if err := grid.Validate(); err != nil {
		return nil, err
	}
	scale := frameScale(grid)
	width := grid.Width*scale + 2*frameMargin
	height := grid.Height*scale + 2*frameMargin + captionBand

	tmp, err := os.CreateTemp("", "spreadsim-*.avi")
	if err != nil {
		return nil, err
	}
	path := tmp.Name()
	_ = tmp.Close()
	defer func() { _ = os.Remove(path) }()

	writer, err := mjpeg.New(path, int32(width), int32(height), frameRate)
	if err != nil {
		return nil, fmt.Errorf("create mjpeg writer: %w", err)
	}
	var buf bytes.Buffer
	for _, frame := range frames {
		img := drawFrame(grid, scale, width, height, frame)
		buf.Reset()
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
			_ = writer.Close()
			return nil, fmt.Errorf("encode frame %d: %w", frame.Tick, err)
		}
		if err := writer.AddFrame(buf.Bytes()); err != nil {
			_ = writer.Close()
			return nil, fmt.Errorf("add frame %d: %w", frame.Tick, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close mjpeg writer: %w", err)
	}
	return os.ReadFile(path)
}

func frameScale(grid domain.Grid) int {
	side := grid.Width
	if grid.Height > side {
		side = grid.Height
	}
	scale := maxFrameSide / side
	if scale < 1 {
		return 1
	}
	if scale > 16 {
		return 16
	}
	return scale
}

func drawFrame(grid domain.Grid, scale, width, height int, frame domain.Snapshot) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{color.White}, image.Point{}, draw.Src)

	top := captionBand + frameMargin
	border := color.RGBA{R: 200, G: 200, B: 200, A: 255}
	field := image.Rect(frameMargin, top, frameMargin+grid.Width*scale+1, top+grid.Height*scale+1)
	drawOutline(img, field, border)

	dot := scale / 2
	if dot < 1 {
		dot = 1
	}
	for _, c := range domain.Categories() {
		col := categoryColors[c]
		fill := &image.Uniform{color.RGBA{R: col.R, G: col.G, B: col.B, A: col.A}}
		for _, p := range frame.Positions[c] {
			x := frameMargin + int(math.Round(p.X*float64(scale)))
			// Image rows grow downwards; grid y grows upwards.
			y := top + grid.Height*scale - int(math.Round(p.Y*float64(scale)))
			draw.Draw(img, image.Rect(x-dot, y-dot, x+dot+1, y+dot+1), fill, image.Point{}, draw.Src)
		}
	}

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.Black),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(frameMargin, captionBand-4),
	}
	d.DrawString(fmt.Sprintf("tick %d  agents %d", frame.Tick, frame.Len()))
	return img
}

func drawOutline(img *image.RGBA, r image.Rectangle, c color.Color) {
	for x := r.Min.X; x < r.Max.X; x++ {
		img.Set(x, r.Min.Y, c)
		img.Set(x, r.Max.Y-1, c)
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		img.Set(r.Min.X, y, c)
		img.Set(r.Max.X-1, y, c)
	}
}
