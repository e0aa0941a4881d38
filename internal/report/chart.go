package report

import (
	"fmt"
	"html/template"
	"strings"

	"example.com/ticketsales/internal/domain"
)

const (
	chartBarWidth  = 28
	chartGroupGap  = 24
	chartPlotH     = 240
	chartMarginL   = 56
	chartMarginTop = 40
	chartLabelH    = 110
)

type chartBar struct {
	X, Y, W, H int
	Value      int
	Class      string
}

type chartGroup struct {
	Label  string
	LabelX int
	Bars   []chartBar
}

type chartTick struct {
	Y     int
	Value int
}

type chartData struct {
	Title         string
	Width, Height int
	PlotLeft      int
	PlotTop       int
	PlotBottom    int
	PlotRight     int
	Groups        []chartGroup
	Ticks         []chartTick
}

// Chart draws issued against remaining tickets per event as an inline SVG.
// Negative remaining counts are drawn as empty bars.
func (r *Renderer) Chart(v *domain.Venue) (template.HTML, error) {
	events := v.Events()
	maxVal := 1
	for _, es := range events {
		s := es.Summary()
		maxVal = max(maxVal, s.TotalIssuedTickets, s.RemainingTickets)
	}
	maxVal = niceCeil(maxVal)

	groupW := 2*chartBarWidth + chartGroupGap
	width := chartMarginL + len(events)*groupW + chartGroupGap
	bottom := chartMarginTop + chartPlotH

	data := chartData{
		Title:      fmt.Sprintf("%s: Sold vs Available", v.Name()),
		Width:      max(width, 320),
		Height:     bottom + chartLabelH,
		PlotLeft:   chartMarginL,
		PlotTop:    chartMarginTop,
		PlotBottom: bottom,
		PlotRight:  max(width, 320) - chartGroupGap/2,
	}
	for i := 0; i <= 4; i++ {
		val := maxVal * i / 4
		data.Ticks = append(data.Ticks, chartTick{Y: bottom - scale(val, maxVal), Value: val})
	}

	for i, es := range events {
		s := es.Summary()
		x := chartMarginL + chartGroupGap + i*groupW
		bar := func(x, val int, class string) chartBar {
			h := scale(max(val, 0), maxVal)
			return chartBar{X: x, Y: bottom - h, W: chartBarWidth, H: h, Value: val, Class: class}
		}
		data.Groups = append(data.Groups, chartGroup{
			Label:  r.displayName(es.Name()),
			LabelX: x + chartBarWidth,
			Bars: []chartBar{
				bar(x, s.TotalIssuedTickets, "sold"),
				bar(x+chartBarWidth, s.RemainingTickets, "available"),
			},
		})
	}

	var b strings.Builder
	if err := r.chart.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render chart: %w", err)
	}
	return template.HTML(b.String()), nil
}

func scale(val, maxVal int) int {
	return val * chartPlotH / maxVal
}

// niceCeil returns the smallest 4*step >= n where step is 1, 2 or 5 times a
// power of ten, so the four axis ticks land on readable values.
func niceCeil(n int) int {
	for pow := 1; ; pow *= 10 {
		for _, m := range []int{1, 2, 5} {
			if step := m * pow; 4*step >= n {
				return 4 * step
			}
		}
	}
}
