package queueservice

import (
	"bytes"
	"context"
	"time"

	matchservice "github.com/42core-team/arena/app/modules/match/application"
	sharedtypes "github.com/42core-team/arena/app/shared/types"
	"github.com/42core-team/arena/pkg/rating"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

const noHistoryMessage = "No queue matches played yet"

var (
	chartBackground = drawing.ColorFromHex("1e1e2e")
	chartLine       = drawing.ColorFromHex("89b4fa")
	chartDot        = drawing.ColorFromHex("a6e3a1")
	chartText       = drawing.ColorFromHex("cdd6f4")
)

// RatingHistory returns a team's queue rating after each finished queue match.
func (s *QueueService) RatingHistory(ctx context.Context, teamID sharedtypes.TeamID) ([]matchservice.RatingPoint, error) {
	return withTelemetry(s, ctx, "RatingHistory", teamID.String(), func(ctx context.Context) ([]matchservice.RatingPoint, error) {
		if _, err := s.store.GetTeam(ctx, nil, teamID); err != nil {
			return nil, err
		}
		return s.games.QueueRatingHistory(ctx, teamID)
	})
}

func (s *QueueService) RenderRatingChart(ctx context.Context, teamID sharedtypes.TeamID) ([]byte, error) {
	history, err := s.RatingHistory(ctx, teamID)
	if err != nil {
		return nil, err
	}
	return withTelemetry(s, ctx, "RenderRatingChart", teamID.String(), func(ctx context.Context) ([]byte, error) {
		return RatingChartPNG(history)
	})
}

// RatingChartPNG draws rating over time. The series starts at the initial
// rating just before the first match so a single match still has a slope.
// Without history it draws the flat initial rating and a notice.
func RatingChartPNG(history []matchservice.RatingPoint) ([]byte, error) {
	var xValues []time.Time
	var yValues []float64
	var elements []chart.Renderable

	if len(history) == 0 {
		now := time.Now()
		xValues = []time.Time{now.Add(-time.Hour), now}
		yValues = []float64{rating.Initial, rating.Initial}
		elements = append(elements, noHistoryNotice)
	} else {
		xValues = append(xValues, history[0].PlayedAt.Add(-time.Minute))
		yValues = append(yValues, rating.Initial)
		for _, p := range history {
			xValues = append(xValues, p.PlayedAt)
			yValues = append(yValues, float64(p.Rating))
		}
	}

	lo, hi := yValues[0], yValues[0]
	for _, v := range yValues {
		lo = min(lo, v)
		hi = max(hi, v)
	}

	series := chart.TimeSeries{
		Name:    "Queue Rating",
		XValues: xValues,
		YValues: yValues,
		Style: chart.Style{
			StrokeColor: chartLine,
			StrokeWidth: 2,
			DotWidth:    4,
			DotColor:    chartDot,
		},
	}

	graph := chart.Chart{
		Width:  800,
		Height: 400,
		Background: chart.Style{
			FillColor: chartBackground,
		},
		Canvas: chart.Style{
			FillColor: chartBackground,
		},
		XAxis: chart.XAxis{
			Name:           "Played",
			ValueFormatter: chart.TimeValueFormatterWithFormat("01-02 15:04"),
			Style: chart.Style{
				FontColor: chartText,
			},
		},
		YAxis: chart.YAxis{
			Name: "Rating",
			Style: chart.Style{
				FontColor: chartText,
			},
			Range: &chart.ContinuousRange{
				Min: lo - rating.KFactor,
				Max: hi + rating.KFactor,
			},
		},
		Series:   []chart.Series{series},
		Elements: elements,
	}

	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

func noHistoryNotice(r chart.Renderer, cb chart.Box, _ chart.Style) {
	r.SetFontColor(chartText)
	r.SetFontSize(12.0)
	tb := r.MeasureText(noHistoryMessage)
	x := cb.Left + (cb.Width()-tb.Width())/2
	y := cb.Top + (cb.Height()+tb.Height())/2
	r.Text(noHistoryMessage, x, y)
}
