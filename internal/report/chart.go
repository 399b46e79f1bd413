package report

import (
	"errors"
	"fmt"

	"github.com/go-analyze/charts"
	"gitlab.com/sgtreasury/tally/internal/models"
)

// ErrEmptyBudget is returned when no section has any allocated money.
var ErrEmptyBudget = errors.New("no allocated budget to chart")

// BudgetChart renders a PNG pie chart of allocated money per section.
func BudgetChart(clubName string, totals []models.SectionTotal) ([]byte, error) {
	var (
		values []float64
		labels []string
	)
	for _, t := range totals {
		if t.AllocatedCents <= 0 {
			continue
		}
		values = append(values, models.Dollars(t.AllocatedCents).InexactFloat64())
		labels = append(labels, fmt.Sprintf("%s (%s)", t.Title, models.FormatCents(t.AllocatedCents)))
	}
	if len(values) == 0 {
		return nil, ErrEmptyBudget
	}

	p, err := charts.PieRender(
		values,
		charts.TitleOptionFunc(charts.TitleOption{
			Text: fmt.Sprintf("%s budget", clubName),
		}),
		charts.LegendLabelsOptionFunc(labels),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create chart: %w", err)
	}

	buf, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}
	return buf, nil
}
