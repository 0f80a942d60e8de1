package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bissquit/pulsemon/internal/domain"
)

func TestRenderChart(t *testing.T) {
	customer := domain.Customer{Name: "acme", Services: []string{"Intune"}}
	records := []domain.StatusRecord{
		rec("Intune", "serviceOperational", 6),
		rec("Intune", "serviceInterruption", 8),
		rec("Intune", "serviceRestored", 10),
	}
	report := Build(customer, testWindow(), records, nil, testPriorities())

	png, err := RenderChart(report.Services[0], testPriorities())
	require.NoError(t, err)
	require.NotEmpty(t, png)
	// PNG magic bytes.
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, png[:4])
}

func TestRenderChart_SingleObservation(t *testing.T) {
	customer := domain.Customer{Name: "acme", Services: []string{"Intune"}}
	records := []domain.StatusRecord{rec("Intune", "serviceOperational", 6)}
	report := Build(customer, testWindow(), records, nil, testPriorities())

	png, err := RenderChart(report.Services[0], testPriorities())
	require.NoError(t, err)
	assert.NotEmpty(t, png)
}

func TestRenderChart_EmptyWindow(t *testing.T) {
	_, err := RenderChart(ServiceSummary{Service: "Intune"}, testPriorities())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no records in window")
}

func TestStepPoints(t *testing.T) {
	records := []domain.StatusRecord{
		rec("Intune", "serviceOperational", 6),  // rank 10
		rec("Intune", "serviceInterruption", 8), // rank 4
	}
	xs, ys := stepPoints(records, testPriorities())

	// steps-post: the old rank is held up to the next observation.
	require.Len(t, xs, 3)
	assert.Equal(t, []float64{10, 10, 4}, ys)
	assert.Equal(t, xs[1], xs[2])
}
