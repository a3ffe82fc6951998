package harness

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"github.com/medsched/medsched/internal/export"
)

// Snapshot renders a run's trace and final active list as a stable
// text document for golden comparison. The active list reuses the
// export text rendering so the snapshot reflects exactly what an
// export at the end of the scenario would contain.
func Snapshot(scenario *Scenario, result *Result) []byte {
	var sb strings.Builder

	fmt.Fprintf(&sb, "scenario: %s\n", scenario.Name)
	fmt.Fprintf(&sb, "start day: %d\n", scenario.StartDay)
	for _, line := range result.Trace {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	fmt.Fprintf(&sb, "final day: %d\n", result.Day)
	sb.WriteString("active:\n")
	sb.WriteString(export.RenderText(result.Active))

	return []byte(sb.String())
}

// RunWithGolden loads a scenario file, executes it against a throwaway
// store, and compares the snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, path string) {
	t.Helper()

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	result, err := Run(context.Background(), scenario, filepath.Join(t.TempDir(), "scenario.db"))
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, Snapshot(scenario, result))
}
