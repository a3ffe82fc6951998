package harness

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/medsched/medsched/internal/repo"
	"github.com/medsched/medsched/internal/store"
	"github.com/medsched/medsched/internal/testutil"
)

// Result is the outcome of a scenario run.
type Result struct {
	// Trace holds one line per applied step, in order.
	Trace []string

	// Day is the simulated calendar position after the last step.
	Day int64

	// Active is the final active list in presentation order.
	Active []store.PrescriptionWithTerm
}

// Run executes a scenario against a fresh store at dbPath, driving the
// repository with a simulated calendar. Each mutating step waits for
// its asynchronous result before the next step is applied, so the
// trace is deterministic.
func Run(ctx context.Context, scenario *Scenario, dbPath string) (*Result, error) {
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open scenario store: %w", err)
	}
	defer st.Close()

	day := testutil.NewSimulatedDay(scenario.StartDay)
	r := repo.New(st, zerolog.Nop(), repo.WithDayFunc(day.Day))
	defer r.Close()

	result := &Result{}
	for i, step := range scenario.Steps {
		line, err := applyStep(ctx, r, day, step)
		if err != nil {
			return nil, fmt.Errorf("steps[%d] %s: %w", i, step.Op, err)
		}
		result.Trace = append(result.Trace, line)
	}

	result.Day = day.Day()
	result.Active, err = r.QueryActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("query final active list: %w", err)
	}

	return result, nil
}

// applyStep runs one step to completion and returns its trace line.
func applyStep(ctx context.Context, r *repo.Repository, day *testutil.SimulatedDay, step Step) (string, error) {
	switch step.Op {
	case OpInsert:
		out := <-r.Insert(ctx, record(step))
		if out.Err != nil {
			return "", out.Err
		}
		return fmt.Sprintf("insert %q uid=%d", step.Name, out.UID), nil

	case OpUpdate:
		d := record(step)
		d.UID = step.UID
		out := <-r.Update(ctx, d)
		if out.Err != nil {
			return "", out.Err
		}
		return fmt.Sprintf("update uid=%d rows=%d", step.UID, out.Rows), nil

	case OpDelete:
		out := <-r.DeleteByID(ctx, step.UID)
		if out.Err != nil {
			return "", out.Err
		}
		return fmt.Sprintf("delete uid=%d rows=%d", step.UID, out.Rows), nil

	case OpMarkReceived:
		out := <-r.MarkReceivedToday(ctx, step.UID, day.Day())
		if out.Err != nil {
			return "", out.Err
		}
		return fmt.Sprintf("mark_received uid=%d rows=%d", step.UID, out.Rows), nil

	case OpAdvanceDays:
		return fmt.Sprintf("advance %d day=%d", step.Days, day.Advance(step.Days)), nil

	case OpRecompute:
		if err := r.RecomputePass(ctx, day.Day()); err != nil {
			return "", err
		}
		return fmt.Sprintf("recompute day=%d", day.Day()), nil

	default:
		return "", fmt.Errorf("unknown op %q", step.Op)
	}
}

// record builds the prescription payload of an insert or update step.
func record(step Step) store.PrescriptionDrug {
	return store.PrescriptionDrug{
		ShortName:      step.Name,
		Description:    step.Description,
		StartDateEpoch: step.Start,
		EndDateEpoch:   step.End,
		TimeTermID:     step.Term,
		DoctorName:     step.Doctor,
		DoctorLocation: step.Location,
	}
}
