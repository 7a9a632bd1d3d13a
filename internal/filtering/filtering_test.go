package filtering

import (
	"context"
	"errors"
	"testing"

	"github.com/spigell/talent-agent/internal/directory"
	"github.com/spigell/talent-agent/internal/matcher"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func candidates() []directory.Candidate {
	return []directory.Candidate{
		{ID: "1", Name: "Ana Pérez", Phone: "6123-4567", Position: "Programador Full Stack"},
		{ID: "2", Name: "Luis Gómez", Phone: "", Position: "Programador Full Stack"},
		{ID: "3", Name: "Marta Ruiz", Phone: "+507 6222 3333", Position: "Analista QA"},
		{ID: "4", Name: "José Díaz", Phone: "62223334", Position: directory.UnknownPosition},
	}
}

func deps() Deps {
	return Deps{Logger: zap.NewNop(), Phones: matcher.NewPhoneNormalizer("")}
}

func TestBulkSendPipeline(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.WarnLevel)
	d := deps()
	d.Logger = zap.New(core)

	cfg := &Config{Exclude: []string{"Marta"}, Limit: 10}
	sel, _, err := Run(context.Background(), cfg, d, BulkSendSteps(), NewSelection(candidates()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if sel.Len() != 2 {
		t.Fatalf("expected 2 candidates, got %d: %+v", sel.Len(), sel.Items)
	}
	if sel.Items[0].Phone != "+50761234567" {
		t.Fatalf("phone not normalized: %q", sel.Items[0].Phone)
	}
	for _, c := range sel.Items {
		if c.Name == "Marta Ruiz" {
			t.Fatal("excluded candidate kept")
		}
	}
	if got := sel.DroppedBy(ExcludeFilterName); len(got) != 1 || got[0].Name != "Marta Ruiz" {
		t.Fatalf("unexpected excluded list %+v", got)
	}
	if got := sel.DroppedBy(PhoneFilterName); len(got) != 1 || got[0].Name != "Luis Gómez" {
		t.Fatalf("unexpected skipped list %+v", got)
	}
	if logs.FilterMessage("skipping candidates without a valid phone").Len() != 1 {
		t.Fatal("expected a warning for skipped candidates")
	}
}

func TestRunDoesNotMutateInput(t *testing.T) {
	t.Parallel()

	in := candidates()
	_, _, err := Run(context.Background(), &Config{}, deps(), BulkSendSteps(), NewSelection(in))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if in[0].Phone != "6123-4567" || len(in) != 4 {
		t.Fatalf("input modified: %+v", in)
	}
}

func TestPositionFilter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		position string
		want     int
	}{
		{position: "full stack", want: 2},
		{position: "programador fullstack", want: 2},
		{position: "qa", want: 1},
		{position: "contador", want: 0},
		{position: "", want: 4},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.position, func(t *testing.T) {
			t.Parallel()
			sel, _, err := Run(context.Background(), &Config{Position: tt.position}, deps(),
				[]Filter{NewPosition()}, NewSelection(candidates()))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if sel.Len() != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, sel.Len())
			}
		})
	}
}

func TestTopFilterScores(t *testing.T) {
	t.Parallel()

	d := deps()
	d.Score = func(c directory.Candidate, _ string) float64 {
		return map[string]float64{"1": 2, "2": 5, "3": 1, "4": 3}[c.ID]
	}

	sel, scores, err := Run(context.Background(), &Config{Top: 2}, d, BestSteps(), NewSelection(candidates()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sel.Len() != 2 || sel.Items[0].ID != "2" || sel.Items[1].ID != "4" {
		t.Fatalf("unexpected ranking %+v", sel.Items)
	}
	if scores["2"] != 5 || len(scores) != 4 {
		t.Fatalf("unexpected scores %v", scores)
	}
}

func TestTopFilterValidation(t *testing.T) {
	t.Parallel()

	_, _, err := Run(context.Background(), &Config{Top: -1}, deps(), []Filter{NewTop()}, NewSelection(nil))
	if err == nil {
		t.Fatal("expected validation error")
	}

	steps := []Filter{NewTop()}
	DisableByName(steps, TopFilterName, "not needed")
	if _, _, err := Run(context.Background(), &Config{Top: -1}, deps(), steps, NewSelection(nil)); err != nil {
		t.Fatalf("disabled filter validated: %v", err)
	}

	statuses := Describe(steps)
	if len(statuses) != 1 || statuses[0].Enabled || statuses[0].Reason != "not needed" {
		t.Fatalf("unexpected status %+v", statuses)
	}
}

type failingFilter struct{}

func (failingFilter) Name() string           { return "failing" }
func (failingFilter) Disable(string)         {}
func (failingFilter) IsEnabled() bool        { return true }
func (failingFilter) Validate(*Config) error { return nil }
func (failingFilter) Apply(context.Context, Deps, *Selection) (*Selection, Step, error) {
	return nil, Step{}, errors.New("boom")
}

func TestRunWrapsStepErrors(t *testing.T) {
	t.Parallel()

	_, _, err := Run(context.Background(), nil, Deps{}, []Filter{failingFilter{}}, NewSelection(nil))
	if err == nil || err.Error() != "failing: boom" {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestLimitFilter(t *testing.T) {
	t.Parallel()

	sel, _, err := Run(context.Background(), &Config{Limit: 3}, deps(), ListingSteps(), NewSelection(candidates()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sel.Len() != 3 || len(sel.DroppedBy(LimitFilterName)) != 1 {
		t.Fatalf("unexpected selection %+v", sel)
	}
}

func TestDisabledStepsAreSkipped(t *testing.T) {
	t.Parallel()

	steps := BulkSendSteps()
	DisableByName(steps, PositionFilterName, "no position requested")
	DisableByName(steps, ExcludeFilterName, "nothing to exclude")

	cfg := &Config{Position: "qa", Exclude: []string{"Ana"}}
	sel, _, err := Run(context.Background(), cfg, deps(), steps, NewSelection(candidates()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// only the phone step ran
	if sel.Len() != 3 || len(sel.DroppedBy(PhoneFilterName)) != 1 {
		t.Fatalf("unexpected selection %+v", sel.Items)
	}

	enabled := map[string]bool{}
	for _, st := range Describe(steps) {
		enabled[st.Name] = st.Enabled
	}
	want := map[string]bool{ExcludeFilterName: false, PositionFilterName: false, PhoneFilterName: true, LimitFilterName: true}
	for name, on := range want {
		if enabled[name] != on {
			t.Fatalf("expected %s enabled=%v, got %v", name, on, enabled[name])
		}
	}
}
