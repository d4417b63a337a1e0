package pipeline

import (
	"github.com/inodb/vibe-ptm/internal/duckdb"
	"github.com/inodb/vibe-ptm/internal/event"
	"github.com/inodb/vibe-ptm/internal/result"
)

// accumulator gathers canonical events per sample. Replicates are folded into
// their primary sample. Samples keep the order they were first seen in.
type accumulator struct {
	groups    *result.Groups
	order     []string
	mods      map[string][]event.Event
	cleavages map[string][]event.Event
}

func newAccumulator(groups *result.Groups) *accumulator {
	return &accumulator{
		groups:    groups,
		mods:      make(map[string][]event.Event),
		cleavages: make(map[string][]event.Event),
	}
}

// addSample registers a sample that may have no events and returns its
// primary name.
func (a *accumulator) addSample(sample string) string {
	primary := a.groups.Primary(sample)
	if _, ok := a.mods[primary]; !ok {
		a.order = append(a.order, primary)
		a.mods[primary] = nil
		a.cleavages[primary] = nil
	}
	return primary
}

func (a *accumulator) add(sample string, mods, cleavages []event.Event) {
	primary := a.addSample(sample)
	a.mods[primary] = append(a.mods[primary], mods...)
	a.cleavages[primary] = append(a.cleavages[primary], cleavages...)
}

// matrices builds the result columns from the union of all samples' events.
func (a *accumulator) matrices() result.Matrices {
	var allMods, allCleavages []event.Event
	m := result.Matrices{
		ModSamples:      make([]result.Sample, 0, len(a.order)),
		CleavageSamples: make([]result.Sample, 0, len(a.order)),
	}
	for _, s := range a.order {
		mods := event.Order(a.mods[s])
		cleavages := event.Order(a.cleavages[s])
		allMods = append(allMods, mods...)
		allCleavages = append(allCleavages, cleavages...)
		m.ModSamples = append(m.ModSamples, result.Sample{ID: s, Events: mods})
		m.CleavageSamples = append(m.CleavageSamples, result.Sample{ID: s, Events: cleavages})
	}
	m.Modifications = event.Columns(allMods)
	m.Cleavages = event.Collapse(allCleavages)
	return m
}

// sampleEvents flattens the accumulated events for the event store.
func (a *accumulator) sampleEvents() []duckdb.SampleEvent {
	var out []duckdb.SampleEvent
	for _, s := range a.order {
		for _, e := range event.Order(a.mods[s]) {
			out = append(out, duckdb.SampleEvent{Sample: s, Event: e})
		}
		for _, e := range event.Order(a.cleavages[s]) {
			out = append(out, duckdb.SampleEvent{Sample: s, Event: e})
		}
	}
	return out
}
