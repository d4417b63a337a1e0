package duckdb

import (
	"context"
	"database/sql/driver"
	"fmt"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/vibe-ptm/internal/event"
	"github.com/inodb/vibe-ptm/internal/exon"
)

// SampleEvent is a canonical event observed in a sample.
type SampleEvent struct {
	Sample string
	Event  event.Event
}

// eventKey is the composite key for deduplicating events before writing.
type eventKey struct {
	sample, label string
	kind          event.Kind
}

// WriteEvents batch-inserts the events of a run using the Appender API.
// Duplicate (sample, kind, label) entries are written once.
func (s *Store) WriteEvents(runID string, events []SampleEvent) error {
	if len(events) == 0 {
		return nil
	}

	seen := make(map[eventKey]bool, len(events))
	deduped := make([]SampleEvent, 0, len(events))
	for _, e := range events {
		k := eventKey{e.Sample, e.Event.Label(), e.Event.Kind}
		if !seen[k] {
			seen[k] = true
			deduped = append(deduped, e)
		}
	}

	conn, err := s.db.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "events")
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	for _, se := range deduped {
		e := se.Event
		if err := appender.AppendRow(
			runID, se.Sample, e.Kind.String(), e.Type, string(e.AminoAcid),
			int64(e.Position), string(e.Tag), e.Label(),
		); err != nil {
			return fmt.Errorf("append event: %w", err)
		}
	}

	return appender.Flush()
}

// ClearEvents removes all stored events.
func (s *Store) ClearEvents() error {
	_, err := s.db.Exec("DELETE FROM events")
	return err
}

// SampleEvents returns the events of one sample in a run, ordered by
// position and label.
func (s *Store) SampleEvents(runID, sample string) ([]event.Event, error) {
	rows, err := s.db.Query(`SELECT kind, type, amino_acid, position, tag
		FROM events
		WHERE run_id=? AND sample=?
		ORDER BY position, tag, label`, runID, sample)
	if err != nil {
		return nil, fmt.Errorf("query sample events: %w", err)
	}
	defer rows.Close()

	var events []event.Event
	for rows.Next() {
		var kind, typ, aa, tag string
		var pos int64
		if err := rows.Scan(&kind, &typ, &aa, &pos, &tag); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e, err := toEvent(kind, typ, aa, pos, tag)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// SamplesWithLabel returns the samples of a run carrying the event with the
// given label, in name order.
func (s *Store) SamplesWithLabel(runID, label string) ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT sample FROM events
		WHERE run_id=? AND label=?
		ORDER BY sample`, runID, label)
	if err != nil {
		return nil, fmt.Errorf("query samples by label: %w", err)
	}
	defer rows.Close()

	var samples []string
	for rows.Next() {
		var sample string
		if err := rows.Scan(&sample); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		samples = append(samples, sample)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate samples: %w", err)
	}
	return samples, nil
}

func toEvent(kind, typ, aa string, pos int64, tag string) (event.Event, error) {
	e := event.Event{Type: typ, Position: int(pos)}
	switch kind {
	case event.Modification.String():
		e.Kind = event.Modification
	case event.Cleavage.String():
		e.Kind = event.Cleavage
	default:
		return event.Event{}, fmt.Errorf("unknown event kind %q", kind)
	}
	if len(aa) != 1 {
		return event.Event{}, fmt.Errorf("invalid amino acid %q", aa)
	}
	e.AminoAcid = aa[0]

	t, err := exon.ParseTag(tag)
	if err != nil {
		return event.Event{}, err
	}
	e.Tag = t
	return e, nil
}
