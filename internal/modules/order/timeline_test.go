// README: Timeline and transition table tests (no database).
package order

import (
	"errors"
	"testing"
	"time"
)

// TestCanTransition verifies the state machine transition table without a database.
func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		// happy-path forward transitions
		{StatusNone, StatusPending, true},
		{StatusPending, StatusConfirmed, true},
		{StatusConfirmed, StatusAssigned, true},
		{StatusAssigned, StatusPicked, true},
		{StatusPicked, StatusOnway, true},
		{StatusOnway, StatusDelivered, true},
		{StatusOnway, StatusCompleted, true},
		// cancels from every non-terminal state
		{StatusPending, StatusCancelled, true},
		{StatusConfirmed, StatusCancelled, true},
		{StatusAssigned, StatusCancelled, true},
		{StatusPicked, StatusCancelled, true},
		{StatusOnway, StatusCancelled, true},
		// invalid: terminal states have no outgoing transitions
		{StatusDelivered, StatusPending, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusCancelled, StatusPending, false},
		// invalid: skipping or going back
		{StatusPending, StatusOnway, false},
		{StatusConfirmed, StatusDelivered, false},
		{StatusPicked, StatusAssigned, false},
		{StatusNone, StatusConfirmed, false},
		{StatusPending, StatusPending, false},
	}
	for _, tc := range cases {
		got := CanTransition(tc.from, tc.to)
		if got != tc.want {
			t.Errorf("CanTransition(%q, %q) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestTerminal(t *testing.T) {
	for _, s := range allStatuses {
		_, hasNext := AllowedTransitions[s]
		if s.Terminal() == hasNext {
			t.Errorf("%s: Terminal() = %v but has outgoing transitions = %v", s, s.Terminal(), hasNext)
		}
	}
}

func TestParseStatus(t *testing.T) {
	if s, err := ParseStatus(" OnWay "); err != nil || s != StatusOnway {
		t.Errorf("ParseStatus(OnWay) = %q, %v", s, err)
	}
	if _, err := ParseStatus("teleported"); !errors.Is(err, ErrBadRequest) {
		t.Errorf("ParseStatus(teleported) error = %v, want ErrBadRequest", err)
	}
}

func TestAppend_FullLifecycle(t *testing.T) {
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	o := &Order{Details: TransportDetails{}}

	steps := []Status{StatusPending, StatusConfirmed, StatusAssigned, StatusPicked, StatusOnway, StatusCompleted}
	for i, st := range steps {
		e := TimelineEntry{Status: st, Time: base.Add(time.Duration(i) * time.Minute)}
		if err := o.Append(e, DefaultValidator); err != nil {
			t.Fatalf("append %s: %v", st, err)
		}
		if o.Status != st {
			t.Fatalf("status = %s after appending %s", o.Status, st)
		}
	}
	if len(o.Timeline) != len(steps) {
		t.Fatalf("timeline has %d entries, want %d", len(o.Timeline), len(steps))
	}

	err := o.Append(TimelineEntry{Status: StatusCancelled, Time: base.Add(time.Hour)}, DefaultValidator)
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("append after terminal error = %v, want ErrInvalidState", err)
	}
	if o.Status != StatusCompleted || len(o.Timeline) != len(steps) {
		t.Fatal("rejected append modified the order")
	}
}

func TestAppend_TimeRegression(t *testing.T) {
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	o := &Order{}
	if err := o.Append(TimelineEntry{Status: StatusPending, Time: base}, DefaultValidator); err != nil {
		t.Fatal(err)
	}

	err := o.Append(TimelineEntry{Status: StatusConfirmed, Time: base.Add(-time.Second)}, DefaultValidator)
	if !errors.Is(err, ErrTimeRegression) {
		t.Fatalf("error = %v, want ErrTimeRegression", err)
	}

	// equal timestamps are allowed
	if err := o.Append(TimelineEntry{Status: StatusConfirmed, Time: base}, DefaultValidator); err != nil {
		t.Fatalf("same-instant append: %v", err)
	}
}

func TestAppend_NilValidatorAcceptsAnyMove(t *testing.T) {
	now := time.Now()
	o := &Order{}
	for _, st := range []Status{StatusDelivered, StatusPending, StatusPending} {
		if err := o.Append(TimelineEntry{Status: st, Time: now}, nil); err != nil {
			t.Fatalf("append %s with nil validator: %v", st, err)
		}
	}
	if o.Status != StatusPending || len(o.Timeline) != 3 {
		t.Errorf("status %s, %d entries", o.Status, len(o.Timeline))
	}
}

func TestAppend_CustomValidatorErrorSurfaces(t *testing.T) {
	deny := errors.New("night shift closed")
	o := &Order{}
	err := o.Append(TimelineEntry{Status: StatusPending, Time: time.Now()}, func(from, to Status) error {
		return deny
	})
	if !errors.Is(err, deny) {
		t.Fatalf("error = %v, want validator error", err)
	}
	if len(o.Timeline) != 0 {
		t.Error("timeline changed despite rejection")
	}
}
