package listener

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"markestedt/winchord/action"
	"markestedt/winchord/chord"
	"markestedt/winchord/keys"
)

// physical keys used across tests
const (
	kCtrl keys.PhysicalKey = iota + 1
	kShift
	kOne
	kTwo
	kFive
	kEight
	kPlus
	kBackspace
	kEnter
	kEsc
	kQ
)

var keyEvents = map[keys.PhysicalKey]keys.RawKeyEvent{
	kCtrl:      {Key: kCtrl, Special: keys.NameCtrl},
	kShift:     {Key: kShift, Special: keys.NameShift},
	kOne:       {Key: kOne, VK: '1'},
	kTwo:       {Key: kTwo, VK: '2'},
	kFive:      {Key: kFive, Char: '5'},
	kEight:     {Key: kEight, Char: '*'},
	kPlus:      {Key: kPlus, VK: 0xBB},
	kBackspace: {Key: kBackspace, Special: keys.NameBackspace},
	kEnter:     {Key: kEnter, Special: keys.NameEnter},
	kEsc:       {Key: kEsc, Special: keys.NameEsc},
	kQ:         {Key: kQ, Char: 0x11},
}

func down(k keys.PhysicalKey) keys.RawKeyEvent {
	ev := keyEvents[k]
	ev.Kind = keys.Press
	return ev
}

func up(k keys.PhysicalKey) keys.RawKeyEvent {
	ev := keyEvents[k]
	ev.Kind = keys.Release
	return ev
}

func newTestLoop(t *testing.T, defs ...chord.Definition) *Loop {
	t.Helper()
	table, err := chord.ParseTable(defs)
	require.NoError(t, err)
	return NewLoop(table, action.NewDispatcher(5), DefaultOptions())
}

// feed handles events synchronously and returns whether the loop asked to stop
func feed(l *Loop, evs ...keys.RawKeyEvent) bool {
	for _, ev := range evs {
		if l.handle(context.Background(), ev) {
			return true
		}
	}
	return false
}

func drain(l *Loop) []Notification {
	var out []Notification
	for {
		select {
		case n := <-l.out:
			out = append(out, n)
		default:
			return out
		}
	}
}

func ofKind(ns []Notification, kind Kind) []Notification {
	var out []Notification
	for _, n := range ns {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

var closeWindow1 = chord.Definition{Label: "close window 1", Keys: "ctrl+shift+1+backspace"}

func TestChordFiresInAnyPressOrder(t *testing.T) {
	orders := [][]keys.PhysicalKey{
		{kCtrl, kShift, kOne, kBackspace},
		{kOne, kCtrl, kShift, kBackspace},
		{kShift, kOne, kCtrl, kBackspace},
	}

	for _, order := range orders {
		l := newTestLoop(t, closeWindow1)
		for _, k := range order {
			feed(l, down(k))
		}
		assert.False(t, feed(l, up(kBackspace)))

		ns := drain(l)
		assert.Len(t, ofKind(ns, KeyToken), 4)

		detected := ofKind(ns, ChordDetected)
		require.Len(t, detected, 1)
		assert.Equal(t, "close window 1", detected[0].Chord)
		assert.ElementsMatch(t, []keys.Token{"ctrl", "shift", "1", "backspace"}, detected[0].Tokens)

		requested := ofKind(ns, ActionRequested)
		require.Len(t, requested, 1)
		assert.Equal(t, action.Action{Kind: action.WindowVerb, Slot: 1, Verb: action.Close}, requested[0].Action)

		assert.Equal(t, 0, l.pressed.Len())
	}
}

func TestRemainingReleasesAfterMatchAreIgnored(t *testing.T) {
	l := newTestLoop(t, closeWindow1)
	feed(l, down(kCtrl), down(kShift), down(kOne), down(kBackspace), up(kBackspace))
	drain(l)

	feed(l, up(kOne), up(kShift), up(kCtrl))
	assert.Empty(t, drain(l))
	assert.Equal(t, 0, l.pressed.Len())
}

func TestShiftedSymbolAloneDoesNotMatch(t *testing.T) {
	l := newTestLoop(t, closeWindow1)
	bang := keys.RawKeyEvent{Key: kOne, Char: '!'}

	bang.Kind = keys.Press
	feed(l, bang)
	assert.Equal(t, []keys.Token{"1"}, l.pressed.Values())

	bang.Kind = keys.Release
	assert.False(t, feed(l, bang))

	ns := drain(l)
	require.Len(t, ns, 1)
	assert.Equal(t, KeyToken, ns[0].Kind)
	assert.Equal(t, keys.Token("1"), ns[0].Token)
	assert.Equal(t, 0, l.pressed.Len())
}

func TestRepeatedPressIsIdempotent(t *testing.T) {
	l := newTestLoop(t, closeWindow1)
	feed(l, down(kCtrl), down(kCtrl), down(kCtrl), down(kShift), down(kShift))

	assert.Equal(t, 2, l.pressed.Len())
	assert.Len(t, ofKind(drain(l), KeyToken), 2)
}

func TestReleaseOfUntrackedKeyIsNoop(t *testing.T) {
	l := newTestLoop(t, chord.Definition{Label: "ctrl window 2", Keys: "2"})
	feed(l, up(kTwo))
	assert.Empty(t, drain(l))
	assert.Equal(t, 0, l.pressed.Len())
}

func TestPrefixChordDoesNotFireWhileExtended(t *testing.T) {
	l := newTestLoop(t,
		chord.Definition{Label: "ctrl window 1", Keys: "ctrl+shift+1"},
		chord.Definition{Label: "maximize window 1", Keys: "ctrl+shift+1+plus"},
	)

	feed(l, down(kCtrl), down(kShift), down(kOne), down(kPlus))
	assert.Empty(t, ofKind(drain(l), ChordDetected))

	feed(l, up(kPlus))
	requested := ofKind(drain(l), ActionRequested)
	require.Len(t, requested, 1)
	assert.Equal(t, action.Maximize, requested[0].Action.Verb)
}

func TestNonMatchReleasePurgesKeyAndDisarms(t *testing.T) {
	l := newTestLoop(t, chord.Definition{Label: "ctrl window 1", Keys: "ctrl+shift+1"})

	feed(l, down(kCtrl), down(kShift), down(kOne), down(kPlus), up(kPlus))
	assert.Equal(t, []keys.Token{"ctrl", "shift", "1"}, l.pressed.Values())

	// no press since the failed match, so releasing 1 only forgets it
	feed(l, up(kOne))
	assert.Empty(t, ofKind(drain(l), ChordDetected))
	assert.Equal(t, []keys.Token{"ctrl", "shift"}, l.pressed.Values())

	feed(l, down(kOne), up(kOne))
	detected := ofKind(drain(l), ChordDetected)
	require.Len(t, detected, 1)
	assert.Equal(t, "ctrl window 1", detected[0].Chord)
}

func TestFirstDeclaredChordWins(t *testing.T) {
	l := newTestLoop(t,
		chord.Definition{Label: "open window 2", Keys: "ctrl+q"},
		chord.Definition{Label: "close window 2", Keys: "ctrl+q"},
	)

	for i := 0; i < 3; i++ {
		feed(l, down(kCtrl), down(kQ), up(kQ), up(kCtrl))
		requested := ofKind(drain(l), ActionRequested)
		require.Len(t, requested, 1)
		assert.Equal(t, action.Open, requested[0].Action.Verb)
	}
}

func TestUnboundChordIsDetectedWithoutAction(t *testing.T) {
	l := newTestLoop(t, chord.Definition{Label: "say hello", Keys: "ctrl+q"})
	assert.False(t, feed(l, down(kCtrl), down(kQ), up(kQ)))

	ns := drain(l)
	assert.Len(t, ofKind(ns, ChordDetected), 1)
	assert.Empty(t, ofKind(ns, ActionRequested))
}

func TestExitProgramChordStopsLoop(t *testing.T) {
	l := newTestLoop(t, chord.Definition{Label: "exit program", Keys: "ctrl+q"})
	assert.True(t, feed(l, down(kCtrl), down(kQ), up(kQ)))

	ns := drain(l)
	require.Len(t, ofKind(ns, ShutdownRequested), 1)
	assert.Equal(t, ShutdownRequested, ns[len(ns)-1].Kind)
	assert.Equal(t, action.ExitProgram, ofKind(ns, ActionRequested)[0].Action.Kind)
}

func TestEscapeRequestsShutdownInEveryMode(t *testing.T) {
	for _, mode := range []Mode{ModeChord, ModeConfirm, ModeSlotNumber} {
		t.Run(mode.String(), func(t *testing.T) {
			l := newTestLoop(t, closeWindow1)
			l.apply(controlMsg{kind: ctlSetMode, mode: mode})

			assert.False(t, feed(l, down(kEsc)))
			assert.Equal(t, 0, l.pressed.Len())
			assert.True(t, feed(l, up(kEsc)))

			ns := drain(l)
			require.Len(t, ns, 1)
			assert.Equal(t, ShutdownRequested, ns[0].Kind)
		})
	}
}

func TestSlotNumberMode(t *testing.T) {
	l := newTestLoop(t, closeWindow1)
	l.apply(controlMsg{kind: ctlSetMode, mode: ModeSlotNumber})

	feed(l, down(kFive))
	chosen := ofKind(drain(l), NumberChosen)
	require.Len(t, chosen, 1)
	assert.Equal(t, 5, chosen[0].Number)

	feed(l, down(kEight))
	chosen = ofKind(drain(l), NumberChosen)
	require.Len(t, chosen, 1)
	assert.Equal(t, InvalidSlot, chosen[0].Number)
	assert.Equal(t, keys.Token("*"), chosen[0].Token)

	feed(l, down(kCtrl))
	chosen = ofKind(drain(l), NumberChosen)
	require.Len(t, chosen, 1)
	assert.Equal(t, InvalidSlot, chosen[0].Number)
}

func TestSlotNumberIgnoresKeyRepeat(t *testing.T) {
	l := newTestLoop(t, closeWindow1)
	l.apply(controlMsg{kind: ctlSetMode, mode: ModeSlotNumber})

	feed(l, down(kFive), down(kFive), down(kFive))
	assert.Len(t, ofKind(drain(l), NumberChosen), 1)

	feed(l, up(kFive), down(kFive))
	assert.Len(t, ofKind(drain(l), NumberChosen), 1)
}

func TestSlotNumberModeNeverMatchesChords(t *testing.T) {
	l := newTestLoop(t, closeWindow1)
	l.apply(controlMsg{kind: ctlSetMode, mode: ModeSlotNumber})

	feed(l, down(kCtrl), down(kShift), down(kOne), down(kBackspace), up(kBackspace))
	assert.Empty(t, ofKind(drain(l), ChordDetected))
}

func TestConfirmMode(t *testing.T) {
	l := newTestLoop(t, closeWindow1)
	l.apply(controlMsg{kind: ctlSetMode, mode: ModeConfirm})

	feed(l, down(kQ))
	ns := drain(l)
	require.Len(t, ns, 2)
	assert.Equal(t, KeyToken, ns[0].Kind)
	assert.Equal(t, Declined, ns[1].Kind)
	assert.Equal(t, keys.Token("q"), ns[1].Token)

	feed(l, down(kEnter))
	ns = drain(l)
	require.Len(t, ns, 1)
	assert.Equal(t, Confirmed, ns[0].Kind)
	assert.Equal(t, 0, l.pressed.Len())
}

func TestSetModeForgetsHeldKeys(t *testing.T) {
	l := newTestLoop(t, closeWindow1)
	feed(l, down(kCtrl), down(kShift))
	l.apply(controlMsg{kind: ctlSetMode, mode: ModeSlotNumber})
	assert.Equal(t, 0, l.pressed.Len())

	l.apply(controlMsg{kind: ctlSetMode, mode: ModeChord})
	feed(l, up(kShift))
	assert.Empty(t, ofKind(drain(l), ChordDetected))
}

func TestIdleResetAfterEmptyPolls(t *testing.T) {
	l := newTestLoop(t, closeWindow1)
	assert.Equal(t, l.opts.IdlePoll, l.timeout)

	feed(l, down(kCtrl), down(kShift), down(kOne))
	assert.Equal(t, l.opts.ActivePoll, l.timeout)

	l.idle()
	l.idle()
	assert.Equal(t, 3, l.pressed.Len())
	assert.Equal(t, l.opts.ActivePoll, l.timeout)

	l.idle()
	assert.Equal(t, 0, l.pressed.Len())
	assert.Equal(t, l.opts.IdlePoll, l.timeout)
	assert.Equal(t, 0, l.emptyPolls)
}

func TestEventResetsEmptyPollCount(t *testing.T) {
	l := newTestLoop(t, closeWindow1)
	feed(l, down(kCtrl))
	l.idle()
	l.idle()
	feed(l, down(kShift))
	l.idle()
	l.idle()
	assert.Equal(t, 2, l.pressed.Len())
}

func TestPauseAndResumeForgetHeldKeys(t *testing.T) {
	l := newTestLoop(t, closeWindow1)
	feed(l, down(kCtrl))

	l.apply(controlMsg{kind: ctlPause})
	assert.True(t, l.paused)
	assert.Equal(t, 0, l.pressed.Len())

	l.apply(controlMsg{kind: ctlResume})
	assert.False(t, l.paused)
}

func TestReplaceTable(t *testing.T) {
	l := newTestLoop(t, closeWindow1)
	next, err := chord.ParseTable([]chord.Definition{{Label: "open window 3", Keys: "ctrl+q"}})
	require.NoError(t, err)

	l.apply(controlMsg{kind: ctlReplaceTable, table: next})
	feed(l, down(kCtrl), down(kQ), up(kQ))

	requested := ofKind(drain(l), ActionRequested)
	require.Len(t, requested, 1)
	assert.Equal(t, 3, requested[0].Action.Slot)

	l.apply(controlMsg{kind: ctlReplaceTable})
	assert.Same(t, next, l.table)
}

func TestPanicWhileHandlingEventIsRecovered(t *testing.T) {
	table, err := chord.ParseTable([]chord.Definition{closeWindow1})
	require.NoError(t, err)
	l := NewLoop(table, nil, DefaultOptions())

	assert.NotPanics(t, func() {
		stop := feed(l, down(kCtrl), down(kShift), down(kOne), down(kBackspace), up(kBackspace))
		assert.False(t, stop)
	})
	assert.Equal(t, 0, l.pressed.Len())

	feed(l, down(kCtrl))
	assert.Equal(t, 1, l.pressed.Len())
}

func TestKeyTokensAreDroppedWhenConsumerLags(t *testing.T) {
	l := newTestLoop(t, closeWindow1)
	for i := 0; i < cap(l.out); i++ {
		l.out <- Notification{Kind: Confirmed}
	}

	done := make(chan struct{})
	go func() {
		feed(l, down(kCtrl))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("key token emission blocked")
	}
	assert.Equal(t, 1, l.pressed.Len())
}

func TestDeclineIsDeliveredWhenConsumerLags(t *testing.T) {
	l := newTestLoop(t, closeWindow1)
	l.apply(controlMsg{kind: ctlSetMode, mode: ModeConfirm})
	for i := 0; i < cap(l.out); i++ {
		l.out <- Notification{Kind: Confirmed}
	}

	done := make(chan struct{})
	go func() {
		feed(l, down(kQ))
		close(done)
	}()

	var declined []Notification
	for len(declined) == 0 {
		select {
		case n := <-l.out:
			if n.Kind == Declined {
				declined = append(declined, n)
			}
		case <-time.After(time.Second):
			t.Fatal("decline was not delivered")
		}
	}
	<-done
	assert.Equal(t, keys.Token("q"), declined[0].Token)
}

func TestRunStopsOnEscapeWithinOnePoll(t *testing.T) {
	table, err := chord.ParseTable([]chord.Definition{closeWindow1})
	require.NoError(t, err)
	l := NewLoop(table, action.NewDispatcher(5), Options{
		ActivePoll:     5 * time.Millisecond,
		IdlePoll:       10 * time.Millisecond,
		IdleResetPolls: 3,
	})

	events := make(chan keys.RawKeyEvent, 8)
	errc := make(chan error, 1)
	go func() { errc <- l.Run(context.Background(), events) }()

	events <- down(kCtrl)
	events <- down(kShift)
	events <- down(kOne)
	events <- down(kBackspace)
	events <- up(kBackspace)
	events <- up(kEsc)

	var got []Notification
	for n := range l.Notifications() {
		got = append(got, n)
	}

	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("loop did not stop")
	}

	assert.Len(t, ofKind(got, ActionRequested), 1)
	require.Len(t, ofKind(got, ShutdownRequested), 1)
	assert.Equal(t, ShutdownRequested, got[len(got)-1].Kind)
}

func TestRunIdleResetDropsStaleKeys(t *testing.T) {
	table, err := chord.ParseTable([]chord.Definition{closeWindow1})
	require.NoError(t, err)
	l := NewLoop(table, action.NewDispatcher(5), Options{
		ActivePoll:     2 * time.Millisecond,
		IdlePoll:       5 * time.Millisecond,
		IdleResetPolls: 3,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chan keys.RawKeyEvent)
	errc := make(chan error, 1)
	go func() { errc <- l.Run(ctx, events) }()

	events <- down(kCtrl)
	events <- down(kShift)
	events <- down(kOne)
	events <- down(kBackspace)
	time.Sleep(100 * time.Millisecond)
	events <- up(kBackspace)
	cancel()

	var got []Notification
	for n := range l.Notifications() {
		got = append(got, n)
	}
	require.NoError(t, <-errc)
	assert.Empty(t, ofKind(got, ChordDetected))
	assert.Len(t, ofKind(got, KeyToken), 4)
}

func TestRunReturnsWhenSourceCloses(t *testing.T) {
	l := newTestLoop(t, closeWindow1)
	events := make(chan keys.RawKeyEvent)
	close(events)

	err := l.Run(context.Background(), events)
	assert.ErrorIs(t, err, ErrSourceClosed)

	_, open := <-l.Notifications()
	assert.False(t, open)

	// control calls after Run returned must not block
	l.SetMode(ModeChord)
	l.Pause()
}

func TestRunStopsOnCancel(t *testing.T) {
	l := newTestLoop(t, closeWindow1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, l.Run(ctx, make(chan keys.RawKeyEvent)))
}
