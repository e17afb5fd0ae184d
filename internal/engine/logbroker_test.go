package engine_test

import (
	"fmt"
	"testing"

	"github.com/seantiz/pipebench/internal/engine"
)

func drain(ch <-chan string) []string {
	var got []string
	for l := range ch {
		got = append(got, l)
	}
	return got
}

func TestLogBrokerSingleSubscriber(t *testing.T) {
	b := engine.NewLogBroker()
	ch, unsub := b.Subscribe("j1")
	defer unsub()

	lines := []string{"line 1", "line 2", "line 3"}
	for _, l := range lines {
		b.Publish("j1", l)
	}
	b.Close("j1")

	got := drain(ch)
	if len(got) != len(lines) {
		t.Fatalf("got %d lines, want %d", len(got), len(lines))
	}
	for i, l := range got {
		if l != lines[i] {
			t.Errorf("line[%d] = %q, want %q", i, l, lines[i])
		}
	}
}

func TestLogBrokerMultipleSubscribers(t *testing.T) {
	b := engine.NewLogBroker()
	ch1, unsub1 := b.Subscribe("j1")
	defer unsub1()
	ch2, unsub2 := b.Subscribe("j1")
	defer unsub2()

	b.Publish("j1", "hello")
	b.Close("j1")

	if got := drain(ch1); len(got) != 1 || got[0] != "hello" {
		t.Errorf("subscriber 1 got %v, want [hello]", got)
	}
	if got := drain(ch2); len(got) != 1 || got[0] != "hello" {
		t.Errorf("subscriber 2 got %v, want [hello]", got)
	}
}

func TestLogBrokerCloseClosesChannels(t *testing.T) {
	b := engine.NewLogBroker()
	ch, unsub := b.Subscribe("j1")
	defer unsub()

	b.Close("j1")

	if _, ok := <-ch; ok {
		t.Error("channel should be closed after Close()")
	}
}

func TestLogBrokerLateSubscriberGetsBacklog(t *testing.T) {
	b := engine.NewLogBroker()
	b.Publish("j1", "early")
	b.Publish("j1", "late")
	b.Close("j1")

	ch, unsub := b.Subscribe("j1")
	defer unsub()

	got := drain(ch)
	if len(got) != 2 || got[0] != "early" || got[1] != "late" {
		t.Errorf("late subscriber got %v, want [early late]", got)
	}
}

func TestLogBrokerSubscriberJoiningMidStream(t *testing.T) {
	b := engine.NewLogBroker()
	ch1, unsub1 := b.Subscribe("j1")
	defer unsub1()

	b.Publish("j1", "line 1")

	ch2, unsub2 := b.Subscribe("j1")
	defer unsub2()

	b.Publish("j1", "line 2")
	b.Close("j1")

	if got := drain(ch1); len(got) != 2 {
		t.Errorf("subscriber 1 got %d lines, want 2", len(got))
	}
	if got := drain(ch2); len(got) != 2 || got[0] != "line 1" {
		t.Errorf("second subscriber got %v, want [line 1 line 2]", got)
	}
}

func TestLogBrokerUnsubscribeStopsDelivery(t *testing.T) {
	b := engine.NewLogBroker()
	ch, unsub := b.Subscribe("j1")
	unsub()

	b.Publish("j1", "after unsub")
	b.Close("j1")

	select {
	case l, ok := <-ch:
		if ok {
			t.Errorf("got unexpected line %q after unsubscribe", l)
		}
	default:
	}
}

func TestLogBrokerBacklogIsBounded(t *testing.T) {
	b := engine.NewLogBroker()
	for i := range 500 {
		b.Publish("j1", fmt.Sprintf("line %d", i))
	}

	backlog := b.Backlog("j1")
	if len(backlog) != 200 {
		t.Fatalf("backlog len = %d, want 200", len(backlog))
	}
	if backlog[0] != "line 300" || backlog[199] != "line 499" {
		t.Errorf("backlog spans %q..%q, want line 300..line 499", backlog[0], backlog[199])
	}
}

func TestLogBrokerPublishAfterCloseIsDropped(t *testing.T) {
	b := engine.NewLogBroker()
	b.Close("j1")
	b.Publish("j1", "too late")

	if got := b.Backlog("j1"); len(got) != 0 {
		t.Errorf("backlog = %v, want empty", got)
	}
	if got := b.Backlog("unknown"); got != nil {
		t.Errorf("backlog of unknown job = %v, want nil", got)
	}
}
