package broadcast

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
)

func newTestHub() *Hub {
	return NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestHub_DeliversInPublishOrder(t *testing.T) {
	h := newTestHub()
	sub := h.Subscribe()

	for i := 0; i < 10; i++ {
		h.Publish(map[string]int{"seq": i})
	}

	for i := 0; i < 10; i++ {
		data := <-sub.Events()
		var got map[string]int
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if got["seq"] != i {
			t.Fatalf("expected seq %d, got %d", i, got["seq"])
		}
	}
}

func TestHub_AllSubscribersReceiveEveryEvent(t *testing.T) {
	h := newTestHub()
	a := h.Subscribe()
	b := h.Subscribe()

	h.Publish(NewFileUpdated("# Doc\n", "Heading", "update"))

	for _, sub := range []*Subscriber{a, b} {
		data := <-sub.Events()
		var ev FileUpdatedEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if ev.Type != TypeFileUpdated || ev.Section == nil || *ev.Section != "Heading" {
			t.Errorf("unexpected event %+v", ev)
		}
	}
}

func TestHub_UnsubscribeClosesChannel(t *testing.T) {
	h := newTestHub()
	sub := h.Subscribe()
	h.Unsubscribe(sub)

	if _, open := <-sub.Events(); open {
		t.Error("expected channel to be closed after unsubscribe")
	}
	if h.Count() != 0 {
		t.Errorf("expected 0 subscribers, got %d", h.Count())
	}
	// Idempotent.
	h.Unsubscribe(sub)
}

func TestHub_SlowSubscriberDroppedNotReordered(t *testing.T) {
	h := newTestHub()
	slow := h.Subscribe()
	fast := h.Subscribe()

	// Overflow the slow subscriber's buffer without draining it.
	for i := 0; i < subscriberBuffer+10; i++ {
		h.Publish(map[string]int{"seq": i})
		// Keep the fast subscriber drained.
		data := <-fast.Events()
		var got map[string]int
		json.Unmarshal(data, &got)
		if got["seq"] != i {
			t.Fatalf("fast subscriber saw seq %d, expected %d", got["seq"], i)
		}
	}

	if h.Count() != 1 {
		t.Fatalf("expected slow subscriber to be dropped, count=%d", h.Count())
	}

	// The slow subscriber's buffered prefix is still in order, then closed.
	prev := -1
	for data := range slow.Events() {
		var got map[string]int
		json.Unmarshal(data, &got)
		if got["seq"] != prev+1 {
			t.Fatalf("gap or reorder in slow subscriber stream: %d after %d", got["seq"], prev)
		}
		prev = got["seq"]
	}
}

func TestHub_UnmarshalableEventDropped(t *testing.T) {
	h := newTestHub()
	sub := h.Subscribe()

	h.Publish(map[string]any{"bad": func() {}})
	h.Publish(map[string]string{"ok": "yes"})

	data := <-sub.Events()
	if !json.Valid(data) {
		t.Fatalf("expected valid JSON, got %q", data)
	}
	var got map[string]string
	json.Unmarshal(data, &got)
	if got["ok"] != "yes" {
		t.Errorf("expected the later event, got %v", got)
	}
}

func TestNewFileUpdated_NullSectionWhenNotLocalized(t *testing.T) {
	ev := NewFileUpdated("body", "", "create")
	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if want := `"section":null`; !bytes.Contains(data, []byte(want)) {
		t.Errorf("expected %s in %s", want, data)
	}
}
