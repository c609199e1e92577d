package telemetry

import "testing"

func TestPublishFailsWhenNotConnected(t *testing.T) {
	e := New(Config{Broker: "127.0.0.1:1", Topic: "sequencer", ClientID: "test"})
	if err := e.PublishTick(TickEvent{Iteration: 1}); err == nil {
		t.Fatal("expected an error publishing before Connect")
	}
	stats := e.Snapshot()
	if stats.Connected {
		t.Error("expected Connected=false before Connect")
	}
	if stats.Errors != 1 {
		t.Errorf("Errors = %d, want 1", stats.Errors)
	}
}

func TestNoopEmitterAlwaysSucceeds(t *testing.T) {
	var e NoopEmitter
	if err := e.PublishTick(TickEvent{}); err != nil {
		t.Errorf("NoopEmitter.PublishTick returned %v, want nil", err)
	}
	if err := e.PublishSelection(SelectionEvent{}); err != nil {
		t.Errorf("NoopEmitter.PublishSelection returned %v, want nil", err)
	}
}

func TestPublisherInterfaceSatisfiedByBothImplementations(t *testing.T) {
	var _ Publisher = (*Emitter)(nil)
	var _ Publisher = NoopEmitter{}
}
