package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"solar_controller/internal/config"
	"solar_controller/internal/models"
	"solar_controller/internal/service"
)

type published struct {
	retained bool
	payload  []byte
}

type fakeBroker struct {
	mu         sync.Mutex
	messages   map[string]published
	subs       map[string]MessageHandler
	publishErr error
	subErr     error
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{messages: map[string]published{}, subs: map[string]MessageHandler{}}
}

func (f *fakeBroker) Publish(topic string, retained bool, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return f.publishErr
	}
	f.messages[topic] = published{retained: retained, payload: payload}
	return nil
}

func (f *fakeBroker) Subscribe(topic string, h MessageHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subErr != nil {
		return f.subErr
	}
	f.subs[topic] = h
	return nil
}

func (f *fakeBroker) message(topic string) (published, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.messages[topic]
	return m, ok
}

func (f *fakeBroker) handler(topic string) MessageHandler {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subs[topic]
}

type relayCall struct {
	name string
	on   bool
}

type pwmCall struct {
	name string
	duty float64
}

type fakeRig struct {
	mu     sync.Mutex
	snap   models.Snapshot
	relays []relayCall
	pwms   []pwmCall
	setErr error
}

func (f *fakeRig) SetRelay(_ context.Context, name string, on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.relays = append(f.relays, relayCall{name, on})
	return f.setErr
}

func (f *fakeRig) SetPWM(_ context.Context, name string, duty float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pwms = append(f.pwms, pwmCall{name, duty})
	return f.setErr
}

func (f *fakeRig) Snapshot() models.Snapshot { return f.snap }

func (f *fakeRig) Status() service.Status {
	return service.Status{SerialLink: service.LinkStatus{Alive: true}}
}

func rigSnapshot() models.Snapshot {
	return models.Snapshot{
		Temperature: []models.Thermometer{*models.NewThermometer("COLLECTOR", "")},
		Relay:       []models.Relay{*models.NewRelay("PUMP", "", nil)},
		PWM:         []models.PWMOutput{*models.NewPWMOutput("FAN", "", 0, 255)},
		Analog:      []models.AnalogInput{*models.NewAnalogInput("SUN", "Irradiance"), *models.NewAnalogInput("a/b", "")},
	}
}

func TestBridge_PublishRetainsEveryChannel(t *testing.T) {
	broker := newFakeBroker()
	b := NewBridge(broker, &fakeRig{snap: rigSnapshot()}, config.MQTTConfig{TopicPrefix: "solar"}, nil)

	if err := b.Publish(); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	for _, topic := range []string{
		"solar/temperature/COLLECTOR",
		"solar/relay/PUMP",
		"solar/pwm/FAN",
		"solar/analog/SUN",
		"solar/status",
	} {
		m, ok := broker.message(topic)
		if !ok {
			t.Fatalf("nothing published on %s", topic)
		}
		if !m.retained {
			t.Fatalf("%s not retained", topic)
		}
	}

	var th models.Thermometer
	m, _ := broker.message("solar/temperature/COLLECTOR")
	if err := json.Unmarshal(m.payload, &th); err != nil || th.Name != "COLLECTOR" {
		t.Fatalf("payload %s: %v", m.payload, err)
	}

	// names that are not a single topic level are skipped
	if len(broker.messages) != 5 {
		t.Fatalf("published %d topics, want 5", len(broker.messages))
	}
}

func TestBridge_PublishReportsBrokerErrors(t *testing.T) {
	broker := newFakeBroker()
	broker.publishErr = ErrPublishFailed
	b := NewBridge(broker, &fakeRig{snap: rigSnapshot()}, config.MQTTConfig{TopicPrefix: "solar"}, nil)

	if err := b.Publish(); !errors.Is(err, ErrPublishFailed) {
		t.Fatalf("expected ErrPublishFailed, got %v", err)
	}
}

func TestBridge_SetCommandsReachTheRig(t *testing.T) {
	broker := newFakeBroker()
	rig := &fakeRig{}
	b := NewBridge(broker, rig, config.MQTTConfig{TopicPrefix: "solar"}, nil)

	b.handleSet("solar/relay/PUMP/set", []byte(" ON "))
	b.handleSet("solar/relay/PUMP/set", []byte("0"))
	b.handleSet("solar/relay/PUMP/set", []byte("maybe"))
	b.handleSet("solar/pwm/FAN/set", []byte("42.5"))
	b.handleSet("solar/pwm/FAN/set", []byte("fast"))
	b.handleSet("solar/temperature/COLLECTOR/set", []byte("20"))
	b.handleSet("other/relay/PUMP/set", []byte("1"))

	want := []relayCall{{"PUMP", true}, {"PUMP", false}}
	if len(rig.relays) != len(want) || rig.relays[0] != want[0] || rig.relays[1] != want[1] {
		t.Fatalf("relay calls = %+v", rig.relays)
	}
	if len(rig.pwms) != 1 || rig.pwms[0] != (pwmCall{"FAN", 42.5}) {
		t.Fatalf("pwm calls = %+v", rig.pwms)
	}
}

func TestBridge_RigErrorIsLoggedNotFatal(t *testing.T) {
	rig := &fakeRig{setErr: service.ErrUnknownChannel}
	b := NewBridge(newFakeBroker(), rig, config.MQTTConfig{TopicPrefix: "solar"}, nil)

	b.handleSet("solar/relay/HEATER/set", []byte("1"))
	if len(rig.relays) != 1 {
		t.Fatalf("relay calls = %+v", rig.relays)
	}
}

func TestBridge_RunSubscribesAndPublishesUntilCancelled(t *testing.T) {
	broker := newFakeBroker()
	rig := &fakeRig{snap: rigSnapshot()}
	b := NewBridge(broker, rig, config.MQTTConfig{TopicPrefix: "solar", PublishInterval: time.Hour}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, ok := broker.message("solar/status"); ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("first publish never happened")
		}
		time.Sleep(5 * time.Millisecond)
	}

	h := broker.handler("solar/relay/+/set")
	if h == nil || broker.handler("solar/pwm/+/set") == nil {
		t.Fatalf("missing subscriptions: %v", broker.subs)
	}
	h("solar/relay/PUMP/set", []byte("true"))

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}

	rig.mu.Lock()
	defer rig.mu.Unlock()
	if len(rig.relays) != 1 {
		t.Fatalf("relay calls = %+v", rig.relays)
	}
}

func TestBridge_RunFailsWhenSubscribeFails(t *testing.T) {
	broker := newFakeBroker()
	broker.subErr = ErrSubscribeFailed
	b := NewBridge(broker, &fakeRig{}, config.MQTTConfig{TopicPrefix: "solar"}, nil)

	if err := b.Run(context.Background()); !errors.Is(err, ErrSubscribeFailed) {
		t.Fatalf("expected ErrSubscribeFailed, got %v", err)
	}
}

func TestParseSwitch(t *testing.T) {
	cases := map[string]struct {
		want bool
		ok   bool
	}{
		"true": {true, true}, "1": {true, true}, "On": {true, true},
		"false": {false, true}, "0": {false, true}, "OFF\n": {false, true},
		"": {false, false}, "2": {false, false}, "yes": {false, false},
	}
	for in, tc := range cases {
		got, err := parseSwitch([]byte(in))
		if (err == nil) != tc.ok || got != tc.want {
			t.Fatalf("parseSwitch(%q) = %v, %v", in, got, err)
		}
	}
}

func TestParseDuty(t *testing.T) {
	if v, err := parseDuty([]byte(" 12.5 ")); err != nil || v != 12.5 {
		t.Fatalf("parseDuty = %v, %v", v, err)
	}
	if _, err := parseDuty([]byte("half")); !errors.Is(err, errBadPayload) {
		t.Fatalf("expected errBadPayload, got %v", err)
	}
	// non-finite values are left for the controller to reject
	if v, err := parseDuty([]byte("NaN")); err != nil || !math.IsNaN(v) {
		t.Fatalf("parseDuty(NaN) = %v, %v", v, err)
	}
}
