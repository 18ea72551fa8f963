package mqtt

import (
	"fmt"
	"strings"
)

// Channel kinds as they appear in topics.
const (
	KindTemperature = "temperature"
	KindRelay       = "relay"
	KindPWM         = "pwm"
	KindAnalog      = "analog"

	setSuffix = "set"
)

// Topics builds the bridge's topic names under a common prefix:
//
//	solar/temperature/COLLECTOR   retained channel record
//	solar/relay/PUMP/set          inbound command
//	solar/status                  retained link + MCU status
//	solar/online                  retained "true"/"false", also the will
type Topics struct {
	prefix string
}

func NewTopics(prefix string) Topics {
	return Topics{prefix: strings.Trim(strings.TrimSpace(prefix), "/")}
}

func (t Topics) Channel(kind, name string) string {
	return fmt.Sprintf("%s/%s/%s", t.prefix, kind, name)
}

func (t Topics) Status() string { return t.prefix + "/status" }

func (t Topics) Online() string { return t.prefix + "/online" }

// SetFilter is the wildcard subscription for commands of one kind.
func (t Topics) SetFilter(kind string) string {
	return fmt.Sprintf("%s/%s/+/%s", t.prefix, kind, setSuffix)
}

// ParseSet extracts kind and channel name from a command topic.
func (t Topics) ParseSet(topic string) (kind, name string, ok bool) {
	rest, found := strings.CutPrefix(topic, t.prefix+"/")
	if !found {
		return "", "", false
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 3 || parts[2] != setSuffix || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// validLevel reports whether name can be used as a single topic level.
func validLevel(name string) bool {
	return name != "" && !strings.ContainsAny(name, "/+#")
}
