package config

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"solar_controller/internal/models"
)

const envPrefix = "SOLAR"

// Defaults applied before the file is read.
const (
	defaultHTTPAddress     = "127.0.0.1"
	defaultHTTPPort        = "8080"
	defaultLogLevel        = "info"
	defaultDBPath          = "solar.db"
	defaultMQTTClientID    = "solar-controller"
	defaultMQTTTopicPrefix = "solar"
	defaultMQTTInterval    = 10 * time.Second
	defaultSimulatorTick   = time.Second
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the immutable process configuration. It is loaded once and passed
// by value to every constructor that needs it.
type Config struct {
	Serial      SerialConfig    `mapstructure:"serial"`
	HTTP        HTTPConfig      `mapstructure:"http"`
	Log         LogConfig       `mapstructure:"log"`
	DB          DBConfig        `mapstructure:"db"`
	MQTT        MQTTConfig      `mapstructure:"mqtt"`
	Simulator   SimulatorConfig `mapstructure:"simulator"`
	Temperature ChannelMap      `mapstructure:"temperature"`
	Relay       ChannelMap      `mapstructure:"relay"`
	PWM         ChannelMap      `mapstructure:"pwm"`
	Analog      ChannelMap      `mapstructure:"analog"`
}

// SerialConfig selects the link to the rig. Port is a device path,
// socket://host:port or sim://.
type SerialConfig struct {
	Port     string `mapstructure:"port"`
	BaudRate int    `mapstructure:"baudrate"`
}

type HTTPConfig struct {
	Address           string `mapstructure:"address"`
	Port              string `mapstructure:"port"`
	PostLocalhostOnly bool   `mapstructure:"post_localhost_only"`
	TokenSecret       string `mapstructure:"token_secret"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type DBConfig struct {
	Path string `mapstructure:"path"`
}

type MQTTConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Broker          string        `mapstructure:"broker"`
	ClientID        string        `mapstructure:"client_id"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	TopicPrefix     string        `mapstructure:"topic_prefix"`
	QoS             int           `mapstructure:"qos"`
	PublishInterval time.Duration `mapstructure:"publish_interval"`
}

type SimulatorConfig struct {
	Tick time.Duration `mapstructure:"tick"`
}

// ChannelMap maps wire index (as written in the file) to channel settings.
type ChannelMap map[string]ChannelConfig

// ChannelConfig describes one configured channel. In the file an entry may
// also be a bare string, which is taken as the name.
type ChannelConfig struct {
	Name         string            `mapstructure:"name"`
	FriendlyName string            `mapstructure:"friendly_name"`
	Min          *float64          `mapstructure:"min"`
	Max          *float64          `mapstructure:"max"`
	States       map[string]string `mapstructure:"states"`
}

// ChannelEntry is a validated channel with its index.
type ChannelEntry struct {
	Index int
	ChannelConfig
}

// Load reads the YAML file at path. Values can be overridden from the
// environment, e.g. SOLAR_SERIAL_PORT.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("read config %q: %w", path, err)
	}
	return decode(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.address", defaultHTTPAddress)
	v.SetDefault("http.port", defaultHTTPPort)
	v.SetDefault("http.post_localhost_only", true)
	v.SetDefault("log.level", defaultLogLevel)
	v.SetDefault("db.path", defaultDBPath)
	v.SetDefault("mqtt.client_id", defaultMQTTClientID)
	v.SetDefault("mqtt.topic_prefix", defaultMQTTTopicPrefix)
	v.SetDefault("mqtt.qos", 1)
	v.SetDefault("mqtt.publish_interval", defaultMQTTInterval)
	v.SetDefault("simulator.tick", defaultSimulatorTick)
}

func decode(v *viper.Viper) (Config, error) {
	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		channelNameHook,
		mapstructure.StringToTimeDurationHookFunc(),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// channelNameHook lets a channel entry be written as just its name.
func channelNameHook(from, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeOf(ChannelConfig{}) || from.Kind() != reflect.String {
		return data, nil
	}
	return map[string]any{"name": data}, nil
}

// Validate checks the settings the core cannot run without.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Serial.Port) == "" {
		return fmt.Errorf("%w: serial.port is required", ErrInvalidConfig)
	}
	if c.Serial.BaudRate <= 0 && !strings.Contains(c.Serial.Port, "://") {
		return fmt.Errorf("%w: serial.baudrate must be positive", ErrInvalidConfig)
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		return fmt.Errorf("%w: mqtt.broker is required when mqtt is enabled", ErrInvalidConfig)
	}
	for kind, m := range map[string]ChannelMap{
		"temperature": c.Temperature,
		"relay":       c.Relay,
		"pwm":         c.PWM,
		"analog":      c.Analog,
	} {
		if _, err := m.Entries(); err != nil {
			return fmt.Errorf("%s: %w", kind, err)
		}
	}
	return nil
}

// Entries returns the channels sorted by index.
func (m ChannelMap) Entries() ([]ChannelEntry, error) {
	out := make([]ChannelEntry, 0, len(m))
	for key, ch := range m {
		idx, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil || idx < 0 {
			return nil, fmt.Errorf("%w: channel index %q is not a non-negative integer", ErrInvalidConfig, key)
		}
		if strings.TrimSpace(ch.Name) == "" {
			return nil, fmt.Errorf("%w: channel %d has no name", ErrInvalidConfig, idx)
		}
		lo, hi := ch.Range()
		if lo == hi {
			return nil, fmt.Errorf("%w: channel %q has an empty range [%g, %g]", ErrInvalidConfig, ch.Name, lo, hi)
		}
		out = append(out, ChannelEntry{Index: idx, ChannelConfig: ch})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out, nil
}

// Range returns the device range, defaulting to 0..100.
func (c ChannelConfig) Range() (float64, float64) {
	lo, hi := models.PercentRange.Lo, models.PercentRange.Hi
	if c.Min != nil {
		lo = *c.Min
	}
	if c.Max != nil {
		hi = *c.Max
	}
	return lo, hi
}

// RelayStates returns the configured label table, or nil for the default.
// Keys may be true/false, on/off or 1/0.
func (c ChannelConfig) RelayStates() *models.RelayStates {
	if len(c.States) == 0 {
		return nil
	}
	s := models.DefaultRelayStates
	for k, label := range c.States {
		switch strings.ToLower(strings.TrimSpace(k)) {
		case "true", "on", "1":
			s.On = label
		case "false", "off", "0":
			s.Off = label
		}
	}
	return &s
}
