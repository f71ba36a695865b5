// Package config holds the configuration surface enumerated in spec.md §6,
// loadable from TOML the way the teacher node loads its node/genesis config.
package config

import (
	"io"
	"os"
	"time"

	"github.com/naoina/toml"
	"github.com/pkg/errors"

	"github.com/ground-x/peerengine/wire"
)

// Config is the set of options the engine recognizes.
type Config struct {
	// HandshakeTimeout bounds how long a connection may stay in Connecting
	// before it is closed. Zero means DefaultHandshakeTimeout.
	HandshakeTimeout time.Duration

	// ForceEncoding disables encoding autodetection when set.
	ForceEncoding wire.Encoding

	// MaxFrameSize bounds a single frame's payload, in bytes.
	MaxFrameSize uint32

	// RoutedMessageCacheSize bounds the routed-message dedup LRU.
	RoutedMessageCacheSize int

	// DropDuplicatedMessagesPeriod is the dedup window for routed messages.
	DropDuplicatedMessagesPeriod time.Duration

	// MaxTransactionsPerBlockMessage caps ForwardTx delivery between Block
	// messages. See spec.md §9 Open Question; defaults to 1000.
	MaxTransactionsPerBlockMessage uint64

	// ReceivedMessageUpdateInterval bounds how often ReceivedMessage
	// notifications are sent to the peer-manager.
	ReceivedMessageUpdateInterval time.Duration

	// PeersRequestDebounce bounds how often a duplicate PeersRequest from
	// the same connection is answered again (SPEC_FULL.md supplemented
	// feature #4).
	PeersRequestDebounce time.Duration

	// StopGraceDuration bounds how long Stop() waits for the outbound send
	// buffer to drain before the connection is dropped regardless
	// (SPEC_FULL.md supplemented feature #5).
	StopGraceDuration time.Duration
}

const (
	DefaultHandshakeTimeout              = 5 * time.Second
	DefaultMaxFrameSize                  = 4 << 20 // 4 MiB
	DefaultRoutedMessageCacheSize         = 1000
	DefaultDropDuplicatedMessagesPeriod   = 50 * time.Millisecond
	DefaultMaxTransactionsPerBlockMessage = 1000
	DefaultReceivedMessageUpdateInterval  = 60 * time.Second
	DefaultPeersRequestDebounce           = time.Second
	DefaultStopGraceDuration              = 2 * time.Second
)

// DefaultConfig returns the documented defaults, the way
// node/cn/gen_config.go produces a filled-in default node config.
func DefaultConfig() *Config {
	return &Config{
		HandshakeTimeout:               DefaultHandshakeTimeout,
		ForceEncoding:                  wire.EncodingNone,
		MaxFrameSize:                   DefaultMaxFrameSize,
		RoutedMessageCacheSize:         DefaultRoutedMessageCacheSize,
		DropDuplicatedMessagesPeriod:   DefaultDropDuplicatedMessagesPeriod,
		MaxTransactionsPerBlockMessage: DefaultMaxTransactionsPerBlockMessage,
		ReceivedMessageUpdateInterval:  DefaultReceivedMessageUpdateInterval,
		PeersRequestDebounce:           DefaultPeersRequestDebounce,
		StopGraceDuration:              DefaultStopGraceDuration,
	}
}

// tomlConfig mirrors Config with string/durations TOML can decode directly;
// zero values fall back to the defaults after loading.
type tomlConfig struct {
	HandshakeTimeout               string
	ForceEncoding                  string
	MaxFrameSize                   uint32
	RoutedMessageCacheSize         int
	DropDuplicatedMessagesPeriod   string
	MaxTransactionsPerBlockMessage uint64
	ReceivedMessageUpdateInterval  string
	PeersRequestDebounce           string
	StopGraceDuration              string
}

// LoadFile reads a TOML config file, overlaying onto DefaultConfig().
func LoadFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open config file")
	}
	defer f.Close()
	return Load(f)
}

// Load decodes a TOML document from r, overlaying onto DefaultConfig().
func Load(r io.Reader) (*Config, error) {
	var tc tomlConfig
	if err := toml.NewDecoder(r).Decode(&tc); err != nil {
		return nil, errors.Wrap(err, "decode toml config")
	}
	cfg := DefaultConfig()

	if tc.HandshakeTimeout != "" {
		d, err := time.ParseDuration(tc.HandshakeTimeout)
		if err != nil {
			return nil, errors.Wrap(err, "handshake_timeout")
		}
		cfg.HandshakeTimeout = d
	}
	if tc.ForceEncoding != "" {
		enc, err := wire.ParseEncoding(tc.ForceEncoding)
		if err != nil {
			return nil, errors.Wrap(err, "force_encoding")
		}
		cfg.ForceEncoding = enc
	}
	if tc.MaxFrameSize != 0 {
		cfg.MaxFrameSize = tc.MaxFrameSize
	}
	if tc.RoutedMessageCacheSize != 0 {
		cfg.RoutedMessageCacheSize = tc.RoutedMessageCacheSize
	}
	if tc.DropDuplicatedMessagesPeriod != "" {
		d, err := time.ParseDuration(tc.DropDuplicatedMessagesPeriod)
		if err != nil {
			return nil, errors.Wrap(err, "drop_duplicated_messages_period")
		}
		cfg.DropDuplicatedMessagesPeriod = d
	}
	if tc.MaxTransactionsPerBlockMessage != 0 {
		cfg.MaxTransactionsPerBlockMessage = tc.MaxTransactionsPerBlockMessage
	}
	if tc.ReceivedMessageUpdateInterval != "" {
		d, err := time.ParseDuration(tc.ReceivedMessageUpdateInterval)
		if err != nil {
			return nil, errors.Wrap(err, "received_message_update_interval")
		}
		cfg.ReceivedMessageUpdateInterval = d
	}
	if tc.PeersRequestDebounce != "" {
		d, err := time.ParseDuration(tc.PeersRequestDebounce)
		if err != nil {
			return nil, errors.Wrap(err, "peers_request_debounce")
		}
		cfg.PeersRequestDebounce = d
	}
	if tc.StopGraceDuration != "" {
		d, err := time.ParseDuration(tc.StopGraceDuration)
		if err != nil {
			return nil, errors.Wrap(err, "stop_grace_duration")
		}
		cfg.StopGraceDuration = d
	}
	return cfg, nil
}
