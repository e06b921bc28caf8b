package ingestion

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"solana-token-aggregator/internal/domain"
	"solana-token-aggregator/internal/storage"
)

// DefaultPumpPortalWSURL is the PumpPortal data WebSocket.
const DefaultPumpPortalWSURL = "wss://pumpportal.fun/api/data"

const eventNewToken = "new_token"

// ErrMalformedFrame is returned for frames that cannot be decoded into a token.
var ErrMalformedFrame = errors.New("malformed frame")

// SubscribeNewTokenFrame is sent right after every connect.
var SubscribeNewTokenFrame = []byte(`{"method":"subscribeNewToken"}`)

type liveEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// LiveHandler merges PumpPortal new_token events into the token store.
type LiveHandler struct {
	store   storage.TokenStore
	now     func() time.Time
	logger  logrus.FieldLogger
	onToken func(*domain.TokenRecord)
}

// NewLiveHandler creates a handler writing to store.
// onToken, if set, is called with each merged record.
func NewLiveHandler(store storage.TokenStore, logger logrus.FieldLogger, onToken func(*domain.TokenRecord)) *LiveHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &LiveHandler{
		store:   store,
		now:     time.Now,
		logger:  logger.WithField("source", domain.SourcePumpPortal),
		onToken: onToken,
	}
}

// HandleMessage processes one text frame. Events other than new_token are ignored.
// Undecodable frames return ErrMalformedFrame and leave the store untouched.
func (h *LiveHandler) HandleMessage(msg []byte) error {
	rec, err := ParseLiveFrame(msg, h.now())
	if err != nil {
		return err
	}
	if rec == nil {
		return nil
	}

	merged, err := h.store.Upsert(rec)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	h.logger.WithField("mint", merged.Mint).Infof("new pump.fun token: %s", merged.Symbol)
	if h.onToken != nil {
		h.onToken(merged)
	}
	return nil
}

// ParseLiveFrame decodes a {type, data} envelope. It returns nil, nil for
// event types other than new_token.
func ParseLiveFrame(msg []byte, now time.Time) (*domain.TokenRecord, error) {
	var env liveEnvelope
	if err := json.Unmarshal(msg, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if env.Type != eventNewToken {
		return nil, nil
	}

	var coin pumpCoin
	if err := json.Unmarshal(env.Data, &coin); err != nil {
		return nil, fmt.Errorf("%w: data: %v", ErrMalformedFrame, err)
	}
	if coin.Mint == "" {
		return nil, fmt.Errorf("%w: missing mint", ErrMalformedFrame)
	}

	// Live events carry no supply or creation time.
	coin.TotalSupply = nil
	coin.CreatedTimestamp = nil
	return coin.record(now.UnixMilli(), tagPumpFun, tagNew), nil
}
