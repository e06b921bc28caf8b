package aggregator

import (
	"github.com/sirupsen/logrus"

	"solana-token-aggregator/internal/domain"
	"solana-token-aggregator/internal/ingestion"
	"solana-token-aggregator/internal/livefeed"
	"solana-token-aggregator/internal/observability"
	"solana-token-aggregator/internal/storage"
)

// NewPumpPortalFeed builds the PumpPortal live channel writing into store.
// onToken, if set, receives every merged record.
func NewPumpPortalFeed(cfg livefeed.Config, store storage.TokenStore, logger logrus.FieldLogger, onToken func(*domain.TokenRecord)) *livefeed.Channel {
	if cfg.URL == "" {
		cfg.URL = ingestion.DefaultPumpPortalWSURL
	}
	if len(cfg.Subscribe) == 0 {
		cfg.Subscribe = [][]byte{ingestion.SubscribeNewTokenFrame}
	}

	handler := ingestion.NewLiveHandler(store, logger, func(rec *domain.TokenRecord) {
		observability.SetStoreSize(store.Len())
		if onToken != nil {
			onToken(rec)
		}
	})

	ch := livefeed.New(cfg, livefeed.HandlerFunc(func(msg []byte) error {
		err := handler.HandleMessage(msg)
		observability.RecordLiveFrame(err)
		return err
	}), logger)
	ch.OnStateChange(func(s livefeed.State) {
		observability.SetLiveState(int(s))
	})
	return ch
}
