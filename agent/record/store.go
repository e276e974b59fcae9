package record

import (
	"context"
	"fmt"
	"io"
	"strings"

	contractx "github.com/tanpawarit/Chative-Collections-Call/agent/contract"
)

// Store is a RecordStore that holds a client connection.
type Store interface {
	contractx.RecordStore
	io.Closer
}

var (
	_ Store = (*FirestoreStore)(nil)
	_ Store = (*PostgresStore)(nil)
)

// ConfigLoader loads a driver's configuration on demand, so only the selected
// backend's settings are required at startup.
type ConfigLoader interface {
	Firestore() (FirestoreConfig, error)
	Postgres() (PostgresConfig, error)
}

func Open(ctx context.Context, driver string, loader ConfigLoader) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", DriverFirestore:
		cfg, err := loader.Firestore()
		if err != nil {
			return nil, err
		}
		return NewFirestoreStore(ctx, cfg)
	case DriverPostgres:
		cfg, err := loader.Postgres()
		if err != nil {
			return nil, err
		}
		return NewPostgresStore(cfg)
	default:
		return nil, fmt.Errorf("%w: unknown record driver=%q", contractx.ErrValidation, driver)
	}
}
