package record

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/Chative-Collections-Call/agent/contract"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

type PostgresConfig struct {
	DSN     string        `envconfig:"DSN" required:"true"`
	Table   string        `envconfig:"TABLE" default:"customers"`
	Timeout time.Duration `envconfig:"TIMEOUT" default:"10s"`
}

func (c PostgresConfig) Validate() error {
	if strings.TrimSpace(c.DSN) == "" {
		return fmt.Errorf("%w: postgres dsn is required", contractx.ErrValidation)
	}
	return nil
}

// PostgresStore keeps customer records as rows with a jsonb payment_history column.
type PostgresStore struct {
	db      *bun.DB
	table   string
	timeout time.Duration
}

func NewPostgresStore(cfg PostgresConfig) (*PostgresStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(strings.TrimSpace(cfg.DSN))))
	return newPostgresStore(bun.NewDB(sqldb, pgdialect.New()), cfg), nil
}

func newPostgresStore(db *bun.DB, cfg PostgresConfig) *PostgresStore {
	table := strings.TrimSpace(cfg.Table)
	if table == "" {
		table = "customers"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultWriteTimeout
	}
	return &PostgresStore{
		db:      db,
		table:   table,
		timeout: timeout,
	}
}

// SaveCommitment applies the commitment in one UPDATE statement. Postgres row
// locking serializes concurrent calls for the same customer, and the history
// append reads the locked row so no entry is lost.
func (s *PostgresStore) SaveCommitment(ctx context.Context, c contractx.Commitment) error {
	if err := validateCommitment(c); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.updateQuery(c).Exec(ctx)
	if err != nil {
		return fmt.Errorf("%w: postgres update customer=%s: %v", contractx.ErrStoreWrite, c.CustomerID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: postgres rows affected: %v", contractx.ErrStoreWrite, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %w: customer=%s", contractx.ErrStoreWrite, contractx.ErrCustomerNotFound, c.CustomerID)
	}
	return nil
}

func (s *PostgresStore) updateQuery(c contractx.Commitment) *bun.UpdateQuery {
	return s.db.NewUpdate().
		Table(s.table).
		Set("? = ?", bun.Ident(FieldPromisedRepaymentDate), c.RepaymentDate).
		Set("? = ?", bun.Ident(FieldPromisedAmount), c.Amount).
		Set("? = ?", bun.Ident(FieldOverdueAmount), c.OverdueAmount).
		Set("? = now()", bun.Ident(FieldCommitmentMadeAt)).
		Set("? = now()", bun.Ident(FieldLastContact)).
		Set("? = ?", bun.Ident(FieldContactType), string(c.ContactType)).
		Set("? = ?", bun.Ident(FieldCommitmentStatus), string(c.Status)).
		Set(
			"? = COALESCE(?, '[]'::jsonb) || jsonb_build_array(jsonb_build_object('date', now(), 'call_id', ?, 'promised_date', ?, 'promised_amount', ?, 'status', ?))",
			bun.Ident(FieldPaymentHistory), bun.Ident(FieldPaymentHistory),
			c.CallID, c.RepaymentDate, c.Amount, string(c.Status),
		).
		Where("id = ?", c.CustomerID)
}

func (s *PostgresStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
