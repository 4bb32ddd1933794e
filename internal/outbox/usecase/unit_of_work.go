package usecase

import (
	"context"
	"time"

	"github.com/allisson/eventledger/internal/database"
	apperrors "github.com/allisson/eventledger/internal/errors"
)

// unitOfWork implements UnitOfWork on top of a TxManager and a Ledger that joins its transaction.
type unitOfWork struct {
	txManager database.TxManager
	ledger    Ledger
	now       func() time.Time
}

// NewUnitOfWork creates a new UnitOfWork.
func NewUnitOfWork(txManager database.TxManager, ledger Ledger) UnitOfWork {
	return &unitOfWork{txManager: txManager, ledger: ledger, now: time.Now}
}

// Save runs persist and appends every pending event of source in one transaction.
// The aggregate is stamped, versioned and cleared only after commit; on failure its
// pending events are kept so the caller can retry.
func (u *unitOfWork) Save(ctx context.Context, source EventSource, actor string, persist PersistFunc) error {
	events := source.PendingEvents()
	version := source.Version()
	stamp := Stamp{
		Actor:           actor,
		At:              u.now().UTC(),
		ExpectedVersion: version,
		Version:         version + 1,
		Created:         version == 0,
	}

	err := u.txManager.WithTx(ctx, func(ctx context.Context) error {
		if persist != nil {
			if err := persist(ctx, stamp); err != nil {
				return err
			}
		}
		for _, envelope := range events {
			if _, err := u.ledger.Append(ctx, envelope); err != nil {
				return apperrors.Wrapf(err, "failed to append event %s", envelope.EventType)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if stamp.Created {
		source.MarkAsCreated(actor, stamp.At)
	} else {
		source.MarkAsUpdated(actor, stamp.At)
	}
	source.IncrementVersion()
	source.ClearEvents()

	return nil
}
