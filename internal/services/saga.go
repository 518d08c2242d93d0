// internal/services/saga.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/rfmontes/angel-fit-app/internal/store"
)

type stepFunc func(ctx context.Context, ds store.DataStore) error

type compensation struct {
	step string
	undo stepFunc
}

// mutation is one multi-step sale operation against the store. In atomic
// mode every step runs inside a store transaction and undo functions are
// ignored. Otherwise each completed step registers its undo, and a failure
// replays them in reverse order.
type mutation struct {
	ctx        context.Context
	op         string
	saleID     uuid.UUID
	store      store.DataStore
	atomic     bool
	failedStep string
	undo       []compensation
}

func (m *mutation) step(name string, do, undo stepFunc) error {
	if err := do(m.ctx, m.store); err != nil {
		m.failedStep = name
		return fmt.Errorf("%s: %w", name, err)
	}
	if undo != nil && !m.atomic {
		m.undo = append(m.undo, compensation{step: name, undo: undo})
	}
	return nil
}

// compensate runs every registered undo, newest first. It keeps going after
// a failed undo so as much as possible is restored.
func (m *mutation) compensate() error {
	ctx := context.WithoutCancel(m.ctx)
	var errs []error
	for i := len(m.undo) - 1; i >= 0; i-- {
		c := m.undo[i]
		if err := c.undo(ctx, m.store); err != nil {
			errs = append(errs, fmt.Errorf("undo %s: %w", c.step, err))
		}
	}
	return errors.Join(errs...)
}

// atomic reports whether mutations run as store transactions.
func (s *InventoryService) atomic() (store.Transactor, bool) {
	if !s.config.UseTransactions {
		return nil, false
	}
	tx, ok := s.store.(store.Transactor)
	return tx, ok
}

// mutate runs body as one sale operation. The caller must hold opMu and must
// only touch the cache after mutate returns nil.
func (s *InventoryService) mutate(ctx context.Context, op string, saleID uuid.UUID, body func(m *mutation) error) error {
	start := time.Now()
	log := s.logger.WithFields(logrus.Fields{
		"operation": op,
		"sale_id":   saleID,
	})

	if tx, ok := s.atomic(); ok {
		var m *mutation
		err := tx.Transaction(ctx, func(ds store.DataStore) error {
			m = &mutation{ctx: ctx, op: op, saleID: saleID, store: ds, atomic: true}
			return body(m)
		})
		if err != nil {
			s.metrics.ObserveOperation(op, "rolled_back", time.Since(start))
			log.WithError(err).Warn("Sale operation rolled back")
			return err
		}
		s.metrics.ObserveOperation(op, "success", time.Since(start))
		return nil
	}

	m := &mutation{ctx: ctx, op: op, saleID: saleID, store: s.store}
	err := body(m)
	if err == nil {
		s.metrics.ObserveOperation(op, "success", time.Since(start))
		return nil
	}
	if m.saleID != uuid.Nil {
		log = log.WithField("sale_id", m.saleID)
	}

	if cerr := m.compensate(); cerr != nil {
		s.metrics.ObserveOperation(op, "partial_failure", time.Since(start))
		log.WithError(err).WithField("compensation_error", cerr.Error()).
			Error("Sale operation failed and could not be undone")
		if lerr := s.load(ctx); lerr != nil {
			log.WithError(lerr).Error("Failed to resync cache after partial failure")
		}
		return &PartialFailureError{
			Operation:       op,
			Step:            m.failedStep,
			SaleID:          m.saleID,
			Err:             err,
			CompensationErr: cerr,
		}
	}

	s.metrics.ObserveOperation(op, "rolled_back", time.Since(start))
	log.WithError(err).WithField("steps_undone", len(m.undo)).Warn("Sale operation compensated")
	return err
}
