package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/khata-app/khata-backend/internal/api/validate"
	"github.com/khata-app/khata-backend/internal/calculator"
	"github.com/khata-app/khata-backend/internal/ledger"
	"github.com/khata-app/khata-backend/internal/metrics"
	"github.com/khata-app/khata-backend/internal/models"
	repo "github.com/khata-app/khata-backend/internal/repository"
	"github.com/khata-app/khata-backend/internal/worker"
)

// ErrNotAuthenticated aborts any ledger operation issued without a user
// identity. Nothing is read or written in that case.
var ErrNotAuthenticated = errors.New("not authenticated")

// Session carries the authenticated identity through every operation. It is
// passed explicitly instead of living in ambient process state.
type Session struct {
	UserID string
}

func (s Session) check() error {
	if s.UserID == "" {
		return ErrNotAuthenticated
	}
	return nil
}

type ViewPhase string

const (
	PhaseIdle    ViewPhase = "idle"
	PhaseLoading ViewPhase = "loading"
	PhaseReady   ViewPhase = "ready"
	PhaseSaving  ViewPhase = "saving"
)

// ContactView is the per-contact view state the reconciler drives:
// Idle -> Loading -> Ready, with Saving on explicit writes. There is no
// terminal phase; the cycle repeats for the lifetime of the view.
type ContactView struct {
	Phase      ViewPhase         `json:"phase"`
	Contact    models.Contact    `json:"contact"`
	Settlement models.Settlement `json:"settlement"`

	gen uint64 // refresh generation; a superseded result must not apply
}

// ContactSummary is one row of the per-user overview, transactions elided.
type ContactSummary struct {
	Contact    models.Contact    `json:"contact"`
	Settlement models.Settlement `json:"settlement"`
}

// Reconciler coordinates store reads/writes with view state and the
// settlement calculator. Every write is followed by a full re-fetch rather
// than a local splice, except contact scalar edits which patch in place.
type Reconciler struct {
	store  *ledger.Store
	audits repo.AuditLogs
	wp     *worker.Pool
	log    *slog.Logger
}

func NewReconciler(store *ledger.Store, audits repo.AuditLogs, wp *worker.Pool) *Reconciler {
	return &Reconciler{store: store, audits: audits, wp: wp, log: slog.Default()}
}

// NewView seeds a view from a caller-supplied contact reference (navigation
// parameters in the source system). The reference doubles as the fallback
// when a refresh finds no matching contact.
func (r *Reconciler) NewView(ref models.Contact) *ContactView {
	return &ContactView{
		Phase:      PhaseIdle,
		Contact:    ref,
		Settlement: calculator.ComputeSettlement(ref.Transactions),
	}
}

// Refresh fetches the full contact snapshot, matches the viewed contact by
// phone number and recomputes the settlement. On store failure the prior
// view state is left intact. A result arriving after cancellation or after
// a newer refresh is discarded.
func (r *Reconciler) Refresh(ctx context.Context, sess Session, view *ContactView) error {
	if err := sess.check(); err != nil {
		return err
	}
	prev := view.Phase
	if prev == PhaseLoading || prev == PhaseSaving {
		// a failed load must not strand the view in a transient phase
		prev = PhaseReady
	}
	view.Phase = PhaseLoading
	view.gen++
	gen := view.gen

	contacts, err := r.store.FetchContacts(ctx, sess.UserID)
	if err != nil {
		view.Phase = prev
		r.log.Error("refresh", "user", sess.UserID, "err", err)
		return err
	}
	if view.gen != gen {
		// a newer refresh owns the view now
		return nil
	}
	if err := ctx.Err(); err != nil {
		view.Phase = prev
		return err
	}
	metrics.LedgerFetchesTotal.Inc()

	found, ok := ledger.FindContactByID(contacts, view.Contact.ID)
	if !ok {
		found, ok = ledger.FindContactByPhone(contacts, view.Contact.PhoneNumber)
	}
	if ok {
		view.Contact = found
	}
	// no match: keep the last known data instead of showing empty state
	view.Settlement = calculator.ComputeSettlement(view.Contact.Transactions)
	view.Phase = PhaseReady
	return nil
}

// CreateContact validates and persists a new contact for the session user.
func (r *Reconciler) CreateContact(ctx context.Context, sess Session, c models.Contact) (models.Contact, error) {
	if err := sess.check(); err != nil {
		return models.Contact{}, err
	}
	c.Name = strings.TrimSpace(c.Name)
	c.PhoneNumber = strings.TrimSpace(c.PhoneNumber)
	if err := c.Validate(); err != nil {
		return models.Contact{}, err
	}
	id, err := r.store.CreateContact(ctx, sess.UserID, c)
	if err != nil {
		metrics.LedgerWriteFailures.Inc()
		r.log.Error("create contact", "user", sess.UserID, "err", err)
		return models.Contact{}, err
	}
	metrics.LedgerWritesTotal.WithLabelValues("create_contact").Inc()
	r.audit("contact", id, "created", string(c.UserType)+" added")
	c.ID = id
	return c, nil
}

// AddTransaction records a send/receive entry against the viewed contact,
// creating the contact first if its phone number is not in the store yet.
// On success the view is reconciled with a full re-fetch.
func (r *Reconciler) AddTransaction(ctx context.Context, sess Session, view *ContactView, txnType models.TransactionType, amount int64) error {
	if err := sess.check(); err != nil {
		return err
	}
	if e := validate.MinInt("amount", amount, 0); e != nil {
		return validate.Errs{*e}
	}
	prev := view.Phase
	view.Phase = PhaseSaving

	id, err := r.store.AppendTransaction(ctx, sess.UserID, view.Contact, models.Transaction{
		Type:   txnType,
		Amount: amount,
	})
	if err != nil {
		view.Phase = prev
		metrics.LedgerWriteFailures.Inc()
		r.log.Error("add transaction", "user", sess.UserID, "err", err)
		return err
	}
	metrics.LedgerWritesTotal.WithLabelValues("append_transaction").Inc()
	r.audit("transaction", id, "created", string(txnType)+" recorded")

	return r.Refresh(ctx, sess, view)
}

// EditContact validates and persists scalar field changes, then patches the
// local view directly. This is the one write path that does not re-fetch;
// the displayed transactions and settlement are untouched by it.
func (r *Reconciler) EditContact(ctx context.Context, sess Session, view *ContactView, fields models.Contact) error {
	if err := sess.check(); err != nil {
		return err
	}
	fields.Name = strings.TrimSpace(fields.Name)
	fields.PhoneNumber = strings.TrimSpace(fields.PhoneNumber)
	if err := fields.Validate(); err != nil {
		return err
	}
	prev := view.Phase
	view.Phase = PhaseSaving

	if err := r.store.UpdateContact(ctx, sess.UserID, view.Contact.ID, fields); err != nil {
		view.Phase = prev
		metrics.LedgerWriteFailures.Inc()
		r.log.Error("edit contact", "user", sess.UserID, "contact", view.Contact.ID, "err", err)
		return err
	}
	metrics.LedgerWritesTotal.WithLabelValues("update_contact").Inc()
	r.audit("contact", view.Contact.ID, "updated", "details edited")

	view.Contact.Name = fields.Name
	view.Contact.PhoneNumber = fields.PhoneNumber
	view.Contact.Email = fields.Email
	view.Contact.Address = fields.Address
	view.Contact.UpdatedAt = time.Now().UnixMilli()
	view.Phase = PhaseReady
	return nil
}

// EditTransactionAmount rewrites one transaction's amount and reconciles
// with a full re-fetch so the settlement reflects the correction.
func (r *Reconciler) EditTransactionAmount(ctx context.Context, sess Session, view *ContactView, txnID string, newAmount int64) error {
	if err := sess.check(); err != nil {
		return err
	}
	prev := view.Phase
	view.Phase = PhaseSaving

	if err := r.store.UpdateTransactionAmount(ctx, sess.UserID, view.Contact.ID, txnID, newAmount); err != nil {
		view.Phase = prev
		metrics.LedgerWriteFailures.Inc()
		r.log.Error("edit transaction", "user", sess.UserID, "txn", txnID, "err", err)
		return err
	}
	metrics.LedgerWritesTotal.WithLabelValues("update_transaction").Inc()
	r.audit("transaction", txnID, "amount_changed", "")

	return r.Refresh(ctx, sess, view)
}

// Overview lists the user's contacts with computed settlements, optionally
// filtered by user type (the customer and supplier home screens).
func (r *Reconciler) Overview(ctx context.Context, sess Session, filter models.UserType) ([]ContactSummary, error) {
	if err := sess.check(); err != nil {
		return nil, err
	}
	contacts, err := r.store.FetchContacts(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	metrics.LedgerFetchesTotal.Inc()

	out := make([]ContactSummary, 0, len(contacts))
	for _, c := range contacts {
		if filter != "" && c.UserType != filter {
			continue
		}
		settlement := calculator.ComputeSettlement(c.Transactions)
		c.Transactions = nil
		out = append(out, ContactSummary{Contact: c, Settlement: settlement})
	}
	return out, nil
}

// Detail returns one contact by id with its transactions and settlement.
func (r *Reconciler) Detail(ctx context.Context, sess Session, contactID string) (ContactSummary, error) {
	if err := sess.check(); err != nil {
		return ContactSummary{}, err
	}
	contacts, err := r.store.FetchContacts(ctx, sess.UserID)
	if err != nil {
		return ContactSummary{}, err
	}
	metrics.LedgerFetchesTotal.Inc()

	for _, c := range contacts {
		if c.ID == contactID {
			return ContactSummary{Contact: c, Settlement: calculator.ComputeSettlement(c.Transactions)}, nil
		}
	}
	return ContactSummary{}, ledger.ErrNotFound
}

func (r *Reconciler) audit(entityType, entityID, action, msg string) {
	id := entityID
	var det map[string]any
	if msg != "" {
		det = map[string]any{"message": msg}
	}
	r.wp.Submit(func() {
		_ = r.audits.Create(context.Background(), models.AuditLog{
			EntityType: entityType,
			EntityID:   &id,
			Action:     action,
			Details:    det,
		})
	})
}
