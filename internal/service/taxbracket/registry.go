package taxbracket

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Snapshot is an immutable view of the registry. Writers never touch a published
// snapshot; they build a new bracket slice and swap the registry's pointer.
type Snapshot struct {
	brackets []payroll.TaxBracket
}

// Brackets returns a copy of every bracket in the snapshot, whatever its status.
func (s *Snapshot) Brackets() []payroll.TaxBracket {
	out := make([]payroll.TaxBracket, 0, len(s.brackets))
	for _, b := range s.brackets {
		out = append(out, cloneBracket(b))
	}
	return out
}

// ActiveBracketsAsOf returns the active brackets effective on date, ascending by MinIncome.
func (s *Snapshot) ActiveBracketsAsOf(date time.Time) (payroll.BracketSet, error) {
	var active []payroll.TaxBracket
	for _, b := range s.brackets {
		if b.Status == payroll.BracketStatusActive && b.EffectiveOn(date) {
			active = append(active, cloneBracket(b))
		}
	}
	return payroll.NewBracketSet(date, active)
}

var _ payroll.BracketRegistry = (*Registry)(nil)

type Registry struct {
	mu      sync.Mutex // serialises writers
	current atomic.Pointer[Snapshot]
	logger  *slog.Logger
}

func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{logger: logger}
	r.current.Store(&Snapshot{})
	return r
}

// Snapshot returns the current immutable view. Hold on to it for the length of a batch.
func (r *Registry) Snapshot() *Snapshot {
	return r.current.Load()
}

func (r *Registry) ActiveBracketsAsOf(date time.Time) (payroll.BracketSet, error) {
	return r.Snapshot().ActiveBracketsAsOf(date)
}

func (r *Registry) Brackets() []payroll.TaxBracket {
	return r.Snapshot().Brackets()
}

// ========== WRITES ==========

func (r *Registry) AddBracket(candidate payroll.TaxBracket) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	candidate = cloneBracket(candidate)
	if candidate.Status == "" {
		candidate.Status = payroll.BracketStatusActive
	}
	if candidate.ID == "" {
		candidate.ID = newBracketID()
	}

	current := r.current.Load().brackets
	if _, ok := indexOf(current, candidate.ID); ok {
		return "", r.reject("add", candidate.ID, fmt.Errorf("%w: bracket id %s already exists", payroll.ErrInvalidInput, candidate.ID))
	}
	if err := validateAgainst(current, candidate, ""); err != nil {
		return "", r.reject("add", candidate.ID, err)
	}

	next := make([]payroll.TaxBracket, 0, len(current)+1)
	next = append(next, current...)
	next = append(next, candidate)
	r.publish(next)

	r.logger.Info("tax bracket added", "bracket_id", candidate.ID, "status", candidate.Status)
	return candidate.ID, nil
}

func (r *Registry) UpdateBracket(id string, changes payroll.UpdateTaxBracketRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current := r.current.Load().brackets
	idx, ok := indexOf(current, id)
	if !ok {
		return r.reject("update", id, payroll.ErrBracketNotFound)
	}

	updated := changes.Apply(cloneBracket(current[idx]))
	if err := validateAgainst(current, updated, id); err != nil {
		return r.reject("update", id, err)
	}

	r.publish(replaceAt(current, idx, updated))
	r.logger.Info("tax bracket updated", "bracket_id", id)
	return nil
}

// Activate moves a pending or inactive bracket to active, re-checking overlap first.
func (r *Registry) Activate(id string) error {
	return r.transition(id, payroll.BracketStatusActive)
}

// Deactivate moves a bracket to inactive. Expired brackets stay expired.
func (r *Registry) Deactivate(id string) error {
	return r.transition(id, payroll.BracketStatusInactive)
}

func (r *Registry) transition(id string, to payroll.BracketStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	op := "activate"
	if to == payroll.BracketStatusInactive {
		op = "deactivate"
	}

	current := r.current.Load().brackets
	idx, ok := indexOf(current, id)
	if !ok {
		return r.reject(op, id, payroll.ErrBracketNotFound)
	}
	from := current[idx].Status
	if from == to {
		return nil
	}
	if from == payroll.BracketStatusExpired {
		return r.reject(op, id, fmt.Errorf("%w: %s -> %s", payroll.ErrInvalidTransition, from, to))
	}

	updated := cloneBracket(current[idx])
	updated.Status = to
	if to == payroll.BracketStatusActive {
		if err := validateAgainst(current, updated, id); err != nil {
			return r.reject(op, id, err)
		}
	}

	r.publish(replaceAt(current, idx, updated))
	r.logger.Info("tax bracket status changed", "bracket_id", id, "from", from, "to", to)
	return nil
}

// ExpireElapsed marks active brackets whose EffectiveTo is a day before now's date
// as expired and returns how many changed. A bracket stays active through its last day.
func (r *Registry) ExpireElapsed(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	current := r.current.Load().brackets
	next := make([]payroll.TaxBracket, len(current))
	copy(next, current)

	today := payroll.CalendarDate(now)
	expired := 0
	for i, b := range next {
		if b.Status == payroll.BracketStatusActive && b.EffectiveTo != nil && payroll.CalendarDate(*b.EffectiveTo).Before(today) {
			b = cloneBracket(b)
			b.Status = payroll.BracketStatusExpired
			next[i] = b
			expired++
		}
	}
	if expired > 0 {
		r.publish(next)
		r.logger.Info("tax brackets expired", "count", expired, "as_of", now.Format(time.RFC3339))
	}
	return expired
}

// Load replaces the registry contents, e.g. from the reference-data repository.
// Either every bracket is accepted or the registry is left unchanged.
func (r *Registry) Load(brackets []payroll.TaxBracket) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := make([]payroll.TaxBracket, 0, len(brackets))
	for _, b := range brackets {
		b = cloneBracket(b)
		if b.Status == "" {
			b.Status = payroll.BracketStatusActive
		}
		if b.ID == "" {
			b.ID = newBracketID()
		}
		if _, ok := indexOf(next, b.ID); ok {
			return r.reject("load", b.ID, fmt.Errorf("%w: duplicate bracket id %s", payroll.ErrInvalidInput, b.ID))
		}
		if err := validateAgainst(next, b, ""); err != nil {
			return r.reject("load", b.ID, err)
		}
		next = append(next, b)
	}

	r.publish(next)
	r.logger.Info("tax brackets loaded", "count", len(next))
	return nil
}

func (r *Registry) publish(brackets []payroll.TaxBracket) {
	r.current.Store(&Snapshot{brackets: brackets})
}

func (r *Registry) reject(op, id string, err error) error {
	r.logger.Warn("tax bracket write rejected", "op", op, "bracket_id", id, "error", err)
	return err
}

// ========== HELPERS ==========

// validateAgainst checks candidate on its own and, when it is active, against
// every other active bracket. excludeID is the bracket being edited.
func validateAgainst(existing []payroll.TaxBracket, candidate payroll.TaxBracket, excludeID string) error {
	if err := candidate.Validate(); err != nil {
		return err
	}
	if candidate.Status != payroll.BracketStatusActive {
		return nil
	}
	for _, b := range existing {
		if b.ID == excludeID || b.Status != payroll.BracketStatusActive {
			continue
		}
		if datesOverlap(b, candidate) && incomesOverlap(b, candidate) {
			return &payroll.OverlapError{BracketID: b.ID}
		}
	}
	return nil
}

// incomesOverlap treats each bracket as the half-open range (MinIncome, MaxIncome].
// Brackets that only share an endpoint do not overlap.
func incomesOverlap(a, b payroll.TaxBracket) bool {
	return below(a.MinIncome, b.MaxIncome) && below(b.MinIncome, a.MaxIncome)
}

func below(v decimal.Decimal, upper *decimal.Decimal) bool {
	return upper == nil || v.LessThan(*upper)
}

func datesOverlap(a, b payroll.TaxBracket) bool {
	return notAfter(a.EffectiveFrom, b.EffectiveTo) && notAfter(b.EffectiveFrom, a.EffectiveTo)
}

func notAfter(t time.Time, end *time.Time) bool {
	return end == nil || !payroll.CalendarDate(t).After(payroll.CalendarDate(*end))
}

func indexOf(brackets []payroll.TaxBracket, id string) (int, bool) {
	for i, b := range brackets {
		if b.ID == id {
			return i, true
		}
	}
	return -1, false
}

func replaceAt(brackets []payroll.TaxBracket, idx int, b payroll.TaxBracket) []payroll.TaxBracket {
	next := make([]payroll.TaxBracket, len(brackets))
	copy(next, brackets)
	next[idx] = b
	return next
}

// cloneBracket copies the pointer fields so callers cannot reach into registry state.
func cloneBracket(b payroll.TaxBracket) payroll.TaxBracket {
	if b.MaxIncome != nil {
		v := *b.MaxIncome
		b.MaxIncome = &v
	}
	if b.CumulativeTaxBelow != nil {
		v := *b.CumulativeTaxBelow
		b.CumulativeTaxBelow = &v
	}
	if b.EffectiveTo != nil {
		v := *b.EffectiveTo
		b.EffectiveTo = &v
	}
	return b
}

func newBracketID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
