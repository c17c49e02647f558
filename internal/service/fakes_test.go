package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/samuraifrenchienft/Music-Legends-Final-sub000/internal/domain"
)

// memEconomy is an in-memory stand-in for the postgres stores that share a
// settlement transaction: trades, cards, and balances. InTx works on copies
// and commits only when fn succeeds, matching rollback semantics.
type memEconomy struct {
	mu       sync.Mutex
	trades   map[string]domain.Trade
	cards    map[string]domain.Card
	balances map[string]int64
}

func newMemEconomy() *memEconomy {
	return &memEconomy{
		trades:   make(map[string]domain.Trade),
		cards:    make(map[string]domain.Card),
		balances: make(map[string]int64),
	}
}

func (m *memEconomy) putCard(c domain.Card)        { m.mu.Lock(); m.cards[c.ID] = c; m.mu.Unlock() }
func (m *memEconomy) putBalance(id string, g int64) { m.mu.Lock(); m.balances[id] = g; m.mu.Unlock() }

func (m *memEconomy) trade(id string) domain.Trade {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.trades[id]
}

func (m *memEconomy) card(id string) domain.Card {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cards[id]
}

func (m *memEconomy) balance(id string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[id]
}

// TradeStore

func (m *memEconomy) Create(ctx context.Context, t domain.Trade) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.trades[t.ID]; ok {
		return domain.ErrAlreadyExists
	}
	m.trades[t.ID] = t
	return nil
}

func (m *memEconomy) GetByID(ctx context.Context, id string) (domain.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.trades[id]
	if !ok {
		return domain.Trade{}, domain.ErrNotFound
	}
	return t, nil
}

func (m *memEconomy) ListByParticipant(ctx context.Context, userID string, opts domain.ListOpts) ([]domain.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Trade
	for _, t := range m.trades {
		if t.HasParticipant(userID) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memEconomy) ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]domain.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Trade
	for _, t := range m.trades {
		if t.Status == domain.TradeStatusPending && t.Expired(now) {
			out = append(out, t)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// EconomyStore

func (m *memEconomy) InTx(ctx context.Context, fn func(tx domain.EconomyTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memTx{
		trades:   make(map[string]domain.Trade, len(m.trades)),
		cards:    make(map[string]domain.Card, len(m.cards)),
		balances: make(map[string]int64, len(m.balances)),
	}
	for k, v := range m.trades {
		tx.trades[k] = v
	}
	for k, v := range m.cards {
		tx.cards[k] = v
	}
	for k, v := range m.balances {
		tx.balances[k] = v
	}

	if err := fn(tx); err != nil {
		return err
	}
	m.trades = tx.trades
	m.cards = tx.cards
	m.balances = tx.balances
	return nil
}

type memTx struct {
	trades   map[string]domain.Trade
	cards    map[string]domain.Card
	balances map[string]int64
}

func (tx *memTx) GetTradeForUpdate(ctx context.Context, id string) (domain.Trade, error) {
	t, ok := tx.trades[id]
	if !ok {
		return domain.Trade{}, domain.ErrNotFound
	}
	return t, nil
}

func (tx *memTx) CloseTrade(ctx context.Context, id string, to domain.TradeStatus, reason string) error {
	t, ok := tx.trades[id]
	if !ok {
		return domain.ErrNotFound
	}
	if t.Status != domain.TradeStatusPending {
		return domain.ErrTradeNotPending
	}
	now := time.Now().UTC()
	t.Status = to
	t.CancelReason = reason
	t.ClosedAt = &now
	tx.trades[id] = t
	return nil
}

func (tx *memTx) TransferCard(ctx context.Context, cardID, fromOwner, toOwner string) error {
	c, ok := tx.cards[cardID]
	if !ok || c.OwnerID != fromOwner {
		return domain.ErrCardNotOwned
	}
	c.OwnerID = toOwner
	tx.cards[cardID] = c
	return nil
}

func (tx *memTx) AdjustGold(ctx context.Context, userID string, delta int64) error {
	next := tx.balances[userID] + delta
	if next < 0 {
		return domain.ErrInsufficientGold
	}
	tx.balances[userID] = next
	return nil
}

// CardStore

func (m *memEconomy) CreateCard(ctx context.Context, c domain.Card) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.cards[c.ID]; ok {
		return domain.ErrAlreadyExists
	}
	m.cards[c.ID] = c
	return nil
}

func (m *memEconomy) GetCardByID(ctx context.Context, id string) (domain.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cards[id]
	if !ok {
		return domain.Card{}, domain.ErrNotFound
	}
	return c, nil
}

func (m *memEconomy) ListByOwner(ctx context.Context, ownerID string, opts domain.ListOpts) ([]domain.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Card
	for _, c := range m.cards {
		if c.OwnerID == ownerID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memEconomy) Destroy(ctx context.Context, id, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cards[id]
	if !ok {
		return domain.ErrNotFound
	}
	if c.OwnerID != ownerID {
		return domain.ErrCardNotOwned
	}
	delete(m.cards, id)
	return nil
}

// cardStoreView adapts memEconomy to domain.CardStore; the method names
// collide with the trade store's otherwise.
type cardStoreView struct{ m *memEconomy }

func (v cardStoreView) Create(ctx context.Context, c domain.Card) error { return v.m.CreateCard(ctx, c) }
func (v cardStoreView) GetByID(ctx context.Context, id string) (domain.Card, error) {
	return v.m.GetCardByID(ctx, id)
}
func (v cardStoreView) ListByOwner(ctx context.Context, ownerID string, opts domain.ListOpts) ([]domain.Card, error) {
	return v.m.ListByOwner(ctx, ownerID, opts)
}
func (v cardStoreView) Destroy(ctx context.Context, id, ownerID string) error {
	return v.m.Destroy(ctx, id, ownerID)
}

// fakeLocks runs fn directly while recording which keys were requested.
type fakeLocks struct {
	mu   sync.Mutex
	keys []string
}

func (f *fakeLocks) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	f.mu.Lock()
	f.keys = append(f.keys, key)
	f.mu.Unlock()
	return func() {}, nil
}

func (f *fakeLocks) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	f.mu.Lock()
	f.keys = append(f.keys, key)
	f.mu.Unlock()
	return fn(ctx)
}

// fakeAudit records audit events for assertions.
type fakeAudit struct {
	mu      sync.Mutex
	entries []domain.AuditEntry
}

func (f *fakeAudit) Log(ctx context.Context, event, actorID, targetID string, detail map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, domain.AuditEntry{
		ID: int64(len(f.entries) + 1), Event: event, ActorID: actorID, TargetID: targetID, Detail: detail,
	})
	return nil
}

func (f *fakeAudit) List(ctx context.Context, opts domain.ListOpts) ([]domain.AuditEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.AuditEntry(nil), f.entries...), nil
}

func (f *fakeAudit) last(event string) domain.AuditEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.entries) - 1; i >= 0; i-- {
		if f.entries[i].Event == event {
			return f.entries[i]
		}
	}
	return domain.AuditEntry{}
}

func (f *fakeAudit) count(event string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.entries {
		if e.Event == event {
			n++
		}
	}
	return n
}

// fakeBus records published channels.
type fakeBus struct {
	mu       sync.Mutex
	channels []string
}

func (f *fakeBus) Publish(ctx context.Context, channel string, payload []byte) error {
	f.mu.Lock()
	f.channels = append(f.channels, channel)
	f.mu.Unlock()
	return nil
}

func (f *fakeBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	ch := make(chan []byte)
	close(ch)
	return ch, nil
}

// fakeSupply enforces global and per-template caps atomically, like the
// ledger's single-statement check-and-increment.
type fakeSupply struct {
	mu       sync.Mutex
	global   map[string]int64 // epoch/tier
	template map[string]int64 // epoch/tier/template
}

func newFakeSupply() *fakeSupply {
	return &fakeSupply{global: make(map[string]int64), template: make(map[string]int64)}
}

func (f *fakeSupply) TryMint(ctx context.Context, req domain.MintRequest) (domain.MintDecision, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	gKey := req.Epoch + "/" + string(req.Tier)
	if f.global[gKey] >= req.GlobalCap {
		return domain.MintDecision{
			Reason: domain.DenyCapReached, GlobalMinted: f.global[gKey], GlobalCap: req.GlobalCap,
		}, nil
	}
	tKey := gKey + "/" + req.TemplateID
	if req.TemplateCap > 0 && f.template[tKey] >= req.TemplateCap {
		return domain.MintDecision{
			Reason: domain.DenyTemplateCapReached, GlobalMinted: f.global[gKey], GlobalCap: req.GlobalCap,
		}, nil
	}

	f.global[gKey]++
	f.template[tKey]++
	return domain.MintDecision{
		Allowed: true, Serial: f.template[tKey], GlobalMinted: f.global[gKey], GlobalCap: req.GlobalCap,
	}, nil
}

func (f *fakeSupply) Counts(ctx context.Context, epoch string) ([]domain.SupplyCount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.SupplyCount
	for k, v := range f.global {
		out = append(out, domain.SupplyCount{Epoch: epoch, Tier: domain.Tier(k), Minted: v})
	}
	return out, nil
}

// fakeTemplates is a fixed catalog.
type fakeTemplates struct {
	templates map[string]domain.CardTemplate
}

func (f *fakeTemplates) GetByID(ctx context.Context, id string) (domain.CardTemplate, error) {
	tpl, ok := f.templates[id]
	if !ok {
		return domain.CardTemplate{}, domain.ErrNotFound
	}
	return tpl, nil
}

// fakeLimiter counts attempts per user, ignoring day boundaries.
type fakeLimiter struct {
	mu     sync.Mutex
	counts map[string]int64
}

func newFakeLimiter() *fakeLimiter { return &fakeLimiter{counts: make(map[string]int64)} }

func (f *fakeLimiter) AllowDaily(ctx context.Context, userID string, limit int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[userID]++
	return f.counts[userID] <= limit, nil
}

// fakeListings mirrors the guarded compare-and-set transitions of the
// postgres listing store.
type fakeListings struct {
	mu       sync.Mutex
	listings map[string]domain.Listing
}

func newFakeListings() *fakeListings {
	return &fakeListings{listings: make(map[string]domain.Listing)}
}

func (f *fakeListings) put(l domain.Listing) { f.mu.Lock(); f.listings[l.ID] = l; f.mu.Unlock() }

func (f *fakeListings) get(id string) domain.Listing {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listings[id]
}

func (f *fakeListings) Create(ctx context.Context, l domain.Listing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.listings[l.ID]; ok {
		return domain.ErrAlreadyExists
	}
	f.listings[l.ID] = l
	return nil
}

func (f *fakeListings) GetByID(ctx context.Context, id string) (domain.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.listings[id]
	if !ok {
		return domain.Listing{}, domain.ErrNotFound
	}
	return l, nil
}

func (f *fakeListings) ListByReviewStatus(ctx context.Context, status domain.ReviewStatus, opts domain.ListOpts) ([]domain.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Listing
	for _, l := range f.listings {
		if l.ReviewStatus == status {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeListings) SetApprovedCaptured(ctx context.Context, id, reviewerID, chargeID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.listings[id]
	if !ok {
		return domain.ErrNotFound
	}
	if l.ReviewStatus != domain.ReviewStatusPending || l.PaymentStatus != domain.PaymentStatusAuthorized {
		return domain.ErrStatusConflict
	}
	now := time.Now().UTC()
	l.ReviewStatus = domain.ReviewStatusApproved
	l.PaymentStatus = domain.PaymentStatusCaptured
	l.ReviewerID = reviewerID
	l.ChargeID = chargeID
	l.ReviewedAt = &now
	f.listings[id] = l
	return nil
}

func (f *fakeListings) SetPaymentFailed(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.listings[id]
	if !ok {
		return domain.ErrNotFound
	}
	if l.ReviewStatus != domain.ReviewStatusPending || l.PaymentStatus != domain.PaymentStatusAuthorized {
		return domain.ErrStatusConflict
	}
	l.PaymentStatus = domain.PaymentStatusFailed
	f.listings[id] = l
	return nil
}

func (f *fakeListings) SetRejected(ctx context.Context, id, reviewerID, reason string, payment domain.PaymentStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.listings[id]
	if !ok {
		return domain.ErrNotFound
	}
	if l.ReviewStatus != domain.ReviewStatusPending {
		return domain.ErrStatusConflict
	}
	now := time.Now().UTC()
	l.ReviewStatus = domain.ReviewStatusRejected
	l.PaymentStatus = payment
	l.ReviewerID = reviewerID
	l.RejectReason = reason
	l.ReviewedAt = &now
	f.listings[id] = l
	return nil
}

func (f *fakeListings) SetDisabled(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.listings[id]
	if !ok {
		return domain.ErrNotFound
	}
	if l.ReviewStatus != domain.ReviewStatusApproved {
		return domain.ErrStatusConflict
	}
	l.ReviewStatus = domain.ReviewStatusDisabled
	f.listings[id] = l
	return nil
}

func (f *fakeListings) SetDisabledRefunded(ctx context.Context, id, reviewerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.listings[id]
	if !ok {
		return domain.ErrNotFound
	}
	if l.ReviewStatus != domain.ReviewStatusApproved || l.PaymentStatus != domain.PaymentStatusCaptured {
		return domain.ErrStatusConflict
	}
	l.ReviewStatus = domain.ReviewStatusDisabled
	l.PaymentStatus = domain.PaymentStatusRefunded
	l.ReviewerID = reviewerID
	f.listings[id] = l
	return nil
}

func (f *fakeListings) SetCardIDs(ctx context.Context, id string, cardIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.listings[id]
	if !ok {
		return domain.ErrNotFound
	}
	l.CardIDs = append([]string(nil), cardIDs...)
	f.listings[id] = l
	return nil
}

// fakeProcessor scripts the payment processor. Zero value succeeds on every
// call; set the per-operation error fields to fail them.
type fakeProcessor struct {
	mu         sync.Mutex
	seq        int
	authorizes int
	captures   int
	voids      int
	refunds    int

	authorizeErr error
	captureErr   error
	voidErr      error
	refundErr    error

	// onCapture runs inside Capture before the error check, for race setups.
	onCapture func()
}

func (f *fakeProcessor) Authorize(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (domain.Authorization, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authorizes++
	if f.authorizeErr != nil {
		return domain.Authorization{}, f.authorizeErr
	}
	f.seq++
	return domain.Authorization{
		Reference: fmt.Sprintf("auth-%d", f.seq),
		State:     domain.ProcessorStateAuthorized,
	}, nil
}

func (f *fakeProcessor) Capture(ctx context.Context, reference string) (domain.Capture, error) {
	f.mu.Lock()
	onCapture := f.onCapture
	f.mu.Unlock()
	if onCapture != nil {
		onCapture()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.captures++
	if f.captureErr != nil {
		return domain.Capture{}, f.captureErr
	}
	f.seq++
	return domain.Capture{
		Reference: reference,
		ChargeID:  fmt.Sprintf("ch-%d", f.seq),
		State:     domain.ProcessorStateCaptured,
	}, nil
}

func (f *fakeProcessor) Void(ctx context.Context, reference string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.voids++
	return f.voidErr
}

func (f *fakeProcessor) Refund(ctx context.Context, chargeID string, amountCents int64) (domain.Refund, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refunds++
	if f.refundErr != nil {
		return domain.Refund{}, f.refundErr
	}
	return domain.Refund{ChargeID: chargeID, AmountCents: amountCents, State: domain.ProcessorStateRefunded}, nil
}

func (f *fakeProcessor) Status(ctx context.Context, reference string) (domain.ProcessorState, error) {
	return domain.ProcessorStateUnknown, nil
}

// fakePaylog records payment attempts keyed by reference.
type fakePaylog struct {
	mu       sync.Mutex
	attempts map[string][]domain.PaymentAttempt
}

func newFakePaylog() *fakePaylog {
	return &fakePaylog{attempts: make(map[string][]domain.PaymentAttempt)}
}

func (f *fakePaylog) Record(ctx context.Context, attempt domain.PaymentAttempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts[attempt.Reference] = append(f.attempts[attempt.Reference], attempt)
	return nil
}

func (f *fakePaylog) ListByReference(ctx context.Context, reference string) ([]domain.PaymentAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.PaymentAttempt(nil), f.attempts[reference]...), nil
}

// fakeAlerter records operator alerts.
type fakeAlerter struct {
	mu     sync.Mutex
	alerts []string
}

func (f *fakeAlerter) Alert(ctx context.Context, event, title, body string) error {
	f.mu.Lock()
	f.alerts = append(f.alerts, event)
	f.mu.Unlock()
	return nil
}

func (f *fakeAlerter) count(event string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.alerts {
		if e == event {
			n++
		}
	}
	return n
}
