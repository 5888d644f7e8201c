package service

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"address_vision/internal/app/port"
	"address_vision/internal/domain/entity"
	"address_vision/internal/infrastructure/metrics"

	"golang.org/x/sync/errgroup"
)

// SessionConfig tunes a LookupSession.
type SessionConfig struct {
	// Concurrency bounds the number of simultaneous source fetches.
	Concurrency int
	// ContractChain is where bytecode is probed. Nil disables contract introspection.
	ContractChain *entity.ChainContext
}

type sessionState struct {
	submitted  bool
	query      string
	hint       string
	identity   *entity.ResolvedIdentity
	resolveErr error

	contract entity.SourceResult[entity.ContractInfo]
	tokens   map[uint64]entity.SourceResult[[]entity.TokenHolding]
	nfts     map[uint64]entity.SourceResult[[]entity.NftHolding]
	poaps    entity.SourceResult[[]entity.PoapHolding]
	social   entity.SourceResult[entity.SocialProfile]
}

// LookupSession is the single writer of the observable lookup state. Every submit starts a new
// generation; results carrying an older generation are discarded.
type LookupSession struct {
	normalizer *QueryNormalizer
	resolver   *IdentityResolver
	aggregator *Aggregator
	chains     port.ChainProvider
	sources    *SourceSet
	cfg        SessionConfig
	logger     port.Logger

	generation atomic.Uint64
	mu         sync.RWMutex
	state      sessionState
	cancel     context.CancelFunc
	runs       sync.WaitGroup

	subMu       sync.RWMutex
	nextSubID   int
	subscribers map[int]func(port.LookupSnapshot)
	handlers    []port.IdentityEventHandler

	now func() time.Time
}

// NewLookupSession creates an idle session.
func NewLookupSession(
	normalizer *QueryNormalizer,
	resolver *IdentityResolver,
	aggregator *Aggregator,
	chains port.ChainProvider,
	sources *SourceSet,
	cfg SessionConfig,
	logger port.Logger,
) *LookupSession {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 10
	}
	return &LookupSession{
		normalizer:  normalizer,
		resolver:    resolver,
		aggregator:  aggregator,
		chains:      chains,
		sources:     sources,
		cfg:         cfg,
		logger:      logger,
		subscribers: make(map[int]func(port.LookupSnapshot)),
		now:         time.Now,
	}
}

// OnIdentityResolved registers a handler called once per generation with the resolved identity.
func (s *LookupSession) OnIdentityResolved(h port.IdentityEventHandler) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.handlers = append(s.handlers, h)
}

// Subscribe registers fn to receive a snapshot after every state change. The returned func unsubscribes.
func (s *LookupSession) Subscribe(fn func(port.LookupSnapshot)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subscribers, id)
	}
}

// Submit implements port.LookupService. Invalid input only sets the hint; no calls are made
// and the rest of the state is kept. A valid query supersedes any lookup in flight.
func (s *LookupSession) Submit(ctx context.Context, raw string) entity.ViewState {
	q := s.normalizer.Normalize(raw)
	if !q.IsValid() {
		s.mu.Lock()
		s.state.hint = InvalidQueryHint
		s.mu.Unlock()
		s.notify()
		return s.Snapshot().View
	}

	// The lookup outlives the submitting request.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	// The generation bump, cancel swap and state reset are one step for concurrent submits.
	s.mu.Lock()
	gen := s.generation.Add(1)
	if s.cancel != nil {
		s.cancel()
	}
	s.cancel = cancel
	s.state = s.pendingState(q.Render())
	s.mu.Unlock()
	metrics.CurrentGeneration.Set(float64(gen))

	s.logger.Info("Lookup submitted", "query", q.Render(), "kind", q.Kind.String(), "generation", gen)
	s.notify()

	s.runs.Add(1)
	go func() {
		defer s.runs.Done()
		s.run(runCtx, gen, q)
	}()
	return s.Snapshot().View
}

func (s *LookupSession) pendingState(query string) sessionState {
	st := sessionState{
		submitted: true,
		query:     query,
		contract:  entity.PendingResult[entity.ContractInfo](),
		tokens:    make(map[uint64]entity.SourceResult[[]entity.TokenHolding]),
		nfts:      make(map[uint64]entity.SourceResult[[]entity.NftHolding]),
		poaps:     entity.PendingResult[[]entity.PoapHolding](),
		social:    entity.PendingResult[entity.SocialProfile](),
	}
	if s.cfg.ContractChain == nil {
		st.contract = entity.EmptyResult[entity.ContractInfo](s.now())
	}
	for _, c := range s.chains.GetAllChains() {
		st.tokens[c.ChainID] = entity.PendingResult[[]entity.TokenHolding]()
		st.nfts[c.ChainID] = entity.PendingResult[[]entity.NftHolding]()
	}
	return st
}

func (s *LookupSession) run(ctx context.Context, gen uint64, q entity.CanonicalQuery) {
	identity, err := s.resolver.Resolve(ctx, q)

	s.mu.Lock()
	if gen != s.generation.Load() {
		s.mu.Unlock()
		metrics.StaleWritesDropped.WithLabelValues("identity").Inc()
		s.logger.Debug("Discarding superseded resolution", "query", q.Render(), "generation", gen)
		return
	}
	if err != nil {
		// Nothing will be fetched for this query.
		s.state = sessionState{
			submitted:  true,
			query:      s.state.query,
			resolveErr: err,
			contract:   entity.EmptyResult[entity.ContractInfo](s.now()),
			tokens:     map[uint64]entity.SourceResult[[]entity.TokenHolding]{},
			nfts:       map[uint64]entity.SourceResult[[]entity.NftHolding]{},
			poaps:      entity.EmptyResult[[]entity.PoapHolding](s.now()),
			social:     entity.EmptyResult[entity.SocialProfile](s.now()),
		}
		s.mu.Unlock()
		s.logger.Warn("Identity resolution failed", "query", q.Render(), "error", err)
		s.notify()
		return
	}
	s.state.identity = &identity
	s.mu.Unlock()

	s.logger.Info("Identity resolved", "query", q.Render(), "address", identity.Address, "name", identity.SourceEnsName)
	if q.Kind == entity.QueryAddress {
		// Sources start right away; the reverse name and avatar arrive later.
		s.runs.Add(1)
		go func() {
			defer s.runs.Done()
			s.enrich(ctx, gen, identity.Address)
		}()
	} else {
		s.emit(entity.NewIdentityResolvedEvent(identity, gen, s.now()))
	}
	s.notify()

	s.fanOut(ctx, gen, identity.Address, s.allJobs())
}

// enrich replaces the identity of an address query with its reverse name and avatar,
// then emits the resolved event with the final identity.
func (s *LookupSession) enrich(ctx context.Context, gen uint64, address string) {
	identity := s.resolver.Enrich(ctx, address)

	s.mu.Lock()
	if gen != s.generation.Load() || s.state.identity == nil || s.state.identity.Address != address {
		s.mu.Unlock()
		metrics.StaleWritesDropped.WithLabelValues("identity").Inc()
		return
	}
	s.state.identity = &identity
	s.mu.Unlock()

	if identity.SourceEnsName != "" {
		s.logger.Debug("Reverse name resolved", "address", address, "name", identity.SourceEnsName)
	}
	s.emit(entity.NewIdentityResolvedEvent(identity, gen, s.now()))
	s.notify()
}

type fetchJob struct {
	name  entity.SourceName
	chain entity.ChainContext
}

func (s *LookupSession) allJobs() []fetchJob {
	var jobs []fetchJob
	for _, c := range s.chains.GetAllChains() {
		jobs = append(jobs, fetchJob{entity.SourceTokens, c}, fetchJob{entity.SourceNfts, c})
	}
	jobs = append(jobs,
		fetchJob{entity.SourcePoaps, entity.GlobalChain()},
		fetchJob{entity.SourceSocial, entity.GlobalChain()})
	if s.cfg.ContractChain != nil {
		jobs = append(jobs, fetchJob{entity.SourceContract, *s.cfg.ContractChain})
	}
	return jobs
}

func (s *LookupSession) fanOut(ctx context.Context, gen uint64, address string, jobs []fetchJob) {
	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for _, job := range jobs {
		job := job
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			s.fetch(ctx, gen, address, job)
			return nil
		})
	}
	_ = g.Wait()
}

// fetch runs one job and applies its result if the generation is still current.
func (s *LookupSession) fetch(ctx context.Context, gen uint64, address string, job fetchJob) {
	id := job.chain.ChainID
	var apply func(st *sessionState) bool

	switch job.name {
	case entity.SourceTokens:
		r := s.sources.Tokens.Fetch(ctx, address, job.chain, gen)
		apply = func(st *sessionState) bool {
			if cur, ok := st.tokens[id]; ok && cur.CanTransitionTo(r.Status) {
				st.tokens[id] = r
				return true
			}
			return false
		}
	case entity.SourceNfts:
		r := s.sources.Nfts.Fetch(ctx, address, job.chain, gen)
		apply = func(st *sessionState) bool {
			if cur, ok := st.nfts[id]; ok && cur.CanTransitionTo(r.Status) {
				st.nfts[id] = r
				return true
			}
			return false
		}
	case entity.SourcePoaps:
		r := s.sources.Poaps.Fetch(ctx, address, job.chain, gen)
		apply = func(st *sessionState) bool {
			if st.poaps.CanTransitionTo(r.Status) {
				st.poaps = r
				return true
			}
			return false
		}
	case entity.SourceSocial:
		r := s.sources.Social.Fetch(ctx, address, job.chain, gen)
		apply = func(st *sessionState) bool {
			if st.social.CanTransitionTo(r.Status) {
				st.social = r
				return true
			}
			return false
		}
	case entity.SourceContract:
		r := s.sources.Contract.Fetch(ctx, address, job.chain, gen)
		apply = func(st *sessionState) bool {
			if st.contract.CanTransitionTo(r.Status) {
				st.contract = r
				return true
			}
			return false
		}
	default:
		return
	}

	s.mu.Lock()
	if gen != s.generation.Load() {
		s.mu.Unlock()
		metrics.StaleWritesDropped.WithLabelValues(string(job.name)).Inc()
		return
	}
	applied := apply(&s.state)
	s.mu.Unlock()

	if applied {
		s.notify()
	}
}

// Retry implements port.LookupService. A failed resolution is resubmitted as a new generation;
// otherwise failed sources of the current generation are reset to pending and fetched again.
func (s *LookupSession) Retry(ctx context.Context) entity.ViewState {
	s.mu.Lock()
	st := &s.state
	if st.resolveErr != nil {
		query := st.query
		s.mu.Unlock()
		return s.Submit(ctx, query)
	}
	if st.identity == nil {
		s.mu.Unlock()
		return s.Snapshot().View
	}

	gen := s.generation.Load()
	address := st.identity.Address
	var jobs []fetchJob
	for _, id := range sortedKeys(st.tokens) {
		if c, ok := s.chains.GetChainByID(id); ok && st.tokens[id].Status == entity.StatusFailed {
			jobs = append(jobs, fetchJob{entity.SourceTokens, c})
			s.sources.Tokens.Invalidate(address, id)
			st.tokens[id] = entity.PendingResult[[]entity.TokenHolding]()
		}
	}
	for _, id := range sortedKeys(st.nfts) {
		if c, ok := s.chains.GetChainByID(id); ok && st.nfts[id].Status == entity.StatusFailed {
			jobs = append(jobs, fetchJob{entity.SourceNfts, c})
			s.sources.Nfts.Invalidate(address, id)
			st.nfts[id] = entity.PendingResult[[]entity.NftHolding]()
		}
	}
	if st.poaps.Status == entity.StatusFailed {
		jobs = append(jobs, fetchJob{entity.SourcePoaps, entity.GlobalChain()})
		s.sources.Poaps.Invalidate(address, entity.GlobalChainID)
		st.poaps = entity.PendingResult[[]entity.PoapHolding]()
	}
	if st.social.Status == entity.StatusFailed {
		jobs = append(jobs, fetchJob{entity.SourceSocial, entity.GlobalChain()})
		s.sources.Social.Invalidate(address, entity.GlobalChainID)
		st.social = entity.PendingResult[entity.SocialProfile]()
	}
	if st.contract.Status == entity.StatusFailed && s.cfg.ContractChain != nil {
		jobs = append(jobs, fetchJob{entity.SourceContract, *s.cfg.ContractChain})
		s.sources.Contract.Invalidate(address, s.cfg.ContractChain.ChainID)
		st.contract = entity.PendingResult[entity.ContractInfo]()
	}
	if len(jobs) == 0 {
		s.mu.Unlock()
		return s.Snapshot().View
	}

	// Retries belong to the current generation and are cancelled with it.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	prevCancel := s.cancel
	s.cancel = func() {
		cancel()
		if prevCancel != nil {
			prevCancel()
		}
	}
	s.mu.Unlock()

	s.logger.Info("Retrying failed sources", "address", address, "count", len(jobs), "generation", gen)
	s.notify()
	s.runs.Add(1)
	go func() {
		defer s.runs.Done()
		s.fanOut(runCtx, gen, address, jobs)
	}()
	return s.Snapshot().View
}

// Snapshot implements port.LookupService.
func (s *LookupSession) Snapshot() port.LookupSnapshot {
	s.mu.RLock()
	st := s.state
	gen := s.generation.Load()
	tokens := copyMap(st.tokens)
	nfts := copyMap(st.nfts)
	s.mu.RUnlock()

	statuses := []entity.SourceStatus{st.contract.Status, st.poaps.Status, st.social.Status}
	for _, id := range sortedKeys(tokens) {
		statuses = append(statuses, tokens[id].Status)
	}
	for _, id := range sortedKeys(nfts) {
		statuses = append(statuses, nfts[id].Status)
	}

	return port.LookupSnapshot{
		View: ProjectViewState(ProjectionInput{
			Generation: gen,
			Submitted:  st.submitted,
			Query:      st.query,
			Hint:       st.hint,
			Identity:   st.identity,
			ResolveErr: st.resolveErr,
			Statuses:   statuses,
		}),
		Contract: st.contract,
		Tokens:   tokens,
		Nfts:     nfts,
		Poaps:    st.poaps,
		Social:   st.social,
		Balance:  s.aggregator.Aggregate(tokens),
		NftCard:  s.aggregator.SummarizeNfts(nfts),
		PoapCard: s.aggregator.SummarizePoaps(st.poaps),
	}
}

// Close cancels work in flight and waits for it to stop.
func (s *LookupSession) Close() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
	s.runs.Wait()
}

func (s *LookupSession) notify() {
	s.subMu.RLock()
	subs := make([]func(port.LookupSnapshot), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.subMu.RUnlock()
	if len(subs) == 0 {
		return
	}
	snap := s.Snapshot()
	for _, fn := range subs {
		fn(snap)
	}
}

func (s *LookupSession) emit(event entity.IdentityResolvedEvent) {
	s.subMu.RLock()
	handlers := append([]port.IdentityEventHandler(nil), s.handlers...)
	s.subMu.RUnlock()
	for _, h := range handlers {
		h(event)
	}
}

func copyMap[V any](m map[uint64]V) map[uint64]V {
	out := make(map[uint64]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func sortedKeys[V any](m map[uint64]V) []uint64 {
	keys := make([]uint64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

var _ port.LookupService = (*LookupSession)(nil)
