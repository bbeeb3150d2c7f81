// Package store keeps the list, paging and current-item state of one domain
// on top of a domain client and reports outcomes as user messages.
package store

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/neoscript99/go-gql-domain/pkg/criteria"
	"github.com/neoscript99/go-gql-domain/pkg/domain"
	"github.com/neoscript99/go-gql-domain/types"
)

// Success message texts.
const (
	SavedText   = "saved"
	UpdatedText = "updated"
)

// DomainClient is the subset of *domain.Client used by Store.
type DomainClient interface {
	Domain() string
	List(ctx context.Context, crit any) (*domain.ListResult, error)
	Get(ctx context.Context, id string) (domain.Payload, error)
	Create(ctx context.Context, value map[string]any) (domain.Payload, error)
	Update(ctx context.Context, id string, value map[string]any) (domain.Payload, error)
}

// PageInfo is the paging state of a store.
type PageInfo struct {
	CurrentPage int
	PageSize    int
	// TotalCount is types.UnknownTotalCount until the first page arrives.
	TotalCount int
	IsLastPage bool
}

// DefaultPageInfo returns the initial paging state.
func DefaultPageInfo() PageInfo {
	return PageInfo{
		CurrentPage: 1,
		PageSize:    types.DefaultPageSize,
		TotalCount:  types.UnknownTotalCount,
	}
}

// ListHandler receives a list result in place of the default handling.
type ListHandler func(*domain.ListResult)

// ListOptions configures Store.List.
type ListOptions struct {
	Criteria criteria.Criteria
	// PageInfo applies max/offset paging when set.
	PageInfo *PageInfo
	// Orders defaults to the store's default orders when nil.
	Orders  []criteria.Order
	Handler ListHandler
}

// PageOptions configures the paged listing methods.
type PageOptions struct {
	Criteria criteria.Criteria
	Orders   []criteria.Order
	Handler  ListHandler
	// Append accumulates pages into AllList instead of replacing it.
	Append bool
}

// Store holds the state of one domain.
type Store struct {
	client        DomainClient
	messages      *Messages
	defaultOrders []criteria.Order

	mu           sync.Mutex
	currentItem  domain.Payload
	allList      []domain.Payload
	pageList     []domain.Payload
	pageInfo     PageInfo
	dependencies map[string]any
}

// Option configures a Store.
type Option func(*Store)

// WithMessages sets the message sink.
func WithMessages(m *Messages) Option {
	return func(s *Store) {
		if m != nil {
			s.messages = m
		}
	}
}

// WithPageSize overrides the default page size. Non-positive sizes are
// ignored.
func WithPageSize(size int) Option {
	return func(s *Store) {
		if size > 0 {
			s.pageInfo.PageSize = size
		}
	}
}

// WithDefaultOrders sets the orders used when a listing passes none.
func WithDefaultOrders(orders ...criteria.Order) Option {
	return func(s *Store) { s.defaultOrders = orders }
}

// WithDependencies sets the stores (or any other collaborators) this store
// depends on, keyed by name.
func WithDependencies(deps map[string]any) Option {
	return func(s *Store) { maps.Copy(s.dependencies, deps) }
}

// New returns a Store driving client.
func New(client DomainClient, opts ...Option) *Store {
	s := &Store{
		client:       client,
		messages:     NewMessages(nil),
		pageInfo:     DefaultPageInfo(),
		dependencies: make(map[string]any),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Domain returns the domain name.
func (s *Store) Domain() string { return s.client.Domain() }

// Messages returns the store's message sink.
func (s *Store) Messages() *Messages { return s.messages }

// AddDependStore merges deps into the dependency map. Mutually dependent
// stores are constructed first and then linked with AddDependStore.
func (s *Store) AddDependStore(deps map[string]any) {
	s.mu.Lock()
	maps.Copy(s.dependencies, deps)
	s.mu.Unlock()
}

// ResolveDependencies returns a copy of the dependency map.
func (s *Store) ResolveDependencies() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.dependencies)
}

// List fetches one listing. Without a handler the results replace AllList.
// Failures are reported as an error message and returned.
func (s *Store) List(ctx context.Context, opts ListOptions) error {
	// paging and ordering rewrite criteria and orders in place, so the
	// caller's values are copied and stay reusable across pages
	crit := criteria.Clone(opts.Criteria)
	if opts.PageInfo != nil {
		if err := criteria.ApplyPaging(crit, opts.PageInfo.CurrentPage, opts.PageInfo.PageSize); err != nil {
			return s.messages.NewGraphQLError(err)
		}
	}
	orders := opts.Orders
	if orders == nil {
		orders = s.defaultOrders
	}
	orders = slices.Clone(orders)
	if len(orders) > 0 {
		criteria.ApplyOrdering(crit, orders)
	}

	result, err := s.client.List(ctx, crit)
	if err != nil {
		return s.messages.NewGraphQLError(err)
	}
	if opts.Handler != nil {
		opts.Handler(result)
		return nil
	}
	s.mu.Lock()
	s.allList = result.Results
	s.mu.Unlock()
	return nil
}

// ListAll lists without paging.
func (s *Store) ListAll(ctx context.Context, crit criteria.Criteria) error {
	return s.List(ctx, ListOptions{Criteria: crit})
}

// ListPage fetches the current page. AllList is cleared first when the
// current page is the first one.
func (s *Store) ListPage(ctx context.Context, opts PageOptions) error {
	s.mu.Lock()
	if s.pageInfo.CurrentPage == 1 {
		s.allList = nil
	}
	page := s.pageInfo
	s.mu.Unlock()

	handler := opts.Handler
	if handler == nil {
		handler = func(result *domain.ListResult) {
			s.applyPage(page, result, opts.Append)
		}
	}
	return s.List(ctx, ListOptions{
		Criteria: opts.Criteria,
		PageInfo: &page,
		Orders:   opts.Orders,
		Handler:  handler,
	})
}

// applyPage records a fetched page. The page is the last one when it is
// short or when it reaches the reported total.
func (s *Store) applyPage(page PageInfo, result *domain.ListResult, appendResults bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pageList = result.Results
	s.pageInfo.TotalCount = result.TotalCount
	s.pageInfo.IsLastPage = len(result.Results) < page.PageSize ||
		page.PageSize*page.CurrentPage >= result.TotalCount
	if appendResults {
		s.allList = append(s.allList, result.Results...)
	} else {
		s.allList = result.Results
	}
}

// ListNextPage fetches the next page. Past the last page it only emits an
// informational message.
func (s *Store) ListNextPage(ctx context.Context, opts PageOptions) error {
	s.mu.Lock()
	if s.pageInfo.IsLastPage {
		s.mu.Unlock()
		s.messages.NewInfo(types.NoMoreDataText)
		return nil
	}
	s.pageInfo.CurrentPage++
	s.mu.Unlock()
	return s.ListPage(ctx, opts)
}

// ListFirstPage restarts paging from the first page.
func (s *Store) ListFirstPage(ctx context.Context, opts PageOptions) error {
	s.mu.Lock()
	s.pageInfo.CurrentPage = 1
	s.mu.Unlock()
	return s.ListPage(ctx, opts)
}

// ClearList empties AllList and PageList.
func (s *Store) ClearList() {
	s.mu.Lock()
	s.allList = nil
	s.pageList = nil
	s.mu.Unlock()
}

// ChangeCurrentItem replaces the current item.
func (s *Store) ChangeCurrentItem(item domain.Payload) {
	s.mu.Lock()
	s.currentItem = item
	s.mu.Unlock()
}

// Create creates item; the created entity becomes the current item.
func (s *Store) Create(ctx context.Context, item map[string]any) (domain.Payload, error) {
	created, err := s.client.Create(ctx, item)
	if err != nil {
		return nil, s.messages.NewGraphQLError(err)
	}
	s.messages.NewSuccess(SavedText)
	s.ChangeCurrentItem(created)
	return created, nil
}

// Update updates the entity with id; the result becomes the current item.
func (s *Store) Update(ctx context.Context, id string, item map[string]any) (domain.Payload, error) {
	updated, err := s.client.Update(ctx, id, item)
	if err != nil {
		return nil, s.messages.NewGraphQLError(err)
	}
	s.messages.NewSuccess(UpdatedText)
	s.ChangeCurrentItem(updated)
	return updated, nil
}

// Get loads the entity with id into the current item.
func (s *Store) Get(ctx context.Context, id string) (domain.Payload, error) {
	item, err := s.client.Get(ctx, id)
	if err != nil {
		return nil, s.messages.NewGraphQLError(err)
	}
	s.ChangeCurrentItem(item)
	return item, nil
}

// CurrentItem returns the current item.
func (s *Store) CurrentItem() domain.Payload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentItem
}

// AllList returns the accumulated list.
func (s *Store) AllList() []domain.Payload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.allList)
}

// PageList returns the last fetched page.
func (s *Store) PageList() []domain.Payload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.pageList)
}

// PageInfo returns a snapshot of the paging state.
func (s *Store) PageInfo() PageInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pageInfo
}
