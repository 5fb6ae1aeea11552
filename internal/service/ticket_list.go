package service

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/spec-kit/helpdesk-client/internal/api/dto"
	"github.com/spec-kit/helpdesk-client/internal/domain"
	"github.com/spec-kit/helpdesk-client/internal/events"
	"github.com/spec-kit/helpdesk-client/internal/repository"
	"github.com/spec-kit/helpdesk-client/pkg/util/errorutil"
)

// DeepLinkParam names the query parameter that opens a ticket on load.
const DeepLinkParam = "open"

// ListFilter narrows the loaded page on the client.
type ListFilter struct {
	Search string
	Status *domain.TicketStatus
}

// StatusCount is the number of rows with a status on the current page.
type StatusCount struct {
	Status domain.TicketStatus
	Count  int
}

// ListState is a copy of the controller state for rendering.
type ListState struct {
	Items       []domain.Ticket
	CurrentPage int
	LastPage    int
	Loading     bool
	Err         error
	Selected    *domain.Ticket
	DetailErr   error
}

// TicketListDependencies bundles collaborators for the list controller.
type TicketListDependencies struct {
	TicketRepo repository.TicketRepository
	Dispatcher events.Dispatcher
	Session    domain.SessionContext
	Logger     *zap.Logger
}

// TicketList holds one loaded page of tickets and the selected ticket.
// Every mutation is a merge keyed by the ticket's durable id.
type TicketList struct {
	tickets repository.TicketRepository
	session domain.SessionContext
	logger  *zap.Logger
	group   singleflight.Group

	mu          sync.Mutex
	page        domain.TicketPage
	loading     bool
	err         error
	filter      ListFilter
	selected    *domain.Ticket
	selectedRef domain.TicketRef
	detailErr   error
	pendingOpen string
	unsubscribe func()
}

// NewTicketList constructs the controller and starts following status
// changes made elsewhere in the client.
func NewTicketList(deps TicketListDependencies) *TicketList {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &TicketList{
		tickets: deps.TicketRepo,
		session: deps.Session,
		logger:  logger,
		page:    domain.TicketPage{Items: []domain.Ticket{}, CurrentPage: 1, LastPage: 1},
	}
	if deps.Dispatcher != nil {
		l.unsubscribe = deps.Dispatcher.Subscribe(events.EventTicketStatusChanged, l.handleStatusChanged)
	}
	return l
}

// Close stops following events.
func (l *TicketList) Close() {
	l.mu.Lock()
	unsubscribe := l.unsubscribe
	l.unsubscribe = nil
	l.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

// ApplyDeepLink records an open=<id> parameter of rawURL for the next
// completed load and returns rawURL without it.
func (l *TicketList) ApplyDeepLink(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL, errorutil.NewValidationError("invalid link", map[string]any{"url": rawURL})
	}
	q := u.Query()
	id := strings.TrimSpace(q.Get(DeepLinkParam))
	if id == "" {
		return rawURL, nil
	}
	q.Del(DeepLinkParam)
	u.RawQuery = q.Encode()

	l.mu.Lock()
	l.pendingOpen = id
	l.mu.Unlock()
	return u.String(), nil
}

// Load fetches one page. A pending deep link is opened once the page is in.
func (l *TicketList) Load(ctx context.Context, page int) (domain.TicketPage, error) {
	return l.LoadQuery(ctx, dto.TicketListQuery{Page: page})
}

// LoadQuery fetches one page with an optional server-side status filter.
func (l *TicketList) LoadQuery(ctx context.Context, query dto.TicketListQuery) (domain.TicketPage, error) {
	l.mu.Lock()
	l.loading = true
	l.err = nil
	l.mu.Unlock()

	result, err := l.tickets.List(ctx, query)

	l.mu.Lock()
	l.loading = false
	if err != nil {
		l.err = err
		l.mu.Unlock()
		l.logger.Warn("ticket list load failed", zap.Int("page", query.Page), zap.Error(err))
		return domain.TicketPage{}, err
	}
	if result.Items == nil {
		result.Items = []domain.Ticket{}
	}
	l.page = result
	pending := l.pendingOpen
	l.pendingOpen = ""
	l.mu.Unlock()

	l.logger.Debug("ticket page loaded",
		zap.Int("page", result.CurrentPage),
		zap.Int("last_page", result.LastPage),
		zap.Int("items", len(result.Items)))

	if pending != "" {
		if _, err := l.Select(ctx, pending); err != nil {
			l.logger.Warn("deep link open failed", zap.String("ticket", pending), zap.Error(err))
		}
	}
	return l.Page(), nil
}

// Page returns a copy of the loaded page.
func (l *TicketList) Page() domain.TicketPage {
	l.mu.Lock()
	defer l.mu.Unlock()
	return domain.TicketPage{
		Items:       append([]domain.Ticket{}, l.page.Items...),
		CurrentPage: l.page.CurrentPage,
		LastPage:    l.page.LastPage,
	}
}

// SetFilter replaces the client-side filter.
func (l *TicketList) SetFilter(filter ListFilter) {
	l.mu.Lock()
	l.filter = filter
	l.mu.Unlock()
}

// Visible returns the rows of the loaded page that pass the filter.
func (l *TicketList) Visible() []domain.Ticket {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.Ticket, 0, len(l.page.Items))
	for _, t := range l.page.Items {
		if l.filter.Status != nil && t.Status != *l.filter.Status {
			continue
		}
		if !matchesSearch(t, l.filter.Search, l.session.Actor.Role) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// StatusCounts counts the loaded page by status, every status included.
// The counts follow the page, not the whole backlog.
func (l *TicketList) StatusCounts() []StatusCount {
	l.mu.Lock()
	defer l.mu.Unlock()
	counts := make(map[domain.TicketStatus]int, 4)
	for _, t := range l.page.Items {
		counts[t.Status]++
	}
	out := make([]StatusCount, 0, 4)
	for _, s := range domain.Statuses() {
		out = append(out, StatusCount{Status: s, Count: counts[s]})
	}
	return out
}

// Lookup finds a loaded row by code or internal id.
func (l *TicketList) Lookup(id string) (domain.Ticket, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if i := l.indexOf(domain.TicketRef{Code: id, InternalID: id}, id); i >= 0 {
		return l.page.Items[i], true
	}
	return domain.Ticket{}, false
}

// Select opens a ticket: the row (if loaded) is selected immediately, then
// the detail is fetched and merged into both row and selection, detail
// fields winning. Concurrent selects of one ticket share a request.
func (l *TicketList) Select(ctx context.Context, id string) (domain.Ticket, error) {
	l.mu.Lock()
	ref := domain.TicketRef{Code: id}
	if i := l.indexOf(ref, id); i >= 0 {
		row := l.page.Items[i]
		ref = row.Ref
		l.selected = &row
	} else {
		l.selected = nil
	}
	l.selectedRef = ref
	l.detailErr = nil
	l.mu.Unlock()

	v, err, shared := l.group.Do(ref.Key(), func() (interface{}, error) {
		return l.tickets.GetDetail(ctx, ref)
	})

	l.mu.Lock()
	defer l.mu.Unlock()
	current := l.selectedRef.Same(ref)
	if err != nil {
		if current {
			l.detailErr = err
		}
		l.logger.Warn("ticket detail failed", zap.String("ticket", ref.Display()), zap.Error(err))
		if current && l.selected != nil {
			return *l.selected, err
		}
		return domain.Ticket{}, err
	}
	detail := v.(domain.Ticket)
	l.logger.Debug("ticket detail merged", zap.String("ticket", ref.Display()), zap.Bool("shared", shared))

	merged := l.mergeLocked(ref, detail)
	if merged == nil {
		t := domain.MergeTicket(domain.Ticket{Ref: ref}, detail)
		merged = &t
	}
	if current {
		if l.selected != nil {
			t := domain.MergeTicket(*l.selected, detail)
			l.selected = &t
		} else {
			t := *merged
			l.selected = &t
		}
		l.selectedRef = l.selected.Ref
		return *l.selected, nil
	}
	return *merged, nil
}

// Selected returns the selected ticket.
func (l *TicketList) Selected() (domain.Ticket, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.selected == nil {
		return domain.Ticket{}, false
	}
	return *l.selected, true
}

// Snapshot returns a copy of the controller state.
func (l *TicketList) Snapshot() ListState {
	l.mu.Lock()
	defer l.mu.Unlock()
	state := ListState{
		Items:       append([]domain.Ticket{}, l.page.Items...),
		CurrentPage: l.page.CurrentPage,
		LastPage:    l.page.LastPage,
		Loading:     l.loading,
		Err:         l.err,
		DetailErr:   l.detailErr,
	}
	if l.selected != nil {
		t := *l.selected
		state.Selected = &t
	}
	return state
}

func (l *TicketList) handleStatusChanged(_ context.Context, e events.Event) error {
	payload, ok := e.Payload.(events.TicketStatusChangedPayload)
	if !ok {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.mergeLocked(payload.Ticket.Ref, payload.Ticket)
	if l.selected != nil && l.selected.Ref.Same(payload.Ticket.Ref) {
		t := domain.MergeTicket(*l.selected, payload.Ticket)
		l.selected = &t
	}
	return nil
}

// mergeLocked merges update into the row of ref and returns the new row, or
// nil when the ticket is not on the loaded page.
func (l *TicketList) mergeLocked(ref domain.TicketRef, update domain.Ticket) *domain.Ticket {
	i := l.indexOf(ref, "")
	if i < 0 {
		return nil
	}
	items := append([]domain.Ticket{}, l.page.Items...)
	items[i] = domain.MergeTicket(items[i], update)
	l.page.Items = items
	row := items[i]
	return &row
}

func (l *TicketList) indexOf(ref domain.TicketRef, id string) int {
	for i, t := range l.page.Items {
		if id != "" && t.Ref.Matches(id) {
			return i
		}
		if id == "" && t.Ref.Same(ref) {
			return i
		}
	}
	return -1
}

// matchesSearch compares case-insensitively against id, title, category
// and priority for admins, id, title, category and description for users.
func matchesSearch(t domain.Ticket, search string, role domain.Role) bool {
	needle := strings.ToLower(strings.TrimSpace(search))
	if needle == "" {
		return true
	}
	fields := []string{t.Ref.Code, t.Ref.InternalID, t.Title, t.Category}
	if role == domain.RoleAdmin {
		fields = append(fields, string(t.Priority))
	} else {
		fields = append(fields, t.Description)
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}
