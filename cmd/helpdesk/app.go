package main

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk-client/internal/api/http"
	"github.com/spec-kit/helpdesk-client/internal/auth"
	"github.com/spec-kit/helpdesk-client/internal/config"
	"github.com/spec-kit/helpdesk-client/internal/domain"
	"github.com/spec-kit/helpdesk-client/internal/events"
	"github.com/spec-kit/helpdesk-client/internal/normalize"
	"github.com/spec-kit/helpdesk-client/internal/observability"
	"github.com/spec-kit/helpdesk-client/internal/persistence"
	"github.com/spec-kit/helpdesk-client/internal/repository"
	"github.com/spec-kit/helpdesk-client/internal/service"
	"github.com/spec-kit/helpdesk-client/internal/worker"
)

// app is the wiring shared by every command.
type app struct {
	cfg        *config.Config
	logger     *zap.Logger
	norm       *normalize.Normalizer
	session    domain.SessionContext
	client     *httptransport.Client
	dispatcher events.Dispatcher
	tickets    repository.TicketRepository
	messages   repository.TicketMessageRepository
	out        io.Writer

	closers []func()
}

func newApp(ctx context.Context, out io.Writer) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to init logger: %w", err)
	}

	a := &app{
		cfg:    cfg,
		logger: logger,
		norm:   normalize.New(cfg.List.DefaultLastPage, normalize.FixedOffset(cfg.Display.TimezoneOffsetHours)),
		out:    out,
	}
	a.closers = append(a.closers, func() { _ = logger.Sync() })

	source, err := a.sessionSource()
	if err != nil {
		a.close()
		return nil, err
	}
	a.session, err = auth.NewLoader(source, a.norm, logger).Load(ctx)
	if err != nil {
		a.close()
		return nil, err
	}

	a.client = httptransport.NewClient(httptransport.Config{
		BaseURL:   cfg.API.BaseURL,
		Timeout:   cfg.API.RequestTimeout(),
		Token:     a.session.Token,
		UserAgent: cfg.App.Name + "/" + cfg.App.Version,
	}, logger, observability.NewMetrics())

	role := a.session.Actor.Role
	a.dispatcher = events.NewInMemoryDispatcher(logger)
	a.tickets = repository.NewTicketRepository(a.client, a.norm, role)
	a.messages = repository.NewTicketMessageRepository(a.client, a.norm, role)

	notifier := service.NewActivityNotifier(a.dispatcher, logger, a.norm, out, a.session.Actor.ID)
	a.closers = append(a.closers, worker.StartNotificationWorker(notifier))

	logger.Debug("client ready",
		zap.String("api", a.client.BaseURL()),
		zap.String("role", string(role)))
	return a, nil
}

func (a *app) sessionSource() (auth.Source, error) {
	switch a.cfg.Session.Source {
	case config.SessionSourceRedis:
		r := persistence.NewRedis(a.cfg.Redis, a.logger)
		a.closers = append(a.closers, r.Close)
		return auth.NewRedisSource(r, a.cfg.Session.RedisPrefix), nil
	default:
		return auth.NewFileSource(a.cfg.Session.File), nil
	}
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func (a *app) ticketList() *service.TicketList {
	return service.NewTicketList(service.TicketListDependencies{
		TicketRepo: a.tickets,
		Dispatcher: a.dispatcher,
		Session:    a.session,
		Logger:     a.logger,
	})
}

func (a *app) statusMachine() *service.StatusMachine {
	return service.NewStatusMachine(service.StatusMachineDependencies{
		TicketRepo:  a.tickets,
		MessageRepo: a.messages,
		Dispatcher:  a.dispatcher,
		Session:     a.session,
		Logger:      a.logger,
	})
}

func (a *app) messageSync(onChange func(service.ChatState)) *service.MessageSync {
	return service.NewMessageSync(service.MessageSyncDependencies{
		MessageRepo:  a.messages,
		Dispatcher:   a.dispatcher,
		Session:      a.session,
		Logger:       a.logger,
		PollInterval: a.cfg.Chat.PollInterval(),
		MergePolicy:  a.cfg.Chat.MergePolicy,
		OnChange:     onChange,
	})
}

func (a *app) attachments() *service.AttachmentResolver {
	return service.NewAttachmentResolver(a.client, newSystemOpener(a.out), a.cfg.API.BaseURL, a.cfg.App.DownloadDir, a.logger)
}

// openTicket selects a ticket by code or internal id, fetching its detail.
func (a *app) openTicket(ctx context.Context, list *service.TicketList, id string) (domain.Ticket, error) {
	if _, err := list.Load(ctx, 1); err != nil {
		return domain.Ticket{}, err
	}
	return list.Select(ctx, id)
}
