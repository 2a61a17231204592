package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/ettle/strcase"
	"github.com/goliatone/go-redash/components/itemslist"
	"github.com/goliatone/go-redash/components/notify"
)

// ListFlags are shared by every list command. Unset flags keep the state stored by a
// previous run.
type ListFlags struct {
	Page     int      `help:"Page to show."`
	PageSize int      `name:"page-size" help:"Items per page."`
	Order    string   `help:"Sort field, prefixed with - for descending. camelCase and snake_case are accepted."`
	Search   string   `short:"q" help:"Search term."`
	Tag      []string `help:"Only show items with this tag (repeatable)."`
	Reset    bool     `help:"Forget the list state kept from previous runs."`
}

func (f ListFlags) apply(state itemslist.State, defaults itemslist.Defaults) itemslist.State {
	if f.Reset {
		state = defaults.State()
	}
	if f.Order != "" {
		field, reverse := parseOrder(f.Order)
		state = state.WithOrder(field, reverse)
	}
	if f.Search != "" {
		state = state.WithSearch(f.Search)
	}
	if len(f.Tag) > 0 {
		state = state.WithTags(f.Tag)
	}
	var update itemslist.PaginationUpdate
	if f.PageSize > 0 {
		update.ItemsPerPage = &f.PageSize
	}
	if f.Page > 0 {
		update.Page = &f.Page
	}
	return state.WithPagination(update)
}

// parseOrder accepts "createdAt", "created_at" or "-createdAt".
func parseOrder(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	reverse := strings.HasPrefix(raw, "-")
	return strcase.ToSnake(strings.TrimPrefix(raw, "-")), reverse
}

type listSpec[T any] struct {
	name     string
	source   itemslist.ItemsSource[T]
	params   itemslist.Params
	orderBy  string
	reverse  bool
	columns  []column[T]
	footer   func(itemslist.View[T]) string
	watching bool
}

var emptyMessages = map[itemslist.EmptyStateKind]string{
	itemslist.EmptySearch:     "Sorry, we couldn't find anything.",
	itemslist.EmptyTags:       "No items match the selected tags.",
	itemslist.EmptyFavorites:  "Mark items as favorite to list them here.",
	itemslist.EmptyArchive:    "Archived items will be listed here.",
	itemslist.EmptyMine:       "Items you created will be listed here.",
	itemslist.EmptyCollection: "Nothing here yet.",
}

// runList loads one page through a list controller. With spec.watching set it keeps
// polling and printing until ctx is cancelled.
func runList[T any](ctx context.Context, a *app, flags ListFlags, spec listSpec[T]) error {
	defaults := a.cfg.ListDefaults(spec.orderBy, spec.reverse)
	storage := a.storage(spec.name, defaults)
	if err := storage.Save(flags.apply(storage.Load(), defaults)); err != nil {
		a.logger.Warn().Err(err).Str("list", spec.name).Msg("store list state")
	}

	var onChange func(itemslist.View[T])
	if spec.watching {
		onChange = func(view itemslist.View[T]) {
			if view.IsLoaded && view.Err == nil {
				if err := printView(a, view, spec); err != nil {
					a.logger.Warn().Err(err).Msg("print list")
				}
			}
		}
	}
	ctrl, err := itemslist.NewController(itemslist.ControllerOptions[T]{
		Source:         spec.source,
		Storage:        storage,
		Defaults:       defaults,
		Params:         spec.params,
		ErrorHandler:   notify.FetchErrorHandler(a.notifier),
		Telemetry:      a.telemetry(),
		Logger:         a.logger,
		SearchDebounce: a.cfg.SearchDebounce,
		OnChange:       onChange,
	})
	if err != nil {
		return err
	}
	defer ctrl.Close()

	if spec.watching {
		poller := itemslist.NewAutoUpdater(ctrl, a.cfg.PollInterval)
		defer poller.Stop()
		ctrl.Update()
		<-ctx.Done()
		return nil
	}

	ctrl.Update()
	ctrl.Wait()
	view := ctrl.View()
	if view.Err != nil {
		return fmt.Errorf("redashctl: list %s: %w", spec.name, view.Err)
	}
	return printView(a, view, spec)
}

func printView[T any](a *app, view itemslist.View[T], spec listSpec[T]) error {
	list := listing[T]{Count: view.TotalCount, Page: view.Page, Items: view.PageItems, Meta: view.CustomParams}
	if list.Items == nil {
		list.Items = []T{}
	}
	if a.printer.format != "table" {
		return a.printer.encode(list)
	}
	if kind := itemslist.EmptyStateFor(view); kind != itemslist.EmptyNone {
		_, err := fmt.Fprintln(a.printer.out, emptyMessages[kind])
		return err
	}
	if err := printList(a.printer, list, spec.columns); err != nil {
		return err
	}
	if spec.footer != nil {
		if line := spec.footer(view); line != "" {
			_, err := fmt.Fprintln(a.printer.out, line)
			return err
		}
	}
	return nil
}
