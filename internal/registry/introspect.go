package registry

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// defaultIntrospectionModels is the ~30-model target list a dynamic pass
// covers when the operator hasn't configured an explicit set, chosen to
// span the modules most tool calls touch: contacts, sales, invoicing, CRM,
// helpdesk, inventory, and project management.
var defaultIntrospectionModels = []string{
	"res.partner", "res.users", "res.company", "res.currency",
	"sale.order", "sale.order.line",
	"account.move", "account.move.line", "account.payment", "account.tax",
	"crm.lead", "crm.stage", "crm.team",
	"helpdesk.ticket", "helpdesk.team",
	"product.product", "product.template", "product.category",
	"stock.picking", "stock.move", "stock.quant", "stock.location",
	"purchase.order", "purchase.order.line",
	"project.project", "project.task",
	"hr.employee", "hr.department",
	"calendar.event", "mail.message", "ir.attachment",
}

// DefaultIntrospectionModels returns a copy of the default target list.
func DefaultIntrospectionModels() []string {
	out := make([]string, len(defaultIntrospectionModels))
	copy(out, defaultIntrospectionModels)
	return out
}

// ModelIntrospector fetches one model's metadata from a live backend. Its
// implementation lives with the wire adapter integration; the registry
// package only needs this narrow surface to run the fan-out.
type ModelIntrospector interface {
	InstalledModules(ctx context.Context) (map[string]bool, error)
	ReadableModels(ctx context.Context, candidates []string) ([]string, error)
	IntrospectModel(ctx context.Context, model string) (ModelInfo, error)
}

// IntrospectConfig bounds the dynamic pass.
type IntrospectConfig struct {
	Models         []string      // defaults to DefaultIntrospectionModels()
	MaxConcurrency int           // defaults to 5
	Budget         time.Duration // defaults to 60s
}

// Dynamic runs the bounded-concurrency introspection pass described in the
// specification: filter candidate models to those the current uid can
// read, then fetch per-model metadata through a semaphore, bounded overall
// by a wall-clock budget. Whatever was collected when the budget expires is
// kept, with a warning rather than an error.
func Dynamic(ctx context.Context, intro ModelIntrospector, cfg IntrospectConfig, log *slog.Logger) (map[string]ModelInfo, error) {
	if log == nil {
		log = slog.Default()
	}
	if len(cfg.Models) == 0 {
		cfg.Models = DefaultIntrospectionModels()
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 5
	}
	if cfg.Budget <= 0 {
		cfg.Budget = 60 * time.Second
	}

	budgetCtx, cancel := context.WithTimeout(ctx, cfg.Budget)
	defer cancel()

	if _, err := intro.InstalledModules(budgetCtx); err != nil {
		return nil, err
	}

	readable, err := intro.ReadableModels(budgetCtx, cfg.Models)
	if err != nil {
		return nil, err
	}

	results := make(map[string]ModelInfo, len(readable))
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, cfg.MaxConcurrency)

	for _, model := range readable {
		wg.Add(1)
		go func(model string) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-budgetCtx.Done():
				return
			}
			defer func() { <-sem }()

			select {
			case <-budgetCtx.Done():
				return
			default:
			}

			mi, err := intro.IntrospectModel(budgetCtx, model)
			if err != nil {
				log.Warn("introspection failed for model", "model", model, "error", err)
				return
			}
			mu.Lock()
			results[model] = mi
			mu.Unlock()
		}(model)
	}
	wg.Wait()

	if budgetCtx.Err() != nil && len(results) < len(readable) {
		log.Warn("introspection budget expired before all models completed",
			"completed", len(results), "target", len(readable))
	}

	return results, nil
}
